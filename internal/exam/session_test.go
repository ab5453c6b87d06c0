package exam

import (
	"testing"
	"time"
)

func newActiveSession(start time.Time, duration time.Duration) TestSession {
	return TestSession{
		ID:              "s1",
		UserID:          "u1",
		CourseID:        "c1",
		Status:          SessionActive,
		StartTime:       start,
		ExpectedEndTime: start.Add(duration),
		CreatedAt:       start,
		UpdatedAt:       start,
	}
}

func TestPauseFreezesCountdown(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, time.Hour)

	now := start.Add(10 * time.Minute)
	before := s.RemainingTime(now)
	if before != 50*60 {
		t.Fatalf("remaining before pause = %d, want %d", before, 50*60)
	}

	if !s.Pause(now) {
		t.Fatalf("pause on active session reported no-op")
	}
	// the clock keeps running but the countdown does not
	if got := s.RemainingTime(now.Add(20 * time.Minute)); got != before {
		t.Fatalf("remaining while paused = %d, want frozen at %d", got, before)
	}
}

func TestResumeRestoresRemainingTime(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, time.Hour)

	pauseAt := start.Add(15 * time.Minute)
	before := s.RemainingTime(pauseAt)
	s.Pause(pauseAt)

	resumeAt := pauseAt.Add(7 * time.Minute)
	if !s.Resume(resumeAt) {
		t.Fatalf("resume on paused session reported no-op")
	}
	if s.TotalPauseSeconds != 7*60 {
		t.Fatalf("TotalPauseSeconds = %d, want %d", s.TotalPauseSeconds, 7*60)
	}
	// remaining immediately after resume equals remaining just before pause
	if got := s.RemainingTime(resumeAt); got != before {
		t.Fatalf("remaining after resume = %d, want %d", got, before)
	}
}

func TestPauseResumeAreLenientNoOps(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, time.Hour)

	if s.Resume(start) {
		t.Fatalf("resume on active session should be a no-op")
	}
	s.Pause(start.Add(time.Minute))
	if s.Pause(start.Add(2 * time.Minute)) {
		t.Fatalf("second pause should be a no-op")
	}
	if s.PauseTime == nil || !s.PauseTime.Equal(start.Add(time.Minute)) {
		t.Fatalf("second pause moved the pause timestamp")
	}
}

func TestMarkCompleteFoldsOpenPause(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, time.Hour)

	s.Pause(start.Add(10 * time.Minute))
	end := start.Add(25 * time.Minute)
	if err := s.MarkComplete(end); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s.Status != SessionCompleted {
		t.Fatalf("status = %s", s.Status)
	}
	if s.TotalPauseSeconds != 15*60 {
		t.Fatalf("TotalPauseSeconds = %d, want %d", s.TotalPauseSeconds, 15*60)
	}
	if s.ActualEndTime == nil || !s.ActualEndTime.Equal(end) {
		t.Fatalf("ActualEndTime = %v", s.ActualEndTime)
	}
	if got := s.RemainingTime(end); got != 0 {
		t.Fatalf("remaining after complete = %d", got)
	}

	if err := s.MarkComplete(end.Add(time.Minute)); err != ErrSessionCompleted {
		t.Fatalf("double complete: got %v", err)
	}
}

func TestRemainingTimeNeverNegative(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, 10*time.Minute)
	if got := s.RemainingTime(start.Add(time.Hour)); got != 0 {
		t.Fatalf("remaining past deadline = %d", got)
	}
}

func TestVisitAndFlagTracking(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, time.Hour)

	s.Visit(0, start)
	s.Visit(3, start.Add(time.Second))
	s.Visit(3, start.Add(2*time.Second))
	if len(s.VisitedQuestions) != 2 {
		t.Fatalf("visited = %v", s.VisitedQuestions)
	}
	if s.CurrentQuestionIndex != 3 {
		t.Fatalf("current index = %d", s.CurrentQuestionIndex)
	}

	if !s.ToggleFlag(3, start) {
		t.Fatalf("first toggle should flag")
	}
	if s.ToggleFlag(3, start) {
		t.Fatalf("second toggle should unflag")
	}
	if len(s.FlaggedQuestions) != 0 {
		t.Fatalf("flagged = %v", s.FlaggedQuestions)
	}

	s.AddQuestionTime(3, 42, start)
	s.AddQuestionTime(3, 8, start)
	if s.TimePerQuestion[3] != 50 {
		t.Fatalf("time per question = %v", s.TimePerQuestion)
	}
}

func TestEventLogBounded(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := newActiveSession(start, time.Hour)
	for i := 0; i < maxSessionEvents+50; i++ {
		s.Visit(i, start.Add(time.Duration(i)*time.Second))
	}
	if len(s.Events) != maxSessionEvents {
		t.Fatalf("event log length = %d, want %d", len(s.Events), maxSessionEvents)
	}
	if s.Events[len(s.Events)-1].QuestionIndex != maxSessionEvents+49 {
		t.Fatalf("newest event lost: %+v", s.Events[len(s.Events)-1])
	}
}
