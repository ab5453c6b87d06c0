package exam

import (
	"context"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func seedCourse(t *testing.T, st Store, timerSeconds int) Course {
	t.Helper()
	c := Course{
		ID:                   "course-1",
		Title:                "Quant Mock 1",
		Code:                 "QM1",
		DurationMinutes:      60,
		MockTestTimerSeconds: timerSeconds,
	}
	if err := st.PutCourse(context.Background(), c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func seedQuestions(t *testing.T, st Store) {
	t.Helper()
	qs := []Question{
		{ID: "q1", CourseID: "course-1", Text: "2+2?", Section: "Math", Marks: 2, NegativeMarks: 0.5,
			Options: []Option{{Text: "3", Order: 0}, {Text: "4", IsCorrect: true, Order: 1}}},
		{ID: "q2", CourseID: "course-1", Text: "Capital of France?", Section: "GK", Marks: 1,
			Options: []Option{{Text: "Paris", IsCorrect: true, Order: 0}, {Text: "Lyon", Order: 1}}},
		{ID: "q3", CourseID: "course-1", Text: "Sky color?", Section: "GK", Marks: 1, NegativeMarks: 0.25,
			Options: []Option{{Text: "Blue", IsCorrect: true, Order: 0}, {Text: "Green", Order: 1}}},
	}
	for _, q := range qs {
		if err := st.PutQuestion(context.Background(), q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestSubmitScoresAndRecordsAttempt(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 3600)
	seedQuestions(t, st)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAt(st, fixedClock(now))
	ctx := context.Background()

	answers := []AnswerSubmission{
		{QuestionID: "q1", SelectedOrder: intPtr(1), TimeSpentSeconds: 40}, // correct, +2
		{QuestionID: "q2", SelectedOrder: intPtr(1)},                       // wrong, no negative
		{QuestionID: "q3"},                                                 // unresolvable, skipped
	}
	res, err := svc.Submit(ctx, "u1", "course-1", "", answers, 900)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if res.Score != 2 || res.MaxScore != 4 {
		t.Fatalf("score %.2f/%.2f, want 2/4", res.Score, res.MaxScore)
	}
	if res.Percentage != 50 {
		t.Fatalf("percentage = %.2f", res.Percentage)
	}
	if res.AttemptedQuestions != 2 || res.CorrectAnswers != 1 {
		t.Fatalf("attempted=%d correct=%d", res.AttemptedQuestions, res.CorrectAnswers)
	}
	if res.Accuracy != 0.5 {
		t.Fatalf("accuracy = %.4f", res.Accuracy)
	}

	stored, err := svc.Attempt(ctx, "u1", res.AttemptID)
	if err != nil {
		t.Fatalf("fetch attempt: %v", err)
	}
	if !stored.IsCompleted || stored.TimeSpentSeconds != 900 {
		t.Fatalf("attempt = %+v", stored)
	}
	if want := now.Add(-900 * time.Second); !stored.StartTime.Equal(want) {
		t.Fatalf("start time = %v, want %v", stored.StartTime, want)
	}
	if !stored.EndTime.Equal(now) {
		t.Fatalf("end time = %v", stored.EndTime)
	}
	if len(stored.QuestionAttempts) != 3 {
		t.Fatalf("question attempts = %d", len(stored.QuestionAttempts))
	}
	if stored.QuestionAttempts[0].SelectedOption != "1" {
		t.Fatalf("selected option stored as %q", stored.QuestionAttempts[0].SelectedOption)
	}
	if stored.QuestionAttempts[2].SelectedOption != "" || stored.QuestionAttempts[2].Status != "skipped" {
		t.Fatalf("skipped question stored as %+v", stored.QuestionAttempts[2])
	}
}

func TestSubmitCapsReportedTime(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 600)
	seedQuestions(t, st)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAt(st, fixedClock(now))
	ctx := context.Background()

	res, err := svc.Submit(ctx, "u1", "course-1", "",
		[]AnswerSubmission{{QuestionID: "q1", SelectedOrder: intPtr(1)}}, 99999)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TimeSpentSeconds != 600 {
		t.Fatalf("time spent = %d, want capped 600", res.TimeSpentSeconds)
	}
	stored, _ := svc.Attempt(ctx, "u1", res.AttemptID)
	if stored.TimeSpentSeconds != 600 {
		t.Fatalf("persisted time = %d, want 600", stored.TimeSpentSeconds)
	}
	if want := now.Add(-600 * time.Second); !stored.StartTime.Equal(want) {
		t.Fatalf("start time back-dated by %v, want %v", now.Sub(stored.StartTime), want)
	}
}

func TestSubmitValidation(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 3600)
	seedQuestions(t, st)
	svc := New(st)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "u1", "  ", "", []AnswerSubmission{{QuestionID: "q1"}}, 0); err != ErrInvalidCourseID {
		t.Fatalf("blank course: got %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", "missing", "", []AnswerSubmission{{QuestionID: "q1"}}, 0); err != ErrCourseNotFound {
		t.Fatalf("unknown course: got %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", "course-1", "", nil, 0); err != ErrNoAnswers {
		t.Fatalf("no answers: got %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", "course-1", "", []AnswerSubmission{{QuestionID: "  "}}, 0); err != ErrNoAnswers {
		t.Fatalf("blank question ids: got %v", err)
	}
}

func TestSubmitWithOnlyUnknownQuestionsScoresEmpty(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 3600)
	seedQuestions(t, st)
	svc := New(st)
	ctx := context.Background()

	// unknown ids are excluded from scoring, not rejected
	res, err := svc.Submit(ctx, "u1", "course-1", "",
		[]AnswerSubmission{{QuestionID: "ghost-1", SelectedOrder: intPtr(0)}, {QuestionID: "ghost-2"}}, 30)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TotalQuestions != 0 || res.AttemptedQuestions != 0 {
		t.Fatalf("counts = %d/%d, want 0/0", res.TotalQuestions, res.AttemptedQuestions)
	}
	if res.Score != 0 || res.MaxScore != 0 || res.Percentage != 0 || res.Accuracy != 0 {
		t.Fatalf("aggregates = %+v, want all zero", res.Result)
	}

	stored, err := svc.Attempt(ctx, "u1", res.AttemptID)
	if err != nil {
		t.Fatalf("fetch attempt: %v", err)
	}
	if !stored.IsCompleted || len(stored.QuestionAttempts) != 0 {
		t.Fatalf("attempt = %+v", stored)
	}
}

func TestSubmitClosesLinkedSession(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 3600)
	seedQuestions(t, st)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAt(st, fixedClock(now))
	ctx := context.Background()

	started, err := svc.StartSession(ctx, "u1", "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", "course-1", started.Session.ID,
		[]AnswerSubmission{{QuestionID: "q1", SelectedOrder: intPtr(1)}}, 60); err != nil {
		t.Fatalf("submit: %v", err)
	}
	state, err := svc.Session(ctx, "u1", started.Session.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if state.Session.Status != SessionCompleted {
		t.Fatalf("session status after submit = %s", state.Session.Status)
	}
}

func TestStartSessionIsIdempotent(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 1800)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := NewAt(st, func() time.Time { return clock })
	ctx := context.Background()

	first, err := svc.StartSession(ctx, "u1", "course-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Resumed {
		t.Fatalf("fresh start flagged as resumed")
	}
	if first.RemainingSeconds != 1800 {
		t.Fatalf("remaining = %d, want 1800", first.RemainingSeconds)
	}

	clock = now.Add(5 * time.Minute)
	second, err := svc.StartSession(ctx, "u1", "course-1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !second.Resumed || second.Session.ID != first.Session.ID {
		t.Fatalf("expected resume of %s, got %+v", first.Session.ID, second)
	}
	if second.RemainingSeconds != 1500 {
		t.Fatalf("remaining after 5m = %d, want 1500", second.RemainingSeconds)
	}

	// a different user gets their own session
	other, err := svc.StartSession(ctx, "u2", "course-1")
	if err != nil {
		t.Fatalf("other user start: %v", err)
	}
	if other.Resumed || other.Session.ID == first.Session.ID {
		t.Fatalf("sessions shared across users")
	}

	// once completed, starting again spawns a new session
	if _, err := svc.CompleteSession(ctx, "u1", first.Session.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	third, err := svc.StartSession(ctx, "u1", "course-1")
	if err != nil {
		t.Fatalf("start after complete: %v", err)
	}
	if third.Resumed || third.Session.ID == first.Session.ID {
		t.Fatalf("completed session resumed")
	}
}

func TestSessionTransitionsThroughService(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 3600)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := NewAt(st, func() time.Time { return clock })
	ctx := context.Background()

	started, _ := svc.StartSession(ctx, "u1", "course-1")
	id := started.Session.ID

	clock = now.Add(10 * time.Minute)
	paused, err := svc.PauseSession(ctx, "u1", id)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.Session.Status != SessionPaused || paused.RemainingSeconds != 50*60 {
		t.Fatalf("paused state = %+v", paused)
	}

	clock = now.Add(30 * time.Minute)
	resumed, err := svc.ResumeSession(ctx, "u1", id)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Session.Status != SessionActive || resumed.RemainingSeconds != 50*60 {
		t.Fatalf("resumed state = %+v", resumed)
	}

	if _, err := svc.PauseSession(ctx, "other", id); err != ErrSessionNotFound {
		t.Fatalf("foreign pause: got %v", err)
	}

	done, err := svc.CompleteSession(ctx, "u1", id)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Session.Status != SessionCompleted || done.RemainingSeconds != 0 {
		t.Fatalf("completed state = %+v", done)
	}
	if _, err := svc.CompleteSession(ctx, "u1", id); err != ErrSessionCompleted {
		t.Fatalf("double complete: got %v", err)
	}
	if _, err := svc.PauseSession(ctx, "u1", id); err != ErrSessionCompleted {
		t.Fatalf("pause after complete: got %v", err)
	}
}

func TestAttemptHistoryScopedToOwner(t *testing.T) {
	st := NewInMemoryStore()
	seedCourse(t, st, 3600)
	seedQuestions(t, st)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	svc := NewAt(st, func() time.Time { return clock })
	ctx := context.Background()

	a1, _ := svc.Submit(ctx, "u1", "course-1", "", []AnswerSubmission{{QuestionID: "q1", SelectedOrder: intPtr(1)}}, 10)
	clock = base.Add(time.Hour)
	a2, _ := svc.Submit(ctx, "u1", "course-1", "", []AnswerSubmission{{QuestionID: "q2", SelectedOrder: intPtr(0)}}, 20)
	svc.Submit(ctx, "u2", "course-1", "", []AnswerSubmission{{QuestionID: "q1", SelectedOrder: intPtr(1)}}, 30)

	list, err := svc.Attempts(ctx, "u1", "course-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("attempts = %d, want 2", len(list))
	}
	if list[0].ID != a2.AttemptID || list[1].ID != a1.AttemptID {
		t.Fatalf("not newest-first: %s, %s", list[0].ID, list[1].ID)
	}

	if _, err := svc.Attempt(ctx, "u2", a1.AttemptID); err != ErrAttemptNotFound {
		t.Fatalf("foreign attempt fetch: got %v", err)
	}
}
