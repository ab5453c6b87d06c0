package exam

import (
	"errors"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

var ErrSessionCompleted = errors.New("test session already completed")

// maxSessionEvents bounds the per-session event log.
const maxSessionEvents = 100

type SessionEvent struct {
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	QuestionIndex int       `json:"question_index,omitempty"`
	PauseSeconds  int       `json:"pause_seconds,omitempty"`
}

// TestSession tracks one in-progress mock-test run: the countdown, pause
// accounting and per-question interaction state. Transitions are gated on
// Status alone; PauseTime is bookkeeping, never the guard.
type TestSession struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id"`
	CourseID             string         `json:"course_id"`
	AttemptID            string         `json:"attempt_id"`
	Status               SessionStatus  `json:"status"`
	StartTime            time.Time      `json:"start_time"`
	ExpectedEndTime      time.Time      `json:"expected_end_time"`
	ActualEndTime        *time.Time     `json:"actual_end_time,omitempty"`
	PauseTime            *time.Time     `json:"pause_time,omitempty"`
	TotalPauseSeconds    int            `json:"total_pause_seconds"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	FlaggedQuestions     []int          `json:"flagged_questions"`
	VisitedQuestions     []int          `json:"visited_questions"`
	TimePerQuestion      map[int]int    `json:"time_per_question"`
	Events               []SessionEvent `json:"events"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Pause freezes the countdown. Pausing a session that is not active is a
// no-op and reports false.
func (s *TestSession) Pause(now time.Time) bool {
	if s.Status != SessionActive {
		return false
	}
	t := now
	s.Status = SessionPaused
	s.PauseTime = &t
	s.UpdatedAt = now
	s.addEvent(SessionEvent{Type: "pause", Timestamp: now, QuestionIndex: s.CurrentQuestionIndex})
	return true
}

// Resume restarts the countdown, extending the deadline by however long the
// session sat paused. Resuming a session that is not paused is a no-op.
func (s *TestSession) Resume(now time.Time) bool {
	if s.Status != SessionPaused {
		return false
	}
	paused := 0
	if s.PauseTime != nil {
		paused = int(now.Sub(*s.PauseTime).Seconds())
		if paused < 0 {
			paused = 0
		}
	}
	s.TotalPauseSeconds += paused
	s.PauseTime = nil
	s.Status = SessionActive
	s.UpdatedAt = now
	s.addEvent(SessionEvent{Type: "resume", Timestamp: now, PauseSeconds: paused})
	return true
}

// MarkComplete ends the session. A session that is still paused has its final
// pause folded into the total first, so elapsed-time accounting stays exact.
func (s *TestSession) MarkComplete(now time.Time) error {
	if s.Status == SessionCompleted {
		return ErrSessionCompleted
	}
	if s.Status == SessionPaused {
		s.Resume(now)
	}
	t := now
	s.Status = SessionCompleted
	s.ActualEndTime = &t
	s.UpdatedAt = now
	s.addEvent(SessionEvent{Type: "complete", Timestamp: now})
	return nil
}

// RemainingTime reports the seconds left on the countdown. The deadline
// shifts right by the accumulated pause time, and while paused the clock is
// read as of the pause instant, so the value is stable across a pause/resume
// pair. Never negative; completed sessions report zero.
func (s *TestSession) RemainingTime(now time.Time) int {
	if s.Status == SessionCompleted {
		return 0
	}
	at := now
	if s.Status == SessionPaused && s.PauseTime != nil {
		at = *s.PauseTime
	}
	deadline := s.ExpectedEndTime.Add(time.Duration(s.TotalPauseSeconds) * time.Second)
	left := int(deadline.Sub(at).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// Visit records navigation to a question index, deduplicated.
func (s *TestSession) Visit(index int, now time.Time) {
	s.CurrentQuestionIndex = index
	for _, v := range s.VisitedQuestions {
		if v == index {
			s.UpdatedAt = now
			return
		}
	}
	s.VisitedQuestions = append(s.VisitedQuestions, index)
	s.UpdatedAt = now
	s.addEvent(SessionEvent{Type: "visit", Timestamp: now, QuestionIndex: index})
}

// ToggleFlag marks or unmarks a question for review, returning the new state.
func (s *TestSession) ToggleFlag(index int, now time.Time) bool {
	for i, v := range s.FlaggedQuestions {
		if v == index {
			s.FlaggedQuestions = append(s.FlaggedQuestions[:i], s.FlaggedQuestions[i+1:]...)
			s.UpdatedAt = now
			return false
		}
	}
	s.FlaggedQuestions = append(s.FlaggedQuestions, index)
	s.UpdatedAt = now
	return true
}

// AddQuestionTime accumulates seconds spent on a question index.
func (s *TestSession) AddQuestionTime(index, seconds int, now time.Time) {
	if seconds <= 0 {
		return
	}
	if s.TimePerQuestion == nil {
		s.TimePerQuestion = map[int]int{}
	}
	s.TimePerQuestion[index] += seconds
	s.UpdatedAt = now
}

func (s *TestSession) addEvent(e SessionEvent) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxSessionEvents {
		s.Events = s.Events[len(s.Events)-maxSessionEvents:]
	}
}
