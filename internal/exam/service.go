package exam

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prepdesk/prepdesk/internal/scoring"
)

var (
	ErrInvalidCourseID = errors.New("invalid course id")
	ErrNoAnswers       = errors.New("no answers submitted")
)

// Service runs the mock-test lifecycle: starting and resuming timed sessions,
// pause/resume/complete transitions, submission scoring and attempt history.
type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return NewAt(store, time.Now)
}

func NewAt(store Store, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

// SubmitResult is the full scoring payload returned to the client after a
// mock-test submission.
type SubmitResult struct {
	AttemptID        string `json:"attempt_id"`
	CourseID         string `json:"course_id"`
	CourseTitle      string `json:"course_title"`
	UserID           string `json:"user_id"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	scoring.Result
}

// Submit scores a mock-test submission and records it as a fresh attempt.
// The reported time spent is clamped to the course's timer cap, and the
// attempt's start time is back-dated by the (clamped) time spent so the
// recorded window matches the claim.
func (s *Service) Submit(ctx context.Context, userID, courseID, sessionID string, answers []AnswerSubmission, timeSpentSeconds int) (*SubmitResult, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrInvalidCourseID
	}
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if timeSpentSeconds < 0 {
		timeSpentSeconds = 0
	}
	if limit := course.MockTestTimerSeconds; limit > 0 && timeSpentSeconds > limit {
		log.Printf("exam: submission for course %s claims %ds, capping to %ds", courseID, timeSpentSeconds, limit)
		timeSpentSeconds = limit
	}

	ids := answerQuestionIDs(answers)
	if len(ids) == 0 {
		return nil, ErrNoAnswers
	}
	// unknown ids are simply absent from the fetched set; an all-unknown
	// submission scores as an empty result, not an error
	questions, err := s.store.QuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	sq := make([]scoring.Question, len(questions))
	for i, q := range questions {
		sq[i] = q.scoringView()
	}
	sa := make([]scoring.Answer, len(answers))
	for i, a := range answers {
		sa[i] = a.scoringView()
	}
	result := scoring.Score(sq, sa)

	now := s.now().UTC()
	attempt := TestAttempt{
		ID:                 uuid.NewString(),
		UserID:             userID,
		CourseID:           courseID,
		TestSessionID:      sessionID,
		StartTime:          now.Add(-time.Duration(timeSpentSeconds) * time.Second),
		EndTime:            now,
		TimeSpentSeconds:   timeSpentSeconds,
		TotalQuestions:     result.TotalQuestions,
		AttemptedQuestions: result.AttemptedQuestions,
		CorrectAnswers:     result.CorrectAnswers,
		Score:              result.Score,
		MaxScore:           result.MaxScore,
		Percentage:         result.Percentage,
		Accuracy:           result.Accuracy,
		QuestionAttempts:   make([]QuestionAttempt, len(result.Questions)),
		SectionSummaries:   result.Sections,
		IsCompleted:        true,
		CreatedAt:          now,
	}
	for i, qr := range result.Questions {
		attempt.QuestionAttempts[i] = questionAttempt(qr)
	}
	if err := s.store.InsertAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	// closing out the linked session is best effort; the attempt is already
	// safely recorded
	if sessionID != "" {
		if err := s.completeLinkedSession(ctx, userID, sessionID, now); err != nil {
			log.Printf("exam: closing session %s after submit failed: %v", sessionID, err)
		}
	}

	return &SubmitResult{
		AttemptID:        attempt.ID,
		CourseID:         course.ID,
		CourseTitle:      course.Title,
		UserID:           userID,
		TimeSpentSeconds: timeSpentSeconds,
		Result:           result,
	}, nil
}

func (s *Service) completeLinkedSession(ctx context.Context, userID, sessionID string, now time.Time) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrSessionNotFound
	}
	if err := sess.MarkComplete(now); err != nil {
		if errors.Is(err, ErrSessionCompleted) {
			return nil
		}
		return err
	}
	return s.store.UpdateSession(ctx, sess)
}

// StartResult pairs the live session with its attempt shell. Resumed is true
// when an existing non-completed session was returned instead of a new one.
type StartResult struct {
	Session          TestSession `json:"session"`
	AttemptID        string      `json:"attempt_id"`
	Resumed          bool        `json:"resumed"`
	RemainingSeconds int         `json:"remaining_seconds"`
}

// StartSession begins a timed run for the course, or resumes the user's
// existing one. Starting is idempotent: a second call while a session is
// still live hands back that session instead of spawning a parallel timer.
func (s *Service) StartSession(ctx context.Context, userID, courseID string) (*StartResult, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if existing, err := s.store.ActiveSession(ctx, userID, courseID); err != nil {
		return nil, err
	} else if existing != nil {
		return &StartResult{
			Session:          *existing,
			AttemptID:        existing.AttemptID,
			Resumed:          true,
			RemainingSeconds: existing.RemainingTime(now),
		}, nil
	}

	duration := sessionDuration(course)
	attempt := TestAttempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		StartTime: now,
		CreatedAt: now,
	}
	sess := TestSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		CourseID:        courseID,
		AttemptID:       attempt.ID,
		Status:          SessionActive,
		StartTime:       now,
		ExpectedEndTime: now.Add(duration),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	attempt.TestSessionID = sess.ID
	if err := s.store.InsertAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	return &StartResult{
		Session:          sess,
		AttemptID:        attempt.ID,
		RemainingSeconds: sess.RemainingTime(now),
	}, nil
}

func sessionDuration(c Course) time.Duration {
	if c.MockTestTimerSeconds > 0 {
		return time.Duration(c.MockTestTimerSeconds) * time.Second
	}
	if c.DurationMinutes > 0 {
		return time.Duration(c.DurationMinutes) * time.Minute
	}
	return time.Hour
}

// SessionState is the session plus its derived countdown value.
type SessionState struct {
	Session          TestSession `json:"session"`
	RemainingSeconds int         `json:"remaining_seconds"`
}

// PauseSession freezes the countdown. Pausing a session that is not active
// is a no-op, not an error; completed sessions are rejected.
func (s *Service) PauseSession(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	return s.transition(ctx, userID, sessionID, func(sess *TestSession, now time.Time) error {
		if sess.Status == SessionCompleted {
			return ErrSessionCompleted
		}
		sess.Pause(now)
		return nil
	})
}

// ResumeSession restarts a paused countdown. Resuming an already-active
// session is a no-op.
func (s *Service) ResumeSession(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	return s.transition(ctx, userID, sessionID, func(sess *TestSession, now time.Time) error {
		if sess.Status == SessionCompleted {
			return ErrSessionCompleted
		}
		sess.Resume(now)
		return nil
	})
}

// CompleteSession ends the session for good. Completing twice fails with
// ErrSessionCompleted.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	return s.transition(ctx, userID, sessionID, func(sess *TestSession, now time.Time) error {
		return sess.MarkComplete(now)
	})
}

// Session reports current state without mutating anything.
func (s *Service) Session(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionState{Session: sess, RemainingSeconds: sess.RemainingTime(s.now().UTC())}, nil
}

func (s *Service) transition(ctx context.Context, userID, sessionID string, apply func(*TestSession, time.Time) error) (*SessionState, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := apply(&sess, now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &SessionState{Session: sess, RemainingSeconds: sess.RemainingTime(now)}, nil
}

// ownedSession loads a session and hides other users' sessions behind
// ErrSessionNotFound.
func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (TestSession, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return TestSession{}, err
	}
	if sess.UserID != userID {
		return TestSession{}, ErrSessionNotFound
	}
	return sess, nil
}

// Attempts lists the user's attempt history, newest first, optionally
// filtered by course.
func (s *Service) Attempts(ctx context.Context, userID, courseID string) ([]TestAttempt, error) {
	return s.store.AttemptsByUser(ctx, userID, courseID)
}

// Attempt fetches a single attempt; other users' attempts read as not found.
func (s *Service) Attempt(ctx context.Context, userID, attemptID string) (*TestAttempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return &a, nil
}

func answerQuestionIDs(answers []AnswerSubmission) []string {
	seen := map[string]bool{}
	var ids []string
	for _, a := range answers {
		id := strings.TrimSpace(a.QuestionID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
