package exam

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrSessionNotFound = errors.New("test session not found")
)

// Store persists courses, questions, attempts and test sessions.
// ActiveSession returns (nil, nil) when the user has no live session for the
// course.
type Store interface {
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)

	PutQuestion(ctx context.Context, q Question) error
	QuestionsByIDs(ctx context.Context, ids []string) ([]Question, error)

	InsertAttempt(ctx context.Context, a TestAttempt) error
	GetAttempt(ctx context.Context, id string) (TestAttempt, error)
	AttemptsByUser(ctx context.Context, userID, courseID string) ([]TestAttempt, error)

	InsertSession(ctx context.Context, s TestSession) error
	UpdateSession(ctx context.Context, s TestSession) error
	GetSession(ctx context.Context, id string) (TestSession, error)
	ActiveSession(ctx context.Context, userID, courseID string) (*TestSession, error)
}

type memStore struct {
	mu       sync.RWMutex
	courses  map[string]Course
	question map[string]Question
	attempts map[string]TestAttempt
	sessions map[string]TestSession
}

func NewInMemoryStore() Store {
	return &memStore{
		courses:  map[string]Course{},
		question: map[string]Question{},
		attempts: map[string]TestAttempt{},
		sessions: map[string]TestSession{},
	}
}

func (m *memStore) PutCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *memStore) GetCourse(_ context.Context, id string) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	return c, nil
}

func (m *memStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.question[q.ID] = q
	return nil
}

func (m *memStore) QuestionsByIDs(_ context.Context, ids []string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.question[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStore) InsertAttempt(_ context.Context, a TestAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = a
	return nil
}

func (m *memStore) GetAttempt(_ context.Context, id string) (TestAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return TestAttempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memStore) AttemptsByUser(_ context.Context, userID, courseID string) ([]TestAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TestAttempt
	for _, a := range m.attempts {
		if a.UserID != userID {
			continue
		}
		if courseID != "" && a.CourseID != courseID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) InsertSession(_ context.Context, s TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) UpdateSession(_ context.Context, s TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (TestSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return TestSession{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memStore) ActiveSession(_ context.Context, userID, courseID string) (*TestSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *TestSession
	for _, s := range m.sessions {
		if s.UserID != userID || s.CourseID != courseID || s.Status == SessionCompleted {
			continue
		}
		cp := s
		if best == nil || cp.CreatedAt.After(best.CreatedAt) {
			best = &cp
		}
	}
	return best, nil
}
