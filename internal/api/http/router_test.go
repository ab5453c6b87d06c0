package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prepdesk/prepdesk/internal/auth"
	authmw "github.com/prepdesk/prepdesk/internal/auth/middleware"
	"github.com/prepdesk/prepdesk/internal/exam"
	"github.com/prepdesk/prepdesk/internal/notify"
	"github.com/prepdesk/prepdesk/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, exam.Store) {
	t.Helper()
	users := auth.NewInMemoryUserStore()
	tokens := authmw.NewTokenService("test-secret", 30*time.Minute, 7*24*time.Hour)
	registry := session.NewRegistry(session.NewInMemoryStore(), 7*24*time.Hour)
	flow := auth.NewFlow(users, tokens, registry, notify.LogMailer{}, auth.FlowConfig{})
	examStore := exam.NewInMemoryStore()

	srv := httptest.NewServer(NewRouter(Deps{
		Flow:     flow,
		Users:    users,
		Tokens:   tokens,
		Registry: registry,
		Exams:    exam.New(examStore),
	}))
	t.Cleanup(srv.Close)
	return srv, examStore
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRegisterLoginSubmitOverHTTP(t *testing.T) {
	srv, examStore := newTestServer(t)
	ctx := context.Background()

	if err := examStore.PutCourse(ctx, exam.Course{
		ID: "course-1", Title: "Mock 1", MockTestTimerSeconds: 3600,
	}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	one := 1
	if err := examStore.PutQuestion(ctx, exam.Question{
		ID: "q1", CourseID: "course-1", Text: "2+2?", Section: "Math", Marks: 2,
		Options: []exam.Option{{Text: "3", Order: 0}, {Text: "4", IsCorrect: true, Order: 1}},
	}); err != nil {
		t.Fatalf("seed question: %v", err)
	}

	resp := postJSON(t, srv.URL+"/auth/register", "", map[string]string{
		"name": "Jo", "email": "jo@example.com", "password": "Str0ng!pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	var login struct {
		Tokens *struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decode(t, postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email": "jo@example.com", "password": "Str0ng!pass",
	}), &login)
	if login.Tokens == nil || login.Tokens.AccessToken == "" {
		t.Fatalf("login returned no tokens")
	}
	access := login.Tokens.AccessToken

	// unauthenticated submission is rejected before any handler runs
	resp = postJSON(t, srv.URL+"/courses/course-1/mock/submit", "", map[string]any{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated submit status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	var start struct {
		Session struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"session"`
		RemainingSeconds int `json:"remaining_seconds"`
	}
	decode(t, postJSON(t, srv.URL+"/tests/course-1/start", access, nil), &start)
	if start.Session.Status != "active" || start.RemainingSeconds != 3600 {
		t.Fatalf("start = %+v", start)
	}

	var submit struct {
		AttemptID  string  `json:"attempt_id"`
		Score      float64 `json:"score"`
		Percentage float64 `json:"percentage"`
	}
	decode(t, postJSON(t, srv.URL+"/courses/course-1/mock/submit", access, map[string]any{
		"test_session_id":    start.Session.ID,
		"time_spent_seconds": 120,
		"answers": []map[string]any{
			{"question_id": "q1", "selected_option_order": one},
		},
	}), &submit)
	if submit.Score != 2 || submit.Percentage != 100 {
		t.Fatalf("submit = %+v", submit)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/attempts", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /attempts: %v", err)
	}
	var attempts []exam.TestAttempt
	decode(t, listResp, &attempts)
	// the start shell plus the scored submission
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].ID != submit.AttemptID || !attempts[0].IsCompleted {
		t.Fatalf("newest attempt = %+v", attempts[0])
	}
}
