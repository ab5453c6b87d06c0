package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/exam"
)

// SubmitMockHandler scores a mock-test submission for the course in the path.
func SubmitMockHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			Answers          []exam.AnswerSubmission `json:"answers"`
			TimeSpentSeconds int                     `json:"time_spent_seconds"`
			TestSessionID    string                  `json:"test_session_id,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		res, err := exams.Submit(r.Context(), u.ID, chi.URLParam(r, "courseID"),
			req.TestSessionID, req.Answers, req.TimeSpentSeconds)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// StartTestHandler starts, or idempotently resumes, a timed session.
func StartTestHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		res, err := exams.StartSession(r.Context(), u.ID, chi.URLParam(r, "courseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		status := http.StatusCreated
		if res.Resumed {
			status = http.StatusOK
		}
		writeJSON(w, status, res)
	}
}

func GetSessionHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		state, err := exams.Session(r.Context(), u.ID, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func PauseSessionHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return sessionTransitionHandler(exams, users, (*exam.Service).PauseSession)
}

func ResumeSessionHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return sessionTransitionHandler(exams, users, (*exam.Service).ResumeSession)
}

func CompleteSessionHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return sessionTransitionHandler(exams, users, (*exam.Service).CompleteSession)
}

func sessionTransitionHandler(exams *exam.Service, users auth.UserStore,
	op func(*exam.Service, context.Context, string, string) (*exam.SessionState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		state, err := op(exams, r.Context(), u.ID, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// ListAttemptsHandler returns the caller's attempt history, newest first.
// Optional ?course_id= filter.
func ListAttemptsHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
		list, err := exams.Attempts(r.Context(), u.ID, courseID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if list == nil {
			list = []exam.TestAttempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetAttemptHandler(exams *exam.Service, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		a, err := exams.Attempt(r.Context(), u.ID, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
