package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prepdesk/prepdesk/internal/auth"
	authmw "github.com/prepdesk/prepdesk/internal/auth/middleware"
	"github.com/prepdesk/prepdesk/internal/exam"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInactiveUser):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, exam.ErrInvalidCourseID),
		errors.Is(err, exam.ErrNoAnswers):
		return http.StatusBadRequest
	case errors.Is(err, exam.ErrCourseNotFound),
		errors.Is(err, exam.ErrAttemptNotFound),
		errors.Is(err, exam.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, exam.ErrSessionCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// currentUser resolves the authenticated bearer subject to a user record.
func currentUser(users auth.UserStore, r *http.Request) (*auth.User, error) {
	sub := authmw.SubjectFromContext(r.Context())
	if sub == "" {
		return nil, auth.ErrInvalidCredentials
	}
	u, err := users.FindByEmail(r.Context(), sub)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, auth.ErrInvalidCredentials
	}
	return u, nil
}

func clientMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
