package http

import (
	"encoding/json"
	"net/http"

	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/session"
)

func RegisterHandler(flow *auth.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		u, err := flow.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func LoginHandler(flow *auth.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		res, err := flow.Login(r.Context(), req.Email, req.Password, clientMeta(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// VerifyLoginHandler completes an OTP-gated login.
func VerifyLoginHandler(flow *auth.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		res, err := flow.VerifyLoginOTP(r.Context(), req.Email, req.OTP, clientMeta(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func RefreshHandler(flow *auth.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		tokens, err := flow.Refresh(r.Context(), req.RefreshToken, clientMeta(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	}
}

// LogoutHandler invalidates every active session the caller holds.
func LogoutHandler(flow *auth.Flow, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		n, err := flow.Logout(r.Context(), u.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":              "logged out",
			"sessions_invalidated": n,
		})
	}
}

// SessionsHandler lists the caller's active sessions with a device summary.
func SessionsHandler(registry *session.Registry, users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(users, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		sessions, err := registry.UserSessions(r.Context(), u.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		stats, err := registry.Stats(r.Context(), u.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions": sessions,
			"stats":    stats,
		})
	}
}
