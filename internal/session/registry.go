package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Registry tracks one record per issued refresh token and is the authority
// for whether a refresh token is still usable. All "not found" outcomes are
// sentinel values, not errors; callers combine ValidateSession with their own
// JWT expiry checks.
type Registry struct {
	store      Store
	refreshTTL time.Duration
	now        func() time.Time
}

func NewRegistry(store Store, refreshTTL time.Duration) *Registry {
	return &Registry{store: store, refreshTTL: refreshTTL, now: time.Now}
}

// NewRegistryAt injects a clock; tests use this.
func NewRegistryAt(store Store, refreshTTL time.Duration, now func() time.Time) *Registry {
	return &Registry{store: store, refreshTTL: refreshTTL, now: now}
}

// CreateSession records a new session for a freshly issued refresh token.
// Only the token's SHA-256 hash is stored.
func (r *Registry) CreateSession(ctx context.Context, userID, refreshToken, ipAddress, userAgent string) (*Session, error) {
	now := r.now().UTC()
	sess := Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		RefreshTokenHash: HashRefreshToken(refreshToken),
		Device:           ParseDeviceInfo(userAgent),
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		IsActive:         true,
		LastActivity:     now,
		CreatedAt:        now,
		ExpiresAt:        now.Add(r.refreshTTL),
	}
	sess.AddActivity(now, "session_created", "new session created")
	if err := r.store.Insert(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ValidateSession resolves a raw refresh token to its active session, bumping
// last-activity on a hit. A miss returns (nil, nil): invalid or already
// revoked. Expiry of the token itself is the JWT layer's concern.
func (r *Registry) ValidateSession(ctx context.Context, refreshToken string) (*Session, error) {
	sess, err := r.store.FindActiveByHash(ctx, HashRefreshToken(refreshToken))
	if err != nil || sess == nil {
		return nil, err
	}
	sess.Touch(r.now().UTC())
	if err := r.store.Update(ctx, *sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// BlacklistRefreshToken deactivates the session matching the token.
// Idempotent: false means there was nothing active to deactivate.
func (r *Registry) BlacklistRefreshToken(ctx context.Context, refreshToken string) (bool, error) {
	sess, err := r.store.FindActiveByHash(ctx, HashRefreshToken(refreshToken))
	if err != nil || sess == nil {
		return false, err
	}
	sess.Deactivate(r.now().UTC(), "refresh token blacklisted")
	if err := r.store.Update(ctx, *sess); err != nil {
		return false, err
	}
	return true, nil
}

// InvalidateAllUserSessions force-logs-out a user everywhere and returns the
// number of sessions deactivated.
func (r *Registry) InvalidateAllUserSessions(ctx context.Context, userID string) (int, error) {
	sessions, err := r.store.ActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := r.now().UTC()
	for i := range sessions {
		sessions[i].Deactivate(now, "all user sessions invalidated")
		if err := r.store.Update(ctx, sessions[i]); err != nil {
			return i, err
		}
	}
	if len(sessions) > 0 {
		log.Printf("session: invalidated %d sessions for user %s", len(sessions), userID)
	}
	return len(sessions), nil
}

// CleanupExpiredSessions deactivates active-but-expired sessions. Meant for a
// periodic background task, not the request path.
func (r *Registry) CleanupExpiredSessions(ctx context.Context) (int, error) {
	now := r.now().UTC()
	expired, err := r.store.ExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		expired[i].Deactivate(now, "session expired")
		if err := r.store.Update(ctx, expired[i]); err != nil {
			return i, err
		}
	}
	if len(expired) > 0 {
		log.Printf("session: cleaned up %d expired sessions", len(expired))
	}
	return len(expired), nil
}

// EnforceSessionLimit deactivates a user's oldest-by-activity sessions so
// that after one more CreateSession the user holds at most maxSessions.
// Returns the IDs it deactivated.
func (r *Registry) EnforceSessionLimit(ctx context.Context, userID string, maxSessions int) ([]string, error) {
	active, err := r.store.ActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) < maxSessions {
		return nil, nil
	}
	// active is newest-first; everything past the first maxSessions-1 goes
	toRemove := active[maxSessions-1:]
	now := r.now().UTC()
	removed := make([]string, 0, len(toRemove))
	for i := range toRemove {
		// hitting the concurrent-session ceiling is the anomaly signal; the
		// flag survives on the deactivated row for audit
		toRemove[i].MarkSuspicious(now, "session limit exceeded")
		toRemove[i].Deactivate(now, "session limit enforced")
		if err := r.store.Update(ctx, toRemove[i]); err != nil {
			return removed, err
		}
		removed = append(removed, toRemove[i].ID)
	}
	log.Printf("session: enforced limit for user %s, removed %d sessions", userID, len(removed))
	return removed, nil
}

// UserSessions lists a user's active sessions for the sessions endpoint.
func (r *Registry) UserSessions(ctx context.Context, userID string) ([]Session, error) {
	return r.store.ActiveByUser(ctx, userID)
}

// SessionStats summarizes a user's active sessions by device type.
type SessionStats struct {
	ActiveSessions  int            `json:"active_sessions"`
	DeviceBreakdown map[string]int `json:"device_breakdown"`
}

func (r *Registry) Stats(ctx context.Context, userID string) (SessionStats, error) {
	active, err := r.store.ActiveByUser(ctx, userID)
	if err != nil {
		return SessionStats{}, err
	}
	stats := SessionStats{ActiveSessions: len(active), DeviceBreakdown: map[string]int{}}
	for _, s := range active {
		typ := s.Device.Type
		if typ == "" {
			typ = "unknown"
		}
		stats.DeviceBreakdown[typ]++
	}
	return stats, nil
}
