package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Session is one registry record per issued refresh token. Only the SHA-256
// hash of the token is ever stored; rows are soft-deactivated, never deleted.
type Session struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	RefreshTokenHash string     `json:"-"`
	Device           DeviceInfo `json:"device_info"`
	IPAddress        string     `json:"ip_address,omitempty"`
	UserAgent        string     `json:"user_agent,omitempty"`
	IsActive         bool       `json:"is_active"`
	Suspicious       bool       `json:"suspicious_activity"`
	ActivityLog      []Activity `json:"activity_log,omitempty"`
	LastActivity     time.Time  `json:"last_activity"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
}

type DeviceInfo struct {
	Type    string `json:"type,omitempty"`    // mobile|tablet|desktop
	Browser string `json:"browser,omitempty"` // Chrome|Firefox|Safari|Edge|Unknown
}

type Activity struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
}

const maxActivityLog = 10

// HashRefreshToken derives the lookup key for a raw refresh token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Session) AddActivity(now time.Time, action, description string) {
	s.ActivityLog = append(s.ActivityLog, Activity{Timestamp: now, Action: action, Description: description})
	if len(s.ActivityLog) > maxActivityLog {
		s.ActivityLog = s.ActivityLog[len(s.ActivityLog)-maxActivityLog:]
	}
}

func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
	s.AddActivity(now, "activity_update", "session activity updated")
}

func (s *Session) Deactivate(now time.Time, reason string) {
	s.IsActive = false
	s.AddActivity(now, "session_deactivated", reason)
}

func (s *Session) MarkSuspicious(now time.Time, reason string) {
	s.Suspicious = true
	s.AddActivity(now, "suspicious_activity", reason)
}

// ParseDeviceInfo does coarse user-agent sniffing, enough for the per-device
// session listing. Empty input yields an empty DeviceInfo.
func ParseDeviceInfo(userAgent string) DeviceInfo {
	if userAgent == "" {
		return DeviceInfo{}
	}
	ua := strings.ToLower(userAgent)

	d := DeviceInfo{Type: "desktop", Browser: "Unknown"}
	switch {
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		d.Type = "tablet"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		d.Type = "mobile"
	}
	switch {
	case strings.Contains(ua, "edge"):
		d.Browser = "Edge"
	case strings.Contains(ua, "chrome"):
		d.Browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		d.Browser = "Firefox"
	case strings.Contains(ua, "safari"):
		d.Browser = "Safari"
	}
	return d
}
