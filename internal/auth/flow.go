package auth

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/prepdesk/prepdesk/internal/auth/middleware"
	"github.com/prepdesk/prepdesk/internal/notify"
	"github.com/prepdesk/prepdesk/internal/otp"
	"github.com/prepdesk/prepdesk/internal/session"
)

// ErrInvalidCredentials is the single caller-facing signal for every auth
// failure: wrong password, unknown user, bad or revoked token. Which check
// failed is never leaked.
var ErrInvalidCredentials = errors.New("invalid credentials or session")

var (
	ErrEmailTaken    = errors.New("user with this email already exists")
	ErrWeakPassword  = errors.New("password must be at least 8 characters with upper, lower, digit and special characters")
	ErrInactiveUser  = errors.New("account is deactivated")
	ErrOTPRequired   = errors.New("otp verification required")
	ErrInvalidOTP    = errors.New("invalid or expired otp")
	ErrMissingFields = errors.New("email and password are required")
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResult either carries tokens or flags that an OTP verification step
// is still pending.
type LoginResult struct {
	RequiresVerification bool    `json:"requires_verification"`
	Tokens               *Tokens `json:"tokens,omitempty"`
	User                 *User   `json:"user,omitempty"`
}

// RequestMeta is the per-request client context recorded on sessions.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Flow coordinates password verification, the optional OTP gate, token
// issuance and refresh rotation against the session registry.
type Flow struct {
	users    UserStore
	tokens   *authmw.TokenService
	sessions *session.Registry
	mailer   notify.Mailer

	otpRequired   bool
	otpLength     int
	otpExpiryMins int
	maxSessions   int

	now func() time.Time
}

type FlowConfig struct {
	LoginOTPRequired bool
	OTPLength        int
	OTPExpiryMinutes int
	MaxSessions      int
}

func NewFlow(users UserStore, tokens *authmw.TokenService, sessions *session.Registry, mailer notify.Mailer, cfg FlowConfig) *Flow {
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = otp.DefaultLength
	}
	if cfg.OTPExpiryMinutes <= 0 {
		cfg.OTPExpiryMinutes = 10
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 5
	}
	return &Flow{
		users:         users,
		tokens:        tokens,
		sessions:      sessions,
		mailer:        mailer,
		otpRequired:   cfg.LoginOTPRequired,
		otpLength:     cfg.OTPLength,
		otpExpiryMins: cfg.OTPExpiryMinutes,
		maxSessions:   cfg.MaxSessions,
		now:           time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (f *Flow) Register(ctx context.Context, name, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !ValidPassword(password) {
		return nil, ErrWeakPassword
	}
	existing, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    f.now().UTC(),
	}
	if err := f.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login verifies credentials. When the OTP gate is enabled it stores a fresh
// code on the user, mails it out-of-band and returns without tokens; the
// client completes login via VerifyLoginOTP.
func (f *Flow) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	u, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if f.otpRequired {
		code := otp.Generate(f.otpLength)
		exp := otp.GenerateExpiry(f.otpExpiryMins)
		u.LoginOTP = code
		u.LoginOTPExp = &exp
		if err := f.users.Update(ctx, *u); err != nil {
			return nil, err
		}
		// out-of-band; a delivery failure must not block the response
		go func(to, code string) {
			if err := f.mailer.SendLoginOTP(context.Background(), to, code); err != nil {
				log.Printf("auth: otp mail to %s failed: %v", to, err)
			}
		}(u.Email, code)
		return &LoginResult{RequiresVerification: true, User: u}, nil
	}

	tokens, err := f.issueTokens(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: tokens, User: u}, nil
}

// VerifyLoginOTP completes an OTP-gated login. The code must match exactly
// and be unexpired; it is cleared before tokens are issued.
func (f *Flow) VerifyLoginOTP(ctx context.Context, email, code string, meta RequestMeta) (*LoginResult, error) {
	u, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if u.LoginOTP == "" || u.LoginOTPExp == nil || u.LoginOTP != code || otp.IsExpired(*u.LoginOTPExp) {
		return nil, ErrInvalidOTP
	}

	u.LoginOTP = ""
	u.LoginOTPExp = nil
	if err := f.users.Update(ctx, *u); err != nil {
		return nil, err
	}

	tokens, err := f.issueTokens(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: tokens, User: u}, nil
}

// Refresh rotates a refresh token: the presented token must decode as type
// "refresh", belong to an active user and resolve to an active session. The
// old token is blacklisted before the new pair is issued, so each refresh
// token works exactly once.
func (f *Flow) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*Tokens, error) {
	claims, err := f.tokens.Parse(refreshToken, authmw.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := f.users.FindByEmail(ctx, claims.Sub)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	// A registry miss fails the refresh even with a valid JWT; this is what
	// makes logout effective before natural token expiry.
	sess, err := f.sessions.ValidateSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidCredentials
	}

	if _, err := f.sessions.BlacklistRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return f.issueTokens(ctx, u, meta)
}

// Logout invalidates every active session the user holds, not just the
// presenting one.
func (f *Flow) Logout(ctx context.Context, userID string) (int, error) {
	return f.sessions.InvalidateAllUserSessions(ctx, userID)
}

func (f *Flow) issueTokens(ctx context.Context, u *User, meta RequestMeta) (*Tokens, error) {
	access, err := f.tokens.IssueAccessToken(u.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := f.tokens.IssueRefreshToken(u.Email)
	if err != nil {
		return nil, err
	}

	if _, err := f.sessions.EnforceSessionLimit(ctx, u.ID, f.maxSessions); err != nil {
		log.Printf("auth: session limit enforcement for %s failed: %v", u.ID, err)
	}
	// session creation is a non-critical side path: log and keep going
	if _, err := f.sessions.CreateSession(ctx, u.ID, refresh, meta.IPAddress, meta.UserAgent); err != nil {
		log.Printf("auth: session creation for %s failed: %v", u.ID, err)
	}

	now := f.now().UTC()
	u.LastLogin = &now
	if err := f.users.Update(ctx, *u); err != nil {
		log.Printf("auth: last-login update for %s failed: %v", u.ID, err)
	}

	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(f.tokens.AccessTTL().Seconds()),
	}, nil
}

// ValidPassword requires 8+ characters with at least one upper, lower,
// digit and special character.
func ValidPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, c := range pw {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}
