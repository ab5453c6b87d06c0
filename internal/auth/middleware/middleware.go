package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// ErrInvalidToken covers every parse failure: bad signature, expired, or a
// token of the wrong type presented where the other kind is required.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Sub       string    `json:"sub"`
	TokenType TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the HMAC-signed access/refresh pair. The
// "type" claim keeps the two from being interchanged: a refresh token never
// authenticates a request and an access token never mints new tokens.
type TokenService struct {
	hmac       []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{hmac: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// NewTokenServiceAt injects a clock; tests use this.
func NewTokenServiceAt(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenService {
	return &TokenService{hmac: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: now}
}

func (t *TokenService) AccessTTL() time.Duration { return t.accessTTL }

func (t *TokenService) IssueAccessToken(sub string) (string, error) {
	return t.issue(sub, TokenTypeAccess, t.accessTTL)
}

func (t *TokenService) IssueRefreshToken(sub string) (string, error) {
	return t.issue(sub, TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenService) issue(sub string, typ TokenType, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &Claims{
		Sub:       sub,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "prepdesk",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.hmac)
}

// Parse verifies signature and expiry and requires the expected token type.
func (t *TokenService) Parse(raw string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.hmac, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	c, ok := token.Claims.(*Claims)
	if !ok || c.Sub == "" || c.TokenType != want {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// JWTMiddleware authenticates requests with a bearer access token and puts
// the subject into the request context.
func JWTMiddleware(t *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := t.Parse(strings.TrimPrefix(h, "Bearer "), TokenTypeAccess)
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), c.Sub)))
		})
	}
}
