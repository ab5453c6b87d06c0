package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	JWTSecret       string
	AccessTokenTTL  int // minutes
	RefreshTokenTTL int // days

	LoginOTPRequired bool
	OTPLength        int
	OTPExpiryMinutes int

	MaxSessionsPerUser int
	SessionSweepSec    int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr: addr,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		JWTSecret:       envOr("JWT_SECRET", "dev-only-secret"),
		AccessTokenTTL:  envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		RefreshTokenTTL: envInt("REFRESH_TOKEN_EXPIRE_DAYS", 7),

		LoginOTPRequired: envBool("LOGIN_OTP_REQUIRED", false),
		OTPLength:        envInt("OTP_LENGTH", 6),
		OTPExpiryMinutes: envInt("OTP_EXPIRY_MINUTES", 10),

		MaxSessionsPerUser: envInt("MAX_SESSIONS_PER_USER", 5),
		SessionSweepSec:    envInt("SESSION_SWEEP_SECONDS", 3600),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: envOr("MAIL_FROM", "no-reply@prepdesk.local"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
