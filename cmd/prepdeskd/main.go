package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	api "github.com/prepdesk/prepdesk/internal/api/http"
	"github.com/prepdesk/prepdesk/internal/auth"
	authmw "github.com/prepdesk/prepdesk/internal/auth/middleware"
	"github.com/prepdesk/prepdesk/internal/config"
	"github.com/prepdesk/prepdesk/internal/db"
	"github.com/prepdesk/prepdesk/internal/exam"
	"github.com/prepdesk/prepdesk/internal/notify"
	"github.com/prepdesk/prepdesk/internal/session"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("prepdeskd: loaded .env")
	}
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("prepdeskd: open db: %v", err)
	}
	defer sqlDB.Close()

	users := auth.NewSQLUserStore(sqlDB)
	tokens := authmw.NewTokenService(cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTL)*time.Minute,
		time.Duration(cfg.RefreshTokenTTL)*24*time.Hour)
	registry := session.NewRegistry(session.NewSQLStore(sqlDB),
		time.Duration(cfg.RefreshTokenTTL)*24*time.Hour)
	exams := exam.New(exam.NewSQLStore(sqlDB))

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = &notify.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		}
	}

	flow := auth.NewFlow(users, tokens, registry, mailer, auth.FlowConfig{
		LoginOTPRequired: cfg.LoginOTPRequired,
		OTPLength:        cfg.OTPLength,
		OTPExpiryMinutes: cfg.OTPExpiryMinutes,
		MaxSessions:      cfg.MaxSessionsPerUser,
	})

	go sweepSessions(ctx, registry, time.Duration(cfg.SessionSweepSec)*time.Second)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Flow:        flow,
			Users:       users,
			Tokens:      tokens,
			Registry:    registry,
			Exams:       exams,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("prepdeskd: listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("prepdeskd: server: %v", err)
	}
}

// sweepSessions periodically deactivates expired sessions.
func sweepSessions(ctx context.Context, registry *session.Registry, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := registry.CleanupExpiredSessions(ctx); err != nil {
				log.Printf("prepdeskd: session sweep: %v", err)
			}
		}
	}
}
