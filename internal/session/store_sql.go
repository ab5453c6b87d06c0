package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const sessionCols = `id, user_id, refresh_token_hash, device_type, browser, ip_address, user_agent,
	is_active, suspicious, activity_log_json, last_activity, created_at, expires_at`

func (s *SQLStore) Insert(ctx context.Context, sess Session) error {
	logJSON, err := json.Marshal(sess.ActivityLog)
	if err != nil {
		return fmt.Errorf("marshal activity log: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO user_sessions (`+sessionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		sess.ID, sess.UserID, sess.RefreshTokenHash, sess.Device.Type, sess.Device.Browser,
		sess.IPAddress, sess.UserAgent, sess.IsActive, sess.Suspicious, string(logJSON),
		sess.LastActivity.Unix(), sess.CreatedAt.Unix(), sess.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, sess Session) error {
	logJSON, err := json.Marshal(sess.ActivityLog)
	if err != nil {
		return fmt.Errorf("marshal activity log: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE user_sessions
		SET is_active=$1, suspicious=$2, activity_log_json=$3, last_activity=$4
		WHERE id=$5`,
		sess.IsActive, sess.Suspicious, string(logJSON), sess.LastActivity.Unix(), sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *SQLStore) FindActiveByHash(ctx context.Context, hash string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM user_sessions
		WHERE refresh_token_hash=$1 AND is_active=$2`, hash, true)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (s *SQLStore) ActiveByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionCols+` FROM user_sessions
		WHERE user_id=$1 AND is_active=$2 ORDER BY last_activity DESC`, userID, true)
	if err != nil {
		return nil, fmt.Errorf("query user sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *SQLStore) ExpiredActive(ctx context.Context, cutoff time.Time) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionCols+` FROM user_sessions
		WHERE is_active=$1 AND expires_at < $2`, true, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var logJSON string
	var lastActivity, createdAt, expiresAt int64
	err := row.Scan(&sess.ID, &sess.UserID, &sess.RefreshTokenHash,
		&sess.Device.Type, &sess.Device.Browser, &sess.IPAddress, &sess.UserAgent,
		&sess.IsActive, &sess.Suspicious, &logJSON,
		&lastActivity, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(logJSON), &sess.ActivityLog); err != nil {
		sess.ActivityLog = nil
	}
	sess.LastActivity = time.Unix(lastActivity, 0).UTC()
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}
