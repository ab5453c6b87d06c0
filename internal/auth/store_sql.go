package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SQLUserStore struct {
	db *sql.DB
}

func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

func (s *SQLUserStore) Insert(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users
		(id, name, email, password_hash, is_active, login_otp, login_otp_expires_at, last_login, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsActive,
		nullString(u.LoginOTP), nullUnix(u.LoginOTPExp), nullUnix(u.LastLogin), u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLUserStore) Update(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users
		SET name=$1, password_hash=$2, is_active=$3, login_otp=$4, login_otp_expires_at=$5, last_login=$6
		WHERE id=$7`,
		u.Name, u.PasswordHash, u.IsActive,
		nullString(u.LoginOTP), nullUnix(u.LoginOTPExp), nullUnix(u.LastLogin), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, password_hash, is_active,
		login_otp, login_otp_expires_at, last_login, created_at
		FROM users WHERE email=$1`, email)

	var u User
	var otp sql.NullString
	var otpExp, lastLogin sql.NullInt64
	var createdAt int64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive,
		&otp, &otpExp, &lastLogin, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.LoginOTP = otp.String
	if otpExp.Valid {
		t := time.Unix(otpExp.Int64, 0).UTC()
		u.LoginOTPExp = &t
	}
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0).UTC()
		u.LastLogin = &t
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
