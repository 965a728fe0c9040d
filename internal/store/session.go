package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/petitions/internal/petition"
)

// SaveSession replaces the stored session.
func (s *Store) SaveSession(ctx context.Context, sess petition.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, user_id, token, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			token = excluded.token,
			saved_at = excluded.saved_at
	`, sess.UserID, sess.Token, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored session, or the zero Session when nobody
// is logged in.
func (s *Store) LoadSession(ctx context.Context) (petition.Session, error) {
	var sess petition.Session
	err := s.db.QueryRowContext(ctx, `SELECT user_id, token FROM session WHERE id = 1`).
		Scan(&sess.UserID, &sess.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return petition.Session{}, nil
	}
	if err != nil {
		return petition.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// ClearSession forgets the stored session.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
