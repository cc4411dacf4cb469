package token

import (
	"context"
	"database/sql"
	"errors"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, t *VerificationToken) error {
	return s.db.QueryRowContext(ctx, `
		insert into email_verification_token(jti, user_id, status, issued_at, expires_at)
		values ($1,$2,$3,$4,$5)
		returning id
	`, t.JTI, t.SubjectID, t.Status, t.IssuedAt, t.ExpiresAt).Scan(&t.ID)
}

func (s *PGStore) Find(ctx context.Context, id int64) (*VerificationToken, error) {
	var t VerificationToken
	err := s.db.QueryRowContext(ctx, `
		select id, jti, user_id, status, issued_at, expires_at
		from email_verification_token where id=$1
	`, id).Scan(&t.ID, &t.JTI, &t.SubjectID, &t.Status, &t.IssuedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) MarkUsed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		update email_verification_token set status=$2 where id=$1 and status=$3
	`, id, StatusUsed, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost the race against a concurrent redemption, or the row was
		// revoked; either way the token cannot be consumed again.
		return ErrInvalidToken
	}
	return nil
}
