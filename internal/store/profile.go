// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"catalogo/internal/models"
)

// ProfileStore manages user_profiles rows.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore returns a new ProfileStore.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// OnUserCreated is the post-creation hook for users: it creates an empty
// profile for u. It is idempotent.
func (s *ProfileStore) OnUserCreated(ctx context.Context, q execer, u *models.User) error {
	if q == nil {
		q = s.db
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, u.ID)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// FindByUserID returns the profile of a user. Returns nil if not found.
func (s *ProfileStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, company_name, created_at, updated_at
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.CompanyName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

// SetCompany updates the company name shown on a profile, creating the
// profile for users that predate the hook.
func (s *ProfileStore) SetCompany(ctx context.Context, userID uuid.UUID, company *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, company_name) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET company_name = EXCLUDED.company_name, updated_at = NOW()`,
		userID, company)
	if err != nil {
		return fmt.Errorf("set profile company: %w", err)
	}
	return nil
}
