// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned (wrapped) by store write methods.
var (
	// ErrHasDependents means a delete was refused because other rows still
	// reference the record.
	ErrHasDependents = errors.New("record is still referenced")
	// ErrSlugTaken means the unique slug constraint fired at commit, usually
	// because a concurrent write claimed the same slug after the probe.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrCycle means the requested parent is the category itself or one of
	// its descendants.
	ErrCycle = errors.New("parent would create a cycle")
	// ErrInvalidParent means the parent belongs to a different catalog.
	ErrInvalidParent = errors.New("parent belongs to another catalog")
	// ErrNotFound means a row referenced by a write does not exist.
	ErrNotFound = errors.New("referenced record not found")
	// ErrSlugFixed means an update tried to replace an assigned slug with
	// another value. Only clearing it, which re-derives it, is allowed.
	ErrSlugFixed = errors.New("slug cannot be changed once assigned")
	// ErrSlugPrefix means a child category slug does not start with its
	// parent's slug.
	ErrSlugPrefix = errors.New("category slug must extend the parent slug")
)

// PostgreSQL SQLSTATE codes.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// writeErr maps constraint violations raised by INSERT/UPDATE.
func writeErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if strings.HasSuffix(pgErr.ConstraintName, "_slug_key") {
			return ErrSlugTaken
		}
	case pgForeignKeyViolation:
		return ErrNotFound
	}
	return err
}

// deleteErr maps constraint violations raised by DELETE.
func deleteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrHasDependents
	}
	return err
}
