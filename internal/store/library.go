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

// LibraryStore handles the external media library's records.
type LibraryStore struct {
	db *sql.DB
}

// NewLibraryStore creates a new LibraryStore with the given database connection.
func NewLibraryStore(db *sql.DB) *LibraryStore {
	return &LibraryStore{db: db}
}

// libraryColumns lists the columns selected in library queries.
const libraryColumns = `lf.id, lf.original_name, lf.storage_key, lf.content_type, lf.size_bytes,
	lf.folder, lf.uploaded_by, lf.created_at`

// scanLibraryFile scans a library row from the result set.
func scanLibraryFile(scanner interface{ Scan(...any) error }) (*models.LibraryFile, error) {
	var m models.LibraryFile
	err := scanner.Scan(
		&m.ID, &m.OriginalName, &m.StorageKey, &m.ContentType, &m.SizeBytes,
		&m.Folder, &m.UploadedBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new library record and returns it with the generated ID.
func (s *LibraryStore) Create(ctx context.Context, m *models.LibraryFile) (*models.LibraryFile, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO library_files AS lf (original_name, storage_key, content_type, size_bytes, folder, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+libraryColumns,
		m.OriginalName, m.StorageKey, m.ContentType, m.SizeBytes, m.Folder, m.UploadedBy,
	)
	created, err := scanLibraryFile(row)
	if err != nil {
		return nil, fmt.Errorf("create library file: %w", writeErr(err))
	}
	return created, nil
}

// FindByID retrieves a single library file by its UUID. Returns nil if not found.
func (s *LibraryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.LibraryFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+libraryColumns+` FROM library_files lf WHERE lf.id = $1`, id)
	m, err := scanLibraryFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find library file by id: %w", err)
	}
	return m, nil
}

// List returns library files newest first, optionally narrowed by a
// case-insensitive name search, with the total match count.
func (s *LibraryStore) List(ctx context.Context, search string, page Page) ([]models.LibraryFile, int, error) {
	var w where
	w.common(Common{Search: search}, "lf", "original_name", "folder")
	return s.list(ctx, &w, page)
}

// ListUnattached returns library files that no file attachment references
// yet. These are the bulk-import candidates.
func (s *LibraryStore) ListUnattached(ctx context.Context, search string, page Page) ([]models.LibraryFile, int, error) {
	var w where
	w.common(Common{Search: search}, "lf", "original_name", "folder")
	w.add("NOT EXISTS (SELECT 1 FROM files WHERE files.library_file_id = lf.id)")
	return s.list(ctx, &w, page)
}

func (s *LibraryStore) list(ctx context.Context, w *where, page Page) ([]models.LibraryFile, int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM library_files lf`+w.String(), w.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count library files: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+libraryColumns+` FROM library_files lf`+w.String()+`
		ORDER BY lf.created_at DESC, lf.id
		LIMIT `+w.arg(page.limit())+` OFFSET `+w.arg(page.offset()),
		w.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list library files: %w", err)
	}
	defer rows.Close()

	items := []models.LibraryFile{}
	for rows.Next() {
		m, err := scanLibraryFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan library file: %w", err)
		}
		items = append(items, *m)
	}
	return items, count, rows.Err()
}
