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

// FileStore manages file attachments and their catalog/category bindings.
type FileStore struct {
	db *sql.DB
}

// NewFileStore returns a new FileStore.
func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{db: db}
}

// Attach binds a file to one container. A nil Ordinal appends after the
// container's current last file.
type Attach struct {
	ID      uuid.UUID
	Ordinal *int
}

// Bindings is the full set of containers a file belongs to.
type Bindings struct {
	Catalogs   []Attach
	Categories []Attach
}

const fileSelect = `SELECT files.id, files.name, files.source_kind,
		files.upload_key, files.upload_name, files.upload_content_type, files.upload_size_bytes,
		files.library_file_id, lf.original_name, lf.storage_key, lf.content_type, lf.size_bytes,
		lf.folder, lf.uploaded_by, lf.created_at,
		files.file_type, files.sort_key, files.thumb_key, files.is_active,
		files.created_at, files.created_by, files.updated_at, files.updated_by
	FROM files
	LEFT JOIN library_files lf ON lf.id = files.library_file_id`

var fileOrdering = map[string]string{
	"name":       "files.name",
	"sort_key":   "files.sort_key",
	"file_type":  "files.file_type",
	"created_at": "files.created_at",
	"updated_at": "files.updated_at",
}

// scanFile scans a fileSelect row, rebuilding the source variant.
func scanFile(scanner interface{ Scan(...any) error }) (*models.FileAttachment, error) {
	var (
		f           models.FileAttachment
		kind        models.SourceKind
		upKey       sql.NullString
		upName      sql.NullString
		upType      sql.NullString
		upSize      sql.NullInt64
		libID       *uuid.UUID
		libName     sql.NullString
		libKey      sql.NullString
		libType     sql.NullString
		libSize     sql.NullInt64
		libFolder   sql.NullString
		libUploader *uuid.UUID
		libCreated  sql.NullTime
	)
	err := scanner.Scan(
		&f.ID, &f.Name, &kind,
		&upKey, &upName, &upType, &upSize,
		&libID, &libName, &libKey, &libType, &libSize,
		&libFolder, &libUploader, &libCreated,
		&f.FileType, &f.SortKey, &f.ThumbKey, &f.IsActive,
		&f.CreatedAt, &f.CreatedBy, &f.UpdatedAt, &f.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case kind == models.SourceUpload && upKey.Valid:
		f.Source = models.UploadSource{StoredFile: models.StoredFile{
			Key:         upKey.String,
			Name:        upName.String,
			ContentType: upType.String,
			SizeBytes:   upSize.Int64,
		}}
	case kind == models.SourceLibrary && libID != nil:
		f.Source = models.LibrarySource{LibraryFile: models.LibraryFile{
			ID:           *libID,
			OriginalName: libName.String,
			StorageKey:   libKey.String,
			ContentType:  libType.String,
			SizeBytes:    libSize.Int64,
			Folder:       libFolder.String,
			UploadedBy:   libUploader,
			CreatedAt:    libCreated.Time,
		}}
	}
	return &f, nil
}

// sourceColumns splits a source into the files table's column values.
func sourceColumns(src models.Source) (kind models.SourceKind, upKey, upName, upType *string, upSize *int64, libID *uuid.UUID, err error) {
	switch v := src.(type) {
	case models.UploadSource:
		return models.SourceUpload, &v.Key, &v.Name, &v.ContentType, &v.SizeBytes, nil, nil
	case models.LibrarySource:
		id := v.LibraryFile.ID
		return models.SourceLibrary, nil, nil, nil, nil, &id, nil
	}
	return "", nil, nil, nil, nil, nil, models.ErrNoSource
}

// Create derives file_type and sort_key, inserts the attachment and its
// bindings in one transaction, and returns the stored record.
func (s *FileStore) Create(ctx context.Context, f *models.FileAttachment, b Bindings) (*models.FileAttachment, error) {
	kind, upKey, upName, upType, upSize, libID, err := sourceColumns(f.Source)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	f.Derive()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO files (name, source_kind, upload_key, upload_name, upload_content_type,
			upload_size_bytes, library_file_id, file_type, sort_key, thumb_key, is_active,
			created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id`,
		f.Name, string(kind), upKey, upName, upType, upSize, libID,
		string(f.FileType), f.SortKey, f.ThumbKey, f.IsActive, f.CreatedBy,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", writeErr(err))
	}

	if err := replaceBindings(ctx, tx, id, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update saves name, source, thumbnail and is_active, re-deriving file_type
// and sort_key. A non-nil b replaces both binding sets. Returns nil if the
// file does not exist.
func (s *FileStore) Update(ctx context.Context, f *models.FileAttachment, b *Bindings) (*models.FileAttachment, error) {
	kind, upKey, upName, upType, upSize, libID, err := sourceColumns(f.Source)
	if err != nil {
		return nil, fmt.Errorf("update file: %w", err)
	}
	f.Derive()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE files SET
			name = $1, source_kind = $2, upload_key = $3, upload_name = $4,
			upload_content_type = $5, upload_size_bytes = $6, library_file_id = $7,
			file_type = $8, sort_key = $9, thumb_key = $10, is_active = $11,
			updated_by = $12, updated_at = NOW()
		WHERE id = $13`,
		f.Name, string(kind), upKey, upName, upType, upSize, libID,
		string(f.FileType), f.SortKey, f.ThumbKey, f.IsActive, f.UpdatedBy, f.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update file: %w", writeErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	if b != nil {
		if err := replaceBindings(ctx, tx, f.ID, *b); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update file: %w", err)
	}
	return s.FindByID(ctx, f.ID)
}

// replaceBindings clears and re-inserts every association of fileID.
func replaceBindings(ctx context.Context, tx *sql.Tx, fileID uuid.UUID, b Bindings) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_files WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("clear catalog bindings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_files WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("clear category bindings: %w", err)
	}

	for _, a := range b.Catalogs {
		if err := bind(ctx, tx, "catalog_files", "catalog_id", a, fileID); err != nil {
			return fmt.Errorf("bind catalog %s: %w", a.ID, err)
		}
	}
	for _, a := range b.Categories {
		if err := bind(ctx, tx, "category_files", "category_id", a, fileID); err != nil {
			return fmt.Errorf("bind category %s: %w", a.ID, err)
		}
	}
	return nil
}

// bind inserts one association row. table and column are package constants.
func bind(ctx context.Context, tx *sql.Tx, table, column string, a Attach, fileID uuid.UUID) error {
	var ordinal int
	if a.Ordinal != nil {
		ordinal = *a.Ordinal
	} else {
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(ordinal) + 1, 0) FROM `+table+` WHERE `+column+` = $1`, a.ID,
		).Scan(&ordinal)
		if err != nil {
			return fmt.Errorf("next ordinal: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO `+table+` (`+column+`, file_id, ordinal) VALUES ($1, $2, $3)
		 ON CONFLICT (`+column+`, file_id) DO UPDATE SET ordinal = EXCLUDED.ordinal`,
		a.ID, fileID, ordinal,
	)
	return writeErr(err)
}

// FindByID retrieves a file with its bindings. Returns nil if not found.
func (s *FileStore) FindByID(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error) {
	row := s.db.QueryRowContext(ctx, fileSelect+` WHERE files.id = $1`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find file by id: %w", err)
	}
	files := []models.FileAttachment{*f}
	if err := s.loadBindings(ctx, files); err != nil {
		return nil, err
	}
	return &files[0], nil
}

// List returns one page of files matching f and the total match count.
func (s *FileStore) List(ctx context.Context, f FileFilter) ([]models.FileAttachment, int, error) {
	var w where
	w.common(f.Common, "files", "name", "sort_key")
	if f.FileType != nil {
		w.add("files.file_type = ?", string(*f.FileType))
	}
	if f.Catalog != nil {
		w.add("EXISTS (SELECT 1 FROM catalog_files cf WHERE cf.file_id = files.id AND cf.catalog_id = ?)", *f.Catalog)
	}
	if f.Category != nil {
		w.add("EXISTS (SELECT 1 FROM category_files gf WHERE gf.file_id = files.id AND gf.category_id = ?)", *f.Category)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`+w.String(), w.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}

	query := fileSelect + w.String() +
		orderBy(f.Ordering, fileOrdering, "files.created_at DESC", "files.id") +
		` LIMIT ` + w.arg(f.Page.limit()) + ` OFFSET ` + w.arg(f.Page.offset())

	items, err := s.query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list files: %w", err)
	}
	return items, count, nil
}

// ListForCatalog returns the files bound directly to a catalog, by ordinal.
func (s *FileStore) ListForCatalog(ctx context.Context, catalogID uuid.UUID) ([]models.FileAttachment, error) {
	items, err := s.query(ctx, fileSelect+`
		JOIN catalog_files cf ON cf.file_id = files.id
		WHERE cf.catalog_id = $1
		ORDER BY cf.ordinal, files.id`, catalogID)
	if err != nil {
		return nil, fmt.Errorf("list catalog files: %w", err)
	}
	return items, nil
}

// ListForCategory returns the files bound to a category, by ordinal.
func (s *FileStore) ListForCategory(ctx context.Context, categoryID uuid.UUID) ([]models.FileAttachment, error) {
	items, err := s.query(ctx, fileSelect+`
		JOIN category_files gf ON gf.file_id = files.id
		WHERE gf.category_id = $1
		ORDER BY gf.ordinal, files.id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category files: %w", err)
	}
	return items, nil
}

func (s *FileStore) query(ctx context.Context, query string, args ...any) ([]models.FileAttachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.FileAttachment{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadBindings(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// loadBindings fills Catalogs and Categories for every file in place.
func (s *FileStore) loadBindings(ctx context.Context, files []models.FileAttachment) error {
	if len(files) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]*models.FileAttachment, len(files))
	ids := make([]uuid.UUID, len(files))
	for i := range files {
		index[files[i].ID] = &files[i]
		ids[i] = files[i].ID
	}

	queries := []struct {
		sql    string
		target func(*models.FileAttachment) *[]models.Binding
	}{
		{`SELECT b.file_id, b.catalog_id, b.ordinal, c.name_it
			FROM catalog_files b JOIN catalogs c ON c.id = b.catalog_id
			WHERE b.file_id = ANY($1::uuid[]) ORDER BY b.ordinal, c.name_it`,
			func(f *models.FileAttachment) *[]models.Binding { return &f.Catalogs }},
		{`SELECT b.file_id, b.category_id, b.ordinal, c.name_it
			FROM category_files b JOIN categories c ON c.id = b.category_id
			WHERE b.file_id = ANY($1::uuid[]) ORDER BY b.ordinal, c.name_it`,
			func(f *models.FileAttachment) *[]models.Binding { return &f.Categories }},
	}

	for _, q := range queries {
		rows, err := s.db.QueryContext(ctx, q.sql, idStrings(ids))
		if err != nil {
			return fmt.Errorf("load file bindings: %w", err)
		}
		for rows.Next() {
			var fileID uuid.UUID
			var b models.Binding
			if err := rows.Scan(&fileID, &b.ID, &b.Ordinal, &b.Name); err != nil {
				rows.Close()
				return fmt.Errorf("scan file binding: %w", err)
			}
			if f, ok := index[fileID]; ok {
				list := q.target(f)
				*list = append(*list, b)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("load file bindings: %w", err)
		}
	}
	return nil
}

// SetThumb records the thumbnail key of a file.
func (s *FileStore) SetThumb(ctx context.Context, id uuid.UUID, key *string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE files SET thumb_key = $1 WHERE id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("set file thumb: %w", err)
	}
	return nil
}

// Delete removes a file (its bindings cascade) and returns it so the caller
// can clean up uploaded objects. Returns nil if not found.
func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error) {
	f, err := s.FindByID(ctx, id)
	if err != nil || f == nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete file: %w", deleteErr(err))
	}
	return f, nil
}
