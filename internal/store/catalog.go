// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"catalogo/internal/models"
	"catalogo/internal/slug"
)

// CatalogStore manages catalogs in the database.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore returns a new CatalogStore.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

const catalogColumns = `catalogs.id, catalogs.name_it, catalogs.name_en, catalogs.name_fr, catalogs.name_es,
	catalogs.slug, catalogs.cover_image, catalogs.cover_thumb, catalogs.sort_order, catalogs.is_active,
	catalogs.created_at, catalogs.created_by, catalogs.updated_at, catalogs.updated_by`

// catalogOrdering maps client ordering fields to columns.
var catalogOrdering = map[string]string{
	"name":       "catalogs.name_it",
	"name_it":    "catalogs.name_it",
	"slug":       "catalogs.slug",
	"sort_order": "catalogs.sort_order",
	"created_at": "catalogs.created_at",
	"updated_at": "catalogs.updated_at",
}

// Room left after a catalog slug fragment for a "-N" collision suffix,
// so the result still fits the column.
const catalogSuffixRoom = 6

func scanCatalog(scanner interface{ Scan(...any) error }) (*models.Catalog, error) {
	var c models.Catalog
	err := scanner.Scan(
		&c.ID, &c.IT, &c.EN, &c.FR, &c.ES,
		&c.Slug, &c.CoverImage, &c.CoverThumb, &c.SortOrder, &c.IsActive,
		&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SlugExists reports whether any catalog uses candidate.
func (s *CatalogStore) SlugExists(ctx context.Context, candidate string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM catalogs WHERE slug = $1)`, candidate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe catalog slug: %w", err)
	}
	return exists, nil
}

// deriveSlug computes a free slug from the primary name.
func (s *CatalogStore) deriveSlug(ctx context.Context, c *models.Catalog) (string, error) {
	base := slug.Fragment(c.IT, "catalog")
	if limit := slug.MaxLen - catalogSuffixRoom; len(base) > limit {
		base = strings.Trim(base[:limit], "-")
	}
	return slug.Unique(ctx, base, s.SlugExists)
}

// Create inserts a new catalog and returns it. An empty slug is derived
// from the Italian name.
func (s *CatalogStore) Create(ctx context.Context, c *models.Catalog) (*models.Catalog, error) {
	if c.Slug == "" {
		derived, err := s.deriveSlug(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("create catalog: %w", err)
		}
		c.Slug = derived
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO catalogs (name_it, name_en, name_fr, name_es, slug, cover_image, cover_thumb,
			sort_order, is_active, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+catalogColumns,
		c.IT, c.EN, c.FR, c.ES, c.Slug, c.CoverImage, c.CoverThumb,
		c.SortOrder, c.IsActive, c.CreatedBy,
	)
	result, err := scanCatalog(row)
	if err != nil {
		return nil, fmt.Errorf("create catalog: %w", writeErr(err))
	}
	return result, nil
}

// FindByID retrieves a catalog by ID. Returns nil if not found.
func (s *CatalogStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalogs WHERE id = $1`, id)
	c, err := scanCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find catalog by id: %w", err)
	}
	return c, nil
}

// List returns one page of catalogs matching f and the total match count.
func (s *CatalogStore) List(ctx context.Context, f CatalogFilter) ([]models.Catalog, int, error) {
	var w where
	w.common(f.Common, "catalogs", "name_it", "name_en", "name_fr", "name_es", "slug")

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalogs`+w.String(), w.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count catalogs: %w", err)
	}

	query := `SELECT ` + catalogColumns + ` FROM catalogs` + w.String() +
		orderBy(f.Ordering, catalogOrdering, "catalogs.created_at DESC", "catalogs.id") +
		` LIMIT ` + w.arg(f.Page.limit()) + ` OFFSET ` + w.arg(f.Page.offset())

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list catalogs: %w", err)
	}
	defer rows.Close()

	items := []models.Catalog{}
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan catalog: %w", err)
		}
		items = append(items, *c)
	}
	return items, count, rows.Err()
}

// Update saves every editable field of c. The slug is re-derived only when
// the caller cleared it; any other value must match the stored one.
func (s *CatalogStore) Update(ctx context.Context, c *models.Catalog) (*models.Catalog, error) {
	if c.Slug != "" {
		var current string
		err := s.db.QueryRowContext(ctx, `SELECT slug FROM catalogs WHERE id = $1`, c.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("update catalog: %w", err)
		}
		if current != c.Slug {
			return nil, fmt.Errorf("update catalog: %w", ErrSlugFixed)
		}
	}
	if c.Slug == "" {
		derived, err := s.deriveSlug(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("update catalog: %w", err)
		}
		c.Slug = derived
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE catalogs SET
			name_it = $1, name_en = $2, name_fr = $3, name_es = $4, slug = $5,
			sort_order = $6, is_active = $7, updated_by = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING `+catalogColumns,
		c.IT, c.EN, c.FR, c.ES, c.Slug, c.SortOrder, c.IsActive, c.UpdatedBy, c.ID,
	)
	result, err := scanCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update catalog: %w", writeErr(err))
	}
	return result, nil
}

// SetCover stores the cover image and thumbnail keys and returns the
// previous keys so the caller can remove the old objects.
func (s *CatalogStore) SetCover(ctx context.Context, id uuid.UUID, image, thumb *string) (oldImage, oldThumb *string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT cover_image, cover_thumb FROM catalogs WHERE id = $1 FOR UPDATE`, id,
	).Scan(&oldImage, &oldThumb)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("set catalog cover: %w", ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("set catalog cover: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE catalogs SET cover_image = $1, cover_thumb = $2, updated_at = NOW()
		WHERE id = $3`, image, thumb, id,
	); err != nil {
		return nil, nil, fmt.Errorf("set catalog cover: %w", err)
	}
	return oldImage, oldThumb, tx.Commit()
}

// HasDependents reports whether categories or file associations still
// reference the catalog.
func (s *CatalogStore) HasDependents(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE catalog_id = $1)
		    OR EXISTS (SELECT 1 FROM catalog_files WHERE catalog_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check catalog dependents: %w", err)
	}
	return exists, nil
}

// Delete removes a catalog. It returns ErrHasDependents while categories or
// file associations reference it, and ErrNotFound when no row matched.
func (s *CatalogStore) Delete(ctx context.Context, id uuid.UUID) (*models.Catalog, error) {
	busy, err := s.HasDependents(ctx, id)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("delete catalog: %w", ErrHasDependents)
	}

	row := s.db.QueryRowContext(ctx, `DELETE FROM catalogs WHERE id = $1 RETURNING `+catalogColumns, id)
	c, err := scanCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete catalog: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete catalog: %w", deleteErr(err))
	}
	return c, nil
}
