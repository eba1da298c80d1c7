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

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `categories.id, categories.catalog_id, categories.parent_id,
	categories.name_it, categories.name_en, categories.name_fr, categories.name_es,
	categories.slug, categories.sort_order, categories.is_active,
	categories.created_at, categories.created_by, categories.updated_at, categories.updated_by`

// categorySelect joins the catalog and parent so their names can be shown.
const categorySelect = `SELECT ` + categoryColumns + `, cat.name_it, parent.name_it
	FROM categories
	JOIN catalogs cat ON cat.id = categories.catalog_id
	LEFT JOIN categories parent ON parent.id = categories.parent_id`

var categoryOrdering = map[string]string{
	"name":       "categories.name_it",
	"name_it":    "categories.name_it",
	"slug":       "categories.slug",
	"catalog":    "cat.name_it",
	"sort_order": "categories.sort_order",
	"created_at": "categories.created_at",
	"updated_at": "categories.updated_at",
}

// scanCategory scans a categorySelect row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.CatalogID, &c.ParentID,
		&c.IT, &c.EN, &c.FR, &c.ES,
		&c.Slug, &c.SortOrder, &c.IsActive,
		&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy,
		&c.CatalogName, &c.ParentName,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SlugExists reports whether any category uses candidate.
func (s *CategoryStore) SlugExists(ctx context.Context, candidate string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, candidate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe category slug: %w", err)
	}
	return exists, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, categorySelect+` WHERE categories.id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// List returns one page of categories matching f and the total match count.
// The default order is catalog name, then category name.
func (s *CategoryStore) List(ctx context.Context, f CategoryFilter) ([]models.Category, int, error) {
	var w where
	w.common(f.Common, "categories", "name_it", "name_en", "name_fr", "name_es", "slug")
	if f.Catalog != nil {
		w.add("categories.catalog_id = ?", *f.Catalog)
	}
	if f.Parent != nil {
		w.add("categories.parent_id = ?", *f.Parent)
	}
	if f.HasParent != nil {
		if *f.HasParent {
			w.add("categories.parent_id IS NOT NULL")
		} else {
			w.add("categories.parent_id IS NULL")
		}
	}

	var count int
	countQuery := `SELECT COUNT(*) FROM categories JOIN catalogs cat ON cat.id = categories.catalog_id` + w.String()
	if err := s.db.QueryRowContext(ctx, countQuery, w.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	query := categorySelect + w.String() +
		orderBy(f.Ordering, categoryOrdering, "cat.name_it ASC, categories.name_it ASC", "categories.id") +
		` LIMIT ` + w.arg(f.Page.limit()) + ` OFFSET ` + w.arg(f.Page.offset())

	items, err := s.query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return items, count, nil
}

func (s *CategoryStore) query(ctx context.Context, query string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Tree returns the categories of one catalog as a nested tree.
func (s *CategoryStore) Tree(ctx context.Context, catalogID uuid.UUID) ([]models.Category, error) {
	flat, err := s.query(ctx, categorySelect+`
		WHERE categories.catalog_id = $1
		ORDER BY categories.sort_order, categories.name_it, categories.id`, catalogID)
	if err != nil {
		return nil, fmt.Errorf("category tree: %w", err)
	}
	return buildTree(flat, nil, 0), nil
}

// buildTree recursively builds a tree from a flat list.
func buildTree(flat []models.Category, parentID *uuid.UUID, depth int) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Depth = depth
			c.Children = buildTree(flat, &c.ID, depth+1)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// resolveParent loads and validates c's parent. It returns nil for a root
// category.
func (s *CategoryStore) resolveParent(ctx context.Context, c *models.Category) (*models.Category, error) {
	if c.IsRoot() {
		return nil, nil
	}
	if c.ID != uuid.Nil && *c.ParentID == c.ID {
		return nil, ErrCycle
	}
	parent, err := s.FindByID(ctx, *c.ParentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNotFound
	}
	if parent.CatalogID != c.CatalogID {
		return nil, ErrInvalidParent
	}
	if c.ID != uuid.Nil {
		loop, err := s.isAncestor(ctx, c.ID, parent.ID)
		if err != nil {
			return nil, err
		}
		if loop {
			return nil, ErrCycle
		}
	}
	return parent, nil
}

// isAncestor reports whether ancestor appears on the parent chain of id,
// id itself included. The walk has no depth limit; UNION stops it on a
// repeated row.
func (s *CategoryStore) isAncestor(ctx context.Context, ancestor, id uuid.UUID) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id FROM categories WHERE id = $1
			UNION
			SELECT c.id, c.parent_id
			FROM categories c JOIN chain ON c.id = chain.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE id = $2)`,
		id, ancestor,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("walk category ancestors: %w", err)
	}
	return found, nil
}

// deriveSlug builds parent slug + fragment and probes for a free variant.
func (s *CategoryStore) deriveSlug(ctx context.Context, c, parent *models.Category) (string, error) {
	base := slug.Fragment(c.IT, "category")
	if parent != nil {
		base = slug.Join(parent.Slug, base)
	}
	return slug.Unique(ctx, base, s.SlugExists)
}

// Create validates the parent, derives an empty slug, inserts the category
// and returns it with catalog and parent names populated. A preset slug on a
// child must extend the parent's slug.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	c.ID = uuid.Nil
	parent, err := s.resolveParent(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	switch {
	case c.Slug == "":
		if c.Slug, err = s.deriveSlug(ctx, c, parent); err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
	case parent != nil && !strings.HasPrefix(c.Slug, parent.Slug+"-"):
		return nil, fmt.Errorf("create category: %w", ErrSlugPrefix)
	}

	var id uuid.UUID
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO categories (catalog_id, parent_id, name_it, name_en, name_fr, name_es,
			slug, sort_order, is_active, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id`,
		c.CatalogID, c.ParentID, c.IT, c.EN, c.FR, c.ES,
		c.Slug, c.SortOrder, c.IsActive, c.CreatedBy,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", writeErr(err))
	}
	return s.FindByID(ctx, id)
}

// Update saves every editable field of c. A new parent is checked for
// cycles and catalog membership; moving a category to another catalog moves
// its whole subtree. The slug is re-derived only when the caller cleared it;
// any other value must match the stored one.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	existing, err := s.FindByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	parent, err := s.resolveParent(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	switch c.Slug {
	case "":
		if c.Slug, err = s.deriveSlug(ctx, c, parent); err != nil {
			return nil, fmt.Errorf("update category: %w", err)
		}
	case existing.Slug:
	default:
		return nil, fmt.Errorf("update category: %w", ErrSlugFixed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE categories SET
			catalog_id = $1, parent_id = $2, name_it = $3, name_en = $4, name_fr = $5, name_es = $6,
			slug = $7, sort_order = $8, is_active = $9, updated_by = $10, updated_at = NOW()
		WHERE id = $11`,
		c.CatalogID, c.ParentID, c.IT, c.EN, c.FR, c.ES,
		c.Slug, c.SortOrder, c.IsActive, c.UpdatedBy, c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", writeErr(err))
	}

	if existing.CatalogID != c.CatalogID {
		_, err = tx.ExecContext(ctx, `
			WITH RECURSIVE subtree AS (
				SELECT id FROM categories WHERE parent_id = $1
				UNION
				SELECT c.id FROM categories c JOIN subtree ON c.parent_id = subtree.id
			)
			UPDATE categories SET catalog_id = $2, updated_at = NOW()
			WHERE id IN (SELECT id FROM subtree)`,
			c.ID, c.CatalogID,
		)
		if err != nil {
			return nil, fmt.Errorf("move category subtree: %w", writeErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return s.FindByID(ctx, c.ID)
}

// HasDependents reports whether sub-categories or file associations still
// reference the category.
func (s *CategoryStore) HasDependents(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)
		    OR EXISTS (SELECT 1 FROM category_files WHERE category_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category dependents: %w", err)
	}
	return exists, nil
}

// Delete removes a category. It returns ErrHasDependents while
// sub-categories or file associations reference it, and ErrNotFound when
// no row matched.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	busy, err := s.HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if busy {
		return fmt.Errorf("delete category: %w", ErrHasDependents)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", deleteErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete category: %w", ErrNotFound)
	}
	return nil
}

// FullPath returns the catalog name followed by every ancestor name down to
// the category itself, each in lang with fallback to the primary language.
// Returns nil if the category does not exist.
func (s *CategoryStore) FullPath(ctx context.Context, id uuid.UUID, lang models.Lang) ([]string, error) {
	paths, err := s.FullPaths(ctx, []uuid.UUID{id}, lang)
	if err != nil {
		return nil, err
	}
	return paths[id], nil
}

// FullPaths computes FullPath for several categories in one query.
func (s *CategoryStore) FullPaths(ctx context.Context, ids []uuid.UUID, lang models.Lang) (map[uuid.UUID][]string, error) {
	paths := make(map[uuid.UUID][]string, len(ids))
	if len(ids) == 0 {
		return paths, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id AS leaf, id, parent_id, 0 AS up, ARRAY[id] AS visited
			FROM categories WHERE id = ANY($1::uuid[])
			UNION ALL
			SELECT chain.leaf, c.id, c.parent_id, chain.up + 1, chain.visited || c.id
			FROM categories c JOIN chain ON c.id = chain.parent_id
			WHERE NOT c.id = ANY(chain.visited)
		)
		SELECT chain.leaf, c.name_it, c.name_en, c.name_fr, c.name_es,
		       cat.name_it, cat.name_en, cat.name_fr, cat.name_es
		FROM chain
		JOIN categories c ON c.id = chain.id
		JOIN catalogs cat ON cat.id = c.catalog_id
		ORDER BY chain.leaf, chain.up DESC`,
		idStrings(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("category full path: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leaf        uuid.UUID
			node, owner models.Names
		)
		if err := rows.Scan(&leaf,
			&node.IT, &node.EN, &node.FR, &node.ES,
			&owner.IT, &owner.EN, &owner.FR, &owner.ES,
		); err != nil {
			return nil, fmt.Errorf("scan category path: %w", err)
		}
		// The first row of each leaf is its root, which carries the catalog.
		if _, seen := paths[leaf]; !seen {
			paths[leaf] = []string{owner.Get(lang)}
		}
		paths[leaf] = append(paths[leaf], node.Get(lang))
	}
	return paths, rows.Err()
}
