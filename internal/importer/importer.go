// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package importer fans external media library files out into file
// attachments bound to a catalog and/or category.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"catalogo/internal/models"
	"catalogo/internal/store"
)

// Request validation errors.
var (
	ErrNoTarget        = errors.New("a catalog or a category is required")
	ErrNoFiles         = errors.New("no library files selected")
	ErrUnknownCatalog  = errors.New("catalog not found")
	ErrUnknownCategory = errors.New("category not found")
	ErrTargetMismatch  = errors.New("category does not belong to the catalog")
)

// LibraryFinder loads library files by id.
type LibraryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.LibraryFile, error)
}

// CatalogFinder loads catalogs by id.
type CatalogFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
}

// CategoryFinder loads categories by id.
type CategoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// FileCreator persists one file attachment with its bindings.
type FileCreator interface {
	Create(ctx context.Context, f *models.FileAttachment, b store.Bindings) (*models.FileAttachment, error)
}

// Request describes one bulk import.
type Request struct {
	LibraryFileIDs []uuid.UUID `json:"library_file_ids" validate:"required,min=1,max=500"`
	Catalog        *uuid.UUID  `json:"catalog"`
	Category       *uuid.UUID  `json:"category"`
	IsActive       *bool       `json:"is_active"`
	CreatedBy      *uuid.UUID  `json:"-"`
}

// ItemError reports why one library file was not imported.
type ItemError struct {
	LibraryFileID uuid.UUID `json:"library_file_id"`
	Error         string    `json:"error"`
}

// Result summarises a bulk import.
type Result struct {
	Created    int         `json:"created"`
	Failed     int         `json:"failed"`
	Errors     []ItemError `json:"errors"`
	CreatedIDs []uuid.UUID `json:"created_ids"`
}

// Importer runs bulk imports against the stores.
type Importer struct {
	library    LibraryFinder
	catalogs   CatalogFinder
	categories CategoryFinder
	files      FileCreator
}

// New returns an Importer.
func New(library LibraryFinder, catalogs CatalogFinder, categories CategoryFinder, files FileCreator) *Importer {
	return &Importer{library: library, catalogs: catalogs, categories: categories, files: files}
}

// validate checks the target containers. When only a category is given its
// catalog is looked up for the consistency check but not bound.
func (im *Importer) validate(ctx context.Context, req Request) error {
	if len(req.LibraryFileIDs) == 0 {
		return ErrNoFiles
	}
	if req.Catalog == nil && req.Category == nil {
		return ErrNoTarget
	}

	if req.Catalog != nil {
		c, err := im.catalogs.FindByID(ctx, *req.Catalog)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrUnknownCatalog
		}
	}
	if req.Category != nil {
		cg, err := im.categories.FindByID(ctx, *req.Category)
		if err != nil {
			return err
		}
		if cg == nil {
			return ErrUnknownCategory
		}
		if req.Catalog != nil && cg.CatalogID != *req.Catalog {
			return ErrTargetMismatch
		}
	}
	return nil
}

// Import creates one attachment per library file, in submission order.
// Each attachment is named after its library file and bound with ordinals
// 0, 1, 2… counted over the successfully created items only. Per-item
// failures are collected and processing continues; created items stay
// committed. A non-nil error means the request itself was rejected.
func (im *Importer) Import(ctx context.Context, req Request) (*Result, error) {
	if err := im.validate(ctx, req); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	res := &Result{Errors: []ItemError{}, CreatedIDs: []uuid.UUID{}}
	fail := func(id uuid.UUID, err error) {
		res.Failed++
		res.Errors = append(res.Errors, ItemError{LibraryFileID: id, Error: err.Error()})
		slog.Warn("import item failed", "library_file_id", id, "error", err)
	}

	ordinal := 0
	for _, id := range req.LibraryFileIDs {
		if err := ctx.Err(); err != nil {
			fail(id, err)
			continue
		}

		lib, err := im.library.FindByID(ctx, id)
		if err != nil {
			fail(id, err)
			continue
		}
		if lib == nil {
			fail(id, fmt.Errorf("library file %s not found", id))
			continue
		}

		pos := ordinal
		var b store.Bindings
		if req.Catalog != nil {
			b.Catalogs = []store.Attach{{ID: *req.Catalog, Ordinal: &pos}}
		}
		if req.Category != nil {
			b.Categories = []store.Attach{{ID: *req.Category, Ordinal: &pos}}
		}

		created, err := im.files.Create(ctx, &models.FileAttachment{
			Name:      lib.OriginalName,
			Source:    models.LibrarySource{LibraryFile: *lib},
			IsActive:  active,
			CreatedBy: req.CreatedBy,
			UpdatedBy: req.CreatedBy,
		}, b)
		if err != nil {
			fail(id, err)
			continue
		}

		ordinal++
		res.Created++
		res.CreatedIDs = append(res.CreatedIDs, created.ID)
	}

	slog.Info("bulk import finished", "created", res.Created, "failed", res.Failed)
	return res, nil
}
