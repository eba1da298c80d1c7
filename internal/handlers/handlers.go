// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Catalogo API.
// Handlers are grouped by concern (API for catalog entities, Auth, Media)
// and receive their dependencies through the handler struct. Stores are
// consumed through the small interfaces below so tests can swap in fakes.
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/importer"
	"catalogo/internal/models"
	"catalogo/internal/store"
)

// CatalogRepo is the catalog persistence used by the API.
type CatalogRepo interface {
	Create(ctx context.Context, c *models.Catalog) (*models.Catalog, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
	List(ctx context.Context, f store.CatalogFilter) ([]models.Catalog, int, error)
	Update(ctx context.Context, c *models.Catalog) (*models.Catalog, error)
	SetCover(ctx context.Context, id uuid.UUID, image, thumb *string) (oldImage, oldThumb *string, err error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Catalog, error)
}

// CategoryRepo is the category persistence used by the API.
type CategoryRepo interface {
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context, f store.CategoryFilter) ([]models.Category, int, error)
	Update(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Tree(ctx context.Context, catalogID uuid.UUID) ([]models.Category, error)
	FullPath(ctx context.Context, id uuid.UUID, lang models.Lang) ([]string, error)
	FullPaths(ctx context.Context, ids []uuid.UUID, lang models.Lang) (map[uuid.UUID][]string, error)
}

// FileRepo is the file attachment persistence used by the API.
type FileRepo interface {
	Create(ctx context.Context, f *models.FileAttachment, b store.Bindings) (*models.FileAttachment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error)
	List(ctx context.Context, f store.FileFilter) ([]models.FileAttachment, int, error)
	ListForCatalog(ctx context.Context, catalogID uuid.UUID) ([]models.FileAttachment, error)
	ListForCategory(ctx context.Context, categoryID uuid.UUID) ([]models.FileAttachment, error)
	Update(ctx context.Context, f *models.FileAttachment, b *store.Bindings) (*models.FileAttachment, error)
	SetThumb(ctx context.Context, id uuid.UUID, key *string) error
	Delete(ctx context.Context, id uuid.UUID) (*models.FileAttachment, error)
}

// LibraryRepo is the external media library persistence used by the API.
type LibraryRepo interface {
	Create(ctx context.Context, m *models.LibraryFile) (*models.LibraryFile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.LibraryFile, error)
	List(ctx context.Context, search string, page store.Page) ([]models.LibraryFile, int, error)
	ListUnattached(ctx context.Context, search string, page store.Page) ([]models.LibraryFile, int, error)
}

// UserRepo is the account persistence used by the auth handlers.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// ProfileRepo reads and updates user profiles.
type ProfileRepo interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	SetCompany(ctx context.Context, userID uuid.UUID, company *string) error
}

// TokenStore tracks live refresh token ids.
type TokenStore interface {
	Save(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (uuid.UUID, bool, error)
	Revoke(ctx context.Context, jti string) error
}

// TreeCache caches rendered category trees per catalog.
type TreeCache interface {
	Get(ctx context.Context, catalogID uuid.UUID) ([]byte, bool)
	Set(ctx context.Context, catalogID uuid.UUID, body []byte)
	Invalidate(ctx context.Context, catalogIDs ...uuid.UUID)
}

// BulkImporter runs library-to-attachment imports.
type BulkImporter interface {
	Import(ctx context.Context, req importer.Request) (*importer.Result, error)
}
