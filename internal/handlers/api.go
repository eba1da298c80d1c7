// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/storage"
)

// defaultMaxUpload is used when APIConfig.MaxUploadBytes is unset.
const defaultMaxUpload = 50 << 20

// APIConfig carries the dependencies of the catalog API handlers.
// Storage and Trees may be nil.
type APIConfig struct {
	Catalogs       CatalogRepo
	Categories     CategoryRepo
	Files          FileRepo
	Library        LibraryRepo
	Importer       BulkImporter
	Storage        storage.Backend
	Trees          TreeCache
	MaxUploadBytes int64
}

// API groups the catalog, category, file, library and import handlers.
type API struct {
	catalogs   CatalogRepo
	categories CategoryRepo
	files      FileRepo
	library    LibraryRepo
	importer   BulkImporter
	storage    storage.Backend
	trees      TreeCache
	maxUpload  int64
	now        func() time.Time
}

// NewAPI creates the API handler group.
func NewAPI(cfg APIConfig) *API {
	a := &API{
		catalogs:   cfg.Catalogs,
		categories: cfg.Categories,
		files:      cfg.Files,
		library:    cfg.Library,
		importer:   cfg.Importer,
		storage:    cfg.Storage,
		trees:      cfg.Trees,
		maxUpload:  cfg.MaxUploadBytes,
		now:        time.Now,
	}
	if a.trees == nil {
		a.trees = noTreeCache{}
	}
	if a.maxUpload <= 0 {
		a.maxUpload = defaultMaxUpload
	}
	return a
}

// noTreeCache is used when Valkey is not available.
type noTreeCache struct{}

func (noTreeCache) Get(context.Context, uuid.UUID) ([]byte, bool) { return nil, false }
func (noTreeCache) Set(context.Context, uuid.UUID, []byte)        {}
func (noTreeCache) Invalidate(context.Context, ...uuid.UUID)      {}

// fileURL returns the public URL of a storage key, or nil.
func (a *API) fileURL(key *string) *string {
	if key == nil || *key == "" || a.storage == nil {
		return nil
	}
	u := a.storage.URL(*key)
	return &u
}
