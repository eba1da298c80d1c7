// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"catalogo/internal/auth"
	"catalogo/internal/importer"
	"catalogo/internal/middleware"
	"catalogo/internal/models"
	"catalogo/internal/slug"
	"catalogo/internal/storage"
	"catalogo/internal/store"
)

// --- Fakes ---

type fakeCatalogs struct {
	items      map[uuid.UUID]*models.Catalog
	dependents map[uuid.UUID]bool
	failCreate error
}

func newFakeCatalogs() *fakeCatalogs {
	return &fakeCatalogs{items: map[uuid.UUID]*models.Catalog{}, dependents: map[uuid.UUID]bool{}}
}

func (f *fakeCatalogs) slugTaken(candidate string, except uuid.UUID) bool {
	for id, c := range f.items {
		if id != except && c.Slug == candidate {
			return true
		}
	}
	return false
}

func (f *fakeCatalogs) Create(ctx context.Context, c *models.Catalog) (*models.Catalog, error) {
	if f.failCreate != nil {
		return nil, fmt.Errorf("create catalog: %w", f.failCreate)
	}
	cp := *c
	cp.ID = uuid.New()
	if cp.Slug == "" {
		cp.Slug, _ = slug.Unique(ctx, slug.Fragment(cp.IT, "catalog"), func(_ context.Context, s string) (bool, error) {
			return f.slugTaken(s, uuid.Nil), nil
		})
	} else if f.slugTaken(cp.Slug, uuid.Nil) {
		return nil, fmt.Errorf("create catalog: %w", store.ErrSlugTaken)
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCatalogs) FindByID(_ context.Context, id uuid.UUID) (*models.Catalog, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCatalogs) List(_ context.Context, flt store.CatalogFilter) ([]models.Catalog, int, error) {
	var out []models.Catalog
	for _, c := range f.items {
		if flt.Search != "" && !strings.Contains(strings.ToLower(c.IT), strings.ToLower(flt.Search)) {
			continue
		}
		if flt.IsActive != nil && c.IsActive != *flt.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].IT < out[j].IT
	})
	return paginate(out, flt.Page), len(out), nil
}

func (f *fakeCatalogs) Update(_ context.Context, c *models.Catalog) (*models.Catalog, error) {
	current, ok := f.items[c.ID]
	if !ok {
		return nil, nil
	}
	if c.Slug != "" && c.Slug != current.Slug {
		return nil, fmt.Errorf("update catalog: %w", store.ErrSlugFixed)
	}
	cp := *c
	if cp.Slug == "" {
		cp.Slug = slug.Fragment(cp.IT, "catalog")
	}
	cp.UpdatedAt = time.Now()
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCatalogs) SetCover(_ context.Context, id uuid.UUID, image, thumb *string) (*string, *string, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, nil, fmt.Errorf("set catalog cover: %w", store.ErrNotFound)
	}
	oldImage, oldThumb := c.CoverImage, c.CoverThumb
	c.CoverImage, c.CoverThumb = image, thumb
	return oldImage, oldThumb, nil
}

func (f *fakeCatalogs) Delete(_ context.Context, id uuid.UUID) (*models.Catalog, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("delete catalog: %w", store.ErrNotFound)
	}
	if f.dependents[id] {
		return nil, fmt.Errorf("delete catalog: %w", store.ErrHasDependents)
	}
	delete(f.items, id)
	return c, nil
}

type fakeCategories struct {
	items      map[uuid.UUID]*models.Category
	catalogs   *fakeCatalogs
	dependents map[uuid.UUID]bool
}

func newFakeCategories(catalogs *fakeCatalogs) *fakeCategories {
	return &fakeCategories{items: map[uuid.UUID]*models.Category{}, catalogs: catalogs, dependents: map[uuid.UUID]bool{}}
}

// resolve mirrors the store's parent checks.
func (f *fakeCategories) resolve(c *models.Category) (*models.Category, error) {
	if _, ok := f.catalogs.items[c.CatalogID]; !ok {
		return nil, store.ErrNotFound
	}
	if c.ParentID == nil {
		return nil, nil
	}
	if *c.ParentID == c.ID {
		return nil, store.ErrCycle
	}
	parent, ok := f.items[*c.ParentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if parent.CatalogID != c.CatalogID {
		return nil, store.ErrInvalidParent
	}
	for p := parent; p != nil && p.ParentID != nil; p = f.items[*p.ParentID] {
		if *p.ParentID == c.ID {
			return nil, store.ErrCycle
		}
	}
	return parent, nil
}

func (f *fakeCategories) decorate(c models.Category) *models.Category {
	if cat, ok := f.catalogs.items[c.CatalogID]; ok {
		c.CatalogName = cat.IT
	}
	c.ParentName = nil
	if c.ParentID != nil {
		if p, ok := f.items[*c.ParentID]; ok {
			name := p.IT
			c.ParentName = &name
		}
	}
	return &c
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	cp := *c
	cp.ID = uuid.New()
	parent, err := f.resolve(&cp)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	if cp.Slug == "" {
		cp.Slug = slug.Fragment(cp.IT, "category")
		if parent != nil {
			cp.Slug = slug.Join(parent.Slug, cp.Slug)
		}
	}
	f.items[cp.ID] = &cp
	return f.decorate(cp), nil
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return f.decorate(*c), nil
}

func (f *fakeCategories) List(_ context.Context, flt store.CategoryFilter) ([]models.Category, int, error) {
	var out []models.Category
	for _, c := range f.items {
		if flt.Catalog != nil && c.CatalogID != *flt.Catalog {
			continue
		}
		if flt.HasParent != nil && (c.ParentID != nil) != *flt.HasParent {
			continue
		}
		out = append(out, *f.decorate(*c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IT < out[j].IT })
	return paginate(out, flt.Page), len(out), nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) (*models.Category, error) {
	if _, ok := f.items[c.ID]; !ok {
		return nil, nil
	}
	parent, err := f.resolve(c)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	cp := *c
	switch cp.Slug {
	case "":
		cp.Slug = slug.Fragment(cp.IT, "category")
		if parent != nil {
			cp.Slug = slug.Join(parent.Slug, cp.Slug)
		}
	case f.items[c.ID].Slug:
	default:
		return nil, fmt.Errorf("update category: %w", store.ErrSlugFixed)
	}
	f.items[cp.ID] = &cp
	return f.decorate(cp), nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("delete category: %w", store.ErrNotFound)
	}
	busy := f.dependents[id]
	for _, c := range f.items {
		if c.ParentID != nil && *c.ParentID == id {
			busy = true
		}
	}
	if busy {
		return fmt.Errorf("delete category: %w", store.ErrHasDependents)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeCategories) Tree(_ context.Context, catalogID uuid.UUID) ([]models.Category, error) {
	var flat []models.Category
	for _, c := range f.items {
		if c.CatalogID == catalogID {
			flat = append(flat, *f.decorate(*c))
		}
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].IT < flat[j].IT })
	var build func(parent *uuid.UUID, depth int) []models.Category
	build = func(parent *uuid.UUID, depth int) []models.Category {
		var level []models.Category
		for _, c := range flat {
			if (c.ParentID == nil) != (parent == nil) || (parent != nil && *c.ParentID != *parent) {
				continue
			}
			c.Depth = depth
			c.Children = build(&c.ID, depth+1)
			level = append(level, c)
		}
		return level
	}
	return build(nil, 0), nil
}

func (f *fakeCategories) FullPath(ctx context.Context, id uuid.UUID, lang models.Lang) ([]string, error) {
	paths, err := f.FullPaths(ctx, []uuid.UUID{id}, lang)
	return paths[id], err
}

func (f *fakeCategories) FullPaths(_ context.Context, ids []uuid.UUID, lang models.Lang) (map[uuid.UUID][]string, error) {
	paths := map[uuid.UUID][]string{}
	for _, id := range ids {
		c, ok := f.items[id]
		if !ok {
			continue
		}
		var names []string
		for p := c; p != nil; {
			names = append([]string{p.Get(lang)}, names...)
			if p.ParentID == nil {
				break
			}
			p = f.items[*p.ParentID]
		}
		if cat, ok := f.catalogs.items[c.CatalogID]; ok {
			names = append([]string{cat.Get(lang)}, names...)
		}
		paths[id] = names
	}
	return paths, nil
}

type fakeFiles struct {
	items      map[uuid.UUID]*models.FileAttachment
	failCreate error
	failUpdate error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{items: map[uuid.UUID]*models.FileAttachment{}}
}

// bindAll resolves nil ordinals to the end of each container.
func (f *fakeFiles) bindAll(fileID uuid.UUID, in []store.Attach, current func(*models.FileAttachment) []models.Binding) []models.Binding {
	out := make([]models.Binding, 0, len(in))
	for _, a := range in {
		ord := 0
		if a.Ordinal != nil {
			ord = *a.Ordinal
		} else {
			for id, other := range f.items {
				if id == fileID {
					continue
				}
				for _, b := range current(other) {
					if b.ID == a.ID && b.Ordinal >= ord {
						ord = b.Ordinal + 1
					}
				}
			}
		}
		out = append(out, models.Binding{ID: a.ID, Ordinal: ord})
	}
	return out
}

func catalogBindings(f *models.FileAttachment) []models.Binding  { return f.Catalogs }
func categoryBindings(f *models.FileAttachment) []models.Binding { return f.Categories }

func (f *fakeFiles) Create(_ context.Context, file *models.FileAttachment, b store.Bindings) (*models.FileAttachment, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	if file.Source == nil {
		return nil, fmt.Errorf("create file: %w", models.ErrNoSource)
	}
	cp := *file
	cp.ID = uuid.New()
	cp.Derive()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	cp.Catalogs = f.bindAll(cp.ID, b.Catalogs, catalogBindings)
	cp.Categories = f.bindAll(cp.ID, b.Categories, categoryBindings)
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeFiles) FindByID(_ context.Context, id uuid.UUID) (*models.FileAttachment, error) {
	file, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFiles) List(_ context.Context, flt store.FileFilter) ([]models.FileAttachment, int, error) {
	var out []models.FileAttachment
	for _, file := range f.items {
		if flt.FileType != nil && file.FileType != *flt.FileType {
			continue
		}
		if flt.Catalog != nil && !hasBinding(file.Catalogs, *flt.Catalog) {
			continue
		}
		if flt.Category != nil && !hasBinding(file.Categories, *flt.Category) {
			continue
		}
		out = append(out, *file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortKey < out[j].SortKey })
	return paginate(out, flt.Page), len(out), nil
}

func (f *fakeFiles) listFor(id uuid.UUID, bindings func(*models.FileAttachment) []models.Binding) []models.FileAttachment {
	type ranked struct {
		file    models.FileAttachment
		ordinal int
	}
	var rs []ranked
	for _, file := range f.items {
		for _, b := range bindings(file) {
			if b.ID == id {
				rs = append(rs, ranked{*file, b.Ordinal})
			}
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].ordinal < rs[j].ordinal })
	out := make([]models.FileAttachment, len(rs))
	for i, r := range rs {
		out[i] = r.file
	}
	return out
}

func (f *fakeFiles) ListForCatalog(_ context.Context, id uuid.UUID) ([]models.FileAttachment, error) {
	return f.listFor(id, catalogBindings), nil
}

func (f *fakeFiles) ListForCategory(_ context.Context, id uuid.UUID) ([]models.FileAttachment, error) {
	return f.listFor(id, categoryBindings), nil
}

func (f *fakeFiles) Update(_ context.Context, file *models.FileAttachment, b *store.Bindings) (*models.FileAttachment, error) {
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	if _, ok := f.items[file.ID]; !ok {
		return nil, nil
	}
	cp := *file
	cp.Derive()
	cp.UpdatedAt = time.Now()
	if b != nil {
		cp.Catalogs = f.bindAll(cp.ID, b.Catalogs, catalogBindings)
		cp.Categories = f.bindAll(cp.ID, b.Categories, categoryBindings)
	}
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeFiles) SetThumb(_ context.Context, id uuid.UUID, key *string) error {
	if file, ok := f.items[id]; ok {
		file.ThumbKey = key
	}
	return nil
}

func (f *fakeFiles) Delete(_ context.Context, id uuid.UUID) (*models.FileAttachment, error) {
	file, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	delete(f.items, id)
	return file, nil
}

func hasBinding(bs []models.Binding, id uuid.UUID) bool {
	return slices.ContainsFunc(bs, func(b models.Binding) bool { return b.ID == id })
}

type fakeLibrary struct {
	items map[uuid.UUID]*models.LibraryFile
	files *fakeFiles
}

func (f *fakeLibrary) Create(_ context.Context, m *models.LibraryFile) (*models.LibraryFile, error) {
	cp := *m
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeLibrary) FindByID(_ context.Context, id uuid.UUID) (*models.LibraryFile, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeLibrary) List(_ context.Context, search string, page store.Page) ([]models.LibraryFile, int, error) {
	return f.list(search, page, func(models.LibraryFile) bool { return true })
}

func (f *fakeLibrary) ListUnattached(_ context.Context, search string, page store.Page) ([]models.LibraryFile, int, error) {
	return f.list(search, page, func(m models.LibraryFile) bool {
		for _, file := range f.files.items {
			if lib, ok := file.Source.(models.LibrarySource); ok && lib.LibraryFile.ID == m.ID {
				return false
			}
		}
		return true
	})
}

func (f *fakeLibrary) list(search string, page store.Page, keep func(models.LibraryFile) bool) ([]models.LibraryFile, int, error) {
	var out []models.LibraryFile
	for _, m := range f.items {
		if search != "" && !strings.Contains(strings.ToLower(m.OriginalName), strings.ToLower(search)) {
			continue
		}
		if keep(*m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalName < out[j].OriginalName })
	return paginate(out, page), len(out), nil
}

type fakeImporter struct {
	last   *importer.Request
	result *importer.Result
	err    error
}

func (f *fakeImporter) Import(_ context.Context, req importer.Request) (*importer.Result, error) {
	f.last = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeUsers struct {
	items     map[uuid.UUID]*models.User
	passwords map[uuid.UUID]string
}

func (f *fakeUsers) add(email, password string, staff bool) *models.User {
	u := &models.User{ID: uuid.New(), Email: email, DisplayName: email, IsStaff: staff, IsActive: true}
	f.items[u.ID] = u
	f.passwords[u.ID] = password
	return u
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.items {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	f.items[id].TOTPSecret = &secret
	return nil
}

func (f *fakeUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	f.items[id].TOTPEnabled = true
	return nil
}

func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return f.passwords[u.ID] == password
}

type fakeProfiles map[uuid.UUID]*models.Profile

func (f fakeProfiles) FindByUserID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakeProfiles) SetCompany(_ context.Context, id uuid.UUID, company *string) error {
	p, ok := f[id]
	if !ok {
		p = &models.Profile{UserID: id}
		f[id] = p
	}
	p.CompanyName = company
	return nil
}

type fakeTokens map[string]uuid.UUID

func (f fakeTokens) Save(_ context.Context, jti string, userID uuid.UUID, _ time.Duration) error {
	f[jti] = userID
	return nil
}

func (f fakeTokens) Consume(_ context.Context, jti string) (uuid.UUID, bool, error) {
	id, ok := f[jti]
	delete(f, jti)
	return id, ok, nil
}

func (f fakeTokens) Revoke(_ context.Context, jti string) error {
	delete(f, jti)
	return nil
}

type fakeTrees struct {
	bodies      map[uuid.UUID][]byte
	invalidated []uuid.UUID
}

func (f *fakeTrees) Get(_ context.Context, id uuid.UUID) ([]byte, bool) {
	b, ok := f.bodies[id]
	return b, ok
}

func (f *fakeTrees) Set(_ context.Context, id uuid.UUID, body []byte) {
	f.bodies[id] = body
}

func (f *fakeTrees) Invalidate(_ context.Context, ids ...uuid.UUID) {
	for _, id := range ids {
		delete(f.bodies, id)
		f.invalidated = append(f.invalidated, id)
	}
}

func paginate[T any](items []T, page store.Page) []T {
	if page.Size <= 0 {
		return items
	}
	start := (max(page.Number, 1) - 1) * page.Size
	if start >= len(items) {
		return nil
	}
	return items[start:min(start+page.Size, len(items))]
}

// --- Environment ---

type testEnv struct {
	t          *testing.T
	router     chi.Router
	api        *API
	catalogs   *fakeCatalogs
	categories *fakeCategories
	files      *fakeFiles
	library    *fakeLibrary
	importer   *fakeImporter
	users      *fakeUsers
	profiles   fakeProfiles
	tokens     fakeTokens
	trees      *fakeTrees
	storage    *storage.Local
	issuer     *auth.Issuer

	staff  *models.User
	editor *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	issuer, err := auth.NewIssuer("test-secret-0123456789abcdef", "catalogo-test", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	e := &testEnv{
		t:        t,
		catalogs: newFakeCatalogs(),
		files:    newFakeFiles(),
		importer: &fakeImporter{result: &importer.Result{Errors: []importer.ItemError{}, CreatedIDs: []uuid.UUID{}}},
		users:    &fakeUsers{items: map[uuid.UUID]*models.User{}, passwords: map[uuid.UUID]string{}},
		profiles: fakeProfiles{},
		tokens:   fakeTokens{},
		trees:    &fakeTrees{bodies: map[uuid.UUID][]byte{}},
		storage:  backend,
		issuer:   issuer,
	}
	e.categories = newFakeCategories(e.catalogs)
	e.library = &fakeLibrary{items: map[uuid.UUID]*models.LibraryFile{}, files: e.files}
	e.staff = e.users.add("staff@example.com", "staff-password", true)
	e.editor = e.users.add("editor@example.com", "editor-password", false)

	e.api = NewAPI(APIConfig{
		Catalogs:   e.catalogs,
		Categories: e.categories,
		Files:      e.files,
		Library:    e.library,
		Importer:   e.importer,
		Storage:    backend,
		Trees:      e.trees,
	})
	authH := NewAuth(e.users, e.profiles, e.tokens, issuer)
	media := NewMedia(backend)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(issuer))
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.Post("/auth/verify", authH.Verify)
		r.Post("/auth/logout", authH.Logout)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/auth/me", authH.Me)
			r.Patch("/auth/me", authH.UpdateMe)
			r.Get("/auth/2fa/setup", authH.TwoFASetup)
			r.Post("/auth/2fa/enable", authH.TwoFAEnable)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.ReadPolicy(true))
			r.Get("/catalogs", e.api.ListCatalogs)
			r.Post("/catalogs", e.api.CreateCatalog)
			r.Get("/catalogs/{id}", e.api.GetCatalog)
			r.Put("/catalogs/{id}", e.api.UpdateCatalog)
			r.Patch("/catalogs/{id}", e.api.UpdateCatalog)
			r.Delete("/catalogs/{id}", e.api.DeleteCatalog)
			r.Get("/catalogs/{id}/files", e.api.CatalogFiles)
			r.Get("/catalogs/{id}/tree", e.api.CatalogTree)
			r.Post("/catalogs/{id}/cover", e.api.UploadCover)

			r.Get("/categories", e.api.ListCategories)
			r.Post("/categories", e.api.CreateCategory)
			r.Get("/categories/{id}", e.api.GetCategory)
			r.Put("/categories/{id}", e.api.UpdateCategory)
			r.Patch("/categories/{id}", e.api.UpdateCategory)
			r.Delete("/categories/{id}", e.api.DeleteCategory)
			r.Get("/categories/{id}/path", e.api.CategoryPath)
			r.Get("/categories/{id}/files", e.api.CategoryFiles)

			r.Get("/files", e.api.ListFiles)
			r.Post("/files", e.api.CreateFile)
			r.Get("/files/{id}", e.api.GetFile)
			r.Put("/files/{id}", e.api.UpdateFile)
			r.Patch("/files/{id}", e.api.UpdateFile)
			r.Delete("/files/{id}", e.api.DeleteFile)

			r.Get("/library", e.api.ListLibrary)
			r.Post("/library", e.api.UploadLibrary)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStaff)
			r.Get("/admin/import/candidates", e.api.ImportCandidates)
			r.Post("/admin/import", e.api.Import)
		})
	})
	r.Get("/media/*", media.Serve)
	r.Head("/media/*", media.Serve)
	e.router = r
	return e
}

// token returns a fresh access token for u.
func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	pair, err := e.issuer.Issue(u)
	require.NoError(e.t, err)
	return pair.Access
}

// do sends a request with an optional JSON body as user (nil for
// anonymous). A string body is sent verbatim.
func (e *testEnv) do(method, target string, body any, user *models.User) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, user)
}

// formFile is one file part of a multipart request.
type formFile struct {
	field, name string
	data        []byte
}

// doMultipart sends a multipart/form-data request.
func (e *testEnv) doMultipart(method, target string, fields map[string][]string, files []formFile, user *models.User) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(e.t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(e.t, err)
		_, err = part.Write(f.data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req, user)
}

func (e *testEnv) send(req *http.Request, user *models.User) *httptest.ResponseRecorder {
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// exists reports whether key is present in the test storage.
func (e *testEnv) exists(key string) bool {
	obj, err := e.storage.Open(context.Background(), key)
	if err != nil {
		return false
	}
	obj.Close()
	return true
}

// seedCatalog inserts a catalog directly into the fake store.
func (e *testEnv) seedCatalog(name string) *models.Catalog {
	e.t.Helper()
	c, err := e.catalogs.Create(context.Background(), &models.Catalog{Names: models.Names{IT: name}, IsActive: true})
	require.NoError(e.t, err)
	return c
}

func (e *testEnv) seedCategory(catalog uuid.UUID, parent *uuid.UUID, names models.Names) *models.Category {
	e.t.Helper()
	c, err := e.categories.Create(context.Background(), &models.Category{CatalogID: catalog, ParentID: parent, Names: names, IsActive: true})
	require.NoError(e.t, err)
	return c
}

// seedLibrary stores data in the backend and registers it as a library file.
func (e *testEnv) seedLibrary(name, contentType string, data []byte) *models.LibraryFile {
	e.t.Helper()
	key := storage.NewKey("library", path.Ext(name), time.Now())
	require.NoError(e.t, e.storage.Put(context.Background(), key, contentType, bytes.NewReader(data), int64(len(data))))
	m, err := e.library.Create(context.Background(), &models.LibraryFile{
		OriginalName: name,
		StorageKey:   key,
		ContentType:  contentType,
		SizeBytes:    int64(len(data)),
	})
	require.NoError(e.t, err)
	return m
}

// listDir returns every regular file below root.
func listDir(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// pngBytes renders a w×h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 120, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
