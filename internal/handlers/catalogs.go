// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"catalogo/internal/imaging"
	"catalogo/internal/models"
	"catalogo/internal/store"
)

// namesInput is the writable multilingual name set. Pointers tell a PATCH
// which languages were sent.
type namesInput struct {
	NameIT *string `json:"name_it" validate:"omitempty,max=200"`
	NameEN *string `json:"name_en" validate:"omitempty,max=200"`
	NameFR *string `json:"name_fr" validate:"omitempty,max=200"`
	NameES *string `json:"name_es" validate:"omitempty,max=200"`
}

// apply copies the sent names onto n. Create and full update require the
// primary language.
func (in namesInput) apply(n *models.Names, partial bool) error {
	if !partial && (in.NameIT == nil || strings.TrimSpace(*in.NameIT) == "") {
		return newValidationError(map[string]string{"name_it": "this field is required"})
	}
	if in.NameIT != nil {
		if strings.TrimSpace(*in.NameIT) == "" {
			return newValidationError(map[string]string{"name_it": "may not be blank"})
		}
		n.IT = strings.TrimSpace(*in.NameIT)
	}
	for _, p := range []struct {
		src *string
		dst *string
	}{{in.NameEN, &n.EN}, {in.NameFR, &n.FR}, {in.NameES, &n.ES}} {
		if p.src != nil {
			*p.dst = strings.TrimSpace(*p.src)
		}
	}
	return nil
}

// errSlugReadOnly rejects client-chosen slugs. Slugs are derived on the
// server; sending "" asks for a fresh one.
var errSlugReadOnly = newValidationError(map[string]string{"slug": `is assigned automatically; send "" to regenerate it`})

// catalogInput is the create/update body for catalogs. An empty slug asks
// for it to be derived again from name_it.
type catalogInput struct {
	namesInput
	Slug      *string `json:"slug" validate:"omitempty,max=100,slug"`
	SortOrder *int    `json:"sort_order" validate:"omitempty,min=0"`
	IsActive  *bool   `json:"is_active"`
}

func (in catalogInput) apply(c *models.Catalog, partial bool) error {
	if err := checkStruct(in); err != nil {
		return err
	}
	if err := in.namesInput.apply(&c.Names, partial); err != nil {
		return err
	}
	if in.Slug != nil {
		if *in.Slug != "" {
			return errSlugReadOnly
		}
		c.Slug = ""
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

// catalogView is the JSON representation of a catalog.
type catalogView struct {
	*models.Catalog
	CoverImage *string `json:"cover_image"`
	CoverThumb *string `json:"cover_thumb"`
}

func (a *API) catalogView(c *models.Catalog) catalogView {
	return catalogView{
		Catalog:    c,
		CoverImage: a.fileURL(c.CoverImage),
		CoverThumb: a.fileURL(c.CoverThumb),
	}
}

// ListCatalogs handles GET /api/catalogs.
func (a *API) ListCatalogs(w http.ResponseWriter, r *http.Request) {
	f, err := catalogFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, count, err := a.catalogs.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]catalogView, len(items))
	for i := range items {
		views[i] = a.catalogView(&items[i])
	}
	writeJSON(w, http.StatusOK, newPageBody(views, count, f.Page))
}

// CreateCatalog handles POST /api/catalogs.
func (a *API) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	var in catalogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c := &models.Catalog{IsActive: true}
	if err := in.apply(c, false); err != nil {
		writeError(w, r, err)
		return
	}
	c.CreatedBy = actor(r)
	c.UpdatedBy = c.CreatedBy

	created, err := a.catalogs.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("catalog created", "id", created.ID, "slug", created.Slug)
	writeJSON(w, http.StatusCreated, a.catalogView(created))
}

// GetCatalog handles GET /api/catalogs/{id}.
func (a *API) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCatalog(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.catalogView(c))
}

// UpdateCatalog handles PUT and PATCH /api/catalogs/{id}.
func (a *API) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCatalog(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in catalogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.apply(c, r.Method == http.MethodPatch); err != nil {
		writeError(w, r, err)
		return
	}
	c.UpdatedBy = actor(r)

	updated, err := a.catalogs.Update(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, r, errNotFound)
		return
	}
	// Category nodes carry the catalog name.
	a.trees.Invalidate(r.Context(), updated.ID)
	writeJSON(w, http.StatusOK, a.catalogView(updated))
}

// DeleteCatalog handles DELETE /api/catalogs/{id}. Deletion is refused
// with 409 while categories or files still reference the catalog.
func (a *API) DeleteCatalog(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	deleted, err := a.catalogs.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, errNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	a.removeObjects(r.Context(), deleted.CoverImage, deleted.CoverThumb)
	a.trees.Invalidate(r.Context(), id)
	slog.Info("catalog deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// CatalogFiles handles GET /api/catalogs/{id}/files: the catalog's
// root-level files in ordinal order.
func (a *API) CatalogFiles(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCatalog(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	files, err := a.files.ListForCatalog(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.fileViews(files))
}

// CatalogTree handles GET /api/catalogs/{id}/tree. The rendered tree is
// cached per catalog until a category or catalog write invalidates it.
func (a *API) CatalogTree(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCatalog(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if body, ok := a.trees.Get(r.Context(), c.ID); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(body)
		return
	}

	tree, err := a.categories.Tree(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tree == nil {
		tree = []models.Category{}
	}
	body, err := json.Marshal(tree)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.trees.Set(r.Context(), c.ID, body)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(body)
}

// UploadCover handles POST /api/catalogs/{id}/cover (multipart "file").
// The previous cover and thumbnail are removed after the swap.
func (a *API) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := a.readUpload(r, "file")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !imaging.IsImage(u.ContentType) {
		writeError(w, r, newValidationError(map[string]string{"file": "the cover must be an image"}))
		return
	}

	ctx := r.Context()
	saved, err := a.storeUpload(ctx, "catalogs", u, true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	oldImage, oldThumb, err := a.catalogs.SetCover(ctx, id, &saved.Key, saved.ThumbKey)
	if err != nil {
		a.removeObjects(ctx, &saved.Key, saved.ThumbKey)
		if errors.Is(err, store.ErrNotFound) {
			err = errNotFound
		}
		writeError(w, r, err)
		return
	}
	a.removeObjects(ctx, oldImage, oldThumb)

	c, err := a.catalogs.FindByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.catalogView(c))
}

func (a *API) loadCatalog(r *http.Request) (*models.Catalog, error) {
	id, err := urlID(r)
	if err != nil {
		return nil, err
	}
	c, err := a.catalogs.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errNotFound
	}
	return c, nil
}
