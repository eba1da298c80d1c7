// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"catalogo/internal/models"
	"catalogo/internal/store"
)

// optionalID distinguishes an absent JSON field from an explicit null.
type optionalID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// categoryInput is the create/update body for categories. Sending
// "parent": null moves the category to the root of its catalog; sending
// "slug": "" re-derives the slug under the current parent.
type categoryInput struct {
	namesInput
	Catalog   *uuid.UUID `json:"catalog"`
	Parent    optionalID `json:"parent"`
	Slug      *string    `json:"slug" validate:"omitempty,max=100,slug"`
	SortOrder *int       `json:"sort_order" validate:"omitempty,min=0"`
	IsActive  *bool      `json:"is_active"`
}

func (in categoryInput) apply(c *models.Category, partial bool) error {
	if err := checkStruct(in); err != nil {
		return err
	}
	if !partial && in.Catalog == nil {
		return newValidationError(map[string]string{"catalog": "this field is required"})
	}
	if err := in.namesInput.apply(&c.Names, partial); err != nil {
		return err
	}
	if in.Catalog != nil {
		c.CatalogID = *in.Catalog
	}
	if in.Parent.Set || !partial {
		c.ParentID = in.Parent.Value
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

// categoryView is the JSON representation of a category.
type categoryView struct {
	*models.Category
	FullPath []string `json:"full_path"`
}

// categoryViews pairs categories with their full paths in lang.
func (a *API) categoryViews(r *http.Request, items []models.Category, lang models.Lang) ([]categoryView, error) {
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	paths, err := a.categories.FullPaths(r.Context(), ids, lang)
	if err != nil {
		return nil, err
	}

	views := make([]categoryView, len(items))
	for i := range items {
		p := paths[items[i].ID]
		if p == nil {
			p = []string{}
		}
		views[i] = categoryView{Category: &items[i], FullPath: p}
	}
	return views, nil
}

func (a *API) categoryView(r *http.Request, c *models.Category, lang models.Lang) (categoryView, error) {
	views, err := a.categoryViews(r, []models.Category{*c}, lang)
	if err != nil {
		return categoryView{}, err
	}
	return views[0], nil
}

// ListCategories handles GET /api/categories.
func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	f, err := categoryFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, count, err := a.categories.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := a.categoryViews(r, items, newParams(r.URL.Query()).lang())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageBody(views, count, f.Page))
}

// CreateCategory handles POST /api/categories.
func (a *API) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c := &models.Category{IsActive: true}
	if err := in.apply(c, false); err != nil {
		writeError(w, r, err)
		return
	}
	c.CreatedBy = actor(r)
	c.UpdatedBy = c.CreatedBy

	created, err := a.categories.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.trees.Invalidate(r.Context(), created.CatalogID)
	slog.Info("category created", "id", created.ID, "slug", created.Slug)

	view, err := a.categoryView(r, created, models.LangIT)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetCategory handles GET /api/categories/{id}.
func (a *API) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCategory(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := a.categoryView(r, c, newParams(r.URL.Query()).lang())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateCategory handles PUT and PATCH /api/categories/{id}. A new parent
// that would create a cycle or lives in another catalog is rejected
// with 400.
func (a *API) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCategory(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	previousCatalog := c.CatalogID

	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := in.apply(c, r.Method == http.MethodPatch); err != nil {
		writeError(w, r, err)
		return
	}
	c.UpdatedBy = actor(r)

	updated, err := a.categories.Update(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, r, errNotFound)
		return
	}
	a.trees.Invalidate(r.Context(), previousCatalog, updated.CatalogID)

	view, err := a.categoryView(r, updated, models.LangIT)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteCategory handles DELETE /api/categories/{id}. Deletion is refused
// with 409 while sub-categories or files reference the category.
func (a *API) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCategory(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = a.categories.Delete(r.Context(), c.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, errNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.trees.Invalidate(r.Context(), c.CatalogID)
	slog.Info("category deleted", "id", c.ID)
	w.WriteHeader(http.StatusNoContent)
}

// CategoryPath handles GET /api/categories/{id}/path?lang=.
func (a *API) CategoryPath(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lang := newParams(r.URL.Query()).lang()

	path, err := a.categories.FullPath(r.Context(), id, lang)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if path == nil {
		writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"lang":      lang,
		"full_path": path,
	})
}

// CategoryFiles handles GET /api/categories/{id}/files in ordinal order.
func (a *API) CategoryFiles(w http.ResponseWriter, r *http.Request) {
	c, err := a.loadCategory(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	files, err := a.files.ListForCategory(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.fileViews(files))
}

func (a *API) loadCategory(r *http.Request) (*models.Category, error) {
	id, err := urlID(r)
	if err != nil {
		return nil, err
	}
	c, err := a.categories.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errNotFound
	}
	return c, nil
}
