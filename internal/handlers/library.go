// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"catalogo/internal/models"
)

// maxFolderLen matches the library_files.folder column.
const maxFolderLen = 255

// libraryView is the JSON representation of a library file.
type libraryView struct {
	*models.LibraryFile
	URL       *string `json:"url"`
	HumanSize string  `json:"size"`
}

func (a *API) libraryView(lf *models.LibraryFile) libraryView {
	key := lf.StorageKey
	return libraryView{LibraryFile: lf, URL: a.fileURL(&key), HumanSize: lf.HumanSize()}
}

func (a *API) libraryViews(items []models.LibraryFile) []libraryView {
	views := make([]libraryView, len(items))
	for i := range items {
		views[i] = a.libraryView(&items[i])
	}
	return views
}

// ListLibrary handles GET /api/library.
func (a *API) ListLibrary(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	search, page := p.str("search"), p.page()
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	items, count, err := a.library.List(r.Context(), search, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageBody(a.libraryViews(items), count, page))
}

// UploadLibrary handles POST /api/library (multipart "file", optional
// "folder").
func (a *API) UploadLibrary(w http.ResponseWriter, r *http.Request) {
	if err := a.parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	folder := strings.Trim(strings.TrimSpace(r.FormValue("folder")), "/")
	if len(folder) > maxFolderLen {
		writeError(w, r, newValidationError(map[string]string{"folder": "at most 255 characters"}))
		return
	}
	u, err := a.readUpload(r, "file")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	saved, err := a.storeUpload(ctx, "library", u, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := a.library.Create(ctx, &models.LibraryFile{
		OriginalName: u.Name,
		StorageKey:   saved.Key,
		ContentType:  u.ContentType,
		SizeBytes:    int64(len(u.Data)),
		Folder:       folder,
		UploadedBy:   actor(r),
	})
	if err != nil {
		a.removeObjects(ctx, &saved.Key)
		writeError(w, r, err)
		return
	}
	slog.Info("library file uploaded", "id", created.ID, "key", created.StorageKey, "size", created.SizeBytes)
	writeJSON(w, http.StatusCreated, a.libraryView(created))
}

// ImportCandidates handles GET /api/admin/import/candidates: library files
// that no attachment references yet.
func (a *API) ImportCandidates(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	search, page := p.str("search"), p.page()
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	items, count, err := a.library.ListUnattached(r.Context(), search, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageBody(a.libraryViews(items), count, page))
}
