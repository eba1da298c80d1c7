// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"catalogo/internal/storage"
)

// Media serves stored objects behind the API's auth policy.
type Media struct {
	storage storage.Backend
}

// NewMedia creates the media download handler.
func NewMedia(backend storage.Backend) *Media {
	return &Media{storage: backend}
}

// Serve handles GET /media/*. Keys that are absolute, contain NUL bytes or
// escape the storage root are answered with 404, the same as missing
// objects.
func (m *Media) Serve(w http.ResponseWriter, r *http.Request) {
	if m.storage == nil {
		writeError(w, r, errNoStorage)
		return
	}

	key, err := storage.CleanKey(chi.URLParam(r, "*"))
	if err != nil {
		slog.Warn("media key rejected", "raw", chi.URLParam(r, "*"), "remote", r.RemoteAddr)
		writeError(w, r, errNotFound)
		return
	}

	obj, err := m.storage.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
		writeError(w, r, errNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer obj.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if rs, ok := obj.ReadCloser.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), obj.ModTime, rs)
		return
	}

	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		w.Header().Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj); err != nil {
		slog.Warn("media stream interrupted", "key", key, "error", err)
	}
}
