// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"catalogo/internal/auth"
	"catalogo/internal/importer"
	"catalogo/internal/middleware"
	"catalogo/internal/models"
	"catalogo/internal/storage"
	"catalogo/internal/store"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// httpError is an error that already knows its response status.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

var (
	errNotFound         = &httpError{http.StatusNotFound, "not found"}
	errInvalidID        = &httpError{http.StatusBadRequest, "invalid id"}
	errTooLarge         = &httpError{http.StatusRequestEntityTooLarge, "upload too large"}
	errNoStorage        = &httpError{http.StatusServiceUnavailable, "media storage is not configured"}
	errBadJSON          = &httpError{http.StatusBadRequest, "malformed JSON body"}
	errUnsupportedMedia = &httpError{http.StatusUnsupportedMediaType, "unsupported content type"}
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Retry  bool              `json:"retry,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeError maps err onto a status code and writes the JSON error body.
// Unexpected errors are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		herr *httpError
		verr *validationError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Fields: verr.fields})
	case errors.As(err, &herr):
		writeJSON(w, herr.status, errorBody{Error: herr.msg})
	case errors.Is(err, store.ErrSlugTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: store.ErrSlugTaken.Error(), Retry: true})
	case errors.Is(err, store.ErrHasDependents):
		writeJSON(w, http.StatusConflict, errorBody{Error: store.ErrHasDependents.Error()})
	case errors.Is(err, store.ErrCycle),
		errors.Is(err, store.ErrInvalidParent),
		errors.Is(err, store.ErrSlugFixed),
		errors.Is(err, store.ErrSlugPrefix),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, models.ErrNoSource),
		errors.Is(err, storage.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: rootMessage(err)})
	case errors.Is(err, importer.ErrNoTarget),
		errors.Is(err, importer.ErrNoFiles),
		errors.Is(err, importer.ErrUnknownCatalog),
		errors.Is(err, importer.ErrUnknownCategory),
		errors.Is(err, importer.ErrTargetMismatch):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongKind):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: rootMessage(err)})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// rootMessage strips the "verb noun: " wrapping added by the stores.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errTooLarge
		case errors.Is(err, io.EOF):
			return errBadJSON
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return newValidationError(map[string]string{field: "unknown field"})
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return newValidationError(map[string]string{typeErr.Field: "invalid value"})
		}
		return errBadJSON
	}
	return nil
}

// urlID parses the {id} route parameter.
func urlID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// actor returns the authenticated user's id, or nil for anonymous reads.
func actor(r *http.Request) *uuid.UUID {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		return nil
	}
	id, err := claims.UserID()
	if err != nil {
		return nil
	}
	return &id
}

// pageBody is the paginated list envelope.
type pageBody[T any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

func newPageBody[T any](results []T, count int, page store.Page) pageBody[T] {
	if results == nil {
		results = []T{}
	}
	return pageBody[T]{Count: count, Page: page.Number, PageSize: page.Size, Results: results}
}
