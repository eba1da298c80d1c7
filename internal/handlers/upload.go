// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"catalogo/internal/imaging"
	"catalogo/internal/storage"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temp files.
const multipartMemory = 32 << 20

// upload is one file read from a multipart request.
type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// stored is the result of writing an upload to the backend.
type stored struct {
	Key      string
	ThumbKey *string
}

// isMultipart reports whether r carries a multipart/form-data body.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart bounds the body and parses the form.
func (a *API) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if a.storage == nil {
		return errNoStorage
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errTooLarge
		}
		return &httpError{http.StatusBadRequest, "malformed multipart body"}
	}
	return nil
}

// readUpload reads the named file field. The content type is sniffed from
// the first bytes and falls back to the extension for generic results.
func (a *API) readUpload(r *http.Request, field string) (*upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, newValidationError(map[string]string{field: "no file provided"})
	}
	defer file.Close()

	if header.Size > a.maxUpload {
		return nil, errTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, a.maxUpload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > a.maxUpload {
		return nil, errTooLarge
	}
	if len(data) == 0 {
		return nil, newValidationError(map[string]string{field: "the file is empty"})
	}

	name := path.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	contentType := http.DetectContentType(data[:min(512, len(data))])
	if generic(contentType) {
		if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" {
			contentType = byExt
		}
	}
	if ct, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = ct
	}
	return &upload{Name: name, ContentType: contentType, Data: data}, nil
}

func generic(contentType string) bool {
	return strings.HasPrefix(contentType, "application/octet-stream") ||
		strings.HasPrefix(contentType, "text/plain") ||
		strings.HasPrefix(contentType, "text/xml") ||
		strings.HasPrefix(contentType, "application/zip")
}

// storeUpload writes u under prefix and, when thumb is set and u is an
// image, a thumbnail next to it. Thumbnail failures are logged and leave
// ThumbKey nil.
func (a *API) storeUpload(ctx context.Context, prefix string, u *upload, thumb bool) (*stored, error) {
	key := storage.NewKey(prefix, path.Ext(u.Name), a.now())
	if err := a.storage.Put(ctx, key, u.ContentType, bytes.NewReader(u.Data), int64(len(u.Data))); err != nil {
		return nil, err
	}

	out := &stored{Key: key}
	if thumb && imaging.IsImage(u.ContentType) {
		out.ThumbKey = a.storeThumb(ctx, storage.ThumbKey(key), u.Data)
	}
	return out, nil
}

// storeThumb generates and writes a thumbnail under key. It returns nil
// when no thumbnail is needed or anything fails.
func (a *API) storeThumb(ctx context.Context, key string, src []byte) *string {
	thumb, err := imaging.Thumbnail(src, imaging.ThumbWidth)
	if err != nil {
		slog.Warn("thumbnail generation failed", "key", key, "error", err)
		return nil
	}
	if thumb == nil {
		return nil
	}
	if err := a.storage.Put(ctx, key, imaging.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
		slog.Warn("thumbnail upload failed", "key", key, "error", err)
		return nil
	}
	return &key
}

// removeObjects deletes storage objects best-effort.
func (a *API) removeObjects(ctx context.Context, keys ...*string) {
	if a.storage == nil {
		return
	}
	for _, k := range keys {
		if k == nil || *k == "" {
			continue
		}
		if err := a.storage.Delete(ctx, *k); err != nil {
			slog.Warn("storage cleanup failed", "key", *k, "error", err)
		}
	}
}
