// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage stores uploaded media behind a small Backend interface,
// with a local-filesystem implementation and an S3-compatible one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotExist is returned by Open when no object has the key.
	ErrNotExist = fs.ErrNotExist
	// ErrInvalidKey is returned for keys that are absolute, escape the
	// storage root, or contain NUL bytes.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Object is an open stored object. Close must be called.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Backend is a blob store addressed by slash-separated relative keys.
type Backend interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// CleanKey validates a root-relative key and returns its canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, 0) {
		return "", ErrInvalidKey
	}
	key = strings.ReplaceAll(key, `\`, "/")
	if strings.HasPrefix(key, "/") || (len(key) > 1 && key[1] == ':') {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", ErrInvalidKey
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// NewKey builds a unique key of the form prefix/YYYY/MM/uuid.ext.
func NewKey(prefix, ext string, now time.Time) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	name := uuid.New().String()
	if ext != "" {
		name += "." + ext
	}
	return fmt.Sprintf("%s/%d/%02d/%s", strings.Trim(prefix, "/"), now.Year(), now.Month(), name)
}

// ThumbKey derives the thumbnail key stored next to key.
func ThumbKey(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "_thumb.jpg"
}

// ReadAll loads a whole object into memory, up to limit bytes.
func ReadAll(ctx context.Context, b Backend, key string, limit int64) ([]byte, error) {
	obj, err := b.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("read %s: object larger than %d bytes", key, limit)
	}
	return data, nil
}
