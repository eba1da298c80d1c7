// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LibraryFile is a file owned by the external media library. Attachments
// can reference it instead of carrying their own upload.
type LibraryFile struct {
	ID           uuid.UUID  `json:"id"`
	OriginalName string     `json:"original_name"`
	StorageKey   string     `json:"-"`
	ContentType  string     `json:"content_type"`
	SizeBytes    int64      `json:"size_bytes"`
	Folder       string     `json:"folder"`
	UploadedBy   *uuid.UUID `json:"uploaded_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsImage returns true if the library file is an image type.
func (f *LibraryFile) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// HumanSize returns a human-readable file size string.
func (f *LibraryFile) HumanSize() string {
	return humanSize(f.SizeBytes)
}

func humanSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.0f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
