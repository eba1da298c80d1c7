// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Catalog is the top-level grouping of categories and root-level files.
type Catalog struct {
	ID uuid.UUID `json:"id"`
	Names
	Slug       string     `json:"slug"`
	CoverImage *string    `json:"-"` // storage key
	CoverThumb *string    `json:"-"` // storage key of the generated thumbnail
	SortOrder  int        `json:"sort_order"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	CreatedBy  *uuid.UUID `json:"created_by"`
	UpdatedAt  time.Time  `json:"updated_at"`
	UpdatedBy  *uuid.UUID `json:"updated_by"`
}
