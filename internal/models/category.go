// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in a per-catalog tree. Root categories have no parent.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	CatalogID uuid.UUID  `json:"catalog"`
	ParentID  *uuid.UUID `json:"parent"`
	Names
	Slug      string     `json:"slug"`
	SortOrder int        `json:"sort_order"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy *uuid.UUID `json:"created_by"`
	UpdatedAt time.Time  `json:"updated_at"`
	UpdatedBy *uuid.UUID `json:"updated_by"`

	// Virtual fields populated by store methods.
	CatalogName string     `json:"catalog_name"`
	ParentName  *string    `json:"parent_name"`
	Children    []Category `json:"children,omitempty"`
	Depth       int        `json:"depth"`
}

// IsRoot reports whether the category sits directly under its catalog.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
