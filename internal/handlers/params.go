// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/models"
	"catalogo/internal/store"
)

// params collects query-string parse failures so one response can report
// every bad parameter.
type params struct {
	q      url.Values
	errors map[string]string
}

func newParams(q url.Values) *params {
	return &params{q: q, errors: map[string]string{}}
}

func (p *params) fail(key, msg string) {
	p.errors[key] = msg
}

// err returns a validationError when any parameter failed to parse.
func (p *params) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return newValidationError(p.errors)
}

func (p *params) str(key string) string {
	return strings.TrimSpace(p.q.Get(key))
}

func (p *params) boolean(key string) *bool {
	raw := strings.ToLower(p.str(key))
	if raw == "" {
		return nil
	}
	var v bool
	switch raw {
	case "true", "1", "yes":
		v = true
	case "false", "0", "no":
		v = false
	default:
		p.fail(key, "must be true or false")
		return nil
	}
	return &v
}

func (p *params) integer(key string, fallback int) int {
	raw := p.str(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, "must be an integer")
		return fallback
	}
	return n
}

func (p *params) id(key string) *uuid.UUID {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.fail(key, "must be a UUID")
		return nil
	}
	return &id
}

// date accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func (p *params) date(key string) *time.Time {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	p.fail(key, "must be a date (YYYY-MM-DD)")
	return nil
}

func (p *params) page() store.Page {
	return store.NewPage(p.integer("page", 1), p.integer("page_size", store.DefaultPageSize))
}

func (p *params) lang() models.Lang {
	return models.ParseLang(p.str("lang"))
}

// common reads the filters shared by every list endpoint.
func (p *params) common() store.Common {
	return store.Common{
		Search:        p.str("search"),
		IsActive:      p.boolean("is_active"),
		CreatedAfter:  p.date("created_after"),
		CreatedBefore: p.date("created_before"),
		Ordering:      p.str("ordering"),
		Page:          p.page(),
	}
}

func catalogFilter(q url.Values) (store.CatalogFilter, error) {
	p := newParams(q)
	f := store.CatalogFilter{Common: p.common()}
	return f, p.err()
}

func categoryFilter(q url.Values) (store.CategoryFilter, error) {
	p := newParams(q)
	f := store.CategoryFilter{
		Common:    p.common(),
		Catalog:   p.id("catalog"),
		Parent:    p.id("parent"),
		HasParent: p.boolean("has_parent"),
	}
	return f, p.err()
}

func fileFilter(q url.Values) (store.FileFilter, error) {
	p := newParams(q)
	f := store.FileFilter{
		Common:   p.common(),
		Catalog:  p.id("catalog"),
		Category: p.id("category"),
	}
	if raw := p.str("file_type"); raw != "" {
		ft, ok := models.ParseFileType(raw)
		if !ok {
			p.fail("file_type", "unknown file type")
		} else {
			f.FileType = &ft
		}
	}
	return f, p.err()
}
