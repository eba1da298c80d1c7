// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/models"
)

// Pagination bounds.
const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// Page selects one page of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number and size into valid bounds.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) limit() int {
	if p.Size < 1 {
		return DefaultPageSize
	}
	return min(p.Size, MaxPageSize)
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.limit()
}

// Common holds the filters shared by every listing.
type Common struct {
	Search        string
	IsActive      *bool
	CreatedAfter  *time.Time // inclusive, compared by calendar day
	CreatedBefore *time.Time // inclusive, compared by calendar day
	Ordering      string     // comma-separated fields, "-" prefix for descending
	Page          Page
}

// CatalogFilter narrows CatalogStore.List.
type CatalogFilter struct {
	Common
}

// CategoryFilter narrows CategoryStore.List.
type CategoryFilter struct {
	Common
	Catalog   *uuid.UUID
	Parent    *uuid.UUID
	HasParent *bool
}

// FileFilter narrows FileStore.List.
type FileFilter struct {
	Common
	FileType *models.FileType
	Catalog  *uuid.UUID
	Category *uuid.UUID
}

// where accumulates AND-ed SQL conditions. Each "?" in a clause is
// replaced by the next positional parameter.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// arg appends a value and returns its placeholder, for LIMIT/OFFSET.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// common applies the shared filters. searchCols are OR-ed with ILIKE.
func (w *where) common(c Common, table string, searchCols ...string) {
	if s := strings.TrimSpace(c.Search); s != "" && len(searchCols) > 0 {
		pattern := "%" + escapeLike(s) + "%"
		ors := make([]string, len(searchCols))
		for i, col := range searchCols {
			ors[i] = table + "." + col + " ILIKE ?"
		}
		clause := "(" + strings.Join(ors, " OR ") + ")"
		args := make([]any, len(searchCols))
		for i := range args {
			args[i] = pattern
		}
		w.add(clause, args...)
	}
	if c.IsActive != nil {
		w.add(table+".is_active = ?", *c.IsActive)
	}
	if c.CreatedAfter != nil {
		w.add(table+".created_at >= ?", startOfDay(*c.CreatedAfter))
	}
	if c.CreatedBefore != nil {
		w.add(table+".created_at < ?", startOfDay(*c.CreatedBefore).AddDate(0, 0, 1))
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderBy turns a client ordering string into an ORDER BY clause. Only
// fields in allowed (client name → SQL expression) are honoured; unknown
// fields are ignored. fallback is used when nothing valid remains, and
// tie is always appended so pages are deterministic.
func orderBy(raw string, allowed map[string]string, fallback, tie string) string {
	var parts []string
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if col, ok := allowed[field]; ok {
			parts = append(parts, col+" "+dir)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fallback)
	}
	return " ORDER BY " + strings.Join(parts, ", ") + ", " + tie
}

// idStrings converts ids for use with "= ANY($n::uuid[])".
func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
