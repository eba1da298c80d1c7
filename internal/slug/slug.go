// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and a collision-suffixing probe for unique slugs.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLen caps a single generated fragment. Joined category slugs may be longer.
const MaxLen = 100

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, whitespace or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// separators collapses runs of whitespace and hyphens into one hyphen.
	separators = regexp.MustCompile(`[\s-]+`)
)

// Generate creates a URL-friendly slug from the given string.
// Accented letters are folded to ASCII; anything else outside [a-z0-9-] is dropped.
// Example: "Perlé & Cristalli 2026" → "perle-cristalli-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(fold(s)))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > MaxLen {
		result = strings.Trim(result[:MaxLen], "-")
	}
	return result
}

// fold decomposes s (NFKD) and keeps only ASCII runes, so "è" becomes "e".
func fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fragment returns Generate(label), or placeholder when the label has no
// slug-able characters at all.
func Fragment(label, placeholder string) string {
	if s := Generate(label); s != "" {
		return s
	}
	return placeholder
}

// Join builds a child slug under a parent slug. An empty parent yields the
// fragment unchanged.
func Join(parent, fragment string) string {
	if parent == "" {
		return fragment
	}
	return parent + "-" + fragment
}

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique probes base and then base-1, base-2, … until exists reports a free
// candidate. The probe is best-effort: callers still rely on the storage
// uniqueness constraint at commit.
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	taken, err := exists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("slug probe %q: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug probe %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
}
