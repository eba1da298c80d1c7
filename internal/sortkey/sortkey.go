// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sortkey derives natural-order sort keys from display names.
// The key is only ever used for ORDER BY; it is never shown or used as identity.
package sortkey

import (
	"regexp"
	"strings"
)

// Width is the zero-padded width of every digit run.
const Width = 10

var digits = regexp.MustCompile(`\d+`)

// Normalize lower-cases name and left-pads every maximal run of digits to
// Width characters, so plain string comparison sorts "item 2" before "item 10".
// Runs already Width digits or longer are kept as they are.
// Example: "Perle 02" → "perle 0000000002"
func Normalize(name string) string {
	padded := digits.ReplaceAllStringFunc(name, func(run string) string {
		if len(run) >= Width {
			return run
		}
		return strings.Repeat("0", Width-len(run)) + run
	})
	return strings.ToLower(padded)
}
