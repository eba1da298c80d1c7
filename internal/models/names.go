// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the derived values computed from them.
package models

import "strings"

// Lang is a supported display language code.
type Lang string

const (
	LangIT Lang = "it" // primary, mandatory
	LangEN Lang = "en"
	LangFR Lang = "fr"
	LangES Lang = "es"
)

// Languages lists every supported language, primary first.
var Languages = []Lang{LangIT, LangEN, LangFR, LangES}

// ParseLang returns the language for code, or LangIT if it is not supported.
func ParseLang(code string) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range Languages {
		if string(l) == code {
			return l
		}
	}
	return LangIT
}

// missingName is returned when even the primary name is blank.
const missingName = "N/D"

// Names holds one display name per language. Only IT is mandatory; the
// others are empty when not translated.
type Names struct {
	IT string `json:"name_it" validate:"required,max=200"`
	EN string `json:"name_en" validate:"max=200"`
	FR string `json:"name_fr" validate:"max=200"`
	ES string `json:"name_es" validate:"max=200"`
}

// Get returns the name in lang, falling back to the primary language.
func (n Names) Get(lang Lang) string {
	var v string
	switch lang {
	case LangEN:
		v = n.EN
	case LangFR:
		v = n.FR
	case LangES:
		v = n.ES
	}
	if strings.TrimSpace(v) != "" {
		return v
	}
	if strings.TrimSpace(n.IT) != "" {
		return n.IT
	}
	return missingName
}

// String returns the primary-language name.
func (n Names) String() string {
	return n.Get(LangIT)
}
