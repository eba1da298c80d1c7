// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/sortkey"
)

// FileType is the coarse classification of an attachment, derived from
// its file extension.
type FileType string

const (
	FileTypeImage        FileType = "image"
	FileTypeVideo        FileType = "video"
	FileTypeDocument     FileType = "document"
	FileTypeSpreadsheet  FileType = "spreadsheet"
	FileTypePresentation FileType = "presentation"
	FileTypePDF          FileType = "pdf"
	FileTypeOther        FileType = "other"
)

// FileTypes lists every classification value.
var FileTypes = []FileType{
	FileTypeImage, FileTypeVideo, FileTypeDocument, FileTypeSpreadsheet,
	FileTypePresentation, FileTypePDF, FileTypeOther,
}

var extensionTypes = map[string]FileType{
	"jpg": FileTypeImage, "jpeg": FileTypeImage, "png": FileTypeImage,
	"gif": FileTypeImage, "webp": FileTypeImage, "bmp": FileTypeImage,
	"svg": FileTypeImage, "tif": FileTypeImage, "tiff": FileTypeImage,

	"mp4": FileTypeVideo, "mov": FileTypeVideo, "avi": FileTypeVideo,
	"mkv": FileTypeVideo, "webm": FileTypeVideo, "wmv": FileTypeVideo,

	"doc": FileTypeDocument, "docx": FileTypeDocument, "odt": FileTypeDocument,
	"rtf": FileTypeDocument, "txt": FileTypeDocument,

	"xls": FileTypeSpreadsheet, "xlsx": FileTypeSpreadsheet,
	"ods": FileTypeSpreadsheet, "csv": FileTypeSpreadsheet,

	"ppt": FileTypePresentation, "pptx": FileTypePresentation,
	"odp": FileTypePresentation,

	"pdf": FileTypePDF,
}

// Classify maps a file extension (with or without the leading dot, any
// case) to its FileType. Unknown extensions are FileTypeOther.
func Classify(ext string) FileType {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return FileTypeOther
}

// ParseFileType returns the FileType named s and whether it is valid.
func ParseFileType(s string) (FileType, bool) {
	for _, t := range FileTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// SourceKind tags which variant a Source is.
type SourceKind string

const (
	SourceUpload  SourceKind = "upload"
	SourceLibrary SourceKind = "library"
)

// StoredFile is the resolved blob behind an attachment.
type StoredFile struct {
	Key         string // storage key, relative to the media root
	Name        string // original file name
	ContentType string
	SizeBytes   int64
}

// Source is where an attachment's file lives. It is a closed variant:
// exactly one of UploadSource or LibrarySource.
type Source interface {
	Kind() SourceKind
	File() StoredFile
	isSource()
}

// UploadSource is a file uploaded directly for this attachment.
type UploadSource struct {
	StoredFile
}

func (UploadSource) Kind() SourceKind   { return SourceUpload }
func (s UploadSource) File() StoredFile { return s.StoredFile }
func (UploadSource) isSource()          {}

// LibrarySource references a file owned by the external media library.
type LibrarySource struct {
	LibraryFile LibraryFile
}

func (LibrarySource) Kind() SourceKind { return SourceLibrary }
func (s LibrarySource) File() StoredFile {
	return StoredFile{
		Key:         s.LibraryFile.StorageKey,
		Name:        s.LibraryFile.OriginalName,
		ContentType: s.LibraryFile.ContentType,
		SizeBytes:   s.LibraryFile.SizeBytes,
	}
}
func (LibrarySource) isSource() {}

// ErrNoSource is returned when an attachment has no file source.
var ErrNoSource = errors.New("file attachment has no source")

// Binding is one ordered association between an attachment and a catalog
// or category. Ordinal is scoped to that pair, not to the file.
type Binding struct {
	ID      uuid.UUID `json:"id"`
	Ordinal int       `json:"ordinal"`
	Name    string    `json:"name,omitempty"`
}

// FileAttachment is one logical uploaded file, attachable to many catalogs
// (at their root level) and many categories.
type FileAttachment struct {
	ID        uuid.UUID
	Name      string
	Source    Source
	FileType  FileType // derived, see Derive
	SortKey   string   // derived, see Derive
	ThumbKey  *string
	IsActive  bool
	CreatedAt time.Time
	CreatedBy *uuid.UUID
	UpdatedAt time.Time
	UpdatedBy *uuid.UUID

	Catalogs   []Binding
	Categories []Binding
}

// EffectiveFile returns the blob of whichever source is set.
func (f *FileAttachment) EffectiveFile() (StoredFile, error) {
	if f.Source == nil {
		return StoredFile{}, ErrNoSource
	}
	return f.Source.File(), nil
}

// FileName returns the base name of the effective file, or "" without a source.
func (f *FileAttachment) FileName() string {
	sf, err := f.EffectiveFile()
	if err != nil {
		return ""
	}
	switch {
	case sf.Name != "":
		return path.Base(sf.Name)
	case sf.Key != "":
		return path.Base(sf.Key)
	}
	return ""
}

// Extension returns the lower-case extension of the effective file,
// without the dot.
func (f *FileAttachment) Extension() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(f.FileName()), "."))
}

// Derive recomputes FileType and SortKey. Stores call it on every save so
// the derived columns never come from caller input.
func (f *FileAttachment) Derive() {
	f.FileType = Classify(f.Extension())
	f.SortKey = sortkey.Normalize(f.Name)
}
