// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/imaging"
	"catalogo/internal/models"
	"catalogo/internal/storage"
	"catalogo/internal/store"
)

// maxThumbSource caps how much of a library object is read to build a
// thumbnail.
const maxThumbSource = 25 << 20

var errNameRequired = newValidationError(map[string]string{"name": "this field is required"})

// bindingInput places a file in one container. A missing ordinal appends.
type bindingInput struct {
	ID      uuid.UUID `json:"id"`
	Ordinal *int      `json:"ordinal"`
}

// fileInput is the JSON create/update body for files. Binding lists that
// are omitted are left unchanged on update; sending [] clears them.
type fileInput struct {
	Name          *string         `json:"name" validate:"omitempty,max=255"`
	LibraryFileID *uuid.UUID      `json:"library_file_id"`
	IsActive      *bool           `json:"is_active"`
	Catalogs      *[]bindingInput `json:"catalogs"`
	Categories    *[]bindingInput `json:"categories"`
}

// bindings converts the sent binding lists. It returns nil when neither
// list was sent.
func (in fileInput) bindings(existing *models.FileAttachment) (*store.Bindings, error) {
	if in.Catalogs == nil && in.Categories == nil {
		return nil, nil
	}
	b := &store.Bindings{}
	if existing != nil {
		b.Catalogs = attachments(existing.Catalogs)
		b.Categories = attachments(existing.Categories)
	}
	var err error
	if in.Catalogs != nil {
		if b.Catalogs, err = convertBindings("catalogs", *in.Catalogs); err != nil {
			return nil, err
		}
	}
	if in.Categories != nil {
		if b.Categories, err = convertBindings("categories", *in.Categories); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func convertBindings(field string, in []bindingInput) ([]store.Attach, error) {
	out := make([]store.Attach, 0, len(in))
	for i, bi := range in {
		if bi.ID == uuid.Nil {
			return nil, newValidationError(map[string]string{fmt.Sprintf("%s[%d].id", field, i): "this field is required"})
		}
		if bi.Ordinal != nil && *bi.Ordinal < 0 {
			return nil, newValidationError(map[string]string{fmt.Sprintf("%s[%d].ordinal", field, i): "at least 0"})
		}
		out = append(out, store.Attach{ID: bi.ID, Ordinal: bi.Ordinal})
	}
	return out, nil
}

// attachments keeps the current ordinals of existing bindings.
func attachments(bs []models.Binding) []store.Attach {
	out := make([]store.Attach, len(bs))
	for i, b := range bs {
		ord := b.Ordinal
		out[i] = store.Attach{ID: b.ID, Ordinal: &ord}
	}
	return out
}

// formBindings parses repeated "id" or "id:ordinal" multipart values.
func formBindings(field string, values []string) ([]store.Attach, error) {
	var in []bindingInput
	for _, raw := range values {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			idPart, ordPart, hasOrd := strings.Cut(item, ":")
			id, err := uuid.Parse(idPart)
			if err != nil {
				return nil, newValidationError(map[string]string{field: "must be a list of UUIDs"})
			}
			bi := bindingInput{ID: id}
			if hasOrd {
				n, err := strconv.Atoi(ordPart)
				if err != nil {
					return nil, newValidationError(map[string]string{field: "ordinal must be an integer"})
				}
				bi.Ordinal = &n
			}
			in = append(in, bi)
		}
	}
	return convertBindings(field, in)
}

// fileView is the JSON representation of a file attachment.
type fileView struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Source        models.SourceKind `json:"source"`
	LibraryFileID *uuid.UUID        `json:"library_file_id"`
	FileURL       *string           `json:"file_url"`
	FileName      string            `json:"file_name"`
	Extension     string            `json:"extension"`
	FileType      models.FileType   `json:"file_type"`
	SortKey       string            `json:"sort_key"`
	ThumbnailURL  *string           `json:"thumbnail_url"`
	IsActive      bool              `json:"is_active"`
	CreatedAt     time.Time         `json:"created_at"`
	CreatedBy     *uuid.UUID        `json:"created_by"`
	UpdatedAt     time.Time         `json:"updated_at"`
	UpdatedBy     *uuid.UUID        `json:"updated_by"`
	Catalogs      []models.Binding  `json:"catalogs"`
	Categories    []models.Binding  `json:"categories"`
}

func (a *API) fileView(f *models.FileAttachment) fileView {
	v := fileView{
		ID:           f.ID,
		Name:         f.Name,
		FileName:     f.FileName(),
		Extension:    f.Extension(),
		FileType:     f.FileType,
		SortKey:      f.SortKey,
		ThumbnailURL: a.fileURL(f.ThumbKey),
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		CreatedBy:    f.CreatedBy,
		UpdatedAt:    f.UpdatedAt,
		UpdatedBy:    f.UpdatedBy,
		Catalogs:     f.Catalogs,
		Categories:   f.Categories,
	}
	if f.Source != nil {
		v.Source = f.Source.Kind()
		key := f.Source.File().Key
		v.FileURL = a.fileURL(&key)
		if lib, ok := f.Source.(models.LibrarySource); ok {
			id := lib.LibraryFile.ID
			v.LibraryFileID = &id
		}
	}
	if v.Catalogs == nil {
		v.Catalogs = []models.Binding{}
	}
	if v.Categories == nil {
		v.Categories = []models.Binding{}
	}
	return v
}

func (a *API) fileViews(files []models.FileAttachment) []fileView {
	views := make([]fileView, len(files))
	for i := range files {
		views[i] = a.fileView(&files[i])
	}
	return views
}

// ListFiles handles GET /api/files.
func (a *API) ListFiles(w http.ResponseWriter, r *http.Request) {
	f, err := fileFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, count, err := a.files.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageBody(a.fileViews(items), count, f.Page))
}

// CreateFile handles POST /api/files. A JSON body references a library
// file through library_file_id; a multipart body uploads the file directly.
func (a *API) CreateFile(w http.ResponseWriter, r *http.Request) {
	var (
		f   *models.FileAttachment
		b   *store.Bindings
		err error
	)
	if isMultipart(r) {
		f, b, err = a.fileFromForm(w, r, nil, false)
	} else {
		f, b, err = a.fileFromJSON(w, r, nil, false)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.CreatedBy = actor(r)
	f.UpdatedBy = f.CreatedBy
	if b == nil {
		b = &store.Bindings{}
	}

	created, err := a.files.Create(r.Context(), f, *b)
	if err != nil {
		a.discardUpload(r.Context(), f, nil)
		writeError(w, r, err)
		return
	}
	slog.Info("file created", "id", created.ID, "source", created.Source.Kind(), "type", created.FileType)
	writeJSON(w, http.StatusCreated, a.fileView(created))
}

// GetFile handles GET /api/files/{id}.
func (a *API) GetFile(w http.ResponseWriter, r *http.Request) {
	f, err := a.loadFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.fileView(f))
}

// UpdateFile handles PUT and PATCH /api/files/{id}. A multipart body
// replaces the file with a new upload. PUT must carry the name, as the
// catalog and category endpoints require theirs; the source and omitted
// binding lists are kept on both methods.
func (a *API) UpdateFile(w http.ResponseWriter, r *http.Request) {
	existing, err := a.loadFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	before := *existing
	full := r.Method == http.MethodPut

	var (
		f *models.FileAttachment
		b *store.Bindings
	)
	if isMultipart(r) {
		f, b, err = a.fileFromForm(w, r, existing, full)
	} else {
		f, b, err = a.fileFromJSON(w, r, existing, full)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.UpdatedBy = actor(r)

	updated, err := a.files.Update(r.Context(), f, b)
	if err != nil {
		a.discardUpload(r.Context(), f, &before)
		writeError(w, r, err)
		return
	}
	if updated == nil {
		a.discardUpload(r.Context(), f, &before)
		writeError(w, r, errNotFound)
		return
	}
	// The previous upload and thumbnail are orphaned once replaced.
	a.discardUpload(r.Context(), &before, updated)
	writeJSON(w, http.StatusOK, a.fileView(updated))
}

// DeleteFile handles DELETE /api/files/{id}. Bindings cascade; uploaded
// objects are removed best-effort.
func (a *API) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := a.files.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if deleted == nil {
		writeError(w, r, errNotFound)
		return
	}
	a.discardUpload(r.Context(), deleted, nil)
	slog.Info("file deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// fileFromJSON applies a JSON body to existing (nil for create). full
// requires the name to be sent.
func (a *API) fileFromJSON(w http.ResponseWriter, r *http.Request, existing *models.FileAttachment, full bool) (*models.FileAttachment, *store.Bindings, error) {
	var in fileInput
	if err := decodeJSON(w, r, &in); err != nil {
		return nil, nil, err
	}
	if err := checkStruct(in); err != nil {
		return nil, nil, err
	}
	if full && in.Name == nil {
		return nil, nil, errNameRequired
	}

	f := &models.FileAttachment{IsActive: true}
	if existing != nil {
		clone := *existing
		f = &clone
	}

	switch {
	case in.LibraryFileID != nil:
		src, err := a.librarySource(r.Context(), *in.LibraryFileID)
		if err != nil {
			return nil, nil, err
		}
		changed := existing == nil || existing.Source == nil || existing.Source.Kind() != models.SourceLibrary ||
			existing.Source.File().Key != src.File().Key
		f.Source = src
		if changed {
			f.ThumbKey = a.libraryThumb(r.Context(), src.LibraryFile)
		}
		if in.Name == nil && existing == nil {
			f.Name = src.LibraryFile.OriginalName
		}
	case existing == nil:
		return nil, nil, newValidationError(map[string]string{"library_file_id": "this field is required, or upload a file as multipart/form-data"})
	}

	if in.Name != nil {
		f.Name = strings.TrimSpace(*in.Name)
	}
	if strings.TrimSpace(f.Name) == "" {
		return nil, nil, newValidationError(map[string]string{"name": "may not be blank"})
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}

	b, err := in.bindings(existing)
	if err != nil {
		return nil, nil, err
	}
	return f, b, nil
}

// fileFromForm applies a multipart body to existing (nil for create). The
// "file" part is required on create and optional on update; full requires
// the name field.
func (a *API) fileFromForm(w http.ResponseWriter, r *http.Request, existing *models.FileAttachment, full bool) (*models.FileAttachment, *store.Bindings, error) {
	if err := a.parseMultipart(w, r); err != nil {
		return nil, nil, err
	}
	if full && strings.TrimSpace(r.FormValue("name")) == "" {
		return nil, nil, errNameRequired
	}

	f := &models.FileAttachment{IsActive: true}
	if existing != nil {
		clone := *existing
		f = &clone
	}

	form := r.MultipartForm
	if name := strings.TrimSpace(r.FormValue("name")); name != "" {
		f.Name = name
	}
	if raw := r.FormValue("is_active"); raw != "" {
		p := newParams(form.Value)
		if v := p.boolean("is_active"); v != nil {
			f.IsActive = *v
		}
		if err := p.err(); err != nil {
			return nil, nil, err
		}
	}

	var b *store.Bindings
	catalogs, sentCatalogs := form.Value["catalogs"]
	categories, sentCategories := form.Value["categories"]
	if sentCatalogs || sentCategories {
		b = &store.Bindings{}
		if existing != nil {
			b.Catalogs = attachments(existing.Catalogs)
			b.Categories = attachments(existing.Categories)
		}
		var err error
		if sentCatalogs {
			if b.Catalogs, err = formBindings("catalogs", catalogs); err != nil {
				return nil, nil, err
			}
		}
		if sentCategories {
			if b.Categories, err = formBindings("categories", categories); err != nil {
				return nil, nil, err
			}
		}
	}

	if len(form.File["file"]) > 0 || existing == nil {
		u, err := a.readUpload(r, "file")
		if err != nil {
			return nil, nil, err
		}
		if f.Name == "" {
			f.Name = u.Name
		}
		saved, err := a.storeUpload(r.Context(), "files", u, true)
		if err != nil {
			return nil, nil, err
		}
		f.Source = models.UploadSource{StoredFile: models.StoredFile{
			Key:         saved.Key,
			Name:        u.Name,
			ContentType: u.ContentType,
			SizeBytes:   int64(len(u.Data)),
		}}
		f.ThumbKey = saved.ThumbKey
	}

	if strings.TrimSpace(f.Name) == "" {
		a.discardUpload(r.Context(), f, existing)
		return nil, nil, newValidationError(map[string]string{"name": "may not be blank"})
	}
	return f, b, nil
}

func (a *API) librarySource(ctx context.Context, id uuid.UUID) (models.LibrarySource, error) {
	lf, err := a.library.FindByID(ctx, id)
	if err != nil {
		return models.LibrarySource{}, err
	}
	if lf == nil {
		return models.LibrarySource{}, newValidationError(map[string]string{"library_file_id": "library file not found"})
	}
	return models.LibrarySource{LibraryFile: *lf}, nil
}

// libraryThumb builds a thumbnail for an image library file. The thumbnail
// belongs to the attachment, so it gets its own key.
func (a *API) libraryThumb(ctx context.Context, lf models.LibraryFile) *string {
	if a.storage == nil || !imaging.IsImage(lf.ContentType) {
		return nil
	}
	data, err := storage.ReadAll(ctx, a.storage, lf.StorageKey, maxThumbSource)
	if err != nil {
		slog.Warn("read library file for thumbnail failed", "library_file_id", lf.ID, "error", err)
		return nil
	}
	return a.storeThumb(ctx, storage.NewKey("files/thumbs", "jpg", a.now()), data)
}

// discardUpload removes the objects f owns that keep does not reference:
// the uploaded blob (library blobs are never touched) and the thumbnail.
func (a *API) discardUpload(ctx context.Context, f, keep *models.FileAttachment) {
	var keepUpload, keepThumb string
	if keep != nil {
		if up, ok := keep.Source.(models.UploadSource); ok {
			keepUpload = up.Key
		}
		if keep.ThumbKey != nil {
			keepThumb = *keep.ThumbKey
		}
	}

	var keys []*string
	if up, ok := f.Source.(models.UploadSource); ok && up.Key != keepUpload {
		k := up.Key
		keys = append(keys, &k)
	}
	if f.ThumbKey != nil && *f.ThumbKey != keepThumb {
		keys = append(keys, f.ThumbKey)
	}
	a.removeObjects(ctx, keys...)
}

func (a *API) loadFile(r *http.Request) (*models.FileAttachment, error) {
	id, err := urlID(r)
	if err != nil {
		return nil, err
	}
	f, err := a.files.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errNotFound
	}
	return f, nil
}
