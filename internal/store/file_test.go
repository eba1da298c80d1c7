// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"catalogo/internal/models"
)

func intPtr(n int) *int { return &n }

func uploadSource(name string) models.UploadSource {
	return models.UploadSource{StoredFile: models.StoredFile{
		Key:         "files/test/" + uuid.NewString()[:8] + "/" + name,
		Name:        name,
		ContentType: "image/jpeg",
		SizeBytes:   512,
	}}
}

func TestFileStoreCreateDerivesFields(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)
	ctx := context.Background()

	cat := newCatalog(t, db, "File")
	f, err := s.Create(ctx, &models.FileAttachment{
		Name:     "Perle 02",
		Source:   uploadSource("perle.JPG"),
		FileType: models.FileTypePDF, // ignored: always derived
		SortKey:  "bogus",
		IsActive: true,
	}, Bindings{Catalogs: []Attach{{ID: cat.ID, Ordinal: intPtr(3)}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if f.FileType != models.FileTypeImage {
		t.Errorf("file type: got %q, want image", f.FileType)
	}
	if f.SortKey != "perle 0000000002" {
		t.Errorf("sort key: got %q", f.SortKey)
	}
	if f.Source.Kind() != models.SourceUpload {
		t.Errorf("source kind: got %q", f.Source.Kind())
	}
	if len(f.Catalogs) != 1 || f.Catalogs[0].Ordinal != 3 || f.Catalogs[0].ID != cat.ID {
		t.Errorf("catalog bindings: got %+v", f.Catalogs)
	}
}

func TestFileStoreLibrarySource(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)
	ctx := context.Background()

	lib := newLibraryFile(t, db, "listino.xlsx")
	cat := newCatalog(t, db, "Listini")

	f, err := s.Create(ctx, &models.FileAttachment{
		Name:   "Listino",
		Source: models.LibrarySource{LibraryFile: *lib},
	}, Bindings{Catalogs: []Attach{{ID: cat.ID}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sf, err := f.EffectiveFile()
	if err != nil {
		t.Fatalf("EffectiveFile: %v", err)
	}
	if sf.Key != lib.StorageKey {
		t.Errorf("effective key: got %q, want %q", sf.Key, lib.StorageKey)
	}
	if f.FileType != models.FileTypeSpreadsheet {
		t.Errorf("file type: got %q, want spreadsheet", f.FileType)
	}
}

func TestFileStoreRejectsMissingSource(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)

	_, err := s.Create(context.Background(), &models.FileAttachment{Name: "nothing"}, Bindings{})
	if !errors.Is(err, models.ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestFileStoreOrdinalsAndListing(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)
	ctx := context.Background()

	cat := newCatalog(t, db, "Ordine")
	cg := newCategory(t, db, cat.ID, nil, "Ordinata")

	var ids []uuid.UUID
	for _, name := range []string{"primo.pdf", "secondo.pdf", "terzo.pdf"} {
		f, err := s.Create(ctx, &models.FileAttachment{Name: name, Source: uploadSource(name)},
			Bindings{Catalogs: []Attach{{ID: cat.ID}}, Categories: []Attach{{ID: cg.ID}}})
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		ids = append(ids, f.ID)
	}

	got, err := s.ListForCatalog(ctx, cat.ID)
	if err != nil {
		t.Fatalf("ListForCatalog: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("catalog files: got %d, want 3", len(got))
	}
	for i, f := range got {
		if f.ID != ids[i] || f.Catalogs[0].Ordinal != i {
			t.Errorf("position %d: got %s ordinal %d", i, f.ID, f.Catalogs[0].Ordinal)
		}
	}

	// Move the last file to the front of the category.
	last := got[2]
	_, err = s.Update(ctx, &last, &Bindings{
		Catalogs:   []Attach{{ID: cat.ID, Ordinal: intPtr(2)}},
		Categories: []Attach{{ID: cg.ID, Ordinal: intPtr(-1)}},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	inCat, err := s.ListForCategory(ctx, cg.ID)
	if err != nil {
		t.Fatalf("ListForCategory: %v", err)
	}
	if inCat[0].ID != last.ID {
		t.Errorf("first in category: got %s, want %s", inCat[0].ID, last.ID)
	}

	ft := models.FileTypePDF
	_, count, err := s.List(ctx, FileFilter{FileType: &ft, Category: &cg.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if count != 3 {
		t.Errorf("filtered count: got %d, want 3", count)
	}
}

func TestFileStoreUpdateKeepsBindingsWhenNil(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)
	ctx := context.Background()

	cat := newCatalog(t, db, "Legami")
	f, err := s.Create(ctx, &models.FileAttachment{Name: "a.png", Source: uploadSource("a.png")},
		Bindings{Catalogs: []Attach{{ID: cat.ID}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.Name = "Rinominato 10"
	updated, err := s.Update(ctx, f, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.Catalogs) != 1 {
		t.Errorf("bindings dropped: got %+v", updated.Catalogs)
	}
	if updated.SortKey != "rinominato 0000000010" {
		t.Errorf("sort key not re-derived: %q", updated.SortKey)
	}

	missing := *f
	missing.ID = uuid.New()
	if got, err := s.Update(ctx, &missing, nil); err != nil || got != nil {
		t.Errorf("missing file: got %v, %v", got, err)
	}
}

func TestFileStoreBindMissingContainer(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)

	_, err := s.Create(context.Background(), &models.FileAttachment{Name: "x.pdf", Source: uploadSource("x.pdf")},
		Bindings{Categories: []Attach{{ID: uuid.New()}}})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreDeleteCascadesBindings(t *testing.T) {
	db := testDB(t)
	s := NewFileStore(db)
	ctx := context.Background()

	cat := newCatalog(t, db, "Cancella")
	f, err := s.Create(ctx, &models.FileAttachment{Name: "b.pdf", Source: uploadSource("b.pdf")},
		Bindings{Catalogs: []Attach{{ID: cat.ID}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	deleted, err := s.Delete(ctx, f.ID)
	if err != nil || deleted == nil {
		t.Fatalf("Delete: %v, %v", deleted, err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM catalog_files WHERE file_id = $1`, f.ID).Scan(&n)
	if n != 0 {
		t.Errorf("bindings left behind: %d", n)
	}

	// With the binding gone the catalog can be deleted.
	if _, err := NewCatalogStore(db).Delete(ctx, cat.ID); err != nil {
		t.Errorf("catalog delete after file removal: %v", err)
	}
}
