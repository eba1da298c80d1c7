// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"catalogo/internal/database"
	"catalogo/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "catalogo")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "catalogo")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// cleanCatalog removes a catalog together with everything hanging off it:
// file bindings, the files themselves, and its categories deepest first.
func cleanCatalog(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()
	db.Exec(`DELETE FROM files WHERE id IN (
		SELECT file_id FROM catalog_files WHERE catalog_id = $1
		UNION
		SELECT gf.file_id FROM category_files gf JOIN categories c ON c.id = gf.category_id WHERE c.catalog_id = $1)`, id)
	for {
		res, err := db.Exec(`DELETE FROM categories c WHERE c.catalog_id = $1
			AND NOT EXISTS (SELECT 1 FROM categories ch WHERE ch.parent_id = c.id)`, id)
		if err != nil {
			break
		}
		if n, _ := res.RowsAffected(); n == 0 {
			break
		}
	}
	db.Exec("DELETE FROM catalogs WHERE id = $1", id)
}

// cleanLibrary removes library files by storage key, detaching files first.
func cleanLibrary(t *testing.T, db *sql.DB, keys ...string) {
	t.Helper()
	for _, key := range keys {
		db.Exec("DELETE FROM files WHERE library_file_id IN (SELECT id FROM library_files WHERE storage_key = $1)", key)
		db.Exec("DELETE FROM library_files WHERE storage_key = $1", key)
	}
}

// newCatalog creates a throwaway catalog with a unique name.
func newCatalog(t *testing.T, db *sql.DB, name string) *models.Catalog {
	t.Helper()
	c, err := NewCatalogStore(db).Create(context.Background(), &models.Catalog{
		Names:    models.Names{IT: name + " " + uuid.NewString()[:8]},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create catalog: %v", err)
	}
	t.Cleanup(func() { cleanCatalog(t, db, c.ID) })
	return c
}

// newCategory creates a category under catalog (and parent, if non-nil).
func newCategory(t *testing.T, db *sql.DB, catalog uuid.UUID, parent *uuid.UUID, name string) *models.Category {
	t.Helper()
	c, err := NewCategoryStore(db).Create(context.Background(), &models.Category{
		CatalogID: catalog,
		ParentID:  parent,
		Names:     models.Names{IT: name},
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}
