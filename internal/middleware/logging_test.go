package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"catalogo/internal/auth"
)

// captureLogs redirects the default slog logger into a buffer for the
// duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	return entry
}

func TestLogger(t *testing.T) {
	t.Run("records status and size", func(t *testing.T) {
		buf := captureLogs(t)
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":1}`))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/catalogs", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Errorf("status: got %d, want 201", rr.Code)
		}
		entry := lastLogLine(t, buf)
		if entry["level"] != "INFO" {
			t.Errorf("level: got %v, want INFO", entry["level"])
		}
		if entry["status"] != float64(http.StatusCreated) {
			t.Errorf("status attr: got %v", entry["status"])
		}
		if entry["bytes"] != float64(8) {
			t.Errorf("bytes attr: got %v, want 8", entry["bytes"])
		}
		if entry["path"] != "/api/catalogs" {
			t.Errorf("path attr: got %v", entry["path"])
		}
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		buf := captureLogs(t)
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

		if got := lastLogLine(t, buf)["level"]; got != "ERROR" {
			t.Errorf("level: got %v, want ERROR", got)
		}
	})

	t.Run("includes request id and user", func(t *testing.T) {
		buf := captureLogs(t)
		claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
		handler := chimw.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

		req := httptest.NewRequest(http.MethodDelete, "/api/files/1", nil)
		req = req.WithContext(WithClaims(req.Context(), claims))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		entry := lastLogLine(t, buf)
		if id, _ := entry["request_id"].(string); id == "" {
			t.Error("expected request_id attr")
		}
		if entry["user"] != "user-1" {
			t.Errorf("user attr: got %v", entry["user"])
		}
	})

	t.Run("handles write without explicit WriteHeader", func(t *testing.T) {
		captureLogs(t)
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rr.Code)
		}
		if rr.Body.String() != "hello" {
			t.Errorf("body: got %q, want %q", rr.Body.String(), "hello")
		}
	})
}

// TestResponseWriter tests the responseWriter wrapper used by the Logger
// middleware to verify it correctly captures status codes.
func TestResponseWriter(t *testing.T) {
	t.Run("WriteHeader only captures first call", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusNotFound)
		rw.WriteHeader(http.StatusInternalServerError) // Should be ignored.

		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode: got %d, want 404 (first call)", rw.statusCode)
		}
	})

	t.Run("Write counts bytes", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.Write([]byte("test"))
		rw.Write([]byte("ing"))

		if rw.bytes != 7 {
			t.Errorf("bytes: got %d, want 7", rw.bytes)
		}
		if !rw.written {
			t.Error("written should be true after Write")
		}
	})

	t.Run("Unwrap returns the inner writer", func(t *testing.T) {
		rr := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: rr}
		if rw.Unwrap() != rr {
			t.Error("Unwrap should return the wrapped writer")
		}
	})
}

func TestWriteJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONError(rr, http.StatusForbidden, "nope")

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "nope" {
		t.Errorf("error: got %q", body["error"])
	}
}
