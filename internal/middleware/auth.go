// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"catalogo/internal/auth"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// ClaimsKey is the context key for the verified access token claims.
	ClaimsKey contextKey = "claims"
)

// Verifier checks a bearer access token and returns its claims.
type Verifier interface {
	Verify(token string, kind auth.Kind) (*auth.Claims, error)
}

// Authenticate verifies the Authorization header when one is present and
// stores the claims in the request context. A request without the header
// passes through unauthenticated; a request with a bad token is rejected
// with 401 before any handler runs.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(header, auth.KindAccess)
			if err != nil {
				slog.Debug("rejected access token", "path", r.URL.Path, "error", err)
				unauthorized(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth returns 401 when no verified claims are in the context.
// Must be applied after Authenticate in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromCtx(r.Context()) == nil {
			unauthorized(w, auth.ErrMissingToken.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff returns 403 if the authenticated user is not staff.
// Must be applied after RequireAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromCtx(r.Context())
		if claims == nil {
			unauthorized(w, auth.ErrMissingToken.Error())
			return
		}
		if !claims.Staff {
			writeJSONError(w, http.StatusForbidden, "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ReadPolicy lets safe methods through unauthenticated when public reads
// are enabled and requires a token for everything else.
func ReadPolicy(publicReads bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := RequireAuth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicReads && isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromCtx extracts the verified claims from the request context.
// Returns nil if the request is not authenticated.
func ClaimsFromCtx(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeJSONError(w, http.StatusUnauthorized, msg)
}
