// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached category trees.
	treeKeyPrefix = "tree:"

	// DefaultTreeTTL is how long a serialized tree stays cached.
	DefaultTreeTTL = 10 * time.Minute
)

// TreeCache keeps the JSON rendering of each catalog's category tree.
// Errors are logged and treated as misses; the database stays the source
// of truth.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a tree cache backed by the given Valkey client.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// TreeKey returns the cache key for a catalog's tree.
func TreeKey(catalogID uuid.UUID) string {
	return treeKeyPrefix + catalogID.String()
}

// Get returns the cached tree for a catalog.
func (tc *TreeCache) Get(ctx context.Context, catalogID uuid.UUID) ([]byte, bool) {
	val, err := tc.client.Get(ctx, TreeKey(catalogID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("tree cache get error", "catalog", catalogID, "error", err)
		return nil, false
	}
	return val, true
}

// Set stores a serialized tree with the configured TTL.
func (tc *TreeCache) Set(ctx context.Context, catalogID uuid.UUID, body []byte) {
	if err := tc.client.Set(ctx, TreeKey(catalogID), body, tc.ttl).Err(); err != nil {
		slog.Warn("tree cache set error", "catalog", catalogID, "error", err)
	}
}

// Invalidate drops the cached trees of the given catalogs.
func (tc *TreeCache) Invalidate(ctx context.Context, catalogIDs ...uuid.UUID) {
	if len(catalogIDs) == 0 {
		return
	}
	keys := make([]string, len(catalogIDs))
	for i, id := range catalogIDs {
		keys[i] = TreeKey(id)
	}
	if err := tc.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("tree cache invalidate error", "catalogs", catalogIDs, "error", err)
	}
}
