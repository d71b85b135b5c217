// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// gallery.go caches the public gallery listing in Valkey, keyed by the
// category and search filter. Entries are short-lived and are dropped as a
// whole whenever a moderation action changes what the gallery shows.
// Counters in cached entries may lag by up to the TTL.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"themegallery/internal/models"
)

const (
	// galleryKeyPrefix is the Valkey key prefix for cached listings.
	galleryKeyPrefix = "gallery:"

	// DefaultGalleryTTL is how long a listing stays cached.
	DefaultGalleryTTL = time.Minute
)

// GalleryCache stores approved theme listings in Valkey. A nil
// *GalleryCache is valid and behaves as an always-missing cache.
type GalleryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGalleryCache creates a gallery cache backed by the given Valkey client.
// A non-positive ttl falls back to DefaultGalleryTTL so keys always expire.
func NewGalleryCache(client *redis.Client, ttl time.Duration) *GalleryCache {
	if ttl <= 0 {
		ttl = DefaultGalleryTTL
	}
	return &GalleryCache{client: client, ttl: ttl}
}

// GalleryKey returns the cache key for a category and search filter.
func GalleryKey(category, search string) string {
	h := xxhash.New()
	h.WriteString(category)
	h.WriteString("\x00")
	h.WriteString(search)
	return galleryKeyPrefix + strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the cached listing for the filter, if any.
func (gc *GalleryCache) Get(ctx context.Context, category, search string) ([]models.Theme, bool) {
	if gc == nil {
		return nil, false
	}
	key := GalleryKey(category, search)
	val, err := gc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("gallery cache get error", "key", key, "error", err)
		return nil, false
	}

	var themes []models.Theme
	if err := json.Unmarshal(val, &themes); err != nil {
		slog.Warn("gallery cache decode error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("gallery cache hit", "key", key)
	return themes, true
}

// Set stores a listing for the filter with the configured TTL.
func (gc *GalleryCache) Set(ctx context.Context, category, search string, themes []models.Theme) {
	if gc == nil {
		return
	}
	key := GalleryKey(category, search)
	payload, err := json.Marshal(themes)
	if err != nil {
		slog.Warn("gallery cache encode error", "key", key, "error", err)
		return
	}
	if err := gc.client.Set(ctx, key, payload, gc.ttl).Err(); err != nil {
		slog.Warn("gallery cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached listing by scanning for the prefix.
func (gc *GalleryCache) InvalidateAll(ctx context.Context) {
	if gc == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := gc.client.Scan(ctx, cursor, galleryKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("gallery cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := gc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("gallery cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("gallery cache cleared", "deleted", deleted)
	}
}
