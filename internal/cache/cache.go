// Package cache provides a namespaced key/value cache with TTL on top of
// Redis.
//
// Caching here is an optimization, never a correctness requirement: every
// backend failure degrades to cache-miss behavior (Get reports a miss, Set
// and Clear become no-ops) and is logged at warn level. Callers proceed as
// if nothing was cached.
//
// Keys are a deterministic hash of the normalized (trimmed, case-preserved)
// query combined with a logical namespace, so payloads of different kinds
// sharing the same query text never collide.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
)

// Namespaces for the payload kinds the pipeline caches.
const (
	// NamespaceContext holds search-backend results for a query.
	NamespaceContext = "context"

	// NamespaceVectors holds embedding+text pairs for a query.
	NamespaceVectors = "vectors"
)

const keyPrefix = "unipost"

// Client is the subset of redis.Client operations the store consumes.
// Defined by the consumer so tests can substitute a mock.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Store is a TTL cache over a Redis backend.
// Store is safe for concurrent use; operations are independent per key.
type Store struct {
	client Client
	logger log.Logger
}

// New creates a Store backed by the given client.
func New(client Client, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{client: client, logger: logger}
}

// Key builds the deterministic cache key for a namespace and query.
// The query is trimmed but case-preserved before hashing, so "Solar Energy"
// and "  Solar Energy " share an entry while "solar energy" does not.
func Key(namespace, query string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(query)))
	return keyPrefix + ":" + namespace + ":" + hex.EncodeToString(sum[:])[:16]
}

// Get returns the payload cached for the namespace/query pair.
// The second return value reports whether the entry was present; backend
// failures are reported as a miss.
func (s *Store) Get(ctx context.Context, namespace, query string) ([]byte, bool) {
	key := Key(namespace, query)

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache get failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	s.logger.Debug("cache hit", "namespace", namespace, "key", key)
	return payload, true
}

// Set stores the payload under the namespace/query pair with the given TTL.
// Backend failures are logged and swallowed.
func (s *Store) Set(ctx context.Context, namespace, query string, payload []byte, ttl time.Duration) {
	key := Key(namespace, query)

	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
		return
	}

	s.logger.Debug("cache set", "namespace", namespace, "key", key, "ttl", ttl)
}

// Clear removes all entries whose key matches the given pattern (glob
// syntax, relative to the store's key prefix, e.g. "context:*") and
// returns the number of entries removed. Backend failures end the sweep
// early and return the count removed so far.
func (s *Store) Clear(ctx context.Context, pattern string) int {
	match := keyPrefix + ":" + pattern
	removed := 0
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			s.logger.Warn("cache scan failed", "pattern", match, "error", err)
			return removed
		}

		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				s.logger.Warn("cache delete failed", "pattern", match, "error", err)
				return removed
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.logger.Debug("cache cleared", "pattern", match, "removed", removed)
	return removed
}

// Ping reports whether the cache backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
