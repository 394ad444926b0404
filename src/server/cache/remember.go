package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Remember serves key from s when present, otherwise computes the value,
// stores it for ttl and returns it. Cache errors are logged and treated as a
// miss. A nil s disables caching.
//
// Concurrent misses on the same key may all compute; the last Set wins.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if s != nil {
		raw, ok, err := s.Get(ctx, key)
		switch {
		case err != nil:
			slog.Warn("Cache read failed", "key", key, "error", err)
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			slog.Warn("Cache entry undecodable, recomputing", "key", key)
		}
	}

	v, err := compute(ctx)
	if err != nil || s == nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Cache encode failed", "key", key, "error", err)
		return v, nil
	}
	if err := s.Set(ctx, key, raw, ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
	return v, nil
}
