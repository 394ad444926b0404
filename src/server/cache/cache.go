// Package cache is the request-scoped read cache in front of the store:
// a pluggable key/value Store, the key naming scheme, the invalidation
// policy applied after writes and a fail-open read-through helper.
package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is a TTL key/value store that supports glob deletion.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. The bool is false on a miss or when the entry expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching the glob and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	// Optimize applies memory-policy tuning to the backing store.
	Optimize(ctx context.Context) error
}

type Stats struct {
	ConnectedClients  int64  `json:"connected_clients"`
	UsedMemory        string `json:"used_memory"`
	KeyspaceHits      int64  `json:"keyspace_hits"`
	KeyspaceMisses    int64  `json:"keyspace_misses"`
	CommandsProcessed int64  `json:"total_commands_processed"`
}

// HitRate is the percentage of lookups that hit, rounded to two decimals.
// It is 0 when there has been no lookup at all.
func HitRate(s Stats) float64 {
	total := s.KeyspaceHits + s.KeyspaceMisses
	if total == 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(s.KeyspaceHits).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2).
		Float64()
	return rate
}

// TTLs holds the lifetime of each cached view family.
type TTLs struct {
	Default   time.Duration `mapstructure:"default"`
	Subjects  time.Duration `mapstructure:"subjects"`
	Chapters  time.Duration `mapstructure:"chapters"`
	Quizzes   time.Duration `mapstructure:"quizzes"`
	Questions time.Duration `mapstructure:"questions"`
	Charts    time.Duration `mapstructure:"charts"`
	UserData  time.Duration `mapstructure:"user_data"`
	Search    time.Duration `mapstructure:"search"`
}

func DefaultTTLs() TTLs {
	return TTLs{
		Default:   5 * time.Minute,
		Subjects:  10 * time.Minute,
		Chapters:  10 * time.Minute,
		Quizzes:   5 * time.Minute,
		Questions: 3 * time.Minute,
		Charts:    2 * time.Minute,
		UserData:  time.Minute,
		Search:    30 * time.Second,
	}
}
