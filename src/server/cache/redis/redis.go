// Package redis backs the cache with Redis. Glob deletes are served from an
// explicit secondary index instead of scanning the keyspace: every cached key
// is recorded in the set of its family (the text before the first '_' or ':'),
// and the family names are recorded in one more set.
package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quiz-master/server/src/server/cache"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client *goredis.Client
	prefix string
}

var _ cache.Store = (*Store)(nil)

func New(cfg Config) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.Prefix)
}

func NewFromClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "quiz_master"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

func (s *Store) familiesKey() string {
	return s.prefix + ":idx:families"
}

func (s *Store) indexKey(family string) string {
	return s.prefix + ":idx:" + family
}

func family(key string) string {
	if i := strings.IndexAny(key, "_:"); i >= 0 {
		return key[:i]
	}
	return key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	fam := family(key)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, ttl)
		pipe.SAdd(ctx, s.indexKey(fam), key)
		pipe.SAdd(ctx, s.familiesKey(), fam)
		return nil
	})
	return err
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, k := range keys {
			pipe.Del(ctx, s.key(k))
			pipe.SRem(ctx, s.indexKey(family(k)), k)
		}
		return nil
	})
	return err
}

// candidateFamilies lists the index sets that can hold keys matching pattern.
func (s *Store) candidateFamilies(ctx context.Context, pattern string) ([]string, error) {
	literal := pattern
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		literal = pattern[:i]
	}
	if i := strings.IndexAny(literal, "_:"); i >= 0 {
		return []string{literal[:i]}, nil
	}

	all, err := s.client.SMembers(ctx, s.familiesKey()).Result()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range all {
		if strings.HasPrefix(f, literal) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	families, err := s.candidateFamilies(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("reading key index: %w", err)
	}

	removed := 0
	for _, fam := range families {
		members, err := s.client.SMembers(ctx, s.indexKey(fam)).Result()
		if err != nil {
			return removed, fmt.Errorf("reading key index %s: %w", fam, err)
		}

		var matched []string
		for _, m := range members {
			if ok, _ := path.Match(pattern, m); ok {
				matched = append(matched, m)
			}
		}
		if len(matched) == 0 {
			continue
		}

		prefixed := make([]string, len(matched))
		for i, m := range matched {
			prefixed[i] = s.key(m)
		}
		indexed := make([]any, len(matched))
		for i, m := range matched {
			indexed[i] = m
		}

		var del *goredis.IntCmd
		_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
			del = pipe.Del(ctx, prefixed...)
			pipe.SRem(ctx, s.indexKey(fam), indexed...)
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed += int(del.Val())
	}
	return removed, nil
}

func (s *Store) Clear(ctx context.Context) error {
	families, err := s.client.SMembers(ctx, s.familiesKey()).Result()
	if err != nil {
		return err
	}
	for _, fam := range families {
		members, err := s.client.SMembers(ctx, s.indexKey(fam)).Result()
		if err != nil {
			return err
		}
		keys := []string{s.indexKey(fam)}
		for _, m := range members {
			keys = append(keys, s.key(m))
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, s.familiesKey()).Err()
}

func (s *Store) Stats(ctx context.Context) (cache.Stats, error) {
	info, err := s.client.Info(ctx).Result()
	if err != nil {
		return cache.Stats{}, err
	}
	return ParseInfo(info), nil
}

// ParseInfo extracts cache statistics from an INFO reply.
func ParseInfo(info string) cache.Stats {
	var st cache.Stats
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		n, _ := strconv.ParseInt(v, 10, 64)
		switch k {
		case "connected_clients":
			st.ConnectedClients = n
		case "used_memory_human":
			st.UsedMemory = v
		case "keyspace_hits":
			st.KeyspaceHits = n
		case "keyspace_misses":
			st.KeyspaceMisses = n
		case "total_commands_processed":
			st.CommandsProcessed = n
		}
	}
	if st.UsedMemory == "" {
		st.UsedMemory = "0B"
	}
	return st
}

func (s *Store) Optimize(ctx context.Context) error {
	settings := [][2]string{
		{"maxmemory-policy", "allkeys-lru"},
		{"maxmemory", "100mb"},
		{"appendonly", "yes"},
	}
	for _, kv := range settings {
		if err := s.client.ConfigSet(ctx, kv[0], kv[1]).Err(); err != nil {
			return fmt.Errorf("config set %s: %w", kv[0], err)
		}
	}
	return nil
}
