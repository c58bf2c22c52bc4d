package placement

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/chaz8081/holdlight/internal/board"
)

// PlacementsKey returns the Redis hash holding hold id -> LED index for one
// layout size: {prefix}:placements:{family}:{layout}:{size}.
func PlacementsKey(prefix string, key Key) string {
	return fmt.Sprintf("%s:placements:%s:%d:%d", prefix, key.Family, key.LayoutID, key.SizeID)
}

// HoldsKey returns the Redis hash holding hold id -> mirrored hold id
// (0 when the hold has no mirror): {prefix}:holds:{family}:{layout}.
func HoldsKey(prefix string, family board.Family, layoutID int) string {
	return fmt.Sprintf("%s:holds:%s:%d", prefix, family, layoutID)
}

// RedisStore serves placements and holds from Redis hashes.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a store. prefix namespaces every key.
func NewRedisStore(opts *redis.Options, prefix string) (*RedisStore, error) {
	if prefix == "" {
		return nil, fmt.Errorf("placement: redis key prefix cannot be empty")
	}
	return &RedisStore{rdb: redis.NewClient(opts), prefix: prefix}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Fetch implements Fetcher.
func (s *RedisStore) Fetch(ctx context.Context, key Key) (Map, error) {
	raw, err := s.rdb.HGetAll(ctx, PlacementsKey(s.prefix, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read placements from Redis: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Map, len(raw))
	for field, value := range raw {
		hold, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("placement: bad hold id %q in %s: %w", field, PlacementsKey(s.prefix, key), err)
		}
		led, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("placement: bad LED index %q for hold %d: %w", value, hold, err)
		}
		out[hold] = led
	}
	return out, nil
}

// Holds implements HoldSource.
func (s *RedisStore) Holds(ctx context.Context, family board.Family, layoutID int) ([]board.Hold, error) {
	key := HoldsKey(s.prefix, family, layoutID)
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read holds from Redis: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("placement: layout %s/%d: %w", family, layoutID, ErrNotFound)
	}
	out := make([]board.Hold, 0, len(raw))
	for field, value := range raw {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("placement: bad hold id %q in %s: %w", field, key, err)
		}
		mirrored, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("placement: bad mirrored id %q for hold %d: %w", value, id, err)
		}
		out = append(out, board.Hold{ID: id, MirroredHoldID: mirrored})
	}
	return out, nil
}

// Import writes a layout's holds and every size's placements, replacing
// existing hashes in one transaction.
func (s *RedisStore) Import(ctx context.Context, layout LayoutData) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		holdsKey := HoldsKey(s.prefix, layout.Family, layout.LayoutID)
		pipe.Del(ctx, holdsKey)
		if len(layout.Holds) > 0 {
			fields := make(map[string]interface{}, len(layout.Holds))
			for _, h := range layout.Holds {
				fields[strconv.Itoa(h.ID)] = h.MirroredHoldID
			}
			pipe.HSet(ctx, holdsKey, fields)
		}
		for _, size := range layout.Sizes {
			key := PlacementsKey(s.prefix, Key{Family: layout.Family, LayoutID: layout.LayoutID, SizeID: size.SizeID})
			pipe.Del(ctx, key)
			if len(size.Placements) == 0 {
				continue
			}
			fields := make(map[string]interface{}, len(size.Placements))
			for hold, led := range size.Placements {
				fields[strconv.Itoa(hold)] = led
			}
			pipe.HSet(ctx, key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import layout %s/%d into Redis: %w", layout.Family, layout.LayoutID, err)
	}
	return nil
}

var (
	_ Fetcher    = (*RedisStore)(nil)
	_ HoldSource = (*RedisStore)(nil)
)
