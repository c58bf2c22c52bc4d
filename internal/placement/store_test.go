package placement

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/holdlight/internal/board"
)

const testLayouts = `
layouts:
  - family: kilter
    layout_id: 1
    name: Kilter Board Original
    holds:
      - {id: 10, mirrored_hold_id: 20}
      - {id: 20, mirrored_hold_id: 10}
      - {id: 30}
    sizes:
      - size_id: 10
        placements:
          10: 4
          20: 5
          30: 6
  - family: moonboard
    layout_id: 2
    sizes:
      - size_id: 1
        placements: {1: 0}
`

func TestFileStoreFetch(t *testing.T) {
	store, err := ParseFile([]byte(testLayouts))
	require.NoError(t, err)

	ctx := context.Background()
	got, err := store.Fetch(ctx, Key{Family: board.Kilter, LayoutID: 1, SizeID: 10})
	require.NoError(t, err)
	assert.Equal(t, Map{10: 4, 20: 5, 30: 6}, got)

	missing, err := store.Fetch(ctx, Key{Family: board.Kilter, LayoutID: 1, SizeID: 99})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFileStoreHolds(t *testing.T) {
	store, err := ParseFile([]byte(testLayouts))
	require.NoError(t, err)

	holds, err := store.Holds(context.Background(), board.Kilter, 1)
	require.NoError(t, err)
	require.Len(t, holds, 3)
	assert.Equal(t, board.Hold{ID: 10, MirroredHoldID: 20}, holds[0])
	assert.Equal(t, 0, holds[2].MirroredHoldID)

	_, err = store.Holds(context.Background(), board.Tension, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLayouts), 0644))

	store, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, store.Layouts(), 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFileRejectsUnknownFamily(t *testing.T) {
	_, err := ParseFile([]byte("layouts:\n  - family: decoy\n    layout_id: 1\n"))
	assert.Error(t, err)
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "holdlight")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStoreImportAndFetch(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	file, err := ParseFile([]byte(testLayouts))
	require.NoError(t, err)
	for _, l := range file.Layouts() {
		require.NoError(t, store.Import(ctx, l))
	}

	assert.True(t, mr.Exists("holdlight:placements:kilter:1:10"))
	assert.Equal(t, "5", mr.HGet("holdlight:placements:kilter:1:10", "20"))

	got, err := store.Fetch(ctx, Key{Family: board.Kilter, LayoutID: 1, SizeID: 10})
	require.NoError(t, err)
	assert.Equal(t, Map{10: 4, 20: 5, 30: 6}, got)

	holds, err := store.Holds(ctx, board.Kilter, 1)
	require.NoError(t, err)
	mirrors := make(map[int]int)
	for _, h := range holds {
		mirrors[h.ID] = h.MirroredHoldID
	}
	assert.Equal(t, map[int]int{10: 20, 20: 10, 30: 0}, mirrors)
}

func TestRedisStoreFetchMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)
	got, err := store.Fetch(context.Background(), Key{Family: board.Kilter, LayoutID: 5, SizeID: 5})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.Holds(context.Background(), board.Kilter, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreFetchBadData(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.HSet("holdlight:placements:kilter:1:10", "10", "not-a-number")

	_, err := store.Fetch(context.Background(), Key{Family: board.Kilter, LayoutID: 1, SizeID: 10})
	assert.Error(t, err)
}

func TestRedisStoreThroughCache(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.HSet("holdlight:placements:tension:3:4", "7", "70")

	c := NewCache()
	key := Key{Family: board.Tension, LayoutID: 3, SizeID: 4}
	got, err := c.Get(context.Background(), key, store)
	require.NoError(t, err)
	assert.Equal(t, Map{7: 70}, got)

	// Served from the cache even after the backing data disappears.
	mr.Del("holdlight:placements:tension:3:4")
	got, err = c.Get(context.Background(), key, store)
	require.NoError(t, err)
	assert.Equal(t, Map{7: 70}, got)
}

func TestNewRedisStoreRequiresPrefix(t *testing.T) {
	_, err := NewRedisStore(&redis.Options{Addr: "localhost:0"}, "")
	assert.Error(t, err)
}
