package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/collection"
)

func newTestManager() (*Manager, *blobstore.MemoryStore) {
	store := blobstore.NewMemoryStore()
	return NewManager(store, CodecNone), store
}

func makeCollection(t *testing.T, name string, dim, count int) *collection.Collection {
	t.Helper()

	col := collection.New(name, dim)
	for i := 0; i < count; i++ {
		values := make([]float64, dim)
		for j := range values {
			values[j] = float64(i)
		}
		require.NoError(t, col.Insert(collection.Record{Values: values}))
	}
	return col
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("canonical snapshot round-trips", func(t *testing.T) {
		m, _ := newTestManager()
		col := makeCollection(t, "vectors", 2, 3)

		require.NoError(t, m.Save(ctx, col))

		got, err := m.Load(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
		assert.Equal(t, 2, got.Dimension())
	})

	t.Run("save overwrites the prior snapshot", func(t *testing.T) {
		m, _ := newTestManager()

		require.NoError(t, m.Save(ctx, makeCollection(t, "vectors", 2, 1)))
		require.NoError(t, m.Save(ctx, makeCollection(t, "vectors", 2, 5)))

		got, err := m.Load(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, 5, got.Len(), "persist is a full snapshot, not an append")
	})

	t.Run("missing snapshot is not found", func(t *testing.T) {
		m, _ := newTestManager()

		_, err := m.Load(ctx, "ghost")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("undecodable bytes are corrupt", func(t *testing.T) {
		m, store := newTestManager()
		require.NoError(t, store.Put(ctx, m.CanonicalKey("vectors"), []byte("not a snapshot")))

		_, err := m.Load(ctx, "vectors")
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("exists", func(t *testing.T) {
		m, _ := newTestManager()

		ok, err := m.Exists(ctx, "vectors")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, m.Save(ctx, makeCollection(t, "vectors", 2, 0)))

		ok, err = m.Exists(ctx, "vectors")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestShards(t *testing.T) {
	ctx := context.Background()

	t.Run("shard keys follow the part naming convention", func(t *testing.T) {
		m, _ := newTestManager()

		assert.Equal(t, "vectors.vec", m.CanonicalKey("vectors"))
		assert.Equal(t, "vectors_part_7.vec", m.ShardKey("vectors", 7))
	})

	t.Run("numbering continues after existing parts", func(t *testing.T) {
		m, _ := newTestManager()

		n, err := m.NextShardIndex(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 2, 1), 0))
		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 2, 1), 1))

		n, err = m.NextShardIndex(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("list ignores foreign blobs", func(t *testing.T) {
		m, store := newTestManager()
		require.NoError(t, store.Put(ctx, "vectors_part_x.vec", []byte("junk")))
		require.NoError(t, store.Put(ctx, "vectors_part_0.tmp", []byte("junk")))
		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 2, 1), 3))

		shards, err := m.ListShards(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, []int{3}, shards)
	})
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("concatenates canonical plus parts in shard order", func(t *testing.T) {
		m, _ := newTestManager()

		require.NoError(t, m.Save(ctx, makeCollection(t, "vectors", 2, 2)))
		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 2, 3), 0))
		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 2, 4), 1))

		got, err := m.LoadAll(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, 9, got.Len())
	})

	t.Run("works without a canonical snapshot", func(t *testing.T) {
		m, _ := newTestManager()
		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 2, 3), 0))

		got, err := m.LoadAll(ctx, "vectors")
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
	})

	t.Run("nothing durable is not found", func(t *testing.T) {
		m, _ := newTestManager()

		_, err := m.LoadAll(ctx, "ghost")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("cross-shard dimension mismatch is fatal", func(t *testing.T) {
		m, _ := newTestManager()
		require.NoError(t, m.Save(ctx, makeCollection(t, "vectors", 2, 1)))
		require.NoError(t, m.SaveShard(ctx, makeCollection(t, "vectors", 3, 1), 0))

		_, err := m.LoadAll(ctx, "vectors")
		var dm *collection.ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
	})
}
