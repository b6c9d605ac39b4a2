package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	ctx := context.Background()

	stores := []struct {
		name string
		make func(t *testing.T) Store
	}{
		{"Local", func(t *testing.T) Store { return NewLocalStore(t.TempDir()) }},
		{"Memory", func(t *testing.T) Store { return NewMemoryStore() }},
	}

	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			t.Run("PutAndReadAll", func(t *testing.T) {
				s := tc.make(t)

				require.NoError(t, s.Put(ctx, "a.vec", []byte("hello")))

				data, err := s.ReadAll(ctx, "a.vec")
				require.NoError(t, err)
				assert.Equal(t, []byte("hello"), data)
			})

			t.Run("PutReplaces", func(t *testing.T) {
				s := tc.make(t)

				require.NoError(t, s.Put(ctx, "a.vec", []byte("one")))
				require.NoError(t, s.Put(ctx, "a.vec", []byte("two")))

				data, err := s.ReadAll(ctx, "a.vec")
				require.NoError(t, err)
				assert.Equal(t, []byte("two"), data)
			})

			t.Run("ReadMissing", func(t *testing.T) {
				s := tc.make(t)

				_, err := s.ReadAll(ctx, "missing.vec")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				s := tc.make(t)

				require.NoError(t, s.Put(ctx, "a.vec", []byte("x")))
				require.NoError(t, s.Delete(ctx, "a.vec"))

				_, err := s.ReadAll(ctx, "a.vec")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("DeleteMissingIsNoError", func(t *testing.T) {
				s := tc.make(t)
				assert.NoError(t, s.Delete(ctx, "missing.vec"))
			})

			t.Run("List", func(t *testing.T) {
				s := tc.make(t)

				require.NoError(t, s.Put(ctx, "vectors.vec", []byte("a")))
				require.NoError(t, s.Put(ctx, "vectors_part_0.vec", []byte("b")))
				require.NoError(t, s.Put(ctx, "other.vec", []byte("c")))

				names, err := s.List(ctx, "vectors")
				require.NoError(t, err)
				assert.Equal(t, []string{"vectors.vec", "vectors_part_0.vec"}, names)

				all, err := s.List(ctx, "")
				require.NoError(t, err)
				assert.Len(t, all, 3)
			})
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := []byte("data")
	require.NoError(t, s.Put(ctx, "a", original))
	original[0] = 'X'

	read, err := s.ReadAll(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), read)

	read[0] = 'Y'
	again, err := s.ReadAll(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), again)
}
