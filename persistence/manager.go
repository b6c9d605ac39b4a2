package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/collection"
)

// Ext is the file extension of every snapshot blob.
const Ext = ".vec"

// Manager reads and writes collection snapshots through a blob store.
// It owns the durable naming scheme: one canonical blob per collection
// plus zero or more numbered shard blobs written by bulk import.
type Manager struct {
	store blobstore.Store
	codec Codec
}

// NewManager creates a Manager writing snapshots with the given codec.
// Snapshots of any codec can always be read back.
func NewManager(store blobstore.Store, codec Codec) *Manager {
	return &Manager{store: store, codec: codec}
}

// CanonicalKey returns the blob name of the collection's canonical
// snapshot.
func (m *Manager) CanonicalKey(name string) string {
	return name + Ext
}

// ShardKey returns the blob name of shard n.
func (m *Manager) ShardKey(name string, n int) string {
	return fmt.Sprintf("%s_part_%d%s", name, n, Ext)
}

// Save writes the collection's full current record set to its canonical
// blob, replacing any prior snapshot.
func (m *Manager) Save(ctx context.Context, col *collection.Collection) error {
	data, err := Encode(col, m.codec)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, m.CanonicalKey(col.Name()), data)
}

// SaveShard writes the collection's current record set to shard blob n.
// The canonical blob is untouched.
func (m *Manager) SaveShard(ctx context.Context, col *collection.Collection, n int) error {
	data, err := Encode(col, m.codec)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, m.ShardKey(col.Name(), n), data)
}

// Load reads the canonical snapshot only. It fails with
// blobstore.ErrNotFound if no canonical blob exists and with an
// ErrCorrupt-wrapped error if the bytes cannot be decoded.
func (m *Manager) Load(ctx context.Context, name string) (*collection.Collection, error) {
	data, err := m.store.ReadAll(ctx, m.CanonicalKey(name))
	if err != nil {
		return nil, err
	}
	col, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.CanonicalKey(name), err)
	}
	return col, nil
}

// Exists reports whether a canonical snapshot is durably present.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.store.ReadAll(ctx, m.CanonicalKey(name))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LoadAll reads the full logical record set: the canonical snapshot (if
// present) followed by every shard in ascending shard order. It fails
// with blobstore.ErrNotFound when neither exists, and a dimension
// disagreement between any two shards is fatal to the whole read.
func (m *Manager) LoadAll(ctx context.Context, name string) (*collection.Collection, error) {
	var merged *collection.Collection

	data, err := m.store.ReadAll(ctx, m.CanonicalKey(name))
	switch {
	case err == nil:
		merged, err = Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.CanonicalKey(name), err)
		}
	case isNotFound(err):
		// Shards may still exist without a canonical snapshot.
	default:
		return nil, err
	}

	shards, err := m.ListShards(ctx, name)
	if err != nil {
		return nil, err
	}

	for _, n := range shards {
		part, err := m.LoadShard(ctx, name, n)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = part
			continue
		}
		if err := merged.Merge(part); err != nil {
			return nil, fmt.Errorf("%s: %w", m.ShardKey(name, n), err)
		}
	}

	if merged == nil {
		return nil, blobstore.ErrNotFound
	}
	return merged, nil
}

// LoadShard reads shard snapshot n of the collection.
func (m *Manager) LoadShard(ctx context.Context, name string, n int) (*collection.Collection, error) {
	data, err := m.store.ReadAll(ctx, m.ShardKey(name, n))
	if err != nil {
		return nil, err
	}
	part, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.ShardKey(name, n), err)
	}
	return part, nil
}

// ListShards returns the existing shard indexes for the collection in
// ascending numeric order.
func (m *Manager) ListShards(ctx context.Context, name string) ([]int, error) {
	prefix := name + "_part_"
	names, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var indexes []int
	for _, blob := range names {
		rest, ok := strings.CutPrefix(blob, prefix)
		if !ok {
			continue
		}
		numeric, ok := strings.CutSuffix(rest, Ext)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(numeric)
		if err != nil || n < 0 {
			continue
		}
		indexes = append(indexes, n)
	}

	sort.Ints(indexes)
	return indexes, nil
}

// NextShardIndex returns the index the next shard should be written
// under, continuing after any shards already present.
func (m *Manager) NextShardIndex(ctx context.Context, name string) (int, error) {
	indexes, err := m.ListShards(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(indexes) == 0 {
		return 0, nil
	}
	return indexes[len(indexes)-1] + 1, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, blobstore.ErrNotFound)
}
