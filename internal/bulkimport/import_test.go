package bulkimport

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/metadata"
	"github.com/hupe1980/vectra/persistence"
)

// newSourceDB seeds a throwaway sqlite database acting as the import
// source.
func newSourceDB(t *testing.T, statements ...string) string {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return dsn
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("imports rows into shard files", func(t *testing.T) {
		dsn := newSourceDB(t,
			`CREATE TABLE points (x REAL, y REAL, label TEXT, rank INTEGER)`,
			`INSERT INTO points VALUES (0, 0, 'origin', 1)`,
			`INSERT INTO points VALUES (1, 1, 'one', 2)`,
			`INSERT INTO points VALUES (2, 2, 'two', 3)`,
			`INSERT INTO points VALUES (3, 3, NULL, 4)`,
			`INSERT INTO points VALUES (4, 4, 'four', 5)`,
		)

		store := blobstore.NewMemoryStore()
		manager := persistence.NewManager(store, persistence.CodecNone)
		im := New(manager, nil)

		report, err := im.Run(ctx, Config{
			Driver:        "sqlite",
			DSN:           dsn,
			Table:         "points",
			VectorColumns: []string{"x", "y"},
			MetaColumns:   []string{"label", "rank"},
			Collection:    "points",
			BatchSize:     2,
			Source:        "unit-test",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, report.JobID)
		assert.Equal(t, 5, report.Imported)
		assert.Equal(t, 0, report.Skipped)
		assert.Equal(t, 3, report.Shards, "two full batches plus the final partial batch")
		assert.Equal(t, 2, report.Dimension)

		// The shard records concatenate to the full imported set.
		merged, err := manager.LoadAll(ctx, "points")
		require.NoError(t, err)
		require.Equal(t, 5, merged.Len())

		rec := merged.Record(0)
		assert.Equal(t, []float64{0, 0}, rec.Values)

		label, ok := rec.Meta.Find("label")
		require.True(t, ok)
		assert.True(t, metadata.String("origin").Equal(label))

		rank, ok := rec.Meta.Find("rank")
		require.True(t, ok)
		assert.True(t, metadata.Int(1).Equal(rank))

		source, ok := rec.Meta.Find("source")
		require.True(t, ok)
		assert.True(t, metadata.String("unit-test").Equal(source))

		_, ok = rec.Meta.Find("created_at")
		assert.True(t, ok)

		// The NULL label cell was skipped, not defaulted.
		_, ok = merged.Record(3).Meta.Find("label")
		assert.False(t, ok)
	})

	t.Run("counts and skips uncoercible rows", func(t *testing.T) {
		dsn := newSourceDB(t,
			`CREATE TABLE points (x TEXT, y TEXT)`,
			`INSERT INTO points VALUES ('1.5', '2.5')`,
			`INSERT INTO points VALUES ('not-a-number', '0')`,
			`INSERT INTO points VALUES (NULL, '0')`,
			`INSERT INTO points VALUES ('3', '4')`,
		)

		manager := persistence.NewManager(blobstore.NewMemoryStore(), persistence.CodecNone)
		im := New(manager, nil)

		report, err := im.Run(ctx, Config{
			Driver:        "sqlite",
			DSN:           dsn,
			Table:         "points",
			VectorColumns: []string{"x", "y"},
			Collection:    "points",
		})
		require.NoError(t, err)

		assert.Equal(t, 2, report.Imported)
		assert.Equal(t, 2, report.Skipped)

		merged, err := manager.LoadAll(ctx, "points")
		require.NoError(t, err)
		assert.Equal(t, 2, merged.Len())
		assert.Equal(t, []float64{1.5, 2.5}, merged.Record(0).Values)
	})

	t.Run("shard numbering continues after existing parts", func(t *testing.T) {
		dsn := newSourceDB(t,
			`CREATE TABLE points (x REAL)`,
			`INSERT INTO points VALUES (1)`,
		)

		manager := persistence.NewManager(blobstore.NewMemoryStore(), persistence.CodecNone)
		im := New(manager, nil)

		cfg := Config{
			Driver:        "sqlite",
			DSN:           dsn,
			Table:         "points",
			VectorColumns: []string{"x"},
			Collection:    "points",
		}

		_, err := im.Run(ctx, cfg)
		require.NoError(t, err)
		_, err = im.Run(ctx, cfg)
		require.NoError(t, err)

		shards, err := manager.ListShards(ctx, "points")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, shards)
	})

	t.Run("custom query overrides the table", func(t *testing.T) {
		dsn := newSourceDB(t,
			`CREATE TABLE points (x REAL, keep INTEGER)`,
			`INSERT INTO points VALUES (1, 1)`,
			`INSERT INTO points VALUES (2, 0)`,
		)

		manager := persistence.NewManager(blobstore.NewMemoryStore(), persistence.CodecNone)
		im := New(manager, nil)

		report, err := im.Run(ctx, Config{
			Driver:        "sqlite",
			DSN:           dsn,
			Query:         "SELECT x FROM points WHERE keep = 1",
			VectorColumns: []string{"x"},
			Collection:    "points",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Imported)
	})

	t.Run("rejects bad config", func(t *testing.T) {
		manager := persistence.NewManager(blobstore.NewMemoryStore(), persistence.CodecNone)
		im := New(manager, nil)

		_, err := im.Run(ctx, Config{Driver: "oracle"})
		require.Error(t, err)

		_, err = im.Run(ctx, Config{Driver: "sqlite", DSN: "x"})
		require.Error(t, err)
	})
}

func TestDecoderChain(t *testing.T) {
	t.Run("text decoding priority", func(t *testing.T) {
		tests := []struct {
			in   string
			want metadata.Value
		}{
			{"42", metadata.Int(42)},
			{"-7", metadata.Int(-7)},
			{"3.5", metadata.Float(3.5)},
			{"true", metadata.Bool(true)},
			{"NO", metadata.Bool(false)},
			{"2024-05-01T10:30:00Z", metadata.Time(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC))},
			{"2024-05-01", metadata.Time(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))},
			{"plain text", metadata.String("plain text")},
			// 64-bit overflow degrades to float instead of truncating.
			{"99999999999", metadata.Float(float32(99999999999))},
		}

		for _, tc := range tests {
			got, ok := coerceMeta(tc.in)
			require.True(t, ok, tc.in)
			assert.True(t, tc.want.Equal(got), "decode %q: got kind %s", tc.in, got.Kind)
		}
	})

	t.Run("native types map directly", func(t *testing.T) {
		got, ok := coerceMeta(int64(7))
		require.True(t, ok)
		assert.True(t, metadata.Int(7).Equal(got))

		got, ok = coerceMeta(2.5)
		require.True(t, ok)
		assert.True(t, metadata.Float(2.5).Equal(got))

		got, ok = coerceMeta(true)
		require.True(t, ok)
		assert.True(t, metadata.Bool(true).Equal(got))

		_, ok = coerceMeta(nil)
		assert.False(t, ok)
	})

	t.Run("vector cells", func(t *testing.T) {
		f, ok := coerceFloat("1.25")
		require.True(t, ok)
		assert.Equal(t, 1.25, f)

		f, ok = coerceFloat(int64(3))
		require.True(t, ok)
		assert.Equal(t, 3.0, f)

		_, ok = coerceFloat(nil)
		assert.False(t, ok)

		_, ok = coerceFloat("abc")
		assert.False(t, ok)
	})
}
