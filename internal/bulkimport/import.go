// Package bulkimport loads vector collections from a SQL source in
// batches, writing each batch as a shard snapshot so the full data set
// never has to be resident at once.
//
// The importer is a producer against the same persistence contract as
// the engine: it builds an in-memory batch, inserts row by row, and
// flushes every BatchSize rows to a new numbered shard file. Rows whose
// cells cannot be coerced are counted and skipped, never aborting the
// batch. The canonical snapshot is untouched; imported records become
// visible through the full-scan info path.
package bulkimport

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	vectra "github.com/hupe1980/vectra"
	"github.com/hupe1980/vectra/collection"
	"github.com/hupe1980/vectra/metadata"
	"github.com/hupe1980/vectra/persistence"

	// Database drivers for the supported import sources.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DefaultBatchSize is the number of rows per shard when none is
// configured.
const DefaultBatchSize = 1000

// Config describes one import job.
type Config struct {
	// Driver is the database/sql driver name: "sqlite" or "postgres".
	Driver string
	// DSN is the driver connection string.
	DSN string
	// Table is the source table; ignored when Query is set.
	Table string
	// Query overrides Table with an arbitrary SELECT. It must return
	// the vector columns and meta columns by name.
	Query string
	// VectorColumns are the numeric columns forming the vector, in
	// order. The collection dimension is len(VectorColumns).
	VectorColumns []string
	// MetaColumns are carried as typed metadata entries.
	MetaColumns []string
	// Collection is the target collection name.
	Collection string
	// BatchSize is the number of records per shard file.
	BatchSize int
	// RowsPerSecond paces the import; zero means unlimited.
	RowsPerSecond int
	// Source, when set, tags every record with a source string entry.
	Source string
}

func (c *Config) validate() error {
	if c.Driver != "sqlite" && c.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if c.Table == "" && c.Query == "" {
		return errors.New("either table or query is required")
	}
	if len(c.VectorColumns) == 0 {
		return errors.New("at least one vector column is required")
	}
	for _, col := range c.VectorColumns {
		if strings.TrimSpace(col) == "" {
			return errors.New("vector column names must not be empty")
		}
	}
	// Meta column names become metadata keys, which must be non-empty.
	for _, col := range c.MetaColumns {
		if strings.TrimSpace(col) == "" {
			return errors.New("meta column names must not be empty")
		}
	}
	if c.Collection == "" {
		return errors.New("collection name is required")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return nil
}

// Report summarizes a finished import job.
type Report struct {
	JobID     string
	Imported  int
	Skipped   int
	Shards    int
	Dimension int
	Elapsed   time.Duration
}

// Importer runs import jobs against a persistence manager.
type Importer struct {
	manager *persistence.Manager
	logger  *slog.Logger
	clock   func() time.Time
}

// New creates an Importer writing shards through manager.
func New(manager *persistence.Manager, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{manager: manager, logger: logger, clock: time.Now}
}

// Run executes one import job and returns its report. Row-level
// coercion failures are skipped and counted; only source-level problems
// (connection, query, shard write) abort the job.
func (im *Importer) Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	start := im.clock()
	dim := len(cfg.VectorColumns)

	im.logger.Info("bulk import started",
		slog.String("job_id", jobID),
		slog.String("collection", cfg.Collection),
		slog.Int("dimension", dim),
	)

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open source database")
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, cfg.selectQuery())
	if err != nil {
		return nil, errors.Wrap(err, "source query failed")
	}
	defer rows.Close()

	var limiter *rate.Limiter
	if cfg.RowsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RowsPerSecond), cfg.RowsPerSecond)
	}

	shardIndex, err := im.manager.NextShardIndex(ctx, cfg.Collection)
	if err != nil {
		return nil, errors.Wrap(err, "failed to determine next shard index")
	}

	report := &Report{JobID: jobID, Dimension: dim}
	batch := collection.New(cfg.Collection, dim)
	cells := make([]any, dim+len(cfg.MetaColumns))
	cellPtrs := make([]any, len(cells))
	for i := range cells {
		cellPtrs[i] = &cells[i]
	}

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := im.manager.SaveShard(ctx, batch, shardIndex); err != nil {
			return errors.Wrapf(err, "failed to write shard %d", shardIndex)
		}
		im.logger.Debug("shard written",
			slog.String("job_id", jobID),
			slog.Int("shard", shardIndex),
			slog.Int("records", batch.Len()),
		)
		shardIndex++
		report.Shards++
		batch = collection.New(cfg.Collection, dim)
		return nil
	}

	for rows.Next() {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := rows.Scan(cellPtrs...); err != nil {
			return nil, errors.Wrap(err, "row scan failed")
		}

		rec, ok := im.decodeRow(cfg, cells)
		if !ok {
			report.Skipped++
			continue
		}
		if err := batch.Insert(rec); err != nil {
			// Cannot happen: the vector is built at the batch
			// dimension. Counted as a skip to keep the job alive.
			report.Skipped++
			continue
		}
		report.Imported++

		if batch.Len() >= cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration failed")
	}
	if err := flush(); err != nil {
		return nil, err
	}

	report.Elapsed = im.clock().Sub(start)
	im.logger.Info("bulk import finished",
		slog.String("job_id", jobID),
		slog.Int("imported", report.Imported),
		slog.Int("skipped", report.Skipped),
		slog.Int("shards", report.Shards),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// decodeRow coerces one scanned row into a record. ok is false when any
// vector cell fails numeric coercion; meta cells never fail the row.
func (im *Importer) decodeRow(cfg Config, cells []any) (collection.Record, bool) {
	dim := len(cfg.VectorColumns)

	values := make([]float64, dim)
	for i := 0; i < dim; i++ {
		f, ok := coerceFloat(cells[i])
		if !ok {
			return collection.Record{}, false
		}
		values[i] = f
	}

	meta := make(metadata.Entries, 0, len(cfg.MetaColumns)+2)
	for i, key := range cfg.MetaColumns {
		value, ok := coerceMeta(cells[dim+i])
		if !ok {
			continue // NULL cell, entry skipped
		}
		meta = append(meta, metadata.Entry{Key: key, Value: value})
	}
	if cfg.Source != "" {
		meta = append(meta, metadata.Entry{Key: vectra.SourceKey, Value: metadata.String(cfg.Source)})
	}
	meta = append(meta, metadata.Entry{Key: vectra.CreatedAtKey, Value: metadata.Time(im.clock())})

	return collection.Record{Values: values, Meta: meta}, true
}

func (c *Config) selectQuery() string {
	if c.Query != "" {
		return c.Query
	}
	cols := append(append([]string{}, c.VectorColumns...), c.MetaColumns...)
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), c.Table)
}
