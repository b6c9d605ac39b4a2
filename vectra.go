package vectra

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/cache"
	"github.com/hupe1980/vectra/collection"
	"github.com/hupe1980/vectra/distance"
	"github.com/hupe1980/vectra/metadata"
	"github.com/hupe1980/vectra/persistence"
)

const (
	// CreatedAtKey is the metadata key of the timestamp entry the
	// engine appends to every inserted record.
	CreatedAtKey = "created_at"

	// SourceKey is the conventional metadata key for a caller-supplied
	// origin tag, surfaced by some query outputs.
	SourceKey = "source"
)

// Vectra is an embedded vector store: named collections of
// fixed-dimension float64 vectors with typed metadata, persisted as
// snapshots through a blob store, fronted by a bounded in-memory cache,
// and queried by exact nearest-neighbor scan.
//
// A Vectra is an explicitly constructed service object. Hand the same
// instance to every request handler; there is no ambient global state.
type Vectra struct {
	store   blobstore.Store
	manager *persistence.Manager
	table   *cache.Table
	logger  *Logger
	metrics MetricsCollector
	clock   func() time.Time

	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
	closeErr      error
}

// New creates a Vectra engine and starts its flush/eviction scheduler.
// Call Close to stop the scheduler and flush outstanding writes.
func New(optFns ...Option) (*Vectra, error) {
	o := applyOptions(optFns)

	store := o.store
	if store == nil {
		store = blobstore.NewLocalStore(o.dataDir)
	}
	manager := persistence.NewManager(store, o.codec)

	v := &Vectra{
		store:         store,
		manager:       manager,
		logger:        o.logger,
		metrics:       o.metrics,
		clock:         o.clock,
		flushInterval: o.flushInterval,
	}

	v.table = cache.NewTable(manager, cache.Config{
		MaxBytes: o.cacheMaxBytes,
		TTL:      o.cacheTTL,
		Clock:    o.clock,
		OnEvict: func(name string, dirty bool) {
			v.metrics.RecordEviction(dirty)
			v.logger.LogEvict(context.Background(), name, dirty)
		},
	})

	if v.flushInterval > 0 {
		v.stopCh = make(chan struct{})
		v.wg.Add(1)
		go v.runScheduler()
	}
	return v, nil
}

// runScheduler is the recurring flush/eviction activity: each tick
// persists every dirty cached collection and then runs the eviction
// pass. Persist failures are logged and retried next tick, never
// surfaced to requests.
func (v *Vectra) runScheduler() {
	defer v.wg.Done()

	ticker := time.NewTicker(v.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()
			start := time.Now()
			err := v.table.FlushAndEvict(ctx)
			v.metrics.RecordFlush(time.Since(start), err)
			v.logger.LogFlush(ctx, err)
		}
	}
}

// Create creates a new empty collection and persists its canonical
// snapshot immediately, so existence survives a restart. It fails with
// ErrAlreadyExists if the name is already resident or durably present.
// The whole operation runs inside one cache critical section, so an
// insert racing the create either lands before it (create fails with
// ErrAlreadyExists) or after it (the record is kept); a successful
// insert is never overwritten by the fresh empty store.
func (v *Vectra) Create(ctx context.Context, name string, dimension int) error {
	if err := v.table.Create(ctx, collection.New(name, dimension)); err != nil {
		if errors.Is(err, cache.ErrExists) {
			return &ErrAlreadyExists{Name: name}
		}
		return translateError(name, err)
	}

	v.logger.InfoContext(ctx, "collection created", "collection", name, "dimension", dimension)
	return nil
}

// Insert appends one record to the named collection and returns the new
// record count. A collection without a durable copy is created on the
// fly with the dimension of the inserted vector. The engine appends a
// created_at timestamp entry after any caller-supplied metadata; the
// insert fails with ErrDimensionMismatch if the vector length does not
// match the collection dimension, leaving the collection unchanged.
//
// Durability is asynchronous: the record is visible to finds
// immediately and written to disk by the flush scheduler.
func (v *Vectra) Insert(ctx context.Context, name string, values []float64, meta metadata.Entries) (int, error) {
	start := time.Now()
	count, err := v.insert(ctx, name, values, meta)
	v.metrics.RecordInsert(time.Since(start), err)
	v.logger.LogInsert(ctx, name, len(values), count, err)
	return count, err
}

func (v *Vectra) insert(ctx context.Context, name string, values []float64, meta metadata.Entries) (int, error) {
	for _, e := range meta {
		if e.Key == "" {
			return 0, ErrEmptyMetadataKey
		}
	}

	rec := collection.Record{
		Values: slices.Clone(values),
		Meta: append(meta.Clone(), metadata.Entry{
			Key:   CreatedAtKey,
			Value: metadata.Time(v.clock()),
		}),
	}

	var count int
	err := v.table.Update(ctx, name, len(values), func(col *collection.Collection) error {
		if err := col.Insert(rec); err != nil {
			return err
		}
		count = col.Len()
		return nil
	})
	return count, translateError(name, err)
}

// FindResult is one hit of a nearest-neighbor query. Index is the
// record's position in the collection's canonical record sequence; it
// is not stable across reloads that merge shard files.
type FindResult struct {
	Index    int              `json:"index"`
	Distance float64          `json:"distance"`
	Values   []float64        `json:"values"`
	Meta     metadata.Entries `json:"meta,omitempty"`
}

// Find returns the k records of the named collection nearest to query
// under the metric named by metricCode ("eu", "l1" or "cs"), sorted
// ascending by distance with ties kept in scan order. k <= 0 selects
// DefaultK; k larger than the record count returns every record. An
// unknown metric code or a query of the wrong dimension fails before
// any scan.
func (v *Vectra) Find(ctx context.Context, name string, query []float64, k int, metricCode string) ([]FindResult, error) {
	start := time.Now()
	results, err := v.find(ctx, name, query, k, metricCode)
	v.metrics.RecordFind(k, time.Since(start), err)
	v.logger.LogFind(ctx, name, metricCode, k, len(results), err)
	return results, err
}

func (v *Vectra) find(ctx context.Context, name string, query []float64, k int, metricCode string) ([]FindResult, error) {
	metric, err := distance.Parse(metricCode)
	if err != nil {
		return nil, translateError(name, err)
	}
	if k <= 0 {
		k = DefaultK
	}

	var results []FindResult
	err = v.table.View(ctx, name, func(col *collection.Collection) error {
		if col.Dimension() != len(query) {
			return &collection.ErrDimensionMismatch{Expected: col.Dimension(), Actual: len(query)}
		}

		records := col.Records()
		vectors := make([][]float64, len(records))
		for i := range records {
			vectors[i] = records[i].Values
		}

		hits := distance.TopK(metric, query, vectors, k)

		// Copy values and metadata out: the records must not be
		// retained past the cache critical section.
		results = make([]FindResult, len(hits))
		for i, h := range hits {
			rec := records[h.Index]
			results[i] = FindResult{
				Index:    h.Index,
				Distance: h.Distance,
				Values:   slices.Clone(rec.Values),
				Meta:     rec.Meta.Clone(),
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateError(name, err)
	}
	return results, nil
}

// Info describes a collection's full logical record set: the resident
// store (or canonical snapshot when not cached) plus every shard file
// written by bulk import.
type Info struct {
	Name           string                   `json:"name"`
	Dimension      int                      `json:"dimension"`
	Count          int                      `json:"count"`
	EstimatedBytes int                      `json:"estimated_bytes"`
	Schema         []collection.SchemaField `json:"schema"`
}

// Info performs the full-scan introspection of a collection. The
// resident in-memory store stands in for the canonical snapshot when
// the collection is cached, since the cache may be ahead of disk. A
// dimension disagreement between any two shards is fatal to the read.
func (v *Vectra) Info(ctx context.Context, name string) (*Info, error) {
	var merged *collection.Collection

	if v.table.Contains(name) {
		err := v.table.View(ctx, name, func(col *collection.Collection) error {
			merged = collection.New(col.Name(), col.Dimension())
			return merged.Merge(col)
		})
		if err != nil {
			return nil, translateError(name, err)
		}
	} else {
		col, err := v.manager.Load(ctx, name)
		switch {
		case err == nil:
			merged = col
		case errors.Is(err, blobstore.ErrNotFound):
			// Shards may exist without a canonical snapshot.
		default:
			return nil, translateError(name, err)
		}
	}

	shards, err := v.manager.ListShards(ctx, name)
	if err != nil {
		return nil, translateError(name, err)
	}
	for _, n := range shards {
		part, err := v.manager.LoadShard(ctx, name, n)
		if err != nil {
			return nil, translateError(name, err)
		}
		if merged == nil {
			merged = part
			continue
		}
		if err := merged.Merge(part); err != nil {
			return nil, translateError(name, err)
		}
	}

	if merged == nil {
		return nil, translateError(name, blobstore.ErrNotFound)
	}

	return &Info{
		Name:           name,
		Dimension:      merged.Dimension(),
		Count:          merged.Len(),
		EstimatedBytes: merged.EstimateBytes(),
		Schema:         merged.Schema(),
	}, nil
}

// Flush immediately persists every dirty cached collection and runs an
// eviction pass. The CLI calls it before exit; the scheduler runs the
// same pass periodically.
func (v *Vectra) Flush(ctx context.Context) error {
	start := time.Now()
	err := v.table.FlushAndEvict(ctx)
	v.metrics.RecordFlush(time.Since(start), err)
	v.logger.LogFlush(ctx, err)
	return err
}

// Stats returns a snapshot of the collection cache.
func (v *Vectra) Stats() cache.Stats {
	return v.table.Stats()
}

// Metrics returns the configured metrics collector.
func (v *Vectra) Metrics() MetricsCollector {
	return v.metrics
}

// Manager returns the persistence manager. Bulk import uses it to write
// shard snapshots through the same durable layout as the engine.
func (v *Vectra) Manager() *persistence.Manager {
	return v.manager
}

// Close stops the flush scheduler and performs a final flush. It is
// safe to call multiple times.
func (v *Vectra) Close() error {
	v.closeOnce.Do(func() {
		if v.stopCh != nil {
			close(v.stopCh)
			v.wg.Wait()
		}
		v.closeErr = v.table.FlushAndEvict(context.Background())
	})
	return v.closeErr
}
