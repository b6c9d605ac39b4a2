package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/collection"
)

// ErrExists is returned by Create when the name already has a resident
// or durable representation.
var ErrExists = errors.New("cache: collection already exists")

// Loader loads and persists collection snapshots on behalf of the
// table. persistence.Manager implements it.
type Loader interface {
	// Load reads the canonical snapshot of the named collection. A
	// missing snapshot fails with an error satisfying
	// errors.Is(err, blobstore.ErrNotFound).
	Load(ctx context.Context, name string) (*collection.Collection, error)

	// Save writes the collection's full current record set to its
	// canonical snapshot.
	Save(ctx context.Context, col *collection.Collection) error

	// Exists reports whether a canonical snapshot is durably present.
	Exists(ctx context.Context, name string) (bool, error)
}

// Config tunes the eviction policy.
type Config struct {
	// MaxBytes is the cache byte budget. Zero or negative disables the
	// byte sweep.
	MaxBytes int

	// TTL is the maximum idle duration before a clean entry becomes
	// eligible for removal. Zero or negative disables the TTL sweep.
	TTL time.Duration

	// Clock supplies the current time. Defaults to time.Now; tests
	// inject a fake to drive the TTL sweep.
	Clock func() time.Time

	// OnEvict, if set, is called after an entry has been removed.
	// dirty reports whether the entry still carried unflushed writes
	// at removal time.
	OnEvict func(name string, dirty bool)
}

type entry struct {
	col        *collection.Collection
	lastAccess time.Time
	dirty      bool
}

// Table is the collection cache. All methods are safe for concurrent
// use; each holds the table lock for its whole duration, so closures
// passed to View and Update run inside the critical section and must
// not retain the collection afterwards.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
	loader  Loader
	cfg     Config

	hits   int64
	misses int64
}

// NewTable creates an empty table backed by the loader.
func NewTable(loader Loader, cfg Config) *Table {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Table{
		entries: make(map[string]*entry),
		loader:  loader,
		cfg:     cfg,
	}
}

// getOrLoadLocked resolves name to its resident entry, loading from
// durable storage on first touch. When synthesize is true a fresh empty
// store of dimension dimHint is created if no durable copy exists
// (the insert path creates collections on the fly); otherwise the
// loader's not-found error propagates.
func (t *Table) getOrLoadLocked(ctx context.Context, name string, dimHint int, synthesize bool) (*entry, error) {
	if e, ok := t.entries[name]; ok {
		t.hits++
		e.lastAccess = t.cfg.Clock()
		return e, nil
	}
	t.misses++

	col, err := t.loader.Load(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, blobstore.ErrNotFound) && synthesize:
		col = collection.New(name, dimHint)
	default:
		return nil, err
	}

	e := &entry{col: col, lastAccess: t.cfg.Clock()}
	t.entries[name] = e
	return e, nil
}

// View runs fn against the named collection for reading. The collection
// is loaded from durable storage on first touch; a missing collection
// fails with the loader's not-found error. An eviction pass runs before
// the lock is released.
func (t *Table) View(ctx context.Context, name string, fn func(col *collection.Collection) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.getOrLoadLocked(ctx, name, 0, false)
	if err != nil {
		return err
	}
	err = fn(e.col)

	t.evictLocked(ctx)
	return err
}

// Update runs fn against the named collection for mutation, creating a
// fresh empty store of dimension dimHint if no durable copy exists. The
// entry is marked dirty only when fn succeeds, so a rejected mutation
// never schedules a flush. An eviction pass runs before the lock is
// released.
func (t *Table) Update(ctx context.Context, name string, dimHint int, fn func(col *collection.Collection) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.getOrLoadLocked(ctx, name, dimHint, true)
	if err != nil {
		return err
	}
	if err = fn(e.col); err == nil {
		e.dirty = true
	}

	t.evictLocked(ctx)
	return err
}

// Create registers col as a brand-new collection. The residency check,
// the durable-existence check, the snapshot write and the registration
// all run under one lock hold, so a concurrent Update on the same name
// can never interleave and be clobbered by the fresh empty store. It
// fails with ErrExists when the name is already resident or durable;
// the entry starts clean because its snapshot was just written.
func (t *Table) Create(ctx context.Context, col *collection.Collection) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := col.Name()
	if _, ok := t.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	exists, err := t.loader.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}

	if err := t.loader.Save(ctx, col); err != nil {
		return err
	}
	t.entries[name] = &entry{col: col, lastAccess: t.cfg.Clock()}
	t.evictLocked(ctx)
	return nil
}

// Contains reports whether the named collection is resident. It does
// not count as an access.
func (t *Table) Contains(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.entries[name]
	return ok
}

// FlushAndEvict is the scheduler tick body: persist every dirty entry,
// then run the eviction pass, all in one critical section. The dirty
// flag is cleared only on persist success; a failed persist leaves it
// set so the write is retried on the next tick. The returned error
// joins all persist failures.
func (t *Table) FlushAndEvict(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for name, e := range t.entries {
		if !e.dirty {
			continue
		}
		if err := t.loader.Save(ctx, e.col); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", name, err))
			continue
		}
		e.dirty = false
	}

	t.evictLocked(ctx)
	return errors.Join(errs...)
}

// evictLocked applies the eviction policy: a TTL sweep over clean idle
// entries, then a byte-budget sweep that evicts lowest-priority entries
// until the estimated total is under budget. Both the inline request
// paths and the scheduler tick funnel through this one function so the
// eviction decisions are identical regardless of trigger.
func (t *Table) evictLocked(ctx context.Context) {
	now := t.cfg.Clock()

	if t.cfg.TTL > 0 {
		for name, e := range t.entries {
			// Dirty entries are never removed by age alone.
			if !e.dirty && now.Sub(e.lastAccess) > t.cfg.TTL {
				t.removeLocked(name, e)
			}
		}
	}

	if t.cfg.MaxBytes <= 0 {
		return
	}

	total := 0
	for _, e := range t.entries {
		total += e.col.EstimateBytes()
	}

	for total > t.cfg.MaxBytes && len(t.entries) > 0 {
		name, e := t.victimLocked()
		if e.dirty {
			// The budget is a hard ceiling, so a dirty entry is
			// dropped once no clean entry remains. Persist it
			// best-effort first; a failure does not block eviction.
			if err := t.loader.Save(ctx, e.col); err == nil {
				e.dirty = false
			}
		}
		total -= e.col.EstimateBytes()
		t.removeLocked(name, e)
	}
}

// victimLocked picks the single lowest-priority entry: clean before
// dirty, oldest lastAccess within the same class. Must not be called on
// an empty table.
func (t *Table) victimLocked() (string, *entry) {
	var victimName string
	var victim *entry

	for name, e := range t.entries {
		if victim == nil {
			victimName, victim = name, e
			continue
		}
		if e.dirty != victim.dirty {
			if victim.dirty && !e.dirty {
				victimName, victim = name, e
			}
			continue
		}
		if e.lastAccess.Before(victim.lastAccess) {
			victimName, victim = name, e
		}
	}
	return victimName, victim
}

func (t *Table) removeLocked(name string, e *entry) {
	delete(t.entries, name)
	if t.cfg.OnEvict != nil {
		t.cfg.OnEvict(name, e.dirty)
	}
}

// Stats is a point-in-time snapshot of the table.
type Stats struct {
	Entries        int   `json:"entries"`
	Dirty          int   `json:"dirty"`
	EstimatedBytes int   `json:"estimated_bytes"`
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
}

// Stats returns the current table statistics.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{Entries: len(t.entries), Hits: t.hits, Misses: t.misses}
	for _, e := range t.entries {
		s.EstimatedBytes += e.col.EstimateBytes()
		if e.dirty {
			s.Dirty++
		}
	}
	return s
}
