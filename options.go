package vectra

import (
	"log/slog"
	"time"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/persistence"
)

const (
	// DefaultDataDir is the directory snapshots are written to when no
	// blob store is configured.
	DefaultDataDir = "data"

	// DefaultCacheMaxBytes is the default cache byte budget (256 MiB).
	DefaultCacheMaxBytes = 256 << 20

	// DefaultCacheTTL is the default idle lifetime of a clean cached
	// collection.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultFlushInterval is the default period of the flush/eviction
	// scheduler.
	DefaultFlushInterval = 10 * time.Second

	// DefaultK is the result count used when a find request does not
	// specify k.
	DefaultK = 10
)

type options struct {
	dataDir       string
	store         blobstore.Store
	codec         persistence.Codec
	cacheMaxBytes int
	cacheTTL      time.Duration
	flushInterval time.Duration
	clock         func() time.Time
	logger        *Logger
	metrics       MetricsCollector
}

// Option configures engine construction.
type Option func(*options)

// WithDataDir sets the local directory snapshots are stored in. Ignored
// when WithBlobStore is also given.
func WithDataDir(dir string) Option {
	return func(o *options) {
		o.dataDir = dir
	}
}

// WithBlobStore sets the blob store snapshots are read from and written
// to. Defaults to a local filesystem store rooted at the data dir; pass
// an S3 or MinIO store for remote durability, or a memory store for
// tests.
func WithBlobStore(store blobstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCompression sets the snapshot body compression codec. Snapshots
// of any codec can always be read back regardless of this setting.
func WithCompression(codec persistence.Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// WithCacheMaxBytes sets the cache byte budget. The budget is a hard
// ceiling: under memory pressure even unflushed collections are
// persisted and evicted to stay below it. Zero disables the budget.
func WithCacheMaxBytes(n int) Option {
	return func(o *options) {
		o.cacheMaxBytes = n
	}
}

// WithCacheTTL sets the idle lifetime of a clean cached collection.
// Zero disables the TTL sweep.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithFlushInterval sets the period of the background flush/eviction
// scheduler. Zero disables the scheduler; durability then depends on
// explicit Flush calls.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		o.flushInterval = d
	}
}

// WithClock sets the time source used for cache access tracking.
// Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		dataDir:       DefaultDataDir,
		codec:         persistence.CodecNone,
		cacheMaxBytes: DefaultCacheMaxBytes,
		cacheTTL:      DefaultCacheTTL,
		flushInterval: DefaultFlushInterval,
		clock:         time.Now,
		logger:        NoopLogger(),
		metrics:       NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
