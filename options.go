package engramgo

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/engramgo/blobstore"
	"github.com/hupe1980/engramgo/codec"
	"github.com/hupe1980/engramgo/correction"
	"github.com/hupe1980/engramgo/hierarchy"
	"github.com/hupe1980/engramgo/resource"
)

// Options holds constructor configuration. Use DefaultOptions plus Option
// functions rather than filling it by hand.
type Options struct {
	// Dimension is the sparse vector dimension. All content in one database
	// shares it.
	Dimension int

	// BlockSize is the codec's encoding block size in bytes.
	BlockSize int

	// Fanout and MaxDensity control sub-engram tree construction.
	Fanout     int
	MaxDensity int

	// CacheSize bounds the number of node postings indexes kept resident.
	CacheSize int

	// Correction tunes patch representation selection.
	Correction correction.Config

	// Search provides the default beam-search bounds; per-call K overrides
	// the K field.
	Search hierarchy.SearchParams

	// Blobs is the persistence backend. Nil keeps everything in memory.
	Blobs blobstore.BlobStore

	// Resources caps background work. The zero MaxWorkers defaults to
	// GOMAXPROCS.
	Resources resource.Config

	Logger  *Logger
	Metrics MetricsCollector
}

// DefaultOptions returns the configuration Open starts from.
func DefaultOptions() Options {
	return Options{
		Dimension:  codec.DefaultDimension,
		BlockSize:  codec.DefaultBlockSize,
		Fanout:     hierarchy.DefaultBuildOptions().Fanout,
		CacheSize:  128,
		Correction: correction.DefaultConfig(),
		Search:     hierarchy.DefaultSearchParams(),
		Resources: resource.Config{
			MaxWorkers: int64(runtime.GOMAXPROCS(0)),
		},
		Logger:  NoopLogger(),
		Metrics: NoopMetricsCollector{},
	}
}

// Option configures Open behavior.
type Option func(*Options)

// WithDimension sets the vector dimension. Must match any previously
// persisted state in the same blob store.
func WithDimension(dim int) Option {
	return func(o *Options) { o.Dimension = dim }
}

// WithBlockSize sets the codec block size in bytes.
func WithBlockSize(size int) Option {
	return func(o *Options) { o.BlockSize = size }
}

// WithFanout sets the maximum children per sub-engram tree node.
func WithFanout(fanout int) Option {
	return func(o *Options) { o.Fanout = fanout }
}

// WithMaxDensity thins tree aggregates to at most this many non-zero
// positions, bounding superposition growth up the tree. 0 disables thinning.
func WithMaxDensity(density int) Option {
	return func(o *Options) { o.MaxDensity = density }
}

// WithCacheSize bounds how many node postings indexes stay resident.
func WithCacheSize(size int) Option {
	return func(o *Options) { o.CacheSize = size }
}

// WithCorrectionConfig tunes correction representation selection.
func WithCorrectionConfig(cfg correction.Config) Option {
	return func(o *Options) { o.Correction = cfg }
}

// WithSearchParams sets the default beam-search bounds.
func WithSearchParams(params hierarchy.SearchParams) Option {
	return func(o *Options) { o.Search = params }
}

// WithBlobStore sets the persistence backend: a local directory, MinIO, S3
// or anything else implementing blobstore.BlobStore.
func WithBlobStore(blobs blobstore.BlobStore) Option {
	return func(o *Options) { o.Blobs = blobs }
}

// WithResourceConfig caps worker concurrency, pinned memory and blob IO
// throughput.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *Options) { o.Resources = cfg }
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) Option {
	return func(o *Options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.Logger = logger
	}
}

// WithLogLevel is shorthand for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *Options) { o.Logger = NewTextLogger(level) }
}

// WithMetricsCollector configures metrics collection. Pass nil to disable.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *Options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.Metrics = mc
	}
}

func applyOptions(optFns []Option) Options {
	o := DefaultOptions()
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
