package index

import "go.uber.org/zap"

// Default tuning constants, matching the values a fresh IndexWriterConfig carries.
const (
	DefaultMaxBufferedDocs = 0 // 0 disables the doc-count flush trigger
	DefaultRAMBufferSizeMB = 16.0
	DefaultMergeFactor     = 10
	DefaultNoCFSRatio      = 0.1
)

// IndexWriterConfig is an immutable bundle of IndexWriter tuning
// knobs, built via functional options: each With* returns a new value rather
// than mutating the receiver, so a config can be shared safely across
// writers opened from it.
type IndexWriterConfig struct {
	MaxBufferedDocs int
	RAMBufferSizeMB float64
	MergePolicy     MergePolicy
	MergeScheduler  MergeScheduler
	DeletionPolicy  DeletionPolicy
	Similarity      Similarity
	Logger          *zap.Logger
}

// Option mutates a config value during construction.
type Option func(IndexWriterConfig) IndexWriterConfig

// NewIndexWriterConfig returns the default config with opts applied in order.
func NewIndexWriterConfig(opts ...Option) IndexWriterConfig {
	cfg := IndexWriterConfig{
		MaxBufferedDocs: DefaultMaxBufferedDocs,
		RAMBufferSizeMB: DefaultRAMBufferSizeMB,
		MergePolicy:     NewLogByteSizeMergePolicy(),
		MergeScheduler:  NewConcurrentMergeScheduler(),
		DeletionPolicy:  KeepOnlyLastCommitDeletionPolicy{},
		Similarity:      DefaultSimilarity{},
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return cfg
}

// WithMaxBufferedDocs sets the doc-count flush trigger; 0 disables it
// in favor of WithRAMBufferSizeMB alone.
func WithMaxBufferedDocs(n int) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.MaxBufferedDocs = n; return c }
}

// WithRAMBufferSizeMB sets the buffered-document RAM flush trigger.
func WithRAMBufferSizeMB(mb float64) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.RAMBufferSizeMB = mb; return c }
}

func WithMergePolicy(mp MergePolicy) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.MergePolicy = mp; return c }
}

func WithMergeScheduler(ms MergeScheduler) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.MergeScheduler = ms; return c }
}

func WithDeletionPolicy(dp DeletionPolicy) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.DeletionPolicy = dp; return c }
}

func WithSimilarity(s Similarity) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.Similarity = s; return c }
}

func WithLogger(l *zap.Logger) Option {
	return func(c IndexWriterConfig) IndexWriterConfig { c.Logger = l; return c }
}
