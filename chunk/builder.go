package chunk

import (
	"log/slog"
	"math"
	"sort"

	"github.com/poiesic/vitalit/core"
)

const (
	// DefaultSequentialWindow is the fixed window size for the sequential strategy.
	DefaultSequentialWindow = 15

	// DefaultMaxWindow is the upper bound on adaptive window sizes and the
	// fallback size for empty groups.
	DefaultMaxWindow = 35

	// MinWindow is the lower bound on adaptive window sizes.
	MinWindow = 10

	// adaptiveTokenBudget is the approximate token budget an adaptive
	// window should fill, estimated as characters / 4.
	adaptiveTokenBudget = 7000

	// adaptiveSampleSize is how many records are sampled per group to
	// estimate the average formatted-line length.
	adaptiveSampleSize = 10
)

// Strategy selects how records are windowed into chunks.
type Strategy int

const (
	// GroupedAdaptive groups records by metric type, sorts each group
	// chronologically, and sizes windows by the adaptive size function.
	// Chunks never straddle a type-group boundary. This is the default:
	// records of one metric embedded together give the retriever
	// semantically coherent units to rank.
	GroupedAdaptive Strategy = iota

	// SequentialFixed keeps records in input order and slices them into
	// windows of a fixed configured size.
	SequentialFixed
)

// Builder groups records into ordered, size-bounded chunks.
type Builder struct {
	strategy  Strategy
	window    int
	maxWindow int
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithStrategy selects the windowing strategy.
// Default is GroupedAdaptive.
func WithStrategy(strategy Strategy) Option {
	return func(b *Builder) {
		b.strategy = strategy
	}
}

// WithWindowSize sets the fixed window size for the sequential strategy.
// Default is DefaultSequentialWindow.
func WithWindowSize(size int) Option {
	return func(b *Builder) {
		if size > 0 {
			b.window = size
		}
	}
}

// WithMaxWindowSize sets the maximum adaptive window size.
// Default is DefaultMaxWindow.
func WithMaxWindowSize(size int) Option {
	return func(b *Builder) {
		if size > 0 {
			b.maxWindow = size
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// NewBuilder creates a new chunk builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		strategy:  GroupedAdaptive,
		window:    DefaultSequentialWindow,
		maxWindow: DefaultMaxWindow,
		logger:    slog.Default().With("component", "chunk-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build groups records into chunks according to the configured strategy.
// Every input record appears in exactly one chunk; chunk indices are
// 0-based and contiguous. Empty input yields an empty chunk list.
func (b *Builder) Build(records []core.Record) []core.Chunk {
	if len(records) == 0 {
		return []core.Chunk{}
	}

	var chunks []core.Chunk
	switch b.strategy {
	case SequentialFixed:
		chunks = b.buildSequential(records)
	default:
		chunks = b.buildGrouped(records)
	}

	for i := range chunks {
		chunks[i].Index = i
	}

	b.logger.Debug("built chunks", "records", len(records), "chunks", len(chunks))
	return chunks
}

// buildSequential slices records, in input order, into fixed windows.
func (b *Builder) buildSequential(records []core.Record) []core.Chunk {
	chunks := make([]core.Chunk, 0, (len(records)+b.window-1)/b.window)
	for start := 0; start < len(records); start += b.window {
		end := min(start+b.window, len(records))
		chunks = append(chunks, core.Chunk{Records: records[start:end]})
	}
	return chunks
}

// buildGrouped groups records by metric type, sorts each group
// chronologically, and windows it with the adaptive size function.
// Groups are emitted in order of first appearance so output is
// deterministic for a given input.
func (b *Builder) buildGrouped(records []core.Record) []core.Chunk {
	groups := make(map[string][]core.Record)
	order := make([]string, 0)
	for _, record := range records {
		if _, seen := groups[record.MetricType]; !seen {
			order = append(order, record.MetricType)
		}
		groups[record.MetricType] = append(groups[record.MetricType], record)
	}

	var chunks []core.Chunk
	for _, metricType := range order {
		group := groups[metricType]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].StartDate.Before(group[j].StartDate)
		})

		window := b.AdaptiveWindowSize(group)
		for start := 0; start < len(group); start += window {
			end := min(start+window, len(group))
			chunks = append(chunks, core.Chunk{Records: group[start:end]})
		}
	}
	return chunks
}

// AdaptiveWindowSize estimates the optimal window size for a group of
// records. It samples up to ten records, averages their formatted-line
// lengths, estimates tokens as chars/4, and sizes the window so a chunk
// fills roughly the adaptive token budget. The result is clamped to
// [MinWindow, maxWindow]. An empty group returns the configured maximum.
func (b *Builder) AdaptiveWindowSize(group []core.Record) int {
	if len(group) == 0 {
		return b.maxWindow
	}

	sample := group
	if len(sample) > adaptiveSampleSize {
		sample = sample[:adaptiveSampleSize]
	}

	total := 0
	for i := range sample {
		total += len(core.FormatRecord(&sample[i]))
	}
	avgLength := float64(total) / float64(len(sample))

	tokensPerRecord := math.Ceil(avgLength / 4)
	optimal := int(math.Floor(adaptiveTokenBudget / tokensPerRecord))

	if optimal < MinWindow {
		return MinWindow
	}
	if optimal > b.maxWindow {
		return b.maxWindow
	}
	return optimal
}
