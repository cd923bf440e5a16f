package stm

import "go.uber.org/zap"

// defaultMaxSegments is the segment table's default fixed capacity; 255
// slots comfortably covers every allocation pattern this engine expects
// while still fitting the 8-bit segment index an Address packs.
const defaultMaxSegments = 255

// Option configures a Region at Create time. Size and align stay
// positional arguments to Create; Option only covers the ambient knobs
// -- segment table capacity, observability -- left up to the caller.
type Option func(*regionConfig)

type regionConfig struct {
	maxSegments uint8
	logger      *zap.Logger
	metrics     *Metrics
}

func defaultRegionConfig() regionConfig {
	return regionConfig{
		maxSegments: defaultMaxSegments,
		logger:      zap.NewNop(),
		metrics:     nil,
	}
}

// WithMaxSegments overrides the segment table's fixed capacity (default
// 255). maxSegments must be at least 1, for slot 0's permanent initial
// segment.
func WithMaxSegments(maxSegments uint8) Option {
	return func(c *regionConfig) {
		if maxSegments == 0 {
			panic("stm: WithMaxSegments requires at least 1 segment slot")
		}
		c.maxSegments = maxSegments
	}
}

// WithLogger attaches a structured logger for transaction lifecycle and
// segment-table diagnostics. A nil logger is treated as zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *regionConfig) {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
	}
}

// WithMetrics attaches a *Metrics (see NewMetrics) that the region updates
// as transactions commit and abort.
func WithMetrics(m *Metrics) Option {
	return func(c *regionConfig) {
		c.metrics = m
	}
}
