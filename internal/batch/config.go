package batch

import (
	"time"

	"github.com/percept-ai/percept-api/internal/config"
)

// Config holds the pacing policy for bulk LLM workloads. The yield and
// tail thresholds are empirically tuned; they are carried as
// configuration rather than constants.
type Config struct {
	// MaxBatchSize caps how many work items run concurrently in one batch.
	MaxBatchSize int

	// BaseDelay is the pause applied between batches.
	BaseDelay time.Duration

	// TailAccelerationRatio is the fraction of batches after which the
	// inter-batch delay is halved. Once this much of a long run has
	// succeeded, the backend has demonstrated stability.
	TailAccelerationRatio float64

	// ChunkSize is how many personas go into one generation chunk.
	ChunkSize int

	// ChunkRetries bounds how many times a low-yield chunk is retried.
	ChunkRetries int

	// ChunkYieldThreshold is the fraction of a chunk's expected yield
	// below which the chunk is retried.
	ChunkYieldThreshold float64

	// SplitYield is the expected total yield at or above which a
	// multi-persona request is split into chunks.
	SplitYield int

	// SplitPersonaCount is the persona count at or above which a
	// request is split regardless of expected yield.
	SplitPersonaCount int
}

// DefaultConfig returns a Config with the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:          10,
		BaseDelay:             2 * time.Second,
		TailAccelerationRatio: 0.7,
		ChunkSize:             3,
		ChunkRetries:          2,
		ChunkYieldThreshold:   0.5,
		SplitYield:            50,
		SplitPersonaCount:     6,
	}
}

// ConfigFromApp converts the application-level batch settings into a
// Config, falling back to defaults for zero values. ChunkRetries is the
// exception: zero is a valid "no retries" setting and is carried
// through as-is (the config layer supplies the application default).
func ConfigFromApp(cfg config.BatchConfig) Config {
	out := DefaultConfig()

	if cfg.MaxBatchSize > 0 {
		out.MaxBatchSize = cfg.MaxBatchSize
	}
	if cfg.BaseDelaySeconds > 0 {
		out.BaseDelay = time.Duration(cfg.BaseDelaySeconds * float64(time.Second))
	}
	if cfg.TailAccelerationRatio > 0 {
		out.TailAccelerationRatio = cfg.TailAccelerationRatio
	}
	if cfg.ChunkSize > 0 {
		out.ChunkSize = cfg.ChunkSize
	}
	out.ChunkRetries = cfg.ChunkRetries
	if cfg.ChunkYieldThreshold > 0 {
		out.ChunkYieldThreshold = cfg.ChunkYieldThreshold
	}
	if cfg.SplitYield > 0 {
		out.SplitYield = cfg.SplitYield
	}
	if cfg.SplitPersonaCount > 0 {
		out.SplitPersonaCount = cfg.SplitPersonaCount
	}

	return out
}
