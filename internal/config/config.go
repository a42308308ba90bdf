package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Batch    BatchConfig    `mapstructure:"batch" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string  `mapstructure:"model_name" validate:"required"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier" validate:"gte=0"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// BatchConfig contains the pacing policy applied to bulk LLM workloads.
// The yield and tail thresholds are empirically tuned defaults, kept
// configurable rather than baked in as constants.
type BatchConfig struct {
	MaxBatchSize          int     `mapstructure:"max_batch_size" validate:"required,gt=0"`
	BaseDelaySeconds      float64 `mapstructure:"base_delay_seconds" validate:"gte=0"`
	TailAccelerationRatio float64 `mapstructure:"tail_acceleration_ratio" validate:"gte=0,lte=1"`
	ChunkSize             int     `mapstructure:"chunk_size" validate:"required,gt=0"`
	ChunkRetries          int     `mapstructure:"chunk_retries" validate:"gte=0"`
	ChunkYieldThreshold   float64 `mapstructure:"chunk_yield_threshold" validate:"gte=0,lte=1"`
	SplitYield            int     `mapstructure:"split_yield" validate:"gt=0"`
	SplitPersonaCount     int     `mapstructure:"split_persona_count" validate:"gt=0"`
}
