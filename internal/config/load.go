package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over values from the config file and use the PERCEPT_
// prefix with underscores for nesting, e.g. PERCEPT_SERVER_PORT.
// Returns a populated Config struct or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PERCEPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for every tunable so a minimal
// environment (API key + database URL) is enough to boot.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Registered empty so AutomaticEnv can bind them; validation
	// rejects the zero values when the environment leaves them unset.
	v.SetDefault("database.url", "")
	v.SetDefault("llm.gemini_api_key", "")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("llm.backoff_multiplier", 2.0)
	v.SetDefault("llm.timeout_seconds", 60)

	v.SetDefault("batch.max_batch_size", 10)
	v.SetDefault("batch.base_delay_seconds", 2.0)
	v.SetDefault("batch.tail_acceleration_ratio", 0.7)
	v.SetDefault("batch.chunk_size", 3)
	v.SetDefault("batch.chunk_retries", 2)
	v.SetDefault("batch.chunk_yield_threshold", 0.5)
	v.SetDefault("batch.split_yield", 50)
	v.SetDefault("batch.split_persona_count", 6)
}
