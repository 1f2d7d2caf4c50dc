package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/google/uuid"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Cluster     struct {
		Rank      int    `env:"RANK" envDefault:"-1"`
		WorldSize int    `env:"WORLD_SIZE" envDefault:"-1"`
		RunID     string `env:"RUN_ID"`
	}
	Search struct {
		SpaceFile   string `env:"SEARCH_SPACE_FILE"`
		ResultDir   string `env:"RESULT_DIR" envDefault:"distributed_results"`
		BatchSize   int    `env:"SEARCH_BATCH_SIZE" envDefault:"128"`
		WorkerCount int    `env:"SEARCH_WORKER_COUNT" envDefault:"0"`
		Resume      bool   `env:"SEARCH_RESUME" envDefault:"false"`
	}
	Monitor struct {
		Enabled         bool          `env:"MONITOR_ENABLED" envDefault:"false"`
		Port            int           `env:"MONITOR_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"MONITOR_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"MONITOR_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"MONITOR_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"MONITOR_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// RANK/WORLD_SIZE win when set; otherwise fall back to whatever the
	// launcher exported (Open MPI, PMI, Slurm) before defaulting to a
	// single-process run.
	if cfg.Cluster.Rank < 0 {
		cfg.Cluster.Rank = lookupLauncherInt(0, "OMPI_COMM_WORLD_RANK", "PMI_RANK", "SLURM_PROCID")
	}
	if cfg.Cluster.WorldSize < 0 {
		cfg.Cluster.WorldSize = lookupLauncherInt(1, "OMPI_COMM_WORLD_SIZE", "PMI_SIZE", "SLURM_NTASKS")
	}

	if cfg.Cluster.WorldSize < 1 {
		return nil, fmt.Errorf("world size must be at least 1, got %d", cfg.Cluster.WorldSize)
	}
	if cfg.Cluster.Rank < 0 || cfg.Cluster.Rank >= cfg.Cluster.WorldSize {
		return nil, fmt.Errorf("rank %d out of range for world size %d", cfg.Cluster.Rank, cfg.Cluster.WorldSize)
	}

	// All ranks of one run must agree on the run id, so the launcher should
	// export RUN_ID; a generated id is only correct for single-process runs.
	if cfg.Cluster.RunID == "" {
		cfg.Cluster.RunID = uuid.New().String()
	}

	if cfg.Search.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.Search.BatchSize)
	}
	if cfg.Search.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.Search.WorkerCount)
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

// lookupLauncherInt returns the first of the given environment variables that
// parses as an int, or the default when none is set.
func lookupLauncherInt(defaultValue int, keys ...string) int {
	for _, key := range keys {
		if _, exists := os.LookupEnv(key); exists {
			return GetEnvAsInt(key, defaultValue)
		}
	}
	return defaultValue
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt returns the value of the environment variable as int or the default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool returns the value of the environment variable as bool or the default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
