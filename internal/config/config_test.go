package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearLauncherEnv removes every rank-related variable so tests see a clean
// environment regardless of how the test process was launched. t.Setenv
// registers the restore before os.Unsetenv removes the value.
func clearLauncherEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RANK", "WORLD_SIZE", "RUN_ID",
		"OMPI_COMM_WORLD_RANK", "OMPI_COMM_WORLD_SIZE",
		"PMI_RANK", "PMI_SIZE",
		"SLURM_PROCID", "SLURM_NTASKS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearLauncherEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Cluster.Rank, "rank should default to 0")
	assert.Equal(t, 1, cfg.Cluster.WorldSize, "world size should default to 1")
	assert.NotEmpty(t, cfg.Cluster.RunID, "run id should be generated when unset")
	assert.Equal(t, "distributed_results", cfg.Search.ResultDir)
	assert.Equal(t, 128, cfg.Search.BatchSize)
	assert.False(t, cfg.Search.Resume)
	assert.False(t, cfg.Monitor.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExplicitRank(t *testing.T) {
	clearLauncherEnv(t)
	t.Setenv("RANK", "2")
	t.Setenv("WORLD_SIZE", "4")
	t.Setenv("RUN_ID", "run-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Cluster.Rank)
	assert.Equal(t, 4, cfg.Cluster.WorldSize)
	assert.Equal(t, "run-123", cfg.Cluster.RunID)
}

func TestLoadLauncherFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		rankKey string
		sizeKey string
	}{
		{name: "open mpi", rankKey: "OMPI_COMM_WORLD_RANK", sizeKey: "OMPI_COMM_WORLD_SIZE"},
		{name: "pmi", rankKey: "PMI_RANK", sizeKey: "PMI_SIZE"},
		{name: "slurm", rankKey: "SLURM_PROCID", sizeKey: "SLURM_NTASKS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLauncherEnv(t)
			t.Setenv(tt.rankKey, "3")
			t.Setenv(tt.sizeKey, "8")

			cfg, err := Load()
			require.NoError(t, err)

			assert.Equal(t, 3, cfg.Cluster.Rank)
			assert.Equal(t, 8, cfg.Cluster.WorldSize)
		})
	}
}

func TestLoadRankPrecedence(t *testing.T) {
	// Explicit RANK/WORLD_SIZE beat launcher variables.
	clearLauncherEnv(t)
	t.Setenv("RANK", "1")
	t.Setenv("WORLD_SIZE", "2")
	t.Setenv("OMPI_COMM_WORLD_RANK", "5")
	t.Setenv("OMPI_COMM_WORLD_SIZE", "16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Cluster.Rank)
	assert.Equal(t, 2, cfg.Cluster.WorldSize)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "rank out of range",
			env:  map[string]string{"RANK": "4", "WORLD_SIZE": "4"},
		},
		{
			name: "zero world size",
			env:  map[string]string{"RANK": "0", "WORLD_SIZE": "0"},
		},
		{
			name: "negative batch size",
			env:  map[string]string{"SEARCH_BATCH_SIZE": "-1"},
		},
		{
			name: "negative worker count",
			env:  map[string]string{"SEARCH_WORKER_COUNT": "-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLauncherEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("STEPPE_TEST_STR", "value")
	t.Setenv("STEPPE_TEST_INT", "42")
	t.Setenv("STEPPE_TEST_BOOL", "true")

	assert.Equal(t, "value", GetEnv("STEPPE_TEST_STR", "default"))
	assert.Equal(t, "default", GetEnv("STEPPE_TEST_MISSING", "default"))
	assert.Equal(t, 42, GetEnvAsInt("STEPPE_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvAsInt("STEPPE_TEST_MISSING", 7))
	assert.True(t, GetEnvAsBool("STEPPE_TEST_BOOL", false))
	assert.False(t, GetEnvAsBool("STEPPE_TEST_MISSING", false))
}
