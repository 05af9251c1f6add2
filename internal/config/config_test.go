package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv(key, original)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoad_DataDir_FromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	withEnv(t, "STRATBACKTEST_DATA_DIR", tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_CLIOverrideTakesPrecedence(t *testing.T) {
	envDir := t.TempDir()
	cliDir := t.TempDir()
	withEnv(t, "STRATBACKTEST_DATA_DIR", envDir)

	cfg, err := Load(cliDir)
	require.NoError(t, err)

	absPath, err := filepath.Abs(cliDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_CreatesDirectoryIfNeeded(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "new-data-dir")
	withEnv(t, "STRATBACKTEST_DATA_DIR", tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_Defaults(t *testing.T) {
	withEnv(t, "STRATBACKTEST_DATA_DIR", t.TempDir())
	withEnv(t, "PORT", "")
	withEnv(t, "DEFAULT_BENCHMARK_TICKER", "")
	withEnv(t, "WORKER_POOL_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "SPY", string(cfg.DefaultBenchmarkTicker))
	assert.Equal(t, 10, cfg.WorkerPoolSize)
}

func TestLoad_RespCachePathIsUnderDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	withEnv(t, "STRATBACKTEST_DATA_DIR", tmpDir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.DataDir, "respcache.db"), cfg.RespCachePath())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{Port: 0, WorkerPoolSize: 1}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Port: 70000, WorkerPoolSize: 1}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadWorkerPoolSize(t *testing.T) {
	cfg := &Config{Port: 8080, WorkerPoolSize: 0}
	assert.Error(t, cfg.Validate())
}
