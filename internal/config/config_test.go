package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: \"9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "laporan-keuangan", cfg.Qdrant.Collection)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 200, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.Ingest.Async)
	assert.Equal(t, 3, cfg.Ingest.MaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_API_KEY", "rahasia")
	t.Setenv("LLM_MODEL", "llama-3.3-70b")

	cfg, err := Load(writeConfig(t, "qdrant:\n  api_key: \"\"\nllm:\n  model: \"x\"\n  timeout: 30s\n"))
	require.NoError(t, err)
	assert.Equal(t, "rahasia", cfg.Qdrant.APIKey)
	assert.Equal(t, "llama-3.3-70b", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
