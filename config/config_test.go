package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/logging"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `{
		"name": "custom-agent",
		"version": "2.1.0",
		"deployment": {"url": "http://127.0.0.1:9000", "expose": false, "protocol_version": "1.0.0"},
		"environment_variables": [
			{"key": "FIRECRAWL_API_KEY", "description": "Firecrawl API key", "required": true}
		]
	}`)

	cfg := LoadFrom(logging.NoOpLogger{}, path)

	assert.Equal(t, "custom-agent", cfg.Name)
	assert.Equal(t, "2.1.0", cfg.Version)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Deployment.URL)
	assert.False(t, cfg.Deployment.Expose)
	require.Len(t, cfg.EnvironmentVariables, 1)
	assert.Equal(t, "FIRECRAWL_API_KEY", cfg.EnvironmentVariables[0].Key)
	assert.True(t, cfg.EnvironmentVariables[0].Required)
}

func TestLoadFirstCandidateWins(t *testing.T) {
	first := writeManifest(t, t.TempDir(), `{"name": "first"}`)
	second := writeManifest(t, t.TempDir(), `{"name": "second"}`)

	cfg := LoadFrom(logging.NoOpLogger{}, first, second)
	assert.Equal(t, "first", cfg.Name)
}

func TestLoadSkipsUnparsableFile(t *testing.T) {
	broken := writeManifest(t, t.TempDir(), `{not json`)
	good := writeManifest(t, t.TempDir(), `{"name": "fallback"}`)

	cfg := LoadFrom(logging.NoOpLogger{}, broken, good)
	assert.Equal(t, "fallback", cfg.Name)
}

func TestLoadDefaultWhenNothingExists(t *testing.T) {
	cfg := LoadFrom(logging.NoOpLogger{}, filepath.Join(t.TempDir(), FileName))

	assert.Equal(t, "competitor-analysis-agent", cfg.Name)
	assert.Equal(t, "http://0.0.0.0:3773", cfg.Deployment.URL)
	assert.True(t, cfg.Deployment.Expose)
	require.Len(t, cfg.EnvironmentVariables, 4)

	keys := make([]string, 0, 4)
	required := map[string]bool{}
	for _, ev := range cfg.EnvironmentVariables {
		keys = append(keys, ev.Key)
		required[ev.Key] = ev.Required
	}
	assert.Equal(t, []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY", "FIRECRAWL_API_KEY", "MEM0_API_KEY"}, keys)
	assert.True(t, required["FIRECRAWL_API_KEY"])
	assert.False(t, required["OPENAI_API_KEY"])
}

func TestPartialManifestKeepsDefaults(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `{"name": "partial"}`)

	cfg := LoadFrom(logging.NoOpLogger{}, path)
	assert.Equal(t, "partial", cfg.Name)
	assert.Equal(t, "http://0.0.0.0:3773", cfg.Deployment.URL)
	assert.Equal(t, 30, cfg.MCP.TimeoutSeconds)
	assert.True(t, cfg.MCP.AllowPartialFailure)
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:3773", cfg.ListenAddr())

	cfg.Deployment.URL = "http://127.0.0.1:8080"
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr())

	cfg.Deployment.URL = "::broken::"
	assert.Equal(t, "0.0.0.0:3773", cfg.ListenAddr())
}
