package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Keep the test independent of any config.yaml in the working directory.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Storage.Dir)
	assert.True(t, cfg.Storage.SyncWrites)
	assert.Equal(t, DefaultMaxPathDepth, cfg.Graph.MaxPathDepth)
	assert.Equal(t, DefaultMaxPaths, cfg.Graph.MaxPaths)
	assert.Equal(t, DefaultTopConnected, cfg.Graph.TopConnected)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADGRAPH_STORAGE_DIR", "/tmp/adgraph-test")
	t.Setenv("ADGRAPH_API_AUTH_TOKEN", "sekrit")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key-123456")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/adgraph-test", cfg.Storage.Dir)
	assert.Equal(t, "sekrit", cfg.API.AuthToken)
	assert.Equal(t, "sk-ant-test-key-123456", cfg.Claude.APIKey)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Storage: Storage{Dir: "/tmp/x"},
		Graph:   Graph{MaxPathDepth: 10, MaxPaths: 100, TopConnected: 10},
		Neo4j:   Neo4j{URI: "bolt://localhost:7687"},
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty storage dir", func(c *Config) { c.Storage.Dir = "" }},
		{"zero path depth", func(c *Config) { c.Graph.MaxPathDepth = 0 }},
		{"zero max paths", func(c *Config) { c.Graph.MaxPaths = 0 }},
		{"zero top connected", func(c *Config) { c.Graph.TopConnected = 0 }},
		{"empty neo4j uri", func(c *Config) { c.Neo4j.URI = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := *valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestClaudeStringMasksAPIKey(t *testing.T) {
	c := Claude{APIKey: "sk-ant-api03-abcdef123456", Model: "claude-haiku-4-5-20251001"}
	s := c.String()
	assert.NotContains(t, s, "api03-abcdef")
	assert.Contains(t, s, "sk-a")
	assert.Contains(t, s, "3456")

	short := Claude{APIKey: "tiny"}
	assert.Contains(t, short.String(), "***")
	assert.NotContains(t, short.String(), "tiny")
}
