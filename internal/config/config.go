package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxPathDepth caps find-paths depth requests; enumeration cost
	// grows exponentially with depth.
	DefaultMaxPathDepth = 10

	// DefaultMaxPaths caps the number of paths returned per search.
	DefaultMaxPaths = 100

	// DefaultTopConnected is how many entities the degree ranking surfaces.
	DefaultTopConnected = 10
)

// Config holds all configuration for adgraph.
type Config struct {
	Storage Storage `mapstructure:"storage"`
	Graph   Graph   `mapstructure:"graph"`
	Claude  Claude  `mapstructure:"claude"`
	Neo4j   Neo4j   `mapstructure:"neo4j"`
	API     API     `mapstructure:"api"`
	Logging Logging `mapstructure:"logging"`
}

// Storage holds embedded-store settings.
type Storage struct {
	Dir        string `mapstructure:"dir"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// Graph holds traversal limits.
type Graph struct {
	MaxPathDepth int `mapstructure:"max_path_depth"`
	MaxPaths     int `mapstructure:"max_paths"`
	TopConnected int `mapstructure:"top_connected"`
}

// Claude holds Anthropic API settings for brief extraction.
type Claude struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of Claude with the API key masked.
func (c Claude) String() string {
	return fmt.Sprintf("Claude{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// Neo4j holds connection settings for the graph mirror.
type Neo4j struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// API holds HTTP API server settings.
type API struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Logging holds structured logging settings.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("storage.dir", filepath.Join(homeDir(), ".adgraph", "data"))
	v.SetDefault("storage.sync_writes", true)

	v.SetDefault("graph.max_path_depth", DefaultMaxPathDepth)
	v.SetDefault("graph.max_paths", DefaultMaxPaths)
	v.SetDefault("graph.top_connected", DefaultTopConnected)

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".adgraph"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("ADGRAPH")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("storage.dir", "ADGRAPH_STORAGE_DIR")
	_ = v.BindEnv("neo4j.uri", "ADGRAPH_NEO4J_URI")
	_ = v.BindEnv("neo4j.password", "ADGRAPH_NEO4J_PASSWORD")
	_ = v.BindEnv("api.listen_addr", "ADGRAPH_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "ADGRAPH_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// A missing config file is fine; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	if c.Graph.MaxPathDepth <= 0 {
		return fmt.Errorf("graph.max_path_depth must be greater than 0")
	}
	if c.Graph.MaxPaths <= 0 {
		return fmt.Errorf("graph.max_paths must be greater than 0")
	}
	if c.Graph.TopConnected <= 0 {
		return fmt.Errorf("graph.top_connected must be greater than 0")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
