package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all nutricoach configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// DataDir is where all user data lives: config.yaml, profile.json,
	// targets.json, nutrition.txt, report files, the lookup cache and logs.
	DataDir string `yaml:"data_dir"`

	// LLM configures the generative-text provider.
	LLM LLMConfig `yaml:"llm"`

	// FatSecret configures the food-composition source.
	FatSecret FatSecretConfig `yaml:"fatsecret"`

	// Tavily configures web search for meal recommendations.
	Tavily TavilyConfig `yaml:"tavily"`

	// Pipeline configures the nutrient-resolution pipeline.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Cache configures the optional composition lookup cache.
	Cache CacheConfig `yaml:"cache"`

	// Server configures the HTTP chat surface.
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generative-text client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// FatSecretConfig configures the signed composition-source client.
type FatSecretConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	BaseURL        string `yaml:"base_url"`
	Timeout        string `yaml:"timeout"`
}

// TavilyConfig configures the Tavily search client.
type TavilyConfig struct {
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// PipelineConfig configures mention resolution.
type PipelineConfig struct {
	// Concurrency > 1 resolves mentions in parallel workers.
	// Output order is always the input mention order.
	Concurrency int `yaml:"concurrency"`
}

// CacheConfig configures the SQLite lookup cache.
// An empty Path disables caching entirely.
type CacheConfig struct {
	Path string `yaml:"path"`
	TTL  string `yaml:"ttl"`
}

// ServerConfig configures the HTTP chat surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultDataDir returns ~/.nutricoach, falling back to ./.nutricoach
// when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nutricoach"
	}
	return filepath.Join(home, ".nutricoach")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "nutricoach",
		Version: "1.0.0",

		DataDir: DefaultDataDir(),

		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			BaseURL:  "",
			Timeout:  "120s",
		},

		FatSecret: FatSecretConfig{
			BaseURL: "https://platform.fatsecret.com/rest/server.api",
			Timeout: "10s",
		},

		Tavily: TavilyConfig{
			Timeout: "30s",
		},

		Pipeline: PipelineConfig{
			Concurrency: 1,
		},

		Cache: CacheConfig{
			Path: "",
			TTL:  "24h",
		},

		Server: ServerConfig{
			Addr: ":8080",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from <dataDir>/config.yaml, applying defaults
// for anything the file does not set and environment overrides on top.
// A missing file yields defaults, not an error.
func Load(dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	path := filepath.Join(cfg.DataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// An explicitly requested data dir wins over whatever the file says.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to <dataDir>/config.yaml.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(c.DataDir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("NUTRICOACH_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}

	// LLM API key from environment (checked in priority order)
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	// Composition source credentials
	if key := os.Getenv("FATSECRET_CONSUMER_KEY"); key != "" {
		c.FatSecret.ConsumerKey = key
	}
	if secret := os.Getenv("FATSECRET_CONSUMER_SECRET"); secret != "" {
		c.FatSecret.ConsumerSecret = secret
	}

	// Web search key
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		c.Tavily.APIKey = key
	}

	// Cache path from environment
	if path := os.Getenv("NUTRICOACH_CACHE_DB"); path != "" {
		c.Cache.Path = path
	}
}

// JournalPath returns the path of the append-only nutrition journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "nutrition.txt")
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetFatSecretTimeout returns the composition-source timeout as a duration.
func (c *Config) GetFatSecretTimeout() time.Duration {
	d, err := time.ParseDuration(c.FatSecret.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetTavilyTimeout returns the web-search timeout as a duration.
func (c *Config) GetTavilyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Tavily.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCacheTTL returns the lookup-cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
