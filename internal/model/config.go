package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Quotes       QuotesConfig      `yaml:"quotes" mapstructure:"quotes"`
	Catalog      CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Storage      StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Study        StudyConfig       `yaml:"study" mapstructure:"study"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig holds settings shared by every outbound HTTP client
type HTTPConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// QuotesConfig configures the upstream quote service
type QuotesConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"` // Per lookup
	Page           int    `yaml:"page" mapstructure:"page"`
}

// Timeout returns the per-lookup timeout
func (c QuotesConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 10)
}

// CatalogConfig configures the upstream anime catalog
type CatalogConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Retries        int    `yaml:"retries" mapstructure:"retries"`
}

// Timeout returns the catalog request timeout
func (c CatalogConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 15)
}

// CacheConfig configures caching of catalog responses
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTLSeconds int    `yaml:"memory_ttl_seconds" mapstructure:"memory_ttl_seconds"`
	Dir              string `yaml:"dir,omitempty" mapstructure:"dir"` // Empty disables the disk layer
	DiskTTLSeconds   int    `yaml:"disk_ttl_seconds" mapstructure:"disk_ttl_seconds"`
}

// RateLimitConfig configures per-host outbound rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LLMConfig configures the optional language model
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama or empty
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the protocol bridge
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	PublicURL      string   `yaml:"public_url" mapstructure:"public_url"` // Advertised in the agent card
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// StorageConfig configures persistence
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite file, or :memory:
}

// StudyConfig configures document processing
type StudyConfig struct {
	ChunkWords    int  `yaml:"chunk_words" mapstructure:"chunk_words"`
	ChunkOverlap  int  `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	ContextChunks int  `yaml:"context_chunks" mapstructure:"context_chunks"`
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent:    "animequote/0.3 (+https://github.com/ppiankov/animequote)",
			MaxBodyBytes: 5_000_000,
		},
		Quotes: QuotesConfig{
			BaseURL:        "https://api.animechan.io/v1",
			TimeoutSeconds: 10,
			Page:           1,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://api.jikan.moe/v4",
			TimeoutSeconds: 15,
			Retries:        2,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryTTLSeconds: 600,
			DiskTTLSeconds:   86400,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 3,
			BurstSize:         3,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		LLM: LLMConfig{
			TimeoutSeconds: 30,
			MaxTokens:      800,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			PublicURL:      "http://127.0.0.1:8787",
			AllowedOrigins: []string{"http://localhost:*", "https://*"},
		},
		Storage: StorageConfig{
			Path: "~/.animequote/animequote.db",
		},
		Study: StudyConfig{
			ChunkWords:    220,
			ChunkOverlap:  40,
			ContextChunks: 4,
			RespectRobots: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
