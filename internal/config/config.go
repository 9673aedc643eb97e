// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates. All thresholds governing routing, caching, and
// memory live here; no core logic recompiles to change them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/gacerioni/redis-context-enabled-semantic-cache-llm/pkg/errors"
)

// Config represents the complete service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Routing    RoutingConfig    `yaml:"routing"`
	Cache      CacheConfig      `yaml:"cache"`
	Memory     MemoryConfig     `yaml:"memory"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig contains connection settings for the persistent store.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// EmbeddingConfig configures the embedding service adapter. Queries, route
// exemplars, and cache keys must all share this embedding space.
type EmbeddingConfig struct {
	APIKey    string        `yaml:"api_key"`
	APIBase   string        `yaml:"api_base"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`

	// MemoTTL controls memoization of repeated texts (route exemplars,
	// retried queries). Zero disables memoization.
	MemoTTL time.Duration `yaml:"memo_ttl"`

	// RequestsPerSecond rate-limits outbound embedding calls. Zero means
	// unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GenerationConfig configures the generation service adapter.
type GenerationConfig struct {
	APIKey       string        `yaml:"api_key"`
	APIBase      string        `yaml:"api_base"`
	CheapModel   string        `yaml:"cheap_model"`
	PremiumModel string        `yaml:"premium_model"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`

	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RouteConfig declares one semantic route. Declaration order matters:
// similarity ties between routes are broken by the first-declared route.
type RouteConfig struct {
	Name      string   `yaml:"name"`
	Exemplars []string `yaml:"exemplars"`

	// Threshold is the minimum cosine similarity between the query and the
	// closest exemplar for the route to match.
	Threshold float64 `yaml:"threshold"`
}

// RoutingConfig lists the semantic routes. An empty list is valid: every
// query then falls through to the default route.
type RoutingConfig struct {
	Routes       []RouteConfig `yaml:"routes"`
	DefaultRoute string        `yaml:"default_route"`
}

// CacheConfig configures the semantic answer cache.
type CacheConfig struct {
	// HitThreshold governs when a cached generic answer is reused.
	HitThreshold float64 `yaml:"hit_threshold"`

	// DuplicateThreshold governs cache growth: a store whose embedding is at
	// least this similar to an existing entry merges into it instead of
	// inserting. Independent of HitThreshold, typically higher.
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`

	// LookupCandidates is how many nearest entries a lookup inspects before
	// declaring a miss.
	LookupCandidates int `yaml:"lookup_candidates"`

	TTL       time.Duration `yaml:"ttl"`
	Namespace string        `yaml:"namespace"`
}

// MemoryConfig configures short-term and long-term memory.
type MemoryConfig struct {
	ShortTermMaxTurns int           `yaml:"short_term_max_turns"`
	ShortTermTTL      time.Duration `yaml:"short_term_ttl"`
	ShortTermWindow   int           `yaml:"short_term_window"`
	LongTermCap       int           `yaml:"long_term_cap"`
	PromotionEnabled  bool          `yaml:"promotion_enabled"`
}

// RetrievalConfig configures knowledge-base retrieval.
type RetrievalConfig struct {
	TopK      int    `yaml:"top_k"`
	Namespace string `yaml:"namespace"`
}

// AuthConfig configures optional bearer-token authentication.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	Insecure    bool    `yaml:"insecure"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		},
		Embedding: EmbeddingConfig{
			APIBase:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			Timeout:   30 * time.Second,
			MemoTTL:   10 * time.Minute,
		},
		Generation: GenerationConfig{
			APIBase:      "https://api.openai.com/v1",
			CheapModel:   "gpt-4o-mini",
			PremiumModel: "gpt-4o",
			MaxTokens:    1024,
			Timeout:      60 * time.Second,
		},
		Routing: RoutingConfig{
			DefaultRoute: "general",
		},
		Cache: CacheConfig{
			HitThreshold:       0.85,
			DuplicateThreshold: 0.95,
			LookupCandidates:   4,
			TTL:                24 * time.Hour,
			Namespace:          "anscache",
		},
		Memory: MemoryConfig{
			ShortTermMaxTurns: 24,
			ShortTermTTL:      30 * time.Minute,
			ShortTermWindow:   6,
			LongTermCap:       128,
			PromotionEnabled:  true,
		},
		Retrieval: RetrievalConfig{
			TopK:      3,
			Namespace: "kb",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "anscache",
			SampleRate:  1.0,
			Insecure:    true,
		},
	}
}

// LoadFromFile reads and validates configuration from a YAML file.
// Defaults are applied before the file is overlaid.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and returns a ConfigError on the first
// violation. Threshold errors are fatal at startup, never at query time.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return pkgerrors.NewConfigError("server.port", "must be between 1 and 65535")
	}
	if c.Redis.Addr == "" {
		return pkgerrors.NewConfigError("redis.addr", "is required")
	}
	if c.Embedding.Model == "" {
		return pkgerrors.NewConfigError("embedding.model", "is required")
	}
	if c.Embedding.Dimension <= 0 {
		return pkgerrors.NewConfigError("embedding.dimension", "must be positive")
	}
	if c.Generation.CheapModel == "" {
		return pkgerrors.NewConfigError("generation.cheap_model", "is required")
	}
	if c.Generation.PremiumModel == "" {
		return pkgerrors.NewConfigError("generation.premium_model", "is required")
	}
	if c.Routing.DefaultRoute == "" {
		return pkgerrors.NewConfigError("routing.default_route", "is required")
	}
	seen := make(map[string]struct{}, len(c.Routing.Routes))
	for i, r := range c.Routing.Routes {
		field := fmt.Sprintf("routing.routes[%d]", i)
		if r.Name == "" {
			return pkgerrors.NewConfigError(field+".name", "is required")
		}
		if _, dup := seen[r.Name]; dup {
			return pkgerrors.NewConfigError(field+".name", "duplicate route name "+r.Name)
		}
		seen[r.Name] = struct{}{}
		if len(r.Exemplars) == 0 {
			return pkgerrors.NewConfigError(field+".exemplars", "at least one exemplar is required")
		}
		if r.Threshold <= 0 || r.Threshold > 1 {
			return pkgerrors.NewConfigError(field+".threshold", "must be in (0, 1]")
		}
	}
	if c.Cache.HitThreshold <= 0 || c.Cache.HitThreshold > 1 {
		return pkgerrors.NewConfigError("cache.hit_threshold", "must be in (0, 1]")
	}
	if c.Cache.DuplicateThreshold <= 0 || c.Cache.DuplicateThreshold > 1 {
		return pkgerrors.NewConfigError("cache.duplicate_threshold", "must be in (0, 1]")
	}
	if c.Cache.LookupCandidates <= 0 {
		return pkgerrors.NewConfigError("cache.lookup_candidates", "must be positive")
	}
	if c.Memory.ShortTermMaxTurns <= 0 {
		return pkgerrors.NewConfigError("memory.short_term_max_turns", "must be positive")
	}
	if c.Memory.ShortTermTTL <= 0 {
		return pkgerrors.NewConfigError("memory.short_term_ttl", "must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return pkgerrors.NewConfigError("retrieval.top_k", "must be positive")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return pkgerrors.NewConfigError("auth.jwt_secret", "is required when auth is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return pkgerrors.NewConfigError("tracing.endpoint", "is required when tracing is enabled")
	}
	return nil
}
