package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/convscore/internal/domain"
)

// Config holds the convscore validator configuration.
type Config struct {
	Identity      IdentityConfig      `yaml:"identity"`
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Storage       StorageConfig       `yaml:"storage"`
	Tagging       TaggingConfig       `yaml:"tagging"`
	Workers       WorkersConfig       `yaml:"workers"`
	Window        WindowConfig        `yaml:"window"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Loop          LoopConfig          `yaml:"loop"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// IdentityConfig identifies this validator to storage.
type IdentityConfig struct {
	Hotkey string `yaml:"hotkey"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds ops HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// APIKeys protects /v1 ops routes with Bearer auth. Empty disables auth.
	APIKeys []string `yaml:"api_keys"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout and reservation settings.
type StorageConfig struct {
	KeyPrefix         string `yaml:"key_prefix"`
	ReservationTTLSec int    `yaml:"reservation_ttl_sec"`
}

// TaggingConfig holds tagging engine settings.
type TaggingConfig struct {
	Provider       string `yaml:"provider"` // openai, simulated
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTags        int    `yaml:"max_tags"`
	Cache          *bool  `yaml:"cache"`
}

// CacheEnabled reports whether tag embeddings are cached in storage.
func (t TaggingConfig) CacheEnabled() bool {
	return t.Cache == nil || *t.Cache
}

// WorkersConfig holds worker network settings.
type WorkersConfig struct {
	Network   string `yaml:"network"` // live, simulated
	PerWindow int    `yaml:"per_window"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Retries re-sends a window on 502/503/504 within the same deadline (live only).
	Retries     int                 `yaml:"retries"`
	RetryWaitMs int                 `yaml:"retry_wait_ms"`
	Endpoints   []WorkerEndpoint    `yaml:"endpoints"`
	Simulated   SimulatedPoolConfig `yaml:"simulated"`
}

// WorkerEndpoint is one live worker.
type WorkerEndpoint struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// SimulatedPoolConfig configures the offline worker network.
type SimulatedPoolConfig struct {
	Count        int     `yaml:"count"`
	FailureRate  float64 `yaml:"failure_rate"`
	MaxLatencyMs int     `yaml:"max_latency_ms"`
	Seed         uint64  `yaml:"seed"`
}

// WindowConfig holds conversation windowing settings.
type WindowConfig struct {
	MinLines     int `yaml:"min_lines"`
	MaxLines     int `yaml:"max_lines"`
	OverlapLines int `yaml:"overlap_lines"`
	MinWindows   int `yaml:"min_windows"`
}

// ScoringConfig holds comparison and reward settings.
type ScoringConfig struct {
	MinTags                  int     `yaml:"min_tags"`
	UnmatchedReferenceWeight float64 `yaml:"unmatched_reference_weight"`
	UnmatchedWorkerWeight    float64 `yaml:"unmatched_worker_weight"`
	NoveltyWeight            float64 `yaml:"novelty_weight"`
	RewardScheme             string  `yaml:"reward_scheme"` // proportional, softmax, rank
	SoftmaxTemperature       float64 `yaml:"softmax_temperature"`
}

// LoopConfig holds run loop settings.
type LoopConfig struct {
	IdleBackoffMaxSec int `yaml:"idle_backoff_max_sec"`
	CyclePauseMs      int `yaml:"cycle_pause_ms"`
}

// ObservabilityConfig holds optional debug sinks.
type ObservabilityConfig struct {
	DebugLog string `yaml:"debug_log"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "convscore:"
	}
	if c.Storage.ReservationTTLSec <= 0 {
		c.Storage.ReservationTTLSec = 3600
	}
	c.applyTaggingDefaults()
	c.applyWorkerDefaults()
	c.applyWindowDefaults()
	c.applyScoringDefaults()
	if c.Loop.IdleBackoffMaxSec <= 0 {
		c.Loop.IdleBackoffMaxSec = 60
	}
}

func (c *Config) applyTaggingDefaults() {
	if c.Tagging.Provider == "" {
		c.Tagging.Provider = "openai"
	}
	if c.Tagging.ChatModel == "" {
		c.Tagging.ChatModel = "gpt-4o-mini"
	}
	if c.Tagging.EmbeddingModel == "" {
		c.Tagging.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Tagging.MaxTags <= 0 {
		c.Tagging.MaxTags = 20
	}
}

func (c *Config) applyWorkerDefaults() {
	if c.Workers.Network == "" {
		c.Workers.Network = "simulated"
	}
	if c.Workers.PerWindow <= 0 {
		c.Workers.PerWindow = 3
	}
	if c.Workers.TimeoutMs <= 0 {
		c.Workers.TimeoutMs = 30000
	}
	if c.Workers.RetryWaitMs <= 0 {
		c.Workers.RetryWaitMs = 200
	}
	if c.Workers.Simulated.Count <= 0 {
		c.Workers.Simulated.Count = 9
	}
}

func (c *Config) applyWindowDefaults() {
	if c.Window.MinLines <= 0 {
		c.Window.MinLines = 5
	}
	if c.Window.MaxLines <= 0 {
		c.Window.MaxLines = 10
	}
	if c.Window.OverlapLines <= 0 {
		c.Window.OverlapLines = 2
	}
	if c.Window.MinWindows <= 0 {
		c.Window.MinWindows = 2
	}
}

func (c *Config) applyScoringDefaults() {
	if c.Scoring.MinTags <= 0 {
		c.Scoring.MinTags = 1
	}
	if c.Scoring.UnmatchedReferenceWeight <= 0 {
		c.Scoring.UnmatchedReferenceWeight = 0.5
	}
	if c.Scoring.UnmatchedWorkerWeight <= 0 {
		c.Scoring.UnmatchedWorkerWeight = 0.5
	}
	if c.Scoring.NoveltyWeight <= 0 {
		c.Scoring.NoveltyWeight = 0.25
	}
	if c.Scoring.RewardScheme == "" {
		c.Scoring.RewardScheme = "proportional"
	}
	if c.Scoring.SoftmaxTemperature <= 0 {
		c.Scoring.SoftmaxTemperature = 1.0
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Identity.Hotkey == "" {
		return fmt.Errorf("identity.hotkey is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Tagging.Provider {
	case "openai", "simulated":
	default:
		return fmt.Errorf("tagging.provider must be \"openai\" or \"simulated\", got %q", c.Tagging.Provider)
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	w := c.Window
	if w.OverlapLines >= w.MinLines || w.MinLines > w.MaxLines {
		return fmt.Errorf(
			"window must satisfy overlap_lines < min_lines <= max_lines, got %d/%d/%d",
			w.OverlapLines, w.MinLines, w.MaxLines,
		)
	}
	switch c.Scoring.RewardScheme {
	case "proportional", "softmax", "rank":
	default:
		return fmt.Errorf(
			"scoring.reward_scheme must be \"proportional\", \"softmax\" or \"rank\", got %q",
			c.Scoring.RewardScheme,
		)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Retries < 0 {
		return fmt.Errorf("workers.retries must not be negative, got %d", c.Workers.Retries)
	}
	switch c.Workers.Network {
	case "simulated":
		if r := c.Workers.Simulated.FailureRate; r < 0 || r > 1 {
			return fmt.Errorf("workers.simulated.failure_rate must be in [0,1], got %v", r)
		}
	case "live":
		if len(c.Workers.Endpoints) == 0 {
			return fmt.Errorf("workers.endpoints is required for the live network")
		}
		seen := make(map[string]struct{}, len(c.Workers.Endpoints))
		for i, ep := range c.Workers.Endpoints {
			if ep.ID == "" || ep.URL == "" {
				return fmt.Errorf("workers.endpoints[%d] needs both id and url", i)
			}
			if _, dup := seen[ep.ID]; dup {
				return fmt.Errorf("workers.endpoints has duplicate id %q", ep.ID)
			}
			seen[ep.ID] = struct{}{}
		}
	default:
		return fmt.Errorf("workers.network must be \"live\" or \"simulated\", got %q", c.Workers.Network)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
