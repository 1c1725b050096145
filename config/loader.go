// Package config: configuration loading.
//
// Priority: defaults -> YAML file -> environment variable fallback.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/llmpool/llm"
)

// KeyRecord is one entry in a family's key list.
type KeyRecord struct {
	APIKey    string `yaml:"api_key"`
	APIBase   string `yaml:"api_base"`
	Model     string `yaml:"model"`
	RateLimit int    `yaml:"rate_limit"`
}

// LLMConfig is the top-level `llm` map: which families are in use, and
// each enabled family's key records.
type LLMConfig struct {
	Use        string                 `yaml:"use"`
	Families   map[string][]KeyRecord `yaml:",inline"`
	MaxValidatorRetries int           `yaml:"max_validator_retries"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// TelemetryConfig controls the OpenTelemetry metrics sink.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// Config is the fan-out client's complete configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Loader loads a Config from a YAML file with a Builder-style chain of
// options.
type Loader struct {
	configPath string
	validators []func(*Config) error
}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{validators: make([]func(*Config) error, 0)}
}

// WithConfigPath sets the YAML file path to load from.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithValidator adds a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves a Config: defaults, then the YAML file if configPath is
// set and exists, then the LLMPOOL_API_KEY/API_BASE/MODEL environment
// fallback if no families ended up enabled.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
	}

	if len(enabledFamilies(cfg.LLM)) == 0 {
		applyEnvFallback(cfg)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// applyEnvFallback synthesizes a single-instance Family-A config from
// LLMPOOL_API_KEY / LLMPOOL_API_BASE / LLMPOOL_MODEL, per section 6.
func applyEnvFallback(cfg *Config) {
	apiKey := os.Getenv("LLMPOOL_API_KEY")
	apiBase := os.Getenv("LLMPOOL_API_BASE")
	model := os.Getenv("LLMPOOL_MODEL")
	if apiKey == "" || apiBase == "" || model == "" {
		return
	}
	if cfg.LLM.Families == nil {
		cfg.LLM.Families = map[string][]KeyRecord{}
	}
	cfg.LLM.Families["A"] = []KeyRecord{{APIKey: apiKey, APIBase: apiBase, Model: model}}
	cfg.LLM.Use = "A"
}

// enabledFamilies splits LLMConfig.Use into the family names eligible for
// pool construction.
func enabledFamilies(c LLMConfig) []string {
	if strings.TrimSpace(c.Use) == "" {
		return nil
	}
	parts := strings.Split(c.Use, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuildPoolConfig converts the loaded LLM section into an llm.PoolConfig,
// preserving each enabled family's key-record declaration order. Per-entry
// rate_limit defaulting and api_base/model requiredness are re-validated by
// llm.BuildPool itself; this just reshapes the YAML-facing types into the
// pool-facing ones.
func (c *Config) BuildPoolConfig() (llm.PoolConfig, error) {
	names := enabledFamilies(c.LLM)
	if len(names) == 0 {
		return llm.PoolConfig{}, fmt.Errorf("llm.use must name at least one family")
	}

	pc := llm.PoolConfig{Keys: make(map[llm.Family][]llm.FamilyKeyConfig)}
	for _, name := range names {
		family := llm.Family(name)
		pc.Use = append(pc.Use, family)

		records := c.LLM.Families[name]
		keys := make([]llm.FamilyKeyConfig, 0, len(records))
		for _, r := range records {
			keys = append(keys, llm.FamilyKeyConfig{
				APIKey:    r.APIKey,
				APIBase:   r.APIBase,
				Model:     r.Model,
				RateLimit: r.RateLimit,
			})
		}
		pc.Keys[family] = keys
	}
	return pc, nil
}

// MustLoad loads a Config from path, panicking on failure. Intended for
// cmd/llmpool's startup path only.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
