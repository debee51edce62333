package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/soundclass/pkg/audio/mfcc"
	"github.com/haivivi/soundclass/pkg/classifier"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".giztoy"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
	// DefaultModelFile is the model file looked up in the app directory
	DefaultModelFile = "model.msgpack"
	// DefaultTimeout bounds one prediction when a context sets none
	DefaultTimeout = 60 * time.Second
)

// Config is the on-disk configuration: a set of named contexts, each
// selecting a model and its extraction settings.
type Config struct {
	// AppName is the application name (e.g. "soundclass")
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one classifier setup.
type Context struct {
	Name string `yaml:"name"`

	// Model is the pretrained model file. Empty means <app dir>/model.msgpack.
	Model string `yaml:"model,omitempty"`

	// ModelFormat overrides the format guessed from the model extension
	ModelFormat string `yaml:"model_format,omitempty"`

	// Features overrides MFCC parameters; fields left out keep the
	// defaults the models are trained with.
	Features *FeatureSettings `yaml:"features,omitempty"`

	// Cache enables the feature vector cache
	Cache *CacheConfig `yaml:"cache,omitempty"`

	// LogLevel is debug, info, warn or error
	LogLevel string `yaml:"log_level,omitempty"`

	// Timeout is the per-prediction timeout in seconds (0 means 60)
	Timeout int `yaml:"timeout,omitempty"`
}

// FeatureSettings is an MFCC parameter block. When decoded from YAML it
// starts from mfcc.DefaultConfig, so a file only lists what it changes.
type FeatureSettings mfcc.Config

// UnmarshalYAML overlays the document on mfcc.DefaultConfig.
func (f *FeatureSettings) UnmarshalYAML(b []byte) error {
	cfg := mfcc.DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return err
	}
	*f = FeatureSettings(cfg)
	return nil
}

// CacheConfig configures the feature cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir is the Badger directory. Empty means <app dir>/cache; "memory"
	// keeps the cache in process.
	Dir string `yaml:"dir,omitempty"`

	// TTL is how long entries live, e.g. "720h". Empty never expires.
	TTL string `yaml:"ttl,omitempty"`
}

// LoadConfig loads configuration for the specified app. A missing file
// yields an empty config.
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	var configPath string

	if customPath != "" {
		configPath = customPath
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, appName, DefaultConfigFile)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing saved yet; written on first change.
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.AppName = appName
	cfg.configPath = configPath

	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(c.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context. The first context added becomes
// current.
func (c *Config) AddContext(name string, ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, the current context if name is
// empty, or an empty default context if none is configured.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	if c.CurrentContext != "" {
		return c.GetContext(c.CurrentContext)
	}
	return &Context{Name: "default"}, nil
}

// ListContexts returns all context names in sorted order
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks values that would otherwise fail at prediction time.
func (ctx *Context) Validate() error {
	fc := ctx.FeatureConfig()
	if err := fc.Validate(); err != nil {
		return err
	}
	if fc.NumCoeffs != classifier.ExpectedInputWidth {
		return fmt.Errorf("features: num_coeffs must be %d, got %d", classifier.ExpectedInputWidth, fc.NumCoeffs)
	}
	if _, err := ParseLogLevel(ctx.LogLevel); err != nil {
		return err
	}
	if ctx.Timeout < 0 {
		return fmt.Errorf("invalid timeout %d", ctx.Timeout)
	}
	if ctx.Cache != nil && ctx.Cache.TTL != "" {
		if _, err := time.ParseDuration(ctx.Cache.TTL); err != nil {
			return fmt.Errorf("invalid cache ttl: %w", err)
		}
	}
	return nil
}

// ModelPath returns the model file, defaulting to <appDir>/model.msgpack.
func (ctx *Context) ModelPath(p *Paths) string {
	if ctx.Model != "" {
		return ctx.Model
	}
	return p.ModelFile()
}

// FeatureConfig returns the MFCC parameters for this context.
func (ctx *Context) FeatureConfig() mfcc.Config {
	if ctx.Features != nil {
		return mfcc.Config(*ctx.Features)
	}
	return mfcc.DefaultConfig()
}

// TimeoutDuration returns the prediction timeout.
func (ctx *Context) TimeoutDuration() time.Duration {
	if ctx.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(ctx.Timeout) * time.Second
}

// CacheTTL returns the cache entry lifetime; zero never expires.
func (ctx *Context) CacheTTL() time.Duration {
	if ctx.Cache == nil || ctx.Cache.TTL == "" {
		return 0
	}
	d, _ := time.ParseDuration(ctx.Cache.TTL)
	return d
}

// ParseLogLevel maps a level name to a slog.Level. Empty is info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
