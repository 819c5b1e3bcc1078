// Package config loads bustcall's settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/psantana5/bustcall/internal/cache"
	"github.com/psantana5/bustcall/internal/severity"
)

// EnvPrefix namespaces environment overrides, e.g. BUSTCALL_CACHE_ROOT
const EnvPrefix = "BUSTCALL"

// Cache backends
const (
	BackendFS    = "fs"
	BackendRedis = "redis"
)

// Config is the complete, typed configuration
type Config struct {
	Log        LogConfig       `mapstructure:"log" yaml:"log"`
	Cache      CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Probe      ProbeConfig     `mapstructure:"probe" yaml:"probe"`
	Thresholds ThresholdConfig `mapstructure:"thresholds" yaml:"thresholds"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Tracing    TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
	DryRun     bool            `mapstructure:"dry_run" yaml:"dry_run"`
}

// LogConfig controls diagnostics
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error, fatal
	JSON  bool   `mapstructure:"json" yaml:"json"`
	File  bool   `mapstructure:"file" yaml:"file"` // also write to /var/log/bustcall/cli
}

// CacheConfig selects and configures the invalidation backend
type CacheConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Root    string      `mapstructure:"root" yaml:"root"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig is used when Backend is "redis"
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ProbeConfig configures the integrity probe
type ProbeConfig struct {
	Rules   string        `mapstructure:"rules" yaml:"rules"` // YAML rules file; empty uses the built-in rules
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries int           `mapstructure:"retries" yaml:"retries"`
}

// ThresholdConfig holds the tier lower bounds. Values are ints so that
// out-of-range input is reported instead of silently wrapped.
type ThresholdConfig struct {
	Warning  int `mapstructure:"warning" yaml:"warning"`
	Danger   int `mapstructure:"danger" yaml:"danger"`
	Critical int `mapstructure:"critical" yaml:"critical"`
	Panic    int `mapstructure:"panic" yaml:"panic"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// TracingConfig configures OTLP export
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	th := severity.DefaultThresholds()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", false)

	v.SetDefault("cache.backend", BackendFS)
	v.SetDefault("cache.root", cache.DefaultRoot)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", cache.DefaultKeyPrefix)
	v.SetDefault("cache.redis.timeout", 2*time.Second)

	v.SetDefault("probe.rules", "")
	v.SetDefault("probe.timeout", 5*time.Second)
	v.SetDefault("probe.retries", 2)

	v.SetDefault("thresholds.warning", int(th.Warning))
	v.SetDefault("thresholds.danger", int(th.Danger))
	v.SetDefault("thresholds.critical", int(th.Critical))
	v.SetDefault("thresholds.panic", int(th.Panic))

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.environment", "production")

	v.SetDefault("dry_run", false)
}

// BindEnv enables BUSTCALL_* overrides, with dots in keys mapped to
// underscores (cache.redis.addr -> BUSTCALL_CACHE_REDIS_ADDR).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true, "fatal": true,
}

// Validate reports every problem found, joined
func (c *Config) Validate() error {
	var errs []error

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	switch c.Cache.Backend {
	case BackendFS:
		if strings.TrimSpace(c.Cache.Root) == "" {
			errs = append(errs, errors.New("cache.root: must not be empty"))
		}
	case BackendRedis:
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr: must not be empty"))
		}
		if c.Cache.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("cache.redis.db: must be >= 0, got %d", c.Cache.Redis.DB))
		}
		if c.Cache.Redis.Timeout < 0 {
			errs = append(errs, errors.New("cache.redis.timeout: must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend: must be %q or %q, got %q", BackendFS, BackendRedis, c.Cache.Backend))
	}

	if c.Probe.Timeout < 0 {
		errs = append(errs, errors.New("probe.timeout: must not be negative"))
	}
	if c.Probe.Retries < 0 {
		errs = append(errs, fmt.Errorf("probe.retries: must be >= 0, got %d", c.Probe.Retries))
	}

	if _, err := c.Thresholds.Severity(); err != nil {
		errs = append(errs, err)
	}

	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.Endpoint) == "" {
		errs = append(errs, errors.New("tracing.endpoint: required when tracing is enabled"))
	}

	return errors.Join(errs...)
}

// Severity converts the bounds into a validated classifier table
func (t ThresholdConfig) Severity() (severity.Thresholds, error) {
	named := []struct {
		key string
		v   int
	}{
		{"thresholds.warning", t.Warning},
		{"thresholds.danger", t.Danger},
		{"thresholds.critical", t.Critical},
		{"thresholds.panic", t.Panic},
	}
	for _, n := range named {
		if n.v < 0 || n.v > int(severity.MaxScore) {
			return severity.Thresholds{}, fmt.Errorf("%s: %d is outside 0-%d", n.key, n.v, severity.MaxScore)
		}
	}

	th := severity.Thresholds{
		Warning:  severity.Score(t.Warning),
		Danger:   severity.Score(t.Danger),
		Critical: severity.Score(t.Critical),
		Panic:    severity.Score(t.Panic),
	}
	if err := th.Validate(); err != nil {
		return severity.Thresholds{}, fmt.Errorf("thresholds: %w", err)
	}
	return th, nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.Cache.Redis.Password != "" {
		c.Cache.Redis.Password = "********"
	}
	return c
}

// ExampleConfig is written by `bustcall config init`. It matches the
// defaults.
const ExampleConfig = `# bustcall configuration
# Location: $HOME/.bustcall/config.yaml (or --config)
# Every key can be overridden with BUSTCALL_<KEY>, e.g. BUSTCALL_CACHE_ROOT.

log:
  level: info      # debug, info, warn, error, fatal
  json: false
  file: false      # also write to /var/log/bustcall/cli (falls back to ./logs)

cache:
  backend: fs      # fs or redis
  root: /tmp/cache
  redis:
    addr: localhost:6379
    password: ""
    db: 0
    prefix: "bustcall:"
    timeout: 2s

probe:
  rules: ""        # YAML rules file; empty uses the built-in rules
  timeout: 5s
  retries: 2

# Lower bound of each tier. Scores below warning are ok.
thresholds:
  warning: 4
  danger: 7
  critical: 10
  panic: 12

metrics:
  textfile: ""     # e.g. /var/lib/node_exporter/textfile/bustcall.prom

tracing:
  enabled: false
  endpoint: localhost:4318
  insecure: true
  environment: production

dry_run: false
`
