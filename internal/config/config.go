// Package config loads flatval settings from a YAML file, FLATVAL_*
// environment variables and command-line overrides, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no file is named explicitly and it exists.
const DefaultPath = "flatval.yaml"

// Evaluator kinds.
const (
	EvaluatorRemote = "remote"
	EvaluatorExpr   = "expr"
	EvaluatorJQ     = "jq"
)

// Config is the complete runtime configuration.
type Config struct {
	LogLevel     string          `mapstructure:"log_level"`
	LogFormat    string          `mapstructure:"log_format"`
	MaxInputSize int             `mapstructure:"max_input_size"`
	Evaluator    EvaluatorConfig `mapstructure:"evaluator"`
	Server       ServerConfig    `mapstructure:"server"`
	Redis        RedisConfig     `mapstructure:"redis"`
	Render       RenderConfig    `mapstructure:"render"`
}

// EvaluatorConfig selects where code runs.
type EvaluatorConfig struct {
	Kind    string        `mapstructure:"kind"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures `flatval serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// ViewIdle is how long an unused session keeps its display state.
	ViewIdle time.Duration `mapstructure:"view_idle"`
}

// RedisConfig enables the Redis history store and locker when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// RenderConfig controls how heaps are displayed.
type RenderConfig struct {
	Location    string `mapstructure:"location"`
	MaxDepth    int    `mapstructure:"max_depth"`
	ExpandLimit int    `mapstructure:"expand_limit"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:     "info",
		LogFormat:    "text",
		MaxInputSize: 64 * 1024,
		Evaluator: EvaluatorConfig{
			Kind:    EvaluatorExpr,
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			ViewIdle:        30 * time.Minute,
		},
		Redis: RedisConfig{
			Prefix:  "flatval:",
			TTL:     24 * time.Hour,
			LockTTL: 60 * time.Second,
		},
		Render: RenderConfig{
			Location:    "UTC",
			MaxDepth:    1024,
			ExpandLimit: 500,
		},
	}
}

// envKeys maps environment variables onto configuration keys.
var envKeys = map[string]string{
	"FLATVAL_LOG_LEVEL":           "log_level",
	"FLATVAL_LOG_FORMAT":          "log_format",
	"FLATVAL_MAX_INPUT_SIZE":      "max_input_size",
	"FLATVAL_EVALUATOR":           "evaluator.kind",
	"FLATVAL_EVALUATOR_URL":       "evaluator.url",
	"FLATVAL_EVALUATOR_TIMEOUT":   "evaluator.timeout",
	"FLATVAL_ADDR":                "server.addr",
	"FLATVAL_SHUTDOWN_TIMEOUT":    "server.shutdown_timeout",
	"FLATVAL_VIEW_IDLE":           "server.view_idle",
	"FLATVAL_REDIS_ADDR":          "redis.addr",
	"FLATVAL_REDIS_PASSWORD":      "redis.password",
	"FLATVAL_REDIS_DB":            "redis.db",
	"FLATVAL_REDIS_PREFIX":        "redis.prefix",
	"FLATVAL_REDIS_TTL":           "redis.ttl",
	"FLATVAL_REDIS_LOCK_TTL":      "redis.lock_ttl",
	"FLATVAL_RENDER_LOCATION":     "render.location",
	"FLATVAL_RENDER_MAX_DEPTH":    "render.max_depth",
	"FLATVAL_RENDER_EXPAND_LIMIT": "render.expand_limit",
}

// Load builds the configuration. path may be empty, in which case
// DefaultPath is read if present. overrides holds dotted keys
// ("evaluator.url") set from flags.
func Load(path string, overrides map[string]any) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	env := map[string]any{}
	for name, key := range envKeys {
		if v, ok := os.LookupEnv(name); ok {
			setPath(env, key, v)
		}
	}
	if err := decode(env, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}

	flags := map[string]any{}
	for key, v := range overrides {
		setPath(flags, key, v)
	}
	if err := decode(flags, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, cfg.Validate()
}

// decode merges raw onto cfg; keys absent from raw keep their value.
func decode(raw map[string]any, cfg *Config) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func setPath(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Evaluator.Kind {
	case EvaluatorRemote:
		if c.Evaluator.URL == "" {
			errs = append(errs, errors.New("evaluator.url is required for the remote evaluator"))
		}
	case EvaluatorExpr, EvaluatorJQ:
	default:
		errs = append(errs, fmt.Errorf("unknown evaluator %q (want %s)", c.Evaluator.Kind,
			strings.Join([]string{EvaluatorRemote, EvaluatorExpr, EvaluatorJQ}, ", ")))
	}
	if _, err := time.LoadLocation(c.Render.Location); err != nil {
		errs = append(errs, fmt.Errorf("render.location: %w", err))
	}
	if c.Render.MaxDepth <= 0 {
		errs = append(errs, errors.New("render.max_depth must be positive"))
	}
	if c.Render.ExpandLimit < 0 {
		errs = append(errs, errors.New("render.expand_limit must not be negative"))
	}
	if c.Server.ViewIdle < 0 {
		errs = append(errs, errors.New("server.view_idle must not be negative"))
	}
	if c.MaxInputSize < 0 {
		errs = append(errs, errors.New("max_input_size must not be negative"))
	}
	return errors.Join(errs...)
}

// Location returns the time zone dates are shown in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Render.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnvVars lists the recognised environment variables, sorted.
func EnvVars() []string {
	names := make([]string, 0, len(envKeys))
	for name := range envKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
