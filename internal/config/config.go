// Package config loads the service configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, RECIPES_*
// environment variables, then command-line flags (applied by the CLI).
// The merged result is checked against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recipedecider/internal/persist"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full service configuration.
type Config struct {
	Addr               string   `yaml:"addr" json:"addr"`
	LogLevel           string   `yaml:"log_level" json:"log_level"`
	LogFormat          string   `yaml:"log_format" json:"log_format"`
	Seed               uint64   `yaml:"seed" json:"seed"` // 0 seeds from entropy
	AllowedOrigins     []string `yaml:"allowed_origins" json:"allowed_origins"`
	BroadcastTimeoutMS int      `yaml:"broadcast_timeout_ms" json:"broadcast_timeout_ms"`
	Trace              string   `yaml:"trace" json:"trace"`
	Storage            Storage  `yaml:"storage" json:"storage"`
}

// Storage selects the persistence backend.
type Storage struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
	DSN    string `yaml:"dsn" json:"dsn"`
	S3     S3     `yaml:"s3" json:"s3"`
}

// S3 configures the s3 driver. Credentials come from the standard AWS
// environment and shared config files.
type S3 struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Key       string `yaml:"key" json:"key"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:               ":8080",
		LogLevel:           "info",
		LogFormat:          "text",
		AllowedOrigins:     []string{},
		BroadcastTimeoutMS: 5000,
		Trace:              "none",
		Storage: Storage{
			Driver: string(persist.DriverSQLite),
			Path:   persist.DefaultPath,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// non-empty) and then with environment variables read through getenv.
// A nil getenv uses os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"RECIPES_ADDR":        &cfg.Addr,
		"RECIPES_LOG_LEVEL":   &cfg.LogLevel,
		"RECIPES_LOG_FORMAT":  &cfg.LogFormat,
		"RECIPES_TRACE":       &cfg.Trace,
		"RECIPES_DRIVER":      &cfg.Storage.Driver,
		"RECIPES_DB":          &cfg.Storage.Path,
		"RECIPES_DSN":         &cfg.Storage.DSN,
		"RECIPES_S3_BUCKET":   &cfg.Storage.S3.Bucket,
		"RECIPES_S3_KEY":      &cfg.Storage.S3.Key,
		"RECIPES_S3_REGION":   &cfg.Storage.S3.Region,
		"RECIPES_S3_ENDPOINT": &cfg.Storage.S3.Endpoint,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("RECIPES_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RECIPES_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	if v := getenv("RECIPES_BROADCAST_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RECIPES_BROADCAST_TIMEOUT_MS: %w", err)
		}
		cfg.BroadcastTimeoutMS = ms
	}
	if v := getenv("RECIPES_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RECIPES_S3_PATH_STYLE: %w", err)
		}
		cfg.Storage.S3.PathStyle = b
	}
	if v := getenv("RECIPES_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	return nil
}

// ValidationError reports a configuration rejected by the schema.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid config: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks c against the embedded CUE schema.
func (c Config) Validate() error {
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// BroadcastTimeout returns the per-subscriber write timeout.
func (c Config) BroadcastTimeout() time.Duration {
	return time.Duration(c.BroadcastTimeoutMS) * time.Millisecond
}

// Persist maps the storage section to a persist.Config.
func (c Config) Persist() persist.Config {
	return persist.Config{
		Driver: persist.Driver(c.Storage.Driver),
		Path:   c.Storage.Path,
		DSN:    c.Storage.DSN,
		S3: persist.S3Config{
			Bucket:    c.Storage.S3.Bucket,
			Key:       c.Storage.S3.Key,
			Region:    c.Storage.S3.Region,
			Endpoint:  c.Storage.S3.Endpoint,
			PathStyle: c.Storage.S3.PathStyle,
		},
	}
}
