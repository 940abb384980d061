// Package config loads changereview's YAML configuration. Environment variables are expanded in the file before parsing, and fields tagged `env:"NAME"` are
// then overridden by $NAME when it is set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/codalotl/changereview/internal/diff"
	"github.com/codalotl/changereview/internal/hunk"
	"github.com/codalotl/changereview/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is named.
const DefaultPath = ".changereview.yaml"

// Store backends.
const (
	StoreFS = "fs"
	StoreS3 = "s3"
)

// History backends.
const (
	HistoryNone   = "none"
	HistorySQLite = "sqlite"
	HistoryRedis  = "redis"
)

type Config struct {
	Diff    Diff    `yaml:"diff"`
	Hunks   Hunks   `yaml:"hunks"`
	Store   Store   `yaml:"store"`
	History History `yaml:"history"`
	Review  Review  `yaml:"review"`
	Log     Log     `yaml:"log"`
}

type Diff struct {
	Granularity     string        `yaml:"granularity" env:"CHANGEREVIEW_DIFF_GRANULARITY"` // word, line, or char
	MergeThreshold  int           `yaml:"merge_threshold" env:"CHANGEREVIEW_DIFF_MERGE_THRESHOLD"`
	SemanticCleanup bool          `yaml:"semantic_cleanup" env:"CHANGEREVIEW_DIFF_SEMANTIC_CLEANUP"`
	Timeout         time.Duration `yaml:"timeout" env:"CHANGEREVIEW_DIFF_TIMEOUT"` // 0 is unbounded
}

type Hunks struct {
	ContextLines int `yaml:"context_lines" env:"CHANGEREVIEW_HUNKS_CONTEXT_LINES"`
}

type Store struct {
	Backend string `yaml:"backend" env:"CHANGEREVIEW_STORE_BACKEND"` // fs or s3
	Root    string `yaml:"root" env:"CHANGEREVIEW_STORE_ROOT"`       // fs only
	S3      S3     `yaml:"s3"`
}

type S3 struct {
	Bucket    string `yaml:"bucket" env:"CHANGEREVIEW_S3_BUCKET"`
	Prefix    string `yaml:"prefix" env:"CHANGEREVIEW_S3_PREFIX"`
	Region    string `yaml:"region" env:"AWS_REGION"`
	Endpoint  string `yaml:"endpoint" env:"CHANGEREVIEW_S3_ENDPOINT"`
	PathStyle bool   `yaml:"path_style" env:"CHANGEREVIEW_S3_PATH_STYLE"`
}

type History struct {
	Backend     string `yaml:"backend" env:"CHANGEREVIEW_HISTORY_BACKEND"` // none, sqlite, or redis
	SQLitePath  string `yaml:"sqlite_path" env:"CHANGEREVIEW_HISTORY_SQLITE_PATH"`
	RedisAddr   string `yaml:"redis_addr" env:"CHANGEREVIEW_HISTORY_REDIS_ADDR"`
	RedisPrefix string `yaml:"redis_prefix" env:"CHANGEREVIEW_HISTORY_REDIS_PREFIX"`
}

type Review struct {
	Exclude []string `yaml:"exclude" env:"CHANGEREVIEW_REVIEW_EXCLUDE"` // doublestar globs; comma-separated in the environment
}

type Log struct {
	Level string `yaml:"level" env:"CHANGEREVIEW_LOG_LEVEL"`
	File  string `yaml:"file" env:"CHANGEREVIEW_LOG_FILE"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	d := diff.DefaultOptions()
	return Config{
		Diff: Diff{
			Granularity:     string(d.Granularity),
			MergeThreshold:  d.MergeThreshold,
			SemanticCleanup: d.SemanticCleanup,
		},
		Hunks:   Hunks{ContextLines: hunk.DefaultContextLines},
		Store:   Store{Backend: StoreFS, Root: "."},
		History: History{Backend: HistoryNone, SQLitePath: ".changereview/history.db", RedisAddr: "localhost:6379", RedisPrefix: "changereview:"},
		Log:     Log{Level: "info"},
	}
}

// Load reads the YAML file at path over Default, applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default with environment overrides applied.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := applyEnvOverrides(&cfg); err != nil {
			return Config{}, err
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := diff.ParseGranularity(c.Diff.Granularity); err != nil {
		return err
	}
	if c.Diff.MergeThreshold < 0 {
		return fmt.Errorf("diff.merge_threshold must be >= 0, got %d", c.Diff.MergeThreshold)
	}
	if c.Diff.Timeout < 0 {
		return fmt.Errorf("diff.timeout must be >= 0, got %s", c.Diff.Timeout)
	}
	if c.Hunks.ContextLines < 0 {
		return fmt.Errorf("hunks.context_lines must be >= 0, got %d", c.Hunks.ContextLines)
	}

	switch c.Store.Backend {
	case StoreFS:
		if c.Store.Root == "" {
			return errors.New("store.root is required for the fs backend")
		}
	case StoreS3:
		if c.Store.S3.Bucket == "" {
			return errors.New("store.s3.bucket is required for the s3 backend")
		}
		if c.Store.S3.Region == "" {
			return errors.New("store.s3.region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q (want fs or s3)", c.Store.Backend)
	}

	switch c.History.Backend {
	case HistoryNone, "":
	case HistorySQLite:
		if c.History.SQLitePath == "" {
			return errors.New("history.sqlite_path is required for the sqlite backend")
		}
	case HistoryRedis:
		if c.History.RedisAddr == "" {
			return errors.New("history.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown history.backend %q (want none, sqlite, or redis)", c.History.Backend)
	}

	for _, pattern := range c.Review.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("review.exclude: invalid glob %q", pattern)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DiffOptions converts the diff section. It assumes c is valid.
func (c Config) DiffOptions() diff.Options {
	g, _ := diff.ParseGranularity(c.Diff.Granularity)
	return diff.Options{
		Granularity:     g,
		SemanticCleanup: c.Diff.SemanticCleanup,
		MergeThreshold:  c.Diff.MergeThreshold,
		Timeout:         c.Diff.Timeout,
	}
}

func (c Config) HunkOptions() hunk.Options {
	return hunk.Options{ContextLines: c.Hunks.ContextLines}
}

// LogOptions converts the log section. It assumes c is valid.
func (c Config) LogOptions() logging.Options {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Options{Level: level, File: c.Log.File}
}

// LogValue summarizes c for structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("granularity", c.Diff.Granularity),
		slog.Int("context_lines", c.Hunks.ContextLines),
		slog.String("store", c.Store.Backend),
		slog.String("history", c.History.Backend),
		slog.Int("exclude", len(c.Review.Exclude)),
	)
}

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnvOverrides sets struct fields from environment variables named by their `env` tag.
func applyEnvOverrides(v any) error {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := val.Field(i)

		if fieldVal.Kind() == reflect.Struct {
			if err := applyEnvOverrides(fieldVal.Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envVal, ok := os.LookupEnv(envTag)
		if !ok || !fieldVal.CanSet() {
			continue
		}

		switch {
		case fieldVal.Type() == durationType:
			d, err := time.ParseDuration(envVal)
			if err != nil {
				return fmt.Errorf("$%s: %w", envTag, err)
			}
			fieldVal.SetInt(int64(d))
		case fieldVal.Kind() == reflect.String:
			fieldVal.SetString(envVal)
		case fieldVal.Kind() == reflect.Int:
			n, err := strconv.Atoi(strings.TrimSpace(envVal))
			if err != nil {
				return fmt.Errorf("$%s: %w", envTag, err)
			}
			fieldVal.SetInt(int64(n))
		case fieldVal.Kind() == reflect.Bool:
			b, err := strconv.ParseBool(strings.TrimSpace(envVal))
			if err != nil {
				return fmt.Errorf("$%s: %w", envTag, err)
			}
			fieldVal.SetBool(b)
		case fieldVal.Kind() == reflect.Slice && fieldVal.Type().Elem().Kind() == reflect.String:
			var items []string
			for _, s := range strings.Split(envVal, ",") {
				if s = strings.TrimSpace(s); s != "" {
					items = append(items, s)
				}
			}
			fieldVal.Set(reflect.ValueOf(items))
		}
	}
	return nil
}
