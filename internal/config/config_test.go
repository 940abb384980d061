package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codalotl/changereview/internal/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears the variables a developer's shell may export so tests see only what they set.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AWS_REGION", "CHANGEREVIEW_LOG_FILE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "changereview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	unsetEnv(t)
	path := writeConfig(t, `
diff:
  granularity: line
  timeout: 2s
hunks:
  context_lines: 1
store:
  backend: s3
  s3:
    bucket: docs
    prefix: team/
    region: us-east-1
    path_style: true
history:
  backend: sqlite
  sqlite_path: /tmp/h.db
review:
  exclude:
    - "**/*.lock"
    - "vendor/**"
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "line", cfg.Diff.Granularity)
	assert.Equal(t, 2*time.Second, cfg.Diff.Timeout)
	assert.True(t, cfg.Diff.SemanticCleanup, "unset fields keep their defaults")
	assert.Equal(t, diff.DefaultMergeThreshold, cfg.Diff.MergeThreshold)
	assert.Equal(t, 1, cfg.Hunks.ContextLines)
	assert.Equal(t, S3{Bucket: "docs", Prefix: "team/", Region: "us-east-1", PathStyle: true}, cfg.Store.S3)
	assert.Equal(t, HistorySQLite, cfg.History.Backend)
	assert.Equal(t, []string{"**/*.lock", "vendor/**"}, cfg.Review.Exclude)

	opts := cfg.DiffOptions()
	assert.Equal(t, diff.GranularityLine, opts.Granularity)
	assert.Equal(t, 1, cfg.HunkOptions().ContextLines)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("DOCS_ROOT", "/srv/docs")
	path := writeConfig(t, "store:\n  root: ${DOCS_ROOT}/current\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs/current", cfg.Store.Root)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "diff:\n  granularity: line\n")
	t.Setenv("CHANGEREVIEW_DIFF_GRANULARITY", "char")
	t.Setenv("CHANGEREVIEW_DIFF_SEMANTIC_CLEANUP", "false")
	t.Setenv("CHANGEREVIEW_DIFF_TIMEOUT", "150ms")
	t.Setenv("CHANGEREVIEW_HUNKS_CONTEXT_LINES", "5")
	t.Setenv("CHANGEREVIEW_REVIEW_EXCLUDE", "*.bin, secrets/**")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "char", cfg.Diff.Granularity)
	assert.False(t, cfg.Diff.SemanticCleanup)
	assert.Equal(t, 150*time.Millisecond, cfg.Diff.Timeout)
	assert.Equal(t, 5, cfg.Hunks.ContextLines)
	assert.Equal(t, []string{"*.bin", "secrets/**"}, cfg.Review.Exclude)
}

func TestLoad_BadEnvOverride(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("CHANGEREVIEW_HUNKS_CONTEXT_LINES", "lots")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANGEREVIEW_HUNKS_CONTEXT_LINES")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "diff: [unclosed"))
	assert.ErrorContains(t, err, "parse config file")

	_, err = Load(writeConfig(t, "diff:\n  granularity: paragraph\n"))
	assert.ErrorContains(t, err, "paragraph")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	unsetEnv(t)
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default", func(*Config) {}, ""},
		{"negative threshold", func(c *Config) { c.Diff.MergeThreshold = -1 }, "merge_threshold"},
		{"negative context", func(c *Config) { c.Hunks.ContextLines = -1 }, "context_lines"},
		{"unknown store", func(c *Config) { c.Store.Backend = "ftp" }, "store.backend"},
		{"fs without root", func(c *Config) { c.Store.Root = "" }, "store.root"},
		{"s3 without bucket", func(c *Config) { c.Store.Backend = StoreS3; c.Store.S3.Region = "eu-west-1" }, "bucket"},
		{"s3 without region", func(c *Config) { c.Store.Backend = StoreS3; c.Store.S3.Bucket = "b" }, "region"},
		{"unknown history", func(c *Config) { c.History.Backend = "mongo" }, "history.backend"},
		{"redis without addr", func(c *Config) { c.History.Backend = HistoryRedis; c.History.RedisAddr = "" }, "redis_addr"},
		{"bad glob", func(c *Config) { c.Review.Exclude = []string{"[a-"} }, "invalid glob"},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
