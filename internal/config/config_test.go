package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kk-code-lab/bigtext/internal/config"
	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/search"
)

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{"BIGTEXT_LOG_LEVEL", "BIGTEXT_JOBS", "BIGTEXT_REGEX_TIMEOUT", "BIGTEXT_NORMALIZE", "BIGTEXT_WINDOW_SIZE"} {
		t.Setenv(name, "")
	}
	return t.TempDir()
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	result, err := config.Load(config.LoadOptions{WorkingDir: dir})
	require.NoError(t, err)
	assert.Empty(t, result.LoadedFrom)
	assert.Equal(t, config.Default(), result.Config)
	assert.Equal(t, int64(search.DefaultWindowSize), result.Config.Search.WindowSize)
}

func TestLoadProjectFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ".bigtext.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
scan:
  chunk_size: 65536
search:
  regex_timeout: 250ms
  jobs: 3
document:
  encoding: windows-1252
`), 0o644))

	result, err := config.Load(config.LoadOptions{WorkingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, path, result.LoadedFrom)

	cfg := result.Config
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 65536, cfg.Scan.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.RegexTimeout)
	assert.Equal(t, 3, cfg.Search.Jobs)
	assert.True(t, cfg.Scan.NormalizeLineEndings, "unset keys keep their defaults")

	opts := cfg.DocumentOptions(nil)
	require.NotNil(t, opts.Encoding)
	assert.Equal(t, fsutil.EncodingWindows1252, *opts.Encoding)
	assert.False(t, opts.KeepLineEndings)
	assert.Equal(t, 3, cfg.FileOptions().Jobs)
}

func TestLoadUserFile(t *testing.T) {
	dir := isolate(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "bigtext"), 0o755))
	path := filepath.Join(xdg, "bigtext", "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  tab_width: 8\n"), 0o644))

	result, err := config.Load(config.LoadOptions{WorkingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, path, result.LoadedFrom)
	assert.Equal(t, 8, result.Config.EngineConfig(nil).TabWidth)

	result, err = config.Load(config.LoadOptions{WorkingDir: dir, IgnoreUserConfig: true})
	require.NoError(t, err)
	assert.Empty(t, result.LoadedFrom)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  jobs: 2\n"), 0o644))
	t.Setenv("BIGTEXT_JOBS", "7")
	t.Setenv("BIGTEXT_NORMALIZE", "false")
	t.Setenv("BIGTEXT_REGEX_TIMEOUT", "2s")

	result, err := config.Load(config.LoadOptions{ExplicitPath: path, WorkingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Config.Search.Jobs)
	assert.False(t, result.Config.Scan.NormalizeLineEndings)
	assert.Equal(t, 2*time.Second, result.Config.Search.RegexTimeout)
	assert.True(t, result.Config.DocumentOptions(nil).KeepLineEndings)

	result, err = config.Load(config.LoadOptions{ExplicitPath: path, WorkingDir: dir, IgnoreEnv: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Config.Search.Jobs)
}

func TestInvalidEnvironmentValue(t *testing.T) {
	dir := isolate(t)
	t.Setenv("BIGTEXT_JOBS", "many")

	_, err := config.Load(config.LoadOptions{WorkingDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BIGTEXT_JOBS")
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := isolate(t)

	_, err := config.Load(config.LoadOptions{ExplicitPath: filepath.Join(dir, "missing.yml")})
	require.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yml")
	require.NoError(t, os.WriteFile(unknown, []byte("search:\n  bogus: 1\n"), 0o644))
	_, err = config.Load(config.LoadOptions{ExplicitPath: unknown})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	cfg.Scan.ChunkSize = 10
	cfg.Search.TabWidth = 0
	cfg.Document.Encoding = "klingon"

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"log.level", "scan.chunk_size", "search.tab_width", "document.encoding"} {
		assert.Contains(t, err.Error(), field)
	}

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "log.level", verr.Field)

	assert.NoError(t, config.Default().Validate())
}
