package config

import (
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leeforge/shrink/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func optsFor(dir string) ConfigOptions {
	opts := DefaultConfigOptions()
	opts.BasePath = dir
	return opts
}

func TestLoadAppConfig_Defaults(t *testing.T) {
	cfg, _, err := LoadAppConfig(optsFor(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, 70, cfg.Editor.Quality)
	assert.Equal(t, 1200, cfg.Editor.MaxWidth)
	assert.Equal(t, "#ffffff", cfg.Editor.Background)
	assert.Equal(t, 8, cfg.Editor.PreviewBuffer)
	assert.False(t, cfg.Editor.AutoOrient)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadAppConfig_FileAndLocalOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 85
  max_width: 2000
  auto_orient: true
logging:
  level: debug
`)
	writeConfig(t, dir, "config.local.yaml", `
editor:
  max_width: 800
`)

	cfg, c, err := LoadAppConfig(optsFor(dir))
	require.NoError(t, err)

	assert.Equal(t, 85, cfg.Editor.Quality)
	assert.Equal(t, 800, cfg.Editor.MaxWidth)
	assert.True(t, cfg.Editor.AutoOrient)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "#ffffff", cfg.Editor.Background)
	assert.Len(t, c.FilesUsed(), 2)
}

func TestLoadAppConfig_EnvOverride(t *testing.T) {
	t.Setenv("SHRINK_EDITOR_QUALITY", "40")

	cfg, _, err := LoadAppConfig(optsFor(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Editor.Quality)
}

func TestLoadAppConfig_RejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 99
`)

	_, _, err := LoadAppConfig(optsFor(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "editor.quality must be less than or equal to 95")
}

func TestLoadAppConfig_MissingNotAllowed(t *testing.T) {
	opts := optsFor(t.TempDir())
	opts.AllowMissing = false

	_, _, err := LoadAppConfig(opts)
	require.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ffffff", color.NRGBA{255, 255, 255, 255}, false},
		{"#000", color.NRGBA{0, 0, 0, 255}, false},
		{"  #1a2b3c", color.NRGBA{0x1a, 0x2b, 0x3c, 255}, false},
		{"#12345", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadAppConfig_StorageDefaults(t *testing.T) {
	cfg, _, err := LoadAppConfig(optsFor(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, os.FileMode(0o644), cfg.Storage.FileMode)
}

func TestAppConfig_BackgroundRejectsAlphaForms(t *testing.T) {
	for _, bg := range []string{"#ffff", "#ffffffff", "ffffff", "#12345", "red"} {
		t.Run(bg, func(t *testing.T) {
			cfg := DefaultAppConfig()
			cfg.Editor.Background = bg
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "editor.background must be a hex colour")
		})
	}

	for _, bg := range []string{"#fff", "#1A2b3C"} {
		cfg := DefaultAppConfig()
		cfg.Editor.Background = bg
		assert.NoError(t, cfg.Validate(), bg)
	}
}

func TestLoadAppConfig_RejectsAlphaBackground(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
editor:
  background: "#ffffff80"
`)

	_, _, err := LoadAppConfig(optsFor(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "background")
}

func TestConfig_ReloadValidatesFreshCopy(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 85
`)
	cfg, c, err := LoadAppConfig(optsFor(dir))
	require.NoError(t, err)

	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 5
`)
	require.NoError(t, c.instance.ReadInConfig())

	_, err = c.reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "editor.quality must be greater than or equal to 10")
	assert.Equal(t, 85, cfg.Editor.Quality)

	writeConfig(t, dir, "config.yaml", `
editor:
  max_width: 900
`)
	require.NoError(t, c.instance.ReadInConfig())

	fresh, err := c.reload()
	require.NoError(t, err)
	got := fresh.(*AppConfig)
	assert.Equal(t, 900, got.Editor.MaxWidth)
	assert.Equal(t, 70, got.Editor.Quality)
	assert.Equal(t, "info", got.Logging.Level)
	assert.Equal(t, 1200, cfg.Editor.MaxWidth)
}

func TestConfig_WatchRejectsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 60
`)

	core, logs := observer.New(zapcore.DebugLevel)
	var (
		mu       sync.Mutex
		reloaded []AppConfig
	)
	opts := optsFor(dir)
	opts.WatchAble = true
	opts.Logger = logging.FromZap(zap.New(core))
	opts.OnReload = func(instance any) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = append(reloaded, *instance.(*AppConfig))
	}

	cfg, _, err := LoadAppConfig(opts)
	require.NoError(t, err)

	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 5
`)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("config reload rejected").Len() > 0
	}, 5*time.Second, 20*time.Millisecond)

	writeConfig(t, dir, "config.yaml", `
editor:
  quality: 85
`)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range reloaded {
			if r.Editor.Quality == 85 {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, r := range reloaded {
		assert.NotEqual(t, 5, r.Editor.Quality)
		assert.NoError(t, r.Validate())
	}
	assert.Equal(t, 60, cfg.Editor.Quality)
}
