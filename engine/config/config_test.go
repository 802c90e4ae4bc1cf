package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, uint32(1080), cfg.Scene.CubeFaceSize)
	assert.Equal(t, 10, cfg.Scene.GridSize)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "app.toml", `
offthread = true
profiler_interval_ms = 500

[window]
title = "demo"
width = 1280
present_mode = "uncapped"

[scene]
grid_size = 4
environment_hdr = "sky.hdr"
model = "assets/helmet.glb"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Offthread)
	assert.Equal(t, 500, cfg.ProfilerIntervalMs)
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height, "missing fields keep defaults")
	assert.Equal(t, "uncapped", cfg.Window.PresentMode)
	assert.Equal(t, 4, cfg.Scene.GridSize)
	assert.Equal(t, float32(3.0), cfg.Scene.GridSpacing)
	assert.Equal(t, "sky.hdr", cfg.Scene.EnvironmentHDR)
	assert.Equal(t, "assets/helmet.glb", cfg.Scene.Model)
	assert.Equal(t, uint32(2048), cfg.Scene.MaxTextureEdge)
}

func TestLoad_YAML(t *testing.T) {
	for _, name := range []string{"app.yaml", "APP.YML"} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, name, `
window:
  height: 720
scene:
  instance_scale: 1.5
  cube_face_size: 512
force_fallback_adapter: true
`)
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 720, cfg.Window.Height)
			assert.Equal(t, 800, cfg.Window.Width)
			assert.Equal(t, float32(1.5), cfg.Scene.InstanceScale)
			assert.Equal(t, uint32(512), cfg.Scene.CubeFaceSize)
			assert.True(t, cfg.ForceFallbackAdapter)
			assert.Equal(t, Default().Camera, cfg.Camera)
		})
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeConfig(t, "app.json", `{}`))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "unknown.toml", "colour = 3\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = Load(writeConfig(t, "broken.yaml", "window: [\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.toml", "[window]\nwidth = 0\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative grid":    func(c *Config) { c.Scene.GridSize = -1 },
		"zero cube face":   func(c *Config) { c.Scene.CubeFaceSize = 0 },
		"bad present mode": func(c *Config) { c.Window.PresentMode = "mailbox" },
		"negative profile": func(c *Config) { c.ProfilerIntervalMs = -5 },
		"zero height":      func(c *Config) { c.Window.Height = 0 },
		"negative minimum": func(c *Config) { c.Window.MinWidth = -1 },
		"negative workers": func(c *Config) { c.Scene.UpdateWorkers = -2 },
		"flat fov":         func(c *Config) { c.Camera.FovYDegrees = 180 },
		"zero near":        func(c *Config) { c.Camera.Near = 0 },
		"far before near":  func(c *Config) { c.Camera.Far = 0.05 },
		"negative speed":   func(c *Config) { c.Camera.Speed = -1 },
		"negative light":   func(c *Config) { c.Light.IndicatorSize = -0.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
