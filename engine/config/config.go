// Package config loads the application configuration from a TOML or YAML file.
package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for a configuration file with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// WindowConfig configures the window.
type WindowConfig struct {
	Title       string `toml:"title" yaml:"title"`
	Width       int    `toml:"width" yaml:"width"`
	Height      int    `toml:"height" yaml:"height"`
	PresentMode string `toml:"present_mode" yaml:"present_mode"`
	// MinWidth and MinHeight stop the window from being resized below a usable size.
	MinWidth  int `toml:"min_width" yaml:"min_width"`
	MinHeight int `toml:"min_height" yaml:"min_height"`
}

// SceneConfig configures what the engine draws.
type SceneConfig struct {
	GridSize       int     `toml:"grid_size" yaml:"grid_size"`
	GridSpacing    float32 `toml:"grid_spacing" yaml:"grid_spacing"`
	InstanceScale  float32 `toml:"instance_scale" yaml:"instance_scale"`
	CubeFaceSize   uint32  `toml:"cube_face_size" yaml:"cube_face_size"`
	EnvironmentHDR string  `toml:"environment_hdr" yaml:"environment_hdr"`
	DiffuseTexture string  `toml:"diffuse_texture" yaml:"diffuse_texture"`
	NormalTexture  string  `toml:"normal_texture" yaml:"normal_texture"`
	// Model is a .gltf or .glb file drawn instead of the built-in cube.
	Model string `toml:"model" yaml:"model"`
	// MaxTextureEdge caps the textures of Model; 0 keeps their size.
	MaxTextureEdge uint32 `toml:"max_texture_edge" yaml:"max_texture_edge"`
	// UpdateWorkers is the number of goroutines recomputing instance data; 0 picks one per spare CPU.
	UpdateWorkers int `toml:"update_workers" yaml:"update_workers"`
}

// CameraConfig configures the projection, the starting pose and the controller.
type CameraConfig struct {
	FovYDegrees  float32    `toml:"fov_y_degrees" yaml:"fov_y_degrees"`
	Near         float32    `toml:"near" yaml:"near"`
	Far          float32    `toml:"far" yaml:"far"`
	Position     [3]float32 `toml:"position" yaml:"position"`
	YawDegrees   float32    `toml:"yaw_degrees" yaml:"yaw_degrees"`
	PitchDegrees float32    `toml:"pitch_degrees" yaml:"pitch_degrees"`
	Speed        float32    `toml:"speed" yaml:"speed"`
	Sensitivity  float32    `toml:"sensitivity" yaml:"sensitivity"`
}

// LightConfig configures the orbiting point light.
type LightConfig struct {
	Position             [3]float32 `toml:"position" yaml:"position"`
	Color                [3]float32 `toml:"color" yaml:"color"`
	RevolutionsPerSecond float32    `toml:"revolutions_per_second" yaml:"revolutions_per_second"`
	// IndicatorSize is the edge of the cube drawn at the light; 0 hides it.
	IndicatorSize float32 `toml:"indicator_size" yaml:"indicator_size"`
}

// Config is the application configuration.
type Config struct {
	Window WindowConfig `toml:"window" yaml:"window"`
	Scene  SceneConfig  `toml:"scene" yaml:"scene"`
	Camera CameraConfig `toml:"camera" yaml:"camera"`
	Light  LightConfig  `toml:"light" yaml:"light"`

	// Offthread renders on a dedicated goroutine and composites on the window thread.
	Offthread bool `toml:"offthread" yaml:"offthread"`
	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool `toml:"force_fallback_adapter" yaml:"force_fallback_adapter"`
	// ProfilerIntervalMs is the profiler report interval; 0 disables the profiler.
	ProfilerIntervalMs int `toml:"profiler_interval_ms" yaml:"profiler_interval_ms"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:       "ab3de",
			Width:       800,
			Height:      600,
			PresentMode: "vsync",
			MinWidth:    320,
			MinHeight:   240,
		},
		Scene: SceneConfig{
			GridSize:       10,
			GridSpacing:    3.0,
			InstanceScale:  0.8,
			CubeFaceSize:   1080,
			MaxTextureEdge: 2048,
		},
		Camera: CameraConfig{
			FovYDegrees:  45,
			Near:         0.1,
			Far:          100,
			Position:     [3]float32{0, 5, 10},
			YawDegrees:   -90,
			PitchDegrees: -20,
			Speed:        4,
			Sensitivity:  0.4,
		},
		Light: LightConfig{
			Position:             [3]float32{2, 2, 2},
			Color:                [3]float32{1, 1, 1},
			RevolutionsPerSecond: 1,
			IndicatorSize:        0.25,
		},
		ProfilerIntervalMs: 1000,
	}
}

// decoder is satisfied by both the TOML and the YAML decoder.
type decoder interface {
	Decode(v any) error
}

type decoderFunc func(r io.Reader) decoder

var decoders = map[string]decoderFunc{
	".toml": func(r io.Reader) decoder {
		return toml.NewDecoder(r).DisallowUnknownFields()
	},
	".yaml": newYAMLDecoder,
	".yml":  newYAMLDecoder,
}

func newYAMLDecoder(r io.Reader) decoder {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	return d
}

// Load reads path over the defaults. The format is chosen by extension: .toml, .yaml or .yml.
// Fields missing from the file keep their default values.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the loaded configuration
//   - error: ErrUnsupportedFormat for other extensions, else a read, decode or validation error
func Load(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	newDecoder, ok := decoders[ext]
	if !ok {
		return Config{}, errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer f.Close()

	return decode(bufio.NewReader(f), newDecoder)
}

func decode(r io.Reader, newDecoder decoderFunc) (Config, error) {
	cfg := Default()
	if err := newDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Newf("config: window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Scene.GridSize < 0:
		return errors.Newf("config: grid_size %d is negative", c.Scene.GridSize)
	case c.Scene.CubeFaceSize == 0:
		return errors.New("config: cube_face_size must be positive")
	case c.ProfilerIntervalMs < 0:
		return errors.Newf("config: profiler_interval_ms %d is negative", c.ProfilerIntervalMs)
	case c.Window.MinWidth < 0 || c.Window.MinHeight < 0:
		return errors.Newf("config: window minimum %dx%d is negative", c.Window.MinWidth, c.Window.MinHeight)
	case c.Scene.UpdateWorkers < 0:
		return errors.Newf("config: update_workers %d is negative", c.Scene.UpdateWorkers)
	case c.Camera.FovYDegrees <= 0 || c.Camera.FovYDegrees >= 180:
		return errors.Newf("config: camera fov_y_degrees %g is outside (0, 180)", c.Camera.FovYDegrees)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return errors.Newf("config: camera clip planes near %g far %g need 0 < near < far", c.Camera.Near, c.Camera.Far)
	case c.Camera.Speed < 0 || c.Camera.Sensitivity < 0:
		return errors.New("config: camera speed and sensitivity must not be negative")
	case c.Light.IndicatorSize < 0:
		return errors.Newf("config: light indicator_size %g is negative", c.Light.IndicatorSize)
	}
	switch strings.ToLower(c.Window.PresentMode) {
	case "", "vsync", "uncapped":
	default:
		return errors.Newf("config: present_mode %q is not vsync or uncapped", c.Window.PresentMode)
	}
	return nil
}
