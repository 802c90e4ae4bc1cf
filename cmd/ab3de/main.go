// Command ab3de renders the demo scene: a grid of lit, textured cubes under an HDR sky.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine"
	"github.com/Carmen-Shannon/ab3de/engine/app"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/Carmen-Shannon/ab3de/engine/config"
	"github.com/Carmen-Shannon/ab3de/engine/light"
	"github.com/Carmen-Shannon/ab3de/engine/loader"
	"github.com/Carmen-Shannon/ab3de/engine/model"
	"github.com/Carmen-Shannon/ab3de/engine/renderer"
	"github.com/Carmen-Shannon/ab3de/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// The window may grow to 4K or to its configured size, whichever is larger.
const (
	maxWindowWidth  = 3840
	maxWindowHeight = 2160
)

func main() {
	configPath := flag.String("config", "", "configuration file (.toml, .yaml or .yml)")
	uiless := flag.Bool("uiless", false, "render offscreen without opening a window")
	offthread := flag.Bool("offthread", false, "render on a worker goroutine and composite on the window thread")
	frames := flag.Uint64("frames", 120, "frames to render with --uiless")
	flag.Parse()

	if err := run(*configPath, *uiless, *offthread, *frames); err != nil {
		log.Printf("[ab3de] %v", err)
		os.Exit(1)
	}
}

func run(configPath string, uiless, offthread bool, frames uint64) error {
	// ── Configuration ───────────────────────────────────────────────────
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if offthread {
		cfg.Offthread = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appOptions := []app.AppBuilderOption{
		app.WithOffthread(cfg.Offthread),
		app.WithProfilerInterval(time.Duration(cfg.ProfilerIntervalMs) * time.Millisecond),
		app.WithEngineOptions(engineOptions(cfg)...),
	}
	rendererOptions := []renderer.ContextBuilderOption{
		renderer.WithPresentMode(renderer.ParsePresentMode(cfg.Window.PresentMode)),
		renderer.WithForceSoftwareRenderer(cfg.ForceFallbackAdapter),
	}
	size := common.Size2D{Width: uint32(cfg.Window.Width), Height: uint32(cfg.Window.Height)}

	// ── Headless ────────────────────────────────────────────────────────
	if uiless {
		gpu, err := renderer.NewContext(nil, append(rendererOptions,
			renderer.WithSurfaceFormatPreference(wgpu.TextureFormatRGBA8UnormSrgb))...)
		if err != nil {
			return err
		}
		defer gpu.Release()
		return app.RunHeadless(ctx, gpu, size, frames, appOptions...)
	}

	// ── Window + Renderer ───────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithSizeLimits(cfg.Window.MinWidth, cfg.Window.MinHeight,
			max(cfg.Window.Width, maxWindowWidth), max(cfg.Window.Height, maxWindowHeight)),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	gpu, err := renderer.NewContext(win.SurfaceDescriptor(), rendererOptions...)
	if err != nil {
		return err
	}
	defer gpu.Release()

	a := app.NewApp(gpu, win, appOptions...)
	defer a.Release()

	log.Printf("[ab3de] WASD/arrows move, space/shift rise and fall, drag to look, scroll to dolly, escape quits")
	return a.Run(ctx)
}

func engineOptions(cfg config.Config) []engine.EngineBuilderOption {
	options := []engine.EngineBuilderOption{
		engine.WithCubeFaceSize(cfg.Scene.CubeFaceSize),
		engine.WithAssets(engine.AssetSources{
			EnvironmentHDR: cfg.Scene.EnvironmentHDR,
			Diffuse:        cfg.Scene.DiffuseTexture,
			Normal:         cfg.Scene.NormalTexture,
		}),
		engine.WithGrid(cfg.Scene.GridSize,
			model.WithSpacing(cfg.Scene.GridSpacing),
			model.WithGlobalScale(cfg.Scene.InstanceScale),
		),
	}

	// ── Camera + Light ──────────────────────────────────────────────────
	cam, lit := cfg.Camera, cfg.Light
	options = append(options,
		engine.WithCameraOptions(
			camera.WithFovY(mgl32.DegToRad(cam.FovYDegrees)),
			camera.WithClipPlanes(cam.Near, cam.Far),
			camera.WithInitialData(camera.CameraData{
				Position: mgl32.Vec3(cam.Position),
				Yaw:      mgl32.DegToRad(cam.YawDegrees),
				Pitch:    mgl32.DegToRad(cam.PitchDegrees),
			}),
		),
		engine.WithController(camera.NewCameraController(
			camera.WithSpeed(cam.Speed),
			camera.WithSensitivity(cam.Sensitivity),
		)),
		engine.WithLightOptions(
			light.WithPosition(lit.Position[0], lit.Position[1], lit.Position[2]),
			light.WithColor(lit.Color[0], lit.Color[1], lit.Color[2]),
			light.WithRevolutionsPerSecond(lit.RevolutionsPerSecond),
		),
	)

	modelOptions := []model.ModelSystemBuilderOption{model.WithLightIndicatorSize(lit.IndicatorSize)}
	if cfg.Scene.UpdateWorkers > 0 {
		modelOptions = append(modelOptions, model.WithUpdateWorkers(cfg.Scene.UpdateWorkers))
	}
	options = append(options, engine.WithModelOptions(modelOptions...))

	// ── Model ───────────────────────────────────────────────────────────
	if cfg.Scene.Model != "" {
		dir, file := filepath.Split(cfg.Scene.Model)
		gltf := loader.NewGLTFLoader(os.DirFS(filepath.Clean(dir)), loader.WithMaxTextureEdge(cfg.Scene.MaxTextureEdge))
		options = append(options, engine.WithLoader(gltf, file))
	}
	return options
}
