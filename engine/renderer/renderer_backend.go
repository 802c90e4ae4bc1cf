package renderer

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a configuration string to a PresentMode.
// Unknown strings fall back to PresentModeVSync.
//
// Parameters:
//   - s: "vsync" or "uncapped", case-insensitive
//
// Returns:
//   - PresentMode: the parsed mode
func ParsePresentMode(s string) PresentMode {
	if strings.EqualFold(strings.TrimSpace(s), "uncapped") {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// wgpuPresentMode returns the surface present mode for a PresentMode.
func (m PresentMode) wgpuPresentMode() wgpu.PresentMode {
	if m == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

var (
	// ErrNoAdapter is returned when no compatible GPU adapter or device could be acquired.
	ErrNoAdapter = errors.New("no compatible GPU adapter")

	// ErrSurfaceLost marks a surface that must be reconfigured before the next frame.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrSurfaceOutdated marks a surface whose configuration no longer matches the window.
	ErrSurfaceOutdated = errors.New("surface outdated")
)

// ClassifySurfaceError marks err with ErrSurfaceLost or ErrSurfaceOutdated when its message says so.
// The native layer reports acquisition status only through error text. A lost device is not a
// surface problem and is left unmarked; reconfiguring cannot bring it back.
//
// Parameters:
//   - err: the error returned while acquiring or presenting a surface texture
//
// Returns:
//   - error: err marked with the matching sentinel, err unchanged otherwise, nil for nil
func ClassifySurfaceError(err error) error {
	if err == nil || errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrSurfaceOutdated) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "device"):
		return err
	case strings.Contains(msg, "outdated"):
		return errors.Mark(err, ErrSurfaceOutdated)
	case strings.Contains(msg, "lost"):
		return errors.Mark(err, ErrSurfaceLost)
	}
	return err
}

// IsRecoverableSurfaceError reports whether err is cured by reconfiguring the surface at the
// current window size.
//
// Parameters:
//   - err: an error from AcquireOutput or a render call
//
// Returns:
//   - bool: true for lost and outdated surfaces
func IsRecoverableSurfaceError(err error) bool {
	return errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrSurfaceOutdated)
}
