package window

import (
	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/Carmen-Shannon/ab3de/engine/camera"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var keyCodes = map[glfw.Key]common.KeyCode{
	glfw.KeyUp:        common.KeyArrowUp,
	glfw.KeyDown:      common.KeyArrowDown,
	glfw.KeyLeft:      common.KeyArrowLeft,
	glfw.KeyRight:     common.KeyArrowRight,
	glfw.KeyW:         common.KeyW,
	glfw.KeyS:         common.KeyS,
	glfw.KeyA:         common.KeyA,
	glfw.KeyD:         common.KeyD,
	glfw.KeySpace:     common.KeySpace,
	glfw.KeyLeftShift: common.KeyShiftLeft,
	glfw.KeyEscape:    common.KeyEscape,
}

// ConvertKey maps a GLFW key to the engine's physical key. GLFW reports keys it cannot
// identify as KeyUnknown.
//
// Parameters:
//   - key: the GLFW key
//
// Returns:
//   - common.PhysicalKey: the engine key, Unknown for KeyUnknown
func ConvertKey(key glfw.Key) common.PhysicalKey {
	if key == glfw.KeyUnknown {
		return common.PhysicalKey{Unknown: true}
	}
	if code, ok := keyCodes[key]; ok {
		return common.PhysicalKey{Code: code}
	}
	return common.PhysicalKey{Code: common.KeyOther}
}

// ConvertAction maps a GLFW action to a key state. Repeats are reported as presses.
func ConvertAction(action glfw.Action) common.ElementState {
	if action == glfw.Release {
		return common.Released
	}
	return common.Pressed
}

// ConvertMouseButton maps a GLFW mouse button to the engine's mouse button.
func ConvertMouseButton(button glfw.MouseButton) common.MouseButton {
	if button == glfw.MouseButtonLeft {
		return common.MouseButtonLeft
	}
	return common.MouseButtonOther
}

// cursorTracker turns absolute cursor positions into motion deltas.
type cursorTracker struct {
	x, y  float64
	valid bool
}

// move records a cursor position. The first position only sets the baseline.
func (c *cursorTracker) move(x, y float64) (camera.ControllerInput, bool) {
	defer func() {
		c.x, c.y, c.valid = x, y, true
	}()
	if !c.valid {
		return camera.ControllerInput{}, false
	}
	return camera.MouseMotion(x-c.x, y-c.y), true
}

// reset drops the baseline, used when the cursor leaves the window.
func (c *cursorTracker) reset() {
	c.valid = false
}
