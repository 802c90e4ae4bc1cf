package camera

import "github.com/Carmen-Shannon/ab3de/common"

// InputKind identifies which field of a ControllerInput is populated.
type InputKind int

const (
	// InputMouseMotion carries a raw pointer delta in MotionDX/MotionDY.
	InputMouseMotion InputKind = iota
	// InputKeyboard carries Key and State.
	InputKeyboard
	// InputMouseWheel carries Scroll.
	InputMouseWheel
	// InputMouseButton carries Button and State.
	InputMouseButton
)

// ControllerInput is one window-system event translated into the engine's input vocabulary.
type ControllerInput struct {
	Kind InputKind

	MotionDX, MotionDY float64
	Key                common.PhysicalKey
	State              common.ElementState
	Scroll             common.MouseScrollDelta
	Button             common.MouseButton
}

// MouseMotion builds a pointer motion input.
func MouseMotion(dx, dy float64) ControllerInput {
	return ControllerInput{Kind: InputMouseMotion, MotionDX: dx, MotionDY: dy}
}

// KeyboardInput builds a key press or release input.
func KeyboardInput(key common.PhysicalKey, state common.ElementState) ControllerInput {
	return ControllerInput{Kind: InputKeyboard, Key: key, State: state}
}

// MouseWheel builds a scroll input.
func MouseWheel(delta common.MouseScrollDelta) ControllerInput {
	return ControllerInput{Kind: InputMouseWheel, Scroll: delta}
}

// MouseInput builds a mouse button input.
func MouseInput(button common.MouseButton, state common.ElementState) ControllerInput {
	return ControllerInput{Kind: InputMouseButton, Button: button, State: state}
}

// CameraController turns input events into camera pose changes. Input handling only records
// intent; the pose moves when UpdateCamera runs with the frame's elapsed time.
type CameraController interface {
	// HandleInput records an input event.
	//
	// Parameters:
	//   - input: the translated window-system event
	//
	// Returns:
	//   - bool: true if the controller consumed the event
	HandleInput(input ControllerInput) bool

	// UpdateCamera moves and rotates data according to the recorded input over dt seconds,
	// then clears one-shot deltas (scroll and mouse rotation). Pitch is clamped to ±SafeFracPi2.
	//
	// Parameters:
	//   - data: the pose to mutate
	//   - dt: elapsed time in seconds
	UpdateCamera(data *CameraData, dt float32)

	// Speed returns the translation speed in units per second.
	//
	// Returns:
	//   - float32: the movement speed
	Speed() float32

	// Sensitivity returns the rotation and scroll sensitivity.
	//
	// Returns:
	//   - float32: the sensitivity factor
	Sensitivity() float32
}
