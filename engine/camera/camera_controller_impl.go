package camera

import (
	"sync"

	"github.com/Carmen-Shannon/ab3de/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// linePixels is how many pixels one scroll line is treated as.
const linePixels = 100

// cameraControllerImpl is the single implementation of CameraController.
// A fly camera: keys translate along the yaw plane, a left-button drag rotates,
// and scrolling moves along the full look direction.
type cameraControllerImpl struct {
	mu *sync.Mutex

	amountLeft     float32
	amountRight    float32
	amountForward  float32
	amountBackward float32
	amountUp       float32
	amountDown     float32

	rotateHorizontal float32
	rotateVertical   float32
	scroll           float32

	speed       float32
	sensitivity float32

	mousePressed bool
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller with speed 4 and sensitivity 0.4.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:          &sync.Mutex{},
		speed:       4.0,
		sensitivity: 0.4,
	}

	for _, option := range options {
		option(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) Speed() float32 {
	return cc.speed
}

func (cc *cameraControllerImpl) Sensitivity() float32 {
	return cc.sensitivity
}

func (cc *cameraControllerImpl) HandleInput(input ControllerInput) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	switch input.Kind {
	case InputMouseMotion:
		if cc.mousePressed {
			cc.rotateHorizontal = float32(input.MotionDX)
			cc.rotateVertical = float32(input.MotionDY)
		}
		return true
	case InputKeyboard:
		if !input.Key.Known() {
			return false
		}
		return cc.processKeyboard(input.Key.Code, input.State)
	case InputMouseWheel:
		switch input.Scroll.Kind {
		case common.ScrollLineDelta:
			cc.scroll = -float32(input.Scroll.Y) * linePixels
		case common.ScrollPixelDelta:
			cc.scroll = -float32(input.Scroll.Y)
		}
		return true
	case InputMouseButton:
		if input.Button == common.MouseButtonLeft {
			cc.mousePressed = input.State.IsPressed()
		}
		return true
	}
	return false
}

// processKeyboard records a movement key. Caller must hold the mutex.
func (cc *cameraControllerImpl) processKeyboard(key common.KeyCode, state common.ElementState) bool {
	var amount float32
	if state.IsPressed() {
		amount = 1
	}

	switch key {
	case common.KeyW, common.KeyArrowUp:
		cc.amountForward = amount
	case common.KeyS, common.KeyArrowDown:
		cc.amountBackward = amount
	case common.KeyA, common.KeyArrowLeft:
		cc.amountLeft = amount
	case common.KeyD, common.KeyArrowRight:
		cc.amountRight = amount
	case common.KeySpace:
		cc.amountUp = amount
	case common.KeyShiftLeft:
		cc.amountDown = amount
	default:
		return false
	}
	return true
}

func (cc *cameraControllerImpl) UpdateCamera(data *CameraData, dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	yawSin, yawCos := math32.Sincos(data.Yaw)
	forward := mgl32.Vec3{yawCos, 0, yawSin}.Normalize()
	right := mgl32.Vec3{-yawSin, 0, yawCos}.Normalize()
	data.Position = data.Position.Add(forward.Mul((cc.amountForward - cc.amountBackward) * cc.speed * dt))
	data.Position = data.Position.Add(right.Mul((cc.amountRight - cc.amountLeft) * cc.speed * dt))

	// scrolling moves along the look direction rather than changing the field of view
	pitchSin, pitchCos := math32.Sincos(data.Pitch)
	scrollward := mgl32.Vec3{pitchCos * yawCos, pitchSin, pitchCos * yawSin}.Normalize()
	data.Position = data.Position.Add(scrollward.Mul(cc.scroll * cc.speed * cc.sensitivity * dt))
	cc.scroll = 0

	data.Position[1] += (cc.amountUp - cc.amountDown) * cc.speed * dt

	data.Yaw += cc.rotateHorizontal * cc.sensitivity * dt
	data.Pitch += -cc.rotateVertical * cc.sensitivity * dt
	cc.rotateHorizontal = 0
	cc.rotateVertical = 0

	data.ClampPitch()
}
