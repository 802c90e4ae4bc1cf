package common

// KeyCode is a window-system independent physical key. Only the keys the camera
// controller reacts to are named; everything else maps to KeyOther.
type KeyCode int

const (
	KeyOther KeyCode = iota
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyW
	KeyS
	KeyA
	KeyD
	KeySpace
	KeyShiftLeft
	KeyEscape
)

// PhysicalKey wraps a KeyCode together with whether the window system could identify the key at all.
type PhysicalKey struct {
	Code    KeyCode
	Unknown bool
}

// Known reports whether the key was identified and carries a usable Code.
func (k PhysicalKey) Known() bool {
	return !k.Unknown
}

// ElementState is the pressed/released state of a key or mouse button.
type ElementState int

const (
	Released ElementState = iota
	Pressed
)

// IsPressed reports whether the state is Pressed.
func (s ElementState) IsPressed() bool {
	return s == Pressed
}

// MouseButton identifies a mouse button. Only the left button drives the camera.
type MouseButton int

const (
	MouseButtonOther MouseButton = iota
	MouseButtonLeft
)

// ScrollDeltaKind distinguishes line based wheels from pixel precise touchpads.
type ScrollDeltaKind int

const (
	// ScrollLineDelta is reported by classic mouse wheels, in lines.
	ScrollLineDelta ScrollDeltaKind = iota
	// ScrollPixelDelta is reported by touchpads, in pixels.
	ScrollPixelDelta
)

// MouseScrollDelta is a scroll amount in either lines or pixels.
type MouseScrollDelta struct {
	Kind ScrollDeltaKind
	X, Y float64
}

// LineDelta builds a line based scroll delta.
func LineDelta(x, y float32) MouseScrollDelta {
	return MouseScrollDelta{Kind: ScrollLineDelta, X: float64(x), Y: float64(y)}
}

// PixelDelta builds a pixel based scroll delta.
func PixelDelta(x, y float64) MouseScrollDelta {
	return MouseScrollDelta{Kind: ScrollPixelDelta, X: x, Y: y}
}
