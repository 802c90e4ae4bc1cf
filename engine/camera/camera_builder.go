package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraSystemBuilderOption is a functional option applied to a CameraSystem during construction via NewCameraSystem.
type CameraSystemBuilderOption func(*cameraSystem)

// WithFovY sets the vertical field of view used by every entry the system makes.
//
// Parameters:
//   - fovY: field of view in radians
//
// Returns:
//   - CameraSystemBuilderOption: a function that sets the field of view
func WithFovY(fovY float32) CameraSystemBuilderOption {
	return func(s *cameraSystem) {
		s.fovY = fovY
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance, must be > 0
//   - far: far plane distance, must be > near
//
// Returns:
//   - CameraSystemBuilderOption: a function that sets the clipping planes
func WithClipPlanes(near, far float32) CameraSystemBuilderOption {
	return func(s *cameraSystem) {
		s.near = near
		s.far = far
	}
}

// WithInitialData sets the pose new entries start from.
//
// Parameters:
//   - data: the starting camera pose
//
// Returns:
//   - CameraSystemBuilderOption: a function that sets the starting pose
func WithInitialData(data CameraData) CameraSystemBuilderOption {
	return func(s *cameraSystem) {
		s.initial = data
	}
}

func defaultCameraSystem() *cameraSystem {
	return &cameraSystem{
		fovY:    mgl32.DegToRad(45),
		near:    0.1,
		far:     100,
		initial: DefaultCameraData(),
	}
}
