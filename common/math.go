package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// WorldUp is the +Y up vector shared by every view matrix in the engine.
var WorldUp = mgl32.Vec3{0, 1, 0}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32s writes the given values into dst in little-endian order, starting at offset.
// It returns the offset just past the last written value so calls can be chained
// when packing GPU structs field by field.
//
// Parameters:
//   - dst: destination byte slice, must hold at least offset + 4*len(values) bytes
//   - offset: byte offset to start writing at
//   - values: the float32 values to write
//
// Returns:
//   - int: the offset following the written values
func PutFloat32s(dst []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(dst[offset:], math.Float32bits(v))
		offset += 4
	}
	return offset
}

// PutMat4 writes a column-major 4x4 matrix into dst at offset.
//
// Parameters:
//   - dst: destination byte slice
//   - offset: byte offset to start writing at
//   - m: the matrix to write
//
// Returns:
//   - int: the offset following the written matrix (offset + 64)
func PutMat4(dst []byte, offset int, m mgl32.Mat4) int {
	return PutFloat32s(dst, offset, m[:]...)
}

// LookToRH builds a right-handed view matrix for an eye at position looking along dir.
// dir does not need to be normalized.
//
// Parameters:
//   - eye: camera position in world space
//   - dir: the look direction
//   - up: the up vector, usually WorldUp
//
// Returns:
//   - mgl32.Mat4: the world-to-view transform
func LookToRH(eye, dir, up mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, eye.Add(dir.Normalize()), up)
}

// PerspectiveRH builds a right-handed perspective projection mapping depth to the
// WebGPU clip range [0, 1]. mgl32.Perspective targets the OpenGL [-1, 1] range, so
// the matrix is assembled here directly.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func PerspectiveRH(fovY, aspect, near, far float32) mgl32.Mat4 {
	h := 1.0 / float32(math.Tan(float64(fovY)*0.5))
	w := h / aspect
	r := far / (near - far)
	return mgl32.Mat4{
		w, 0, 0, 0,
		0, h, 0, 0,
		0, 0, r, -1,
		0, 0, r * near, 0,
	}
}
