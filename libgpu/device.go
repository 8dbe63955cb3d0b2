package libgpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrAllocated      = errors.New("libgpu: surface already allocated")
	ErrNotAllocated   = errors.New("libgpu: surface not allocated")
	ErrSizeMismatch   = errors.New("libgpu: pixel buffer does not match surface size")
	ErrUnknownProgram = errors.New("libgpu: unknown program")
)

// Device records GPU work. Uniform and keyword state set through it applies to every following
// Draw or Dispatch until changed. Implementations need not be safe for concurrent use; every
// command stream owns its own Device.
type Device interface {
	// Declare interns a uniform name and returns its binding. Declaring the same name twice
	// returns the same binding.
	Declare(name string) Binding

	Allocate(id SurfaceId, desc SurfaceDesc) error
	Free(id SurfaceId) error
	// Upload replaces the contents of a surface. pix holds desc.Values() floats.
	Upload(id SurfaceId, pix []float32) error
	// ReadPixels copies a surface back to the CPU. This synchronizes with the GPU.
	ReadPixels(id SurfaceId, dst []float32) error

	SetFloat(b Binding, v float32)
	SetInt(b Binding, v int32)
	SetVector(b Binding, v mgl32.Vec4)
	SetMatrix(b Binding, m mgl32.Mat4)
	SetTexture(b Binding, id SurfaceId)
	SetKeyword(name string, enabled bool)

	// Draw renders a full screen triangle with program into target.
	Draw(program Program, target Target) error
	Dispatch(kernel Program, groups [3]int) error

	BeginSample(name string)
	EndSample()

	// Submit hands the recorded work to the GPU.
	Submit() error
}
