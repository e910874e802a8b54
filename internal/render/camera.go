// Package render holds the renderer-independent pieces of the display:
// the camera, the key set the controller listens for, and a headless
// surface for tests and windowless runs.
package render

import "github.com/go-gl/mathgl/mgl32"

const (
	DefaultFOV  = 70.0
	DefaultNear = 0.1
	DefaultFar  = 10000.0
	DefaultZ    = 12.0
)

// Camera is a perspective camera on the +Z axis looking at the origin.
type Camera struct {
	FOV    float64 // vertical, degrees
	Near   float64
	Far    float64
	Z      float64
	Aspect float64
}

func NewCamera(width, height int) Camera {
	c := Camera{FOV: DefaultFOV, Near: DefaultNear, Far: DefaultFar, Z: DefaultZ, Aspect: 1}
	c.Resize(width, height)
	return c
}

// Resize updates the aspect ratio. Degenerate sizes keep the old one.
func (c *Camera) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float64(width) / float64(height)
}

func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(float32(c.FOV)), float32(c.Aspect), float32(c.Near), float32(c.Far))
}

func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(
		mgl32.Vec3{0, 0, float32(c.Z)},
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 1, 0},
	)
}
