package glsurface

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"beatviz/internal/particles"
)

// glOffset converts a byte offset to unsafe.Pointer for OpenGL VBO offset params.
func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }

type pointBuffer struct {
	vao, vbo uint32
	count    int32
}

// Renderer draws one point cloud per frame with the formation uniforms.
type Renderer struct {
	prog    uint32
	buffers map[particles.Handle]pointBuffer
	next    particles.Handle

	uProjection  int32
	uView        int32
	uModel       int32
	uTime        int32
	uSize        int32
	uFrequency   int32
	uAmplitude   int32
	uOffsetGain  int32
	uMaxDistance int32
	uOffsetSize  int32
	uPixelRatio  int32
	uStartColor  int32
	uEndColor    int32
}

func NewRenderer() (*Renderer, error) {
	prog, err := linkProgram(pointVertSrc, pointFragSrc)
	if err != nil {
		return nil, fmt.Errorf("point program: %w", err)
	}
	r := &Renderer{prog: prog, buffers: make(map[particles.Handle]pointBuffer)}

	loc := func(name string) int32 {
		return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	}
	gl.UseProgram(prog)
	r.uProjection = loc("uProjection")
	r.uView = loc("uView")
	r.uModel = loc("uModel")
	r.uTime = loc("uTime")
	r.uSize = loc("uSize")
	r.uFrequency = loc("uFrequency")
	r.uAmplitude = loc("uAmplitude")
	r.uOffsetGain = loc("uOffsetGain")
	r.uMaxDistance = loc("uMaxDistance")
	r.uOffsetSize = loc("uOffsetSize")
	r.uPixelRatio = loc("uPixelRatio")
	r.uStartColor = loc("uStartColor")
	r.uEndColor = loc("uEndColor")
	gl.Uniform1f(r.uPixelRatio, 1)
	return r, nil
}

// Upload copies xyz positions into a new static VBO.
func (r *Renderer) Upload(g particles.Geometry) (particles.Handle, error) {
	if g.Count() == 0 {
		return 0, fmt.Errorf("upload %v: empty geometry", g.Kind)
	}
	var b pointBuffer
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(g.Positions)*4, gl.Ptr(&g.Positions[0]), gl.STATIC_DRAW)
	// aPos (vec3)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, glOffset(0))
	gl.BindVertexArray(0)
	b.count = int32(g.Count())

	r.next++
	r.buffers[r.next] = b
	return r.next, nil
}

func (r *Renderer) Free(h particles.Handle) {
	b, ok := r.buffers[h]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteVertexArrays(1, &b.vao)
	delete(r.buffers, h)
}

func (r *Renderer) BeginFrame(fbW, fbH int) {
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (r *Renderer) SetPixelRatio(ratio float32) {
	gl.UseProgram(r.prog)
	gl.Uniform1f(r.uPixelRatio, ratio)
}

func (r *Renderer) Draw(proj, view mgl32.Mat4, scene particles.Scene) {
	if !scene.Visible {
		return
	}
	b, ok := r.buffers[scene.Handle]
	if !ok {
		return
	}
	u := scene.Uniforms
	gl.UseProgram(r.prog)
	gl.UniformMatrix4fv(r.uProjection, 1, false, &proj[0])
	gl.UniformMatrix4fv(r.uView, 1, false, &view[0])
	gl.UniformMatrix4fv(r.uModel, 1, false, &scene.Model[0])
	gl.Uniform1f(r.uTime, float32(u.Time))
	gl.Uniform1f(r.uSize, float32(u.Size))
	gl.Uniform1f(r.uFrequency, float32(u.Frequency))
	gl.Uniform1f(r.uAmplitude, float32(u.Amplitude))
	gl.Uniform1f(r.uOffsetGain, float32(u.OffsetGain))
	gl.Uniform1f(r.uMaxDistance, float32(u.MaxDistance))
	gl.Uniform1f(r.uOffsetSize, float32(u.OffsetSize))
	gl.Uniform3f(r.uStartColor, float32(u.StartColor.R), float32(u.StartColor.G), float32(u.StartColor.B))
	gl.Uniform3f(r.uEndColor, float32(u.EndColor.R), float32(u.EndColor.G), float32(u.EndColor.B))

	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.POINTS, 0, b.count)
	gl.BindVertexArray(0)
}

func (r *Renderer) Destroy() {
	for h := range r.buffers {
		r.Free(h)
	}
	if r.prog != 0 {
		gl.DeleteProgram(r.prog)
		r.prog = 0
	}
}
