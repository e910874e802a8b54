// Package glsurface is the windowed display: a GLFW window with an
// OpenGL 4.1 core context drawing the formation as point sprites.
package glsurface

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"beatviz/internal/particles"
	"beatviz/internal/render"
)

// Surface must be created, used and released on the OS thread that
// called Prepare.
type Surface struct {
	width, height int
	title         string

	window   *glfw.Window
	rend     *Renderer
	input    *Input
	fbW, fbH int
	resized  bool
}

func New(width, height int, title string) *Surface {
	return &Surface{width: width, height: height, title: title}
}

func (s *Surface) Prepare() error {
	window, err := initWindow(s.width, s.height, s.title)
	if err != nil {
		return err
	}
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return fmt.Errorf("gl init: %w", err)
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0, 0, 0, 1)

	rend, err := NewRenderer()
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return fmt.Errorf("renderer: %w", err)
	}

	s.window, s.rend, s.input = window, rend, NewInput()
	s.fbW, s.fbH = window.GetFramebufferSize()
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		s.fbW, s.fbH = w, h
		s.resized = true
	})
	s.updatePixelRatio()
	return nil
}

func (s *Surface) Upload(g particles.Geometry) (particles.Handle, error) {
	if s.rend == nil {
		return 0, fmt.Errorf("upload: surface not prepared")
	}
	return s.rend.Upload(g)
}

func (s *Surface) Free(h particles.Handle) {
	if s.rend != nil {
		s.rend.Free(h)
	}
}

// Resize sets the window size; the framebuffer follows via callback.
func (s *Surface) Resize(width, height int) {
	if s.window == nil || width <= 0 || height <= 0 {
		return
	}
	s.window.SetSize(width, height)
}

// Size is the framebuffer size in pixels.
func (s *Surface) Size() (int, int) { return s.fbW, s.fbH }

// Resized reports, once, that the framebuffer changed size.
func (s *Surface) Resized() bool {
	r := s.resized
	s.resized = false
	if r {
		s.updatePixelRatio()
	}
	return r
}

func (s *Surface) PollEvents() { glfw.PollEvents() }

func (s *Surface) JustPressed(k render.Key) bool {
	if s.window == nil {
		return false
	}
	return s.input.JustPressed(s.window, k)
}

func (s *Surface) ShouldClose() bool {
	return s.window == nil || s.window.ShouldClose()
}

func (s *Surface) Draw(cam render.Camera, scene particles.Scene) error {
	if s.rend == nil {
		return fmt.Errorf("draw: surface not prepared")
	}
	s.rend.BeginFrame(s.fbW, s.fbH)
	s.rend.Draw(cam.Projection(), cam.View(), scene)
	return nil
}

func (s *Surface) Present() {
	if s.window != nil {
		s.window.SwapBuffers()
	}
}

func (s *Surface) SetTitle(title string) {
	s.title = title
	if s.window != nil {
		s.window.SetTitle(title)
	}
}

func (s *Surface) Time() float64 { return glfw.GetTime() }

func (s *Surface) Release() {
	if s.rend != nil {
		s.rend.Destroy()
		s.rend = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
		glfw.Terminate()
	}
}

func (s *Surface) updatePixelRatio() {
	if s.window == nil || s.rend == nil {
		return
	}
	winW, _ := s.window.GetSize()
	if winW <= 0 {
		return
	}
	s.rend.SetPixelRatio(float32(s.fbW) / float32(winW))
}
