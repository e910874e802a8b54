package glsurface

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"beatviz/internal/render"
)

var glfwKeys = map[render.Key]glfw.Key{
	render.KeySpace:  glfw.KeySpace,
	render.KeyEscape: glfw.KeyEscape,
	render.Key1:      glfw.Key1,
	render.Key2:      glfw.Key2,
	render.Key3:      glfw.Key3,
	render.Key4:      glfw.Key4,
	render.KeyM:      glfw.KeyM,
	render.KeyR:      glfw.KeyR,
	render.KeyC:      glfw.KeyC,
	render.KeyLeft:   glfw.KeyLeft,
	render.KeyRight:  glfw.KeyRight,
	render.KeyUp:     glfw.KeyUp,
	render.KeyDown:   glfw.KeyDown,
}

type Input struct {
	prevKeys map[glfw.Key]bool
}

func NewInput() *Input {
	return &Input{prevKeys: make(map[glfw.Key]bool)}
}

func (in *Input) JustPressed(window *glfw.Window, key render.Key) bool {
	k, ok := glfwKeys[key]
	if !ok {
		return false
	}
	down := window.GetKey(k) == glfw.Press
	jp := down && !in.prevKeys[k]
	in.prevKeys[k] = down
	return jp
}
