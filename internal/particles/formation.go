// Package particles owns the particle formation: its geometry, the shader
// uniforms, and the beat-driven decisions that reshape it.
package particles

import (
	"errors"
	"io"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"beatviz/internal/audio"
)

// Handle names an uploaded point buffer.
type Handle uint32

// Buffers uploads and frees GPU-resident geometry.
type Buffers interface {
	Upload(g Geometry) (Handle, error)
	Free(h Handle)
}

type Player interface {
	IsPlaying() bool
}

type Tempo interface {
	PeriodMs() float64
}

// Deps are injected collaborators. Tempo and Log may be nil.
type Deps struct {
	Buffers Buffers
	Player  Player
	Tempo   Tempo
	Props   *Properties
	Rand    Source
	Log     *log.Logger
}

const (
	rotateChance    = 0.3
	resetChance     = 0.3
	longRotateProb  = 0.8
	longRotateS     = 15.0
	fallbackResetS  = 2.0
	fallbackPeriodS = 0.5
	idleFrequency   = 0.8
	idleTimeStep    = 0.2
)

var (
	ErrDisposed  = errors.New("particles: formation disposed")
	ErrNoBuffers = errors.New("particles: no buffer uploader")
)

// Transform places the formation: an outer Z offset, a holder rotation
// animated on beats, and the mesh's own rotation and scale.
type Transform struct {
	PosZ      float64
	HolderRot [3]float64
	MeshRot   [3]float64
	Scale     float64
}

func (t Transform) Model() mgl32.Mat4 {
	rot := func(r [3]float64) mgl32.Mat4 {
		return mgl32.HomogRotate3DX(float32(r[0])).
			Mul4(mgl32.HomogRotate3DY(float32(r[1]))).
			Mul4(mgl32.HomogRotate3DZ(float32(r[2])))
	}
	s := float32(t.Scale)
	return mgl32.Translate3D(0, 0, float32(t.PosZ)).
		Mul4(rot(t.HolderRot)).
		Mul4(rot(t.MeshRot)).
		Mul4(mgl32.Scale3D(s, s, s))
}

// Scene is what a renderer needs to draw one frame.
type Scene struct {
	Visible  bool
	Handle   Handle
	Count    int
	Kind     Kind
	Model    mgl32.Mat4
	Uniforms Uniforms
}

// Formation holds at most one live point buffer. It is not safe for
// concurrent use; beat events reach it through the frame thread.
type Formation struct {
	deps Deps
	log  *log.Logger

	uniforms  Uniforms
	transform Transform
	anim      Animator
	time      float64

	kind     Kind
	handle   Handle
	count    int
	live     bool
	inited   bool
	disposed bool
}

func NewFormation(deps Deps) *Formation {
	if deps.Props == nil {
		p := DefaultProperties()
		deps.Props = &p
	}
	if deps.Rand == nil {
		deps.Rand = NewRand(1)
	}
	f := &Formation{deps: deps, log: deps.Log}
	if f.log == nil {
		f.log = log.New(io.Discard, "", 0)
	}
	f.uniforms = DefaultUniforms(*deps.Props)
	f.transform.Scale = deps.Props.Size
	return f
}

// Init resets uniforms to defaults and creates the first formation.
func (f *Formation) Init() error {
	if f.disposed {
		return ErrDisposed
	}
	if f.inited {
		return nil
	}
	f.inited = true
	f.uniforms = DefaultUniforms(*f.deps.Props)
	if f.deps.Props.AutoMix {
		return f.ResetMesh()
	}
	return f.CreateMesh(Cylinder)
}

// OnBeat runs once per beat. Draws, in order: rotate coin, then when
// rotating the duration coin and target angle, then the reset coin.
func (f *Formation) OnBeat() {
	if f.disposed || f.deps.Player == nil || !f.deps.Player.IsPlaying() {
		return
	}
	rnd := f.deps.Rand
	if rnd.Float64() < rotateChance && f.deps.Props.AutoRotate {
		d := f.periodS()
		if rnd.Float64() < longRotateProb {
			d = longRotateS
		}
		f.anim.To(&f.transform.HolderRot[2], rnd.Float64()*math.Pi, d, ElasticOut(0.2, 0))
	}
	if rnd.Float64() < resetChance {
		if err := f.ResetMesh(); err != nil {
			f.log.Printf("reset formation: %v", err)
		}
	}
}

// ResetMesh swaps in a randomly chosen formation when AutoMix is set and
// does nothing otherwise.
func (f *Formation) ResetMesh() error {
	if f.disposed {
		return ErrDisposed
	}
	if !f.deps.Props.AutoMix {
		return nil
	}
	f.DestroyMesh()
	if err := f.CreateMesh(KindFor(f.deps.Rand.Float64())); err != nil {
		return err
	}

	rnd := f.deps.Rand
	d := f.resetDurationS()
	if f.deps.Props.RandomColor {
		start := randomColor(rnd)
		end := randomColor(rnd)
		f.tweenColor(&f.uniforms.StartColor, start, d)
		f.tweenColor(&f.uniforms.EndColor, end, d)
	}
	f.anim.To(&f.uniforms.Frequency, randFloat(rnd, 0.5, 3), d, ExpoInOut)
	return nil
}

// DestroyMesh frees the live buffer, if any.
func (f *Formation) DestroyMesh() {
	if f.live {
		f.deps.Buffers.Free(f.handle)
	}
	f.live = false
	f.handle = 0
	f.count = 0
	f.kind = None
}

// CreateMesh builds and uploads a formation of kind k, destroying the
// current one first.
func (f *Formation) CreateMesh(k Kind) error {
	if f.disposed {
		return ErrDisposed
	}
	f.DestroyMesh()
	if k == None {
		return nil
	}
	if f.deps.Buffers == nil {
		return ErrNoBuffers
	}
	g := f.build(k)
	h, err := f.deps.Buffers.Upload(g)
	if err != nil {
		return err
	}
	f.handle, f.count, f.kind, f.live = h, g.Count(), k, true
	return nil
}

func (f *Formation) build(k Kind) Geometry {
	rnd := f.deps.Rand
	t := &f.transform
	t.Scale = f.deps.Props.Size
	posZ := 0.0

	var g Geometry
	switch k {
	case Cylinder:
		radial := int(randInt(rnd, 1, 3))
		height := int(randInt(rnd, 1, 5))
		g = CylinderPoints(1, 4, 64*radial, 64*height)
		f.uniforms.OffsetSize = randInt(rnd, 30, 60)
		f.uniforms.Size = 2
		t.MeshRot = [3]float64{math.Pi / 2, 0, 0}
		rotY := 0.0
		posZ = randInt(rnd, 9, 11)
		if rnd.Float64() < 0.2 {
			rotY = math.Pi / 2
			posZ = randInt(rnd, 10, 11.5)
		}
		f.anim.To(&t.HolderRot[1], rotY, 0.2, ElasticOut(0.2, 0))
	case Box:
		ws := int(randInt(rnd, 5, 20))
		hs := int(randInt(rnd, 1, 40))
		ds := int(randInt(rnd, 5, 80))
		g = BoxPoints(1, 1, 1, ws, hs, ds)
		f.uniforms.OffsetSize = randInt(rnd, 30, 60)
		t.MeshRot = [3]float64{math.Pi / 2, 0, 0}
		f.anim.To(&t.MeshRot[0], rnd.Float64()*math.Pi, 3, Linear)
		f.anim.To(&t.MeshRot[2], rnd.Float64()*math.Pi*2, 3, Linear)
		posZ = randInt(rnd, 9, 11)
	case Sphere:
		ws := int(randInt(rnd, 32, 128))
		hs := int(randInt(rnd, 16, 64))
		g = SpherePoints(1.5, ws, hs)
		f.uniforms.OffsetSize = randInt(rnd, 30, 60)
		t.MeshRot = [3]float64{}
		posZ = randInt(rnd, 9, 11)
	case Torus:
		radial := int(randInt(rnd, 16, 48))
		tubular := int(randInt(rnd, 64, 200))
		g = TorusPoints(1.3, 0.45, radial, tubular)
		f.uniforms.OffsetSize = randInt(rnd, 30, 60)
		t.MeshRot = [3]float64{math.Pi / 2, 0, 0}
		posZ = randInt(rnd, 9, 11)
	}
	f.anim.To(&t.PosZ, posZ, 0.6, ElasticOut(0.8, 0))
	return g
}

// ShowFormation forces kind k and turns AutoMix off.
func (f *Formation) ShowFormation(k Kind) error {
	f.DestroyMesh()
	if err := f.CreateMesh(k); err != nil {
		return err
	}
	f.deps.Props.AutoMix = false
	return nil
}

// Update maps band energies onto the uniforms. A nil bands means playback
// is idle; band-driven fields then keep their last values.
func (f *Formation) Update(b *audio.Bands) {
	if f.disposed {
		return
	}
	if b != nil {
		f.uniforms.Amplitude = 0.8 + remap(b.High, 0, 0.6, -0.1, 0.2)
		f.uniforms.OffsetGain = b.Mid * 0.6
		f.time += clampF(remap(b.Low, 0.6, 1, 0.2, 0.5), 0.2, 0.5)
	} else {
		f.uniforms.Frequency = idleFrequency
		f.uniforms.Amplitude = 1
		f.time += idleTimeStep
	}
	f.uniforms.Time = f.time
}

// Advance steps running animations by dt seconds.
func (f *Formation) Advance(dt float64) {
	if f.disposed {
		return
	}
	f.anim.Advance(dt)
}

func (f *Formation) SetSize(v float64) {
	f.deps.Props.Size = v
	f.uniforms.Size = v
	f.transform.Scale = v
}

func (f *Formation) SetStartColor(c Color) {
	ch := f.uniforms.StartColor.channels()
	f.anim.Kill(ch[:]...)
	f.deps.Props.StartColor = c
	f.uniforms.StartColor = c
}

func (f *Formation) SetEndColor(c Color) {
	ch := f.uniforms.EndColor.channels()
	f.anim.Kill(ch[:]...)
	f.deps.Props.EndColor = c
	f.uniforms.EndColor = c
}

// Uniforms returns the live parameter block for direct edits.
func (f *Formation) Uniforms() *Uniforms { return &f.uniforms }

func (f *Formation) Properties() *Properties { return f.deps.Props }

func (f *Formation) Transform() Transform { return f.transform }

func (f *Formation) Kind() Kind { return f.kind }

func (f *Formation) Disposed() bool { return f.disposed }

func (f *Formation) Scene() Scene {
	return Scene{
		Visible:  f.live && !f.disposed,
		Handle:   f.handle,
		Count:    f.count,
		Kind:     f.kind,
		Model:    f.transform.Model(),
		Uniforms: f.uniforms,
	}
}

// Dispose cancels animations and frees the buffer. Later calls do nothing.
func (f *Formation) Dispose() {
	if f.disposed {
		return
	}
	f.anim.KillAll()
	f.DestroyMesh()
	f.disposed = true
}

func (f *Formation) periodS() float64 {
	if f.deps.Tempo == nil {
		return fallbackPeriodS
	}
	if p := f.deps.Tempo.PeriodMs(); p > 0 {
		return p / 1000
	}
	return fallbackPeriodS
}

func (f *Formation) resetDurationS() float64 {
	if f.deps.Tempo == nil {
		return fallbackResetS
	}
	return f.periodS() * 2
}

func (f *Formation) tweenColor(c *Color, to Color, d float64) {
	ch := c.channels()
	f.anim.To(ch[0], to.R, d, Linear)
	f.anim.To(ch[1], to.G, d, Linear)
	f.anim.To(ch[2], to.B, d, Linear)
}

func randomColor(src Source) Color {
	return Color{R: src.Float64(), G: src.Float64(), B: src.Float64()}
}
