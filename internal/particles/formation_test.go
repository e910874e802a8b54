package particles

import (
	"math"
	"testing"

	"beatviz/internal/audio"
)

// seq replays fixed draws, then returns 0.5.
type seq struct {
	vals  []float64
	drawn int
}

func (s *seq) Float64() float64 {
	s.drawn++
	if len(s.vals) == 0 {
		return 0.5
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v
}

type fakeBuffers struct {
	next    Handle
	live    map[Handle]int
	uploads int
	frees   int
	maxLive int
}

func newFakeBuffers() *fakeBuffers { return &fakeBuffers{live: map[Handle]int{}} }

func (b *fakeBuffers) Upload(g Geometry) (Handle, error) {
	b.next++
	b.uploads++
	b.live[b.next] = g.Count()
	b.maxLive = max(b.maxLive, len(b.live))
	return b.next, nil
}

func (b *fakeBuffers) Free(h Handle) {
	b.frees++
	delete(b.live, h)
}

type fakePlayer bool

func (p fakePlayer) IsPlaying() bool { return bool(p) }

type fakeTempo float64

func (t fakeTempo) PeriodMs() float64 { return float64(t) }

func newTestFormation(src Source, playing bool, props Properties) (*Formation, *fakeBuffers) {
	bufs := newFakeBuffers()
	f := NewFormation(Deps{
		Buffers: bufs,
		Player:  fakePlayer(playing),
		Tempo:   fakeTempo(500),
		Props:   &props,
		Rand:    src,
	})
	return f, bufs
}

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestResetMeshNoopWithoutAutoMix(t *testing.T) {
	props := DefaultProperties()
	props.AutoMix = false
	src := &seq{}
	f, bufs := newTestFormation(src, true, props)
	if err := f.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if f.Kind() != Cylinder || bufs.uploads != 1 {
		t.Fatalf("init kind=%v uploads=%d", f.Kind(), bufs.uploads)
	}

	before := f.Scene()
	drawn, tweens := src.drawn, f.anim.Len()
	if err := f.ResetMesh(); err != nil {
		t.Fatalf("ResetMesh: %v", err)
	}
	if bufs.uploads != 1 || bufs.frees != 0 {
		t.Fatalf("buffer churn: uploads=%d frees=%d", bufs.uploads, bufs.frees)
	}
	if src.drawn != drawn || f.anim.Len() != tweens {
		t.Fatal("ResetMesh drew randoms or started tweens")
	}
	if f.Scene() != before {
		t.Fatal("scene changed")
	}
}

func TestResetMeshQuartiles(t *testing.T) {
	tests := []struct {
		r    float64
		want Kind
	}{
		{0.1, Cylinder},
		{0.25, Box},
		{0.6, Sphere},
		{0.9, Torus},
		{0.999, Torus},
	}
	for _, tc := range tests {
		f, bufs := newTestFormation(&seq{vals: []float64{tc.r}}, true, DefaultProperties())
		if err := f.ResetMesh(); err != nil {
			t.Fatalf("ResetMesh: %v", err)
		}
		if f.Kind() != tc.want {
			t.Fatalf("r=%v kind=%v want=%v", tc.r, f.Kind(), tc.want)
		}
		if len(bufs.live) != 1 {
			t.Fatalf("live buffers=%d want=1", len(bufs.live))
		}
	}
}

func TestResetMeshTweensFrequency(t *testing.T) {
	props := DefaultProperties()
	props.RandomColor = true
	// kind, cylinder draws (radial, height, offset, posZ, rotY coin),
	// start rgb, end rgb, frequency.
	draws := []float64{0.1, 0, 0, 0, 0, 0.9, 1, 0, 0, 0, 0, 1, 0.2}
	f, _ := newTestFormation(&seq{vals: draws}, true, props)
	if err := f.ResetMesh(); err != nil {
		t.Fatalf("ResetMesh: %v", err)
	}
	// 2 x 500ms beat period
	f.Advance(1)
	f.Advance(1)
	u := f.Uniforms()
	if want := 0.5 + 2.5*0.2; !almostEq(u.Frequency, want) {
		t.Fatalf("frequency=%f want=%f", u.Frequency, want)
	}
	if u.StartColor != (Color{R: 1}) || u.EndColor != (Color{B: 1}) {
		t.Fatalf("colors=%v,%v", u.StartColor, u.EndColor)
	}
	if u.OffsetSize != 30 || u.Size != 2 {
		t.Fatalf("offsetSize=%f size=%f", u.OffsetSize, u.Size)
	}
	if tr := f.Transform(); tr.PosZ != 9 || tr.HolderRot[1] != 0 {
		t.Fatalf("transform=%+v", tr)
	}
}

func TestUpdateIdle(t *testing.T) {
	f, _ := newTestFormation(&seq{}, false, DefaultProperties())
	if err := f.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	const n = 37
	for i := 0; i < n; i++ {
		f.Update(nil)
	}
	u := f.Uniforms()
	if !almostEq(u.Time, 0.2*n) {
		t.Fatalf("time=%f want=%f", u.Time, 0.2*n)
	}
	if u.Amplitude != 1 || u.Frequency != 0.8 {
		t.Fatalf("amplitude=%f frequency=%f", u.Amplitude, u.Frequency)
	}
}

func TestUpdateBands(t *testing.T) {
	f, _ := newTestFormation(&seq{}, true, DefaultProperties())
	f.Update(&audio.Bands{Low: 0.8, Mid: 0.5, High: 0.3})
	u := f.Uniforms()
	tests := []struct {
		name      string
		got, want float64
	}{
		{"amplitude", u.Amplitude, 0.8 + remap(0.3, 0, 0.6, -0.1, 0.2)},
		{"amplitude value", u.Amplitude, 0.85},
		{"offsetGain", u.OffsetGain, 0.3},
		{"time", u.Time, 0.35},
	}
	for _, tc := range tests {
		if !almostEq(tc.got, tc.want) {
			t.Fatalf("%s=%f want=%f", tc.name, tc.got, tc.want)
		}
	}

	// quiet low band clamps to the minimum step
	f.Update(&audio.Bands{Low: 0})
	if !almostEq(u.Time, 0.55) {
		t.Fatalf("time=%f want=0.55", u.Time)
	}
	// idle keeps the last offsetGain
	f.Update(&audio.Bands{Mid: 1})
	f.Update(nil)
	if !almostEq(u.OffsetGain, 0.6) {
		t.Fatalf("idle offsetGain=%f want=0.6", u.OffsetGain)
	}
}

func TestOnBeatDrawOrder(t *testing.T) {
	t.Run("long rotation, no reset", func(t *testing.T) {
		src := &seq{vals: []float64{0.1, 0.5, 0.5, 0.9}}
		f, bufs := newTestFormation(src, true, DefaultProperties())
		f.OnBeat()
		if src.drawn != 4 || bufs.uploads != 0 {
			t.Fatalf("drawn=%d uploads=%d", src.drawn, bufs.uploads)
		}
		f.Advance(14.9)
		if !f.anim.Active(&f.transform.HolderRot[2]) {
			t.Fatal("15s rotation finished early")
		}
		f.Advance(0.1)
		if got := f.Transform().HolderRot[2]; !almostEq(got, math.Pi/2) {
			t.Fatalf("rotation=%f want=%f", got, math.Pi/2)
		}
	})
	t.Run("beat-period rotation and reset", func(t *testing.T) {
		src := &seq{vals: []float64{0.1, 0.9, 0, 0.2, 0.8}}
		f, bufs := newTestFormation(src, true, DefaultProperties())
		f.OnBeat()
		if f.Kind() != Torus || bufs.uploads != 1 {
			t.Fatalf("kind=%v uploads=%d", f.Kind(), bufs.uploads)
		}
		f.Advance(0.5)
		if f.anim.Active(&f.transform.HolderRot[2]) {
			t.Fatal("beat-period rotation still running")
		}
	})
	t.Run("autoRotate off still draws the coin", func(t *testing.T) {
		props := DefaultProperties()
		props.AutoRotate = false
		src := &seq{vals: []float64{0.1, 0.9}}
		f, _ := newTestFormation(src, true, props)
		f.OnBeat()
		if src.drawn != 2 || f.anim.Len() != 0 {
			t.Fatalf("drawn=%d tweens=%d", src.drawn, f.anim.Len())
		}
	})
	t.Run("paused", func(t *testing.T) {
		src := &seq{}
		f, _ := newTestFormation(src, false, DefaultProperties())
		f.OnBeat()
		if src.drawn != 0 {
			t.Fatalf("drawn=%d want=0", src.drawn)
		}
	})
}

func TestSingleLiveBuffer(t *testing.T) {
	f, bufs := newTestFormation(NewRand(7), true, DefaultProperties())
	if err := f.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for i := 0; i < 500; i++ {
		f.OnBeat()
		f.Advance(1.0 / 60)
		f.Update(&audio.Bands{Low: 0.5, Mid: 0.5, High: 0.5})
	}
	if bufs.maxLive != 1 {
		t.Fatalf("max live buffers=%d want=1", bufs.maxLive)
	}
	if bufs.uploads < 2 {
		t.Fatalf("uploads=%d; expected formation changes", bufs.uploads)
	}
}

func TestShowFormation(t *testing.T) {
	f, bufs := newTestFormation(&seq{}, true, DefaultProperties())
	if err := f.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := f.ShowFormation(Box); err != nil {
		t.Fatalf("ShowFormation: %v", err)
	}
	if f.Kind() != Box || f.Properties().AutoMix {
		t.Fatalf("kind=%v autoMix=%v", f.Kind(), f.Properties().AutoMix)
	}
	if len(bufs.live) != 1 {
		t.Fatalf("live=%d want=1", len(bufs.live))
	}
}

func TestDisposeTwice(t *testing.T) {
	f, bufs := newTestFormation(NewRand(3), true, DefaultProperties())
	if err := f.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	f.OnBeat()
	f.Dispose()
	state := f.Scene()
	f.Dispose()
	if !f.Disposed() || f.Scene() != state {
		t.Fatal("second Dispose changed state")
	}
	if len(bufs.live) != 0 || f.anim.Len() != 0 {
		t.Fatalf("live=%d tweens=%d after dispose", len(bufs.live), f.anim.Len())
	}
	f.Update(nil)
	f.OnBeat()
	if err := f.ResetMesh(); err != ErrDisposed {
		t.Fatalf("ResetMesh after dispose: %v", err)
	}
}

func TestSetSize(t *testing.T) {
	f, _ := newTestFormation(&seq{}, true, DefaultProperties())
	f.SetSize(3)
	if f.Uniforms().Size != 3 || f.Transform().Scale != 3 || f.Properties().Size != 3 {
		t.Fatal("size not applied")
	}
}
