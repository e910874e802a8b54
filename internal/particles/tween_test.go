package particles

import (
	"math"
	"testing"
)

func TestAnimatorReachesTarget(t *testing.T) {
	eases := map[string]Ease{
		"linear":  Linear,
		"expo":    ExpoInOut,
		"elastic": ElasticOut(0.8, 0),
	}
	for name, ease := range eases {
		var a Animator
		v := 2.0
		a.To(&v, 5, 1, ease)
		for i := 0; i < 4; i++ {
			a.Advance(0.25)
		}
		a.Advance(0.25)
		if v != 5 || a.Len() != 0 {
			t.Fatalf("%s: v=%f tweens=%d", name, v, a.Len())
		}
	}
}

func TestAnimatorReplaceAndKill(t *testing.T) {
	var a Animator
	x, y := 0.0, 0.0
	a.To(&x, 10, 1, Linear)
	a.To(&y, 10, 1, Linear)
	a.To(&x, -10, 2, Linear)
	if a.Len() != 2 {
		t.Fatalf("tweens=%d want=2", a.Len())
	}
	a.Advance(0.5)
	if x != -2.5 || y != 5 {
		t.Fatalf("x=%f y=%f", x, y)
	}
	a.Kill(&y)
	a.Advance(0.5)
	if y != 5 || !a.Active(&x) || a.Active(&y) {
		t.Fatalf("kill: y=%f", y)
	}
	a.KillAll()
	if a.Len() != 0 {
		t.Fatal("KillAll left tweens")
	}

	a.To(&x, 3, 0, Linear)
	if x != 3 || a.Len() != 0 {
		t.Fatal("zero duration tween not applied immediately")
	}
}

func TestEaseEndpoints(t *testing.T) {
	eases := []Ease{Linear, ExpoInOut, ElasticOut(0.2, 0), ElasticOut(0.8, 0), ElasticOut(1.5, 0.4)}
	for i, e := range eases {
		if got := e(0); math.Abs(got) > 1e-9 {
			t.Fatalf("ease %d at 0 = %f", i, got)
		}
		if got := e(1); got != 1 {
			t.Fatalf("ease %d at 1 = %f", i, got)
		}
	}
	if got := ExpoInOut(0.5); got != 0.5 {
		t.Fatalf("ExpoInOut(0.5)=%f", got)
	}
}

func TestColorHex(t *testing.T) {
	c, err := ParseColor("#ff00ff")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c != ColorHex(0xff00ff) || c.String() != "#ff00ff" {
		t.Fatalf("color=%v", c)
	}
	if _, err := ParseColor("zz"); err == nil {
		t.Fatal("expected error")
	}
	var u Color
	if err := u.UnmarshalText([]byte("0x00ffff")); err != nil || u != ColorHex(0x00ffff) {
		t.Fatalf("UnmarshalText=%v,%v", u, err)
	}
}

func TestRandDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 1000; i++ {
		x, y := a.Float64(), b.Float64()
		if x != y {
			t.Fatalf("draw %d differs", i)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d=%f out of [0,1)", i, x)
		}
	}
	s := &seq{vals: []float64{0, 0.999}}
	if randInt(s, 9, 11) != 9 || randInt(s, 9, 11) != 11 {
		t.Fatal("randInt bounds")
	}
}
