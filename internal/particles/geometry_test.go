package particles

import (
	"math"
	"testing"
)

func TestGeometryCounts(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		want int
	}{
		{"cylinder", CylinderPoints(1, 4, 64, 64), 65 * 65},
		{"box", BoxPoints(1, 1, 1, 2, 3, 4), 2*5*4 + 2*3*5 + 2*3*4},
		{"sphere", SpherePoints(1.5, 32, 16), 33 * 17},
		{"torus", TorusPoints(1.3, 0.45, 16, 64), 17 * 65},
	}
	for _, tc := range tests {
		if got := tc.g.Count(); got != tc.want {
			t.Fatalf("%s: count=%d want=%d", tc.name, got, tc.want)
		}
	}
}

func TestGeometryShapes(t *testing.T) {
	const eps = 1e-5
	each := func(g Geometry, fn func(x, y, z float64)) {
		for i := 0; i < len(g.Positions); i += 3 {
			fn(float64(g.Positions[i]), float64(g.Positions[i+1]), float64(g.Positions[i+2]))
		}
	}

	each(CylinderPoints(1, 4, 24, 8), func(x, y, z float64) {
		if r := math.Hypot(x, z); math.Abs(r-1) > eps || math.Abs(y) > 2+eps {
			t.Fatalf("cylinder point (%f,%f,%f) off surface", x, y, z)
		}
	})
	each(BoxPoints(1, 1, 1, 3, 3, 3), func(x, y, z float64) {
		m := math.Max(math.Abs(x), math.Max(math.Abs(y), math.Abs(z)))
		if math.Abs(m-0.5) > eps {
			t.Fatalf("box point (%f,%f,%f) off surface", x, y, z)
		}
	})
	each(SpherePoints(1.5, 16, 8), func(x, y, z float64) {
		if r := math.Sqrt(x*x + y*y + z*z); math.Abs(r-1.5) > eps {
			t.Fatalf("sphere point radius=%f", r)
		}
	})
	each(TorusPoints(1.3, 0.45, 12, 24), func(x, y, z float64) {
		d := math.Hypot(math.Hypot(x, y)-1.3, z)
		if math.Abs(d-0.45) > eps {
			t.Fatalf("torus point tube distance=%f", d)
		}
	})
}

func TestParseKind(t *testing.T) {
	for _, k := range Mixable {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseKind(%q)=%v,%v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("cube"); ok {
		t.Fatal("ParseKind accepted cube")
	}
}
