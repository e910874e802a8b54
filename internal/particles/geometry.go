package particles

import "math"

// Kind tags the active formation.
type Kind int

const (
	None Kind = iota
	Cylinder
	Box
	Sphere
	Torus
)

// Mixable lists the variants in the order used to map a random draw onto
// four equal quartiles of [0,1).
var Mixable = [...]Kind{Cylinder, Box, Sphere, Torus}

func (k Kind) String() string {
	switch k {
	case Cylinder:
		return "cylinder"
	case Box:
		return "box"
	case Sphere:
		return "sphere"
	case Torus:
		return "torus"
	}
	return "none"
}

// ParseKind accepts the names produced by String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Mixable {
		if k.String() == s {
			return k, true
		}
	}
	return None, s == "none" || s == ""
}

// KindFor maps r in [0,1) onto Mixable by quartile.
func KindFor(r float64) Kind {
	i := int(r * float64(len(Mixable)))
	i = max(0, min(i, len(Mixable)-1))
	return Mixable[i]
}

// Geometry is a point cloud: xyz triples in object space.
type Geometry struct {
	Kind      Kind
	Positions []float32
}

func (g Geometry) Count() int { return len(g.Positions) / 3 }

func (g *Geometry) add(x, y, z float64) {
	g.Positions = append(g.Positions, float32(x), float32(y), float32(z))
}

// CylinderPoints samples an open cylinder's side grid.
func CylinderPoints(radius, height float64, radialSeg, heightSeg int) Geometry {
	radialSeg = max(radialSeg, 3)
	heightSeg = max(heightSeg, 1)
	g := Geometry{Kind: Cylinder, Positions: make([]float32, 0, 3*(radialSeg+1)*(heightSeg+1))}
	for y := 0; y <= heightSeg; y++ {
		v := float64(y) / float64(heightSeg)
		py := -v*height + height/2
		for x := 0; x <= radialSeg; x++ {
			theta := float64(x) / float64(radialSeg) * 2 * math.Pi
			g.add(radius*math.Sin(theta), py, radius*math.Cos(theta))
		}
	}
	return g
}

// BoxPoints samples the six face grids of an axis-aligned box.
func BoxPoints(w, h, d float64, ws, hs, ds int) Geometry {
	ws, hs, ds = max(ws, 1), max(hs, 1), max(ds, 1)
	g := Geometry{Kind: Box}
	// (u, v, w) axis permutation, direction signs, extents, segments.
	faces := []struct {
		u, v, n          int
		udir, vdir, ndir float64
		width, height    float64
		depth            float64
		gx, gy           int
	}{
		{2, 1, 0, -1, -1, 1, d, h, w, ds, hs},
		{2, 1, 0, 1, -1, -1, d, h, w, ds, hs},
		{0, 2, 1, 1, 1, 1, w, d, h, ws, ds},
		{0, 2, 1, 1, -1, -1, w, d, h, ws, ds},
		{0, 1, 2, 1, -1, 1, w, h, d, ws, hs},
		{0, 1, 2, -1, -1, -1, w, h, d, ws, hs},
	}
	for _, f := range faces {
		for iy := 0; iy <= f.gy; iy++ {
			y := float64(iy)*f.height/float64(f.gy) - f.height/2
			for ix := 0; ix <= f.gx; ix++ {
				x := float64(ix)*f.width/float64(f.gx) - f.width/2
				var p [3]float64
				p[f.u] = x * f.udir
				p[f.v] = y * f.vdir
				p[f.n] = f.depth / 2 * f.ndir
				g.add(p[0], p[1], p[2])
			}
		}
	}
	return g
}

// SpherePoints samples a UV sphere.
func SpherePoints(radius float64, widthSeg, heightSeg int) Geometry {
	widthSeg = max(widthSeg, 3)
	heightSeg = max(heightSeg, 2)
	g := Geometry{Kind: Sphere, Positions: make([]float32, 0, 3*(widthSeg+1)*(heightSeg+1))}
	for iy := 0; iy <= heightSeg; iy++ {
		theta := float64(iy) / float64(heightSeg) * math.Pi
		for ix := 0; ix <= widthSeg; ix++ {
			phi := float64(ix) / float64(widthSeg) * 2 * math.Pi
			g.add(
				-radius*math.Cos(phi)*math.Sin(theta),
				radius*math.Cos(theta),
				radius*math.Sin(phi)*math.Sin(theta),
			)
		}
	}
	return g
}

// TorusPoints samples a torus around the Z axis.
func TorusPoints(radius, tube float64, radialSeg, tubularSeg int) Geometry {
	radialSeg = max(radialSeg, 3)
	tubularSeg = max(tubularSeg, 3)
	g := Geometry{Kind: Torus, Positions: make([]float32, 0, 3*(radialSeg+1)*(tubularSeg+1))}
	for j := 0; j <= radialSeg; j++ {
		v := float64(j) / float64(radialSeg) * 2 * math.Pi
		for i := 0; i <= tubularSeg; i++ {
			u := float64(i) / float64(tubularSeg) * 2 * math.Pi
			g.add(
				(radius+tube*math.Cos(v))*math.Cos(u),
				(radius+tube*math.Cos(v))*math.Sin(u),
				tube*math.Sin(v),
			)
		}
	}
	return g
}
