package particles

import "math"

// Source is the random stream Formation draws from. Float64 is in [0,1).
type Source interface {
	Float64() float64
}

// Rand is a tiny deterministic RNG (xorshift64*).
type Rand struct {
	s uint64
}

func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = 1
	}
	return &Rand{s: splitmix64(seed)}
}

func (r *Rand) NextU64() uint64 {
	x := r.s
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.s = x
	return x * 2685821657736338717
}

func (r *Rand) Float64() float64 {
	return float64(r.NextU64()>>11) * (1.0 / (1 << 53))
}

// splitmix64 spreads low-entropy seeds across the state.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// randInt returns lo + floor(r*(hi-lo+1)); for integer bounds that is a
// uniform integer in [lo, hi].
func randInt(src Source, lo, hi float64) float64 {
	return lo + math.Floor(src.Float64()*(hi-lo+1))
}

func randFloat(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}
