package particles

import "math"

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(p float64) float64

func Linear(p float64) float64 { return p }

// ElasticOut overshoots and settles. amplitude below 1 lengthens the
// oscillation period instead of lowering the overshoot.
func ElasticOut(amplitude, period float64) Ease {
	if period <= 0 {
		period = 0.3
	}
	a := math.Max(amplitude, 1)
	if amplitude > 0 && amplitude < 1 {
		period /= amplitude
	}
	shift := period / (2 * math.Pi) * math.Asin(1/a)
	w := 2 * math.Pi / period
	return func(p float64) float64 {
		if p >= 1 {
			return 1
		}
		return a*math.Pow(2, -10*p)*math.Sin((p-shift)*w) + 1
	}
}

func ExpoInOut(p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	case p < 0.5:
		return math.Pow(2, 20*p-10) / 2
	}
	return (2 - math.Pow(2, -20*p+10)) / 2
}

type tween struct {
	target   *float64
	from, to float64
	duration float64
	elapsed  float64
	ease     Ease
}

// Animator drives float64 fields toward targets over time. A new tween on
// a field replaces the one already running on it.
type Animator struct {
	tweens []tween
}

// To starts a tween of *target to value over duration seconds.
func (a *Animator) To(target *float64, value, duration float64, ease Ease) {
	a.Kill(target)
	if duration <= 0 {
		*target = value
		return
	}
	if ease == nil {
		ease = Linear
	}
	a.tweens = append(a.tweens, tween{
		target:   target,
		from:     *target,
		to:       value,
		duration: duration,
		ease:     ease,
	})
}

// Advance steps every tween by dt seconds and drops finished ones.
func (a *Animator) Advance(dt float64) {
	if dt <= 0 || len(a.tweens) == 0 {
		return
	}
	live := a.tweens[:0]
	for _, tw := range a.tweens {
		tw.elapsed += dt
		p := math.Min(tw.elapsed/tw.duration, 1)
		*tw.target = tw.from + (tw.to-tw.from)*tw.ease(p)
		if p < 1 {
			live = append(live, tw)
		}
	}
	clear(a.tweens[len(live):])
	a.tweens = live
}

// Kill stops tweens on the given fields, leaving their current values.
func (a *Animator) Kill(targets ...*float64) {
	live := a.tweens[:0]
	for _, tw := range a.tweens {
		if !containsPtr(targets, tw.target) {
			live = append(live, tw)
		}
	}
	clear(a.tweens[len(live):])
	a.tweens = live
}

func (a *Animator) KillAll() {
	clear(a.tweens)
	a.tweens = a.tweens[:0]
}

func (a *Animator) Active(target *float64) bool {
	for _, tw := range a.tweens {
		if tw.target == target {
			return true
		}
	}
	return false
}

func (a *Animator) Len() int { return len(a.tweens) }

func containsPtr(list []*float64, p *float64) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
