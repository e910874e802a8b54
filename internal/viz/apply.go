package viz

import (
	"beatviz/internal/event"
	"beatviz/internal/particles"
)

func (c *Controller) onSettings(e event.Event) {
	s, ok := e.Payload.(Settings)
	if !ok {
		return
	}
	c.ApplySettings(s)
	c.log.Printf("settings reloaded")
}

// ApplySettings overlays s onto the running state. Parts whose owner does
// not exist yet are skipped.
func (c *Controller) ApplySettings(s Settings) {
	c.applyPanel(s)
	if s.Volume != nil && c.analyzer != nil {
		c.analyzer.SetVolume(*s.Volume)
	}
	c.applyFormation(s)
}

// applyPanel updates band ranges and visualizer toggles, which live on the
// controller and are read by reference.
func (c *Controller) applyPanel(s Settings) {
	if f := s.Frequencies; f != nil {
		r := c.ranges
		if f.Low != nil {
			r.LowHz = *f.Low
		}
		if f.Mid != nil {
			r.MidHz = *f.Mid
		}
		if f.High != nil {
			r.HighHz = *f.High
		}
		c.ranges = r.Clamp()
	}
	if v := s.Visualizer; v != nil {
		if v.AutoMix != nil {
			c.props.AutoMix = *v.AutoMix
		}
		if v.AutoRotate != nil {
			c.props.AutoRotate = *v.AutoRotate
		}
		if v.RandomColor != nil {
			c.props.RandomColor = *v.RandomColor
		}
		if c.formation == nil {
			if v.Size != nil {
				c.props.Size = clampTo(*v.Size, sizeLimits)
			}
			if v.StartColor != nil {
				c.props.StartColor = *v.StartColor
			}
			if v.EndColor != nil {
				c.props.EndColor = *v.EndColor
			}
		}
	}
}

func (c *Controller) applyFormation(s Settings) {
	f := c.formation
	if f == nil {
		return
	}
	// ShowFormation rerolls per-variant uniforms; explicit values below win.
	if s.Formation != "" {
		if k, ok := particles.ParseKind(s.Formation); ok && k != particles.None {
			if err := f.ShowFormation(k); err != nil {
				c.log.Printf("show formation: %v", err)
			}
		}
	}
	if v := s.Visualizer; v != nil {
		if v.Size != nil {
			f.SetSize(clampTo(*v.Size, sizeLimits))
		}
		if v.StartColor != nil {
			f.SetStartColor(*v.StartColor)
		}
		if v.EndColor != nil {
			f.SetEndColor(*v.EndColor)
		}
	}
	if u := s.Uniforms; u != nil {
		dst := f.Uniforms()
		set := func(p *float64, v *float64, lim [2]float64) {
			if v != nil {
				*p = clampTo(*v, lim)
			}
		}
		set(&dst.OffsetSize, u.OffsetSize, offsetSizeLimits)
		set(&dst.Frequency, u.Frequency, frequencyLimits)
		set(&dst.Amplitude, u.Amplitude, amplitudeLimits)
		set(&dst.OffsetGain, u.OffsetGain, offsetGainLimits)
		set(&dst.MaxDistance, u.MaxDistance, maxDistanceLimits)
	}
}
