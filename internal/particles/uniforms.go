package particles

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is linear RGB in [0,1].
type Color struct {
	R, G, B float64
}

func ColorHex(v uint32) Color {
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}
}

func (c Color) Hex() uint32 {
	ch := func(v float64) uint32 { return uint32(clampF(v, 0, 1)*255 + 0.5) }
	return ch(c.R)<<16 | ch(c.G)<<8 | ch(c.B)
}

func (c Color) String() string { return fmt.Sprintf("#%06x", c.Hex()) }

func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return ColorHex(uint32(v)), nil
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c *Color) channels() [3]*float64 { return [3]*float64{&c.R, &c.G, &c.B} }

// Uniforms is the parameter block consumed by the point shader.
type Uniforms struct {
	Time        float64
	Size        float64
	Frequency   float64
	Amplitude   float64
	OffsetGain  float64
	MaxDistance float64
	OffsetSize  float64
	StartColor  Color
	EndColor    Color
}

func DefaultUniforms(p Properties) Uniforms {
	return Uniforms{
		Time:        0,
		Size:        p.Size,
		Frequency:   2,
		Amplitude:   1,
		OffsetGain:  0,
		MaxDistance: 1.8,
		OffsetSize:  2,
		StartColor:  p.StartColor,
		EndColor:    p.EndColor,
	}
}

// Properties are the runtime toggles a control panel mutates.
type Properties struct {
	AutoMix     bool
	AutoRotate  bool
	RandomColor bool
	Size        float64
	StartColor  Color
	EndColor    Color
}

func DefaultProperties() Properties {
	return Properties{
		AutoMix:    true,
		AutoRotate: true,
		Size:       1,
		StartColor: ColorHex(0xff00ff),
		EndColor:   ColorHex(0x00ffff),
	}
}

func remap(v, inLo, inHi, outLo, outHi float64) float64 {
	return outLo + (v-inLo)*(outHi-outLo)/(inHi-inLo)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
