package viz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"beatviz/internal/particles"
)

// Settings is the on-disk control panel. Every field is optional; absent
// fields leave the running value alone.
type Settings struct {
	Frequencies *RangeSettings      `json:"frequencies,omitempty"`
	Visualizer  *VisualizerSettings `json:"visualizer,omitempty"`
	Uniforms    *UniformSettings    `json:"uniforms,omitempty"`
	Volume      *float64            `json:"volume,omitempty"`
	// Formation forces a shape and turns autoMix off.
	Formation string `json:"formation,omitempty"`
}

type RangeSettings struct {
	Low  *float64 `json:"low,omitempty"`
	Mid  *float64 `json:"mid,omitempty"`
	High *float64 `json:"high,omitempty"`
}

type VisualizerSettings struct {
	AutoMix     *bool            `json:"autoMix,omitempty"`
	AutoRotate  *bool            `json:"autoRotate,omitempty"`
	RandomColor *bool            `json:"randomColor,omitempty"`
	Size        *float64         `json:"size,omitempty"`
	StartColor  *particles.Color `json:"startColor,omitempty"`
	EndColor    *particles.Color `json:"endColor,omitempty"`
}

type UniformSettings struct {
	OffsetSize  *float64 `json:"offsetSize,omitempty"`
	Frequency   *float64 `json:"frequency,omitempty"`
	Amplitude   *float64 `json:"amplitude,omitempty"`
	OffsetGain  *float64 `json:"offsetGain,omitempty"`
	MaxDistance *float64 `json:"maxDistance,omitempty"`
}

// Panel limits for the adjustable values.
var (
	sizeLimits        = [2]float64{0, 10}
	offsetSizeLimits  = [2]float64{1, 100}
	frequencyLimits   = [2]float64{0.1, 5}
	amplitudeLimits   = [2]float64{0.1, 3}
	offsetGainLimits  = [2]float64{0, 2}
	maxDistanceLimits = [2]float64{0.1, 5}
)

func ParseSettings(data []byte) (Settings, error) {
	var s Settings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if s.Formation != "" {
		if _, ok := particles.ParseKind(s.Formation); !ok {
			return Settings{}, fmt.Errorf("parse settings: unknown formation %q", s.Formation)
		}
	}
	return s, nil
}

func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}

func clampTo(v float64, lim [2]float64) float64 {
	return max(lim[0], min(v, lim[1]))
}
