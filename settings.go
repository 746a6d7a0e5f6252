package ssao

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Settings ranges.
const (
	MinDownsample = 1
	MaxDownsample = 4

	MinRadius = 0.1
	MaxRadius = 5.0

	MinIntensity = 0.5
	MaxIntensity = 2.0

	MinBias = 0.0
	MaxBias = 1.0

	MinMaxDepth = 0.0
	MaxMaxDepth = 10.0

	MinBlur = 0.0
	MaxBlur = 1.0
)

// Settings is the static occlusion configuration of an effect.
// A Settings value is treated as immutable for the duration of a frame.
type Settings struct {
	// Downsample integer-divides the occlusion buffer size, in [1, 4].
	Downsample int `toml:"downsample" yaml:"downsample"`

	// Radius is the world-space sampling radius, in [0.1, 5].
	Radius float32 `toml:"radius" yaml:"radius"`

	// Quality selects the sample variant.
	Quality Quality `toml:"quality" yaml:"quality"`

	// Intensity scales the occlusion term, in [0.5, 2].
	Intensity float32 `toml:"intensity" yaml:"intensity"`

	// Bias offsets the depth comparison, in [0, 1].
	Bias float32 `toml:"bias" yaml:"bias"`

	// MaxDepth discards occluders farther than this distance, in [0, 10].
	MaxDepth float32 `toml:"max_depth" yaml:"max_depth"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Downsample: 1,
		Radius:     0.5,
		Quality:    QualityHigh,
		Intensity:  1.0,
		Bias:       1.0,
		MaxDepth:   10.0,
	}
}

// Validate reports the first field outside its range.
func (s Settings) Validate() error {
	if s.Downsample < MinDownsample || s.Downsample > MaxDownsample {
		return rangeError("downsample", float32(s.Downsample), MinDownsample, MaxDownsample)
	}
	if err := checkRange("radius", s.Radius, MinRadius, MaxRadius); err != nil {
		return err
	}
	if !s.Quality.Valid() {
		return fmt.Errorf("ssao: quality %d: %w", uint8(s.Quality), ErrOutOfRange)
	}
	if err := checkRange("intensity", s.Intensity, MinIntensity, MaxIntensity); err != nil {
		return err
	}
	if err := checkRange("bias", s.Bias, MinBias, MaxBias); err != nil {
		return err
	}
	return checkRange("max_depth", s.MaxDepth, MinMaxDepth, MaxMaxDepth)
}

// Clamp returns a copy of s with every field forced into its range.
// NaN fields and unknown quality tiers take their default value.
func (s Settings) Clamp() Settings {
	def := DefaultSettings()
	s.Downsample = min(max(s.Downsample, MinDownsample), MaxDownsample)
	s.Radius = clampFloat(s.Radius, MinRadius, MaxRadius, def.Radius)
	if !s.Quality.Valid() {
		s.Quality = def.Quality
	}
	s.Intensity = clampFloat(s.Intensity, MinIntensity, MaxIntensity, def.Intensity)
	s.Bias = clampFloat(s.Bias, MinBias, MaxBias, def.Bias)
	s.MaxDepth = clampFloat(s.MaxDepth, MinMaxDepth, MaxMaxDepth, def.MaxDepth)
	return s
}

// BlurSettings holds the directional blur strengths, each in [0, 1].
type BlurSettings struct {
	Horizontal float32 `toml:"horizontal" yaml:"horizontal"`
	Vertical   float32 `toml:"vertical" yaml:"vertical"`
}

// DefaultBlurSettings returns the blur settings used when none are configured.
// Both strengths are zero: the blur passes still run but sample in place.
func DefaultBlurSettings() BlurSettings {
	return BlurSettings{}
}

// Validate reports the first strength outside [0, 1].
func (b BlurSettings) Validate() error {
	if err := checkRange("horizontal_blur", b.Horizontal, MinBlur, MaxBlur); err != nil {
		return err
	}
	return checkRange("vertical_blur", b.Vertical, MinBlur, MaxBlur)
}

// Clamp returns a copy of b with both strengths forced into [0, 1].
func (b BlurSettings) Clamp() BlurSettings {
	b.Horizontal = clampFloat(b.Horizontal, MinBlur, MaxBlur, 0)
	b.Vertical = clampFloat(b.Vertical, MinBlur, MaxBlur, 0)
	return b
}

func clampFloat(v, lo, hi, fallback float32) float32 {
	if math32.IsNaN(v) {
		return fallback
	}
	return math32.Min(math32.Max(v, lo), hi)
}

func checkRange(field string, v, lo, hi float32) error {
	if math32.IsNaN(v) || v < lo || v > hi {
		return rangeError(field, v, lo, hi)
	}
	return nil
}

func rangeError(field string, v, lo, hi float32) error {
	return fmt.Errorf("ssao: %s = %g not in [%g, %g]: %w", field, v, lo, hi, ErrOutOfRange)
}
