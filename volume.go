package ssao

// EffectName is the key under which a VolumeSource is asked for overrides.
const EffectName = "ssao"

// FloatParameter is a single overridable value. Value only takes effect
// when Override is set.
type FloatParameter struct {
	Value    float32 `toml:"value" yaml:"value"`
	Override bool    `toml:"override" yaml:"override"`
}

// Overridden returns a parameter that overrides with v.
func Overridden(v float32) FloatParameter {
	return FloatParameter{Value: v, Override: true}
}

// Resolve returns Value when the parameter overrides, base otherwise.
func (p FloatParameter) Resolve(base float32) float32 {
	if p.Override {
		return p.Value
	}
	return base
}

// Volume is a runtime override scope layered on top of the static settings.
// An inactive or nil Volume overrides nothing.
type Volume struct {
	Active bool `toml:"active" yaml:"active"`

	HorizontalBlur FloatParameter `toml:"horizontal_blur" yaml:"horizontal_blur"`
	VerticalBlur   FloatParameter `toml:"vertical_blur" yaml:"vertical_blur"`

	Radius    FloatParameter `toml:"radius" yaml:"radius"`
	Intensity FloatParameter `toml:"intensity" yaml:"intensity"`
}

// VolumeSource looks up the override scope that applies to an effect.
// The boolean is false when no volume is registered for the effect.
type VolumeSource interface {
	Volume(effect string) (*Volume, bool)
}

// VolumeFunc adapts a function to the VolumeSource interface.
type VolumeFunc func(effect string) (*Volume, bool)

// Volume calls f(effect).
func (f VolumeFunc) Volume(effect string) (*Volume, bool) {
	return f(effect)
}

// StaticVolume returns a VolumeSource that reports v for every effect.
func StaticVolume(v *Volume) VolumeSource {
	return VolumeFunc(func(string) (*Volume, bool) {
		return v, v != nil
	})
}

// Validate reports the first overridden value outside its range. Values
// whose override flag is clear are not checked.
func (v *Volume) Validate() error {
	if v == nil {
		return nil
	}
	fields := []struct {
		name   string
		p      FloatParameter
		lo, hi float32
	}{
		{"horizontal_blur", v.HorizontalBlur, MinBlur, MaxBlur},
		{"vertical_blur", v.VerticalBlur, MinBlur, MaxBlur},
		{"radius", v.Radius, MinRadius, MaxRadius},
		{"intensity", v.Intensity, MinIntensity, MaxIntensity},
	}
	for _, f := range fields {
		if !f.p.Override {
			continue
		}
		if err := checkRange(f.name, f.p.Value, f.lo, f.hi); err != nil {
			return err
		}
	}
	return nil
}
