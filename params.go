package ssao

// BlurScale converts an authored blur strength in [0, 1] into the texel
// offset scale the blur program expects.
const BlurScale = 0.05

// Params is the effective parameter set for one frame. It is derived from
// Settings, BlurSettings and an optional Volume and is never mutated after
// Resolve returns it.
type Params struct {
	Downsample int
	Radius     float32
	Quality    Quality
	Intensity  float32
	Bias       float32
	MaxDepth   float32

	// HorizontalBlur and VerticalBlur are the resolved strengths before BlurScale.
	HorizontalBlur float32
	VerticalBlur   float32
}

// BoundHorizontalBlur returns the horizontal strength as written to the blur program.
func (p Params) BoundHorizontalBlur() float32 {
	return p.HorizontalBlur * BlurScale
}

// BoundVerticalBlur returns the vertical strength as written to the blur program.
func (p Params) BoundVerticalBlur() float32 {
	return p.VerticalBlur * BlurScale
}

// Resolve merges base settings, blur settings and an optional override scope.
// For every overridable field the scope's value wins when the scope is active
// and the field's override flag is set. Results are clamped into range.
//
// Resolve is pure: identical inputs always produce identical Params.
func Resolve(base Settings, blur BlurSettings, scope *Volume) Params {
	base = base.Clamp()
	blur = blur.Clamp()

	p := Params{
		Downsample:     base.Downsample,
		Radius:         base.Radius,
		Quality:        base.Quality,
		Intensity:      base.Intensity,
		Bias:           base.Bias,
		MaxDepth:       base.MaxDepth,
		HorizontalBlur: blur.Horizontal,
		VerticalBlur:   blur.Vertical,
	}
	if scope == nil || !scope.Active {
		return p
	}

	p.HorizontalBlur = clampFloat(scope.HorizontalBlur.Resolve(p.HorizontalBlur), MinBlur, MaxBlur, p.HorizontalBlur)
	p.VerticalBlur = clampFloat(scope.VerticalBlur.Resolve(p.VerticalBlur), MinBlur, MaxBlur, p.VerticalBlur)
	p.Radius = clampFloat(scope.Radius.Resolve(p.Radius), MinRadius, MaxRadius, p.Radius)
	p.Intensity = clampFloat(scope.Intensity.Resolve(p.Intensity), MinIntensity, MaxIntensity, p.Intensity)
	return p
}
