package ssao

import "fmt"

// Uniform names of the binding contract.
const (
	UniformRadius         = "radius"
	UniformIntensity      = "intensity"
	UniformBias           = "bias"
	UniformMaxDepth       = "max_depth"
	UniformQuality        = "quality"
	UniformSampleCount    = "sample_count"
	UniformHorizontalBlur = "horizontal_blur"
	UniformVerticalBlur   = "vertical_blur"
)

// Binder writes Params into the occlusion and blur programs. Uniform IDs
// are resolved once by NewBinder.
type Binder struct {
	occlusion Program
	blur      Program

	radius      UniformID
	intensity   UniformID
	bias        UniformID
	maxDepth    UniformID
	quality     UniformID // optional
	sampleCount UniformID // optional

	horizontalBlur UniformID
	verticalBlur   UniformID
}

// NewBinder resolves the uniform IDs of both programs. It fails when a
// required uniform is not declared; quality and sample_count are optional.
func NewBinder(occlusion, blur Program) (*Binder, error) {
	b := &Binder{occlusion: occlusion, blur: blur}

	required := []struct {
		p    Program
		name string
		id   *UniformID
	}{
		{occlusion, UniformRadius, &b.radius},
		{occlusion, UniformIntensity, &b.intensity},
		{occlusion, UniformBias, &b.bias},
		{occlusion, UniformMaxDepth, &b.maxDepth},
		{blur, UniformHorizontalBlur, &b.horizontalBlur},
		{blur, UniformVerticalBlur, &b.verticalBlur},
	}
	for _, r := range required {
		id, err := r.p.UniformID(r.name)
		if err != nil {
			return nil, fmt.Errorf("ssao: program %s: %w", r.p.Name(), err)
		}
		*r.id = id
	}

	b.quality = optionalUniform(occlusion, UniformQuality)
	b.sampleCount = optionalUniform(occlusion, UniformSampleCount)
	return b, nil
}

func optionalUniform(p Program, name string) UniformID {
	id, err := p.UniformID(name)
	if err != nil {
		return InvalidUniform
	}
	return id
}

// Bind writes p into the programs. Exactly one quality keyword is active on
// the occlusion program afterwards.
func (b *Binder) Bind(p Params) error {
	b.occlusion.SetFloat(b.radius, p.Radius)
	b.occlusion.SetFloat(b.intensity, p.Intensity)
	b.occlusion.SetFloat(b.bias, p.Bias)
	b.occlusion.SetFloat(b.maxDepth, p.MaxDepth)
	if b.quality != InvalidUniform {
		b.occlusion.SetUint(b.quality, uint32(p.Quality))
	}
	if b.sampleCount != InvalidUniform {
		b.occlusion.SetUint(b.sampleCount, uint32(p.Quality.SampleCount()))
	}
	if err := b.occlusion.EnableKeyword(p.Quality.Keyword()); err != nil {
		return fmt.Errorf("ssao: program %s: %w", b.occlusion.Name(), err)
	}

	b.blur.SetFloat(b.horizontalBlur, p.BoundHorizontalBlur())
	b.blur.SetFloat(b.verticalBlur, p.BoundVerticalBlur())
	return nil
}
