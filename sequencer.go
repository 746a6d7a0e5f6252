package ssao

import "fmt"

// Pass indices of the blur program.
const (
	PassHorizontal = 0
	PassVertical   = 1
)

// Sequencer records the three ordered passes of a frame:
//
//	occlusion:  globals   -> occlusion buffer
//	horizontal: occlusion -> blur buffer
//	vertical:   blur      -> occlusion buffer
//
// and publishes the occlusion buffer as GlobalOcclusionTexture.
type Sequencer struct {
	Occlusion Program
	Blur      Program
}

// Run records and submits one frame. Nothing is published unless every pass
// was recorded and the submission succeeded.
func (s *Sequencer) Run(in FrameInputs, bufs Buffers) error {
	if in.Context == nil || in.Depth == nil || in.GBuffer == nil {
		return fmt.Errorf("ssao: context, depth and G-buffer are required: %w", ErrMissingInput)
	}
	normals := in.GBuffer.GBufferChannel(NormalsChannel)
	if normals == nil {
		return fmt.Errorf("ssao: G-buffer channel %d: %w", NormalsChannel, ErrMissingInput)
	}
	if !bufs.Valid() {
		return fmt.Errorf("ssao: buffers not allocated: %w", ErrInvalidDescriptor)
	}

	rec, err := in.Context.BeginCommands(EffectName)
	if err != nil {
		return fmt.Errorf("ssao: begin commands: %w", err)
	}

	rec.SetGlobalMatrix(GlobalViewProjection, ViewProjection(in.Camera))
	rec.SetGlobalTexture(GlobalDepthTexture, in.Depth)
	rec.SetGlobalTexture(GlobalNormalsTexture, normals)

	passes := []struct {
		name     string
		src, dst Texture
		program  Program
		pass     int
	}{
		{"occlusion", nil, bufs.Occlusion, s.Occlusion, 0},
		{"horizontal blur", bufs.Occlusion, bufs.Blur, s.Blur, PassHorizontal},
		{"vertical blur", bufs.Blur, bufs.Occlusion, s.Blur, PassVertical},
	}
	for _, p := range passes {
		if err := rec.Blit(p.src, p.dst, p.program, p.pass); err != nil {
			rec.Discard()
			return fmt.Errorf("ssao: %s pass: %w", p.name, err)
		}
	}

	rec.SetGlobalTexture(GlobalOcclusionTexture, bufs.Occlusion)

	if err := in.Context.Submit(rec); err != nil {
		return fmt.Errorf("ssao: submit: %w", err)
	}
	return nil
}

// Withdraw records and submits the removal of GlobalOcclusionTexture.
func (s *Sequencer) Withdraw(ctx RenderContext) error {
	rec, err := ctx.BeginCommands(EffectName + "_withdraw")
	if err != nil {
		return fmt.Errorf("ssao: begin commands: %w", err)
	}
	rec.SetGlobalTexture(GlobalOcclusionTexture, nil)
	if err := ctx.Submit(rec); err != nil {
		return fmt.Errorf("ssao: submit: %w", err)
	}
	return nil
}
