package ssao

import (
	"fmt"
	"log/slog"

	"golang.org/x/image/math/f32"
)

// Entry points of the binding contract.
const (
	VertexEntry         = "vs_main"
	OcclusionEntry      = "fs_main"
	HorizontalBlurEntry = "fs_horizontal"
	VerticalBlurEntry   = "fs_vertical"
)

// State is the lifecycle state of an Effect.
type State uint8

// Effect states. Disposed is terminal.
const (
	StateUninitialized State = iota
	StateReady
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	case StateDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Sources are the two programs an Effect needs.
type Sources struct {
	Occlusion ProgramSource
	Blur      ProgramSource
}

// DefaultSources wraps WGSL sources written against the standard entry
// points: vs_main for both programs, fs_main for occlusion, and
// fs_horizontal/fs_vertical for the blur passes. The occlusion program gets
// the quality keyword group.
func DefaultSources(occlusionWGSL, blurWGSL string) Sources {
	return Sources{
		Occlusion: ProgramSource{
			Name:        "ssao_occlusion",
			WGSL:        occlusionWGSL,
			VertexEntry: VertexEntry,
			Passes:      []string{OcclusionEntry},
			Keywords:    QualityKeywords(),
		},
		Blur: ProgramSource{
			Name:        "ssao_blur",
			WGSL:        blurWGSL,
			VertexEntry: VertexEntry,
			Passes:      []string{HorizontalBlurEntry, VerticalBlurEntry},
		},
	}
}

// Stats counts frames since the effect was created.
type Stats struct {
	// Executed counts frames whose passes were submitted.
	Executed int
	// Skipped counts frames dropped for missing buffers or inputs.
	Skipped int
	// Allocations counts buffer textures created.
	Allocations int
}

// Effect is the SSAO stage. The host drives it through Setup, then
// Configure and Execute once per frame, and finally Dispose.
//
// An Effect is not safe for concurrent use; all calls are expected on the
// host's render thread. Per-frame failures are logged and never returned:
// the frame simply produces no occlusion texture.
type Effect struct {
	device Device
	opts   options

	state    State
	settings Settings
	blur     BlurSettings

	occlusion Program
	blurProg  Program
	binder    *Binder
	seq       Sequencer
	alloc     *Allocator

	bufs      Buffers
	allocErr  error
	frameErr  error
	published bool

	params Params
	stats  Stats
	noise  []f32.Vec3
}

// New creates an Effect that allocates on device. Nothing is created on the
// device until Setup.
func New(device Device, opts ...Option) *Effect {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Effect{
		device:   device,
		opts:     o,
		settings: DefaultSettings(),
		blur:     DefaultBlurSettings(),
		alloc:    NewAllocator(device),
		noise:    Noise(NoiseSize, NoiseSeed),
	}
	if o.settings != nil {
		e.SetSettings(*o.settings)
	}
	if o.blur != nil {
		e.SetBlurSettings(*o.blur)
	}
	return e
}

func (e *Effect) logger() *slog.Logger {
	if e.opts.logger != nil {
		return e.opts.logger
	}
	return Logger()
}

// Setup creates both programs and resolves their uniforms. A device that
// implements NoiseUploader also receives the noise tile. On failure the
// effect logs the error once and stays Uninitialized, so Configure and
// Execute do nothing; a later Setup may retry. Setup on a Ready effect is
// a no-op.
func (e *Effect) Setup(src Sources) error {
	switch e.state {
	case StateDisposed:
		return ErrDisposed
	case StateReady:
		return nil
	}

	if err := e.setup(src); err != nil {
		e.logger().Error("ssao: setup failed, effect disabled", "effect", e.opts.name, "err", err)
		return err
	}

	e.state = StateReady
	e.logger().Info("ssao: effect ready", "effect", e.opts.name,
		"occlusion", e.occlusion.Name(), "blur", e.blurProg.Name())
	return nil
}

func (e *Effect) setup(src Sources) error {
	if src.Occlusion.WGSL == "" {
		return fmt.Errorf("ssao: occlusion: %w", ErrMissingProgram)
	}
	if src.Blur.WGSL == "" {
		return fmt.Errorf("ssao: blur: %w", ErrMissingProgram)
	}

	occlusion, err := e.device.CreateProgram(src.Occlusion)
	if err != nil {
		return fmt.Errorf("ssao: create occlusion program: %w", err)
	}
	blur, err := e.device.CreateProgram(src.Blur)
	if err != nil {
		e.device.DestroyProgram(occlusion)
		return fmt.Errorf("ssao: create blur program: %w", err)
	}

	binder, err := newProgramBinder(occlusion, blur)
	if err != nil {
		e.device.DestroyProgram(blur)
		e.device.DestroyProgram(occlusion)
		return err
	}

	if up, ok := e.device.(NoiseUploader); ok {
		if _, err := up.UploadNoise(e.noise); err != nil {
			e.device.DestroyProgram(blur)
			e.device.DestroyProgram(occlusion)
			return fmt.Errorf("ssao: upload noise: %w", err)
		}
	}

	e.occlusion = occlusion
	e.blurProg = blur
	e.binder = binder
	e.seq = Sequencer{Occlusion: occlusion, Blur: blur}
	return nil
}

func newProgramBinder(occlusion, blur Program) (*Binder, error) {
	if occlusion.Passes() < 1 {
		return nil, fmt.Errorf("ssao: program %s has no fragment pass: %w", occlusion.Name(), ErrMissingProgram)
	}
	if blur.Passes() < 2 {
		return nil, fmt.Errorf("ssao: program %s needs 2 passes, has %d: %w", blur.Name(), blur.Passes(), ErrMissingProgram)
	}
	return NewBinder(occlusion, blur)
}

// Configure sizes the buffers for the camera target of the coming frame.
// When allocation fails the next Execute is skipped; the failure is logged
// once until a later Configure succeeds.
func (e *Effect) Configure(target TextureDescriptor) {
	if e.state != StateReady {
		return
	}

	bufs, err := e.alloc.EnsureAllocated(target, e.settings.Downsample)
	e.stats.Allocations = e.alloc.Allocations()
	if err != nil {
		if e.allocErr == nil {
			e.logger().Warn("ssao: buffers unavailable, skipping frames", "effect", e.opts.name,
				"width", target.Width, "height", target.Height, "err", err)
		}
		e.allocErr = err
		e.bufs = Buffers{}
		return
	}

	if e.allocErr != nil {
		e.logger().Info("ssao: buffers recovered", "effect", e.opts.name,
			"width", target.Width, "height", target.Height)
		e.allocErr = nil
	}
	e.bufs = bufs
	occ, _ := e.alloc.Descriptors()
	e.logger().Debug("ssao: configured", "effect", e.opts.name, "target", target.String(), "occlusion", occ.String())
}

// Execute resolves the frame's parameters, binds them and records the three
// passes. Frames without valid buffers or inputs are skipped.
func (e *Effect) Execute(in FrameInputs) {
	if e.state != StateReady {
		return
	}
	if !e.bufs.Valid() {
		e.stats.Skipped++
		e.withdraw(in.Context)
		return
	}

	var scope *Volume
	if e.opts.volumes != nil {
		if v, ok := e.opts.volumes.Volume(e.opts.name); ok {
			scope = v
		}
	}
	e.params = Resolve(e.settings, e.blur, scope)

	err := e.binder.Bind(e.params)
	if err == nil {
		err = e.seq.Run(in, e.bufs)
	}
	if err != nil {
		e.stats.Skipped++
		if e.frameErr == nil || e.frameErr.Error() != err.Error() {
			e.logger().Warn("ssao: frame skipped", "effect", e.opts.name, "err", err)
		}
		e.frameErr = err
		e.withdraw(in.Context)
		return
	}

	e.frameErr = nil
	e.published = true
	e.stats.Executed++
}

// withdraw removes the occlusion texture a previous frame published, so
// later passes treat a skipped frame as unoccluded.
func (e *Effect) withdraw(ctx RenderContext) {
	if !e.published || ctx == nil {
		return
	}
	if err := e.seq.Withdraw(ctx); err != nil {
		e.logger().Warn("ssao: withdraw occlusion texture failed", "effect", e.opts.name, "err", err)
		return
	}
	e.published = false
}

// Dispose releases both programs and both buffers. It is idempotent and may
// be called in any state; the effect is Disposed afterwards.
func (e *Effect) Dispose() {
	if e.state == StateDisposed {
		return
	}
	e.alloc.Release()
	if e.occlusion != nil {
		e.device.DestroyProgram(e.occlusion)
		e.occlusion = nil
	}
	if e.blurProg != nil {
		e.device.DestroyProgram(e.blurProg)
		e.blurProg = nil
	}
	e.binder = nil
	e.seq = Sequencer{}
	e.bufs = Buffers{}
	e.published = false
	e.state = StateDisposed
	e.logger().Debug("ssao: disposed", "effect", e.opts.name)
}

// SetSettings replaces the occlusion settings from the next frame on.
// Out-of-range fields are clamped with a warning.
func (e *Effect) SetSettings(s Settings) {
	c := s.Clamp()
	if err := s.Validate(); err != nil {
		e.logger().Warn("ssao: settings clamped", "effect", e.opts.name, "err", err)
	}
	e.settings = c
}

// SetBlurSettings replaces the blur strengths from the next frame on.
// Out-of-range fields are clamped with a warning.
func (e *Effect) SetBlurSettings(b BlurSettings) {
	c := b.Clamp()
	if err := b.Validate(); err != nil {
		e.logger().Warn("ssao: blur settings clamped", "effect", e.opts.name, "err", err)
	}
	e.blur = c
}

// Settings returns the current occlusion settings.
func (e *Effect) Settings() Settings { return e.settings }

// BlurSettings returns the current blur strengths.
func (e *Effect) BlurSettings() BlurSettings { return e.blur }

// State returns the lifecycle state.
func (e *Effect) State() State { return e.state }

// Params returns the parameters resolved by the last Execute.
func (e *Effect) Params() Params { return e.params }

// Stats returns the frame counters.
func (e *Effect) Stats() Stats { return e.stats }

// Noise returns the rotation noise tile generated for this effect, for hosts
// whose device does not implement NoiseUploader.
func (e *Effect) Noise() []f32.Vec3 { return e.noise }
