package ssao

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Test doubles for the host capability interfaces. They record every call so
// tests can assert on ordering and ownership.

var errFake = errors.New("fake failure")

type fakeTexture struct {
	id   int
	desc TextureDescriptor
}

func (t *fakeTexture) Width() int                      { return t.desc.Width }
func (t *fakeTexture) Height() int                     { return t.desc.Height }
func (t *fakeTexture) Format() gputypes.TextureFormat { return t.desc.Format }

var allUniforms = []string{
	UniformRadius, UniformIntensity, UniformBias, UniformMaxDepth,
	UniformQuality, UniformSampleCount, UniformHorizontalBlur, UniformVerticalBlur,
}

type fakeProgram struct {
	name     string
	passes   int
	ids      map[string]UniformID
	floats   map[UniformID]float32
	uints    map[UniformID]uint32
	keywords Keywords
}

func newFakeProgram(name string, passes int, keywords []string, uniforms ...string) *fakeProgram {
	p := &fakeProgram{
		name:     name,
		passes:   passes,
		ids:      make(map[string]UniformID),
		floats:   make(map[UniformID]float32),
		uints:    make(map[UniformID]uint32),
		keywords: NewKeywords(keywords...),
	}
	for i, u := range uniforms {
		p.ids[u] = UniformID(i)
	}
	return p
}

func (p *fakeProgram) Name() string { return p.name }
func (p *fakeProgram) Passes() int  { return p.passes }

func (p *fakeProgram) UniformID(name string) (UniformID, error) {
	id, ok := p.ids[name]
	if !ok {
		return InvalidUniform, fmt.Errorf("%s: %w", name, ErrUnknownUniform)
	}
	return id, nil
}

func (p *fakeProgram) SetFloat(id UniformID, v float32) { p.floats[id] = v }
func (p *fakeProgram) SetUint(id UniformID, v uint32)   { p.uints[id] = v }

func (p *fakeProgram) EnableKeyword(name string) error { return p.keywords.Enable(name) }
func (p *fakeProgram) EnabledKeywords() []string       { return p.keywords.Enabled() }

// float returns the value last written to the named uniform.
func (p *fakeProgram) float(name string) float32 { return p.floats[p.ids[name]] }
func (p *fakeProgram) uint(name string) uint32   { return p.uints[p.ids[name]] }

type fakeDevice struct {
	nextID int

	created   []TextureDescriptor
	destroyed []*fakeTexture
	live      map[*fakeTexture]bool

	programs          map[string]*fakeProgram
	destroyedPrograms []string

	// uniforms overrides the uniforms declared by a program, by name.
	uniforms map[string][]string

	failProgram  string
	failTextures bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		live:     make(map[*fakeTexture]bool),
		programs: make(map[string]*fakeProgram),
		uniforms: make(map[string][]string),
	}
}

func (d *fakeDevice) CreateProgram(src ProgramSource) (Program, error) {
	if src.Name == d.failProgram {
		return nil, fmt.Errorf("compile %s: %w", src.Name, errFake)
	}
	uniforms, ok := d.uniforms[src.Name]
	if !ok {
		uniforms = allUniforms
	}
	p := newFakeProgram(src.Name, len(src.Passes), src.Keywords, uniforms...)
	d.programs[src.Name] = p
	return p, nil
}

func (d *fakeDevice) DestroyProgram(p Program) {
	d.destroyedPrograms = append(d.destroyedPrograms, p.Name())
}

func (d *fakeDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if d.failTextures {
		return nil, errFake
	}
	d.nextID++
	t := &fakeTexture{id: d.nextID, desc: desc}
	d.created = append(d.created, desc)
	d.live[t] = true
	return t, nil
}

// noiseDevice is a fakeDevice that also accepts the noise tile.
type noiseDevice struct {
	*fakeDevice
	noise   []f32.Vec3
	failErr error
}

func (d *noiseDevice) UploadNoise(noise []f32.Vec3) (Texture, error) {
	if d.failErr != nil {
		return nil, d.failErr
	}
	d.noise = noise
	return &fakeTexture{id: -3, desc: TextureDescriptor{Width: NoiseSize, Height: NoiseSize}}, nil
}

func (d *fakeDevice) DestroyTexture(t Texture) {
	ft := t.(*fakeTexture)
	d.destroyed = append(d.destroyed, ft)
	delete(d.live, ft)
}

// op is one recorded command.
type op struct {
	kind    string // "matrix", "texture" or "blit"
	name    string
	src     Texture
	dst     Texture
	program string
	pass    int
}

type fakeRecorder struct {
	ops       []op
	discarded bool
	failBlit  int // index of the blit to fail, -1 for none
	blits     int
}

func (r *fakeRecorder) SetGlobalMatrix(name string, _ f32.Mat4) {
	r.ops = append(r.ops, op{kind: "matrix", name: name})
}

func (r *fakeRecorder) SetGlobalTexture(name string, t Texture) {
	r.ops = append(r.ops, op{kind: "texture", name: name, src: t})
}

func (r *fakeRecorder) Blit(src, dst Texture, p Program, pass int) error {
	if r.blits == r.failBlit {
		return errFake
	}
	r.blits++
	r.ops = append(r.ops, op{kind: "blit", src: src, dst: dst, program: p.Name(), pass: pass})
	return nil
}

func (r *fakeRecorder) Discard() { r.discarded = true }

type fakeContext struct {
	recorders []*fakeRecorder
	submitted []*fakeRecorder
	globals   map[string]Texture
	failBlit  int
}

func newFakeContext() *fakeContext {
	return &fakeContext{globals: make(map[string]Texture), failBlit: -1}
}

func (c *fakeContext) BeginCommands(string) (CommandRecorder, error) {
	r := &fakeRecorder{failBlit: c.failBlit}
	c.recorders = append(c.recorders, r)
	return r, nil
}

func (c *fakeContext) Submit(rec CommandRecorder) error {
	r := rec.(*fakeRecorder)
	c.submitted = append(c.submitted, r)
	for _, o := range r.ops {
		if o.kind == "texture" {
			if o.src == nil {
				delete(c.globals, o.name)
				continue
			}
			c.globals[o.name] = o.src
		}
	}
	return nil
}

// blits returns the blit ops of every submitted recorder.
func (c *fakeContext) blits() []op {
	var out []op
	for _, r := range c.submitted {
		for _, o := range r.ops {
			if o.kind == "blit" {
				out = append(out, o)
			}
		}
	}
	return out
}

func frameInputs(ctx RenderContext) FrameInputs {
	depth := &fakeTexture{id: -1, desc: TextureDescriptor{Format: gputypes.TextureFormatDepth24PlusStencil8, Width: 1920, Height: 1080}}
	normals := &fakeTexture{id: -2, desc: TextureDescriptor{Format: gputypes.TextureFormatRGBA8Unorm, Width: 1920, Height: 1080}}
	return FrameInputs{
		Context: ctx,
		Depth:   depth,
		GBuffer: GBufferFunc(func(i int) Texture {
			if i == NormalsChannel {
				return normals
			}
			return nil
		}),
		Camera: Camera{Projection: Identity(), WorldToCamera: Identity()},
	}
}

func target(w, h int) TextureDescriptor {
	return TextureDescriptor{
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Width:         w,
		Height:        h,
		MipLevelCount: 1,
		SampleCount:   4,
		DepthBits:     24,
	}
}
