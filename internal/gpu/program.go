// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/ssao"
)

// pipelineKey selects a render pipeline of a program.
type pipelineKey struct {
	pass   int
	format gputypes.TextureFormat
}

// Program is a WGSL module with one fullscreen render pipeline per pass and
// target format. Uniform values are kept in a CPU-side block that is copied
// into a fresh uniform buffer at every blit.
type Program struct {
	name   string
	refl   *reflection
	vertex string
	passes []string

	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[pipelineKey]hal.RenderPipeline

	uniforms []byte
	keywords ssao.Keywords

	destroyed bool
}

// newProgram reflects src, then creates the shader module and layouts.
// Pipelines are created on first use.
func newProgram(device hal.Device, src ssao.ProgramSource, spirv bool) (*Program, error) {
	refl, err := reflectWGSL(src.WGSL)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", src.Name, err)
	}
	vertex, passes, err := refl.resolveEntries(src.VertexEntry, src.Passes)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", src.Name, err)
	}

	p := &Program{
		name:      src.Name,
		refl:      refl,
		vertex:    vertex,
		passes:    passes,
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
		uniforms:  make([]byte, refl.uniformSize),
		keywords:  ssao.NewKeywords(src.Keywords...),
	}

	source := hal.ShaderSource{WGSL: src.WGSL}
	if spirv {
		code, err := naga.Compile(src.WGSL)
		if err != nil {
			return nil, fmt.Errorf("program %s: compile SPIR-V: %w", src.Name, err)
		}
		source = hal.ShaderSource{SPIRV: spirvWords(code)}
	}

	p.module, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Name + "_shader",
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("program %s: create shader module: %w", src.Name, err)
	}

	p.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   src.Name + "_layout",
		Entries: refl.layoutEntries(),
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("program %s: create bind group layout: %w", src.Name, err)
	}

	p.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            src.Name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("program %s: create pipeline layout: %w", src.Name, err)
	}
	return p, nil
}

// spirvWords reinterprets little-endian SPIR-V bytes as words.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

// Name returns the program label.
func (p *Program) Name() string { return p.name }

// Passes returns the number of fragment passes.
func (p *Program) Passes() int { return len(p.passes) }

// PassEntry returns the fragment entry point of pass i.
func (p *Program) PassEntry(i int) string { return p.passes[i] }

// UniformInfo describes one member of a program's uniform block.
type UniformInfo struct {
	Name   string
	Offset uint32
	Type   string
}

// BindingInfo describes a texture, sampler or uniform buffer binding in
// group 0.
type BindingInfo struct {
	Name    string
	Binding uint32
	Kind    string
}

// Uniforms lists the uniform block members in declaration order.
func (p *Program) Uniforms() []UniformInfo {
	out := make([]UniformInfo, len(p.refl.fields))
	for i, f := range p.refl.fields {
		out[i] = UniformInfo{Name: f.name, Offset: f.offset, Type: f.kind.String()}
	}
	return out
}

// Bindings lists the group 0 bindings: the uniform block, then textures,
// then samplers.
func (p *Program) Bindings() []BindingInfo {
	var out []BindingInfo
	if p.refl.hasUniforms {
		out = append(out, BindingInfo{Name: p.refl.uniformName, Binding: p.refl.uniformBinding,
			Kind: fmt.Sprintf("uniform (%d bytes)", p.refl.uniformSize)})
	}
	for _, t := range p.refl.textures {
		out = append(out, BindingInfo{Name: t.name, Binding: t.binding, Kind: "texture " + sampleTypeName(t.sampleType)})
	}
	for _, s := range p.refl.samplers {
		kind := "sampler"
		if s.comparison {
			kind = "sampler_comparison"
		}
		out = append(out, BindingInfo{Name: s.name, Binding: s.binding, Kind: kind})
	}
	return out
}

func sampleTypeName(t gputypes.TextureSampleType) string {
	switch t {
	case gputypes.TextureSampleTypeDepth:
		return "depth"
	case gputypes.TextureSampleTypeSint:
		return "i32"
	case gputypes.TextureSampleTypeUint:
		return "u32"
	default:
		return "f32"
	}
}

// UniformID resolves a scalar member of the uniform block.
func (p *Program) UniformID(name string) (ssao.UniformID, error) {
	i := p.refl.field(name)
	if i < 0 {
		return ssao.InvalidUniform, fmt.Errorf("%s: %w", name, ssao.ErrUnknownUniform)
	}
	switch p.refl.fields[i].kind {
	case fieldFloat, fieldUint, fieldSint:
		return ssao.UniformID(i), nil
	default:
		return ssao.InvalidUniform, fmt.Errorf("%s is %s, not a scalar: %w", name, p.refl.fields[i].kind, ssao.ErrUnknownUniform)
	}
}

// SetFloat writes v into uniform id, converting to the member's type.
func (p *Program) SetFloat(id ssao.UniformID, v float32) {
	f, ok := p.scalar(id)
	if !ok {
		return
	}
	switch f.kind {
	case fieldFloat:
		p.putUint32(f.offset, math32.Float32bits(v))
	case fieldUint:
		p.putUint32(f.offset, uint32(max(v, 0)))
	case fieldSint:
		p.putUint32(f.offset, uint32(int32(v))) //nolint:gosec // two's complement is the wire format
	}
}

// SetUint writes v into uniform id, converting to the member's type.
func (p *Program) SetUint(id ssao.UniformID, v uint32) {
	f, ok := p.scalar(id)
	if !ok {
		return
	}
	if f.kind == fieldFloat {
		p.putUint32(f.offset, math32.Float32bits(float32(v)))
		return
	}
	p.putUint32(f.offset, v)
}

func (p *Program) scalar(id ssao.UniformID) (uniformField, bool) {
	if id < 0 || int(id) >= len(p.refl.fields) {
		return uniformField{}, false
	}
	return p.refl.fields[id], true
}

func (p *Program) putUint32(offset uint32, v uint32) {
	if int(offset)+4 <= len(p.uniforms) {
		binary.LittleEndian.PutUint32(p.uniforms[offset:], v)
	}
}

// EnableKeyword enables name within the program's exclusive group.
func (p *Program) EnableKeyword(name string) error {
	if err := p.keywords.Enable(name); err != nil {
		return fmt.Errorf("program %s: %w", p.name, err)
	}
	return nil
}

// EnabledKeywords lists the enabled keyword, if any.
func (p *Program) EnabledKeywords() []string { return p.keywords.Enabled() }

// uniformBlock returns a copy of the uniform block for one blit, with
// matrix members taken from globals and texel sizes from src and dst.
func (p *Program) uniformBlock(globals func(string) (f32.Mat4, bool), src, dst *Texture) []byte {
	block := append([]byte(nil), p.uniforms...)
	for _, f := range p.refl.fields {
		switch {
		case f.kind == fieldMat4:
			if m, ok := globals(f.name); ok {
				putMat4(block[f.offset:], m)
			}
		case f.kind == fieldVec2 && f.name == sourceTexelSizeMember && src != nil:
			putTexelSize(block[f.offset:], src)
		case f.kind == fieldVec2 && f.name == targetTexelSizeMember && dst != nil:
			putTexelSize(block[f.offset:], dst)
		}
	}
	return block
}

// putMat4 stores a row-major matrix in WGSL's column-major layout.
func putMat4(b []byte, m f32.Mat4) {
	for c := range 4 {
		for r := range 4 {
			binary.LittleEndian.PutUint32(b[c*16+r*4:], math32.Float32bits(m[r*4+c]))
		}
	}
}

func putTexelSize(b []byte, t *Texture) {
	binary.LittleEndian.PutUint32(b[0:], math32.Float32bits(1/float32(max(t.width, 1))))
	binary.LittleEndian.PutUint32(b[4:], math32.Float32bits(1/float32(max(t.height, 1))))
}

// pipeline returns the render pipeline of pass for the target format,
// creating it on first use.
func (p *Program) pipeline(device hal.Device, pass int, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if pass < 0 || pass >= len(p.passes) {
		return nil, fmt.Errorf("program %s: pass %d of %d: %w", p.name, pass, len(p.passes), ssao.ErrOutOfRange)
	}
	key := pipelineKey{pass: pass, format: format}
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}

	pl, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_%s_%v", p.name, p.passes[pass], format),
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: p.vertex,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: p.passes[pass],
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("program %s: create pipeline %s: %w", p.name, p.passes[pass], err)
	}
	p.pipelines[key] = pl
	slogger().Debug("gpu: pipeline created", "program", p.name, "pass", p.passes[pass], "format", format)
	return pl, nil
}

// destroy releases every GPU object of the program. Safe to call multiple
// times.
func (p *Program) destroy(device hal.Device) {
	if p.destroyed {
		return
	}
	for key, pl := range p.pipelines {
		device.DestroyRenderPipeline(pl)
		delete(p.pipelines, key)
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
		p.module = nil
	}
	p.destroyed = true
}
