// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Reflection errors.
var (
	// ErrUnsupportedBinding is returned for resources outside group 0 or of
	// a kind the fullscreen pass cannot bind (storage buffers, storage
	// textures, push constants).
	ErrUnsupportedBinding = errors.New("gpu: unsupported shader binding")

	// ErrMissingEntryPoint is returned when a requested entry point is not
	// declared with the expected stage.
	ErrMissingEntryPoint = errors.New("gpu: missing entry point")
)

// SourceTextureName is the texture variable bound to the blit source.
const SourceTextureName = "source"

// Uniform members filled in per blit.
const (
	sourceTexelSizeMember = "source_texel_size"
	targetTexelSizeMember = "target_texel_size"
)

// fieldKind is the scalar layout of a uniform member.
type fieldKind uint8

const (
	fieldOther fieldKind = iota
	fieldFloat
	fieldUint
	fieldSint
	fieldVec2
	fieldMat4
)

func (k fieldKind) String() string {
	switch k {
	case fieldFloat:
		return "f32"
	case fieldUint:
		return "u32"
	case fieldSint:
		return "i32"
	case fieldVec2:
		return "vec2<f32>"
	case fieldMat4:
		return "mat4x4<f32>"
	default:
		return "other"
	}
}

// uniformField is one member of the uniform block.
type uniformField struct {
	name   string
	offset uint32
	kind   fieldKind
}

// textureSlot is a sampled texture variable.
type textureSlot struct {
	name       string
	binding    uint32
	sampleType gputypes.TextureSampleType
}

// samplerSlot is a sampler variable.
type samplerSlot struct {
	name       string
	binding    uint32
	comparison bool
}

// reflection is the binding interface of a WGSL module, as seen by a
// fullscreen pass: one optional uniform block plus textures and samplers,
// all in group 0.
type reflection struct {
	vertexEntries   []string
	fragmentEntries []string

	hasUniforms    bool
	uniformName    string
	uniformBinding uint32
	uniformSize    uint32
	fields         []uniformField

	textures []textureSlot
	samplers []samplerSlot
}

// reflectWGSL parses, lowers and validates src, then extracts its bindings.
func reflectWGSL(src string) (*reflection, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, fmt.Errorf("lower: %w", err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("validate: %w", &verrs[0])
	}
	return reflectModule(module)
}

func reflectModule(m *ir.Module) (*reflection, error) {
	r := &reflection{}
	for _, ep := range m.EntryPoints {
		switch ep.Stage {
		case ir.StageVertex:
			r.vertexEntries = append(r.vertexEntries, ep.Name)
		case ir.StageFragment:
			r.fragmentEntries = append(r.fragmentEntries, ep.Name)
		}
	}

	for _, gv := range m.GlobalVariables {
		switch gv.Space {
		case ir.SpaceFunction, ir.SpacePrivate, ir.SpaceWorkGroup:
			continue
		case ir.SpaceUniform:
			if err := r.addUniformBlock(m, gv); err != nil {
				return nil, err
			}
		case ir.SpaceHandle:
			if err := r.addHandle(m, gv); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s: address space %d: %w", gv.Name, gv.Space, ErrUnsupportedBinding)
		}
	}
	return r, nil
}

func checkGroup(gv ir.GlobalVariable) error {
	if gv.Binding == nil {
		return fmt.Errorf("%s: no @binding: %w", gv.Name, ErrUnsupportedBinding)
	}
	if gv.Binding.Group != 0 {
		return fmt.Errorf("%s: @group(%d): %w", gv.Name, gv.Binding.Group, ErrUnsupportedBinding)
	}
	return nil
}

func (r *reflection) addUniformBlock(m *ir.Module, gv ir.GlobalVariable) error {
	if err := checkGroup(gv); err != nil {
		return err
	}
	if r.hasUniforms {
		return fmt.Errorf("%s: second uniform block after %s: %w", gv.Name, r.uniformName, ErrUnsupportedBinding)
	}
	st, ok := m.Types[gv.Type].Inner.(ir.StructType)
	if !ok {
		return fmt.Errorf("%s: uniform is not a struct: %w", gv.Name, ErrUnsupportedBinding)
	}

	r.hasUniforms = true
	r.uniformName = gv.Name
	r.uniformBinding = gv.Binding.Binding
	r.uniformSize = align16(st.Span)
	for _, mem := range st.Members {
		r.fields = append(r.fields, uniformField{
			name:   mem.Name,
			offset: mem.Offset,
			kind:   kindOf(m, mem.Type),
		})
	}
	return nil
}

func (r *reflection) addHandle(m *ir.Module, gv ir.GlobalVariable) error {
	if err := checkGroup(gv); err != nil {
		return err
	}
	switch t := m.Types[gv.Type].Inner.(type) {
	case ir.ImageType:
		st, err := sampleType(t)
		if err != nil {
			return fmt.Errorf("%s: %w", gv.Name, err)
		}
		r.textures = append(r.textures, textureSlot{name: gv.Name, binding: gv.Binding.Binding, sampleType: st})
	case ir.SamplerType:
		r.samplers = append(r.samplers, samplerSlot{name: gv.Name, binding: gv.Binding.Binding, comparison: t.Comparison})
	default:
		return fmt.Errorf("%s: handle type %T: %w", gv.Name, t, ErrUnsupportedBinding)
	}
	return nil
}

func sampleType(t ir.ImageType) (gputypes.TextureSampleType, error) {
	if t.Dim != ir.Dim2D || t.Arrayed || t.Multisampled {
		return 0, fmt.Errorf("only single-sampled 2D textures: %w", ErrUnsupportedBinding)
	}
	switch t.Class {
	case ir.ImageClassDepth:
		return gputypes.TextureSampleTypeDepth, nil
	case ir.ImageClassSampled:
		switch t.SampledKind {
		case ir.ScalarSint:
			return gputypes.TextureSampleTypeSint, nil
		case ir.ScalarUint:
			return gputypes.TextureSampleTypeUint, nil
		default:
			return gputypes.TextureSampleTypeFloat, nil
		}
	default:
		return 0, fmt.Errorf("image class %d: %w", t.Class, ErrUnsupportedBinding)
	}
}

func kindOf(m *ir.Module, h ir.TypeHandle) fieldKind {
	switch t := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		if t.Width != 4 {
			return fieldOther
		}
		switch t.Kind {
		case ir.ScalarFloat:
			return fieldFloat
		case ir.ScalarUint:
			return fieldUint
		case ir.ScalarSint:
			return fieldSint
		}
	case ir.VectorType:
		if t.Size == ir.Vec2 && t.Scalar.Kind == ir.ScalarFloat && t.Scalar.Width == 4 {
			return fieldVec2
		}
	case ir.MatrixType:
		if t.Columns == ir.Vec4 && t.Rows == ir.Vec4 && t.Scalar.Kind == ir.ScalarFloat && t.Scalar.Width == 4 {
			return fieldMat4
		}
	}
	return fieldOther
}

func align16(n uint32) uint32 {
	return (n + 15) &^ 15
}

// field returns the index of the named uniform member, or -1.
func (r *reflection) field(name string) int {
	for i, f := range r.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

// hasFragment reports whether name is a fragment entry point.
func (r *reflection) hasFragment(name string) bool {
	for _, n := range r.fragmentEntries {
		if n == name {
			return true
		}
	}
	return false
}

// resolveEntries picks the vertex entry and fragment passes of a program.
// Empty selections fall back to the first vertex entry point and every
// fragment entry point in declaration order.
func (r *reflection) resolveEntries(vertex string, passes []string) (string, []string, error) {
	switch {
	case vertex == "" && len(r.vertexEntries) == 0:
		return "", nil, fmt.Errorf("no vertex entry point: %w", ErrMissingEntryPoint)
	case vertex == "":
		vertex = r.vertexEntries[0]
	default:
		found := false
		for _, n := range r.vertexEntries {
			found = found || n == vertex
		}
		if !found {
			return "", nil, fmt.Errorf("vertex %q: %w", vertex, ErrMissingEntryPoint)
		}
	}

	if len(passes) == 0 {
		if len(r.fragmentEntries) == 0 {
			return "", nil, fmt.Errorf("no fragment entry point: %w", ErrMissingEntryPoint)
		}
		return vertex, append([]string(nil), r.fragmentEntries...), nil
	}
	for _, p := range passes {
		if !r.hasFragment(p) {
			return "", nil, fmt.Errorf("fragment %q: %w", p, ErrMissingEntryPoint)
		}
	}
	return vertex, append([]string(nil), passes...), nil
}

// layoutEntries builds the group 0 layout: uniforms, textures, samplers.
func (r *reflection) layoutEntries() []gputypes.BindGroupLayoutEntry {
	const vis = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment

	var entries []gputypes.BindGroupLayoutEntry
	if r.hasUniforms {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    r.uniformBinding,
			Visibility: vis,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	for _, t := range r.textures {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    t.binding,
			Visibility: vis,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    t.sampleType,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for _, s := range r.samplers {
		typ := gputypes.SamplerBindingTypeFiltering
		if s.comparison {
			typ = gputypes.SamplerBindingTypeComparison
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    s.binding,
			Visibility: vis,
			Sampler:    &gputypes.SamplerBindingLayout{Type: typ},
		})
	}
	return entries
}
