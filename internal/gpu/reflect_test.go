// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/ssao/internal/shaders"
)

func TestReflectOcclusion(t *testing.T) {
	r, err := reflectWGSL(shaders.Occlusion)
	if err != nil {
		t.Fatalf("reflectWGSL() error = %v", err)
	}

	if !slices.Equal(r.vertexEntries, []string{"vs_main"}) {
		t.Errorf("vertexEntries = %v", r.vertexEntries)
	}
	if !slices.Equal(r.fragmentEntries, []string{"fs_main"}) {
		t.Errorf("fragmentEntries = %v", r.fragmentEntries)
	}
	if !r.hasUniforms || r.uniformName != "params" || r.uniformBinding != 0 {
		t.Errorf("uniform block = %v %q @%d", r.hasUniforms, r.uniformName, r.uniformBinding)
	}
	if r.uniformSize != 112 {
		t.Errorf("uniformSize = %d, want 112", r.uniformSize)
	}

	want := []uniformField{
		{"ssao_view_projection", 0, fieldMat4},
		{"source_texel_size", 64, fieldVec2},
		{"target_texel_size", 72, fieldVec2},
		{"radius", 80, fieldFloat},
		{"intensity", 84, fieldFloat},
		{"bias", 88, fieldFloat},
		{"max_depth", 92, fieldFloat},
		{"quality", 96, fieldUint},
		{"sample_count", 100, fieldUint},
	}
	if !slices.Equal(r.fields, want) {
		t.Errorf("fields =\n%v\nwant\n%v", r.fields, want)
	}

	wantTex := []textureSlot{
		{"camera_depth_texture", 1, gputypes.TextureSampleTypeDepth},
		{"gbuffer_normals", 2, gputypes.TextureSampleTypeFloat},
		{"ssao_noise_texture", 3, gputypes.TextureSampleTypeFloat},
	}
	if !slices.Equal(r.textures, wantTex) {
		t.Errorf("textures = %v, want %v", r.textures, wantTex)
	}
	if !slices.Equal(r.samplers, []samplerSlot{{"linear_sampler", 4, false}}) {
		t.Errorf("samplers = %v", r.samplers)
	}
}

func TestReflectBlur(t *testing.T) {
	r, err := reflectWGSL(shaders.Blur)
	if err != nil {
		t.Fatalf("reflectWGSL() error = %v", err)
	}
	if !slices.Equal(r.fragmentEntries, []string{"fs_horizontal", "fs_vertical"}) {
		t.Errorf("fragmentEntries = %v", r.fragmentEntries)
	}
	if r.uniformSize != 16 {
		t.Errorf("uniformSize = %d, want 16", r.uniformSize)
	}
	want := []uniformField{
		{"source_texel_size", 0, fieldVec2},
		{"horizontal_blur", 8, fieldFloat},
		{"vertical_blur", 12, fieldFloat},
	}
	if !slices.Equal(r.fields, want) {
		t.Errorf("fields = %v, want %v", r.fields, want)
	}
	if len(r.textures) != 1 || r.textures[0].name != SourceTextureName {
		t.Errorf("textures = %v, want the blit source only", r.textures)
	}
}

const fullscreenVertex = `
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(index), 0.0, 0.0, 1.0);
}
`

func TestReflectUnsupportedBindings(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "uniform outside group 0",
			src: `
struct P { v: f32 }
@group(1) @binding(0) var<uniform> p: P;
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(p.v); }
`,
		},
		{
			name: "storage buffer",
			src: `
@group(0) @binding(0) var<storage, read> data: array<f32>;
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(data[0]); }
`,
		},
		{
			name: "two uniform blocks",
			src: `
struct P { v: f32 }
@group(0) @binding(0) var<uniform> a: P;
@group(0) @binding(1) var<uniform> b: P;
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(a.v + b.v); }
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reflectWGSL(fullscreenVertex + tt.src)
			if !errors.Is(err, ErrUnsupportedBinding) {
				t.Errorf("reflectWGSL() error = %v, want ErrUnsupportedBinding", err)
			}
		})
	}
}

func TestSampleType(t *testing.T) {
	tests := []struct {
		name string
		img  ir.ImageType
		want gputypes.TextureSampleType
		ok   bool
	}{
		{"float", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat}, gputypes.TextureSampleTypeFloat, true},
		{"uint", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarUint}, gputypes.TextureSampleTypeUint, true},
		{"sint", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarSint}, gputypes.TextureSampleTypeSint, true},
		{"depth", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassDepth}, gputypes.TextureSampleTypeDepth, true},
		{"array", ir.ImageType{Dim: ir.Dim2D, Arrayed: true, Class: ir.ImageClassSampled}, 0, false},
		{"multisampled", ir.ImageType{Dim: ir.Dim2D, Multisampled: true, Class: ir.ImageClassDepth}, 0, false},
		{"3d", ir.ImageType{Dim: ir.Dim3D, Class: ir.ImageClassSampled}, 0, false},
		{"storage", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassStorage}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sampleType(tt.img)
			if !tt.ok {
				if !errors.Is(err, ErrUnsupportedBinding) {
					t.Errorf("sampleType() error = %v, want ErrUnsupportedBinding", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("sampleType() = %v, %v, want %v", got, err, tt.want)
			}
		})
	}
}

func TestReflectParseError(t *testing.T) {
	if _, err := reflectWGSL("fn broken( {"); err == nil {
		t.Error("reflectWGSL() accepted invalid WGSL")
	}
}

func TestResolveEntries(t *testing.T) {
	r, err := reflectWGSL(shaders.Blur)
	if err != nil {
		t.Fatalf("reflectWGSL() error = %v", err)
	}

	vertex, passes, err := r.resolveEntries("", nil)
	if err != nil || vertex != "vs_main" || !slices.Equal(passes, []string{"fs_horizontal", "fs_vertical"}) {
		t.Errorf("defaults = %q %v %v", vertex, passes, err)
	}

	vertex, passes, err = r.resolveEntries("vs_main", []string{"fs_vertical", "fs_horizontal"})
	if err != nil || vertex != "vs_main" || !slices.Equal(passes, []string{"fs_vertical", "fs_horizontal"}) {
		t.Errorf("explicit = %q %v %v", vertex, passes, err)
	}

	if _, _, err := r.resolveEntries("vs_other", nil); !errors.Is(err, ErrMissingEntryPoint) {
		t.Errorf("unknown vertex error = %v", err)
	}
	if _, _, err := r.resolveEntries("", []string{"fs_main"}); !errors.Is(err, ErrMissingEntryPoint) {
		t.Errorf("unknown fragment error = %v", err)
	}
	// A vertex entry point is not a fragment pass.
	if _, _, err := r.resolveEntries("", []string{"vs_main"}); !errors.Is(err, ErrMissingEntryPoint) {
		t.Errorf("vertex as pass error = %v", err)
	}
}

func TestLayoutEntries(t *testing.T) {
	r, err := reflectWGSL(shaders.Occlusion)
	if err != nil {
		t.Fatalf("reflectWGSL() error = %v", err)
	}
	entries := r.layoutEntries()
	if len(entries) != 5 {
		t.Fatalf("len(entries) = %d, want 5", len(entries))
	}
	if entries[0].Buffer == nil || entries[0].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("entry 0 = %+v, want uniform buffer", entries[0])
	}
	if entries[1].Texture == nil || entries[1].Texture.SampleType != gputypes.TextureSampleTypeDepth {
		t.Errorf("entry 1 = %+v, want depth texture", entries[1])
	}
	if entries[4].Sampler == nil || entries[4].Sampler.Type != gputypes.SamplerBindingTypeFiltering {
		t.Errorf("entry 4 = %+v, want filtering sampler", entries[4])
	}
	for _, e := range entries {
		if e.Visibility&gputypes.ShaderStageFragment == 0 {
			t.Errorf("binding %d not visible to fragment stage", e.Binding)
		}
	}
}

func TestAlign16(t *testing.T) {
	for _, tt := range []struct{ in, want uint32 }{{0, 0}, {1, 16}, {16, 16}, {17, 32}, {104, 112}} {
		if got := align16(tt.in); got != tt.want {
			t.Errorf("align16(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
