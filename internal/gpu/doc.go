// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu runs the SSAO passes on a wgpu/hal device.
//
// It is an internal package; hosts use it through github.com/gogpu/ssao/gpu.
//
// # Programs
//
// Programs are WGSL modules. Each is parsed, lowered and validated with
// naga, and its group 0 bindings are reflected:
//
//   - one var<uniform> struct, whose scalar members are the program's
//     uniforms; mat4x4<f32> members receive matrix globals by member name;
//     source_texel_size and target_texel_size (vec2<f32>) are filled per blit
//   - texture_2d and texture_depth_2d variables, bound by variable name:
//     "source" is the blit source, any other name a texture global
//   - samplers, bound to a linear clamp sampler (or a less-equal compare
//     sampler for sampler_comparison)
//
// Every fragment entry point listed in the program source is a pass. A pass
// draws a fullscreen triangle with three vertices and no vertex buffers, so
// the vertex entry point derives positions from the vertex index.
//
// # Frames
//
// Device implements both ssao.Device and ssao.RenderContext. A frame is one
// command encoder; every blit is a render pass that clears its target to
// white. Uniform buffers and bind groups are created per blit and released
// once the queue reports the submission complete. Textures destroyed while
// a frame still references them are released at the same point.
package gpu
