// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/ssao"
)

// ErrFeedbackLoop is returned when a blit would sample its own target.
var ErrFeedbackLoop = errors.New("gpu: texture is both sampled and rendered to")

// clearOcclusion is the clear color of blit targets: fully unoccluded.
var clearOcclusion = gputypes.Color{R: 1, G: 1, B: 1, A: 1}

// Recorder records one frame into a hal command encoder. Every blit is its
// own render pass drawing a fullscreen triangle. Globals set on the
// recorder are visible to its own blits at once and to the device after
// Submit.
type Recorder struct {
	dev     *Device
	label   string
	encoder hal.CommandEncoder

	matrices map[string]f32.Mat4
	textures map[string]*Texture

	// Transient objects, owned by the submission once submitted.
	buffers []hal.Buffer
	groups  []hal.BindGroup
	used    []*Texture

	// blocks holds the uniform block written by each blit, in order.
	blocks [][]byte

	closed bool
}

var _ ssao.CommandRecorder = (*Recorder)(nil)

func newRecorder(d *Device, label string, encoder hal.CommandEncoder) *Recorder {
	return &Recorder{
		dev:      d,
		label:    label,
		encoder:  encoder,
		matrices: make(map[string]f32.Mat4),
		textures: make(map[string]*Texture),
	}
}

// SetGlobalMatrix assigns a mat4x4<f32> uniform member by name.
func (r *Recorder) SetGlobalMatrix(name string, m f32.Mat4) {
	r.matrices[name] = m
}

// SetGlobalTexture assigns a texture variable by name. A nil t removes the
// global on Submit. Textures this package did not create or wrap are
// ignored with a warning.
func (r *Recorder) SetGlobalTexture(name string, t ssao.Texture) {
	if t == nil {
		r.textures[name] = nil
		return
	}
	tex, err := asTexture(t)
	if err != nil {
		slogger().Warn("gpu: global texture ignored", "name", name, "err", err)
		return
	}
	r.textures[name] = tex
}

func (r *Recorder) matrix(name string) (f32.Mat4, bool) {
	if m, ok := r.matrices[name]; ok {
		return m, true
	}
	m, ok := r.dev.matrices[name]
	return m, ok
}

// texture resolves a texture variable: the blit source, then the
// recorder's globals, then the device's committed globals.
func (r *Recorder) texture(name string, src *Texture) (*Texture, error) {
	if name == SourceTextureName {
		if src == nil {
			return nil, fmt.Errorf("texture %q: no blit source: %w", name, ssao.ErrMissingInput)
		}
		return src, nil
	}
	if t, ok := r.textures[name]; ok {
		if t == nil {
			return nil, fmt.Errorf("texture %q was removed: %w", name, ssao.ErrMissingInput)
		}
		return t, nil
	}
	if t, ok := r.dev.globals[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("texture %q is not bound: %w", name, ssao.ErrMissingInput)
}

// Blit records pass of p as a fullscreen draw into dst.
func (r *Recorder) Blit(src, dst ssao.Texture, p ssao.Program, pass int) error {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if r.dev.destroyed {
		return ErrDeviceDestroyed
	}

	prog, ok := p.(*Program)
	if !ok || prog == nil {
		return fmt.Errorf("%T: %w", p, ErrForeignProgram)
	}
	if _, ok := r.dev.programs[prog]; !ok {
		return fmt.Errorf("%s: %w", prog.name, ErrForeignProgram)
	}
	dstTex, err := asTexture(dst)
	if err != nil {
		return fmt.Errorf("blit target: %w", err)
	}
	var srcTex *Texture
	if src != nil {
		if srcTex, err = asTexture(src); err != nil {
			return fmt.Errorf("blit source: %w", err)
		}
	}

	pipeline, err := prog.pipeline(r.dev.device, pass, dstTex.format)
	if err != nil {
		return err
	}

	group, buf, block, bound, err := r.bindGroup(prog, srcTex, dstTex)
	if err != nil {
		return fmt.Errorf("program %s pass %s: %w", prog.name, prog.passes[pass], err)
	}

	rp := r.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: prog.name + "_" + prog.passes[pass],
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dstTex.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearOcclusion,
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, group, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	r.groups = append(r.groups, group)
	if buf != nil {
		r.buffers = append(r.buffers, buf)
	}
	r.blocks = append(r.blocks, block)
	r.used = append(r.used, dstTex)
	r.used = append(r.used, bound...)
	return nil
}

// bindGroup uploads the uniform block and binds every resource the program
// declares. On error nothing is left allocated.
func (r *Recorder) bindGroup(prog *Program, src, dst *Texture) (hal.BindGroup, hal.Buffer, []byte, []*Texture, error) {
	device := r.dev.device
	refl := prog.refl

	var (
		entries []gputypes.BindGroupEntry
		bound   []*Texture
		buf     hal.Buffer
		block   []byte
	)
	release := func() {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}

	for _, slot := range refl.textures {
		t, err := r.texture(slot.name, src)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if t == dst {
			return nil, nil, nil, nil, fmt.Errorf("texture %q: %w", slot.name, ErrFeedbackLoop)
		}
		if t.view == nil {
			return nil, nil, nil, nil, fmt.Errorf("texture %q: %w", slot.name, ErrTextureReleased)
		}
		bound = append(bound, t)
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  slot.binding,
			Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
		})
	}
	for _, slot := range refl.samplers {
		s := r.dev.sampler
		if slot.comparison {
			s = r.dev.compareSampler
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  slot.binding,
			Resource: gputypes.SamplerBinding{Sampler: s.NativeHandle()},
		})
	}

	if refl.hasUniforms {
		block = prog.uniformBlock(r.matrix, src, dst)
		var err error
		buf, err = device.CreateBuffer(&hal.BufferDescriptor{
			Label: prog.name + "_uniforms",
			Size:  uint64(len(block)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("create uniform buffer: %w", err)
		}
		if err := r.dev.queue.WriteBuffer(buf, 0, block); err != nil {
			release()
			return nil, nil, nil, nil, fmt.Errorf("write uniforms: %w", err)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  refl.uniformBinding,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Size: uint64(len(block))},
		})
	}

	group, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   prog.name + "_bind",
		Layout:  prog.bindLayout,
		Entries: entries,
	})
	if err != nil {
		release()
		return nil, nil, nil, nil, fmt.Errorf("create bind group: %w", err)
	}
	return group, buf, block, bound, nil
}

// Discard drops the recorded commands and their transient objects.
func (r *Recorder) Discard() {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.encoder.DiscardEncoding()
	r.releaseTransient()
}

// releaseTransient destroys the encoder and the objects that were never
// submitted. The encoder must not be recording.
func (r *Recorder) releaseTransient() {
	for _, g := range r.groups {
		r.dev.device.DestroyBindGroup(g)
	}
	for _, b := range r.buffers {
		r.dev.device.DestroyBuffer(b)
	}
	r.groups, r.buffers, r.used = nil, nil, nil
	r.encoder.Destroy()
}

// Blits returns the number of recorded blits.
func (r *Recorder) Blits() int { return len(r.blocks) }
