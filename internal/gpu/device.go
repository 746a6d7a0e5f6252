// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/ssao"
)

// Device errors.
var (
	// ErrNilDevice is returned when NewDevice is given no hal device or queue.
	ErrNilDevice = errors.New("gpu: nil hal device or queue")

	// ErrDeviceDestroyed is returned by every operation after Destroy.
	ErrDeviceDestroyed = errors.New("gpu: device destroyed")

	// ErrForeignProgram is returned when a program was not created by this
	// device.
	ErrForeignProgram = errors.New("gpu: program not created by this device")

	// ErrForeignRecorder is returned when submitting a recorder that was
	// not started by this device.
	ErrForeignRecorder = errors.New("gpu: recorder not started by this device")

	// ErrRecorderClosed is returned when recording into a recorder that was
	// already submitted or discarded.
	ErrRecorderClosed = errors.New("gpu: recorder already submitted or discarded")
)

// NoiseTextureName is the global under which UploadNoise publishes the
// rotation noise tile.
const NoiseTextureName = "ssao_noise_texture"

// Option configures a Device.
type Option func(*Device)

// WithSPIRV makes the device compile programs to SPIR-V with naga instead of
// handing WGSL to the backend.
func WithSPIRV() Option {
	return func(d *Device) { d.spirv = true }
}

// WithRelease registers fn to run at the end of Destroy, after every GPU
// object of the device is gone. Used for devices that own their hal device.
func WithRelease(fn func()) Option {
	return func(d *Device) { d.release = fn }
}

// submission holds the transient objects of a submitted frame until the
// queue reports it complete.
type submission struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

// Stats reports device activity.
type Stats struct {
	Submitted    uint64
	Completed    uint64
	InFlight     int
	Programs     int
	Pipelines    int
	LiveTextures int
	Deferred     int
}

// Device implements ssao.Device and ssao.RenderContext on a wgpu/hal device
// and queue. A Device does not own the hal device unless created with
// WithRelease.
type Device struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	spirv   bool
	release func()

	sampler        hal.Sampler
	compareSampler hal.Sampler

	programs map[*Program]struct{}
	textures map[*Texture]struct{}

	// Committed globals, updated when a recorder is submitted.
	globals  map[string]*Texture
	matrices map[string]f32.Mat4

	inflight  []*submission
	deferred  []*Texture
	submitted uint64
	completed uint64

	destroyed bool
}

var (
	_ ssao.Device        = (*Device)(nil)
	_ ssao.RenderContext = (*Device)(nil)
	_ ssao.NoiseUploader = (*Device)(nil)
)

// NewDevice creates a Device on a hal device and queue.
func NewDevice(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{
		device:   device,
		queue:    queue,
		programs: make(map[*Program]struct{}),
		textures: make(map[*Texture]struct{}),
		globals:  make(map[string]*Texture),
		matrices: make(map[string]f32.Mat4),
	}
	for _, opt := range opts {
		opt(d)
	}

	var err error
	d.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ssao_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sampler: %w", err)
	}
	d.compareSampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ssao_depth_compare",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		Compare:      gputypes.CompareFunctionLessEqual,
	})
	if err != nil {
		device.DestroySampler(d.sampler)
		return nil, fmt.Errorf("gpu: create compare sampler: %w", err)
	}

	slogger().Debug("gpu: device ready", "spirv", d.spirv)
	return d, nil
}

// CreateProgram reflects and compiles a WGSL program.
func (d *Device) CreateProgram(src ssao.ProgramSource) (ssao.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}

	p, err := newProgram(d.device, src, d.spirv)
	if err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	d.programs[p] = struct{}{}
	slogger().Debug("gpu: program created", "program", p.name,
		"vertex", p.vertex, "passes", p.passes, "uniform_bytes", len(p.uniforms))
	return p, nil
}

// DestroyProgram releases a program's shader module, layouts and pipelines.
// Recorded but uncompleted frames keep working: pipelines are only
// destroyed once the queue is idle or the device is destroyed.
func (d *Device) DestroyProgram(p ssao.Program) {
	prog, ok := p.(*Program)
	if !ok || prog == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.programs[prog]; !ok {
		return
	}
	if len(d.inflight) > 0 {
		d.waitIdleLocked()
	}
	prog.destroy(d.device)
	delete(d.programs, prog)
}

// CreateTexture creates a render target that can be sampled.
func (d *Device) CreateTexture(desc ssao.TextureDescriptor) (ssao.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}

	t, err := createTexture(d.device, fmt.Sprintf("ssao_target_%dx%d", desc.Width, desc.Height), desc, RenderTargetUsage)
	if err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	d.textures[t] = struct{}{}
	return t, nil
}

// DestroyTexture releases a texture created by CreateTexture. When a
// submitted frame still references it, destruction waits for that frame.
func (d *Device) DestroyTexture(t ssao.Texture) {
	tex, ok := t.(*Texture)
	if !ok || tex == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[tex]; !ok {
		return
	}
	d.destroyTextureLocked(tex)
}

func (d *Device) destroyTextureLocked(tex *Texture) {
	delete(d.textures, tex)
	d.unpublishLocked(tex)

	d.pollLocked()
	if tex.lastUse > d.completed {
		d.deferred = append(d.deferred, tex)
		return
	}
	tex.destroy(d.device)
}

// unpublishLocked drops tex from the committed globals.
func (d *Device) unpublishLocked(tex *Texture) {
	for name, g := range d.globals {
		if g == tex {
			delete(d.globals, name)
		}
	}
}

// SetGlobalTexture publishes t under name immediately, outside any
// recorder. Hosts use it for persistent inputs such as the noise tile.
// A nil t removes the global.
func (d *Device) SetGlobalTexture(name string, t ssao.Texture) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil {
		delete(d.globals, name)
		return nil
	}
	tex, err := asTexture(t)
	if err != nil {
		return err
	}
	d.globals[name] = tex
	return nil
}

// GlobalTexture returns the committed texture global name.
func (d *Device) GlobalTexture(name string) (*Texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.globals[name]
	return t, ok
}

// GlobalMatrix returns the committed matrix global name.
func (d *Device) GlobalMatrix(name string) (f32.Mat4, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.matrices[name]
	return m, ok
}

// UploadNoise uploads a square noise tile as an RGBA16Float texture and
// publishes it as NoiseTextureName, replacing any tile uploaded before.
// It implements ssao.NoiseUploader.
func (d *Device) UploadNoise(noise []f32.Vec3) (ssao.Texture, error) {
	size := int(math.Sqrt(float64(len(noise))))
	if size == 0 || size*size != len(noise) {
		return nil, fmt.Errorf("gpu: noise tile of %d texels is not square: %w", len(noise), ssao.ErrInvalidDescriptor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}

	desc := ssao.TextureDescriptor{Format: gputypes.TextureFormatRGBA16Float, Width: size, Height: size, MipLevelCount: 1, SampleCount: 1}
	t, err := createTexture(d.device, "ssao_noise", desc, UploadUsage)
	if err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	s := uint32(size) //nolint:gosec // tile edge is small
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		ssao.NoiseRGBA16(noise),
		&hal.ImageDataLayout{BytesPerRow: s * 8, RowsPerImage: s},
		&hal.Extent3D{Width: s, Height: s, DepthOrArrayLayers: 1},
	)
	if err != nil {
		t.destroy(d.device)
		return nil, fmt.Errorf("gpu: upload noise: %w", err)
	}
	if old, ok := d.globals[NoiseTextureName]; ok {
		if _, owned := d.textures[old]; owned {
			d.destroyTextureLocked(old)
		}
	}
	d.textures[t] = struct{}{}
	d.globals[NoiseTextureName] = t
	return t, nil
}

// BeginCommands starts recording a frame.
func (d *Device) BeginCommands(label string) (ssao.CommandRecorder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	d.pollLocked()

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	return newRecorder(d, label, encoder), nil
}

// Submit ends a recorder's encoding and submits it. The recorder's global
// assignments are committed once the queue accepted the commands.
func (d *Device) Submit(rec ssao.CommandRecorder) error {
	r, ok := rec.(*Recorder)
	if !ok || r == nil || r.dev != d {
		return fmt.Errorf("gpu: submit %T: %w", rec, ErrForeignRecorder)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if r.closed {
		return ErrRecorderClosed
	}
	r.closed = true

	cmd, err := r.encoder.EndEncoding()
	if err != nil {
		r.encoder.DiscardEncoding()
		r.releaseTransient()
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		r.releaseTransient()
		return fmt.Errorf("gpu: submit: %w", err)
	}

	d.submitted = index
	d.inflight = append(d.inflight, &submission{
		index:   index,
		encoder: r.encoder,
		cmd:     cmd,
		buffers: r.buffers,
		groups:  r.groups,
	})
	for _, t := range r.used {
		t.lastUse = index
	}
	for name, m := range r.matrices {
		d.matrices[name] = m
	}
	for name, t := range r.textures {
		if t == nil {
			delete(d.globals, name)
			continue
		}
		d.globals[name] = t
	}

	d.pollLocked()
	return nil
}

// Poll frees the transient objects of completed frames and destroys
// textures whose release was deferred.
func (d *Device) Poll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollLocked()
}

func (d *Device) pollLocked() {
	if d.destroyed {
		return
	}
	d.completed = d.queue.PollCompleted()
	d.retireLocked(d.completed)
}

// retireLocked releases everything that belongs to frames up to index.
func (d *Device) retireLocked(index uint64) {
	keep := d.inflight[:0]
	for _, s := range d.inflight {
		if s.index > index {
			keep = append(keep, s)
			continue
		}
		d.releaseSubmission(s)
	}
	clear(d.inflight[len(keep):])
	d.inflight = keep

	pending := d.deferred[:0]
	for _, t := range d.deferred {
		if t.lastUse > index {
			pending = append(pending, t)
			continue
		}
		t.destroy(d.device)
	}
	clear(d.deferred[len(pending):])
	d.deferred = pending
}

func (d *Device) releaseSubmission(s *submission) {
	for _, g := range s.groups {
		d.device.DestroyBindGroup(g)
	}
	for _, b := range s.buffers {
		d.device.DestroyBuffer(b)
	}
	if s.cmd != nil {
		d.device.FreeCommandBuffer(s.cmd)
	}
	if s.encoder != nil {
		s.encoder.Destroy()
	}
}

// waitIdleLocked blocks until the queue drained, then retires everything.
func (d *Device) waitIdleLocked() {
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle failed", "err", err)
	}
	d.completed = d.submitted
	d.retireLocked(math.MaxUint64)
}

// Stats returns a snapshot of device activity.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		Submitted:    d.submitted,
		Completed:    d.completed,
		InFlight:     len(d.inflight),
		Programs:     len(d.programs),
		LiveTextures: len(d.textures),
		Deferred:     len(d.deferred),
	}
	for p := range d.programs {
		s.Pipelines += len(p.pipelines)
	}
	return s
}

// Destroy waits for the queue, then releases every program, texture and
// sampler created by the device. Wrapped textures are left alone. Safe to
// call multiple times.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}

	d.waitIdleLocked()
	for p := range d.programs {
		p.destroy(d.device)
	}
	clear(d.programs)
	for t := range d.textures {
		t.destroy(d.device)
	}
	clear(d.textures)
	clear(d.globals)
	clear(d.matrices)
	if d.compareSampler != nil {
		d.device.DestroySampler(d.compareSampler)
		d.compareSampler = nil
	}
	if d.sampler != nil {
		d.device.DestroySampler(d.sampler)
		d.sampler = nil
	}
	d.destroyed = true
	slogger().Debug("gpu: device destroyed", "submitted", d.submitted)

	if d.release != nil {
		d.release()
		d.release = nil
	}
}
