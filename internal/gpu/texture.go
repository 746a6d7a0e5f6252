// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssao"
)

// Texture errors.
var (
	// ErrForeignTexture is returned when a texture was not created or
	// wrapped by this package.
	ErrForeignTexture = errors.New("gpu: texture not created by this device")

	// ErrTextureReleased is returned when operating on a destroyed texture.
	ErrTextureReleased = errors.New("gpu: texture has been released")
)

// RenderTargetUsage is the usage of textures created for the effect's
// buffers: rendered to by one pass, sampled by the next.
const RenderTargetUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding

// UploadUsage is the usage of textures filled from the CPU and sampled.
const UploadUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst

// Texture is a hal texture view with its size and format. Textures created
// by Device own their hal texture; wrapped textures only reference the
// caller's view.
type Texture struct {
	tex    hal.Texture // nil for wrapped views
	view   hal.TextureView
	width  int
	height int
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage
	label  string

	// lastUse is the submission index of the last frame that referenced
	// the texture; destruction is deferred until it completes.
	lastUse  uint64
	released bool
}

// WrapTexture wraps a host-owned view so it can be bound as a frame input
// or used as a blit destination. The caller keeps ownership of view.
func WrapTexture(view hal.TextureView, width, height int, format gputypes.TextureFormat) *Texture {
	return &Texture{view: view, width: width, height: height, format: format, label: "wrapped"}
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Format returns the texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// View returns the hal view, for hosts that sample the published
// occlusion texture with their own pipelines.
func (t *Texture) View() hal.TextureView { return t.view }

// Usage returns the usage the texture was created with. Wrapped views
// report zero.
func (t *Texture) Usage() gputypes.TextureUsage { return t.usage }

// Owned reports whether the texture was created by a Device.
func (t *Texture) Owned() bool { return t.tex != nil }

func (t *Texture) String() string {
	return fmt.Sprintf("%s %dx%d %v", t.label, t.width, t.height, t.format)
}

// asTexture unwraps an ssao.Texture into a live *Texture.
func asTexture(t ssao.Texture) (*Texture, error) {
	tex, ok := t.(*Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("%T: %w", t, ErrForeignTexture)
	}
	if tex.released {
		return nil, fmt.Errorf("%s: %w", tex.label, ErrTextureReleased)
	}
	return tex, nil
}

// createTexture creates an owned texture and its view. On error nothing is
// left allocated.
func createTexture(device hal.Device, label string, desc ssao.TextureDescriptor, usage gputypes.TextureUsage) (*Texture, error) {
	if !desc.Valid() {
		return nil, fmt.Errorf("%s %s: %w", label, desc, ssao.ErrInvalidDescriptor)
	}
	mips := uint32(max(desc.MipLevelCount, 1))      //nolint:gosec // small positive count
	samples := uint32(max(desc.SampleCount, 1))     //nolint:gosec // small positive count
	w, h := uint32(desc.Width), uint32(desc.Height) //nolint:gosec // validated positive

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: mips,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}

	return &Texture{
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		usage:  usage,
		label:  label,
	}, nil
}

// destroy releases the view and texture. Safe to call multiple times.
func (t *Texture) destroy(device hal.Device) {
	if t.released || t.tex == nil {
		t.released = true
		return
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	device.DestroyTexture(t.tex)
	t.tex = nil
	t.released = true
}
