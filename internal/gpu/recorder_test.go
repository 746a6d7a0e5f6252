// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ssao"
	"github.com/gogpu/ssao/internal/shaders"
)

// fakeTexture satisfies ssao.Texture without belonging to any device.
type fakeTexture struct{}

func (fakeTexture) Width() int                     { return 1 }
func (fakeTexture) Height() int                    { return 1 }
func (fakeTexture) Format() gputypes.TextureFormat { return ssao.OcclusionFormat }

func beginFrame(t *testing.T, d *Device) *Recorder {
	t.Helper()
	rec, err := d.BeginCommands("test")
	if err != nil {
		t.Fatalf("BeginCommands() error = %v", err)
	}
	return rec.(*Recorder)
}

func TestBlitMissingTexture(t *testing.T) {
	d, occ, _ := newTestPrograms(t)
	dst, _ := d.CreateTexture(targetDesc(32, 32))

	rec := beginFrame(t, d)
	defer rec.Discard()
	err := rec.Blit(nil, dst, occ, 0)
	if !errors.Is(err, ssao.ErrMissingInput) {
		t.Errorf("Blit() without inputs error = %v, want ErrMissingInput", err)
	}
	if rec.Blits() != 0 || len(rec.buffers) != 0 {
		t.Errorf("failed blit left %d blits, %d buffers", rec.Blits(), len(rec.buffers))
	}
}

func TestBlitFeedbackLoop(t *testing.T) {
	d, _, blur := newTestPrograms(t)
	tex, _ := d.CreateTexture(targetDesc(32, 32))

	rec := beginFrame(t, d)
	defer rec.Discard()
	if err := rec.Blit(tex, tex, blur, ssao.PassHorizontal); !errors.Is(err, ErrFeedbackLoop) {
		t.Errorf("Blit(tex, tex) error = %v, want ErrFeedbackLoop", err)
	}
}

func TestBlitForeignObjects(t *testing.T) {
	d, _, blur := newTestPrograms(t)
	other := newTestDevice(t)
	tex, _ := d.CreateTexture(targetDesc(8, 8))

	rec := beginFrame(t, d)
	defer rec.Discard()
	if err := rec.Blit(tex, fakeTexture{}, blur, 0); !errors.Is(err, ErrForeignTexture) {
		t.Errorf("Blit(foreign dst) error = %v, want ErrForeignTexture", err)
	}
	if err := rec.Blit(fakeTexture{}, tex, blur, 0); !errors.Is(err, ErrForeignTexture) {
		t.Errorf("Blit(foreign src) error = %v, want ErrForeignTexture", err)
	}

	otherBlur, err := other.CreateProgram(ssao.ProgramSource{Name: "blur", WGSL: shaders.Blur})
	if err != nil {
		t.Fatalf("CreateProgram() error = %v", err)
	}
	src, _ := d.CreateTexture(targetDesc(8, 8))
	if err := rec.Blit(src, tex, otherBlur, 0); !errors.Is(err, ErrForeignProgram) {
		t.Errorf("Blit(foreign program) error = %v, want ErrForeignProgram", err)
	}
}

func TestBlitOutOfRangePass(t *testing.T) {
	d, _, blur := newTestPrograms(t)
	src, _ := d.CreateTexture(targetDesc(8, 8))
	dst, _ := d.CreateTexture(targetDesc(8, 8))

	rec := beginFrame(t, d)
	defer rec.Discard()
	if err := rec.Blit(src, dst, blur, 2); !errors.Is(err, ssao.ErrOutOfRange) {
		t.Errorf("Blit(pass 2) error = %v, want ErrOutOfRange", err)
	}
}

func TestRecorderGlobals(t *testing.T) {
	d, occ, _ := newTestPrograms(t)
	depth, _ := d.CreateTexture(ssao.TextureDescriptor{Format: gputypes.TextureFormatDepth32Float, Width: 64, Height: 64})
	normals, _ := d.CreateTexture(targetDesc(64, 64))
	if _, err := d.UploadNoise(ssao.Noise(ssao.NoiseSize, ssao.NoiseSeed)); err != nil {
		t.Fatalf("UploadNoise() error = %v", err)
	}
	dst, _ := d.CreateTexture(targetDesc(32, 32))

	vp := ssao.Identity()
	vp[7] = 5

	rec := beginFrame(t, d)
	rec.SetGlobalMatrix(ssao.GlobalViewProjection, vp)
	rec.SetGlobalTexture(ssao.GlobalDepthTexture, depth)
	rec.SetGlobalTexture(ssao.GlobalNormalsTexture, normals)
	rec.SetGlobalTexture("ignored", fakeTexture{})
	if err := rec.Blit(nil, dst, occ, 0); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}
	if rec.Blits() != 1 {
		t.Fatalf("Blits() = %d, want 1", rec.Blits())
	}

	block := rec.blocks[0]
	if got := float32At(block, 48+4); got != 5 {
		t.Errorf("view projection column 3 row 1 = %v, want 5", got)
	}
	if got := float32At(block, 72); got != 1.0/32 {
		t.Errorf("target texel width = %v, want 1/32", got)
	}

	// Recorder globals are not committed before Submit.
	if _, ok := d.GlobalMatrix(ssao.GlobalViewProjection); ok {
		t.Error("matrix visible before Submit")
	}
	if err := d.Submit(rec); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if m, ok := d.GlobalMatrix(ssao.GlobalViewProjection); !ok || m != vp {
		t.Errorf("GlobalMatrix() = %v, %v", m, ok)
	}
	if g, ok := d.GlobalTexture(ssao.GlobalDepthTexture); !ok || g != depth {
		t.Errorf("GlobalTexture(depth) = %v, %v", g, ok)
	}
	if _, ok := d.GlobalTexture("ignored"); ok {
		t.Error("foreign texture was published")
	}

	// Committed globals satisfy later frames.
	rec = beginFrame(t, d)
	if err := rec.Blit(nil, dst, occ, 0); err != nil {
		t.Errorf("Blit() with committed globals error = %v", err)
	}
	if got := float32At(rec.blocks[0], 48+4); got != 5 {
		t.Errorf("committed view projection = %v, want 5", got)
	}
	rec.Discard()
}

func TestRecorderClosed(t *testing.T) {
	d, _, blur := newTestPrograms(t)
	src, _ := d.CreateTexture(targetDesc(8, 8))
	dst, _ := d.CreateTexture(targetDesc(8, 8))

	rec := beginFrame(t, d)
	if err := rec.Blit(src, dst, blur, 0); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}
	rec.Discard()
	rec.Discard()
	if len(rec.buffers) != 0 || len(rec.groups) != 0 {
		t.Error("Discard left transient objects")
	}
	if err := rec.Blit(src, dst, blur, 0); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("Blit() after Discard error = %v, want ErrRecorderClosed", err)
	}
	if err := d.Submit(rec); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("Submit() after Discard error = %v, want ErrRecorderClosed", err)
	}
	if got := d.Stats().Submitted; got != 0 {
		t.Errorf("Submitted = %d, want 0", got)
	}

	other := newTestDevice(t)
	rec = beginFrame(t, other)
	defer rec.Discard()
	if err := d.Submit(rec); !errors.Is(err, ErrForeignRecorder) {
		t.Errorf("Submit(other device's recorder) error = %v, want ErrForeignRecorder", err)
	}
}

func TestSubmitRetiresFrames(t *testing.T) {
	d, _, blur := newTestPrograms(t)
	a, _ := d.CreateTexture(targetDesc(16, 16))
	b, _ := d.CreateTexture(targetDesc(16, 16))

	for range 3 {
		rec := beginFrame(t, d)
		if err := rec.Blit(a, b, blur, ssao.PassHorizontal); err != nil {
			t.Fatalf("Blit() error = %v", err)
		}
		if err := rec.Blit(b, a, blur, ssao.PassVertical); err != nil {
			t.Fatalf("Blit() error = %v", err)
		}
		if err := d.Submit(rec); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	s := d.Stats()
	if s.Submitted != 3 || s.Completed != 3 || s.InFlight != 0 {
		t.Errorf("stats = %+v, want 3 submitted and retired", s)
	}
	if s.Pipelines != 2 {
		t.Errorf("Pipelines = %d, want 2", s.Pipelines)
	}
}
