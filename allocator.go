package ssao

import "fmt"

// Buffers are the views of the occlusion and blur render targets for the
// current frame. They must not be retained past the frame's pass sequence.
type Buffers struct {
	Occlusion Texture
	Blur      Texture
}

// Valid reports whether both buffers are present.
func (b Buffers) Valid() bool {
	return b.Occlusion != nil && b.Blur != nil
}

// renderTarget is a buffer slot: the texture and the descriptor it was
// created from.
type renderTarget struct {
	label string
	desc  TextureDescriptor
	tex   Texture
}

// Allocator owns the occlusion and blur buffers. Buffers are created lazily
// and reused for as long as their derived descriptor does not change.
type Allocator struct {
	device Device

	occlusion renderTarget
	blur      renderTarget

	// allocations counts successful texture creations.
	allocations int
}

// NewAllocator creates an allocator that creates buffers on device.
// Nothing is allocated until EnsureAllocated is called.
func NewAllocator(device Device) *Allocator {
	return &Allocator{
		device:    device,
		occlusion: renderTarget{label: "occlusion"},
		blur:      renderTarget{label: "blur"},
	}
}

// EnsureAllocated derives both buffer descriptors from the camera target and
// downsample factor, and (re)allocates whichever buffer no longer matches.
//
// A buffer whose descriptor is unchanged is reused untouched. A changed
// buffer is released once before its replacement is created. On error the
// frame must be skipped; the next call derives the descriptors afresh.
func (a *Allocator) EnsureAllocated(target TextureDescriptor, downsample int) (Buffers, error) {
	if !target.Valid() {
		return Buffers{}, fmt.Errorf("ssao: target %dx%d: %w", target.Width, target.Height, ErrInvalidDescriptor)
	}

	if err := a.ensure(&a.occlusion, OcclusionDescriptor(target, downsample)); err != nil {
		return Buffers{}, err
	}
	if err := a.ensure(&a.blur, BlurDescriptor(target)); err != nil {
		return Buffers{}, err
	}
	return Buffers{Occlusion: a.occlusion.tex, Blur: a.blur.tex}, nil
}

func (a *Allocator) ensure(rt *renderTarget, desc TextureDescriptor) error {
	if rt.tex != nil && rt.desc == desc {
		return nil
	}
	if !desc.Valid() {
		return fmt.Errorf("ssao: %s buffer %s: %w", rt.label, desc, ErrInvalidDescriptor)
	}

	a.release(rt)

	tex, err := a.device.CreateTexture(desc)
	if err != nil {
		return fmt.Errorf("ssao: create %s buffer %s: %w: %w", rt.label, desc, ErrAllocation, err)
	}
	if tex == nil {
		return fmt.Errorf("ssao: create %s buffer %s: %w", rt.label, desc, ErrAllocation)
	}
	rt.tex = tex
	rt.desc = desc
	a.allocations++
	return nil
}

func (a *Allocator) release(rt *renderTarget) {
	if rt.tex != nil {
		a.device.DestroyTexture(rt.tex)
		rt.tex = nil
	}
	rt.desc = TextureDescriptor{}
}

// Descriptors returns the descriptors of the held buffers. A zero descriptor
// means the buffer is not allocated.
func (a *Allocator) Descriptors() (occlusion, blur TextureDescriptor) {
	return a.occlusion.desc, a.blur.desc
}

// Allocations returns the number of textures created so far.
func (a *Allocator) Allocations() int {
	return a.allocations
}

// Release destroys both buffers. Safe to call multiple times or before any
// allocation.
func (a *Allocator) Release() {
	a.release(&a.occlusion)
	a.release(&a.blur)
}
