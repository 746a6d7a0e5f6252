package ssao

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// OcclusionFormat is the color format of the occlusion and blur buffers.
// A single 16-bit float channel holds the occlusion factor.
const OcclusionFormat = gputypes.TextureFormatR16Float

// TextureDescriptor describes a render target. Descriptors are compared with
// == to decide between reusing and reallocating a buffer.
type TextureDescriptor struct {
	Format        gputypes.TextureFormat
	Width         int
	Height        int
	MipLevelCount int
	SampleCount   int
	DepthBits     int
}

// Valid reports whether d has a positive size.
func (d TextureDescriptor) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d TextureDescriptor) String() string {
	return fmt.Sprintf("%dx%d format=%v mips=%d samples=%d depth=%d",
		d.Width, d.Height, d.Format, d.MipLevelCount, d.SampleCount, d.DepthBits)
}

// OcclusionDescriptor derives the occlusion buffer descriptor from the
// camera target: occlusion format, no depth, one mip level, one sample, and
// each dimension divided by downsample (truncating, minimum 1). A downsample
// below 1 is treated as 1.
func OcclusionDescriptor(target TextureDescriptor, downsample int) TextureDescriptor {
	downsample = max(downsample, 1)
	d := target
	d.Format = OcclusionFormat
	d.DepthBits = 0
	d.MipLevelCount = 1
	d.SampleCount = 1
	d.Width = max(target.Width/downsample, 1)
	d.Height = max(target.Height/downsample, 1)
	return d
}

// BlurDescriptor derives the blur buffer descriptor: the target's full
// resolution in the occlusion format, no depth, one mip level, one sample.
func BlurDescriptor(target TextureDescriptor) TextureDescriptor {
	d := target
	d.Format = OcclusionFormat
	d.DepthBits = 0
	d.MipLevelCount = 1
	d.SampleCount = 1
	return d
}
