package ssao

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Seeds of the generated noise tile and sample kernel. Fixed seeds keep the
// pattern identical across runs.
const (
	NoiseSeed  = 123
	KernelSeed = 42
)

// NoiseSize is the edge length of the rotation noise tile.
const NoiseSize = 4

// Noise returns a size*size tile of random rotation vectors, row by row.
// X and Y lie in [-1, 1]; Z is zero so that the rotation stays in the
// tangent plane. The tile is meant to repeat across the screen.
func Noise(size int, seed uint64) []f32.Vec3 {
	if size <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	noise := make([]f32.Vec3, size*size)
	for i := range noise {
		noise[i] = f32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, 0}
	}
	return noise
}

// Kernel returns n hemisphere sample offsets around +Z. Samples are
// normalized and then scaled by lerp(0.1, 1, t*t) with t = i/n, so that
// they cluster near the origin.
func Kernel(n int, seed uint64) []f32.Vec3 {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	kernel := make([]f32.Vec3, n)
	for i := range kernel {
		v := f32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()}
		l := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		if l == 0 {
			v, l = f32.Vec3{0, 0, 1}, 1
		}
		t := float32(i) / float32(n)
		scale := (0.1 + 0.9*t*t) / l
		kernel[i] = f32.Vec3{v[0] * scale, v[1] * scale, v[2] * scale}
	}
	return kernel
}

// NoiseRGBA16 packs a noise tile into RGBA texels of IEEE half floats,
// ready for a TextureFormatRGBA16Float upload.
func NoiseRGBA16(noise []f32.Vec3) []byte {
	out := make([]byte, 0, len(noise)*8)
	for _, v := range noise {
		for _, c := range [4]float32{v[0], v[1], v[2], 1} {
			h := float32ToHalf(c)
			out = append(out, byte(h), byte(h>>8))
		}
	}
	return out
}

// float32ToHalf converts f to binary16 with round-toward-zero. Values
// beyond the half range saturate to infinity.
func float32ToHalf(f float32) uint16 {
	bits := math32.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case bits&0x7fffffff == 0:
		return sign
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		return sign | uint16(mant>>uint32(14-exp))
	}
	return sign | uint16(exp)<<10 | uint16(mant>>13)
}
