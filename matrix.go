package ssao

import "golang.org/x/image/math/f32"

// Matrices are row-major: m[r*4+c] is row r, column c. Points are column
// vectors, so a*b applies b first.

// Identity returns the 4x4 identity matrix.
func Identity() f32.Mat4 {
	return f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a*b.
func Mul(a, b f32.Mat4) f32.Mat4 {
	var m f32.Mat4
	for r := range 4 {
		for c := range 4 {
			var sum float32
			for k := range 4 {
				sum += a[r*4+k] * b[k*4+c]
			}
			m[r*4+c] = sum
		}
	}
	return m
}

// Transform applies m to the column vector v.
func Transform(m f32.Mat4, v f32.Vec4) f32.Vec4 {
	var out f32.Vec4
	for r := range 4 {
		out[r] = m[r*4]*v[0] + m[r*4+1]*v[1] + m[r*4+2]*v[2] + m[r*4+3]*v[3]
	}
	return out
}

// GPUProjection adapts a projection with clip z in [-1, 1] to the WebGPU
// convention of z in [0, 1]. With flipY the clip-space y axis is inverted,
// which is required when rendering into a texture whose rows run downwards.
func GPUProjection(proj f32.Mat4, flipY bool) f32.Mat4 {
	m := proj
	for c := range 4 {
		m[2*4+c] = 0.5*proj[2*4+c] + 0.5*proj[3*4+c]
		if flipY {
			m[1*4+c] = -proj[1*4+c]
		}
	}
	return m
}

// ViewProjection returns GPUProjection(cam.Projection, cam.FlipY) * cam.WorldToCamera.
func ViewProjection(cam Camera) f32.Mat4 {
	return Mul(GPUProjection(cam.Projection, cam.FlipY), cam.WorldToCamera)
}
