package ssao

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Global identifiers published into the command sequence. They double as the
// WGSL variable names a program declares to receive the published value.
const (
	GlobalViewProjection   = "ssao_view_projection"
	GlobalDepthTexture     = "camera_depth_texture"
	GlobalNormalsTexture   = "gbuffer_normals"
	GlobalOcclusionTexture = "ssao_texture"
)

// NormalsChannel is the G-buffer channel holding scene-space normals.
const NormalsChannel = 2

// UniformID identifies a uniform slot of a program. IDs are resolved once
// through Program.UniformID and stay valid for the life of the program.
type UniformID int

// InvalidUniform is never returned for a declared uniform.
const InvalidUniform UniformID = -1

// ProgramSource describes a shader program to create.
type ProgramSource struct {
	// Name labels the program and the GPU objects created for it.
	Name string

	// WGSL is the program source.
	WGSL string

	// VertexEntry is the vertex entry point. Empty selects the first vertex
	// entry point of the module.
	VertexEntry string

	// Passes lists fragment entry points. Pass i of a blit runs Passes[i].
	// Empty selects every fragment entry point in declaration order.
	Passes []string

	// Keywords is the program's exclusive keyword group.
	Keywords []string
}

// Device creates and destroys programs and render targets on behalf of
// the effect. Implementations are provided by the host renderer; package
// gpu provides one for wgpu/hal devices.
type Device interface {
	CreateProgram(src ProgramSource) (Program, error)
	DestroyProgram(p Program)
	CreateTexture(desc TextureDescriptor) (Texture, error)
	DestroyTexture(t Texture)
}

// NoiseUploader is an optional Device capability. When the device
// implements it, Setup uploads the effect's noise tile through it.
type NoiseUploader interface {
	UploadNoise(noise []f32.Vec3) (Texture, error)
}

// Program is a compiled shader program with its own uniform state.
type Program interface {
	Name() string

	// Passes returns the number of fragment passes a blit may select.
	Passes() int

	// UniformID resolves a uniform by name. It returns an error wrapping
	// ErrUnknownUniform when the program declares no such uniform.
	UniformID(name string) (UniformID, error)

	SetFloat(id UniformID, v float32)
	SetUint(id UniformID, v uint32)

	// EnableKeyword enables name and clears every other keyword of the
	// program's exclusive group.
	EnableKeyword(name string) error

	// EnabledKeywords lists the active keywords.
	EnabledKeywords() []string
}

// Texture is a read-only view of a GPU texture, suitable for sampling or as
// a blit destination. Ownership stays with whoever created it.
type Texture interface {
	gpucontext.Texture
	Format() gputypes.TextureFormat
}

// GBuffer provides the host's G-buffer channels.
type GBuffer interface {
	// GBufferChannel returns channel index, or nil when the channel is absent.
	GBufferChannel(index int) Texture
}

// GBufferFunc adapts a function to the GBuffer interface.
type GBufferFunc func(index int) Texture

// GBufferChannel calls f(index).
func (f GBufferFunc) GBufferChannel(index int) Texture {
	return f(index)
}

// RenderContext hands out command recorders and submits them.
type RenderContext interface {
	BeginCommands(label string) (CommandRecorder, error)

	// Submit queues the recorded commands. Global assignments recorded with
	// SetGlobalMatrix and SetGlobalTexture become visible on submission.
	Submit(rec CommandRecorder) error
}

// CommandRecorder records one frame's commands.
type CommandRecorder interface {
	SetGlobalMatrix(name string, m f32.Mat4)

	// SetGlobalTexture publishes t under name. A nil t removes the global.
	SetGlobalTexture(name string, t Texture)

	// Blit runs pass of p as a fullscreen draw into dst. A nil src leaves the
	// program's source binding to the published globals.
	Blit(src, dst Texture, p Program, pass int) error

	// Discard drops everything recorded so far.
	Discard()
}

// Camera carries the transforms the occlusion pass consumes.
type Camera struct {
	// Projection maps view space to clip space with z in [-1, 1].
	Projection f32.Mat4

	// WorldToCamera maps world space to view space.
	WorldToCamera f32.Mat4

	// FlipY inverts clip-space y, for targets whose rows run top to bottom.
	FlipY bool
}

// FrameInputs is everything Execute needs from the host for one frame.
type FrameInputs struct {
	Context RenderContext
	Depth   Texture
	GBuffer GBuffer
	Camera  Camera
}
