// Package ssao provides a screen-space ambient occlusion stage for real-time
// renderers built on gogpu.
//
// # Overview
//
// Each frame the stage estimates per-pixel occlusion from the scene depth and
// G-buffer normals, softens it with a horizontal and then a vertical blur, and
// publishes the result under [GlobalOcclusionTexture] for later passes such as
// a lighting composite.
//
// The package does not contain sampling math. The occlusion and blur programs
// are WGSL supplied by the host; ssao orchestrates them: it sizes and reuses
// the off-screen buffers, resolves layered configuration into uniforms, and
// records the passes in order.
//
// # Quick Start
//
//	dev, err := gpu.NewDevice(provider) // gpucontext.DeviceProvider
//	if err != nil {
//	    return err
//	}
//	fx := ssao.New(dev, ssao.WithSettings(settings), ssao.WithVolumes(volumes))
//	if err := fx.Setup(ssao.DefaultSources(occlusionWGSL, blurWGSL)); err != nil {
//	    // logged; the effect stays disabled
//	}
//	defer fx.Dispose()
//
//	// every frame, on the render thread:
//	fx.Configure(target)
//	fx.Execute(ssao.FrameInputs{Context: dev, Depth: depth, GBuffer: gbuf, Camera: cam})
//
// # Configuration
//
// [Settings] and [BlurSettings] are the static configuration. A [Volume]
// from a [VolumeSource] may override individual fields at runtime; [Resolve]
// merges the three into the frame's [Params]. Blur strengths are multiplied
// by [BlurScale] before they reach the blur program.
//
// # Binding Contract
//
// Programs are matched by name. The occlusion program declares a uniform
// struct with radius, intensity, bias and max_depth (f32), and optionally
// quality and sample_count (u32). The blur program declares horizontal_blur
// and vertical_blur. Textures named after the Global* constants receive the
// published values; a texture named "source" receives the blit source.
//
// # Errors
//
// Setup failures are returned and logged, and leave the effect disabled.
// Allocation failures and missing frame inputs skip the frame; they are
// logged once and never returned into the host's frame loop.
//
// # Logging
//
// ssao is silent by default. Use [SetLogger] or [WithLogger] to route its
// diagnostics to a [log/slog.Logger].
package ssao
