//go:build !nogpu

// Package gpu runs the SSAO effect on wgpu/hal devices.
//
// A Device implements both ssao.Device and ssao.RenderContext, so the same
// value is passed to ssao.New and placed in ssao.FrameInputs:
//
//	dev, err := gpu.NewDevice(provider) // provider exposes HalDevice/HalQueue
//	fx := ssao.New(dev)
//	fx.Setup(ssao.DefaultSources(occlusionWGSL, blurWGSL)) // also uploads the noise tile
//
// Programs are WGSL modules. Their bindings are reflected with naga, so a
// program only has to follow the naming contract: uniforms live in a
// single struct in group 0, textures and samplers are bound by variable
// name, and matrix members named after a published global are filled in
// per blit.
//
// For tests and tools without a window, Open creates a device on a
// registered hal backend:
//
//	dev, err := gpu.Open(gputypes.BackendEmpty) // noop backend
package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"   // headless backend
	_ "github.com/gogpu/wgpu/hal/vulkan" // default hardware backend

	gpuimpl "github.com/gogpu/ssao/internal/gpu"
)

// Device is an ssao.Device and ssao.RenderContext on a hal device.
type Device = gpuimpl.Device

// Texture is a render target created by a Device, or a host view wrapped
// with WrapTexture.
type Texture = gpuimpl.Texture

// Program is a reflected WGSL program created by a Device.
type Program = gpuimpl.Program

// UniformInfo describes a member of a program's uniform block.
type UniformInfo = gpuimpl.UniformInfo

// BindingInfo describes a group 0 binding of a program.
type BindingInfo = gpuimpl.BindingInfo

// Stats reports device activity.
type Stats = gpuimpl.Stats

// Option configures a Device.
type Option = gpuimpl.Option

// NoiseTextureName is the global holding the uploaded noise tile.
const NoiseTextureName = gpuimpl.NoiseTextureName

// Errors returned by Device operations.
var (
	ErrNilDevice          = gpuimpl.ErrNilDevice
	ErrDeviceDestroyed    = gpuimpl.ErrDeviceDestroyed
	ErrForeignProgram     = gpuimpl.ErrForeignProgram
	ErrForeignTexture     = gpuimpl.ErrForeignTexture
	ErrTextureReleased    = gpuimpl.ErrTextureReleased
	ErrUnsupportedBinding = gpuimpl.ErrUnsupportedBinding
	ErrMissingEntryPoint  = gpuimpl.ErrMissingEntryPoint
	ErrFeedbackLoop       = gpuimpl.ErrFeedbackLoop
)

// ErrNoHAL is returned when a provider does not expose wgpu/hal types.
var ErrNoHAL = errors.New("gpu: provider does not expose HAL device and queue")

// ErrNoBackend is returned by Open when the backend is not registered or
// has no adapters.
var ErrNoBackend = errors.New("gpu: backend not available")

// WithSPIRV compiles programs to SPIR-V with naga before handing them to
// the backend.
func WithSPIRV() Option { return gpuimpl.WithSPIRV() }

// WithRelease runs fn at the end of Device.Destroy.
func WithRelease(fn func()) Option { return gpuimpl.WithRelease(fn) }

// NewDevice creates a Device sharing a host's GPU device. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device
// and hal.Queue; otherwise its Device and Queue are used when they are hal
// types themselves. The host keeps ownership of the hal device.
func NewDevice(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if provider == nil {
		return nil, ErrNilDevice
	}
	device, queue, err := halOf(provider)
	if err != nil {
		return nil, err
	}
	return gpuimpl.NewDevice(device, queue, opts...)
}

func halOf(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if hp, ok := provider.(halProvider); ok {
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return nil, nil, fmt.Errorf("HalDevice is %T: %w", hp.HalDevice(), ErrNoHAL)
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return nil, nil, fmt.Errorf("HalQueue is %T: %w", hp.HalQueue(), ErrNoHAL)
		}
		return device, queue, nil
	}

	device, ok := provider.Device().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("device is %T: %w", provider.Device(), ErrNoHAL)
	}
	queue, ok := provider.Queue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("queue is %T: %w", provider.Queue(), ErrNoHAL)
	}
	return device, queue, nil
}

// NewHalDevice creates a Device on a hal device and queue owned by the
// caller.
func NewHalDevice(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	return gpuimpl.NewDevice(device, queue, opts...)
}

// Open creates a Device that owns a new hal device on backend. Discrete
// and integrated GPUs are preferred over other adapters. Destroying the
// Device destroys the hal device and instance.
func Open(backend gputypes.Backend, opts ...Option) (*Device, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%v: %w", backend, ErrNoBackend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%v: no adapters: %w", backend, ErrNoBackend)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	release := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	d, err := gpuimpl.NewDevice(openDev.Device, openDev.Queue, append(opts, WithRelease(release))...)
	if err != nil {
		release()
		return nil, err
	}
	gpuimpl.Logger().Info("gpu: device opened", "backend", backend, "adapter", selected.Info.Name)
	return d, nil
}

// WrapTexture wraps a host-owned texture view, such as a depth buffer or a
// G-buffer channel, for use as a frame input.
func WrapTexture(view hal.TextureView, width, height int, format gputypes.TextureFormat) *Texture {
	return gpuimpl.WrapTexture(view, width, height, format)
}

// SetLogger sets the logger for the GPU adapter. Pass nil to disable
// logging.
func SetLogger(l *slog.Logger) {
	gpuimpl.SetLogger(l)
}
