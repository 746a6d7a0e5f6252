//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ssao"
	"github.com/gogpu/ssao/internal/shaders"
)

// provider is a gpucontext.DeviceProvider over plain hal values.
type provider struct {
	device hal.Device
	queue  hal.Queue
}

func (p provider) Device() gpucontext.Device             { return p.device }
func (p provider) Queue() gpucontext.Queue               { return p.queue }
func (p provider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (p provider) Adapter() gpucontext.Adapter           { return nil }
func (p provider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

// halProvider additionally exposes the hal types the way windowed hosts do.
type halProvider struct {
	provider
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func openNoop(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func TestOpenNoop(t *testing.T) {
	d, err := Open(gputypes.BackendEmpty)
	if err != nil {
		t.Fatalf("Open(noop) error = %v", err)
	}
	defer d.Destroy()

	fx := ssao.New(d)
	defer fx.Dispose()
	if err := fx.Setup(ssao.DefaultSources(shaders.Occlusion, shaders.Blur)); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if got := d.Stats().Programs; got != 2 {
		t.Errorf("Programs = %d, want 2", got)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(gputypes.BackendBrowserWebGPU); !errors.Is(err, ErrNoBackend) {
		t.Errorf("Open(browser) error = %v, want ErrNoBackend", err)
	}
}

func TestNewDevice(t *testing.T) {
	device, queue := openNoop(t)

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
		wantErr  error
	}{
		{"hal provider", halProvider{provider{device, queue}}, nil},
		{"hal values", provider{device, queue}, nil},
		{"missing queue", halProvider{provider{device, nil}}, ErrNoHAL},
		{"no hal", provider{}, ErrNoHAL},
		{"nil", nil, ErrNilDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDevice(tt.provider)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewDevice() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDevice() error = %v", err)
			}
			d.Destroy()
		})
	}
}

func TestWrapTexture(t *testing.T) {
	device, queue := openNoop(t)
	d, err := NewHalDevice(device, queue)
	if err != nil {
		t.Fatalf("NewHalDevice() error = %v", err)
	}
	defer d.Destroy()

	view, err := device.CreateTextureView(nil, &hal.TextureViewDescriptor{Label: "host_depth"})
	if err != nil {
		t.Fatalf("CreateTextureView() error = %v", err)
	}
	tex := WrapTexture(view, 800, 600, gputypes.TextureFormatDepth32Float)
	if tex.Owned() || tex.Width() != 800 || tex.Height() != 600 {
		t.Errorf("wrapped texture = %v", tex)
	}
	if err := d.SetGlobalTexture(ssao.GlobalDepthTexture, tex); err != nil {
		t.Errorf("SetGlobalTexture(wrapped) error = %v", err)
	}

	// Destroying the device leaves host views alone.
	d.Destroy()
	if tex.View() == nil {
		t.Error("wrapped view released by Destroy")
	}
}
