package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Features the atmosphere tables need: linear filtering of rgba32float.
var Features = []wgpu.FeatureName{wgpu.FeatureNameFloat32Filterable}

// Context owns an adapter and a device, plus the surface and its
// configuration when created with NewSurfaceContext.
type Context struct {
	Adapter *wgpu.Adapter
	Device  *Device

	Surface       *wgpu.Surface
	SurfaceConfig *wgpu.SurfaceConfiguration
}

// NewContext opens a device without a surface.
func NewContext(label string, features []wgpu.FeatureName) (*Context, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	return open(instance, nil, label, features)
}

// NewSurfaceContext creates a surface from desc and opens a device that
// can present to it, configured for width x height with vsync.
func NewSurfaceContext(desc *wgpu.SurfaceDescriptor, width, height uint32, label string, features []wgpu.FeatureName) (*Context, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(desc)
	c, err := open(instance, surface, label, features)
	if err != nil {
		surface.Release()
		return nil, err
	}
	caps := surface.GetCapabilities(c.Adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		c.Release()
		return nil, fmt.Errorf("webgpu: surface has no usable format")
	}
	c.Surface = surface
	c.SurfaceConfig = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(c.Adapter, c.Device.WGPU(), c.SurfaceConfig)
	return c, nil
}

func open(instance *wgpu.Instance, surface *wgpu.Surface, label string, features []wgpu.FeatureName) (*Context, error) {
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	for _, f := range features {
		if !adapter.HasFeature(f) {
			adapter.Release()
			return nil, fmt.Errorf("%w: adapter lacks feature %d", ErrUnsupported, f)
		}
	}
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            label,
		RequiredFeatures: features,
	})
	if err != nil {
		adapter.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	d, err := NewDevice(dev)
	if err != nil {
		dev.Release()
		adapter.Release()
		return nil, err
	}
	return &Context{Adapter: adapter, Device: d}, nil
}

// Resize reconfigures the surface.
func (c *Context) Resize(width, height uint32) {
	if c.Surface == nil || width == 0 || height == 0 {
		return
	}
	c.SurfaceConfig.Width, c.SurfaceConfig.Height = width, height
	c.Surface.Configure(c.Adapter, c.Device.WGPU(), c.SurfaceConfig)
}

// Release frees the device, the surface and the adapter.
func (c *Context) Release() {
	c.Device.Release()
	c.Device.WGPU().Release()
	if c.Surface != nil {
		c.Surface.Release()
	}
	c.Adapter.Release()
}
