// Package webgpu implements the gpu interfaces on top of
// github.com/cogentcore/webgpu.
//
// WebGPU has no explicit memory, layouts or queue families. Memory is a
// token, image layouts and queue families in barriers are validated
// against the recorded history and then dropped, and barriers end the
// current compute pass. Descriptor sets are rebuilt into bind groups when
// bound after a write. Push constants are emulated with a uniform ring
// bound, with a dynamic offset, as the group after the declared sets.
package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
)

const (
	// pushSlotSize is the stride of the push constant ring. It matches the
	// minimum uniform buffer offset alignment.
	pushSlotSize = 256
	// pushSlots is the number of pushes one command buffer can record.
	pushSlots = 256
)

// Device implements gpu.Device on a *wgpu.Device.
type Device struct {
	dev   *wgpu.Device
	queue *wgpu.Queue

	// pushLayout is the layout of the push constant group shared by every
	// pipeline layout with push ranges.
	pushLayout *wgpu.BindGroupLayout
}

// NewDevice wraps dev. The caller keeps ownership of dev; Release frees
// what NewDevice created.
func NewDevice(dev *wgpu.Device) (*Device, error) {
	pushLayout, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "push constants",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   pushSlotSize,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: push constant layout: %w", err)
	}
	return &Device{dev: dev, queue: dev.GetQueue(), pushLayout: pushLayout}, nil
}

// Release frees the objects owned by d.
func (d *Device) Release() {
	d.pushLayout.Release()
}

// WGPU returns the wrapped device.
func (d *Device) WGPU() *wgpu.Device { return d.dev }

// Queue returns the device queue.
func (d *Device) Queue() *wgpu.Queue { return d.queue }

// MemoryProperties reports a single memory type that serves every request.
func (d *Device) MemoryProperties() gpu.MemoryProperties {
	return gpu.MemoryProperties{Types: []gpu.MemoryType{{
		Properties: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible,
	}}}
}

func (d *Device) CreateImage(desc *gpu.ImageDesc) (gpu.Image, error) {
	format, err := TextureFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	tex, err := d.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Size:      wgpu.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, DepthOrArrayLayers: desc.Extent.Depth},
		Dimension: textureDimension(desc.Type),
		Format:    format,
		Usage:     textureUsage(desc.Usage),

		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create texture %s: %w", desc.Label, err)
	}
	return &Image{tex: tex, Desc: *desc}, nil
}

func (d *Device) ImageMemoryRequirements(img gpu.Image) gpu.MemoryRequirements {
	desc := img.(*Image).Desc
	return gpu.MemoryRequirements{
		Size:     uint64(desc.Extent.Texels() * desc.Format.BytesPerTexel()),
		TypeBits: 1,
	}
}

func (d *Device) CreateBuffer(desc *gpu.BufferDesc) (gpu.Buffer, error) {
	buf, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create buffer %s: %w", desc.Label, err)
	}
	return &Buffer{buf: buf, Size: desc.Size}, nil
}

func (d *Device) BufferMemoryRequirements(buf gpu.Buffer) gpu.MemoryRequirements {
	return gpu.MemoryRequirements{Size: buf.(*Buffer).Size, TypeBits: 1}
}

func (d *Device) AllocateMemory(size uint64, memoryType uint32) (gpu.Memory, error) {
	if memoryType != 0 {
		return nil, fmt.Errorf("webgpu: memory type %d out of range", memoryType)
	}
	return &Memory{Size: size}, nil
}

func (d *Device) BindImageMemory(img gpu.Image, mem gpu.Memory, offset uint64) error { return nil }

func (d *Device) BindBufferMemory(buf gpu.Buffer, mem gpu.Memory, offset uint64) error { return nil }

func (d *Device) CreateImageView(img gpu.Image) (gpu.ImageView, error) {
	im := img.(*Image)
	format, err := TextureFormat(im.Desc.Format)
	if err != nil {
		return nil, err
	}
	aspect := wgpu.TextureAspectAll
	if im.Desc.Format == gpu.FormatD32Sfloat {
		aspect = wgpu.TextureAspectDepthOnly
	}
	view, err := im.tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           im.Desc.Label,
		Format:          format,
		Dimension:       viewDimension(im.Desc.Type),
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create view %s: %w", im.Desc.Label, err)
	}
	return &ImageView{view: view, Image: im}, nil
}

// WrapView wraps a texture view created outside this package, such as a
// depth buffer owned by the application. Destroying the result releases
// view.
func (d *Device) WrapView(view *wgpu.TextureView, format gpu.Format, extent gpu.Extent2D) *ImageView {
	return &ImageView{view: view, Image: &Image{Desc: gpu.ImageDesc{
		Type:   gpu.ImageType2D,
		Format: format,
		Extent: extent.To3D(),
	}}}
}

func (d *Device) CreateSampler(desc *gpu.SamplerDesc) (gpu.Sampler, error) {
	samp, err := d.dev.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  addressMode(desc.AddressModeU),
		AddressModeV:  addressMode(desc.AddressModeV),
		AddressModeW:  addressMode(desc.AddressModeW),
		MagFilter:     filterMode(desc.MagFilter),
		MinFilter:     filterMode(desc.MinFilter),
		MipmapFilter:  mipmapMode(desc.MipmapMode),
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create sampler: %w", err)
	}
	return &Sampler{samp: samp}, nil
}

func (d *Device) CreateShaderModule(src gpu.ShaderSource) (gpu.ShaderModule, error) {
	mod, err := d.dev.CreateShaderModule(shaderDescriptor(src))
	if err != nil {
		return nil, fmt.Errorf("webgpu: shader %s: %w", src.Label, err)
	}
	return &ShaderModule{mod: mod, Label: src.Label}, nil
}

// shaderDescriptor prefers WGSL. SPIR-V words go to wgpu as little-endian
// bytes.
func shaderDescriptor(src gpu.ShaderSource) *wgpu.ShaderModuleDescriptor {
	desc := &wgpu.ShaderModuleDescriptor{Label: src.Label}
	if src.WGSL != "" {
		desc.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: src.WGSL}
	} else {
		desc.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: gpu.SPIRVBytes(src.SPIRV)}
	}
	return desc
}

func (d *Device) CreatePipelineLayout(sets []gpu.DescriptorSetLayout, push []gpu.PushConstantRange) (gpu.PipelineLayout, error) {
	pl := &PipelineLayout{Sets: make([]*DescriptorSetLayout, len(sets))}
	groups := make([]*wgpu.BindGroupLayout, 0, len(sets)+1)
	for i, s := range sets {
		pl.Sets[i] = s.(*DescriptorSetLayout)
		groups = append(groups, pl.Sets[i].layout)
	}
	for _, r := range push {
		if r.Offset+r.Size > pushSlotSize {
			return nil, fmt.Errorf("%w: push range %d+%d exceeds %d bytes", ErrUnsupported, r.Offset, r.Size, pushSlotSize)
		}
	}
	if len(push) > 0 {
		pl.PushGroup = uint32(len(sets))
		pl.HasPush = true
		groups = append(groups, d.pushLayout)
	}
	layout, err := d.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{BindGroupLayouts: groups})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create pipeline layout: %w", err)
	}
	pl.layout = layout
	return pl, nil
}

func (d *Device) CreateComputePipelines(cache gpu.PipelineCache, descs []gpu.ComputePipelineDesc) ([]gpu.Pipeline, error) {
	out := make([]gpu.Pipeline, 0, len(descs))
	for _, desc := range descs {
		p, err := d.dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  desc.Label,
			Layout: desc.Layout.(*PipelineLayout).layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     desc.Module.(*ShaderModule).mod,
				EntryPoint: entryPoint(desc.EntryPoint),
			},
		})
		if err != nil {
			for _, made := range out {
				made.Destroy()
			}
			return nil, fmt.Errorf("webgpu: compute pipeline %s: %w", desc.Label, err)
		}
		out = append(out, &Pipeline{compute: p, Label: desc.Label})
	}
	return out, nil
}

func (d *Device) CreateGraphicsPipeline(cache gpu.PipelineCache, desc *gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	format, err := TextureFormat(desc.ColorFormat)
	if err != nil {
		return nil, fmt.Errorf("webgpu: pipeline %s: %w", desc.Label, err)
	}
	blend, err := blendState(desc.Blend)
	if err != nil {
		return nil, fmt.Errorf("webgpu: pipeline %s: %w", desc.Label, err)
	}
	entry := entryPoint(desc.EntryPoint)
	p, err := d.dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: desc.Layout.(*PipelineLayout).layout,
		Vertex: wgpu.VertexState{
			Module:     desc.VertexModule.(*ShaderModule).mod,
			EntryPoint: entry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     desc.FragmentModule.(*ShaderModule).mod,
			EntryPoint: entry,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: render pipeline %s: %w", desc.Label, err)
	}
	return &Pipeline{render: p, Label: desc.Label}, nil
}

func entryPoint(s string) string {
	if s == "" {
		return "main"
	}
	return s
}

var _ gpu.Device = (*Device)(nil)
