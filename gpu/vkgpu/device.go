// Package vkgpu implements the gpu interfaces on top of a caller-owned
// Vulkan device.
//
// The caller creates the instance, picks the physical device and queues,
// and begins and submits command buffers. This package only creates and
// destroys objects and records commands. WGSL sources are compiled to
// SPIR-V with naga before module creation.
package vkgpu

import (
	"fmt"

	"github.com/gekko3d/atmosphere/gpu"
	vk "github.com/goki/vulkan"
	"github.com/gogpu/naga"
)

// Device implements gpu.Device on a vk.Device.
type Device struct {
	dev   vk.Device
	props gpu.MemoryProperties

	// ShaderOptions controls WGSL compilation.
	ShaderOptions naga.CompileOptions
}

// NewDevice wraps dev. mem is the memory layout of its physical device, as
// returned by vk.GetPhysicalDeviceMemoryProperties.
func NewDevice(dev vk.Device, mem vk.PhysicalDeviceMemoryProperties) *Device {
	mem.Deref()
	props := gpu.MemoryProperties{Types: make([]gpu.MemoryType, 0, mem.MemoryTypeCount)}
	for i := uint32(0); i < mem.MemoryTypeCount; i++ {
		t := mem.MemoryTypes[i]
		t.Deref()
		props.Types = append(props.Types, gpu.MemoryType{
			Properties: gpu.MemoryProperty(t.PropertyFlags),
			HeapIndex:  t.HeapIndex,
		})
	}
	return &Device{dev: dev, props: props, ShaderOptions: naga.DefaultOptions()}
}

// Handle returns the wrapped device.
func (d *Device) Handle() vk.Device { return d.dev }

func (d *Device) MemoryProperties() gpu.MemoryProperties { return d.props }

func (d *Device) CreateImage(desc *gpu.ImageDesc) (gpu.Image, error) {
	var img vk.Image
	ret := vk.CreateImage(d.dev, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType(desc.Type),
		Format:    vk.Format(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  desc.Extent.Depth,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if err := NewError("create image "+desc.Label, ret); err != nil {
		return nil, err
	}
	return &Image{dev: d.dev, Handle: img, Desc: *desc}, nil
}

func (d *Device) ImageMemoryRequirements(img gpu.Image) gpu.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img.(*Image).Handle, &req)
	req.Deref()
	return gpu.MemoryRequirements{Size: uint64(req.Size), TypeBits: req.MemoryTypeBits}
}

func (d *Device) CreateBuffer(desc *gpu.BufferDesc) (gpu.Buffer, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(d.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(desc.Usage),
		Size:        vk.DeviceSize(desc.Size),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := NewError("create buffer "+desc.Label, ret); err != nil {
		return nil, err
	}
	return &Buffer{dev: d.dev, Handle: buf, Size: desc.Size}, nil
}

func (d *Device) BufferMemoryRequirements(buf gpu.Buffer) gpu.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf.(*Buffer).Handle, &req)
	req.Deref()
	return gpu.MemoryRequirements{Size: uint64(req.Size), TypeBits: req.MemoryTypeBits}
}

func (d *Device) AllocateMemory(size uint64, memoryType uint32) (gpu.Memory, error) {
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}, nil, &mem)
	if err := NewError("allocate memory", ret); err != nil {
		return nil, err
	}
	return &Memory{dev: d.dev, Handle: mem}, nil
}

func (d *Device) BindImageMemory(img gpu.Image, mem gpu.Memory, offset uint64) error {
	ret := vk.BindImageMemory(d.dev, img.(*Image).Handle, mem.(*Memory).Handle, vk.DeviceSize(offset))
	return NewError("bind image memory", ret)
}

func (d *Device) BindBufferMemory(buf gpu.Buffer, mem gpu.Memory, offset uint64) error {
	ret := vk.BindBufferMemory(d.dev, buf.(*Buffer).Handle, mem.(*Memory).Handle, vk.DeviceSize(offset))
	return NewError("bind buffer memory", ret)
}

func (d *Device) CreateImageView(img gpu.Image) (gpu.ImageView, error) {
	im := img.(*Image)
	var view vk.ImageView
	ret := vk.CreateImageView(d.dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    im.Handle,
		ViewType: viewType(im.Desc.Type),
		Format:   vk.Format(im.Desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect(im.Desc.Format),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if err := NewError("create image view "+im.Desc.Label, ret); err != nil {
		return nil, err
	}
	return &ImageView{dev: d.dev, Handle: view, Image: im}, nil
}

func (d *Device) CreateSampler(desc *gpu.SamplerDesc) (gpu.Sampler, error) {
	var samp vk.Sampler
	ret := vk.CreateSampler(d.dev, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.Filter(desc.MagFilter),
		MinFilter:               vk.Filter(desc.MinFilter),
		MipmapMode:              vk.SamplerMipmapMode(desc.MipmapMode),
		AddressModeU:            vk.SamplerAddressMode(desc.AddressModeU),
		AddressModeV:            vk.SamplerAddressMode(desc.AddressModeV),
		AddressModeW:            vk.SamplerAddressMode(desc.AddressModeW),
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
	}, nil, &samp)
	if err := NewError("create sampler", ret); err != nil {
		return nil, err
	}
	return &Sampler{dev: d.dev, Handle: samp}, nil
}

func (d *Device) CreateShaderModule(src gpu.ShaderSource) (gpu.ShaderModule, error) {
	code := src.SPIRV
	if len(code) == 0 {
		words, err := CompileWGSL(src.WGSL, d.ShaderOptions)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", src.Label, err)
		}
		code = words
	}
	var mod vk.ShaderModule
	ret := vk.CreateShaderModule(d.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}, nil, &mod)
	if err := NewError("create shader module "+src.Label, ret); err != nil {
		return nil, err
	}
	return &ShaderModule{dev: d.dev, Handle: mod, Label: src.Label}, nil
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	binds := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		binds[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
		if b.ImmutableSampler != nil {
			binds[i].PImmutableSamplers = []vk.Sampler{b.ImmutableSampler.(*Sampler).Handle}
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(d.dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(binds)),
		PBindings:    binds,
	}, nil, &layout)
	if err := NewError("create descriptor set layout", ret); err != nil {
		return nil, err
	}
	return &DescriptorSetLayout{dev: d.dev, Handle: layout}, nil
}

func (d *Device) CreatePipelineLayout(sets []gpu.DescriptorSetLayout, push []gpu.PushConstantRange) (gpu.PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		layouts[i] = s.(*DescriptorSetLayout).Handle
	}
	ranges := make([]vk.PushConstantRange, len(push))
	for i, r := range push {
		ranges[i] = vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(r.Stages),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.dev, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layouts)),
		PSetLayouts:            layouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}, nil, &layout)
	if err := NewError("create pipeline layout", ret); err != nil {
		return nil, err
	}
	return &PipelineLayout{dev: d.dev, Handle: layout}, nil
}

// CreatePipelineCache creates an empty pipeline cache.
func (d *Device) CreatePipelineCache() (*PipelineCache, error) {
	var cache vk.PipelineCache
	ret := vk.CreatePipelineCache(d.dev, &vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}, nil, &cache)
	if err := NewError("create pipeline cache", ret); err != nil {
		return nil, err
	}
	return &PipelineCache{dev: d.dev, Handle: cache}, nil
}

func (d *Device) CreateComputePipelines(cache gpu.PipelineCache, descs []gpu.ComputePipelineDesc) ([]gpu.Pipeline, error) {
	infos := make([]vk.ComputePipelineCreateInfo, len(descs))
	for i, desc := range descs {
		infos[i] = vk.ComputePipelineCreateInfo{
			SType:  vk.StructureTypeComputePipelineCreateInfo,
			Layout: desc.Layout.(*PipelineLayout).Handle,
			Stage: vk.PipelineShaderStageCreateInfo{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageComputeBit,
				Module: desc.Module.(*ShaderModule).Handle,
				PName:  cString(desc.EntryPoint),
			},
		}
	}
	handles := make([]vk.Pipeline, len(descs))
	ret := vk.CreateComputePipelines(d.dev, cacheHandle(cache), uint32(len(infos)), infos, nil, handles)
	if IsError(ret) {
		// A failed batch may still have created some of the pipelines.
		for _, h := range handles {
			if h != vk.NullPipeline {
				vk.DestroyPipeline(d.dev, h, nil)
			}
		}
		return nil, NewError("create compute pipelines", ret)
	}
	out := make([]gpu.Pipeline, len(handles))
	for i, h := range handles {
		out[i] = &Pipeline{dev: d.dev, Handle: h, Label: descs[i].Label}
	}
	return out, nil
}

func (d *Device) CreateGraphicsPipeline(cache gpu.PipelineCache, desc *gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	pass, ok := desc.RenderPass.(vk.RenderPass)
	if !ok {
		return nil, fmt.Errorf("vulkan: pipeline %s: render pass must be a vk.RenderPass, got %T", desc.Label, desc.RenderPass)
	}
	entry := cString(desc.EntryPoint)
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: desc.VertexModule.(*ShaderModule).Handle,
			PName:  entry,
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: desc.FragmentModule.(*ShaderModule).Handle,
			PName:  entry,
		},
	}
	blend := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if b := desc.Blend; b != nil {
		blend.BlendEnable = vk.True
		blend.SrcColorBlendFactor = vk.BlendFactor(b.SrcColor)
		blend.DstColorBlendFactor = vk.BlendFactor(b.DstColor)
		blend.ColorBlendOp = vk.BlendOpAdd
		blend.SrcAlphaBlendFactor = vk.BlendFactor(b.SrcAlpha)
		blend.DstAlphaBlendFactor = vk.BlendFactor(b.DstAlpha)
		blend.AlphaBlendOp = vk.BlendOpAdd
	}
	dynamic := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			MinSampleShading:     1,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:          vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthCompareOp: vk.CompareOpAlways,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments:    []vk.PipelineColorBlendAttachmentState{blend},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:     desc.Layout.(*PipelineLayout).Handle,
		RenderPass: pass,
		Subpass:    desc.Subpass,
	}
	handles := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(d.dev, cacheHandle(cache), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, handles)
	if err := NewError("create graphics pipeline "+desc.Label, ret); err != nil {
		return nil, err
	}
	return &Pipeline{dev: d.dev, Handle: handles[0], Label: desc.Label}, nil
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPool, error) {
	ps := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		ps[i] = vk.DescriptorPoolSize{Type: vk.DescriptorType(s.Type), DescriptorCount: s.Count}
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(ps)),
		PPoolSizes:    ps,
	}, nil, &pool)
	if err := NewError("create descriptor pool", ret); err != nil {
		return nil, err
	}
	return &DescriptorPool{dev: d.dev, Handle: pool}, nil
}

func (d *Device) AllocateDescriptorSets(pool gpu.DescriptorPool, layouts []gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	p := pool.(*DescriptorPool)
	if len(layouts) == 0 {
		return nil, nil
	}
	ls := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		ls[i] = l.(*DescriptorSetLayout).Handle
	}
	sets := make([]vk.DescriptorSet, len(ls))
	ret := vk.AllocateDescriptorSets(d.dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: uint32(len(ls)),
		PSetLayouts:        ls,
	}, &sets[0])
	if err := NewError("allocate descriptor sets", ret); err != nil {
		return nil, err
	}
	out := make([]gpu.DescriptorSet, len(sets))
	for i, s := range sets {
		out[i] = &DescriptorSet{pool: p, Handle: s}
	}
	return out, nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	vw := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		vw[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          w.Set.(*DescriptorSet).Handle,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
		}
		switch {
		case w.Image != nil:
			vw[i].PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   w.Image.View.(*ImageView).Handle,
				ImageLayout: vk.ImageLayout(w.Image.Layout),
			}}
		case w.Buffer != nil:
			vw[i].PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: w.Buffer.Buffer.(*Buffer).Handle,
				Offset: vk.DeviceSize(w.Buffer.Offset),
				Range:  vk.DeviceSize(w.Buffer.Range),
			}}
		}
	}
	vk.UpdateDescriptorSets(d.dev, uint32(len(vw)), vw, 0, nil)
}

func viewType(t gpu.ImageType) vk.ImageViewType {
	switch t {
	case gpu.ImageType1D:
		return vk.ImageViewType1d
	case gpu.ImageType3D:
		return vk.ImageViewType3d
	}
	return vk.ImageViewType2d
}

func aspect(f gpu.Format) vk.ImageAspectFlags {
	if f == gpu.FormatD32Sfloat {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// cString returns s NUL terminated, defaulting to "main".
func cString(s string) string {
	if s == "" {
		s = "main"
	}
	return s + "\x00"
}
