package gpu

// Extent2D is the size of a 2D image.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Extent3D is the size of a 3D image.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// Texels returns the number of texels covered by e.
func (e Extent2D) Texels() int { return int(e.Width) * int(e.Height) }

// Texels returns the number of texels covered by e.
func (e Extent3D) Texels() int { return int(e.Width) * int(e.Height) * int(e.Depth) }

// To3D returns e as a single-slice 3D extent.
func (e Extent2D) To3D() Extent3D { return Extent3D{Width: e.Width, Height: e.Height, Depth: 1} }

// ImageDesc describes an image with one mip level and one array layer,
// optimal tiling, exclusive sharing, created in the undefined layout.
type ImageDesc struct {
	Label  string
	Type   ImageType
	Format Format
	Extent Extent3D
	Usage  ImageUsage
}

// BufferDesc describes a buffer with exclusive sharing.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	MagFilter    Filter
	MinFilter    Filter
	MipmapMode   MipmapMode
	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode
}

// MemoryType is one memory type exposed by a device.
type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

// MemoryProperties lists the memory types of a device in index order.
type MemoryProperties struct {
	Types []MemoryType
}

// MemoryRequirements are the allocation constraints of an image or buffer.
type MemoryRequirements struct {
	Size uint64
	// TypeBits has bit i set when memory type i may back the resource.
	TypeBits uint32
}

// DescriptorBinding is one binding of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  ShaderStage

	// ImmutableSampler is baked into the layout for combined image samplers.
	ImmutableSampler Sampler

	// ViewType and Format describe the bound image. Backends that cannot
	// infer them from the view at write time need them at layout time.
	ViewType ImageType
	Format   Format
}

// PushConstantRange is a range of push constant memory visible to Stages.
type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

// DescriptorPoolSize is the number of descriptors of one type in a pool.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// ImageInfo is the image part of a descriptor write.
type ImageInfo struct {
	View   ImageView
	Layout ImageLayout
}

// BufferInfo is the buffer part of a descriptor write.
type BufferInfo struct {
	Buffer Buffer
	Offset uint64
	Range  uint64
}

// DescriptorWrite updates a single descriptor.
// Exactly one of Image and Buffer is set, according to Type.
type DescriptorWrite struct {
	Set     DescriptorSet
	Binding uint32
	Type    DescriptorType
	Image   *ImageInfo
	Buffer  *BufferInfo
}

// ShaderSource is a shader program in one of the supported encodings.
// Exactly one of WGSL and SPIRV is set.
type ShaderSource struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// IsZero reports whether s carries no code.
func (s ShaderSource) IsZero() bool { return s.WGSL == "" && len(s.SPIRV) == 0 }

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label      string
	Layout     PipelineLayout
	Module     ShaderModule
	EntryPoint string
}

// BlendState is the blend configuration of the single color attachment.
// A nil *BlendState disables blending.
type BlendState struct {
	SrcColor BlendFactor
	DstColor BlendFactor
	SrcAlpha BlendFactor
	DstAlpha BlendFactor
}

// GraphicsPipelineDesc describes a graphics pipeline drawing a
// triangle list without vertex input, culling or depth testing, with
// dynamic viewport and scissor.
type GraphicsPipelineDesc struct {
	Label          string
	Layout         PipelineLayout
	VertexModule   ShaderModule
	FragmentModule ShaderModule
	EntryPoint     string
	Blend          *BlendState

	// RenderPass and Subpass are used by backends with render pass objects.
	// RenderPass holds the backend's native handle.
	RenderPass any
	Subpass    uint32

	// ColorFormat is used by backends without render pass objects.
	ColorFormat Format
	// DepthFormat is the format of the input attachment, if any.
	DepthFormat Format
}

// ImageBarrier is an image memory barrier covering the single color
// subresource of Image.
type ImageBarrier struct {
	Image     Image
	SrcAccess Access
	DstAccess Access
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcFamily uint32
	DstFamily uint32
}

// BufferBarrier is a buffer memory barrier covering the whole of Buffer.
type BufferBarrier struct {
	Buffer    Buffer
	SrcAccess Access
	DstAccess Access
	SrcFamily uint32
	DstFamily uint32
}

// TransfersOwnership reports whether the barrier is a queue family
// ownership transfer.
func (b ImageBarrier) TransfersOwnership() bool {
	return b.SrcFamily != b.DstFamily
}

// TransfersOwnership reports whether the barrier is a queue family
// ownership transfer.
func (b BufferBarrier) TransfersOwnership() bool {
	return b.SrcFamily != b.DstFamily
}
