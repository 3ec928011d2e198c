package gpu

// Enumerations and flag sets share their numeric values with the
// corresponding Vulkan definitions, so a Vulkan backend can convert them
// with a plain type conversion. Other backends translate them explicitly.

// Format is a texel format.
type Format uint32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR16G16B16A16Sfloat Format = 97
	FormatR32Sfloat          Format = 100
	FormatR32G32B32A32Sfloat Format = 109
	FormatD32Sfloat          Format = 126
)

// BytesPerTexel returns the texel size of f, or 0 for unknown formats.
func (f Format) BytesPerTexel() int {
	switch f {
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatB8G8R8A8Srgb,
		FormatR32Sfloat, FormatD32Sfloat:
		return 4
	case FormatR16G16B16A16Sfloat:
		return 8
	case FormatR32G32B32A32Sfloat:
		return 16
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatR8G8B8A8Unorm:
		return "rgba8unorm"
	case FormatR8G8B8A8Srgb:
		return "rgba8srgb"
	case FormatB8G8R8A8Unorm:
		return "bgra8unorm"
	case FormatB8G8R8A8Srgb:
		return "bgra8srgb"
	case FormatR16G16B16A16Sfloat:
		return "rgba16f"
	case FormatR32Sfloat:
		return "r32f"
	case FormatR32G32B32A32Sfloat:
		return "rgba32f"
	case FormatD32Sfloat:
		return "d32f"
	}
	return "unknown"
}

// ImageType is the dimensionality of an image.
type ImageType uint32

const (
	ImageType1D ImageType = 0
	ImageType2D ImageType = 1
	ImageType3D ImageType = 2
)

// ImageUsage is a set of image usage flags.
type ImageUsage uint32

const (
	ImageUsageTransferSrc     ImageUsage = 0x01
	ImageUsageTransferDst     ImageUsage = 0x02
	ImageUsageSampled         ImageUsage = 0x04
	ImageUsageStorage         ImageUsage = 0x08
	ImageUsageColorAttachment ImageUsage = 0x10
	ImageUsageDepthStencil    ImageUsage = 0x20
	ImageUsageInputAttachment ImageUsage = 0x80
)

// BufferUsage is a set of buffer usage flags.
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x01
	BufferUsageTransferDst BufferUsage = 0x02
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageStorage     BufferUsage = 0x20
)

// ImageLayout is the layout of an image's memory.
type ImageLayout uint32

const (
	ImageLayoutUndefined                     ImageLayout = 0
	ImageLayoutGeneral                       ImageLayout = 1
	ImageLayoutColorAttachmentOptimal        ImageLayout = 2
	ImageLayoutDepthStencilAttachmentOptimal ImageLayout = 3
	ImageLayoutDepthStencilReadOnlyOptimal   ImageLayout = 4
	ImageLayoutShaderReadOnlyOptimal         ImageLayout = 5
	ImageLayoutTransferSrcOptimal            ImageLayout = 6
	ImageLayoutTransferDstOptimal            ImageLayout = 7
)

func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutUndefined:
		return "undefined"
	case ImageLayoutGeneral:
		return "general"
	case ImageLayoutColorAttachmentOptimal:
		return "color-attachment"
	case ImageLayoutDepthStencilAttachmentOptimal:
		return "depth-stencil-attachment"
	case ImageLayoutDepthStencilReadOnlyOptimal:
		return "depth-stencil-read-only"
	case ImageLayoutShaderReadOnlyOptimal:
		return "shader-read-only"
	case ImageLayoutTransferSrcOptimal:
		return "transfer-src"
	case ImageLayoutTransferDstOptimal:
		return "transfer-dst"
	}
	return "unknown"
}

// Access is a set of memory access flags.
type Access uint32

const (
	AccessNone                 Access = 0
	AccessUniformRead          Access = 0x0008
	AccessInputAttachmentRead  Access = 0x0010
	AccessShaderRead           Access = 0x0020
	AccessShaderWrite          Access = 0x0040
	AccessColorAttachmentWrite Access = 0x0100
	AccessTransferRead         Access = 0x0800
	AccessTransferWrite        Access = 0x1000
)

// PipelineStage is a set of pipeline stage flags.
type PipelineStage uint32

const (
	PipelineStageNone                  PipelineStage = 0
	PipelineStageTopOfPipe             PipelineStage = 0x0001
	PipelineStageFragmentShader        PipelineStage = 0x0080
	PipelineStageColorAttachmentOutput PipelineStage = 0x0400
	PipelineStageComputeShader         PipelineStage = 0x0800
	PipelineStageTransfer              PipelineStage = 0x1000
	PipelineStageBottomOfPipe          PipelineStage = 0x2000
)

// MemoryProperty is a set of memory type property flags.
type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal  MemoryProperty = 0x01
	MemoryPropertyHostVisible  MemoryProperty = 0x02
	MemoryPropertyHostCoherent MemoryProperty = 0x04
)

// DescriptorType is the type of a descriptor binding.
type DescriptorType uint32

const (
	DescriptorTypeSampler              DescriptorType = 0
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeSampledImage         DescriptorType = 2
	DescriptorTypeStorageImage         DescriptorType = 3
	DescriptorTypeUniformBuffer        DescriptorType = 6
	DescriptorTypeStorageBuffer        DescriptorType = 7
	DescriptorTypeInputAttachment      DescriptorType = 10
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeSampler:
		return "sampler"
	case DescriptorTypeCombinedImageSampler:
		return "combined-image-sampler"
	case DescriptorTypeSampledImage:
		return "sampled-image"
	case DescriptorTypeStorageImage:
		return "storage-image"
	case DescriptorTypeUniformBuffer:
		return "uniform-buffer"
	case DescriptorTypeStorageBuffer:
		return "storage-buffer"
	case DescriptorTypeInputAttachment:
		return "input-attachment"
	}
	return "unknown"
}

// ShaderStage is a set of shader stage flags.
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x01
	ShaderStageFragment ShaderStage = 0x10
	ShaderStageCompute  ShaderStage = 0x20
)

// BindPoint selects the compute or graphics binding state of a command buffer.
type BindPoint uint32

const (
	BindPointGraphics BindPoint = 0
	BindPointCompute  BindPoint = 1
)

// BlendFactor is a color blend factor.
type BlendFactor uint32

const (
	BlendFactorZero             BlendFactor = 0
	BlendFactorOne              BlendFactor = 1
	BlendFactorSrcColor         BlendFactor = 2
	BlendFactorOneMinusSrcColor BlendFactor = 3
	BlendFactorSrcAlpha         BlendFactor = 6
	BlendFactorOneMinusSrcAlpha BlendFactor = 7
	BlendFactorSrc1Color        BlendFactor = 15
)

// Filter is a texel filter.
type Filter uint32

const (
	FilterNearest Filter = 0
	FilterLinear  Filter = 1
)

// MipmapMode selects how mip levels are sampled.
type MipmapMode uint32

const (
	MipmapModeNearest MipmapMode = 0
	MipmapModeLinear  MipmapMode = 1
)

// AddressMode is the behavior of texture coordinates outside [0,1].
type AddressMode uint32

const (
	AddressModeRepeat         AddressMode = 0
	AddressModeMirroredRepeat AddressMode = 1
	AddressModeClampToEdge    AddressMode = 2
)

const (
	// QueueFamilyIgnored marks a barrier that performs no queue family
	// ownership transfer.
	QueueFamilyIgnored = ^uint32(0)

	// WholeSize selects the remainder of a buffer.
	WholeSize = ^uint64(0)
)
