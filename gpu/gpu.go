// Package gpu defines the graphics and compute capabilities consumed by the
// atmosphere precomputation and renderer.
//
// The interfaces follow Vulkan semantics: explicit memory binding, explicit
// image layouts, pipeline barriers with queue family ownership, descriptor
// pools and push constants. Backends that lack some of these concepts
// (see package webgpu) emulate or validate-and-ignore them.
//
// Creation methods return errors. Recording methods on CommandBuffer do not;
// misuse during recording is reported by the backend when the command
// buffer is finished or submitted.
package gpu

// Destroyer is implemented by every object that owns memory outside the Go
// heap. Destroy must be called exactly once, after the GPU has stopped
// using the object.
type Destroyer interface {
	Destroy()
}

type (
	// Image is a 1D, 2D or 3D image.
	Image interface{ Destroyer }
	// ImageView is a view covering a whole Image.
	ImageView interface{ Destroyer }
	// Buffer is a linear buffer.
	Buffer interface{ Destroyer }
	// Memory is a device memory allocation.
	Memory interface{ Destroyer }
	// Sampler is a texture sampler.
	Sampler interface{ Destroyer }
	// ShaderModule is a compiled shader program.
	ShaderModule interface{ Destroyer }
	// DescriptorSetLayout describes the bindings of a descriptor set.
	DescriptorSetLayout interface{ Destroyer }
	// PipelineLayout is an ordered list of set layouts plus push constant ranges.
	PipelineLayout interface{ Destroyer }
	// Pipeline is a compute or graphics pipeline.
	Pipeline interface{ Destroyer }
	// PipelineCache is an optional cache for pipeline compilation.
	// A nil PipelineCache is valid wherever one is accepted.
	PipelineCache interface{ Destroyer }
	// DescriptorPool owns descriptor sets. Destroying it frees its sets.
	DescriptorPool interface{ Destroyer }
)

// DescriptorSet is a set of descriptors allocated from a DescriptorPool.
// It has no Destroy method: sets are freed with their pool.
type DescriptorSet interface {
	Pool() DescriptorPool
}

// Device creates GPU objects.
type Device interface {
	// MemoryProperties returns the memory types of the physical device.
	MemoryProperties() MemoryProperties

	CreateImage(desc *ImageDesc) (Image, error)
	ImageMemoryRequirements(img Image) MemoryRequirements
	CreateBuffer(desc *BufferDesc) (Buffer, error)
	BufferMemoryRequirements(buf Buffer) MemoryRequirements
	AllocateMemory(size uint64, memoryType uint32) (Memory, error)
	BindImageMemory(img Image, mem Memory, offset uint64) error
	BindBufferMemory(buf Buffer, mem Memory, offset uint64) error

	// CreateImageView creates a view of the whole image with identity
	// swizzle, typed after the image.
	CreateImageView(img Image) (ImageView, error)
	CreateSampler(desc *SamplerDesc) (Sampler, error)
	CreateShaderModule(src ShaderSource) (ShaderModule, error)

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	CreatePipelineLayout(sets []DescriptorSetLayout, push []PushConstantRange) (PipelineLayout, error)

	// CreateComputePipelines creates one pipeline per desc, in order.
	// On error no pipeline is returned and none is left alive.
	CreateComputePipelines(cache PipelineCache, descs []ComputePipelineDesc) ([]Pipeline, error)
	CreateGraphicsPipeline(cache PipelineCache, desc *GraphicsPipelineDesc) (Pipeline, error)

	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (DescriptorPool, error)
	// AllocateDescriptorSets allocates one set per layout, in order.
	AllocateDescriptorSets(pool DescriptorPool, layouts []DescriptorSetLayout) ([]DescriptorSet, error)
	UpdateDescriptorSets(writes []DescriptorWrite)
}

// CommandBuffer records GPU commands. The caller begins, ends and submits
// the underlying command buffer.
type CommandBuffer interface {
	// UpdateBuffer writes data into buf at offset. len(data) must be a
	// multiple of 4 and at most 65536.
	UpdateBuffer(buf Buffer, offset uint64, data []byte)

	PipelineBarrier(src, dst PipelineStage, buffers []BufferBarrier, images []ImageBarrier)

	// ClearColorImage fills img, which must be in layout, with color.
	ClearColorImage(img Image, layout ImageLayout, color [4]float32)

	BindPipeline(bp BindPoint, p Pipeline)
	BindDescriptorSets(bp BindPoint, layout PipelineLayout, first uint32, sets []DescriptorSet)
	PushConstants(layout PipelineLayout, stages ShaderStage, offset uint32, data []byte)

	// Dispatch dispatches x*y*z workgroups.
	Dispatch(x, y, z uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}
