package atmosphere

import (
	"sync/atomic"

	"github.com/gekko3d/atmosphere/gpu"
)

type pass struct {
	setLayout gpu.DescriptorSetLayout
	layout    gpu.PipelineLayout
	shader    gpu.ShaderModule
	pipeline  gpu.Pipeline
}

func (p *pass) destroy() {
	p.pipeline.Destroy()
	p.shader.Destroy()
	p.layout.Destroy()
	p.setLayout.Destroy()
}

type builderConfig struct {
	log        Logger
	entryPoint string
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig)

// WithLogger sets the logger of the Builder and everything it creates.
func WithLogger(l Logger) BuilderOption {
	return func(c *builderConfig) { c.log = l }
}

// WithEntryPoint sets the entry point of every shader. The default is "main".
func WithEntryPoint(name string) BuilderOption {
	return func(c *builderConfig) { c.entryPoint = name }
}

// Builder holds the pipelines and layouts shared by every precomputation
// and renderer. It is read-only once constructed, so Build may be called
// concurrently with distinct command buffers.
type Builder struct {
	dev           gpu.Device
	alloc         *allocator
	log           Logger
	entryPoint    string
	shaders       ShaderSet
	gfxFamily     uint32
	computeFamily uint32
	crossQueue    bool

	sampler      gpu.Sampler
	paramsLayout gpu.DescriptorSetLayout
	renderLayout gpu.DescriptorSetLayout
	frameLayout  gpu.DescriptorSetLayout
	passes       [passCount]pass

	dependents atomic.Int64
	destroyed  atomic.Bool
}

// NewBuilder creates the compute pipelines of the precomputation.
//
// computeFamily is the queue family the precomputation is submitted to,
// or nil when it runs on the graphics queue. When it names a family other
// than gfxFamily, every Build ends with a release of the lookup tables to
// gfxFamily, which the graphics queue completes with AcquireOwnership.
func NewBuilder(dev gpu.Device, shaders ShaderSet, cache gpu.PipelineCache, gfxFamily uint32, computeFamily *uint32, opts ...BuilderOption) (*Builder, error) {
	cfg := builderConfig{log: NewNopLogger(), entryPoint: "main"}
	for _, o := range opts {
		o(&cfg)
	}
	if err := shaders.require(ComputeShaders...); err != nil {
		return nil, setupErr("new builder", err)
	}

	b := &Builder{
		dev:        dev,
		alloc:      newAllocator(dev),
		log:        cfg.log,
		entryPoint: cfg.entryPoint,
		shaders:    shaders,
		gfxFamily:  gfxFamily,
	}
	if computeFamily != nil && *computeFamily != gfxFamily {
		b.computeFamily = *computeFamily
		b.crossQueue = true
	}

	var undo releaseStack
	fail := func(what string, err error) (*Builder, error) {
		undo.run()
		return nil, setupErr("new builder: "+what, err)
	}

	var err error
	b.sampler, err = dev.CreateSampler(&gpu.SamplerDesc{
		MagFilter:    gpu.FilterLinear,
		MinFilter:    gpu.FilterLinear,
		MipmapMode:   gpu.MipmapModeNearest,
		AddressModeU: gpu.AddressModeClampToEdge,
		AddressModeV: gpu.AddressModeClampToEdge,
		AddressModeW: gpu.AddressModeClampToEdge,
	})
	if err != nil {
		return fail("sampler", err)
	}
	undo.push(b.sampler.Destroy)

	b.paramsLayout, err = dev.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Stages: gpu.ShaderStageCompute},
	})
	if err != nil {
		return fail("params layout", err)
	}
	undo.push(b.paramsLayout.Destroy)

	for k := PassKind(0); k < passCount; k++ {
		desc := &passTable[k]
		p := &b.passes[k]
		p.setLayout, err = dev.CreateDescriptorSetLayout(desc.bindings(b.sampler))
		if err != nil {
			return fail(k.String()+" set layout", err)
		}
		undo.push(p.setLayout.Destroy)
	}
	for k := PassKind(0); k < passCount; k++ {
		desc := &passTable[k]
		p := &b.passes[k]
		p.layout, err = dev.CreatePipelineLayout(
			[]gpu.DescriptorSetLayout{b.paramsLayout, p.setLayout},
			desc.pushRanges(),
		)
		if err != nil {
			return fail(k.String()+" pipeline layout", err)
		}
		undo.push(p.layout.Destroy)
	}

	b.renderLayout, err = dev.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Stages: gpu.ShaderStageFragment},
		{
			Binding: 1, Type: gpu.DescriptorTypeCombinedImageSampler, Stages: gpu.ShaderStageFragment,
			ImmutableSampler: b.sampler,
			ViewType:         roleTransmittance.imageType(),
			Format:           roleTransmittance.format(),
		},
		{
			Binding: 2, Type: gpu.DescriptorTypeCombinedImageSampler, Stages: gpu.ShaderStageFragment,
			ImmutableSampler: b.sampler,
			ViewType:         roleScattering.imageType(),
			Format:           roleScattering.format(),
		},
	})
	if err != nil {
		return fail("render layout", err)
	}
	undo.push(b.renderLayout.Destroy)

	b.frameLayout, err = dev.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeInputAttachment, Stages: gpu.ShaderStageFragment, ViewType: gpu.ImageType2D},
	})
	if err != nil {
		return fail("frame layout", err)
	}
	undo.push(b.frameLayout.Destroy)

	for k := PassKind(0); k < passCount; k++ {
		p := &b.passes[k]
		p.shader, err = dev.CreateShaderModule(shaders[passTable[k].shader])
		if err != nil {
			return fail(k.String()+" shader", err)
		}
		undo.push(p.shader.Destroy)
	}

	descs := make([]gpu.ComputePipelineDesc, passCount)
	for k := PassKind(0); k < passCount; k++ {
		descs[k] = gpu.ComputePipelineDesc{
			Label:      k.String(),
			Layout:     b.passes[k].layout,
			Module:     b.passes[k].shader,
			EntryPoint: b.entryPoint,
		}
	}
	pipelines, err := dev.CreateComputePipelines(cache, descs)
	if err != nil {
		return fail("compute pipelines", err)
	}
	for k := range b.passes {
		b.passes[k].pipeline = pipelines[k]
	}

	b.log.Debugf("atmosphere builder ready: %d passes, cross-queue %v", passCount, b.crossQueue)
	return b, nil
}

// Destroy releases the pipelines and layouts. Every Atmosphere,
// PendingAtmosphere and Renderer created from b must be destroyed first.
func (b *Builder) Destroy() {
	if n := b.dependents.Load(); n > 0 {
		precondition("Builder.Destroy", "%d dependents still alive", n)
	}
	if !b.destroyed.CompareAndSwap(false, true) {
		precondition("Builder.Destroy", "already destroyed")
	}
	for k := range b.passes {
		b.passes[k].destroy()
	}
	b.frameLayout.Destroy()
	b.renderLayout.Destroy()
	b.paramsLayout.Destroy()
	b.sampler.Destroy()
}

// Dependents returns the number of live objects created from b.
func (b *Builder) Dependents() int { return int(b.dependents.Load()) }

func (b *Builder) retain(op string) {
	if b.destroyed.Load() {
		precondition(op, "builder destroyed")
	}
	b.dependents.Add(1)
}

func (b *Builder) release() {
	if b.dependents.Add(-1) < 0 {
		panic("atmosphere: builder dependent count went negative")
	}
}

// RenderLayout is the descriptor set layout of Atmosphere.DescriptorSet.
func (b *Builder) RenderLayout() gpu.DescriptorSetLayout { return b.renderLayout }

// FrameLayout is the descriptor set layout of the per-frame depth input.
func (b *Builder) FrameLayout() gpu.DescriptorSetLayout { return b.frameLayout }

// Sampler is the sampler baked into every layout that samples a table.
func (b *Builder) Sampler() gpu.Sampler { return b.sampler }

// Families returns the graphics family, the compute family, and whether
// the precomputation transfers ownership between them.
func (b *Builder) Families() (gfx, compute uint32, crossQueue bool) {
	return b.gfxFamily, b.computeFamily, b.crossQueue
}
