package vkgpu

import (
	"github.com/gekko3d/atmosphere/gpu"
	vk "github.com/goki/vulkan"
)

// Image wraps a vk.Image together with the description it was created from.
type Image struct {
	dev    vk.Device
	Handle vk.Image
	Desc   gpu.ImageDesc
}

func (i *Image) Destroy() { vk.DestroyImage(i.dev, i.Handle, nil) }

// ImageView wraps a vk.ImageView.
type ImageView struct {
	dev    vk.Device
	Handle vk.ImageView
	Image  *Image
}

func (v *ImageView) Destroy() { vk.DestroyImageView(v.dev, v.Handle, nil) }

// Buffer wraps a vk.Buffer.
type Buffer struct {
	dev    vk.Device
	Handle vk.Buffer
	Size   uint64
}

func (b *Buffer) Destroy() { vk.DestroyBuffer(b.dev, b.Handle, nil) }

// Memory wraps a vk.DeviceMemory.
type Memory struct {
	dev    vk.Device
	Handle vk.DeviceMemory
}

func (m *Memory) Destroy() { vk.FreeMemory(m.dev, m.Handle, nil) }

// Sampler wraps a vk.Sampler.
type Sampler struct {
	dev    vk.Device
	Handle vk.Sampler
}

func (s *Sampler) Destroy() { vk.DestroySampler(s.dev, s.Handle, nil) }

// ShaderModule wraps a vk.ShaderModule.
type ShaderModule struct {
	dev    vk.Device
	Handle vk.ShaderModule
	Label  string
}

func (s *ShaderModule) Destroy() { vk.DestroyShaderModule(s.dev, s.Handle, nil) }

// DescriptorSetLayout wraps a vk.DescriptorSetLayout.
type DescriptorSetLayout struct {
	dev    vk.Device
	Handle vk.DescriptorSetLayout
}

func (l *DescriptorSetLayout) Destroy() { vk.DestroyDescriptorSetLayout(l.dev, l.Handle, nil) }

// PipelineLayout wraps a vk.PipelineLayout.
type PipelineLayout struct {
	dev    vk.Device
	Handle vk.PipelineLayout
}

func (l *PipelineLayout) Destroy() { vk.DestroyPipelineLayout(l.dev, l.Handle, nil) }

// Pipeline wraps a compute or graphics vk.Pipeline.
type Pipeline struct {
	dev    vk.Device
	Handle vk.Pipeline
	Label  string
}

func (p *Pipeline) Destroy() { vk.DestroyPipeline(p.dev, p.Handle, nil) }

// PipelineCache wraps a vk.PipelineCache.
type PipelineCache struct {
	dev    vk.Device
	Handle vk.PipelineCache
}

func (c *PipelineCache) Destroy() { vk.DestroyPipelineCache(c.dev, c.Handle, nil) }

// DescriptorPool wraps a vk.DescriptorPool. Destroying it frees its sets.
type DescriptorPool struct {
	dev    vk.Device
	Handle vk.DescriptorPool
}

func (p *DescriptorPool) Destroy() { vk.DestroyDescriptorPool(p.dev, p.Handle, nil) }

// DescriptorSet wraps a vk.DescriptorSet.
type DescriptorSet struct {
	pool   *DescriptorPool
	Handle vk.DescriptorSet
}

func (s *DescriptorSet) Pool() gpu.DescriptorPool { return s.pool }

func cacheHandle(c gpu.PipelineCache) vk.PipelineCache {
	if c == nil {
		return vk.PipelineCache(vk.NullHandle)
	}
	return c.(*PipelineCache).Handle
}
