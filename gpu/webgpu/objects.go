package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
)

// Image is a texture. Images wrapped with Device.WrapView have no texture.
type Image struct {
	tex  *wgpu.Texture
	Desc gpu.ImageDesc
}

// Texture returns the wrapped texture.
func (i *Image) Texture() *wgpu.Texture { return i.tex }

func (i *Image) Destroy() {
	if i.tex != nil {
		i.tex.Release()
	}
}

// ImageView is a view of the whole of Image.
type ImageView struct {
	view  *wgpu.TextureView
	Image *Image
}

// View returns the wrapped texture view.
func (v *ImageView) View() *wgpu.TextureView { return v.view }

func (v *ImageView) Destroy() { v.view.Release() }

type Buffer struct {
	buf  *wgpu.Buffer
	Size uint64
}

func (b *Buffer) Destroy() { b.buf.Release() }

// Memory is a placeholder: WebGPU allocates memory with each resource.
type Memory struct {
	Size uint64
}

func (m *Memory) Destroy() {}

type Sampler struct {
	samp *wgpu.Sampler
}

func (s *Sampler) Destroy() { s.samp.Release() }

type ShaderModule struct {
	mod   *wgpu.ShaderModule
	Label string
}

func (m *ShaderModule) Destroy() { m.mod.Release() }

// PipelineLayout lists its set layouts. When HasPush is set the push
// constant group follows them at index PushGroup.
type PipelineLayout struct {
	layout    *wgpu.PipelineLayout
	Sets      []*DescriptorSetLayout
	PushGroup uint32
	HasPush   bool
}

func (l *PipelineLayout) Destroy() { l.layout.Release() }

// Pipeline holds exactly one of a compute and a render pipeline.
type Pipeline struct {
	compute *wgpu.ComputePipeline
	render  *wgpu.RenderPipeline
	Label   string
}

func (p *Pipeline) Destroy() {
	if p.compute != nil {
		p.compute.Release()
	}
	if p.render != nil {
		p.render.Release()
	}
}
