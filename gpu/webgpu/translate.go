package webgpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
)

// SamplerBindingOffset is added to the binding number of a combined image
// sampler to get the binding of its sampler half. WGSL declares the two
// separately:
//
//	@group(0) @binding(1) var transmittance: texture_2d<f32>;
//	@group(0) @binding(17) var transmittance_sampler: sampler;
const SamplerBindingOffset = 16

// ErrUnsupported is returned for features WebGPU cannot express.
var ErrUnsupported = errors.New("webgpu: unsupported")

// TextureFormat converts f to its WebGPU equivalent.
func TextureFormat(f gpu.Format) (wgpu.TextureFormat, error) {
	switch f {
	case gpu.FormatR8G8B8A8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case gpu.FormatR8G8B8A8Srgb:
		return wgpu.TextureFormatRGBA8UnormSrgb, nil
	case gpu.FormatB8G8R8A8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case gpu.FormatB8G8R8A8Srgb:
		return wgpu.TextureFormatBGRA8UnormSrgb, nil
	case gpu.FormatR16G16B16A16Sfloat:
		return wgpu.TextureFormatRGBA16Float, nil
	case gpu.FormatR32Sfloat:
		return wgpu.TextureFormatR32Float, nil
	case gpu.FormatR32G32B32A32Sfloat:
		return wgpu.TextureFormatRGBA32Float, nil
	case gpu.FormatD32Sfloat:
		return wgpu.TextureFormatDepth32Float, nil
	}
	return wgpu.TextureFormatUndefined, fmt.Errorf("%w: format %s", ErrUnsupported, f)
}

// FormatOf converts a WebGPU texture format back to a gpu.Format, returning
// gpu.FormatUndefined when there is none.
func FormatOf(f wgpu.TextureFormat) gpu.Format {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm:
		return gpu.FormatR8G8B8A8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gpu.FormatR8G8B8A8Srgb
	case wgpu.TextureFormatBGRA8Unorm:
		return gpu.FormatB8G8R8A8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return gpu.FormatB8G8R8A8Srgb
	case wgpu.TextureFormatRGBA16Float:
		return gpu.FormatR16G16B16A16Sfloat
	case wgpu.TextureFormatR32Float:
		return gpu.FormatR32Sfloat
	case wgpu.TextureFormatRGBA32Float:
		return gpu.FormatR32G32B32A32Sfloat
	case wgpu.TextureFormatDepth32Float:
		return gpu.FormatD32Sfloat
	}
	return gpu.FormatUndefined
}

func textureDimension(t gpu.ImageType) wgpu.TextureDimension {
	switch t {
	case gpu.ImageType1D:
		return wgpu.TextureDimension1D
	case gpu.ImageType3D:
		return wgpu.TextureDimension3D
	}
	return wgpu.TextureDimension2D
}

func viewDimension(t gpu.ImageType) wgpu.TextureViewDimension {
	switch t {
	case gpu.ImageType1D:
		return wgpu.TextureViewDimension1D
	case gpu.ImageType3D:
		return wgpu.TextureViewDimension3D
	}
	return wgpu.TextureViewDimension2D
}

func textureUsage(u gpu.ImageUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&gpu.ImageUsageTransferSrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&gpu.ImageUsageTransferDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if u&(gpu.ImageUsageSampled|gpu.ImageUsageInputAttachment) != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&gpu.ImageUsageStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&(gpu.ImageUsageColorAttachment|gpu.ImageUsageDepthStencil) != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	return out
}

// bufferUsage always includes CopyDst: UpdateBuffer goes through
// Queue.WriteBuffer.
func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	out := wgpu.BufferUsageCopyDst
	if u&gpu.BufferUsageTransferSrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&gpu.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gpu.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	return out
}

func shaderStages(s gpu.ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if s&gpu.ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&gpu.ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	if s&gpu.ShaderStageCompute != 0 {
		out |= wgpu.ShaderStageCompute
	}
	return out
}

func filterMode(f gpu.Filter) wgpu.FilterMode {
	if f == gpu.FilterLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func mipmapMode(m gpu.MipmapMode) wgpu.MipmapFilterMode {
	if m == gpu.MipmapModeLinear {
		return wgpu.MipmapFilterModeLinear
	}
	return wgpu.MipmapFilterModeNearest
}

func addressMode(m gpu.AddressMode) wgpu.AddressMode {
	switch m {
	case gpu.AddressModeRepeat:
		return wgpu.AddressModeRepeat
	case gpu.AddressModeMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func blendFactor(f gpu.BlendFactor) (wgpu.BlendFactor, error) {
	switch f {
	case gpu.BlendFactorZero:
		return wgpu.BlendFactorZero, nil
	case gpu.BlendFactorOne:
		return wgpu.BlendFactorOne, nil
	case gpu.BlendFactorSrcColor:
		return wgpu.BlendFactorSrc, nil
	case gpu.BlendFactorOneMinusSrcColor:
		return wgpu.BlendFactorOneMinusSrc, nil
	case gpu.BlendFactorSrcAlpha:
		return wgpu.BlendFactorSrcAlpha, nil
	case gpu.BlendFactorOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha, nil
	}
	return 0, fmt.Errorf("%w: blend factor %d", ErrUnsupported, f)
}

func blendState(b *gpu.BlendState) (*wgpu.BlendState, error) {
	if b == nil {
		return nil, nil
	}
	var f [4]wgpu.BlendFactor
	for i, in := range []gpu.BlendFactor{b.SrcColor, b.DstColor, b.SrcAlpha, b.DstAlpha} {
		out, err := blendFactor(in)
		if err != nil {
			return nil, err
		}
		f[i] = out
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: f[0], DstFactor: f[1], Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: f[2], DstFactor: f[3], Operation: wgpu.BlendOperationAdd},
	}, nil
}

// layoutEntries translates Vulkan-style bindings to bind group layout
// entries. A combined image sampler yields two entries.
func layoutEntries(bindings []gpu.DescriptorBinding) ([]wgpu.BindGroupLayoutEntry, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		vis := shaderStages(b.Stages)
		e := wgpu.BindGroupLayoutEntry{Binding: b.Binding, Visibility: vis}
		switch b.Type {
		case gpu.DescriptorTypeUniformBuffer:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case gpu.DescriptorTypeStorageBuffer:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		case gpu.DescriptorTypeCombinedImageSampler:
			if b.Binding >= SamplerBindingOffset {
				return nil, fmt.Errorf("%w: combined image sampler at binding %d", ErrUnsupported, b.Binding)
			}
			e.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: viewDimension(b.ViewType),
			}
			entries = append(entries, e)
			e = wgpu.BindGroupLayoutEntry{
				Binding:    b.Binding + SamplerBindingOffset,
				Visibility: vis,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			}
		case gpu.DescriptorTypeStorageImage:
			format, err := TextureFormat(b.Format)
			if err != nil {
				return nil, fmt.Errorf("storage image at binding %d: %w", b.Binding, err)
			}
			e.StorageTexture = wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessReadWrite,
				Format:        format,
				ViewDimension: viewDimension(b.ViewType),
			}
		case gpu.DescriptorTypeInputAttachment:
			e.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		default:
			return nil, fmt.Errorf("%w: descriptor type %s", ErrUnsupported, b.Type)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// rowPitch returns the 256-byte aligned row size used for texture copies.
func rowPitch(width uint32, texelSize int) uint32 {
	return (width*uint32(texelSize) + 255) &^ 255
}
