package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatRoundTrip(t *testing.T) {
	formats := []gpu.Format{
		gpu.FormatR8G8B8A8Unorm,
		gpu.FormatR8G8B8A8Srgb,
		gpu.FormatB8G8R8A8Unorm,
		gpu.FormatB8G8R8A8Srgb,
		gpu.FormatR16G16B16A16Sfloat,
		gpu.FormatR32Sfloat,
		gpu.FormatR32G32B32A32Sfloat,
		gpu.FormatD32Sfloat,
	}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			tf, err := TextureFormat(f)
			require.NoError(t, err)
			assert.Equal(t, f, FormatOf(tf))
		})
	}

	_, err := TextureFormat(gpu.FormatUndefined)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, gpu.FormatUndefined, FormatOf(wgpu.TextureFormatUndefined))
}

func TestLayoutEntries(t *testing.T) {
	bindings := []gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Stages: gpu.ShaderStageCompute},
		{Binding: 1, Type: gpu.DescriptorTypeCombinedImageSampler, Stages: gpu.ShaderStageFragment, ViewType: gpu.ImageType3D},
		{Binding: 2, Type: gpu.DescriptorTypeStorageImage, Stages: gpu.ShaderStageCompute,
			ViewType: gpu.ImageType2D, Format: gpu.FormatR32G32B32A32Sfloat},
	}
	entries, err := layoutEntries(bindings)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageCompute, entries[0].Visibility)

	assert.Equal(t, uint32(1), entries[1].Binding)
	assert.Equal(t, wgpu.TextureViewDimension3D, entries[1].Texture.ViewDimension)
	assert.Equal(t, uint32(1+SamplerBindingOffset), entries[2].Binding)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[2].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[2].Visibility)

	assert.Equal(t, uint32(2), entries[3].Binding)
	assert.Equal(t, wgpu.TextureFormatRGBA32Float, entries[3].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessReadWrite, entries[3].StorageTexture.Access)
}

func TestLayoutEntriesErrors(t *testing.T) {
	tests := []struct {
		name    string
		binding gpu.DescriptorBinding
	}{
		{"sampler slot taken", gpu.DescriptorBinding{Binding: SamplerBindingOffset, Type: gpu.DescriptorTypeCombinedImageSampler}},
		{"storage without format", gpu.DescriptorBinding{Binding: 0, Type: gpu.DescriptorTypeStorageImage}},
		{"separate sampler", gpu.DescriptorBinding{Binding: 0, Type: gpu.DescriptorTypeSampler}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layoutEntries([]gpu.DescriptorBinding{tt.binding})
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestBlendState(t *testing.T) {
	b, err := blendState(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = blendState(&gpu.BlendState{
		SrcColor: gpu.BlendFactorSrcAlpha,
		DstColor: gpu.BlendFactorOneMinusSrcAlpha,
		SrcAlpha: gpu.BlendFactorOne,
		DstAlpha: gpu.BlendFactorZero,
	})
	require.NoError(t, err)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, b.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, b.Color.DstFactor)
	assert.Equal(t, wgpu.BlendFactorOne, b.Alpha.SrcFactor)

	_, err = blendState(&gpu.BlendState{SrcColor: gpu.BlendFactorOne, DstColor: gpu.BlendFactorSrc1Color})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestUsage(t *testing.T) {
	u := textureUsage(gpu.ImageUsageStorage | gpu.ImageUsageSampled | gpu.ImageUsageTransferSrc)
	assert.Equal(t, wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc, u)
	assert.Equal(t, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageRenderAttachment,
		textureUsage(gpu.ImageUsageDepthStencil|gpu.ImageUsageInputAttachment))

	assert.Equal(t, wgpu.BufferUsageCopyDst|wgpu.BufferUsageUniform, bufferUsage(gpu.BufferUsageUniform))
}

func TestRowPitch(t *testing.T) {
	assert.Equal(t, uint32(256), rowPitch(1, 4))
	assert.Equal(t, uint32(256), rowPitch(64, 4))
	assert.Equal(t, uint32(512), rowPitch(65, 4))
	assert.Equal(t, uint32(4096), rowPitch(256, 16))
}

func TestUnpadRows(t *testing.T) {
	data := []byte{1, 2, 0, 0, 3, 4, 0, 0}
	assert.Equal(t, []byte{1, 2, 3, 4}, unpadRows(data, 2, 4, 2))
}

func TestEncodeTexel(t *testing.T) {
	got, err := encodeTexel(gpu.FormatR16G16B16A16Sfloat, [4]float32{})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), got)

	got, err = encodeTexel(gpu.FormatB8G8R8A8Unorm, [4]float32{1, 0.5, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 128, 255, 255}, got)

	got, err = encodeTexel(gpu.FormatR32Sfloat, [4]float32{1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, got)

	_, err = encodeTexel(gpu.FormatR16G16B16A16Sfloat, [4]float32{1, 1, 1, 1})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestShaderDescriptor(t *testing.T) {
	t.Run("wgsl", func(t *testing.T) {
		desc := shaderDescriptor(gpu.ShaderSource{Label: "transmittance", WGSL: "@compute fn main() {}"})
		assert.Equal(t, "transmittance", desc.Label)
		require.NotNil(t, desc.WGSLDescriptor)
		assert.Equal(t, "@compute fn main() {}", desc.WGSLDescriptor.Code)
		assert.Nil(t, desc.SPIRVDescriptor)
	})
	t.Run("spirv", func(t *testing.T) {
		desc := shaderDescriptor(gpu.ShaderSource{Label: "render_sky", SPIRV: []uint32{gpu.SPIRVMagic, 0x00010300}})
		assert.Nil(t, desc.WGSLDescriptor)
		require.NotNil(t, desc.SPIRVDescriptor)
		assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x03, 0x01, 0x00}, desc.SPIRVDescriptor.Code)
	})
}
