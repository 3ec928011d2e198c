package atmosphere

import (
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gekko3d/atmosphere/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransientPoolSizes(t *testing.T) {
	maxSets, sizes := transientPoolSizes()
	assert.Equal(t, uint32(7), maxSets)
	assert.Equal(t, []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeUniformBuffer, Count: 1},
		{Type: gpu.DescriptorTypeCombinedImageSampler, Count: 12},
		{Type: gpu.DescriptorTypeStorageImage, Count: 10},
	}, sizes)
}

func TestPassTable_Bindings(t *testing.T) {
	tests := []struct {
		kind     PassKind
		name     string
		samplers int
		storage  int
		push     bool
	}{
		{PassTransmittance, "transmittance", 0, 1, false},
		{PassDirectIrradiance, "direct_irradiance", 1, 1, false},
		{PassIndirectIrradiance, "indirect_irradiance", 3, 2, true},
		{PassSingleScattering, "single_scattering", 1, 3, false},
		{PassScatteringDensity, "scattering_density", 5, 1, true},
		{PassMultipleScattering, "multiple_scattering", 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.kind.String())
			desc := &passTable[tt.kind]
			bindings := desc.bindings(nil)
			require.Len(t, bindings, tt.samplers+tt.storage)
			for i, b := range bindings {
				assert.Equal(t, uint32(i), b.Binding)
				assert.Equal(t, gpu.ShaderStageCompute, b.Stages)
				want := gpu.DescriptorTypeStorageImage
				if i < tt.samplers {
					want = gpu.DescriptorTypeCombinedImageSampler
				}
				assert.Equal(t, want, b.Type, "binding %d", i)
			}
			if tt.push {
				assert.Equal(t, []gpu.PushConstantRange{{Stages: gpu.ShaderStageCompute, Size: 4}}, desc.pushRanges())
			} else {
				assert.Empty(t, desc.pushRanges())
			}
		})
	}
}

func TestBuild_PoolsAreSizedExactly(t *testing.T) {
	dev := gputest.NewDevice()
	b := newTestBuilder(t, dev, nil)
	pending, _ := build(t, b, smallParameters())
	defer pending.Release()

	scratch := pending.pool.(*gputest.DescriptorPool)
	require.Len(t, scratch.Sets, 7)
	for _, ty := range []gpu.DescriptorType{
		gpu.DescriptorTypeUniformBuffer,
		gpu.DescriptorTypeCombinedImageSampler,
		gpu.DescriptorTypeStorageImage,
	} {
		assert.Equal(t, scratch.Capacity(ty), scratch.Used(ty), "%s", ty)
	}

	render := pending.Atmosphere().pool.(*gputest.DescriptorPool)
	require.Len(t, render.Sets, 1)
	assert.Equal(t, uint32(1), render.Used(gpu.DescriptorTypeUniformBuffer))
	assert.Equal(t, uint32(2), render.Used(gpu.DescriptorTypeCombinedImageSampler))
}

func TestBuild_DescriptorLayouts(t *testing.T) {
	dev := gputest.NewDevice()
	b := newTestBuilder(t, dev, nil)
	pending, _ := build(t, b, smallParameters())
	defer pending.Release()

	scratch := pending.pool.(*gputest.DescriptorPool)
	for _, set := range scratch.Sets {
		for binding, w := range set.Writes {
			switch w.Type {
			case gpu.DescriptorTypeStorageImage:
				assert.Equal(t, gpu.ImageLayoutGeneral, w.Image.Layout, "binding %d", binding)
			case gpu.DescriptorTypeCombinedImageSampler:
				assert.Equal(t, gpu.ImageLayoutShaderReadOnlyOptimal, w.Image.Layout, "binding %d", binding)
			case gpu.DescriptorTypeUniformBuffer:
				assert.Equal(t, gpu.WholeSize, w.Buffer.Range)
			}
		}
		assert.Len(t, set.Writes, len(set.Layout.Bindings))
	}

	atm := pending.Atmosphere()
	set := atm.DescriptorSet().(*gputest.DescriptorSet)
	assert.Same(t, fakeImage(atm.Transmittance()), set.ImageAt(1))
	assert.Same(t, fakeImage(atm.Scattering()), set.ImageAt(2))
	assert.Empty(t, dev.Problems())
}
