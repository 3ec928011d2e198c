package atmosphere

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters_Extents(t *testing.T) {
	tests := []struct {
		name          string
		edit          func(p *Parameters)
		transmittance gpu.Extent2D
		irradiance    gpu.Extent2D
		scattering    gpu.Extent3D
	}{
		{
			name:          "defaults",
			edit:          func(p *Parameters) {},
			transmittance: gpu.Extent2D{Width: 256, Height: 64},
			irradiance:    gpu.Extent2D{Width: 64, Height: 16},
			scattering:    gpu.Extent3D{Width: 256, Height: 128, Depth: 32},
		},
		{
			name: "custom",
			edit: func(p *Parameters) {
				p.TransmittanceMuSize, p.TransmittanceRSize = 10, 3
				p.IrradianceMuSSize, p.IrradianceRSize = 7, 5
				p.ScatteringNuSize, p.ScatteringMuSSize, p.ScatteringMuSize, p.ScatteringRSize = 3, 11, 13, 17
			},
			transmittance: gpu.Extent2D{Width: 10, Height: 3},
			irradiance:    gpu.Extent2D{Width: 7, Height: 5},
			scattering:    gpu.Extent3D{Width: 33, Height: 13, Depth: 17},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.edit(&p)
			assert.Equal(t, tt.transmittance, p.TransmittanceExtent())
			assert.Equal(t, tt.irradiance, p.IrradianceExtent())
			assert.Equal(t, tt.scattering, p.ScatteringExtent())
		})
	}
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name string
		edit func(p *Parameters)
		ok   bool
	}{
		{"defaults", func(p *Parameters) {}, true},
		{"order one", func(p *Parameters) { p.Order = 1 }, true},
		{"zero order", func(p *Parameters) { p.Order = 0 }, false},
		{"zero transmittance size", func(p *Parameters) { p.TransmittanceRSize = 0 }, false},
		{"zero scattering nu", func(p *Parameters) { p.ScatteringNuSize = 0 }, false},
		{"zero irradiance size", func(p *Parameters) { p.IrradianceMuSSize = 0 }, false},
		{"scattering width overflow", func(p *Parameters) { p.ScatteringNuSize, p.ScatteringMuSSize = 65536, 65536 }, false},
		{"largest scattering width", func(p *Parameters) { p.ScatteringNuSize, p.ScatteringMuSSize = 65535, 65537 }, true},
		{"inverted radii", func(p *Parameters) { p.TopRadius = p.BottomRadius }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.edit(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidParameters), "got %v", err)
			}
		})
	}
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters()
	assert.Equal(t, uint32(4), p.Order)
	assert.Equal(t, gpu.ImageUsage(0), p.Usage)
	assert.Equal(t, gpu.PipelineStageFragmentShader, p.DstStage)
	assert.Equal(t, gpu.AccessShaderRead, p.DstAccess)
	assert.Equal(t, gpu.ImageLayoutShaderReadOnlyOptimal, p.Layout)
	assert.Equal(t, float32(6360), p.BottomRadius)
	assert.Equal(t, float32(6420), p.TopRadius)
	assert.Equal(t, float32(-1.0/8), p.RayleighDensity.Layers[1].ExpScale)
	assert.Equal(t, float32(25), p.AbsorptionDensity.Layers[0].Width)
	assert.Equal(t, float32(0.8), p.MiePhaseFunctionG)
}

func TestParameters_Pack(t *testing.T) {
	p := DefaultParameters()
	buf := p.Pack()
	require.Len(t, buf, 320)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	assert.Equal(t, p.SolarIrradiance[0], f(0))
	assert.Equal(t, p.SolarIrradiance[2], f(8))
	assert.Equal(t, p.SunAngularRadius, f(12))
	assert.Equal(t, p.RayleighScattering[1], f(20))
	assert.Equal(t, p.BottomRadius, f(28))
	assert.Equal(t, p.MieScattering[0], f(32))
	assert.Equal(t, p.TopRadius, f(44))
	assert.Equal(t, p.MieExtinction[2], f(56))
	assert.Equal(t, p.MiePhaseFunctionG, f(60))
	assert.Equal(t, p.GroundAlbedo[0], f(64))
	assert.Equal(t, p.MuSMin, f(76))
	assert.Equal(t, p.AbsorptionExtinction[1], f(84))

	sizes := []uint32{256, 64, 32, 128, 32, 8, 64, 16}
	for i, want := range sizes {
		assert.Equal(t, want, u(92+4*i), "size %d", i)
	}
	assert.Equal(t, uint32(0), u(124), "padding")

	// Second layer of each profile starts 32 bytes after the first.
	assert.Equal(t, p.RayleighDensity.Layers[1].ExpTerm, f(128+32+4))
	assert.Equal(t, p.RayleighDensity.Layers[1].ExpScale, f(128+32+8))
	assert.Equal(t, p.MieDensity.Layers[1].ExpScale, f(192+32+8))
	assert.Equal(t, p.AbsorptionDensity.Layers[0].Width, f(256))
	assert.Equal(t, p.AbsorptionDensity.Layers[0].LinearTerm, f(256+12))
	assert.Equal(t, p.AbsorptionDensity.Layers[0].ConstantTerm, f(256+16))
	assert.Equal(t, p.AbsorptionDensity.Layers[1].ConstantTerm, f(256+32+16))
	for _, pad := range []int{128 + 20, 128 + 52, 192 + 20, 256 + 52} {
		assert.Equal(t, uint32(0), u(pad), "padding at %d", pad)
	}
}
