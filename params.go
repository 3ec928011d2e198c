package atmosphere

import (
	"fmt"
	"math"

	"github.com/gekko3d/atmosphere/gpu"
)

// DensityProfileLayer is one layer of an altitude density profile:
//
//	density(h) = ExpTerm*exp(ExpScale*h) + LinearTerm*h + ConstantTerm
//
// clamped to [0, 1]. Width is in km; the last layer's width is ignored.
type DensityProfileLayer struct {
	Width        float32
	ExpTerm      float32
	ExpScale     float32
	LinearTerm   float32
	ConstantTerm float32
}

// DensityProfile is a two-layer density profile. Layers[0] applies below
// Layers[0].Width, Layers[1] above it.
type DensityProfile struct {
	Layers [2]DensityProfileLayer
}

// Parameters describes an atmosphere and the resolution of its lookup
// tables. Lengths are in km.
type Parameters struct {
	// Usage is added to the usage of the lookup tables.
	Usage gpu.ImageUsage
	// DstStage, DstAccess and Layout describe the first use of the lookup
	// tables once precomputed.
	DstStage  gpu.PipelineStage
	DstAccess gpu.Access
	Layout    gpu.ImageLayout

	// Order is the number of scattering orders to compute.
	Order uint32

	TransmittanceMuSize uint32
	TransmittanceRSize  uint32
	ScatteringRSize     uint32
	ScatteringMuSize    uint32
	ScatteringMuSSize   uint32
	ScatteringNuSize    uint32
	IrradianceMuSSize   uint32
	IrradianceRSize     uint32

	SolarIrradiance  [3]float32
	SunAngularRadius float32
	BottomRadius     float32
	TopRadius        float32

	RayleighDensity    DensityProfile
	RayleighScattering [3]float32

	MieDensity        DensityProfile
	MieScattering     [3]float32
	MieExtinction     [3]float32
	MiePhaseFunctionG float32

	AbsorptionDensity    DensityProfile
	AbsorptionExtinction [3]float32

	GroundAlbedo [3]float32
	MuSMin       float32
}

// DefaultParameters returns Earth-like parameters.
func DefaultParameters() Parameters {
	return Parameters{
		DstStage:  gpu.PipelineStageFragmentShader,
		DstAccess: gpu.AccessShaderRead,
		Layout:    gpu.ImageLayoutShaderReadOnlyOptimal,
		Order:     4,

		TransmittanceMuSize: 256,
		TransmittanceRSize:  64,
		ScatteringRSize:     32,
		ScatteringMuSize:    128,
		ScatteringMuSSize:   32,
		ScatteringNuSize:    8,
		IrradianceMuSSize:   64,
		IrradianceRSize:     16,

		SolarIrradiance:  [3]float32{1.474, 1.850, 1.91198},
		SunAngularRadius: 0.004675,
		BottomRadius:     6360,
		TopRadius:        6420,

		RayleighDensity: DensityProfile{Layers: [2]DensityProfileLayer{
			{},
			{ExpTerm: 1, ExpScale: -1.0 / 8},
		}},
		RayleighScattering: [3]float32{0.005802, 0.013558, 0.033100},

		MieDensity: DensityProfile{Layers: [2]DensityProfileLayer{
			{},
			{ExpTerm: 1, ExpScale: -1.0 / 1.2},
		}},
		MieScattering:     [3]float32{0.003996, 0.003996, 0.003996},
		MieExtinction:     [3]float32{0.004440, 0.004440, 0.004440},
		MiePhaseFunctionG: 0.8,

		// Ozone: a tent centered at 25 km, 30 km wide.
		AbsorptionDensity: DensityProfile{Layers: [2]DensityProfileLayer{
			{Width: 25, LinearTerm: 1.0 / 15, ConstantTerm: -2.0 / 3},
			{LinearTerm: -1.0 / 15, ConstantTerm: 8.0 / 3},
		}},
		AbsorptionExtinction: [3]float32{0.000650, 0.001881, 0.000085},

		GroundAlbedo: [3]float32{0.1, 0.1, 0.1},
		MuSMin:       -0.207912,
	}
}

// TransmittanceExtent is the size of the transmittance table, mu by r.
func (p *Parameters) TransmittanceExtent() gpu.Extent2D {
	return gpu.Extent2D{Width: p.TransmittanceMuSize, Height: p.TransmittanceRSize}
}

// IrradianceExtent is the size of the irradiance table, mu_s by r.
func (p *Parameters) IrradianceExtent() gpu.Extent2D {
	return gpu.Extent2D{Width: p.IrradianceMuSSize, Height: p.IrradianceRSize}
}

// ScatteringExtent is the size of the scattering table. The nu and mu_s
// axes share the width.
func (p *Parameters) ScatteringExtent() gpu.Extent3D {
	return gpu.Extent3D{
		Width:  p.ScatteringNuSize * p.ScatteringMuSSize,
		Height: p.ScatteringMuSize,
		Depth:  p.ScatteringRSize,
	}
}

// Validate reports parameters that cannot produce lookup tables.
func (p *Parameters) Validate() error {
	sizes := []struct {
		name string
		v    uint32
	}{
		{"transmittance_mu_size", p.TransmittanceMuSize},
		{"transmittance_r_size", p.TransmittanceRSize},
		{"scattering_r_size", p.ScatteringRSize},
		{"scattering_mu_size", p.ScatteringMuSize},
		{"scattering_mu_s_size", p.ScatteringMuSSize},
		{"scattering_nu_size", p.ScatteringNuSize},
		{"irradiance_mu_s_size", p.IrradianceMuSSize},
		{"irradiance_r_size", p.IrradianceRSize},
	}
	for _, s := range sizes {
		if s.v == 0 {
			return fmt.Errorf("%w: %s is zero", ErrInvalidParameters, s.name)
		}
	}
	if width := uint64(p.ScatteringNuSize) * uint64(p.ScatteringMuSSize); width > math.MaxUint32 {
		return fmt.Errorf("%w: scattering width nu*mu_s = %d overflows uint32", ErrInvalidParameters, width)
	}
	if p.Order == 0 {
		return fmt.Errorf("%w: order is zero", ErrInvalidParameters)
	}
	if p.TopRadius <= p.BottomRadius {
		return fmt.Errorf("%w: top radius %g is not above bottom radius %g",
			ErrInvalidParameters, p.TopRadius, p.BottomRadius)
	}
	return nil
}
