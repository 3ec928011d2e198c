package atmosphere

import (
	"encoding/binary"
	"math"
)

// Byte offsets of the uniform parameter block read by the kernels.
//
//	struct Params {
//	  solar_irradiance: vec3<f32>; sun_angular_radius: f32;       -- 0
//	  rayleigh_scattering: vec3<f32>; bottom_radius: f32;         -- 16
//	  mie_scattering: vec3<f32>; top_radius: f32;                 -- 32
//	  mie_extinction: vec3<f32>; mie_phase_function_g: f32;       -- 48
//	  ground_albedo: vec3<f32>; mu_s_min: f32;                    -- 64
//	  absorption_extinction: vec3<f32>;                           -- 80
//	  transmittance_mu_size .. irradiance_r_size: 8 x u32;        -- 92
//	  rayleigh_density, mie_density, absorption_density: Profile; -- 128, 192, 256
//	} -> 320 bytes
//
// A Profile is two layers of five f32 padded to 32 bytes each.
const (
	OffsetSolarIrradiance      = 0
	OffsetSunAngularRadius     = 12
	OffsetRayleighScattering   = 16
	OffsetBottomRadius         = 28
	OffsetMieScattering        = 32
	OffsetTopRadius            = 44
	OffsetMieExtinction        = 48
	OffsetMiePhaseFunctionG    = 60
	OffsetGroundAlbedo         = 64
	OffsetMuSMin               = 76
	OffsetAbsorptionExtinction = 80
	OffsetSizes                = 92
	OffsetRayleighDensity      = 128
	OffsetMieDensity           = 192
	OffsetAbsorptionDensity    = 256

	densityLayerStride   = 32
	densityProfileStride = 2 * densityLayerStride

	PackedParamsSize = 320
)

// Pack encodes p into the uniform block layout.
func (p *Parameters) Pack() [PackedParamsSize]byte {
	var buf [PackedParamsSize]byte

	putF := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}
	putVec := func(offset int, v [3]float32) {
		putF(offset, v[0])
		putF(offset+4, v[1])
		putF(offset+8, v[2])
	}
	putProfile := func(offset int, d DensityProfile) {
		for i, l := range d.Layers {
			o := offset + i*densityLayerStride
			putF(o, l.Width)
			putF(o+4, l.ExpTerm)
			putF(o+8, l.ExpScale)
			putF(o+12, l.LinearTerm)
			putF(o+16, l.ConstantTerm)
		}
	}

	putVec(OffsetSolarIrradiance, p.SolarIrradiance)
	putF(OffsetSunAngularRadius, p.SunAngularRadius)
	putVec(OffsetRayleighScattering, p.RayleighScattering)
	putF(OffsetBottomRadius, p.BottomRadius)
	putVec(OffsetMieScattering, p.MieScattering)
	putF(OffsetTopRadius, p.TopRadius)
	putVec(OffsetMieExtinction, p.MieExtinction)
	putF(OffsetMiePhaseFunctionG, p.MiePhaseFunctionG)
	putVec(OffsetGroundAlbedo, p.GroundAlbedo)
	putF(OffsetMuSMin, p.MuSMin)
	putVec(OffsetAbsorptionExtinction, p.AbsorptionExtinction)

	sizes := [8]uint32{
		p.TransmittanceMuSize,
		p.TransmittanceRSize,
		p.ScatteringRSize,
		p.ScatteringMuSize,
		p.ScatteringMuSSize,
		p.ScatteringNuSize,
		p.IrradianceMuSSize,
		p.IrradianceRSize,
	}
	for i, s := range sizes {
		binary.LittleEndian.PutUint32(buf[OffsetSizes+4*i:], s)
	}

	putProfile(OffsetRayleighDensity, p.RayleighDensity)
	putProfile(OffsetMieDensity, p.MieDensity)
	putProfile(OffsetAbsorptionDensity, p.AbsorptionDensity)
	return buf
}
