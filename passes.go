package atmosphere

import (
	"github.com/gekko3d/atmosphere/gpu"
)

// PassKind identifies one of the precomputation passes.
type PassKind int

const (
	PassTransmittance PassKind = iota
	PassDirectIrradiance
	PassIndirectIrradiance
	PassSingleScattering
	PassScatteringDensity
	PassMultipleScattering

	passCount
)

func (k PassKind) String() string {
	if k >= 0 && k < passCount {
		return passTable[k].shader.String()
	}
	return "unknown"
}

// imageRole names the images read and written by the passes.
type imageRole int

const (
	roleTransmittance imageRole = iota
	roleIrradiance
	roleScattering
	roleDeltaIrradiance
	roleDeltaRayleigh
	roleDeltaMie
	roleDeltaMultiple
	roleScatteringDensity

	roleCount
)

var roleNames = [roleCount]string{
	"transmittance",
	"irradiance",
	"scattering",
	"delta_irradiance",
	"delta_rayleigh",
	"delta_mie",
	"delta_multiple_scattering",
	"scattering_density",
}

func (r imageRole) String() string { return roleNames[r] }

// planar reports whether the role is a 2D table.
func (r imageRole) planar() bool {
	return r == roleTransmittance || r == roleIrradiance || r == roleDeltaIrradiance
}

func (r imageRole) imageType() gpu.ImageType {
	if r.planar() {
		return gpu.ImageType2D
	}
	return gpu.ImageType3D
}

func (r imageRole) format() gpu.Format {
	if r.planar() {
		return gpu.FormatR32G32B32A32Sfloat
	}
	return gpu.FormatR16G16B16A16Sfloat
}

// pushSize is the size of the scattering order push constant.
const pushSize = 4

// passDesc describes the descriptor set of a pass: sampled inputs are
// bound first, storage outputs follow, in order.
type passDesc struct {
	shader  ShaderKind
	inputs  []imageRole
	outputs []imageRole
	push    bool
}

var passTable = [passCount]passDesc{
	PassTransmittance: {
		shader:  ShaderTransmittance,
		outputs: []imageRole{roleTransmittance},
	},
	PassDirectIrradiance: {
		shader:  ShaderDirectIrradiance,
		inputs:  []imageRole{roleTransmittance},
		outputs: []imageRole{roleDeltaIrradiance},
	},
	PassIndirectIrradiance: {
		shader:  ShaderIndirectIrradiance,
		inputs:  []imageRole{roleDeltaRayleigh, roleDeltaMie, roleDeltaMultiple},
		outputs: []imageRole{roleDeltaIrradiance, roleIrradiance},
		push:    true,
	},
	PassSingleScattering: {
		shader:  ShaderSingleScattering,
		inputs:  []imageRole{roleTransmittance},
		outputs: []imageRole{roleDeltaRayleigh, roleDeltaMie, roleScattering},
	},
	PassScatteringDensity: {
		shader: ShaderScatteringDensity,
		inputs: []imageRole{
			roleTransmittance,
			roleDeltaRayleigh,
			roleDeltaMie,
			roleDeltaMultiple,
			roleDeltaIrradiance,
		},
		outputs: []imageRole{roleScatteringDensity},
		push:    true,
	},
	PassMultipleScattering: {
		shader:  ShaderMultipleScattering,
		inputs:  []imageRole{roleTransmittance, roleScatteringDensity},
		outputs: []imageRole{roleDeltaMultiple, roleScattering},
		// Declared for layout compatibility; nothing is pushed.
		push: true,
	},
}

func (s *passDesc) bindings(sampler gpu.Sampler) []gpu.DescriptorBinding {
	out := make([]gpu.DescriptorBinding, 0, len(s.inputs)+len(s.outputs))
	for _, r := range s.inputs {
		out = append(out, gpu.DescriptorBinding{
			Binding:          uint32(len(out)),
			Type:             gpu.DescriptorTypeCombinedImageSampler,
			Stages:           gpu.ShaderStageCompute,
			ImmutableSampler: sampler,
			ViewType:         r.imageType(),
			Format:           r.format(),
		})
	}
	for _, r := range s.outputs {
		out = append(out, gpu.DescriptorBinding{
			Binding:  uint32(len(out)),
			Type:     gpu.DescriptorTypeStorageImage,
			Stages:   gpu.ShaderStageCompute,
			ViewType: r.imageType(),
			Format:   r.format(),
		})
	}
	return out
}

func (s *passDesc) pushRanges() []gpu.PushConstantRange {
	if !s.push {
		return nil
	}
	return []gpu.PushConstantRange{{Stages: gpu.ShaderStageCompute, Size: pushSize}}
}

// writes returns the descriptor writes binding images into set.
func (s *passDesc) writes(set gpu.DescriptorSet, images *[roleCount]*allocatedImage) []gpu.DescriptorWrite {
	out := make([]gpu.DescriptorWrite, 0, len(s.inputs)+len(s.outputs))
	for _, r := range s.inputs {
		out = append(out, gpu.DescriptorWrite{
			Set:     set,
			Binding: uint32(len(out)),
			Type:    gpu.DescriptorTypeCombinedImageSampler,
			Image:   &gpu.ImageInfo{View: images[r].view, Layout: gpu.ImageLayoutShaderReadOnlyOptimal},
		})
	}
	for _, r := range s.outputs {
		out = append(out, gpu.DescriptorWrite{
			Set:     set,
			Binding: uint32(len(out)),
			Type:    gpu.DescriptorTypeStorageImage,
			Image:   &gpu.ImageInfo{View: images[r].view, Layout: gpu.ImageLayoutGeneral},
		})
	}
	return out
}

// transientPoolSizes returns the capacity of the pool holding the params
// set and one set per pass.
func transientPoolSizes() (maxSets uint32, sizes []gpu.DescriptorPoolSize) {
	var samplers, storage uint32
	for i := range passTable {
		samplers += uint32(len(passTable[i].inputs))
		storage += uint32(len(passTable[i].outputs))
	}
	return 1 + uint32(passCount), []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeUniformBuffer, Count: 1},
		{Type: gpu.DescriptorTypeCombinedImageSampler, Count: samplers},
		{Type: gpu.DescriptorTypeStorageImage, Count: storage},
	}
}

// persistentPoolSizes returns the capacity of the pool holding the
// render set of an Atmosphere.
func persistentPoolSizes() (maxSets uint32, sizes []gpu.DescriptorPoolSize) {
	return 1, []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeUniformBuffer, Count: 1},
		{Type: gpu.DescriptorTypeCombinedImageSampler, Count: 2},
	}
}
