package atmosphere

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShaderSet(t *testing.T) {
	fsys := fstest.MapFS{
		"kernels/transmittance.wgsl":     {Data: []byte("@compute fn main() {}")},
		"kernels/direct_irradiance.spv":  {Data: gpu.SPIRVBytes([]uint32{gpu.SPIRVMagic, 0x00010000, 7})},
		"kernels/single_scattering.wgsl": {Data: []byte("// single")},
	}

	set, err := LoadShaderSet(fsys, "kernels", ShaderTransmittance, ShaderDirectIrradiance, ShaderSingleScattering)
	require.NoError(t, err)
	assert.Equal(t, "@compute fn main() {}", set[ShaderTransmittance].WGSL)
	assert.Equal(t, []uint32{gpu.SPIRVMagic, 0x00010000, 7}, set[ShaderDirectIrradiance].SPIRV)
	assert.Equal(t, "single_scattering", set[ShaderSingleScattering].Label)

	_, err = LoadShaderSet(fsys, "kernels")
	assert.True(t, errors.Is(err, ErrMissingShader))
}

func TestLoadShaderSet_BadSPIRV(t *testing.T) {
	fsys := fstest.MapFS{
		"transmittance.spv": {Data: []byte{1, 2, 3}},
	}
	_, err := LoadShaderSet(fsys, ".", ShaderTransmittance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transmittance.spv")
}

func TestShaderKind_String(t *testing.T) {
	assert.Equal(t, "render_sky", ShaderRenderSky.String())
	assert.Equal(t, "unknown", ShaderKind(99).String())
	assert.Len(t, ComputeShaders, 6)
}
