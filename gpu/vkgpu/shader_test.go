package vkgpu

import (
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gogpu/naga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const computeWGSL = `
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
}
`

func TestCompileWGSL(t *testing.T) {
	code, err := CompileWGSL(computeWGSL, naga.CompileOptions{Validate: false})
	require.NoError(t, err)
	require.NotEmpty(t, code)
	assert.Equal(t, uint32(gpu.SPIRVMagic), code[0])

	_, err = CompileWGSL("", naga.DefaultOptions())
	assert.Error(t, err)

	_, err = CompileWGSL("fn (", naga.DefaultOptions())
	assert.Error(t, err)
}
