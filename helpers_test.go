package atmosphere

import (
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gekko3d/atmosphere/gpu/gputest"
	"github.com/stretchr/testify/require"
)

func testShaders() ShaderSet {
	set := ShaderSet{}
	for k := ShaderKind(0); k < shaderKindCount; k++ {
		set[k] = gpu.ShaderSource{Label: k.String(), WGSL: "// " + k.String()}
	}
	return set
}

// smallParameters keeps the fake's byte stores small.
func smallParameters() Parameters {
	p := DefaultParameters()
	p.TransmittanceMuSize, p.TransmittanceRSize = 8, 4
	p.ScatteringRSize, p.ScatteringMuSize, p.ScatteringMuSSize, p.ScatteringNuSize = 4, 8, 4, 2
	p.IrradianceMuSSize, p.IrradianceRSize = 8, 4
	return p
}

func newTestBuilder(t *testing.T, dev *gputest.Device, computeFamily *uint32) *Builder {
	t.Helper()
	b, err := NewBuilder(dev, testShaders(), nil, 0, computeFamily)
	require.NoError(t, err)
	return b
}

func build(t *testing.T, b *Builder, p Parameters) (*PendingAtmosphere, *gputest.CommandBuffer) {
	t.Helper()
	cb := gputest.NewCommandBuffer()
	pending, err := b.Build(p, cb)
	require.NoError(t, err)
	require.Empty(t, cb.Violations())
	return pending, cb
}

func fakeImage(img gpu.Image) *gputest.Image { return img.(*gputest.Image) }

// requirePrecondition asserts that f panics with a *PreconditionError
// raised by op.
func requirePrecondition(t *testing.T, op string, f func()) {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		f()
	}()
	require.NotNil(t, recovered, "expected %s to panic", op)
	perr, ok := recovered.(*PreconditionError)
	require.True(t, ok, "panic value %v is not a *PreconditionError", recovered)
	require.Equal(t, op, perr.Op)
}

func dispatchLabels(cb *gputest.CommandBuffer) []string {
	var out []string
	for _, c := range cb.Filter(gputest.CmdDispatch) {
		out = append(out, c.Pipeline.Label)
	}
	return out
}
