package atmosphere

import (
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gekko3d/atmosphere/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingAtmosphere_ReleaseFreesEverything(t *testing.T) {
	dev := gputest.NewDevice()
	b := newTestBuilder(t, dev, nil)
	baseline := dev.LiveTotal()

	pending, _ := build(t, b, smallParameters())
	assert.Equal(t, 2, b.Dependents())
	// 8 images with memory and views, the params buffer with its memory,
	// and two descriptor pools.
	assert.Equal(t, baseline+8*3+2+2, dev.LiveTotal())

	pending.Release()
	assert.Equal(t, 0, b.Dependents())
	assert.Equal(t, baseline, dev.LiveTotal(), dev.LiveSummary())

	pending.Release()
	b.Destroy()
	assert.Zero(t, dev.LiveTotal())
	assert.Empty(t, dev.Problems())
}

func TestPendingAtmosphere_AssertReady(t *testing.T) {
	dev := gputest.NewDevice()
	b := newTestBuilder(t, dev, nil)
	baseline := dev.LiveTotal()

	pending, _ := build(t, b, smallParameters())
	atm := pending.AssertReady()
	require.NotNil(t, atm)
	assert.Equal(t, 1, b.Dependents())
	// Scratch images and the transient pool are gone.
	assert.Equal(t, baseline+3*3+2+1, dev.LiveTotal(), dev.LiveSummary())
	assert.Equal(t, 1, dev.Live(gputest.KindDescriptorPool))

	// Release after AssertReady does not touch the Atmosphere.
	pending.Release()
	assert.Equal(t, 1, b.Dependents())

	atm.Destroy()
	assert.Equal(t, baseline, dev.LiveTotal())
	b.Destroy()
	assert.Zero(t, dev.LiveTotal())
	assert.Empty(t, dev.Problems())
}

func TestLifecyclePreconditions(t *testing.T) {
	dev := gputest.NewDevice()
	b := newTestBuilder(t, dev, nil)

	pending, _ := build(t, b, smallParameters())
	requirePrecondition(t, "Builder.Destroy", b.Destroy)
	assert.Equal(t, 2, b.Dependents())

	unreleased := gputest.NewCommandBuffer()
	requirePrecondition(t, "PendingAtmosphere.AcquireOwnership", func() {
		pending.AcquireOwnership(unreleased, 1, 0)
	})
	assert.Empty(t, unreleased.Commands)

	atm := pending.AssertReady()
	requirePrecondition(t, "PendingAtmosphere.AssertReady", func() { pending.AssertReady() })
	requirePrecondition(t, "PendingAtmosphere.Atmosphere", func() { pending.Atmosphere() })
	requirePrecondition(t, "Builder.Destroy", b.Destroy)

	atm.Destroy()
	requirePrecondition(t, "Atmosphere.Destroy", atm.Destroy)

	b.Destroy()
	requirePrecondition(t, "Builder.Destroy", b.Destroy)
	assert.Empty(t, dev.Problems())
}

func TestPendingAtmosphere_AcquireOwnership(t *testing.T) {
	dev := gputest.NewDevice()
	compute := uint32(2)
	b := newTestBuilder(t, dev, &compute)
	pending, _ := build(t, b, smallParameters())
	defer pending.Release()
	atm := pending.Atmosphere()

	gfx := gputest.NewCommandBuffer()
	gfx.AssumeLayout(atm.Scattering(), gpu.ImageLayoutGeneral)
	gfx.AssumeLayout(atm.Irradiance(), gpu.ImageLayoutGeneral)
	gfx.AssumeLayout(atm.Transmittance(), gpu.ImageLayoutShaderReadOnlyOptimal)
	pending.AcquireOwnership(gfx, 2, 0)
	assert.Empty(t, gfx.Violations())

	require.Len(t, gfx.Commands, 1)
	acquire := gfx.Commands[0]
	assert.Equal(t, gpu.PipelineStageNone, acquire.SrcStage)
	assert.Equal(t, gpu.PipelineStageFragmentShader, acquire.DstStage)

	require.Len(t, acquire.BufferBarriers, 1)
	buf := acquire.BufferBarriers[0]
	assert.Equal(t, uint32(2), buf.SrcFamily)
	assert.Equal(t, uint32(0), buf.DstFamily)
	assert.Equal(t, gpu.AccessNone, buf.SrcAccess)
	assert.Equal(t, gpu.AccessUniformRead, buf.DstAccess)

	require.Len(t, acquire.ImageBarriers, 3)
	for _, ib := range acquire.ImageBarriers {
		assert.True(t, ib.TransfersOwnership())
		assert.Equal(t, uint32(2), ib.SrcFamily)
		assert.Equal(t, uint32(0), ib.DstFamily)
		assert.Equal(t, gpu.AccessNone, ib.SrcAccess)
		assert.Equal(t, gpu.AccessShaderRead, ib.DstAccess)
		assert.Equal(t, gpu.ImageLayoutShaderReadOnlyOptimal, ib.NewLayout)
	}
	ib, ok := acquire.Barrier(atm.Irradiance())
	require.True(t, ok)
	assert.Equal(t, gpu.ImageLayoutGeneral, ib.OldLayout)

	requirePrecondition(t, "PendingAtmosphere.AcquireOwnership", func() {
		pending.AcquireOwnership(gputest.NewCommandBuffer(), 1, 1)
	})
	mismatched := gputest.NewCommandBuffer()
	requirePrecondition(t, "PendingAtmosphere.AcquireOwnership", func() {
		pending.AcquireOwnership(mismatched, 3, 0)
	})
	assert.Empty(t, mismatched.Commands)
}

func TestAtmosphere_Accessors(t *testing.T) {
	dev := gputest.NewDevice()
	b := newTestBuilder(t, dev, nil)
	p := smallParameters()
	pending, _ := build(t, b, p)
	atm := pending.AssertReady()
	defer atm.Destroy()

	assert.Equal(t, p, atm.Parameters())
	assert.Equal(t, p.TransmittanceExtent(), atm.TransmittanceExtent())
	assert.Equal(t, p.IrradianceExtent(), atm.IrradianceExtent())
	assert.Equal(t, p.ScatteringExtent(), atm.ScatteringExtent())
	assert.Same(t, fakeImage(atm.Transmittance()), atm.TransmittanceView().(*gputest.ImageView).Image)
	assert.Same(t, fakeImage(atm.Scattering()), atm.ScatteringView().(*gputest.ImageView).Image)
	assert.Same(t, fakeImage(atm.Irradiance()), atm.IrradianceView().(*gputest.ImageView).Image)

	packed := p.Pack()
	assert.Equal(t, packed[:], atm.ParamsBuffer().(*gputest.Buffer).Data)

	set := atm.DescriptorSet().(*gputest.DescriptorSet)
	assert.Same(t, b.RenderLayout(), gpu.DescriptorSetLayout(set.Layout))
	assert.Same(t, fakeImage(atm.Transmittance()), set.ImageAt(1))
	assert.Same(t, fakeImage(atm.Scattering()), set.ImageAt(2))
	assert.Same(t, atm.ParamsBuffer(), set.Writes[0].Buffer.Buffer)
}

func TestBuilder_Families(t *testing.T) {
	dev := gputest.NewDevice()
	compute := uint32(3)
	b := newTestBuilder(t, dev, &compute)
	defer b.Destroy()
	gfx, c, cross := b.Families()
	assert.Equal(t, uint32(0), gfx)
	assert.Equal(t, uint32(3), c)
	assert.True(t, cross)
	assert.NotNil(t, b.Sampler())
	assert.NotNil(t, b.FrameLayout())
}
