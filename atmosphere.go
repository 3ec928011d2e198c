// Package atmosphere precomputes the lookup tables of a physically based
// atmospheric scattering model on the GPU and renders skies from them.
//
// A Builder owns the compute pipelines. Each Build records the whole
// precomputation into a caller-supplied command buffer and returns a
// PendingAtmosphere; once the caller has observed the command buffer
// complete, AssertReady yields the Atmosphere and frees the scratch
// images. A Renderer draws any ready Atmosphere into a render pass.
package atmosphere

import (
	"sync/atomic"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/google/uuid"
)

// Atmosphere is a set of precomputed lookup tables.
type Atmosphere struct {
	builder   *Builder
	log       Logger
	params    Parameters
	runID     uuid.UUID
	paramsBuf *allocatedBuffer

	transmittance *allocatedImage
	scattering    *allocatedImage
	irradiance    *allocatedImage

	pool gpu.DescriptorPool
	set  gpu.DescriptorSet

	destroyed atomic.Bool
}

func (a *Atmosphere) Transmittance() gpu.Image         { return a.transmittance.image }
func (a *Atmosphere) TransmittanceView() gpu.ImageView { return a.transmittance.view }
func (a *Atmosphere) TransmittanceExtent() gpu.Extent2D {
	return a.params.TransmittanceExtent()
}

func (a *Atmosphere) Scattering() gpu.Image         { return a.scattering.image }
func (a *Atmosphere) ScatteringView() gpu.ImageView { return a.scattering.view }
func (a *Atmosphere) ScatteringExtent() gpu.Extent3D {
	return a.params.ScatteringExtent()
}

func (a *Atmosphere) Irradiance() gpu.Image         { return a.irradiance.image }
func (a *Atmosphere) IrradianceView() gpu.ImageView { return a.irradiance.view }
func (a *Atmosphere) IrradianceExtent() gpu.Extent2D {
	return a.params.IrradianceExtent()
}

// ParamsBuffer is the uniform buffer holding the packed parameters.
func (a *Atmosphere) ParamsBuffer() gpu.Buffer { return a.paramsBuf.buffer }

// DescriptorSet binds the params buffer, the transmittance table and the
// scattering table with the Builder's render layout.
func (a *Atmosphere) DescriptorSet() gpu.DescriptorSet { return a.set }

// RunID identifies the Build that produced a.
func (a *Atmosphere) RunID() uuid.UUID { return a.runID }

// Parameters returns the parameters a was built with.
func (a *Atmosphere) Parameters() Parameters { return a.params }

// Destroy releases the lookup tables. The GPU must no longer use them.
func (a *Atmosphere) Destroy() {
	if !a.destroyed.CompareAndSwap(false, true) {
		precondition("Atmosphere.Destroy", "already destroyed")
	}
	a.free()
	a.builder.release()
	a.log.Debugf("destroyed")
}

func (a *Atmosphere) free() {
	a.pool.Destroy()
	a.irradiance.destroy()
	a.scattering.destroy()
	a.transmittance.destroy()
	a.paramsBuf.destroy()
}

type pendingState int32

const (
	statePending pendingState = iota
	stateReady
	stateReleased
)

// PendingAtmosphere is an Atmosphere whose precomputation has been
// recorded but may not have executed yet. It owns the scratch images of
// the precomputation until AssertReady or Release.
type PendingAtmosphere struct {
	atm    *Atmosphere
	deltas [5]*allocatedImage
	pool   gpu.DescriptorPool
	state  atomic.Int32
}

// Atmosphere returns the Atmosphere being prepared. It may be referenced
// by commands submitted after the precomputation, but must not be
// destroyed directly; use Release.
func (p *PendingAtmosphere) Atmosphere() *Atmosphere {
	if pendingState(p.state.Load()) != statePending {
		precondition("PendingAtmosphere.Atmosphere", "not pending")
	}
	return p.atm
}

// AssertReady must be called once the command buffer passed to Build has
// completed. It frees the scratch resources and returns the Atmosphere,
// which the caller then owns.
func (p *PendingAtmosphere) AssertReady() *Atmosphere {
	if !p.state.CompareAndSwap(int32(statePending), int32(stateReady)) {
		precondition("PendingAtmosphere.AssertReady", "not pending")
	}
	p.freeScratch()
	atm := p.atm
	p.atm = nil
	return atm
}

// Release abandons a pending precomputation, freeing the scratch images
// and the Atmosphere. The command buffer passed to Build must have
// completed or been discarded. After AssertReady it does nothing.
func (p *PendingAtmosphere) Release() {
	if !p.state.CompareAndSwap(int32(statePending), int32(stateReleased)) {
		return
	}
	p.freeScratch()
	p.atm.Destroy()
	p.atm = nil
}

func (p *PendingAtmosphere) freeScratch() {
	p.pool.Destroy()
	for _, d := range p.deltas {
		d.destroy()
	}
	p.atm.builder.release()
}

// AcquireOwnership records into cmd, for the graphics queue, the acquire
// half of the ownership transfer that Build released on the compute
// queue. It is needed only when the Builder was created with a distinct
// compute queue family.
func (p *PendingAtmosphere) AcquireOwnership(cmd gpu.CommandBuffer, computeFamily, gfxFamily uint32) {
	const op = "PendingAtmosphere.AcquireOwnership"
	if computeFamily == gfxFamily {
		precondition(op, "compute and graphics family are both %d", gfxFamily)
	}
	atm := p.Atmosphere()
	b := atm.builder
	if !b.crossQueue {
		precondition(op, "the builder released nothing: it has no separate compute family")
	}
	if computeFamily != b.computeFamily || gfxFamily != b.gfxFamily {
		precondition(op, "families %d -> %d do not match the release %d -> %d",
			computeFamily, gfxFamily, b.computeFamily, b.gfxFamily)
	}
	bufs, imgs := atm.handoff(computeFamily, gfxFamily, false)
	cmd.PipelineBarrier(gpu.PipelineStageNone, atm.params.DstStage, bufs, imgs)
}
