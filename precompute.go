package atmosphere

import (
	"encoding/binary"
	"fmt"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/google/uuid"
)

// deltaRoles are the scratch images owned by a PendingAtmosphere.
var deltaRoles = [5]imageRole{
	roleDeltaIrradiance,
	roleDeltaRayleigh,
	roleDeltaMie,
	roleDeltaMultiple,
	roleScatteringDensity,
}

func (b *Builder) imageDesc(role imageRole, params *Parameters) *gpu.ImageDesc {
	var extent gpu.Extent3D
	switch role {
	case roleTransmittance:
		extent = params.TransmittanceExtent().To3D()
	case roleIrradiance, roleDeltaIrradiance:
		extent = params.IrradianceExtent().To3D()
	default:
		extent = params.ScatteringExtent()
	}
	usage := gpu.ImageUsageStorage | gpu.ImageUsageSampled | params.Usage
	if role == roleIrradiance || role == roleDeltaIrradiance {
		usage |= gpu.ImageUsageTransferDst
	}
	return &gpu.ImageDesc{
		Label:  role.String(),
		Type:   role.imageType(),
		Format: role.format(),
		Extent: extent,
		Usage:  usage,
	}
}

// Build records the precomputation of the lookup tables for params into
// cmd, which must be in the recording state and be submitted to the
// compute queue family given to NewBuilder, or the graphics family when
// none was. The tables may be used once cmd has completed and
// AssertReady has been called.
func (b *Builder) Build(params Parameters, cmd gpu.CommandBuffer) (*PendingAtmosphere, error) {
	if b.destroyed.Load() {
		precondition("Builder.Build", "builder destroyed")
	}
	if err := params.Validate(); err != nil {
		return nil, setupErr("build", err)
	}

	var undo releaseStack
	fail := func(err error) (*PendingAtmosphere, error) {
		undo.run()
		return nil, setupErr("build", err)
	}

	var images [roleCount]*allocatedImage
	for role := imageRole(0); role < roleCount; role++ {
		img, err := b.alloc.image(b.imageDesc(role, &params))
		if err != nil {
			return fail(err)
		}
		undo.push(img.destroy)
		images[role] = img
	}
	paramsBuf, err := b.alloc.buffer(&gpu.BufferDesc{
		Label: "atmosphere params",
		Size:  PackedParamsSize,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageTransferDst,
	})
	if err != nil {
		return fail(err)
	}
	undo.push(paramsBuf.destroy)

	maxSets, sizes := transientPoolSizes()
	scratchPool, err := b.dev.CreateDescriptorPool(maxSets, sizes)
	if err != nil {
		return fail(fmt.Errorf("transient pool: %w", err))
	}
	undo.push(scratchPool.Destroy)
	layouts := make([]gpu.DescriptorSetLayout, 0, 1+passCount)
	layouts = append(layouts, b.paramsLayout)
	for k := range b.passes {
		layouts = append(layouts, b.passes[k].setLayout)
	}
	sets, err := b.dev.AllocateDescriptorSets(scratchPool, layouts)
	if err != nil {
		return fail(fmt.Errorf("transient sets: %w", err))
	}
	paramsSet, passSets := sets[0], sets[1:]

	maxSets, sizes = persistentPoolSizes()
	renderPool, err := b.dev.CreateDescriptorPool(maxSets, sizes)
	if err != nil {
		return fail(fmt.Errorf("render pool: %w", err))
	}
	undo.push(renderPool.Destroy)
	renderSets, err := b.dev.AllocateDescriptorSets(renderPool, []gpu.DescriptorSetLayout{b.renderLayout})
	if err != nil {
		return fail(fmt.Errorf("render set: %w", err))
	}
	renderSet := renderSets[0]

	whole := &gpu.BufferInfo{Buffer: paramsBuf.buffer, Range: gpu.WholeSize}
	writes := []gpu.DescriptorWrite{
		{Set: paramsSet, Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Buffer: whole},
		{Set: renderSet, Binding: 0, Type: gpu.DescriptorTypeUniformBuffer, Buffer: whole},
		{
			Set: renderSet, Binding: 1, Type: gpu.DescriptorTypeCombinedImageSampler,
			Image: &gpu.ImageInfo{View: images[roleTransmittance].view, Layout: params.Layout},
		},
		{
			Set: renderSet, Binding: 2, Type: gpu.DescriptorTypeCombinedImageSampler,
			Image: &gpu.ImageInfo{View: images[roleScattering].view, Layout: params.Layout},
		},
	}
	for k := range passTable {
		writes = append(writes, passTable[k].writes(passSets[k], &images)...)
	}
	b.dev.UpdateDescriptorSets(writes)

	runID := uuid.New()
	atm := &Atmosphere{
		builder:       b,
		log:           b.log.With(runID.String()[:8]),
		params:        params,
		runID:         runID,
		paramsBuf:     paramsBuf,
		transmittance: images[roleTransmittance],
		scattering:    images[roleScattering],
		irradiance:    images[roleIrradiance],
		pool:          renderPool,
		set:           renderSet,
	}
	pending := &PendingAtmosphere{atm: atm, pool: scratchPool}
	for i, role := range deltaRoles {
		pending.deltas[i] = images[role]
	}

	r := recorder{b: b, cmd: cmd, paramsSet: paramsSet, sets: passSets, images: &images, params: &params}
	r.record(atm)

	b.retain("Builder.Build")
	b.retain("Builder.Build")
	undo = nil
	atm.log.Debugf("recorded: order %d, transmittance %dx%d, scattering %dx%dx%d, irradiance %dx%d",
		params.Order,
		params.TransmittanceMuSize, params.TransmittanceRSize,
		params.ScatteringNuSize*params.ScatteringMuSSize, params.ScatteringMuSize, params.ScatteringRSize,
		params.IrradianceMuSSize, params.IrradianceRSize)
	return pending, nil
}

// recorder records the precomputation of one Build.
type recorder struct {
	b         *Builder
	cmd       gpu.CommandBuffer
	paramsSet gpu.DescriptorSet
	sets      []gpu.DescriptorSet
	images    *[roleCount]*allocatedImage
	params    *Parameters
}

func (r *recorder) img(role imageRole) gpu.Image { return r.images[role].image }

// dispatch runs pass k over extent, one workgroup per texel. A non-nil
// order is pushed first.
func (r *recorder) dispatch(k PassKind, extent gpu.Extent3D, order *uint32) {
	p := &r.b.passes[k]
	r.cmd.BindPipeline(gpu.BindPointCompute, p.pipeline)
	r.cmd.BindDescriptorSets(gpu.BindPointCompute, p.layout, 0, []gpu.DescriptorSet{r.paramsSet, r.sets[k]})
	if order != nil {
		var data [pushSize]byte
		binary.LittleEndian.PutUint32(data[:], *order)
		r.cmd.PushConstants(p.layout, gpu.ShaderStageCompute, 0, data[:])
	}
	r.cmd.Dispatch(extent.Width, extent.Height, extent.Depth)
}

func (r *recorder) record(atm *Atmosphere) {
	cmd := r.cmd
	compute := gpu.PipelineStageComputeShader
	transmittance := r.params.TransmittanceExtent().To3D()
	irradiance := r.params.IrradianceExtent().To3D()
	scattering := r.params.ScatteringExtent()

	packed := r.params.Pack()
	cmd.UpdateBuffer(atm.paramsBuf.buffer, 0, packed[:])
	cmd.PipelineBarrier(gpu.PipelineStageTransfer, compute,
		[]gpu.BufferBarrier{{
			Buffer:    atm.paramsBuf.buffer,
			SrcAccess: gpu.AccessTransferWrite,
			DstAccess: gpu.AccessUniformRead,
			SrcFamily: gpu.QueueFamilyIgnored,
			DstFamily: gpu.QueueFamilyIgnored,
		}},
		[]gpu.ImageBarrier{
			initBarrier(r.img(roleTransmittance), gpu.AccessNone),
			initBarrier(r.img(roleDeltaRayleigh), gpu.AccessNone),
			initBarrier(r.img(roleDeltaMie), gpu.AccessNone),
			initBarrier(r.img(roleScattering), gpu.AccessNone),
			initBarrier(r.img(roleDeltaIrradiance), gpu.AccessNone),
			initBarrier(r.img(roleDeltaMultiple), gpu.AccessNone),
			{
				Image:     r.img(roleIrradiance),
				DstAccess: gpu.AccessTransferWrite,
				OldLayout: gpu.ImageLayoutUndefined,
				NewLayout: gpu.ImageLayoutTransferDstOptimal,
				SrcFamily: gpu.QueueFamilyIgnored,
				DstFamily: gpu.QueueFamilyIgnored,
			},
		})

	r.dispatch(PassTransmittance, transmittance, nil)
	barrier(cmd, compute, compute, writeReadBarrier(r.img(roleTransmittance)))

	r.dispatch(PassDirectIrradiance, irradiance, nil)
	r.dispatch(PassSingleScattering, scattering, nil)

	// Direct irradiance is kept in delta_irradiance only; the irradiance
	// table accumulates indirect irradiance from order 2 on.
	cmd.ClearColorImage(r.img(roleIrradiance), gpu.ImageLayoutTransferDstOptimal, [4]float32{})
	barrier(cmd, gpu.PipelineStageTransfer, compute, gpu.ImageBarrier{
		Image:     r.img(roleIrradiance),
		SrcAccess: gpu.AccessTransferWrite,
		DstAccess: gpu.AccessShaderRead | gpu.AccessShaderWrite,
		OldLayout: gpu.ImageLayoutTransferDstOptimal,
		NewLayout: gpu.ImageLayoutGeneral,
		SrcFamily: gpu.QueueFamilyIgnored,
		DstFamily: gpu.QueueFamilyIgnored,
	})
	barrier(cmd, compute, compute,
		writeReadBarrier(r.img(roleDeltaRayleigh)),
		writeReadBarrier(r.img(roleDeltaMie)))

	for order := uint32(2); order <= r.params.Order; order++ {
		barrier(cmd, compute, compute,
			initBarrier(r.img(roleScatteringDensity), gpu.AccessShaderRead),
			writeReadBarrier(r.img(roleDeltaIrradiance)),
			writeReadBarrier(r.img(roleDeltaMultiple)))
		r.dispatch(PassScatteringDensity, scattering, &order)

		barrier(cmd, compute, compute,
			readWriteBarrier(r.img(roleDeltaIrradiance)),
			accumulateBarrier(r.img(roleIrradiance)))
		prev := order - 1
		r.dispatch(PassIndirectIrradiance, irradiance, &prev)

		barrier(cmd, compute, compute,
			writeReadBarrier(r.img(roleScatteringDensity)),
			accumulateBarrier(r.img(roleScattering)),
			initBarrier(r.img(roleDeltaMultiple), gpu.AccessShaderRead))
		r.dispatch(PassMultipleScattering, scattering, nil)
	}

	src, dst := gpu.QueueFamilyIgnored, gpu.QueueFamilyIgnored
	if r.b.crossQueue {
		src, dst = r.b.computeFamily, r.b.gfxFamily
	}
	bufs, imgs := atm.handoff(src, dst, true)
	cmd.PipelineBarrier(compute, r.params.DstStage, bufs, imgs)
}
