package atmosphere

import "github.com/gekko3d/atmosphere/gpu"

// The precomputation moves each image through a few barrier forms.

// initBarrier discards the contents of img and prepares it for storage
// writes. src is the access that must complete before the discard.
func initBarrier(img gpu.Image, src gpu.Access) gpu.ImageBarrier {
	return gpu.ImageBarrier{
		Image:     img,
		SrcAccess: src,
		DstAccess: gpu.AccessShaderWrite,
		OldLayout: gpu.ImageLayoutUndefined,
		NewLayout: gpu.ImageLayoutGeneral,
		SrcFamily: gpu.QueueFamilyIgnored,
		DstFamily: gpu.QueueFamilyIgnored,
	}
}

// writeReadBarrier makes storage writes to img visible to sampling.
func writeReadBarrier(img gpu.Image) gpu.ImageBarrier {
	return gpu.ImageBarrier{
		Image:     img,
		SrcAccess: gpu.AccessShaderWrite,
		DstAccess: gpu.AccessShaderRead,
		OldLayout: gpu.ImageLayoutGeneral,
		NewLayout: gpu.ImageLayoutShaderReadOnlyOptimal,
		SrcFamily: gpu.QueueFamilyIgnored,
		DstFamily: gpu.QueueFamilyIgnored,
	}
}

// readWriteBarrier returns a sampled img to storage writes.
func readWriteBarrier(img gpu.Image) gpu.ImageBarrier {
	return gpu.ImageBarrier{
		Image:     img,
		SrcAccess: gpu.AccessShaderRead,
		DstAccess: gpu.AccessShaderWrite,
		OldLayout: gpu.ImageLayoutShaderReadOnlyOptimal,
		NewLayout: gpu.ImageLayoutGeneral,
		SrcFamily: gpu.QueueFamilyIgnored,
		DstFamily: gpu.QueueFamilyIgnored,
	}
}

// accumulateBarrier orders two read-modify-write passes over img.
func accumulateBarrier(img gpu.Image) gpu.ImageBarrier {
	return gpu.ImageBarrier{
		Image:     img,
		SrcAccess: gpu.AccessShaderWrite,
		DstAccess: gpu.AccessShaderRead | gpu.AccessShaderWrite,
		OldLayout: gpu.ImageLayoutGeneral,
		NewLayout: gpu.ImageLayoutGeneral,
		SrcFamily: gpu.QueueFamilyIgnored,
		DstFamily: gpu.QueueFamilyIgnored,
	}
}

func barrier(cmd gpu.CommandBuffer, src, dst gpu.PipelineStage, images ...gpu.ImageBarrier) {
	cmd.PipelineBarrier(src, dst, nil, images)
}

// handoff returns the barriers moving the lookup tables and params buffer
// to their final state. With release set they carry the ownership release
// half; otherwise the acquire half.
func (a *Atmosphere) handoff(srcFamily, dstFamily uint32, release bool) ([]gpu.BufferBarrier, []gpu.ImageBarrier) {
	p := &a.params
	buf := gpu.BufferBarrier{
		Buffer:    a.paramsBuf.buffer,
		SrcFamily: srcFamily,
		DstFamily: dstFamily,
	}
	written := gpu.AccessShaderWrite
	if release {
		buf.SrcAccess = gpu.AccessUniformRead
	} else {
		buf.DstAccess = gpu.AccessUniformRead
		written = gpu.AccessNone
	}
	img := func(i *allocatedImage, old gpu.ImageLayout, src gpu.Access) gpu.ImageBarrier {
		return gpu.ImageBarrier{
			Image:     i.image,
			SrcAccess: src,
			DstAccess: p.DstAccess,
			OldLayout: old,
			NewLayout: p.Layout,
			SrcFamily: srcFamily,
			DstFamily: dstFamily,
		}
	}
	return []gpu.BufferBarrier{buf}, []gpu.ImageBarrier{
		img(a.scattering, gpu.ImageLayoutGeneral, written),
		img(a.irradiance, gpu.ImageLayoutGeneral, written),
		img(a.transmittance, gpu.ImageLayoutShaderReadOnlyOptimal, gpu.AccessNone),
	}
}
