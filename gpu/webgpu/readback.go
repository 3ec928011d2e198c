package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
)

// Submit finishes cb, submits it and waits for the queue to drain.
func (d *Device) Submit(cb *CommandBuffer) error {
	cmd, err := cb.Finish()
	if err != nil {
		return err
	}
	defer cmd.Release()
	d.queue.Submit(cmd)
	d.dev.Poll(true, nil)
	return nil
}

// ReadImage copies the whole of img back to host memory, tightly packed
// with rows in x, then y, then z order. img must have been created with
// gpu.ImageUsageTransferSrc and all writes to it submitted.
func (d *Device) ReadImage(img gpu.Image) ([]byte, error) {
	im := img.(*Image)
	if im.tex == nil {
		return nil, fmt.Errorf("webgpu: %s has no texture", im.Desc.Label)
	}
	e := im.Desc.Extent
	bpt := im.Desc.Format.BytesPerTexel()
	if bpt == 0 {
		return nil, fmt.Errorf("%w: read back %s", ErrUnsupported, im.Desc.Format)
	}
	pitch := rowPitch(e.Width, bpt)
	size := uint64(pitch) * uint64(e.Height) * uint64(e.Depth)

	staging, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: im.Desc.Label + " readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: readback buffer: %w", err)
	}
	defer staging.Release()

	enc, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	defer enc.Release()
	enc.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  im.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  pitch,
				RowsPerImage: e.Height,
			},
		},
		&wgpu.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: e.Depth},
	)
	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: finish readback: %w", err)
	}
	defer cmd.Release()
	d.queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	done := false
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status, done = s, true
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: map readback: %w", err)
	}
	for !done {
		d.dev.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("webgpu: map readback: status %d", status)
	}
	defer staging.Unmap()

	return unpadRows(staging.GetMappedRange(0, uint(size)), int(e.Width)*bpt, int(pitch), int(e.Height)*int(e.Depth)), nil
}

// unpadRows copies rows of rowSize bytes out of data, where they start
// every pitch bytes.
func unpadRows(data []byte, rowSize, pitch, rows int) []byte {
	out := make([]byte, 0, rowSize*rows)
	for r := range rows {
		out = append(out, data[r*pitch:r*pitch+rowSize]...)
	}
	return out
}
