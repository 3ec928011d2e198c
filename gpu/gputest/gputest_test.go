package gputest

import (
	"errors"
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(t *testing.T, d *Device, label string) (*Image, *ImageView) {
	t.Helper()
	img, err := d.CreateImage(&gpu.ImageDesc{
		Label:  label,
		Type:   gpu.ImageType2D,
		Format: gpu.FormatR32G32B32A32Sfloat,
		Extent: gpu.Extent3D{Width: 2, Height: 1, Depth: 1},
	})
	require.NoError(t, err)
	mem, err := d.AllocateMemory(32, 1)
	require.NoError(t, err)
	require.NoError(t, d.BindImageMemory(img, mem, 0))
	view, err := d.CreateImageView(img)
	require.NoError(t, err)
	return img.(*Image), view.(*ImageView)
}

func TestDevice_TracksObjects(t *testing.T) {
	d := NewDevice()
	img, view := newImage(t, d, "a")
	assert.Equal(t, 3, d.LiveTotal())
	assert.Equal(t, 1, d.Live(KindImage))
	assert.Equal(t, "image=1 image-view=1 memory=1 ", d.LiveSummary())
	for _, b := range img.Data {
		require.Equal(t, Poison, b)
	}

	view.Destroy()
	img.Destroy()
	img.Memory.Destroy()
	assert.Zero(t, d.LiveTotal())
	assert.Equal(t, 1, d.Destroyed(KindImage))

	img.Destroy()
	assert.Len(t, d.Problems(), 1)
}

func TestDevice_FailAfter(t *testing.T) {
	d := NewDevice()
	d.FailAfter(KindSampler, 2)
	_, err := d.CreateSampler(&gpu.SamplerDesc{})
	require.NoError(t, err)
	_, err = d.CreateSampler(&gpu.SamplerDesc{})
	assert.True(t, errors.Is(err, ErrInjected))
	_, err = d.CreateSampler(&gpu.SamplerDesc{})
	assert.NoError(t, err)
	assert.Equal(t, 2, d.Created(KindSampler))
}

func TestDevice_DescriptorPoolCapacity(t *testing.T) {
	d := NewDevice()
	layout, err := d.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeStorageImage},
	})
	require.NoError(t, err)
	pool, err := d.CreateDescriptorPool(2, []gpu.DescriptorPoolSize{{Type: gpu.DescriptorTypeStorageImage, Count: 1}})
	require.NoError(t, err)

	_, err = d.AllocateDescriptorSets(pool, []gpu.DescriptorSetLayout{layout})
	require.NoError(t, err)
	_, err = d.AllocateDescriptorSets(pool, []gpu.DescriptorSetLayout{layout})
	assert.Error(t, err)

	_, err = d.CreateDescriptorSetLayout([]gpu.DescriptorBinding{{Binding: 1}, {Binding: 1}})
	assert.Error(t, err)
}

// computeSetup returns a pipeline writing out and sampling in.
func computeSetup(t *testing.T, d *Device, in, out *ImageView) (gpu.Pipeline, gpu.PipelineLayout, gpu.DescriptorSet) {
	t.Helper()
	layout, err := d.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Type: gpu.DescriptorTypeCombinedImageSampler},
		{Binding: 1, Type: gpu.DescriptorTypeStorageImage},
	})
	require.NoError(t, err)
	pl, err := d.CreatePipelineLayout([]gpu.DescriptorSetLayout{layout}, nil)
	require.NoError(t, err)
	mod, err := d.CreateShaderModule(gpu.ShaderSource{WGSL: "x"})
	require.NoError(t, err)
	pipes, err := d.CreateComputePipelines(nil, []gpu.ComputePipelineDesc{{Label: "copy", Layout: pl, Module: mod}})
	require.NoError(t, err)
	pool, err := d.CreateDescriptorPool(1, []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeCombinedImageSampler, Count: 1},
		{Type: gpu.DescriptorTypeStorageImage, Count: 1},
	})
	require.NoError(t, err)
	sets, err := d.AllocateDescriptorSets(pool, []gpu.DescriptorSetLayout{layout})
	require.NoError(t, err)
	d.UpdateDescriptorSets([]gpu.DescriptorWrite{
		{Set: sets[0], Binding: 0, Type: gpu.DescriptorTypeCombinedImageSampler, Image: &gpu.ImageInfo{View: in, Layout: gpu.ImageLayoutShaderReadOnlyOptimal}},
		{Set: sets[0], Binding: 1, Type: gpu.DescriptorTypeStorageImage, Image: &gpu.ImageInfo{View: out, Layout: gpu.ImageLayoutGeneral}},
	})
	require.Empty(t, d.Problems())
	return pipes[0], pl, sets[0]
}

func TestCommandBuffer_DetectsMissingBarrier(t *testing.T) {
	d := NewDevice()
	in, inView := newImage(t, d, "in")
	out, outView := newImage(t, d, "out")
	p, pl, set := computeSetup(t, d, inView, outView)

	cb := NewCommandBuffer()
	cb.AssumeLayout(in, gpu.ImageLayoutShaderReadOnlyOptimal)
	cb.PipelineBarrier(gpu.PipelineStageTopOfPipe, gpu.PipelineStageComputeShader, nil, []gpu.ImageBarrier{{
		Image: out, DstAccess: gpu.AccessShaderWrite, OldLayout: gpu.ImageLayoutUndefined, NewLayout: gpu.ImageLayoutGeneral,
	}})
	cb.BindPipeline(gpu.BindPointCompute, p)
	cb.BindDescriptorSets(gpu.BindPointCompute, pl, 0, []gpu.DescriptorSet{set})
	cb.Dispatch(1, 1, 1)
	require.Empty(t, cb.Violations())
	assert.Equal(t, []string{"copy"}, out.Writers)
	assert.Equal(t, Written, out.Data[0])

	// A second write without a barrier races with the first.
	cb.Dispatch(1, 1, 1)
	assert.Len(t, cb.Violations(), 1)

	// A barrier that does not name the shader write is flagged too.
	cb.PipelineBarrier(gpu.PipelineStageComputeShader, gpu.PipelineStageComputeShader, nil, []gpu.ImageBarrier{{
		Image: out, SrcAccess: gpu.AccessShaderRead, OldLayout: gpu.ImageLayoutGeneral, NewLayout: gpu.ImageLayoutShaderReadOnlyOptimal,
	}})
	assert.Len(t, cb.Violations(), 2)

	// out is now read-only, but the set binds it as a storage image.
	cb.Dispatch(1, 1, 1)
	assert.Len(t, cb.Violations(), 3)
	assert.Equal(t, []CommandKind{CmdBarrier, CmdBindPipeline, CmdBindSets, CmdDispatch, CmdDispatch, CmdBarrier, CmdDispatch}, cb.Kinds())
}

func TestCommandBuffer_Clear(t *testing.T) {
	d := NewDevice()
	img, _ := newImage(t, d, "c")
	cb := NewCommandBuffer()
	cb.ClearColorImage(img, gpu.ImageLayoutTransferDstOptimal, [4]float32{})
	assert.Len(t, cb.Violations(), 1, "unknown layout")

	cb = NewCommandBuffer()
	cb.AssumeLayout(img, gpu.ImageLayoutTransferDstOptimal)
	cb.ClearColorImage(img, gpu.ImageLayoutTransferDstOptimal, [4]float32{})
	assert.Empty(t, cb.Violations())
	for _, b := range img.Data {
		require.Zero(t, b)
	}
	layout, known := cb.Layout(img)
	assert.True(t, known)
	assert.Equal(t, gpu.ImageLayoutTransferDstOptimal, layout)
}
