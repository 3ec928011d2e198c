package vkgpu

import (
	"unsafe"

	"github.com/gekko3d/atmosphere/gpu"
	vk "github.com/goki/vulkan"
)

// CommandBuffer records into a vk.CommandBuffer the caller has begun.
// Like the underlying handle it must not be used from several goroutines
// at once.
type CommandBuffer struct {
	cmd vk.CommandBuffer
}

// NewCommandBuffer wraps cmd.
func NewCommandBuffer(cmd vk.CommandBuffer) *CommandBuffer {
	return &CommandBuffer{cmd: cmd}
}

// Handle returns the wrapped command buffer.
func (c *CommandBuffer) Handle() vk.CommandBuffer { return c.cmd }

func (c *CommandBuffer) UpdateBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdUpdateBuffer(c.cmd, buf.(*Buffer).Handle, vk.DeviceSize(offset), vk.DeviceSize(len(data)), wordPointer(data))
}

// wordPointer returns data as the *uint32 vkCmdUpdateBuffer takes. Callers
// keep len(data) a multiple of 4.
func wordPointer(data []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&data[0]))
}

func (c *CommandBuffer) PipelineBarrier(src, dst gpu.PipelineStage, buffers []gpu.BufferBarrier, images []gpu.ImageBarrier) {
	bb := make([]vk.BufferMemoryBarrier, len(buffers))
	for i, b := range buffers {
		bb[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
			DstAccessMask:       vk.AccessFlags(b.DstAccess),
			SrcQueueFamilyIndex: b.SrcFamily,
			DstQueueFamilyIndex: b.DstFamily,
			Buffer:              b.Buffer.(*Buffer).Handle,
			Size:                vk.DeviceSize(vk.WholeSize),
		}
	}
	ib := make([]vk.ImageMemoryBarrier, len(images))
	for i, b := range images {
		img := b.Image.(*Image)
		ib[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
			DstAccessMask:       vk.AccessFlags(b.DstAccess),
			OldLayout:           vk.ImageLayout(b.OldLayout),
			NewLayout:           vk.ImageLayout(b.NewLayout),
			SrcQueueFamilyIndex: b.SrcFamily,
			DstQueueFamilyIndex: b.DstFamily,
			Image:               img.Handle,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: aspect(img.Desc.Format),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
	}
	// vkCmdPipelineBarrier rejects a zero stage mask.
	if src == gpu.PipelineStageNone {
		src = gpu.PipelineStageTopOfPipe
	}
	if dst == gpu.PipelineStageNone {
		dst = gpu.PipelineStageBottomOfPipe
	}
	vk.CmdPipelineBarrier(c.cmd,
		vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), vk.DependencyFlags(0),
		0, nil,
		uint32(len(bb)), bb,
		uint32(len(ib)), ib)
}

func (c *CommandBuffer) ClearColorImage(img gpu.Image, layout gpu.ImageLayout, color [4]float32) {
	value := vk.NewClearValue(color[:])
	vk.CmdClearColorImage(c.cmd, img.(*Image).Handle, vk.ImageLayout(layout),
		(*vk.ClearColorValue)(unsafe.Pointer(&value)), 1,
		[]vk.ImageSubresourceRange{{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		}})
}

func (c *CommandBuffer) BindPipeline(bp gpu.BindPoint, p gpu.Pipeline) {
	vk.CmdBindPipeline(c.cmd, vk.PipelineBindPoint(bp), p.(*Pipeline).Handle)
}

func (c *CommandBuffer) BindDescriptorSets(bp gpu.BindPoint, layout gpu.PipelineLayout, first uint32, sets []gpu.DescriptorSet) {
	handles := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		handles[i] = s.(*DescriptorSet).Handle
	}
	vk.CmdBindDescriptorSets(c.cmd, vk.PipelineBindPoint(bp), layout.(*PipelineLayout).Handle,
		first, uint32(len(handles)), handles, 0, nil)
}

func (c *CommandBuffer) PushConstants(layout gpu.PipelineLayout, stages gpu.ShaderStage, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(c.cmd, layout.(*PipelineLayout).Handle, vk.ShaderStageFlags(stages),
		offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(c.cmd, x, y, z)
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(c.cmd, vertexCount, instanceCount, firstVertex, firstInstance)
}

var (
	_ gpu.Device        = (*Device)(nil)
	_ gpu.CommandBuffer = (*CommandBuffer)(nil)
)
