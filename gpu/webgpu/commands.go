package webgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
)

// bindState is the pipeline and descriptor state of one bind point.
type bindState struct {
	pipeline *Pipeline
	layout   *PipelineLayout
	sets     []*DescriptorSet
	push     [pushSlotSize]byte
}

// CommandBuffer records into a wgpu command encoder.
//
// Dispatches are grouped into compute passes; a pipeline barrier ends the
// current one, which is where WebGPU synchronizes. Draws must be recorded
// between BeginRenderPass and EndRenderPass. UpdateBuffer and
// ClearColorImage go through the queue and therefore take effect before
// the whole command buffer executes.
type CommandBuffer struct {
	dev *Device
	enc *wgpu.CommandEncoder

	compute *wgpu.ComputePassEncoder
	render  *wgpu.RenderPassEncoder

	state [2]bindState

	ring      *wgpu.Buffer
	ringGroup *wgpu.BindGroup
	slot      uint32

	layouts map[*Image]gpu.ImageLayout
	written map[*Image]bool
	updated map[*Buffer]bool

	err error
}

// NewCommandBuffer creates an encoder and the push constant ring used by
// the commands recorded into it.
func (d *Device) NewCommandBuffer(label string) (*CommandBuffer, error) {
	enc, err := d.dev.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	ring, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " push constants",
		Size:  pushSlotSize * pushSlots,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		enc.Release()
		return nil, fmt.Errorf("webgpu: create push constant ring: %w", err)
	}
	group, err := d.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: d.pushLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  ring,
			Size:    pushSlotSize,
		}},
	})
	if err != nil {
		ring.Release()
		enc.Release()
		return nil, fmt.Errorf("webgpu: create push constant group: %w", err)
	}
	return &CommandBuffer{
		dev:       d,
		enc:       enc,
		ring:      ring,
		ringGroup: group,
		layouts:   make(map[*Image]gpu.ImageLayout),
		written:   make(map[*Image]bool),
		updated:   make(map[*Buffer]bool),
	}, nil
}

// Encoder returns the wrapped encoder, for commands this package does not
// cover. The current compute pass must be ended first with EndPasses.
func (c *CommandBuffer) Encoder() *wgpu.CommandEncoder { return c.enc }

// Err returns the first recording error.
func (c *CommandBuffer) Err() error { return c.err }

func (c *CommandBuffer) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf("webgpu: "+format, args...)
	}
}

func (c *CommandBuffer) failErr(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}

// EndPasses ends the current compute pass, if any.
func (c *CommandBuffer) EndPasses() {
	if c.compute != nil {
		c.failErr(c.compute.End())
		c.compute.Release()
		c.compute = nil
	}
}

// BeginRenderPass starts a render pass. Draw is only valid inside one.
func (c *CommandBuffer) BeginRenderPass(desc *wgpu.RenderPassDescriptor) {
	if c.render != nil {
		c.fail("render pass already begun")
		return
	}
	c.EndPasses()
	c.render = c.enc.BeginRenderPass(desc)
}

func (c *CommandBuffer) EndRenderPass() {
	if c.render == nil {
		c.fail("no render pass to end")
		return
	}
	c.failErr(c.render.End())
	c.render.Release()
	c.render = nil
}

// Finish ends open passes and returns the command buffer to submit, or the
// first error recorded.
func (c *CommandBuffer) Finish() (*wgpu.CommandBuffer, error) {
	c.EndPasses()
	if c.render != nil {
		c.fail("render pass not ended")
	}
	if c.err != nil {
		return nil, c.err
	}
	cb, err := c.enc.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("webgpu: finish: %w", err)
	}
	return cb, nil
}

// Release frees the encoder and the push constant ring. Call it after the
// GPU has finished with the submitted commands.
func (c *CommandBuffer) Release() {
	c.EndPasses()
	if c.render != nil {
		c.render.Release()
		c.render = nil
	}
	c.ringGroup.Release()
	c.ring.Release()
	c.enc.Release()
}

func (c *CommandBuffer) UpdateBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	b := buf.(*Buffer)
	if c.updated[b] {
		c.fail("buffer updated twice in one command buffer")
		return
	}
	c.updated[b] = true
	c.failErr(c.dev.queue.WriteBuffer(b.buf, offset, data))
}

// PipelineBarrier checks the layout transitions against those recorded so
// far and ends the current compute pass. Queue family ownership has no
// meaning on a single WebGPU queue.
func (c *CommandBuffer) PipelineBarrier(src, dst gpu.PipelineStage, buffers []gpu.BufferBarrier, images []gpu.ImageBarrier) {
	for _, b := range images {
		img := b.Image.(*Image)
		if cur, ok := c.layouts[img]; ok && b.OldLayout != gpu.ImageLayoutUndefined && b.OldLayout != cur {
			c.fail("%s: barrier from %s but image is in %s", img.Desc.Label, b.OldLayout, cur)
		}
		c.layouts[img] = b.NewLayout
	}
	c.EndPasses()
}

// ClearColorImage uploads a texture full of color. The upload is ordered
// before every command of the buffer, so img must not have been written by
// an earlier command.
func (c *CommandBuffer) ClearColorImage(img gpu.Image, layout gpu.ImageLayout, color [4]float32) {
	im := img.(*Image)
	if c.written[im] {
		c.fail("%s: clear after write in the same command buffer", im.Desc.Label)
		return
	}
	texel, err := encodeTexel(im.Desc.Format, color)
	if err != nil {
		c.failErr(err)
		return
	}
	e := im.Desc.Extent
	data := make([]byte, 0, e.Texels()*len(texel))
	for range e.Texels() {
		data = append(data, texel...)
	}
	c.dev.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  im.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  e.Width * uint32(len(texel)),
			RowsPerImage: e.Height,
		},
		&wgpu.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: e.Depth},
	)
}

// encodeTexel returns the bytes of one texel of color in f.
func encodeTexel(f gpu.Format, color [4]float32) ([]byte, error) {
	size := f.BytesPerTexel()
	if color == ([4]float32{}) && size > 0 {
		return make([]byte, size), nil
	}
	out := make([]byte, 0, size)
	switch f {
	case gpu.FormatR32Sfloat:
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(color[0]))
	case gpu.FormatR32G32B32A32Sfloat:
		for _, v := range color {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	case gpu.FormatR8G8B8A8Unorm, gpu.FormatR8G8B8A8Srgb:
		for _, v := range color {
			out = append(out, unorm8(v))
		}
	case gpu.FormatB8G8R8A8Unorm, gpu.FormatB8G8R8A8Srgb:
		out = append(out, unorm8(color[2]), unorm8(color[1]), unorm8(color[0]), unorm8(color[3]))
	default:
		return nil, fmt.Errorf("%w: clear of %s to a non-zero color", ErrUnsupported, f)
	}
	return out, nil
}

func unorm8(v float32) byte {
	return byte(math.Round(float64(max(0, min(1, v)) * 255)))
}

func (c *CommandBuffer) BindPipeline(bp gpu.BindPoint, p gpu.Pipeline) {
	c.state[bp].pipeline = p.(*Pipeline)
}

func (c *CommandBuffer) BindDescriptorSets(bp gpu.BindPoint, layout gpu.PipelineLayout, first uint32, sets []gpu.DescriptorSet) {
	st := &c.state[bp]
	st.layout = layout.(*PipelineLayout)
	need := int(first) + len(sets)
	if len(st.sets) < need {
		st.sets = append(st.sets, make([]*DescriptorSet, need-len(st.sets))...)
	}
	for i, s := range sets {
		st.sets[int(first)+i] = s.(*DescriptorSet)
	}
}

func (c *CommandBuffer) PushConstants(layout gpu.PipelineLayout, stages gpu.ShaderStage, offset uint32, data []byte) {
	if int(offset)+len(data) > pushSlotSize {
		c.fail("push constants %d+%d exceed %d bytes", offset, len(data), pushSlotSize)
		return
	}
	l := layout.(*PipelineLayout)
	// Stages select the bind point the values are visible to.
	if stages&gpu.ShaderStageCompute != 0 {
		c.state[gpu.BindPointCompute].layout = l
		copy(c.state[gpu.BindPointCompute].push[offset:], data)
	}
	if stages&(gpu.ShaderStageVertex|gpu.ShaderStageFragment) != 0 {
		c.state[gpu.BindPointGraphics].layout = l
		copy(c.state[gpu.BindPointGraphics].push[offset:], data)
	}
}

// groupSetter is the bind group part of compute and render pass encoders.
type groupSetter interface {
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
}

// bind sets the descriptor sets and push constants of st on pass.
func (c *CommandBuffer) bind(pass groupSetter, st *bindState) bool {
	if st.pipeline == nil || st.layout == nil {
		c.fail("draw or dispatch without pipeline and descriptor sets")
		return false
	}
	if len(st.sets) < len(st.layout.Sets) {
		c.fail("%s: %d descriptor sets bound, layout has %d", st.pipeline.Label, len(st.sets), len(st.layout.Sets))
		return false
	}
	for i := range st.layout.Sets {
		if st.sets[i] == nil {
			c.fail("%s: descriptor set %d not bound", st.pipeline.Label, i)
			return false
		}
		group, err := st.sets[i].bindGroup()
		if err != nil {
			c.failErr(fmt.Errorf("%s: set %d: %w", st.pipeline.Label, i, err))
			return false
		}
		pass.SetBindGroup(uint32(i), group, nil)
	}
	if !st.layout.HasPush {
		return true
	}
	if c.slot == pushSlots {
		c.failErr(errPushRingFull)
		return false
	}
	offset := c.slot * pushSlotSize
	c.slot++
	if err := c.dev.queue.WriteBuffer(c.ring, uint64(offset), st.push[:]); err != nil {
		c.failErr(err)
		return false
	}
	pass.SetBindGroup(st.layout.PushGroup, c.ringGroup, []uint32{offset})
	return true
}

var errPushRingFull = errors.New("webgpu: too many dispatches and draws with push constants in one command buffer")

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	if c.render != nil {
		c.fail("dispatch inside a render pass")
		return
	}
	st := &c.state[gpu.BindPointCompute]
	if st.pipeline == nil || st.pipeline.compute == nil {
		c.fail("dispatch without a compute pipeline")
		return
	}
	if c.compute == nil {
		c.compute = c.enc.BeginComputePass(nil)
	}
	c.compute.SetPipeline(st.pipeline.compute)
	if !c.bind(c.compute, st) {
		return
	}
	c.compute.DispatchWorkgroups(x, y, z)
	c.markWritten(st)
}

// markWritten records the storage images of the bound sets as written.
func (c *CommandBuffer) markWritten(st *bindState) {
	for i, set := range st.sets {
		if i >= len(st.layout.Sets) || set == nil {
			continue
		}
		for _, b := range set.layout.Bindings {
			if b.Type != gpu.DescriptorTypeStorageImage {
				continue
			}
			if w, ok := set.writes[b.Binding]; ok && w.Image != nil {
				c.written[w.Image.View.(*ImageView).Image] = true
			}
		}
	}
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if c.render == nil {
		c.fail("draw outside a render pass")
		return
	}
	st := &c.state[gpu.BindPointGraphics]
	if st.pipeline == nil || st.pipeline.render == nil {
		c.fail("draw without a graphics pipeline")
		return
	}
	c.render.SetPipeline(st.pipeline.render)
	if !c.bind(c.render, st) {
		return
	}
	c.render.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

var _ gpu.CommandBuffer = (*CommandBuffer)(nil)
