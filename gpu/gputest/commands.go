package gputest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/atmosphere/gpu"
)

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CmdUpdateBuffer CommandKind = iota + 1
	CmdBarrier
	CmdClear
	CmdBindPipeline
	CmdBindSets
	CmdPush
	CmdDispatch
	CmdDraw
)

func (k CommandKind) String() string {
	switch k {
	case CmdUpdateBuffer:
		return "update-buffer"
	case CmdBarrier:
		return "barrier"
	case CmdClear:
		return "clear"
	case CmdBindPipeline:
		return "bind-pipeline"
	case CmdBindSets:
		return "bind-sets"
	case CmdPush:
		return "push"
	case CmdDispatch:
		return "dispatch"
	case CmdDraw:
		return "draw"
	}
	return "unknown"
}

// Command is one recorded command. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	Buffer *Buffer
	Offset uint64
	Data   []byte

	SrcStage       gpu.PipelineStage
	DstStage       gpu.PipelineStage
	BufferBarriers []gpu.BufferBarrier
	ImageBarriers  []gpu.ImageBarrier

	Image  *Image
	Layout gpu.ImageLayout
	Color  [4]float32

	BindPoint      gpu.BindPoint
	Pipeline       *Pipeline
	PipelineLayout *PipelineLayout
	FirstSet       uint32
	Sets           []gpu.DescriptorSet
	Stages         gpu.ShaderStage

	X, Y, Z uint32

	// Stored and Sampled are the images bound as storage images and
	// sampled images when a dispatch or draw was recorded.
	Stored  []*Image
	Sampled []*Image
}

// PushValue decodes the data of a push command as a little-endian uint32.
func (c Command) PushValue() uint32 {
	if len(c.Data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(c.Data)
}

// Barrier returns the image barrier on img, if c is a barrier containing one.
func (c Command) Barrier(img gpu.Image) (gpu.ImageBarrier, bool) {
	for _, b := range c.ImageBarriers {
		if b.Image == img {
			return b, true
		}
	}
	return gpu.ImageBarrier{}, false
}

type pendingWrite struct {
	by     string
	access gpu.Access
}

// CommandBuffer records commands and validates them as they arrive.
//
// It tracks the layout of every image it has seen a barrier for, and
// writes that no barrier has made visible yet. Dispatches that use an
// image in the wrong layout, read an unsynchronized write, or write over
// one, are reported by Violations.
type CommandBuffer struct {
	Commands []Command

	violations []string
	layouts    map[*Image]gpu.ImageLayout
	pending    map[*Image]pendingWrite
	pendingBuf map[*Buffer]bool
	pipelines  map[gpu.BindPoint]*Pipeline
	bound      map[gpu.BindPoint]map[uint32]*DescriptorSet
}

// NewCommandBuffer returns an empty recording command buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{
		layouts:    make(map[*Image]gpu.ImageLayout),
		pending:    make(map[*Image]pendingWrite),
		pendingBuf: make(map[*Buffer]bool),
		pipelines:  make(map[gpu.BindPoint]*Pipeline),
		bound:      make(map[gpu.BindPoint]map[uint32]*DescriptorSet),
	}
}

// Violations returns the synchronization and binding errors seen so far.
func (cb *CommandBuffer) Violations() []string {
	return append([]string(nil), cb.violations...)
}

// Layout returns the tracked layout of img and whether it is known.
func (cb *CommandBuffer) Layout(img gpu.Image) (gpu.ImageLayout, bool) {
	l, ok := cb.layouts[img.(*Image)]
	return l, ok
}

// AssumeLayout records img as being in layout, as if transitioned by an
// earlier command buffer.
func (cb *CommandBuffer) AssumeLayout(img gpu.Image, layout gpu.ImageLayout) {
	cb.layouts[img.(*Image)] = layout
}

// Filter returns the recorded commands of kind, in order.
func (cb *CommandBuffer) Filter(kind CommandKind) []Command {
	var out []Command
	for _, c := range cb.Commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Kinds returns the kinds of all recorded commands, in order.
func (cb *CommandBuffer) Kinds() []CommandKind {
	out := make([]CommandKind, len(cb.Commands))
	for i, c := range cb.Commands {
		out[i] = c.Kind
	}
	return out
}

func (cb *CommandBuffer) violationf(format string, args ...any) {
	cb.violations = append(cb.violations, fmt.Sprintf("#%d: ", len(cb.Commands))+fmt.Sprintf(format, args...))
}

func label(img *Image) string {
	if img.Desc.Label != "" {
		return img.Desc.Label
	}
	return fmt.Sprintf("image#%d", img.id)
}

func (cb *CommandBuffer) UpdateBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	b := buf.(*Buffer)
	if len(data)%4 != 0 || len(data) > 65536 {
		cb.violationf("update of %d bytes", len(data))
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		cb.violationf("update past the end of buffer #%d", b.id)
	} else {
		copy(b.Data[offset:], data)
	}
	cb.pendingBuf[b] = true
	cb.Commands = append(cb.Commands, Command{
		Kind:   CmdUpdateBuffer,
		Buffer: b,
		Offset: offset,
		Data:   append([]byte(nil), data...),
	})
}

func (cb *CommandBuffer) PipelineBarrier(src, dst gpu.PipelineStage, buffers []gpu.BufferBarrier, images []gpu.ImageBarrier) {
	for _, bb := range buffers {
		b := bb.Buffer.(*Buffer)
		if cb.pendingBuf[b] {
			if bb.SrcAccess&gpu.AccessTransferWrite == 0 {
				cb.violationf("buffer barrier on #%d does not cover the pending transfer write", b.id)
			}
			delete(cb.pendingBuf, b)
		}
	}
	for _, ib := range images {
		img := ib.Image.(*Image)
		if cur, ok := cb.layouts[img]; ok && ib.OldLayout != gpu.ImageLayoutUndefined && ib.OldLayout != cur {
			cb.violationf("barrier on %s expects %s, image is %s", label(img), ib.OldLayout, cur)
		}
		if w, ok := cb.pending[img]; ok {
			if ib.SrcAccess&w.access == 0 {
				cb.violationf("barrier on %s does not cover the pending write by %s", label(img), w.by)
			}
			delete(cb.pending, img)
		}
		if ib.OldLayout == gpu.ImageLayoutUndefined {
			for i := range img.Data {
				img.Data[i] = Poison
			}
		}
		cb.layouts[img] = ib.NewLayout
	}
	cb.Commands = append(cb.Commands, Command{
		Kind:           CmdBarrier,
		SrcStage:       src,
		DstStage:       dst,
		BufferBarriers: append([]gpu.BufferBarrier(nil), buffers...),
		ImageBarriers:  append([]gpu.ImageBarrier(nil), images...),
	})
}

func (cb *CommandBuffer) ClearColorImage(image gpu.Image, layout gpu.ImageLayout, color [4]float32) {
	img := image.(*Image)
	cur, ok := cb.layouts[img]
	switch {
	case !ok:
		cb.violationf("clear of %s in unknown layout", label(img))
	case cur != layout:
		cb.violationf("clear of %s in %s, image is %s", label(img), layout, cur)
	case layout != gpu.ImageLayoutTransferDstOptimal && layout != gpu.ImageLayoutGeneral:
		cb.violationf("clear of %s in %s", label(img), layout)
	}
	if w, ok := cb.pending[img]; ok {
		cb.violationf("clear of %s races with write by %s", label(img), w.by)
	}
	fill(img, color)
	cb.pending[img] = pendingWrite{by: "clear", access: gpu.AccessTransferWrite}
	cb.Commands = append(cb.Commands, Command{Kind: CmdClear, Image: img, Layout: layout, Color: color})
}

func fill(img *Image, color [4]float32) {
	switch img.Desc.Format {
	case gpu.FormatR32G32B32A32Sfloat:
		for i := 0; i+16 <= len(img.Data); i += 16 {
			for c := 0; c < 4; c++ {
				binary.LittleEndian.PutUint32(img.Data[i+4*c:], math.Float32bits(color[c]))
			}
		}
	default:
		// Zero is the only value encoded as all-zero bytes in every format.
		var b byte
		if color != [4]float32{} {
			b = Written
		}
		for i := range img.Data {
			img.Data[i] = b
		}
	}
}

func (cb *CommandBuffer) BindPipeline(bp gpu.BindPoint, p gpu.Pipeline) {
	pl := p.(*Pipeline)
	if pl.Compute != (bp == gpu.BindPointCompute) {
		cb.violationf("pipeline %q bound at the wrong bind point", pl.Label)
	}
	cb.pipelines[bp] = pl
	cb.Commands = append(cb.Commands, Command{Kind: CmdBindPipeline, BindPoint: bp, Pipeline: pl})
}

func (cb *CommandBuffer) BindDescriptorSets(bp gpu.BindPoint, layout gpu.PipelineLayout, first uint32, sets []gpu.DescriptorSet) {
	pl := layout.(*PipelineLayout)
	if int(first)+len(sets) > len(pl.Sets) {
		cb.violationf("binding sets %d..%d past layout with %d sets", first, int(first)+len(sets), len(pl.Sets))
	}
	m := cb.bound[bp]
	if m == nil {
		m = make(map[uint32]*DescriptorSet)
		cb.bound[bp] = m
	}
	for i, s := range sets {
		ds := s.(*DescriptorSet)
		idx := first + uint32(i)
		if int(idx) < len(pl.Sets) && pl.Sets[idx] != ds.Layout {
			cb.violationf("set %d does not match the pipeline layout", idx)
		}
		m[idx] = ds
	}
	cb.Commands = append(cb.Commands, Command{
		Kind:           CmdBindSets,
		BindPoint:      bp,
		PipelineLayout: pl,
		FirstSet:       first,
		Sets:           append([]gpu.DescriptorSet(nil), sets...),
	})
}

func (cb *CommandBuffer) PushConstants(layout gpu.PipelineLayout, stages gpu.ShaderStage, offset uint32, data []byte) {
	pl := layout.(*PipelineLayout)
	end := offset + uint32(len(data))
	covered := false
	for _, r := range pl.Push {
		if r.Stages&stages == stages && r.Offset <= offset && end <= r.Offset+r.Size {
			covered = true
		}
	}
	if !covered {
		cb.violationf("push of [%d,%d) outside the layout's ranges", offset, end)
	}
	cb.Commands = append(cb.Commands, Command{
		Kind:           CmdPush,
		PipelineLayout: pl,
		Stages:         stages,
		Offset:         uint64(offset),
		Data:           append([]byte(nil), data...),
	})
}

// resolve checks that every set of the bound pipeline's layout is bound and
// written, and returns the images it binds.
func (cb *CommandBuffer) resolve(bp gpu.BindPoint, strict bool) (stored, sampled []*Image, ok bool) {
	p := cb.pipelines[bp]
	if p == nil {
		cb.violationf("no pipeline bound")
		return nil, nil, false
	}
	for idx, layout := range p.Layout.Sets {
		ds := cb.bound[bp][uint32(idx)]
		if ds == nil || ds.Layout != layout {
			cb.violationf("%s: set %d not bound", p.Label, idx)
			continue
		}
		for _, b := range layout.Bindings {
			w, ok := ds.Writes[b.Binding]
			if !ok {
				cb.violationf("%s: set %d binding %d never written", p.Label, idx, b.Binding)
				continue
			}
			switch b.Type {
			case gpu.DescriptorTypeUniformBuffer, gpu.DescriptorTypeStorageBuffer:
				if cb.pendingBuf[w.Buffer.Buffer.(*Buffer)] {
					cb.violationf("%s: reads buffer before its update is visible", p.Label)
				}
				continue
			}
			img := w.Image.View.(*ImageView).Image
			cur, known := cb.layouts[img]
			if (strict || known) && cur != w.Image.Layout {
				cb.violationf("%s: %s bound as %s, image is %s", p.Label, label(img), w.Image.Layout, cur)
			}
			if b.Type == gpu.DescriptorTypeStorageImage {
				stored = append(stored, img)
			} else {
				sampled = append(sampled, img)
			}
		}
	}
	return stored, sampled, true
}

func (cb *CommandBuffer) Dispatch(x, y, z uint32) {
	stored, sampled, ok := cb.resolve(gpu.BindPointCompute, true)
	if ok {
		by := cb.pipelines[gpu.BindPointCompute].Label
		for _, img := range sampled {
			if w, ok := cb.pending[img]; ok {
				cb.violationf("%s: reads %s before the write by %s is visible", by, label(img), w.by)
			}
		}
		for _, img := range stored {
			if w, ok := cb.pending[img]; ok {
				cb.violationf("%s: writes %s before the write by %s is visible", by, label(img), w.by)
			}
			for i := range img.Data {
				img.Data[i] = Written
			}
			img.Writers = append(img.Writers, by)
			cb.pending[img] = pendingWrite{by: by, access: gpu.AccessShaderWrite}
		}
	}
	var p *Pipeline
	if ok {
		p = cb.pipelines[gpu.BindPointCompute]
	}
	cb.Commands = append(cb.Commands, Command{
		Kind:     CmdDispatch,
		Pipeline: p,
		X:        x, Y: y, Z: z,
		Stored:  stored,
		Sampled: sampled,
	})
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	stored, sampled, ok := cb.resolve(gpu.BindPointGraphics, false)
	var p *Pipeline
	if ok {
		p = cb.pipelines[gpu.BindPointGraphics]
	}
	cb.Commands = append(cb.Commands, Command{
		Kind:     CmdDraw,
		Pipeline: p,
		X:        vertexCount, Y: instanceCount, Z: firstVertex,
		Offset:  uint64(firstInstance),
		Stored:  stored,
		Sampled: sampled,
	})
}

var (
	_ gpu.Device        = (*Device)(nil)
	_ gpu.CommandBuffer = (*CommandBuffer)(nil)
)
