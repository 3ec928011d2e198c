// Package gputest provides an in-memory gpu.Device that tracks every
// object it creates and records commands for inspection.
//
// Images and buffers carry a byte store. New images are filled with a
// poison pattern, clears write real texel values, and dispatches stamp
// every storage image bound at dispatch time with a non-zero pattern.
// Tests can therefore observe what a command stream would leave behind.
package gputest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gekko3d/atmosphere/gpu"
)

// Kind names a category of tracked object.
type Kind string

const (
	KindImage          Kind = "image"
	KindImageView      Kind = "image-view"
	KindBuffer         Kind = "buffer"
	KindMemory         Kind = "memory"
	KindSampler        Kind = "sampler"
	KindShaderModule   Kind = "shader-module"
	KindSetLayout      Kind = "set-layout"
	KindPipelineLayout Kind = "pipeline-layout"
	KindPipeline       Kind = "pipeline"
	KindDescriptorPool Kind = "descriptor-pool"
	KindPipelineCache  Kind = "pipeline-cache"
)

// ErrInjected is returned by creation calls failed through FailAfter.
var ErrInjected = errors.New("gputest: injected failure")

// Poison fills fresh images and buffers.
const Poison byte = 0xAA

// Written is stamped into storage images by dispatches.
const Written byte = 0x5C

// Device is a recording gpu.Device. The zero value is not usable; call NewDevice.
type Device struct {
	mu        sync.Mutex
	nextID    int
	live      map[int]Kind
	created   map[Kind]int
	destroyed map[Kind]int
	problems  []string
	failAt    map[Kind]int
	props     gpu.MemoryProperties
}

// NewDevice returns a device exposing a host-visible memory type at index
// 0 and a device-local one at index 1.
func NewDevice() *Device {
	return &Device{
		live:      make(map[int]Kind),
		created:   make(map[Kind]int),
		destroyed: make(map[Kind]int),
		failAt:    make(map[Kind]int),
		props: gpu.MemoryProperties{Types: []gpu.MemoryType{
			{Properties: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent},
			{Properties: gpu.MemoryPropertyDeviceLocal, HeapIndex: 1},
		}},
	}
}

// SetMemoryProperties replaces the memory types reported by the device.
func (d *Device) SetMemoryProperties(props gpu.MemoryProperties) {
	d.mu.Lock()
	d.props = props
	d.mu.Unlock()
}

// FailAfter makes the n-th next creation of kind fail with ErrInjected.
// n starts at 1. Only one pending failure per kind is kept.
func (d *Device) FailAfter(kind Kind, n int) {
	d.mu.Lock()
	d.failAt[kind] = n
	d.mu.Unlock()
}

// Live returns the number of live objects of kind.
func (d *Device) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// LiveTotal returns the number of live objects of every kind.
func (d *Device) LiveTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveSummary describes live objects per kind, sorted by kind.
func (d *Device) LiveSummary() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	counts := map[Kind]int{}
	for _, k := range d.live {
		counts[k]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	s := ""
	for _, k := range kinds {
		s += fmt.Sprintf("%s=%d ", k, counts[Kind(k)])
	}
	return s
}

// Created returns how many objects of kind have been created.
func (d *Device) Created(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Destroyed returns how many objects of kind have been destroyed.
func (d *Device) Destroyed(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// Problems returns double destroys and other misuse seen so far.
func (d *Device) Problems() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.problems...)
}

func (d *Device) problemf(format string, args ...any) {
	d.problems = append(d.problems, fmt.Sprintf(format, args...))
}

func (d *Device) track(kind Kind) (object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.failAt[kind]; ok {
		if n <= 1 {
			delete(d.failAt, kind)
			return object{}, fmt.Errorf("create %s: %w", kind, ErrInjected)
		}
		d.failAt[kind] = n - 1
	}
	d.nextID++
	d.live[d.nextID] = kind
	d.created[kind]++
	return object{dev: d, id: d.nextID, kind: kind}, nil
}

func (d *Device) release(o *object) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[o.id]; !ok {
		d.problemf("double destroy of %s #%d", o.kind, o.id)
		return
	}
	delete(d.live, o.id)
	d.destroyed[o.kind]++
}

type object struct {
	dev  *Device
	id   int
	kind Kind
}

// ID returns the tracker id of the object.
func (o *object) ID() int { return o.id }

func (o *object) Destroy() { o.dev.release(o) }

// Image is a tracked image with a byte store.
type Image struct {
	object
	Desc   gpu.ImageDesc
	Memory *Memory
	Data   []byte
	// Writers lists the labels of pipelines that bound the image as a
	// storage image at dispatch time, in order.
	Writers []string
}

// ImageView is a tracked view of an Image.
type ImageView struct {
	object
	Image *Image
}

// Buffer is a tracked buffer with a byte store.
type Buffer struct {
	object
	Desc   gpu.BufferDesc
	Memory *Memory
	Data   []byte
}

// Memory is a tracked allocation.
type Memory struct {
	object
	Size uint64
	Type uint32
}

// Sampler is a tracked sampler.
type Sampler struct {
	object
	Desc gpu.SamplerDesc
}

// ShaderModule is a tracked shader module.
type ShaderModule struct {
	object
	Source gpu.ShaderSource
}

// SetLayout is a tracked descriptor set layout.
type SetLayout struct {
	object
	Bindings []gpu.DescriptorBinding
}

// PipelineLayout is a tracked pipeline layout.
type PipelineLayout struct {
	object
	Sets []*SetLayout
	Push []gpu.PushConstantRange
}

// Pipeline is a tracked compute or graphics pipeline.
type Pipeline struct {
	object
	Label    string
	Compute  bool
	Layout   *PipelineLayout
	Graphics *gpu.GraphicsPipelineDesc
}

// PipelineCache is a tracked pipeline cache.
type PipelineCache struct {
	object
}

// DescriptorPool is a tracked descriptor pool that enforces its capacity.
type DescriptorPool struct {
	object
	MaxSets uint32
	Sizes   []gpu.DescriptorPoolSize
	Sets    []*DescriptorSet
	used    map[gpu.DescriptorType]uint32
}

// Used returns the number of descriptors of t allocated from the pool.
func (p *DescriptorPool) Used(t gpu.DescriptorType) uint32 { return p.used[t] }

// Capacity returns the number of descriptors of t the pool was created with.
func (p *DescriptorPool) Capacity(t gpu.DescriptorType) uint32 {
	var n uint32
	for _, s := range p.Sizes {
		if s.Type == t {
			n += s.Count
		}
	}
	return n
}

// DescriptorSet is a set allocated from a DescriptorPool.
type DescriptorSet struct {
	pool   *DescriptorPool
	Layout *SetLayout
	Writes map[uint32]gpu.DescriptorWrite
}

func (s *DescriptorSet) Pool() gpu.DescriptorPool { return s.pool }

// ImageAt returns the image written at binding, or nil.
func (s *DescriptorSet) ImageAt(binding uint32) *Image {
	w, ok := s.Writes[binding]
	if !ok || w.Image == nil {
		return nil
	}
	return w.Image.View.(*ImageView).Image
}

// NewPipelineCache returns a tracked pipeline cache.
func (d *Device) NewPipelineCache() *PipelineCache {
	o, _ := d.track(KindPipelineCache)
	return &PipelineCache{object: o}
}

func (d *Device) MemoryProperties() gpu.MemoryProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gpu.MemoryProperties{Types: append([]gpu.MemoryType(nil), d.props.Types...)}
}

func (d *Device) CreateImage(desc *gpu.ImageDesc) (gpu.Image, error) {
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 || desc.Extent.Depth == 0 {
		return nil, fmt.Errorf("gputest: image %q has empty extent", desc.Label)
	}
	o, err := d.track(KindImage)
	if err != nil {
		return nil, err
	}
	data := make([]byte, desc.Extent.Texels()*desc.Format.BytesPerTexel())
	for i := range data {
		data[i] = Poison
	}
	return &Image{object: o, Desc: *desc, Data: data}, nil
}

func (d *Device) ImageMemoryRequirements(img gpu.Image) gpu.MemoryRequirements {
	im := img.(*Image)
	return gpu.MemoryRequirements{Size: uint64(len(im.Data)), TypeBits: 0b11}
}

func (d *Device) CreateBuffer(desc *gpu.BufferDesc) (gpu.Buffer, error) {
	o, err := d.track(KindBuffer)
	if err != nil {
		return nil, err
	}
	data := make([]byte, desc.Size)
	for i := range data {
		data[i] = Poison
	}
	return &Buffer{object: o, Desc: *desc, Data: data}, nil
}

func (d *Device) BufferMemoryRequirements(buf gpu.Buffer) gpu.MemoryRequirements {
	return gpu.MemoryRequirements{Size: buf.(*Buffer).Desc.Size, TypeBits: 0b11}
}

func (d *Device) AllocateMemory(size uint64, memoryType uint32) (gpu.Memory, error) {
	d.mu.Lock()
	n := len(d.props.Types)
	d.mu.Unlock()
	if int(memoryType) >= n {
		return nil, fmt.Errorf("gputest: memory type %d out of range", memoryType)
	}
	o, err := d.track(KindMemory)
	if err != nil {
		return nil, err
	}
	return &Memory{object: o, Size: size, Type: memoryType}, nil
}

func (d *Device) BindImageMemory(img gpu.Image, mem gpu.Memory, offset uint64) error {
	im := img.(*Image)
	if im.Memory != nil {
		return fmt.Errorf("gputest: image #%d already bound", im.id)
	}
	im.Memory = mem.(*Memory)
	return nil
}

func (d *Device) BindBufferMemory(buf gpu.Buffer, mem gpu.Memory, offset uint64) error {
	b := buf.(*Buffer)
	if b.Memory != nil {
		return fmt.Errorf("gputest: buffer #%d already bound", b.id)
	}
	b.Memory = mem.(*Memory)
	return nil
}

func (d *Device) CreateImageView(img gpu.Image) (gpu.ImageView, error) {
	im := img.(*Image)
	if im.Memory == nil {
		return nil, fmt.Errorf("gputest: view of unbound image #%d", im.id)
	}
	o, err := d.track(KindImageView)
	if err != nil {
		return nil, err
	}
	return &ImageView{object: o, Image: im}, nil
}

func (d *Device) CreateSampler(desc *gpu.SamplerDesc) (gpu.Sampler, error) {
	o, err := d.track(KindSampler)
	if err != nil {
		return nil, err
	}
	return &Sampler{object: o, Desc: *desc}, nil
}

func (d *Device) CreateShaderModule(src gpu.ShaderSource) (gpu.ShaderModule, error) {
	if src.IsZero() {
		return nil, fmt.Errorf("gputest: shader %q has no code", src.Label)
	}
	o, err := d.track(KindShaderModule)
	if err != nil {
		return nil, err
	}
	return &ShaderModule{object: o, Source: src}, nil
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	seen := map[uint32]bool{}
	for _, b := range bindings {
		if seen[b.Binding] {
			return nil, fmt.Errorf("gputest: duplicate binding %d", b.Binding)
		}
		seen[b.Binding] = true
	}
	o, err := d.track(KindSetLayout)
	if err != nil {
		return nil, err
	}
	return &SetLayout{object: o, Bindings: append([]gpu.DescriptorBinding(nil), bindings...)}, nil
}

func (d *Device) CreatePipelineLayout(sets []gpu.DescriptorSetLayout, push []gpu.PushConstantRange) (gpu.PipelineLayout, error) {
	o, err := d.track(KindPipelineLayout)
	if err != nil {
		return nil, err
	}
	pl := &PipelineLayout{object: o, Push: append([]gpu.PushConstantRange(nil), push...)}
	for _, s := range sets {
		pl.Sets = append(pl.Sets, s.(*SetLayout))
	}
	return pl, nil
}

func (d *Device) CreateComputePipelines(cache gpu.PipelineCache, descs []gpu.ComputePipelineDesc) ([]gpu.Pipeline, error) {
	out := make([]gpu.Pipeline, 0, len(descs))
	for _, desc := range descs {
		o, err := d.track(KindPipeline)
		if err != nil {
			for _, p := range out {
				p.Destroy()
			}
			return nil, err
		}
		out = append(out, &Pipeline{object: o, Label: desc.Label, Compute: true, Layout: desc.Layout.(*PipelineLayout)})
	}
	return out, nil
}

func (d *Device) CreateGraphicsPipeline(cache gpu.PipelineCache, desc *gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	o, err := d.track(KindPipeline)
	if err != nil {
		return nil, err
	}
	cp := *desc
	return &Pipeline{object: o, Label: desc.Label, Layout: desc.Layout.(*PipelineLayout), Graphics: &cp}, nil
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPool, error) {
	o, err := d.track(KindDescriptorPool)
	if err != nil {
		return nil, err
	}
	return &DescriptorPool{
		object:  o,
		MaxSets: maxSets,
		Sizes:   append([]gpu.DescriptorPoolSize(nil), sizes...),
		used:    make(map[gpu.DescriptorType]uint32),
	}, nil
}

func (d *Device) AllocateDescriptorSets(pool gpu.DescriptorPool, layouts []gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	p := pool.(*DescriptorPool)
	if uint32(len(p.Sets)+len(layouts)) > p.MaxSets {
		return nil, fmt.Errorf("gputest: pool #%d out of sets", p.id)
	}
	need := map[gpu.DescriptorType]uint32{}
	for _, l := range layouts {
		for _, b := range l.(*SetLayout).Bindings {
			need[b.Type]++
		}
	}
	for t, n := range need {
		if p.used[t]+n > p.Capacity(t) {
			return nil, fmt.Errorf("gputest: pool #%d out of %s descriptors", p.id, t)
		}
	}
	for t, n := range need {
		p.used[t] += n
	}
	out := make([]gpu.DescriptorSet, len(layouts))
	for i, l := range layouts {
		s := &DescriptorSet{pool: p, Layout: l.(*SetLayout), Writes: make(map[uint32]gpu.DescriptorWrite)}
		p.Sets = append(p.Sets, s)
		out[i] = s
	}
	return out, nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	for _, w := range writes {
		s := w.Set.(*DescriptorSet)
		var binding *gpu.DescriptorBinding
		for i := range s.Layout.Bindings {
			if s.Layout.Bindings[i].Binding == w.Binding {
				binding = &s.Layout.Bindings[i]
			}
		}
		d.mu.Lock()
		switch {
		case binding == nil:
			d.problemf("write to missing binding %d", w.Binding)
		case binding.Type != w.Type:
			d.problemf("write of %s to %s binding %d", w.Type, binding.Type, w.Binding)
		}
		d.mu.Unlock()
		s.Writes[w.Binding] = w
	}
}
