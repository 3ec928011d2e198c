package webgpu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/atmosphere/gpu"
)

// ErrPoolExhausted is returned when a pool has no room for the requested sets.
var ErrPoolExhausted = errors.New("webgpu: descriptor pool exhausted")

type DescriptorSetLayout struct {
	layout   *wgpu.BindGroupLayout
	Bindings []gpu.DescriptorBinding
}

func (l *DescriptorSetLayout) Destroy() { l.layout.Release() }

func (l *DescriptorSetLayout) binding(n uint32) (gpu.DescriptorBinding, bool) {
	for _, b := range l.Bindings {
		if b.Binding == n {
			return b, true
		}
	}
	return gpu.DescriptorBinding{}, false
}

// DescriptorPool counts descriptors the way a Vulkan pool does and frees
// the bind groups of its sets on Destroy.
type DescriptorPool struct {
	setsLeft uint32
	left     map[gpu.DescriptorType]uint32
	sets     []*DescriptorSet
}

func (p *DescriptorPool) Destroy() {
	for _, s := range p.sets {
		s.release()
	}
	p.sets = nil
}

// DescriptorSet collects writes and turns them into a bind group the next
// time it is bound.
type DescriptorSet struct {
	dev    *wgpu.Device
	pool   *DescriptorPool
	layout *DescriptorSetLayout
	writes map[uint32]gpu.DescriptorWrite

	group *wgpu.BindGroup
	dirty bool
}

func (s *DescriptorSet) Pool() gpu.DescriptorPool { return s.pool }

func (s *DescriptorSet) release() {
	if s.group != nil {
		s.group.Release()
		s.group = nil
	}
}

// bindGroup returns the bind group for the current writes. Every binding
// of the layout must have been written.
func (s *DescriptorSet) bindGroup() (*wgpu.BindGroup, error) {
	if s.group != nil && !s.dirty {
		return s.group, nil
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(s.layout.Bindings)+1)
	for _, b := range s.layout.Bindings {
		w, ok := s.writes[b.Binding]
		if !ok {
			return nil, fmt.Errorf("webgpu: binding %d (%s) never written", b.Binding, b.Type)
		}
		e, err := groupEntries(b, w)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e...)
	}
	group, err := s.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  s.layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create bind group: %w", err)
	}
	s.release()
	s.group, s.dirty = group, false
	return group, nil
}

func groupEntries(b gpu.DescriptorBinding, w gpu.DescriptorWrite) ([]wgpu.BindGroupEntry, error) {
	switch b.Type {
	case gpu.DescriptorTypeUniformBuffer, gpu.DescriptorTypeStorageBuffer:
		if w.Buffer == nil {
			return nil, fmt.Errorf("webgpu: binding %d: missing buffer", b.Binding)
		}
		size := w.Buffer.Range
		if size == gpu.WholeSize {
			size = wgpu.WholeSize
		}
		return []wgpu.BindGroupEntry{{
			Binding: b.Binding,
			Buffer:  w.Buffer.Buffer.(*Buffer).buf,
			Offset:  w.Buffer.Offset,
			Size:    size,
		}}, nil
	case gpu.DescriptorTypeCombinedImageSampler:
		if w.Image == nil || b.ImmutableSampler == nil {
			return nil, fmt.Errorf("webgpu: binding %d: combined image sampler needs a view and an immutable sampler", b.Binding)
		}
		return []wgpu.BindGroupEntry{
			{Binding: b.Binding, TextureView: w.Image.View.(*ImageView).view},
			{Binding: b.Binding + SamplerBindingOffset, Sampler: b.ImmutableSampler.(*Sampler).samp},
		}, nil
	case gpu.DescriptorTypeStorageImage, gpu.DescriptorTypeInputAttachment:
		if w.Image == nil {
			return nil, fmt.Errorf("webgpu: binding %d: missing image", b.Binding)
		}
		return []wgpu.BindGroupEntry{{Binding: b.Binding, TextureView: w.Image.View.(*ImageView).view}}, nil
	}
	return nil, fmt.Errorf("%w: descriptor type %s", ErrUnsupported, b.Type)
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	entries, err := layoutEntries(bindings)
	if err != nil {
		return nil, err
	}
	layout, err := d.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create bind group layout: %w", err)
	}
	sorted := append([]gpu.DescriptorBinding(nil), bindings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Binding < sorted[j].Binding })
	return &DescriptorSetLayout{layout: layout, Bindings: sorted}, nil
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPool, error) {
	p := &DescriptorPool{setsLeft: maxSets, left: make(map[gpu.DescriptorType]uint32, len(sizes))}
	for _, s := range sizes {
		p.left[s.Type] += s.Count
	}
	return p, nil
}

func (d *Device) AllocateDescriptorSets(pool gpu.DescriptorPool, layouts []gpu.DescriptorSetLayout) ([]gpu.DescriptorSet, error) {
	p := pool.(*DescriptorPool)
	if uint32(len(layouts)) > p.setsLeft {
		return nil, fmt.Errorf("%w: %d sets requested, %d left", ErrPoolExhausted, len(layouts), p.setsLeft)
	}
	need := make(map[gpu.DescriptorType]uint32)
	for _, l := range layouts {
		for _, b := range l.(*DescriptorSetLayout).Bindings {
			need[b.Type]++
		}
	}
	for t, n := range need {
		if p.left[t] < n {
			return nil, fmt.Errorf("%w: %d %s descriptors requested, %d left", ErrPoolExhausted, n, t, p.left[t])
		}
	}
	for t, n := range need {
		p.left[t] -= n
	}
	p.setsLeft -= uint32(len(layouts))

	out := make([]gpu.DescriptorSet, len(layouts))
	for i, l := range layouts {
		s := &DescriptorSet{
			dev:    d.dev,
			pool:   p,
			layout: l.(*DescriptorSetLayout),
			writes: make(map[uint32]gpu.DescriptorWrite),
		}
		p.sets = append(p.sets, s)
		out[i] = s
	}
	return out, nil
}

// UpdateDescriptorSets records the writes. Writes to bindings missing from
// the set layout are dropped; they surface as a missing binding when the
// set is bound.
func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	for _, w := range writes {
		s := w.Set.(*DescriptorSet)
		if _, ok := s.layout.binding(w.Binding); !ok {
			continue
		}
		s.writes[w.Binding] = w
		s.dirty = true
	}
}
