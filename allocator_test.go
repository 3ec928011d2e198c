package atmosphere

import (
	"errors"
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gekko3d/atmosphere/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMemoryType(t *testing.T) {
	props := gpu.MemoryProperties{Types: []gpu.MemoryType{
		{Properties: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent},
		{Properties: gpu.MemoryPropertyDeviceLocal},
		{Properties: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible},
	}}
	tests := []struct {
		name     string
		typeBits uint32
		want     gpu.MemoryProperty
		index    uint32
		err      bool
	}{
		{"first device local", 0b111, gpu.MemoryPropertyDeviceLocal, 1, false},
		{"respects type bits", 0b101, gpu.MemoryPropertyDeviceLocal, 2, false},
		{"all flags required", 0b111, gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible, 2, false},
		{"host visible", 0b111, gpu.MemoryPropertyHostVisible, 0, false},
		{"no match", 0b001, gpu.MemoryPropertyDeviceLocal, 0, true},
		{"no bits", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := FindMemoryType(props, tt.typeBits, tt.want)
			if tt.err {
				assert.True(t, errors.Is(err, ErrNoMemoryType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.index, idx)
		})
	}
}

func TestAllocator_ImageUsesDeviceLocalMemory(t *testing.T) {
	dev := gputest.NewDevice()
	a := newAllocator(dev)
	img, err := a.image(&gpu.ImageDesc{
		Label:  "t",
		Type:   gpu.ImageType2D,
		Format: gpu.FormatR32G32B32A32Sfloat,
		Extent: gpu.Extent3D{Width: 2, Height: 2, Depth: 1},
		Usage:  gpu.ImageUsageStorage,
	})
	require.NoError(t, err)
	fake := fakeImage(img.image)
	require.NotNil(t, fake.Memory)
	assert.Equal(t, uint32(1), fake.Memory.Type)
	assert.Len(t, fake.Data, 64)

	img.destroy()
	assert.Zero(t, dev.LiveTotal())
	assert.Empty(t, dev.Problems())
}

func TestAllocator_NoDeviceLocalMemory(t *testing.T) {
	dev := gputest.NewDevice()
	dev.SetMemoryProperties(gpu.MemoryProperties{Types: []gpu.MemoryType{
		{Properties: gpu.MemoryPropertyHostVisible},
	}})
	a := newAllocator(dev)
	_, err := a.buffer(&gpu.BufferDesc{Label: "b", Size: 16, Usage: gpu.BufferUsageUniform})
	assert.True(t, errors.Is(err, ErrNoMemoryType))
	assert.Zero(t, dev.LiveTotal())
}

func TestReleaseStack_RunsInReverse(t *testing.T) {
	var order []int
	var s releaseStack
	for i := 0; i < 3; i++ {
		s.push(func() { order = append(order, i) })
	}
	s.run()
	assert.Equal(t, []int{2, 1, 0}, order)
	s.run()
	assert.Len(t, order, 3)
}
