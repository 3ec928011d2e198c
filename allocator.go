package atmosphere

import (
	"fmt"

	"github.com/gekko3d/atmosphere/gpu"
)

// FindMemoryType returns the index of the first memory type allowed by
// typeBits whose properties include want.
func FindMemoryType(props gpu.MemoryProperties, typeBits uint32, want gpu.MemoryProperty) (uint32, error) {
	for i, t := range props.Types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && t.Properties&want == want {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: bits %#x, properties %#x", ErrNoMemoryType, typeBits, want)
}

// releaseStack collects destructors and runs them in reverse order.
type releaseStack []func()

func (s *releaseStack) push(f func()) { *s = append(*s, f) }

func (s *releaseStack) run() {
	for i := len(*s) - 1; i >= 0; i-- {
		(*s)[i]()
	}
	*s = nil
}

type allocatedImage struct {
	image  gpu.Image
	memory gpu.Memory
	view   gpu.ImageView
	extent gpu.Extent3D
	format gpu.Format
}

func (a *allocatedImage) destroy() {
	a.view.Destroy()
	a.image.Destroy()
	a.memory.Destroy()
}

type allocatedBuffer struct {
	buffer gpu.Buffer
	memory gpu.Memory
}

func (a *allocatedBuffer) destroy() {
	a.buffer.Destroy()
	a.memory.Destroy()
}

type allocator struct {
	dev   gpu.Device
	props gpu.MemoryProperties
}

func newAllocator(dev gpu.Device) *allocator {
	return &allocator{dev: dev, props: dev.MemoryProperties()}
}

// image creates a device-local image with a bound allocation and a view.
// On failure, everything it created has been destroyed.
func (a *allocator) image(desc *gpu.ImageDesc) (*allocatedImage, error) {
	var undo releaseStack
	img, err := a.dev.CreateImage(desc)
	if err != nil {
		return nil, fmt.Errorf("create image %s: %w", desc.Label, err)
	}
	undo.push(img.Destroy)

	reqs := a.dev.ImageMemoryRequirements(img)
	typ, err := FindMemoryType(a.props, reqs.TypeBits, gpu.MemoryPropertyDeviceLocal)
	if err != nil {
		undo.run()
		return nil, fmt.Errorf("image %s: %w", desc.Label, err)
	}
	mem, err := a.dev.AllocateMemory(reqs.Size, typ)
	if err != nil {
		undo.run()
		return nil, fmt.Errorf("allocate %s: %w", desc.Label, err)
	}
	undo.push(mem.Destroy)
	if err := a.dev.BindImageMemory(img, mem, 0); err != nil {
		undo.run()
		return nil, fmt.Errorf("bind %s: %w", desc.Label, err)
	}

	view, err := a.dev.CreateImageView(img)
	if err != nil {
		undo.run()
		return nil, fmt.Errorf("view %s: %w", desc.Label, err)
	}
	return &allocatedImage{image: img, memory: mem, view: view, extent: desc.Extent, format: desc.Format}, nil
}

// buffer creates a device-local buffer with a bound allocation.
func (a *allocator) buffer(desc *gpu.BufferDesc) (*allocatedBuffer, error) {
	buf, err := a.dev.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", desc.Label, err)
	}
	reqs := a.dev.BufferMemoryRequirements(buf)
	typ, err := FindMemoryType(a.props, reqs.TypeBits, gpu.MemoryPropertyDeviceLocal)
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("buffer %s: %w", desc.Label, err)
	}
	mem, err := a.dev.AllocateMemory(reqs.Size, typ)
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("allocate %s: %w", desc.Label, err)
	}
	if err := a.dev.BindBufferMemory(buf, mem, 0); err != nil {
		buf.Destroy()
		mem.Destroy()
		return nil, fmt.Errorf("bind %s: %w", desc.Label, err)
	}
	return &allocatedBuffer{buffer: buf, memory: mem}, nil
}
