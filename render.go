package atmosphere

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Composite selects how the sky is combined with the color attachment.
type Composite int

const (
	// CompositeDualSource attenuates the attachment by the transmittance
	// output in the second color source and adds the inscattered light.
	CompositeDualSource Composite = iota
	// CompositeReplace writes the sky over the attachment.
	CompositeReplace
)

func (c Composite) blend() *gpu.BlendState {
	if c == CompositeReplace {
		return nil
	}
	return &gpu.BlendState{
		SrcColor: gpu.BlendFactorOne,
		DstColor: gpu.BlendFactorSrc1Color,
		SrcAlpha: gpu.BlendFactorZero,
		DstAlpha: gpu.BlendFactorOne,
	}
}

// RenderTarget describes where the Renderer draws.
type RenderTarget struct {
	// RenderPass is the backend's render pass handle, if it has any.
	RenderPass any
	Subpass    uint32
	// ColorFormat is the format of the color attachment.
	ColorFormat gpu.Format
	// DepthFormat is the format of the depth input attachment.
	DepthFormat gpu.Format
	Composite   Composite
}

// DrawParameters are the per-frame inputs of Draw. Coordinates are in the
// planet's frame, in km.
type DrawParameters struct {
	// InverseViewProj is (projection * view)^-1.
	InverseViewProj mgl32.Mat4
	CameraPosition  mgl32.Vec3
	SunDirection    mgl32.Vec3

	// MieAnisotropy and SolarIrradiance override the values of the
	// Atmosphere's parameters when set.
	MieAnisotropy   *float32
	SolarIrradiance *mgl32.Vec3
}

// DrawParametersFromCamera builds DrawParameters for a perspective camera
// at eye looking at target. fovy is in radians.
func DrawParametersFromCamera(eye, target, up mgl32.Vec3, fovy, aspect, near, far float32, sunDir mgl32.Vec3) DrawParameters {
	view := mgl32.LookAtV(eye, target, up)
	proj := mgl32.Perspective(fovy, aspect, near, far)
	return DrawParameters{
		InverseViewProj: proj.Mul4(view).Inv(),
		CameraPosition:  eye,
		SunDirection:    sunDir.Normalize(),
	}
}

const (
	drawFlagMieAnisotropy   = 1 << 0
	drawFlagSolarIrradiance = 1 << 1

	// DrawParamsSize is the size of the fragment push constant block.
	//
	//	struct DrawParams {
	//	  inverse_viewproj: mat4x4<f32>;                     -- 0
	//	  camera_position: vec3<f32>; mie_anisotropy: f32;   -- 64
	//	  sun_direction: vec3<f32>; flags: u32;              -- 80
	//	  solar_irradiance: vec3<f32>;                       -- 96
	//	} -> 112 bytes (padded)
	DrawParamsSize = 112
)

// Pack encodes d into the push constant layout. Overrides that are not
// set are encoded as zero with their flag bit clear.
func (d *DrawParameters) Pack() [DrawParamsSize]byte {
	var buf [DrawParamsSize]byte
	putF := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}
	for i, v := range d.InverseViewProj {
		putF(i*4, v)
	}
	var flags uint32
	putF(64, d.CameraPosition[0])
	putF(68, d.CameraPosition[1])
	putF(72, d.CameraPosition[2])
	if d.MieAnisotropy != nil {
		putF(76, *d.MieAnisotropy)
		flags |= drawFlagMieAnisotropy
	}
	putF(80, d.SunDirection[0])
	putF(84, d.SunDirection[1])
	putF(88, d.SunDirection[2])
	if d.SolarIrradiance != nil {
		putF(96, d.SolarIrradiance[0])
		putF(100, d.SolarIrradiance[1])
		putF(104, d.SolarIrradiance[2])
		flags |= drawFlagSolarIrradiance
	}
	binary.LittleEndian.PutUint32(buf[92:], flags)
	return buf
}

// Renderer draws a sky from an Atmosphere with a fullscreen triangle.
type Renderer struct {
	builder  *Builder
	dev      gpu.Device
	vert     gpu.ShaderModule
	frag     gpu.ShaderModule
	layout   gpu.PipelineLayout
	pipeline gpu.Pipeline
	pool     gpu.DescriptorPool
	frames   []gpu.DescriptorSet

	destroyed atomic.Bool
}

// NewRenderer creates a sky pipeline for target with frames per-frame
// depth inputs.
func NewRenderer(b *Builder, cache gpu.PipelineCache, target RenderTarget, frames uint32) (*Renderer, error) {
	if frames == 0 {
		precondition("NewRenderer", "zero frames")
	}
	if err := b.shaders.require(RenderShaders...); err != nil {
		return nil, setupErr("new renderer", err)
	}
	r := &Renderer{builder: b, dev: b.dev}

	var undo releaseStack
	fail := func(what string, err error) (*Renderer, error) {
		undo.run()
		return nil, setupErr("new renderer: "+what, err)
	}

	var err error
	r.vert, err = b.dev.CreateShaderModule(b.shaders[ShaderFullscreen])
	if err != nil {
		return fail("vertex shader", err)
	}
	undo.push(r.vert.Destroy)
	r.frag, err = b.dev.CreateShaderModule(b.shaders[ShaderRenderSky])
	if err != nil {
		return fail("fragment shader", err)
	}
	undo.push(r.frag.Destroy)

	r.layout, err = b.dev.CreatePipelineLayout(
		[]gpu.DescriptorSetLayout{b.renderLayout, b.frameLayout},
		[]gpu.PushConstantRange{{Stages: gpu.ShaderStageFragment, Size: DrawParamsSize}},
	)
	if err != nil {
		return fail("pipeline layout", err)
	}
	undo.push(r.layout.Destroy)

	r.pipeline, err = b.dev.CreateGraphicsPipeline(cache, &gpu.GraphicsPipelineDesc{
		Label:          "sky",
		Layout:         r.layout,
		VertexModule:   r.vert,
		FragmentModule: r.frag,
		EntryPoint:     b.entryPoint,
		Blend:          target.Composite.blend(),
		RenderPass:     target.RenderPass,
		Subpass:        target.Subpass,
		ColorFormat:    target.ColorFormat,
		DepthFormat:    target.DepthFormat,
	})
	if err != nil {
		return fail("pipeline", err)
	}
	undo.push(r.pipeline.Destroy)

	r.pool, err = b.dev.CreateDescriptorPool(frames, []gpu.DescriptorPoolSize{
		{Type: gpu.DescriptorTypeInputAttachment, Count: frames},
	})
	if err != nil {
		return fail("frame pool", err)
	}
	undo.push(r.pool.Destroy)
	layouts := make([]gpu.DescriptorSetLayout, frames)
	for i := range layouts {
		layouts[i] = b.frameLayout
	}
	r.frames, err = b.dev.AllocateDescriptorSets(r.pool, layouts)
	if err != nil {
		return fail("frame sets", err)
	}

	b.retain("NewRenderer")
	return r, nil
}

// Frames returns the number of per-frame depth inputs.
func (r *Renderer) Frames() uint32 { return uint32(len(r.frames)) }

func (r *Renderer) frame(op string, frame uint32) gpu.DescriptorSet {
	if int(frame) >= len(r.frames) {
		precondition(op, "frame %d out of range [0, %d)", frame, len(r.frames))
	}
	return r.frames[frame]
}

// SetDepthBuffer binds the depth attachment read by frame. view must be in
// layout when the sky is drawn.
func (r *Renderer) SetDepthBuffer(frame uint32, view gpu.ImageView, layout gpu.ImageLayout) {
	set := r.frame("Renderer.SetDepthBuffer", frame)
	r.dev.UpdateDescriptorSets([]gpu.DescriptorWrite{{
		Set:     set,
		Binding: 0,
		Type:    gpu.DescriptorTypeInputAttachment,
		Image:   &gpu.ImageInfo{View: view, Layout: layout},
	}})
}

// Draw records the sky draw into cmd, inside the render pass of the
// Renderer's target. Viewport and scissor are left to the caller.
func (r *Renderer) Draw(cmd gpu.CommandBuffer, atm *Atmosphere, frame uint32, params *DrawParameters) {
	set := r.frame("Renderer.Draw", frame)
	if atm.destroyed.Load() {
		precondition("Renderer.Draw", "atmosphere %s is destroyed", atm.runID)
	}
	if atm.builder != r.builder {
		precondition("Renderer.Draw", "atmosphere %s was built by another builder", atm.runID)
	}
	packed := params.Pack()
	cmd.BindPipeline(gpu.BindPointGraphics, r.pipeline)
	cmd.BindDescriptorSets(gpu.BindPointGraphics, r.layout, 0, []gpu.DescriptorSet{atm.set, set})
	cmd.PushConstants(r.layout, gpu.ShaderStageFragment, 0, packed[:])
	cmd.Draw(3, 1, 0, 0)
}

// Destroy releases the pipeline and the per-frame sets.
func (r *Renderer) Destroy() {
	if !r.destroyed.CompareAndSwap(false, true) {
		precondition("Renderer.Destroy", "already destroyed")
	}
	r.pool.Destroy()
	r.pipeline.Destroy()
	r.layout.Destroy()
	r.frag.Destroy()
	r.vert.Destroy()
	r.builder.release()
}
