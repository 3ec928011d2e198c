// Command skyview precomputes an atmosphere and flies a camera through it.
//
// W/A/S/D/Space/Ctrl move, dragging with the left mouse button looks
// around, and the arrow keys move the sun.
package main

import (
	"errors"
	"flag"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/atmosphere"
	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gekko3d/atmosphere/gpu/webgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	// glfw must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	var (
		shaderDir  = flag.String("shaders", "shaders", "directory holding the kernels and the sky shaders")
		paramsPath = flag.String("params", "", "YAML or TOML parameter file; defaults to Earth")
		width      = flag.Int("width", 1280, "window width")
		height     = flag.Int("height", 720, "window height")
		altitude   = flag.Float64("altitude", 1, "initial camera altitude in km")
		depthClear = flag.Float64("depth", 1, "depth value the sky is drawn behind")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := atmosphere.NewDefaultLogger("skyview", *debug)
	v, err := newViewer(log, *shaderDir, *paramsPath, *width, *height, float32(*altitude))
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	v.depthClear = *depthClear
	err = v.run()
	v.destroy()
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

type viewer struct {
	log atmosphere.Logger
	win *glfw.Window
	ctx *webgpu.Context

	builder  *atmosphere.Builder
	atm      *atmosphere.Atmosphere
	renderer *atmosphere.Renderer
	camera   *flyCamera

	depth      gpu.Image
	depthView  gpu.ImageView
	depthClear float64
	depthDirty bool
	resized    bool

	lastX, lastY float64
}

func newViewer(log atmosphere.Logger, shaderDir, paramsPath string, width, height int, altitude float32) (v *viewer, err error) {
	params := atmosphere.DefaultParameters()
	if paramsPath != "" {
		if params, err = atmosphere.LoadParameters(paramsPath); err != nil {
			return nil, err
		}
	}
	shaders, err := atmosphere.LoadShaderSet(os.DirFS(shaderDir), ".")
	if err != nil {
		return nil, err
	}

	if err := glfw.Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	v = &viewer{log: log}
	defer func() {
		if err != nil {
			v.destroy()
			v = nil
		}
	}()

	if v.win, err = glfw.CreateWindow(width, height, "skyview", nil, nil); err != nil {
		return v, err
	}
	v.win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) { v.resized = true })

	fbw, fbh := v.win.GetFramebufferSize()
	v.ctx, err = webgpu.NewSurfaceContext(wgpuglfw.GetSurfaceDescriptor(v.win), uint32(fbw), uint32(fbh), "skyview", webgpu.Features)
	if err != nil {
		return v, err
	}
	dev := v.ctx.Device

	if v.builder, err = atmosphere.NewBuilder(dev, shaders, nil, 0, nil, atmosphere.WithLogger(log)); err != nil {
		return v, err
	}
	if v.atm, err = v.precompute(params); err != nil {
		return v, err
	}

	colorFormat := webgpu.FormatOf(v.ctx.SurfaceConfig.Format)
	if colorFormat == gpu.FormatUndefined {
		return v, errors.New("unsupported surface format")
	}
	v.renderer, err = atmosphere.NewRenderer(v.builder, nil, atmosphere.RenderTarget{
		ColorFormat: colorFormat,
		DepthFormat: gpu.FormatD32Sfloat,
		// Blending with a second color source is not available on WebGPU.
		Composite: atmosphere.CompositeReplace,
	}, 1)
	if err != nil {
		return v, err
	}
	if err = v.createDepth(uint32(fbw), uint32(fbh)); err != nil {
		return v, err
	}

	v.camera = newFlyCamera(params.BottomRadius, altitude)
	return v, nil
}

func (v *viewer) precompute(params atmosphere.Parameters) (*atmosphere.Atmosphere, error) {
	dev := v.ctx.Device
	cmd, err := dev.NewCommandBuffer("precompute")
	if err != nil {
		return nil, err
	}
	defer cmd.Release()
	pending, err := v.builder.Build(params, cmd)
	if err != nil {
		return nil, err
	}
	if err := dev.Submit(cmd); err != nil {
		pending.Release()
		return nil, err
	}
	atm := pending.AssertReady()
	v.log.Infof("precomputed %s", atm.RunID())
	return atm, nil
}

func (v *viewer) createDepth(width, height uint32) error {
	dev := v.ctx.Device
	v.destroyDepth()
	img, err := dev.CreateImage(&gpu.ImageDesc{
		Label:  "depth",
		Type:   gpu.ImageType2D,
		Format: gpu.FormatD32Sfloat,
		Extent: gpu.Extent3D{Width: width, Height: height, Depth: 1},
		Usage:  gpu.ImageUsageDepthStencil | gpu.ImageUsageInputAttachment,
	})
	if err != nil {
		return err
	}
	view, err := dev.CreateImageView(img)
	if err != nil {
		img.Destroy()
		return err
	}
	v.depth, v.depthView = img, view
	v.renderer.SetDepthBuffer(0, view, gpu.ImageLayoutDepthStencilReadOnlyOptimal)
	v.depthDirty = true
	return nil
}

func (v *viewer) destroyDepth() {
	if v.depthView != nil {
		v.depthView.Destroy()
		v.depth.Destroy()
		v.depthView, v.depth = nil, nil
	}
}

func (v *viewer) run() error {
	last := glfw.GetTime()
	v.lastX, v.lastY = v.win.GetCursorPos()
	for !v.win.ShouldClose() {
		glfw.PollEvents()
		now := glfw.GetTime()
		v.camera.update(v.controls(), float32(now-last))
		last = now

		if v.resized {
			v.resized = false
			w, h := v.win.GetFramebufferSize()
			if w == 0 || h == 0 {
				continue
			}
			v.ctx.Resize(uint32(w), uint32(h))
			if err := v.createDepth(uint32(w), uint32(h)); err != nil {
				return err
			}
		}
		if err := v.frame(); err != nil {
			return err
		}
	}
	return nil
}

func (v *viewer) controls() controls {
	var c controls
	key := func(k glfw.Key) float32 {
		if v.win.GetKey(k) == glfw.Press {
			return 1
		}
		return 0
	}
	c.Move = mgl32.Vec3{
		key(glfw.KeyD) - key(glfw.KeyA),
		key(glfw.KeySpace) - key(glfw.KeyLeftControl),
		key(glfw.KeyW) - key(glfw.KeyS),
	}
	c.Sun = mgl32.Vec2{
		key(glfw.KeyRight) - key(glfw.KeyLeft),
		key(glfw.KeyUp) - key(glfw.KeyDown),
	}
	x, y := v.win.GetCursorPos()
	if v.win.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press {
		c.Look = mgl32.Vec2{float32(x - v.lastX), float32(y - v.lastY)}
	}
	v.lastX, v.lastY = x, y
	return c
}

func (v *viewer) frame() error {
	dev := v.ctx.Device
	tex, err := v.ctx.Surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer tex.Release()
	view, err := tex.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	cmd, err := dev.NewCommandBuffer("frame")
	if err != nil {
		return err
	}
	defer cmd.Release()

	if v.depthDirty {
		cmd.BeginRenderPass(&wgpu.RenderPassDescriptor{
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            v.depthView.(*webgpu.ImageView).View(),
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: float32(v.depthClear),
			},
		})
		cmd.EndRenderPass()
		v.depthDirty = false
	}

	cmd.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{0, 0, 0, 1},
		}},
	})
	cfg := v.ctx.SurfaceConfig
	params := v.camera.drawParameters(float32(cfg.Width) / float32(cfg.Height))
	v.renderer.Draw(cmd, v.atm, 0, &params)
	cmd.EndRenderPass()

	if err := dev.Submit(cmd); err != nil {
		return err
	}
	v.ctx.Surface.Present()
	return nil
}

func (v *viewer) destroy() {
	if v.renderer != nil {
		v.renderer.Destroy()
	}
	v.destroyDepth()
	if v.atm != nil {
		v.atm.Destroy()
	}
	if v.builder != nil {
		v.builder.Destroy()
	}
	if v.ctx != nil {
		v.ctx.Release()
	}
	if v.win != nil {
		v.win.Destroy()
	}
	glfw.Terminate()
}
