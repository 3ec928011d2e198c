// Command atmodump precomputes the atmosphere lookup tables on a headless
// WebGPU device and writes them out as 16-bit TIFF images.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gekko3d/atmosphere"
	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gekko3d/atmosphere/gpu/webgpu"
)

func main() {
	var (
		shaderDir  = flag.String("shaders", "shaders", "directory holding the compute kernels (<name>.wgsl or <name>.spv)")
		paramsPath = flag.String("params", "", "YAML or TOML parameter file; defaults to Earth")
		outDir     = flag.String("out", ".", "output directory")
		order      = flag.Uint("order", 0, "scattering order, overriding the parameter file")
		scale      = flag.Float64("scale", 1, "factor applied to texel values before quantization")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := atmosphere.NewDefaultLogger("atmodump", *debug)
	if err := run(log, *shaderDir, *paramsPath, *outDir, uint32(*order), float32(*scale)); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(log atmosphere.Logger, shaderDir, paramsPath, outDir string, order uint32, scale float32) error {
	params := atmosphere.DefaultParameters()
	if paramsPath != "" {
		var err error
		if params, err = atmosphere.LoadParameters(paramsPath); err != nil {
			return err
		}
	}
	if order != 0 {
		params.Order = order
	}
	params.Usage |= gpu.ImageUsageTransferSrc
	if err := params.Validate(); err != nil {
		return err
	}

	shaders, err := atmosphere.LoadShaderSet(os.DirFS(shaderDir), ".", atmosphere.ComputeShaders...)
	if err != nil {
		return err
	}

	ctx, err := webgpu.NewContext("atmodump", webgpu.Features)
	if err != nil {
		return err
	}
	defer ctx.Release()
	dev := ctx.Device

	builder, err := atmosphere.NewBuilder(dev, shaders, nil, 0, nil, atmosphere.WithLogger(log))
	if err != nil {
		return err
	}
	defer builder.Destroy()

	cmd, err := dev.NewCommandBuffer("precompute")
	if err != nil {
		return err
	}
	defer cmd.Release()

	pending, err := builder.Build(params, cmd)
	if err != nil {
		return err
	}
	if err := dev.Submit(cmd); err != nil {
		pending.Release()
		return err
	}
	atm := pending.AssertReady()
	defer atm.Destroy()
	log.Infof("precomputed %s with %d scattering orders", atm.RunID(), params.Order)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	tables := []struct {
		name   string
		img    gpu.Image
		extent gpu.Extent3D
	}{
		{"transmittance", atm.Transmittance(), atm.TransmittanceExtent().To3D()},
		{"irradiance", atm.Irradiance(), atm.IrradianceExtent().To3D()},
		{"scattering", atm.Scattering(), atm.ScatteringExtent()},
	}
	for _, t := range tables {
		data, err := dev.ReadImage(t.img)
		if err != nil {
			return fmt.Errorf("read back %s: %w", t.name, err)
		}
		format := t.img.(*webgpu.Image).Desc.Format
		img, err := toImage(data, format, t.extent, scale)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-%s.tif", atm.RunID(), t.name))
		if err := writeTIFF(path, img); err != nil {
			return err
		}
		log.Infof("wrote %s (%dx%dx%d)", path, t.extent.Width, t.extent.Height, t.extent.Depth)
	}
	return nil
}
