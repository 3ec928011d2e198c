package atmosphere

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/gekko3d/atmosphere/gpu"
)

// ShaderKind names a shader program used by the precomputation or the
// sky renderer.
type ShaderKind int

const (
	ShaderTransmittance ShaderKind = iota
	ShaderDirectIrradiance
	ShaderIndirectIrradiance
	ShaderSingleScattering
	ShaderScatteringDensity
	ShaderMultipleScattering
	ShaderFullscreen
	ShaderRenderSky

	shaderKindCount
)

var shaderNames = [shaderKindCount]string{
	"transmittance",
	"direct_irradiance",
	"indirect_irradiance",
	"single_scattering",
	"scattering_density",
	"multiple_scattering",
	"fullscreen",
	"render_sky",
}

func (k ShaderKind) String() string {
	if k >= 0 && k < shaderKindCount {
		return shaderNames[k]
	}
	return "unknown"
}

// ComputeShaders are the kinds a Builder needs.
var ComputeShaders = []ShaderKind{
	ShaderTransmittance,
	ShaderDirectIrradiance,
	ShaderIndirectIrradiance,
	ShaderSingleScattering,
	ShaderScatteringDensity,
	ShaderMultipleScattering,
}

// RenderShaders are the kinds a Renderer needs.
var RenderShaders = []ShaderKind{ShaderFullscreen, ShaderRenderSky}

// ShaderSet maps shader kinds to their sources.
type ShaderSet map[ShaderKind]gpu.ShaderSource

// require returns ErrMissingShader for the first absent kind.
func (s ShaderSet) require(kinds ...ShaderKind) error {
	for _, k := range kinds {
		if s[k].IsZero() {
			return fmt.Errorf("%w: %s", ErrMissingShader, k)
		}
	}
	return nil
}

// LoadShaderSet reads <name>.wgsl or <name>.spv from dir for each of
// kinds, or for every kind when none are given.
func LoadShaderSet(fsys fs.FS, dir string, kinds ...ShaderKind) (ShaderSet, error) {
	if len(kinds) == 0 {
		for k := ShaderKind(0); k < shaderKindCount; k++ {
			kinds = append(kinds, k)
		}
	}
	set := make(ShaderSet, len(kinds))
	for _, k := range kinds {
		src, err := loadShader(fsys, dir, k)
		if err != nil {
			return nil, err
		}
		set[k] = src
	}
	return set, nil
}

func loadShader(fsys fs.FS, dir string, k ShaderKind) (gpu.ShaderSource, error) {
	base := path.Join(dir, k.String())
	if data, err := fs.ReadFile(fsys, base+".wgsl"); err == nil {
		return gpu.ShaderSource{Label: k.String(), WGSL: string(data)}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return gpu.ShaderSource{}, err
	}

	data, err := fs.ReadFile(fsys, base+".spv")
	if errors.Is(err, fs.ErrNotExist) {
		return gpu.ShaderSource{}, fmt.Errorf("%w: %s in %s", ErrMissingShader, k, dir)
	}
	if err != nil {
		return gpu.ShaderSource{}, err
	}
	words, err := gpu.SPIRVWords(data)
	if err != nil {
		return gpu.ShaderSource{}, fmt.Errorf("%s.spv: %w", base, err)
	}
	return gpu.ShaderSource{Label: k.String(), SPIRV: words}, nil
}

