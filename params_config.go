package atmosphere

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type densityLayerFile struct {
	Width        float32 `yaml:"width" toml:"width"`
	ExpTerm      float32 `yaml:"exp_term" toml:"exp_term"`
	ExpScale     float32 `yaml:"exp_scale" toml:"exp_scale"`
	LinearTerm   float32 `yaml:"linear_term" toml:"linear_term"`
	ConstantTerm float32 `yaml:"constant_term" toml:"constant_term"`
}

type densityProfileFile struct {
	Layers []densityLayerFile `yaml:"layers" toml:"layers"`
}

// parametersFile is the on-disk form of Parameters. Final-state controls
// are integration concerns and stay in code.
type parametersFile struct {
	Order uint32 `yaml:"order" toml:"order"`

	TransmittanceMuSize uint32 `yaml:"transmittance_mu_size" toml:"transmittance_mu_size"`
	TransmittanceRSize  uint32 `yaml:"transmittance_r_size" toml:"transmittance_r_size"`
	ScatteringRSize     uint32 `yaml:"scattering_r_size" toml:"scattering_r_size"`
	ScatteringMuSize    uint32 `yaml:"scattering_mu_size" toml:"scattering_mu_size"`
	ScatteringMuSSize   uint32 `yaml:"scattering_mu_s_size" toml:"scattering_mu_s_size"`
	ScatteringNuSize    uint32 `yaml:"scattering_nu_size" toml:"scattering_nu_size"`
	IrradianceMuSSize   uint32 `yaml:"irradiance_mu_s_size" toml:"irradiance_mu_s_size"`
	IrradianceRSize     uint32 `yaml:"irradiance_r_size" toml:"irradiance_r_size"`

	SolarIrradiance  []float32 `yaml:"solar_irradiance" toml:"solar_irradiance"`
	SunAngularRadius float32   `yaml:"sun_angular_radius" toml:"sun_angular_radius"`
	BottomRadius     float32   `yaml:"bottom_radius" toml:"bottom_radius"`
	TopRadius        float32   `yaml:"top_radius" toml:"top_radius"`

	RayleighDensity    densityProfileFile `yaml:"rayleigh_density" toml:"rayleigh_density"`
	RayleighScattering []float32          `yaml:"rayleigh_scattering" toml:"rayleigh_scattering"`

	MieDensity        densityProfileFile `yaml:"mie_density" toml:"mie_density"`
	MieScattering     []float32          `yaml:"mie_scattering" toml:"mie_scattering"`
	MieExtinction     []float32          `yaml:"mie_extinction" toml:"mie_extinction"`
	MiePhaseFunctionG float32            `yaml:"mie_phase_function_g" toml:"mie_phase_function_g"`

	AbsorptionDensity    densityProfileFile `yaml:"absorption_density" toml:"absorption_density"`
	AbsorptionExtinction []float32          `yaml:"absorption_extinction" toml:"absorption_extinction"`

	GroundAlbedo []float32 `yaml:"ground_albedo" toml:"ground_albedo"`
	MuSMin       float32   `yaml:"mu_s_min" toml:"mu_s_min"`
}

func profileToFile(d DensityProfile) densityProfileFile {
	f := densityProfileFile{Layers: make([]densityLayerFile, len(d.Layers))}
	for i, l := range d.Layers {
		f.Layers[i] = densityLayerFile(l)
	}
	return f
}

func profileFromFile(name string, f densityProfileFile) (DensityProfile, error) {
	var d DensityProfile
	if len(f.Layers) != len(d.Layers) {
		return d, fmt.Errorf("%w: %s has %d layers, want %d", ErrInvalidParameters, name, len(f.Layers), len(d.Layers))
	}
	for i, l := range f.Layers {
		d.Layers[i] = DensityProfileLayer(l)
	}
	return d, nil
}

func vec3FromFile(name string, v []float32) ([3]float32, error) {
	var out [3]float32
	if len(v) != 3 {
		return out, fmt.Errorf("%w: %s has %d components, want 3", ErrInvalidParameters, name, len(v))
	}
	copy(out[:], v)
	return out, nil
}

func vec(v [3]float32) []float32 { return []float32{v[0], v[1], v[2]} }

func toFile(p *Parameters) parametersFile {
	return parametersFile{
		Order:                p.Order,
		TransmittanceMuSize:  p.TransmittanceMuSize,
		TransmittanceRSize:   p.TransmittanceRSize,
		ScatteringRSize:      p.ScatteringRSize,
		ScatteringMuSize:     p.ScatteringMuSize,
		ScatteringMuSSize:    p.ScatteringMuSSize,
		ScatteringNuSize:     p.ScatteringNuSize,
		IrradianceMuSSize:    p.IrradianceMuSSize,
		IrradianceRSize:      p.IrradianceRSize,
		SolarIrradiance:      vec(p.SolarIrradiance),
		SunAngularRadius:     p.SunAngularRadius,
		BottomRadius:         p.BottomRadius,
		TopRadius:            p.TopRadius,
		RayleighDensity:      profileToFile(p.RayleighDensity),
		RayleighScattering:   vec(p.RayleighScattering),
		MieDensity:           profileToFile(p.MieDensity),
		MieScattering:        vec(p.MieScattering),
		MieExtinction:        vec(p.MieExtinction),
		MiePhaseFunctionG:    p.MiePhaseFunctionG,
		AbsorptionDensity:    profileToFile(p.AbsorptionDensity),
		AbsorptionExtinction: vec(p.AbsorptionExtinction),
		GroundAlbedo:         vec(p.GroundAlbedo),
		MuSMin:               p.MuSMin,
	}
}

// apply copies f onto p, keeping p's final-state controls.
func (f *parametersFile) apply(p *Parameters) error {
	p.Order = f.Order
	p.TransmittanceMuSize = f.TransmittanceMuSize
	p.TransmittanceRSize = f.TransmittanceRSize
	p.ScatteringRSize = f.ScatteringRSize
	p.ScatteringMuSize = f.ScatteringMuSize
	p.ScatteringMuSSize = f.ScatteringMuSSize
	p.ScatteringNuSize = f.ScatteringNuSize
	p.IrradianceMuSSize = f.IrradianceMuSSize
	p.IrradianceRSize = f.IrradianceRSize
	p.SunAngularRadius = f.SunAngularRadius
	p.BottomRadius = f.BottomRadius
	p.TopRadius = f.TopRadius
	p.MiePhaseFunctionG = f.MiePhaseFunctionG
	p.MuSMin = f.MuSMin

	vecs := []struct {
		name string
		src  []float32
		dst  *[3]float32
	}{
		{"solar_irradiance", f.SolarIrradiance, &p.SolarIrradiance},
		{"rayleigh_scattering", f.RayleighScattering, &p.RayleighScattering},
		{"mie_scattering", f.MieScattering, &p.MieScattering},
		{"mie_extinction", f.MieExtinction, &p.MieExtinction},
		{"absorption_extinction", f.AbsorptionExtinction, &p.AbsorptionExtinction},
		{"ground_albedo", f.GroundAlbedo, &p.GroundAlbedo},
	}
	for _, v := range vecs {
		out, err := vec3FromFile(v.name, v.src)
		if err != nil {
			return err
		}
		*v.dst = out
	}

	profiles := []struct {
		name string
		src  densityProfileFile
		dst  *DensityProfile
	}{
		{"rayleigh_density", f.RayleighDensity, &p.RayleighDensity},
		{"mie_density", f.MieDensity, &p.MieDensity},
		{"absorption_density", f.AbsorptionDensity, &p.AbsorptionDensity},
	}
	for _, d := range profiles {
		out, err := profileFromFile(d.name, d.src)
		if err != nil {
			return err
		}
		*d.dst = out
	}
	return nil
}

type codec struct {
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return codec{unmarshal: yaml.Unmarshal, marshal: yaml.Marshal}, nil
	case ".toml":
		return codec{unmarshal: toml.Unmarshal, marshal: toml.Marshal}, nil
	}
	return codec{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// DecodeParameters overlays data, encoded as the extension of name
// selects, onto DefaultParameters.
func DecodeParameters(name string, data []byte) (Parameters, error) {
	p := DefaultParameters()
	c, err := codecFor(name)
	if err != nil {
		return p, err
	}
	f := toFile(&p)
	if err := c.unmarshal(data, &f); err != nil {
		return p, fmt.Errorf("decode %s: %w", name, err)
	}
	if err := f.apply(&p); err != nil {
		return p, fmt.Errorf("decode %s: %w", name, err)
	}
	return p, nil
}

// EncodeParameters encodes p as the extension of name selects.
func EncodeParameters(name string, p *Parameters) ([]byte, error) {
	c, err := codecFor(name)
	if err != nil {
		return nil, err
	}
	f := toFile(p)
	data, err := c.marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return data, nil
}

// LoadParameters reads a YAML or TOML parameter file. Fields missing from
// the file keep their DefaultParameters value.
func LoadParameters(path string) (Parameters, error) {
	if _, err := codecFor(path); err != nil {
		return DefaultParameters(), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultParameters(), err
	}
	return DecodeParameters(path, data)
}

// SaveParameters writes p to a YAML or TOML file.
func SaveParameters(path string, p *Parameters) error {
	data, err := EncodeParameters(path, p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
