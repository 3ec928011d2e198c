package vkgpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/gogpu/naga"
)

// CompileWGSL compiles a WGSL program to SPIR-V words.
func CompileWGSL(src string, opts naga.CompileOptions) ([]uint32, error) {
	if src == "" {
		return nil, errors.New("empty wgsl source")
	}
	code, err := naga.CompileWithOptions(src, opts)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	return gpu.SPIRVWords(code)
}
