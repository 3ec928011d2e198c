package main

import (
	"encoding/binary"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/atmosphere/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestHalfToFloat(t *testing.T) {
	tests := []struct {
		in   uint16
		want float32
	}{
		{0x0000, 0},
		{0x3c00, 1},
		{0xc000, -2},
		{0x3800, 0.5},
		{0x7bff, 65504},
		{0x0001, float32(math.Ldexp(1, -24))},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, halfToFloat(tt.in), "0x%04x", tt.in)
	}
	assert.True(t, math.IsInf(float64(halfToFloat(0x7c00)), 1))
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, uint16(0), quantize(-1))
	assert.Equal(t, uint16(0), quantize(float32(math.NaN())))
	assert.Equal(t, uint16(math.MaxUint16), quantize(2))
	assert.Equal(t, uint16(32768), quantize(0.5))
}

func TestToImageStacksSlices(t *testing.T) {
	extent := gpu.Extent3D{Width: 2, Height: 1, Depth: 2}
	var data []byte
	for i := range 4 {
		for range 4 {
			data = binary.LittleEndian.AppendUint16(data, []uint16{0x0000, 0x3800, 0x3c00, 0x4000}[i])
		}
	}
	img, err := toImage(data, gpu.FormatR16G16B16A16Sfloat, extent, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA64{}, img.NRGBA64At(0, 0))
	assert.Equal(t, uint16(32768), img.NRGBA64At(1, 0).R)
	assert.Equal(t, uint16(math.MaxUint16), img.NRGBA64At(0, 1).G)
	assert.Equal(t, uint16(math.MaxUint16), img.NRGBA64At(1, 1).A)
}

func TestToImageErrors(t *testing.T) {
	_, err := toImage(make([]byte, 8), gpu.FormatR16G16B16A16Sfloat, gpu.Extent3D{Width: 2, Height: 1, Depth: 1}, 1)
	assert.Error(t, err)
	_, err = toImage(make([]byte, 4), gpu.FormatR8G8B8A8Unorm, gpu.Extent3D{Width: 1, Height: 1, Depth: 1}, 1)
	assert.Error(t, err)
}

func TestWriteTIFF(t *testing.T) {
	data := make([]byte, 0, 16)
	for _, v := range []float32{0.25, 0.5, 0.75, 1} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	img, err := toImage(data, gpu.FormatR32G32B32A32Sfloat, gpu.Extent3D{Width: 1, Height: 1, Depth: 1}, 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "t.tif")
	require.NoError(t, writeTIFF(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := tiff.Decode(f)
	require.NoError(t, err)
	r, g, b, a := got.At(0, 0).RGBA()
	assert.Equal(t, uint32(math.MaxUint16), a)
	assert.InDelta(t, 0.25*math.MaxUint16, r, 2)
	assert.InDelta(t, 0.5*math.MaxUint16, g, 2)
	assert.InDelta(t, 0.75*math.MaxUint16, b, 2)
}
