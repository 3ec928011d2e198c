package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/gekko3d/atmosphere/gpu"
	"golang.org/x/image/tiff"
)

// toImage converts tightly packed texels to a 16-bit image. The depth
// slices of a 3D table are stacked vertically. Values are multiplied by
// scale and clamped to [0, 1].
func toImage(data []byte, format gpu.Format, extent gpu.Extent3D, scale float32) (*image.NRGBA64, error) {
	var texel func([]byte) [4]float32
	switch format {
	case gpu.FormatR32G32B32A32Sfloat:
		texel = func(b []byte) (out [4]float32) {
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
			}
			return out
		}
	case gpu.FormatR16G16B16A16Sfloat:
		texel = func(b []byte) (out [4]float32) {
			for i := range out {
				out[i] = halfToFloat(binary.LittleEndian.Uint16(b[i*2:]))
			}
			return out
		}
	default:
		return nil, fmt.Errorf("cannot export %s", format)
	}
	bpt := format.BytesPerTexel()
	if len(data) != extent.Texels()*bpt {
		return nil, fmt.Errorf("got %d bytes for %dx%dx%d %s", len(data), extent.Width, extent.Height, extent.Depth, format)
	}

	w, h := int(extent.Width), int(extent.Height)*int(extent.Depth)
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			off := (y*w + x) * bpt
			v := texel(data[off : off+bpt])
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: quantize(v[0] * scale),
				G: quantize(v[1] * scale),
				B: quantize(v[2] * scale),
				A: quantize(v[3] * scale),
			})
		}
	}
	return img, nil
}

func quantize(v float32) uint16 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return math.MaxUint16
	}
	return uint16(math.Round(float64(v) * math.MaxUint16))
}

// halfToFloat decodes an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: renormalize.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
