// Package units resolves physical print dimensions for raster images.
//
// A dropped image carries its physical size implicitly: pixel dimensions
// divided by the embedded resolution (DPI). The resolution lives in
// container-specific metadata (a JFIF APP0 segment for JPEG, a pHYs chunk
// for PNG); when absent, a conservative default of 150 DPI applies.
//
// Resolution below 300 DPI is considered low quality for transfer printing
// and is flagged so the caller can warn the user.
package units

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"

	// Registered decoders for pixel-dimension probing. The gang sheet
	// accepts whatever the host browser can rasterize, so the long tail
	// of container formats is registered alongside the core three.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/gangsheet/pkg/errors"
)

const (
	// DefaultDPI is the fallback resolution when no metadata is embedded.
	DefaultDPI = 150

	// QualityThresholdDPI is the minimum resolution considered print quality.
	QualityThresholdDPI = 300

	// MinDPI is the floor applied to any resolved resolution. Guards the
	// pixel-to-inch division against zero and nonsense metadata.
	MinDPI = 1
)

// Resolution is the outcome of a metadata probe.
type Resolution struct {
	DPIX  int
	DPIY  int
	Found bool // whether any embedded resolution metadata was present
}

// Info describes a fully resolved image: pixel dimensions, effective
// resolution and derived physical size.
type Info struct {
	WidthPx  int
	HeightPx int
	DPI      int
	WidthIn  float64
	HeightIn float64
	LowDPI   bool
}

// Probe inspects raw image bytes for embedded resolution metadata.
// A malformed or metadata-free stream is not an error; it simply reports
// Found=false and the caller falls back to DefaultDPI.
func Probe(data []byte) Resolution {
	if res, ok := probeJPEG(data); ok {
		return res
	}
	if res, ok := probePNG(data); ok {
		return res
	}
	return Resolution{}
}

// EffectiveDPI collapses a probe result to a single usable resolution.
// X density wins over Y when both are present; absent metadata yields
// DefaultDPI. The result is always >= MinDPI.
func EffectiveDPI(res Resolution) int {
	dpi := res.DPIX
	if dpi == 0 {
		dpi = res.DPIY
	}
	if dpi == 0 {
		dpi = DefaultDPI
	}
	if dpi < MinDPI {
		dpi = MinDPI
	}
	return dpi
}

// PhysicalSize converts pixel dimensions to inches at the given resolution.
func PhysicalSize(widthPx, heightPx, dpi int) (widthIn, heightIn float64) {
	if dpi < MinDPI {
		dpi = MinDPI
	}
	return float64(widthPx) / float64(dpi), float64(heightPx) / float64(dpi)
}

// Resolve probes metadata and decodes pixel dimensions in one step.
// Decode failure is a hard error; missing metadata is not.
func Resolve(data []byte) (Info, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode image dimensions")
	}
	dpi := EffectiveDPI(Probe(data))
	w, h := PhysicalSize(cfg.Width, cfg.Height, dpi)
	return Info{
		WidthPx:  cfg.Width,
		HeightPx: cfg.Height,
		DPI:      dpi,
		WidthIn:  w,
		HeightIn: h,
		LowDPI:   dpi < QualityThresholdDPI,
	}, nil
}

// probeJPEG walks the JPEG marker stream looking for a JFIF APP0 segment.
// The segment holds a one-byte unit flag and two 16-bit density values:
// unit 1 is pixels per inch, unit 2 is pixels per centimeter.
func probeJPEG(data []byte) (Resolution, bool) {
	if len(data) < 4 || binary.BigEndian.Uint16(data) != 0xffd8 {
		return Resolution{}, false
	}
	off := 2
	for off+4 <= len(data) {
		if data[off] != 0xff {
			break
		}
		marker := data[off+1]
		segLen := int(binary.BigEndian.Uint16(data[off+2:]))
		segStart := off + 4
		if marker == 0xe0 && segStart+11 <= len(data) && bytes.Equal(data[segStart:segStart+5], []byte("JFIF\x00")) {
			unit := data[segStart+7]
			xd := int(binary.BigEndian.Uint16(data[segStart+8:]))
			yd := int(binary.BigEndian.Uint16(data[segStart+10:]))
			switch unit {
			case 1: // dots per inch
				return Resolution{DPIX: xd, DPIY: yd, Found: true}, true
			case 2: // dots per centimeter
				return Resolution{
					DPIX:  int(math.Round(float64(xd) * 2.54)),
					DPIY:  int(math.Round(float64(yd) * 2.54)),
					Found: true,
				}, true
			}
			return Resolution{}, false
		}
		if segLen > 0 {
			off += segLen + 2
		} else {
			off += 2
		}
	}
	return Resolution{}, false
}

// pngChunkPHYS is the physical-pixel-dimensions chunk type ("pHYs").
const pngChunkPHYS = 0x70485973

// probePNG scans PNG chunks for a pHYs chunk. The chunk carries two 32-bit
// pixels-per-meter values; unit 1 means meters, anything else is unspecified.
func probePNG(data []byte) (Resolution, bool) {
	if len(data) < 8 || binary.BigEndian.Uint32(data) != 0x89504e47 {
		return Resolution{}, false
	}
	off := 8
	for off+12 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off:]))
		chunkType := binary.BigEndian.Uint32(data[off+4:])
		if chunkType == pngChunkPHYS && length == 9 && off+17 <= len(data) {
			xppu := binary.BigEndian.Uint32(data[off+8:])
			yppu := binary.BigEndian.Uint32(data[off+12:])
			unit := data[off+16]
			if unit == 1 {
				return Resolution{
					DPIX:  int(math.Round(float64(xppu) * 0.0254)),
					DPIY:  int(math.Round(float64(yppu) * 0.0254)),
					Found: true,
				}, true
			}
			return Resolution{}, false
		}
		off += 12 + length
	}
	return Resolution{}, false
}
