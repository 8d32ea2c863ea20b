package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"

	"github.com/leeforge/shrink/errors"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/text/cases"
)

// Format is an output container.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
)

func (f Format) String() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpeg"
}

// Extension returns the canonical file extension, with the dot.
func (f Format) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// MIME returns the media type written for f.
func (f Format) MIME() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// FormatFromPath infers the output format from path's extension.
// Unrecognised extensions, including image types this package cannot
// write such as .tiff or .bmp, fall back to JPEG and report ok=false.
func FormatFromPath(path string) (f Format, ok bool) {
	switch cases.Fold().String(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".jpe", ".jfif":
		return FormatJPEG, true
	case ".png":
		return FormatPNG, true
	default:
		return FormatJPEG, false
	}
}

// ChooseDefaultFormat picks the natural format for img: PNG when its mode
// carries transparency, JPEG otherwise. Used for size estimates only.
func ChooseDefaultFormat(img image.Image) Format {
	if DetectMode(img).HasAlpha() {
		return FormatPNG
	}
	return FormatJPEG
}

// Converter turns images into encoded bytes.
type Converter struct {
	// Background fills transparent areas when flattening to JPEG.
	Background color.Color
}

// NewConverter returns a Converter flattening onto bg, or white when bg is nil.
func NewConverter(bg color.Color) *Converter {
	if bg == nil {
		bg = White
	}
	return &Converter{Background: bg}
}

// Encode encodes img as format. quality applies to JPEG only.
func (c *Converter) Encode(img image.Image, format Format, quality int) (EncodedResult, error) {
	var buf bytes.Buffer
	if err := c.EncodeTo(&buf, img, format, quality); err != nil {
		return EncodedResult{}, err
	}
	return EncodedResult{Data: buf.Bytes(), Format: format}, nil
}

// EncodeTo writes the encoded image to w.
func (c *Converter) EncodeTo(w io.Writer, img image.Image, format Format, quality int) error {
	if img == nil {
		return errors.NewEncode(format.String(), errors.NewInternal("nil image"))
	}
	out := c.Prepare(img, format)

	var err error
	switch format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(w, out)
	default:
		if quality < 1 || quality > 100 {
			return errors.NewEncode(format.String(),
				errors.NewValidation("quality", quality, "jpeg quality must be within 1..100"))
		}
		err = jpeg.Encode(w, out, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return errors.NewEncode(format.String(), err)
	}
	return nil
}

// Prepare applies the colour conversion the encoder needs for format:
//
//	alpha    + JPEG: flatten onto the background
//	alpha    + PNG:  keep as is (paletted transparency included)
//	no alpha + JPEG: keep as is; image/jpeg reads any opaque container
//	no alpha + PNG:  widen to opaque NRGBA
func (c *Converter) Prepare(img image.Image, format Format) image.Image {
	hasAlpha := DetectMode(img).HasAlpha()

	switch {
	case format == FormatJPEG && hasAlpha:
		bg := c.Background
		if bg == nil {
			bg = White
		}
		return Flatten(img, bg)
	case format == FormatPNG && !hasAlpha:
		return toNRGBA(img)
	default:
		return img
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}
