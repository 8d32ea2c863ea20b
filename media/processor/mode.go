package processor

import (
	"image"
	"image/color"
)

// ColorMode describes the channel layout of an image.
type ColorMode int

const (
	ModeGray ColorMode = iota
	ModeGrayAlpha
	ModeRGB
	ModeRGBA
	ModePaletted
	ModePalettedAlpha
	ModeCMYK
)

func (m ColorMode) String() string {
	switch m {
	case ModeGray:
		return "L"
	case ModeGrayAlpha:
		return "LA"
	case ModeRGB:
		return "RGB"
	case ModeRGBA:
		return "RGBA"
	case ModePaletted:
		return "P"
	case ModePalettedAlpha:
		return "PA"
	case ModeCMYK:
		return "CMYK"
	default:
		return "unknown"
	}
}

// HasAlpha reports whether the mode carries transparency.
func (m ColorMode) HasAlpha() bool {
	return m == ModeGrayAlpha || m == ModeRGBA || m == ModePalettedAlpha
}

// DetectMode maps an image's container to a ColorMode.
//
// Non-premultiplied containers (NRGBA, NRGBA64, NYCbCrA) always report RGBA:
// decoders only produce them when the file has an alpha channel or a
// transparency key. Premultiplied RGBA containers are what decoders return
// for plain truecolor files, so they report RGB unless a pixel is actually
// translucent.
func DetectMode(img image.Image) ColorMode {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return ModeGray
	case *image.YCbCr:
		return ModeRGB
	case *image.CMYK:
		return ModeCMYK
	case *image.Paletted:
		if paletteHasAlpha(m.Palette) {
			return ModePalettedAlpha
		}
		return ModePaletted
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return ModeRGBA
	case *image.Alpha, *image.Alpha16:
		return ModeGrayAlpha
	case *image.RGBA:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.RGBA64:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return ModeGray
	case color.YCbCrModel:
		return ModeRGB
	case color.CMYKModel:
		return ModeCMYK
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return ModeRGB
	}
	return ModeRGBA
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}
