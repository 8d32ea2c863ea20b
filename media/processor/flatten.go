package processor

import (
	"image"
	"image/color"
)

// White is the default background used when flattening to JPEG.
var White = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Flatten composites img over an opaque background of the same size:
// out = src*a + bg*(1-a), per channel on straight (non-premultiplied) 8-bit
// values, rounded to nearest. The result is fully opaque.
func Flatten(img image.Image, bg color.Color) *image.RGBA {
	bgc := color.NRGBAModel.Convert(bg).(color.NRGBA)
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * dst.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			src := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := row + (x-b.Min.X)*4
			dst.Pix[i+0] = blend(src.R, bgc.R, src.A)
			dst.Pix[i+1] = blend(src.G, bgc.G, src.A)
			dst.Pix[i+2] = blend(src.B, bgc.B, src.A)
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

// blend returns round((s*a + d*(255-a)) / 255).
func blend(s, d, a uint8) uint8 {
	v := uint32(s)*uint32(a) + uint32(d)*(255-uint32(a))
	return uint8((v + 127) / 255)
}
