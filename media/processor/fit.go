package processor

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FitSize returns the largest size <= (boxW, boxH) with img's aspect ratio,
// never larger than the image itself.
func FitSize(w, h, boxW, boxH int) (int, int) {
	if w <= 0 || h <= 0 || boxW <= 0 || boxH <= 0 {
		return 0, 0
	}
	if w <= boxW && h <= boxH {
		return w, h
	}
	// Compare boxW/w with boxH/h without floats.
	if int64(boxW)*int64(h) <= int64(boxH)*int64(w) {
		nh := int(int64(h) * int64(boxW) / int64(w))
		return boxW, max(nh, 1)
	}
	nw := int(int64(w) * int64(boxH) / int64(h))
	return max(nw, 1), boxH
}

// FitWithin scales img to fit a display region for on-screen preview.
// The result is for display only and is never encoded.
func FitWithin(img image.Image, boxW, boxH int) image.Image {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), boxW, boxH)
	if w == 0 || (w == b.Dx() && h == b.Dy()) {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
