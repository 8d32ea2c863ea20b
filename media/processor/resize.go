package processor

import (
	"image"

	"github.com/leeforge/shrink/errors"
	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// TargetSize returns the dimensions Resize produces for a w x h image.
// Height is rounded half-up: (2*h*maxWidth + w) / (2*w).
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	newH := int((2*int64(h)*int64(maxWidth) + int64(w)) / (2 * int64(w)))
	if newH < 1 {
		newH = 1
	}
	return maxWidth, newH
}

// Resize scales img down to maxWidth preserving aspect ratio. Images that
// already fit are returned unchanged; nothing is ever upscaled.
//
// Continuous-tone images use Lanczos3. Paletted images are sampled
// nearest-neighbour into the same palette so their mode (and any
// transparent index) survives.
func Resize(img image.Image, maxWidth int) (image.Image, error) {
	if img == nil {
		return nil, errors.NewInvalidDimension(0, 0, maxWidth)
	}
	b := img.Bounds()
	if maxWidth < 1 || b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.NewInvalidDimension(b.Dx(), b.Dy(), maxWidth)
	}
	if b.Dx() <= maxWidth {
		return img, nil
	}

	w, h := TargetSize(b.Dx(), b.Dy(), maxWidth)

	if p, ok := img.(*image.Paletted); ok {
		dst := image.NewPaletted(image.Rect(0, 0, w, h), p.Palette)
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), p, b, xdraw.Src, nil)
		return dst, nil
	}

	out := resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
	return matchContainer(out, img), nil
}

// matchContainer converts out back to the container family of src where
// the resampler changed it, so DetectMode(out) == DetectMode(src).
func matchContainer(out, src image.Image) image.Image {
	switch src.(type) {
	case *image.NRGBA:
		if _, ok := out.(*image.NRGBA); !ok {
			return convert(out, image.NewNRGBA(out.Bounds()))
		}
	case *image.NRGBA64:
		if _, ok := out.(*image.NRGBA64); !ok {
			return convert(out, image.NewNRGBA64(out.Bounds()))
		}
	case *image.CMYK:
		if _, ok := out.(*image.CMYK); !ok {
			return convert(out, image.NewCMYK(out.Bounds()))
		}
	case *image.Gray:
		if _, ok := out.(*image.Gray); !ok {
			return convert(out, image.NewGray(out.Bounds()))
		}
	}

	// Lanczos ringing can leave edge pixels of an opaque source at A<0xffff.
	if !DetectMode(src).HasAlpha() && DetectMode(out).HasAlpha() {
		return opaqueRGBA(out)
	}
	return out
}

func convert(src image.Image, dst xdraw.Image) image.Image {
	xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return dst
}

// opaqueRGBA copies src into an RGBA with every alpha forced to 0xff.
func opaqueRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
