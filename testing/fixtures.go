// Package testing holds image fixtures shared by package tests.
package testing

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

// Gradient returns an opaque w x h image in a truecolor container, the
// same container image/png produces for RGB files.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) % 256),
				A: 0xff,
			})
		}
	}
	return img
}

// Photo returns an opaque w x h image with per-pixel sensor-like noise
// over a gradient. Unlike Gradient it does not compress well as PNG, so a
// resized JPEG of it is reliably smaller than the source file. The same
// seed always yields the same pixels.
func Photo(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			base := [3]int{x * 255 / max(w-1, 1), y * 255 / max(h-1, 1), (x + y) % 256}
			for c := 0; c < 3; c++ {
				row[x*4+c] = uint8(min(max(base[c]+rng.Intn(81)-40, 0), 255))
			}
			row[x*4+3] = 0xff
		}
	}
	return img
}

// TransparentCorner returns an RGBA image, opaque red except for a fully
// transparent n x n square in the top-left corner.
func TransparentCorner(w, h, n int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < n && y < n {
				img.SetNRGBA(x, y, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0})
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0xff})
		}
	}
	return img
}

// Uniform returns an image filled with a single straight colour.
func Uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// Paletted returns a paletted image using index 0 in the left half and 1
// in the right half. With transparent set, index 0 is fully transparent.
func Paletted(w, h int, transparent bool) *image.Paletted {
	first := color.Color(color.RGBA{B: 0xff, A: 0xff})
	if transparent {
		first = color.RGBA{}
	}
	pal := color.Palette{first, color.RGBA{G: 0xff, A: 0xff}}
	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			img.SetColorIndex(x, y, 1)
		}
	}
	return img
}

// Gray returns a horizontal grey ramp.
func Gray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / max(w-1, 1))})
		}
	}
	return img
}

// WriteImage encodes img into dir/name, choosing the codec from the
// extension (.png, .jpg/.jpeg, .gif, .bmp), and returns the path.
func WriteImage(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture %s: %v", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	case ".gif":
		err = gif.Encode(f, img, nil)
	case ".bmp":
		err = bmp.Encode(f, img)
	default:
		t.Fatalf("no fixture encoder for %s", name)
	}
	if err != nil {
		t.Fatalf("encode fixture %s: %v", path, err)
	}
	return path
}

// WriteBytes writes raw bytes to dir/name and returns the path.
func WriteBytes(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadImage decodes the PNG, JPEG or GIF at path.
func ReadImage(t testing.TB, path string) (image.Image, string) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img, format
}
