package processor

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	// Registered source codecs. GIF decodes to its first frame.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imageorient"
	"github.com/gabriel-vasile/mimetype"
	"github.com/leeforge/shrink/errors"
)

// DecodeOptions controls how source files are read.
type DecodeOptions struct {
	// AutoOrient applies the EXIF orientation tag of JPEG sources.
	AutoOrient bool
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string, opts DecodeOptions) (*SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewDecode(path, err)
	}

	src, err := DecodeBytes(data, opts)
	if err != nil {
		if appErr := errors.FromError(err); appErr.Type == errors.ErrorTypeDecode {
			appErr.WithDetail("path", path)
		}
		return nil, err
	}
	src.Path = path
	return src, nil
}

// Decode reads everything from r and decodes it.
func Decode(r io.Reader, opts DecodeOptions) (*SourceImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewDecode("", err)
	}
	return DecodeBytes(data, opts)
}

// DecodeBytes decodes an in-memory file. Empty input, content that does
// not sniff as an image, and decoder failures are all decode errors.
func DecodeBytes(data []byte, opts DecodeOptions) (*SourceImage, error) {
	if len(data) == 0 {
		return nil, errors.NewDecode("", fmt.Errorf("file is empty"))
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, errors.NewDecode("", fmt.Errorf("unsupported file type %s", mime.String())).
			WithDetail("mime", mime.String())
	}

	var (
		img    image.Image
		format string
		err    error
	)
	if opts.AutoOrient {
		img, format, err = imageorient.Decode(bytes.NewReader(data))
	} else {
		img, format, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.NewDecode("", err).WithDetail("mime", mime.String())
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.NewDecode("", fmt.Errorf("image has no pixels"))
	}

	return &SourceImage{
		Image:  img,
		Size:   int64(len(data)),
		Format: format,
		MIME:   mime.String(),
		Mode:   DetectMode(img),
	}, nil
}
