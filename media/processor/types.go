package processor

import (
	"image"

	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/leeforge/shrink/errors"
)

// Parameter bounds exposed to the sliders.
const (
	QualityMin  = 10
	QualityMax  = 95
	MaxWidthMin = 200
	MaxWidthMax = 4000

	DefaultQuality  = 70
	DefaultMaxWidth = 1200
)

// Parameters are the user-adjustable settings read at action time.
type Parameters struct {
	Quality  int `json:"quality" validate:"gte=10,lte=95"`
	MaxWidth int `json:"max_width" validate:"gte=200,lte=4000"`
}

// DefaultParameters returns the initial slider positions.
func DefaultParameters() Parameters {
	return Parameters{Quality: DefaultQuality, MaxWidth: DefaultMaxWidth}
}

var validate = validatorV10.New()

// Validate checks both values are inside the slider bounds.
func (p Parameters) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validatorV10.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return errors.WrapWithType(err, errors.ErrorTypeValidation, "invalid parameters")
	}
	fe := fieldErrs[0]
	return errors.NewValidation(fe.Field(), fe.Value(), fe.Tag()+"="+fe.Param())
}

// SourceImage is a decoded image together with where it came from.
type SourceImage struct {
	Image  image.Image
	Path   string
	Size   int64
	Format string // decoder name: jpeg, png, gif, bmp, tiff, webp
	MIME   string
	Mode   ColorMode
}

func (s *SourceImage) Width() int {
	return s.Image.Bounds().Dx()
}

func (s *SourceImage) Height() int {
	return s.Image.Bounds().Dy()
}

// EncodedResult is the output of one encode.
type EncodedResult struct {
	Data   []byte
	Format Format
}

// Len returns the encoded size in bytes.
func (r EncodedResult) Len() int64 {
	return int64(len(r.Data))
}
