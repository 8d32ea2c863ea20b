package config

import (
	"fmt"
	"image/color"
	"reflect"
	"strconv"
	"strings"

	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/leeforge/shrink/logging"
	"github.com/leeforge/shrink/media/storage"
)

// AppConfig is the full configuration of the shrinker.
type AppConfig struct {
	Logging logging.Config         `mapstructure:"logging" yaml:"logging"`
	Editor  EditorConfig           `mapstructure:"editor" yaml:"editor"`
	Storage storage.ProviderConfig `mapstructure:"storage" yaml:"storage"`
}

// EditorConfig holds the initial slider values and conversion settings.
type EditorConfig struct {
	Quality       int    `mapstructure:"quality" yaml:"quality" default:"70" validate:"gte=10,lte=95"`
	MaxWidth      int    `mapstructure:"max_width" yaml:"max_width" default:"1200" validate:"gte=200,lte=4000"`
	Background    string `mapstructure:"background" yaml:"background" default:"#ffffff" validate:"rgbhex"`
	AutoOrient    bool   `mapstructure:"auto_orient" yaml:"auto_orient"`
	PreviewBuffer int    `mapstructure:"preview_buffer" yaml:"preview_buffer" default:"8" validate:"gte=1,lte=1024"`
}

var validate = newValidator()

func newValidator() *validatorV10.Validate {
	v := validatorV10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	// The stock hexcolor tag also admits #rgba and #rrggbbaa.
	_ = v.RegisterValidation("rgbhex", func(fl validatorV10.FieldLevel) bool {
		s := fl.Field().String()
		if !strings.HasPrefix(s, "#") {
			return false
		}
		_, err := ParseHexColor(s)
		return err == nil
	})
	return v
}

// Validate checks the editor bounds.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c.Editor); err != nil {
		return describeValidation(err)
	}
	return nil
}

// BackgroundColor parses Editor.Background (#rgb or #rrggbb).
func (c EditorConfig) BackgroundColor() (color.NRGBA, error) {
	return ParseHexColor(c.Background)
}

// DefaultAppConfig returns the configuration used when no file is present.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Logging: logging.DefaultConfig(),
		Editor: EditorConfig{
			Quality:       70,
			MaxWidth:      1200,
			Background:    "#ffffff",
			PreviewBuffer: 8,
		},
		Storage: storage.ProviderConfig{Type: "local", FileMode: 0o644},
	}
}

var envKeys = []string{
	"logging.director",
	"logging.level",
	"logging.format",
	"logging.log-in-terminal",
	"editor.quality",
	"editor.max_width",
	"editor.background",
	"editor.auto_orient",
	"editor.preview_buffer",
	"storage.type",
	"storage.file_mode",
}

// LoadAppConfig reads, defaults and validates an AppConfig.
func LoadAppConfig(optsArr ...ConfigOptions) (*AppConfig, *Config, error) {
	c, err := NewConfig(optsArr...)
	if err != nil {
		return nil, nil, err
	}
	if err := c.BindEnv(envKeys...); err != nil {
		return nil, nil, err
	}

	cfg := DefaultAppConfig()
	if err := c.BindWithDefaults(&cfg); err != nil {
		return nil, nil, err
	}
	return &cfg, c, nil
}

// ParseHexColor parses "#rgb" or "#rrggbb" into an opaque colour.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func describeValidation(err error) error {
	fieldErrs, ok := err.(validatorV10.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "gte":
		return fmt.Errorf("editor.%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Errorf("editor.%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "rgbhex":
		return fmt.Errorf("editor.%s must be a hex colour", fe.Field())
	default:
		return fmt.Errorf("editor.%s failed validation for tag '%s'", fe.Field(), fe.Tag())
	}
}
