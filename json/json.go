// Package json wraps json-iterator with struct defaults applied before
// every encode and decode.
package json

import (
	"io"
	"reflect"

	"github.com/creasty/defaults"
	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Encoder fills `default` tags before encoding.
type Encoder struct {
	*jsoniter.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		Encoder: api.NewEncoder(w),
	}
}

func (e *Encoder) Encode(v any) error {
	if err := setDefaults(v); err != nil {
		return err
	}
	return e.Encoder.Encode(v)
}

func Marshal(v any) ([]byte, error) {
	if err := setDefaults(v); err != nil {
		return nil, err
	}
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	if err := setDefaults(v); err != nil {
		return nil, err
	}
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	if err := setDefaults(v); err != nil {
		return err
	}
	return api.Unmarshal(data, v)
}

// setDefaults only touches struct pointers; maps and slices pass through.
func setDefaults(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	return defaults.Set(v)
}
