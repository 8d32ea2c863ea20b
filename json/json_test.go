package json

import (
	"bytes"
	stdjson "encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Path    string `json:"path"`
	Format  string `json:"format" default:"jpeg"`
	Quality int    `json:"quality" default:"70"`
}

func TestMarshalAppliesDefaults(t *testing.T) {
	r := &report{Path: "out.jpg"}

	data, err := Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, 70, r.Quality, "defaults land on the original struct")

	var decoded report
	require.NoError(t, stdjson.Unmarshal(data, &decoded))
	assert.Equal(t, *r, decoded)
}

func TestUnmarshalAppliesDefaultsForMissingFields(t *testing.T) {
	var r report
	require.NoError(t, Unmarshal([]byte(`{"path":"a.png","format":"png"}`), &r))

	assert.Equal(t, "png", r.Format)
	assert.Equal(t, 70, r.Quality)
}

func TestNonStructValues(t *testing.T) {
	data, err := Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(&report{}))
	assert.JSONEq(t, `{"path":"","format":"jpeg","quality":70}`, buf.String())

	out, err := MarshalIndent(&report{Path: "x"}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  \"path\": \"x\"")
}
