package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStencilCircle(t *testing.T) {
	s, err := ParseStencil("CIRCLE", "148.9 69.1 1.0")
	require.NoError(t, err)
	assert.Equal(t, StencilCircle, s.Type)
	require.NotNil(t, s.Center)
	assert.Equal(t, 148.9, s.Center.RA)
	assert.Equal(t, 69.1, s.Center.Dec)
	assert.Equal(t, 1.0, s.Radius)
	assert.NoError(t, s.Validate())
}

func TestParseStencilPolygon(t *testing.T) {
	s, err := ParseStencil("POLYGON", "12.0 34.0 14.0 35.0 14.0 36.0 12.0 35.0")
	require.NoError(t, err)
	assert.Equal(t, StencilPolygon, s.Type)
	require.Len(t, s.Vertices, 4)
	assert.Equal(t, SkyPoint{RA: 12.0, Dec: 34.0}, s.Vertices[0])
	assert.Equal(t, SkyPoint{RA: 12.0, Dec: 35.0}, s.Vertices[3])
	assert.NoError(t, s.Validate())
}

func TestParseStencilRange(t *testing.T) {
	// RANGE parses so the error surfaces as a policy rejection, not a
	// syntax error.
	s, err := ParseStencil("RANGE", "10 20 -5 5")
	require.NoError(t, err)
	assert.Equal(t, StencilRange, s.Type)
	require.NotNil(t, s.RA)
	require.NotNil(t, s.Dec)
	assert.Equal(t, Range{Min: 10, Max: 20}, *s.RA)
	assert.Equal(t, Range{Min: -5, Max: 5}, *s.Dec)
}

func TestParseStencilPOS(t *testing.T) {
	s, err := ParseStencil("POS", "CIRCLE 148.9 69.1 1.0")
	require.NoError(t, err)
	assert.Equal(t, StencilCircle, s.Type)
	assert.Equal(t, 1.0, s.Radius)

	s, err = ParseStencil("POS", "RANGE 10 20 -5 5")
	require.NoError(t, err)
	assert.Equal(t, StencilRange, s.Type)

	_, err = ParseStencil("POS", "CIRCLE")
	assert.Error(t, err, "POS value needs a shape and coordinates")
}

func TestParseStencilErrors(t *testing.T) {
	tests := []struct {
		name        string
		stencilType string
		params      string
	}{
		{"unknown shape", "SQUARE", "1 2 3 4"},
		{"circle too few values", "CIRCLE", "148.9 69.1"},
		{"circle too many values", "CIRCLE", "148.9 69.1 1.0 2.0"},
		{"circle zero radius", "CIRCLE", "148.9 69.1 0"},
		{"circle negative radius", "CIRCLE", "148.9 69.1 -1"},
		{"circle not a number", "CIRCLE", "148.9 north 1.0"},
		{"polygon odd coordinates", "POLYGON", "1 2 3 4 5"},
		{"polygon two vertices", "POLYGON", "1 2 3 4"},
		{"range too few values", "RANGE", "10 20 -5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStencil(tt.stencilType, tt.params)
			assert.Error(t, err)
		})
	}
}

func TestStencilValidate(t *testing.T) {
	circle := Stencil{Type: StencilCircle, Center: &SkyPoint{RA: 1, Dec: 2}, Radius: 0.5}
	assert.NoError(t, circle.Validate())

	noCenter := Stencil{Type: StencilCircle, Radius: 0.5}
	assert.Error(t, noCenter.Validate())

	twoVertices := Stencil{Type: StencilPolygon, Vertices: []SkyPoint{{RA: 1, Dec: 2}, {RA: 3, Dec: 4}}}
	assert.Error(t, twoVertices.Validate())

	halfRange := Stencil{Type: StencilRange, RA: &Range{Min: 1, Max: 2}}
	assert.Error(t, halfRange.Validate())

	unknown := Stencil{Type: "square"}
	assert.Error(t, unknown.Validate())
}
