package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCircle() Stencil {
	return Stencil{Type: StencilCircle, Center: &SkyPoint{RA: 148.9, Dec: 69.1}, Radius: 1.0}
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Parameters
		wantErr string
	}{
		{
			name:   "valid",
			params: Parameters{DatasetIDs: []string{"hsc/visit/903332/12"}, Stencils: []Stencil{validCircle()}},
		},
		{
			name:    "no datasets",
			params:  Parameters{Stencils: []Stencil{validCircle()}},
			wantErr: "at least one dataset ID is required",
		},
		{
			name: "two datasets",
			params: Parameters{
				DatasetIDs: []string{"a", "b"},
				Stencils:   []Stencil{validCircle()},
			},
			wantErr: "only one dataset ID is supported",
		},
		{
			name:    "empty dataset",
			params:  Parameters{DatasetIDs: []string{""}, Stencils: []Stencil{validCircle()}},
			wantErr: "dataset ID cannot be empty",
		},
		{
			name:    "no stencils",
			params:  Parameters{DatasetIDs: []string{"a"}},
			wantErr: "at least one stencil is required",
		},
		{
			name: "two stencils",
			params: Parameters{
				DatasetIDs: []string{"a"},
				Stencils:   []Stencil{validCircle(), validCircle()},
			},
			wantErr: "only one stencil is supported",
		},
		{
			name: "range stencil rejected",
			params: Parameters{
				DatasetIDs: []string{"a"},
				Stencils: []Stencil{{
					Type: StencilRange,
					RA:   &Range{Min: 10, Max: 20},
					Dec:  &Range{Min: -5, Max: 5},
				}},
			},
			wantErr: "RANGE stencils are not supported",
		},
		{
			name: "invalid stencil",
			params: Parameters{
				DatasetIDs: []string{"a"},
				Stencils:   []Stencil{{Type: StencilCircle, Radius: 1.0}},
			},
			wantErr: "circle stencil requires a center",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParametersScanRoundTrip(t *testing.T) {
	original := Parameters{
		DatasetIDs: []string{"hsc/visit/903332/12"},
		Stencils:   []Stencil{validCircle()},
	}

	value, err := original.Value()
	require.NoError(t, err)

	// Postgres hands jsonb back as []byte, SQLite as string.
	var fromBytes Parameters
	require.NoError(t, fromBytes.Scan(value))
	assert.Equal(t, original, fromBytes)

	var fromString Parameters
	require.NoError(t, fromString.Scan(string(value.([]byte))))
	assert.Equal(t, original, fromString)

	var fromNil Parameters
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil.DatasetIDs)
}
