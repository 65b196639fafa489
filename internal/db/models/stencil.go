package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Stencil type names
const (
	// StencilCircle is a circular region around a center point
	StencilCircle = "circle"
	// StencilPolygon is a closed polygon with counter-clockwise winding
	StencilPolygon = "polygon"
	// StencilRange is a rectangular ra/dec range. Ranges parse but are
	// rejected by parameter validation; the cutout backend does not
	// support them.
	StencilRange = "range"
)

// SkyPoint is a position on the sky in ICRS degrees
type SkyPoint struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// Range is a closed interval in degrees
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Stencil is a geometric region defining the cutout area. Exactly one
// of the shape-specific field sets is populated, selected by Type.
type Stencil struct {
	Type string `json:"type"`

	// Circle fields
	Center *SkyPoint `json:"center,omitempty"`
	Radius float64   `json:"radius,omitempty"`

	// Polygon fields
	Vertices []SkyPoint `json:"vertices,omitempty"`

	// Range fields
	RA  *Range `json:"ra,omitempty"`
	Dec *Range `json:"dec,omitempty"`
}

// ParseStencil converts a SODA-style string stencil parameter to its
// structured representation. A "POS" parameter carries the shape name
// as the first token of its value.
func ParseStencil(stencilType, params string) (*Stencil, error) {
	if stencilType == "POS" {
		parts := strings.SplitN(strings.TrimSpace(params), " ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid POS value: %s", params)
		}
		stencilType, params = parts[0], parts[1]
	}

	switch stencilType {
	case "CIRCLE":
		return parseCircle(params)
	case "POLYGON":
		return parsePolygon(params)
	case "RANGE":
		return parseRange(params)
	default:
		return nil, fmt.Errorf("unknown stencil type %s", stencilType)
	}
}

func parseFloats(params string) ([]float64, error) {
	fields := strings.Fields(params)
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", f, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func parseCircle(params string) (*Stencil, error) {
	values, err := parseFloats(params)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("CIRCLE requires ra, dec, and radius, got %q", params)
	}
	if values[2] <= 0 {
		return nil, fmt.Errorf("circle radius must be positive, got %g", values[2])
	}
	return &Stencil{
		Type:   StencilCircle,
		Center: &SkyPoint{RA: values[0], Dec: values[1]},
		Radius: values[2],
	}, nil
}

func parsePolygon(params string) (*Stencil, error) {
	values, err := parseFloats(params)
	if err != nil {
		return nil, err
	}
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in vertex list %q", params)
	}
	if len(values) < 6 {
		return nil, fmt.Errorf("polygons require at least three vertices")
	}
	vertices := make([]SkyPoint, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		vertices = append(vertices, SkyPoint{RA: values[i], Dec: values[i+1]})
	}
	return &Stencil{Type: StencilPolygon, Vertices: vertices}, nil
}

func parseRange(params string) (*Stencil, error) {
	values, err := parseFloats(params)
	if err != nil {
		return nil, err
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("RANGE requires four values, got %q", params)
	}
	return &Stencil{
		Type: StencilRange,
		RA:   &Range{Min: values[0], Max: values[1]},
		Dec:  &Range{Min: values[2], Max: values[3]},
	}, nil
}

// Validate ensures the stencil is structurally sound
func (s *Stencil) Validate() error {
	switch s.Type {
	case StencilCircle:
		if s.Center == nil {
			return fmt.Errorf("circle stencil requires a center")
		}
		if s.Radius <= 0 {
			return fmt.Errorf("circle radius must be positive, got %g", s.Radius)
		}
	case StencilPolygon:
		if len(s.Vertices) < 3 {
			return fmt.Errorf("polygons require at least three vertices")
		}
	case StencilRange:
		if s.RA == nil || s.Dec == nil {
			return fmt.Errorf("range stencil requires ra and dec ranges")
		}
	default:
		return fmt.Errorf("unknown stencil type %s", s.Type)
	}
	return nil
}
