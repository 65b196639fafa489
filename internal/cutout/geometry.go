package cutout

import (
	"math"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

// Bounds is an axis-aligned bounding box on the sky in ICRS degrees
type Bounds struct {
	RAMin  float64 `json:"ra_min"`
	RAMax  float64 `json:"ra_max"`
	DecMin float64 `json:"dec_min"`
	DecMax float64 `json:"dec_max"`
}

// IsEmpty reports whether the box covers no area
func (b Bounds) IsEmpty() bool {
	return b.RAMin >= b.RAMax || b.DecMin >= b.DecMax
}

// Intersect returns the overlap of two boxes. The second return value
// is false when the boxes do not overlap.
func (b Bounds) Intersect(other Bounds) (Bounds, bool) {
	out := Bounds{
		RAMin:  math.Max(b.RAMin, other.RAMin),
		RAMax:  math.Min(b.RAMax, other.RAMax),
		DecMin: math.Max(b.DecMin, other.DecMin),
		DecMax: math.Min(b.DecMax, other.DecMax),
	}
	if out.IsEmpty() {
		return Bounds{}, false
	}
	return out, true
}

// StencilBounds computes the bounding box of a stencil. Clipping works
// on bounding boxes only; the cutout never masks pixels outside the
// stencil boundary.
func StencilBounds(s models.Stencil) Bounds {
	switch s.Type {
	case models.StencilCircle:
		return Bounds{
			RAMin:  s.Center.RA - s.Radius,
			RAMax:  s.Center.RA + s.Radius,
			DecMin: s.Center.Dec - s.Radius,
			DecMax: s.Center.Dec + s.Radius,
		}
	case models.StencilPolygon:
		b := Bounds{
			RAMin:  math.Inf(1),
			RAMax:  math.Inf(-1),
			DecMin: math.Inf(1),
			DecMax: math.Inf(-1),
		}
		for _, v := range s.Vertices {
			b.RAMin = math.Min(b.RAMin, v.RA)
			b.RAMax = math.Max(b.RAMax, v.RA)
			b.DecMin = math.Min(b.DecMin, v.Dec)
			b.DecMax = math.Max(b.DecMax, v.Dec)
		}
		return b
	case models.StencilRange:
		return Bounds{
			RAMin:  s.RA.Min,
			RAMax:  s.RA.Max,
			DecMin: s.Dec.Min,
			DecMax: s.Dec.Max,
		}
	default:
		return Bounds{}
	}
}
