package cutout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

func TestBoundsIntersect(t *testing.T) {
	image := Bounds{RAMin: 148.0, RAMax: 150.0, DecMin: 68.0, DecMax: 70.0}

	t.Run("fully inside", func(t *testing.T) {
		inner := Bounds{RAMin: 148.5, RAMax: 149.5, DecMin: 68.5, DecMax: 69.5}
		out, ok := inner.Intersect(image)
		require.True(t, ok)
		assert.Equal(t, inner, out)
	})

	t.Run("partial overlap clips to the image", func(t *testing.T) {
		straddling := Bounds{RAMin: 149.0, RAMax: 151.0, DecMin: 69.0, DecMax: 71.0}
		out, ok := straddling.Intersect(image)
		require.True(t, ok)
		assert.Equal(t, Bounds{RAMin: 149.0, RAMax: 150.0, DecMin: 69.0, DecMax: 70.0}, out)
	})

	t.Run("no overlap", func(t *testing.T) {
		outside := Bounds{RAMin: 200.0, RAMax: 201.0, DecMin: 10.0, DecMax: 11.0}
		_, ok := outside.Intersect(image)
		assert.False(t, ok)
	})

	t.Run("touching edges is empty", func(t *testing.T) {
		adjacent := Bounds{RAMin: 150.0, RAMax: 151.0, DecMin: 68.0, DecMax: 70.0}
		_, ok := adjacent.Intersect(image)
		assert.False(t, ok)
	})
}

func TestStencilBounds(t *testing.T) {
	circle := models.Stencil{
		Type:   models.StencilCircle,
		Center: &models.SkyPoint{RA: 149.0, Dec: 69.0},
		Radius: 0.5,
	}
	assert.Equal(t, Bounds{RAMin: 148.5, RAMax: 149.5, DecMin: 68.5, DecMax: 69.5},
		StencilBounds(circle))

	polygon := models.Stencil{
		Type: models.StencilPolygon,
		Vertices: []models.SkyPoint{
			{RA: 148.0, Dec: 68.0},
			{RA: 150.0, Dec: 68.5},
			{RA: 149.0, Dec: 70.0},
		},
	}
	assert.Equal(t, Bounds{RAMin: 148.0, RAMax: 150.0, DecMin: 68.0, DecMax: 70.0},
		StencilBounds(polygon))

	rng := models.Stencil{
		Type: models.StencilRange,
		RA:   &models.Range{Min: 10, Max: 20},
		Dec:  &models.Range{Min: -5, Max: 5},
	}
	assert.Equal(t, Bounds{RAMin: 10, RAMax: 20, DecMin: -5, DecMax: 5},
		StencilBounds(rng))
}

func TestMockBackendClipping(t *testing.T) {
	ctx := context.Background()
	backend := NewMockBackend()
	handle := &DatasetHandle{
		Ref:    "hsc/visit/903332/12",
		Bounds: Bounds{RAMin: 148.0, RAMax: 150.0, DecMin: 68.0, DecMax: 70.0},
	}

	t.Run("inside succeeds", func(t *testing.T) {
		artifact, err := backend.Cut(ctx, handle, models.Stencil{
			Type:   models.StencilCircle,
			Center: &models.SkyPoint{RA: 149.0, Dec: 69.0},
			Radius: 0.5,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, artifact.Data)
		assert.Equal(t, "application/fits", artifact.MimeType)
	})

	t.Run("zero overlap is a user error", func(t *testing.T) {
		_, err := backend.Cut(ctx, handle, models.Stencil{
			Type:   models.StencilCircle,
			Center: &models.SkyPoint{RA: 10.0, Dec: -40.0},
			Radius: 0.5,
		})
		require.Error(t, err)
		ue, ok := AsUserError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrorCodeUsageError, ue.Code)
		assert.Contains(t, ue.Message, "no overlap")
	})
}

func TestMockResolver(t *testing.T) {
	ctx := context.Background()
	resolver := NewMockResolver()
	resolver.Register("hsc/visit/903332/12", Bounds{RAMin: 148.0, RAMax: 150.0, DecMin: 68.0, DecMax: 70.0})

	handle, err := resolver.Resolve(ctx, "hsc/visit/903332/12")
	require.NoError(t, err)
	assert.Equal(t, "hsc/visit/903332/12", handle.Ref)

	_, err = resolver.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}
