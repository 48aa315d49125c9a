package dstack

import(
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineShape(t *testing.T) {
	shape := image.Point{20, 20}
	offsets := []image.Point{{0, 0}, {2, 2}, {4, 0}, {0, 4}, {2, 0}}

	canvas, normalized, err := CombineShape(shape, offsets)
	require.NoError(t, err)
	assert.Equal(t, image.Point{24, 24}, canvas)
	assert.Equal(t, offsets, normalized) // already non-negative with a zero minimum
}

func TestCombineShapeNormalizesNegativeOffsets(t *testing.T) {
	shape := image.Point{10, 8}
	offsets := []image.Point{{-2, -1}, {0, 0}, {3, -1}}

	canvas, normalized, err := CombineShape(shape, offsets)
	require.NoError(t, err)
	assert.Equal(t, image.Point{15, 9}, canvas)
	assert.Equal(t, []image.Point{{0, 0}, {2, 1}, {5, 0}}, normalized)
}

func TestCombineShapeDegenerate(t *testing.T) {
	_, _, err := CombineShape(image.Point{0, 4}, []image.Point{{0, 0}})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)

	_, _, err = CombineShape(image.Point{4, 4}, nil)
	require.ErrorAs(t, err, &cerr)
}

func TestRegistrationIdempotent(t *testing.T) {
	shape := image.Point{32, 32}
	offsets := []image.Point{{0, 0}, {-3, 5}, {7, -2}}

	run := func() (image.Point, []image.Rectangle) {
		canvas, normalized, err := CombineShape(shape, offsets)
		require.NoError(t, err)
		regions := make([]image.Rectangle, len(normalized))
		for i, off := range normalized {
			regions[i], err = RegionFor(canvas, off, shape)
			require.NoError(t, err)
		}
		return canvas, regions
	}

	canvas1, regions1 := run()
	canvas2, regions2 := run()
	if diff := cmp.Diff(canvas1, canvas2); diff != "" {
		t.Fatalf("canvas shapes differ between identical runs:\n%s", diff)
	}
	if diff := cmp.Diff(regions1, regions2); diff != "" {
		t.Fatalf("regions differ between identical runs:\n%s", diff)
	}
}

func TestRegionCoverage(t *testing.T) {
	shape := image.Point{20, 20}
	offsets := []image.Point{{0, 0}, {2, 2}, {4, 0}}

	canvas, normalized, err := CombineShape(shape, offsets)
	require.NoError(t, err)

	for i, off := range normalized {
		region, err := RegionFor(canvas, off, shape)
		require.NoError(t, err)

		// The region has exactly the native extent, placed at the
		// normalized offset, and never escapes the canvas.
		assert.Equal(t, shape.X, region.Dx(), "frame %d", i)
		assert.Equal(t, shape.Y, region.Dy(), "frame %d", i)
		assert.Equal(t, off, region.Min, "frame %d", i)
		assert.True(t, region.In(image.Rectangle{Max: canvas}), "frame %d", i)
	}
}

func TestRegionForOutsideCanvas(t *testing.T) {
	_, err := RegionFor(image.Point{10, 10}, image.Point{5, 0}, image.Point{10, 10})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestResizeFrame(t *testing.T) {
	reg := NewRegistry()
	desc := constDesc("a", 4, 4, 7.0, image.Point{2, 1}, 1.0) // nil mask: every pixel valid
	frames, err := reg.Ingest([]FrameDescriptor{desc})
	require.NoError(t, err)

	f := frames[0]
	f.Region = image.Rect(2, 1, 6, 5)
	data, mask := ResizeFrame(f, image.Point{8, 6})

	assert.Equal(t, 7.0, data.Get(2, 1))
	assert.Equal(t, 7.0, data.Get(5, 4))
	assert.Equal(t, 0.0, data.Get(0, 0))
	assert.False(t, mask.Get(3, 2), "inside the region is valid")
	assert.True(t, mask.Get(0, 0), "outside the region is masked")
	assert.True(t, mask.Get(7, 5), "outside the region is masked")
}
