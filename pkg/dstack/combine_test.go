package dstack

import(
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineMedianRejectsOutlier(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 10, image.Point{}, 0),
		constDesc("b", 4, 4, 10, image.Point{}, 0),
		constDesc("c", 4, 4, 1000, image.Point{}, 0), // the cosmic-ray frame
	})
	require.NoError(t, err)

	store := NewMemStore()
	registerAll(t, reg, store, 1)

	res, err := Combine(reg.Frames(), store, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Data.Get(2, 2), "median, not mean")
	assert.Equal(t, 3.0, res.Coverage.Get(2, 2))
}

func TestCombineCoverageAndVarianceSentinel(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 10, image.Point{0, 0}, 0),
		constDesc("b", 4, 4, 20, image.Point{2, 2}, 0),
	})
	require.NoError(t, err)

	store := NewMemStore()
	canvas := registerAll(t, reg, store, 1)
	require.Equal(t, image.Point{6, 6}, canvas)

	res, err := Combine(reg.Frames(), store, 0, 1)
	require.NoError(t, err)

	nFrames := float64(len(reg.Frames()))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			cov := res.Coverage.Get(x, y)
			assert.GreaterOrEqual(t, cov, 0.0)
			assert.LessOrEqual(t, cov, nFrames)
			if cov == 0 {
				// The documented sentinel, never NaN.
				assert.Equal(t, 0.0, res.Variance.Get(x, y))
				assert.Equal(t, 0.0, res.Data.Get(x, y))
				assert.False(t, math.IsNaN(res.Variance.Get(x, y)))
			}
		}
	}

	// (5,0) is in neither region; (3,3) is in both.
	assert.Equal(t, 0.0, res.Coverage.Get(5, 0))
	assert.Equal(t, 2.0, res.Coverage.Get(3, 3))
	assert.Equal(t, 15.0, res.Data.Get(3, 3))
	assert.InDelta(t, 50.0, res.Variance.Get(3, 3), 1e-12, "sample variance of {10,20}")

	// Single-contributor pixels have zero sample variance.
	assert.Equal(t, 1.0, res.Coverage.Get(0, 0))
	assert.Equal(t, 0.0, res.Variance.Get(0, 0))
}

func TestCombineExtinctionScaling(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 100, image.Point{}, 1.0),
	})
	require.NoError(t, err)

	store := NewMemStore()
	registerAll(t, reg, store, 1)

	res, err := Combine(reg.Frames(), store, 0.5, 1)
	require.NoError(t, err)
	want := 100 * math.Pow(10, 0.4*1.0*0.5)
	assert.InDelta(t, want, res.Data.Get(1, 1), 1e-9)
}

func TestCombineMissingArtifact(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Ingest([]FrameDescriptor{constDesc("a", 4, 4, 1, image.Point{}, 0)})
	require.NoError(t, err)

	store := NewMemStore()
	registerAll(t, reg, store, 1)
	reg.Frames()[0].LastArtifact = "nonexistent"

	_, err = Combine(reg.Frames(), store, 0, 1)
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
}
