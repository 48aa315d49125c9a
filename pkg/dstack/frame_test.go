package dstack

import(
	"fmt"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenFrames(t *testing.T) *Registry {
	t.Helper()
	descs := make([]FrameDescriptor, 0, 10)
	// Deliberately out of order; ingest must sort by label.
	for _, i := range []int{3, 0, 7, 1, 9, 5, 2, 8, 4, 6} {
		descs = append(descs, constDesc(fmt.Sprintf("f%02d", i), 4, 4, 100, image.Point{i, 0}, 1.0))
	}
	reg := NewRegistry()
	_, err := reg.Ingest(descs)
	require.NoError(t, err)
	return reg
}

func TestIngestSortsByLabel(t *testing.T) {
	reg := tenFrames(t)
	frames := reg.Frames()
	require.Len(t, frames, 10)
	for i, f := range frames {
		assert.Equal(t, fmt.Sprintf("f%02d", i), f.Label)
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	var cerr *ConfigError

	_, err := NewRegistry().Ingest(nil)
	require.ErrorAs(t, err, &cerr)

	_, err = NewRegistry().Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 1, image.Point{}, 1.0),
		constDesc("a", 4, 4, 1, image.Point{}, 1.0),
	})
	require.ErrorAs(t, err, &cerr, "duplicate labels")

	_, err = NewRegistry().Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 1, image.Point{}, -1),
	})
	require.ErrorAs(t, err, &cerr, "negative airmass")

	_, err = NewRegistry().Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 1, image.Point{}, math.NaN()),
	})
	require.ErrorAs(t, err, &cerr, "NaN airmass")

	_, err = NewRegistry().Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 1, image.Point{}, 1.0),
		constDesc("b", 5, 4, 1, image.Point{}, 1.0),
	})
	require.ErrorAs(t, err, &cerr, "mismatched shapes")
}

func TestLinkNeighborsWindow2(t *testing.T) {
	reg := tenFrames(t)
	require.NoError(t, reg.LinkNeighbors(2))
	frames := reg.Frames()

	labels := func(fs []*Frame) []string {
		out := []string{}
		for _, f := range fs {
			out = append(out, f.Label)
		}
		return out
	}

	assert.Empty(t, frames[0].Back)
	assert.Equal(t, []string{"f01", "f02"}, labels(frames[0].Fwd))

	assert.Equal(t, []string{"f03", "f04"}, labels(frames[5].Back))
	assert.Equal(t, []string{"f06", "f07"}, labels(frames[5].Fwd))

	assert.Equal(t, []string{"f07", "f08"}, labels(frames[9].Back))
	assert.Empty(t, frames[9].Fwd)
}

func TestLinkNeighborsTooFewFrames(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Ingest([]FrameDescriptor{
		constDesc("a", 4, 4, 1, image.Point{}, 1.0),
		constDesc("b", 4, 4, 1, image.Point{}, 1.0),
		constDesc("c", 4, 4, 1, image.Point{}, 1.0),
		constDesc("d", 4, 4, 1, image.Point{}, 1.0),
	})
	require.NoError(t, err)

	var cerr *ConfigError
	require.ErrorAs(t, reg.LinkNeighbors(2), &cerr, "window 2 needs 5 frames")
	require.NoError(t, reg.LinkNeighbors(1))
}
