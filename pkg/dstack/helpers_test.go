package dstack

import(
	"image"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/abarden/ditherstack/pkg/dmath"
)

func TestMain(m *testing.M) {
	SetLogger(Logger().Level(zerolog.WarnLevel))
	os.Exit(m.Run())
}

func constGrid(w, h int, v float64) *dmath.Grid {
	g := dmath.NewGrid(w, h)
	g.Fill(v)
	return g
}

func constDesc(label string, w, h int, v float64, off image.Point, airmass float64) FrameDescriptor {
	return FrameDescriptor{
		Label:   label,
		Data:    constGrid(w, h, v),
		Offset:  off,
		Airmass: airmass,
	}
}

// registerAll mimics the controller's registration phase, for tests
// that exercise a single later phase in isolation.
func registerAll(t *testing.T, reg *Registry, store ArtifactStore, it int) image.Point {
	t.Helper()
	frames := reg.Frames()

	offsets := make([]image.Point, len(frames))
	for i, f := range frames {
		offsets[i] = f.Offset
	}
	canvas, normalized, err := CombineShape(frames[0].Shape, offsets)
	require.NoError(t, err)

	for i, f := range frames {
		region, err := RegionFor(canvas, normalized[i], f.Shape)
		require.NoError(t, err)
		f.Region = region

		data, mask := ResizeFrame(f, canvas)
		require.NoError(t, store.PutGrid(nameRegistered(f.Label, it), data))
		require.NoError(t, store.PutMask(nameRegisteredMask(f.Label, it), mask))
		f.LastArtifact = nameRegistered(f.Label, it)
	}
	return canvas
}
