package dstack

import(
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// A FrameDescriptor is the raw per-exposure input: one detector array,
// its validity mask (true = bad pixel), the nominal integer dither
// offset, and the airmass it was observed at.
type FrameDescriptor struct {
	Label   string
	Data    *dmath.Grid
	Mask    *dmath.Mask // optional; nil means every pixel is valid
	Offset  image.Point
	Airmass float64
}

// A Frame is one ingested exposure plus the derived state the
// iteration loop mutates. The static fields never change after
// ingestion; everything below the neighbor sets is owned by the
// controller and rewritten each iteration.
type Frame struct {
	Label   string
	Shape   image.Point
	Airmass float64
	Offset  image.Point
	Data    *dmath.Grid
	Mask    *dmath.Mask

	// Sky neighbors: the frames observed just before and just after
	// this one, used by the neighborhood sky policy.
	Back []*Frame
	Fwd  []*Frame

	// Derived per-iteration state.
	Region       image.Rectangle // this frame's slice of the canvas
	MedianScale  float64         // robust location of the unmasked region pixels
	ObjMask      *dmath.Mask     // aligned to Region; nil before the first detection pass
	LastArtifact string          // name of the newest corrected-data artifact
}

func (f *Frame)String() string {
	return fmt.Sprintf("Frame[%s, off=%v, airmass=%.2f]", f.Label, f.Offset, f.Airmass)
}

// A Registry owns the frames. Ingestion sorts them by label so runs
// are deterministic regardless of the order descriptors arrive in.
type Registry struct {
	frames  []*Frame
	byLabel map[string]*Frame
}

func NewRegistry() *Registry {
	return &Registry{byLabel: map[string]*Frame{}}
}

func (r *Registry)Frames() []*Frame { return r.frames }

func (r *Registry)Ingest(descs []FrameDescriptor) ([]*Frame, error) {
	if len(descs) == 0 {
		return nil, configErrorf("no frames supplied")
	}

	var shape image.Point
	for _, d := range descs {
		if d.Data == nil {
			return nil, configErrorf("frame %s has no data array", d.Label)
		}
		if _, dup := r.byLabel[d.Label]; dup {
			return nil, configErrorf("duplicate frame label %q", d.Label)
		}
		if math.IsNaN(d.Airmass) || d.Airmass < 0 {
			return nil, configErrorf("frame %s has no usable airmass (%v)", d.Label, d.Airmass)
		}

		ds := image.Point{d.Data.Dx(), d.Data.Dy()}
		if shape == (image.Point{}) {
			shape = ds
		} else if ds != shape {
			return nil, configErrorf("frame %s shape %v differs from %v", d.Label, ds, shape)
		}

		mask := d.Mask
		if mask == nil {
			mask = dmath.NewMask(ds.X, ds.Y)
		} else if mask.Dx() != ds.X || mask.Dy() != ds.Y {
			return nil, configErrorf("frame %s mask shape differs from data shape", d.Label)
		}

		f := &Frame{
			Label:   d.Label,
			Shape:   ds,
			Airmass: d.Airmass,
			Offset:  d.Offset,
			Data:    d.Data,
			Mask:    mask,
		}
		r.frames = append(r.frames, f)
		r.byLabel[d.Label] = f
	}

	sort.Slice(r.frames, func(i, j int) bool { return r.frames[i].Label < r.frames[j].Label })

	logger.Info().Msgf("Ingested %d frames, shape %v", len(r.frames), shape)
	return r.frames, nil
}

// LinkNeighbors populates each frame's backward and forward sky
// neighbor sets with up to `window` frames on each side. The window
// shrinks at the ends of the sequence; a frame is never dropped from
// the pipeline for lack of neighbors.
func (r *Registry)LinkNeighbors(window int) error {
	if window < 1 {
		return configErrorf("neighborhood window %d must be >= 1", window)
	}
	if len(r.frames) < 2*window+1 {
		return configErrorf("need at least %d frames for window %d, have %d",
			2*window+1, window, len(r.frames))
	}

	for i, f := range r.frames {
		lo := i - window
		if lo < 0 { lo = 0 }
		hi := i + 1 + window
		if hi > len(r.frames) { hi = len(r.frames) }

		f.Back = append([]*Frame{}, r.frames[lo:i]...)
		f.Fwd = append([]*Frame{}, r.frames[i+1:hi]...)
	}
	return nil
}
