package dstack

import(
	"github.com/abarden/ditherstack/pkg/dmath"
)

// The superflat is a flat-field correction derived from the science
// frames themselves: a robust combination of the registered (not yet
// sky-subtracted) frames, each normalized by its median scale, smoothed
// by a low-order polynomial surface. Frames are corrected against the
// fitted surface, not the raw combination - dividing by the raw flat
// would amplify its per-pixel noise into every frame.

// ComputeMedianScale sets the frame's median scale from the unmasked
// pixels of its registered region. Source pixels flagged in the object
// mask are excluded too, once a mask exists.
func ComputeMedianScale(f *Frame, store ArtifactStore, iteration int) error {
	data, err := store.GetGrid(nameRegistered(f.Label, iteration))
	if err != nil {
		return err
	}
	mask, err := store.GetMask(nameRegisteredMask(f.Label, iteration))
	if err != nil {
		return err
	}

	vals := make([]float64, 0, f.Region.Dx()*f.Region.Dy())
	for y := 0; y < f.Region.Dy(); y++ {
		for x := 0; x < f.Region.Dx(); x++ {
			cx, cy := f.Region.Min.X+x, f.Region.Min.Y+y
			if mask.Get(cx, cy) {
				continue
			}
			if f.ObjMask != nil && f.ObjMask.Get(x, y) {
				continue
			}
			vals = append(vals, data.Get(cx, cy))
		}
	}
	if len(vals) == 0 {
		return configErrorf("frame %s has no unmasked pixels to scale by", f.Label)
	}

	f.MedianScale = dmath.Median(vals)
	logger.Debug().Msgf("Iter %d, SF: median scale of %s is %f", iteration, f.Label, f.MedianScale)
	return nil
}

// ComputeSuperflat combines every frame's region data, pre-divided by
// its median scale, into a single flat image by a per-pixel masked
// median, then fits the polynomial surface. Where every contributing
// frame is masked, the flat takes the blank value 1/scale(first frame)
// so the later division has no discontinuity. Both the raw combination
// and the fitted surface are persisted as iteration-tagged diagnostics;
// the fitted surface is returned.
func ComputeSuperflat(frames []*Frame, store ArtifactStore, order, iteration int) (*dmath.Grid, error) {
	if len(frames) == 0 {
		return nil, configErrorf("no frames to combine into a superflat")
	}
	for _, f := range frames {
		if f.MedianScale == 0 {
			return nil, configErrorf("frame %s has zero median scale", f.Label)
		}
	}

	shape := frames[0].Shape
	flat := dmath.NewGrid(shape.X, shape.Y)
	blank := 1.0 / frames[0].MedianScale

	type layer struct {
		f    *Frame
		data *dmath.Grid
		mask *dmath.Mask
	}
	layers := make([]layer, 0, len(frames))
	for _, f := range frames {
		data, err := store.GetGrid(nameRegistered(f.Label, iteration))
		if err != nil {
			return nil, err
		}
		mask, err := store.GetMask(nameRegisteredMask(f.Label, iteration))
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer{f, data, mask})
	}

	vals := make([]float64, 0, len(frames))
	for y := 0; y < shape.Y; y++ {
		for x := 0; x < shape.X; x++ {
			vals = vals[:0]
			for _, l := range layers {
				cx, cy := l.f.Region.Min.X+x, l.f.Region.Min.Y+y
				if l.mask.Get(cx, cy) {
					continue
				}
				if l.f.ObjMask != nil && l.f.ObjMask.Get(x, y) {
					continue
				}
				vals = append(vals, l.data.Get(cx, cy)/l.f.MedianScale)
			}
			if len(vals) == 0 {
				flat.Set(x, y, blank)
			} else {
				flat.Set(x, y, dmath.Median(vals))
			}
		}
	}

	fitted, coefs, err := dmath.FitSurface(flat, order)
	if err != nil {
		return nil, configErrorf("superflat fit: %v", err)
	}
	logger.Info().Msgf("Iter %d, SF: polynomial fit %v", iteration, coefs)

	if err := store.PutGrid(nameSuperflat("comb", iteration), flat); err != nil {
		return nil, err
	}
	if err := store.PutGrid(nameSuperflat("fit", iteration), fitted); err != nil {
		return nil, err
	}
	return fitted, nil
}

// CorrectSuperflat divides the frame's region by the fitted surface
// and stores the result as the frame's newest artifact. Pixels outside
// the region are copied through verbatim. A non-positive surface pixel
// is treated as unity - locally recovered, never propagated as Inf.
func CorrectSuperflat(f *Frame, fitted *dmath.Grid, store ArtifactStore, iteration int) error {
	data, err := store.GetGrid(f.LastArtifact)
	if err != nil {
		return err
	}

	out := data.Copy()
	for y := 0; y < f.Region.Dy(); y++ {
		for x := 0; x < f.Region.Dx(); x++ {
			div := fitted.Get(x, y)
			if div <= 0 {
				div = 1.0
			}
			cx, cy := f.Region.Min.X+x, f.Region.Min.Y+y
			out.Set(cx, cy, data.Get(cx, cy)/div)
		}
	}

	name := nameFlatCorrected(f.Label, iteration)
	if err := store.PutGrid(name, out); err != nil {
		return err
	}
	f.LastArtifact = name
	logger.Info().Msgf("Iter %d, SF: apply superflat to frame %s", iteration, f.Label)
	return nil
}
