package dstack

import(
	"image"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// SkyPolicy selects how the time-varying sky background is estimated.
// The controller picks the policy by iteration: Simple on the first
// pass (no object mask exists yet), Neighborhood from then on.
type SkyPolicy int

const (
	SkySimple SkyPolicy = iota
	SkyNeighborhood
)

func (p SkyPolicy)String() string {
	switch p {
	case SkySimple:       return "simple"
	case SkyNeighborhood: return "neighborhood"
	default:              return "unknown"
	}
}

// ComputeSimpleSky estimates one scalar sky level per frame - the
// median of the frame's own unmasked, non-source region pixels - and
// subtracts it uniformly. If the object mask swallows the entire
// region, it falls back to the median over all valid pixels instead.
// Returns the subtracted sky level.
func ComputeSimpleSky(f *Frame, store ArtifactStore, iteration int) (float64, error) {
	if f.Region.Empty() {
		return 0, configErrorf("frame %s has a degenerate region %v", f.Label, f.Region)
	}

	data, err := store.GetGrid(f.LastArtifact)
	if err != nil {
		return 0, err
	}
	mask, err := store.GetMask(nameRegisteredMask(f.Label, iteration))
	if err != nil {
		return 0, err
	}

	vals := make([]float64, 0, f.Region.Dx()*f.Region.Dy())
	fallback := make([]float64, 0, f.Region.Dx()*f.Region.Dy())
	for y := 0; y < f.Region.Dy(); y++ {
		for x := 0; x < f.Region.Dx(); x++ {
			cx, cy := f.Region.Min.X+x, f.Region.Min.Y+y
			if mask.Get(cx, cy) {
				continue
			}
			fallback = append(fallback, data.Get(cx, cy))
			if f.ObjMask != nil && f.ObjMask.Get(x, y) {
				continue
			}
			vals = append(vals, data.Get(cx, cy))
		}
	}
	if len(vals) == 0 {
		vals = fallback
	}
	if len(vals) == 0 {
		return 0, configErrorf("frame %s region is fully masked", f.Label)
	}

	sky := dmath.Median(vals)
	logger.Debug().Msgf("Iter %d, SC: median sky value of %s is %f", iteration, f.Label, sky)

	out := data.Copy()
	for y := f.Region.Min.Y; y < f.Region.Max.Y; y++ {
		for x := f.Region.Min.X; x < f.Region.Max.X; x++ {
			out.Set(x, y, data.Get(x, y)-sky)
		}
	}

	name := nameSkySubtracted(f.Label, iteration)
	if err := store.PutGrid(name, out); err != nil {
		return 0, err
	}
	f.LastArtifact = name
	logger.Info().Msgf("Iter %d, SC: subtracting sky %f from frame %s", iteration, sky, f.Label)
	return sky, nil
}

// ComputeNeighborhoodSky builds a 2D sky map for the frame from its
// backward+forward sky neighbors: per canvas pixel, the median of the
// unmasked neighbor values. Pixels where no neighbor contributes take
// the mean of the pixels that did - a deliberate approximation kept
// from the source recipe, not an interpolation - and are flagged in a
// diagnostic mask stored alongside the sky map.
func ComputeNeighborhoodSky(f *Frame, store ArtifactStore, iteration int) error {
	if f.Region.Empty() {
		return configErrorf("frame %s has a degenerate region %v", f.Label, f.Region)
	}
	neighbors := append(append([]*Frame{}, f.Back...), f.Fwd...)
	if len(neighbors) == 0 {
		return configErrorf("frame %s has no sky neighbors", f.Label)
	}

	type layer struct {
		nf   *Frame
		data *dmath.Grid
		mask *dmath.Mask
	}
	layers := make([]layer, 0, len(neighbors))
	for _, nf := range neighbors {
		// Neighbors are read at their flat-corrected stage; the sky
		// phase runs behind a barrier, so every neighbor has one.
		data, err := store.GetGrid(nameFlatCorrected(nf.Label, iteration))
		if err != nil {
			return err
		}
		mask, err := store.GetMask(nameRegisteredMask(nf.Label, iteration))
		if err != nil {
			return err
		}
		layers = append(layers, layer{nf, data, mask})
	}

	w, h := f.Region.Dx(), f.Region.Dy()
	skymap := dmath.NewGrid(w, h)
	undef := dmath.NewMask(w, h)
	defSum, defN := 0.0, 0

	vals := make([]float64, 0, len(layers))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cx, cy := f.Region.Min.X+x, f.Region.Min.Y+y
			vals = vals[:0]
			for _, l := range layers {
				if !image.Pt(cx, cy).In(l.nf.Region) {
					continue
				}
				if l.mask.Get(cx, cy) {
					continue
				}
				if l.nf.ObjMask != nil && l.nf.ObjMask.Get(cx-l.nf.Region.Min.X, cy-l.nf.Region.Min.Y) {
					continue
				}
				vals = append(vals, l.data.Get(cx, cy))
			}
			if len(vals) == 0 {
				undef.Set(x, y, true)
				continue
			}
			m := dmath.Median(vals)
			skymap.Set(x, y, m)
			defSum += m
			defN++
		}
	}

	// The fallback for zero-contributor pixels: the mean of the sky
	// pixels that did have contributors.
	if undef.Count() > 0 {
		if defN == 0 {
			return configErrorf("frame %s sky map has no contributors anywhere", f.Label)
		}
		mean := defSum / float64(defN)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if undef.Get(x, y) {
					skymap.Set(x, y, mean)
				}
			}
		}
		logger.Warn().Msgf("Iter %d, SC: %d sky pixels of %s undefined, filled with mean %f",
			iteration, undef.Count(), f.Label, mean)
	}

	if err := store.PutGrid(nameSkyMap(f.Label, iteration), skymap); err != nil {
		return err
	}
	if err := store.PutMask(nameSkyUndef(f.Label, iteration), undef); err != nil {
		return err
	}

	data, err := store.GetGrid(f.LastArtifact)
	if err != nil {
		return err
	}
	out := data.Copy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cx, cy := f.Region.Min.X+x, f.Region.Min.Y+y
			out.Set(cx, cy, data.Get(cx, cy)-skymap.Get(x, y))
		}
	}

	name := nameSkySubtracted(f.Label, iteration)
	if err := store.PutGrid(name, out); err != nil {
		return err
	}
	f.LastArtifact = name
	logger.Info().Msgf("Iter %d, SC: subtracting neighborhood sky map from frame %s (%d neighbors)",
		iteration, f.Label, len(neighbors))
	return nil
}
