package dstack

import(
	"image"
	"math"

	"github.com/skypies/util/histogram"
	"gonum.org/v1/gonum/stat"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// Combine stacks the corrected frames into the final data, variance
// and coverage planes. Each frame is scaled by its atmospheric
// extinction factor 10^(0.4 * airmass * extinction), masked by its
// registered validity mask, and the per-pixel statistic is the median
// - dithered stacks routinely carry cosmic rays and detector artifacts
// that a mean would not reject.
//
// coverage[p] counts the contributing frames at p; variance[p] is the
// sample variance of the contributing scaled values, and is the
// sentinel 0 (never NaN) where coverage is 0.
func Combine(frames []*Frame, store ArtifactStore, extinction float64, iteration int) (*Result, error) {
	if len(frames) == 0 {
		return nil, configErrorf("no frames to combine")
	}

	// Frames are fetched one at a time through the store, so a
	// filesystem-backed store only ever has one frame's artifact open
	// while building the layer list.
	type layer struct {
		f     *Frame
		scale float64
		data  *dmath.Grid
		mask  *dmath.Mask
	}
	layers := make([]layer, 0, len(frames))
	var canvas image.Point
	for _, f := range frames {
		data, err := store.GetGrid(f.LastArtifact)
		if err != nil {
			return nil, err
		}
		mask, err := store.GetMask(nameRegisteredMask(f.Label, iteration))
		if err != nil {
			return nil, err
		}
		canvas = image.Point{data.Dx(), data.Dy()}
		scale := math.Pow(10, 0.4*f.Airmass*extinction)
		layers = append(layers, layer{f, scale, data, mask})
	}

	res := &Result{
		Data:      dmath.NewGrid(canvas.X, canvas.Y),
		Variance:  dmath.NewGrid(canvas.X, canvas.Y),
		Coverage:  dmath.NewGrid(canvas.X, canvas.Y),
		Iteration: iteration,
	}

	hist := histogram.Histogram{NumBuckets: 256, ValMin: 0, ValMax: 256}

	vals := make([]float64, 0, len(layers))
	scratch := make([]float64, 0, len(layers))
	for y := 0; y < canvas.Y; y++ {
		for x := 0; x < canvas.X; x++ {
			vals = vals[:0]
			for _, l := range layers {
				if !image.Pt(x, y).In(l.f.Region) {
					continue
				}
				if l.mask.Get(x, y) {
					continue
				}
				v := l.data.Get(x, y) * l.scale
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				vals = append(vals, v)
			}

			res.Coverage.Set(x, y, float64(len(vals)))
			if len(vals) == 0 {
				continue // data and variance stay at the 0 sentinel
			}

			scratch = append(scratch[:0], vals...)
			med := dmath.Median(scratch)
			res.Data.Set(x, y, med)
			if len(vals) >= 2 {
				res.Variance.Set(x, y, stat.Variance(vals, nil))
			}

			if lg := math.Log2(math.Abs(med) + 1); lg > 0.2 {
				hist.Add(histogram.ScalarVal(int(lg * 25.6)))
			}
		}
	}

	if err := store.PutGrid(nameResult(iteration), res.Data); err != nil {
		return nil, err
	}
	logger.Info().Msgf("Iter %d, combined %d frames: %s", iteration, len(frames), res.Data.Stats())
	logger.Debug().Msgf("Iter %d, combined log2-value histogram: %v", iteration, hist)
	return res, nil
}
