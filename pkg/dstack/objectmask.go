package dstack

import(
	"github.com/abarden/ditherstack/pkg/dmath"
)

// ObjectMaskPort is the interface to the external source-detection
// collaborator. The pipeline hands over the current combined image and
// gets back a boolean mask of the same shape marking pixels believed
// to contain real sources; it never looks inside the detection.
type ObjectMaskPort interface {
	Detect(combined *dmath.Grid, hint string) (*dmath.Mask, error)
}

// ThresholdDetector is the bundled stand-in detector, so the pipeline
// runs end to end without an external tool: pixels brighter than
// median + Sigma * robust-sigma are sources, grown by Grow pixels to
// cover their wings. Real deployments plug a proper detector into the
// port instead.
type ThresholdDetector struct {
	Sigma float64 // clip multiplier over the robust background sigma
	Grow  int     // dilation radius for the detected mask
}

func NewThresholdDetector() ThresholdDetector {
	return ThresholdDetector{Sigma: 3.0, Grow: 1}
}

func (d ThresholdDetector)Detect(combined *dmath.Grid, hint string) (*dmath.Mask, error) {
	w, h := combined.Dx(), combined.Dy()

	vals := make([]float64, 0, w*h)
	max := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := combined.Get(x, y)
			vals = append(vals, v)
			if v > max { max = v }
		}
	}

	med := dmath.Median(vals)
	sigma := 1.4826 * dmath.MAD(vals, med) // vals already sorted; MAD reuses them

	// On a noiseless background the MAD collapses to ~0 and the
	// threshold would flag float fuzz; keep it a sliver of the peak
	// amplitude at minimum.
	if floor := 1e-3 * (max - med); sigma < floor {
		sigma = floor
	}
	thresh := med + d.Sigma*sigma

	mask := dmath.NewMask(w, h)
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if combined.Get(x, y) > thresh {
				mask.Set(x, y, true)
				n++
			}
		}
	}
	mask = mask.Grow(d.Grow)

	logger.Info().Msgf("OM: %s detected %d source pixels (%d grown), thresh %f",
		hint, n, mask.Count(), thresh)
	return mask, nil
}
