package dstack

import(
	"image"
	"sync"
)

// Phase names the stations of the per-iteration state machine:
//
//	INGESTED -> REGISTERED -> FLAT_CORRECTED -> SKY_SUBTRACTED -> COMBINED
//
// then loop, or done. Phases are strict barriers: every frame finishes
// a phase before any frame enters the next one, because the superflat
// and the combination are global reductions over the complete set.
type Phase string

const (
	PhaseIngested      Phase = "INGESTED"
	PhaseRegistered    Phase = "REGISTERED"
	PhaseFlatCorrected Phase = "FLAT_CORRECTED"
	PhaseSkySubtracted Phase = "SKY_SUBTRACTED"
	PhaseCombined      Phase = "COMBINED"
)

// The Controller drives the refinement loop: register, flat-correct,
// sky-subtract, combine, hand the combined image to the detector, and
// go round again with the new object mask. It runs exactly the
// configured number of iterations - termination is count-based, there
// is no convergence check - and returns the last iteration's planes.
type Controller struct {
	cfg      Config
	registry *Registry
	store    ArtifactStore
	detector ObjectMaskPort

	phase Phase
}

func NewController(cfg Config, reg *Registry, store ArtifactStore, det ObjectMaskPort) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: reg,
		store:    store,
		detector: det,
		phase:    PhaseIngested,
	}
}

func (c *Controller)Phase() Phase { return c.phase }

func (c *Controller)Run() (*Result, error) {
	frames := c.registry.Frames()
	if len(frames) == 0 {
		return nil, configErrorf("no frames ingested")
	}

	iterations := c.cfg.Parameters.Iterations
	var result *Result

	for it := 1; it <= iterations; it++ {
		policy := SkyNeighborhood
		if it == 1 {
			policy = SkySimple
		}
		logger.Info().Msgf("Iter %d of %d starting, sky policy %s", it, iterations, policy)

		res, err := c.runIteration(it, policy)
		if err != nil {
			return nil, err
		}
		result = res

		// The object mask derived from this combination feeds the
		// next iteration's flat and sky estimators.
		if it < iterations {
			if err := c.detectObjects(res, it); err != nil {
				return nil, err
			}
		}
	}

	logger.Info().Msgf("Pipeline done after %d iterations", iterations)
	return result, nil
}

func (c *Controller)runIteration(it int, policy SkyPolicy) (*Result, error) {
	frames := c.registry.Frames()

	// Registration. Offsets are nominal and stay fixed across
	// iterations; the canvas is still recomputed each cycle so a
	// future offset-refinement step has somewhere to land.
	offsets := make([]image.Point, len(frames))
	for i, f := range frames {
		offsets[i] = f.Offset
	}
	canvas, normalized, err := CombineShape(frames[0].Shape, offsets)
	if err != nil {
		return nil, err
	}
	logger.Info().Msgf("Iter %d, canvas shape is %v", it, canvas)

	for i, f := range frames {
		region, err := RegionFor(canvas, normalized[i], f.Shape)
		if err != nil {
			return nil, err
		}
		f.Region = region
	}

	err = c.eachFrame(PhaseRegistered, frames, func(f *Frame) error {
		data, mask := ResizeFrame(f, canvas)
		if err := c.store.PutGrid(nameRegistered(f.Label, it), data); err != nil {
			return err
		}
		if err := c.store.PutMask(nameRegisteredMask(f.Label, it), mask); err != nil {
			return err
		}
		f.LastArtifact = nameRegistered(f.Label, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.phase = PhaseRegistered

	// Superflat: scale factors, global combination, per-frame correction.
	logger.Info().Msgf("Iter %d, SF: computing scale factors", it)
	err = c.eachFrame(PhaseFlatCorrected, frames, func(f *Frame) error {
		return ComputeMedianScale(f, c.store, it)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Msgf("Iter %d, SF: combining the frames without offsets", it)
	fitted, err := ComputeSuperflat(frames, c.store, c.cfg.Parameters.FlatOrder, it)
	if err != nil {
		return nil, err
	}

	err = c.eachFrame(PhaseFlatCorrected, frames, func(f *Frame) error {
		return CorrectSuperflat(f, fitted, c.store, it)
	})
	if err != nil {
		return nil, err
	}
	c.phase = PhaseFlatCorrected

	// Sky correction.
	logger.Info().Msgf("Iter %d, sky correction (SC)", it)
	err = c.eachFrame(PhaseSkySubtracted, frames, func(f *Frame) error {
		switch policy {
		case SkySimple:
			_, err := ComputeSimpleSky(f, c.store, it)
			return err
		default:
			return ComputeNeighborhoodSky(f, c.store, it)
		}
	})
	if err != nil {
		return nil, err
	}
	c.phase = PhaseSkySubtracted

	// Combination.
	logger.Info().Msgf("Iter %d, combining the frames", it)
	res, err := Combine(frames, c.store, c.cfg.Parameters.Extinction, it)
	if err != nil {
		return nil, err
	}
	c.phase = PhaseCombined
	return res, nil
}

func (c *Controller)detectObjects(res *Result, it int) error {
	mask, err := c.detector.Detect(res.Data, nameObjectMask("comb", it))
	if err != nil {
		return &PhaseError{Frame: "comb", Phase: PhaseCombined, Err: err}
	}
	if err := c.store.PutMask(nameObjectMask("comb", it), mask); err != nil {
		return err
	}

	// Each frame sees the slice of the canvas mask under its own
	// region; it is reused as-is for the whole next iteration.
	for _, f := range c.registry.Frames() {
		f.ObjMask = mask.Sub(f.Region)
		if err := c.store.PutMask(nameObjectMask(f.Label, it), f.ObjMask); err != nil {
			return err
		}
	}
	return nil
}

// eachFrame runs fn for every frame on a bounded pool of workers.
// Workers never share state beyond each frame's own record, so there
// is no locking. Any failure fails the whole phase - the structured
// error names the frame and the phase it died in.
func (c *Controller)eachFrame(phase Phase, frames []*Frame, fn func(*Frame) error) error {
	nWorkers := c.cfg.Parameters.Workers
	if nWorkers > len(frames) {
		nWorkers = len(frames)
	}
	if nWorkers < 1 {
		// A Config built without Finalize can carry zero workers; a
		// phase must still run rather than silently process nothing.
		nWorkers = 1
	}

	var wg sync.WaitGroup
	jobsChan := make(chan *Frame, len(frames))
	resultsChan := make(chan error, len(frames))

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobsChan {
				if err := fn(f); err != nil {
					resultsChan <- &PhaseError{Frame: f.Label, Phase: phase, Err: err}
				} else {
					resultsChan <- nil
				}
			}
		}()
	}

	for _, f := range frames {
		jobsChan <- f
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	for err := range resultsChan {
		if err != nil {
			return err
		}
	}
	return nil
}
