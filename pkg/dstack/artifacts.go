package dstack

import(
	"fmt"
	"path/filepath"
	"sync"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// The ArtifactStore hands named arrays between pipeline phases: the
// registered frames, the flat- and sky-corrected versions, the masks
// and diagnostics. A phase never reads another phase's output except
// through a named artifact, so the whole iteration is replayable from
// the store contents.
type ArtifactStore interface {
	PutGrid(name string, g *dmath.Grid) error
	GetGrid(name string) (*dmath.Grid, error)
	PutMask(name string, m *dmath.Mask) error
	GetMask(name string) (*dmath.Mask, error)
}

// Artifact names follow the source-recipe convention: label, a short
// tag for the processing stage, and the iteration index.
func nameRegistered(label string, it int) string     { return fmt.Sprintf("%s_r_i%d", label, it) }
func nameRegisteredMask(label string, it int) string { return fmt.Sprintf("%s_mr_i%d", label, it) }
func nameObjectMask(label string, it int) string     { return fmt.Sprintf("%s_mro_i%d", label, it) }
func nameFlatCorrected(label string, it int) string  { return fmt.Sprintf("%s_rf_i%d", label, it) }
func nameSkySubtracted(label string, it int) string  { return fmt.Sprintf("%s_rfs_i%d", label, it) }
func nameSuperflat(kind string, it int) string       { return fmt.Sprintf("superflat_%s_i%d", kind, it) }
func nameSkyMap(label string, it int) string         { return fmt.Sprintf("skymap_%s_i%d", label, it) }
func nameSkyUndef(label string, it int) string       { return fmt.Sprintf("skyundef_%s_i%d", label, it) }
func nameResult(it int) string                       { return fmt.Sprintf("result_i%d", it) }

// MemStore keeps artifacts in memory. It is the store the pipeline and
// the tests use; a filesystem store is just another implementation of
// the same interface, not the state model.
type MemStore struct {
	mu    sync.Mutex
	grids map[string]*dmath.Grid
	masks map[string]*dmath.Mask
}

func NewMemStore() *MemStore {
	return &MemStore{
		grids: map[string]*dmath.Grid{},
		masks: map[string]*dmath.Mask{},
	}
}

func (s *MemStore)PutGrid(name string, g *dmath.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[name] = g
	return nil
}

func (s *MemStore)GetGrid(name string) (*dmath.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grids[name]
	if !ok {
		return nil, &ResourceError{Name: name, Err: fmt.Errorf("no such grid artifact")}
	}
	return g, nil
}

func (s *MemStore)PutMask(name string, m *dmath.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masks[name] = m
	return nil
}

func (s *MemStore)GetMask(name string) (*dmath.Mask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.masks[name]
	if !ok {
		return nil, &ResourceError{Name: name, Err: fmt.Errorf("no such mask artifact")}
	}
	return m, nil
}

// DumpStore wraps another store and additionally renders every grid
// artifact to a PNG in Dir, for eyeballing a misbehaving run.
type DumpStore struct {
	ArtifactStore
	Dir string
}

func (s *DumpStore)PutGrid(name string, g *dmath.Grid) error {
	if err := s.ArtifactStore.PutGrid(name, g); err != nil {
		return err
	}
	fn := filepath.Join(s.Dir, name+".png")
	if err := dmath.RenderPNG(g, name, fn); err != nil {
		logger.Warn().Msgf("could not dump %s: %v", fn, err)
	}
	return nil
}

func (s *DumpStore)PutMask(name string, m *dmath.Mask) error {
	if err := s.ArtifactStore.PutMask(name, m); err != nil {
		return err
	}
	g := dmath.NewGrid(m.Dx(), m.Dy())
	for y := 0; y < m.Dy(); y++ {
		for x := 0; x < m.Dx(); x++ {
			if m.Get(x, y) {
				g.Set(x, y, 1)
			}
		}
	}
	fn := filepath.Join(s.Dir, name+".png")
	if err := dmath.RenderPNG(g, name, fn); err != nil {
		logger.Warn().Msgf("could not dump %s: %v", fn, err)
	}
	return nil
}
