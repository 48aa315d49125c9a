package dstack

import(
	"fmt"
	"image"
	"os"

	"gopkg.in/yaml.v2"
)

/* Example config file ...

parameters:
  extinction: 0.05
  iterations: 4
  window: 2
  flatorder: 2
  workers: 8
  detectsigma: 3.0
  detectgrow: 1
  outputfilename: result.hdr
  dumpdir: ""

frames:
  f00.tif: {offset: [0, 0], airmass: 1.12}
  f01.tif: {offset: [2, 2], airmass: 1.14}
  f02.tif: {offset: [4, 0], airmass: 1.17}

*/

type Parameters struct {
	Extinction     float64 // mean atmospheric extinction coefficient
	Iterations     int     // refinement cycles; no convergence check, just a count
	Window         int     // sky neighbors on each side
	FlatOrder      int     `yaml:"flatorder"`
	Workers        int     // bounded pool size for per-frame phases
	DetectSigma    float64 `yaml:"detectsigma"`
	DetectGrow     int     `yaml:"detectgrow"`
	OutputFilename string  `yaml:"outputfilename"`
	DumpDir        string  `yaml:"dumpdir"` // when set, every artifact is also rendered to PNG here
}

type FrameEntry struct {
	Offset  [2]int
	Airmass float64
}

type Config struct {
	Parameters Parameters
	Frames     map[string]FrameEntry
}

func NewConfig() Config {
	return Config{
		Parameters: Parameters{
			Extinction:     0.0,
			Iterations:     4,
			Window:         2,
			FlatOrder:      2,
			Workers:        8,
			DetectSigma:    3.0,
			DetectGrow:     1,
			OutputFilename: "result.hdr",
		},
		Frames: map[string]FrameEntry{},
	}
}

func LoadConfig(filename string) (Config, error) {
	c := NewConfig()

	contents, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, c.Finalize()
}

// Finalize does sanity checks and other post-processing.
func (c *Config)Finalize() error {
	p := &c.Parameters
	if p.Iterations < 1 {
		return configErrorf("iterations %d must be >= 1", p.Iterations)
	}
	if p.Window < 1 {
		return configErrorf("window %d must be >= 1", p.Window)
	}
	if p.FlatOrder < 0 {
		return configErrorf("flatorder %d must be >= 0", p.FlatOrder)
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		logger.Fatal().Msgf("Can't marshal config yaml: %v", err)
	}
	return string(b)
}

// Offsets in the frame table are [x, y] pairs.
func (e FrameEntry)OffsetPoint() image.Point {
	return image.Point{e.Offset[0], e.Offset[1]}
}
