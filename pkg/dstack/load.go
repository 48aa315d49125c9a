package dstack

import(
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// LoadFrames reads every frame named in the config's frame table from
// `dir`, as 16-bit grayscale TIFFs, and builds descriptors with the
// table's offset and airmass. Files that cannot be opened are resource
// errors and fail the run outright.
func LoadFrames(cfg Config, dir string) ([]FrameDescriptor, error) {
	descs := make([]FrameDescriptor, 0, len(cfg.Frames))

	for name, entry := range cfg.Frames {
		data, err := LoadTIFF(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		label := strings.TrimSuffix(name, filepath.Ext(name))
		descs = append(descs, FrameDescriptor{
			Label:   label,
			Data:    data,
			Offset:  entry.OffsetPoint(),
			Airmass: entry.Airmass,
		})
		logger.Debug().Msgf("Loaded frame %s (%dx%d)", label, data.Dx(), data.Dy())
	}

	return descs, nil
}

// LoadTIFF decodes a single-plane detector array. Color inputs are
// collapsed to luminance; science frames are expected to be grayscale
// anyway.
func LoadTIFF(filename string) (*dmath.Grid, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, &ResourceError{Name: filename, Err: err}
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return nil, &ResourceError{Name: filename, Err: fmt.Errorf("tiff loading: %v", err)}
	}

	b := img.Bounds()
	g := dmath.NewGrid(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gg, bb, _ := img.At(x, y).RGBA() // channel values in range [0, 0xFFFF]
			gray := float64(r)*0.2989 + float64(gg)*0.5870 + float64(bb)*0.1140
			g.Set(x-b.Min.X, y-b.Min.Y, gray)
		}
	}
	return g, nil
}
