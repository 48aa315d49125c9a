package dstack

import(
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// A Result is the combination output: three aligned canvas-shaped
// planes. Coverage holds whole-number frame counts; Data and Variance
// are the sentinel 0 wherever Coverage is 0.
type Result struct {
	Data      *dmath.Grid
	Variance  *dmath.Grid
	Coverage  *dmath.Grid
	Iteration int
}

// Implement golang's image.Image interface
func (r *Result)ColorModel() color.Model { return hdrcolor.RGBModel }
func (r *Result)Bounds() image.Rectangle { return r.Data.Bounds() }
func (r *Result)At(x, y int) color.Color { return r.HDRAt(x, y) }

// Implement hdr.Image: the bundle travels as one radiance-format file,
// data/variance/coverage in the R/G/B channels.
func (r *Result)HDRAt(x, y int) hdrcolor.Color {
	return hdrcolor.RGB{R: r.Data.Get(x, y), G: r.Variance.Get(x, y), B: r.Coverage.Get(x, y)}
}
func (r *Result)Size() int { return r.Bounds().Dx() * r.Bounds().Dy() }

func (r *Result)WriteHDR(filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()
	return rgbe.Encode(writer, hdr.Image(r))
}

// WritePNGs renders the three planes separately for human inspection.
func (r *Result)WritePNGs(prefix string) error {
	for _, p := range []struct {
		g    *dmath.Grid
		name string
	}{
		{r.Data, "data"},
		{r.Variance, "variance"},
		{r.Coverage, "coverage"},
	} {
		fn := fmt.Sprintf("%s-%s.png", prefix, p.name)
		if err := dmath.RenderPNG(p.g, p.name, fn); err != nil {
			return err
		}
	}
	return nil
}
