package dmath

import(
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// RenderPNG saves a simple grayscale render of the grid, based on the
// range of values in it, gamma scaling the gray to look normal for
// human vision, with the artifact name drawn in the corner. Purely a
// diagnostic for humans; the pipeline never reads these back.
func RenderPNG(g *Grid, title, filename string) error {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			v := g.Get(x, y)
			if v > max { max = v }
			if v < min { min = v }
		}
	}
	span := max - min
	if span == 0 {
		span = 1.0
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{g.Dx(), g.Dy()}})
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			gray := gammaExpand((g.Get(x, y) - min) / span)
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 20, 20)
	return dc.SavePNG(filename)
}

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
func gammaExpand(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}
