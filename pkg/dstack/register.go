package dstack

import(
	"image"

	"github.com/abarden/ditherstack/pkg/dmath"
)

// Registration maps each frame's native pixel grid onto a shared
// oversized canvas. Pure functions of their inputs - calling them
// twice with the same offsets yields the same canvas and regions.

// CombineShape computes the smallest canvas that contains every
// frame's offset-shifted footprint, and shifts the offsets into
// canvas-local coordinates (minimum offset per axis becomes zero).
func CombineShape(shape image.Point, offsets []image.Point) (image.Point, []image.Point, error) {
	if shape.X <= 0 || shape.Y <= 0 {
		return image.Point{}, nil, configErrorf("degenerate frame shape %v", shape)
	}
	if len(offsets) == 0 {
		return image.Point{}, nil, configErrorf("no offsets supplied")
	}

	min := offsets[0]
	max := offsets[0]
	for _, off := range offsets[1:] {
		if off.X < min.X { min.X = off.X }
		if off.Y < min.Y { min.Y = off.Y }
		if off.X > max.X { max.X = off.X }
		if off.Y > max.Y { max.Y = off.Y }
	}

	normalized := make([]image.Point, len(offsets))
	for i, off := range offsets {
		normalized[i] = off.Sub(min)
	}

	canvas := image.Point{max.X - min.X + shape.X, max.Y - min.Y + shape.Y}
	return canvas, normalized, nil
}

// RegionFor returns the slice of the canvas covered by a frame at the
// given (normalized) offset. The region always has exactly the native
// extent and never reaches outside the canvas.
func RegionFor(canvas, offset, shape image.Point) (image.Rectangle, error) {
	region := image.Rectangle{Min: offset, Max: offset.Add(shape)}
	if !region.In(image.Rectangle{Max: canvas}) {
		return image.Rectangle{}, configErrorf("region %v falls outside canvas %v", region, canvas)
	}
	return region, nil
}

// ResizeFrame embeds a frame's native data into a canvas-sized grid at
// its region. The companion mask marks everything outside the region
// invalid, plus the frame's own bad pixels inside it.
func ResizeFrame(f *Frame, canvas image.Point) (*dmath.Grid, *dmath.Mask) {
	data := dmath.NewGrid(canvas.X, canvas.Y)
	mask := dmath.NewMask(canvas.X, canvas.Y)

	for y := 0; y < canvas.Y; y++ {
		for x := 0; x < canvas.X; x++ {
			mask.Set(x, y, true)
		}
	}
	for y := 0; y < f.Shape.Y; y++ {
		for x := 0; x < f.Shape.X; x++ {
			data.Set(f.Region.Min.X+x, f.Region.Min.Y+y, f.Data.Get(x, y))
			mask.Set(f.Region.Min.X+x, f.Region.Min.Y+y, f.Mask.Get(x, y))
		}
	}
	return data, mask
}
