package dmath

import(
	"fmt"
	"image"
	"math"
	"sort"
)

// A Grid is a rectangular raster of float64 values - one plane of
// detector or canvas pixels. The zero value is not useful; use NewGrid.
type Grid struct {
	stride int
	values []float64
}

func NewGrid(w, h int) *Grid {
	return &Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g *Grid)Dx() int                 { return g.stride }
func (g *Grid)Dy() int                 { return len(g.values) / g.stride }
func (g *Grid)Set(x, y int, v float64) { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64    { return g.values[g.stride*y + x] }
func (g *Grid)Bounds() image.Rectangle { return image.Rect(0, 0, g.Dx(), g.Dy()) }
func (g *Grid)N() int                  { return len(g.values) }

func (g1 *Grid)Copy() *Grid {
	g2 := Grid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

func (g *Grid)Fill(v float64) {
	for i := range g.values {
		g.values[i] = v
	}
}

// Sub copies out the values under `r`, which must lie inside the grid.
func (g *Grid)Sub(r image.Rectangle) *Grid {
	out := NewGrid(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(x, y, g.Get(r.Min.X+x, r.Min.Y+y))
		}
	}
	return out
}

// SetSub writes `src` into the grid at `r`; the extents must match.
func (g *Grid)SetSub(r image.Rectangle, src *Grid) {
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			g.Set(r.Min.X+x, r.Min.Y+y, src.Get(x, y))
		}
	}
}

func (g *Grid)Stats() string {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range g.values {
		if v > max { max = v }
		if v < min { min = v }
	}
	return fmt.Sprintf("grid[%dx%d, vals{%g,%g}]", g.Dx(), g.Dy(), min, max)
}

// A Mask is a boolean raster aligned to a Grid. True means the pixel is
// excluded (bad pixel, out of region, or flagged as a source).
type Mask struct {
	stride int
	bits   []bool
}

func NewMask(w, h int) *Mask {
	return &Mask{
		stride: w,
		bits:   make([]bool, w*h),
	}
}

func (m *Mask)Dx() int              { return m.stride }
func (m *Mask)Dy() int              { return len(m.bits) / m.stride }
func (m *Mask)Set(x, y int, v bool) { m.bits[m.stride*y + x] = v }
func (m *Mask)Get(x, y int) bool    { return m.bits[m.stride*y + x] }

func (m1 *Mask)Copy() *Mask {
	m2 := Mask{stride: m1.stride, bits: make([]bool, len(m1.bits))}
	copy(m2.bits, m1.bits)
	return &m2
}

func (m *Mask)Count() int {
	n := 0
	for _, b := range m.bits {
		if b { n++ }
	}
	return n
}

func (m *Mask)Sub(r image.Rectangle) *Mask {
	out := NewMask(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(x, y, m.Get(r.Min.X+x, r.Min.Y+y))
		}
	}
	return out
}

// Grow dilates the mask by `radius` pixels in each direction, so that
// a flagged source also excludes its faint wings.
func (m *Mask)Grow(radius int) *Mask {
	if radius <= 0 {
		return m.Copy()
	}
	w, h := m.Dx(), m.Dy()
	out := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.Get(x, y) {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					xx, yy := x+dx, y+dy
					if xx >= 0 && xx < w && yy >= 0 && yy < h {
						out.Set(xx, yy, true)
					}
				}
			}
		}
	}
	return out
}

// Median returns the median of vals, sorting them in place. The caller
// owns the slice. Returns NaN for an empty slice.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2.0
}

// MAD returns the median absolute deviation about `center`, sorting
// vals in place.
func MAD(vals []float64, center float64) float64 {
	for i, v := range vals {
		vals[i] = math.Abs(v - center)
	}
	return Median(vals)
}
