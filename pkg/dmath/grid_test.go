package dmath

import(
	"image"
	"math"
	"testing"
)

func TestGridSubAndSetSub(t *testing.T) {
	g := NewGrid(6, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			g.Set(x, y, float64(10*y+x))
		}
	}

	r := image.Rect(2, 1, 5, 3)
	sub := g.Sub(r)
	if sub.Dx() != 3 || sub.Dy() != 2 {
		t.Fatalf("sub extent = %dx%d, want 3x2", sub.Dx(), sub.Dy())
	}
	if got := sub.Get(0, 0); got != 12 {
		t.Fatalf("sub(0,0) = %f, want 12", got)
	}
	if got := sub.Get(2, 1); got != 24 {
		t.Fatalf("sub(2,1) = %f, want 24", got)
	}

	sub.Fill(-1)
	g.SetSub(r, sub)
	if got := g.Get(3, 2); got != -1 {
		t.Fatalf("after SetSub, g(3,2) = %f, want -1", got)
	}
	if got := g.Get(0, 0); got != 0 {
		t.Fatalf("SetSub touched pixels outside the rect: g(0,0) = %f", got)
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		vals []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{7}, 7},
		{[]float64{10, 10, 10, 10000}, 10},
	}
	for _, c := range cases {
		if got := Median(append([]float64{}, c.vals...)); got != c.want {
			t.Errorf("Median(%v) = %f, want %f", c.vals, got, c.want)
		}
	}

	if !math.IsNaN(Median(nil)) {
		t.Errorf("Median(nil) should be NaN")
	}
}

func TestMAD(t *testing.T) {
	vals := []float64{1, 1, 1, 1, 5}
	med := Median(append([]float64{}, vals...))
	if got := MAD(vals, med); got != 0 {
		t.Errorf("MAD = %f, want 0 (majority at the median)", got)
	}

	vals = []float64{0, 2, 4}
	if got := MAD(vals, 2); got != 2 {
		t.Errorf("MAD = %f, want 2", got)
	}
}

func TestMaskGrow(t *testing.T) {
	m := NewMask(5, 5)
	m.Set(2, 2, true)

	grown := m.Grow(1)
	if grown.Count() != 9 {
		t.Fatalf("grow(1) count = %d, want 9", grown.Count())
	}
	if !grown.Get(1, 1) || !grown.Get(3, 3) {
		t.Fatalf("grow(1) missing corner neighbors")
	}
	if grown.Get(0, 0) {
		t.Fatalf("grow(1) reached too far")
	}
	if m.Count() != 1 {
		t.Fatalf("Grow mutated the receiver")
	}
}
