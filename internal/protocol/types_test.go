package protocol

import "testing"

func TestCanonical8TenBit(t *testing.T) {
	c := Color{R: 512, G: 0, B: 1023, Depth: 10}
	c8 := c.Canonical8()
	if c8.R != 128 {
		t.Fatalf("round(512*255/1023): got %d want 128", c8.R)
	}
	if c8.G != 0 || c8.B != 255 {
		t.Fatalf("endpoint conversion: got g=%d b=%d", c8.G, c8.B)
	}
	if c8.Depth != 8 {
		t.Fatalf("canonical depth: got %d", c8.Depth)
	}
}

func TestCanonical8ZeroDepthTreatedAsEight(t *testing.T) {
	c := Color{R: 100, G: 200, B: 255, Depth: 0}
	c8 := c.Canonical8()
	if c8.R != 100 || c8.G != 200 || c8.B != 255 {
		t.Fatalf("identity at depth 8: got %+v", c8)
	}
}

func TestCanonical8ClampsOutOfRangeSample(t *testing.T) {
	c := Color{R: 300, Depth: 8}
	if got := c.Canonical8().R; got != 255 {
		t.Fatalf("clamp: got %d want 255", got)
	}
}

func TestScalarColorDefaultsDepth(t *testing.T) {
	m := MeasurementResult{R: 10, G: 20, B: 30}
	c := m.ScalarColor()
	if c.Depth != 8 {
		t.Fatalf("default depth: got %d", c.Depth)
	}
}
