package protocol

// DefaultDepth is the channel bit depth assumed when a message states none.
const DefaultDepth uint8 = 8

// maxDepth bounds the widest channel representation the model supports.
const maxDepth uint8 = 16

// Color is one RGB sample at a stated bit depth. All three channels share
// the same depth.
type Color struct {
	R     uint16 `json:"red"`
	G     uint16 `json:"green"`
	B     uint16 `json:"blue"`
	Depth uint8  `json:"depth"`
}

// Canonical8 converts c to its 8-bit representation: round(v*255/max) with
// max = 2^depth-1. Depth zero is treated as 8.
func (c Color) Canonical8() Color {
	return Color{
		R:     canon8(c.R, c.Depth),
		G:     canon8(c.G, c.Depth),
		B:     canon8(c.B, c.Depth),
		Depth: DefaultDepth,
	}
}

func canon8(v uint16, depth uint8) uint16 {
	d := depth
	if d == 0 {
		d = DefaultDepth
	}
	if d > maxDepth {
		d = maxDepth
	}
	max := uint32(1)<<d - 1
	val := uint32(v)
	if val > max {
		val = max
	}
	return uint16((val*255 + max/2) / max)
}

// Geometry is a normalized rectangle footprint. Width and height are in
// [0,1] after clamping; 1.0 means full extent.
type Geometry struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// RectangleShape pairs a fill colour with its footprint.
type RectangleShape struct {
	Color    Color    `json:"color"`
	Geometry Geometry `json:"geometry"`
}

// ShapeKind discriminates the closed set of drawable shapes.
type ShapeKind string

const KindRectangle ShapeKind = "rectangle"

// ShapeInstruction is one parsed on-screen drawing directive.
type ShapeInstruction struct {
	Kind ShapeKind      `json:"kind"`
	Rect RectangleShape `json:"rectangle"`
}

// NewRectangle builds a rectangle shape instruction.
func NewRectangle(c Color, g Geometry) ShapeInstruction {
	return ShapeInstruction{Kind: KindRectangle, Rect: RectangleShape{Color: c, Geometry: g}}
}

// MeasurementResult is one parsed inbound message. R/G/B echo the request
// unless a <result> element reported scalars; X/Y/YLum are nil when the
// message did not report them.
type MeasurementResult struct {
	R     uint16
	G     uint16
	B     uint16
	Depth uint8

	X    *float64
	Y    *float64
	YLum *float64

	Shapes []ShapeInstruction
}

// ScalarColor returns the result's scalar channels at the message's native
// bit depth.
func (m MeasurementResult) ScalarColor() Color {
	d := m.Depth
	if d == 0 {
		d = DefaultDepth
	}
	return Color{R: m.R, G: m.G, B: m.B, Depth: d}
}
