package protocol

import (
	"errors"
	"testing"
)

const envOpen = "<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n<CS_RMC version=1>"
const envClose = "</CS_RMC>"

var testEcho = Color{R: 10, G: 20, B: 30, Depth: 8}

func TestParseResultScalars(t *testing.T) {
	msg := envOpen + "<measurement><result><x>0.31</x><y>0.32</y><Y>80.5</Y></result></measurement>" + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.X == nil || *res.X != 0.31 {
		t.Fatalf("x: got %v", res.X)
	}
	if res.Y == nil || *res.Y != 0.32 {
		t.Fatalf("y: got %v", res.Y)
	}
	if res.YLum == nil || *res.YLum != 80.5 {
		t.Fatalf("Y: got %v", res.YLum)
	}
	// Channels not reported: echo survives.
	if res.R != 10 || res.G != 20 || res.B != 30 {
		t.Fatalf("echo lost: {%d %d %d}", res.R, res.G, res.B)
	}
}

func TestParseResultChannelsOverrideEcho(t *testing.T) {
	msg := envOpen + "<measurement><result><red>1</red><green>2</green><blue>3</blue></result></measurement>" + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.R != 1 || res.G != 2 || res.B != 3 {
		t.Fatalf("scalars: got {%d %d %d}", res.R, res.G, res.B)
	}
}

func TestParseScalarsOutsideResultIgnored(t *testing.T) {
	msg := envOpen + "<measurement><red>99</red><x>0.5</x></measurement>" + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.R != 10 || res.X != nil {
		t.Fatalf("non-result scalars applied: r=%d x=%v", res.R, res.X)
	}
}

func TestParseUnparseableScalarAbsorbed(t *testing.T) {
	msg := envOpen + "<measurement><result><red>banana</red><x>n/a</x></result></measurement>" + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.R != 10 || res.X != nil {
		t.Fatalf("bad scalar should keep prior value: r=%d x=%v", res.R, res.X)
	}
}

func TestParseDuplicateCommandRejected(t *testing.T) {
	msg := envOpen + "<measurement><result><red>1</red></result></measurement>" +
		"<measurement><result><red>2</red></result></measurement>" + envClose
	_, err := ParseMeasurement(msg, testEcho)
	if !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected ErrDuplicateCommand, got %v", err)
	}
}

func TestParseRectangleMissingColourIsFatal(t *testing.T) {
	msg := envOpen + `<display><rectangle><geometry cx="0.5" cy="0.5"/></rectangle></display>` + envClose
	_, err := ParseMeasurement(msg, testEcho)
	if !errors.Is(err, ErrIncompleteShape) {
		t.Fatalf("expected ErrIncompleteShape, got %v", err)
	}
}

func TestParseRectangleMissingGeometryDefaultsFullExtent(t *testing.T) {
	msg := envOpen + `<display><rectangle><color red="100" green="50" blue="25"/></rectangle></display>` + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Shapes) != 1 {
		t.Fatalf("shapes: got %d", len(res.Shapes))
	}
	rect := res.Shapes[0].Rect
	if rect.Color.R != 100 || rect.Color.G != 50 || rect.Color.B != 25 {
		t.Fatalf("colour: got %+v", rect.Color)
	}
	if rect.Geometry.Width != 1 || rect.Geometry.Height != 1 {
		t.Fatalf("geometry default: got %+v", rect.Geometry)
	}
}

func TestParseGeometryCxBeatsX(t *testing.T) {
	msg := envOpen + `<display><rectangle><color red="1"/><geometry x="0.2" cx="0.9" y="0.3" cy="0.4"/></rectangle></display>` + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	geom := res.Shapes[0].Rect.Geometry
	if geom.Width != 0.9 {
		t.Fatalf("cx priority: got width %v", geom.Width)
	}
	if geom.Height != 0.4 {
		t.Fatalf("cy priority: got height %v", geom.Height)
	}
}

func TestParseColourSynonymAndDepth(t *testing.T) {
	msg := envOpen + `<display><rectangle><colour red="512" green="0" blue="1023" bits="10"/></rectangle></display>` + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := res.Shapes[0].Rect.Color
	if c.R != 512 || c.B != 1023 || c.Depth != 10 {
		t.Fatalf("colour synonym: got %+v", c)
	}
	if got := c.Canonical8().R; got != 128 {
		t.Fatalf("10-bit canonicalization: got %d", got)
	}
}

func TestParseGeometryClampedToUnit(t *testing.T) {
	msg := envOpen + `<display><rectangle><color red="1"/><geometry cx="1.5" cy="-0.2"/></rectangle></display>` + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	geom := res.Shapes[0].Rect.Geometry
	if geom.Width != 1 || geom.Height != 0 {
		t.Fatalf("clamp: got %+v", geom)
	}
}

func TestParseShapesKeepDocumentOrder(t *testing.T) {
	msg := envOpen + `<display>` +
		`<rectangle><color red="1"/></rectangle>` +
		`<rectangle><color red="2"/></rectangle>` +
		`</display>` + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Shapes) != 2 || res.Shapes[0].Rect.Color.R != 1 || res.Shapes[1].Rect.Color.R != 2 {
		t.Fatalf("order: got %+v", res.Shapes)
	}
}

func TestParseUnterminatedRectangleFinalizedAtEOF(t *testing.T) {
	// Non-strict parsing invents missing end tags; the open builder is
	// still finalized by the same rule.
	msg := envOpen + `<display><rectangle><color red="7"/>`
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Shapes) != 1 || res.Shapes[0].Rect.Color.R != 7 {
		t.Fatalf("unterminated rectangle: got %+v", res.Shapes)
	}
}

func TestParseUnterminatedColourlessRectangleIsFatal(t *testing.T) {
	msg := envOpen + `<display><rectangle><geometry cx="0.5"/>`
	_, err := ParseMeasurement(msg, testEcho)
	if !errors.Is(err, ErrIncompleteShape) {
		t.Fatalf("expected ErrIncompleteShape, got %v", err)
	}
}

func TestParseMalformedXMLIsFatal(t *testing.T) {
	msg := envOpen + "<measurement><result><</result></measurement>" + envClose
	_, err := ParseMeasurement(msg, testEcho)
	if !errors.Is(err, ErrMalformedXML) {
		t.Fatalf("expected ErrMalformedXML, got %v", err)
	}
}

func TestParseFailuresAreViolations(t *testing.T) {
	bad := []string{
		envOpen + "<measurement/><measurement/>" + envClose,
		envOpen + `<display><rectangle><geometry cx="0.5"/></rectangle></display>` + envClose,
		envOpen + "<measurement><<" + envClose,
	}
	for _, msg := range bad {
		_, err := ParseMeasurement(msg, testEcho)
		if err == nil || !IsViolation(err) {
			t.Fatalf("expected violation for %q, got %v", msg, err)
		}
	}
}

func TestParseCommentsAndDeclarationsIgnored(t *testing.T) {
	msg := envOpen + "<!-- instrument chatter --><measurement><result><x>0.5</x></result></measurement>" + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.X == nil || *res.X != 0.5 {
		t.Fatalf("x: got %v", res.X)
	}
}

func TestParseResultBitsAttributeSetsDepth(t *testing.T) {
	msg := envOpen + `<measurement><result bits="10"><red>512</red></result></measurement>` + envClose
	res, err := ParseMeasurement(msg, testEcho)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := res.ScalarColor()
	if c.Depth != 10 || c.R != 512 {
		t.Fatalf("native depth scalar: got %+v", c)
	}
	if got := c.Canonical8().R; got != 128 {
		t.Fatalf("canonical: got %d", got)
	}
}
