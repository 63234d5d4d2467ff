package protocol

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// commandDepth is the open-element stack depth at which the message's
// command name appears (first child of the CS_RMC envelope).
const commandDepth = 2

// ParseMeasurement parses one inbound message payload into a
// MeasurementResult. echo seeds the scalar channel fields so a response
// without <result> numeric children still reflects what was requested.
//
// Fatal conditions: a repeated command name at the envelope level
// (ErrDuplicateCommand), a rectangle that never carried colour attributes
// (ErrIncompleteShape) and any XML syntax error (ErrMalformedXML).
// Unparseable scalar text inside <result> is absorbed; the field keeps its
// prior value.
func ParseMeasurement(payload string, echo Color) (MeasurementResult, error) {
	res := MeasurementResult{R: echo.R, G: echo.G, B: echo.B, Depth: echo.Depth}

	dec := xml.NewDecoder(strings.NewReader(payload))
	// The envelope carries an unquoted version attribute; strict mode
	// rejects it.
	dec.Strict = false

	var stack []string
	seen := make(map[string]struct{})
	inResult := false
	var rect *rectBuilder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isTruncated(err) {
				// Unterminated element at end of input: fall through to
				// the finalize-or-fail rule below.
				break
			}
			return res, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			stack = append(stack, name)
			if len(stack) == commandDepth {
				if _, dup := seen[name]; dup {
					return res, fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
				}
				seen[name] = struct{}{}
			}
			switch name {
			case "result":
				inResult = true
				applyResultAttrs(t, &res)
			case "rectangle":
				rect = &rectBuilder{}
			case "color", "colour":
				if rect != nil {
					rect.applyColor(t)
				}
			case "geometry":
				if rect != nil {
					rect.applyGeometry(t)
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "result":
				inResult = false
			case "rectangle":
				if rect != nil {
					shape, err := rect.finalize()
					if err != nil {
						return res, err
					}
					res.Shapes = append(res.Shapes, shape)
					rect = nil
				}
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if !inResult || len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			applyResultScalar(stack[len(stack)-1], text, &res)
		}
		// Comments, directives and processing instructions carry no
		// semantics for this schema.
	}

	// Unterminated rectangle at end of input: same finalize-or-fail rule.
	if rect != nil {
		shape, err := rect.finalize()
		if err != nil {
			return res, err
		}
		res.Shapes = append(res.Shapes, shape)
	}

	return res, nil
}

// isTruncated distinguishes a document that simply ends with elements
// still open from genuinely bad syntax.
func isTruncated(err error) bool {
	var syn *xml.SyntaxError
	return errors.As(err, &syn) && syn.Msg == "unexpected EOF"
}

func applyResultAttrs(el xml.StartElement, res *MeasurementResult) {
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "bits", "depth", "bitDepth":
			if v, err := strconv.ParseUint(attr.Value, 10, 8); err == nil {
				res.Depth = uint8(v)
			}
		}
	}
}

func applyResultScalar(elem, text string, res *MeasurementResult) {
	switch elem {
	case "red":
		if v, err := strconv.ParseUint(text, 10, 16); err == nil {
			res.R = uint16(v)
		}
	case "green":
		if v, err := strconv.ParseUint(text, 10, 16); err == nil {
			res.G = uint16(v)
		}
	case "blue":
		if v, err := strconv.ParseUint(text, 10, 16); err == nil {
			res.B = uint16(v)
		}
	case "x":
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			res.X = &v
		}
	case "y":
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			res.Y = &v
		}
	case "Y":
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			res.YLum = &v
		}
	}
}

// rectBuilder accumulates one <rectangle> element. A colour counts as
// present only after at least one channel attribute parsed successfully.
type rectBuilder struct {
	color    Color
	colorSet bool

	width   float32
	wSet    bool
	height  float32
	hSet    bool
}

func (b *rectBuilder) applyColor(el xml.StartElement) {
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "red":
			if v, ok := parseChannel(attr.Value); ok {
				b.color.R = v
				b.colorSet = true
			}
		case "green":
			if v, ok := parseChannel(attr.Value); ok {
				b.color.G = v
				b.colorSet = true
			}
		case "blue":
			if v, ok := parseChannel(attr.Value); ok {
				b.color.B = v
				b.colorSet = true
			}
		case "bits", "depth", "bitDepth":
			if v, err := strconv.ParseUint(attr.Value, 10, 8); err == nil {
				b.color.Depth = uint8(v)
			}
		}
	}
}

// parseChannel reads a channel attribute at the widest supported width,
// retrying as 8-bit when that fails.
func parseChannel(s string) (uint16, bool) {
	if v, err := strconv.ParseUint(s, 10, 16); err == nil {
		return uint16(v), true
	}
	if v, err := strconv.ParseUint(s, 10, 8); err == nil {
		return uint16(v), true
	}
	return 0, false
}

func (b *rectBuilder) applyGeometry(el xml.StartElement) {
	for _, attr := range el.Attr {
		switch attr.Name.Local {
		case "cx":
			if v, err := strconv.ParseFloat(attr.Value, 32); err == nil {
				b.width = float32(v)
				b.wSet = true
			}
		case "cy":
			if v, err := strconv.ParseFloat(attr.Value, 32); err == nil {
				b.height = float32(v)
				b.hSet = true
			}
		case "x":
			// Legacy sizing attribute; cx wins when both appear.
			if b.wSet {
				continue
			}
			if v, err := strconv.ParseFloat(attr.Value, 32); err == nil {
				b.width = float32(v)
				b.wSet = true
			}
		case "y":
			if b.hSet {
				continue
			}
			if v, err := strconv.ParseFloat(attr.Value, 32); err == nil {
				b.height = float32(v)
				b.hSet = true
			}
		}
	}
}

func (b *rectBuilder) finalize() (ShapeInstruction, error) {
	if !b.colorSet {
		return ShapeInstruction{}, ErrIncompleteShape
	}
	geom := Geometry{Width: 1, Height: 1}
	if b.wSet {
		geom.Width = clamp01(b.width)
	}
	if b.hSet {
		geom.Height = clamp01(b.height)
	}
	return NewRectangle(b.color, geom), nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
