// Package postprocess - Decodes raw detector output into labeled boxes.
package postprocess

// Layout identifies how detection rows are encoded in an output tensor.
type Layout int

const (
	// LayoutRows is a [batch, boxes, rowLength] tensor whose boxes are already
	// (x, y, width, height) with a top-left origin.
	LayoutRows Layout = iota + 1
	// LayoutFlat is a flat sequence of fixed-length rows whose boxes are
	// center-encoded (cx, cy, width, height).
	LayoutFlat
)

func (l Layout) String() string {
	switch l {
	case LayoutRows:
		return "rows"
	case LayoutFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DetectLayout picks the layout from an output shape. Shapes with at least
// three dimensions are row tensors; anything else, including no shape, is flat.
func DetectLayout(shape []int64) Layout {
	if len(shape) >= 3 {
		return LayoutRows
	}
	return LayoutFlat
}

// Row slot positions shared by both layouts.
const (
	slotX = iota
	slotY
	slotWidth
	slotHeight
	slotConfidence
	slotClasses
)
