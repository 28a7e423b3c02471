package common

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Box is a bounding box in normalized coordinates.
//
// X and Y locate the top-left corner as fractions of the image width and height.
// Width and Height are fractions of the same dimensions.
type Box struct {
	X      float32 `json:"x"      yaml:"x"`
	Y      float32 `json:"y"      yaml:"y"`
	Width  float32 `json:"width"  yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// Clamp01 limits v to the closed interval [0, 1].
//
// NaN clamps to 0.
//
// Arguments:
// - v: The value to clamp.
//
// Returns:
// - The clamped value.
//
// @example
// common.Clamp01(1.3)  // 1
// common.Clamp01(-0.2) // 0
func Clamp01(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(0, math32.Min(1, v))
}

// Clamp returns a copy of the box with every field limited to [0, 1].
func (b Box) Clamp() Box {
	return Box{
		X:      Clamp01(b.X),
		Y:      Clamp01(b.Y),
		Width:  Clamp01(b.Width),
		Height: Clamp01(b.Height),
	}
}

// FromCenter converts a center-encoded box (cx, cy, w, h) to corner form.
//
// Arguments:
// - cx, cy: The box center.
// - w, h: The box size.
//
// Returns:
// - A Box whose X and Y are the top-left corner.
//
// @example
// b := common.FromCenter(0.5, 0.5, 0.2, 0.3) // {X: 0.4, Y: 0.35, Width: 0.2, Height: 0.3}
func FromCenter(cx, cy, w, h float32) Box {
	return Box{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

// ToRect scales the box to an image of the given pixel size.
//
// This won't be entirely precise due to conversion to integral rectangles,
// which is fine for drawing overlays.
func (b Box) ToRect(width, height int) image.Rectangle {
	x1 := int(roundf(b.X * float32(width)))
	y1 := int(roundf(b.Y * float32(height)))
	x2 := int(roundf((b.X + b.Width) * float32(width)))
	y2 := int(roundf((b.Y + b.Height) * float32(height)))
	return image.Rect(x1, y1, x2, y2).Canon()
}

func (b Box) String() string {
	return fmt.Sprintf("(%.3f, %.3f) %.3fx%.3f", b.X, b.Y, b.Width, b.Height)
}

func roundf(v float32) float32 {
	return math32.Floor(v + 0.5)
}
