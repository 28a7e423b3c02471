// Package inference - The boundary between preprocessing and a model runtime.
package inference

// Tensor is a flat float32 buffer with an optional shape.
//
// Input tensors always carry a shape. Output tensors may not, in which case the
// consumer decides how to interpret the flat data.
type Tensor struct {
	// Shape lists dimension sizes, outermost first. May be nil for outputs.
	Shape []int64 `json:"shape,omitempty" yaml:"shape,omitempty"`
	// Data holds the values in row-major order.
	Data []float32 `json:"-" yaml:"-"`
}

// HasShape reports whether the tensor carries a shape descriptor.
func (t Tensor) HasShape() bool {
	return len(t.Shape) > 0
}

// Len returns the number of values.
func (t Tensor) Len() int {
	return len(t.Data)
}

// Elements returns the product of the shape dimensions, or -1 without a shape
// or with a non-positive dimension.
func (t Tensor) Elements() int {
	if !t.HasShape() {
		return -1
	}
	n := 1
	for _, d := range t.Shape {
		if d <= 0 {
			return -1
		}
		n *= int(d)
	}
	return n
}
