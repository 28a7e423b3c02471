package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTensorElements(t *testing.T) {
	tests := []struct {
		name   string
		tensor Tensor
		want   int
	}{
		{name: "shaped", tensor: Tensor{Shape: []int64{1, 2, 3}, Data: make([]float32, 6)}, want: 6},
		{name: "no shape", tensor: Tensor{Data: []float32{1}}, want: -1},
		{name: "zero dim", tensor: Tensor{Shape: []int64{1, 0, 9}}, want: -1},
		{name: "negative dim", tensor: Tensor{Shape: []int64{-1, 9}}, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tensor.Elements())
			assert.Equal(t, len(tt.tensor.Data), tt.tensor.Len())
		})
	}
}
