package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient builds a deterministic w×h image whose channels differ per pixel.
func gradient(w, h int) *images.RawImage {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 13) % 256),
				B: uint8((x + y) % 256),
				A: uint8((x * y) % 256),
			})
		}
	}
	return images.FromImage(img)
}

func TestPack(t *testing.T) {
	const side = 16
	raw := gradient(side, side)

	out, err := Pack(raw, side)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, side, side}, out.Shape)
	require.Len(t, out.Data, 3*side*side)

	for i, v := range out.Data {
		require.GreaterOrEqual(t, v, float32(0), "value %d", i)
		require.LessOrEqual(t, v, float32(1), "value %d", i)
	}

	// Channel-major: pixel (h=2, w=5) of each plane.
	plane := side * side
	px := (2*side + 5) * 4
	assert.Equal(t, float32(raw.Data[px])/255, out.Data[0*plane+2*side+5])
	assert.Equal(t, float32(raw.Data[px+1])/255, out.Data[1*plane+2*side+5])
	assert.Equal(t, float32(raw.Data[px+2])/255, out.Data[2*plane+2*side+5])

	again, err := Pack(raw, side)
	require.NoError(t, err)
	assert.Equal(t, out.Data, again.Data, "packing must be deterministic")
}

// TestPackMatchesTransposedHWC checks the layout against HWC values
// transposed to CHW.
func TestPackMatchesTransposedHWC(t *testing.T) {
	const side = 8
	raw := gradient(side, side)

	hwc := make([]float32, 0, side*side*3)
	for i := 0; i < side*side; i++ {
		for c := 0; c < 3; c++ {
			hwc = append(hwc, float32(raw.Data[i*4+c])/255.0)
		}
	}
	chw := make([]float32, len(hwc))
	for i := 0; i < side*side; i++ {
		for c := 0; c < 3; c++ {
			chw[c*side*side+i] = hwc[i*3+c]
		}
	}

	out, err := Pack(raw, side)
	require.NoError(t, err)
	assert.Equal(t, chw, out.Data)
}

func TestPackErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  *images.RawImage
		side int
	}{
		{name: "not square", raw: gradient(8, 4), side: 8},
		{name: "wrong size", raw: gradient(4, 4), side: 8},
		{name: "short buffer", raw: &images.RawImage{Width: 2, Height: 2, Data: make([]byte, 4)}, side: 2},
		{name: "nil image", raw: nil, side: 2},
		{name: "zero side", raw: gradient(1, 1), side: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pack(tt.raw, tt.side)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrShapeMismatch)
		})
	}

	err := PackInto(make([]float32, 5), gradient(2, 2), 2)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}

func TestPreprocessor(t *testing.T) {
	p, err := NewPreprocessor(Config{InputSize: 32}, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, p.InputSize())

	out, err := p.Preprocess(gradient(64, 48))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 32, 32}, out.Shape)
	assert.Len(t, out.Data, 3*32*32)

	_, err = p.Preprocess(&images.RawImage{Width: 3, Height: 3})
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	_, err = NewPreprocessor(Config{InputSize: 0}, nil)
	assert.Error(t, err)
	_, err = NewPreprocessor(Config{InputSize: 8, Filter: "box"}, nil)
	assert.Error(t, err)
}
