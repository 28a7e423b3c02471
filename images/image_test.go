package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/nvr-ai/brewguard/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func getJPEGBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, getTestImage(w, h, color.RGBA{R: 200, G: 40, B: 10, A: 255}), &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func getPNGBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, getTestImage(w, h, color.RGBA{R: 0, G: 128, B: 255, A: 255})))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("jpeg", func(t *testing.T) {
		raw, err := Decode(getJPEGBytes(t, 32, 24))
		require.NoError(t, err)
		assert.Equal(t, FormatJPEG, raw.Format)
		assert.Equal(t, 32, raw.Width)
		assert.Equal(t, 24, raw.Height)
		assert.Len(t, raw.Data, 32*24*4)
		require.NoError(t, raw.Validate())

		// Lossy, so only roughly the encoded color; alpha is opaque.
		assert.InDelta(t, 200, int(raw.Data[0]), 12)
		assert.InDelta(t, 40, int(raw.Data[1]), 12)
		assert.InDelta(t, 10, int(raw.Data[2]), 12)
		assert.Equal(t, byte(255), raw.Data[3])
	})

	t.Run("png", func(t *testing.T) {
		raw, err := Decode(getPNGBytes(t, 4, 4), WithAutoOrientation(false))
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, raw.Format)
		assert.Equal(t, []byte{0, 128, 255, 255}, raw.Data[:4])
	})

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("not a jpeg")},
		{name: "truncated", data: getJPEGBytes(t, 64, 64)[:100]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Decode(tt.data)
			assert.Nil(t, raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrDecode)
			assert.Equal(t, common.KindDecode, common.KindOf(err))
		})
	}
}

func TestRawImageValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawImage
		ok   bool
	}{
		{name: "valid", raw: &RawImage{Width: 2, Height: 1, Data: make([]byte, 8)}, ok: true},
		{name: "nil", raw: nil},
		{name: "zero width", raw: &RawImage{Width: 0, Height: 1}},
		{name: "short buffer", raw: &RawImage{Width: 2, Height: 2, Data: make([]byte, 12)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.raw.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, common.ErrShapeMismatch)
		})
	}
}

func TestFromImage(t *testing.T) {
	// Bounds away from the origin must be normalised.
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.SetNRGBA(5, 5, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	src.SetNRGBA(6, 5, color.NRGBA{R: 5, G: 6, B: 7, A: 8})

	raw := FromImage(src)
	assert.Equal(t, FormatRaw, raw.Format)
	assert.Equal(t, 2, raw.Width)
	assert.Equal(t, 1, raw.Height)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, raw.Data)
	assert.Equal(t, raw.Checksum(), FromImage(src).Checksum())
}

func TestResize(t *testing.T) {
	raw := FromImage(getTestImage(100, 50, color.RGBA{R: 255, A: 255}))

	out, err := ResizeSquare(raw, 64, BilinearFilter)
	require.NoError(t, err)
	assert.Equal(t, 64, out.Width)
	assert.Equal(t, 64, out.Height)
	require.NoError(t, out.Validate())
	assert.InDelta(t, 255, int(out.Data[0]), 1)
	assert.InDelta(t, 0, int(out.Data[1]), 1)
	assert.InDelta(t, 255, int(out.Data[3]), 1)

	same, err := ResizeSquare(out, 64, BilinearFilter)
	require.NoError(t, err)
	assert.Same(t, out, same)

	_, err = Resize(raw, 0, 10, BilinearFilter)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	_, err = Resize(raw, 10, 10, ResampleFilter("box"))
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, BilinearFilter, f)

	f, err = ParseFilter(" Lanczos3 ")
	require.NoError(t, err)
	assert.Equal(t, Lanczos3Filter, f)

	_, err = ParseFilter("box")
	assert.Error(t, err)
}

func TestOutline(t *testing.T) {
	raw := FromImage(getTestImage(10, 10, color.White))
	red := color.NRGBA{R: 255, A: 255}

	out, err := Outline(raw, []image.Rectangle{image.Rect(2, 2, 8, 8), image.Rect(-5, -5, 3, 3)}, red, 1)
	require.NoError(t, err)
	require.NotSame(t, raw, out)
	assert.NotEqual(t, raw.Checksum(), out.Checksum())

	img := out.Image()
	assert.Equal(t, red, img.NRGBAAt(2, 2), "corner")
	assert.Equal(t, red, img.NRGBAAt(7, 5), "right edge")
	assert.Equal(t, red, img.NRGBAAt(0, 2), "clipped rectangle")
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(5, 5), "interior untouched")
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, raw.Image().NRGBAAt(2, 2), "source untouched")

	_, err = Outline(&RawImage{Width: 2, Height: 2}, nil, red, 1)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := FromImage(getTestImage(12, 8, color.RGBA{R: 0, G: 128, B: 255, A: 255}))

	for _, format := range []ImageFormat{FormatJPEG, FormatPNG} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, raw, format))

			decoded, err := Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, format, decoded.Format)
			assert.Equal(t, 12, decoded.Width)
			assert.Equal(t, 8, decoded.Height)
		})
	}
}
