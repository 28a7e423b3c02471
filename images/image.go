// Package images - Image decoding and resizing for model preprocessing.
package images

import (
	"crypto/md5"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/brewguard/common"
)

// ImageFormat names an encoded image format.
type ImageFormat string

// ImageFormat constants, matching the names registered with the image package.
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatRaw marks pixels that did not come from an encoded buffer.
	FormatRaw ImageFormat = "raw"
)

// RawImage is a decoded image with interleaved 8-bit R, G, B, A samples in
// row-major order. Alpha is not premultiplied.
type RawImage struct {
	// The format the pixels were decoded from.
	Format ImageFormat `json:"format" yaml:"format"`
	// The width of the image in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the image in pixels.
	Height int `json:"height" yaml:"height"`
	// The pixel data, len(Data) == Width*Height*4.
	Data []byte `json:"-" yaml:"-"`
}

// Validate checks the dimensions and buffer length invariants.
//
// Returns:
//   - error: A shape mismatch error if the image is not well formed.
func (r *RawImage) Validate() error {
	if r == nil {
		return common.Errorf(common.KindShapeMismatch, "nil image")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return common.Errorf(common.KindShapeMismatch, "invalid dimensions %dx%d", r.Width, r.Height)
	}
	if want := r.Width * r.Height * 4; len(r.Data) != want {
		return common.Errorf(common.KindShapeMismatch,
			"pixel buffer has %d bytes, want %d for %dx%d RGBA", len(r.Data), want, r.Width, r.Height)
	}
	return nil
}

// Image returns an image.Image view over the pixel buffer. The buffer is shared.
func (r *RawImage) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    r.Data,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// Checksum generates a deterministic checksum of the pixel data.
//
// Returns:
//   - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	raw, _ := images.Decode(jpegBytes)
//	fmt.Printf("pixels: %s\n", raw.Checksum())
//
// ```
func (r *RawImage) Checksum() string {
	if r == nil || len(r.Data) == 0 {
		return "empty"
	}
	return fmt.Sprintf("%x", md5.Sum(r.Data))
}

// FromImage copies any image.Image into a RawImage.
//
// Arguments:
//   - img: The source image. Its bounds need not start at the origin.
//
// Returns:
//   - *RawImage: The converted image with Format set to FormatRaw.
func FromImage(img image.Image) *RawImage {
	return fromImage(img, FormatRaw)
}

func fromImage(img image.Image, format ImageFormat) *RawImage {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != nrgba.Rect.Dx()*4 {
		nrgba = imaging.Clone(img)
	}
	return &RawImage{
		Format: format,
		Width:  nrgba.Rect.Dx(),
		Height: nrgba.Rect.Dy(),
		Data:   nrgba.Pix,
	}
}
