package images

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Outline returns a copy of raw with the outline of every rectangle drawn in c.
//
// Arguments:
//   - raw: The source image. It is not modified.
//   - rects: Rectangles in pixel coordinates, clipped to the image.
//   - c: The outline color.
//   - thickness: The line width in pixels, at least 1.
//
// Returns:
//   - *RawImage: The annotated copy.
func Outline(raw *RawImage, rects []image.Rectangle, c color.Color, thickness int) (*RawImage, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if thickness < 1 {
		thickness = 1
	}

	dst := imaging.Clone(raw.Image())
	bounds := dst.Bounds()
	fill := func(r image.Rectangle) {
		r = r.Intersect(bounds)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				dst.Set(x, y, c)
			}
		}
	}
	for _, r := range rects {
		r = r.Canon()
		t := thickness
		fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t))
		fill(image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y))
		fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y))
		fill(image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y))
	}
	return fromImage(dst, raw.Format), nil
}

// Encode writes raw as JPEG or PNG. Other formats are written as PNG.
func Encode(w io.Writer, raw *RawImage, format ImageFormat) error {
	if err := raw.Validate(); err != nil {
		return err
	}
	f := imaging.PNG
	var opts []imaging.EncodeOption
	if format == FormatJPEG {
		f = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(90))
	}
	return errors.Wrapf(imaging.Encode(w, raw.Image(), f, opts...), "failed to encode %s", format)
}
