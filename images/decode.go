package images

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/brewguard/common"
	"github.com/pkg/errors"

	// Registers the WebP decoder with the image package.
	_ "golang.org/x/image/webp"
)

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	autoOrientation bool
}

// WithAutoOrientation applies the EXIF orientation tag of JPEG images while
// decoding. Enabled by default.
func WithAutoOrientation(enabled bool) DecodeOption {
	return func(o *decodeOptions) {
		o.autoOrientation = enabled
	}
}

// decoder turns encoded bytes into a RawImage. Builds with the gocv tag
// replace it with an OpenCV implementation.
var decoder = decodeStd

// Decode decodes an encoded image (JPEG, PNG, GIF, BMP, TIFF or WebP) into a RawImage.
//
// Arguments:
//   - data: The encoded image bytes.
//   - opts: Decoding options.
//
// Returns:
//   - *RawImage: The decoded RGBA pixels.
//   - error: A decode error if the buffer is empty, malformed, truncated or of
//     an unsupported encoding.
//
// Example:
//
// ```go
//
//	raw, err := images.Decode(jpegBytes)
//	if errors.Is(err, common.ErrDecode) {
//	    // ask the user for another photo
//	}
//
// ```
func Decode(data []byte, opts ...DecodeOption) (*RawImage, error) {
	if len(data) == 0 {
		return nil, common.Errorf(common.KindDecode, "empty image data")
	}

	o := decodeOptions{autoOrientation: true}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := decoder(data, o)
	if err != nil {
		return nil, err
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, common.Errorf(common.KindDecode, "decoded image has invalid dimensions %dx%d", raw.Width, raw.Height)
	}
	return raw, nil
}

func decodeStd(data []byte, o decodeOptions) (*RawImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewError(common.KindDecode, errors.Wrap(err, "failed to read image header"))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, common.Errorf(common.KindDecode, "invalid dimensions: width=%d, height=%d", cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(o.autoOrientation))
	if err != nil {
		return nil, common.NewError(common.KindDecode, errors.Wrapf(err, "failed to decode %s image", format))
	}

	return fromImage(img, ImageFormat(format)), nil
}
