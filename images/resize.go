package images

import (
	"fmt"
	"strings"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/brewguard/common"
)

// ResampleFilter names the interpolation used when scaling images.
type ResampleFilter string

const (
	// NearestNeighborFilter uses nearest-neighbor interpolation (fastest, lowest quality).
	NearestNeighborFilter ResampleFilter = "nearest"
	// BilinearFilter uses bilinear interpolation (fast, good quality).
	BilinearFilter ResampleFilter = "bilinear"
	// BicubicFilter uses bicubic interpolation (slower, better quality).
	BicubicFilter ResampleFilter = "bicubic"
	// MitchellNetravaliFilter uses the Mitchell-Netravali cubic filter (balanced).
	MitchellNetravaliFilter ResampleFilter = "mitchell"
	// Lanczos2Filter uses Lanczos resampling with a=2.
	Lanczos2Filter ResampleFilter = "lanczos2"
	// Lanczos3Filter uses Lanczos resampling with a=3 (slowest, best quality).
	Lanczos3Filter ResampleFilter = "lanczos3"
)

var interpolations = map[ResampleFilter]resize.InterpolationFunction{
	NearestNeighborFilter:   resize.NearestNeighbor,
	BilinearFilter:          resize.Bilinear,
	BicubicFilter:           resize.Bicubic,
	MitchellNetravaliFilter: resize.MitchellNetravali,
	Lanczos2Filter:          resize.Lanczos2,
	Lanczos3Filter:          resize.Lanczos3,
}

// ParseFilter resolves a filter name. The empty string selects bilinear.
func ParseFilter(name string) (ResampleFilter, error) {
	f := ResampleFilter(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return BilinearFilter, nil
	}
	if _, ok := interpolations[f]; !ok {
		return "", fmt.Errorf("unsupported resample filter %q", name)
	}
	return f, nil
}

// Resize scales an image to exactly width×height pixels. The aspect ratio is not
// preserved.
//
// Arguments:
//   - raw: The source image.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//   - filter: The interpolation to use.
//
// Returns:
//   - *RawImage: A new image, or raw itself when it already has the target size.
//   - error: An error if the source is malformed or the target size is invalid.
func Resize(raw *RawImage, width, height int, filter ResampleFilter) (*RawImage, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, common.Errorf(common.KindShapeMismatch, "invalid dimensions: width=%d, height=%d", width, height)
	}
	if raw.Width == width && raw.Height == height {
		return raw, nil
	}

	interp, ok := interpolations[filter]
	if !ok {
		return nil, fmt.Errorf("unsupported resample filter %q", filter)
	}

	resized := resize.Resize(uint(width), uint(height), raw.Image(), interp)
	return fromImage(resized, raw.Format), nil
}

// ResizeSquare scales an image to side×side pixels.
func ResizeSquare(raw *RawImage, side int, filter ResampleFilter) (*RawImage, error) {
	return Resize(raw, side, side, filter)
}
