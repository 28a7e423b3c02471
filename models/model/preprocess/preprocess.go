// Package preprocess - Converts decoded images into model input tensors.
package preprocess

import (
	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/images"
	"github.com/nvr-ai/brewguard/inference"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Channels is the number of color channels fed to the model. Alpha is dropped.
const Channels = 3

// Pack converts a side×side RGBA image into a [1, 3, side, side] tensor.
//
// Values are divided by 255 and laid out channel-major (NCHW): every row of the
// red plane, then green, then blue. The result is deterministic for a given
// image.
//
// Arguments:
//   - raw: The image, already resized to side×side.
//   - side: The model's square input size.
//
// Returns:
//   - inference.Tensor: A newly allocated tensor owned by the caller.
//   - error: A shape mismatch error if the image is malformed or not side×side.
//
// @example
// t, err := preprocess.Pack(raw, 640) // len(t.Data) == 3*640*640
func Pack(raw *images.RawImage, side int) (inference.Tensor, error) {
	if side <= 0 {
		return inference.Tensor{}, common.Errorf(common.KindShapeMismatch, "invalid input size %d", side)
	}
	data := make([]float32, Channels*side*side)
	if err := PackInto(data, raw, side); err != nil {
		return inference.Tensor{}, err
	}
	s := int64(side)
	return inference.Tensor{Shape: []int64{1, Channels, s, s}, Data: data}, nil
}

// PackInto is Pack writing into a caller-provided buffer of exactly 3*side*side values.
func PackInto(dst []float32, raw *images.RawImage, side int) error {
	if err := raw.Validate(); err != nil {
		return errors.Wrap(err, "input validation failed")
	}
	if raw.Width != side || raw.Height != side {
		return common.Errorf(common.KindShapeMismatch,
			"image is %dx%d, model expects %dx%d", raw.Width, raw.Height, side, side)
	}
	plane := side * side
	if len(dst) != Channels*plane {
		return common.Errorf(common.KindShapeMismatch,
			"destination holds %d floats, needs %d", len(dst), Channels*plane)
	}

	red := dst[0:plane]
	green := dst[plane : 2*plane]
	blue := dst[2*plane : 3*plane]

	pix := raw.Data
	for i := 0; i < plane; i++ {
		p := pix[i*4 : i*4+4 : i*4+4]
		red[i] = float32(p[0]) / 255.0
		green[i] = float32(p[1]) / 255.0
		blue[i] = float32(p[2]) / 255.0
	}
	return nil
}

// Config defines preprocessing for the detection model.
type Config struct {
	// InputSize is the side of the square model input.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Filter is the resampling filter used when the image is not already square.
	Filter images.ResampleFilter `json:"filter" yaml:"filter"`
}

// Preprocessor resizes decoded images to the model input size and packs them.
type Preprocessor struct {
	config Config
	logger *zap.Logger
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The preprocessing configuration.
//   - logger: Debug logger, may be nil.
//
// Returns:
//   - *Preprocessor: A configured preprocessor.
//   - error: An error if the input size or filter is invalid.
func NewPreprocessor(config Config, logger *zap.Logger) (*Preprocessor, error) {
	if config.InputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", config.InputSize)
	}
	filter, err := images.ParseFilter(string(config.Filter))
	if err != nil {
		return nil, err
	}
	config.Filter = filter
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preprocessor{config: config, logger: logger}, nil
}

// Preprocess resizes raw to the model input size and packs it.
//
// Arguments:
//   - raw: A decoded image of any size.
//
// Returns:
//   - inference.Tensor: The [1, 3, S, S] input tensor.
//   - error: A shape mismatch error if raw is malformed.
func (p *Preprocessor) Preprocess(raw *images.RawImage) (inference.Tensor, error) {
	if err := raw.Validate(); err != nil {
		return inference.Tensor{}, errors.Wrap(err, "input validation failed")
	}

	resized, err := images.ResizeSquare(raw, p.config.InputSize, p.config.Filter)
	if err != nil {
		return inference.Tensor{}, errors.Wrap(err, "image resizing failed")
	}
	p.logger.Debug("resized image",
		zap.Int("width", raw.Width),
		zap.Int("height", raw.Height),
		zap.Int("size", p.config.InputSize),
		zap.String("filter", string(p.config.Filter)),
	)

	return Pack(resized, p.config.InputSize)
}

// InputSize returns the configured model input side.
func (p *Preprocessor) InputSize() int {
	return p.config.InputSize
}
