package detector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/brewguard/images"
	"github.com/nvr-ai/brewguard/inference"
	"github.com/nvr-ai/brewguard/models"
	"github.com/nvr-ai/brewguard/models/model/preprocess"
	"github.com/nvr-ai/brewguard/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Request is one image to run detection on.
type Request struct {
	// ImageID identifies the image. A random ID is assigned when empty.
	ImageID string
	// Data holds the encoded image bytes.
	Data []byte
}

// Timings break down where a detection spent its time.
type Timings struct {
	Decode      time.Duration `json:"decode"`
	Preprocess  time.Duration `json:"preprocess"`
	Inference   time.Duration `json:"inference"`
	Postprocess time.Duration `json:"postprocess"`
}

// Total returns the sum of all stages.
func (t Timings) Total() time.Duration {
	return t.Decode + t.Preprocess + t.Inference + t.Postprocess
}

// Result is the outcome of a detection, tagged with the image it was run on.
type Result struct {
	// ImageID is the identity of the image, for discarding stale results.
	ImageID string `json:"image_id"`
	// Width and Height are the dimensions of the decoded image.
	Width  int `json:"width"`
	Height int `json:"height"`
	// Output is the name of the model output that was decoded.
	Output string `json:"output"`
	// Layout is the layout the output was decoded with.
	Layout postprocess.Layout `json:"layout"`
	// Detections are in output row order.
	Detections []postprocess.Detection `json:"detections"`
	// Diagnostics describe recovered output anomalies.
	Diagnostics []string `json:"diagnostics,omitempty"`
	Timings     Timings  `json:"timings"`
}

// Empty reports whether nothing was detected.
func (r *Result) Empty() bool {
	return len(r.Detections) == 0
}

// Detector runs the full pipeline: decode, resize, pack, infer, decode the
// output, filter.
//
// A Detector owns its gateway and is not safe for concurrent use; callers run
// one detection at a time.
type Detector struct {
	gateway inference.Gateway
	config  Config
	classes *models.OutputClassSet
	pre     *preprocess.Preprocessor
	interp  *postprocess.Interpreter
	filter  *postprocess.Filter
	logger  *zap.Logger
}

// New creates a detector.
//
// Arguments:
//   - gateway: The model runtime. The detector takes ownership and closes it.
//   - config: The detector configuration.
//   - logger: The logger, may be nil.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if the configuration is invalid.
func New(gateway inference.Gateway, config Config, logger *zap.Logger) (*Detector, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	classes, err := config.Classes()
	if err != nil {
		return nil, err
	}
	pre, err := preprocess.NewPreprocessor(preprocess.Config{
		InputSize: config.Model.InputSize,
		Filter:    config.Resample,
	}, logger)
	if err != nil {
		return nil, err
	}
	interp, err := postprocess.NewInterpreter(classes.Len(), logger)
	if err != nil {
		return nil, err
	}
	filter, err := postprocess.NewFilter(classes, config.Thresholds)
	if err != nil {
		return nil, err
	}

	return &Detector{
		gateway: gateway,
		config:  config,
		classes: classes,
		pre:     pre,
		interp:  interp,
		filter:  filter,
		logger:  logger,
	}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Classes returns the class catalog.
func (d *Detector) Classes() *models.OutputClassSet {
	return d.classes
}

// Detect decodes an encoded image and runs detection on it.
//
// Arguments:
//   - ctx: Cancels the detection before or after inference.
//   - req: The image.
//
// Returns:
//   - *Result: The detections, possibly none.
//   - error: A decode, shape mismatch, model load, inference or output format
//     error. No detections is not an error.
func (d *Detector) Detect(ctx context.Context, req Request) (*Result, error) {
	id := req.ImageID
	if id == "" {
		id = uuid.NewString()
	}

	start := time.Now()
	raw, err := images.Decode(req.Data, images.WithAutoOrientation(d.config.AutoOrient))
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", id)
	}
	decodeTime := time.Since(start)

	res, err := d.DetectRaw(ctx, id, raw)
	if err != nil {
		return nil, err
	}
	res.Timings.Decode = decodeTime
	return res, nil
}

// DetectRaw runs detection on a decoded image, resizing it to the model input
// size when needed.
func (d *Detector) DetectRaw(ctx context.Context, id string, raw *images.RawImage) (*Result, error) {
	if id == "" {
		id = uuid.NewString()
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	res := &Result{ImageID: id}
	if raw != nil {
		res.Width, res.Height = raw.Width, raw.Height
	}

	start := time.Now()
	input, err := d.pre.Preprocess(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", id)
	}
	res.Timings.Preprocess = time.Since(start)

	start = time.Now()
	outputs, err := d.gateway.Run(ctx, map[string]inference.Tensor{d.config.Model.InputName: input})
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", id)
	}
	res.Timings.Inference = time.Since(start)

	start = time.Now()
	out, err := inference.SelectOutput(outputs, d.config.Model.OutputNames)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", id)
	}
	decoded, err := d.interp.Interpret(out.Tensor)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s: output %q", id, out.Name)
	}
	res.Output = out.Name
	res.Layout = decoded.Layout
	res.Diagnostics = decoded.Diagnostics
	res.Detections = d.filter.Apply(decoded.Candidates)
	res.Timings.Postprocess = time.Since(start)

	d.logger.Debug("detection complete",
		zap.String("image_id", id),
		zap.String("output", out.Name),
		zap.Stringer("layout", decoded.Layout),
		zap.Int("rows", decoded.Rows),
		zap.Int("detections", len(res.Detections)),
		zap.Duration("preprocess", res.Timings.Preprocess),
		zap.Duration("inference", res.Timings.Inference),
		zap.Duration("postprocess", res.Timings.Postprocess),
	)
	return res, nil
}

// Close releases the gateway.
func (d *Detector) Close() error {
	return d.gateway.Close()
}
