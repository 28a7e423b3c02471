// Package controller - Caller-side detection session: one image at a time, one
// detection in flight, stale results discarded.
package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nvr-ai/brewguard/detector"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrNoImage is returned by Run when no image is set.
	ErrNoImage = errors.New("no image selected")
	// ErrBusy is returned by Run while another detection is outstanding.
	ErrBusy = errors.New("a detection is already running")
	// ErrStale is returned when the image changed while its detection ran.
	ErrStale = errors.New("image changed during detection, result discarded")
)

// Detector runs detection on one encoded image.
type Detector interface {
	Detect(ctx context.Context, req detector.Request) (*detector.Result, error)
}

// State is what the last detection produced.
type State int

const (
	// StateNone means no detection has completed for the current image.
	StateNone State = iota
	// StateDetections means at least one condition was detected.
	StateDetections
	// StateEmpty means the detection succeeded but found nothing.
	StateEmpty
	// StateFailed means the detection failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDetections:
		return "detections"
	case StateEmpty:
		return "no detections"
	case StateFailed:
		return "failed"
	default:
		return "none"
	}
}

// Outcome is the applied result of a detection.
type Outcome struct {
	ImageID string
	State   State
	// Result is set unless State is StateFailed.
	Result *detector.Result
	// Err is set when State is StateFailed.
	Err error
}

type selection struct {
	id   string
	data []byte
}

// Controller holds the current image and applies detection results to it.
//
// It is safe for concurrent use: SetImage may be called while Run is
// outstanding, in which case the result of that run is discarded.
type Controller struct {
	detector Detector
	logger   *zap.Logger

	mu      sync.Mutex
	current *selection
	busy    bool
	last    *Outcome
}

// New creates a controller.
//
// Arguments:
//   - d: The detector to run.
//   - logger: The logger, may be nil.
//
// Returns:
//   - *Controller: The controller.
func New(d Detector, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{detector: d, logger: logger}
}

// SetImage makes data the current image and drops the previous outcome.
//
// Returns:
//   - string: The identity assigned to the image.
func (c *Controller) SetImage(data []byte) string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &selection{id: id, data: data}
	c.last = nil
	return id
}

// Clear drops the current image and the last outcome.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	c.last = nil
}

// CurrentID returns the identity of the current image, or "" when none is set.
func (c *Controller) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.id
}

// Busy reports whether a detection is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Last returns the last applied outcome, or nil.
func (c *Controller) Last() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Run detects on the current image.
//
// Arguments:
//   - ctx: Passed to the detector.
//
// Returns:
//   - *Outcome: The applied outcome.
//   - error: ErrNoImage, ErrBusy, ErrStale, or the detector error. A detector
//     error is also recorded as a failed outcome; calling Run again retries.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil, ErrNoImage
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.busy = true
	img := *c.current
	c.mu.Unlock()

	res, err := c.detector.Detect(ctx, detector.Request{ImageID: img.id, Data: img.data})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if c.current == nil || c.current.id != img.id {
		c.logger.Debug("discarding stale detection", zap.String("image_id", img.id))
		return nil, ErrStale
	}

	outcome := &Outcome{ImageID: img.id}
	switch {
	case err != nil:
		outcome.State = StateFailed
		outcome.Err = err
		c.logger.Warn("detection failed", zap.String("image_id", img.id), zap.Error(err))
	case res.Empty():
		outcome.State = StateEmpty
		outcome.Result = res
	default:
		outcome.State = StateDetections
		outcome.Result = res
	}
	c.last = outcome

	if err != nil {
		return outcome, err
	}
	return outcome, nil
}
