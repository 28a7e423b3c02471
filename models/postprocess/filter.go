package postprocess

import (
	"fmt"

	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/models"
)

// Default score thresholds.
const (
	DefaultConfidenceThreshold float32 = 0.25
	DefaultClassScoreThreshold float32 = 0.25
)

// Thresholds are the minimum scores a row must exceed to become a detection.
type Thresholds struct {
	// Confidence is compared with the row's objectness score.
	Confidence float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// ClassScore is compared with the row's best class score.
	ClassScore float32 `json:"class_score_threshold" yaml:"class_score_threshold"`
}

// DefaultThresholds returns the thresholds the detector was calibrated with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Confidence: DefaultConfidenceThreshold,
		ClassScore: DefaultClassScoreThreshold,
	}
}

// Validate checks that both thresholds lie in [0, 1].
func (t Thresholds) Validate() error {
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("confidence threshold %v is outside [0, 1]", t.Confidence)
	}
	if t.ClassScore < 0 || t.ClassScore > 1 {
		return fmt.Errorf("class score threshold %v is outside [0, 1]", t.ClassScore)
	}
	return nil
}

// Detection is a labeled box in normalized image coordinates.
type Detection struct {
	// Row is the output row the detection was decoded from.
	Row int `json:"row" yaml:"row"`
	// Box is clamped to [0, 1].
	Box common.Box `json:"box" yaml:"box"`
	// ClassIndex is the class slot in the catalog.
	ClassIndex int `json:"class_index" yaml:"class_index"`
	// Label is the class name.
	Label string `json:"label" yaml:"label"`
	// Score is confidence times class score, in [0, 1].
	Score float32 `json:"score" yaml:"score"`
}

func (d Detection) String() string {
	return fmt.Sprintf("%s (score %.3f): %s", d.Label, d.Score, d.Box)
}

// Filter turns candidates into detections.
type Filter struct {
	Classes    *models.OutputClassSet
	Thresholds Thresholds
}

// NewFilter creates a filter for the given catalog and thresholds.
func NewFilter(classes *models.OutputClassSet, thresholds Thresholds) (*Filter, error) {
	if classes == nil || classes.Len() == 0 {
		return nil, fmt.Errorf("class catalog is empty")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Filter{Classes: classes, Thresholds: thresholds}, nil
}

// Apply keeps candidates whose confidence and class score both strictly exceed
// the thresholds, in scan order. Overlapping boxes are not suppressed.
//
// Arguments:
//   - candidates: Decoded rows in scan order.
//
// Returns:
//   - []Detection: The detections; empty, never nil, when nothing passes.
func (f *Filter) Apply(candidates []Candidate) []Detection {
	out := make([]Detection, 0)
	for _, c := range candidates {
		if !(c.Confidence > f.Thresholds.Confidence) || !(c.ClassScore > f.Thresholds.ClassScore) {
			continue
		}
		label, err := f.Classes.GetName(c.ClassIndex)
		if err != nil {
			label = fmt.Sprintf("class_%d", c.ClassIndex)
		}
		out = append(out, Detection{
			Row:        c.Row,
			Box:        c.Box.Clamp(),
			ClassIndex: c.ClassIndex,
			Label:      label,
			Score:      common.Clamp01(c.Confidence * c.ClassScore),
		})
	}
	return out
}
