package postprocess

import (
	"fmt"

	"github.com/nvr-ai/brewguard/common"
	"github.com/nvr-ai/brewguard/inference"
	"go.uber.org/zap"
)

// Candidate is one decoded output row before thresholds are applied.
type Candidate struct {
	// Row is the index of the row in scan order.
	Row int
	// Box is in corner form, unclamped.
	Box common.Box
	// ClassIndex is the slot of the highest class score, lowest index on ties.
	ClassIndex int
	// Confidence is the objectness score of the row.
	Confidence float32
	// ClassScore is the score at ClassIndex.
	ClassScore float32
}

// Decoded is the result of interpreting one output tensor.
type Decoded struct {
	Layout     Layout
	Rows       int
	Candidates []Candidate
	// Diagnostics describe anomalies that were recovered as an empty result.
	Diagnostics []string
}

// Interpreter decodes detector output rows for a fixed number of classes.
type Interpreter struct {
	numClasses int
	logger     *zap.Logger
}

// NewInterpreter creates an interpreter for rows with numClasses class-score slots.
//
// Arguments:
//   - numClasses: The size of the class catalog.
//   - logger: Receives diagnostics, may be nil.
//
// Returns:
//   - *Interpreter: The interpreter.
//   - error: An error if numClasses is not positive.
func NewInterpreter(numClasses int, logger *zap.Logger) (*Interpreter, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("number of classes must be positive, got %d", numClasses)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{numClasses: numClasses, logger: logger}, nil
}

// RowLength returns the minimum row length: four box values, confidence, and class scores.
func (p *Interpreter) RowLength() int {
	return slotClasses + p.numClasses
}

// Interpret decodes every row of an output tensor.
//
// The layout is chosen once from the shape. Row tensors keep their boxes as
// they are; flat tensors are converted from center to corner form. A tensor
// that does not divide into whole rows yields no candidates and a diagnostic.
//
// Arguments:
//   - t: The selected model output.
//
// Returns:
//   - *Decoded: The candidates in row order.
//   - error: An output format error if the tensor holds no data.
//
// @example
// dec, err := p.Interpret(inference.Tensor{Shape: []int64{1, 1, 9}, Data: row})
func (p *Interpreter) Interpret(t inference.Tensor) (*Decoded, error) {
	if len(t.Data) == 0 {
		return nil, common.Errorf(common.KindOutputFormat, "output tensor is empty (shape %v)", t.Shape)
	}

	switch layout := DetectLayout(t.Shape); layout {
	case LayoutRows:
		return p.decodeRows(t), nil
	default:
		return p.decodeFlat(t), nil
	}
}

// decodeRows handles [batch, boxes, rowLength]. Only the first batch is scanned.
func (p *Interpreter) decodeRows(t inference.Tensor) *Decoded {
	dec := &Decoded{Layout: LayoutRows}
	boxes, rowLen := t.Shape[1], t.Shape[2]

	if boxes <= 0 || rowLen <= 0 {
		return p.recover(dec, t, int(rowLen), fmt.Sprintf("output shape %v has no rows", t.Shape))
	}
	if int(rowLen) < p.RowLength() {
		return p.recover(dec, t, int(rowLen),
			fmt.Sprintf("row length %d is shorter than %d for %d classes", rowLen, p.RowLength(), p.numClasses))
	}
	if boxes > int64(len(t.Data))/rowLen {
		return p.recover(dec, t, int(rowLen),
			fmt.Sprintf("output holds %d values, too few for shape %v", len(t.Data), t.Shape))
	}

	n, stride := int(boxes), int(rowLen)
	dec.Rows = n
	dec.Candidates = make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		row := t.Data[i*stride : (i+1)*stride]
		c := p.candidate(i, row)
		c.Box = common.Box{X: row[slotX], Y: row[slotY], Width: row[slotWidth], Height: row[slotHeight]}
		dec.Candidates = append(dec.Candidates, c)
	}
	return dec
}

// decodeFlat handles a flat sequence of rows of exactly RowLength values.
func (p *Interpreter) decodeFlat(t inference.Tensor) *Decoded {
	dec := &Decoded{Layout: LayoutFlat}
	stride := p.RowLength()

	if len(t.Data)%stride != 0 {
		return p.recover(dec, t, stride,
			fmt.Sprintf("output length %d is not a multiple of row length %d", len(t.Data), stride))
	}

	n := len(t.Data) / stride
	dec.Rows = n
	dec.Candidates = make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		row := t.Data[i*stride : (i+1)*stride]
		c := p.candidate(i, row)
		c.Box = common.FromCenter(row[slotX], row[slotY], row[slotWidth], row[slotHeight])
		dec.Candidates = append(dec.Candidates, c)
	}
	return dec
}

// candidate scans the class slots with a strict comparison starting from zero,
// so ties keep the lowest index and non-positive scores leave class 0 at score 0.
func (p *Interpreter) candidate(i int, row []float32) Candidate {
	best, bestScore := 0, float32(0)
	for j, s := range row[slotClasses : slotClasses+p.numClasses] {
		if s > bestScore {
			best, bestScore = j, s
		}
	}
	return Candidate{
		Row:        i,
		ClassIndex: best,
		Confidence: row[slotConfidence],
		ClassScore: bestScore,
	}
}

func (p *Interpreter) recover(dec *Decoded, t inference.Tensor, rowLen int, msg string) *Decoded {
	dec.Diagnostics = append(dec.Diagnostics, msg)
	p.logger.Warn("unexpected output layout, no detections decoded",
		zap.Stringer("layout", dec.Layout),
		zap.Int64s("shape", t.Shape),
		zap.Int("length", len(t.Data)),
		zap.Int("row_length", rowLen),
		zap.String("reason", msg),
	)
	return dec
}
