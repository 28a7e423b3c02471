package benchmark

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nvr-ai/brewguard/detector"
	"github.com/nvr-ai/brewguard/models/postprocess"
	"github.com/nvr-ai/brewguard/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDetector for testing
type MockDetector struct {
	calls      int
	failEvery  int
	detections int
}

func (m *MockDetector) Detect(ctx context.Context, req detector.Request) (*detector.Result, error) {
	m.calls++
	if m.failEvery > 0 && m.calls%m.failEvery == 0 {
		return nil, errors.New("mock detection error")
	}
	res := &detector.Result{
		ImageID:    req.ImageID,
		Detections: make([]postprocess.Detection, m.detections),
		Timings: detector.Timings{
			Decode:      time.Duration(m.calls) * time.Millisecond,
			Preprocess:  time.Millisecond,
			Inference:   10 * time.Millisecond,
			Postprocess: time.Microsecond,
		},
	}
	return res, nil
}

func testImages() []util.ImageFile {
	return []util.ImageFile{{Path: "a.jpg", Data: []byte("a")}, {Path: "b.jpg", Data: []byte("b")}}
}

func TestNewSuite(t *testing.T) {
	_, err := NewSuite(&MockDetector{}, nil, nil)
	assert.Error(t, err)

	suite, err := NewSuite(&MockDetector{}, testImages(), nil)
	require.NoError(t, err)
	assert.Empty(t, suite.GetResults())
}

func TestScenarioValidate(t *testing.T) {
	assert.NoError(t, Scenario{Name: "ok", Iterations: 1}.Validate())
	assert.Error(t, Scenario{Iterations: 1}.Validate())
	assert.Error(t, Scenario{Name: "zero"}.Validate())
	assert.Error(t, Scenario{Name: "warmup", Iterations: 1, WarmupRuns: -1}.Validate())
}

func TestRunScenario(t *testing.T) {
	mock := &MockDetector{detections: 2}
	suite, err := NewSuite(mock, testImages(), nil)
	require.NoError(t, err)

	metrics, err := suite.RunScenario(context.Background(), Scenario{Name: "cpu", Iterations: 4, WarmupRuns: 2})
	require.NoError(t, err)

	assert.Equal(t, 6, mock.calls, "warmup runs are not measured")
	assert.Equal(t, 4, metrics.Iterations)
	assert.Equal(t, 8, metrics.DetectionCount)
	assert.Zero(t, metrics.EmptyCount)
	assert.Zero(t, metrics.ErrorRate)
	assert.Equal(t, 3*time.Millisecond, metrics.Decode.Min)
	assert.Equal(t, 6*time.Millisecond, metrics.Decode.Max)
	assert.Equal(t, 4500*time.Microsecond, metrics.Decode.Mean)
	assert.Equal(t, 10*time.Millisecond, metrics.Inference.Mean)
	assert.Len(t, suite.GetResults(), 1)
}

func TestRunScenarioCountsFailures(t *testing.T) {
	mock := &MockDetector{failEvery: 2}
	suite, err := NewSuite(mock, testImages(), nil)
	require.NoError(t, err)

	metrics, err := suite.RunScenario(context.Background(), Scenario{Name: "flaky", Iterations: 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, metrics.ErrorRate, 1e-9)
	assert.Equal(t, 2, metrics.EmptyCount)
}

func TestSaveResults(t *testing.T) {
	suite, err := NewSuite(&MockDetector{detections: 1}, testImages(), nil)
	require.NoError(t, err)
	_, err = suite.RunScenario(context.Background(), Scenario{Name: "cpu", Iterations: 2})
	require.NoError(t, err)

	files, err := suite.SaveResults(t.TempDir())
	require.NoError(t, err)
	require.Len(t, files, 2)

	f, err := os.Open(files[1])
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "scenario", rows[0][0])
	assert.Equal(t, "cpu", rows[1][0])
	assert.Equal(t, "2", rows[1][6])
}
