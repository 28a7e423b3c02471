package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nvr-ai/brewguard/detector"
	"github.com/nvr-ai/brewguard/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detector is the pipeline under test.
type Detector interface {
	Detect(ctx context.Context, req detector.Request) (*detector.Result, error)
}

// Scenario describes one benchmark run.
type Scenario struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations"`
	WarmupRuns int    `json:"warmup_runs"`
}

// Validate checks the scenario.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if s.Iterations <= 0 {
		return errors.Errorf("scenario %q needs at least one iteration", s.Name)
	}
	if s.WarmupRuns < 0 {
		return errors.Errorf("scenario %q has negative warmup runs", s.Name)
	}
	return nil
}

// Suite runs detection scenarios over a fixed set of images.
type Suite struct {
	detector Detector
	images   []util.ImageFile
	logger   *zap.Logger

	mu      sync.RWMutex
	results []PerformanceMetrics
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - d: The detector to measure.
//   - images: The images to cycle through.
//   - logger: The logger, may be nil.
//
// Returns:
//   - *Suite: The suite.
//   - error: An error if there are no images.
func NewSuite(d Detector, images []util.ImageFile, logger *zap.Logger) (*Suite, error) {
	if len(images) == 0 {
		return nil, errors.New("benchmark needs at least one image")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{detector: d, images: images, logger: logger}, nil
}

// RunScenario runs one scenario and records its metrics.
//
// Failed detections count toward the error rate and do not stop the run.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := s.detect(ctx, i); err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	metrics := &PerformanceMetrics{
		Scenario:   scenario,
		Timestamp:  time.Now(),
		Iterations: scenario.Iterations,
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	startTime := time.Now()
	failures := 0
	for i := 0; i < scenario.Iterations; i++ {
		res, err := s.detect(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			s.logger.Debug("benchmark detection failed", zap.String("scenario", scenario.Name), zap.Error(err))
			continue
		}
		metrics.addTimings(res.Timings)
		metrics.DetectionCount += len(res.Detections)
		if res.Empty() {
			metrics.EmptyCount++
		}
	}
	metrics.TotalDuration = time.Since(startTime)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.ImagesPerSecond = float64(scenario.Iterations-failures) / secs
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}

	s.mu.Lock()
	s.results = append(s.results, *metrics)
	s.mu.Unlock()

	s.logger.Info("benchmark scenario complete",
		zap.String("scenario", scenario.Name),
		zap.Float64("images_per_second", metrics.ImagesPerSecond),
		zap.Duration("inference_mean", metrics.Inference.Mean),
		zap.Float64("error_rate", metrics.ErrorRate),
	)
	return metrics, nil
}

func (s *Suite) detect(ctx context.Context, i int) (*detector.Result, error) {
	img := s.images[i%len(s.images)]
	return s.detector.Detect(ctx, detector.Request{Data: img.Data})
}

// SaveResults writes every result as JSON and a CSV summary into dir.
//
// Returns:
//   - []string: The written file paths.
//   - error: An error if a file cannot be written.
func (s *Suite) SaveResults(dir string) ([]string, error) {
	results := s.GetResults()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(dir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return nil, errors.Wrap(err, "failed to save summary CSV")
	}
	return []string{resultsFile, summaryFile}, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(file)
	header := []string{"scenario", "iterations", "images_per_second", "total_ms", "inference_mean_ms", "alloc_mb", "detections", "empty", "error_rate"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Scenario.Name,
			strconv.Itoa(r.Iterations),
			strconv.FormatFloat(r.ImagesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.TotalDuration.Nanoseconds())/1e6, 'f', 2, 64),
			strconv.FormatFloat(float64(r.Inference.Mean.Nanoseconds())/1e6, 'f', 3, 64),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.Itoa(r.EmptyCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// GetResults returns all benchmark results
func (s *Suite) GetResults() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]PerformanceMetrics, len(s.results))
	copy(results, s.results)
	return results
}
