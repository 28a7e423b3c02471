// Package benchmark - Functionality for running benchmarks.
package benchmark

import (
	"time"

	"github.com/nvr-ai/brewguard/detector"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	Iterations      int           `json:"iterations"`
	TotalDuration   time.Duration `json:"total_duration"`
	Decode          StageMetrics  `json:"decode"`
	Preprocess      StageMetrics  `json:"preprocess"`
	Inference       StageMetrics  `json:"inference"`
	Postprocess     StageMetrics  `json:"postprocess"`
	ImagesPerSecond float64       `json:"images_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	DetectionCount  int           `json:"detection_count"`
	EmptyCount      int           `json:"empty_count"`
	ErrorRate       float64       `json:"error_rate"`
}

// StageMetrics summarizes the durations of one pipeline stage.
type StageMetrics struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	Max  time.Duration `json:"max"`

	total time.Duration
	count int
}

func (s *StageMetrics) add(d time.Duration) {
	if s.count == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.total += d
	s.count++
	s.Mean = s.total / time.Duration(s.count)
}

func (m *PerformanceMetrics) addTimings(t detector.Timings) {
	m.Decode.add(t.Decode)
	m.Preprocess.add(t.Preprocess)
	m.Inference.add(t.Inference)
	m.Postprocess.add(t.Postprocess)
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}
