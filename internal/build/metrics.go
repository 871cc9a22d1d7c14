package build

import (
	"sync"
	"time"
)

// BuildMetrics counts compilations over the lifetime of a Compiler.
type BuildMetrics struct {
	TotalBuilds      int64         `json:"totalBuilds"`
	SuccessfulBuilds int64         `json:"successfulBuilds"`
	FailedBuilds     int64         `json:"failedBuilds"`
	TotalWarnings    int64         `json:"totalWarnings"`
	LastDuration     time.Duration `json:"lastDuration"`
	AverageDuration  time.Duration `json:"averageDuration"`
	TotalDuration    time.Duration `json:"totalDuration"`
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records one Compile call.
func (bm *BuildMetrics) RecordBuild(duration time.Duration, warnings int, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds++
	bm.TotalDuration += duration
	bm.LastDuration = duration

	if err != nil {
		bm.FailedBuilds++
	} else {
		bm.SuccessfulBuilds++
		bm.TotalWarnings += int64(warnings)
	}

	bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalBuilds)
}

// GetSnapshot returns a copy of the current counters.
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return BuildMetrics{
		TotalBuilds:      bm.TotalBuilds,
		SuccessfulBuilds: bm.SuccessfulBuilds,
		FailedBuilds:     bm.FailedBuilds,
		TotalWarnings:    bm.TotalWarnings,
		LastDuration:     bm.LastDuration,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
	}
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds = 0
	bm.SuccessfulBuilds = 0
	bm.FailedBuilds = 0
	bm.TotalWarnings = 0
	bm.LastDuration = 0
	bm.AverageDuration = 0
	bm.TotalDuration = 0
}

// GetSuccessRate returns the success rate as a percentage
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalBuilds == 0 {
		return 0.0
	}

	return float64(bm.SuccessfulBuilds) / float64(bm.TotalBuilds) * 100.0
}
