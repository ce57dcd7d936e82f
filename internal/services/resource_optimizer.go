package services

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

const (
	minBatchWorkers = 2
	maxBatchWorkers = 32

	cpuLoadThreshold    = 80.0
	memoryLoadThreshold = 85.0
)

// ResourceOptimizer sizes the batch worker pool from the host's CPU and
// memory headroom. Sizing happens once at construction; UpdateSystemMetrics
// can be called periodically to shrink the recommendation under load.
type ResourceOptimizer struct {
	logger *logrus.Logger

	mu                 sync.RWMutex
	cpuCores           int
	memoryGB           float64
	currentCPUUsage    float64
	currentMemoryUsage float64
	recommendedWorkers int
}

// NewResourceOptimizer probes the host and computes the initial worker
// recommendation. A failed memory probe falls back to a conservative 8 GB
// assumption.
func NewResourceOptimizer(logger *logrus.Logger) *ResourceOptimizer {
	ro := &ResourceOptimizer{
		logger:   logger,
		cpuCores: runtime.NumCPU(),
		memoryGB: 8.0,
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		ro.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		logger.WithError(err).Warn("Could not probe system memory, assuming 8GB")
	}

	ro.recalculate()

	logger.WithFields(logrus.Fields{
		"cpu_cores":           ro.cpuCores,
		"memory_gb":           ro.memoryGB,
		"recommended_workers": ro.recommendedWorkers,
	}).Info("Resource optimizer initialized")
	return ro
}

// RecommendedWorkers returns the current batch worker pool size.
func (ro *ResourceOptimizer) RecommendedWorkers() int {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	return ro.recommendedWorkers
}

// UpdateSystemMetrics refreshes CPU and memory usage and recomputes the
// worker recommendation.
func (ro *ResourceOptimizer) UpdateSystemMetrics(ctx context.Context) error {
	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return err
	}
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}

	ro.mu.Lock()
	if len(cpuPercent) > 0 {
		ro.currentCPUUsage = cpuPercent[0]
	}
	ro.currentMemoryUsage = memInfo.UsedPercent
	ro.mu.Unlock()

	ro.recalculate()
	return nil
}

func (ro *ResourceOptimizer) recalculate() {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	workers := ro.cpuCores * 2

	memoryFactor := 1.0
	if ro.memoryGB < 4.0 {
		memoryFactor = 0.5
	} else if ro.memoryGB < 8.0 {
		memoryFactor = 0.75
	}

	loadFactor := 1.0
	if ro.currentCPUUsage > cpuLoadThreshold {
		loadFactor = 0.7
	} else if ro.currentMemoryUsage > memoryLoadThreshold {
		loadFactor = 0.8
	}

	workers = int(float64(workers) * memoryFactor * loadFactor)
	if workers < minBatchWorkers {
		workers = minBatchWorkers
	}
	if workers > maxBatchWorkers {
		workers = maxBatchWorkers
	}
	ro.recommendedWorkers = workers
}
