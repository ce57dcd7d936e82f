package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceOptimizer_RecommendedWorkersBounds(t *testing.T) {
	ro := NewResourceOptimizer(quietLogger())

	workers := ro.RecommendedWorkers()
	assert.GreaterOrEqual(t, workers, minBatchWorkers)
	assert.LessOrEqual(t, workers, maxBatchWorkers)
}

func TestResourceOptimizer_LoadShrinksRecommendation(t *testing.T) {
	ro := NewResourceOptimizer(quietLogger())
	baseline := ro.RecommendedWorkers()

	ro.mu.Lock()
	ro.currentCPUUsage = 95.0
	ro.mu.Unlock()
	ro.recalculate()

	assert.LessOrEqual(t, ro.RecommendedWorkers(), baseline)
}
