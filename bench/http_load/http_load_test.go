package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 0.0, percentile(nil, 50))
	assert.Equal(t, 3.0, percentile(data, 50))
	assert.Equal(t, 5.0, percentile(data, 100))
	assert.InDelta(t, 1.4, percentile(data, 10), 1e-9)
}

func TestTrimmedMean(t *testing.T) {
	assert.Equal(t, 0.0, trimmedMean(nil, 1))
	assert.Equal(t, 3.0, trimmedMean([]float64{1, 2, 3, 4, 100}, 20))
	assert.Equal(t, 7.0, trimmedMean([]float64{7}, 60))
	assert.Equal(t, 1.5, trimmedMean([]float64{1, 2}, 60))
}

func TestMerge(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, merge([][]float64{{3}, nil, {1, 2}}))
}
