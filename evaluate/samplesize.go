package evaluate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleSize is the number of examples needed to estimate a rate, such as
// the accuracy, within margin at the given confidence level (both as
// fractions, e.g. 0.95 and 0.05) for a population of the given size. It
// assumes the worst case rate of 0.5 and applies the finite population
// correction. Invalid confidence or margin values ask for the whole
// population.
func SampleSize(population int, confidence, margin float64) int {
	if population <= 0 {
		return 0
	}
	if confidence <= 0 || confidence >= 1 || margin <= 0 {
		return population
	}
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	infinite := z * z * 0.25 / (margin * margin)
	corrected := infinite * float64(population) / (float64(population) - 1 + infinite)
	return min(int(math.Ceil(corrected)), population)
}

// BatchesForSampleSize is the number of batches of batchSize covering
// SampleSize examples.
func BatchesForSampleSize(population int, confidence, margin float64, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return (SampleSize(population, confidence, margin) + batchSize - 1) / batchSize
}
