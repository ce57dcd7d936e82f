package monitor

import "math"

const (
	driftBins    = 10
	driftEpsilon = 1e-4
)

// populationStabilityIndex measures how far the window's probability
// distribution has shifted from the training-time reference. Probabilities
// are binned into ten equal-width bins over [0,1]; each bin contributes
// (actual - expected) * ln(actual/expected), with an epsilon floor so empty
// bins stay finite. Identical distributions score 0; conventional cutoffs
// read <0.10 as stable, 0.10-0.25 as moderate shift, >0.25 as major shift.
func populationStabilityIndex(probabilities []float64, reference []float64) float64 {
	if len(probabilities) == 0 || len(reference) != driftBins {
		return 0
	}

	actual := binProportions(probabilities)

	var psi float64
	for i := 0; i < driftBins; i++ {
		a := math.Max(actual[i], driftEpsilon)
		e := math.Max(reference[i], driftEpsilon)
		psi += (a - e) * math.Log(a/e)
	}
	return psi
}

// binProportions buckets probabilities into ten equal-width bins over [0,1]
// and returns each bin's share. A probability of exactly 1.0 lands in the
// last bin.
func binProportions(probabilities []float64) []float64 {
	counts := make([]float64, driftBins)
	for _, p := range probabilities {
		bin := int(p * driftBins)
		if bin >= driftBins {
			bin = driftBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
	}

	total := float64(len(probabilities))
	for i := range counts {
		counts[i] /= total
	}
	return counts
}
