package validation

// findPeaks returns the indices of local maxima of x whose prominence is at
// least minProminence. Flat tops are reported at their middle sample
// (rounded down); the first and last samples are never peaks.
func findPeaks(x []float64, minProminence float64) []int {
	var peaks []int
	for _, p := range localMaxima(x) {
		if prominence(x, p) >= minProminence {
			peaks = append(peaks, p)
		}
	}
	return peaks
}

func localMaxima(x []float64) []int {
	var peaks []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			peaks = append(peaks, (i+ahead-1)/2)
			i = ahead
		}
	}
	return peaks
}

// prominence is the height of x[p] above the higher of the two lowest
// points reached before the signal rises above x[p] on either side.
func prominence(x []float64, p int) float64 {
	leftMin := x[p]
	for i := p; i >= 0 && x[i] <= x[p]; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}
	rightMin := x[p]
	for i := p; i < len(x) && x[i] <= x[p]; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}
	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return x[p] - base
}
