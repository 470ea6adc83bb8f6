// Package alignment resamples complex signals onto another frequency grid.
package alignment

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrLengthMismatch is returned when the source axis and values differ in length.
var ErrLengthMismatch = errors.New("source frequencies and values differ in length")

// Align linearly interpolates the real and imaginary parts of source onto
// every target frequency. Targets outside [min, max] of sourceFreq are
// filled with exactly 0+0i; no extrapolation is done. A target equal to a
// source frequency returns that sample unchanged.
func Align(sourceFreq []float64, source []complex128, target []float64) ([]complex128, error) {
	if len(sourceFreq) != len(source) {
		return nil, fmt.Errorf("%w: %d frequencies, %d values", ErrLengthMismatch, len(sourceFreq), len(source))
	}

	out := make([]complex128, len(target))
	if len(source) == 0 {
		return out, nil
	}

	xs, ys := sortedCopy(sourceFreq, source)
	lo, hi := xs[0], xs[len(xs)-1]

	for i, t := range target {
		if math.IsNaN(t) || t < lo || t > hi {
			continue
		}
		j := sort.SearchFloat64s(xs, t)
		if xs[j] == t {
			out[i] = ys[j]
			continue
		}
		x0, x1 := xs[j-1], xs[j]
		y0, y1 := ys[j-1], ys[j]
		frac := (t - x0) / (x1 - x0)
		out[i] = complex(
			real(y0)+frac*(real(y1)-real(y0)),
			imag(y0)+frac*(imag(y1)-imag(y0)),
		)
	}
	return out, nil
}

// Overlap returns the portion of target covered by the span of sourceFreq
// and the fraction of target points that fall inside it.
func Overlap(sourceFreq, target []float64) (lo, hi, fraction float64) {
	if len(sourceFreq) == 0 || len(target) == 0 {
		return 0, 0, 0
	}
	srcLo, srcHi := bounds(sourceFreq)
	tLo, tHi := bounds(target)
	lo, hi = math.Max(srcLo, tLo), math.Min(srcHi, tHi)

	inside := 0
	for _, t := range target {
		if t >= srcLo && t <= srcHi {
			inside++
		}
	}
	if inside == 0 {
		return 0, 0, 0
	}
	return lo, hi, float64(inside) / float64(len(target))
}

func bounds(x []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// sortedCopy orders samples by frequency, keeping the original order of
// equal frequencies. Already sorted input is returned as is.
func sortedCopy(x []float64, y []complex128) ([]float64, []complex128) {
	if sort.Float64sAreSorted(x) {
		return x, y
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	xs := make([]float64, len(x))
	ys := make([]complex128, len(y))
	for i, k := range idx {
		xs[i], ys[i] = x[k], y[k]
	}
	return xs, ys
}
