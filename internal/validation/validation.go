// Package validation scores a reconstructed FRF against an experimental
// reference: magnitude error metrics, the frequency response assurance
// criterion and a peak-by-peak resonance comparison.
package validation

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RMahshie/emav/internal/alignment"
	"github.com/RMahshie/emav/pkg/models"
)

const (
	// ProminenceRatio scales max|reference| into the peak prominence threshold.
	ProminenceRatio = 0.1
	// ToleranceRatio scales the frequency span into the peak matching distance.
	ToleranceRatio = 0.05
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation precondition failed")

// ValidationError reports inputs the metrics cannot be computed from.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Reason, e.Err)
	}
	return "validation error: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Mode selects how the reconstructed record is turned into complex values.
type Mode string

const (
	// ModeComplex reads the reconstructed record as real/imaginary pairs.
	ModeComplex Mode = "complex"
	// ModeAmplitude reads column 0 of the reconstructed record as a magnitude
	// with zero phase.
	ModeAmplitude Mode = "amplitude"
)

// ParseMode maps a configuration or request string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeComplex, "":
		return ModeComplex, nil
	case ModeAmplitude:
		return ModeAmplitude, nil
	default:
		return "", fmt.Errorf("unknown reconstructed mode %q", s)
	}
}

// Compute scores reconstructed against reference, both sampled on freq.
func Compute(freq []float64, reference, reconstructed []complex128) (models.ValidationReport, error) {
	n := len(freq)
	if n == 0 {
		return models.ValidationReport{}, &ValidationError{Reason: "empty frequency grid"}
	}
	if len(reference) != n || len(reconstructed) != n {
		return models.ValidationReport{}, &ValidationError{
			Reason: fmt.Sprintf("shape mismatch: %d frequencies, %d reference, %d reconstructed values",
				n, len(reference), len(reconstructed)),
		}
	}

	magRef := magnitudes(reference)
	magRec := magnitudes(reconstructed)

	report := models.ValidationReport{
		PointCount:   n,
		FrequencyMin: floats.Min(freq),
		FrequencyMax: floats.Max(freq),
	}

	report.RMSE = models.AvailableMetric(floats.Distance(magRef, magRec, 2) / math.Sqrt(float64(n)))
	report.MAE = models.AvailableMetric(floats.Distance(magRef, magRec, 1) / float64(n))
	report.R2 = rSquared(magRef, magRec)
	report.FRAC = frac(reference, reconstructed)

	report.PeakProminence = ProminenceRatio * floats.Max(magRef)
	report.PeakTolerance = ToleranceRatio * (report.FrequencyMax - report.FrequencyMin)

	peaksRef := findPeaks(magRef, report.PeakProminence)
	peaksRec := findPeaks(magRec, report.PeakProminence)
	report.Peaks = matchPeaks(freq, magRef, magRec, peaksRef, peaksRec, report.PeakTolerance)
	report.PeaksReference = len(peaksRef)
	report.PeaksReconstructed = len(peaksRec)
	report.PeaksMatched = len(report.Peaks)

	return report, nil
}

func magnitudes(values []complex128) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = cmplx.Abs(v)
	}
	return out
}

// rSquared treats the reference magnitude as ground truth. It is undefined
// when the reference is constant.
func rSquared(magRef, magRec []float64) models.Metric {
	if floats.Max(magRef) == floats.Min(magRef) {
		return models.UnavailableMetric()
	}
	return models.AvailableMetric(stat.RSquaredFrom(magRec, magRef, nil))
}

// frac is |<a,b>|^2 / (<a,a><b,b>) with the inner product conjugate-linear
// in its first argument.
func frac(a, b []complex128) models.Metric {
	denomA := real(vdot(a, a))
	denomB := real(vdot(b, b))
	if denomA <= 0 || denomB <= 0 {
		return models.UnavailableMetric()
	}
	num := cmplx.Abs(vdot(a, b))
	return models.AvailableMetric(num * num / (denomA * denomB))
}

func vdot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return sum
}

// matchPeaks pairs every reference peak with the nearest reconstructed peak
// (first one on ties) when that peak lies strictly within tolerance.
func matchPeaks(freq, magRef, magRec []float64, peaksRef, peaksRec []int, tolerance float64) []models.PeakPair {
	pairs := []models.PeakPair{}
	if len(peaksRec) == 0 {
		return pairs
	}

	for _, pi := range peaksRef {
		fRef := freq[pi]
		best, bestDist := -1, 0.0
		for _, qi := range peaksRec {
			d := math.Abs(freq[qi] - fRef)
			if best < 0 || d < bestDist {
				best, bestDist = qi, d
			}
		}
		if !(bestDist < tolerance) {
			continue
		}

		fRec := freq[best]
		mRef, mRec := magRef[pi], magRec[best]
		pairs = append(pairs, models.PeakPair{
			FreqReference:     fRef,
			FreqReconstructed: fRec,
			FreqError:         fRec - fRef,
			FreqErrorPct:      percent(fRec-fRef, fRef),
			MagReference:      mRef,
			MagReconstructed:  mRec,
			MagError:          mRec - mRef,
			MagErrorPct:       percent(mRec-mRef, mRef),
		})
	}
	return pairs
}

func percent(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return 100 * delta / base
}

// Comparison is the outcome of comparing two records end to end.
type Comparison struct {
	Report models.ValidationReport
	// Overlap is the fraction of the reconstructed grid covered by the
	// reference axis. Points outside it were compared against zero.
	Overlap float64
}

// ComputeRecords resolves both records into complex form, aligns the
// reference onto the reconstructed frequency grid and computes the report.
func ComputeRecords(reference, reconstructed models.Record, mode Mode) (*Comparison, error) {
	refValues, err := reference.ComplexResponse()
	if err != nil {
		return nil, &ValidationError{Reason: "reference record is not a complex FRF", Err: err}
	}

	var recValues []complex128
	switch mode {
	case ModeAmplitude:
		amp := reconstructed.AmplitudeResponse()
		recValues = make([]complex128, len(amp))
		for i, v := range amp {
			recValues[i] = complex(v, 0)
		}
	case ModeComplex, "":
		recValues, err = reconstructed.ComplexResponse()
		if err != nil {
			return nil, &ValidationError{Reason: "reconstructed record is not a complex FRF", Err: err}
		}
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown reconstructed mode %q", mode)}
	}

	aligned, err := alignment.Align(reference.Frequencies, refValues, reconstructed.Frequencies)
	if err != nil {
		return nil, &ValidationError{Reason: "reference record shape", Err: err}
	}
	_, _, overlap := alignment.Overlap(reference.Frequencies, reconstructed.Frequencies)

	report, err := Compute(reconstructed.Frequencies, aligned, recValues)
	if err != nil {
		return nil, err
	}
	return &Comparison{Report: report, Overlap: overlap}, nil
}
