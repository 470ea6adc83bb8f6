package validation

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/emav/internal/testutil"
	"github.com/RMahshie/emav/pkg/models"
)

func grid() []float64 {
	return testutil.Linspace(0, 1000, 1001)
}

func TestCompute_Identical(t *testing.T) {
	freq := grid()
	h := testutil.Resonance(freq, 250, 0.02)

	report, err := Compute(freq, h, h)
	require.NoError(t, err)

	assert.InDelta(t, 0, report.RMSE.Value, 1e-12)
	assert.InDelta(t, 0, report.MAE.Value, 1e-12)
	assert.InDelta(t, 1, report.R2.Value, 1e-12)
	assert.InDelta(t, 1, report.FRAC.Value, 1e-12)
	assert.Equal(t, 1001, report.PointCount)
	assert.Equal(t, 0.0, report.FrequencyMin)
	assert.Equal(t, 1000.0, report.FrequencyMax)
	assert.Equal(t, 50.0, report.PeakTolerance)

	require.Equal(t, 1, report.PeaksMatched)
	assert.Equal(t, report.PeaksReference, report.PeaksReconstructed)
	assert.Zero(t, report.Peaks[0].FreqError)
	assert.Zero(t, report.Peaks[0].MagErrorPct)
}

func TestCompute_ShiftedPeak(t *testing.T) {
	freq := grid()
	ref := testutil.Resonance(freq, 100, 0.02)
	rec := testutil.Resonance(freq, 102, 0.02)

	report, err := Compute(freq, ref, rec)
	require.NoError(t, err)

	require.Equal(t, 1, report.PeaksMatched)
	p := report.Peaks[0]
	assert.Equal(t, 100.0, p.FreqReference)
	assert.Equal(t, 102.0, p.FreqReconstructed)
	assert.InDelta(t, 2.0, p.FreqError, 1e-12)
	assert.InDelta(t, 2.0, p.FreqErrorPct, 1e-12)
	assert.Less(t, report.FRAC.Value, 1.0)
	assert.Greater(t, report.RMSE.Value, 0.0)
}

func TestCompute_PeakOutsideTolerance(t *testing.T) {
	freq := grid()
	ref := testutil.Resonance(freq, 100, 0.02)
	rec := testutil.Resonance(freq, 300, 0.02)

	report, err := Compute(freq, ref, rec)
	require.NoError(t, err)

	assert.Equal(t, 1, report.PeaksReference)
	assert.Equal(t, 1, report.PeaksReconstructed)
	assert.Zero(t, report.PeaksMatched)
	assert.NotNil(t, report.Peaks)
	assert.Empty(t, report.Peaks)
}

// gaussians sums unit-height Gaussian bumps (sigma 5 Hz) centred on centers.
func gaussians(freq []float64, centers ...float64) []complex128 {
	out := make([]complex128, len(freq))
	for i, f := range freq {
		var v float64
		for _, c := range centers {
			d := (f - c) / 5
			v += math.Exp(-d * d / 2)
		}
		out[i] = complex(v, 0)
	}
	return out
}

func TestCompute_MatchesNearestReconstructedPeak(t *testing.T) {
	freq := grid()
	ref := gaussians(freq, 100, 500)
	rec := gaussians(freq, 95, 130, 520)

	report, err := Compute(freq, ref, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PeaksReference)
	assert.Equal(t, 3, report.PeaksReconstructed)
	require.Equal(t, 2, report.PeaksMatched)

	assert.Equal(t, 100.0, report.Peaks[0].FreqReference)
	assert.Equal(t, 95.0, report.Peaks[0].FreqReconstructed)
	assert.InDelta(t, -5.0, report.Peaks[0].FreqError, 1e-12)

	assert.Equal(t, 500.0, report.Peaks[1].FreqReference)
	assert.Equal(t, 520.0, report.Peaks[1].FreqReconstructed)
	assert.InDelta(t, 20.0, report.Peaks[1].FreqError, 1e-12)
}

func TestCompute_EquidistantPeaksPickTheFirst(t *testing.T) {
	freq := grid()
	ref := gaussians(freq, 100)
	rec := gaussians(freq, 90, 110)

	report, err := Compute(freq, ref, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PeaksReconstructed)
	require.Equal(t, 1, report.PeaksMatched)
	assert.Equal(t, 90.0, report.Peaks[0].FreqReconstructed)
}

func TestCompute_FRACIgnoresScale(t *testing.T) {
	freq := grid()
	ref := testutil.Resonance(freq, 400, 0.05)
	rec := make([]complex128, len(ref))
	for i, v := range ref {
		rec[i] = v * complex(0, 3)
	}

	report, err := Compute(freq, ref, rec)
	require.NoError(t, err)
	assert.InDelta(t, 1, report.FRAC.Value, 1e-9)
	assert.Less(t, report.R2.Value, 1.0)
}

func TestCompute_UnavailableMetrics(t *testing.T) {
	freq := []float64{1, 2, 3, 4}

	t.Run("constant reference has no R²", func(t *testing.T) {
		ref := []complex128{1, 1, 1, 1}
		rec := []complex128{1, 2, 1, 2}
		report, err := Compute(freq, ref, rec)
		require.NoError(t, err)
		assert.False(t, report.R2.Available)
		assert.True(t, report.FRAC.Available)
	})

	t.Run("zero signal has no FRAC", func(t *testing.T) {
		ref := []complex128{0, 0, 0, 0}
		rec := []complex128{1, 2, 3, 4}
		report, err := Compute(freq, ref, rec)
		require.NoError(t, err)
		assert.False(t, report.FRAC.Available)
		assert.False(t, report.R2.Available)
		assert.True(t, report.RMSE.Available)
		assert.Equal(t, 0, report.PeaksReference)
	})
}

func TestCompute_ShapeErrors(t *testing.T) {
	_, err := Compute([]float64{1, 2}, []complex128{1, 2}, []complex128{1})
	assert.ErrorIs(t, err, ErrValidation)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Reason, "shape mismatch")

	_, err = Compute(nil, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name       string
		x          []float64
		prominence float64
		want       []int
	}{
		{"single peak", []float64{0, 1, 3, 1, 0}, 0, []int{2}},
		{"edges are never peaks", []float64{5, 1, 0, 1, 5}, 0, nil},
		{"plateau reports its middle", []float64{0, 2, 2, 2, 0}, 0, []int{2}},
		{"even plateau rounds down", []float64{0, 2, 2, 0}, 0, []int{1}},
		{"plateau running to the edge", []float64{0, 2, 2, 2}, 0, nil},
		{"prominence filter", []float64{0, 10, 0, 1, 0.5, 1.2, 0}, 2, []int{1}},
		{"prominence uses the higher base", []float64{0, 5, 3, 4, 1}, 1, []int{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findPeaks(tt.x, tt.prominence))
		})
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		v    float64
		want Band
	}{
		{1, BandExcellent},
		{0.951, BandExcellent},
		{0.95, BandGood},
		{0.86, BandGood},
		{0.85, BandModerate},
		{0.71, BandModerate},
		{0.70, BandPoor},
		{-3, BandPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.v), "value %v", tt.v)
	}

	band, text := Describe("frac", 0.99)
	assert.Equal(t, BandExcellent, band)
	assert.NotEmpty(t, text)

	bands := BandsOf(models.ValidationReport{R2: models.AvailableMetric(0.5)})
	assert.Equal(t, "poor", bands.R2)
	assert.Empty(t, bands.FRAC)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeComplex, mode)

	mode, err = ParseMode("amplitude")
	require.NoError(t, err)
	assert.Equal(t, ModeAmplitude, mode)

	_, err = ParseMode("phase")
	assert.Error(t, err)
}

func twoColumn(freq []float64, values []complex128) models.Record {
	cols := make([][2]float64, len(values))
	for i, v := range values {
		cols[i] = [2]float64{real(v), imag(v)}
	}
	return models.Record{
		Kind:        models.KindFunction,
		Shape:       models.ShapeTwoColumn,
		PointCount:  len(values),
		Frequencies: freq,
		Columns:     cols,
	}
}

func TestComputeRecords(t *testing.T) {
	t.Run("reference aligned onto reconstructed grid", func(t *testing.T) {
		refFreq := testutil.Linspace(0, 500, 501)
		recFreq := testutil.Linspace(0, 1000, 1001)
		ref := twoColumn(refFreq, testutil.Resonance(refFreq, 100, 0.02))
		rec := twoColumn(recFreq, testutil.Resonance(recFreq, 100, 0.02))

		cmp, err := ComputeRecords(ref, rec, ModeComplex)
		require.NoError(t, err)
		assert.Equal(t, 1001, cmp.Report.PointCount)
		assert.InDelta(t, 501.0/1001.0, cmp.Overlap, 1e-12)
		assert.Equal(t, 1, cmp.Report.PeaksMatched)
		// Outside the reference span the reconstruction is scored against zero.
		assert.Less(t, cmp.Report.FRAC.Value, 1.0)
	})

	t.Run("amplitude mode reads the first column", func(t *testing.T) {
		freq := grid()
		h := testutil.Resonance(freq, 100, 0.02)
		ref := twoColumn(freq, h)

		mags := make([]complex128, len(h))
		for i, v := range h {
			mags[i] = complex(cmplx.Abs(v), 12345)
		}
		rec := twoColumn(freq, mags)

		cmp, err := ComputeRecords(ref, rec, ModeAmplitude)
		require.NoError(t, err)
		assert.InDelta(t, 0, cmp.Report.RMSE.Value, 1e-12)
		assert.InDelta(t, 1, cmp.Report.R2.Value, 1e-12)
		assert.Less(t, cmp.Report.FRAC.Value, 1.0)
	})

	t.Run("amplitude reference is rejected", func(t *testing.T) {
		freq := []float64{1, 2, 3}
		ref := models.DeriveAmplitudeRecord(twoColumn(freq, []complex128{1, 2, 3}))
		rec := twoColumn(freq, []complex128{1, 2, 3})

		_, err := ComputeRecords(ref, rec, ModeComplex)
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, models.ErrNotComplex)
	})

	t.Run("unknown mode", func(t *testing.T) {
		freq := []float64{1, 2, 3}
		r := twoColumn(freq, []complex128{1, 2, 3})
		_, err := ComputeRecords(r, r, Mode("phase"))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestRenderText(t *testing.T) {
	freq := grid()
	report, err := Compute(freq, testutil.Resonance(freq, 100, 0.02), testutil.Resonance(freq, 102, 0.02))
	require.NoError(t, err)

	text := RenderText(report)
	for _, want := range []string{"GLOBAL ERROR METRICS", "ADVANCED METRICS", "RESONANT PEAKS", "R²", "FRAC", "Matched", "→"} {
		assert.Contains(t, text, want)
	}

	text = RenderText(models.ValidationReport{})
	assert.Contains(t, text, "n/a")
	assert.NotContains(t, text, "→")
}
