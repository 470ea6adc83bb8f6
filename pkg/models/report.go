package models

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/danielgtaylor/huma/v2"
)

// Metric is a scalar that may be undefined for the inputs it was computed on
// (for example a zero-norm denominator). Unavailable metrics encode as null.
type Metric struct {
	Value     float64
	Available bool
}

// AvailableMetric wraps a defined value. Non-finite values are reported unavailable.
func AvailableMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Value: v, Available: true}
}

// UnavailableMetric marks a metric that could not be computed.
func UnavailableMetric() Metric {
	return Metric{}
}

// Schema documents Metric as a nullable number in the OpenAPI output.
func (Metric) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{Type: huma.TypeNumber, Nullable: true}
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Available {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Metric{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Metric{Value: v, Available: true}
	return nil
}

// PeakPair is one reference resonance matched to its nearest reconstructed resonance.
type PeakPair struct {
	FreqReference     float64 `json:"freq_original" doc:"Reference peak frequency"`
	FreqReconstructed float64 `json:"freq_reconstructed" doc:"Reconstructed peak frequency"`
	FreqError         float64 `json:"freq_error" doc:"Reconstructed minus reference frequency"`
	FreqErrorPct      float64 `json:"freq_error_pct" doc:"Frequency error relative to the reference frequency, in percent"`
	MagReference      float64 `json:"mag_original" doc:"Reference peak magnitude"`
	MagReconstructed  float64 `json:"mag_reconstructed" doc:"Reconstructed peak magnitude"`
	MagError          float64 `json:"mag_error" doc:"Reconstructed minus reference magnitude"`
	MagErrorPct       float64 `json:"mag_error_pct" doc:"Magnitude error relative to the reference magnitude, in percent"`
}

// ValidationReport is the result of comparing a reference FRF with a reconstructed one.
type ValidationReport struct {
	RMSE Metric `json:"rmse" doc:"Root mean squared magnitude error"`
	MAE  Metric `json:"mae" doc:"Mean absolute magnitude error"`
	R2   Metric `json:"r2" doc:"Coefficient of determination of reconstructed magnitude"`
	FRAC Metric `json:"frac" doc:"Frequency Response Assurance Criterion"`

	Peaks              []PeakPair `json:"peak_analysis" doc:"Matched peak pairs"`
	PeaksReference     int        `json:"n_peaks_original" doc:"Peaks detected in the reference signal"`
	PeaksReconstructed int        `json:"n_peaks_reconstructed" doc:"Peaks detected in the reconstructed signal"`
	PeaksMatched       int        `json:"n_peaks_matched" doc:"Matched peak pairs"`

	PointCount     int     `json:"point_count" doc:"Number of points on the comparison grid"`
	FrequencyMin   float64 `json:"frequency_min" doc:"Lowest frequency of the comparison grid"`
	FrequencyMax   float64 `json:"frequency_max" doc:"Highest frequency of the comparison grid"`
	PeakTolerance  float64 `json:"peak_tolerance" doc:"Frequency distance under which peaks are matched"`
	PeakProminence float64 `json:"peak_prominence" doc:"Prominence threshold applied to both signals"`
}

// QualityBands carries the qualitative bands of R² and FRAC. Empty when the
// metric is unavailable.
type QualityBands struct {
	R2   string `json:"r2,omitempty" enum:"excellent,good,moderate,poor" doc:"Quality band of R²"`
	FRAC string `json:"frac,omitempty" enum:"excellent,good,moderate,poor" doc:"Quality band of FRAC"`
}
