package validation

import "github.com/RMahshie/emav/pkg/models"

// Band is a qualitative reading of an R² or FRAC value.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandModerate  Band = "moderate"
	BandPoor      Band = "poor"
)

// BandFor maps a correlation-style metric onto its quality band. R² and
// FRAC share the thresholds.
func BandFor(v float64) Band {
	switch {
	case v > 0.95:
		return BandExcellent
	case v > 0.85:
		return BandGood
	case v > 0.70:
		return BandModerate
	default:
		return BandPoor
	}
}

var r2Descriptions = map[Band]string{
	BandExcellent: "reconstruction explains nearly all variance of the reference magnitude",
	BandGood:      "reconstruction follows the reference magnitude closely",
	BandModerate:  "reconstruction captures the main trends of the reference magnitude",
	BandPoor:      "reconstruction does not follow the reference magnitude",
}

var fracDescriptions = map[Band]string{
	BandExcellent: "response shapes are nearly identical",
	BandGood:      "response shapes correlate well",
	BandModerate:  "response shapes partially agree",
	BandPoor:      "response shapes differ",
}

// Describe returns the band and a one-line interpretation of the metric
// named by metric ("r2" or "frac").
func Describe(metric string, v float64) (Band, string) {
	b := BandFor(v)
	switch metric {
	case "r2":
		return b, r2Descriptions[b]
	case "frac":
		return b, fracDescriptions[b]
	default:
		return b, ""
	}
}

// BandsOf derives the bands of the available report metrics.
func BandsOf(report models.ValidationReport) models.QualityBands {
	var out models.QualityBands
	if report.R2.Available {
		out.R2 = string(BandFor(report.R2.Value))
	}
	if report.FRAC.Available {
		out.FRAC = string(BandFor(report.FRAC.Value))
	}
	return out
}
