package validation

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/mattn/go-runewidth"

	"github.com/RMahshie/emav/pkg/models"
)

const ruleWidth = 60

// RenderText formats report as the plain-text validation summary shown by
// the CLI and returned next to the JSON report by the API.
func RenderText(report models.ValidationReport) string {
	var b strings.Builder

	section(&b, "GLOBAL ERROR METRICS")
	global := orderedmap.NewOrderedMap[string, string]()
	global.Set("RMSE", formatMetric(report.RMSE, "%.6e"))
	global.Set("MAE", formatMetric(report.MAE, "%.6e"))
	global.Set("Points", fmt.Sprintf("%d", report.PointCount))
	global.Set("Range", fmt.Sprintf("%.2f - %.2f Hz", report.FrequencyMin, report.FrequencyMax))
	writeTable(&b, global)

	section(&b, "ADVANCED METRICS")
	advanced := orderedmap.NewOrderedMap[string, string]()
	advanced.Set("R²", describeMetric("r2", report.R2))
	advanced.Set("FRAC", describeMetric("frac", report.FRAC))
	writeTable(&b, advanced)

	section(&b, "RESONANT PEAKS")
	peaks := orderedmap.NewOrderedMap[string, string]()
	peaks.Set("Reference peaks", fmt.Sprintf("%d", report.PeaksReference))
	peaks.Set("Reconstructed peaks", fmt.Sprintf("%d", report.PeaksReconstructed))
	peaks.Set("Matched", fmt.Sprintf("%d", report.PeaksMatched))
	peaks.Set("Tolerance", fmt.Sprintf("%.2f Hz", report.PeakTolerance))
	writeTable(&b, peaks)

	if len(report.Peaks) > 0 {
		b.WriteString("\n")
		for i, p := range report.Peaks {
			fmt.Fprintf(&b, "  #%-2d %10.2f Hz → %10.2f Hz  Δf %+8.2f Hz (%+6.2f%%)  Δmag %+6.2f%%\n",
				i+1, p.FreqReference, p.FreqReconstructed, p.FreqError, p.FreqErrorPct, p.MagErrorPct)
		}
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("─", ruleWidth) + "\n")
}

func writeTable(b *strings.Builder, rows *orderedmap.OrderedMap[string, string]) {
	width := 0
	for el := rows.Front(); el != nil; el = el.Next() {
		if w := runewidth.StringWidth(el.Key); w > width {
			width = w
		}
	}
	for el := rows.Front(); el != nil; el = el.Next() {
		fmt.Fprintf(b, "  %s : %s\n", runewidth.FillRight(el.Key, width), el.Value)
	}
}

func formatMetric(m models.Metric, format string) string {
	if !m.Available {
		return "n/a"
	}
	return fmt.Sprintf(format, m.Value)
}

func describeMetric(name string, m models.Metric) string {
	if !m.Available {
		return "n/a"
	}
	band, text := Describe(name, m.Value)
	return fmt.Sprintf("%.4f (%s: %s)", m.Value, band, text)
}
