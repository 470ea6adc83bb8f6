// Package testutil builds Universal File fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
)

// Simplified describes a dataset 58 block in the reduced layout written by
// reconstruction tools: description, one characteristic line, four axis
// lines, then real/imaginary pairs.
type Simplified struct {
	Description string
	DataType    int
	Spacing     int
	XMin        float64
	XIncOrMax   float64
	// Values holds the payload as interleaved real/imaginary numbers.
	Values []float64
	// Points overrides the point count derived from Values.
	Points int
	// PerLine is the number of values per payload line (default 6).
	PerLine int
	// Prefix is written before the block.
	Prefix string
	// Trailer is written after the closing delimiter.
	Trailer string
}

// String renders the block.
func (s Simplified) String() string {
	points := s.Points
	if points == 0 {
		points = len(s.Values) / 2
	}
	perLine := s.PerLine
	if perLine == 0 {
		perLine = 6
	}
	dataType := s.DataType
	if dataType == 0 {
		dataType = 5
	}
	spacing := s.Spacing
	if spacing == 0 {
		spacing = 1
	}
	desc := s.Description
	if desc == "" {
		desc = "Simulated FRF"
	}

	var b strings.Builder
	b.WriteString(s.Prefix)
	b.WriteString("    -1\n    58\n")
	b.WriteString(desc + "\n")
	fmt.Fprintf(&b, "%10d%10d%10d %13.5E %13.5E %13.5E\n", dataType, points, spacing, s.XMin, s.XIncOrMax, 0.0)
	b.WriteString("        18         0         0         0 Frequency                Hz\n")
	b.WriteString("        12         0         0         0 Acceleration             m/s2\n")
	b.WriteString("        13         0         0         0 Force                    N\n")
	b.WriteString("         0         0         0         0 NONE                     NONE\n")
	for i := 0; i < len(s.Values); i += perLine {
		end := i + perLine
		if end > len(s.Values) {
			end = len(s.Values)
		}
		for _, v := range s.Values[i:end] {
			fmt.Fprintf(&b, " %13.5E", v)
		}
		b.WriteString("\n")
	}
	b.WriteString("    -1\n")
	b.WriteString(s.Trailer)
	return b.String()
}

// Interleave flattens complex values into real/imaginary pairs.
func Interleave(values []complex128) []float64 {
	out := make([]float64, 0, 2*len(values))
	for _, v := range values {
		out = append(out, real(v), imag(v))
	}
	return out
}

// Resonance is a single-degree-of-freedom receptance with natural frequency
// fn (Hz) and damping ratio zeta, sampled on freq.
func Resonance(freq []float64, fn, zeta float64) []complex128 {
	out := make([]complex128, len(freq))
	for i, f := range freq {
		r := f / fn
		out[i] = 1 / complex(1-r*r, 2*zeta*r)
	}
	return out
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
