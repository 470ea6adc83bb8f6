package uff

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"time"
)

const valuesPerLine = 6

// WriteFunction writes f as an ASCII dataset 58 block, delimiters included.
// Abscissa values are written only when the axis is not evenly spaced.
func WriteFunction(w io.Writer, f *Function) error {
	if f.NumPts < 1 || len(f.X) != f.NumPts {
		return fmt.Errorf("%w: %d abscissa values for %d points", ErrMalformed, len(f.X), f.NumPts)
	}
	if f.IsComplex() && len(f.Data) != f.NumPts {
		return fmt.Errorf("%w: %d complex values for %d points", ErrMalformed, len(f.Data), f.NumPts)
	}
	if !f.IsComplex() && len(f.Real) != f.NumPts {
		return fmt.Errorf("%w: %d real values for %d points", ErrMalformed, len(f.Real), f.NumPts)
	}

	spacing, xMin, xInc := 0, f.X[0], 0.0
	if inc, ok := evenIncrement(f.X); ok {
		spacing, xInc = 1, inc
	}

	id3 := f.ID3
	if id3 == "" {
		id3 = time.Now().Format("02-Jan-06 15:04:05")
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%6s\n%6d\n", delimiter, TypeFunction)
	for _, id := range []string{f.ID1, f.ID2, id3, f.ID4, f.ID5} {
		fmt.Fprintf(bw, "%-80s\n", clip(orNone(id), 80))
	}
	fmt.Fprintf(bw, "%5d%10d%5d%10d %-10s%10d%4d %-10s%10d%4d\n",
		f.FuncType, f.FuncID, f.VerNum, f.LoadCaseID,
		clip(orNone(f.RspEntName), 10), f.RspNode, f.RspDir,
		clip(orNone(f.RefEntName), 10), f.RefNode, f.RefDir)
	fmt.Fprintf(bw, "%10d%10d%10d%13.5E%13.5E%13.5E\n",
		f.OrdDataType, f.NumPts, spacing, xMin, xInc, f.ZAxisValue)
	for _, ax := range []AxisDef{f.Abscissa, f.Ordinate, f.OrdinateDenom, f.ZAxis} {
		fmt.Fprintf(bw, "%10d%5d%5d%5d %-20s %-20s\n",
			ax.SpecDataType, ax.LenUnitsExp, ax.ForceUnitsExp, ax.TempUnitsExp,
			clip(orNone(ax.Label), 20), clip(orNone(ax.Units), 20))
	}

	var row []float64
	for k := 0; k < f.NumPts; k++ {
		if spacing == 0 {
			row = append(row, f.X[k])
		}
		if f.IsComplex() {
			row = append(row, real(f.Data[k]), imag(f.Data[k]))
		} else {
			row = append(row, f.Real[k])
		}
	}
	for i, v := range row {
		fmt.Fprintf(bw, "%13.5E", v)
		if (i+1)%valuesPerLine == 0 || i == len(row)-1 {
			bw.WriteByte('\n')
		}
	}

	fmt.Fprintf(bw, "%6s\n", delimiter)
	return bw.Flush()
}

// evenIncrement reports the common step of x when every step agrees to
// within a relative 1e-6 of the mean step.
func evenIncrement(x []float64) (float64, bool) {
	if len(x) < 2 {
		return 0, true
	}
	inc := (x[len(x)-1] - x[0]) / float64(len(x)-1)
	tol := 1e-6 * math.Max(math.Abs(inc), 1e-12)
	for i := 1; i < len(x); i++ {
		if math.Abs((x[i]-x[i-1])-inc) > tol {
			return 0, false
		}
	}
	return inc, true
}

func orNone(s string) string {
	if s == "" {
		return "NONE"
	}
	return s
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
