package unv

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/emav/internal/testutil"
	"github.com/RMahshie/emav/internal/uff"
	"github.com/RMahshie/emav/pkg/models"
)

func fullFunction() *uff.Function {
	return &uff.Function{
		ID1:         "Measured H(3Z,1Z)",
		FuncType:    4,
		RspEntName:  "NONE",
		RspNode:     3,
		RspDir:      3,
		RefEntName:  "NONE",
		RefNode:     1,
		RefDir:      3,
		OrdDataType: models.DataTypeComplexDouble,
		NumPts:      3,
		X:           []float64{0, 5, 10},
		Data:        []complex128{complex(1, 2), complex(-3, 4), complex(5, -6)},
		Abscissa:    uff.AxisDef{SpecDataType: 18, Label: "Frequency", Units: "Hz"},
		Ordinate:    uff.AxisDef{SpecDataType: 12, Label: "Accelerance", Units: "m/s2/N"},
	}
}

func writeFunction(t *testing.T, f *uff.Function) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, uff.WriteFunction(&b, f))
	return b.String()
}

// headerBlock is a dataset 151 block in the short form some exporters write.
const headerBlock = "    -1\n   151\nmodel\n    -1\n"

func TestRead_PrefersResilientParser(t *testing.T) {
	raw := testutil.Simplified{XMin: 0, XIncOrMax: 1, Values: []float64{1, 2, 3, 4}}.String()

	res, err := ParseWithFallback(raw)
	require.NoError(t, err)
	assert.Equal(t, models.TierResilient, res.Diagnostics.Tier)
	assert.Empty(t, res.Diagnostics.PrimaryError)
}

func TestRead_FallsBackToDatasetReader(t *testing.T) {
	raw := headerBlock + writeFunction(t, fullFunction())

	res, err := ParseWithFallback(raw)
	require.NoError(t, err)

	rec := res.Record
	assert.Equal(t, models.ShapeComplex, rec.Shape)
	assert.Equal(t, models.DataTypeComplexDouble, rec.DataType)
	assert.Equal(t, []float64{0, 5, 10}, rec.Frequencies)
	assert.InDelta(t, -3, real(rec.Complex[1]), 1e-4)
	assert.InDelta(t, -6, imag(rec.Complex[2]), 1e-4)
	assert.Equal(t, "Measured H(3Z,1Z)", rec.Meta.Description)
	assert.Equal(t, 3, rec.Meta.ResponseNode)
	assert.Equal(t, 1, rec.Meta.ReferenceNode)
	assert.Equal(t, "Hz", rec.Meta.AbscissaUnits)
	assert.Equal(t, "Resp:3:3/Ref:1:3", rec.Name())

	diag := res.Diagnostics
	assert.Equal(t, models.TierFallback, diag.Tier)
	assert.Equal(t, 1, diag.FilteredBlocks)
	assert.Equal(t, 6, diag.ValuesCollected)
	assert.NotEmpty(t, diag.PrimaryError)
	assert.False(t, diag.LowConfidence())
}

func TestRead_UnevenAxis(t *testing.T) {
	f := fullFunction()
	f.X = []float64{0, 5, 12}

	res, err := ParseWithFallback(writeFunction(t, f))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 5, 12}, res.Record.Frequencies, 1e-4)
}

func TestRead_FirstFunctionWins(t *testing.T) {
	second := fullFunction()
	second.ID1 = "second"
	raw := writeFunction(t, fullFunction()) + writeFunction(t, second)

	res, err := ParseWithFallback(raw)
	require.NoError(t, err)
	assert.Equal(t, "Measured H(3Z,1Z)", res.Record.Meta.Description)
}

func TestRead_Failure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain text", "hello\nworld\n"},
		{"empty", ""},
		{"truncated dataset 58", "    -1\n    58\n"},
		{"only headers", headerBlock},
		{"oversized point count", rawBlock(" 5 4611686018427387904 0 0.0 1.0 0.0", 0, " 1.0E+00 2.0E+00\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWithFallback(tt.raw)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestRead_RejectsOversizedFunction(t *testing.T) {
	raw := writeFunction(t, fullFunction())
	characteristic := fmt.Sprintf("%10d%10d", models.DataTypeComplexDouble, 3)
	require.Contains(t, raw, characteristic)
	raw = strings.Replace(raw, characteristic, fmt.Sprintf("%10d%20d", models.DataTypeComplexDouble, int64(4611686018427387904)), 1)

	_, err := ParseWithFallback(raw)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestNewReader_CustomFilter(t *testing.T) {
	raw := "    -1\n   164\nunits\n    -1\n" + writeFunction(t, fullFunction())

	res, err := NewReader("164").Read(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Diagnostics.FilteredBlocks)

	res, err = NewReader().Read(raw)
	require.NoError(t, err)
	assert.Zero(t, res.Diagnostics.FilteredBlocks)
}

func TestFilterBlocks(t *testing.T) {
	lines := splitLines("    -1\n   151\nheader\n    -1\n    -1\n   158\nx\ny\n    -1\n    -1\n    58\nbody\n151\n    -1\n")
	filtered := map[string]bool{"151": true, "158": true}

	kept, removed := FilterBlocks(lines, filtered)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"    -1", "    -1", "    -1", "    -1", "    -1", "    58", "body", "151", "    -1", ""}, kept)
}

func TestExportAmplitude(t *testing.T) {
	raw := testutil.Simplified{
		Description: "model",
		XMin:        0,
		XIncOrMax:   10,
		Values:      []float64{3, 4, 0, 2, 6, 8},
	}.String()
	res, err := Parse(raw)
	require.NoError(t, err)

	var out strings.Builder
	derived, err := ExportAmplitude(&out, res.Record)
	require.NoError(t, err)
	assert.True(t, derived)

	back, err := ParseWithFallback(out.String())
	require.NoError(t, err)
	assert.Equal(t, models.TierFallback, back.Diagnostics.Tier)
	assert.Equal(t, models.ShapeAmplitude, back.Record.Shape)
	assert.Equal(t, models.AmplitudeLabel, back.Record.Meta.OrdinateLabel)
	assert.InDeltaSlice(t, []float64{0, 5, 10}, back.Record.Frequencies, 1e-4)
	assert.InDeltaSlice(t, []float64{5, 2, 10}, back.Record.Amplitude, 1e-4)

	// Already-amplitude records pass through.
	out.Reset()
	derived, err = ExportAmplitude(&out, back.Record)
	require.NoError(t, err)
	assert.False(t, derived)
}

func TestWriteRecord_RoundTrip(t *testing.T) {
	raw := testutil.Simplified{XMin: 100, XIncOrMax: 400, Values: []float64{1, -1, 2, -2, 3, -3, 4, -4}}.String()
	res, err := Parse(raw)
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, WriteRecord(&out, res.Record))

	back, err := ParseWithFallback(out.String())
	require.NoError(t, err)
	assert.Equal(t, models.ShapeComplex, back.Record.Shape)
	assert.InDeltaSlice(t, res.Record.Frequencies, back.Record.Frequencies, 1e-3)

	want, _ := res.Record.ComplexResponse()
	for i := range want {
		assert.InDelta(t, real(want[i]), real(back.Record.Complex[i]), 1e-4)
		assert.InDelta(t, imag(want[i]), imag(back.Record.Complex[i]), 1e-4)
	}
}
