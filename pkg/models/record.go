package models

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// RecordKind identifies the Universal File dataset category a record came from.
type RecordKind int

// KindFunction is dataset 58, function data at nodal DOF.
const KindFunction RecordKind = 58

// ResponseShape discriminates how a record stores its ordinate values.
type ResponseShape int

const (
	// ShapeTwoColumn holds real/imaginary (or amplitude/phase-adjunct) pairs per point.
	ShapeTwoColumn ResponseShape = iota
	// ShapeComplex holds one complex value per point.
	ShapeComplex
	// ShapeAmplitude holds a single real value per point.
	ShapeAmplitude
)

func (s ResponseShape) String() string {
	switch s {
	case ShapeTwoColumn:
		return "two_column"
	case ShapeComplex:
		return "complex"
	case ShapeAmplitude:
		return "amplitude"
	default:
		return "unknown"
	}
}

// Ordinate data type tags used in record 7 of a function dataset.
const (
	DataTypeRealSingle    = 2
	DataTypeRealDouble    = 4
	DataTypeComplexSingle = 5
	DataTypeComplexDouble = 6
)

// AmplitudeLabel is the ordinate label written on derived magnitude records.
const AmplitudeLabel = "AMPLITUDE"

var (
	// ErrNotComplex is returned when a record cannot be expressed as complex values.
	ErrNotComplex = errors.New("record is not complex-capable")
	// ErrInvalidRecord is returned by Record.Validate.
	ErrInvalidRecord = errors.New("invalid record")
)

// RecordMeta carries the descriptive fields of a function record.
type RecordMeta struct {
	Description   string `json:"description,omitempty" doc:"Free-form ID line"`
	ResponseNode  int    `json:"response_node" doc:"Response node number"`
	ResponseDir   int    `json:"response_dir" doc:"Response direction"`
	ReferenceNode int    `json:"reference_node" doc:"Reference node number"`
	ReferenceDir  int    `json:"reference_dir" doc:"Reference direction"`
	AbscissaLabel string `json:"abscissa_label,omitempty" doc:"Abscissa axis label"`
	AbscissaUnits string `json:"abscissa_units,omitempty" doc:"Abscissa axis units"`
	OrdinateLabel string `json:"ordinate_label,omitempty" doc:"Ordinate axis label"`
	OrdinateUnits string `json:"ordinate_units,omitempty" doc:"Ordinate axis units"`
}

// Record is one parsed FRF (or generic function) dataset. Exactly one of
// Columns, Complex or Amplitude is populated, as selected by Shape.
// Records are treated as immutable once built.
type Record struct {
	Kind        RecordKind
	DataType    int
	Shape       ResponseShape
	PointCount  int
	Frequencies []float64
	Columns     [][2]float64
	Complex     []complex128
	Amplitude   []float64
	Meta        RecordMeta
}

// Name labels the record the way the viewer tree does.
func (r Record) Name() string {
	return fmt.Sprintf("Resp:%d:%d/Ref:%d:%d",
		r.Meta.ResponseNode, r.Meta.ResponseDir, r.Meta.ReferenceNode, r.Meta.ReferenceDir)
}

func (r Record) responseLen() int {
	switch r.Shape {
	case ShapeTwoColumn:
		return len(r.Columns)
	case ShapeComplex:
		return len(r.Complex)
	case ShapeAmplitude:
		return len(r.Amplitude)
	default:
		return -1
	}
}

// Validate checks the structural invariants of the record.
func (r Record) Validate() error {
	if r.PointCount < 1 {
		return fmt.Errorf("%w: point count %d", ErrInvalidRecord, r.PointCount)
	}
	if len(r.Frequencies) != r.PointCount {
		return fmt.Errorf("%w: %d frequencies for %d points", ErrInvalidRecord, len(r.Frequencies), r.PointCount)
	}
	if n := r.responseLen(); n != r.PointCount {
		return fmt.Errorf("%w: %d %s values for %d points", ErrInvalidRecord, n, r.Shape, r.PointCount)
	}
	for i, f := range r.Frequencies {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite frequency at index %d", ErrInvalidRecord, i)
		}
		if i > 0 && f < r.Frequencies[i-1] {
			return fmt.Errorf("%w: frequency axis decreases at index %d", ErrInvalidRecord, i)
		}
	}
	return nil
}

// ComplexResponse returns the response as complex values. Two-column tables
// are read as real (column 0) and imaginary (column 1) parts.
func (r Record) ComplexResponse() ([]complex128, error) {
	switch r.Shape {
	case ShapeComplex:
		out := make([]complex128, len(r.Complex))
		copy(out, r.Complex)
		return out, nil
	case ShapeTwoColumn:
		out := make([]complex128, len(r.Columns))
		for i, c := range r.Columns {
			out[i] = complex(c[0], c[1])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: shape %s", ErrNotComplex, r.Shape)
	}
}

// AmplitudeResponse returns the first-column reading of the response: column 0
// of a two-column table, the modulus of complex values, or the amplitude itself.
func (r Record) AmplitudeResponse() []float64 {
	switch r.Shape {
	case ShapeTwoColumn:
		out := make([]float64, len(r.Columns))
		for i, c := range r.Columns {
			out[i] = c[0]
		}
		return out
	case ShapeComplex:
		return r.Magnitude()
	default:
		out := make([]float64, len(r.Amplitude))
		copy(out, r.Amplitude)
		return out
	}
}

// Magnitude returns the linear magnitude of the response.
func (r Record) Magnitude() []float64 {
	switch r.Shape {
	case ShapeAmplitude:
		out := make([]float64, len(r.Amplitude))
		for i, v := range r.Amplitude {
			out[i] = math.Abs(v)
		}
		return out
	default:
		values, _ := r.ComplexResponse()
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = cmplx.Abs(v)
		}
		return out
	}
}

// DeriveAmplitudeRecord builds the export form of a two-column record: a new
// single-column linear magnitude record on the same frequency axis. Records
// of any other shape are returned unchanged.
func DeriveAmplitudeRecord(r Record) Record {
	if r.Shape != ShapeTwoColumn {
		return r
	}

	freqs := make([]float64, len(r.Frequencies))
	copy(freqs, r.Frequencies)

	amplitude := make([]float64, len(r.Columns))
	for i, c := range r.Columns {
		amplitude[i] = cmplx.Abs(complex(c[0], c[1]))
	}

	meta := r.Meta
	meta.OrdinateLabel = AmplitudeLabel

	return Record{
		Kind:        r.Kind,
		DataType:    DataTypeRealSingle,
		Shape:       ShapeAmplitude,
		PointCount:  r.PointCount,
		Frequencies: freqs,
		Amplitude:   amplitude,
		Meta:        meta,
	}
}

// ColumnCount is the number of ordinate values stored per point.
func (r Record) ColumnCount() int {
	if r.Shape == ShapeAmplitude {
		return 1
	}
	return 2
}

// Summarize builds the API view of r. Points carries magnitude and phase in
// degrees; amplitude records report zero phase.
func Summarize(r Record, includePoints bool) RecordSummary {
	s := RecordSummary{
		Name:       r.Name(),
		Kind:       int(r.Kind),
		Shape:      r.Shape.String(),
		DataType:   r.DataType,
		PointCount: r.PointCount,
		Meta:       r.Meta,
	}
	if n := len(r.Frequencies); n > 0 {
		s.FrequencyMin = r.Frequencies[0]
		s.FrequencyMax = r.Frequencies[n-1]
	}
	if !includePoints {
		return s
	}

	s.Points = make([]FrequencyPoint, len(r.Frequencies))
	values, err := r.ComplexResponse()
	for i, f := range r.Frequencies {
		p := FrequencyPoint{Frequency: f}
		if err != nil {
			p.Magnitude = math.Abs(r.Amplitude[i])
		} else {
			p.Magnitude = cmplx.Abs(values[i])
			p.Phase = cmplx.Phase(values[i]) * 180 / math.Pi
		}
		s.Points[i] = p
	}
	return s
}
