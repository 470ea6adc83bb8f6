// Package uff reads and writes Universal File Format datasets in their
// standard fixed-record layout.
//
// The reader is tolerant about formatting (missing column separators,
// Fortran D exponents, free-form spacing in the header records) but strict
// about structure: a function dataset must carry all eleven header records
// and as many ordinate values as record 7 announces. Unsupported dataset
// types are returned opaque rather than rejected.
package uff

import (
	"errors"
	"fmt"
)

// Dataset type numbers understood by this package.
const (
	TypeHeader   = 151
	TypeUnits    = 164
	TypeFunction = 58
)

const delimiter = "-1"

// MaxPoints caps the point count a dataset 58 header may announce. Larger
// counts are rejected before any buffer is sized from them.
const MaxPoints = 1 << 20

// ErrMalformed is wrapped by every structural parse error.
var ErrMalformed = errors.New("malformed universal file dataset")

// AxisDef is one of the axis characteristic records (8 to 11) of dataset 58.
type AxisDef struct {
	SpecDataType  int
	LenUnitsExp   int
	ForceUnitsExp int
	TempUnitsExp  int
	Label         string
	Units         string
}

// Function is a dataset 58 record: function data at a nodal degree of freedom.
type Function struct {
	ID1, ID2, ID3, ID4, ID5 string

	FuncType   int
	FuncID     int
	VerNum     int
	LoadCaseID int
	RspEntName string
	RspNode    int
	RspDir     int
	RefEntName string
	RefNode    int
	RefDir     int

	OrdDataType     int
	NumPts          int
	AbscissaSpacing int
	AbscissaMin     float64
	AbscissaInc     float64
	ZAxisValue      float64

	Abscissa      AxisDef
	Ordinate      AxisDef
	OrdinateDenom AxisDef
	ZAxis         AxisDef

	X    []float64
	Real []float64    // real ordinate data types
	Data []complex128 // complex ordinate data types
}

// IsComplex reports whether the ordinate data type holds complex values.
func (f *Function) IsComplex() bool {
	return f.OrdDataType == 5 || f.OrdDataType == 6
}

// Header is a dataset 151 record.
type Header struct {
	ModelName   string
	Description string
	DBApp       string
	DateCreated string
	Program     string
}

// Dataset is one delimited block. Function or Header is set when the block
// was understood; Err records why a block of a supported type was not.
type Dataset struct {
	Type     int
	Line     int
	Function *Function
	Header   *Header
	Lines    []string
	Err      error
}

func malformed(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, line, fmt.Sprintf(format, args...))
}
