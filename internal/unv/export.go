package unv

import (
	"io"

	"github.com/RMahshie/emav/internal/uff"
	"github.com/RMahshie/emav/pkg/models"
)

// WriteRecord writes rec as a dataset 58 block.
func WriteRecord(w io.Writer, rec models.Record) error {
	return uff.WriteFunction(w, ToFunction(rec))
}

// ExportAmplitude writes the linear-magnitude form of rec and reports whether
// a derived record was produced. Records that are not two-column tables are
// written unchanged.
func ExportAmplitude(w io.Writer, rec models.Record) (bool, error) {
	derived := models.DeriveAmplitudeRecord(rec)
	if err := WriteRecord(w, derived); err != nil {
		return false, err
	}
	return derived.Shape != rec.Shape, nil
}
