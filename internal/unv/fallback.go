package unv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/emav/internal/uff"
	"github.com/RMahshie/emav/pkg/models"
)

// DefaultFilteredDatasets lists dataset markers stripped before the strict
// reader runs: 158 blocks and the 151 header blocks simplified exporters
// write in a shape the strict reader rejects.
var DefaultFilteredDatasets = []string{"151", "158"}

// Reader parses records with the resilient parser and falls back to the
// strict dataset reader on failure.
type Reader struct {
	filtered map[string]bool
}

// NewReader returns a Reader that strips the given dataset markers before
// falling back. With no markers, DefaultFilteredDatasets is used.
func NewReader(filtered ...string) *Reader {
	if len(filtered) == 0 {
		filtered = DefaultFilteredDatasets
	}
	set := make(map[string]bool, len(filtered))
	for _, f := range filtered {
		if f = strings.TrimSpace(f); f != "" {
			set[f] = true
		}
	}
	return &Reader{filtered: set}
}

var defaultReader = NewReader()

// ParseWithFallback parses raw with the default Reader.
func ParseWithFallback(raw string) (*Result, error) {
	return defaultReader.Read(raw)
}

// Read returns the first function record of raw.
func (r *Reader) Read(raw string) (*Result, error) {
	res, primaryErr := Parse(raw)
	if primaryErr == nil {
		return res, nil
	}
	log.Debug().Err(primaryErr).Msg("resilient parser failed, falling back to dataset reader")

	lines := splitLines(raw)
	kept, removed := FilterBlocks(lines, r.filtered)

	datasets, err := uff.ReadAll(strings.NewReader(strings.Join(kept, "\n")))
	if err != nil {
		return nil, formatErr(-1, "fallback reader failed", errors.Join(primaryErr, err))
	}

	functions := uff.Functions(datasets)
	if len(functions) == 0 {
		var blockErrs []error
		for _, ds := range datasets {
			if ds.Err != nil {
				blockErrs = append(blockErrs, ds.Err)
			}
		}
		return nil, formatErr(-1, "no valid data sets found",
			errors.Join(append([]error{primaryErr}, blockErrs...)...))
	}
	if len(functions) > 1 {
		log.Debug().Int("functions", len(functions)).Msg("fallback reader returned several records, using the first")
	}

	rec, err := FromFunction(functions[0])
	if err != nil {
		return nil, formatErr(-1, "fallback record unusable", errors.Join(primaryErr, err))
	}

	n := rec.PointCount
	return &Result{
		Record: rec,
		Diagnostics: models.ParseDiagnostics{
			Tier:            models.TierFallback,
			MarkerLine:      -1,
			PayloadLine:     -1,
			ValuesExpected:  n * rec.ColumnCount(),
			ValuesCollected: n * rec.ColumnCount(),
			FilteredBlocks:  removed,
			PrimaryError:    primaryErr.Error(),
		},
	}, nil
}

// FilterBlocks drops every block whose marker line (one of filtered) directly
// follows a delimiter. Lines from the marker up to the next delimiter are
// removed; that delimiter is kept since it opens the following block.
func FilterBlocks(lines []string, filtered map[string]bool) ([]string, int) {
	out := make([]string, 0, len(lines))
	removed := 0
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if filtered[line] && i > 0 && strings.TrimSpace(lines[i-1]) == delimiter {
			removed++
			for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != delimiter {
				i++
			}
			continue
		}
		out = append(out, lines[i])
	}
	return out, removed
}

// FromFunction normalizes a strict-reader function dataset into a Record.
func FromFunction(f *uff.Function) (models.Record, error) {
	rec := models.Record{
		Kind:        models.KindFunction,
		DataType:    f.OrdDataType,
		PointCount:  f.NumPts,
		Frequencies: append([]float64(nil), f.X...),
		Meta: models.RecordMeta{
			Description:   f.ID1,
			ResponseNode:  f.RspNode,
			ResponseDir:   f.RspDir,
			ReferenceNode: f.RefNode,
			ReferenceDir:  f.RefDir,
			AbscissaLabel: f.Abscissa.Label,
			AbscissaUnits: f.Abscissa.Units,
			OrdinateLabel: f.Ordinate.Label,
			OrdinateUnits: f.Ordinate.Units,
		},
	}
	if f.IsComplex() {
		rec.Shape = models.ShapeComplex
		rec.Complex = append([]complex128(nil), f.Data...)
	} else {
		rec.Shape = models.ShapeAmplitude
		rec.Amplitude = append([]float64(nil), f.Real...)
	}
	if err := rec.Validate(); err != nil {
		return models.Record{}, fmt.Errorf("normalize dataset 58: %w", err)
	}
	return rec, nil
}

// ToFunction is the inverse of FromFunction, used when exporting records.
func ToFunction(rec models.Record) *uff.Function {
	f := &uff.Function{
		ID1:         rec.Meta.Description,
		FuncType:    4,
		RspEntName:  "NONE",
		RspNode:     rec.Meta.ResponseNode,
		RspDir:      rec.Meta.ResponseDir,
		RefEntName:  "NONE",
		RefNode:     rec.Meta.ReferenceNode,
		RefDir:      rec.Meta.ReferenceDir,
		OrdDataType: rec.DataType,
		NumPts:      rec.PointCount,
		X:           append([]float64(nil), rec.Frequencies...),
		Abscissa:    uff.AxisDef{SpecDataType: 18, Label: rec.Meta.AbscissaLabel, Units: rec.Meta.AbscissaUnits},
		Ordinate:    uff.AxisDef{Label: rec.Meta.OrdinateLabel, Units: rec.Meta.OrdinateUnits},
	}
	if f.ID1 == "" {
		f.ID1 = rec.Name()
	}

	switch rec.Shape {
	case models.ShapeAmplitude:
		f.OrdDataType = models.DataTypeRealSingle
		f.Real = append([]float64(nil), rec.Amplitude...)
	default:
		values, _ := rec.ComplexResponse()
		if f.OrdDataType != models.DataTypeComplexDouble {
			f.OrdDataType = models.DataTypeComplexSingle
		}
		f.Data = values
	}
	return f
}
