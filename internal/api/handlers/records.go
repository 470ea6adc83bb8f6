package handlers

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/emav/internal/metrics"
	"github.com/RMahshie/emav/internal/unv"
	"github.com/RMahshie/emav/internal/validation"
	"github.com/RMahshie/emav/pkg/models"
)

// RecordHandler handles synchronous parse, export and compute requests
type RecordHandler struct {
	reader      *unv.Reader
	metrics     *metrics.Metrics
	defaultMode validation.Mode
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(reader *unv.Reader, m *metrics.Metrics, defaultMode validation.Mode) *RecordHandler {
	if reader == nil {
		reader = unv.NewReader()
	}
	if defaultMode == "" {
		defaultMode = validation.ModeComplex
	}
	return &RecordHandler{reader: reader, metrics: m, defaultMode: defaultMode}
}

func (h *RecordHandler) read(content string) (*unv.Result, error) {
	res, err := h.reader.Read(content)
	if err != nil {
		h.metrics.ObserveParse(models.ParseDiagnostics{}, err)
		return nil, err
	}
	h.metrics.ObserveParse(res.Diagnostics, nil)
	return res, nil
}

// ParseRecord parses Universal File text and returns the record summary
func (h *RecordHandler) ParseRecord(ctx context.Context, req *models.ParseRecordRequest) (*models.ParseRecordResponse, error) {
	res, err := h.read(req.Body.Content)
	if err != nil {
		log.Info().Err(err).Msg("Parse request rejected")
		return nil, statusError("Failed to parse record", err)
	}

	log.Info().
		Str("tier", string(res.Diagnostics.Tier)).
		Int("points", res.Record.PointCount).
		Bool("low_confidence", res.Diagnostics.LowConfidence()).
		Msg("Record parsed")

	return &models.ParseRecordResponse{
		Body: models.ParseRecordResponseBody{
			Record:        models.Summarize(res.Record, req.IncludePoints),
			Diagnostics:   res.Diagnostics,
			LowConfidence: res.Diagnostics.LowConfidence(),
		},
	}, nil
}

// ExportAmplitude returns the amplitude form of the posted record
func (h *RecordHandler) ExportAmplitude(ctx context.Context, req *models.ExportAmplitudeRequest) (*models.ExportAmplitudeResponse, error) {
	res, err := h.read(req.Body.Content)
	if err != nil {
		return nil, statusError("Failed to parse record", err)
	}

	var out strings.Builder
	derived, err := unv.ExportAmplitude(&out, res.Record)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to write amplitude record", err)
	}

	return &models.ExportAmplitudeResponse{
		Body: models.ExportAmplitudeResponseBody{
			Derived: derived,
			Content: out.String(),
		},
	}, nil
}

// ComputeValidation parses both records and compares them synchronously
func (h *RecordHandler) ComputeValidation(ctx context.Context, req *models.ComputeValidationRequest) (*models.ComputeValidationResponse, error) {
	mode := h.defaultMode
	if req.Body.Mode != "" {
		var err error
		if mode, err = validation.ParseMode(req.Body.Mode); err != nil {
			return nil, huma.Error400BadRequest("Invalid mode", err)
		}
	}

	ref, err := h.read(req.Body.Reference)
	if err != nil {
		return nil, statusError("Failed to parse reference record", err)
	}
	rec, err := h.read(req.Body.Reconstructed)
	if err != nil {
		return nil, statusError("Failed to parse reconstructed record", err)
	}

	comparison, err := validation.ComputeRecords(ref.Record, rec.Record, mode)
	if err != nil {
		return nil, statusError("Failed to compute validation", err)
	}

	return &models.ComputeValidationResponse{
		Body: outcome(comparison.Report, comparison.Overlap, ref.Diagnostics, rec.Diagnostics),
	}, nil
}

func outcome(report models.ValidationReport, overlap float64, refDiag, recDiag models.ParseDiagnostics) models.ValidationOutcome {
	return models.ValidationOutcome{
		Report:                   report,
		Bands:                    validation.BandsOf(report),
		Text:                     validation.RenderText(report),
		OverlapFraction:          overlap,
		ReferenceDiagnostics:     refDiag,
		ReconstructedDiagnostics: recDiag,
	}
}
