package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/emav/internal/metrics"
	"github.com/RMahshie/emav/internal/repository"
	"github.com/RMahshie/emav/internal/storage"
	"github.com/RMahshie/emav/internal/unv"
	"github.com/RMahshie/emav/internal/validation"
	"github.com/RMahshie/emav/pkg/models"
)

type ValidationService interface {
	ProcessValidation(ctx context.Context, validationID uuid.UUID) error
}

type validationService struct {
	store       storage.FileStore
	repository  repository.ValidationRepository
	reader      *unv.Reader
	metrics     *metrics.Metrics
	defaultMode validation.Mode
	cleanup     bool
}

// Option customizes a ValidationService
type Option func(*validationService)

// WithReader sets the record reader used for both files
func WithReader(r *unv.Reader) Option {
	return func(s *validationService) { s.reader = r }
}

// WithMetrics records job outcomes on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *validationService) { s.metrics = m }
}

// WithDefaultMode sets the mode used for jobs created without one
func WithDefaultMode(mode validation.Mode) Option {
	return func(s *validationService) { s.defaultMode = mode }
}

// WithUploadCleanup deletes both uploaded records after a job completes
func WithUploadCleanup(enabled bool) Option {
	return func(s *validationService) { s.cleanup = enabled }
}

func NewValidationService(store storage.FileStore, repo repository.ValidationRepository, opts ...Option) ValidationService {
	s := &validationService{
		store:       store,
		repository:  repo,
		reader:      unv.NewReader(),
		defaultMode: validation.ModeComplex,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessValidation runs one job to completion. Problems with the uploaded
// files mark the job failed and return nil; repository errors are returned.
func (s *validationService) ProcessValidation(ctx context.Context, validationID uuid.UUID) error {
	start := time.Now()
	logger := log.With().Str("validationID", validationID.String()).Logger()

	// Step 1: Update to processing status
	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 10); err != nil {
		return err
	}

	job, err := s.repository.GetByID(ctx, validationID)
	if err != nil {
		return err
	}

	fail := func(msg string, cause error) error {
		logger.Warn().Err(cause).Msg(msg)
		s.metrics.ObserveValidation(models.StatusFailed, time.Since(start), nil)
		if cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, cause)
		}
		return s.repository.UpdateError(ctx, validationID, msg)
	}

	if job.ReferenceKey == nil || job.ReconstructedKey == nil {
		return fail("Validation is missing an uploaded file", nil)
	}

	mode := s.defaultMode
	if job.Mode != "" {
		if mode, err = validation.ParseMode(job.Mode); err != nil {
			return fail("Invalid reconstructed mode", err)
		}
	}

	// Step 2: Download both files
	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 20); err != nil {
		return err
	}
	refData, err := s.store.DownloadFile(ctx, *job.ReferenceKey)
	if err != nil {
		return fail("Failed to download reference file", err)
	}

	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 35); err != nil {
		return err
	}
	recData, err := s.store.DownloadFile(ctx, *job.ReconstructedKey)
	if err != nil {
		return fail("Failed to download reconstructed file", err)
	}

	// Step 3: Parse
	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 50); err != nil {
		return err
	}
	ref, err := s.reader.Read(string(refData))
	s.observeParse(ref, err)
	if err != nil {
		return fail("Failed to parse reference file", err)
	}
	rec, err := s.reader.Read(string(recData))
	s.observeParse(rec, err)
	if err != nil {
		return fail("Failed to parse reconstructed file", err)
	}
	if ref.Diagnostics.LowConfidence() || rec.Diagnostics.LowConfidence() {
		logger.Warn().
			Int("reference_padded", ref.Diagnostics.PaddedValues).
			Int("reconstructed_padded", rec.Diagnostics.PaddedValues).
			Msg("validating low-confidence records")
	}

	// Step 4: Align and compute
	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 65); err != nil {
		return err
	}
	comparison, err := validation.ComputeRecords(ref.Record, rec.Record, mode)
	if err != nil {
		return fail("Failed to compute validation metrics", err)
	}
	if comparison.Overlap < 1 {
		logger.Warn().Float64("overlap", comparison.Overlap).Msg("reference axis does not cover the reconstructed grid, uncovered points compared against zero")
	}

	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 80); err != nil {
		return err
	}

	// Step 5: Store results
	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusProcessing, 90); err != nil {
		return err
	}
	results := &models.ValidationResults{
		ID:                       uuid.New().String(),
		ValidationID:             job.ID,
		Report:                   comparison.Report,
		ReferenceDiagnostics:     ref.Diagnostics,
		ReconstructedDiagnostics: rec.Diagnostics,
		OverlapFraction:          comparison.Overlap,
		CreatedAt:                time.Now(),
	}
	if err := s.repository.StoreResults(ctx, results); err != nil {
		return err
	}

	// Step 6: Mark complete
	if err := s.repository.UpdateStatus(ctx, validationID, models.StatusCompleted, 100); err != nil {
		return err
	}

	if s.cleanup {
		s.removeUploads(ctx, validationID, job)
	}

	s.metrics.ObserveValidation(models.StatusCompleted, time.Since(start), &comparison.Report)
	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("peaks_matched", comparison.Report.PeaksMatched).
		Msg("validation completed")
	return nil
}

// removeUploads deletes the records of a completed job. Failures are logged
// only; the keys are kept when any delete fails so a later sweep can retry.
func (s *validationService) removeUploads(ctx context.Context, validationID uuid.UUID, job *models.Validation) {
	logger := log.With().Str("validationID", validationID.String()).Logger()
	for _, key := range []string{*job.ReferenceKey, *job.ReconstructedKey} {
		if err := s.store.DeleteFile(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to delete upload")
			return
		}
	}
	if err := s.repository.ClearUploadKeys(ctx, validationID); err != nil {
		logger.Warn().Err(err).Msg("failed to clear upload keys")
	}
}

func (s *validationService) observeParse(res *unv.Result, err error) {
	if err != nil {
		s.metrics.ObserveParse(models.ParseDiagnostics{}, err)
		return
	}
	s.metrics.ObserveParse(res.Diagnostics, nil)
}
