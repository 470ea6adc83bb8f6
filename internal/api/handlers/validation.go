package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RMahshie/emav/internal/processing"
	"github.com/RMahshie/emav/internal/repository"
	"github.com/RMahshie/emav/internal/storage"
	"github.com/RMahshie/emav/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadURLExpiry = 15 * time.Minute

// ValidationHandler handles validation job HTTP requests
type ValidationHandler struct {
	repo           repository.ValidationRepository
	store          storage.FileStore
	processingSvc  processing.ValidationService
	maxUploadBytes int64
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(repo repository.ValidationRepository, store storage.FileStore, processingSvc processing.ValidationService, maxUploadBytes int64) *ValidationHandler {
	return &ValidationHandler{
		repo:           repo,
		store:          store,
		processingSvc:  processingSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateValidation creates a validation job and returns upload URLs for both files
func (h *ValidationHandler) CreateValidation(ctx context.Context, req *models.CreateValidationRequest) (*models.CreateValidationResponse, error) {
	log.Info().
		Int64("referenceSize", req.Body.ReferenceSize).
		Int64("reconstructedSize", req.Body.ReconstructedSize).
		Msg("Creating new validation")

	if h.maxUploadBytes > 0 && (req.Body.ReferenceSize > h.maxUploadBytes || req.Body.ReconstructedSize > h.maxUploadBytes) {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("File too large. Maximum size is %d bytes.", h.maxUploadBytes), nil)
	}

	contentType := req.Body.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}

	validationID := uuid.New()
	refKey := fmt.Sprintf("records/%s/reference.unv", validationID)
	recKey := fmt.Sprintf("records/%s/reconstructed.unv", validationID)

	refURL, err := h.store.GenerateUploadURL(ctx, refKey, contentType)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}
	recURL, err := h.store.GenerateUploadURL(ctx, recKey, contentType)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}

	validation := &models.Validation{
		ID:               validationID.String(),
		SessionID:        req.Body.SessionID,
		Mode:             req.Body.Mode,
		Status:           models.StatusPending,
		Progress:         0,
		ReferenceKey:     &refKey,
		ReconstructedKey: &recKey,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := h.repo.Create(ctx, validation); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create validation", err)
	}

	log.Info().Str("validationID", validation.ID).Msg("Validation created, returning upload URLs")
	return &models.CreateValidationResponse{
		Body: models.CreateValidationResponseBody{
			ID:                     validation.ID,
			ReferenceUploadURL:     refURL,
			ReconstructedUploadURL: recURL,
			ExpiresIn:              int(uploadURLExpiry.Seconds()),
		},
	}, nil
}

// StartValidation starts processing the uploaded files in the background
func (h *ValidationHandler) StartValidation(ctx context.Context, req *models.StartValidationRequest) (*models.StartValidationResponse, error) {
	validationID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid validation ID", err)
	}

	if _, err := h.repo.GetByID(ctx, validationID); err != nil {
		return nil, statusError("Failed to load validation", err)
	}
	// The claim is a conditional update, so concurrent requests cannot both
	// start the pipeline.
	if err := h.repo.ClaimForProcessing(ctx, validationID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, huma.Error409Conflict("Validation already started", err)
		}
		return nil, statusError("Failed to start validation", err)
	}

	log.Info().Str("validationID", validationID.String()).Msg("Starting background processing goroutine")
	go h.runValidation(validationID)

	resp := &models.StartValidationResponse{}
	resp.Body.Message = "Processing started successfully"
	return resp, nil
}

// runValidation runs the pipeline outside the request. A panic marks the job
// failed instead of taking the process down.
func (h *ValidationHandler) runValidation(validationID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("validationID", validationID.String()).Msg("Processing panicked")
			_ = h.repo.UpdateError(context.Background(), validationID, fmt.Sprintf("Processing failed: panic: %v", r))
		}
	}()

	if err := h.processingSvc.ProcessValidation(context.Background(), validationID); err != nil {
		log.Error().Err(err).Str("validationID", validationID.String()).Msg("Processing failed")
		_ = h.repo.UpdateError(context.Background(), validationID, fmt.Sprintf("Processing failed: %v", err))
	}
}

// GetValidationStatus returns the current status of a validation
func (h *ValidationHandler) GetValidationStatus(ctx context.Context, req *models.GetValidationStatusRequest) (*models.GetValidationStatusResponse, error) {
	validationID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid validation ID", err)
	}

	validation, err := h.repo.GetByID(ctx, validationID)
	if err != nil {
		return nil, statusError("Failed to load validation", err)
	}

	var reportID *string
	if validation.Status == models.StatusCompleted {
		if results, err := h.repo.GetResults(ctx, validationID); err == nil && results != nil {
			reportID = &results.ID
		}
	}

	return &models.GetValidationStatusResponse{
		Body: models.GetValidationStatusResponseBody{
			ID:       validation.ID,
			Status:   validation.Status,
			Progress: validation.Progress,
			Message:  statusMessage(validation.Status, validation.Progress),
			Error:    validation.ErrorMsg,
			ReportID: reportID,
		},
	}, nil
}

// GetValidationReport returns the stored report of a completed validation
func (h *ValidationHandler) GetValidationReport(ctx context.Context, req *models.GetValidationReportRequest) (*models.GetValidationReportResponse, error) {
	validationID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid validation ID", err)
	}

	validation, err := h.repo.GetByID(ctx, validationID)
	if err != nil {
		return nil, statusError("Failed to load validation", err)
	}
	if validation.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Validation not yet completed",
			fmt.Errorf("validation status is %s", validation.Status))
	}

	results, err := h.repo.GetResults(ctx, validationID)
	if err != nil {
		return nil, statusError("Failed to get report", err)
	}

	return &models.GetValidationReportResponse{
		Body: models.GetValidationReportResponseBody{
			ID: results.ID,
			ValidationOutcome: outcome(results.Report, results.OverlapFraction,
				results.ReferenceDiagnostics, results.ReconstructedDiagnostics),
			ReferenceURL:     h.downloadURL(ctx, validation.ReferenceKey),
			ReconstructedURL: h.downloadURL(ctx, validation.ReconstructedKey),
			CreatedAt:        results.CreatedAt,
		},
	}, nil
}

// downloadURL presigns key, or returns "" when the upload is gone or the
// link cannot be made. A missing link never fails the report.
func (h *ValidationHandler) downloadURL(ctx context.Context, key *string) string {
	if key == nil {
		return ""
	}
	url, err := h.store.GenerateDownloadURL(ctx, *key)
	if err != nil {
		log.Warn().Err(err).Str("key", *key).Msg("Failed to presign record download")
		return ""
	}
	return url
}

// ListValidations returns the validations of a session, newest first
func (h *ValidationHandler) ListValidations(ctx context.Context, req *models.ListValidationsRequest) (*models.ListValidationsResponse, error) {
	validations, err := h.repo.GetBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, statusError("Failed to list validations", err)
	}

	resp := &models.ListValidationsResponse{}
	resp.Body.Validations = make([]models.ValidationSummary, 0, len(validations))
	for _, v := range validations {
		resp.Body.Validations = append(resp.Body.Validations, models.ValidationSummary{
			ID:          v.ID,
			Mode:        v.Mode,
			Status:      v.Status,
			Progress:    v.Progress,
			Error:       v.ErrorMsg,
			CreatedAt:   v.CreatedAt,
			CompletedAt: v.CompletedAt,
		})
	}
	return resp, nil
}

// statusMessage creates a human-readable status message
func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Waiting for uploads..."
	case models.StatusProcessing:
		switch {
		case progress < 50:
			return "Downloading records..."
		case progress < 65:
			return "Parsing records..."
		case progress < 90:
			return "Computing validation metrics..."
		default:
			return "Saving report..."
		}
	case models.StatusCompleted:
		return "Validation complete!"
	case models.StatusFailed:
		return "Validation failed."
	default:
		return "Unknown status"
	}
}
