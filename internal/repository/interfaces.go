package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/emav/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a validation or its results do not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a validation is not in a state that allows
	// the requested transition
	ErrConflict = errors.New("conflicting validation state")
)

// ValidationRepository defines the interface for validation job operations
type ValidationRepository interface {
	Create(ctx context.Context, validation *models.Validation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Validation, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]*models.Validation, error)
	// ClaimForProcessing moves a pending or failed validation to processing
	// in one statement. It returns ErrConflict when the job is in any other state.
	ClaimForProcessing(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	ClearUploadKeys(ctx context.Context, id uuid.UUID) error
	StoreResults(ctx context.Context, results *models.ValidationResults) error
	GetResults(ctx context.Context, validationID uuid.UUID) (*models.ValidationResults, error)
}
