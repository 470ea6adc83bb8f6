package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RMahshie/emav/internal/repository"
	"github.com/RMahshie/emav/pkg/models"
	"github.com/google/uuid"
)

// PostgresValidationRepository implements ValidationRepository for PostgreSQL
type PostgresValidationRepository struct {
	db *sql.DB
}

// NewPostgresValidationRepository creates a new PostgreSQL validation repository
func NewPostgresValidationRepository(db *sql.DB) repository.ValidationRepository {
	return &PostgresValidationRepository{db: db}
}

const validationColumns = `id, session_id, mode, status, progress, reference_key, reconstructed_key, error_message, created_at, updated_at, completed_at`

// Create inserts a new validation record. An empty ID is filled in.
func (r *PostgresValidationRepository) Create(ctx context.Context, validation *models.Validation) error {
	if validation.ID == "" {
		validation.ID = uuid.New().String()
	}
	if validation.Mode == "" {
		validation.Mode = "complex"
	}
	if validation.Status == "" {
		validation.Status = models.StatusPending
	}

	query := `
		INSERT INTO validations (id, session_id, mode, status, progress, reference_key, reconstructed_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		validation.ID,
		validation.SessionID,
		validation.Mode,
		validation.Status,
		validation.Progress,
		validation.ReferenceKey,
		validation.ReconstructedKey).Scan(&validation.CreatedAt, &validation.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert validation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidation(row rowScanner) (*models.Validation, error) {
	var v models.Validation
	var referenceKey, reconstructedKey, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&v.ID,
		&v.SessionID,
		&v.Mode,
		&v.Status,
		&v.Progress,
		&referenceKey,
		&reconstructedKey,
		&errorMsg,
		&v.CreatedAt,
		&v.UpdatedAt,
		&completedAt)
	if err != nil {
		return nil, err
	}

	if referenceKey.Valid {
		v.ReferenceKey = &referenceKey.String
	}
	if reconstructedKey.Valid {
		v.ReconstructedKey = &reconstructedKey.String
	}
	if errorMsg.Valid {
		v.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		v.CompletedAt = &completedAt.Time
	}
	return &v, nil
}

// GetByID retrieves a validation by ID
func (r *PostgresValidationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Validation, error) {
	query := `SELECT ` + validationColumns + ` FROM validations WHERE id = $1`

	v, err := scanValidation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("validation %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validation: %w", err)
	}
	return v, nil
}

// GetBySessionID retrieves validations by session ID, newest first
func (r *PostgresValidationRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Validation, error) {
	query := `SELECT ` + validationColumns + ` FROM validations WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list validations: %w", err)
	}
	defer rows.Close()

	var validations []*models.Validation
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, err
		}
		validations = append(validations, v)
	}
	return validations, rows.Err()
}

// ClaimForProcessing marks a pending or failed validation as processing
func (r *PostgresValidationRepository) ClaimForProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE validations
		SET status = 'processing', progress = 0, error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to claim validation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("validation %s is not pending or failed: %w", id, repository.ErrConflict)
	}
	return nil
}

// UpdateStatus updates the status and progress of a validation. Moving back
// to processing clears the message of an earlier failure.
func (r *PostgresValidationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE validations
		SET status = $1, progress = $2, updated_at = NOW(),
		    error_message = CASE WHEN $1 = 'processing' THEN NULL ELSE error_message END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, status, progress, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return expectRow(res, id)
}

// UpdateError marks a validation as failed with the given message
func (r *PostgresValidationRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE validations
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, errorMsg, id)
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return expectRow(res, id)
}

// ClearUploadKeys forgets the object keys of a validation whose uploads
// were deleted
func (r *PostgresValidationRepository) ClearUploadKeys(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE validations
		SET reference_key = NULL, reconstructed_key = NULL, updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear upload keys: %w", err)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("validation %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// StoreResults stores a validation report
func (r *PostgresValidationRepository) StoreResults(ctx context.Context, results *models.ValidationResults) error {
	report, err := json.Marshal(results.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	refDiag, err := json.Marshal(results.ReferenceDiagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal reference diagnostics: %w", err)
	}
	recDiag, err := json.Marshal(results.ReconstructedDiagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal reconstructed diagnostics: %w", err)
	}

	query := `
		INSERT INTO validation_results (id, validation_id, report, reference_diagnostics, reconstructed_diagnostics, overlap_fraction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.ValidationID,
		string(report),
		string(refDiag),
		string(recDiag),
		results.OverlapFraction,
		results.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	return nil
}

// GetResults retrieves the report of a validation
func (r *PostgresValidationRepository) GetResults(ctx context.Context, validationID uuid.UUID) (*models.ValidationResults, error) {
	query := `
		SELECT id, validation_id, report, reference_diagnostics, reconstructed_diagnostics, overlap_fraction, created_at
		FROM validation_results
		WHERE validation_id = $1`

	var results models.ValidationResults
	var report, refDiag, recDiag []byte

	err := r.db.QueryRowContext(ctx, query, validationID).Scan(
		&results.ID,
		&results.ValidationID,
		&report,
		&refDiag,
		&recDiag,
		&results.OverlapFraction,
		&results.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("results for %s: %w", validationID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	if err := json.Unmarshal(report, &results.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	if err := json.Unmarshal(refDiag, &results.ReferenceDiagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reference diagnostics: %w", err)
	}
	if err := json.Unmarshal(recDiag, &results.ReconstructedDiagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconstructed diagnostics: %w", err)
	}
	return &results, nil
}
