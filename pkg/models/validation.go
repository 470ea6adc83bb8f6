package models

import (
	"time"
)

// Validation job statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Validation represents an asynchronous validation job (for internal use)
type Validation struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	Mode             string     `json:"mode"` // complex or amplitude
	Status           string     `json:"status"`
	Progress         int        `json:"progress"`
	ReferenceKey     *string    `json:"reference_key,omitempty"`
	ReconstructedKey *string    `json:"reconstructed_key,omitempty"`
	ErrorMsg         *string    `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ValidationResults represents a stored validation report
type ValidationResults struct {
	ID                       string           `json:"id"`
	ValidationID             string           `json:"validation_id"`
	Report                   ValidationReport `json:"report"`
	ReferenceDiagnostics     ParseDiagnostics `json:"reference_diagnostics"`
	ReconstructedDiagnostics ParseDiagnostics `json:"reconstructed_diagnostics"`
	OverlapFraction          float64          `json:"overlap_fraction"`
	CreatedAt                time.Time        `json:"created_at"`
}
