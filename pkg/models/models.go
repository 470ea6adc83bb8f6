package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// RecordSummary describes a parsed record without its full payload
type RecordSummary struct {
	Name         string           `json:"name" doc:"Record label (Resp:node:dir/Ref:node:dir)"`
	Kind         int              `json:"kind" doc:"Universal File dataset type"`
	Shape        string           `json:"shape" enum:"two_column,complex,amplitude" doc:"How ordinate values are stored"`
	DataType     int              `json:"data_type" doc:"Ordinate data type tag"`
	PointCount   int              `json:"point_count" doc:"Number of frequency points"`
	FrequencyMin float64          `json:"frequency_min" doc:"First abscissa value"`
	FrequencyMax float64          `json:"frequency_max" doc:"Last abscissa value"`
	Meta         RecordMeta       `json:"meta" doc:"Descriptive record fields"`
	Points       []FrequencyPoint `json:"points,omitempty" doc:"Magnitude and phase per frequency, when requested"`
}

// ParseRecordRequest represents a request to parse Universal File text
type ParseRecordRequest struct {
	IncludePoints bool `query:"points" doc:"Include magnitude/phase points in the response"`
	Body          struct {
		Content string `json:"content" minLength:"1" required:"true" doc:"Universal File text"`
	}
}

// ParseRecordResponseBody is the body of the parse response
type ParseRecordResponseBody struct {
	Record        RecordSummary    `json:"record" doc:"Parsed record"`
	Diagnostics   ParseDiagnostics `json:"diagnostics" doc:"How the record was recovered"`
	LowConfidence bool             `json:"low_confidence" doc:"Record was zero-padded or cut at the safety bound"`
}

// ParseRecordResponse represents the parse response
type ParseRecordResponse struct {
	Body ParseRecordResponseBody
}

// ExportAmplitudeRequest represents a request to derive an amplitude record
type ExportAmplitudeRequest struct {
	Body struct {
		Content string `json:"content" minLength:"1" required:"true" doc:"Universal File text"`
	}
}

// ExportAmplitudeResponseBody is the body of the amplitude export response
type ExportAmplitudeResponseBody struct {
	Derived bool   `json:"derived" doc:"False when the record was passed through unchanged"`
	Content string `json:"content" doc:"Universal File text of the exported record"`
}

// ExportAmplitudeResponse represents the amplitude export response
type ExportAmplitudeResponse struct {
	Body ExportAmplitudeResponseBody
}

// ComputeValidationRequest represents a synchronous validation of two records
type ComputeValidationRequest struct {
	Body struct {
		Reference     string `json:"reference" minLength:"1" required:"true" doc:"Universal File text of the experimental FRF"`
		Reconstructed string `json:"reconstructed" minLength:"1" required:"true" doc:"Universal File text of the reconstructed FRF"`
		Mode          string `json:"mode,omitempty" enum:"complex,amplitude" doc:"How the reconstructed record is read"`
	}
}

// ValidationOutcome is a computed report with its context
type ValidationOutcome struct {
	Report                   ValidationReport `json:"report" doc:"Validation metrics"`
	Bands                    QualityBands     `json:"bands" doc:"Quality bands of R² and FRAC"`
	Text                     string           `json:"text" doc:"Human-readable report"`
	OverlapFraction          float64          `json:"overlap_fraction" doc:"Share of the reconstructed grid covered by the reference axis"`
	ReferenceDiagnostics     ParseDiagnostics `json:"reference_diagnostics" doc:"Parse diagnostics of the reference record"`
	ReconstructedDiagnostics ParseDiagnostics `json:"reconstructed_diagnostics" doc:"Parse diagnostics of the reconstructed record"`
}

// ComputeValidationResponse represents the synchronous validation response
type ComputeValidationResponse struct {
	Body ValidationOutcome
}

// CreateValidationRequest represents a request to create a validation job
type CreateValidationRequest struct {
	Body struct {
		SessionID         string `json:"session_id" minLength:"10" maxLength:"50" required:"true" doc:"Client session identifier"`
		Mode              string `json:"mode,omitempty" enum:"complex,amplitude" doc:"How the reconstructed record is read"`
		ReferenceSize     int64  `json:"reference_size" minimum:"1" required:"true" doc:"Reference file size in bytes"`
		ReconstructedSize int64  `json:"reconstructed_size" minimum:"1" required:"true" doc:"Reconstructed file size in bytes"`
		ContentType       string `json:"content_type,omitempty" enum:"text/plain,application/octet-stream" doc:"Upload content type"`
	}
}

// CreateValidationResponseBody is the body of the create validation response
type CreateValidationResponseBody struct {
	ID                     string `json:"id" doc:"Validation unique identifier"`
	ReferenceUploadURL     string `json:"reference_upload_url" doc:"Pre-signed URL for the reference file"`
	ReconstructedUploadURL string `json:"reconstructed_upload_url" doc:"Pre-signed URL for the reconstructed file"`
	ExpiresIn              int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateValidationResponse represents the response from creating a validation
type CreateValidationResponse struct {
	Body CreateValidationResponseBody
}

// StartValidationRequest represents a request to start processing uploaded files
type StartValidationRequest struct {
	ID string `path:"id" doc:"Validation ID"`
}

// StartValidationResponse represents the response from starting processing
type StartValidationResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// GetValidationStatusRequest represents a request to get validation status
type GetValidationStatusRequest struct {
	ID string `path:"id" doc:"Validation ID"`
}

// GetValidationStatusResponseBody is the body of the status response
type GetValidationStatusResponseBody struct {
	ID       string  `json:"id" doc:"Validation ID"`
	Status   string  `json:"status" enum:"pending,processing,completed,failed" doc:"Validation status"`
	Progress int     `json:"progress" minimum:"0" maximum:"100" doc:"Validation progress percentage"`
	Message  string  `json:"message,omitempty" doc:"Human-readable status message"`
	Error    *string `json:"error,omitempty" doc:"Failure reason"`
	ReportID *string `json:"report_id,omitempty" doc:"Report ID when validation completes"`
}

// GetValidationStatusResponse represents the current status of a validation
type GetValidationStatusResponse struct {
	Body GetValidationStatusResponseBody
}

// GetValidationReportRequest represents a request to get a stored report
type GetValidationReportRequest struct {
	ID string `path:"id" doc:"Validation ID"`
}

// GetValidationReportResponseBody is the body of the report response
type GetValidationReportResponseBody struct {
	ID string `json:"id" doc:"Report ID"`
	ValidationOutcome
	ReferenceURL     string    `json:"reference_url,omitempty" doc:"Pre-signed download URL of the reference file, while it is retained"`
	ReconstructedURL string    `json:"reconstructed_url,omitempty" doc:"Pre-signed download URL of the reconstructed file, while it is retained"`
	CreatedAt        time.Time `json:"created_at" doc:"Report creation timestamp"`
}

// GetValidationReportResponse represents the stored validation report
type GetValidationReportResponse struct {
	Body GetValidationReportResponseBody
}

// ListValidationsRequest lists the validations of a client session
type ListValidationsRequest struct {
	SessionID string `query:"session_id" required:"true" minLength:"10" maxLength:"50" doc:"Client session identifier"`
}

// ValidationSummary is one entry of a validation listing
type ValidationSummary struct {
	ID          string     `json:"id" doc:"Validation ID"`
	Mode        string     `json:"mode" doc:"How the reconstructed record is read"`
	Status      string     `json:"status" enum:"pending,processing,completed,failed" doc:"Validation status"`
	Progress    int        `json:"progress" doc:"Validation progress percentage"`
	Error       *string    `json:"error,omitempty" doc:"Failure reason"`
	CreatedAt   time.Time  `json:"created_at" doc:"Creation timestamp"`
	CompletedAt *time.Time `json:"completed_at,omitempty" doc:"Completion timestamp"`
}

// ListValidationsResponse represents the validations of a session, newest first
type ListValidationsResponse struct {
	Body struct {
		Validations []ValidationSummary `json:"validations" doc:"Validations, newest first"`
	}
}
