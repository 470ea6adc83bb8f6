package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/emav/internal/api/handlers"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, records *handlers.RecordHandler, validations *handlers.ValidationHandler) {
	// Synchronous record routes
	huma.Register(api, huma.Operation{
		OperationID: "parseRecord",
		Method:      http.MethodPost,
		Path:        "/api/records/parse",
		Summary:     "Parse a Universal File record",
		Description: "Parses the first dataset 58 record of the posted text and reports how it was recovered",
		Tags:        []string{"Records"},
	}, records.ParseRecord)

	huma.Register(api, huma.Operation{
		OperationID: "exportAmplitude",
		Method:      http.MethodPost,
		Path:        "/api/records/amplitude",
		Summary:     "Export amplitude record",
		Description: "Derives the linear-magnitude form of a two-column record and returns it as Universal File text",
		Tags:        []string{"Records"},
	}, records.ExportAmplitude)

	huma.Register(api, huma.Operation{
		OperationID: "validateRecords",
		Method:      http.MethodPost,
		Path:        "/api/validations/compute",
		Summary:     "Compare two records",
		Description: "Aligns the reference FRF onto the reconstructed grid and returns the validation report",
		Tags:        []string{"Validation"},
	}, records.ComputeValidation)

	// Asynchronous validation jobs
	huma.Register(api, huma.Operation{
		OperationID:   "createValidation",
		Method:        http.MethodPost,
		Path:          "/api/validations",
		Summary:       "Create a new validation",
		Description:   "Creates a validation job and returns upload URLs for the reference and reconstructed files",
		Tags:          []string{"Validation"},
		DefaultStatus: http.StatusCreated,
	}, validations.CreateValidation)

	huma.Register(api, huma.Operation{
		OperationID: "listValidations",
		Method:      http.MethodGet,
		Path:        "/api/validations",
		Summary:     "List validations",
		Description: "Lists the validations created by a client session, newest first",
		Tags:        []string{"Validation"},
	}, validations.ListValidations)

	huma.Register(api, huma.Operation{
		OperationID:   "startValidation",
		Method:        http.MethodPost,
		Path:          "/api/validations/{id}/process",
		Summary:       "Start processing validation",
		Description:   "Starts comparing the uploaded files in the background",
		Tags:          []string{"Validation"},
		DefaultStatus: http.StatusAccepted,
	}, validations.StartValidation)

	huma.Register(api, huma.Operation{
		OperationID: "getValidationStatus",
		Method:      http.MethodGet,
		Path:        "/api/validations/{id}/status",
		Summary:     "Get validation status",
		Description: "Returns the current status and progress of a validation",
		Tags:        []string{"Validation"},
	}, validations.GetValidationStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getValidationReport",
		Method:      http.MethodGet,
		Path:        "/api/validations/{id}/report",
		Summary:     "Get validation report",
		Description: "Returns the stored report of a completed validation",
		Tags:        []string{"Validation"},
	}, validations.GetValidationReport)
}
