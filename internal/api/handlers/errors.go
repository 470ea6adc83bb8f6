package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/emav/internal/repository"
	"github.com/RMahshie/emav/internal/unv"
	"github.com/RMahshie/emav/internal/validation"
)

// statusError maps domain errors onto HTTP errors. Unknown errors become 500s
// carrying fallback as their message.
func statusError(fallback string, err error) error {
	var formatErr *unv.FormatError
	var validationErr *validation.ValidationError

	switch {
	case errors.As(err, &formatErr):
		return huma.Error422UnprocessableEntity("Universal File could not be parsed: "+formatErr.Reason, err)
	case errors.As(err, &validationErr):
		return huma.Error422UnprocessableEntity("Records cannot be compared: "+validationErr.Reason, err)
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound("Validation not found", err)
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}
