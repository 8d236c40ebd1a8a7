package server

import (
	"errors"
	"net/http"

	"github.com/SameerVers3/Scrapply/internal/registry"
	"github.com/SameerVers3/Scrapply/internal/sandbox"
	"github.com/SameerVers3/Scrapply/internal/store"
	"github.com/SameerVers3/Scrapply/internal/types"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, registry.ErrNotActive):
		return http.StatusNotFound
	}

	var sandboxErr *sandbox.Error
	if errors.As(err, &sandboxErr) {
		switch sandboxErr.Kind {
		case types.ErrKindTimeout:
			return http.StatusGatewayTimeout
		case types.ErrKindSafetyViolation, types.ErrKindImport:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}
