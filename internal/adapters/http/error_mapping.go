package httpadapter

import (
	"net/http"

	"github.com/aituberdev/answerd/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrExternalCall), domain.IsKind(err, domain.ErrMalformedModelOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
