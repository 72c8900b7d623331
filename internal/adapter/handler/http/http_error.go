package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
)

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorStatus maps a domain error onto its HTTP status and body
func errorStatus(err error) (int, ErrorResponse) {
	var (
		duplicateErr  *domainErr.DuplicateRequestError
		transitionErr *domainErr.InvalidTransitionError
		stateErr      *domainErr.InvalidTransactionStateError
		notFoundErr   *domainErr.NotFoundError
		gatewayErr    *domainErr.GatewayError
		conflictErr   *domainErr.ConcurrentModificationError
	)
	switch {
	case errors.As(err, &duplicateErr):
		return http.StatusConflict, ErrorResponse{
			Code:    domainErr.ErrTypeDuplicateRequest,
			Message: err.Error(),
		}
	case errors.As(err, &transitionErr):
		return http.StatusConflict, ErrorResponse{
			Code:    domainErr.ErrTypeInvalidTransition,
			Message: err.Error(),
		}
	case errors.As(err, &stateErr):
		return http.StatusBadRequest, ErrorResponse{
			Code:    domainErr.ErrTypeInvalidTransactionState,
			Message: err.Error(),
		}
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ErrorResponse{
			Code:    domainErr.ErrTypeNotFound,
			Message: err.Error(),
		}
	case errors.As(err, &gatewayErr):
		if gatewayErr.Transient {
			return http.StatusServiceUnavailable, ErrorResponse{
				Code:    domainErr.ErrTypeGatewayTransient,
				Message: err.Error(),
			}
		}
		return http.StatusBadGateway, ErrorResponse{
			Code:    domainErr.ErrTypeGatewayTerminal,
			Message: err.Error(),
		}
	case errors.As(err, &conflictErr):
		return http.StatusConflict, ErrorResponse{
			Code:    domainErr.ErrTypeConcurrentModification,
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Code:    domainErr.ErrTypeInternal,
			Message: "internal server error",
		}
	}
}

// writeError maps domain errors onto HTTP status codes
func writeError(c echo.Context, err error) error {
	status, resp := errorStatus(err)
	return c.JSON(status, resp)
}
