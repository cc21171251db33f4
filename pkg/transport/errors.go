package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codeopen/sandboxd/pkg/api"
)

// HTTPStatusFromError maps an APIError kind to the corresponding HTTP
// status code. Transport-level errors (body too large, unsupported content
// type) are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Kind {
	case api.ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorKindNotFound:
		return http.StatusNotFound
	case api.ErrorKindAlreadyExists:
		return http.StatusConflict
	case api.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case api.ErrorKindEngineFailure, api.ErrorKindRepositoryFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// envelope from pkg/api. It sets the Content-Type header and writes the
// HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error kind.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError writes any error as a JSON error response. Non-APIError
// values are wrapped as internal errors.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewInternalError(err.Error())
	}
	WriteAPIError(w, apiErr)
}
