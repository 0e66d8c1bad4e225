package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an error a handler can return with its HTTP status and a
// stable machine-readable code. The ErrorHandler renders it as a problem.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one rejected request field. Field is the JSON
// name the client sent.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the Details payload of a VALIDATION_FAILED error
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidJSON       = "INVALID_JSON"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidParameters = "INVALID_PARAMETERS"
	CodeNotFound          = "NOT_FOUND"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeSimulationFailed  = "SIMULATION_FAILED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// New creates an APIError
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError carrying extra detail for the client
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrInvalidRequest = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrInternalServer = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
)

// InvalidRequestWithError wraps an unexpected decoding or validation failure
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// InvalidJSON reports a body that could not be decoded
func InvalidJSON(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidJSON, "Request body contains invalid JSON", err.Error())
}

// ErrValidation rejects a single field
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors rejects several fields at once
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// SimulationFailed reports a Monte Carlo batch that could not finish. No
// partial result accompanies it.
func SimulationFailed(cause string) *APIError {
	return New(http.StatusInternalServerError, CodeSimulationFailed, fmt.Sprintf("Simulation failed: %s", cause))
}
