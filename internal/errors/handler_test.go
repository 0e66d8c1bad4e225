package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"householdrisk/internal/income"
	"householdrisk/internal/simulation"
)

func testHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), includeStack)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
		wantDetail string
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("run: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   CodeInvalidRequest,
			wantDetail: "Invalid request format",
		},
		{
			name:       "simulation failure",
			err:        fmt.Errorf("%w: trial 7 produced a non-finite balance", simulation.ErrSimulationFailed),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeSimulationFailed,
			wantCode:   CodeSimulationFailed,
			wantDetail: "Simulation failed: trial 7 produced a non-finite balance",
		},
		{
			name:       "invalid simulation request",
			err:        fmt.Errorf("%w: n_months must be at least 1", simulation.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidParameters,
			wantCode:   CodeInvalidParameters,
			wantDetail: "invalid simulation request: n_months must be at least 1",
		},
		{
			name:       "model parameter error",
			err:        fmt.Errorf("%w: %w", simulation.ErrInvalidRequest, &income.ParameterError{Field: "lambda", Reason: "must be in [0, 1]"}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidParameters,
			wantCode:   CodeInvalidParameters,
			wantDetail: "lambda: must be in [0, 1]",
		},
		{
			name:       "unknown error hides message",
			err:        fmt.Errorf("database password is hunter2"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantDetail: "An unexpected error occurred while processing your request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(false)
			req := httptest.NewRequest(http.MethodPost, "/api/calculate", nil)
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/calculate", body["instance"])
			assert.Equal(t, "req-1", body["trace_id"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
			}
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler(false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}

func TestHandleErrorValidator(t *testing.T) {
	type request struct {
		MonthlyIncome float64 `validate:"gt=0"`
		TimeHorizon   int     `validate:"min=1,max=240"`
	}
	err := validator.New().Struct(request{MonthlyIncome: 0, TimeHorizon: 500})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	testHandler(false).HandleError(rec, httptest.NewRequest(http.MethodPost, "/api/calculate", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeValidation, body["type"])

	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, map[string]any{"field": "MonthlyIncome", "message": "MonthlyIncome must be greater than 0"}, errs[0])
	assert.Equal(t, map[string]any{"field": "TimeHorizon", "message": "TimeHorizon must be at most 240"}, errs[1])
}

func TestValidationErrorsDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := ErrValidation("timeHorizon", "timeHorizon must be at least 1")
	testHandler(false).HandleError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), err)

	body := decodeProblem(t, rec)
	assert.Equal(t, []any{map[string]any{"field": "timeHorizon", "message": "timeHorizon must be at least 1"}}, body["errors"])
	assert.NotContains(t, body, "details")
}

func TestStackOnlyForServerErrors(t *testing.T) {
	h := testHandler(true)

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), ErrInternalServer)
	assert.Contains(t, decodeProblem(t, rec), "stack")

	rec = httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), ErrInvalidRequest)
	assert.NotContains(t, decodeProblem(t, rec), "stack")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := testHandler(false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/calculate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method DELETE is not allowed for this endpoint", decodeProblem(t, rec)["detail"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := testHandler(true)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	RecoveryMiddleware(h)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "boom", body["panic"])
	assert.Equal(t, TypeInternal, body["type"])
}

func TestProblemDetailsMarshal(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "").
		WithExtension("error_code", CodeValidationFailed).
		WithExtension("status", "ignored")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/validation","title":"Bad Request","status":400,"error_code":"VALIDATION_FAILED"}`, string(data))
}
