package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "householdrisk/internal/errors"
	"householdrisk/internal/middleware"
	"householdrisk/internal/services"
)

// SimulationHandler handles the Monte Carlo endpoints
type SimulationHandler struct {
	service      SimulationServiceInterface
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(service SimulationServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SimulationHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}

	return &SimulationHandler{
		service:      service,
		validator:    middleware.NewRequestValidator(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "simulation")),
	}
}

// CalculateRequest is the body of POST /api/calculate. Every field is
// required; interestRate is an annual percentage.
type CalculateRequest struct {
	MonthlyIncome   *float64 `json:"monthlyIncome" validate:"required,gt=0,finite"`
	MonthlyExpenses *float64 `json:"monthlyExpenses" validate:"required,gte=0,finite"`
	CurrentSavings  *float64 `json:"currentSavings" validate:"required,gte=0,finite"`
	AvailableCredit *float64 `json:"availableCredit" validate:"required,gte=0,finite"`
	InterestRate    *float64 `json:"interestRate" validate:"required,gte=0,finite"`
	TimeHorizon     *int     `json:"timeHorizon" validate:"required,min=1,max=240"`
}

func (req *CalculateRequest) input() services.CalculateInput {
	return services.CalculateInput{
		MonthlyIncome:   *req.MonthlyIncome,
		MonthlyExpenses: *req.MonthlyExpenses,
		CurrentSavings:  *req.CurrentSavings,
		AvailableCredit: *req.AvailableCredit,
		InterestRatePct: *req.InterestRate,
		TimeHorizon:     *req.TimeHorizon,
	}
}

// BankruptcyRequest is the body of POST /api/bankruptcy-risk
type BankruptcyRequest struct {
	MonthlyIncome   *float64 `json:"monthlyIncome" validate:"required,gt=0,finite"`
	MonthlyExpenses *float64 `json:"monthlyExpenses" validate:"required,gte=0,finite"`
	CurrentSavings  *float64 `json:"currentSavings" validate:"required,gte=0,finite"`
	TimeHorizon     *int     `json:"timeHorizon" validate:"required,min=1,max=240"`
}

func (req *BankruptcyRequest) input() services.BankruptcyInput {
	return services.BankruptcyInput{
		MonthlyIncome:   *req.MonthlyIncome,
		MonthlyExpenses: *req.MonthlyExpenses,
		CurrentSavings:  *req.CurrentSavings,
		TimeHorizon:     *req.TimeHorizon,
	}
}

// Calculate handles POST /api/calculate
func (h *SimulationHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Calculate(r.Context(), req.input())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "financial outcomes calculated",
		slog.String("run_id", res.Metadata.RunID),
		slog.Int("time_horizon", res.Metadata.NMonths),
		slog.Float64("ever_negative_pct", res.Statistics.EverNegativePct))

	render.JSON(w, r, res)
}

// BankruptcyRisk handles POST /api/bankruptcy-risk
func (h *SimulationHandler) BankruptcyRisk(w http.ResponseWriter, r *http.Request) {
	var req BankruptcyRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	risk, err := h.service.BankruptcyRisk(r.Context(), req.input())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "bankruptcy risk calculated",
		slog.String("run_id", risk.RunID),
		slog.Float64("bankruptcy_risk_pct", risk.BankruptcyRisk))

	render.JSON(w, r, risk)
}
