package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"householdrisk/internal/config"
	"householdrisk/internal/income"
	"householdrisk/internal/infrastructure"
	"householdrisk/internal/simulation"
)

// CalculateInput carries the household parameters of a financial outcomes
// request. InterestRatePct is an annual percentage, e.g. 18 for 18%.
type CalculateInput struct {
	MonthlyIncome   float64
	MonthlyExpenses float64
	CurrentSavings  float64
	AvailableCredit float64
	InterestRatePct float64
	TimeHorizon     int
}

// BankruptcyInput carries the household parameters of a debt risk request
type BankruptcyInput struct {
	MonthlyIncome   float64
	MonthlyExpenses float64
	CurrentSavings  float64
	TimeHorizon     int
}

// BankruptcyRisk is the stop-on-negative outcome echoed with its inputs
type BankruptcyRisk struct {
	BankruptcyRisk     float64 `json:"bankruptcyRisk"`
	Iterations         int     `json:"iterations"`
	MonthlyIncome      float64 `json:"monthlyIncome"`
	MonthlyExpenses    float64 `json:"monthlyExpenses"`
	CurrentSavings     float64 `json:"currentSavings"`
	TimeHorizon        int     `json:"timeHorizon"`
	MeanMinBalance     float64 `json:"meanMinBalance"`
	MeanFinalBalance   float64 `json:"meanFinalBalance"`
	MedianMinBalance   float64 `json:"medianMinBalance"`
	MedianFinalBalance float64 `json:"medianFinalBalance"`
	RunID              string  `json:"runId"`
}

// SimulationService applies the configured defaults to household requests
// and runs them on the Monte Carlo engine.
type SimulationService struct {
	engine  *simulation.Engine
	cfg     config.SimulationConfig
	model   income.Model
	policy  simulation.BalancePolicy
	tracer  trace.Tracer
	metrics *infrastructure.SimulationMetrics
	logger  *slog.Logger
	newID   func() string
}

// SimulationOption customizes a SimulationService
type SimulationOption func(*SimulationService)

// WithTracer wraps every run in a span from tracer
func WithTracer(tracer trace.Tracer) SimulationOption {
	return func(s *SimulationService) { s.tracer = tracer }
}

// WithMetrics records every run on m
func WithMetrics(m *infrastructure.SimulationMetrics) SimulationOption {
	return func(s *SimulationService) { s.metrics = m }
}

// NewSimulationService creates the service. The model and balance policy
// are resolved once from cfg.
func NewSimulationService(cfg config.SimulationConfig, logger *slog.Logger, opts ...SimulationOption) (*SimulationService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	model := (&config.Config{Simulation: cfg}).Model()
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation model: %w", err)
	}
	policy := simulation.BalancePolicy(cfg.BalancePolicy)
	if !policy.IsValid() {
		return nil, fmt.Errorf("invalid balance policy %q", cfg.BalancePolicy)
	}

	s := &SimulationService{
		engine: simulation.NewEngine(cfg.Workers, infrastructure.WithComponent(logger, "engine")),
		cfg:    cfg,
		model:  model,
		policy: policy,
		tracer: noop.NewTracerProvider().Tracer(infrastructure.MeterName),
		logger: logger,
		newID:  infrastructure.NewRunID,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Info("SimulationService initialized",
		slog.String("model", model.Kind.String()),
		slog.String("policy", policy.String()),
		slog.Int("n_simulations", cfg.NSimulations),
		slog.Int("n_sample_paths", cfg.NSamplePaths),
		slog.Int64("seed", cfg.Seed))

	return s, nil
}

// Calculate runs the full financial outcomes simulation for a household
func (s *SimulationService) Calculate(ctx context.Context, in CalculateInput) (*simulation.Result, error) {
	if err := s.checkHorizon(in.TimeHorizon); err != nil {
		return nil, err
	}

	req := simulation.Request{
		Model: s.model,
		Household: simulation.Household{
			InitialFund:     in.CurrentSavings,
			MonthlyExpenses: in.MonthlyExpenses,
			AvailableCredit: in.AvailableCredit,
			AnnualRate:      in.InterestRatePct / 100,
		},
		InitialIncome: in.MonthlyIncome,
		NMonths:       in.TimeHorizon,
		NSimulations:  s.cfg.NSimulations,
		NSamplePaths:  s.cfg.NSamplePaths,
		Seed:          s.cfg.Seed,
		Policy:        s.policy,
	}

	runID := s.newID()
	ctx, span := s.startSpan(ctx, "simulation.run", runID, in.TimeHorizon, s.policy)
	defer span.End()

	start := time.Now()
	res, err := s.engine.Run(ctx, req)
	s.finish(ctx, span, s.policy, err, start)
	if err != nil {
		return nil, fmt.Errorf("calculate outcomes: %w", err)
	}

	res.Metadata.RunID = runID
	return res, nil
}

// BankruptcyRisk estimates how often the household goes into debt when each
// trial stops at its first negative month.
func (s *SimulationService) BankruptcyRisk(ctx context.Context, in BankruptcyInput) (*BankruptcyRisk, error) {
	if err := s.checkHorizon(in.TimeHorizon); err != nil {
		return nil, err
	}

	req := simulation.DebtRiskRequest{
		Model: s.model,
		Household: simulation.Household{
			InitialFund:     in.CurrentSavings,
			MonthlyExpenses: in.MonthlyExpenses,
		},
		InitialIncome: in.MonthlyIncome,
		NMonths:       in.TimeHorizon,
		NSimulations:  s.cfg.NSimulations,
		Seed:          s.cfg.Seed,
	}

	runID := s.newID()
	ctx, span := s.startSpan(ctx, "simulation.debt_risk", runID, in.TimeHorizon, simulation.PolicyStopOnNegative)
	defer span.End()

	start := time.Now()
	risk, err := s.engine.RunDebtRisk(ctx, req)
	s.finish(ctx, span, simulation.PolicyStopOnNegative, err, start)
	if err != nil {
		return nil, fmt.Errorf("calculate bankruptcy risk: %w", err)
	}

	return &BankruptcyRisk{
		BankruptcyRisk:     risk.DebtProbability * 100,
		Iterations:         risk.NSimulations,
		MonthlyIncome:      in.MonthlyIncome,
		MonthlyExpenses:    in.MonthlyExpenses,
		CurrentSavings:     in.CurrentSavings,
		TimeHorizon:        in.TimeHorizon,
		MeanMinBalance:     risk.MeanMinBalance,
		MeanFinalBalance:   risk.MeanFinalBalance,
		MedianMinBalance:   risk.MedianMinBalance,
		MedianFinalBalance: risk.MedianFinalBalance,
		RunID:              runID,
	}, nil
}

func (s *SimulationService) checkHorizon(months int) error {
	if s.cfg.MaxHorizon > 0 && months > s.cfg.MaxHorizon {
		return fmt.Errorf("%w: time horizon %d exceeds %d months", simulation.ErrInvalidRequest, months, s.cfg.MaxHorizon)
	}
	return nil
}

func (s *SimulationService) startSpan(ctx context.Context, name, runID string, months int, policy simulation.BalancePolicy) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("simulation.run_id", runID),
		attribute.String("simulation.model", s.model.Kind.String()),
		attribute.String("simulation.policy", policy.String()),
		attribute.Int("simulation.n_simulations", s.cfg.NSimulations),
		attribute.Int("simulation.n_months", months),
	))
}

func (s *SimulationService) finish(ctx context.Context, span trace.Span, policy simulation.BalancePolicy, err error, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.RecordRun(ctx, s.model.Kind.String(), policy.String(), s.cfg.NSimulations, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "simulation run failed",
			slog.String("policy", policy.String()),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()))
		return
	}
	span.SetStatus(codes.Ok, "")
}
