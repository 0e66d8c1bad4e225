// Package services sits between the HTTP handlers and the simulation core.
// It owns the request defaults (trial count, sample paths, seed, model and
// balance policy) so handlers only translate JSON.
//
// # Services
//
//	- SimulationService: financial outcomes and bankruptcy risk runs
//	- HealthService: liveness and version information
//
// # Common Service Pattern
//
//	svc, err := services.NewSimulationService(cfg.Simulation, logger,
//	    services.WithTracer(providers.Tracer),
//	    services.WithMetrics(simMetrics),
//	)
//	res, err := svc.Calculate(ctx, services.CalculateInput{
//	    MonthlyIncome:   5000,
//	    MonthlyExpenses: 4000,
//	    TimeHorizon:     24,
//	})
//
// # Error Handling
//
// Errors from the engine are wrapped with %w so handlers can match
// simulation.ErrInvalidRequest and simulation.ErrSimulationFailed. Each run
// either returns a complete result or an error; there are no partial
// results.
package services
