package http

import (
	"context"

	"householdrisk/internal/services"
	"householdrisk/internal/simulation"
)

// SimulationServiceInterface defines the interface for the simulation service
type SimulationServiceInterface interface {
	Calculate(ctx context.Context, in services.CalculateInput) (*simulation.Result, error)
	BankruptcyRisk(ctx context.Context, in services.BankruptcyInput) (*services.BankruptcyRisk, error)
}
