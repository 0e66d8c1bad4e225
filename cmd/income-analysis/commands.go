package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"householdrisk/internal/config"
	"householdrisk/internal/estimation"
	"householdrisk/internal/exporter"
	"householdrisk/internal/simulation"
	"householdrisk/internal/validation"
)

// Reference household of the research run
const (
	defaultSavings  = 10000.0
	defaultExpenses = 3000.0
	defaultIncome   = 6000.0
)

// household is the balance sheet a risk command evaluates. Zero months or
// simulations fall back to the analysis configuration.
type household struct {
	savings     float64
	expenses    float64
	income      float64
	credit      float64
	ratePct     float64
	months      int
	simulations int
}

func defaultHousehold(cfg *config.Config) household {
	return household{
		savings:     defaultSavings,
		expenses:    defaultExpenses,
		income:      defaultIncome,
		months:      cfg.Analysis.RiskMonths,
		simulations: cfg.Analysis.RiskSimulations,
	}
}

func (h household) withDefaults(cfg *config.Config) household {
	if h.months == 0 {
		h.months = cfg.Analysis.RiskMonths
	}
	if h.simulations == 0 {
		h.simulations = cfg.Analysis.RiskSimulations
	}
	return h
}

func bindHouseholdFlags(cmd *cobra.Command, h *household) {
	cmd.Flags().Float64Var(&h.savings, "savings", defaultSavings, "starting savings")
	cmd.Flags().Float64Var(&h.expenses, "expenses", defaultExpenses, "monthly expenses")
	cmd.Flags().Float64Var(&h.income, "income", defaultIncome, "starting monthly income; 0 draws it from the estimated distribution")
	cmd.Flags().IntVar(&h.months, "months", 0, "horizon in months (default from config)")
	cmd.Flags().IntVar(&h.simulations, "simulations", 0, "number of trials (default from config)")
}

// --- estimate ---

func newEstimateCmd(a *analysis) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate",
		Short: "Calibrate the income model and write household statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			panel, err := a.loadPanel(cmd.Context())
			if err != nil {
				return err
			}
			est, householdStats, err := a.estimate(cmd.Context(), panel)
			if err != nil {
				return err
			}
			if err := a.writeEstimateReports(est, householdStats, panel); err != nil {
				return err
			}
			printEstimate(a.out, est, len(householdStats))
			return nil
		},
	}
}

func (a *analysis) writeEstimateReports(est *estimation.Estimate, householdStats []estimation.HouseholdStats, panel estimation.Panel) error {
	if err := a.exporter.ExportHouseholdStats(householdStats, exporter.HouseholdStatsFile); err != nil {
		return err
	}
	if err := a.exporter.ExportIncomeAnalysis(estimation.ComputeIncomeAnalysis(panel), exporter.IncomeAnalysisFile); err != nil {
		return err
	}
	return a.exporter.ExportParameters(est, exporter.ParametersFile)
}

func printEstimate(w io.Writer, est *estimation.Estimate, households int) {
	fmt.Fprintf(w, "Analyzed %d households with sufficient data\n", households)
	fmt.Fprintf(w, "Model: %s\n", est.Model.Kind)
	fmt.Fprintf(w, "Initial income: median $%s, log std %s\n",
		money(est.InitialIncome.Median), ratio(est.InitialIncome.LogStd))

	if j := est.Jump; j != nil {
		fmt.Fprintf(w, "Jump parameters (%s, %d households, %d changes):\n", j.Mode, j.NHouseholds, j.NChanges)
		fmt.Fprintf(w, "  lambda %s, median jump %s, q25 %s, q75 %s, p(up) %s\n",
			ratio(j.Params.Lambda), ratio(j.Params.JumpMedianPct),
			ratio(j.Params.JumpQ25), ratio(j.Params.JumpQ75), ratio(j.Params.ProbUpward))
		if j.Fallback {
			fmt.Fprintln(w, "  too few changes; calibrated defaults kept")
		}
	}
	if ar := est.AR1; ar != nil {
		fmt.Fprintf(w, "AR(1) parameters (%d households, %d residuals):\n", ar.NHouseholds, ar.NResiduals)
		fmt.Fprintf(w, "  rho %s, mu %s, sigma %s\n", ratio(ar.Params.Rho), ratio(ar.Params.Mu), ratio(ar.Params.Sigma))
		if ar.HalfLife != nil {
			fmt.Fprintf(w, "  half-life %s months\n", ratio(*ar.HalfLife))
		}
	}
}

// --- validate ---

func newValidateCmd(a *analysis) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Compare simulated trajectories with the observed households",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			panel, err := a.loadPanel(cmd.Context())
			if err != nil {
				return err
			}
			_, err = a.validate(cmd.Context(), panel)
			return err
		},
	}
}

func (a *analysis) validate(ctx context.Context, panel estimation.Panel) (*validation.Report, error) {
	ctx, span := a.otel.Tracer.Start(ctx, "analysis.validate")
	defer span.End()

	start := time.Now()
	vcfg := validation.DefaultConfig()
	vcfg.Kind = a.kind
	vcfg.NSimulations = a.cfg.Analysis.ValidationSimulations
	vcfg.NMonths = a.cfg.Analysis.ValidationMonths
	vcfg.Seed = a.cfg.Simulation.Seed
	report, err := a.validator.ValidateModel(ctx, panel, vcfg)
	a.metrics.RecordRun(ctx, a.kind.String(), "validation", a.cfg.Analysis.ValidationSimulations, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("validate model: %w", err)
	}

	if err := a.exporter.ExportValidation(report.Comparisons, exporter.ValidationFile); err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Validation of %s model (fit score %s):\n", a.kind, ratio(report.FitScore))
	for _, c := range report.Comparisons {
		mark := " "
		if c.WithinRange {
			mark = "*"
		}
		fmt.Fprintf(a.out, "  %s %-22s observed median %s, simulated median %s\n",
			mark, c.Metric, ratio(c.Observed.Q50), ratio(c.Simulated.Q50))
	}
	return report, nil
}

// --- risk ---

func newRiskCmd(a *analysis) *cobra.Command {
	var h household
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Estimate the probability of running out of savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			panel, err := a.loadPanel(cmd.Context())
			if err != nil {
				return err
			}
			est, _, err := a.estimate(cmd.Context(), panel)
			if err != nil {
				return err
			}
			risk, err := a.runRisk(cmd.Context(), est, h.withDefaults(a.cfg))
			if err != nil {
				return err
			}
			printRisk(a.out, risk)
			return nil
		},
	}
	bindHouseholdFlags(cmd, &h)
	return cmd
}

func (a *analysis) runRisk(ctx context.Context, est *estimation.Estimate, h household) (*simulation.DebtRisk, error) {
	ctx, span := a.otel.Tracer.Start(ctx, "analysis.debt_risk")
	defer span.End()

	start := time.Now()
	risk, err := a.engine.RunDebtRisk(ctx, a.debtRiskRequest(est, h))
	a.metrics.RecordRun(ctx, est.Model.Kind.String(), simulation.PolicyStopOnNegative.String(), h.simulations, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("assess debt risk: %w", err)
	}
	return risk, nil
}

func printRisk(w io.Writer, risk *simulation.DebtRisk) {
	fmt.Fprintln(w, "Risk Assessment Results:")
	fmt.Fprintf(w, "Debt probability: %s\n", decimal.NewFromFloat(risk.DebtProbability).StringFixed(3))
	fmt.Fprintf(w, "Mean minimum balance: $%s\n", money(risk.MeanMinBalance))
	fmt.Fprintf(w, "Mean final balance: $%s\n", money(risk.MeanFinalBalance))
}

// --- compare ---

func newCompareCmd(a *analysis) *cobra.Command {
	var (
		h      household
		levels []float64
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare debt risk across monthly expense levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			panel, err := a.loadPanel(cmd.Context())
			if err != nil {
				return err
			}
			est, _, err := a.estimate(cmd.Context(), panel)
			if err != nil {
				return err
			}
			_, err = a.compare(cmd.Context(), est, h.withDefaults(a.cfg), levels)
			return err
		},
	}
	bindHouseholdFlags(cmd, &h)
	cmd.Flags().Float64SliceVar(&levels, "levels", simulation.DefaultExpenseLevels, "monthly expense levels to compare")
	return cmd
}

func (a *analysis) compare(ctx context.Context, est *estimation.Estimate, h household, levels []float64) ([]simulation.StrategyResult, error) {
	ctx, span := a.otel.Tracer.Start(ctx, "analysis.compare_strategies")
	defer span.End()

	start := time.Now()
	results, err := a.engine.CompareStrategies(ctx, a.debtRiskRequest(est, h), levels)
	a.metrics.RecordRun(ctx, est.Model.Kind.String(), simulation.PolicyStopOnNegative.String(), h.simulations*len(levels), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := a.exporter.ExportStrategies(results, exporter.StrategiesFile); err != nil {
		return nil, err
	}

	fmt.Fprintln(a.out, "Strategy Comparison:")
	for _, r := range results {
		fmt.Fprintf(a.out, "$%s/month: %s debt risk\n",
			money(r.MonthlyExpenses), decimal.NewFromFloat(r.DebtProbability).StringFixed(3))
	}
	return results, nil
}

// --- simulate ---

func newSimulateCmd(a *analysis) *cobra.Command {
	var (
		h         household
		policy    string
		calibrate bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full Monte Carlo batch for one household",
		Long: `Simulates balance paths for one household with the configured model, or
with a model calibrated from the panel when --calibrate is set, and writes
monthly percentiles, sample paths and a summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			model := a.cfg.Model()
			if calibrate {
				panel, err := a.loadPanel(ctx)
				if err != nil {
					return err
				}
				est, _, err := a.estimate(ctx, panel)
				if err != nil {
					return err
				}
				model = est.Model
			}

			if policy == "" {
				policy = a.cfg.Simulation.BalancePolicy
			}
			h = h.withDefaults(a.cfg)
			if !cmd.Flags().Changed("simulations") {
				h.simulations = a.cfg.Simulation.NSimulations
			}

			req := simulation.Request{
				Model: model,
				Household: simulation.Household{
					InitialFund:     h.savings,
					MonthlyExpenses: h.expenses,
					AvailableCredit: h.credit,
					AnnualRate:      h.ratePct / 100,
				},
				InitialIncome: h.income,
				NMonths:       h.months,
				NSimulations:  h.simulations,
				NSamplePaths:  min(a.cfg.Simulation.NSamplePaths, h.simulations),
				Seed:          a.cfg.Simulation.Seed,
				Policy:        simulation.BalancePolicy(policy),
			}

			res, err := a.simulate(ctx, req)
			if err != nil {
				return err
			}
			printSimulation(a.out, res)
			return nil
		},
	}
	bindHouseholdFlags(cmd, &h)
	cmd.Flags().Float64Var(&h.credit, "credit", 0, "available credit line")
	cmd.Flags().Float64Var(&h.ratePct, "interest-rate", 0, "annual interest rate on debt, in percent")
	cmd.Flags().StringVar(&policy, "policy", "", "balance policy: full_horizon or stop_on_negative (default from config)")
	cmd.Flags().BoolVar(&calibrate, "calibrate", false, "calibrate the model from the panel first")
	return cmd
}

func (a *analysis) simulate(ctx context.Context, req simulation.Request) (*simulation.Result, error) {
	ctx, span := a.otel.Tracer.Start(ctx, "analysis.simulate")
	defer span.End()

	start := time.Now()
	res, err := a.engine.Run(ctx, req)
	a.metrics.RecordRun(ctx, req.Model.Kind.String(), req.Policy.String(), req.NSimulations, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("run simulation: %w", err)
	}

	if err := a.exporter.ExportAggregateStats(res, exporter.AggregateFile); err != nil {
		return nil, err
	}
	if err := a.exporter.ExportSamplePaths(res, exporter.SamplePathsFile); err != nil {
		return nil, err
	}
	if err := a.exporter.ExportSummary(res, exporter.SummaryFile); err != nil {
		return nil, err
	}
	return res, nil
}

func printSimulation(w io.Writer, res *simulation.Result) {
	s := res.Statistics
	fmt.Fprintf(w, "Simulated %d paths over %d months (%s, %s)\n",
		res.Metadata.NSimulations, res.Metadata.NMonths, res.Metadata.Model, res.Metadata.BalancePolicy)
	fmt.Fprintf(w, "Terminal balance: mean $%s, median $%s\n", money(s.TerminalStats.Mean), money(s.TerminalStats.Median))
	fmt.Fprintf(w, "Ever negative: %s%%\n", decimal.NewFromFloat(s.EverNegativePct).StringFixed(2))
	fmt.Fprintf(w, "Credit exhausted: %s%%\n", decimal.NewFromFloat(s.CreditExhaustionPct).StringFixed(2))
	if s.MedianMonthsToNegative != nil {
		fmt.Fprintf(w, "Median months to negative: %s\n", ratio(*s.MedianMonthsToNegative))
	}
}

// --- report ---

func newReportCmd(a *analysis) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Run every step and write the analysis workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPipeline(cmd.Context())
		},
	}
}

// money rounds to whole dollars with thousands separators
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	s := decimal.NewFromFloat(v).Round(0).StringFixed(0)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
