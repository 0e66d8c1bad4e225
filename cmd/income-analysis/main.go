// Command income-analysis runs the household income research pipeline:
// load the survey panel, calibrate an income model, validate it against
// the observed households and assess savings strategies.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"householdrisk/internal/config"
	"householdrisk/internal/dataprocessing"
	"householdrisk/internal/estimation"
	"householdrisk/internal/exporter"
	"householdrisk/internal/income"
	"householdrisk/internal/infrastructure"
	"householdrisk/internal/simulation"
	"householdrisk/internal/validation"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one command line and always flushes telemetry afterwards.
// Every log line of the run carries the same trace_id.
func run(ctx context.Context, args []string, out io.Writer) error {
	ctx = infrastructure.EnsureTraceID(ctx)
	a := &analysis{out: out}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if shutdownErr := a.close(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// rootOptions are the persistent flags; zero values keep the configuration
type rootOptions struct {
	dataDir   string
	outputDir string
	years     []int
	maxRows   int
	mode      string
	model     string
	seed      int64
	logLevel  string
	trace     bool
}

// analysis carries the components every subcommand shares
type analysis struct {
	cfg       *config.Config
	paths     *config.Paths
	kind      income.ModelKind
	logger    *slog.Logger
	otel      *infrastructure.OTelProviders
	metrics   *infrastructure.SimulationMetrics
	estimator *estimation.Estimator
	engine    *simulation.Engine
	validator *validation.Validator
	exporter  *exporter.ReportExporter
	out       io.Writer
}

func newRootCmd(a *analysis) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "income-analysis",
		Short: "Household income volatility analysis",
		Long: `Loads pu<year>.csv survey extracts, calibrates an income model and
evaluates savings strategies against it.

Run without a subcommand to execute the whole pipeline.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPipeline(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory holding pu<year>.csv files")
	flags.StringVar(&opts.outputDir, "output-dir", "", "directory for reports")
	flags.IntSliceVar(&opts.years, "years", nil, "survey years to load (default from config)")
	flags.IntVar(&opts.maxRows, "max-rows", 0, "cap on rows read per file, for quick runs")
	flags.StringVar(&opts.mode, "mode", "", "jump estimation mode: aggregate or raw")
	flags.StringVar(&opts.model, "model", "", "income model: jump, jump_household_lambda or ar1")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed (default from config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.BoolVar(&opts.trace, "trace", false, "print spans to stdout")

	rootCmd.AddCommand(newEstimateCmd(a))
	rootCmd.AddCommand(newValidateCmd(a))
	rootCmd.AddCommand(newRiskCmd(a))
	rootCmd.AddCommand(newCompareCmd(a))
	rootCmd.AddCommand(newSimulateCmd(a))
	rootCmd.AddCommand(newReportCmd(a))

	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the pipeline
func (a *analysis) setup(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cmd, cfg, opts)

	a.kind = income.ModelKind(cfg.Simulation.Model)
	if !a.kind.IsValid() {
		return fmt.Errorf("unknown model %q", cfg.Simulation.Model)
	}
	estOpts, err := cfg.EstimationOptions()
	if err != nil {
		return err
	}

	paths, err := cfg.Paths.ResolvePaths("")
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = infrastructure.WithComponent(logger, "income-analysis")

	if err := validation.NewPathValidator(logger).ValidateOutputDirectory(paths.ReportsDir); err != nil {
		return err
	}

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.MetricExporter = "none"
	if opts.trace {
		otelCfg.TraceExporter = "stdout"
	}
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := infrastructure.CreateSimulationMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create simulation metrics: %w", err)
	}

	estimator, err := estimation.NewEstimator(estOpts, logger)
	if err != nil {
		return err
	}
	engine := simulation.NewEngine(cfg.Simulation.Workers, logger)

	a.cfg = cfg
	a.paths = paths
	a.logger = logger
	a.otel = providers
	a.metrics = metrics
	a.estimator = estimator
	a.engine = engine
	a.validator = validation.NewValidator(estimator, engine, logger)
	a.exporter = exporter.NewReportExporter(paths, logger)

	logger.DebugContext(cmd.Context(), "analysis configured",
		slog.String("data_dir", paths.DataDir),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("model", a.kind.String()),
		slog.String("mode", string(estOpts.Mode)),
		slog.Any("years", cfg.Analysis.Years))
	return nil
}

// applyOverrides copies the flags the user actually set onto cfg
func applyOverrides(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) {
	changed := cmd.Flags().Changed
	if changed("data-dir") {
		cfg.Paths.DataDir = opts.dataDir
	}
	if changed("output-dir") {
		cfg.Paths.ReportsDir = opts.outputDir
	}
	if changed("years") {
		cfg.Analysis.Years = opts.years
	}
	if changed("max-rows") {
		cfg.Analysis.MaxRows = opts.maxRows
	}
	if changed("mode") {
		cfg.Analysis.Mode = opts.mode
	}
	if changed("model") {
		cfg.Simulation.Model = opts.model
	}
	if changed("seed") {
		cfg.Simulation.Seed = opts.seed
	}
	if changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
}

func (a *analysis) close() error {
	if a.otel == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.otel.Shutdown(ctx)
}

// loadPanel reads the configured years, or every panel file in the data
// directory when no years are configured.
func (a *analysis) loadPanel(ctx context.Context) (estimation.Panel, error) {
	files, err := validation.NewPathValidator(a.logger).ValidateDataDirectory(a.paths.DataDir)
	if err != nil {
		return nil, err
	}

	loader := dataprocessing.NewLoader(a.paths.DataDir, a.cfg.Analysis.MaxRows, a.logger)

	var (
		panel estimation.Panel
		stats dataprocessing.LoadStats
	)
	if len(a.cfg.Analysis.Years) > 0 {
		panel, stats, err = loader.LoadYears(ctx, a.cfg.Analysis.Years)
	} else {
		panel, stats, err = loader.LoadFiles(ctx, files)
	}
	if err != nil {
		return nil, fmt.Errorf("load panel: %w", err)
	}

	fmt.Fprintf(a.out, "Loaded %d records for %d households from %d files\n",
		stats.Cleaning.OutputRecords, len(panel), stats.Files)
	return panel, nil
}

// estimate calibrates the configured model and counts qualifying households
func (a *analysis) estimate(ctx context.Context, panel estimation.Panel) (*estimation.Estimate, []estimation.HouseholdStats, error) {
	ctx, span := a.otel.Tracer.Start(ctx, "analysis.estimate")
	defer span.End()

	est, err := a.estimator.Estimate(ctx, panel, a.kind)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, nil, fmt.Errorf("estimate %s model: %w", a.kind, err)
	}

	householdStats := estimation.ComputeHouseholdStats(panel, a.estimator.Options())
	a.metrics.EstimationHouseholds.Add(ctx, int64(len(householdStats)))
	return est, householdStats, nil
}

// debtRiskRequest builds the stop-on-negative batch shared by risk and compare
func (a *analysis) debtRiskRequest(est *estimation.Estimate, h household) simulation.DebtRiskRequest {
	return simulation.DebtRiskRequest{
		Model:         est.Model,
		Household:     simulation.Household{InitialFund: h.savings, MonthlyExpenses: h.expenses},
		InitialIncome: h.income,
		Distribution: simulation.IncomeDistribution{
			Median: est.InitialIncome.Median,
			LogStd: est.InitialIncome.LogStd,
		},
		NMonths:      h.months,
		NSimulations: h.simulations,
		Seed:         a.cfg.Simulation.Seed,
	}
}

// runPipeline mirrors the full research run: estimate, validate, assess
// risk, compare strategies and write every report.
func (a *analysis) runPipeline(ctx context.Context) error {
	panel, err := a.loadPanel(ctx)
	if err != nil {
		return err
	}

	est, householdStats, err := a.estimate(ctx, panel)
	if err != nil {
		return err
	}
	if err := a.writeEstimateReports(est, householdStats, panel); err != nil {
		return err
	}
	printEstimate(a.out, est, len(householdStats))

	report, err := a.validate(ctx, panel)
	if err != nil {
		return err
	}

	h := defaultHousehold(a.cfg)
	risk, err := a.runRisk(ctx, est, h)
	if err != nil {
		return err
	}
	printRisk(a.out, risk)

	strategies, err := a.compare(ctx, est, h, simulation.DefaultExpenseLevels)
	if err != nil {
		return err
	}

	return a.exporter.WriteWorkbook(exporter.WorkbookFile, exporter.AnalysisReport{
		Estimate:       est,
		HouseholdStats: householdStats,
		Comparisons:    report.Comparisons,
		Strategies:     strategies,
		GeneratedAt:    time.Now(),
	})
}
