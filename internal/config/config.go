package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"householdrisk/internal/estimation"
	"householdrisk/internal/income"
	"householdrisk/internal/simulation"
)

// EnvPrefix namespaces every environment variable, e.g. HRISK_SERVER_PORT
const EnvPrefix = "HRISK"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Simulation SimulationConfig `yaml:"simulation" envconfig:"SIMULATION"`
	Analysis   AnalysisConfig   `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RequestTimeout bounds a single simulation request
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SimulationConfig holds the Monte Carlo defaults the service applies
type SimulationConfig struct {
	NSimulations  int        `yaml:"n_simulations" envconfig:"N_SIMULATIONS"`
	NSamplePaths  int        `yaml:"n_sample_paths" envconfig:"N_SAMPLE_PATHS"`
	Seed          int64      `yaml:"seed" envconfig:"SEED"`
	MaxHorizon    int        `yaml:"max_horizon" envconfig:"MAX_HORIZON"`
	Workers       int        `yaml:"workers" envconfig:"WORKERS"`
	BalancePolicy string     `yaml:"balance_policy" envconfig:"BALANCE_POLICY"`
	Model         string     `yaml:"model" envconfig:"MODEL"`
	Jump          JumpConfig `yaml:"jump" envconfig:"JUMP"`
	AR1           AR1Config  `yaml:"ar1" envconfig:"AR1"`
}

// JumpConfig mirrors income.JumpParams for file and env loading
type JumpConfig struct {
	Lambda        float64 `yaml:"lambda" envconfig:"LAMBDA"`
	JumpMedianPct float64 `yaml:"jump_median_pct" envconfig:"MEDIAN_PCT"`
	JumpQ25       float64 `yaml:"jump_q25" envconfig:"Q25"`
	JumpQ75       float64 `yaml:"jump_q75" envconfig:"Q75"`
	ProbUpward    float64 `yaml:"prob_upward" envconfig:"PROB_UPWARD"`
}

// AR1Config mirrors income.AR1Params
type AR1Config struct {
	Rho   float64 `yaml:"rho" envconfig:"RHO"`
	Mu    float64 `yaml:"mu" envconfig:"MU"`
	Sigma float64 `yaml:"sigma" envconfig:"SIGMA"`
}

// AnalysisConfig holds estimation thresholds and the batch sizes used by the
// analysis command.
type AnalysisConfig struct {
	Mode                  string  `yaml:"mode" envconfig:"MODE"`
	MinMonths             int     `yaml:"min_months" envconfig:"MIN_MONTHS"`
	LargeJumpThreshold    float64 `yaml:"large_jump_threshold" envconfig:"LARGE_JUMP_THRESHOLD"`
	SmallChangeThreshold  float64 `yaml:"small_change_threshold" envconfig:"SMALL_CHANGE_THRESHOLD"`
	WinsorPercentile      float64 `yaml:"winsor_percentile" envconfig:"WINSOR_PERCENTILE"`
	ValidationSimulations int     `yaml:"validation_simulations" envconfig:"VALIDATION_SIMULATIONS"`
	ValidationMonths      int     `yaml:"validation_months" envconfig:"VALIDATION_MONTHS"`
	RiskMonths            int     `yaml:"risk_months" envconfig:"RISK_MONTHS"`
	RiskSimulations       int     `yaml:"risk_simulations" envconfig:"RISK_SIMULATIONS"`
	Years                 []int   `yaml:"years" envconfig:"YEARS"`
	MaxRows               int     `yaml:"max_rows" envconfig:"MAX_ROWS"`
}

// Load builds the configuration from defaults, then the YAML file named by
// HRISK_CONFIG_FILE or found in a well-known location, then environment
// variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "console" && c.Logging.Output != "file" && c.Logging.Output != "both" {
		c.Logging.Output = "console"
	}

	s := c.Simulation
	if s.NSimulations < 1 {
		return fmt.Errorf("simulation.n_simulations must be at least 1")
	}
	if s.NSamplePaths < 0 {
		return fmt.Errorf("simulation.n_sample_paths must be non-negative")
	}
	if s.MaxHorizon < 1 {
		return fmt.Errorf("simulation.max_horizon must be at least 1")
	}
	if !simulation.BalancePolicy(s.BalancePolicy).IsValid() {
		return fmt.Errorf("invalid simulation.balance_policy %q", s.BalancePolicy)
	}
	if err := c.Model().Validate(); err != nil {
		return fmt.Errorf("simulation model: %w", err)
	}

	if _, err := c.EstimationOptions(); err != nil {
		return err
	}
	if c.Analysis.ValidationSimulations < 1 || c.Analysis.ValidationMonths < 2 {
		return fmt.Errorf("analysis validation batch must have at least one path of two months")
	}
	if c.Analysis.RiskSimulations < 1 || c.Analysis.RiskMonths < 1 {
		return fmt.Errorf("analysis risk batch must be non-empty")
	}

	return nil
}

// Model returns the configured default income model
func (c *Config) Model() income.Model {
	switch income.ModelKind(c.Simulation.Model) {
	case income.KindAR1:
		a := c.Simulation.AR1
		return income.NewAR1Model(income.AR1Params{Rho: a.Rho, Mu: a.Mu, Sigma: a.Sigma})
	case income.KindJumpHouseholdLambda:
		return income.NewHouseholdLambdaModel(c.Simulation.Jump.Params())
	case income.KindJump:
		return income.NewJumpModel(c.Simulation.Jump.Params())
	default:
		return income.Model{Kind: income.ModelKind(c.Simulation.Model)}
	}
}

// Params converts the section into model parameters
func (j JumpConfig) Params() income.JumpParams {
	return income.JumpParams{
		Lambda:        j.Lambda,
		JumpMedianPct: j.JumpMedianPct,
		JumpQ25:       j.JumpQ25,
		JumpQ75:       j.JumpQ75,
		ProbUpward:    j.ProbUpward,
	}
}

// EstimationOptions converts the analysis section into estimator options
func (c *Config) EstimationOptions() (estimation.Options, error) {
	opts := estimation.Options{
		Mode:                 estimation.EstimationMode(c.Analysis.Mode),
		MinMonths:            c.Analysis.MinMonths,
		LargeJumpThreshold:   c.Analysis.LargeJumpThreshold,
		SmallChangeThreshold: c.Analysis.SmallChangeThreshold,
		WinsorPercentile:     c.Analysis.WinsorPercentile,
	}
	if err := opts.Validate(); err != nil {
		return estimation.Options{}, fmt.Errorf("analysis options: %w", err)
	}
	return opts, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	jump := income.DefaultJumpParams()
	ar1 := income.DefaultAR1Params()
	est := estimation.DefaultOptions()

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
		Simulation: SimulationConfig{
			NSimulations:  DefaultSimulations,
			NSamplePaths:  DefaultSamplePaths,
			Seed:          DefaultSeed,
			MaxHorizon:    MaxHorizonMonths,
			BalancePolicy: string(simulation.PolicyFullHorizon),
			Model:         string(income.KindJump),
			Jump: JumpConfig{
				Lambda:        jump.Lambda,
				JumpMedianPct: jump.JumpMedianPct,
				JumpQ25:       jump.JumpQ25,
				JumpQ75:       jump.JumpQ75,
				ProbUpward:    jump.ProbUpward,
			},
			AR1: AR1Config{Rho: ar1.Rho, Mu: ar1.Mu, Sigma: ar1.Sigma},
		},
		Analysis: AnalysisConfig{
			Mode:                  string(est.Mode),
			MinMonths:             est.MinMonths,
			LargeJumpThreshold:    est.LargeJumpThreshold,
			SmallChangeThreshold:  est.SmallChangeThreshold,
			WinsorPercentile:      est.WinsorPercentile,
			ValidationSimulations: 1000,
			ValidationMonths:      48,
			RiskMonths:            24,
			RiskSimulations:       1000,
			Years:                 []int{2021, 2022, 2023, 2024},
		},
	}
}
