package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "Household Risk"
	AppVersion = "1.0.0"

	// Simulation defaults applied at the service boundary
	DefaultSimulations = 10000
	DefaultSamplePaths = 100
	DefaultSeed        = 42
	MaxHorizonMonths   = 240

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Timeouts
	DefaultRequestTimeout = 60 * time.Second

	// File Paths
	DefaultDataDir    = "data"
	DefaultReportsDir = "reports"
	DefaultLogsDir    = "logs"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Endpoints
	CalculateEndpoint      = "/api/calculate"
	BankruptcyRiskEndpoint = "/api/bankruptcy-risk"
	HealthEndpoint         = "/health"
	MetricsEndpoint        = "/metrics"
)

// DefaultAllowedOrigins are the browser origins permitted by CORS
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"https://wmartingleason.com",
	"https://www.wmartingleason.com",
	"http://wmartingleason.com",
}
