// Package config provides centralized configuration for the risk server and
// the analysis command.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. A YAML file named by HRISK_CONFIG_FILE, or config.yaml / configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Every variable carries the HRISK prefix followed by the section name:
//
//	HRISK_SERVER_PORT=8080
//	HRISK_LOGGING_LEVEL=debug
//	HRISK_SIMULATION_N_SIMULATIONS=20000
//	HRISK_SIMULATION_JUMP_LAMBDA=0.3
//	HRISK_ANALYSIS_MIN_MONTHS=12
//
// # Validation
//
// Load rejects out-of-range ports and batch sizes, unknown log levels,
// unknown balance policies and invalid model parameters.
package config
