// Package app wires configuration, logging, telemetry, services and the HTTP
// router into a runnable server and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, HRISK_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Create the simulation and health services
//	4. Build the chi router and middleware chain
//	5. Serve until SIGINT or SIGTERM, then shut down gracefully
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
