// Package http implements the HTTP handlers of the household risk API.
// Handlers decode and validate JSON, call the service layer and render the
// result; they hold no simulation logic.
//
// # Endpoints
//
//	GET  /                     service banner and endpoint list
//	GET  /health               health status
//	POST /api/calculate        full-horizon financial outcomes
//	POST /api/bankruptcy-risk  stop-on-negative debt probability
//	GET  /metrics              Prometheus metrics
//
// # Errors
//
// Every failure is rendered as RFC 7807 problem details by
// errors.ErrorHandler. Validation failures list the rejected fields by
// their JSON names.
package http
