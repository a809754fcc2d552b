// Package instrumentation provides OpenTelemetry-based metrics for the
// service, exported through a Prometheus scrape endpoint.
//
// The Provider owns the meter provider and the Prometheus registry; the
// Metrics recorder it hands out is nil-safe, so components can record
// unconditionally and instrumentation can still be switched off with
// INSTRUMENTATION_ENABLED=false.
//
// Recorded metric families:
//
//   - http_requests_total / http_request_duration_seconds
//   - operations_total / operation_duration_seconds
//   - capability_invocations_total / capability_duration_seconds
//   - classifier_decisions_total
//   - oauth_token_refresh_total
package instrumentation
