package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrCapability = "capability"
	attrResult     = "result"
)

// Metrics provides methods for recording observability metrics. The zero
// value is a no-op recorder, so a nil-safe *Metrics can be threaded through
// components even when instrumentation is disabled.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Orchestrator operation metrics (fetcher, organizer, download)
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram

	// Agent capability metrics
	capabilityInvocationsTotal metric.Int64Counter
	capabilityDuration         metric.Float64Histogram

	// Classifier metrics
	classifierDecisionsTotal metric.Int64Counter

	// OAuth metrics
	tokenRefreshTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.operationsTotal, err = meter.Int64Counter(
		"operations_total",
		metric.WithDescription("Total number of orchestrator operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations_total counter: %w", err)
	}

	m.operationDuration, err = meter.Float64Histogram(
		"operation_duration_seconds",
		metric.WithDescription("Orchestrator operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation_duration_seconds histogram: %w", err)
	}

	m.capabilityInvocationsTotal, err = meter.Int64Counter(
		"capability_invocations_total",
		metric.WithDescription("Total number of agent capability invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create capability_invocations_total counter: %w", err)
	}

	m.capabilityDuration, err = meter.Float64Histogram(
		"capability_duration_seconds",
		metric.WithDescription("Agent capability execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create capability_duration_seconds histogram: %w", err)
	}

	m.classifierDecisionsTotal, err = meter.Int64Counter(
		"classifier_decisions_total",
		metric.WithDescription("Total number of folder classification decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier_decisions_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, route pattern,
// status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOperation records one orchestrator operation (fetcher, organizer,
// download) with status and duration.
func (m *Metrics) RecordOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.operationsTotal == nil || m.operationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.operationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCapability records one agent capability invocation with status and
// duration.
func (m *Metrics) RecordCapability(ctx context.Context, capability, status string, duration time.Duration) {
	if m == nil || m.capabilityInvocationsTotal == nil || m.capabilityDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrCapability, capability),
		attribute.String(attrStatus, status),
	}

	m.capabilityInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.capabilityDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordClassifierDecision records one folder classification decision.
// Result should be "success" or "error".
func (m *Metrics) RecordClassifierDecision(ctx context.Context, result string) {
	if m == nil || m.classifierDecisionsTotal == nil {
		return
	}

	m.classifierDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordTokenRefresh records an OAuth token refresh attempt.
// Result should be "success" or "failure".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
