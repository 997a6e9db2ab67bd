// Business metrics for the order lifecycle and data-rights requests.

package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the storefront.
// It tracks order lifecycle activity, notification delivery and data-rights requests.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	orderCreatedTotal       metric.Int64Counter
	orderAmountTotal        metric.Int64Counter
	orderTransitionTotal    metric.Int64Counter
	paymentTotal            metric.Int64Counter
	notificationFailedTotal metric.Int64Counter
	gdprRequestTotal        metric.Int64Counter
	gdprAffectedRecords     metric.Int64Counter
	auditCleanupDeleted     metric.Int64Counter
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&bm.orderCreatedTotal, "store_order_created_total", "Total number of orders created", "{orders}"},
		{&bm.orderAmountTotal, "store_order_amount_total", "Total order amount in cents", "{cents}"},
		{&bm.orderTransitionTotal, "store_order_transition_total", "Total number of order status transitions", "{transitions}"},
		{&bm.paymentTotal, "store_payment_update_total", "Total number of payment status updates", "{payments}"},
		{&bm.notificationFailedTotal, "store_notification_failed_total", "Total number of notifications that could not be dispatched", "{notifications}"},
		{&bm.gdprRequestTotal, "store_gdpr_request_total", "Total number of data-rights requests", "{requests}"},
		{&bm.gdprAffectedRecords, "store_gdpr_affected_records_total", "Total number of records deleted or anonymized by erasure", "{records}"},
		{&bm.auditCleanupDeleted, "store_audit_cleanup_deleted_total", "Total number of audit events removed by retention cleanup", "{events}"},
	}

	for _, c := range counters {
		counter, err := cfg.Meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	return bm, nil
}

// =============================================================================
// Order Metrics
// =============================================================================

// RecordOrderCreated records an order creation with its total.
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, tenantID uuid.UUID, paymentMethod string, total decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(paymentMethod),
	}
	bm.orderCreatedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.orderAmountTotal.Add(ctx, total.Mul(decimal.NewFromInt(100)).IntPart(), metric.WithAttributes(attrs...))
}

// RecordStatusTransition records an order moving between statuses.
func (bm *BusinessMetrics) RecordStatusTransition(ctx context.Context, tenantID uuid.UUID, from, to string) {
	bm.orderTransitionTotal.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrStatusFrom.String(from),
		AttrStatusTo.String(to),
	))
}

// RecordPaymentUpdate records a payment status change.
func (bm *BusinessMetrics) RecordPaymentUpdate(ctx context.Context, tenantID uuid.UUID, status string) {
	bm.paymentTotal.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrPaymentStatus.String(status),
	))
}

// RecordNotificationFailed records a notification the sink rejected.
func (bm *BusinessMetrics) RecordNotificationFailed(ctx context.Context, tenantID uuid.UUID, notificationType string) {
	bm.notificationFailedTotal.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrNotificationType.String(notificationType),
	))
}

// =============================================================================
// Data-rights Metrics
// =============================================================================

// GDPRRequestType labels data-rights requests.
type GDPRRequestType string

const (
	GDPRRequestExport      GDPRRequestType = "export"
	GDPRRequestDeletion    GDPRRequestType = "deletion"
	GDPRRequestEligibility GDPRRequestType = "eligibility"
)

// RecordGDPRRequest records a data-rights request and whether it succeeded.
func (bm *BusinessMetrics) RecordGDPRRequest(ctx context.Context, tenantID uuid.UUID, requestType GDPRRequestType, success bool) {
	bm.gdprRequestTotal.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrGDPRRequest.String(string(requestType)),
		AttrSuccess.Bool(success),
	))
}

// RecordGDPRAffected records records changed by one erasure step.
func (bm *BusinessMetrics) RecordGDPRAffected(ctx context.Context, tenantID uuid.UUID, aggregate, kind string, n int64) {
	if n == 0 {
		return
	}
	bm.gdprAffectedRecords.Add(ctx, n, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrAggregate.String(aggregate),
		AttrOutcome.String(kind),
	))
}

// RecordAuditCleanup records audit events removed by retention.
func (bm *BusinessMetrics) RecordAuditCleanup(ctx context.Context, deleted int64) {
	bm.auditCleanupDeleted.Add(ctx, deleted)
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Metric attribute keys
var (
	AttrTenantID         = attribute.Key("tenant_id")
	AttrPaymentMethod    = attribute.Key("payment_method")
	AttrPaymentStatus    = attribute.Key("payment_status")
	AttrStatusFrom       = attribute.Key("status_from")
	AttrStatusTo         = attribute.Key("status_to")
	AttrNotificationType = attribute.Key("notification_type")
	AttrGDPRRequest      = attribute.Key("gdpr_request")
	AttrAggregate        = attribute.Key("aggregate")
	AttrOutcome          = attribute.Key("outcome")
	AttrSuccess          = attribute.Key("success")
)
