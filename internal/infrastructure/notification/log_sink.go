package notification

import (
	"context"

	ordersvc "github.com/storefront/backend/internal/application/order"
	"go.uber.org/zap"
)

// LogSink writes rendered notifications to the log instead of delivering them.
// Used in development and tests.
type LogSink struct {
	renderer *Renderer
	logger   *zap.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{
		renderer: NewRenderer(),
		logger:   logger.Named("notification"),
	}
}

// Renderer exposes the template set so callers can register extra templates
func (s *LogSink) Renderer() *Renderer {
	return s.renderer
}

// CreateNotificationFromTemplate renders req and logs the result
func (s *LogSink) CreateNotificationFromTemplate(ctx context.Context, req ordersvc.NotificationRequest) (*ordersvc.Notification, error) {
	n, err := build(ctx, s.renderer, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("tenant_id", n.TenantID.String()),
		zap.String("type", string(n.Type)),
		zap.String("channel", string(n.Channel)),
		zap.String("template_id", n.TemplateID),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
	)
	s.logger.Debug("Notification body", zap.String("notification_id", n.ID.String()), zap.String("body", n.Body))
	return n, nil
}

var _ ordersvc.NotificationSink = (*LogSink)(nil)
