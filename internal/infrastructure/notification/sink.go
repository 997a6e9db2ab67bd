// Package notification renders customer notifications and hands them to a
// delivery channel: a Kafka topic in deployed environments, the log otherwise.
package notification

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	ordersvc "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
)

// build validates req and renders it into a Notification. The tenant comes
// from the request, falling back to the ambient tenant of ctx.
func build(ctx context.Context, renderer *Renderer, req ordersvc.NotificationRequest) (*ordersvc.Notification, error) {
	recipient := strings.TrimSpace(req.RecipientEmail)
	if recipient == "" {
		return nil, fmt.Errorf("notification %s has no recipient", req.Type)
	}

	tenantID := req.TenantID
	if tenantID == uuid.Nil {
		current, err := tenant.Current(ctx)
		if err != nil {
			return nil, err
		}
		tenantID = current
	}

	channel := req.Channel
	if channel == "" {
		channel = ordersvc.ChannelEmail
	}

	subject, body, templateID, err := renderer.Render(req)
	if err != nil {
		return nil, err
	}

	return &ordersvc.Notification{
		ID:         uuid.New(),
		TenantID:   tenantID,
		TemplateID: templateID,
		Type:       req.Type,
		Channel:    channel,
		Recipient:  strings.ToLower(recipient),
		Subject:    subject,
		Body:       body,
		Variables:  req.Variables,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// NewSink returns the sink selected by cfg.Order.NotificationSink. The
// returned closer flushes and releases the sink's resources.
func NewSink(cfg *config.Config, log *zap.Logger) (ordersvc.NotificationSink, io.Closer, error) {
	switch cfg.Order.NotificationSink {
	case config.NotificationSinkKafka:
		sink := NewKafkaSink(cfg.Kafka, log)
		return sink, sink, nil
	case config.NotificationSinkLog, "":
		return NewLogSink(log), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification sink %q", cfg.Order.NotificationSink)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
