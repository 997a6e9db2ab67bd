package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	ordersvc "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the sink uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes rendered notifications as JSON to a Kafka topic for a
// downstream delivery service. Messages are keyed by recipient so one
// customer's notifications stay ordered within a partition.
type KafkaSink struct {
	writer   messageWriter
	renderer *Renderer
	logger   *zap.Logger
}

// NewKafkaSink creates a KafkaSink writing synchronously to cfg.Topic
func NewKafkaSink(cfg config.KafkaConfig, logger *zap.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	}
	return newKafkaSink(w, logger)
}

func newKafkaSink(w messageWriter, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{
		writer:   w,
		renderer: NewRenderer(),
		logger:   logger.Named("notification"),
	}
}

// Renderer exposes the template set so callers can register extra templates
func (s *KafkaSink) Renderer() *Renderer {
	return s.renderer
}

// CreateNotificationFromTemplate renders req and publishes it. The
// notification is returned only once the broker acknowledged the write.
func (s *KafkaSink) CreateNotificationFromTemplate(ctx context.Context, req ordersvc.NotificationRequest) (*ordersvc.Notification, error) {
	ctx, span := telemetry.StartSpan(ctx, "notification.kafka.publish",
		telemetry.WithAttribute("notification.type", string(req.Type)),
	)
	defer span.End()

	n, err := build(ctx, s.renderer, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	msg, err := toMessage(n)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}

	telemetry.SetOK(span)
	s.logger.Debug("Notification published",
		zap.String("notification_id", n.ID.String()),
		zap.String("type", string(n.Type)),
		zap.String("tenant_id", n.TenantID.String()),
	)
	return n, nil
}

// Close flushes pending writes and closes the producer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func toMessage(n *ordersvc.Notification) (kafka.Message, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode notification: %w", err)
	}
	return kafka.Message{
		Key:   []byte(n.Recipient),
		Value: payload,
		Time:  n.CreatedAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "notification-type", Value: []byte(n.Type)},
			{Key: "tenant-id", Value: []byte(n.TenantID.String())},
		},
	}, nil
}

var _ ordersvc.NotificationSink = (*KafkaSink)(nil)
