package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	ordersvc "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func tenantCtx(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

func shippedRequest() ordersvc.NotificationRequest {
	return ordersvc.NotificationRequest{
		RecipientEmail: " Ada@Example.com ",
		Type:           ordersvc.NotificationOrderShipped,
		Variables:      shippedVars(),
	}
}

func TestKafkaSink_Publishes(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, nil)
	tenantID := uuid.New()

	n, err := sink.CreateNotificationFromTemplate(tenantCtx(tenantID), shippedRequest())
	require.NoError(t, err)
	assert.Equal(t, tenantID, n.TenantID)
	assert.Equal(t, ordersvc.ChannelEmail, n.Channel)
	assert.Equal(t, "ada@example.com", n.Recipient)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "ada@example.com", string(msg.Key))

	var decoded ordersvc.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.Subject, decoded.Subject)
	assert.Equal(t, "ORD-20260301-00007", decoded.Variables["orderNumber"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "application/json", headers["content-type"])
	assert.Equal(t, "ORDER_SHIPPED", headers["notification-type"])
	assert.Equal(t, tenantID.String(), headers["tenant-id"])

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_RequestTenantWins(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, nil)
	explicit := uuid.New()

	req := shippedRequest()
	req.TenantID = explicit
	n, err := sink.CreateNotificationFromTemplate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, explicit, n.TenantID)
}

func TestKafkaSink_Failures(t *testing.T) {
	t.Run("broker error is wrapped", func(t *testing.T) {
		sink := newKafkaSink(&fakeWriter{err: errors.New("leader not available")}, nil)
		_, err := sink.CreateNotificationFromTemplate(tenantCtx(uuid.New()), shippedRequest())
		assert.ErrorContains(t, err, "leader not available")
	})

	t.Run("missing recipient", func(t *testing.T) {
		w := &fakeWriter{}
		req := shippedRequest()
		req.RecipientEmail = "  "
		_, err := newKafkaSink(w, nil).CreateNotificationFromTemplate(tenantCtx(uuid.New()), req)
		assert.Error(t, err)
		assert.Empty(t, w.messages)
	})

	t.Run("no tenant anywhere", func(t *testing.T) {
		_, err := newKafkaSink(&fakeWriter{}, nil).CreateNotificationFromTemplate(context.Background(), shippedRequest())
		assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)
	})
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	n, err := sink.CreateNotificationFromTemplate(tenantCtx(uuid.New()), shippedRequest())
	require.NoError(t, err)
	assert.Equal(t, "order-shipped", n.TemplateID)

	entries := logs.FilterMessage("Notification created").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ORDER_SHIPPED", fields["type"])
	assert.Equal(t, "ada@example.com", fields["recipient"])
	assert.Equal(t, n.Subject, fields["subject"])
}

func TestNewSink(t *testing.T) {
	cfg := &config.Config{}

	cfg.Order.NotificationSink = config.NotificationSinkLog
	sink, closer, err := NewSink(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink)
	assert.NoError(t, closer.Close())

	cfg.Order.NotificationSink = config.NotificationSinkKafka
	cfg.Kafka = config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "storefront.notifications"}
	sink, closer, err = NewSink(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &KafkaSink{}, sink)
	assert.NoError(t, closer.Close())

	cfg.Order.NotificationSink = "pigeon"
	_, _, err = NewSink(cfg, nil)
	assert.Error(t, err)
}
