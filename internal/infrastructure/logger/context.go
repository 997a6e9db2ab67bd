package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey        contextKey = "logger"
	correlationIDKey contextKey = "correlation_id"
	tenantIDKey      contextKey = "tenant_id"
	userIDKey        contextKey = "user_id"
	usernameKey      contextKey = "username"
	clientIPKey      contextKey = "client_ip"
	userAgentKey     contextKey = "user_agent"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

func withField(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

// WithCorrelationID tags one unit of work, a worker command or a scheduled
// job run, so its log lines and SQL can be grouped.
func WithCorrelationID(ctx context.Context, logger *zap.Logger, id string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, correlationIDKey, id)
}

// WithTenantID sets the ambient tenant. Repositories and the audit trail
// read it back from the context.
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, tenantIDKey, tenantID)
}

// WithUserID adds the acting user's id
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, userIDKey, userID)
}

// WithActor adds the acting user's id and display name
func WithActor(ctx context.Context, logger *zap.Logger, userID, username string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, usernameKey, username)
	return WithUserID(ctx, logger, userID)
}

// WithClient records the caller's network fingerprint on the context
func WithClient(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func value(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetCorrelationID returns the correlation id, or ""
func GetCorrelationID(ctx context.Context) string { return value(ctx, correlationIDKey) }

// GetTenantID returns the ambient tenant id, or ""
func GetTenantID(ctx context.Context) string { return value(ctx, tenantIDKey) }

// GetUserID returns the acting user id, or ""
func GetUserID(ctx context.Context) string { return value(ctx, userIDKey) }

// GetUsername returns the acting user's name, or ""
func GetUsername(ctx context.Context) string { return value(ctx, usernameKey) }

// GetClientIP returns the caller's IP address, or ""
func GetClientIP(ctx context.Context) string { return value(ctx, clientIPKey) }

// GetUserAgent returns the caller's user agent, or ""
func GetUserAgent(ctx context.Context) string { return value(ctx, userAgentKey) }

// WithLogger enriches base with the trace, correlation, tenant and user
// fields carried by ctx. Services keep an unscoped logger and call this per
// operation.
func WithLogger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, key := range []contextKey{correlationIDKey, tenantIDKey, userIDKey} {
		if v := value(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

