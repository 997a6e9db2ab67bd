package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderNumberPrefix starts every order number
const OrderNumberPrefix = "ORD-"

// OrderNumberGenerator issues order numbers unique within a tenant
type OrderNumberGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error)
}

// OrderNumberDatePrefix returns the per-day prefix, e.g. "ORD-20260131-"
func OrderNumberDatePrefix(at time.Time) string {
	return fmt.Sprintf("%s%s-", OrderNumberPrefix, at.UTC().Format("20060102"))
}

// FormatOrderNumber formats ORD-YYYYMMDD-NNNNN
func FormatOrderNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("%s%05d", OrderNumberDatePrefix(at), seq)
}

// ParseOrderNumberSequence extracts the trailing sequence of an order number
// issued on the day of at. ok is false for numbers from other days.
func ParseOrderNumberSequence(orderNumber string, at time.Time) (seq int64, ok bool) {
	prefix := OrderNumberDatePrefix(at)
	if !strings.HasPrefix(orderNumber, prefix) {
		return 0, false
	}
	if _, err := fmt.Sscanf(orderNumber[len(prefix):], "%d", &seq); err != nil {
		return 0, false
	}
	return seq, true
}
