package order

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createTestItems(t *testing.T) []OrderItem {
	a, err := NewOrderItem(uuid.New(), "Mug", "MUG-1", decimal.NewFromInt(30), 2, map[string]string{"color": "red"})
	require.NoError(t, err)
	b, err := NewOrderItem(uuid.New(), "Poster", "PST-1", decimal.NewFromInt(50), 1, nil)
	require.NoError(t, err)
	return []OrderItem{a, b}
}

func createTestOrder(t *testing.T) *Order {
	items := createTestItems(t)
	pricing := DefaultPricingPolicy().Price(SubtotalOf(items))
	o, err := NewOrder(uuid.New(), "ORD-20260101-00001", nil,
		Customer{Email: "jane@example.com", Name: "Jane Doe"},
		valueobject.Address{Line1: "1 Main St", City: "Springfield", Country: "US"},
		items, pricing, "CARD")
	require.NoError(t, err)
	return o
}

func orderInStatus(t *testing.T, status OrderStatus) *Order {
	o := createTestOrder(t)
	path := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {},
		OrderStatusProcessing: {OrderStatusProcessing},
		OrderStatusShipped:    {OrderStatusProcessing, OrderStatusShipped},
		OrderStatusDelivered:  {OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered},
		OrderStatusCancelled:  {OrderStatusCancelled},
	}[status]
	for _, s := range path {
		_, err := o.TransitionTo(s, "")
		require.NoError(t, err)
	}
	return o
}

// ============================================
// OrderStatus Tests
// ============================================

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		isValid bool
	}{
		{OrderStatusPending, true},
		{OrderStatusProcessing, true},
		{OrderStatusShipped, true},
		{OrderStatusDelivered, true},
		{OrderStatusCancelled, true},
		{OrderStatus("INVALID"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusProcessing}:   true,
		{OrderStatusProcessing, OrderStatusShipped}:   true,
		{OrderStatusShipped, OrderStatusDelivered}:    true,
		{OrderStatusPending, OrderStatusCancelled}:    true,
		{OrderStatusProcessing, OrderStatusCancelled}: true,
		{OrderStatusShipped, OrderStatusCancelled}:    true,
	}
	all := []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransitionTo(to))
			})
		}
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	for _, s := range ActiveStatuses {
		assert.False(t, s.IsTerminal())
	}
}

// ============================================
// Creation Tests
// ============================================

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with one history entry", func(t *testing.T) {
		o := createTestOrder(t)

		assert.Equal(t, OrderStatusPending, o.Status)
		assert.Equal(t, PaymentStatusPending, o.Payment.Status)
		require.Len(t, o.StatusHistory, 1)
		assert.Equal(t, OrderStatusPending, o.StatusHistory[0].Status)
		assert.Equal(t, 1, o.Version)
	})

	t.Run("prices 110 subtotal with flat shipping and tax", func(t *testing.T) {
		o := createTestOrder(t)

		assert.Equal(t, "110.00", valueobject.FormatMoney(o.Pricing.Subtotal))
		assert.Equal(t, "10.00", valueobject.FormatMoney(o.Pricing.Shipping))
		assert.Equal(t, "8.80", valueobject.FormatMoney(o.Pricing.Tax))
		assert.Equal(t, "128.80", valueobject.FormatMoney(o.Pricing.Total))
		assert.True(t, o.Pricing.IsConsistent())
	})

	t.Run("empty items", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), "ORD-1", nil, Customer{Email: "a@b.c"}, valueobject.Address{}, nil, NewPricing(decimal.Zero, decimal.Zero, decimal.Zero), "CARD")
		assert.True(t, errors.Is(err, shared.ErrEmptyCart))
	})

	t.Run("inconsistent pricing", func(t *testing.T) {
		p := NewPricing(decimal.NewFromInt(10), decimal.Zero, decimal.Zero)
		p.Total = decimal.NewFromInt(11)
		_, err := NewOrder(uuid.New(), "ORD-1", nil, Customer{Email: "a@b.c"}, valueobject.Address{}, createTestItems(t), p, "CARD")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("missing email", func(t *testing.T) {
		items := createTestItems(t)
		_, err := NewOrder(uuid.New(), "ORD-1", nil, Customer{}, valueobject.Address{}, items, DefaultPricingPolicy().Price(SubtotalOf(items)), "CARD")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestNewOrderItem(t *testing.T) {
	item, err := NewOrderItem(uuid.New(), "Mug", "MUG", decimal.RequireFromString("19.99"), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "59.97", valueobject.FormatMoney(item.Subtotal))
	assert.NotNil(t, item.Attributes)

	_, err = NewOrderItem(uuid.New(), "Mug", "MUG", decimal.NewFromInt(1), 0, nil)
	assert.Error(t, err)
	_, err = NewOrderItem(uuid.Nil, "Mug", "MUG", decimal.NewFromInt(1), 1, nil)
	assert.Error(t, err)
	_, err = NewOrderItem(uuid.New(), "", "MUG", decimal.NewFromInt(1), 1, nil)
	assert.Error(t, err)
	_, err = NewOrderItem(uuid.New(), "Mug", "MUG", decimal.NewFromInt(-1), 1, nil)
	assert.Error(t, err)
}

// ============================================
// Transition Tests
// ============================================

func TestOrder_TransitionTo(t *testing.T) {
	t.Run("same status is a no-op", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusProcessing)
		before := len(o.StatusHistory)

		changed, err := o.TransitionTo(OrderStatusProcessing, "again")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Len(t, o.StatusHistory, before)
	})

	t.Run("delivered to shipped is rejected and order unchanged", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusDelivered)
		before := len(o.StatusHistory)

		_, err := o.TransitionTo(OrderStatusShipped, "oops")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
		assert.Equal(t, OrderStatusDelivered, o.Status)
		assert.Len(t, o.StatusHistory, before)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusCancelled)
		_, err := o.TransitionTo(OrderStatusPending, "")
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})

	t.Run("unknown status", func(t *testing.T) {
		o := createTestOrder(t)
		_, err := o.TransitionTo(OrderStatus("LOST"), "")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("delivered sets actual delivery date", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusDelivered)
		require.NotNil(t, o.ActualDeliveryDate)
	})

	t.Run("history only contains legal edges with monotonic timestamps", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusDelivered)
		for i := 1; i < len(o.StatusHistory); i++ {
			prev, cur := o.StatusHistory[i-1], o.StatusHistory[i]
			assert.True(t, prev.Status.CanTransitionTo(cur.Status), "%s -> %s", prev.Status, cur.Status)
			assert.False(t, cur.Timestamp.Before(prev.Timestamp))
		}
	})
}

func TestOrder_UpdatePayment(t *testing.T) {
	t.Run("paid on pending advances to processing", func(t *testing.T) {
		o := createTestOrder(t)

		advanced, err := o.UpdatePayment(PaymentStatusPaid, "txn-1")
		require.NoError(t, err)
		assert.True(t, advanced)
		assert.Equal(t, PaymentStatusPaid, o.Payment.Status)
		assert.Equal(t, OrderStatusProcessing, o.Status)
		assert.Equal(t, "txn-1", o.Payment.TransactionID)
	})

	t.Run("paid on shipped does not change status", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusShipped)

		advanced, err := o.UpdatePayment(PaymentStatusPaid, "")
		require.NoError(t, err)
		assert.False(t, advanced)
		assert.Equal(t, OrderStatusShipped, o.Status)
	})

	t.Run("failed on pending does not change status", func(t *testing.T) {
		o := createTestOrder(t)

		advanced, err := o.UpdatePayment(PaymentStatusFailed, "")
		require.NoError(t, err)
		assert.False(t, advanced)
		assert.Equal(t, OrderStatusPending, o.Status)
		assert.Len(t, o.StatusHistory, 1)
	})

	t.Run("invalid payment status", func(t *testing.T) {
		o := createTestOrder(t)
		_, err := o.UpdatePayment(PaymentStatus("MAYBE"), "")
		assert.Error(t, err)
	})
}

func TestOrder_AddTracking(t *testing.T) {
	t.Run("twice on processing ships once", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusProcessing)
		before := len(o.StatusHistory)

		shipped, err := o.AddTracking("UPS", "1Z999")
		require.NoError(t, err)
		assert.True(t, shipped)
		assert.Equal(t, OrderStatusShipped, o.Status)
		assert.Len(t, o.StatusHistory, before+1)
		assert.Equal(t, "https://www.ups.com/track?tracknum=1Z999", o.TrackingURL)
		require.NotNil(t, o.EstimatedDeliveryDate)

		shipped, err = o.AddTracking("UPS", "1Z999")
		require.NoError(t, err)
		assert.False(t, shipped)
		assert.Equal(t, OrderStatusShipped, o.Status)
		assert.Len(t, o.StatusHistory, before+1)
	})

	t.Run("pending is rejected", func(t *testing.T) {
		o := createTestOrder(t)
		_, err := o.AddTracking("UPS", "1Z999")
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
		assert.Empty(t, o.TrackingNumber)
	})

	t.Run("cancelled is rejected", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusCancelled)
		_, err := o.AddTracking("UPS", "1Z999")
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})

	t.Run("delivered only refreshes tracking data", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusDelivered)
		before := len(o.StatusHistory)

		shipped, err := o.AddTracking("dhl", "JD0001")
		require.NoError(t, err)
		assert.False(t, shipped)
		assert.Equal(t, OrderStatusDelivered, o.Status)
		assert.Equal(t, CarrierDHL, o.Carrier)
		assert.Len(t, o.StatusHistory, before)
	})

	t.Run("changing carrier recomputes the estimate", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusProcessing)
		_, err := o.AddTracking("FedEx", "7777")
		require.NoError(t, err)
		require.NotNil(t, o.EstimatedDeliveryDate)
		fedex := *o.EstimatedDeliveryDate

		_, err = o.AddTracking("fedex", "7778")
		require.NoError(t, err)
		assert.True(t, fedex.Equal(*o.EstimatedDeliveryDate), "same carrier keeps the estimate")

		_, err = o.AddTracking("USPS", "9400")
		require.NoError(t, err)
		assert.Equal(t, CarrierUSPS, o.Carrier)
		assert.Equal(t, "9400", o.TrackingNumber)
		assert.Contains(t, o.TrackingURL, "usps.com")
		gap := o.EstimatedDeliveryDate.Sub(fedex)
		assert.InDelta(t, float64(3*24*time.Hour), float64(gap), float64(time.Minute))
	})

	t.Run("unknown carrier has no url", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusProcessing)
		_, err := o.AddTracking("Pigeon Post", "P-1")
		require.NoError(t, err)
		assert.Empty(t, o.TrackingURL)
	})

	t.Run("blank inputs", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusProcessing)
		_, err := o.AddTracking("", "1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = o.AddTracking("UPS", " ")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestOrder_MarkDelivered(t *testing.T) {
	t.Run("shipped to delivered", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusShipped)
		changed, err := o.MarkDelivered()
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, OrderStatusDelivered, o.Status)
		assert.NotNil(t, o.ActualDeliveryDate)
	})

	t.Run("already delivered is a no-op", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusDelivered)
		before := len(o.StatusHistory)
		changed, err := o.MarkDelivered()
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Len(t, o.StatusHistory, before)
	})

	t.Run("processing cannot be delivered", func(t *testing.T) {
		o := orderInStatus(t, OrderStatusProcessing)
		_, err := o.MarkDelivered()
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})
}

func TestOrder_MatchesCustomerEmail(t *testing.T) {
	o := createTestOrder(t)
	assert.True(t, o.MatchesCustomerEmail("JANE@example.com "))
	assert.False(t, o.MatchesCustomerEmail("john@example.com"))
	assert.False(t, o.MatchesCustomerEmail(""))
}

func TestOrder_TrackingInfo(t *testing.T) {
	o := orderInStatus(t, OrderStatusProcessing)
	_, err := o.AddTracking("FedEx", "7777")
	require.NoError(t, err)

	info := o.TrackingInfo()
	assert.Equal(t, o.OrderNumber, info.OrderNumber)
	assert.Equal(t, CarrierFedEx, info.Carrier)
	assert.Equal(t, "https://www.fedex.com/fedextrack/?trknbr=7777", info.TrackingURL)
	assert.Len(t, info.StatusHistory, len(o.StatusHistory))
}

// ============================================
// Pricing & numbering
// ============================================

func TestPricingPolicy_Price(t *testing.T) {
	policy := PricingPolicy{
		FlatShipping:          decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.05"),
		FreeShippingThreshold: decimal.NewFromInt(100),
	}

	below := policy.Price(decimal.NewFromInt(50))
	assert.Equal(t, "10.00", valueobject.FormatMoney(below.Shipping))
	assert.Equal(t, "2.50", valueobject.FormatMoney(below.Tax))
	assert.Equal(t, "62.50", valueobject.FormatMoney(below.Total))

	above := policy.Price(decimal.NewFromInt(100))
	assert.True(t, above.Shipping.IsZero())
	assert.Equal(t, "105.00", valueobject.FormatMoney(above.Total))
}

func TestOrderNumber(t *testing.T) {
	at := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "ORD-20260131-00042", FormatOrderNumber(at, 42))

	seq, ok := ParseOrderNumberSequence("ORD-20260131-00042", at)
	assert.True(t, ok)
	assert.Equal(t, int64(42), seq)

	_, ok = ParseOrderNumberSequence("ORD-20260130-00042", at)
	assert.False(t, ok)
	_, ok = ParseOrderNumberSequence("ORD-20260131-abc", at)
	assert.False(t, ok)
}

func TestTrackingURL(t *testing.T) {
	tests := []struct {
		carrier string
		want    string
	}{
		{"UPS", "https://www.ups.com/track?tracknum=X1"},
		{"fedex", "https://www.fedex.com/fedextrack/?trknbr=X1"},
		{"USPS", "https://tools.usps.com/go/TrackConfirmAction?tLabels=X1"},
		{"DHL", "https://www.dhl.com/en/express/tracking.html?AWB=X1"},
		{"ACME", ""},
	}
	for _, tt := range tests {
		t.Run(tt.carrier, func(t *testing.T) {
			assert.Equal(t, tt.want, TrackingURL(tt.carrier, "X1"))
		})
	}
	assert.Equal(t, "", TrackingURL("UPS", ""))
	assert.True(t, IsKnownCarrier(" ups"))
	assert.Equal(t, defaultTransitDays, EstimatedTransitDays("ACME"))
}
