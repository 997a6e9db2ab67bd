package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	serviceName          = "OrderService"
	auditEntityOrder     = "order"
	defaultNumberRetries = 3
)

// Auditor is the audit trail the order lifecycle writes to
type Auditor interface {
	LogUserActionWithMetadata(ctx context.Context, eventType audit.EventType, action audit.Action, entityType, entityID, description string, metadata map[string]string)
	LogFailure(ctx context.Context, eventType audit.EventType, entityType, entityID, description, errorMessage string)
	LogSecurityEvent(ctx context.Context, eventType audit.EventType, description, ipAddress, userAgent string)
}

// OrderService drives the order lifecycle: checkout, status transitions,
// payment sync, tracking and delivery. Every operation runs under the
// ambient tenant of ctx.
//
// Mutations persist first. Notifications are dispatched afterwards and a
// failed dispatch is logged, audited and counted but never fails the call.
type OrderService struct {
	orders        order.OrderRepository
	carts         CartSource
	numbers       order.OrderNumberGenerator
	notifier      NotificationSink
	auditor       Auditor
	pricing       order.PricingPolicy
	numberRetries int
	metrics       *telemetry.BusinessMetrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orders order.OrderRepository,
	carts CartSource,
	numbers order.OrderNumberGenerator,
	notifier NotificationSink,
	auditor Auditor,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:        orders,
		carts:         carts,
		numbers:       numbers,
		notifier:      notifier,
		auditor:       auditor,
		pricing:       order.DefaultPricingPolicy(),
		numberRetries: defaultNumberRetries,
		logger:        logger.Named("order"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetPricingPolicy replaces the default shipping and tax policy
func (s *OrderService) SetPricingPolicy(p order.PricingPolicy) {
	s.pricing = p
}

// SetNumberRetries sets how many extra order numbers are drawn when the
// generator hands out one that is already taken
func (s *OrderService) SetNumberRetries(n int) {
	if n >= 0 {
		s.numberRetries = n
	}
}

// SetMetrics enables business metrics
func (s *OrderService) SetMetrics(m *telemetry.BusinessMetrics) {
	s.metrics = m
}

// =============================================================================
// Checkout
// =============================================================================

// CreateOrderFromCart turns the referenced cart into a PENDING order and
// deletes the cart.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "CreateOrderFromCart")
	defer span.End()

	o, err := s.createOrderFromCart(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "order.id", o.ID.String(), "order.number", o.OrderNumber)
	telemetry.SetOK(span)
	return o, nil
}

func (s *OrderService) createOrderFromCart(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	tenantID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.GetCart(ctx, req.CartRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if c == nil || c.IsEmpty() {
		return nil, shared.ErrEmptyCart
	}

	items := make([]order.OrderItem, 0, len(c.Items))
	for _, line := range c.Items {
		item, err := order.NewOrderItem(line.ProductID, line.Name, line.SKU, line.Price, line.Quantity, line.Attributes)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	pricing := s.pricing.Price(order.SubtotalOf(items))

	number, err := s.nextOrderNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(tenantID, number, c.UserID,
		order.Customer{Email: req.CustomerEmail, Name: req.CustomerName},
		req.ShippingAddress.Normalize(), items, pricing, req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	// The order exists now; a leftover cart is only a nuisance
	if err := s.carts.DeleteCart(ctx, req.CartRef); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to delete checked out cart",
			zap.String("cart_ref", req.CartRef),
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}

	s.auditor.LogUserActionWithMetadata(ctx, audit.EventOrderCreated, audit.ActionCreate,
		auditEntityOrder, o.ID.String(), "Order "+o.OrderNumber+" created",
		map[string]string{
			"orderNumber":   o.OrderNumber,
			"total":         o.Pricing.Total.StringFixed(2),
			"itemCount":     fmt.Sprint(o.ItemCount()),
			"paymentMethod": o.Payment.Method,
		})
	if s.metrics != nil {
		s.metrics.RecordOrderCreated(ctx, tenantID, o.Payment.Method, o.Pricing.Total)
	}

	logger.WithLogger(ctx, s.logger).Info("Order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Pricing.Total.StringFixed(2)),
	)
	return o, nil
}

// nextOrderNumber draws numbers until one is free in the tenant
func (s *OrderService) nextOrderNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	for attempt := 0; attempt <= s.numberRetries; attempt++ {
		number, err := s.numbers.Next(ctx, tenantID, s.now())
		if err != nil {
			return "", err
		}
		taken, err := s.orders.ExistsByOrderNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !taken {
			return number, nil
		}
		logger.WithLogger(ctx, s.logger).Warn("Generated order number already taken",
			zap.String("order_number", number),
			zap.Int("attempt", attempt+1),
		)
	}
	return "", fmt.Errorf("no free order number after %d attempts", s.numberRetries+1)
}

// =============================================================================
// Lifecycle mutations
// =============================================================================

// UpdateStatus moves an order along the state machine. Setting the current
// status again is a no-op and adds no history entry.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus order.OrderStatus, note string) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "UpdateStatus",
		telemetry.WithAttribute("order.id", id.String()),
		telemetry.WithAttribute("order.status", string(newStatus)),
	)
	defer span.End()

	o, err := s.loadForUpdate(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	previous := o.Status
	changed, err := o.TransitionTo(newStatus, note)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !changed {
		return o, nil
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.recordTransition(ctx, o, previous, note)
	telemetry.SetOK(span)
	return o, nil
}

// CancelOrder cancels a PENDING, PROCESSING or SHIPPED order
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, reason string) (*order.Order, error) {
	return s.UpdateStatus(ctx, id, order.OrderStatusCancelled, reason)
}

// UpdatePaymentStatus syncs the payment status reported by the provider.
// PAID on a PENDING order advances it to PROCESSING.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus, transactionID string) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "UpdatePaymentStatus",
		telemetry.WithAttribute("order.id", id.String()),
		telemetry.WithAttribute("payment.status", string(status)),
	)
	defer span.End()

	o, err := s.loadForUpdate(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if o.Payment.Status == status && (transactionID == "" || transactionID == o.Payment.TransactionID) {
		return o, nil
	}

	previous := o.Status
	advanced, err := o.UpdatePayment(status, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.auditor.LogUserActionWithMetadata(ctx, audit.EventOrderPaymentUpdated, audit.ActionUpdate,
		auditEntityOrder, o.ID.String(), "Payment of order "+o.OrderNumber+" is "+string(status),
		map[string]string{
			"orderNumber":   o.OrderNumber,
			"paymentStatus": string(status),
			"transactionId": o.Payment.TransactionID,
		})
	if s.metrics != nil {
		s.metrics.RecordPaymentUpdate(ctx, o.TenantID, string(status))
	}
	if advanced {
		s.recordTransition(ctx, o, previous, "Payment received")
	}
	telemetry.SetOK(span)
	return o, nil
}

// AddTrackingNumber records shipment tracking. A PROCESSING order becomes
// SHIPPED. The shipped notification goes out on every call; repeating the
// same tracking data writes nothing.
func (s *OrderService) AddTrackingNumber(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "AddTrackingNumber",
		telemetry.WithAttribute("order.id", id.String()),
		telemetry.WithAttribute("order.carrier", carrier),
	)
	defer span.End()

	o, err := s.loadForUpdate(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	unchanged := o.Carrier == order.NormalizeCarrier(carrier) &&
		o.TrackingNumber == strings.TrimSpace(trackingNumber)
	previous := o.Status
	shipped, err := o.AddTracking(carrier, trackingNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if shipped || !unchanged {
		if err := s.orders.SaveWithLock(ctx, o); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.auditor.LogUserActionWithMetadata(ctx, audit.EventOrderShipped, audit.ActionUpdate,
			auditEntityOrder, o.ID.String(), "Tracking added to order "+o.OrderNumber,
			map[string]string{
				"orderNumber":    o.OrderNumber,
				"carrier":        o.Carrier,
				"trackingNumber": o.TrackingNumber,
			})
		if shipped && s.metrics != nil {
			s.metrics.RecordStatusTransition(ctx, o.TenantID, string(previous), string(o.Status))
		}
	}

	s.notify(ctx, o, NotificationOrderShipped, map[string]string{
		"carrier":               o.Carrier,
		"trackingNumber":        o.TrackingNumber,
		"trackingUrl":           o.TrackingURL,
		"estimatedDeliveryDate": formatDate(o.EstimatedDeliveryDate),
	})
	telemetry.SetOK(span)
	return o, nil
}

// MarkDelivered moves a SHIPPED order to DELIVERED and notifies the
// customer. An already delivered order is returned untouched.
func (s *OrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "MarkDelivered",
		telemetry.WithAttribute("order.id", id.String()),
	)
	defer span.End()

	o, err := s.loadForUpdate(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	previous := o.Status
	changed, err := o.MarkDelivered()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !changed {
		return o, nil
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.recordTransition(ctx, o, previous, "Order delivered")
	s.notify(ctx, o, NotificationOrderDelivered, map[string]string{
		"deliveredAt": formatDate(o.ActualDeliveryDate),
	})
	telemetry.SetOK(span)
	return o, nil
}

// loadForUpdate loads an order for mutation. A miss is resolved into
// ErrTenantMismatch when another tenant owns the id, ErrOrderNotFound otherwise.
func (s *OrderService) loadForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	owner, err := s.orders.TenantOf(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := tenant.Verify(ctx, owner); err != nil {
		if errors.Is(err, shared.ErrTenantMismatch) {
			s.auditor.LogSecurityEvent(ctx, audit.EventTenantAccessDenied,
				"Attempt to modify order "+id.String()+" of another tenant", "", "")
		}
		return nil, err
	}
	return nil, shared.ErrOrderNotFound
}

func (s *OrderService) recordTransition(ctx context.Context, o *order.Order, from order.OrderStatus, note string) {
	eventType := audit.EventOrderStatusChanged
	switch o.Status {
	case order.OrderStatusCancelled:
		eventType = audit.EventOrderCancelled
	case order.OrderStatusDelivered:
		eventType = audit.EventOrderDelivered
	case order.OrderStatusShipped:
		eventType = audit.EventOrderShipped
	}

	s.auditor.LogUserActionWithMetadata(ctx, eventType, audit.ActionUpdate,
		auditEntityOrder, o.ID.String(),
		fmt.Sprintf("Order %s moved from %s to %s", o.OrderNumber, from, o.Status),
		map[string]string{
			"orderNumber": o.OrderNumber,
			"from":        string(from),
			"to":          string(o.Status),
			"note":        note,
		})
	if s.metrics != nil {
		s.metrics.RecordStatusTransition(ctx, o.TenantID, string(from), string(o.Status))
	}
}

// notify dispatches a customer notification. Failures never reach the caller.
func (s *OrderService) notify(ctx context.Context, o *order.Order, typ NotificationType, vars map[string]string) {
	if s.notifier == nil {
		return
	}
	vars["orderNumber"] = o.OrderNumber
	vars["customerName"] = o.Customer.Name

	_, err := s.notifier.CreateNotificationFromTemplate(ctx, NotificationRequest{
		TenantID:       o.TenantID,
		RecipientEmail: o.Customer.Email,
		Type:           typ,
		Channel:        ChannelEmail,
		Variables:      vars,
	})
	if err == nil {
		return
	}

	logger.WithLogger(ctx, s.logger).Error("Failed to dispatch order notification",
		zap.String("order_id", o.ID.String()),
		zap.String("type", string(typ)),
		zap.Error(err),
	)
	s.auditor.LogFailure(ctx, audit.EventNotificationFailed, auditEntityOrder, o.ID.String(),
		string(typ)+" notification for order "+o.OrderNumber+" failed", err.Error())
	if s.metrics != nil {
		s.metrics.RecordNotificationFailed(ctx, o.TenantID, string(typ))
	}
}

// =============================================================================
// Reads
// =============================================================================

// FindByID returns the order, or nil when the tenant has no such order
func (s *OrderService) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return orNil(s.orders.FindByID(ctx, id))
}

// FindByOrderNumber returns the order, or nil when the tenant has no such number
func (s *OrderService) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return orNil(s.orders.FindByOrderNumber(ctx, strings.TrimSpace(orderNumber)))
}

// FindByCustomerEmail lists orders placed with an email, ignoring case
func (s *OrderService) FindByCustomerEmail(ctx context.Context, email string, filter shared.Filter) ([]order.Order, error) {
	return s.orders.FindByCustomerEmail(ctx, email, filter)
}

// FindByStatus lists orders in a status
func (s *OrderService) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) ([]order.Order, error) {
	if !status.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown order status %q", status))
	}
	return s.orders.FindByStatus(ctx, status, filter)
}

// GetTrackingInfo returns the shipment view of an order, or nil when missing
func (s *OrderService) GetTrackingInfo(ctx context.Context, id uuid.UUID) (*order.TrackingInfo, error) {
	o, err := s.FindByID(ctx, id)
	if err != nil || o == nil {
		return nil, err
	}
	return o.TrackingInfo(), nil
}

// GetTrackingInfoByOrderNumber is the guest lookup: the email must match
// the order's customer email, otherwise nothing is returned.
func (s *OrderService) GetTrackingInfoByOrderNumber(ctx context.Context, orderNumber, email string) (*order.TrackingInfo, error) {
	o, err := s.FindByOrderNumber(ctx, orderNumber)
	if err != nil || o == nil {
		return nil, err
	}
	if !o.MatchesCustomerEmail(email) {
		return nil, nil
	}
	return o.TrackingInfo(), nil
}

func orNil(o *order.Order, err error) (*order.Order, error) {
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
