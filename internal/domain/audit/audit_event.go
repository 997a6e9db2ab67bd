package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies audit events
type EventType string

const (
	EventOrderCreated         EventType = "ORDER_CREATED"
	EventOrderStatusChanged   EventType = "ORDER_STATUS_CHANGED"
	EventOrderPaymentUpdated  EventType = "ORDER_PAYMENT_UPDATED"
	EventOrderShipped         EventType = "ORDER_SHIPPED"
	EventOrderDelivered       EventType = "ORDER_DELIVERED"
	EventOrderCancelled       EventType = "ORDER_CANCELLED"
	EventNotificationFailed   EventType = "NOTIFICATION_FAILED"
	EventGDPRExport           EventType = "GDPR_EXPORT"
	EventGDPRDeletion         EventType = "GDPR_DELETION"
	EventGDPREligibilityCheck EventType = "GDPR_ELIGIBILITY_CHECK"
	EventTenantAccessDenied   EventType = "TENANT_ACCESS_DENIED"
	EventRetentionCleanup     EventType = "AUDIT_RETENTION_CLEANUP"
	EventSystem               EventType = "SYSTEM"
)

// Action is the verb recorded on user actions
type Action string

const (
	ActionCreate    Action = "CREATE"
	ActionUpdate    Action = "UPDATE"
	ActionDelete    Action = "DELETE"
	ActionRead      Action = "READ"
	ActionExport    Action = "EXPORT"
	ActionAnonymize Action = "ANONYMIZE"
	ActionLogin     Action = "LOGIN"
	ActionLogout    Action = "LOGOUT"
)

// Severity of an audit event
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// AuditEvent is an append-only record of something that happened in a tenant.
// Events are never mutated; retention cleanup deletes them in bulk.
type AuditEvent struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	EventType    EventType
	UserID       *uuid.UUID
	Username     string
	Action       Action
	EntityType   string
	EntityID     string
	Description  string
	Metadata     map[string]string
	Success      bool
	Severity     Severity
	ErrorMessage string
	IPAddress    string
	UserAgent    string
	Timestamp    time.Time
}

// NewAuditEvent creates a successful INFO event
func NewAuditEvent(tenantID uuid.UUID, eventType EventType, description string) *AuditEvent {
	return &AuditEvent{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EventType:   eventType,
		Description: description,
		Metadata:    map[string]string{},
		Success:     true,
		Severity:    SeverityInfo,
		Timestamp:   time.Now().UTC(),
	}
}

// WithUser sets the acting user
func (e *AuditEvent) WithUser(userID *uuid.UUID, username string) *AuditEvent {
	e.UserID = userID
	e.Username = username
	return e
}

// WithEntity sets the action and the affected entity
func (e *AuditEvent) WithEntity(action Action, entityType, entityID string) *AuditEvent {
	e.Action = action
	e.EntityType = entityType
	e.EntityID = entityID
	return e
}

// WithMetadata merges metadata into the event
func (e *AuditEvent) WithMetadata(metadata map[string]string) *AuditEvent {
	for k, v := range metadata {
		e.Metadata[k] = v
	}
	return e
}

// Failed marks the event as an ERROR failure
func (e *AuditEvent) Failed(errorMessage string) *AuditEvent {
	e.Success = false
	e.Severity = SeverityError
	e.ErrorMessage = errorMessage
	return e
}

// FromClient sets the WARNING severity and client fingerprint of a security event
func (e *AuditEvent) FromClient(ipAddress, userAgent string) *AuditEvent {
	e.Severity = SeverityWarning
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}
