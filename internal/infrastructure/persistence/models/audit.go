package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"gorm.io/datatypes"
)

// AuditEventModel is the persistence model for an audit event.
// Audit events are append-only; only the retention job deletes them.
type AuditEventModel struct {
	ID           uuid.UUID                             `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID                             `gorm:"type:uuid;not null;index:idx_audit_events_tenant_ts,priority:1"`
	EventType    audit.EventType                       `gorm:"type:varchar(50);not null;index"`
	UserID       *uuid.UUID                            `gorm:"type:uuid;index"`
	Username     string                                `gorm:"type:varchar(200)"`
	Action       audit.Action                          `gorm:"type:varchar(20)"`
	EntityType   string                                `gorm:"type:varchar(50)"`
	EntityID     string                                `gorm:"type:varchar(100)"`
	Description  string                                `gorm:"type:text"`
	Metadata     datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	Success      bool                                  `gorm:"not null"`
	Severity     audit.Severity                        `gorm:"type:varchar(10);not null"`
	ErrorMessage string                                `gorm:"type:text"`
	IPAddress    string                                `gorm:"type:varchar(64)"`
	UserAgent    string                                `gorm:"type:varchar(500)"`
	Timestamp    time.Time                             `gorm:"column:occurred_at;not null;index:idx_audit_events_tenant_ts,priority:2"`
}

// TableName returns the table name for GORM
func (AuditEventModel) TableName() string {
	return "audit_events"
}

// ToDomain converts the persistence model to a domain AuditEvent.
func (m *AuditEventModel) ToDomain() *audit.AuditEvent {
	metadata := m.Metadata.Data()
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &audit.AuditEvent{
		ID:           m.ID,
		TenantID:     m.TenantID,
		EventType:    m.EventType,
		UserID:       m.UserID,
		Username:     m.Username,
		Action:       m.Action,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		Description:  m.Description,
		Metadata:     metadata,
		Success:      m.Success,
		Severity:     m.Severity,
		ErrorMessage: m.ErrorMessage,
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		Timestamp:    m.Timestamp,
	}
}

// AuditEventModelFromDomain creates a new persistence model from a domain AuditEvent.
func AuditEventModelFromDomain(e *audit.AuditEvent) *AuditEventModel {
	return &AuditEventModel{
		ID:           e.ID,
		TenantID:     e.TenantID,
		EventType:    e.EventType,
		UserID:       e.UserID,
		Username:     e.Username,
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Description:  e.Description,
		Metadata:     datatypes.NewJSONType(e.Metadata),
		Success:      e.Success,
		Severity:     e.Severity,
		ErrorMessage: e.ErrorMessage,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Timestamp:    e.Timestamp,
	}
}
