package models

import (
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"gorm.io/datatypes"
)

// UserModel is the persistence model for the User aggregate root.
type UserModel struct {
	TenantAggregateModel
	Email            string                                    `gorm:"type:varchar(255);not null;index"`
	FirstName        string                                    `gorm:"type:varchar(100)"`
	LastName         string                                    `gorm:"type:varchar(100)"`
	Phone            string                                    `gorm:"type:varchar(50)"`
	Addresses        datatypes.JSONType[[]valueobject.Address] `gorm:"type:jsonb"`
	OAuth2Provider   string                                    `gorm:"column:oauth2_provider;type:varchar(50)"`
	OAuth2ProviderID string                                    `gorm:"column:oauth2_provider_id;type:varchar(255)"`
	Status           identity.UserStatus                       `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	addresses := m.Addresses.Data()
	if addresses == nil {
		addresses = make([]valueobject.Address, 0)
	}
	return &identity.User{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Email:               m.Email,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		Phone:               m.Phone,
		Addresses:           addresses,
		OAuth2Provider:      m.OAuth2Provider,
		OAuth2ProviderID:    m.OAuth2ProviderID,
		Status:              m.Status,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantAggregateRoot(u.TenantAggregateRoot)
	m.Email = u.Email
	m.FirstName = u.FirstName
	m.LastName = u.LastName
	m.Phone = u.Phone
	m.Addresses = datatypes.NewJSONType(u.Addresses)
	m.OAuth2Provider = u.OAuth2Provider
	m.OAuth2ProviderID = u.OAuth2ProviderID
	m.Status = u.Status
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
