package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// UserStatus represents the status of a shopper account
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"    // Normal active status
	UserStatusSuspended UserStatus = "SUSPENDED" // Manually suspended
	UserStatusDeleted   UserStatus = "DELETED"   // Erased on request; profile anonymized
)

// LocalAuthProvider is reported for accounts without an OAuth2 provider
const LocalAuthProvider = "LOCAL"

// Placeholder values written over an erased profile
const (
	DeletedFirstName = "Deleted"
	DeletedLastName  = "User"
	deletedDomain    = "anonymized.invalid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User represents a storefront shopper account
// It is the aggregate root for profile data
type User struct {
	shared.TenantAggregateRoot
	Email            string
	FirstName        string
	LastName         string
	Phone            string
	Addresses        []valueobject.Address
	OAuth2Provider   string
	OAuth2ProviderID string
	Status           UserStatus
}

// NewUser creates an active shopper account
func NewUser(tenantID uuid.UUID, email, firstName, lastName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	return &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Email:               email,
		FirstName:           strings.TrimSpace(firstName),
		LastName:            strings.TrimSpace(lastName),
		Addresses:           make([]valueobject.Address, 0),
		Status:              UserStatusActive,
	}, nil
}

// SetPhone sets the user's phone number
func (u *User) SetPhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewValidationError("Phone cannot exceed 50 characters")
	}
	u.Phone = strings.TrimSpace(phone)
	u.Touch()
	return nil
}

// AddAddress appends an address to the address book
func (u *User) AddAddress(addr valueobject.Address) {
	u.Addresses = append(u.Addresses, addr.Normalize())
	u.Touch()
}

// LinkOAuth2 records the external identity provider of the account
func (u *User) LinkOAuth2(provider, providerID string) {
	u.OAuth2Provider = strings.ToUpper(strings.TrimSpace(provider))
	u.OAuth2ProviderID = providerID
	u.Touch()
}

// AuthProvider returns the OAuth2 provider name, or LOCAL
func (u *User) AuthProvider() string {
	if u.OAuth2Provider == "" {
		return LocalAuthProvider
	}
	return u.OAuth2Provider
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsDeleted reports whether the profile was erased
func (u *User) IsDeleted() bool {
	return u.Status == UserStatusDeleted
}

// Anonymize replaces personal data with placeholders and marks the account DELETED.
// The pseudonymous email is stable for a given user id. Returns false when the
// profile was already erased.
func (u *User) Anonymize() bool {
	if u.IsDeleted() {
		return false
	}

	u.Email = PseudonymousEmail(u.ID)
	u.FirstName = DeletedFirstName
	u.LastName = DeletedLastName
	u.Phone = ""
	u.Addresses = make([]valueobject.Address, 0)
	u.OAuth2ProviderID = ""
	u.Status = UserStatusDeleted
	u.Touch()
	return true
}

// Suspend suspends an active account
func (u *User) Suspend() error {
	if u.Status != UserStatusActive {
		return shared.NewDomainError(shared.CodeInvalidTransition, fmt.Sprintf("Cannot suspend user in %s status", u.Status))
	}
	u.Status = UserStatusSuspended
	u.UpdatedAt = time.Now()
	return nil
}

// PseudonymousEmail derives the placeholder address written over an erased profile
func PseudonymousEmail(userID uuid.UUID) string {
	return fmt.Sprintf("deleted-%s@%s", userID, deletedDomain)
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewValidationError("Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewValidationError("Invalid email format")
	}
	return nil
}
