package domain

import "time"

// AccountRole enumerates the parties of the after-sales workflow.
type AccountRole string

const (
	RoleClient   AccountRole = "CLIENT"
	RoleProvider AccountRole = "PROVIDER"
	RoleAdmin    AccountRole = "ADMIN"
)

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Account models a client, service provider or internal administrator.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AccountRole
	Status       AccountStatus
	// GatewayAccountID is the payment-gateway destination for provider payouts.
	GatewayAccountID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
