// Package directory holds the read-mostly catalogue the request lifecycle
// references: clients, experts, services and pricing plans.
package directory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Client struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Expert is a fulfiller; Specializations are stored normalized.
type Expert struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Specializations []string  `json:"specializations"`
}

type Service struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type PricingPlan struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	ServiceID *uuid.UUID      `json:"serviceId,omitempty"`
	Price     decimal.Decimal `json:"price"`
}
