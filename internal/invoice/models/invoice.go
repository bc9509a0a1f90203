package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultVATRate is applied on top of the request amount.
var DefaultVATRate = decimal.RequireFromString("0.15")

// Status of an invoice.
type Status string

const (
	StatusIssued Status = "ISSUED"
	StatusPaid   Status = "PAID"
	StatusVoid   Status = "VOID"
)

// Invoice is derived from exactly one Request. SeqID is assigned by the store
// and DisplayID is rendered from it.
type Invoice struct {
	ID        uuid.UUID       `json:"id"`
	SeqID     int64           `json:"seqId"`
	DisplayID string          `json:"displayId"`
	RequestID uuid.UUID       `json:"requestId"`
	ClientID  uuid.UUID       `json:"clientId"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VAT       decimal.Decimal `json:"vat"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
	IssuedAt  time.Time       `json:"issuedAt"`
}

// NewInvoice prices an invoice for subtotal at vatRate. Money is rounded to
// cents after the VAT is computed.
func NewInvoice(id, requestID, clientID uuid.UUID, subtotal, vatRate decimal.Decimal, now time.Time) *Invoice {
	vat := subtotal.Mul(vatRate).Round(2)
	return &Invoice{
		ID:        id,
		RequestID: requestID,
		ClientID:  clientID,
		Subtotal:  subtotal.Round(2),
		VAT:       vat,
		Amount:    subtotal.Add(vat).Round(2),
		Status:    StatusIssued,
		IssuedAt:  now,
	}
}
