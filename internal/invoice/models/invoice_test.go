package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewInvoice(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		vat      string
		total    string
	}{
		{name: "whole amount", subtotal: "500", vat: "75", total: "575"},
		{name: "cents round half up", subtotal: "99.99", vat: "15", total: "114.99"},
		{name: "zero", subtotal: "0", vat: "0", total: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInvoice(uuid.New(), uuid.New(), uuid.New(), decimal.RequireFromString(tt.subtotal), DefaultVATRate, time.Now())

			assert.True(t, decimal.RequireFromString(tt.vat).Equal(inv.VAT), "vat %s", inv.VAT)
			assert.True(t, decimal.RequireFromString(tt.total).Equal(inv.Amount), "total %s", inv.Amount)
			assert.Equal(t, StatusIssued, inv.Status)
		})
	}
}
