// internal/domain/payment/entity.go
package payment

import (
	"time"
)

// Method identifies how an order was paid
type Method string

const (
	MethodCard Method = "card"
	MethodPix  Method = "pix"
)

// ConfirmationKind distinguishes provider-verified payments from payments
// the shopper declared without provider verification.
type ConfirmationKind string

const (
	ConfirmationVerified ConfirmationKind = "verified"
	ConfirmationAsserted ConfirmationKind = "asserted"
)

// Confirmation is the result of a successful payment step
type Confirmation struct {
	PaymentID    string             `json:"payment_id"`
	Method       Method             `json:"method"`
	Kind         ConfirmationKind   `json:"kind"`
	Amount       int64              `json:"amount"`
	Installments *InstallmentOption `json:"installments,omitempty"`
	ConfirmedAt  time.Time          `json:"confirmed_at"`
}

// IsVerified reports whether the provider confirmed the funds
func (c Confirmation) IsVerified() bool {
	return c.Kind == ConfirmationVerified
}
