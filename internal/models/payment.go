package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PaymentStatus mirrors the terminal states the gateway webhook reports.
type PaymentStatus string

const (
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentDeclined PaymentStatus = "DECLINED"
	PaymentError    PaymentStatus = "ERROR"
	PaymentPending  PaymentStatus = "PENDING"
)

// Payment is the payment-status record keyed by the checkout reference.
// The gateway webhook writes it; the client poll reads it.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	Reference     string        `bun:"reference,pk" json:"reference"`
	Status        PaymentStatus `bun:"status,notnull" json:"status"`
	TransactionID string        `bun:"transaction_id,nullzero" json:"transactionId,omitempty"`
	AmountInCents int64         `bun:"amount_in_cents" json:"amountInCents"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time     `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}
