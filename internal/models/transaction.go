package models

import (
	"time"
)

// Exchange transaction types
const (
	TransactionTypeBuy  = "currency_buy"
	TransactionTypeSell = "currency_sell"
)

// Exchange transaction statuses
const (
	TransactionStatusPending    = "pending"
	TransactionStatusProcessing = "processing"
	TransactionStatusCompleted  = "completed"
	TransactionStatusFailed     = "failed"
	TransactionStatusCancelled  = "cancelled"
)

// ExchangeTransaction represents a currency-exchange deal.
// State machine: pending -> processing -> completed, pending -> failed,
// pending/processing -> cancelled. Completed rows are immutable.
type ExchangeTransaction struct {
	TransactionID string     `json:"transactionId" db:"transaction_id"`
	Type          string     `json:"type" db:"type" validate:"required,oneof=currency_buy currency_sell"`
	FromCurrency  string     `json:"fromCurrency" db:"from_currency" validate:"required,len=3"`
	FromAmount    float64    `json:"fromAmount" db:"from_amount" validate:"required,gt=0"`
	ToCurrency    string     `json:"toCurrency" db:"to_currency" validate:"required,len=3"`
	ToAmount      float64    `json:"toAmount" db:"to_amount"`
	ExchangeRate  float64    `json:"exchangeRate" db:"exchange_rate"`
	ServiceFee    float64    `json:"serviceFee" db:"service_fee"`
	CustomerID    string     `json:"customerId,omitempty" db:"customer_id"`
	TillID        string     `json:"tillId,omitempty" db:"till_id"`
	Status        string     `json:"status" db:"status"`
	RequiresAML   bool       `json:"requiresAML" db:"requires_aml"`
	Notes         string     `json:"notes,omitempty" db:"notes"`
	CreatedBy     string     `json:"createdBy" db:"created_by"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// IsWalkIn reports whether the deal has no linked customer record
func (t *ExchangeTransaction) IsWalkIn() bool {
	return t.CustomerID == ""
}
