package models

import (
	"time"
)

// Till transaction event kinds
const (
	TillTxCashIn       = "cash_in"
	TillTxCashOut      = "cash_out"
	TillTxAdjustment   = "adjustment"
	TillTxCurrencyBuy  = "currency_buy"
	TillTxCurrencySell = "currency_sell"
)

// Till is a cash drawer with one balance row per currency
type Till struct {
	TillID          string    `json:"tillId" db:"till_id" validate:"required,max=10"`
	TillName        string    `json:"tillName" db:"till_name" validate:"required"`
	ReserveForAdmin bool      `json:"reserveForAdmin" db:"reserve_for_admin"`
	ShareTill       bool      `json:"shareTill" db:"share_till"`
	IsActive        bool      `json:"isActive" db:"is_active"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// TillBalance is the running balance of one currency in one till
type TillBalance struct {
	TillID    string    `json:"tillId" db:"till_id"`
	Currency  string    `json:"currency" db:"currency"`
	Balance   float64   `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TillTransaction is one entry in the append-only till movement log
type TillTransaction struct {
	ID        int64     `json:"id" db:"id"`
	TillID    string    `json:"tillId" db:"till_id"`
	Type      string    `json:"type" db:"type"`
	Amount    float64   `json:"amount" db:"amount"`
	Currency  string    `json:"currency" db:"currency"`
	Status    string    `json:"status" db:"status"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TillSession marks a teller as working a till. Sessions live in Redis
// keyed by user, so one user works at most one till at a time.
type TillSession struct {
	TillID   string    `json:"tillId"`
	UserID   string    `json:"userId"`
	OpenedAt time.Time `json:"openedAt"`
}
