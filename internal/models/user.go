package models

import (
	"time"
)

// User statuses
const (
	UserStatusPending = "pending"
	UserStatusActive  = "active"
)

// User is a back-office operator with role flags and financial-control
// permissions
type User struct {
	ID                         int       `json:"id" db:"id"`
	Email                      string    `json:"email" db:"email"`
	FirstName                  string    `json:"firstName" db:"first_name"`
	LastName                   string    `json:"lastName" db:"last_name"`
	IsManager                  bool      `json:"isManager" db:"is_manager"`
	IsComplianceOfficer        bool      `json:"isComplianceOfficer" db:"is_compliance_officer"`
	IsTemplate                 bool      `json:"isTemplate" db:"is_template"`
	CanModifyExchangeRates     bool      `json:"canModifyExchangeRates" db:"can_modify_exchange_rates"`
	CanEditFeesCommissions     bool      `json:"canEditFeesCommissions" db:"can_edit_fees_commissions"`
	CanTransferBetweenAccounts bool      `json:"canTransferBetweenAccounts" db:"can_transfer_between_accounts"`
	CanReconcileAccounts       bool      `json:"canReconcileAccounts" db:"can_reconcile_accounts"`
	MaxRateModificationPct     float64   `json:"maxRateModificationPct" db:"max_rate_modification_pct"`
	MaxFeeModification         float64   `json:"maxFeeModification" db:"max_fee_modification"`
	Status                     string    `json:"status" db:"status"`
	CreatedAt                  time.Time `json:"createdAt" db:"created_at"`
}

// Invitation is a pending invite. The token lives in Redis with the
// configured expiry; accepting consumes it.
type Invitation struct {
	Token               string    `json:"token"`
	Email               string    `json:"email"`
	IsManager           bool      `json:"isManager"`
	IsComplianceOfficer bool      `json:"isComplianceOfficer"`
	InvitedBy           string    `json:"invitedBy"`
	ExpiresAt           time.Time `json:"expiresAt"`
}
