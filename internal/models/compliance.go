package models

import (
	"time"
)

// Compliance alert types
const (
	AlertTypeSanctionMatch      = "sanction_match"
	AlertTypeSuspiciousActivity = "suspicious_activity"
	AlertTypeThresholdExceeded  = "threshold_exceeded"
)

// Compliance alert severities
const (
	AlertSeverityCritical = "critical"
	AlertSeverityHigh     = "high"
	AlertSeverityMedium   = "medium"
	AlertSeverityLow      = "low"
)

// Compliance alert statuses
const (
	AlertStatusPending   = "pending"
	AlertStatusReviewed  = "reviewed"
	AlertStatusResolved  = "resolved"
	AlertStatusEscalated = "escalated"
)

// ComplianceAlert is a review item for the compliance queue.
// State machine: pending -> {reviewed, escalated} -> resolved, with
// reopen (resolved -> pending) permitted.
type ComplianceAlert struct {
	AlertID         string     `json:"alertId" db:"alert_id"`
	AlertType       string     `json:"alertType" db:"alert_type" validate:"required,oneof=sanction_match suspicious_activity threshold_exceeded"`
	Severity        string     `json:"severity" db:"severity" validate:"required,oneof=critical high medium low"`
	CustomerID      string     `json:"customerId,omitempty" db:"customer_id"`
	TransactionID   string     `json:"transactionId,omitempty" db:"transaction_id"`
	Description     string     `json:"description" db:"description"`
	Status          string     `json:"status" db:"status"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty" db:"resolution_notes"`
	ReviewedBy      string     `json:"reviewedBy,omitempty" db:"reviewed_by"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty" db:"resolved_at"`
}

// SanctionListEntry is one name on a configured sanction list
type SanctionListEntry struct {
	ID       int    `json:"id" db:"id"`
	ListName string `json:"listName" db:"list_name"`
	FullName string `json:"fullName" db:"full_name"`
	Country  string `json:"country" db:"country"`
}

// RiskThresholds are the ordered 0-100 score boundaries, inclusive on
// the lower band
type RiskThresholds struct {
	Low    int `json:"low" validate:"gte=0,lte=100"`
	Medium int `json:"medium" validate:"gte=0,lte=100"`
	High   int `json:"high" validate:"gte=0,lte=100"`
}

// TransactionLimits hold per-transaction and daily caps by customer type
type TransactionLimits struct {
	IndividualDaily       float64 `json:"individualDaily" validate:"gte=0"`
	IndividualTransaction float64 `json:"individualTransaction" validate:"gte=0"`
	CorporateDaily        float64 `json:"corporateDaily" validate:"gte=0"`
	CorporateTransaction  float64 `json:"corporateTransaction" validate:"gte=0"`
}

// AMLSettings is the process-wide compliance configuration. It is stored
// as a single row and loaded explicitly per request so the evaluators
// stay pure.
type AMLSettings struct {
	SanctionLists       []string          `json:"sanctionLists"`
	RiskThresholds      RiskThresholds    `json:"riskThresholds"`
	TransactionLimits   TransactionLimits `json:"transactionLimits"`
	AutoHold            bool              `json:"autoHold"`
	AutoReport          bool              `json:"autoReport"`
	TwoPersonApproval   bool              `json:"twoPersonApproval"`
	RetentionDays       int               `json:"retentionDays" validate:"gte=0"`
	DisclosureThreshold float64           `json:"disclosureThreshold" validate:"gte=0"`
}
