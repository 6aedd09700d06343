package models

import (
	"time"
)

// Customer types
const (
	CustomerTypeIndividual = "individual"
	CustomerTypeCorporate  = "corporate"
)

// Customer statuses
const (
	CustomerStatusActive    = "active"
	CustomerStatusFlagged   = "flagged"
	CustomerStatusSuspended = "suspended"
)

// Sanctions screening statuses
const (
	ScreeningStatusClear   = "clear"
	ScreeningStatusFlagged = "flagged"
	ScreeningStatusPending = "pending"
)

// Customer holds KYC/AML fields alongside contact details.
// Customers are never physically deleted; status changes are soft.
type Customer struct {
	CustomerID               string     `json:"customerId" db:"customer_id"`
	Type                     string     `json:"type" db:"type" validate:"required,oneof=individual corporate"`
	FirstName                string     `json:"firstName" db:"first_name"`
	LastName                 string     `json:"lastName" db:"last_name"`
	BusinessName             string     `json:"businessName" db:"business_name"`
	DateOfBirth              *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	IncorporationNumber      string     `json:"incorporationNumber,omitempty" db:"incorporation_number"`
	Email                    string     `json:"email" db:"email" validate:"omitempty,email"`
	Phone                    string     `json:"phone" db:"phone"`
	Address                  string     `json:"address" db:"address"`
	City                     string     `json:"city" db:"city"`
	Country                  string     `json:"country" db:"country"`
	Status                   string     `json:"status" db:"status"`
	RiskLevel                string     `json:"riskLevel" db:"risk_level"`
	RiskScore                int        `json:"riskScore" db:"risk_score"`
	AMLStatus                string     `json:"amlStatus" db:"aml_status"`
	SanctionsScreeningStatus string     `json:"sanctionsScreeningStatus" db:"sanctions_screening_status"`
	SanctionScreeningDate    *time.Time `json:"sanctionScreeningDate,omitempty" db:"sanction_screening_date"`
	SanctionFalsePositive    bool       `json:"sanctionFalsePositive" db:"sanction_false_positive"`
	FalsePositiveBasis       string     `json:"falsePositiveBasis,omitempty" db:"false_positive_basis"`
	IsPEP                    bool       `json:"isPEP" db:"is_pep"`
	IsSuspicious             bool       `json:"isSuspicious" db:"is_suspicious"`
	IsWhitelisted            bool       `json:"isWhitelisted" db:"is_whitelisted"`
	WhitelistExpiry          *time.Time `json:"whitelistExpiry,omitempty" db:"whitelist_expiry"`
	CreatedAt                time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt                time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName returns the screening name for the customer: the personal name
// for individuals, the registered business name for corporates.
func (c *Customer) FullName() string {
	if c.Type == CustomerTypeCorporate {
		return c.BusinessName
	}
	return c.FirstName + " " + c.LastName
}
