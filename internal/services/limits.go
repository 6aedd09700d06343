package services

import (
	"github.com/yapcx/backoffice/internal/models"
)

// LimitCheck reports which configured caps a proposed transaction breaks
type LimitCheck struct {
	ExceedsTransactionLimit bool    `json:"exceedsTransactionLimit"`
	ExceedsDailyLimit       bool    `json:"exceedsDailyLimit"`
	TransactionLimit        float64 `json:"transactionLimit"`
	DailyLimit              float64 `json:"dailyLimit"`
}

// Exceeded reports whether any limit was broken
func (lc LimitCheck) Exceeded() bool {
	return lc.ExceedsTransactionLimit || lc.ExceedsDailyLimit
}

// CheckTransactionLimits evaluates a proposed amount against the
// per-transaction and daily caps for the customer type. dailyTotal is
// the customer's day-to-date volume before this transaction. A limit of
// zero means no cap.
func CheckTransactionLimits(amount, dailyTotal float64, customerType string, limits models.TransactionLimits) LimitCheck {
	check := LimitCheck{
		TransactionLimit: limits.IndividualTransaction,
		DailyLimit:       limits.IndividualDaily,
	}
	if customerType == models.CustomerTypeCorporate {
		check.TransactionLimit = limits.CorporateTransaction
		check.DailyLimit = limits.CorporateDaily
	}

	if check.TransactionLimit > 0 && amount > check.TransactionLimit {
		check.ExceedsTransactionLimit = true
	}
	if check.DailyLimit > 0 && dailyTotal+amount > check.DailyLimit {
		check.ExceedsDailyLimit = true
	}
	return check
}

// RiskLevelForScore buckets a 0-100 score into low/medium/high using
// ordered thresholds. Boundaries are inclusive on the lower band; a
// score above the high threshold is always high.
func RiskLevelForScore(score int, t models.RiskThresholds) string {
	switch {
	case score <= t.Low:
		return "low"
	case score <= t.Medium:
		return "medium"
	default:
		return "high"
	}
}

// RequiresAML reports whether the amount mandates customer
// identification before completion
func RequiresAML(amount, disclosureThreshold float64) bool {
	return disclosureThreshold > 0 && amount >= disclosureThreshold
}
