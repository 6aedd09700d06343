package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yapcx/backoffice/internal/models"
)

func TestCheckTransactionLimits(t *testing.T) {
	limits := models.TransactionLimits{
		IndividualDaily:       10000,
		IndividualTransaction: 3000,
		CorporateDaily:        50000,
		CorporateTransaction:  15000,
	}

	t.Run("amount at the cap is allowed", func(t *testing.T) {
		check := CheckTransactionLimits(3000, 0, models.CustomerTypeIndividual, limits)
		assert.False(t, check.Exceeded())
	})

	t.Run("amount over the cap is flagged", func(t *testing.T) {
		check := CheckTransactionLimits(3500, 0, models.CustomerTypeIndividual, limits)
		assert.True(t, check.ExceedsTransactionLimit)
		assert.False(t, check.ExceedsDailyLimit)
		assert.True(t, check.Exceeded())
	})

	t.Run("daily limit counts the proposed amount", func(t *testing.T) {
		check := CheckTransactionLimits(2000, 8500, models.CustomerTypeIndividual, limits)
		assert.False(t, check.ExceedsTransactionLimit)
		assert.True(t, check.ExceedsDailyLimit)
	})

	t.Run("daily total exactly at the cap is allowed", func(t *testing.T) {
		check := CheckTransactionLimits(2000, 8000, models.CustomerTypeIndividual, limits)
		assert.False(t, check.Exceeded())
	})

	t.Run("corporate customers use corporate caps", func(t *testing.T) {
		check := CheckTransactionLimits(12000, 0, models.CustomerTypeCorporate, limits)
		assert.False(t, check.Exceeded())
		assert.Equal(t, float64(15000), check.TransactionLimit)
	})

	t.Run("zero limit means no cap", func(t *testing.T) {
		check := CheckTransactionLimits(1_000_000, 1_000_000, models.CustomerTypeIndividual, models.TransactionLimits{})
		assert.False(t, check.Exceeded())
	})
}

func TestRiskLevelForScore(t *testing.T) {
	thresholds := models.RiskThresholds{Low: 30, Medium: 60, High: 85}

	tests := []struct {
		score int
		want  string
	}{
		{0, "low"},
		{30, "low"},
		{31, "medium"},
		{60, "medium"},
		{61, "high"},
		{85, "high"},
		{100, "high"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelForScore(tt.score, thresholds), "score %d", tt.score)
	}
}

func TestRequiresAML(t *testing.T) {
	assert.False(t, RequiresAML(999.99, 1000))
	assert.True(t, RequiresAML(1000, 1000))
	assert.True(t, RequiresAML(5000, 1000))
	assert.False(t, RequiresAML(5000, 0)) // disabled threshold
}
