package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/yapcx/backoffice/internal/models"
)

// DefaultAMLSettings returns the compliance configuration from viper.
// These values seed the settings row on first run and act as the
// fallback when no row exists yet.
func DefaultAMLSettings() models.AMLSettings {
	viper.SetDefault("aml.sanction_lists", []string{"OFAC_SDN", "UN_CONSOLIDATED", "EU_CONSOLIDATED"})
	viper.SetDefault("aml.risk_threshold_low", 30)
	viper.SetDefault("aml.risk_threshold_medium", 60)
	viper.SetDefault("aml.risk_threshold_high", 85)
	viper.SetDefault("aml.limit_individual_daily", 10000.0)
	viper.SetDefault("aml.limit_individual_transaction", 3000.0)
	viper.SetDefault("aml.limit_corporate_daily", 50000.0)
	viper.SetDefault("aml.limit_corporate_transaction", 15000.0)
	viper.SetDefault("aml.auto_hold", true)
	viper.SetDefault("aml.auto_report", false)
	viper.SetDefault("aml.two_person_approval", false)
	viper.SetDefault("aml.retention_days", 1825)
	viper.SetDefault("aml.disclosure_threshold", 1000.0)

	return models.AMLSettings{
		SanctionLists: viper.GetStringSlice("aml.sanction_lists"),
		RiskThresholds: models.RiskThresholds{
			Low:    viper.GetInt("aml.risk_threshold_low"),
			Medium: viper.GetInt("aml.risk_threshold_medium"),
			High:   viper.GetInt("aml.risk_threshold_high"),
		},
		TransactionLimits: models.TransactionLimits{
			IndividualDaily:       viper.GetFloat64("aml.limit_individual_daily"),
			IndividualTransaction: viper.GetFloat64("aml.limit_individual_transaction"),
			CorporateDaily:        viper.GetFloat64("aml.limit_corporate_daily"),
			CorporateTransaction:  viper.GetFloat64("aml.limit_corporate_transaction"),
		},
		AutoHold:            viper.GetBool("aml.auto_hold"),
		AutoReport:          viper.GetBool("aml.auto_report"),
		TwoPersonApproval:   viper.GetBool("aml.two_person_approval"),
		RetentionDays:       viper.GetInt("aml.retention_days"),
		DisclosureThreshold: viper.GetFloat64("aml.disclosure_threshold"),
	}
}

// InvitationExpiry returns how long a user invitation token stays valid
func InvitationExpiry() time.Duration {
	viper.SetDefault("users.invitation_expiry_days", 7)
	return time.Duration(viper.GetInt("users.invitation_expiry_days")) * 24 * time.Hour
}

// TillSessionTTL returns how long an idle till session stays open
func TillSessionTTL() time.Duration {
	viper.SetDefault("tills.session_ttl", 12*time.Hour)
	return viper.GetDuration("tills.session_ttl")
}

// RateSourceURL returns the external market-rate endpoint
func RateSourceURL() string {
	viper.SetDefault("rates.source_url", "https://open.er-api.com/v6/latest/USD")
	return viper.GetString("rates.source_url")
}

// RateMargins returns the buy/sell margins applied to the market rate
// when a currency has no manual override
func RateMargins() (buy, sell float64) {
	viper.SetDefault("rates.buy_margin", 0.02)
	viper.SetDefault("rates.sell_margin", 0.02)
	return viper.GetFloat64("rates.buy_margin"), viper.GetFloat64("rates.sell_margin")
}
