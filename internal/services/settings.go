package services

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/yapcx/backoffice/internal/config"
	"github.com/yapcx/backoffice/internal/models"
)

// loadAMLSettings reads the singleton settings row. Until the row is
// first written, configuration defaults apply.
func loadAMLSettings(db *sql.DB) (models.AMLSettings, error) {
	var s models.AMLSettings
	err := db.QueryRow(`
		SELECT sanction_lists,
		       risk_threshold_low, risk_threshold_medium, risk_threshold_high,
		       limit_individual_daily, limit_individual_transaction,
		       limit_corporate_daily, limit_corporate_transaction,
		       auto_hold, auto_report, two_person_approval,
		       retention_days, disclosure_threshold
		FROM aml_settings WHERE id = 1
	`).Scan(
		pq.Array(&s.SanctionLists),
		&s.RiskThresholds.Low, &s.RiskThresholds.Medium, &s.RiskThresholds.High,
		&s.TransactionLimits.IndividualDaily, &s.TransactionLimits.IndividualTransaction,
		&s.TransactionLimits.CorporateDaily, &s.TransactionLimits.CorporateTransaction,
		&s.AutoHold, &s.AutoReport, &s.TwoPersonApproval,
		&s.RetentionDays, &s.DisclosureThreshold,
	)
	if err == sql.ErrNoRows {
		return config.DefaultAMLSettings(), nil
	}
	if err != nil {
		return models.AMLSettings{}, err
	}
	return s, nil
}

// saveAMLSettings upserts the singleton settings row
func saveAMLSettings(db *sql.DB, s *models.AMLSettings) error {
	_, err := db.Exec(`
		INSERT INTO aml_settings
		(id, sanction_lists,
		 risk_threshold_low, risk_threshold_medium, risk_threshold_high,
		 limit_individual_daily, limit_individual_transaction,
		 limit_corporate_daily, limit_corporate_transaction,
		 auto_hold, auto_report, two_person_approval,
		 retention_days, disclosure_threshold, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
		 sanction_lists = EXCLUDED.sanction_lists,
		 risk_threshold_low = EXCLUDED.risk_threshold_low,
		 risk_threshold_medium = EXCLUDED.risk_threshold_medium,
		 risk_threshold_high = EXCLUDED.risk_threshold_high,
		 limit_individual_daily = EXCLUDED.limit_individual_daily,
		 limit_individual_transaction = EXCLUDED.limit_individual_transaction,
		 limit_corporate_daily = EXCLUDED.limit_corporate_daily,
		 limit_corporate_transaction = EXCLUDED.limit_corporate_transaction,
		 auto_hold = EXCLUDED.auto_hold,
		 auto_report = EXCLUDED.auto_report,
		 two_person_approval = EXCLUDED.two_person_approval,
		 retention_days = EXCLUDED.retention_days,
		 disclosure_threshold = EXCLUDED.disclosure_threshold,
		 updated_at = NOW()
	`, pq.Array(s.SanctionLists),
		s.RiskThresholds.Low, s.RiskThresholds.Medium, s.RiskThresholds.High,
		s.TransactionLimits.IndividualDaily, s.TransactionLimits.IndividualTransaction,
		s.TransactionLimits.CorporateDaily, s.TransactionLimits.CorporateTransaction,
		s.AutoHold, s.AutoReport, s.TwoPersonApproval,
		s.RetentionDays, s.DisclosureThreshold)
	return err
}
