package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/yapcx/backoffice/internal/models"
)

func TestIsValidAlertTransition(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{models.AlertStatusPending, models.AlertStatusReviewed, true},
		{models.AlertStatusPending, models.AlertStatusEscalated, true},
		{models.AlertStatusPending, models.AlertStatusResolved, false},
		{models.AlertStatusReviewed, models.AlertStatusResolved, true},
		{models.AlertStatusEscalated, models.AlertStatusResolved, true},
		{models.AlertStatusReviewed, models.AlertStatusEscalated, false},
		{models.AlertStatusEscalated, models.AlertStatusReviewed, false},
		// reopen
		{models.AlertStatusResolved, models.AlertStatusPending, true},
		{models.AlertStatusResolved, models.AlertStatusReviewed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, isValidAlertTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestCreateAlertTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("alert starts pending with a generated id", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectExec("INSERT INTO compliance_alerts").
			WithArgs(sqlmock.AnyArg(), models.AlertTypeSanctionMatch, models.AlertSeverityCritical,
				"CUST-1", "", "screening matched", models.AlertStatusPending).
			WillReturnResult(sqlmock.NewResult(1, 1))

		alert := &models.ComplianceAlert{
			AlertType:   models.AlertTypeSanctionMatch,
			Severity:    models.AlertSeverityCritical,
			CustomerID:  "CUST-1",
			Description: "screening matched",
		}
		err := createAlertTx(tx, alert)
		assert.NoError(t, err)
		assert.Equal(t, models.AlertStatusPending, alert.Status)
		assert.Contains(t, alert.AlertID, "ALERT-")
	})
}

func TestComplianceService_fetchAlert(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewComplianceService(db)

	columns := []string{"alert_id", "alert_type", "severity", "customer_id", "transaction_id",
		"description", "status", "resolution_notes", "reviewed_by",
		"created_at", "updated_at", "resolved_at"}
	now := time.Now()

	mock.ExpectQuery("SELECT alert_id, alert_type, severity").
		WithArgs("ALERT-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("ALERT-1", models.AlertTypeThresholdExceeded, models.AlertSeverityHigh,
				"CUST-1", "TXN-1", "over the daily cap", models.AlertStatusPending,
				"", "", now, now, nil))

	alert, err := service.fetchAlert("ALERT-1")
	assert.NoError(t, err)
	assert.Equal(t, "ALERT-1", alert.AlertID)
	assert.Equal(t, models.AlertStatusPending, alert.Status)
	assert.Nil(t, alert.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
