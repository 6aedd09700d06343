package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yapcx/backoffice/internal/audit"
	"github.com/yapcx/backoffice/internal/models"
)

type ComplianceService struct {
	db        *sql.DB
	validator *ValidationHelper
	audit     *audit.AuditLogger
}

func NewComplianceService(db *sql.DB) *ComplianceService {
	return &ComplianceService{
		db:        db,
		validator: NewValidationHelper(),
		audit:     audit.NewAuditLogger(),
	}
}

// createAlertTx inserts a pending alert inside the caller's transaction,
// so alerts raised by screening commit together with the customer row
func createAlertTx(tx *sql.Tx, alert *models.ComplianceAlert) error {
	alert.AlertID = "ALERT-" + uuid.New().String()
	alert.Status = models.AlertStatusPending
	_, err := tx.Exec(`
		INSERT INTO compliance_alerts
		(alert_id, alert_type, severity, customer_id, transaction_id, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NOW(), NOW())
	`, alert.AlertID, alert.AlertType, alert.Severity, alert.CustomerID,
		alert.TransactionID, alert.Description, alert.Status)
	return err
}

// isValidAlertTransition enforces the alert lifecycle:
// pending -> {reviewed, escalated} -> resolved, with reopen allowed
func isValidAlertTransition(from, to string) bool {
	switch from {
	case models.AlertStatusPending:
		return to == models.AlertStatusReviewed || to == models.AlertStatusEscalated
	case models.AlertStatusReviewed, models.AlertStatusEscalated:
		return to == models.AlertStatusResolved
	case models.AlertStatusResolved:
		return to == models.AlertStatusPending
	}
	return false
}

// ListAlerts returns compliance alerts filtered by status/severity/type
// @Summary List compliance alerts
// @Tags compliance
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param severity query string false "Filter by severity"
// @Param alertType query string false "Filter by alert type"
// @Success 200 {object} object{alerts=[]models.ComplianceAlert,count=int}
// @Router /compliance/alerts [get]
func (s *ComplianceService) ListAlerts(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT alert_id, alert_type, severity, COALESCE(customer_id, ''), COALESCE(transaction_id, ''),
		       description, status, COALESCE(resolution_notes, ''), COALESCE(reviewed_by, ''),
		       created_at, updated_at, resolved_at
		FROM compliance_alerts`

	filters := map[string]string{
		"status":    r.URL.Query().Get("status"),
		"severity":  r.URL.Query().Get("severity"),
		"alertType": r.URL.Query().Get("alertType"),
	}
	columns := map[string]string{"status": "status", "severity": "severity", "alertType": "alert_type"}

	var conditions []string
	var args []any
	argIndex := 1
	for param, value := range filters {
		if value == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", columns[param], argIndex))
		args = append(args, value)
		argIndex++
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch alerts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	alerts := []models.ComplianceAlert{}
	for rows.Next() {
		var a models.ComplianceAlert
		if err := rows.Scan(&a.AlertID, &a.AlertType, &a.Severity, &a.CustomerID, &a.TransactionID,
			&a.Description, &a.Status, &a.ResolutionNotes, &a.ReviewedBy,
			&a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch alerts", http.StatusInternalServerError, nil)
			return
		}
		alerts = append(alerts, a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetAlert returns one alert
// @Summary Get compliance alert
// @Tags compliance
// @Produce json
// @Security BearerAuth
// @Param alertId path string true "Alert ID"
// @Success 200 {object} models.ComplianceAlert
// @Failure 404 {object} ErrorResponse
// @Router /compliance/alerts/{alertId} [get]
func (s *ComplianceService) GetAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")

	a, err := s.fetchAlert(alertID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Alert not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch alert", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// CreateAlert opens a manual compliance alert
// @Summary Create compliance alert
// @Tags compliance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alert body models.ComplianceAlert true "Alert"
// @Success 201 {object} models.ComplianceAlert
// @Failure 400 {object} ErrorResponse
// @Router /compliance/alerts [post]
func (s *ComplianceService) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var alert models.ComplianceAlert

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&alert); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&alert); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to create alert", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	if err := createAlertTx(tx, &alert); err != nil {
		log.Printf("[COMPLIANCE] Failed to create alert: %v", err)
		SendErrorResponse(w, "Failed to create alert", http.StatusInternalServerError, nil)
		return
	}
	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to create alert", http.StatusInternalServerError, nil)
		return
	}

	alert.CreatedAt = time.Now()
	alert.UpdatedAt = alert.CreatedAt
	log.Printf("[COMPLIANCE] Alert %s created (%s/%s)", alert.AlertID, alert.AlertType, alert.Severity)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(alert)
}

// UpdateAlertStatus moves an alert through its lifecycle
// @Summary Update alert status
// @Description Transition an alert; resolving requires resolution notes
// @Tags compliance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param alertId path string true "Alert ID"
// @Param transition body object{status=string,resolutionNotes=string} true "Target status"
// @Success 200 {object} models.ComplianceAlert
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /compliance/alerts/{alertId}/status [put]
func (s *ComplianceService) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapResolveAlerts)
	if caller == nil {
		return
	}

	alertID := chi.URLParam(r, "alertId")

	var req struct {
		Status          string `json:"status" validate:"required,oneof=pending reviewed escalated resolved"`
		ResolutionNotes string `json:"resolutionNotes" validate:"max=1000"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	a, err := s.fetchAlert(alertID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Alert not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to update alert", http.StatusInternalServerError, nil)
		}
		return
	}

	if !isValidAlertTransition(a.Status, req.Status) {
		SendErrorResponse(w, fmt.Sprintf("invalid transition %s -> %s", a.Status, req.Status),
			http.StatusBadRequest, nil)
		return
	}
	if req.Status == models.AlertStatusResolved && req.ResolutionNotes == "" {
		SendErrorResponse(w, "Resolution notes are required to resolve an alert", http.StatusBadRequest, nil)
		return
	}

	reviewedBy := fmt.Sprintf("%d", caller.ID)
	var resolvedAt *time.Time
	if req.Status == models.AlertStatusResolved {
		now := time.Now()
		resolvedAt = &now
	}

	_, err = s.db.Exec(`
		UPDATE compliance_alerts
		SET status = $1, resolution_notes = NULLIF($2, ''), reviewed_by = $3,
		    resolved_at = $4, updated_at = NOW()
		WHERE alert_id = $5
	`, req.Status, req.ResolutionNotes, reviewedBy, resolvedAt, alertID)
	if err != nil {
		log.Printf("[COMPLIANCE] Failed to update alert %s: %v", alertID, err)
		SendErrorResponse(w, "Failed to update alert", http.StatusInternalServerError, nil)
		return
	}

	s.audit.LogComplianceEvent(a.CustomerID, "ALERT_"+req.Status,
		fmt.Sprintf("alert %s: %s -> %s by user %d", alertID, a.Status, req.Status, caller.ID))

	a.Status = req.Status
	a.ResolutionNotes = req.ResolutionNotes
	a.ReviewedBy = reviewedBy
	a.ResolvedAt = resolvedAt
	a.UpdatedAt = time.Now()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

// GetAMLSettings returns the compliance configuration
// @Summary Get AML settings
// @Tags compliance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AMLSettings
// @Router /compliance/settings [get]
func (s *ComplianceService) GetAMLSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := loadAMLSettings(s.db)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch AML settings", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// UpdateAMLSettings replaces the compliance configuration
// @Summary Update AML settings
// @Tags compliance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param settings body models.AMLSettings true "Settings"
// @Success 200 {object} models.AMLSettings
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /compliance/settings [put]
func (s *ComplianceService) UpdateAMLSettings(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapManageAMLSettings)
	if caller == nil {
		return
	}

	var settings models.AMLSettings

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&settings); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&settings); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	t := settings.RiskThresholds
	if t.Low > t.Medium || t.Medium > t.High {
		SendErrorResponse(w, "Risk thresholds must be ordered low <= medium <= high", http.StatusBadRequest, nil)
		return
	}

	if err := saveAMLSettings(s.db, &settings); err != nil {
		log.Printf("[COMPLIANCE] Failed to save AML settings: %v", err)
		SendErrorResponse(w, "Failed to save AML settings", http.StatusInternalServerError, nil)
		return
	}

	s.audit.LogSettingChange(fmt.Sprintf("%d", caller.ID),
		fmt.Sprintf("thresholds %d/%d/%d, %d sanction lists", t.Low, t.Medium, t.High, len(settings.SanctionLists)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// RescreenCustomer re-runs sanction screening for one customer against
// the currently enabled lists
// @Summary Rescreen customer
// @Tags compliance
// @Produce json
// @Security BearerAuth
// @Param customerId path string true "Customer ID"
// @Success 200 {object} object{customerId=string,status=string,matches=[]models.SanctionListEntry}
// @Failure 404 {object} ErrorResponse
// @Router /compliance/customers/{customerId}/rescreen [post]
func (s *ComplianceService) RescreenCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")

	c, err := fetchCustomer(s.db, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Customer not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch customer", http.StatusInternalServerError, nil)
		}
		return
	}

	settings, err := loadAMLSettings(s.db)
	if err != nil {
		SendErrorResponse(w, "Failed to rescreen customer", http.StatusInternalServerError, nil)
		return
	}
	entries, err := loadSanctionEntries(s.db, settings.SanctionLists)
	if err != nil {
		SendErrorResponse(w, "Failed to rescreen customer", http.StatusInternalServerError, nil)
		return
	}

	screening := ScreenIdentity(c.FullName(), c.Country, entries)

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to rescreen customer", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	// A fresh flag invalidates any earlier false-positive judgement
	status := c.Status
	if screening.Status == models.ScreeningStatusFlagged {
		status = models.CustomerStatusFlagged
	}
	_, err = tx.Exec(`
		UPDATE customers
		SET sanctions_screening_status = $1, sanction_screening_date = NOW(),
		    sanction_false_positive = false, false_positive_basis = NULL,
		    is_whitelisted = false, whitelist_expiry = NULL,
		    status = $2, updated_at = NOW()
		WHERE customer_id = $3
	`, screening.Status, status, customerID)
	if err != nil {
		SendErrorResponse(w, "Failed to rescreen customer", http.StatusInternalServerError, nil)
		return
	}

	if screening.Status == models.ScreeningStatusFlagged {
		if err := createAlertTx(tx, &models.ComplianceAlert{
			AlertType:  models.AlertTypeSanctionMatch,
			Severity:   models.AlertSeverityCritical,
			CustomerID: customerID,
			Description: fmt.Sprintf("Rescreen matched %d list entr(ies) for %s",
				len(screening.Matches), c.FullName()),
		}); err != nil {
			SendErrorResponse(w, "Failed to rescreen customer", http.StatusInternalServerError, nil)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to rescreen customer", http.StatusInternalServerError, nil)
		return
	}

	s.audit.LogComplianceEvent(customerID, "CUSTOMER_RESCREENED", "result: "+screening.Status)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"customerId": customerID,
		"status":     screening.Status,
		"matches":    screening.Matches,
	})
}

// MarkFalsePositive records a false-positive judgement for a flagged
// customer, optionally whitelisting them until an expiry date
// @Summary Mark screening false positive
// @Tags compliance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param customerId path string true "Customer ID"
// @Param judgement body object{basis=string,whitelist=bool,whitelistExpiry=string} true "Judgement"
// @Success 200 {object} models.Customer
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /compliance/customers/{customerId}/false-positive [post]
func (s *ComplianceService) MarkFalsePositive(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapResolveAlerts)
	if caller == nil {
		return
	}

	customerID := chi.URLParam(r, "customerId")

	var req struct {
		Basis           string     `json:"basis" validate:"required,min=10,max=1000"`
		Whitelist       bool       `json:"whitelist"`
		WhitelistExpiry *time.Time `json:"whitelistExpiry"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if req.WhitelistExpiry != nil && !req.WhitelistExpiry.After(time.Now()) {
		SendErrorResponse(w, "Whitelist expiry must be in the future", http.StatusBadRequest, nil)
		return
	}

	c, err := fetchCustomer(s.db, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Customer not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch customer", http.StatusInternalServerError, nil)
		}
		return
	}
	if c.SanctionsScreeningStatus != models.ScreeningStatusFlagged {
		SendErrorResponse(w, "Customer is not flagged by screening", http.StatusBadRequest, nil)
		return
	}

	status := models.CustomerStatusActive
	if !req.Whitelist {
		status = c.Status
	}
	_, err = s.db.Exec(`
		UPDATE customers
		SET sanction_false_positive = true, false_positive_basis = $1,
		    is_whitelisted = $2, whitelist_expiry = $3,
		    status = $4, updated_at = NOW()
		WHERE customer_id = $5
	`, req.Basis, req.Whitelist, req.WhitelistExpiry, status, customerID)
	if err != nil {
		log.Printf("[COMPLIANCE] Failed to mark false positive for %s: %v", customerID, err)
		SendErrorResponse(w, "Failed to update customer", http.StatusInternalServerError, nil)
		return
	}

	s.audit.LogComplianceEvent(customerID, "FALSE_POSITIVE_MARKED",
		fmt.Sprintf("whitelisted=%t by user %d", req.Whitelist, caller.ID))

	updated, err := fetchCustomer(s.db, customerID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch customer", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (s *ComplianceService) fetchAlert(alertID string) (*models.ComplianceAlert, error) {
	var a models.ComplianceAlert
	err := s.db.QueryRow(`
		SELECT alert_id, alert_type, severity, COALESCE(customer_id, ''), COALESCE(transaction_id, ''),
		       description, status, COALESCE(resolution_notes, ''), COALESCE(reviewed_by, ''),
		       created_at, updated_at, resolved_at
		FROM compliance_alerts WHERE alert_id = $1
	`, alertID).Scan(&a.AlertID, &a.AlertType, &a.Severity, &a.CustomerID, &a.TransactionID,
		&a.Description, &a.Status, &a.ResolutionNotes, &a.ReviewedBy,
		&a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
