package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yapcx/backoffice/internal/audit"
	"github.com/yapcx/backoffice/internal/models"
)

type CustomerService struct {
	db        *sql.DB
	validator *ValidationHelper
	audit     *audit.AuditLogger
}

func NewCustomerService(db *sql.DB) *CustomerService {
	return &CustomerService{
		db:        db,
		validator: NewValidationHelper(),
		audit:     audit.NewAuditLogger(),
	}
}

// CreateCustomer registers a customer and runs sanction screening
// @Summary Create customer
// @Description Register a customer; sanctions screening runs before the record is stored
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param customer body models.Customer true "Customer data"
// @Success 201 {object} models.Customer
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /customers [post]
func (s *CustomerService) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c models.Customer

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&c); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&c); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := validateCustomerIdentity(&c); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	c.CustomerID = fmt.Sprintf("CUST-%s", uuid.New().String())
	c.Status = models.CustomerStatusActive
	if c.RiskLevel == "" {
		c.RiskLevel = "low"
	}
	if c.AMLStatus == "" {
		c.AMLStatus = "unverified"
	}

	// Screen before storing so the screening status is never unset
	settings, err := loadAMLSettings(s.db)
	if err != nil {
		log.Printf("[CUSTOMER] Failed to load AML settings: %v", err)
		SendErrorResponse(w, "Failed to create customer", http.StatusInternalServerError, nil)
		return
	}

	entries, err := loadSanctionEntries(s.db, settings.SanctionLists)
	if err != nil {
		log.Printf("[CUSTOMER] Failed to load sanction entries: %v", err)
		SendErrorResponse(w, "Failed to create customer", http.StatusInternalServerError, nil)
		return
	}

	screening := ScreenIdentity(c.FullName(), c.Country, entries)
	now := time.Now()
	c.SanctionsScreeningStatus = screening.Status
	c.SanctionScreeningDate = &now
	if screening.Status == models.ScreeningStatusFlagged {
		c.Status = models.CustomerStatusFlagged
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to create customer", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO customers
		(customer_id, type, first_name, last_name, business_name, date_of_birth,
		 incorporation_number, email, phone, address, city, country,
		 status, risk_level, risk_score, aml_status,
		 sanctions_screening_status, sanction_screening_date,
		 is_pep, is_suspicious, is_whitelisted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW())
	`, c.CustomerID, c.Type, c.FirstName, c.LastName, c.BusinessName, c.DateOfBirth,
		c.IncorporationNumber, strings.ToLower(c.Email), c.Phone, c.Address, c.City, c.Country,
		c.Status, c.RiskLevel, c.RiskScore, c.AMLStatus,
		c.SanctionsScreeningStatus, c.SanctionScreeningDate,
		c.IsPEP, c.IsSuspicious, c.IsWhitelisted)
	if err != nil {
		log.Printf("[CUSTOMER] Failed to create customer: %v", err)
		SendErrorResponse(w, "Customer email already exists", http.StatusConflict, nil)
		return
	}

	// Flagged and inconclusive screens both land in the compliance queue
	switch screening.Status {
	case models.ScreeningStatusFlagged:
		if err := createAlertTx(tx, &models.ComplianceAlert{
			AlertType:  models.AlertTypeSanctionMatch,
			Severity:   models.AlertSeverityCritical,
			CustomerID: c.CustomerID,
			Description: fmt.Sprintf("Sanction screening matched %d list entr(ies) for %s",
				len(screening.Matches), c.FullName()),
		}); err != nil {
			SendErrorResponse(w, "Failed to create customer", http.StatusInternalServerError, nil)
			return
		}
	case models.ScreeningStatusPending:
		if err := createAlertTx(tx, &models.ComplianceAlert{
			AlertType:   models.AlertTypeSuspiciousActivity,
			Severity:    models.AlertSeverityMedium,
			CustomerID:  c.CustomerID,
			Description: "Sanction screening could not complete; manual review required",
		}); err != nil {
			SendErrorResponse(w, "Failed to create customer", http.StatusInternalServerError, nil)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[CUSTOMER] Failed to commit customer creation: %v", err)
		SendErrorResponse(w, "Failed to create customer", http.StatusInternalServerError, nil)
		return
	}

	s.audit.LogComplianceEvent(c.CustomerID, "CUSTOMER_SCREENED", screening.Status)
	log.Printf("[CUSTOMER] Customer %s created, screening status: %s", c.CustomerID, screening.Status)

	c.CreatedAt = now
	c.UpdatedAt = now
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

// ListCustomers returns customers with optional filters
// @Summary List customers
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param riskLevel query string false "Filter by risk level"
// @Param screeningStatus query string false "Filter by screening status"
// @Success 200 {object} object{customers=[]models.Customer,count=int}
// @Router /customers [get]
func (s *CustomerService) ListCustomers(w http.ResponseWriter, r *http.Request) {
	var conditions []string
	var args []any
	argIndex := 1

	for param, column := range map[string]string{
		"status":          "status",
		"riskLevel":       "risk_level",
		"screeningStatus": "sanctions_screening_status",
	} {
		if v := r.URL.Query().Get(param); v != "" {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
			args = append(args, v)
			argIndex++
		}
	}

	query := customerSelectColumns + " FROM customers"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch customers", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch customers", http.StatusInternalServerError, nil)
			return
		}
		customers = append(customers, *c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"customers": customers,
		"count":     len(customers),
	})
}

// GetCustomer returns one customer
// @Summary Get customer
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param customerId path string true "Customer ID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} ErrorResponse
// @Router /customers/{customerId} [get]
func (s *CustomerService) GetCustomer(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// UpdateCustomer updates contact, KYC and status fields.
// Customers are never deleted; suspension is a status change here.
// @Summary Update customer
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param customerId path string true "Customer ID"
// @Param customer body models.Customer true "Customer data"
// @Success 200 {object} models.Customer
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /customers/{customerId} [put]
func (s *CustomerService) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")

	existing, err := fetchCustomer(s.db, customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Customer not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch customer", http.StatusInternalServerError, nil)
		}
		return
	}

	var req struct {
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		BusinessName string `json:"businessName"`
		Email        string `json:"email" validate:"omitempty,email"`
		Phone        string `json:"phone"`
		Address      string `json:"address"`
		City         string `json:"city"`
		Country      string `json:"country"`
		Status       string `json:"status" validate:"omitempty,oneof=active flagged suspended"`
		RiskScore    *int   `json:"riskScore" validate:"omitempty"`
		AMLStatus    string `json:"amlStatus"`
		IsPEP        *bool  `json:"isPEP"`
		IsSuspicious *bool  `json:"isSuspicious"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if req.FirstName != "" {
		existing.FirstName = req.FirstName
	}
	if req.LastName != "" {
		existing.LastName = req.LastName
	}
	if req.BusinessName != "" {
		existing.BusinessName = req.BusinessName
	}
	if req.Email != "" {
		existing.Email = strings.ToLower(req.Email)
	}
	if req.Phone != "" {
		existing.Phone = req.Phone
	}
	if req.Address != "" {
		existing.Address = req.Address
	}
	if req.City != "" {
		existing.City = req.City
	}
	if req.Country != "" {
		existing.Country = req.Country
	}
	if req.Status != "" {
		existing.Status = req.Status
	}
	if req.AMLStatus != "" {
		existing.AMLStatus = req.AMLStatus
	}
	if req.IsPEP != nil {
		existing.IsPEP = *req.IsPEP
	}
	if req.IsSuspicious != nil {
		existing.IsSuspicious = *req.IsSuspicious
	}

	if req.RiskScore != nil {
		settings, err := loadAMLSettings(s.db)
		if err != nil {
			SendErrorResponse(w, "Failed to update customer", http.StatusInternalServerError, nil)
			return
		}
		existing.RiskScore = *req.RiskScore
		existing.RiskLevel = RiskLevelForScore(*req.RiskScore, settings.RiskThresholds)
	}

	if err := validateCustomerIdentity(existing); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	_, err = s.db.Exec(`
		UPDATE customers
		SET first_name = $1, last_name = $2, business_name = $3, email = $4, phone = $5,
		    address = $6, city = $7, country = $8, status = $9,
		    risk_level = $10, risk_score = $11, aml_status = $12,
		    is_pep = $13, is_suspicious = $14, updated_at = NOW()
		WHERE customer_id = $15
	`, existing.FirstName, existing.LastName, existing.BusinessName, existing.Email, existing.Phone,
		existing.Address, existing.City, existing.Country, existing.Status,
		existing.RiskLevel, existing.RiskScore, existing.AMLStatus,
		existing.IsPEP, existing.IsSuspicious, customerID)
	if err != nil {
		log.Printf("[CUSTOMER] Failed to update customer %s: %v", customerID, err)
		SendErrorResponse(w, "Failed to update customer", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[CUSTOMER] Customer %s updated", customerID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(existing)
}

// validateCustomerIdentity enforces the type-dependent identity
// invariants and the at-least-one-contact rule
func validateCustomerIdentity(c *models.Customer) error {
	switch c.Type {
	case models.CustomerTypeIndividual:
		if c.FirstName == "" || c.LastName == "" {
			return errors.New("individual customers require first and last name")
		}
	case models.CustomerTypeCorporate:
		if c.BusinessName == "" {
			return errors.New("corporate customers require a business name")
		}
	}
	if c.Phone == "" && c.Email == "" {
		return errors.New("at least one contact method (phone or email) is required")
	}
	return nil
}

const customerSelectColumns = `
	SELECT customer_id, type, first_name, last_name, business_name, date_of_birth,
	       COALESCE(incorporation_number, ''), email, phone, address, city, country,
	       status, risk_level, risk_score, aml_status,
	       sanctions_screening_status, sanction_screening_date,
	       sanction_false_positive, COALESCE(false_positive_basis, ''),
	       is_pep, is_suspicious, is_whitelisted, whitelist_expiry,
	       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.CustomerID, &c.Type, &c.FirstName, &c.LastName, &c.BusinessName, &c.DateOfBirth,
		&c.IncorporationNumber, &c.Email, &c.Phone, &c.Address, &c.City, &c.Country,
		&c.Status, &c.RiskLevel, &c.RiskScore, &c.AMLStatus,
		&c.SanctionsScreeningStatus, &c.SanctionScreeningDate,
		&c.SanctionFalsePositive, &c.FalsePositiveBasis,
		&c.IsPEP, &c.IsSuspicious, &c.IsWhitelisted, &c.WhitelistExpiry,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func fetchCustomer(db *sql.DB, customerID string) (*models.Customer, error) {
	row := db.QueryRow(customerSelectColumns+` FROM customers WHERE customer_id = $1`, customerID)
	return scanCustomer(row)
}
