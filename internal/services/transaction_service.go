package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yapcx/backoffice/internal/audit"
	"github.com/yapcx/backoffice/internal/models"
)

type TransactionService struct {
	db        *sql.DB
	tills     *TillService
	validator *ValidationHelper
	audit     *audit.AuditLogger
}

func NewTransactionService(db *sql.DB, tills *TillService) *TransactionService {
	return &TransactionService{
		db:        db,
		tills:     tills,
		validator: NewValidationHelper(),
		audit:     audit.NewAuditLogger(),
	}
}

// isValidTransactionTransition enforces the deal lifecycle. Completion
// goes through the dedicated endpoint because it mutates the till
// ledger; completed rows never transition again.
func isValidTransactionTransition(from, to string) bool {
	switch from {
	case models.TransactionStatusPending:
		return to == models.TransactionStatusProcessing ||
			to == models.TransactionStatusFailed ||
			to == models.TransactionStatusCancelled
	case models.TransactionStatusProcessing:
		return to == models.TransactionStatusCancelled
	}
	return false
}

// CreateTransaction records a new exchange deal in pending state
// @Summary Create exchange transaction
// @Description Record a currency exchange deal; compliance gates run before the row is created
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transaction body models.ExchangeTransaction true "Transaction data"
// @Success 201 {object} models.ExchangeTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ComplianceBlockResponse
// @Router /transactions [post]
func (s *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)

	var txn models.ExchangeTransaction

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&txn); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&txn); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn.FromCurrency = strings.ToUpper(txn.FromCurrency)
	txn.ToCurrency = strings.ToUpper(txn.ToCurrency)
	if txn.FromCurrency == txn.ToCurrency {
		SendErrorResponse(w, "From and to currency must differ", http.StatusBadRequest, nil)
		return
	}
	if txn.ServiceFee < 0 {
		SendErrorResponse(w, "Service fee cannot be negative", http.StatusBadRequest, nil)
		return
	}

	rate, toAmount, err := s.priceDeal(&txn)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	txn.ExchangeRate = rate
	txn.ToAmount = toAmount

	settings, err := loadAMLSettings(s.db)
	if err != nil {
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	txn.RequiresAML = RequiresAML(txn.FromAmount, settings.DisclosureThreshold)
	if txn.RequiresAML && txn.IsWalkIn() {
		SendErrorResponse(w,
			fmt.Sprintf("Transactions of %.2f and above require a linked customer record", settings.DisclosureThreshold),
			http.StatusBadRequest, nil)
		return
	}

	var limitAlert *models.ComplianceAlert
	if !txn.IsWalkIn() {
		customer, err := fetchCustomer(s.db, txn.CustomerID)
		if err != nil {
			if err == sql.ErrNoRows {
				SendErrorResponse(w, "Customer not found", http.StatusBadRequest, nil)
			} else {
				SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
			}
			return
		}

		if IsBlockedBySanctions(customer, time.Now()) {
			s.audit.LogComplianceEvent(customer.CustomerID, "TRANSACTION_BLOCKED", "sanction screening")
			SendComplianceBlock(w, CodeSanctionBlocked, "Customer is blocked by sanction screening")
			return
		}
		if customer.IsSuspicious {
			s.audit.LogComplianceEvent(customer.CustomerID, "TRANSACTION_BLOCKED", "customer marked suspicious")
			SendComplianceBlock(w, CodeSuspiciousBlocked, "Customer is marked as suspicious")
			return
		}

		dailyTotal, err := s.dailyCustomerTotal(customer.CustomerID)
		if err != nil {
			SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
			return
		}
		check := CheckTransactionLimits(txn.FromAmount, dailyTotal, customer.Type, settings.TransactionLimits)
		if check.Exceeded() {
			limitAlert = &models.ComplianceAlert{
				AlertType:  models.AlertTypeThresholdExceeded,
				Severity:   models.AlertSeverityHigh,
				CustomerID: customer.CustomerID,
				Description: fmt.Sprintf("Amount %.2f %s exceeds limits (txn cap %.2f, daily cap %.2f, day total %.2f)",
					txn.FromAmount, txn.FromCurrency, check.TransactionLimit, check.DailyLimit, dailyTotal),
			}
		}
	}

	txn.TransactionID = "TXN-" + uuid.New().String()
	txn.Status = models.TransactionStatusPending
	txn.CreatedBy = userID

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO transactions
		(transaction_id, type, from_currency, from_amount, to_currency, to_amount,
		 exchange_rate, service_fee, customer_id, status, requires_aml, notes, created_by,
		 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, NULLIF($12, ''), $13, NOW(), NOW())
	`, txn.TransactionID, txn.Type, txn.FromCurrency, txn.FromAmount, txn.ToCurrency, txn.ToAmount,
		txn.ExchangeRate, txn.ServiceFee, txn.CustomerID, txn.Status, txn.RequiresAML, txn.Notes, txn.CreatedBy)
	if err != nil {
		log.Printf("[TXN] Failed to insert transaction: %v", err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	if limitAlert != nil {
		limitAlert.TransactionID = txn.TransactionID
		if err := createAlertTx(tx, limitAlert); err != nil {
			SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	if limitAlert != nil && settings.AutoReport {
		s.audit.LogComplianceEvent(txn.CustomerID, "AUTO_REPORTED", "transaction limit breach")
	}

	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	log.Printf("[TXN] %s created: %s %.2f %s -> %.2f %s", txn.TransactionID, txn.Type,
		txn.FromAmount, txn.FromCurrency, txn.ToAmount, txn.ToCurrency)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(txn)
}

// priceDeal resolves the applicable rate and derives the counter amount.
// Buys price the incoming currency at its buy rate; sells price the
// outgoing currency at its sell rate.
func (s *TransactionService) priceDeal(txn *models.ExchangeTransaction) (rate, toAmount float64, err error) {
	if err := s.requireActiveCurrency(txn.FromCurrency); err != nil {
		return 0, 0, err
	}
	if err := s.requireActiveCurrency(txn.ToCurrency); err != nil {
		return 0, 0, err
	}

	switch txn.Type {
	case models.TransactionTypeBuy:
		c, err := s.currencyRates(txn.FromCurrency)
		if err != nil {
			return 0, 0, err
		}
		if c.BuyRate <= 0 {
			return 0, 0, fmt.Errorf("no buy rate configured for %s", txn.FromCurrency)
		}
		return c.BuyRate, round2(txn.FromAmount * c.BuyRate), nil
	case models.TransactionTypeSell:
		c, err := s.currencyRates(txn.ToCurrency)
		if err != nil {
			return 0, 0, err
		}
		if c.SellRate <= 0 {
			return 0, 0, fmt.Errorf("no sell rate configured for %s", txn.ToCurrency)
		}
		return c.SellRate, round2(txn.FromAmount / c.SellRate), nil
	}
	return 0, 0, errors.New("unknown transaction type")
}

func (s *TransactionService) requireActiveCurrency(code string) error {
	var isActive bool
	err := s.db.QueryRow(`SELECT is_active FROM currencies WHERE code = $1`, code).Scan(&isActive)
	if err == sql.ErrNoRows {
		return fmt.Errorf("unknown currency %s", code)
	}
	if err != nil {
		return err
	}
	if !isActive {
		return fmt.Errorf("currency %s is not active", code)
	}
	return nil
}

func (s *TransactionService) currencyRates(code string) (*models.Currency, error) {
	var c models.Currency
	err := s.db.QueryRow(`
		SELECT code, buy_rate, sell_rate FROM currencies WHERE code = $1
	`, code).Scan(&c.Code, &c.BuyRate, &c.SellRate)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// dailyCustomerTotal sums the customer's live volume since midnight.
// Cancelled and failed deals do not count against the daily cap.
func (s *TransactionService) dailyCustomerTotal(customerID string) (float64, error) {
	var total float64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(from_amount), 0) FROM transactions
		WHERE customer_id = $1
		  AND status NOT IN ('cancelled', 'failed')
		  AND created_at >= CURRENT_DATE
	`, customerID).Scan(&total)
	return total, err
}

// ListTransactions returns deals filtered by status/customer/type
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param customerId query string false "Filter by customer"
// @Param type query string false "Filter by type"
// @Success 200 {object} object{transactions=[]models.ExchangeTransaction,count=int}
// @Router /transactions [get]
func (s *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := transactionSelectColumns + ` FROM transactions`

	filters := map[string]string{
		"status":     r.URL.Query().Get("status"),
		"customerId": r.URL.Query().Get("customerId"),
		"type":       r.URL.Query().Get("type"),
	}
	columns := map[string]string{"status": "status", "customerId": "customer_id", "type": "type"}

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
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.ExchangeTransaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, *t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// GetTransaction returns one deal
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.ExchangeTransaction
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [get]
func (s *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// UpdateTransaction edits a pending deal and reprices it
// @Summary Update transaction
// @Description Edit amounts or notes of a pending deal; any other state is immutable here
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Param update body object{fromAmount=number,serviceFee=number,notes=string} true "Update"
// @Success 200 {object} models.ExchangeTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [put]
func (s *TransactionService) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}
	if txn.Status != models.TransactionStatusPending {
		SendErrorResponse(w, "Only pending transactions can be edited", http.StatusConflict, nil)
		return
	}

	var req struct {
		FromAmount *float64 `json:"fromAmount" validate:"omitempty,gt=0"`
		ServiceFee *float64 `json:"serviceFee" validate:"omitempty,gte=0"`
		Notes      *string  `json:"notes" validate:"omitempty,max=500"`
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

	if req.FromAmount != nil {
		txn.FromAmount = *req.FromAmount
	}
	if req.ServiceFee != nil {
		txn.ServiceFee = *req.ServiceFee
	}
	if req.Notes != nil {
		txn.Notes = *req.Notes
	}

	rate, toAmount, err := s.priceDeal(txn)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	txn.ExchangeRate = rate
	txn.ToAmount = toAmount

	settings, err := loadAMLSettings(s.db)
	if err != nil {
		SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		return
	}
	txn.RequiresAML = RequiresAML(txn.FromAmount, settings.DisclosureThreshold)
	if txn.RequiresAML && txn.IsWalkIn() {
		SendErrorResponse(w,
			fmt.Sprintf("Transactions of %.2f and above require a linked customer record", settings.DisclosureThreshold),
			http.StatusBadRequest, nil)
		return
	}

	_, err = s.db.Exec(`
		UPDATE transactions
		SET from_amount = $1, to_amount = $2, exchange_rate = $3, service_fee = $4,
		    requires_aml = $5, notes = NULLIF($6, ''), updated_at = NOW()
		WHERE transaction_id = $7 AND status = 'pending'
	`, txn.FromAmount, txn.ToAmount, txn.ExchangeRate, txn.ServiceFee,
		txn.RequiresAML, txn.Notes, transactionID)
	if err != nil {
		SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		return
	}

	txn.UpdatedAt = time.Now()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// UpdateTransactionStatus applies a non-completing lifecycle transition
// @Summary Update transaction status
// @Description Move a deal to processing, failed or cancelled; completion has its own endpoint
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Param transition body object{status=string} true "Target status"
// @Success 200 {object} models.ExchangeTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId}/status [put]
func (s *TransactionService) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	var req struct {
		Status string `json:"status" validate:"required,oneof=processing failed cancelled"`
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

	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if !isValidTransactionTransition(txn.Status, req.Status) {
		SendErrorResponse(w, fmt.Sprintf("invalid transition %s -> %s", txn.Status, req.Status),
			http.StatusBadRequest, nil)
		return
	}

	_, err = s.db.Exec(`
		UPDATE transactions SET status = $1, updated_at = NOW() WHERE transaction_id = $2
	`, req.Status, transactionID)
	if err != nil {
		SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TXN] %s: %s -> %s", transactionID, txn.Status, req.Status)
	txn.Status = req.Status
	txn.UpdatedAt = time.Now()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// CompleteTransaction settles a deal against the caller's open till.
// The status change and the till balance mutation commit in one
// database transaction. With autoHold enabled, a deal carrying an
// unresolved compliance alert stays held until the alert resolves.
// @Summary Complete transaction
// @Description Settle a pending or processing deal against the caller's open till session
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.ExchangeTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /transactions/{transactionId}/complete [post]
func (s *TransactionService) CompleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID := chi.URLParam(r, "transactionId")

	session, err := s.tills.ActiveSession(r.Context(), userID)
	if err != nil {
		if errors.Is(err, errNoActiveTillSession) {
			SendErrorResponse(w, "An open till session is required to complete transactions", http.StatusBadRequest, nil)
		} else {
			SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	settings, err := loadAMLSettings(s.db)
	if err != nil {
		SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	row := tx.QueryRow(transactionSelectColumns+` FROM transactions WHERE transaction_id = $1 FOR UPDATE`, transactionID)
	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if txn.Status != models.TransactionStatusPending && txn.Status != models.TransactionStatusProcessing {
		SendErrorResponse(w, fmt.Sprintf("Cannot complete a %s transaction", txn.Status), http.StatusConflict, nil)
		return
	}

	if settings.AutoHold {
		var held bool
		err := tx.QueryRow(`
			SELECT EXISTS(
				SELECT 1 FROM compliance_alerts
				WHERE transaction_id = $1 AND status != 'resolved'
			)
		`, transactionID).Scan(&held)
		if err != nil {
			SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
			return
		}
		if held {
			s.audit.LogComplianceEvent(txn.CustomerID, "COMPLETION_HELD", transactionID)
			SendErrorResponse(w, "Transaction is held pending compliance review", http.StatusConflict, nil)
			return
		}
	}

	if err := s.tills.applyExchangeToTill(tx, session.TillID, txn); err != nil {
		if errors.Is(err, errInsufficientTillBalance) {
			s.audit.LogError(transactionID, session.TillID, err)
			SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
		log.Printf("[TXN] Ledger mutation failed for %s: %v", transactionID, err)
		SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		return
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE transactions
		SET status = 'completed', till_id = $1, completed_at = $2, updated_at = NOW()
		WHERE transaction_id = $3
	`, session.TillID, now, transactionID)
	if err != nil {
		SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to complete transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TXN] %s completed on till %s by user %s", transactionID, session.TillID, userID)
	txn.Status = models.TransactionStatusCompleted
	txn.TillID = session.TillID
	txn.CompletedAt = &now
	txn.UpdatedAt = now
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// DeleteTransaction removes a deal that never settled
// @Summary Delete transaction
// @Description Delete a pending or failed deal; settled deals are permanent ledger records
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /transactions/{transactionId} [delete]
func (s *TransactionService) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	if txn.Status != models.TransactionStatusPending && txn.Status != models.TransactionStatusFailed {
		SendErrorResponse(w, "Only pending or failed transactions can be deleted", http.StatusConflict, nil)
		return
	}

	if _, err := s.db.Exec(`DELETE FROM transactions WHERE transaction_id = $1`, transactionID); err != nil {
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TXN] %s deleted (was %s)", transactionID, txn.Status)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Transaction deleted"})
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

const transactionSelectColumns = `
	SELECT transaction_id, type, from_currency, from_amount, to_currency, to_amount,
	       exchange_rate, service_fee, COALESCE(customer_id, ''), COALESCE(till_id, ''),
	       status, requires_aml, COALESCE(notes, ''), COALESCE(created_by, ''),
	       created_at, updated_at, completed_at`

func scanTransaction(row rowScanner) (*models.ExchangeTransaction, error) {
	var t models.ExchangeTransaction
	err := row.Scan(
		&t.TransactionID, &t.Type, &t.FromCurrency, &t.FromAmount, &t.ToCurrency, &t.ToAmount,
		&t.ExchangeRate, &t.ServiceFee, &t.CustomerID, &t.TillID,
		&t.Status, &t.RequiresAML, &t.Notes, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func fetchTransaction(db *sql.DB, transactionID string) (*models.ExchangeTransaction, error) {
	row := db.QueryRow(transactionSelectColumns+` FROM transactions WHERE transaction_id = $1`, transactionID)
	return scanTransaction(row)
}
