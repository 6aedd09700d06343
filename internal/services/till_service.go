package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/yapcx/backoffice/internal/audit"
	"github.com/yapcx/backoffice/internal/config"
	"github.com/yapcx/backoffice/internal/models"
)

var (
	errInsufficientTillBalance = errors.New("insufficient till balance")
	errNoActiveTillSession     = errors.New("no active till session")
	errTillNotFound            = errors.New("till not found")
)

type TillService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	audit     *audit.AuditLogger
}

func NewTillService(db *sql.DB, redisClient *redis.Client) *TillService {
	return &TillService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		audit:     audit.NewAuditLogger(),
	}
}

// CreateTill creates a till and provisions a zero balance for every
// active currency in a single database transaction
// @Summary Create till
// @Description Create a till; a zero balance row is provisioned per active currency atomically
// @Tags tills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param till body models.Till true "Till data"
// @Success 201 {object} object{till=models.Till,balances=[]models.TillBalance}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tills [post]
func (s *TillService) CreateTill(w http.ResponseWriter, r *http.Request) {
	var till models.Till

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&till); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	till.TillID = strings.ToUpper(strings.TrimSpace(till.TillID))
	if err := s.validator.ValidateStruct(&till); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	till.IsActive = true

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to create till", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO tills (till_id, till_name, reserve_for_admin, share_till, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, till.TillID, till.TillName, till.ReserveForAdmin, till.ShareTill, till.IsActive)
	if err != nil {
		log.Printf("[TILL] Failed to create till %s: %v", till.TillID, err)
		SendErrorResponse(w, "Till ID already exists", http.StatusConflict, nil)
		return
	}

	rows, err := tx.Query(`SELECT code FROM currencies WHERE is_active = true`)
	if err != nil {
		SendErrorResponse(w, "Failed to create till", http.StatusInternalServerError, nil)
		return
	}

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			SendErrorResponse(w, "Failed to create till", http.StatusInternalServerError, nil)
			return
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		SendErrorResponse(w, "Failed to create till", http.StatusInternalServerError, nil)
		return
	}

	balances := []models.TillBalance{}
	for _, code := range codes {
		if _, err := tx.Exec(`
			INSERT INTO till_balances (till_id, currency, balance, updated_at)
			VALUES ($1, $2, 0, NOW())
		`, till.TillID, code); err != nil {
			log.Printf("[TILL] Failed to provision balance %s/%s: %v", till.TillID, code, err)
			SendErrorResponse(w, "Failed to create till", http.StatusInternalServerError, nil)
			return
		}
		balances = append(balances, models.TillBalance{TillID: till.TillID, Currency: code})
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[TILL] Failed to commit till creation: %v", err)
		SendErrorResponse(w, "Failed to create till", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TILL] Till %s created with %d currency balances", till.TillID, len(balances))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"till":     till,
		"balances": balances,
	})
}

// ListTills returns all tills
// @Summary List tills
// @Tags tills
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{tills=[]models.Till,count=int}
// @Router /tills [get]
func (s *TillService) ListTills(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT till_id, till_name, reserve_for_admin, share_till, is_active, created_at, updated_at
		FROM tills ORDER BY till_id
	`)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch tills", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	tills := []models.Till{}
	for rows.Next() {
		var t models.Till
		if err := rows.Scan(&t.TillID, &t.TillName, &t.ReserveForAdmin, &t.ShareTill,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch tills", http.StatusInternalServerError, nil)
			return
		}
		tills = append(tills, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tills": tills,
		"count": len(tills),
	})
}

// GetTillBalances lists the per-currency balances of one till
// @Summary Get till balances
// @Tags tills
// @Produce json
// @Security BearerAuth
// @Param tillId path string true "Till ID"
// @Success 200 {object} object{tillId=string,balances=[]models.TillBalance}
// @Failure 404 {object} ErrorResponse
// @Router /tills/{tillId}/balances [get]
func (s *TillService) GetTillBalances(w http.ResponseWriter, r *http.Request) {
	tillID := strings.ToUpper(chi.URLParam(r, "tillId"))

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM tills WHERE till_id = $1)`, tillID).Scan(&exists); err != nil {
		SendErrorResponse(w, "Failed to fetch balances", http.StatusInternalServerError, nil)
		return
	}
	if !exists {
		SendErrorResponse(w, "Till not found", http.StatusNotFound, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT till_id, currency, balance, updated_at
		FROM till_balances WHERE till_id = $1 ORDER BY currency
	`, tillID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch balances", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	balances := []models.TillBalance{}
	for rows.Next() {
		var b models.TillBalance
		if err := rows.Scan(&b.TillID, &b.Currency, &b.Balance, &b.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch balances", http.StatusInternalServerError, nil)
			return
		}
		balances = append(balances, b)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tillId":   tillID,
		"balances": balances,
	})
}

// RecordCashMovement applies a cash_in, cash_out or adjustment event
// @Summary Record cash movement
// @Description Apply a cash_in/cash_out/adjustment event to a till balance
// @Tags tills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tillId path string true "Till ID"
// @Param movement body object{type=string,amount=number,currency=string,notes=string} true "Movement"
// @Success 200 {object} models.TillBalance
// @Failure 400 {object} ErrorResponse
// @Router /tills/{tillId}/movements [post]
func (s *TillService) RecordCashMovement(w http.ResponseWriter, r *http.Request) {
	tillID := strings.ToUpper(chi.URLParam(r, "tillId"))

	var req struct {
		Type     string  `json:"type" validate:"required,oneof=cash_in cash_out adjustment"`
		Amount   float64 `json:"amount" validate:"gte=0"`
		Currency string  `json:"currency" validate:"required,len=3"`
		Notes    string  `json:"notes" validate:"max=500"`
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

	// Adjustments may target zero (emptying a till at close); cash
	// movements must move something
	if req.Type != models.TillTxAdjustment && req.Amount <= 0 {
		SendErrorResponse(w, "Amount must be greater than zero", http.StatusBadRequest, nil)
		return
	}

	req.Currency = strings.ToUpper(req.Currency)

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to record movement", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	if err := requireTillRow(tx, tillID); err != nil {
		if errors.Is(err, errTillNotFound) {
			SendErrorResponse(w, "Till not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to record movement", http.StatusInternalServerError, nil)
		}
		return
	}

	balance, err := lockBalanceRow(tx, tillID, req.Currency)
	if err != nil {
		log.Printf("[TILL] Failed to lock balance %s/%s: %v", tillID, req.Currency, err)
		SendErrorResponse(w, "Failed to record movement", http.StatusInternalServerError, nil)
		return
	}

	var newBalance, loggedAmount float64
	switch req.Type {
	case models.TillTxCashIn:
		newBalance = balance + req.Amount
		loggedAmount = req.Amount
	case models.TillTxCashOut:
		if balance < req.Amount {
			s.audit.LogLedgerEvent(tillID, "CASH_OUT", req.Currency, req.Amount, "REJECTED")
			SendErrorResponse(w, errInsufficientTillBalance.Error(), http.StatusBadRequest, nil)
			return
		}
		newBalance = balance - req.Amount
		loggedAmount = -req.Amount
	case models.TillTxAdjustment:
		// The request amount is the target balance; the log keeps the
		// signed delta so the movement history still sums correctly
		newBalance = req.Amount
		loggedAmount = newBalance - balance
	}

	if err := updateBalanceRow(tx, tillID, req.Currency, newBalance); err != nil {
		SendErrorResponse(w, "Failed to record movement", http.StatusInternalServerError, nil)
		return
	}

	if err := appendTillTransaction(tx, tillID, req.Type, loggedAmount, req.Currency, req.Notes); err != nil {
		SendErrorResponse(w, "Failed to record movement", http.StatusInternalServerError, nil)
		return
	}

	if err := tx.Commit(); err != nil {
		SendErrorResponse(w, "Failed to record movement", http.StatusInternalServerError, nil)
		return
	}

	s.audit.LogLedgerEvent(tillID, strings.ToUpper(req.Type), req.Currency, loggedAmount, "SUCCESS")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.TillBalance{
		TillID:    tillID,
		Currency:  req.Currency,
		Balance:   newBalance,
		UpdatedAt: time.Now(),
	})
}

// ListTillTransactions returns the movement log of a till
// @Summary List till movements
// @Tags tills
// @Produce json
// @Security BearerAuth
// @Param tillId path string true "Till ID"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {object} object{transactions=[]models.TillTransaction,count=int}
// @Router /tills/{tillId}/movements [get]
func (s *TillService) ListTillTransactions(w http.ResponseWriter, r *http.Request) {
	tillID := strings.ToUpper(chi.URLParam(r, "tillId"))
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, till_id, type, amount, currency, status, COALESCE(notes, ''), created_at
		FROM till_transactions WHERE till_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, tillID, limit)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch till transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.TillTransaction{}
	for rows.Next() {
		var t models.TillTransaction
		if err := rows.Scan(&t.ID, &t.TillID, &t.Type, &t.Amount, &t.Currency, &t.Status, &t.Notes, &t.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch till transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Transfer moves balances between tills atomically. If any requested
// currency amount exceeds the source balance the whole transfer fails
// with no mutation.
// @Summary Transfer between tills
// @Description Move one or more currency amounts between tills as a single atomic unit
// @Tags tills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transfer body object{fromTillId=string,toTillId=string,amounts=object,notes=string} true "Transfer"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tills/transfer [post]
func (s *TillService) Transfer(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapTransferBetween)
	if caller == nil {
		return
	}

	var req struct {
		FromTillID string             `json:"fromTillId" validate:"required"`
		ToTillID   string             `json:"toTillId" validate:"required"`
		Amounts    map[string]float64 `json:"amounts" validate:"required,min=1"`
		Notes      string             `json:"notes" validate:"max=500"`
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

	req.FromTillID = strings.ToUpper(req.FromTillID)
	req.ToTillID = strings.ToUpper(req.ToTillID)
	if req.FromTillID == req.ToTillID {
		SendErrorResponse(w, "Cannot transfer to the same till", http.StatusBadRequest, nil)
		return
	}
	for code, amount := range req.Amounts {
		if amount <= 0 {
			SendErrorResponse(w, fmt.Sprintf("invalid amount for %s", code), http.StatusBadRequest, nil)
			return
		}
	}

	if err := s.transferTx(req.FromTillID, req.ToTillID, req.Amounts, req.Notes); err != nil {
		if errors.Is(err, errInsufficientTillBalance) {
			SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
		if errors.Is(err, errTillNotFound) {
			SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
			return
		}
		log.Printf("[TILL] Transfer %s -> %s failed: %v", req.FromTillID, req.ToTillID, err)
		SendErrorResponse(w, "Failed to process transfer", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TILL] Transfer %s -> %s completed (%d currencies) by user %d",
		req.FromTillID, req.ToTillID, len(req.Amounts), caller.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"fromTillId": req.FromTillID,
		"toTillId":   req.ToTillID,
		"amounts":    req.Amounts,
	})
}

// transferTx validates every currency before mutating anything, so a
// shortfall in one currency rolls the whole transfer back
func (s *TillService) transferTx(fromTill, toTill string, amounts map[string]float64, notes string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Deterministic currency order keeps lock acquisition consistent
	codes := make([]string, 0, len(amounts))
	for code := range amounts {
		codes = append(codes, strings.ToUpper(code))
	}
	sort.Strings(codes)

	// Lock tills in consistent order to prevent deadlocks
	firstTill, secondTill := fromTill, toTill
	if fromTill > toTill {
		firstTill, secondTill = toTill, fromTill
	}

	for _, tillID := range []string{firstTill, secondTill} {
		if err := requireTillRow(tx, tillID); err != nil {
			return err
		}
	}

	sourceBalances := make(map[string]float64, len(codes))
	destBalances := make(map[string]float64, len(codes))
	for _, code := range codes {
		amount := amounts[code]

		firstBal, err := lockBalanceRow(tx, firstTill, code)
		if err != nil {
			return err
		}
		secondBal, err := lockBalanceRow(tx, secondTill, code)
		if err != nil {
			return err
		}

		srcBal, dstBal := firstBal, secondBal
		if firstTill != fromTill {
			srcBal, dstBal = secondBal, firstBal
		}

		if srcBal < amount {
			s.audit.LogTransfer(fromTill, toTill, code, amount, "REJECTED")
			return fmt.Errorf("%w for %s: have %.2f, need %.2f",
				errInsufficientTillBalance, code, srcBal, amount)
		}
		sourceBalances[code] = srcBal
		destBalances[code] = dstBal
	}

	for _, code := range codes {
		amount := amounts[code]

		if err := updateBalanceRow(tx, fromTill, code, sourceBalances[code]-amount); err != nil {
			return err
		}
		if err := updateBalanceRow(tx, toTill, code, destBalances[code]+amount); err != nil {
			return err
		}

		if err := appendTillTransaction(tx, fromTill, models.TillTxCashOut, -amount, code,
			fmt.Sprintf("transfer to %s: %s", toTill, notes)); err != nil {
			return err
		}
		if err := appendTillTransaction(tx, toTill, models.TillTxCashIn, amount, code,
			fmt.Sprintf("transfer from %s: %s", fromTill, notes)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, code := range codes {
		s.audit.LogTransfer(fromTill, toTill, code, amounts[code], "SUCCESS")
	}
	return nil
}

// OpenSession marks the caller as working the till
// @Summary Open till session
// @Tags tills
// @Produce json
// @Security BearerAuth
// @Param tillId path string true "Till ID"
// @Success 200 {object} models.TillSession
// @Failure 404 {object} ErrorResponse
// @Router /tills/{tillId}/sessions [post]
func (s *TillService) OpenSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	tillID := strings.ToUpper(chi.URLParam(r, "tillId"))

	var isActive bool
	err := s.db.QueryRow(`SELECT is_active FROM tills WHERE till_id = $1`, tillID).Scan(&isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Till not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to open session", http.StatusInternalServerError, nil)
		}
		return
	}
	if !isActive {
		SendErrorResponse(w, "Till is not active", http.StatusBadRequest, nil)
		return
	}

	session := models.TillSession{TillID: tillID, UserID: userID, OpenedAt: time.Now()}
	if s.redis == nil {
		SendErrorResponse(w, "Session store unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	data, _ := json.Marshal(session)
	key := fmt.Sprintf("till_session:%s", userID)
	if err := s.redis.Set(r.Context(), key, data, config.TillSessionTTL()).Err(); err != nil {
		log.Printf("[TILL] Failed to store session for user %s: %v", userID, err)
		SendErrorResponse(w, "Failed to open session", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TILL] Session opened: user %s on till %s", userID, tillID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// CloseSession ends the caller's till session
// @Summary Close till session
// @Tags tills
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /tills/sessions/close [post]
func (s *TillService) CloseSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if s.redis != nil {
		s.redis.Del(r.Context(), fmt.Sprintf("till_session:%s", userID))
	}

	log.Printf("[TILL] Session closed for user %s", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Session closed"})
}

// ActiveSession returns the caller's open till session, if any
func (s *TillService) ActiveSession(ctx context.Context, userID string) (*models.TillSession, error) {
	if s.redis == nil {
		return nil, errNoActiveTillSession
	}

	data, err := s.redis.Get(ctx, fmt.Sprintf("till_session:%s", userID)).Bytes()
	if err == redis.Nil {
		return nil, errNoActiveTillSession
	}
	if err != nil {
		return nil, err
	}

	var session models.TillSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// applyExchangeToTill mutates till balances for a completing exchange
// inside the caller's transaction. Buy: the till gains fromCurrency and
// pays out toCurrency; sell: the converse flows through the same rows.
func (s *TillService) applyExchangeToTill(tx *sql.Tx, tillID string, txn *models.ExchangeTransaction) error {
	gainCurrency, gainAmount := txn.FromCurrency, txn.FromAmount
	payCurrency, payAmount := txn.ToCurrency, txn.ToAmount

	// Lock in currency order, matching the transfer path
	first, second := gainCurrency, payCurrency
	if first > second {
		first, second = second, first
	}
	firstBal, err := lockBalanceRow(tx, tillID, first)
	if err != nil {
		return err
	}
	secondBal, err := lockBalanceRow(tx, tillID, second)
	if err != nil {
		return err
	}

	gainBal, payBal := firstBal, secondBal
	if first != gainCurrency {
		gainBal, payBal = secondBal, firstBal
	}

	if payBal < payAmount {
		return fmt.Errorf("%w for %s: have %.2f, need %.2f",
			errInsufficientTillBalance, payCurrency, payBal, payAmount)
	}

	if err := updateBalanceRow(tx, tillID, gainCurrency, gainBal+gainAmount); err != nil {
		return err
	}
	if err := updateBalanceRow(tx, tillID, payCurrency, payBal-payAmount); err != nil {
		return err
	}

	eventType := models.TillTxCurrencyBuy
	if txn.Type == models.TransactionTypeSell {
		eventType = models.TillTxCurrencySell
	}
	notes := fmt.Sprintf("exchange %s", txn.TransactionID)
	if err := appendTillTransaction(tx, tillID, eventType, gainAmount, gainCurrency, notes); err != nil {
		return err
	}
	if err := appendTillTransaction(tx, tillID, eventType, -payAmount, payCurrency, notes); err != nil {
		return err
	}

	s.audit.LogLedgerEvent(tillID, strings.ToUpper(eventType), payCurrency, payAmount, "SUCCESS")
	return nil
}

// requireTillRow guards lazy balance provisioning: balance rows may
// only be minted for tills that actually exist
func requireTillRow(tx *sql.Tx, tillID string) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM tills WHERE till_id = $1)`, tillID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", errTillNotFound, tillID)
	}
	return nil
}

// lockBalanceRow locks and returns a till's balance for one currency,
// creating the zero row first for currencies added after the till was
// provisioned
func lockBalanceRow(tx *sql.Tx, tillID, currency string) (float64, error) {
	if _, err := tx.Exec(`
		INSERT INTO till_balances (till_id, currency, balance, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (till_id, currency) DO NOTHING
	`, tillID, currency); err != nil {
		return 0, err
	}

	var balance float64
	err := tx.QueryRow(`
		SELECT balance FROM till_balances
		WHERE till_id = $1 AND currency = $2
		FOR UPDATE
	`, tillID, currency).Scan(&balance)
	return balance, err
}

func updateBalanceRow(tx *sql.Tx, tillID, currency string, balance float64) error {
	_, err := tx.Exec(`
		UPDATE till_balances SET balance = $1, updated_at = NOW()
		WHERE till_id = $2 AND currency = $3
	`, balance, tillID, currency)
	return err
}

func appendTillTransaction(tx *sql.Tx, tillID, eventType string, amount float64, currency, notes string) error {
	_, err := tx.Exec(`
		INSERT INTO till_transactions (till_id, type, amount, currency, status, notes, created_at)
		VALUES ($1, $2, $3, $4, 'completed', $5, NOW())
	`, tillID, eventType, amount, currency, notes)
	return err
}
