package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/yapcx/backoffice/internal/models"
)

func TestIsValidTransactionTransition(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{models.TransactionStatusPending, models.TransactionStatusProcessing, true},
		{models.TransactionStatusPending, models.TransactionStatusFailed, true},
		{models.TransactionStatusPending, models.TransactionStatusCancelled, true},
		{models.TransactionStatusProcessing, models.TransactionStatusCancelled, true},
		{models.TransactionStatusProcessing, models.TransactionStatusFailed, false},
		{models.TransactionStatusProcessing, models.TransactionStatusPending, false},
		// completion never goes through the status endpoint
		{models.TransactionStatusPending, models.TransactionStatusCompleted, false},
		{models.TransactionStatusProcessing, models.TransactionStatusCompleted, false},
		// terminal states stay terminal
		{models.TransactionStatusCompleted, models.TransactionStatusCancelled, false},
		{models.TransactionStatusCancelled, models.TransactionStatusPending, false},
		{models.TransactionStatusFailed, models.TransactionStatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, isValidTransactionTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func expectActiveCurrency(mock sqlmock.Sqlmock, code string) {
	mock.ExpectQuery("SELECT is_active FROM currencies").
		WithArgs(code).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
}

func TestTransactionService_priceDeal(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, NewTillService(db, nil))

	t.Run("buy uses the incoming currency's buy rate", func(t *testing.T) {
		expectActiveCurrency(mock, "USD")
		expectActiveCurrency(mock, "CAD")
		mock.ExpectQuery("SELECT code, buy_rate, sell_rate FROM currencies").
			WithArgs("USD").
			WillReturnRows(sqlmock.NewRows([]string{"code", "buy_rate", "sell_rate"}).
				AddRow("USD", 1.32, 1.38))

		txn := &models.ExchangeTransaction{
			Type:         models.TransactionTypeBuy,
			FromCurrency: "USD",
			FromAmount:   100,
			ToCurrency:   "CAD",
		}
		rate, toAmount, err := service.priceDeal(txn)
		assert.NoError(t, err)
		assert.Equal(t, 1.32, rate)
		assert.Equal(t, float64(132), toAmount)
	})

	t.Run("sell uses the outgoing currency's sell rate", func(t *testing.T) {
		expectActiveCurrency(mock, "CAD")
		expectActiveCurrency(mock, "USD")
		mock.ExpectQuery("SELECT code, buy_rate, sell_rate FROM currencies").
			WithArgs("USD").
			WillReturnRows(sqlmock.NewRows([]string{"code", "buy_rate", "sell_rate"}).
				AddRow("USD", 1.32, 1.38))

		txn := &models.ExchangeTransaction{
			Type:         models.TransactionTypeSell,
			FromCurrency: "CAD",
			FromAmount:   138,
			ToCurrency:   "USD",
		}
		rate, toAmount, err := service.priceDeal(txn)
		assert.NoError(t, err)
		assert.Equal(t, 1.38, rate)
		assert.Equal(t, float64(100), toAmount)
	})

	t.Run("inactive currency is rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT is_active FROM currencies").
			WithArgs("XXX").
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

		txn := &models.ExchangeTransaction{
			Type:         models.TransactionTypeBuy,
			FromCurrency: "XXX",
			FromAmount:   100,
			ToCurrency:   "CAD",
		}
		_, _, err := service.priceDeal(txn)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not active")
	})

	t.Run("missing rate is rejected", func(t *testing.T) {
		expectActiveCurrency(mock, "USD")
		expectActiveCurrency(mock, "CAD")
		mock.ExpectQuery("SELECT code, buy_rate, sell_rate FROM currencies").
			WithArgs("USD").
			WillReturnRows(sqlmock.NewRows([]string{"code", "buy_rate", "sell_rate"}).
				AddRow("USD", 0, 0))

		txn := &models.ExchangeTransaction{
			Type:         models.TransactionTypeBuy,
			FromCurrency: "USD",
			FromAmount:   100,
			ToCurrency:   "CAD",
		}
		_, _, err := service.priceDeal(txn)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no buy rate")
	})
}

func TestTransactionService_dailyCustomerTotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, NewTillService(db, nil))

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(from_amount\\), 0\\) FROM transactions").
		WithArgs("CUST-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(4200.50))

	total, err := service.dailyCustomerTotal("CUST-1")
	assert.NoError(t, err)
	assert.Equal(t, 4200.50, total)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 132.0, round2(131.999999))
	assert.Equal(t, 0.1, round2(0.10000000001))
	assert.Equal(t, 72.46, round2(100.0/1.38))
}

var transactionRowColumns = []string{
	"transaction_id", "type", "from_currency", "from_amount", "to_currency", "to_amount",
	"exchange_rate", "service_fee", "customer_id", "till_id",
	"status", "requires_aml", "notes", "created_by",
	"created_at", "updated_at", "completed_at",
}

func transactionRow(id, status string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(transactionRowColumns).
		AddRow(id, models.TransactionTypeBuy, "USD", 100.0, "CAD", 132.0,
			1.32, 0.0, "", "", status, false, "", "", createdAt, createdAt, nil)
}

func transactionRequest(method, transactionID, userID, body string) *http.Request {
	req := httptest.NewRequest(method, "/transactions/"+transactionID, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("transactionId", transactionID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = context.WithValue(ctx, "userID", userID)
	}
	return req.WithContext(ctx)
}

func TestTransactionService_CompletedRowsAreImmutable(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, NewTillService(db, nil))

	t.Run("editing a completed deal is rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT transaction_id, type, from_currency").
			WithArgs("TXN-1").
			WillReturnRows(transactionRow("TXN-1", models.TransactionStatusCompleted, time.Now()))

		w := httptest.NewRecorder()
		service.UpdateTransaction(w, transactionRequest(http.MethodPut, "TXN-1", "", `{"fromAmount":200}`))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleting a completed deal is rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT transaction_id, type, from_currency").
			WithArgs("TXN-1").
			WillReturnRows(transactionRow("TXN-1", models.TransactionStatusCompleted, time.Now()))

		w := httptest.NewRecorder()
		service.DeleteTransaction(w, transactionRequest(http.MethodDelete, "TXN-1", "", ""))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_CompleteTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewTransactionService(db, NewTillService(db, redisClient))

	session := `{"tillId":"01","userId":"42"}`

	t.Run("completion stamps completedAt after creation", func(t *testing.T) {
		createdAt := time.Now().Add(-time.Hour)

		redisMock.ExpectGet("till_session:42").SetVal(session)
		// No settings row stored yet; configuration defaults apply
		mock.ExpectQuery("SELECT sanction_lists").WillReturnError(sql.ErrNoRows)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT transaction_id, type, from_currency").
			WithArgs("TXN-1").
			WillReturnRows(transactionRow("TXN-1", models.TransactionStatusPending, createdAt))
		mock.ExpectQuery("SELECT 1 FROM compliance_alerts").
			WithArgs("TXN-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		expectBalanceLock(mock, "01", "CAD", 500)
		expectBalanceLock(mock, "01", "USD", 200)
		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(300), "01", "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(368), "01", "CAD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxCurrencyBuy, float64(100), "USD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxCurrencyBuy, float64(-132), "CAD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))

		mock.ExpectExec("UPDATE transactions").
			WithArgs("01", sqlmock.AnyArg(), "TXN-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := httptest.NewRecorder()
		service.CompleteTransaction(w, transactionRequest(http.MethodPost, "TXN-1", "42", ""))

		assert.Equal(t, http.StatusOK, w.Code)
		var txn models.ExchangeTransaction
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &txn))
		assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
		assert.Equal(t, "01", txn.TillID)
		assert.NotNil(t, txn.CompletedAt)
		assert.False(t, txn.CompletedAt.Before(txn.CreatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unresolved alert holds completion when autoHold is on", func(t *testing.T) {
		redisMock.ExpectGet("till_session:42").SetVal(session)
		mock.ExpectQuery("SELECT sanction_lists").WillReturnError(sql.ErrNoRows)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT transaction_id, type, from_currency").
			WithArgs("TXN-2").
			WillReturnRows(transactionRow("TXN-2", models.TransactionStatusPending, time.Now()))
		mock.ExpectQuery("SELECT 1 FROM compliance_alerts").
			WithArgs("TXN-2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		service.CompleteTransaction(w, transactionRequest(http.MethodPost, "TXN-2", "42", ""))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "held pending compliance review")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no open till session is rejected", func(t *testing.T) {
		redisMock.ExpectGet("till_session:42").RedisNil()

		w := httptest.NewRecorder()
		service.CompleteTransaction(w, transactionRequest(http.MethodPost, "TXN-3", "42", ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "open till session")
	})
}
