package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/yapcx/backoffice/internal/models"
)

func expectBalanceLock(mock sqlmock.Sqlmock, tillID, currency string, balance float64) {
	mock.ExpectExec("INSERT INTO till_balances").
		WithArgs(tillID, currency).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT balance FROM till_balances").
		WithArgs(tillID, currency).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(balance))
}

func expectTillExists(mock sqlmock.Sqlmock, tillID string, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM tills`).
		WithArgs(tillID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func tillMovementRequest(tillID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/tills/"+tillID+"/movements", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tillId", tillID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestTillService_transferTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTillService(db, nil)

	t.Run("successful multi-currency transfer", func(t *testing.T) {
		mock.ExpectBegin()
		expectTillExists(mock, "01", true)
		expectTillExists(mock, "02", true)

		// Locks run in sorted currency order, source till first
		expectBalanceLock(mock, "01", "EUR", 1000)
		expectBalanceLock(mock, "02", "EUR", 100)
		expectBalanceLock(mock, "01", "USD", 1000)
		expectBalanceLock(mock, "02", "USD", 100)

		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(800), "01", "EUR").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(300), "02", "EUR").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxCashOut, float64(-200), "EUR", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("02", models.TillTxCashIn, float64(200), "EUR", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))

		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(500), "01", "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(600), "02", "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxCashOut, float64(-500), "USD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("02", models.TillTxCashIn, float64(500), "USD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(4, 1))

		mock.ExpectCommit()

		err := service.transferTx("01", "02", map[string]float64{"USD": 500, "EUR": 200}, "float top-up")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one short currency rolls the whole transfer back", func(t *testing.T) {
		mock.ExpectBegin()
		expectTillExists(mock, "01", true)
		expectTillExists(mock, "02", true)

		// EUR is covered, USD is short; nothing may be applied
		expectBalanceLock(mock, "01", "EUR", 1000)
		expectBalanceLock(mock, "02", "EUR", 100)
		expectBalanceLock(mock, "01", "USD", 400)
		expectBalanceLock(mock, "02", "USD", 100)

		mock.ExpectRollback()

		err := service.transferTx("01", "02", map[string]float64{"USD": 500, "EUR": 200}, "")
		assert.Error(t, err)
		assert.ErrorIs(t, err, errInsufficientTillBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown destination till fails before any provisioning", func(t *testing.T) {
		mock.ExpectBegin()
		expectTillExists(mock, "01", true)
		expectTillExists(mock, "ZZ", false)
		mock.ExpectRollback()

		err := service.transferTx("01", "ZZ", map[string]float64{"USD": 500}, "")
		assert.Error(t, err)
		assert.ErrorIs(t, err, errTillNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTillService_CreateTill(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTillService(db, nil)

	t.Run("provisions one zero balance per active currency", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO tills").
			WithArgs("01", "Main Counter", false, false, true).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT code FROM currencies").
			WillReturnRows(sqlmock.NewRows([]string{"code"}).
				AddRow("USD").AddRow("EUR").AddRow("CAD"))
		for _, code := range []string{"USD", "EUR", "CAD"} {
			mock.ExpectExec("INSERT INTO till_balances").
				WithArgs("01", code).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tills",
			strings.NewReader(`{"tillId":"01","tillName":"Main Counter"}`))
		service.CreateTill(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Balances []models.TillBalance `json:"balances"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Balances, 3)
		for _, b := range resp.Balances {
			assert.Equal(t, float64(0), b.Balance)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTillService_RecordCashMovement(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTillService(db, nil)

	t.Run("adjustment to zero empties the till currency", func(t *testing.T) {
		mock.ExpectBegin()
		expectTillExists(mock, "01", true)
		expectBalanceLock(mock, "01", "USD", 250)
		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(0), "01", "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxAdjustment, float64(-250), "USD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		w := httptest.NewRecorder()
		service.RecordCashMovement(w, tillMovementRequest("01",
			`{"type":"adjustment","amount":0,"currency":"USD"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		var balance models.TillBalance
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
		assert.Equal(t, float64(0), balance.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero-amount cash_in is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.RecordCashMovement(w, tillMovementRequest("01",
			`{"type":"cash_in","amount":0,"currency":"USD"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("movement on an unknown till is a 404", func(t *testing.T) {
		mock.ExpectBegin()
		expectTillExists(mock, "ZZ", false)
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		service.RecordCashMovement(w, tillMovementRequest("ZZ",
			`{"type":"cash_in","amount":100,"currency":"USD"}`))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTillService_applyExchangeToTill(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTillService(db, nil)

	t.Run("buy credits the incoming currency and debits the payout", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		txn := &models.ExchangeTransaction{
			TransactionID: "TXN-1",
			Type:          models.TransactionTypeBuy,
			FromCurrency:  "USD",
			FromAmount:    100,
			ToCurrency:    "CAD",
			ToAmount:      130,
		}

		// Locks run in currency order: CAD before USD
		expectBalanceLock(mock, "01", "CAD", 500)
		expectBalanceLock(mock, "01", "USD", 200)

		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(300), "01", "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE till_balances SET balance").
			WithArgs(float64(370), "01", "CAD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxCurrencyBuy, float64(100), "USD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO till_transactions").
			WithArgs("01", models.TillTxCurrencyBuy, float64(-130), "CAD", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))

		err := service.applyExchangeToTill(tx, "01", txn)
		assert.NoError(t, err)
	})

	t.Run("insufficient payout balance fails without mutation", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		txn := &models.ExchangeTransaction{
			TransactionID: "TXN-2",
			Type:          models.TransactionTypeBuy,
			FromCurrency:  "USD",
			FromAmount:    100,
			ToCurrency:    "CAD",
			ToAmount:      130,
		}

		expectBalanceLock(mock, "01", "CAD", 50)
		expectBalanceLock(mock, "01", "USD", 200)

		err := service.applyExchangeToTill(tx, "01", txn)
		assert.Error(t, err)
		assert.ErrorIs(t, err, errInsufficientTillBalance)
	})
}
