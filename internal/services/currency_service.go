package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/yapcx/backoffice/internal/audit"
	"github.com/yapcx/backoffice/internal/config"
	"github.com/yapcx/backoffice/internal/models"
)

type CurrencyService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
	audit     *audit.AuditLogger
	rateURL   string
}

func NewCurrencyService(db *sql.DB, redisClient *redis.Client) *CurrencyService {
	return &CurrencyService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
		audit:     audit.NewAuditLogger(),
		rateURL:   config.RateSourceURL(),
	}
}

// CreateCurrency adds a currency to the register
// @Summary Create currency
// @Description Add a currency with its rates to the register
// @Tags currencies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param currency body models.Currency true "Currency data"
// @Success 201 {object} models.Currency
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /currencies [post]
func (s *CurrencyService) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	var cur models.Currency

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cur); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	cur.Code = strings.ToUpper(strings.TrimSpace(cur.Code))
	if err := s.validator.ValidateStruct(&cur); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	cur.IsActive = true
	cur.LastUpdated = time.Now()
	err := s.db.QueryRow(`
		INSERT INTO currencies
		(code, name, symbol, country, flag_url, market_rate, buy_rate, sell_rate,
		 manual_rate, manual_buy_rate, manual_sell_rate, is_active, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id
	`, cur.Code, cur.Name, cur.Symbol, cur.Country, cur.FlagURL,
		cur.MarketRate, cur.BuyRate, cur.SellRate,
		cur.ManualRate, cur.ManualBuyRate, cur.ManualSellRate,
		cur.IsActive, cur.LastUpdated).Scan(&cur.ID)
	if err != nil {
		log.Printf("[CURRENCY] Failed to create currency %s: %v", cur.Code, err)
		SendErrorResponse(w, "Currency code already exists", http.StatusConflict, nil)
		return
	}

	log.Printf("[CURRENCY] Currency created: %s", cur.Code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cur)
}

// ListCurrencies returns all currencies
// @Summary List currencies
// @Tags currencies
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Filter to active currencies"
// @Success 200 {object} object{currencies=[]models.Currency,count=int}
// @Router /currencies [get]
func (s *CurrencyService) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, code, name, symbol, country, flag_url, market_rate, buy_rate, sell_rate,
		       manual_rate, manual_buy_rate, manual_sell_rate, is_active, last_updated, created_at
		FROM currencies
	`
	if r.URL.Query().Get("active") == "true" {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY code"

	rows, err := s.db.Query(query)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch currencies", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	currencies := []models.Currency{}
	for rows.Next() {
		var cur models.Currency
		if err := rows.Scan(&cur.ID, &cur.Code, &cur.Name, &cur.Symbol, &cur.Country, &cur.FlagURL,
			&cur.MarketRate, &cur.BuyRate, &cur.SellRate,
			&cur.ManualRate, &cur.ManualBuyRate, &cur.ManualSellRate,
			&cur.IsActive, &cur.LastUpdated, &cur.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch currencies", http.StatusInternalServerError, nil)
			return
		}
		currencies = append(currencies, cur)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"currencies": currencies,
		"count":      len(currencies),
	})
}

// GetCurrency returns one currency by code
// @Summary Get currency
// @Tags currencies
// @Produce json
// @Security BearerAuth
// @Param code path string true "Currency code"
// @Success 200 {object} models.Currency
// @Failure 404 {object} ErrorResponse
// @Router /currencies/{code} [get]
func (s *CurrencyService) GetCurrency(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	cur, err := s.fetchCurrency(code)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Currency not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch currency", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cur)
}

// UpdateCurrency updates rates and flags for a currency
// @Summary Update currency
// @Description Update a currency's rates; requires rate modification permission
// @Tags currencies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code path string true "Currency code"
// @Param currency body models.Currency true "Currency data"
// @Success 200 {object} models.Currency
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /currencies/{code} [put]
func (s *CurrencyService) UpdateCurrency(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapModifyRates)
	if caller == nil {
		return
	}

	code := strings.ToUpper(chi.URLParam(r, "code"))

	var req struct {
		Name           string  `json:"name"`
		Symbol         string  `json:"symbol"`
		Country        string  `json:"country"`
		FlagURL        string  `json:"flagUrl"`
		MarketRate     float64 `json:"marketRate" validate:"gte=0"`
		BuyRate        float64 `json:"buyRate" validate:"gte=0"`
		SellRate       float64 `json:"sellRate" validate:"gte=0"`
		ManualRate     bool    `json:"manualRate"`
		ManualBuyRate  bool    `json:"manualBuyRate"`
		ManualSellRate bool    `json:"manualSellRate"`
		IsActive       bool    `json:"isActive"`
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

	result, err := s.db.Exec(`
		UPDATE currencies
		SET name = $1, symbol = $2, country = $3, flag_url = $4,
		    market_rate = $5, buy_rate = $6, sell_rate = $7,
		    manual_rate = $8, manual_buy_rate = $9, manual_sell_rate = $10,
		    is_active = $11, last_updated = NOW()
		WHERE code = $12
	`, req.Name, req.Symbol, req.Country, req.FlagURL,
		req.MarketRate, req.BuyRate, req.SellRate,
		req.ManualRate, req.ManualBuyRate, req.ManualSellRate,
		req.IsActive, code)
	if err != nil {
		SendErrorResponse(w, "Failed to update currency", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Currency not found", http.StatusNotFound, nil)
		return
	}

	s.invalidateRateCache(r.Context(), code)
	log.Printf("[CURRENCY] Currency %s updated by user %d", code, caller.ID)

	cur, err := s.fetchCurrency(code)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch currency", http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cur)
}

// DeleteCurrency removes a currency that no transaction references
// @Summary Delete currency
// @Tags currencies
// @Produce json
// @Security BearerAuth
// @Param code path string true "Currency code"
// @Success 200 {object} map[string]string
// @Failure 409 {object} ErrorResponse
// @Router /currencies/{code} [delete]
func (s *CurrencyService) DeleteCurrency(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapModifyRates)
	if caller == nil {
		return
	}

	code := strings.ToUpper(chi.URLParam(r, "code"))

	var referenced bool
	err := s.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM transactions WHERE from_currency = $1 OR to_currency = $1
		)
	`, code).Scan(&referenced)
	if err != nil {
		SendErrorResponse(w, "Failed to delete currency", http.StatusInternalServerError, nil)
		return
	}
	if referenced {
		SendErrorResponse(w, "Currency is referenced by transactions", http.StatusConflict, nil)
		return
	}

	result, err := s.db.Exec(`DELETE FROM currencies WHERE code = $1`, code)
	if err != nil {
		SendErrorResponse(w, "Failed to delete currency", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Currency not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[CURRENCY] Currency %s deleted by user %d", code, caller.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Currency deleted"})
}

// RefreshRates pulls fresh market rates and re-derives buy/sell rates
// @Summary Refresh market rates
// @Description Bulk-refresh rates from the external market source; per-currency failure is tolerated
// @Tags currencies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.RateRefreshResult
// @Failure 502 {object} ErrorResponse
// @Router /currencies/refresh-rates [post]
func (s *CurrencyService) RefreshRates(w http.ResponseWriter, r *http.Request) {
	caller := RequireCapability(s.db, w, r, CapModifyRates)
	if caller == nil {
		return
	}

	log.Printf("[RATES] Rate refresh requested by user %d", caller.ID)

	marketRates, err := s.fetchMarketRates()
	if err != nil {
		log.Printf("[RATES] Market source unavailable: %v", err)
		SendErrorResponse(w, "Market rate source unavailable", http.StatusBadGateway, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT code, manual_rate, manual_buy_rate, manual_sell_rate
		FROM currencies WHERE is_active = true
	`)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch currencies", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	type target struct {
		code                             string
		manualRate, manualBuy, manualSell bool
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.code, &t.manualRate, &t.manualBuy, &t.manualSell); err != nil {
			SendErrorResponse(w, "Failed to fetch currencies", http.StatusInternalServerError, nil)
			return
		}
		targets = append(targets, t)
	}

	buyMargin, sellMargin := config.RateMargins()
	result := models.RateRefreshResult{Errors: []string{}}

	for _, t := range targets {
		if t.manualRate {
			continue
		}

		rate, ok := marketRates[t.code]
		if !ok || rate <= 0 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no market rate available", t.code))
			continue
		}

		buyRate := rate * (1 - buyMargin)
		sellRate := rate * (1 + sellMargin)

		query := `UPDATE currencies SET market_rate = $1, last_updated = NOW()`
		args := []any{rate}
		if !t.manualBuy {
			query += fmt.Sprintf(", buy_rate = $%d", len(args)+1)
			args = append(args, buyRate)
		}
		if !t.manualSell {
			query += fmt.Sprintf(", sell_rate = $%d", len(args)+1)
			args = append(args, sellRate)
		}
		query += fmt.Sprintf(" WHERE code = $%d", len(args)+1)
		args = append(args, t.code)

		if _, err := s.db.Exec(query, args...); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", t.code, err))
			continue
		}

		s.cacheRate(r.Context(), t.code, rate)
		result.Updated++
	}

	log.Printf("[RATES] Refresh complete: %d updated, %d failed", result.Updated, result.Failed)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// AddDenomination adds a note or coin to a currency
// @Summary Add denomination
// @Tags currencies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code path string true "Currency code"
// @Param denomination body models.Denomination true "Denomination data"
// @Success 201 {object} models.Denomination
// @Failure 400 {object} ErrorResponse
// @Router /currencies/{code}/denominations [post]
func (s *CurrencyService) AddDenomination(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var d models.Denomination
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&d); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	d.CurrencyCode = code
	if err := s.validator.ValidateStruct(&d); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	err := s.db.QueryRow(`
		INSERT INTO denominations (currency_code, value, is_coin, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, d.CurrencyCode, d.Value, d.IsCoin, d.ImageURL).Scan(&d.ID)
	if err != nil {
		log.Printf("[CURRENCY] Failed to add denomination for %s: %v", code, err)
		SendErrorResponse(w, "Failed to add denomination", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(d)
}

// ListDenominations lists the notes and coins of a currency
// @Summary List denominations
// @Tags currencies
// @Produce json
// @Security BearerAuth
// @Param code path string true "Currency code"
// @Success 200 {object} object{denominations=[]models.Denomination}
// @Router /currencies/{code}/denominations [get]
func (s *CurrencyService) ListDenominations(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	rows, err := s.db.Query(`
		SELECT id, currency_code, value, is_coin, image_url
		FROM denominations WHERE currency_code = $1 ORDER BY value DESC
	`, code)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch denominations", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	denominations := []models.Denomination{}
	for rows.Next() {
		var d models.Denomination
		if err := rows.Scan(&d.ID, &d.CurrencyCode, &d.Value, &d.IsCoin, &d.ImageURL); err != nil {
			SendErrorResponse(w, "Failed to fetch denominations", http.StatusInternalServerError, nil)
			return
		}
		denominations = append(denominations, d)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"denominations": denominations})
}

// DeleteDenomination removes one denomination
// @Summary Delete denomination
// @Tags currencies
// @Produce json
// @Security BearerAuth
// @Param code path string true "Currency code"
// @Param denominationId path int true "Denomination ID"
// @Success 200 {object} map[string]string
// @Router /currencies/{code}/denominations/{denominationId} [delete]
func (s *CurrencyService) DeleteDenomination(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "denominationId")

	result, err := s.db.Exec(`DELETE FROM denominations WHERE id = $1`, id)
	if err != nil {
		SendErrorResponse(w, "Failed to delete denomination", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendErrorResponse(w, "Denomination not found", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Denomination deleted"})
}

func (s *CurrencyService) fetchCurrency(code string) (*models.Currency, error) {
	var cur models.Currency
	err := s.db.QueryRow(`
		SELECT id, code, name, symbol, country, flag_url, market_rate, buy_rate, sell_rate,
		       manual_rate, manual_buy_rate, manual_sell_rate, is_active, last_updated, created_at
		FROM currencies WHERE code = $1
	`, code).Scan(&cur.ID, &cur.Code, &cur.Name, &cur.Symbol, &cur.Country, &cur.FlagURL,
		&cur.MarketRate, &cur.BuyRate, &cur.SellRate,
		&cur.ManualRate, &cur.ManualBuyRate, &cur.ManualSellRate,
		&cur.IsActive, &cur.LastUpdated, &cur.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cur, nil
}

func (s *CurrencyService) fetchMarketRates() (map[string]float64, error) {
	resp, err := http.Get(s.rateURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market rate source returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("market rate source returned no rates")
	}
	return payload.Rates, nil
}

func (s *CurrencyService) cacheRate(ctx context.Context, code string, rate float64) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf("rate:%s", code)
	if err := s.redis.Set(ctx, key, rate, time.Hour).Err(); err != nil {
		log.Printf("[RATES] Failed to cache rate for %s: %v", code, err)
	}
}

func (s *CurrencyService) invalidateRateCache(ctx context.Context, code string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, fmt.Sprintf("rate:%s", code))
}
