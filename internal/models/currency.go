package models

import (
	"time"
)

// Currency represents an exchangeable currency and its current rates
type Currency struct {
	ID             int       `json:"id" db:"id"`
	Code           string    `json:"code" db:"code" validate:"required,len=3,uppercase"`
	Name           string    `json:"name" db:"name" validate:"required"`
	Symbol         string    `json:"symbol" db:"symbol"`
	Country        string    `json:"country" db:"country"`
	FlagURL        string    `json:"flagUrl" db:"flag_url"`
	MarketRate     float64   `json:"marketRate" db:"market_rate"`
	BuyRate        float64   `json:"buyRate" db:"buy_rate"`
	SellRate       float64   `json:"sellRate" db:"sell_rate"`
	ManualRate     bool      `json:"manualRate" db:"manual_rate"`
	ManualBuyRate  bool      `json:"manualBuyRate" db:"manual_buy_rate"`
	ManualSellRate bool      `json:"manualSellRate" db:"manual_sell_rate"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	LastUpdated    time.Time `json:"lastUpdated" db:"last_updated"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Denomination represents a note or coin of a currency
type Denomination struct {
	ID           int     `json:"id" db:"id"`
	CurrencyCode string  `json:"currencyCode" db:"currency_code" validate:"required,len=3"`
	Value        float64 `json:"value" db:"value" validate:"required,gt=0"`
	IsCoin       bool    `json:"isCoin" db:"is_coin"`
	ImageURL     string  `json:"imageUrl" db:"image_url"`
}

// RateRefreshResult reports the outcome of a bulk market-rate refresh.
// Partial failure is tolerated; failed currencies are listed per entry.
type RateRefreshResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}
