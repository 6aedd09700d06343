package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestCurrencyService_fetchMarketRates(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("parses the rates payload", func(t *testing.T) {
		source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"rates":{"USD":1.0,"EUR":0.92,"CAD":1.36}}`))
		}))
		defer source.Close()

		service := NewCurrencyService(db, nil)
		service.rateURL = source.URL

		rates, err := service.fetchMarketRates()
		assert.NoError(t, err)
		assert.Len(t, rates, 3)
		assert.Equal(t, 0.92, rates["EUR"])
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer source.Close()

		service := NewCurrencyService(db, nil)
		service.rateURL = source.URL

		_, err := service.fetchMarketRates()
		assert.Error(t, err)
	})

	t.Run("empty rates payload is an error", func(t *testing.T) {
		source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"rates":{}}`))
		}))
		defer source.Close()

		service := NewCurrencyService(db, nil)
		service.rateURL = source.URL

		_, err := service.fetchMarketRates()
		assert.Error(t, err)
	})
}
