package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestReceiptService_VerifyReceipt(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewReceiptService(db, redisClient)

	t.Run("valid code resolves to the deal summary", func(t *testing.T) {
		payload := `{"transactionId":"TXN-1","fromCurrency":"USD","fromAmount":100,"toCurrency":"CAD","toAmount":132}`
		redisMock.ExpectGet("receipt:abc123").SetVal(payload)

		result, err := service.VerifyReceipt(context.Background(), "abc123")
		assert.NoError(t, err)
		assert.Equal(t, "TXN-1", result["transactionId"])
		assert.Equal(t, "USD", result["fromCurrency"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("unknown code is rejected", func(t *testing.T) {
		redisMock.ExpectGet("receipt:expired").RedisNil()

		_, err := service.VerifyReceipt(context.Background(), "expired")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired")
	})

	t.Run("verification does not consume the code", func(t *testing.T) {
		payload := `{"transactionId":"TXN-2"}`
		redisMock.ExpectGet("receipt:keep").SetVal(payload)
		redisMock.ExpectGet("receipt:keep").SetVal(payload)

		_, err := service.VerifyReceipt(context.Background(), "keep")
		assert.NoError(t, err)
		_, err = service.VerifyReceipt(context.Background(), "keep")
		assert.NoError(t, err)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}
