package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"github.com/yapcx/backoffice/internal/models"
)

// Verification codes stay redeemable for 30 days, matching the paper
// receipt retention window at the counter
const receiptTTL = 30 * 24 * time.Hour

type ReceiptService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewReceiptService(db *sql.DB, redisClient *redis.Client) *ReceiptService {
	return &ReceiptService{
		db:    db,
		redis: redisClient,
	}
}

// GenerateReceipt renders a QR verification code for a completed deal.
// The payload round-trips through Redis so a scan can be checked without
// exposing the transaction row.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, transactionID string) (string, string, error) {
	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		return "", "", err
	}
	if txn.Status != models.TransactionStatusCompleted {
		return "", "", fmt.Errorf("receipts are only issued for completed transactions")
	}

	receiptData := map[string]any{
		"transactionId": txn.TransactionID,
		"type":          txn.Type,
		"fromCurrency":  txn.FromCurrency,
		"fromAmount":    txn.FromAmount,
		"toCurrency":    txn.ToCurrency,
		"toAmount":      txn.ToAmount,
		"exchangeRate":  txn.ExchangeRate,
		"tillId":        txn.TillID,
		"completedAt":   txn.CompletedAt,
		"nonce":         s.generateNonce(),
	}

	jsonData, err := json.Marshal(receiptData)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	if s.redis == nil {
		return "", "", fmt.Errorf("receipt store unavailable")
	}
	key := fmt.Sprintf("receipt:%s", code)
	if err := s.redis.Set(ctx, key, jsonData, receiptTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return code, qrImage, nil
}

// VerifyReceipt resolves a scanned receipt code back to the deal
// summary it was issued for
func (s *ReceiptService) VerifyReceipt(ctx context.Context, code string) (map[string]any, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("receipt store unavailable")
	}

	key := fmt.Sprintf("receipt:%s", code)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired receipt code")
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *ReceiptService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
