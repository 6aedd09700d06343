package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yapcx/backoffice/internal/models"
)

func TestScreenIdentity(t *testing.T) {
	entries := []models.SanctionListEntry{
		{ID: 1, ListName: "OFAC_SDN", FullName: "Ivan Petrov", Country: "RU"},
		{ID: 2, ListName: "UN_CONSOLIDATED", FullName: "Acme Trading Ltd."},
	}

	t.Run("clear when no entry matches", func(t *testing.T) {
		result := ScreenIdentity("Jane Doe", "CA", entries)
		assert.Equal(t, models.ScreeningStatusClear, result.Status)
		assert.Empty(t, result.Matches)
	})

	t.Run("flagged on exact match", func(t *testing.T) {
		result := ScreenIdentity("Ivan Petrov", "RU", entries)
		assert.Equal(t, models.ScreeningStatusFlagged, result.Status)
		assert.Len(t, result.Matches, 1)
		assert.Equal(t, 1, result.Matches[0].ID)
	})

	t.Run("matches ignore case, punctuation and token order", func(t *testing.T) {
		result := ScreenIdentity("PETROV, ivan", "RU", entries)
		assert.Equal(t, models.ScreeningStatusFlagged, result.Status)

		result = ScreenIdentity("acme trading ltd", "", entries)
		assert.Equal(t, models.ScreeningStatusFlagged, result.Status)
	})

	t.Run("listed tokens must all appear in the candidate", func(t *testing.T) {
		// "Ivan" alone is not a match for the listed "Ivan Petrov"
		result := ScreenIdentity("Ivan Smith", "RU", entries)
		assert.Equal(t, models.ScreeningStatusClear, result.Status)
	})

	t.Run("country mismatch clears an otherwise matching name", func(t *testing.T) {
		result := ScreenIdentity("Ivan Petrov", "BR", entries)
		assert.Equal(t, models.ScreeningStatusClear, result.Status)
	})

	t.Run("entry without country matches any country", func(t *testing.T) {
		result := ScreenIdentity("Acme Trading Ltd", "US", entries)
		assert.Equal(t, models.ScreeningStatusFlagged, result.Status)
	})

	t.Run("pending when no entries are available", func(t *testing.T) {
		result := ScreenIdentity("Ivan Petrov", "RU", nil)
		assert.Equal(t, models.ScreeningStatusPending, result.Status)
		assert.Empty(t, result.Matches)
	})
}

func TestIsBlockedBySanctions(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	t.Run("clear customer is never blocked", func(t *testing.T) {
		c := &models.Customer{SanctionsScreeningStatus: models.ScreeningStatusClear}
		assert.False(t, IsBlockedBySanctions(c, now))
	})

	t.Run("flagged customer is blocked", func(t *testing.T) {
		c := &models.Customer{SanctionsScreeningStatus: models.ScreeningStatusFlagged}
		assert.True(t, IsBlockedBySanctions(c, now))
	})

	t.Run("false positive alone is not enough", func(t *testing.T) {
		c := &models.Customer{
			SanctionsScreeningStatus: models.ScreeningStatusFlagged,
			SanctionFalsePositive:    true,
		}
		assert.True(t, IsBlockedBySanctions(c, now))
	})

	t.Run("whitelisted false positive is not blocked", func(t *testing.T) {
		c := &models.Customer{
			SanctionsScreeningStatus: models.ScreeningStatusFlagged,
			SanctionFalsePositive:    true,
			IsWhitelisted:            true,
			WhitelistExpiry:          &future,
		}
		assert.False(t, IsBlockedBySanctions(c, now))
	})

	t.Run("whitelist without expiry never lapses", func(t *testing.T) {
		c := &models.Customer{
			SanctionsScreeningStatus: models.ScreeningStatusFlagged,
			SanctionFalsePositive:    true,
			IsWhitelisted:            true,
		}
		assert.False(t, IsBlockedBySanctions(c, now))
	})

	t.Run("expired whitelist blocks again", func(t *testing.T) {
		c := &models.Customer{
			SanctionsScreeningStatus: models.ScreeningStatusFlagged,
			SanctionFalsePositive:    true,
			IsWhitelisted:            true,
			WhitelistExpiry:          &past,
		}
		assert.True(t, IsBlockedBySanctions(c, now))
	})
}
