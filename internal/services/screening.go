package services

import (
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/yapcx/backoffice/internal/models"
)

// ScreeningResult is the outcome of running a customer's identity
// against the enabled sanction lists
type ScreeningResult struct {
	Status  string                     `json:"status"`
	Matches []models.SanctionListEntry `json:"matches,omitempty"`
}

// ScreenIdentity compares an identity name against sanction list entries.
// No entries available means the screen could not complete: the status
// stays pending and the caller reports it to the compliance queue for
// manual resolution.
func ScreenIdentity(fullName, country string, entries []models.SanctionListEntry) ScreeningResult {
	if len(entries) == 0 {
		return ScreeningResult{Status: models.ScreeningStatusPending}
	}

	var matches []models.SanctionListEntry
	for _, entry := range entries {
		if !nameMatches(fullName, entry.FullName) {
			continue
		}
		if entry.Country != "" && country != "" && !strings.EqualFold(entry.Country, country) {
			continue
		}
		matches = append(matches, entry)
	}

	if len(matches) > 0 {
		return ScreeningResult{Status: models.ScreeningStatusFlagged, Matches: matches}
	}
	return ScreeningResult{Status: models.ScreeningStatusClear}
}

// nameMatches checks whether every token of the listed name appears in
// the candidate name, ignoring case, punctuation and token order
func nameMatches(candidate, listed string) bool {
	listedTokens := normalizeName(listed)
	if len(listedTokens) == 0 {
		return false
	}
	candidateTokens := map[string]bool{}
	for _, t := range normalizeName(candidate) {
		candidateTokens[t] = true
	}
	for _, t := range listedTokens {
		if !candidateTokens[t] {
			return false
		}
	}
	return true
}

func normalizeName(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '-', '\'':
			return ' '
		}
		return r
	}, strings.ToLower(s))
	return strings.Fields(cleaned)
}

// IsBlockedBySanctions reports whether a customer's screening status
// hard-stops new transactions. A flagged customer judged a false
// positive and whitelisted is not blocked until the whitelist expires.
func IsBlockedBySanctions(c *models.Customer, now time.Time) bool {
	if c.SanctionsScreeningStatus != models.ScreeningStatusFlagged {
		return false
	}
	if c.SanctionFalsePositive && c.IsWhitelisted {
		if c.WhitelistExpiry == nil || c.WhitelistExpiry.After(now) {
			return false
		}
	}
	return true
}

// loadSanctionEntries fetches the entries of the enabled lists
func loadSanctionEntries(db *sql.DB, enabledLists []string) ([]models.SanctionListEntry, error) {
	if len(enabledLists) == 0 {
		return nil, nil
	}

	rows, err := db.Query(`
		SELECT id, list_name, full_name, COALESCE(country, '')
		FROM sanction_list_entries
		WHERE list_name = ANY($1)
	`, pq.Array(enabledLists))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SanctionListEntry
	for rows.Next() {
		var e models.SanctionListEntry
		if err := rows.Scan(&e.ID, &e.ListName, &e.FullName, &e.Country); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
