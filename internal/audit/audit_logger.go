package audit

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	TillID        string    `json:"till_id,omitempty"`
	CustomerID    string    `json:"customer_id,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

// LogLedgerEvent records a till balance mutation
func (a *AuditLogger) LogLedgerEvent(tillID, eventType, currency string, amount float64, status string) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		TillID:    tillID,
		Currency:  currency,
		Amount:    amount,
		Status:    status,
	})
}

// LogTransfer records a till-to-till movement of one currency
func (a *AuditLogger) LogTransfer(fromTill, toTill, currency string, amount float64, status string) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "TILL_TRANSFER",
		TillID:    fromTill,
		Currency:  currency,
		Amount:    amount,
		Status:    status,
		Details: map[string]string{
			"to_till": toTill,
		},
	})
}

// LogComplianceEvent records a screening decision or alert action
func (a *AuditLogger) LogComplianceEvent(customerID, eventType, details string) {
	a.log(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		CustomerID: customerID,
		Status:     "SUCCESS",
		Details:    map[string]string{"details": details},
	})
}

// LogSettingChange records a mutation of the AML settings row
func (a *AuditLogger) LogSettingChange(userID, details string) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "AML_SETTINGS_CHANGE",
		Status:    "SUCCESS",
		Details: map[string]string{
			"changed_by": userID,
			"details":    details,
		},
	})
}

func (a *AuditLogger) LogError(transactionID, tillID string, err error) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		TransactionID: transactionID,
		TillID:        tillID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
