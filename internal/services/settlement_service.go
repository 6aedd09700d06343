package services

import (
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/yapcx/backoffice/internal/models"
)

const settlementBIC = "YAPCXBON"

type SettlementService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewSettlementService(db *sql.DB) *SettlementService {
	return &SettlementService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// ConvertTransaction renders a completed deal as a pacs.008 message
// @Summary Convert transaction to ISO20022
// @Description Render a completed exchange deal as a pacs.008 XML message
// @Tags settlement
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /settlement/transactions/{transactionId}/convert [post]
func (s *SettlementService) ConvertTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}
	if txn.Status != models.TransactionStatusCompleted {
		SendErrorResponse(w, "Only completed transactions can be exported", http.StatusConflict, nil)
		return
	}

	pacs008 := s.CreatePacs008(txn)
	xmlData, err := s.ConvertToXML(pacs008)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "converted",
		"messageType": "pacs.008.001.08",
		"xml":         xmlData,
	})
}

// ProcessSettlement acknowledges a completed deal with a pacs.002
// status report and hands it to the settlement channel
// @Summary Process settlement
// @Tags settlement
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} object{status=string,messageType=string}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /settlement/transactions/{transactionId}/settle [post]
func (s *SettlementService) ProcessSettlement(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	txn, err := fetchTransaction(s.db, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}
	if txn.Status != models.TransactionStatusCompleted {
		SendErrorResponse(w, "Only completed transactions can be settled", http.StatusConflict, nil)
		return
	}

	pacs002 := s.CreatePacs002(txn, "ACCP")
	if err := s.SendToSettlement(pacs002); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "settled",
		"messageType": "pacs.002.001.08",
	})
}

// ExportDaily renders every deal completed on a date as pacs.008
// messages for the end-of-day settlement file
// @Summary Export daily settlement file
// @Tags settlement
// @Produce json
// @Security BearerAuth
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} object{date=string,count=int,messages=[]object{transactionId=string,xml=string}}
// @Failure 400 {object} ErrorResponse
// @Router /settlement/export [get]
func (s *SettlementService) ExportDaily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		SendErrorResponse(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest, nil)
		return
	}

	rows, err := s.db.Query(transactionSelectColumns+`
		FROM transactions
		WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2
		ORDER BY completed_at
	`, day, day.AddDate(0, 0, 1))
	if err != nil {
		SendErrorResponse(w, "Failed to export transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	type exportMessage struct {
		TransactionID string `json:"transactionId"`
		XML           string `json:"xml"`
	}
	messages := []exportMessage{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to export transactions", http.StatusInternalServerError, nil)
			return
		}
		xmlData, err := s.ConvertToXML(s.CreatePacs008(txn))
		if err != nil {
			SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
			return
		}
		messages = append(messages, exportMessage{TransactionID: txn.TransactionID, XML: xmlData})
	}

	log.Printf("[SETTLEMENT] Exported %d messages for %s", len(messages), date)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"date":     date,
		"count":    len(messages),
		"messages": messages,
	})
}

func (s *SettlementService) SendToSettlement(doc interface{}) error {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	// TODO: wire to the clearing partner's SFTP drop once credentials land
	log.Printf("[SETTLEMENT] Sending to settlement: %s", string(xmlData))
	return nil
}

// CreatePacs008 builds a pacs.008 FIToFICustomerCreditTransfer for an
// exchange deal. The settled leg is the payout side of the deal.
func (s *SettlementService) CreatePacs008(txn *models.ExchangeTransaction) *pacs_v08.FIToFICustomerCreditTransferV08 {
	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()
	if txn.CompletedAt != nil {
		settlementDate = *txn.CompletedAt
	}

	counterparty := txn.CustomerID
	if counterparty == "" {
		counterparty = "WALK-IN"
	}

	return &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(txn.ToCurrency),
				Value: txn.ToAmount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(txn.TransactionID)}[0],
					EndToEndId: common.Max35Text(txn.TransactionID),
					TxId:       &[]common.Max35Text{common.Max35Text(txn.TransactionID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(txn.ToCurrency),
					Value: txn.ToAmount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(settlementBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(txn.TillID)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(settlementBIC)}[0],
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(counterparty)}[0],
				},
			},
		},
	}
}

// CreatePacs002 builds a pacs.002 payment status report
func (s *SettlementService) CreatePacs002(txn *models.ExchangeTransaction, status string) *pacs_v08.FIToFIPaymentStatusReportV08 {
	msgId := uuid.New().String()
	creDtTm := time.Now()

	return &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(txn.TransactionID)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(txn.TransactionID)}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(txn.TransactionID)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0], // ACCP, RJCT, ACSC, etc.
			},
		},
	}
}

// ConvertToXML converts an ISO20022 document to an XML string
func (s *SettlementService) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
