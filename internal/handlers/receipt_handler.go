package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"

	"github.com/yapcx/backoffice/internal/services"
)

type ReceiptHandler struct {
	service   *services.ReceiptService
	validator *services.ValidationHelper
}

func NewReceiptHandler(service *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateReceipt issues a QR receipt for a completed deal
// @Summary Generate receipt
// @Description Issue a QR verification receipt for a completed transaction
// @Tags receipts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{transactionId=string} true "Receipt request"
// @Success 200 {object} object{code=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /receipts/generate [post]
func (h *ReceiptHandler) GenerateReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transactionId" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	code, qrImage, err := h.service.GenerateReceipt(r.Context(), req.TransactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
			return
		}
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"code":    code,
		"qrImage": qrImage,
	})
}

// VerifyReceipt resolves a scanned receipt code
// @Summary Verify receipt
// @Description Resolve a scanned receipt code to the deal it was issued for
// @Tags receipts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{code=string} true "Verification request"
// @Success 200 {object} object{data=object}
// @Failure 400 {object} services.ErrorResponse
// @Router /receipts/verify [post]
func (h *ReceiptHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.VerifyReceipt(r.Context(), req.Code)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    result,
	})
}
