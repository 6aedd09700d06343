package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Compliance block codes. The presentation layer keys off these to show
// a compliance-contact directive instead of a retry prompt.
const (
	CodeSanctionBlocked   = "SANCTION_BLOCKED"
	CodeSuspiciousBlocked = "SUSPICIOUS_BLOCKED"
)

const complianceDirective = "This transaction cannot proceed. Please direct the customer to the compliance office."

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ComplianceBlockResponse carries a distinguished code for hard
// compliance stops
type ComplianceBlockResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Directive string `json:"directive"`
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendComplianceBlock sends a hard compliance stop with its code and the
// compliance-contact directive
func SendComplianceBlock(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)

	json.NewEncoder(w).Encode(ComplianceBlockResponse{
		Error:     message,
		Code:      code,
		Directive: complianceDirective,
	})
}
