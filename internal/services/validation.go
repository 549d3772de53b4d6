package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error     string            `json:"error"`             // Error message
	Kind      ErrorKind         `json:"kind,omitempty"`    // Machine-readable error kind
	Retryable bool              `json:"retryable"`         // Whether the same request may be re-issued
	Details   map[string]string `json:"details,omitempty"` // Validation details
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

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errors.New("Invalid request body")
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("Request body must only contain a single JSON object")
	}
	return nil
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Error: message}
	if statusCode == http.StatusBadRequest {
		errorResp.Kind = KindInvalidArgument
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	writeJSON(w, statusCode, errorResp)
}

// SendServiceError maps a service error onto its HTTP status and JSON body.
func SendServiceError(w http.ResponseWriter, err error) {
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		log.Printf("[HTTP] Unclassified error: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "An Internal Error Occurred"})
		return
	}

	message := svcErr.Message
	if svcErr.Retryable() {
		message = svcErr.Message + ", please retry"
	}

	writeJSON(w, svcErr.Kind.HTTPStatus(), ErrorResponse{
		Error:     message,
		Kind:      svcErr.Kind,
		Retryable: svcErr.Retryable(),
	})
}

func SendJSON(w http.ResponseWriter, statusCode int, body any) {
	writeJSON(w, statusCode, body)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
