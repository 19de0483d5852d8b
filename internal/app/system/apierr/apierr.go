// Package apierr writes JSON API responses with stable error codes.
//
// Every failed request resolves to {code, message} plus an HTTP status; the
// codes are part of the API contract and map one-to-one onto the store
// layer's sentinel errors.
package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Stable error codes returned to clients.
const (
	CodeBadRequest           = "bad_request"
	CodeEmailValidation      = "email_validation"
	CodePasswordLength       = "password_length"
	CodeEmailDuplication     = "email_duplication"
	CodePhoneValidation      = "phone_validation"
	CodeNotFound             = "document_not_found"
	CodePasswordVerification = "password_verification"
	CodeAlreadyAuthenticated = "already_authenticated"
	CodeDatabaseError        = "database_error"
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeRateLimited          = "rate_limited"
	CodeResetCodeInvalid     = "reset_code_invalid"
	CodeResetCodeExpired     = "reset_code_expired"
)

// Response is the JSON error body.
type Response struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Write sends a JSON error response.
func Write(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Code: code, Message: message})
}

// WriteValidation sends a bad_request response carrying per-field detail
// extracted from validator errors.
func WriteValidation(w http.ResponseWriter, err error) {
	resp := Response{Code: CodeBadRequest, Message: "validation failed"}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		resp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Details[fe.Field()] = fe.Tag()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON sends a success payload.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
