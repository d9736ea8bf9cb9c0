package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentbook/internal/core"
	"rentbook/internal/invoices"
	"rentbook/internal/log"
	"rentbook/internal/services"
)

type successEnvelope struct {
	Data any `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// validationError carries per-field problems found before the ledger is called.
type validationError struct {
	details map[string]string
}

func (e *validationError) Error() string {
	return "validation failed"
}

func newValidationError(field, message string) *validationError {
	return &validationError{details: map[string]string{field: message}}
}

// tooLargeError is returned when an upload exceeds the configured limit.
type tooLargeError struct {
	limit int64
}

func (e *tooLargeError) Error() string {
	return "invoice exceeds the maximum upload size"
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

// writeError maps err onto a status code and the JSON error envelope.
// Unexpected errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

func classify(err error) (int, apiError) {
	var (
		verr     *validationError
		tooLarge *tooLargeError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, apiError{Code: "validation_failed", Message: "validation failed", Details: verr.details}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, apiError{
			Code:    "invoice_too_large",
			Message: err.Error(),
			Details: map[string]int64{"max_bytes": tooLarge.limit},
		}
	case errors.Is(err, core.ErrTenantNotFound):
		return http.StatusNotFound, apiError{Code: "tenant_not_found", Message: err.Error()}
	case errors.Is(err, invoices.ErrInvoiceNotFound):
		return http.StatusNotFound, apiError{Code: "invoice_not_found", Message: err.Error()}
	case errors.Is(err, core.ErrDuplicateTenant):
		return http.StatusConflict, apiError{Code: "duplicate_tenant", Message: err.Error()}
	case errors.Is(err, invoices.ErrInvoiceExists):
		return http.StatusConflict, apiError{Code: "invoice_exists", Message: err.Error()}
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, apiError{Code: "invalid_amount", Message: err.Error()}
	case errors.Is(err, invoices.ErrEmptyLabel), errors.Is(err, invoices.ErrEmptyInvoice):
		return http.StatusBadRequest, apiError{Code: "validation_failed", Message: err.Error()}
	case errors.Is(err, services.ErrExportDisabled):
		return http.StatusServiceUnavailable, apiError{Code: "export_disabled", Message: err.Error()}
	default:
		return http.StatusInternalServerError, apiError{Code: "internal_error", Message: "internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
