package log

import "rentbook/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldTenant        = "tenant"
	FieldRentCents     = "rent_cents"
	FieldAmountCents   = "amount_cents"
	FieldBalanceCents  = "balance_cents"
	FieldRentPaid      = "rent_paid"
	FieldPaymentMethod = "payment_method"
	FieldPeriodTag     = "period_tag"
	FieldInvoiceLabel  = "invoice_label"
	FieldSizeBytes     = "size_bytes"
	FieldRows          = "rows"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentInvoices = "invoices"
	ComponentAMQP     = "amqp"
	ComponentSheets   = "sheets"
	ComponentMetrics  = "metrics"
)

// Operations defines standard operation names
const (
	OpAddTenant    = "add_tenant"
	OpApplyPayment = "apply_payment"
	OpStoreInvoice = "store_invoice"
	OpExport       = "export"
	OpPublish      = "publish"
	OpMigrate      = "migrate"
	OpShutdown     = "shutdown"
	OpStartup      = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithTenant adds the lease identity and rent.
func (f LogFields) WithTenant(t core.Tenant) LogFields {
	f[FieldTenant] = t.Name
	f[FieldRentCents] = t.RentAmount.Cents
	return f
}

// WithPayment adds the fields describing the latest payment on t.
func (f LogFields) WithPayment(t core.Tenant) LogFields {
	f[FieldTenant] = t.Name
	f[FieldAmountCents] = t.LastPaymentAmount.Cents
	f[FieldBalanceCents] = t.Balance.Cents
	f[FieldRentPaid] = t.RentPaid
	f[FieldPaymentMethod] = string(t.PaymentMethod)
	f[FieldPeriodTag] = string(t.RentPeriod)
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
