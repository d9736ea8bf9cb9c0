package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"rentbook/internal/core"
)

// Event types, also used as routing keys.
const (
	EventTenantAdded     = "tenant.added"
	EventPaymentRecorded = "payment.recorded"
)

// LedgerEvent is published after a ledger operation succeeded. Amounts are
// in cents.
type LedgerEvent struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Tenant    string        `json:"tenant"`
	Timestamp time.Time     `json:"timestamp"`
	RentCents int64         `json:"rent_cents"`
	Payment   *PaymentEvent `json:"payment,omitempty"`
}

type PaymentEvent struct {
	Method       string    `json:"method"`
	PeriodTag    string    `json:"period_tag"`
	AmountCents  int64     `json:"amount_cents"`
	BalanceCents int64     `json:"balance_cents"`
	RentPaid     bool      `json:"rent_paid"`
	AdvancePaid  bool      `json:"advance_paid"`
	PaidAt       time.Time `json:"paid_at"`
}

// NewTenantAddedEvent builds the event for a newly onboarded tenant.
func NewTenantAddedEvent(t core.Tenant) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      EventTenantAdded,
		Tenant:    t.Name,
		Timestamp: time.Now().UTC(),
		RentCents: t.RentAmount.Cents,
	}
}

// NewPaymentRecordedEvent builds the event for the latest payment on t.
func NewPaymentRecordedEvent(t core.Tenant) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      EventPaymentRecorded,
		Tenant:    t.Name,
		Timestamp: time.Now().UTC(),
		RentCents: t.RentAmount.Cents,
		Payment: &PaymentEvent{
			Method:       string(t.PaymentMethod),
			PeriodTag:    string(t.RentPeriod),
			AmountCents:  t.LastPaymentAmount.Cents,
			BalanceCents: t.Balance.Cents,
			RentPaid:     t.RentPaid,
			AdvancePaid:  t.AdvancePaid,
			PaidAt:       t.PaymentDate,
		},
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
