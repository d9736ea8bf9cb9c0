// Package ledger holds tenant records in memory and applies rent payments to
// them.
//
// A Ledger owns its records: callers only ever receive copies, and every
// operation runs under a single mutex so a query never observes a record
// halfway through a payment. Nothing here blocks on I/O.
package ledger

import (
	"sync"
	"time"

	"rentbook/internal/core"
)

// Clock supplies payment timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*Ledger)

// WithClock replaces the wall clock used for payment dates.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

type Ledger struct {
	mu      sync.Mutex
	clock   Clock
	tenants map[string]*core.Tenant
	order   []string // insertion order of names
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		clock:   systemClock{},
		tenants: make(map[string]*core.Tenant),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddTenant stores a new record. Names are unique: adding a name that is
// already present fails with *core.DuplicateTenantError and changes nothing.
func (l *Ledger) AddTenant(t core.Tenant) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.tenants[t.Name]; exists {
		return &core.DuplicateTenantError{Name: t.Name}
	}
	rec := t
	l.tenants[t.Name] = &rec
	l.order = append(l.order, t.Name)
	return nil
}

// ApplyPayment records a payment against the named tenant and returns the
// updated record.
//
// The balance accumulates amount-rent on every call, so repeating a call is
// not idempotent. RentPaid reflects only this payment, and the payment
// metadata replaces whatever the previous payment stored.
func (l *Ledger) ApplyPayment(name string, method core.PaymentMethod, tag core.PeriodTag, amount core.Money) (core.Tenant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tenants[name]
	if !ok {
		return core.Tenant{}, &core.TenantNotFoundError{Name: name}
	}
	if !amount.IsPositive() {
		return core.Tenant{}, &core.InvalidAmountError{Amount: amount}
	}

	t.RentPaid = amount.Cents >= t.RentAmount.Cents
	t.Balance = t.Balance.Add(amount.Sub(t.RentAmount))
	t.PaymentMethod = method
	t.PaymentDate = l.clock.Now()
	t.RentPeriod = tag
	t.AdvancePaid = tag.IsAdvance()
	t.LastPaymentAmount = amount

	return *t, nil
}

// FindByName returns a copy of the named record, or *core.TenantNotFoundError.
func (l *Ledger) FindByName(name string) (core.Tenant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tenants[name]
	if !ok {
		return core.Tenant{}, &core.TenantNotFoundError{Name: name}
	}
	return *t, nil
}

// GetUnpaidTenants returns the tenants whose latest payment did not cover the
// rent, including those who never paid. Results come in insertion order but
// callers should not depend on any ordering.
func (l *Ledger) GetUnpaidTenants() []core.Tenant {
	return l.filter(func(t *core.Tenant) bool { return !t.RentPaid })
}

// Tenants returns every record in insertion order.
func (l *Ledger) Tenants() []core.Tenant {
	return l.filter(func(*core.Tenant) bool { return true })
}

// Payments returns the records that have at least one payment, in insertion
// order. Each carries only its latest payment.
func (l *Ledger) Payments() []core.Tenant {
	return l.filter(func(t *core.Tenant) bool { return t.HasPayment() })
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

func (l *Ledger) filter(keep func(*core.Tenant) bool) []core.Tenant {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.Tenant, 0, len(l.order))
	for _, name := range l.order {
		if t := l.tenants[name]; keep(t) {
			out = append(out, *t)
		}
	}
	return out
}
