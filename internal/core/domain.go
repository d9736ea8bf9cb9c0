package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	OneBK  ApartmentType = "1BK"
	OneBHK ApartmentType = "1BHK"
	TwoBHK ApartmentType = "2BHK"
)

const (
	Cash              PaymentMethod = "Cash"
	OnlineTransaction PaymentMethod = "Online Transaction"
)

const (
	PeriodRent        PeriodTag = "Rent"
	PeriodAdvance     PeriodTag = "Advance"
	PeriodMaintenance PeriodTag = "Maintenance"

	// PeriodCustom is a form selector, never stored: the caller's label replaces it.
	PeriodCustom = "Custom"
)

// LeaseDateLayout is the day-MonthName-year format used for lease start dates,
// e.g. 05-January-2025. Month names are matched case-insensitively.
const LeaseDateLayout = "2-January-2006"

type (
	ApartmentType string
	PaymentMethod string

	// PeriodTag classifies what a payment is for. Besides the predefined tags
	// any non-empty custom label is allowed.
	PeriodTag string

	Date struct {
		time.Time
	}

	// Tenant is one lease plus its running account state. Lease terms are
	// fixed at creation; the account state is only changed by the ledger when
	// a payment is applied.
	Tenant struct {
		Name          string
		RentAmount    Money
		Floor         string
		ApartmentType ApartmentType
		PhoneNumber   string
		StartingDate  Date

		RentPaid          bool
		AdvancePaid       bool
		PaymentMethod     PaymentMethod // empty until the first payment
		PaymentDate       time.Time     // zero until the first payment
		RentPeriod        PeriodTag     // empty until the first payment
		Balance           Money
		LastPaymentAmount Money
	}
)

var (
	ErrInvalidApartmentType = errors.New("invalid apartment type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrEmptyPeriodTag       = errors.New("empty period tag")
	ErrInvalidLeaseDate     = errors.New("invalid lease date")
)

// ApartmentTypes lists the accepted apartment types in display order.
func ApartmentTypes() []ApartmentType {
	return []ApartmentType{OneBK, OneBHK, TwoBHK}
}

// PaymentMethods lists the accepted payment methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{Cash, OnlineTransaction}
}

func ParseApartmentType(s string) (ApartmentType, error) {
	s = strings.TrimSpace(s)
	for _, t := range ApartmentTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidApartmentType, s)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	for _, m := range PaymentMethods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

// NewPeriodTag resolves a selected tag. Selecting "Custom" requires a
// non-empty custom label, which becomes the tag itself.
func NewPeriodTag(selected, custom string) (PeriodTag, error) {
	selected = strings.TrimSpace(selected)
	if selected == PeriodCustom {
		selected = strings.TrimSpace(custom)
	}
	if selected == "" {
		return "", ErrEmptyPeriodTag
	}
	return PeriodTag(selected), nil
}

// IsAdvance reports whether the tag marks an advance payment.
func (p PeriodTag) IsAdvance() bool {
	return p == PeriodAdvance
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseLeaseDate parses a date in LeaseDateLayout.
func ParseLeaseDate(s string) (Date, error) {
	t, err := time.Parse(LeaseDateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (expected dd-Month-yyyy)", ErrInvalidLeaseDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as 05-January-2025.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02-January-2006")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewTenant creates a lease record with zeroed account state. It performs no
// validation; callers validate their input before building a record.
func NewTenant(name string, rent Money, floor string, apartmentType ApartmentType, phoneNumber string, startingDate Date) Tenant {
	return Tenant{
		Name:          name,
		RentAmount:    rent,
		Floor:         floor,
		ApartmentType: apartmentType,
		PhoneNumber:   phoneNumber,
		StartingDate:  startingDate,
	}
}

// HasPayment reports whether any payment was ever applied.
func (t Tenant) HasPayment() bool {
	return !t.PaymentDate.IsZero()
}

// RentStatus renders the rent standing, e.g. "Paid" or "Unpaid (Balance: -200.00)".
func (t Tenant) RentStatus() string {
	if t.RentPaid {
		return "Paid"
	}
	return fmt.Sprintf("Unpaid (Balance: %s)", t.Balance)
}

func (t Tenant) AdvanceStatus() string {
	if t.AdvancePaid {
		return "Advance Paid"
	}
	return "No Advance"
}
