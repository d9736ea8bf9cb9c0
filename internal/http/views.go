package http

import (
	"time"

	"rentbook/internal/core"
	"rentbook/internal/invoices"
)

// tenantView is the JSON form of a tenant record. Amounts are decimal strings.
type tenantView struct {
	Name              string     `json:"name"`
	RentAmount        string     `json:"rent_amount"`
	Floor             string     `json:"floor"`
	ApartmentType     string     `json:"apartment_type"`
	PhoneNumber       string     `json:"phone_number"`
	StartingDate      string     `json:"starting_date"`
	RentPaid          bool       `json:"rent_paid"`
	AdvancePaid       bool       `json:"advance_paid"`
	PaymentMethod     string     `json:"payment_method,omitempty"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	RentPeriod        string     `json:"rent_period,omitempty"`
	Balance           string     `json:"balance"`
	LastPaymentAmount string     `json:"last_payment_amount"`
	RentStatus        string     `json:"rent_status"`
	AdvanceStatus     string     `json:"advance_status"`
}

func newTenantView(t core.Tenant) tenantView {
	v := tenantView{
		Name:              t.Name,
		RentAmount:        t.RentAmount.String(),
		Floor:             t.Floor,
		ApartmentType:     string(t.ApartmentType),
		PhoneNumber:       t.PhoneNumber,
		StartingDate:      t.StartingDate.String(),
		RentPaid:          t.RentPaid,
		AdvancePaid:       t.AdvancePaid,
		PaymentMethod:     string(t.PaymentMethod),
		RentPeriod:        string(t.RentPeriod),
		Balance:           t.Balance.String(),
		LastPaymentAmount: t.LastPaymentAmount.String(),
		RentStatus:        t.RentStatus(),
		AdvanceStatus:     t.AdvanceStatus(),
	}
	if t.HasPayment() {
		paidAt := t.PaymentDate
		v.PaymentDate = &paidAt
	}
	return v
}

func newTenantViews(tenants []core.Tenant) []tenantView {
	out := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, newTenantView(t))
	}
	return out
}

type invoiceView struct {
	Label       string    `json:"label"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func newInvoiceViews(list []invoices.Invoice) []invoiceView {
	out := make([]invoiceView, 0, len(list))
	for _, inv := range list {
		out = append(out, invoiceView{
			Label:       inv.Label,
			ContentType: inv.ContentType,
			SizeBytes:   inv.SizeBytes,
			UploadedAt:  inv.UploadedAt,
		})
	}
	return out
}
