package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"rentbook/internal/core"
)

func TestObservePayment(t *testing.T) {
	m := NewLedgerMetrics(prometheus.NewRegistry())

	m.ObservePayment(core.Tenant{PaymentMethod: core.Cash, RentPaid: true, LastPaymentAmount: core.Money{Cents: 100050}})
	m.ObservePayment(core.Tenant{PaymentMethod: core.Cash, RentPaid: false, LastPaymentAmount: core.Money{Cents: 50000}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("Cash", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("Cash", "false")))
	assert.InDelta(t, 1500.50, testutil.ToFloat64(m.PaymentAmountTotal.WithLabelValues("Cash")), 0.001)
}

func TestStandingRejectionsInvoicesEvents(t *testing.T) {
	m := NewLedgerMetrics(prometheus.NewRegistry())

	m.SetStanding(3, 2)
	m.ObserveRejection("apply_payment", "invalid_amount")
	m.ObserveInvoice(10, nil)
	m.ObserveInvoice(5, errors.New("disk full"))
	m.ObserveEvent("payment.recorded", "published")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TenantsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnpaidTenants))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedTotal.WithLabelValues("apply_payment", "invalid_amount")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues("stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues("error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.InvoiceBytesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("payment.recorded", "published")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *LedgerMetrics
	assert.NotPanics(t, func() {
		m.ObservePayment(core.Tenant{})
		m.ObserveRejection("a", "b")
		m.SetStanding(1, 1)
		m.ObserveInvoice(1, nil)
		m.ObserveEvent("a", "b")
	})
}

func TestServerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.SetStanding(4, 1)

	srv := NewServer(":0", reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rentbook_ledger_tenants 4")
	assert.Contains(t, rec.Body.String(), "rentbook_ledger_unpaid_tenants 1")
}
