package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentbook/internal/core"
)

const namespace = "rentbook"

// LedgerMetrics holds the Prometheus metrics for ledger and invoice activity.
type LedgerMetrics struct {
	TenantsTotal       prometheus.Gauge
	UnpaidTenants      prometheus.Gauge
	PaymentsTotal      *prometheus.CounterVec
	PaymentAmountTotal *prometheus.CounterVec
	RejectedTotal      *prometheus.CounterVec
	InvoicesTotal      *prometheus.CounterVec
	InvoiceBytesTotal  prometheus.Counter
	EventsTotal        *prometheus.CounterVec
}

// NewLedgerMetrics creates the metrics and registers them with reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	factory := promauto.With(reg)
	return &LedgerMetrics{
		TenantsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tenants",
			Help:      "Number of tenants in the ledger.",
		}),
		UnpaidTenants: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "unpaid_tenants",
			Help:      "Number of tenants whose latest payment did not cover the rent.",
		}),
		PaymentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "payments_total",
			Help:      "Payments applied by method and whether they covered the rent.",
		}, []string{"method", "covered"}),
		PaymentAmountTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "payment_amount_total",
			Help:      "Sum of applied payments in currency units, by method.",
		}, []string{"method"}),
		RejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rejected_operations_total",
			Help:      "Ledger operations rejected, by operation and reason.",
		}, []string{"operation", "reason"}), // reason: duplicate_tenant, tenant_not_found, invalid_amount
		InvoicesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoices",
			Name:      "stored_total",
			Help:      "Invoice store attempts by status.",
		}, []string{"status"}), // status: stored, error
		InvoiceBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoices",
			Name:      "bytes_total",
			Help:      "Total bytes of stored invoices.",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Ledger events by type and status.",
		}, []string{"type", "status"}), // status: published, error, skipped
	}
}

// ObservePayment records an applied payment.
func (m *LedgerMetrics) ObservePayment(t core.Tenant) {
	if m == nil {
		return
	}
	method := string(t.PaymentMethod)
	covered := "false"
	if t.RentPaid {
		covered = "true"
	}
	m.PaymentsTotal.WithLabelValues(method, covered).Inc()
	m.PaymentAmountTotal.WithLabelValues(method).Add(t.LastPaymentAmount.Decimal().InexactFloat64())
}

// ObserveRejection counts a rejected ledger operation.
func (m *LedgerMetrics) ObserveRejection(operation, reason string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(operation, reason).Inc()
}

// SetStanding updates the tenant gauges.
func (m *LedgerMetrics) SetStanding(tenants, unpaid int) {
	if m == nil {
		return
	}
	m.TenantsTotal.Set(float64(tenants))
	m.UnpaidTenants.Set(float64(unpaid))
}

// ObserveInvoice records an invoice store attempt.
func (m *LedgerMetrics) ObserveInvoice(size int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.InvoicesTotal.WithLabelValues("error").Inc()
		return
	}
	m.InvoicesTotal.WithLabelValues("stored").Inc()
	m.InvoiceBytesTotal.Add(float64(size))
}

// ObserveEvent records the outcome of publishing an event.
func (m *LedgerMetrics) ObserveEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType, status).Inc()
}

// NewServer serves the registry's metrics on addr at /metrics.
func NewServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
