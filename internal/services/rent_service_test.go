package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbook/internal/core"
	"rentbook/internal/invoices"
	"rentbook/internal/ledger"
	"rentbook/internal/metrics"
)

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	pingErr error
	closed  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]byte)}
}

func (f *fakeStore) StoreInvoice(_ context.Context, label string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if label == "" {
		return invoices.ErrEmptyLabel
	}
	if _, ok := f.docs[label]; ok {
		return invoices.ErrInvoiceExists
	}
	f.docs[label] = data
	return nil
}

func (f *fakeStore) GetInvoice(_ context.Context, label string) (invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.docs[label]
	if !ok {
		return invoices.Invoice{}, invoices.ErrInvoiceNotFound
	}
	return invoices.Invoice{Label: label, SizeBytes: int64(len(data)), Content: data}, nil
}

func (f *fakeStore) ListInvoices(context.Context) ([]invoices.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]invoices.Invoice, 0, len(f.docs))
	for label, data := range f.docs {
		out = append(out, invoices.Invoice{Label: label, SizeBytes: int64(len(data))})
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	added    []core.Tenant
	payments []core.Tenant
	err      error
	closed   bool
}

func (f *fakePublisher) PublishTenantAdded(_ context.Context, t core.Tenant) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, t)
	return nil
}

func (f *fakePublisher) PublishPaymentRecorded(_ context.Context, t core.Tenant) error {
	if f.err != nil {
		return f.err
	}
	f.payments = append(f.payments, t)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeExporter struct {
	got []core.Tenant
	err error
}

func (f *fakeExporter) ExportRoster(_ context.Context, tenants []core.Tenant) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.got = tenants
	return len(tenants), nil
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*RentService, *metrics.LedgerMetrics) {
	t.Helper()
	m := metrics.NewLedgerMetrics(prometheus.NewRegistry())
	l := ledger.New(ledger.WithClock(ledger.ClockFunc(func() time.Time { return fixedNow })))
	return NewRentService(l, newFakeStore(), append([]Option{WithMetrics(m)}, opts...)...), m
}

func tenant(name string, rentCents int64) core.Tenant {
	return core.NewTenant(name, core.Money{Cents: rentCents}, "1", core.OneBHK, "9876543210", core.NewDate(2025, 1, 5))
}

func TestAddTenantPublishesAndCounts(t *testing.T) {
	pub := &fakePublisher{}
	svc, m := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	require.NoError(t, svc.AddTenant(ctx, tenant("Asha", 100000)))
	require.Len(t, pub.added, 1)
	assert.Equal(t, "Asha", pub.added[0].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnpaidTenants))

	err := svc.AddTenant(ctx, tenant("Asha", 50000))
	require.ErrorIs(t, err, core.ErrDuplicateTenant)
	assert.Len(t, pub.added, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedTotal.WithLabelValues("add_tenant", "duplicate_tenant")))
}

func TestApplyPayment(t *testing.T) {
	pub := &fakePublisher{}
	svc, m := newTestService(t, WithPublisher(pub))
	ctx := context.Background()
	require.NoError(t, svc.AddTenant(ctx, tenant("Asha", 100000)))

	updated, err := svc.ApplyPayment(ctx, "Asha", core.Cash, core.PeriodRent, core.Money{Cents: 80000})
	require.NoError(t, err)
	assert.False(t, updated.RentPaid)
	assert.Equal(t, int64(-20000), updated.Balance.Cents)
	assert.Equal(t, fixedNow, updated.PaymentDate)

	updated, err = svc.ApplyPayment(ctx, "Asha", core.OnlineTransaction, core.PeriodAdvance, core.Money{Cents: 120000})
	require.NoError(t, err)
	assert.True(t, updated.RentPaid)
	assert.True(t, updated.AdvancePaid)
	assert.Equal(t, int64(0), updated.Balance.Cents)

	require.Len(t, pub.payments, 2)
	assert.Equal(t, int64(120000), pub.payments[1].LastPaymentAmount.Cents)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.UnpaidTenants))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("Cash", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("Online Transaction", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("payment.recorded", "published")))
	assert.Len(t, svc.Payments(), 1)
}

func TestApplyPaymentRejections(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.AddTenant(ctx, tenant("Asha", 100000)))

	_, err := svc.ApplyPayment(ctx, "Nobody", core.Cash, core.PeriodRent, core.Money{Cents: 100})
	assert.ErrorIs(t, err, core.ErrTenantNotFound)

	_, err = svc.ApplyPayment(ctx, "Asha", core.Cash, core.PeriodRent, core.Money{})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	got, err := svc.FindTenant("Asha")
	require.NoError(t, err)
	assert.False(t, got.HasPayment())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedTotal.WithLabelValues("apply_payment", "tenant_not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedTotal.WithLabelValues("apply_payment", "invalid_amount")))
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, m := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	require.NoError(t, svc.AddTenant(ctx, tenant("Asha", 100000)))
	_, err := svc.ApplyPayment(ctx, "Asha", core.Cash, core.PeriodRent, core.Money{Cents: 100000})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("tenant.added", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("payment.recorded", "error")))
}

func TestNoPublisherSkipsEvents(t *testing.T) {
	svc, m := newTestService(t)
	require.NoError(t, svc.AddTenant(context.Background(), tenant("Asha", 100000)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("tenant.added", "skipped")))
}

func TestUnpaidAndTenantsQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.AddTenant(ctx, tenant("A", 1000)))
	require.NoError(t, svc.AddTenant(ctx, tenant("B", 1000)))
	_, err := svc.ApplyPayment(ctx, "A", core.Cash, core.PeriodRent, core.Money{Cents: 1000})
	require.NoError(t, err)

	unpaid := svc.UnpaidTenants()
	require.Len(t, unpaid, 1)
	assert.Equal(t, "B", unpaid[0].Name)
	assert.Len(t, svc.Tenants(), 2)
}

func TestInvoices(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.StoreInvoice(ctx, "march-water", []byte("pdf bytes")))
	err := svc.StoreInvoice(ctx, "march-water", []byte("again"))
	assert.ErrorIs(t, err, invoices.ErrInvoiceExists)

	inv, err := svc.GetInvoice(ctx, "march-water")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), inv.Content)

	list, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues("stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues("error")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.InvoiceBytesTotal))
}

func TestExportRoster(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.ExportRoster(context.Background())
		assert.ErrorIs(t, err, ErrExportDisabled)
		assert.False(t, svc.ExportEnabled())
	})

	t.Run("exports all tenants", func(t *testing.T) {
		exp := &fakeExporter{}
		svc, _ := newTestService(t, WithExporter(exp))
		require.NoError(t, svc.AddTenant(context.Background(), tenant("A", 1000)))
		require.NoError(t, svc.AddTenant(context.Background(), tenant("B", 2000)))

		rows, err := svc.ExportRoster(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, rows)
		assert.Equal(t, "A", exp.got[0].Name)
	})

	t.Run("exporter error is wrapped", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		svc, _ := newTestService(t, WithExporter(&fakeExporter{err: cause}))
		_, err := svc.ExportRoster(context.Background())
		assert.ErrorIs(t, err, cause)
	})
}

func TestReadyAndClose(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewRentService(ledger.New(), store, WithPublisher(pub))

	require.NoError(t, svc.Ready(context.Background()))
	store.pingErr = errors.New("disk gone")
	assert.Error(t, svc.Ready(context.Background()))

	require.NoError(t, svc.Close())
	assert.True(t, store.closed)
	assert.True(t, pub.closed)
}
