package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbook/internal/core"
)

var fixedNow = time.Date(2025, time.February, 1, 10, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return fixedNow })
}

func rupees(n int64) core.Money {
	return core.Money{Cents: n * 100}
}

func newTenant(name string, rent int64) core.Tenant {
	return core.NewTenant(name, rupees(rent), "1", core.OneBHK, "9876543210", core.NewDate(2025, 1, 5))
}

func newLedger(t *testing.T, tenants ...core.Tenant) *Ledger {
	t.Helper()
	l := New(WithClock(fixedClock()))
	for _, tn := range tenants {
		require.NoError(t, l.AddTenant(tn))
	}
	return l
}

func TestAddTenantThenFindByName(t *testing.T) {
	a := newTenant("Asha", 1000)
	b := newTenant("Bilal", 1500)
	l := newLedger(t, a, b)

	got, err := l.FindByName("Asha")
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.Zero(t, got.Balance)
	assert.False(t, got.RentPaid)

	got, err = l.FindByName("Bilal")
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.Equal(t, 2, l.Len())
}

func TestAddTenantRejectsDuplicateName(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))
	before := l.Tenants()

	err := l.AddTenant(newTenant("Asha", 2000))

	var dup *core.DuplicateTenantError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Asha", dup.Name)
	assert.ErrorIs(t, err, core.ErrDuplicateTenant)
	assert.Equal(t, before, l.Tenants())

	got, err := l.FindByName("Asha")
	require.NoError(t, err)
	assert.Equal(t, rupees(1000), got.RentAmount)
}

func TestFindByNameMissing(t *testing.T) {
	l := newLedger(t)
	_, err := l.FindByName("Nobody")
	var nf *core.TenantNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Nobody", nf.Name)
}

func TestApplyPaymentOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		wantPaid     bool
		wantBalance  int64
		wantLastPaid int64
	}{
		{name: "exact rent", amount: 1000, wantPaid: true, wantBalance: 0, wantLastPaid: 1000},
		{name: "short payment", amount: 800, wantPaid: false, wantBalance: -200, wantLastPaid: 800},
		{name: "overpayment", amount: 1250, wantPaid: true, wantBalance: 250, wantLastPaid: 1250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, newTenant("Asha", 1000))

			got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(tt.amount))
			require.NoError(t, err)

			assert.Equal(t, tt.wantPaid, got.RentPaid)
			assert.Equal(t, rupees(tt.wantBalance), got.Balance)
			assert.Equal(t, rupees(tt.wantLastPaid), got.LastPaymentAmount)
			assert.Equal(t, core.Cash, got.PaymentMethod)
			assert.Equal(t, core.PeriodRent, got.RentPeriod)
			assert.Equal(t, fixedNow, got.PaymentDate)
			assert.False(t, got.AdvancePaid)

			stored, err := l.FindByName("Asha")
			require.NoError(t, err)
			assert.Equal(t, got, stored)
		})
	}
}

func TestApplyPaymentExactRentKeepsPriorBalance(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))
	_, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1300))
	require.NoError(t, err)

	got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1000))
	require.NoError(t, err)
	assert.True(t, got.RentPaid)
	assert.Equal(t, rupees(300), got.Balance)
}

func TestApplyPaymentAccumulatesBalance(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))

	got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(800))
	require.NoError(t, err)
	assert.Equal(t, rupees(-200), got.Balance)
	assert.False(t, got.RentPaid)

	got, err = l.ApplyPayment("Asha", core.OnlineTransaction, core.PeriodRent, rupees(1200))
	require.NoError(t, err)
	assert.Equal(t, rupees(0), got.Balance)
	assert.True(t, got.RentPaid)
	assert.Equal(t, core.OnlineTransaction, got.PaymentMethod)
}

func TestApplyPaymentIsNotIdempotent(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))

	first, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1100))
	require.NoError(t, err)
	second, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1100))
	require.NoError(t, err)

	assert.Equal(t, rupees(100), first.Balance)
	assert.Equal(t, rupees(200), second.Balance)
}

func TestRentPaidFollowsLatestPaymentNotBalance(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))
	_, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(3000))
	require.NoError(t, err)

	got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(500))
	require.NoError(t, err)
	assert.Equal(t, rupees(1500), got.Balance)
	assert.False(t, got.RentPaid)
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []core.Money{{Cents: 0}, {Cents: -100}} {
		t.Run(fmt.Sprintf("amount_%d", amount.Cents), func(t *testing.T) {
			l := newLedger(t, newTenant("Asha", 1000))
			before, err := l.FindByName("Asha")
			require.NoError(t, err)

			_, err = l.ApplyPayment("Asha", core.Cash, core.PeriodRent, amount)

			var inv *core.InvalidAmountError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, amount, inv.Amount)
			after, err := l.FindByName("Asha")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestApplyPaymentUnknownTenant(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))

	_, err := l.ApplyPayment("Bilal", core.Cash, core.PeriodRent, rupees(1000))
	assert.ErrorIs(t, err, core.ErrTenantNotFound)

	// Lookup happens before the amount check.
	_, err = l.ApplyPayment("Bilal", core.Cash, core.PeriodRent, rupees(0))
	assert.ErrorIs(t, err, core.ErrTenantNotFound)
}

func TestAdvanceFlagIsNotSticky(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))

	got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodAdvance, rupees(2000))
	require.NoError(t, err)
	assert.True(t, got.AdvancePaid)
	assert.Equal(t, core.PeriodAdvance, got.RentPeriod)

	got, err = l.ApplyPayment("Asha", core.Cash, core.PeriodMaintenance, rupees(1000))
	require.NoError(t, err)
	assert.False(t, got.AdvancePaid)

	got, err = l.ApplyPayment("Asha", core.Cash, core.PeriodTag("Water bill"), rupees(1000))
	require.NoError(t, err)
	assert.False(t, got.AdvancePaid)
	assert.Equal(t, core.PeriodTag("Water bill"), got.RentPeriod)
}

func TestPaymentDateComesFromClock(t *testing.T) {
	now := fixedNow
	l := New(WithClock(ClockFunc(func() time.Time { return now })))
	require.NoError(t, l.AddTenant(newTenant("Asha", 1000)))

	got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1000))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, got.PaymentDate)

	now = now.Add(30 * 24 * time.Hour)
	got, err = l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1000))
	require.NoError(t, err)
	assert.Equal(t, now, got.PaymentDate)
}

func TestGetUnpaidTenants(t *testing.T) {
	l := newLedger(t, newTenant("A", 1000), newTenant("B", 1000), newTenant("C", 500))

	_, err := l.ApplyPayment("A", core.Cash, core.PeriodRent, rupees(1000))
	require.NoError(t, err)
	_, err = l.ApplyPayment("B", core.Cash, core.PeriodRent, rupees(900))
	require.NoError(t, err)

	names := func(ts []core.Tenant) []string {
		out := make([]string, 0, len(ts))
		for _, t := range ts {
			out = append(out, t.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"B", "C"}, names(l.GetUnpaidTenants()))
	assert.Equal(t, []string{"A", "B"}, names(l.Payments()))
	assert.Equal(t, []string{"A", "B", "C"}, names(l.Tenants()))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000))

	got, err := l.FindByName("Asha")
	require.NoError(t, err)
	got.Balance = rupees(999)
	got.RentPaid = true

	for _, tn := range l.Tenants() {
		tn.Balance = rupees(5)
	}

	stored, err := l.FindByName("Asha")
	require.NoError(t, err)
	assert.Zero(t, stored.Balance)
	assert.False(t, stored.RentPaid)
	assert.Len(t, l.GetUnpaidTenants(), 1)
}

func TestDefaultClockIsWallClock(t *testing.T) {
	l := New(WithClock(nil))
	require.NoError(t, l.AddTenant(newTenant("Asha", 1000)))

	before := time.Now()
	got, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1000))
	require.NoError(t, err)
	assert.False(t, got.PaymentDate.Before(before))
}

func TestConcurrentPaymentsAndQueries(t *testing.T) {
	l := newLedger(t, newTenant("Asha", 1000), newTenant("Bilal", 1000))

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := l.ApplyPayment("Asha", core.Cash, core.PeriodRent, rupees(1001))
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				for _, tn := range l.GetUnpaidTenants() {
					if tn.Name == "Asha" && tn.HasPayment() {
						t.Error(errors.New("Asha listed unpaid after full payments"))
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	got, err := l.FindByName("Asha")
	require.NoError(t, err)
	assert.Equal(t, rupees(workers*perWorker), got.Balance)
	assert.True(t, got.RentPaid)
}
