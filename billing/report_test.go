package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaldhara/billing-engine/billing"
)

func reportBills(t *testing.T) []billing.Bill {
	t.Helper()

	pending := newBill100(t) // house-1, 100 outstanding

	partial, err := billing.NewBill("bill-2", "house-2", april2025(),
		kl(0), kl(12), m(60), m(0), time.Now())
	require.NoError(t, err)
	partial, _, err = billing.ApplyPayment(partial, m(25), billing.ModeCash)
	require.NoError(t, err)

	paid, err := billing.NewBill("bill-3", "house-3", april2025(),
		kl(0), kl(5), m(40), m(0), time.Now())
	require.NoError(t, err)
	paid, _, err = billing.ApplyPayment(paid, m(40), billing.ModeCash)
	require.NoError(t, err)

	return []billing.Bill{pending, partial, paid}
}

func TestSummarize(t *testing.T) {
	// GIVEN: One pending (100), one partial (25 of 60), one paid (40) bill
	// WHEN: Summarizing
	// THEN: Counts and totals fold correctly

	s := billing.Summarize(reportBills(t))

	assert.Equal(t, 3, s.Bills)
	assert.Equal(t, 1, s.PendingBills)
	assert.Equal(t, 1, s.PartialBills)
	assert.Equal(t, 1, s.PaidBills)
	assert.Equal(t, "200.00", s.TotalBilled.String())
	assert.Equal(t, "65.00", s.TotalCollected.String())
	assert.Equal(t, "135.00", s.TotalOutstanding.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := billing.Summarize(nil)
	assert.Equal(t, 0, s.Bills)
	assert.True(t, s.TotalBilled.IsZero())
	assert.True(t, s.TotalOutstanding.IsZero())
}

func TestDefaulters_OrderedByDebtDesc_PaidOmitted(t *testing.T) {
	// GIVEN: house-1 owing 100, house-2 owing 35, house-3 fully paid
	// WHEN: Listing defaulters
	// THEN: Largest debt first; the paid house never appears

	defaulters := billing.Defaulters(reportBills(t))
	require.Len(t, defaulters, 2)

	assert.Equal(t, billing.HouseID("house-1"), defaulters[0].HouseID)
	assert.Equal(t, "100.00", defaulters[0].Outstanding.String())
	assert.Equal(t, billing.HouseID("house-2"), defaulters[1].HouseID)
	assert.Equal(t, "35.00", defaulters[1].Outstanding.String())
}

func TestDefaulters_AggregatesPerHouse(t *testing.T) {
	// Two outstanding bills for the same house collapse into one entry.
	first := newBill100(t)
	second, err := billing.NewBill("bill-2", "house-1", april2025().Next(),
		kl(30), kl(35), m(15), m(0), time.Now())
	require.NoError(t, err)

	defaulters := billing.Defaulters([]billing.Bill{first, second})
	require.Len(t, defaulters, 1)
	assert.Equal(t, 2, defaulters[0].OutstandingBills)
	assert.Equal(t, "115.00", defaulters[0].Outstanding.String())
}
