package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaldhara/billing-engine/billing"
	"github.com/jaldhara/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedStore(t *testing.T, st *sqlite.Store) billing.HouseID {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.SavePanchayat(ctx, billing.GramPanchayat{
		ID: "gp-1", Name: "Test GP", District: "Mandya", State: "Karnataka",
	}))
	require.NoError(t, st.SaveVillage(ctx, billing.Village{ID: "vil-1", PanchayatID: "gp-1", Name: "Testahalli"}))
	require.NoError(t, st.SaveHouse(ctx, billing.House{
		ID: "h-1", VillageID: "vil-1", PanchayatID: "gp-1",
		OwnerName: "Test Owner", UsageClass: billing.ClassDomestic,
		PreviousMeterReading: billing.NewVolume(0),
	}))
	require.NoError(t, st.SaveTariff(ctx, billing.TariffSchedule{
		PanchayatID: "gp-1",
		Domestic: [5]billing.Money{
			billing.NewMoney(2.50), billing.NewMoney(4), billing.NewMoney(6),
			billing.NewMoney(8), billing.NewMoney(10),
		},
		Institutional: billing.NewMoney(12),
		Commercial:    billing.NewMoney(15),
		Industrial:    billing.NewMoney(20),
	}))
	return "h-1"
}

func sqliteBill(id billing.BillID, houseID billing.HouseID, period string) billing.Bill {
	p, _ := billing.ParsePeriod(period)
	b, _ := billing.NewBill(id, houseID, p,
		billing.NewVolume(0), billing.NewVolume(12),
		billing.NewMoney(33.50), billing.NewMoney(10), time.Now())
	return b
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestSQLite_TenancyRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedStore(t, st)

	gp, err := st.GetPanchayat(ctx, "gp-1")
	require.NoError(t, err)
	assert.Equal(t, "Test GP", gp.Name)
	assert.Equal(t, "Mandya", gp.District)

	villages, err := st.VillagesByPanchayat(ctx, "gp-1")
	require.NoError(t, err)
	require.Len(t, villages, 1)

	house, err := st.GetHouse(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, billing.ClassDomestic, house.UsageClass)
	assert.Equal(t, "0", house.PreviousMeterReading.String())

	// Upsert overwrites the mutable fields.
	house.OwnerName = "New Owner"
	house.PreviousMeterReading = billing.NewVolume(12)
	require.NoError(t, st.SaveHouse(ctx, house))

	again, err := st.GetHouse(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, "New Owner", again.OwnerName)
	assert.Equal(t, "12", again.PreviousMeterReading.String())
}

func TestSQLite_TariffRoundTrip_ExactRates(t *testing.T) {
	// Rates survive storage as exact decimal strings, not floats.
	ctx := context.Background()
	st := newTestStore(t)
	seedStore(t, st)

	tariff, err := st.TariffByPanchayat(ctx, "gp-1")
	require.NoError(t, err)
	assert.Equal(t, "2.50", tariff.Domestic[0].String())
	assert.Equal(t, "10.00", tariff.Domestic[4].String())
	assert.Equal(t, "15.00", tariff.Commercial.String())
}

func TestSQLite_NotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.GetPanchayat(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrPanchayatNotFound)
	_, err = st.GetVillage(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrVillageNotFound)
	_, err = st.GetHouse(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrHouseNotFound)
	_, err = st.GetBill(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrBillNotFound)
	_, err = st.TariffByPanchayat(ctx, "nope")
	assert.ErrorIs(t, err, billing.ErrTariffNotFound)
}

// =============================================================================
// BILL TESTS
// =============================================================================

func TestSQLite_BillRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	bill := sqliteBill("b-1", houseID, "2025-04")
	require.NoError(t, st.InsertBill(ctx, bill))

	stored, err := st.GetBill(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-04", stored.Period.String())
	assert.Equal(t, "33.50", stored.CurrentDemand.String())
	assert.Equal(t, "10.00", stored.Arrears.String())
	assert.Equal(t, "43.50", stored.TotalAmount.String())
	assert.Equal(t, billing.StatusPending, stored.Status)
	assert.Equal(t, "12", stored.TotalUsage.String())
}

func TestSQLite_DuplicateBillPeriod_Rejected(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	require.NoError(t, st.InsertBill(ctx, sqliteBill("b-1", houseID, "2025-04")))

	err := st.InsertBill(ctx, sqliteBill("b-2", houseID, "2025-04"))
	assert.ErrorIs(t, err, billing.ErrDuplicateBillPeriod)

	var dup *billing.DuplicateBillError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, billing.BillID("b-1"), dup.ExistingID)

	assert.NoError(t, st.InsertBill(ctx, sqliteBill("b-3", houseID, "2025-05")))
}

func TestSQLite_InsertBill_UnknownHouse_NotADuplicate(t *testing.T) {
	// GIVEN: A bill referencing a house that was never registered
	// WHEN: Inserting it trips the foreign-key constraint
	// THEN: The error is not misreported as an already-billed period

	ctx := context.Background()
	st := newTestStore(t)
	seedStore(t, st)

	err := st.InsertBill(ctx, sqliteBill("b-1", "h-ghost", "2025-04"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, billing.ErrDuplicateBillPeriod)
}

func TestSQLite_UpdateBillPayment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	bill := sqliteBill("b-1", houseID, "2025-04")
	require.NoError(t, st.InsertBill(ctx, bill))

	updated, _, err := billing.ApplyPayment(bill, billing.NewMoney(20), billing.ModeCash)
	require.NoError(t, err)
	require.NoError(t, st.UpdateBillPayment(ctx, updated))

	stored, err := st.GetBill(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "20.00", stored.PaidAmount.String())
	assert.Equal(t, "23.50", stored.RemainingAmount.String())
	assert.Equal(t, billing.StatusPartial, stored.Status)

	err = st.UpdateBillPayment(ctx, sqliteBill("b-missing", houseID, "2025-09"))
	assert.ErrorIs(t, err, billing.ErrBillNotFound)
}

func TestSQLite_OutstandingBillsByHouse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	open := sqliteBill("b-1", houseID, "2025-04")
	require.NoError(t, st.InsertBill(ctx, open))

	closed := sqliteBill("b-2", houseID, "2025-05")
	closed, _, err := billing.ApplyPayment(closed, closed.TotalAmount, billing.ModeCash)
	require.NoError(t, err)
	require.NoError(t, st.InsertBill(ctx, closed))

	outstanding, err := st.OutstandingBillsByHouse(ctx, houseID)
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, billing.BillID("b-1"), outstanding[0].ID)
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestSQLite_PaymentsAppendOnlyInOrder(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)
	require.NoError(t, st.InsertBill(ctx, sqliteBill("b-1", houseID, "2025-04")))

	base := time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC)
	modes := []billing.PaymentMode{billing.ModeCash, billing.ModeUPI, billing.ModePayLater}
	for i, mode := range modes {
		p := billing.Payment{
			ID:     billing.PaymentID([]string{"p-1", "p-2", "p-3"}[i]),
			BillID: "b-1",
			Amount: billing.NewMoney(float64(10 * (i + 1))),
			Mode:   mode, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if mode == billing.ModeUPI {
			p.TransactionRef = "UPI-77"
		}
		require.NoError(t, st.AppendPayment(ctx, p))
	}

	payments, err := st.PaymentsByBill(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, billing.PaymentID("p-1"), payments[0].ID)
	assert.Equal(t, "UPI-77", payments[1].TransactionRef)
	assert.Empty(t, payments[0].TransactionRef)
	assert.Equal(t, billing.ModePayLater, payments[2].Mode)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_ErrorRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(s billing.Store) error {
		if err := s.InsertBill(ctx, sqliteBill("b-1", houseID, "2025-04")); err != nil {
			return err
		}
		house, err := s.GetHouse(ctx, houseID)
		if err != nil {
			return err
		}
		house.PreviousMeterReading = billing.NewVolume(12)
		if err := s.SaveHouse(ctx, house); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.GetBill(ctx, "b-1")
	assert.ErrorIs(t, err, billing.ErrBillNotFound)

	house, err := st.GetHouse(ctx, houseID)
	require.NoError(t, err)
	assert.Equal(t, "0", house.PreviousMeterReading.String())
}

func TestSQLite_WithTx_ObservesOwnWrites(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	err := st.WithTx(ctx, func(s billing.Store) error {
		if err := s.InsertBill(ctx, sqliteBill("b-1", houseID, "2025-04")); err != nil {
			return err
		}
		got, err := s.GetBill(ctx, "b-1")
		if err != nil {
			return err
		}
		assert.Equal(t, billing.BillID("b-1"), got.ID)
		return nil
	})
	require.NoError(t, err)

	_, err = st.GetBill(ctx, "b-1")
	assert.NoError(t, err)
}

func TestSQLite_ConcurrentCollects_NoLostIncrements(t *testing.T) {
	// GIVEN: A 43.50 bill and twenty billers collecting 1.00 each at once
	// WHEN: All collections run concurrently against the SQLite store
	// THEN: The transaction serialization keeps every increment; PaidAmount
	//       is exactly 20.00 with twenty payment rows

	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)
	require.NoError(t, st.InsertBill(ctx, sqliteBill("b-1", houseID, "2025-04")))

	ledger := billing.NewPaymentLedger(st, nil)

	const collectors = 20
	var wg sync.WaitGroup
	for i := 0; i < collectors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.Collect(ctx, "b-1", billing.NewMoney(1), billing.ModeCash, "", "collector-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := st.GetBill(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "20.00", stored.PaidAmount.String())
	assert.Equal(t, "23.50", stored.RemainingAmount.String())
	assert.Equal(t, billing.StatusPartial, stored.Status)

	payments, err := st.PaymentsByBill(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, payments, collectors)
}

func TestSQLite_EndToEndWithEngine(t *testing.T) {
	// The SQLite store backs the same generation + collection flow the
	// memory store does.
	ctx := context.Background()
	st := newTestStore(t)
	houseID := seedStore(t, st)

	gen := billing.NewBillGenerator(st, nil)
	ledger := billing.NewPaymentLedger(st, nil)

	period, err := billing.ParsePeriod("2025-04")
	require.NoError(t, err)

	// 12 KL domestic: 7*2.50 + 3*4 + 2*6 = 41.50
	bill, err := gen.Generate(ctx, houseID, billing.NewVolume(12), period)
	require.NoError(t, err)
	assert.Equal(t, "41.50", bill.CurrentDemand.String())

	house, err := st.GetHouse(ctx, houseID)
	require.NoError(t, err)
	assert.Equal(t, "12", house.PreviousMeterReading.String())

	updated, _, err := ledger.Collect(ctx, bill.ID, billing.NewMoney(41.50), billing.ModeCash, "", "tester")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, updated.Status)
}
