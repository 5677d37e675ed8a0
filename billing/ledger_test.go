package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaldhara/billing-engine/billing"
	"github.com/jaldhara/billing-engine/billing/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// seedTenancy installs a panchayat, village, one domestic house and the
// unit tariff (rates 1..5) into a fresh memory store.
func seedTenancy(t *testing.T) (*store.Memory, billing.HouseID) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	require.NoError(t, st.SavePanchayat(ctx, billing.GramPanchayat{ID: "gp-test", Name: "Test GP"}))
	require.NoError(t, st.SaveVillage(ctx, billing.Village{ID: "vil-1", PanchayatID: "gp-test", Name: "Testahalli"}))
	require.NoError(t, st.SaveTariff(ctx, unitTariff()))

	house := billing.House{
		ID:                   "house-1",
		VillageID:            "vil-1",
		PanchayatID:          "gp-test",
		OwnerName:            "Test Owner",
		UsageClass:           billing.ClassDomestic,
		PreviousMeterReading: kl(0),
	}
	require.NoError(t, st.SaveHouse(ctx, house))
	return st, house.ID
}

func mustPeriod(t *testing.T, s string) billing.BillingPeriod {
	t.Helper()
	p, err := billing.ParsePeriod(s)
	require.NoError(t, err)
	return p
}

// =============================================================================
// BILL GENERATION TESTS
// =============================================================================

func TestGenerate_CreatesBillAndAdvancesReading(t *testing.T) {
	// GIVEN: A fresh house at reading 0 under the unit tariff
	// WHEN: Billing April at reading 12
	// THEN: The bill carries demand 19 (slabs 7*1+3*2+2*3), zero arrears,
	//       and the house's stored reading advances to 12

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)

	bill, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	assert.Equal(t, "19.00", bill.CurrentDemand.String())
	assert.True(t, bill.Arrears.IsZero())
	assert.Equal(t, "19.00", bill.TotalAmount.String())
	assert.Equal(t, billing.StatusPending, bill.Status)

	house, err := st.GetHouse(ctx, houseID)
	require.NoError(t, err)
	assert.Equal(t, "12", house.PreviousMeterReading.String())

	stored, err := st.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, bill.TotalAmount, stored.TotalAmount)
}

func TestGenerate_ReadingRegression_NothingPersisted(t *testing.T) {
	// GIVEN: A house already read up to 12
	// WHEN: A bill is attempted at reading 8
	// THEN: Rejected, no bill exists, the stored reading is untouched

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)

	_, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	_, err = gen.Generate(ctx, houseID, kl(8), mustPeriod(t, "2025-05"))
	assert.ErrorIs(t, err, billing.ErrReadingRegression)
	assert.True(t, billing.IsClientError(err))

	house, err := st.GetHouse(ctx, houseID)
	require.NoError(t, err)
	assert.Equal(t, "12", house.PreviousMeterReading.String())

	bills, err := st.BillsByHouse(ctx, houseID)
	require.NoError(t, err)
	assert.Len(t, bills, 1)
}

func TestGenerate_DuplicatePeriod_RollsBackReadingAdvance(t *testing.T) {
	// GIVEN: April already billed at reading 12
	// WHEN: April is billed again at reading 15
	// THEN: The conflict aborts the whole transaction; the stored reading
	//       stays at 12 even though the advance happens after the insert

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)

	_, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	_, err = gen.Generate(ctx, houseID, kl(15), mustPeriod(t, "2025-04"))
	assert.ErrorIs(t, err, billing.ErrDuplicateBillPeriod)
	assert.True(t, billing.IsConflict(err))

	house, err := st.GetHouse(ctx, houseID)
	require.NoError(t, err)
	assert.Equal(t, "12", house.PreviousMeterReading.String())
}

func TestGenerate_MissingTariff_Fails(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.SavePanchayat(ctx, billing.GramPanchayat{ID: "gp-bare", Name: "Bare"}))
	require.NoError(t, st.SaveHouse(ctx, billing.House{
		ID: "house-x", PanchayatID: "gp-bare", VillageID: "vil-x",
		UsageClass: billing.ClassDomestic, PreviousMeterReading: kl(0),
	}))

	gen := billing.NewBillGenerator(st, nil)
	_, err := gen.Generate(ctx, "house-x", kl(5), mustPeriod(t, "2025-04"))
	assert.ErrorIs(t, err, billing.ErrTariffNotFound)
}

func TestGenerate_UnknownHouse_Fails(t *testing.T) {
	st, _ := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)

	_, err := gen.Generate(context.Background(), "house-missing", kl(5), mustPeriod(t, "2025-04"))
	assert.ErrorIs(t, err, billing.ErrHouseNotFound)
}

// =============================================================================
// ARREARS SNAPSHOT TESTS
// =============================================================================

func TestGenerate_ArrearsFrozenAtGenerationInstant(t *testing.T) {
	// GIVEN: April billed 19, of which 9 was collected (10 outstanding)
	// WHEN: May is billed for 9 KL more (demand 11), then April is fully
	//       paid off afterwards
	// THEN: May's arrears stay frozen at 10; only June reflects the payment

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)
	ledger := billing.NewPaymentLedger(st, nil)

	april, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)
	_, _, err = ledger.Collect(ctx, april.ID, m(9), billing.ModeCash, "", "tester")
	require.NoError(t, err)

	// May: 12 -> 21 is 9 KL = 7*1 + 2*2 = 11 demand, 10 arrears.
	may, err := gen.Generate(ctx, houseID, kl(21), mustPeriod(t, "2025-05"))
	require.NoError(t, err)
	assert.Equal(t, "11.00", may.CurrentDemand.String())
	assert.Equal(t, "10.00", may.Arrears.String())
	assert.Equal(t, "21.00", may.TotalAmount.String())

	// Pay off April entirely. May's printed figures must not move.
	_, _, err = ledger.Collect(ctx, april.ID, m(10), billing.ModeCash, "", "tester")
	require.NoError(t, err)

	stored, err := st.GetBill(ctx, may.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", stored.Arrears.String())
	assert.Equal(t, "21.00", stored.TotalAmount.String())

	// June at zero usage: arrears are May's remainder only.
	june, err := gen.Generate(ctx, houseID, kl(21), mustPeriod(t, "2025-06"))
	require.NoError(t, err)
	assert.True(t, june.CurrentDemand.IsZero())
	assert.Equal(t, "21.00", june.Arrears.String())
}

// =============================================================================
// PAYMENT COLLECTION TESTS
// =============================================================================

func TestCollect_PersistsBillAndPaymentAtomically(t *testing.T) {
	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)
	ledger := billing.NewPaymentLedger(st, nil)

	bill, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	updated, payment, err := ledger.Collect(ctx, bill.ID, m(19), billing.ModeUPI, "UPI-42", "collector-1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, updated.Status)
	assert.Equal(t, "UPI-42", payment.TransactionRef)

	stored, err := st.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, stored.Status)

	payments, err := st.PaymentsByBill(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.ID, payments[0].ID)
	assert.Equal(t, "collector-1", payments[0].CollectedBy)
}

func TestCollect_PayLater_RecordsPromiseOnly(t *testing.T) {
	// GIVEN: A pending bill
	// WHEN: A pay_later promise is collected
	// THEN: The payment row exists but the stored bill is untouched

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)
	ledger := billing.NewPaymentLedger(st, nil)

	bill, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	_, payment, err := ledger.Collect(ctx, bill.ID, m(19), billing.ModePayLater, "", "collector-1")
	require.NoError(t, err)
	assert.Equal(t, billing.ModePayLater, payment.Mode)

	stored, err := st.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, stored.Status)
	assert.True(t, stored.PaidAmount.IsZero())

	payments, err := st.PaymentsByBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestCollect_InvalidInput_NothingPersisted(t *testing.T) {
	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)
	ledger := billing.NewPaymentLedger(st, nil)

	bill, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	_, _, err = ledger.Collect(ctx, bill.ID, m(10), billing.ModeUPI, "", "collector-1")
	assert.ErrorIs(t, err, billing.ErrMissingTransactionRef)

	_, _, err = ledger.Collect(ctx, bill.ID, m(-5), billing.ModeCash, "", "collector-1")
	assert.ErrorIs(t, err, billing.ErrNonPositivePayment)

	payments, err := st.PaymentsByBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCollect_ConcurrentPayments_NoLostIncrements(t *testing.T) {
	// GIVEN: One bill of 19 and twenty billers collecting 0.50 each at once
	// WHEN: All collections run concurrently
	// THEN: Every increment lands; PaidAmount is exactly 10.00 with twenty
	//       payment rows, because the store serializes the read-modify-write

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)
	ledger := billing.NewPaymentLedger(st, nil)

	bill, err := gen.Generate(ctx, houseID, kl(12), mustPeriod(t, "2025-04"))
	require.NoError(t, err)

	const collectors = 20
	var wg sync.WaitGroup
	for i := 0; i < collectors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.Collect(ctx, bill.ID, m(0.50), billing.ModeCash, "", "collector-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := st.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", stored.PaidAmount.String())
	assert.Equal(t, "9.00", stored.RemainingAmount.String())
	assert.Equal(t, billing.StatusPartial, stored.Status)
	assert.NoError(t, stored.CheckConsistency())

	payments, err := st.PaymentsByBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Len(t, payments, collectors)
}

func TestCollect_UnknownBill_NotFound(t *testing.T) {
	st, _ := seedTenancy(t)
	ledger := billing.NewPaymentLedger(st, nil)

	_, _, err := ledger.Collect(context.Background(), "bill-missing", m(10), billing.ModeCash, "", "x")
	assert.ErrorIs(t, err, billing.ErrBillNotFound)
}

// =============================================================================
// PANCHAYAT-WIDE BILLING RUN TESTS
// =============================================================================

func TestGenerateForPanchayat_SkipsAlreadyBilledHouses(t *testing.T) {
	// GIVEN: Two houses, one of which already has its April bill
	// WHEN: The April run executes twice
	// THEN: The first run bills only the unbilled house; the second run
	//       bills nobody

	ctx := context.Background()
	st, houseID := seedTenancy(t)
	require.NoError(t, st.SaveHouse(ctx, billing.House{
		ID: "house-2", VillageID: "vil-1", PanchayatID: "gp-test",
		OwnerName: "Second Owner", UsageClass: billing.ClassDomestic,
		PreviousMeterReading: kl(5),
	}))

	gen := billing.NewBillGenerator(st, nil)
	period := mustPeriod(t, "2025-04")

	_, err := gen.Generate(ctx, houseID, kl(12), period)
	require.NoError(t, err)

	generated, err := gen.GenerateForPanchayat(ctx, "gp-test", period)
	require.NoError(t, err)
	require.Len(t, generated, 1)
	assert.Equal(t, billing.HouseID("house-2"), generated[0].HouseID)
	// Run bills at the stored reading: zero usage, zero demand.
	assert.True(t, generated[0].CurrentDemand.IsZero())

	again, err := gen.GenerateForPanchayat(ctx, "gp-test", period)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestGenerate_ClockIsInjectable(t *testing.T) {
	ctx := context.Background()
	st, houseID := seedTenancy(t)
	gen := billing.NewBillGenerator(st, nil)

	frozen := time.Date(2025, time.April, 30, 18, 0, 0, 0, time.UTC)
	gen.Now = func() time.Time { return frozen }

	bill, err := gen.Generate(ctx, houseID, kl(3), mustPeriod(t, "2025-04"))
	require.NoError(t, err)
	assert.Equal(t, frozen, bill.GeneratedAt)
}
