/*
ledger.go - Store-backed bill generation and payment collection

PURPOSE:
  The two stateful use cases of the engine, built on TxStore:

  BillGenerator.Generate:
    validate reading -> compute usage, demand, arrears -> insert Bill ->
    advance House.PreviousMeterReading. One transaction. A failure anywhere
    leaves both the bill and the reading untouched.

  PaymentLedger.Collect:
    validate payment -> re-read bill in-transaction -> ApplyPayment ->
    persist updated bill + append Payment row. One transaction per payment,
    serialized per bill by the store, so concurrent collections against the
    same bill cannot lose an increment.

ARREARS INSTANT:
  Generate queries the house's outstanding bills inside its own transaction,
  so the frozen Arrears figure reflects exactly the bills unpaid at the
  generation instant, no more and no less.

OVERPAYMENT:
  Collect tolerates payments beyond the remaining amount (the biller flow
  accepts whatever is handed over). It logs a warning and the bill's
  RemainingAmount clamps at zero.

SEE ALSO:
  - bill.go: The pure transition Collect persists
  - store.go: The TxStore contract both use cases rely on
*/
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// BILL GENERATOR
// =============================================================================

// BillGenerator creates one bill per house per period and advances the
// house's stored meter reading as part of the same transaction.
type BillGenerator struct {
	Store TxStore
	Log   *zap.Logger

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewBillGenerator(store TxStore, log *zap.Logger) *BillGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillGenerator{Store: store, Log: log, Now: time.Now}
}

// Generate creates the bill for houseID covering period, reading the meter
// at currentReading. Returns the persisted bill.
func (g *BillGenerator) Generate(ctx context.Context, houseID HouseID, currentReading Volume, period BillingPeriod) (Bill, error) {
	var bill Bill

	err := g.Store.WithTx(ctx, func(s Store) error {
		house, err := s.GetHouse(ctx, houseID)
		if err != nil {
			return err
		}
		if currentReading.LessThan(house.PreviousMeterReading) {
			return &ReadingRegressionError{
				HouseID:  houseID,
				Previous: house.PreviousMeterReading,
				Current:  currentReading,
			}
		}

		tariff, err := s.TariffByPanchayat(ctx, house.PanchayatID)
		if err != nil {
			return err
		}

		usage := currentReading.Sub(house.PreviousMeterReading)
		demand, err := ComputeDemand(usage, tariff, house.UsageClass)
		if err != nil {
			return err
		}

		outstanding, err := s.OutstandingBillsByHouse(ctx, houseID)
		if err != nil {
			return err
		}
		arrears := ComputeArrears(OutstandingRemainders(outstanding))

		bill, err = NewBill(
			BillID(uuid.NewString()),
			houseID,
			period,
			house.PreviousMeterReading,
			currentReading,
			demand,
			arrears,
			g.Now(),
		)
		if err != nil {
			return err
		}

		if err := s.InsertBill(ctx, bill); err != nil {
			return err
		}

		// Same transaction as the insert: the reading must never point past
		// a bill that was not persisted.
		house.PreviousMeterReading = currentReading
		return s.SaveHouse(ctx, house)
	})
	if err != nil {
		return Bill{}, err
	}

	g.Log.Info("bill generated",
		zap.String("bill_id", string(bill.ID)),
		zap.String("house_id", string(houseID)),
		zap.String("period", period.String()),
		zap.String("demand", bill.CurrentDemand.String()),
		zap.String("arrears", bill.Arrears.String()),
	)
	return bill, nil
}

// GenerateForPanchayat bills every house of a panchayat for the given period
// at their current stored reading (zero usage for houses without a fresh
// reading). Houses already billed for the period are skipped, which makes
// the operation idempotent per period. Returns the bills actually created.
func (g *BillGenerator) GenerateForPanchayat(ctx context.Context, id PanchayatID, period BillingPeriod) ([]Bill, error) {
	houses, err := g.Store.HousesByPanchayat(ctx, id)
	if err != nil {
		return nil, err
	}

	var generated []Bill
	for _, h := range houses {
		b, err := g.Generate(ctx, h.ID, h.PreviousMeterReading, period)
		if err != nil {
			if IsConflict(err) {
				continue
			}
			return generated, err
		}
		generated = append(generated, b)
	}
	return generated, nil
}

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

// PaymentLedger records collections against bills.
type PaymentLedger struct {
	Store TxStore
	Log   *zap.Logger

	Now func() time.Time
}

func NewPaymentLedger(store TxStore, log *zap.Logger) *PaymentLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentLedger{Store: store, Log: log, Now: time.Now}
}

// Collect validates and applies one payment against a bill, persisting the
// updated bill and the Payment row atomically. The bill is re-read inside
// the transaction so concurrent collections serialize on current state.
func (l *PaymentLedger) Collect(ctx context.Context, billID BillID, amount Money, mode PaymentMode, transactionRef, collectedBy string) (Bill, Payment, error) {
	if err := ValidatePaymentInput(amount, mode, transactionRef); err != nil {
		return Bill{}, Payment{}, err
	}

	payment := Payment{
		ID:             PaymentID(uuid.NewString()),
		BillID:         billID,
		Amount:         RoundMoney(amount),
		Mode:           mode,
		TransactionRef: transactionRef,
		CollectedBy:    collectedBy,
		CreatedAt:      l.Now(),
	}

	var updated Bill
	err := l.Store.WithTx(ctx, func(s Store) error {
		bill, err := s.GetBill(ctx, billID)
		if err != nil {
			return err
		}

		if !mode.IsDeferred() && payment.Amount.GreaterThan(bill.RemainingAmount) {
			l.Log.Warn("overpayment accepted",
				zap.String("bill_id", string(billID)),
				zap.String("amount", payment.Amount.String()),
				zap.String("remaining", bill.RemainingAmount.String()),
			)
		}

		updated, _, err = ApplyPayment(bill, payment.Amount, mode)
		if err != nil {
			return err
		}

		if !mode.IsDeferred() {
			if err := s.UpdateBillPayment(ctx, updated); err != nil {
				return err
			}
		}
		return s.AppendPayment(ctx, payment)
	})
	if err != nil {
		return Bill{}, Payment{}, err
	}

	l.Log.Info("payment collected",
		zap.String("bill_id", string(billID)),
		zap.String("payment_id", string(payment.ID)),
		zap.String("mode", string(mode)),
		zap.String("amount", payment.Amount.String()),
		zap.String("status", string(updated.Status)),
	)
	return updated, payment, nil
}
