/*
bill.go - Bill lifecycle and payment transitions

PURPOSE:
  A Bill is one billing-period invoice for one house. This file defines the
  type, its creation rules, and the single deterministic transition function
  that payments drive it through.

STATE MACHINE:
  pending  (initial; PaidAmount = 0)
  partial  (0 < PaidAmount < TotalAmount)
  paid     (PaidAmount >= TotalAmount; RemainingAmount clamped to 0)

  No state is terminal: a paid bill still accepts further payment rows if a
  biller insists. RemainingAmount floors at 0 while PaidAmount keeps
  accumulating, so an overpaid bill shows PaidAmount > TotalAmount.

TRANSITION RULE (mode != pay_later):
  paid'      = round2(paid + amount)
  remaining' = round2(max(0, total - paid'))
  status'    = paid      if remaining' == 0
               partial   if paid' > 0
               pending   otherwise

  Rounding is applied BEFORE the zero check. A payment exactly equal to the
  remaining amount must land on paid, not leave a one-paisa partial bill
  behind from float residue.

PAY LATER:
  pay_later records the Payment as a promise-to-pay annotation and performs
  none of the above mutations. The bill's monetary fields and status are
  byte-identical before and after. Because no money moves, the positive-
  amount rule does not apply to it either: a zero-amount deferral is a
  valid "came by, couldn't pay" record.

IMMUTABILITY:
  After creation, only PaidAmount/RemainingAmount/Status ever change, and
  only through ApplyPayment. Arrears is a snapshot frozen at creation;
  later payments against older bills never rewrite it.

SEE ALSO:
  - arrears.go: How the frozen Arrears figure is computed
  - ledger.go: Store-backed collection that persists the transition
*/
package billing

import "time"

// =============================================================================
// BILL STATUS
// =============================================================================

type BillStatus string

const (
	StatusPending BillStatus = "pending"
	StatusPartial BillStatus = "partial"
	StatusPaid    BillStatus = "paid"
)

// IsOutstanding reports whether the bill still contributes to arrears.
func (s BillStatus) IsOutstanding() bool { return s == StatusPending || s == StatusPartial }

// statusFor derives the status from already-rounded monetary fields.
// This is the single derivation point; nothing else assigns Status.
func statusFor(paid, remaining Money) BillStatus {
	if remaining.IsZero() {
		return StatusPaid
	}
	if paid.IsPositive() {
		return StatusPartial
	}
	return StatusPending
}

// =============================================================================
// BILL
// =============================================================================

// Bill is one billing-period invoice for one house.
type Bill struct {
	ID      BillID
	HouseID HouseID
	Period  BillingPeriod

	// Meter readings. CurrentReading >= PreviousReading, enforced at creation.
	PreviousReading Volume
	CurrentReading  Volume
	TotalUsage      Volume // CurrentReading - PreviousReading

	// Monetary fields, all rounded to 2 decimal places.
	CurrentDemand Money // tariff output for TotalUsage
	Arrears       Money // outstanding remainder of older bills, frozen at creation
	TotalAmount   Money // CurrentDemand + Arrears

	// Mutated only by ApplyPayment.
	PaidAmount      Money // monotonically non-decreasing
	RemainingAmount Money // max(0, TotalAmount - PaidAmount)
	Status          BillStatus

	GeneratedAt time.Time
}

// NewBill assembles a bill from validated inputs. It always enters pending
// with nothing paid; even when arrears alone make it overdue from birth,
// it is never pre-marked partial or paid.
func NewBill(id BillID, houseID HouseID, period BillingPeriod, previous, current Volume, demand, arrears Money, at time.Time) (Bill, error) {
	if current.LessThan(previous) {
		return Bill{}, &ReadingRegressionError{HouseID: houseID, Previous: previous, Current: current}
	}
	if err := period.Validate(); err != nil {
		return Bill{}, err
	}

	demand = RoundMoney(demand)
	arrears = RoundMoney(arrears)
	total := RoundMoney(demand.Add(arrears))

	return Bill{
		ID:              id,
		HouseID:         houseID,
		Period:          period,
		PreviousReading: previous,
		CurrentReading:  current,
		TotalUsage:      current.Sub(previous),
		CurrentDemand:   demand,
		Arrears:         arrears,
		TotalAmount:     total,
		PaidAmount:      ZeroMoney(),
		RemainingAmount: total,
		Status:          StatusPending,
		GeneratedAt:     at,
	}, nil
}

// =============================================================================
// PAYMENT APPLICATION
// =============================================================================

// ValidatePaymentInput checks a payment's amount, mode and transaction
// reference before anything is applied or persisted.
func ValidatePaymentInput(amount Money, mode PaymentMode, transactionRef string) error {
	if _, err := ParsePaymentMode(string(mode)); err != nil {
		return err
	}
	if !mode.IsDeferred() && !amount.IsPositive() {
		return ErrNonPositivePayment
	}
	if mode.RequiresTransactionRef() && transactionRef == "" {
		return ErrMissingTransactionRef
	}
	if !mode.RequiresTransactionRef() && transactionRef != "" {
		return ErrUnexpectedTransactionRef
	}
	return nil
}

// ApplyPayment returns the bill after one payment event plus its resulting
// status. Value semantics: the input bill is not mutated. The caller decides
// whether the result is persisted (and must do so atomically with the
// Payment row).
//
// pay_later is a no-op on the bill: the returned bill equals the input.
func ApplyPayment(b Bill, amount Money, mode PaymentMode) (Bill, BillStatus, error) {
	if _, err := ParsePaymentMode(string(mode)); err != nil {
		return b, b.Status, err
	}
	if mode.IsDeferred() {
		return b, b.Status, nil
	}
	if !amount.IsPositive() {
		return b, b.Status, ErrNonPositivePayment
	}

	paid := RoundMoney(b.PaidAmount.Add(amount))
	remaining := RoundMoney(b.TotalAmount.Sub(paid))
	if remaining.IsNegative() {
		remaining = ZeroMoney() // overpayment: clamp, keep accumulating paid
	}

	b.PaidAmount = paid
	b.RemainingAmount = remaining
	b.Status = statusFor(paid, remaining)

	if err := b.CheckConsistency(); err != nil {
		return b, b.Status, err
	}
	return b, b.Status, nil
}

// CheckConsistency verifies the bill's monetary invariants. ApplyPayment
// already clamps and rounds, so a failure here means stored state was
// corrupted outside the transition function.
func (b Bill) CheckConsistency() error {
	if b.RemainingAmount.IsNegative() {
		return &ConsistencyError{BillID: b.ID, Field: "remaining_amount", Value: b.RemainingAmount, Invariant: "remaining >= 0"}
	}
	if b.PaidAmount.IsNegative() {
		return &ConsistencyError{BillID: b.ID, Field: "paid_amount", Value: b.PaidAmount, Invariant: "paid >= 0"}
	}
	expected := RoundMoney(b.TotalAmount.Sub(b.PaidAmount))
	if expected.IsNegative() {
		expected = ZeroMoney()
	}
	if !b.RemainingAmount.Equal(expected) {
		return &ConsistencyError{BillID: b.ID, Field: "remaining_amount", Value: b.RemainingAmount, Invariant: "remaining == max(0, total - paid)"}
	}
	return nil
}
