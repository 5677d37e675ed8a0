/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (HTTP layer, stores) wrap or classify these.

ERROR CATEGORIES:
  1. Validation errors - Rejected input; no side effect was persisted
  2. Not-found errors  - Referenced entity doesn't exist
  3. Conflict errors   - Duplicate bill for a period
  4. Consistency errors - Defensive invariant violations (should never fire)

USAGE:
  Classify with errors.Is or the helpers:

    if billing.IsClientError(err) {
        // 400 - caller can retry with corrected input
    }

SEE ALSO:
  - bill.go: Produces validation and consistency errors
  - ledger.go: Produces conflict and not-found errors
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNegativeUsage is returned when a demand computation receives
	// negative usage.
	ErrNegativeUsage = errors.New("negative usage")

	// ErrUnknownUsageClass is returned for a usage class outside
	// {domestic, institutional, commercial, industrial}.
	ErrUnknownUsageClass = errors.New("unknown usage class")

	// ErrNegativeRate is returned when a tariff schedule carries a
	// negative per-kiloliter rate.
	ErrNegativeRate = errors.New("negative tariff rate")

	// ErrReadingRegression is returned when a current meter reading is
	// below the house's previous reading.
	ErrReadingRegression = errors.New("current reading below previous reading")

	// ErrNonPositivePayment is returned for a zero or negative payment
	// amount. pay_later is exempt: a deferral moves no money, so its
	// recorded amount may be zero.
	ErrNonPositivePayment = errors.New("payment amount must be positive")

	// ErrUnknownPaymentMode is returned for a mode outside
	// {cash, upi, online, pay_later}.
	ErrUnknownPaymentMode = errors.New("unknown payment mode")

	// ErrMissingTransactionRef is returned when a upi/online payment
	// carries no external transaction reference.
	ErrMissingTransactionRef = errors.New("transaction reference required for electronic payment")

	// ErrUnexpectedTransactionRef is returned when a cash/pay_later payment
	// carries an external transaction reference.
	ErrUnexpectedTransactionRef = errors.New("transaction reference not allowed for this mode")

	// ErrDuplicateBillPeriod is returned when a house already has a bill
	// for the requested billing period.
	ErrDuplicateBillPeriod = errors.New("bill already exists for this period")

	// ErrInvalidPeriod is returned for a malformed billing period.
	ErrInvalidPeriod = errors.New("invalid billing period")

	// Not-found sentinels.
	ErrBillNotFound      = errors.New("bill not found")
	ErrHouseNotFound     = errors.New("house not found")
	ErrVillageNotFound   = errors.New("village not found")
	ErrPanchayatNotFound = errors.New("gram panchayat not found")
	ErrTariffNotFound    = errors.New("tariff schedule not found")

	// ErrArithmeticInconsistency is returned if a bill's monetary fields
	// violate their invariants after a transition (e.g. a negative
	// remaining amount). This is defensive: ApplyPayment clamps remaining
	// at zero, so this firing indicates corrupted stored state.
	ErrArithmeticInconsistency = errors.New("bill arithmetic inconsistency")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownUsageClassError reports the class string that failed to parse.
type UnknownUsageClassError struct {
	Class string
}

func (e *UnknownUsageClassError) Error() string {
	return fmt.Sprintf("unknown usage class %q", e.Class)
}

func (e *UnknownUsageClassError) Unwrap() error { return ErrUnknownUsageClass }

// UnknownPaymentModeError reports the mode string that failed to parse.
type UnknownPaymentModeError struct {
	Mode string
}

func (e *UnknownPaymentModeError) Error() string {
	return fmt.Sprintf("unknown payment mode %q", e.Mode)
}

func (e *UnknownPaymentModeError) Unwrap() error { return ErrUnknownPaymentMode }

// ReadingRegressionError reports both readings of a rejected generation.
type ReadingRegressionError struct {
	HouseID  HouseID
	Previous Volume
	Current  Volume
}

func (e *ReadingRegressionError) Error() string {
	return fmt.Sprintf("house %s: current reading %s below previous reading %s",
		e.HouseID, e.Current, e.Previous)
}

func (e *ReadingRegressionError) Unwrap() error { return ErrReadingRegression }

// DuplicateBillError reports which bill already covers the period.
type DuplicateBillError struct {
	HouseID    HouseID
	Period     BillingPeriod
	ExistingID BillID
}

func (e *DuplicateBillError) Error() string {
	return fmt.Sprintf("house %s already billed for %s (bill %s)",
		e.HouseID, e.Period, e.ExistingID)
}

func (e *DuplicateBillError) Unwrap() error { return ErrDuplicateBillPeriod }

// ConsistencyError reports a violated bill invariant with the offending values.
type ConsistencyError struct {
	BillID    BillID
	Field     string
	Value     Money
	Invariant string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("bill %s: %s=%s violates %s", e.BillID, e.Field, e.Value, e.Invariant)
}

func (e *ConsistencyError) Unwrap() error { return ErrArithmeticInconsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
// No side effect was persisted; the caller can retry with corrected input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNegativeUsage) ||
		errors.Is(err, ErrUnknownUsageClass) ||
		errors.Is(err, ErrNegativeRate) ||
		errors.Is(err, ErrReadingRegression) ||
		errors.Is(err, ErrNonPositivePayment) ||
		errors.Is(err, ErrUnknownPaymentMode) ||
		errors.Is(err, ErrMissingTransactionRef) ||
		errors.Is(err, ErrUnexpectedTransactionRef) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsConflict returns true if the error indicates a state conflict (409).
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateBillPeriod)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBillNotFound) ||
		errors.Is(err, ErrHouseNotFound) ||
		errors.Is(err, ErrVillageNotFound) ||
		errors.Is(err, ErrPanchayatNotFound) ||
		errors.Is(err, ErrTariffNotFound)
}
