/*
Package billing provides the core water-billing engine.

PURPOSE:
  This package contains the domain types and algorithms for rural water-supply
  billing: tariff computation, bill generation, payment application and arrears
  reconciliation. A Gram Panchayat owns a tariff schedule; each house under it
  is metered, billed once per month, and pays in full, in parts, or promises to
  pay later.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount, always rounded to 2 decimal places (paise)
  - Volume: A water quantity in kiloliters (meter readings, usage)
  - House: A metered connection; its stored reading advances with every bill
  - Payment: An append-only record of one collection event against a bill
  - Entity/Bill/Payment IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in currency
  2. Single rounding point: RoundMoney is the ONLY place currency is rounded
  3. Immutability: Payments are never modified; bills mutate only via ApplyPayment
  4. Type Safety: Strong typing for IDs prevents mixing house/bill/payment IDs

USAGE:
  usage := current.Sub(previous)                 // Volume
  demand, err := billing.ComputeDemand(usage, schedule, billing.ClassDomestic)
  bill, status, err := billing.ApplyPayment(bill, amount, billing.ModeCash)

SEE ALSO:
  - tariff.go: Tariff schedules and demand computation
  - bill.go: Bill lifecycle and payment transitions
  - arrears.go: Outstanding-amount aggregation
  - ledger.go: Store-backed payment collection and bill generation
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount (rupees, 2 decimal places)
// =============================================================================

// Money is a currency amount. Arithmetic is exact (decimal, not float);
// any value produced for persistence or display must pass through RoundMoney.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money { return Money{Value: decimal.NewFromFloat(value)} }
func ZeroMoney() Money             { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(d decimal.Decimal) Money { return Money{Value: m.Value.Mul(d)} }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool          { return m.Value.Equal(o.Value) }
func (m Money) Float64() float64            { f, _ := m.Value.Float64(); return f }
func (m Money) String() string              { return m.Value.StringFixed(2) }

// RoundMoney rounds to 2 decimal places, half away from zero.
// This is the single shared rounding helper: every currency value that is
// persisted, compared against zero, or returned to a caller goes through it.
// Duplicating the rounding expression inline is a correctness hazard: if one
// copy changes and another doesn't, partial payments stop reconciling.
func RoundMoney(m Money) Money {
	return Money{Value: m.Value.Round(2)}
}

// =============================================================================
// VOLUME - Water quantity in kiloliters
// =============================================================================

// Volume is a water quantity (meter reading or usage) in kiloliters.
type Volume struct {
	Value decimal.Decimal
}

func NewVolume(kl float64) Volume { return Volume{Value: decimal.NewFromFloat(kl)} }
func ZeroVolume() Volume          { return Volume{Value: decimal.Zero} }

func (v Volume) Add(o Volume) Volume        { return Volume{Value: v.Value.Add(o.Value)} }
func (v Volume) Sub(o Volume) Volume        { return Volume{Value: v.Value.Sub(o.Value)} }
func (v Volume) IsNegative() bool           { return v.Value.IsNegative() }
func (v Volume) IsZero() bool               { return v.Value.IsZero() }
func (v Volume) IsPositive() bool           { return v.Value.IsPositive() }
func (v Volume) GreaterThan(o Volume) bool  { return v.Value.GreaterThan(o.Value) }
func (v Volume) LessThan(o Volume) bool     { return v.Value.LessThan(o.Value) }
func (v Volume) Min(o Volume) Volume        { if v.LessThan(o) { return v }; return o }
func (v Volume) Float64() float64           { f, _ := v.Value.Float64(); return f }
func (v Volume) String() string             { return v.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PanchayatID string
type VillageID string
type HouseID string
type BillID string
type PaymentID string

// =============================================================================
// USAGE CLASS - What kind of connection is being billed
// =============================================================================

// UsageClass determines which branch of the tariff applies.
// Domestic connections are billed on marginal slabs; the other three
// classes pay a flat per-kiloliter rate.
type UsageClass string

const (
	ClassDomestic      UsageClass = "domestic"
	ClassInstitutional UsageClass = "institutional"
	ClassCommercial    UsageClass = "commercial"
	ClassIndustrial    UsageClass = "industrial"
)

// ParseUsageClass validates a usage-class string.
func ParseUsageClass(s string) (UsageClass, error) {
	switch UsageClass(s) {
	case ClassDomestic, ClassInstitutional, ClassCommercial, ClassIndustrial:
		return UsageClass(s), nil
	}
	return "", &UnknownUsageClassError{Class: s}
}

// =============================================================================
// TENANCY ENTITIES - Gram Panchayat > Village > House
// =============================================================================

// GramPanchayat is the local government unit. It owns exactly one tariff
// schedule; every house under its villages is billed against it.
type GramPanchayat struct {
	ID        PanchayatID
	Name      string
	District  string
	State     string
	CreatedAt time.Time
}

// Village groups houses inside a panchayat.
type Village struct {
	ID          VillageID
	PanchayatID PanchayatID
	Name        string
	CreatedAt   time.Time
}

// House is one metered water connection.
//
// PreviousMeterReading is the reading the NEXT bill starts from. It advances
// as a side effect of bill generation and must be written in the same store
// transaction as the bill itself; a failure between the two writes would
// leave the reading pointing past a bill that was never persisted.
type House struct {
	ID                   HouseID
	VillageID            VillageID
	PanchayatID          PanchayatID
	OwnerName            string
	WaterConnectionNo    string
	UsageClass           UsageClass
	PreviousMeterReading Volume
	CreatedAt            time.Time
}

// =============================================================================
// PAYMENT - Append-only record of one collection event
// =============================================================================

// PaymentMode is how the money moved (or, for pay_later, didn't).
type PaymentMode string

const (
	ModeCash     PaymentMode = "cash"
	ModeUPI      PaymentMode = "upi"
	ModeOnline   PaymentMode = "online"
	ModePayLater PaymentMode = "pay_later"
)

// ParsePaymentMode validates a payment-mode string.
func ParsePaymentMode(s string) (PaymentMode, error) {
	switch PaymentMode(s) {
	case ModeCash, ModeUPI, ModeOnline, ModePayLater:
		return PaymentMode(s), nil
	}
	return "", &UnknownPaymentModeError{Mode: s}
}

// IsDeferred reports whether this mode records intent without moving money.
func (m PaymentMode) IsDeferred() bool { return m == ModePayLater }

// RequiresTransactionRef reports whether an external transaction reference
// is mandatory for this mode. Electronic modes must carry one; cash and
// pay_later must not.
func (m PaymentMode) RequiresTransactionRef() bool { return m == ModeUPI || m == ModeOnline }

// Payment is one collection event against a bill. Payments are append-only:
// never updated, never deleted. A bill's PaidAmount is the running sum of its
// non-deferred payments, maintained incrementally by ApplyPayment.
type Payment struct {
	ID             PaymentID
	BillID         BillID
	Amount         Money
	Mode           PaymentMode
	TransactionRef string // required for upi/online, empty for cash/pay_later
	CollectedBy    string // biller who recorded the collection
	CreatedAt      time.Time
}
