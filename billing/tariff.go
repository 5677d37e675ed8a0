/*
tariff.go - Tariff schedules and water-demand computation

PURPOSE:
  Converts metered usage into a currency demand. A Gram Panchayat owns one
  TariffSchedule with two branches:

    domestic:      five marginal slabs keyed by cumulative kiloliter
                   breakpoints {<=7, 7-10, 10-15, 15-20, >20}
    non-domestic:  flat per-kiloliter rate for institutional, commercial
                   and industrial connections

MARGINAL, NOT FLAT:
  Domestic usage is consumed slab by slab. 12 KL pays 7 KL at the first
  slab rate, 3 KL at the second and 2 KL at the third, never all 12 at
  one rate. Crossing a breakpoint therefore never causes a cliff in the
  bill amount.

PURITY:
  ComputeDemand has no side effects and no dependencies: same inputs,
  same output, always rounded to 2 decimal places via RoundMoney.

EXAMPLE:
  t := billing.TariffSchedule{
      Domestic:   [5]billing.Money{m(1), m(2), m(3), m(4), m(5)},
      Commercial: m(12),
  }
  demand, _ := billing.ComputeDemand(billing.NewVolume(12), t, billing.ClassDomestic)
  // demand = 7*1 + 3*2 + 2*3 = 19.00

SEE ALSO:
  - bill.go: Uses the computed demand as a bill's CurrentDemand
  - factory/tariff.go: JSON-based schedule configuration
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TARIFF SCHEDULE
// =============================================================================

// DomesticSlabCount is the number of marginal slabs in the domestic branch.
const DomesticSlabCount = 5

// domesticSlabWidths are the kiloliter widths of the first four domestic
// slabs (cumulative breakpoints 7, 10, 15, 20). The fifth slab is unbounded.
var domesticSlabWidths = [DomesticSlabCount - 1]int64{7, 3, 5, 5}

// DomesticSlabBounds returns the cumulative upper bounds of the bounded
// slabs: {7, 10, 15, 20}. Exposed for display layers.
func DomesticSlabBounds() [DomesticSlabCount - 1]int64 {
	var bounds [DomesticSlabCount - 1]int64
	var cum int64
	for i, w := range domesticSlabWidths {
		cum += w
		bounds[i] = cum
	}
	return bounds
}

// TariffSchedule is the per-panchayat rate card. All rates are
// currency-per-kiloliter and must be non-negative.
type TariffSchedule struct {
	PanchayatID PanchayatID

	// Domestic marginal slab rates, cheapest (lifeline) slab first.
	Domestic [DomesticSlabCount]Money

	// Flat rates for the non-domestic classes.
	Institutional Money
	Commercial    Money
	Industrial    Money

	EffectiveFrom time.Time
	UpdatedAt     time.Time
}

// Validate rejects schedules carrying negative rates.
func (t TariffSchedule) Validate() error {
	for _, r := range t.Domestic {
		if r.IsNegative() {
			return ErrNegativeRate
		}
	}
	for _, r := range []Money{t.Institutional, t.Commercial, t.Industrial} {
		if r.IsNegative() {
			return ErrNegativeRate
		}
	}
	return nil
}

// flatRate returns the non-domestic rate for a class, or false for domestic
// and unknown classes.
func (t TariffSchedule) flatRate(class UsageClass) (Money, bool) {
	switch class {
	case ClassInstitutional:
		return t.Institutional, true
	case ClassCommercial:
		return t.Commercial, true
	case ClassIndustrial:
		return t.Industrial, true
	}
	return Money{}, false
}

// =============================================================================
// DEMAND COMPUTATION
// =============================================================================

// ComputeDemand converts metered usage into a currency demand under the
// given schedule and usage class. Pure and deterministic; the result is
// always rounded to 2 decimal places.
func ComputeDemand(usage Volume, tariff TariffSchedule, class UsageClass) (Money, error) {
	if usage.IsNegative() {
		return Money{}, ErrNegativeUsage
	}
	if err := tariff.Validate(); err != nil {
		return Money{}, err
	}

	if class == ClassDomestic {
		return domesticDemand(usage, tariff), nil
	}
	if rate, ok := tariff.flatRate(class); ok {
		return RoundMoney(rate.Mul(usage.Value)), nil
	}
	return Money{}, &UnknownUsageClassError{Class: string(class)}
}

// domesticDemand applies the marginal slab schedule: each slab contributes
// min(slabWidth, remainingUsage) * slabRate, and the unbounded fifth slab
// absorbs whatever remains past 20 KL.
func domesticDemand(usage Volume, tariff TariffSchedule) Money {
	remaining := usage
	total := ZeroMoney()

	for i, w := range domesticSlabWidths {
		if !remaining.IsPositive() {
			break
		}
		width := Volume{Value: decimal.NewFromInt(w)}
		inSlab := remaining.Min(width)
		total = total.Add(tariff.Domestic[i].Mul(inSlab.Value))
		remaining = remaining.Sub(inSlab)
	}

	if remaining.IsPositive() {
		total = total.Add(tariff.Domestic[DomesticSlabCount-1].Mul(remaining.Value))
	}

	return RoundMoney(total)
}
