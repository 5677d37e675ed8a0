package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// BILLING PERIOD - One calendar month, the unit of bill generation
// =============================================================================

// BillingPeriod identifies the month a bill covers. A house gets at most one
// bill per period; the (HouseID, BillingPeriod) pair is unique.
type BillingPeriod struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the billing period containing t.
func PeriodOf(t time.Time) BillingPeriod {
	return BillingPeriod{Year: t.Year(), Month: t.Month()}
}

// CurrentPeriod returns the billing period for the current month.
func CurrentPeriod() BillingPeriod { return PeriodOf(time.Now()) }

// NewPeriod validates and constructs a billing period.
func NewPeriod(year int, month time.Month) (BillingPeriod, error) {
	p := BillingPeriod{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return BillingPeriod{}, err
	}
	return p, nil
}

// ParsePeriod parses "2006-01" into a billing period.
func ParsePeriod(s string) (BillingPeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return BillingPeriod{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

// Validate rejects impossible months and implausible years.
func (p BillingPeriod) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	if p.Year < 2000 || p.Year > 2200 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// Next returns the following month's period.
func (p BillingPeriod) Next() BillingPeriod {
	if p.Month == time.December {
		return BillingPeriod{Year: p.Year + 1, Month: time.January}
	}
	return BillingPeriod{Year: p.Year, Month: p.Month + 1}
}

// Previous returns the preceding month's period.
func (p BillingPeriod) Previous() BillingPeriod {
	if p.Month == time.January {
		return BillingPeriod{Year: p.Year - 1, Month: time.December}
	}
	return BillingPeriod{Year: p.Year, Month: p.Month - 1}
}

// Before reports whether p is chronologically before o.
func (p BillingPeriod) Before(o BillingPeriod) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Start returns midnight UTC on the first day of the period.
func (p BillingPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String formats the period as "2006-01". This is also the storage key.
func (p BillingPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
