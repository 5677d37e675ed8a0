package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaldhara/billing-engine/billing"
)

func TestParsePeriod(t *testing.T) {
	p, err := billing.ParsePeriod("2025-04")
	require.NoError(t, err)
	assert.Equal(t, 2025, p.Year)
	assert.Equal(t, time.April, p.Month)
	assert.Equal(t, "2025-04", p.String())

	for _, bad := range []string{"2025", "2025-13", "04-2025", "abc", ""} {
		_, err := billing.ParsePeriod(bad)
		assert.ErrorIs(t, err, billing.ErrInvalidPeriod, "input %q", bad)
	}
}

func TestPeriod_NextPrevious_AcrossYearBoundary(t *testing.T) {
	dec, err := billing.NewPeriod(2024, time.December)
	require.NoError(t, err)

	jan := dec.Next()
	assert.Equal(t, billing.BillingPeriod{Year: 2025, Month: time.January}, jan)
	assert.Equal(t, dec, jan.Previous())
	assert.True(t, dec.Before(jan))
	assert.False(t, jan.Before(dec))
}

func TestPeriod_Validate(t *testing.T) {
	_, err := billing.NewPeriod(2025, time.Month(0))
	assert.ErrorIs(t, err, billing.ErrInvalidPeriod)

	_, err = billing.NewPeriod(1887, time.June)
	assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
}
