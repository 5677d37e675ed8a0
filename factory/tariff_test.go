package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaldhara/billing-engine/billing"
	"github.com/jaldhara/billing-engine/factory"
)

const validTariffJSON = `{
	"panchayat_id": "gp-test",
	"domestic": {"slab_rates": [2.50, 4.00, 6.00, 8.00, 10.00]},
	"non_domestic": {"institutional": 12.00, "commercial": 15.00, "industrial": 20.00},
	"effective_from": "2025-04-01"
}`

func TestTariffFactory_Parse_Valid(t *testing.T) {
	f := factory.NewTariffFactory()

	schedule, err := f.Parse(validTariffJSON)
	require.NoError(t, err)

	assert.Equal(t, billing.PanchayatID("gp-test"), schedule.PanchayatID)
	assert.Equal(t, "2.50", schedule.Domestic[0].String())
	assert.Equal(t, "10.00", schedule.Domestic[4].String())
	assert.Equal(t, "12.00", schedule.Institutional.String())
	assert.Equal(t, "15.00", schedule.Commercial.String())
	assert.Equal(t, "20.00", schedule.Industrial.String())
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), schedule.EffectiveFrom)
}

func TestTariffFactory_Parse_ProducesComputableSchedule(t *testing.T) {
	// The parsed schedule feeds straight into demand computation.
	f := factory.NewTariffFactory()
	schedule, err := f.Parse(validTariffJSON)
	require.NoError(t, err)

	// 12 KL domestic: 7*2.50 + 3*4 + 2*6 = 41.50
	demand, err := billing.ComputeDemand(billing.NewVolume(12), schedule, billing.ClassDomestic)
	require.NoError(t, err)
	assert.Equal(t, "41.50", demand.String())
}

func TestTariffFactory_Parse_Invalid(t *testing.T) {
	f := factory.NewTariffFactory()

	cases := []struct {
		name string
		json string
	}{
		{"malformed json", `{`},
		{"missing panchayat", `{"domestic": {"slab_rates": [1,2,3,4,5]}}`},
		{"four slabs", `{"panchayat_id": "gp", "domestic": {"slab_rates": [1,2,3,4]}}`},
		{"six slabs", `{"panchayat_id": "gp", "domestic": {"slab_rates": [1,2,3,4,5,6]}}`},
		{"bad effective_from", `{"panchayat_id": "gp", "domestic": {"slab_rates": [1,2,3,4,5]}, "effective_from": "01-04-2025"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Parse(tc.json)
			assert.Error(t, err)
		})
	}
}

func TestTariffFactory_NegativeRate_Rejected(t *testing.T) {
	f := factory.NewTariffFactory()

	_, err := f.Parse(`{
		"panchayat_id": "gp-test",
		"domestic": {"slab_rates": [2.50, 4.00, -6.00, 8.00, 10.00]}
	}`)
	assert.ErrorIs(t, err, billing.ErrNegativeRate)

	_, err = f.Parse(`{
		"panchayat_id": "gp-test",
		"domestic": {"slab_rates": [1, 2, 3, 4, 5]},
		"non_domestic": {"commercial": -15}
	}`)
	assert.ErrorIs(t, err, billing.ErrNegativeRate)
}

func TestTariffFactory_EffectiveFromDefaultsToNow(t *testing.T) {
	f := factory.NewTariffFactory()

	schedule, err := f.Parse(`{
		"panchayat_id": "gp-test",
		"domestic": {"slab_rates": [1, 2, 3, 4, 5]}
	}`)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), schedule.EffectiveFrom, time.Minute)
}

func TestToConfig_RoundTrip(t *testing.T) {
	f := factory.NewTariffFactory()
	schedule, err := f.Parse(validTariffJSON)
	require.NoError(t, err)

	cfg := factory.ToConfig(schedule)
	assert.Equal(t, "gp-test", cfg.PanchayatID)
	assert.Equal(t, []float64{2.5, 4, 6, 8, 10}, cfg.Domestic.SlabRates)
	assert.Equal(t, 15.0, cfg.NonDomestic.Commercial)
	assert.Equal(t, "2025-04-01", cfg.EffectiveFrom)

	back, err := f.FromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, back.Domestic[0].Equal(schedule.Domestic[0]))
	assert.True(t, back.Industrial.Equal(schedule.Industrial))
}
