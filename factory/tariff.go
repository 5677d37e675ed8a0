/*
Package factory provides JSON to Go tariff-schedule conversion.

PURPOSE:
  Converts JSON tariff definitions into billing.TariffSchedule values. This
  lets a Gram Panchayat's rate card be configured without code changes: the
  admin UI submits JSON, the factory validates it and produces the schedule
  the engine computes against.

JSON SCHEMA:
  {
    "panchayat_id": "gp-chikkaballapur",
    "domestic": {
      "slab_rates": [2.50, 4.00, 6.00, 8.00, 10.00]
    },
    "non_domestic": {
      "institutional": 12.00,
      "commercial": 15.00,
      "industrial": 20.00
    },
    "effective_from": "2025-04-01"
  }

KEY FEATURES:
  - Exactly five domestic slab rates, cheapest first
  - Rejects negative rates anywhere
  - effective_from optional; defaults to now

USAGE:
  f := factory.NewTariffFactory()
  schedule, err := f.Parse(jsonString)

SEE ALSO:
  - billing/tariff.go: TariffSchedule and demand computation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaldhara/billing-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TariffJSON is the JSON representation of a tariff schedule.
type TariffJSON struct {
	PanchayatID   string           `json:"panchayat_id"`
	Domestic      DomesticJSON     `json:"domestic"`
	NonDomestic   NonDomesticJSON  `json:"non_domestic"`
	EffectiveFrom string           `json:"effective_from,omitempty"` // YYYY-MM-DD
}

// DomesticJSON carries the marginal slab rates for residential connections.
type DomesticJSON struct {
	SlabRates []float64 `json:"slab_rates"` // exactly 5, cheapest slab first
}

// NonDomesticJSON carries the flat per-kiloliter rates.
type NonDomesticJSON struct {
	Institutional float64 `json:"institutional"`
	Commercial    float64 `json:"commercial"`
	Industrial    float64 `json:"industrial"`
}

// =============================================================================
// TARIFF FACTORY
// =============================================================================

type TariffFactory struct{}

func NewTariffFactory() *TariffFactory { return &TariffFactory{} }

// Parse converts a JSON tariff definition into a validated schedule.
func (f *TariffFactory) Parse(jsonStr string) (billing.TariffSchedule, error) {
	var cfg TariffJSON
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return billing.TariffSchedule{}, fmt.Errorf("invalid tariff JSON: %w", err)
	}
	return f.FromConfig(cfg)
}

// FromConfig converts an already-decoded config into a validated schedule.
func (f *TariffFactory) FromConfig(cfg TariffJSON) (billing.TariffSchedule, error) {
	if cfg.PanchayatID == "" {
		return billing.TariffSchedule{}, fmt.Errorf("tariff config: panchayat_id is required")
	}
	if got := len(cfg.Domestic.SlabRates); got != billing.DomesticSlabCount {
		return billing.TariffSchedule{}, fmt.Errorf("tariff config: expected %d domestic slab rates, got %d",
			billing.DomesticSlabCount, got)
	}

	schedule := billing.TariffSchedule{
		PanchayatID:   billing.PanchayatID(cfg.PanchayatID),
		Institutional: billing.NewMoney(cfg.NonDomestic.Institutional),
		Commercial:    billing.NewMoney(cfg.NonDomestic.Commercial),
		Industrial:    billing.NewMoney(cfg.NonDomestic.Industrial),
		EffectiveFrom: time.Now().UTC(),
	}
	for i, r := range cfg.Domestic.SlabRates {
		schedule.Domestic[i] = billing.NewMoney(r)
	}

	if cfg.EffectiveFrom != "" {
		t, err := time.Parse("2006-01-02", cfg.EffectiveFrom)
		if err != nil {
			return billing.TariffSchedule{}, fmt.Errorf("tariff config: invalid effective_from %q (use YYYY-MM-DD)", cfg.EffectiveFrom)
		}
		schedule.EffectiveFrom = t
	}

	if err := schedule.Validate(); err != nil {
		return billing.TariffSchedule{}, fmt.Errorf("tariff config: %w", err)
	}
	return schedule, nil
}

// ToConfig converts a schedule back to its JSON representation, for the
// admin API's read side.
func ToConfig(t billing.TariffSchedule) TariffJSON {
	cfg := TariffJSON{
		PanchayatID: string(t.PanchayatID),
		NonDomestic: NonDomesticJSON{
			Institutional: t.Institutional.Float64(),
			Commercial:    t.Commercial.Float64(),
			Industrial:    t.Industrial.Float64(),
		},
	}
	cfg.Domestic.SlabRates = make([]float64, billing.DomesticSlabCount)
	for i, r := range t.Domestic {
		cfg.Domestic.SlabRates[i] = r.Float64()
	}
	if !t.EffectiveFrom.IsZero() {
		cfg.EffectiveFrom = t.EffectiveFrom.Format("2006-01-02")
	}
	return cfg
}
