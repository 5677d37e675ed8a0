/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a Gram Panchayat,
	villages, houses and a tariff, then runs billing and collections that
	demonstrate specific engine behavior.

AVAILABLE SCENARIOS:

	village-basics: One village, domestic houses, first billing month
	arrears-cycle:  Two billing months with partial payments carrying forward
	mixed-classes:  Domestic slabs alongside flat-rate connections

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create panchayat, villages, houses
 3. Install a tariff via the factory
 4. Generate bills at realistic meter readings
 5. Collect payments (full, partial, pay_later)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "arrears-cycle"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/tariff.go: Tariff JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jaldhara/billing-engine/billing"
)

var decimalHalf = decimal.NewFromFloat(0.5)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "village-basics",
		Name:        "Village Basics",
		Description: "One village of domestic connections through their first billing month",
	},
	{
		ID:          "arrears-cycle",
		Name:        "Arrears Cycle",
		Description: "Two billing months with partial payments carried into arrears",
	},
	{
		ID:          "mixed-classes",
		Name:        "Mixed Usage Classes",
		Description: "Domestic slab billing alongside flat-rate commercial and institutional connections",
	},
}

// resetter is implemented by stores that can wipe themselves. Reset is a
// dev/demo concern and deliberately not part of the Store contract.
type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:   h.currentScenario,
		Name: h.currentScenario,
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "village-basics":
		err = h.loadVillageBasicsScenario(ctx)
	case "arrears-cycle":
		err = h.loadArrearsCycleScenario(ctx)
	case "mixed-classes":
		err = h.loadMixedClassesScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", errScenarioUnknown)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Log.Info("scenario loaded", zap.String("scenario_id", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	return rs.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// baseTenancy creates the panchayat, one village and the standard demo
// tariff (slabs 2.50/4/6/8/10, flat 12/15/20), returning the village ID.
func (h *Handler) baseTenancy(ctx context.Context) (billing.VillageID, error) {
	gp := billing.GramPanchayat{
		ID:       "gp-demo",
		Name:     "Hulikere Gram Panchayat",
		District: "Mandya",
		State:    "Karnataka",
	}
	if err := h.Store.SavePanchayat(ctx, gp); err != nil {
		return "", err
	}

	village := billing.Village{
		ID:          "vil-hulikere",
		PanchayatID: gp.ID,
		Name:        "Hulikere",
	}
	if err := h.Store.SaveVillage(ctx, village); err != nil {
		return "", err
	}

	tariff, err := h.Tariffs.Parse(`{
		"panchayat_id": "gp-demo",
		"domestic": {"slab_rates": [2.50, 4.00, 6.00, 8.00, 10.00]},
		"non_domestic": {"institutional": 12.00, "commercial": 15.00, "industrial": 20.00}
	}`)
	if err != nil {
		return "", err
	}
	if err := h.Store.SaveTariff(ctx, tariff); err != nil {
		return "", err
	}
	return village.ID, nil
}

func (h *Handler) addHouse(ctx context.Context, villageID billing.VillageID, owner string, class billing.UsageClass, reading float64) (billing.HouseID, error) {
	house := billing.House{
		ID:                   billing.HouseID(newID("house")),
		VillageID:            villageID,
		PanchayatID:          "gp-demo",
		OwnerName:            owner,
		UsageClass:           class,
		PreviousMeterReading: billing.NewVolume(reading),
	}
	return house.ID, h.Store.SaveHouse(ctx, house)
}

// loadVillageBasicsScenario: four domestic houses billed for last month,
// one paid in full, one partially, one deferred.
func (h *Handler) loadVillageBasicsScenario(ctx context.Context) error {
	villageID, err := h.baseTenancy(ctx)
	if err != nil {
		return err
	}

	period := billing.CurrentPeriod().Previous()

	owners := []struct {
		name    string
		start   float64
		reading float64
	}{
		{"Lakshmamma", 0, 6},   // inside the free-ish first slab
		{"Siddappa", 100, 112}, // crosses into the third slab
		{"Gowramma", 40, 65},   // heavy usage, all five slabs
		{"Ravi Kumar", 0, 0},   // no consumption yet
	}

	var bills []billing.Bill
	for _, o := range owners {
		houseID, err := h.addHouse(ctx, villageID, o.name, billing.ClassDomestic, o.start)
		if err != nil {
			return err
		}
		bill, err := h.Generator.Generate(ctx, houseID, billing.NewVolume(o.reading), period)
		if err != nil {
			return err
		}
		bills = append(bills, bill)
	}

	// Full payment, partial payment, pay-later promise.
	if _, _, err := h.Ledger.Collect(ctx, bills[0].ID, bills[0].TotalAmount, billing.ModeCash, "", "collector-demo"); err != nil {
		return err
	}
	if _, _, err := h.Ledger.Collect(ctx, bills[1].ID, billing.NewMoney(10), billing.ModeUPI, "UPI-DEMO-001", "collector-demo"); err != nil {
		return err
	}
	if _, _, err := h.Ledger.Collect(ctx, bills[2].ID, billing.NewMoney(50), billing.ModePayLater, "", "collector-demo"); err != nil {
		return err
	}
	return nil
}

// loadArrearsCycleScenario: bills two consecutive months so the unpaid
// remainder of month one shows up frozen as arrears on month two.
func (h *Handler) loadArrearsCycleScenario(ctx context.Context) error {
	villageID, err := h.baseTenancy(ctx)
	if err != nil {
		return err
	}

	monthTwo := billing.CurrentPeriod().Previous()
	monthOne := monthTwo.Previous()

	houseID, err := h.addHouse(ctx, villageID, "Nagaraju", billing.ClassDomestic, 0)
	if err != nil {
		return err
	}

	// Month one: 12 KL used, only half the bill collected.
	first, err := h.Generator.Generate(ctx, houseID, billing.NewVolume(12), monthOne)
	if err != nil {
		return err
	}
	half := billing.RoundMoney(first.TotalAmount.Mul(decimalHalf))
	if _, _, err := h.Ledger.Collect(ctx, first.ID, half, billing.ModeCash, "", "collector-demo"); err != nil {
		return err
	}

	// Month two: the remaining half arrives as arrears on the new bill.
	if _, err := h.Generator.Generate(ctx, houseID, billing.NewVolume(21), monthTwo); err != nil {
		return err
	}

	// A neighbor who never pays, for the defaulter report.
	neighborID, err := h.addHouse(ctx, villageID, "Basavaraj", billing.ClassDomestic, 0)
	if err != nil {
		return err
	}
	if _, err := h.Generator.Generate(ctx, neighborID, billing.NewVolume(18), monthOne); err != nil {
		return err
	}
	if _, err := h.Generator.Generate(ctx, neighborID, billing.NewVolume(30), monthTwo); err != nil {
		return err
	}
	return nil
}

// loadMixedClassesScenario: one house per usage class billed for the same
// month, showing slab versus flat-rate demand side by side.
func (h *Handler) loadMixedClassesScenario(ctx context.Context) error {
	villageID, err := h.baseTenancy(ctx)
	if err != nil {
		return err
	}

	period := billing.CurrentPeriod().Previous()

	connections := []struct {
		name    string
		class   billing.UsageClass
		reading float64
	}{
		{"Manjula", billing.ClassDomestic, 15},
		{"Govt Primary School", billing.ClassInstitutional, 40},
		{"Hulikere Tea Stall", billing.ClassCommercial, 25},
		{"Rice Mill", billing.ClassIndustrial, 120},
	}

	for _, c := range connections {
		houseID, err := h.addHouse(ctx, villageID, c.name, c.class, 0)
		if err != nil {
			return err
		}
		if _, err := h.Generator.Generate(ctx, houseID, billing.NewVolume(c.reading), period); err != nil {
			return err
		}
	}
	return nil
}
