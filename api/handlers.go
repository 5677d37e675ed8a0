/*
handlers.go - HTTP API handlers for the water billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Panchayats:
    GET    /api/panchayats                     List Gram Panchayats
    POST   /api/panchayats                     Register a Gram Panchayat
    GET    /api/panchayats/{id}                Get one panchayat
    GET    /api/panchayats/{id}/tariff         Get the rate card
    PUT    /api/panchayats/{id}/tariff         Set the rate card
    GET    /api/panchayats/{id}/villages       List villages
    GET    /api/panchayats/{id}/bills          All bills under the panchayat
    POST   /api/panchayats/{id}/bills/generate Bill every house for a period
    GET    /api/panchayats/{id}/summary        Collection summary
    GET    /api/panchayats/{id}/defaulters     Houses with money outstanding

  Villages:
    POST   /api/villages                       Register a village
    GET    /api/villages/{id}/houses           Houses in a village
    GET    /api/villages/{id}/summary          Per-village collection summary

  Houses:
    POST   /api/houses                         Register a house
    GET    /api/houses/{id}                    Get one house
    GET    /api/houses/{id}/bills              Bill history
    POST   /api/houses/{id}/bills              Generate a bill at a reading

  Bills:
    GET    /api/bills/{id}                     Get one bill
    GET    /api/bills/{id}/payments            Payment history
    POST   /api/bills/{id}/payments            Record a collection

  Scenarios:
    GET    /api/scenarios                      List demo scenarios
    POST   /api/scenarios/load                 Load a demo scenario
    POST   /api/scenarios/reset                Wipe the database

ERROR HANDLING:
  Domain errors map to HTTP status via the billing error classifiers:
  - 400: Validation errors, invalid input (IsClientError)
  - 404: Entity not found (IsNotFound)
  - 409: Duplicate bill for house+period (IsConflict)
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaldhara/billing-engine/billing"
	"github.com/jaldhara/billing-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     billing.TxStore
	Generator *billing.BillGenerator
	Ledger    *billing.PaymentLedger
	Tariffs   *factory.TariffFactory
	Log       *zap.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a handler wired to the given store.
func NewHandler(store billing.TxStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Generator: billing.NewBillGenerator(store, log),
		Ledger:    billing.NewPaymentLedger(store, log),
		Tariffs:   factory.NewTariffFactory(),
		Log:       log,
		validate:  validator.New(),
	}
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. On failure it writes the 400 response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// PANCHAYAT HANDLERS
// =============================================================================

// ListPanchayats returns all Gram Panchayats.
func (h *Handler) ListPanchayats(w http.ResponseWriter, r *http.Request) {
	panchayats, err := h.Store.ListPanchayats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list panchayats", err)
		return
	}

	dtos := make([]PanchayatDTO, len(panchayats))
	for i, gp := range panchayats {
		dtos[i] = toPanchayatDTO(gp)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePanchayat registers a Gram Panchayat.
func (h *Handler) CreatePanchayat(w http.ResponseWriter, r *http.Request) {
	var req CreatePanchayatRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	gp := billing.GramPanchayat{
		ID:       billing.PanchayatID(req.ID),
		Name:     req.Name,
		District: req.District,
		State:    req.State,
	}
	if err := h.Store.SavePanchayat(r.Context(), gp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create panchayat", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPanchayatDTO(gp))
}

// GetPanchayat returns a single Gram Panchayat.
func (h *Handler) GetPanchayat(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	gp, err := h.Store.GetPanchayat(r.Context(), id)
	if err != nil {
		respondDomainError(w, "Failed to get panchayat", err)
		return
	}
	writeJSON(w, http.StatusOK, toPanchayatDTO(gp))
}

// GetTariff returns the panchayat's rate card.
func (h *Handler) GetTariff(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	t, err := h.Store.TariffByPanchayat(r.Context(), id)
	if err != nil {
		respondDomainError(w, "Failed to get tariff", err)
		return
	}

	dto := TariffDTO{Config: factory.ToConfig(t)}
	if !t.UpdatedAt.IsZero() {
		dto.UpdatedAt = t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, http.StatusOK, dto)
}

// PutTariff sets the panchayat's rate card.
func (h *Handler) PutTariff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PutTariffRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	req.Config.PanchayatID = id

	schedule, err := h.Tariffs.FromConfig(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tariff configuration", err)
		return
	}

	if _, err := h.Store.GetPanchayat(r.Context(), schedule.PanchayatID); err != nil {
		respondDomainError(w, "Failed to get panchayat", err)
		return
	}
	if err := h.Store.SaveTariff(r.Context(), schedule); err != nil {
		respondDomainError(w, "Failed to save tariff", err)
		return
	}

	h.Log.Info("tariff updated", zap.String("panchayat_id", id))
	writeJSON(w, http.StatusOK, TariffDTO{Config: factory.ToConfig(schedule)})
}

// ListVillages returns the villages of a panchayat.
func (h *Handler) ListVillages(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	villages, err := h.Store.VillagesByPanchayat(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list villages", err)
		return
	}

	dtos := make([]VillageDTO, len(villages))
	for i, v := range villages {
		dtos[i] = toVillageDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// VILLAGE HANDLERS
// =============================================================================

// CreateVillage registers a village under a panchayat.
func (h *Handler) CreateVillage(w http.ResponseWriter, r *http.Request) {
	var req CreateVillageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// The parent must exist; villages are never orphaned.
	if _, err := h.Store.GetPanchayat(r.Context(), billing.PanchayatID(req.PanchayatID)); err != nil {
		respondDomainError(w, "Failed to get panchayat", err)
		return
	}

	v := billing.Village{
		ID:          billing.VillageID(req.ID),
		PanchayatID: billing.PanchayatID(req.PanchayatID),
		Name:        req.Name,
	}
	if err := h.Store.SaveVillage(r.Context(), v); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create village", err)
		return
	}

	writeJSON(w, http.StatusCreated, toVillageDTO(v))
}

// ListHousesByVillage returns the houses of a village.
func (h *Handler) ListHousesByVillage(w http.ResponseWriter, r *http.Request) {
	id := billing.VillageID(chi.URLParam(r, "id"))

	houses, err := h.Store.HousesByVillage(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list houses", err)
		return
	}

	dtos := make([]HouseDTO, len(houses))
	for i, house := range houses {
		dtos[i] = toHouseDTO(house)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HOUSE HANDLERS
// =============================================================================

// CreateHouse registers a metered connection.
func (h *Handler) CreateHouse(w http.ResponseWriter, r *http.Request) {
	var req CreateHouseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	class, err := billing.ParseUsageClass(req.UsageClass)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid usage class", err)
		return
	}

	village, err := h.Store.GetVillage(r.Context(), billing.VillageID(req.VillageID))
	if err != nil {
		respondDomainError(w, "Failed to get village", err)
		return
	}

	house := billing.House{
		ID:                   billing.HouseID(req.ID),
		VillageID:            village.ID,
		PanchayatID:          village.PanchayatID,
		OwnerName:            req.OwnerName,
		WaterConnectionNo:    req.WaterConnectionNo,
		UsageClass:           class,
		PreviousMeterReading: billing.NewVolume(req.InitialReading),
	}
	if err := h.Store.SaveHouse(r.Context(), house); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create house", err)
		return
	}

	writeJSON(w, http.StatusCreated, toHouseDTO(house))
}

// GetHouse returns a single house.
func (h *Handler) GetHouse(w http.ResponseWriter, r *http.Request) {
	id := billing.HouseID(chi.URLParam(r, "id"))

	house, err := h.Store.GetHouse(r.Context(), id)
	if err != nil {
		respondDomainError(w, "Failed to get house", err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseDTO(house))
}

// GetHouseBills returns the bill history of a house, oldest first.
func (h *Handler) GetHouseBills(w http.ResponseWriter, r *http.Request) {
	id := billing.HouseID(chi.URLParam(r, "id"))

	bills, err := h.Store.BillsByHouse(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTOs(bills))
}

// GenerateBill creates the bill for one house at a fresh meter reading.
// POST /api/houses/{id}/bills
func (h *Handler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	id := billing.HouseID(chi.URLParam(r, "id"))

	var req GenerateBillRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	bill, err := h.Generator.Generate(r.Context(), id, billing.NewVolume(req.CurrentReading), period)
	if err != nil {
		respondDomainError(w, "Failed to generate bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillDTO(bill))
}

// =============================================================================
// BILL HANDLERS
// =============================================================================

// GetBill returns a single bill.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	id := billing.BillID(chi.URLParam(r, "id"))

	bill, err := h.Store.GetBill(r.Context(), id)
	if err != nil {
		respondDomainError(w, "Failed to get bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(bill))
}

// GetBillPayments returns the payment history of a bill, oldest first.
func (h *Handler) GetBillPayments(w http.ResponseWriter, r *http.Request) {
	id := billing.BillID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetBill(r.Context(), id); err != nil {
		respondDomainError(w, "Failed to get bill", err)
		return
	}

	payments, err := h.Store.PaymentsByBill(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CollectPayment records one collection event against a bill.
// POST /api/bills/{id}/payments
func (h *Handler) CollectPayment(w http.ResponseWriter, r *http.Request) {
	id := billing.BillID(chi.URLParam(r, "id"))

	var req CollectPaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	mode, err := billing.ParsePaymentMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment mode", err)
		return
	}

	bill, payment, err := h.Ledger.Collect(r.Context(), id,
		billing.NewMoney(req.Amount), mode, req.TransactionRef, req.CollectedBy)
	if err != nil {
		respondDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, CollectResponseDTO{
		Bill:    toBillDTO(bill),
		Payment: toPaymentDTO(payment),
	})
}

// =============================================================================
// BILLING RUN + REPORTS
// =============================================================================

// GenerateRun bills every house of a panchayat for a period at its stored
// reading. Houses already billed for the period are skipped.
// POST /api/panchayats/{id}/bills/generate
func (h *Handler) GenerateRun(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	var req GenerateRunRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	if _, err := h.Store.GetPanchayat(r.Context(), id); err != nil {
		respondDomainError(w, "Failed to get panchayat", err)
		return
	}

	bills, err := h.Generator.GenerateForPanchayat(r.Context(), id, period)
	if err != nil {
		respondDomainError(w, "Billing run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period":    period.String(),
		"generated": len(bills),
		"bills":     toBillDTOs(bills),
	})
}

// ListPanchayatBills returns every bill under a panchayat.
func (h *Handler) ListPanchayatBills(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	bills, err := h.Store.BillsByPanchayat(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTOs(bills))
}

// GetSummary returns the collection summary for a panchayat.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetPanchayat(r.Context(), id); err != nil {
		respondDomainError(w, "Failed to get panchayat", err)
		return
	}

	bills, err := h.Store.BillsByPanchayat(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(billing.Summarize(bills)))
}

// GetVillageSummary returns the collection summary for one village, folded
// over the bills of its houses.
func (h *Handler) GetVillageSummary(w http.ResponseWriter, r *http.Request) {
	id := billing.VillageID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetVillage(r.Context(), id); err != nil {
		respondDomainError(w, "Failed to get village", err)
		return
	}

	houses, err := h.Store.HousesByVillage(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list houses", err)
		return
	}

	var bills []billing.Bill
	for _, house := range houses {
		hb, err := h.Store.BillsByHouse(r.Context(), house.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
			return
		}
		bills = append(bills, hb...)
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(billing.Summarize(bills)))
}

// GetDefaulters returns houses with money outstanding, largest debt first.
func (h *Handler) GetDefaulters(w http.ResponseWriter, r *http.Request) {
	id := billing.PanchayatID(chi.URLParam(r, "id"))

	bills, err := h.Store.BillsByPanchayat(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}

	defaulters := billing.Defaulters(bills)
	dtos := make([]DefaulterDTO, len(defaulters))
	for i, d := range defaulters {
		dtos[i] = DefaulterDTO{
			HouseID:          string(d.HouseID),
			OutstandingBills: d.OutstandingBills,
			Outstanding:      d.Outstanding.Float64(),
		}
		if house, err := h.Store.GetHouse(r.Context(), d.HouseID); err == nil {
			dtos[i].OwnerName = house.OwnerName
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondDomainError maps a billing error to its HTTP status.
func respondDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// newID generates an identifier for scenario-created entities.
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

var errScenarioUnknown = errors.New("unknown scenario")
