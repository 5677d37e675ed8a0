/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through Handler.validate before touching the domain.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/tariff.go: TariffJSON type
*/
package api

import (
	"time"

	"github.com/jaldhara/billing-engine/billing"
	"github.com/jaldhara/billing-engine/factory"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PanchayatDTO represents a Gram Panchayat in API responses.
type PanchayatDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	District  string `json:"district,omitempty"`
	State     string `json:"state,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreatePanchayatRequest is the request to register a Gram Panchayat.
type CreatePanchayatRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	District string `json:"district"`
	State    string `json:"state"`
}

// VillageDTO represents a village in API responses.
type VillageDTO struct {
	ID          string `json:"id"`
	PanchayatID string `json:"panchayat_id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateVillageRequest is the request to register a village.
type CreateVillageRequest struct {
	ID          string `json:"id" validate:"required"`
	PanchayatID string `json:"panchayat_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
}

// HouseDTO represents a metered connection in API responses.
type HouseDTO struct {
	ID                string  `json:"id"`
	VillageID         string  `json:"village_id"`
	PanchayatID       string  `json:"panchayat_id"`
	OwnerName         string  `json:"owner_name"`
	WaterConnectionNo string  `json:"water_connection_no,omitempty"`
	UsageClass        string  `json:"usage_class"`
	PreviousReading   float64 `json:"previous_reading"`
	CreatedAt         string  `json:"created_at,omitempty"`
}

// CreateHouseRequest is the request to register a house.
type CreateHouseRequest struct {
	ID                string  `json:"id" validate:"required"`
	VillageID         string  `json:"village_id" validate:"required"`
	OwnerName         string  `json:"owner_name" validate:"required"`
	WaterConnectionNo string  `json:"water_connection_no"`
	UsageClass        string  `json:"usage_class" validate:"required,oneof=domestic institutional commercial industrial"`
	InitialReading    float64 `json:"initial_reading" validate:"gte=0"`
}

// TariffDTO wraps the JSON rate card plus its bookkeeping fields.
type TariffDTO struct {
	Config    factory.TariffJSON `json:"config"`
	UpdatedAt string             `json:"updated_at,omitempty"`
}

// PutTariffRequest sets a panchayat's rate card. The panchayat_id in the
// URL wins over the one in the body.
type PutTariffRequest struct {
	Config factory.TariffJSON `json:"config" validate:"required"`
}

// BillDTO represents a bill in API responses.
type BillDTO struct {
	ID              string  `json:"id"`
	HouseID         string  `json:"house_id"`
	Period          string  `json:"period"`
	PreviousReading float64 `json:"previous_reading"`
	CurrentReading  float64 `json:"current_reading"`
	TotalUsage      float64 `json:"total_usage"`
	CurrentDemand   float64 `json:"current_demand"`
	Arrears         float64 `json:"arrears"`
	TotalAmount     float64 `json:"total_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	Status          string  `json:"status"`
	GeneratedAt     string  `json:"generated_at"`
}

// GenerateBillRequest bills one house for a period at a fresh meter reading.
type GenerateBillRequest struct {
	CurrentReading float64 `json:"current_reading" validate:"gte=0"`
	Period         string  `json:"period" validate:"required"` // YYYY-MM
}

// GenerateRunRequest bills every house of a panchayat for a period.
type GenerateRunRequest struct {
	Period string `json:"period" validate:"required"` // YYYY-MM
}

// CollectPaymentRequest records one collection event against a bill.
// Amount must be positive except for pay_later, so the mode-aware check
// lives in the domain layer rather than a struct tag.
type CollectPaymentRequest struct {
	Amount         float64 `json:"amount"`
	Mode           string  `json:"mode" validate:"required,oneof=cash upi online pay_later"`
	TransactionRef string  `json:"transaction_ref"`
	CollectedBy    string  `json:"collected_by"`
}

// PaymentDTO represents a recorded collection event.
type PaymentDTO struct {
	ID             string  `json:"id"`
	BillID         string  `json:"bill_id"`
	Amount         float64 `json:"amount"`
	Mode           string  `json:"mode"`
	TransactionRef string  `json:"transaction_ref,omitempty"`
	CollectedBy    string  `json:"collected_by,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// CollectResponseDTO is the result of recording a payment.
type CollectResponseDTO struct {
	Bill    BillDTO    `json:"bill"`
	Payment PaymentDTO `json:"payment"`
}

// SummaryDTO is the collection summary for a panchayat.
type SummaryDTO struct {
	Bills            int     `json:"bills"`
	PendingBills     int     `json:"pending_bills"`
	PartialBills     int     `json:"partial_bills"`
	PaidBills        int     `json:"paid_bills"`
	TotalBilled      float64 `json:"total_billed"`
	TotalCollected   float64 `json:"total_collected"`
	TotalOutstanding float64 `json:"total_outstanding"`
}

// DefaulterDTO is one house with money outstanding.
type DefaulterDTO struct {
	HouseID          string  `json:"house_id"`
	OwnerName        string  `json:"owner_name,omitempty"`
	OutstandingBills int     `json:"outstanding_bills"`
	Outstanding      float64 `json:"outstanding"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPanchayatDTO(gp billing.GramPanchayat) PanchayatDTO {
	return PanchayatDTO{
		ID:        string(gp.ID),
		Name:      gp.Name,
		District:  gp.District,
		State:     gp.State,
		CreatedAt: gp.CreatedAt.Format(time.RFC3339),
	}
}

func toVillageDTO(v billing.Village) VillageDTO {
	return VillageDTO{
		ID:          string(v.ID),
		PanchayatID: string(v.PanchayatID),
		Name:        v.Name,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}

func toHouseDTO(h billing.House) HouseDTO {
	return HouseDTO{
		ID:                string(h.ID),
		VillageID:         string(h.VillageID),
		PanchayatID:       string(h.PanchayatID),
		OwnerName:         h.OwnerName,
		WaterConnectionNo: h.WaterConnectionNo,
		UsageClass:        string(h.UsageClass),
		PreviousReading:   h.PreviousMeterReading.Float64(),
		CreatedAt:         h.CreatedAt.Format(time.RFC3339),
	}
}

func toBillDTO(b billing.Bill) BillDTO {
	return BillDTO{
		ID:              string(b.ID),
		HouseID:         string(b.HouseID),
		Period:          b.Period.String(),
		PreviousReading: b.PreviousReading.Float64(),
		CurrentReading:  b.CurrentReading.Float64(),
		TotalUsage:      b.TotalUsage.Float64(),
		CurrentDemand:   b.CurrentDemand.Float64(),
		Arrears:         b.Arrears.Float64(),
		TotalAmount:     b.TotalAmount.Float64(),
		PaidAmount:      b.PaidAmount.Float64(),
		RemainingAmount: b.RemainingAmount.Float64(),
		Status:          string(b.Status),
		GeneratedAt:     b.GeneratedAt.Format(time.RFC3339),
	}
}

func toBillDTOs(bills []billing.Bill) []BillDTO {
	dtos := make([]BillDTO, len(bills))
	for i, b := range bills {
		dtos[i] = toBillDTO(b)
	}
	return dtos
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:             string(p.ID),
		BillID:         string(p.BillID),
		Amount:         p.Amount.Float64(),
		Mode:           string(p.Mode),
		TransactionRef: p.TransactionRef,
		CollectedBy:    p.CollectedBy,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

func toSummaryDTO(s billing.CollectionSummary) SummaryDTO {
	return SummaryDTO{
		Bills:            s.Bills,
		PendingBills:     s.PendingBills,
		PartialBills:     s.PartialBills,
		PaidBills:        s.PaidBills,
		TotalBilled:      s.TotalBilled.Float64(),
		TotalCollected:   s.TotalCollected.Float64(),
		TotalOutstanding: s.TotalOutstanding.Float64(),
	}
}
