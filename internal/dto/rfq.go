package dto

import (
	"github.com/shopspring/decimal"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
)

// CreateRFQRequest is the intake payload for a new quote request.
type CreateRFQRequest struct {
	Mode        models.ShipmentMode `json:"mode"`
	Incoterm    string              `json:"incoterm"`
	CargoType   string              `json:"cargo_type"`
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	CompanyID   string              `json:"company_id"`
	CompanyName string              `json:"company_name"`
	ClientEmail string              `json:"client_email"`
	CargoLines  []models.CargoLine  `json:"cargo_lines"`
}

// UpdateCargoRequest replaces the cargo lines while the RFQ is still
// editable.
type UpdateCargoRequest struct {
	CargoLines []models.CargoLine `json:"cargo_lines"`
	Version    int64              `json:"version"`
}

// CargoPreviewRequest computes running totals without touching storage.
type CargoPreviewRequest struct {
	Mode       models.ShipmentMode `json:"mode"`
	CargoLines []models.CargoLine  `json:"cargo_lines"`
}

// AssignRequest routes an RFQ to a staff member of a department.
type AssignRequest struct {
	Email   string `json:"email"`
	Version int64  `json:"version"`
}

// QuotationLineItemRequest is one priced line submitted by pricing staff.
type QuotationLineItemRequest struct {
	Description string             `json:"description"`
	ServiceType models.ServiceType `json:"service_type"`
	Quantity    decimal.Decimal    `json:"quantity"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
}

// SubmitQuotationRequest attaches a priced snapshot to the RFQ. The subtotal
// is always computed server-side.
type SubmitQuotationRequest struct {
	LineItems    []QuotationLineItemRequest `json:"line_items"`
	Currency     string                     `json:"currency"`
	ValidityDays int                        `json:"validity_days"`
	Notes        string                     `json:"notes"`
	PricingNotes string                     `json:"pricing_notes"`
	Version      int64                      `json:"version"`
}

// DecisionRequest records the client accepting or rejecting the quotation.
type DecisionRequest struct {
	Accept  bool  `json:"accept"`
	Version int64 `json:"version"`
}

// OutcomeRequest marks the commercial outcome overlay.
type OutcomeRequest struct {
	Outcome    models.FinalOutcome `json:"outcome"`
	FinalValue *float64            `json:"final_value,omitempty"`
	LostReason string              `json:"lost_reason,omitempty"`
	Version    int64               `json:"version"`
}

// TransitionRequest covers transitions that carry no payload beyond the
// expected version (send to pricing, send to client, cancel).
type TransitionRequest struct {
	Version int64 `json:"version"`
}

// RFQQuery mirrors supported listing filters.
type RFQQuery struct {
	Status    []models.RFQStatus
	Mode      models.ShipmentMode
	CompanyID string
	Search    string
	Page      int
	PageSize  int
}
