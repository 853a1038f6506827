package models

import "time"

// ShipmentMode enumerates transport modes.
type ShipmentMode string

const (
	ModeSea    ShipmentMode = "SEA"
	ModeAir    ShipmentMode = "AIR"
	ModeInland ShipmentMode = "INLAND"
)

// Valid reports whether the mode is a known transport mode.
func (m ShipmentMode) Valid() bool {
	switch m {
	case ModeSea, ModeAir, ModeInland:
		return true
	}
	return false
}

// RFQStatus captures the workflow pipeline state of a quote request.
type RFQStatus string

const (
	RFQStatusNew               RFQStatus = "NEW"
	RFQStatusAssignedSales     RFQStatus = "ASSIGNED_SALES"
	RFQStatusPricingInProgress RFQStatus = "PRICING_IN_PROGRESS"
	RFQStatusQuotationReady    RFQStatus = "QUOTATION_READY"
	RFQStatusSentToClient      RFQStatus = "SENT_TO_CLIENT"
	RFQStatusClientConfirmed   RFQStatus = "CLIENT_CONFIRMED"
	RFQStatusRejected          RFQStatus = "REJECTED"
	RFQStatusCancelled         RFQStatus = "CANCELLED"
)

// Terminal reports whether no further pipeline transition is possible.
func (s RFQStatus) Terminal() bool {
	return s == RFQStatusRejected || s == RFQStatusCancelled
}

// HasQuotation reports whether the status requires an attached quotation
// snapshot. quotation_details is non-nil exactly for these states.
func (s RFQStatus) HasQuotation() bool {
	switch s {
	case RFQStatusQuotationReady, RFQStatusSentToClient, RFQStatusClientConfirmed, RFQStatusRejected:
		return true
	}
	return false
}

// FinalOutcome is the commercial overlay set independently of the pipeline.
type FinalOutcome string

const (
	OutcomeWon  FinalOutcome = "WON"
	OutcomeLost FinalOutcome = "LOST"
)

// RFQ is a client shipment quote request moving through the pricing workflow.
type RFQ struct {
	ID              string       `db:"id" json:"id"`
	ReferenceNumber string       `db:"reference_number" json:"reference_number"`
	Mode            ShipmentMode `db:"mode" json:"mode"`
	Incoterm        string       `db:"incoterm" json:"incoterm"`
	CargoType       string       `db:"cargo_type" json:"cargo_type"`

	Origin      string     `db:"origin" json:"origin"`
	Destination string     `db:"destination" json:"destination"`
	WeightKg    float64    `db:"weight_kg" json:"weight_kg"`
	VolumeCBM   float64    `db:"volume_cbm" json:"volume_cbm"`
	CargoLines  CargoLines `db:"cargo_lines" json:"cargo_lines"`

	CompanyID   string `db:"company_id" json:"company_id"`
	CompanyName string `db:"company_name" json:"company_name"`
	ClientEmail string `db:"client_email" json:"client_email"`

	Status               RFQStatus `db:"status" json:"status"`
	AssignedSalesEmail   *string   `db:"assigned_sales_email" json:"assigned_sales_email,omitempty"`
	AssignedSalesName    *string   `db:"assigned_sales_name" json:"assigned_sales_name,omitempty"`
	AssignedPricingEmail *string   `db:"assigned_pricing_email" json:"assigned_pricing_email,omitempty"`
	AssignedPricingName  *string   `db:"assigned_pricing_name" json:"assigned_pricing_name,omitempty"`

	QuotationDetails  *Quotation `db:"quotation_details" json:"quotation_details,omitempty"`
	QuotationAmount   *float64   `db:"quotation_amount" json:"quotation_amount,omitempty"`
	QuotationCurrency *string    `db:"quotation_currency" json:"quotation_currency,omitempty"`
	QuotationURL      *string    `db:"quotation_url" json:"quotation_url,omitempty"`
	PricingNotes      *string    `db:"pricing_notes" json:"pricing_notes,omitempty"`

	FinalStatus *FinalOutcome `db:"final_status" json:"final_status,omitempty"`
	FinalValue  *float64      `db:"final_value" json:"final_value,omitempty"`
	LostReason  *string       `db:"lost_reason" json:"lost_reason,omitempty"`

	// Version increases on every workflow write; stale writers are rejected.
	Version     int64     `db:"version" json:"version"`
	CreatedDate time.Time `db:"created_date" json:"created_date"`
	UpdatedDate time.Time `db:"updated_date" json:"updated_date"`
}

// Editable reports whether the client may still change cargo lines. The
// cargo model itself carries no freeze; the workflow enforces it.
func (r *RFQ) Editable() bool {
	return r.Status == RFQStatusNew || r.Status == RFQStatusAssignedSales
}

// RFQFilter constrains listing queries.
type RFQFilter struct {
	Status        []RFQStatus
	Mode          ShipmentMode
	CompanyID     string
	ClientEmail   string
	AssignedSales string
	Search        string
	Limit         int
	Offset        int
}
