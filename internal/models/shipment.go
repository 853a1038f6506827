package models

import "time"

// ShipmentStatus tracks an accepted quote through execution.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusBooked    ShipmentStatus = "BOOKED"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusArrived   ShipmentStatus = "ARRIVED"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
)

// Valid reports whether the status is a known shipment state.
func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusPending, ShipmentStatusBooked, ShipmentStatusInTransit,
		ShipmentStatusArrived, ShipmentStatusDelivered:
		return true
	}
	return false
}

// Shipment is created from an RFQ when the client confirms the quotation.
type Shipment struct {
	ID              string         `db:"id" json:"id"`
	RFQID           string         `db:"rfq_id" json:"rfq_id"`
	ReferenceNumber string         `db:"reference_number" json:"reference_number"`
	TrackingNumber  string         `db:"tracking_number" json:"tracking_number"`
	Mode            ShipmentMode   `db:"mode" json:"mode"`
	Origin          string         `db:"origin" json:"origin"`
	Destination     string         `db:"destination" json:"destination"`
	WeightKg        float64        `db:"weight_kg" json:"weight_kg"`
	VolumeCBM       float64        `db:"volume_cbm" json:"volume_cbm"`
	CompanyID       string         `db:"company_id" json:"company_id"`
	CompanyName     string         `db:"company_name" json:"company_name"`
	ClientEmail     string         `db:"client_email" json:"client_email"`
	Status          ShipmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// ShipmentFilter constrains listing queries.
type ShipmentFilter struct {
	Status      []ShipmentStatus
	ClientEmail string
	CompanyID   string
	Limit       int
	Offset      int
}
