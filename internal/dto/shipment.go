package dto

import "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"

// UpdateShipmentStatusRequest moves a shipment to a new execution state.
type UpdateShipmentStatusRequest struct {
	Status models.ShipmentStatus `json:"status"`
}

// ShipmentQuery mirrors supported listing filters.
type ShipmentQuery struct {
	Status   []models.ShipmentStatus
	Page     int
	PageSize int
}
