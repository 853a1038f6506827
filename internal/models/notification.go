package models

import "time"

// NotificationType mirrors the domain event that produced the record.
type NotificationType string

const (
	NotificationRFQCreated         NotificationType = "RFQ_CREATED"
	NotificationRFQAssigned        NotificationType = "RFQ_ASSIGNED"
	NotificationPricingComplete    NotificationType = "PRICING_COMPLETE"
	NotificationQuotationSent      NotificationType = "QUOTATION_SENT"
	NotificationQuotationConfirmed NotificationType = "QUOTATION_CONFIRMED"
	NotificationRFQRejected        NotificationType = "RFQ_REJECTED"
	NotificationRFQCancelled       NotificationType = "RFQ_CANCELLED"
	NotificationShipmentStatus     NotificationType = "SHIPMENT_STATUS_CHANGED"
)

// Notification is a persisted fan-out record. Only the dispatcher writes
// these; UI actions never create them directly.
type Notification struct {
	ID              string           `db:"id" json:"id"`
	EventID         string           `db:"event_id" json:"event_id"`
	Type            NotificationType `db:"type" json:"type"`
	Title           string           `db:"title" json:"title"`
	Message         string           `db:"message" json:"message"`
	RecipientEmail  string           `db:"recipient_email" json:"recipient_email"`
	EntityType      string           `db:"entity_type" json:"entity_type"`
	EntityID        string           `db:"entity_id" json:"entity_id"`
	EntityReference string           `db:"entity_reference" json:"entity_reference"`
	ActionURL       *string          `db:"action_url" json:"action_url,omitempty"`
	IsRead          bool             `db:"is_read" json:"is_read"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains inbox queries.
type NotificationFilter struct {
	RecipientEmail string
	UnreadOnly     bool
	Limit          int
	Offset         int
}
