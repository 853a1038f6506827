package models

import "time"

// EventType enumerates the domain events emitted by the workflow after a
// state write commits.
type EventType string

const (
	EventRFQCreated            EventType = "rfq.created"
	EventRFQAssigned           EventType = "rfq.assigned"
	EventPricingComplete       EventType = "rfq.pricing_complete"
	EventQuotationSent         EventType = "rfq.quotation_sent"
	EventQuotationConfirmed    EventType = "rfq.quotation_confirmed"
	EventRFQRejected           EventType = "rfq.rejected"
	EventRFQCancelled          EventType = "rfq.cancelled"
	EventShipmentStatusChanged EventType = "shipment.status_changed"
)

// DomainEvent carries everything the dispatcher needs to resolve recipients
// without re-reading the RFQ. The ID is stable so redelivery deduplicates on
// (event_id, recipient).
type DomainEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Reference  string    `json:"reference"`

	Department    Department `json:"department,omitempty"`
	AssigneeEmail string     `json:"assignee_email,omitempty"`
	AssigneeName  string     `json:"assignee_name,omitempty"`
	ClientEmail   string     `json:"client_email,omitempty"`
	SalesEmail    string     `json:"sales_email,omitempty"`
	PricingEmail  string     `json:"pricing_email,omitempty"`
	ActorEmail    string     `json:"actor_email,omitempty"`

	Detail     string    `json:"detail,omitempty"`
	ActionURL  string    `json:"action_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
