package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceType enumerates billable service categories on a quotation line.
type ServiceType string

const (
	ServiceFreight       ServiceType = "FREIGHT"
	ServiceCustoms       ServiceType = "CUSTOMS"
	ServiceInsurance     ServiceType = "INSURANCE"
	ServiceHandling      ServiceType = "HANDLING"
	ServiceDocumentation ServiceType = "DOCUMENTATION"
	ServiceStorage       ServiceType = "STORAGE"
	ServiceDelivery      ServiceType = "DELIVERY"
	ServiceOther         ServiceType = "OTHER"
)

// Valid reports whether the service type is a known category.
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceFreight, ServiceCustoms, ServiceInsurance, ServiceHandling,
		ServiceDocumentation, ServiceStorage, ServiceDelivery, ServiceOther:
		return true
	}
	return false
}

// LineItem is one priced entry on a quotation snapshot.
type LineItem struct {
	Description string          `json:"description"`
	ServiceType ServiceType     `json:"service_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total returns quantity × unit price for the line.
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Quotation is the immutable priced snapshot attached to an RFQ once pricing
// completes. A repricing pass replaces the whole snapshot; nothing mutates it
// in place.
type Quotation struct {
	LineItems    []LineItem      `json:"line_items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Currency     string          `json:"currency"`
	ValidityDays int             `json:"validity_days"`
	Notes        string          `json:"notes,omitempty"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Value implements driver.Valuer for the JSONB quotation_details column.
func (q Quotation) Value() (driver.Value, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal quotation: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (q *Quotation) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported quotation source type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, q)
}
