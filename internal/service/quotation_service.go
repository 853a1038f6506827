package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

// QuotationOptions carries the snapshot metadata supplied alongside the line
// items.
type QuotationOptions struct {
	Currency     string
	ValidityDays int
	Notes        string
	CreatedBy    string
}

// QuotationService builds immutable quotation snapshots. Only the workflow
// service attaches the result to an RFQ.
type QuotationService struct {
	defaultValidityDays int
}

// NewQuotationService constructs the builder.
func NewQuotationService(defaultValidityDays int) *QuotationService {
	if defaultValidityDays <= 0 {
		defaultValidityDays = 14
	}
	return &QuotationService{defaultValidityDays: defaultValidityDays}
}

// Build validates the line items and produces a snapshot with a computed
// subtotal. The subtotal is never accepted from the caller; that keeps the
// displayed figure and the authoritative one from drifting apart.
func (s *QuotationService) Build(items []dto.QuotationLineItemRequest, opts QuotationOptions) (*models.Quotation, error) {
	if len(items) == 0 {
		return nil, appErrors.Validation("empty_quotation", "a quotation requires at least one line item")
	}

	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if len(currency) != 3 {
		return nil, appErrors.Validation("missing_required_field", "currency must be a 3-letter code")
	}

	lineItems := make([]models.LineItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		if !item.ServiceType.Valid() {
			return nil, appErrors.Validation("invalid_line_item", "unknown service type "+string(item.ServiceType))
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, appErrors.Validation("invalid_line_item", "quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return nil, appErrors.Validation("invalid_line_item", "unit price must not be negative")
		}
		line := models.LineItem{
			Description: strings.TrimSpace(item.Description),
			ServiceType: item.ServiceType,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
		lineItems = append(lineItems, line)
		subtotal = subtotal.Add(line.Total())
	}

	validity := opts.ValidityDays
	if validity <= 0 {
		validity = s.defaultValidityDays
	}

	return &models.Quotation{
		LineItems:    lineItems,
		Subtotal:     subtotal.Round(2),
		Currency:     currency,
		ValidityDays: validity,
		Notes:        strings.TrimSpace(opts.Notes),
		CreatedBy:    opts.CreatedBy,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
