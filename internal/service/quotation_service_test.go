package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/dto"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

func TestQuotationServiceBuildComputesSubtotal(t *testing.T) {
	svc := NewQuotationService(14)
	items := []dto.QuotationLineItemRequest{
		{Description: "Ocean freight", ServiceType: models.ServiceFreight, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(250)},
		{Description: "Customs clearance", ServiceType: models.ServiceCustoms, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(150)},
	}

	quote, err := svc.Build(items, QuotationOptions{Currency: "usd", CreatedBy: "pricing@tact.eg"})
	require.NoError(t, err)
	require.Equal(t, "650", quote.Subtotal.String())
	require.Equal(t, "USD", quote.Currency)
	require.Equal(t, 14, quote.ValidityDays)
	require.Len(t, quote.LineItems, 2)
	require.False(t, quote.CreatedAt.IsZero())
}

func TestQuotationServiceBuildIgnoresCallerSubtotalDrift(t *testing.T) {
	svc := NewQuotationService(14)
	items := []dto.QuotationLineItemRequest{
		{Description: "Handling", ServiceType: models.ServiceHandling, Quantity: decimal.RequireFromString("2.5"), UnitPrice: decimal.RequireFromString("33.33")},
	}

	quote, err := svc.Build(items, QuotationOptions{Currency: "EUR", ValidityDays: 7})
	require.NoError(t, err)
	// 2.5 × 33.33 = 83.325, rounded half-up at snapshot time.
	require.Equal(t, "83.33", quote.Subtotal.StringFixed(2))
	require.Equal(t, 7, quote.ValidityDays)
}

func TestQuotationServiceBuildRejectsEmptyItems(t *testing.T) {
	svc := NewQuotationService(14)
	_, err := svc.Build(nil, QuotationOptions{Currency: "USD"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Contains(t, appErr.Message, "empty_quotation")
}

func TestQuotationServiceBuildRejectsBadLines(t *testing.T) {
	svc := NewQuotationService(14)

	cases := []struct {
		name string
		item dto.QuotationLineItemRequest
	}{
		{"unknown service", dto.QuotationLineItemRequest{ServiceType: "LAUNDRY", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}},
		{"zero quantity", dto.QuotationLineItemRequest{ServiceType: models.ServiceFreight, Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(10)}},
		{"negative price", dto.QuotationLineItemRequest{ServiceType: models.ServiceFreight, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Build([]dto.QuotationLineItemRequest{tc.item}, QuotationOptions{Currency: "USD"})
			require.Error(t, err)
			require.Contains(t, appErrors.FromError(err).Message, "invalid_line_item")
		})
	}
}

func TestQuotationServiceBuildRequiresCurrency(t *testing.T) {
	svc := NewQuotationService(14)
	items := []dto.QuotationLineItemRequest{
		{ServiceType: models.ServiceFreight, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
	}
	_, err := svc.Build(items, QuotationOptions{Currency: "dollars"})
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Message, "missing_required_field")
}

func TestQuotationServiceZeroPriceLineAllowed(t *testing.T) {
	svc := NewQuotationService(14)
	items := []dto.QuotationLineItemRequest{
		{Description: "Documentation (waived)", ServiceType: models.ServiceDocumentation, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero},
	}
	quote, err := svc.Build(items, QuotationOptions{Currency: "USD"})
	require.NoError(t, err)
	require.True(t, quote.Subtotal.IsZero())
}
