package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/export"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/storage"
)

// ExportService renders quotation PDFs, stores them, and mints signed
// download URLs. Downloads are authenticated by the token alone, so a client
// can open the link from an email without a portal session.
type ExportService struct {
	renderer *export.QuotationPDF
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		renderer: export.NewQuotationPDF(),
		store:    store,
		signer:   signer,
		logger:   logger,
	}
}

// Render implements QuotationRenderer: it produces the PDF for a freshly
// priced snapshot and returns a signed download URL.
func (s *ExportService) Render(ctx context.Context, rfq *models.RFQ, quote *models.Quotation) (string, error) {
	doc := buildQuotationDocument(rfq, quote)
	data, err := s.renderer.Render(doc)
	if err != nil {
		return "", fmt.Errorf("render quotation: %w", err)
	}

	relPath := fmt.Sprintf("%s/%s.pdf", rfq.ID, quote.CreatedAt.UTC().Format("20060102T150405"))
	if _, err := s.store.Save(relPath, data); err != nil {
		return "", fmt.Errorf("store quotation: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(rfq.ID, relPath)
	if err != nil {
		return "", fmt.Errorf("sign quotation url: %w", err)
	}
	s.logger.Info("quotation document rendered",
		zap.String("rfq_id", rfq.ID),
		zap.String("path", relPath),
		zap.Time("url_expires_at", expiresAt))
	return "/api/v1/quotations/download?token=" + token, nil
}

// OpenByToken validates a signed token and returns the stored document.
func (s *ExportService) OpenByToken(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	return file, nil
}

// CleanupExpired removes stored documents older than the signer's TTL. Wired
// to a background ticker in main.
func (s *ExportService) CleanupExpired(ttl time.Duration) {
	removed, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("quotation cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired quotation documents removed", zap.Int("count", len(removed)))
	}
}

func buildQuotationDocument(rfq *models.RFQ, quote *models.Quotation) export.QuotationDocument {
	lines := make([]export.QuotationLineRow, 0, len(quote.LineItems))
	for _, li := range quote.LineItems {
		lines = append(lines, export.QuotationLineRow{
			Description: li.Description,
			Service:     string(li.ServiceType),
			Quantity:    li.Quantity.String(),
			UnitPrice:   li.UnitPrice.StringFixed(2),
			Total:       li.Total().StringFixed(2),
		})
	}
	return export.QuotationDocument{
		Reference:   rfq.ReferenceNumber,
		Mode:        string(rfq.Mode),
		Incoterm:    rfq.Incoterm,
		Origin:      rfq.Origin,
		Destination: rfq.Destination,
		CompanyName: rfq.CompanyName,
		ClientEmail: rfq.ClientEmail,
		IssuedAt:    quote.CreatedAt,
		ValidUntil:  quote.CreatedAt.AddDate(0, 0, quote.ValidityDays),
		Currency:    quote.Currency,
		Lines:       lines,
		Subtotal:    quote.Subtotal.StringFixed(2),
		Notes:       quote.Notes,
	}
}
