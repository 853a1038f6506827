package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// QuotationLineRow is one priced line in the rendered document. Numeric
// values arrive pre-formatted so the renderer stays ignorant of money math.
type QuotationLineRow struct {
	Description string
	Service     string
	Quantity    string
	UnitPrice   string
	Total       string
}

// QuotationDocument carries everything the PDF needs.
type QuotationDocument struct {
	Reference   string
	Mode        string
	Incoterm    string
	Origin      string
	Destination string
	CompanyName string
	ClientEmail string
	IssuedAt    time.Time
	ValidUntil  time.Time
	Currency    string
	Lines       []QuotationLineRow
	Subtotal    string
	Notes       string
}

// QuotationPDF renders client-facing quotation documents.
type QuotationPDF struct{}

// NewQuotationPDF constructs the renderer.
func NewQuotationPDF() *QuotationPDF {
	return &QuotationPDF{}
}

// Render produces the quotation PDF.
func (e *QuotationPDF) Render(doc QuotationDocument) ([]byte, error) {
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("quotation pdf requires at least one line item")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "FREIGHT QUOTATION", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Reference: %s", doc.Reference), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(95, 6, "Shipment", "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, "Client", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	left := []string{
		fmt.Sprintf("Mode: %s", doc.Mode),
		fmt.Sprintf("Incoterm: %s", doc.Incoterm),
		fmt.Sprintf("Route: %s - %s", doc.Origin, doc.Destination),
	}
	right := []string{
		doc.CompanyName,
		doc.ClientEmail,
		fmt.Sprintf("Valid until: %s", doc.ValidUntil.Format("2006-01-02")),
	}
	for i := range left {
		pdf.CellFormat(95, 5, left[i], "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 5, right[i], "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	headers := []struct {
		label string
		width float64
		align string
	}{
		{"Description", 70, "L"},
		{"Service", 35, "L"},
		{"Qty", 20, "R"},
		{"Unit Price", 30, "R"},
		{"Total", 35, "R"},
	}
	pdf.SetFont("Arial", "B", 9)
	for _, h := range headers {
		pdf.CellFormat(h.width, 8, h.label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, line := range doc.Lines {
		cells := []string{line.Description, line.Service, line.Quantity, line.UnitPrice, line.Total}
		for i, h := range headers {
			pdf.CellFormat(h.width, 7, cells[i], "1", 0, h.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(155, 8, fmt.Sprintf("Subtotal (%s)", doc.Currency), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, doc.Subtotal, "1", 1, "R", false, 0, "")

	if doc.Notes != "" {
		pdf.Ln(5)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, "Notes: "+doc.Notes, "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Issued %s. Rates subject to carrier availability at time of booking.",
		doc.IssuedAt.Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render quotation pdf: %w", err)
	}
	return buf.Bytes(), nil
}
