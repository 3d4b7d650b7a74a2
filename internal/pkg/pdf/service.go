// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/sales"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// InvoiceData holds everything the invoice template needs
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Sale          *sales.Sale
	Company       CompanyInfo
}

// CompanyInfo holds merchant details printed on the invoice
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// GenerateInvoice generates a PDF invoice for a sale
func (s *Service) GenerateInvoice(sale *sales.Sale) (*bytes.Buffer, error) {
	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s", sale.SaleNumber),
		InvoiceDate:   time.Now().Format("January 2, 2006"),
		Sale:          sale,
		Company: CompanyInfo{
			Name:    s.config.Company.Name,
			Address: s.config.Company.Address,
			Phone:   s.config.Company.Phone,
			Email:   s.config.Company.Email,
			Website: s.config.Company.Website,
		},
	}

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return pdfg.Buffer(), nil
}

func (s *Service) generateHTML(data InvoiceData) (string, error) {
	tmpl, err := template.New("invoice").Funcs(template.FuncMap{
		"money": func(cents int64) string {
			return fmt.Sprintf("%.2f", float64(cents)/100)
		},
	}).Parse(invoiceTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse invoice template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute invoice template: %w", err)
	}

	return buf.String(), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #1f2937; font-size: 13px; }
  .header { display: flex; justify-content: space-between; margin-bottom: 32px; }
  .company h1 { margin: 0 0 4px 0; font-size: 22px; }
  .muted { color: #6b7280; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  th { text-align: left; border-bottom: 2px solid #1f2937; padding: 8px 4px; }
  td { border-bottom: 1px solid #e5e7eb; padding: 8px 4px; }
  .num { text-align: right; }
  .total-row td { border-bottom: none; font-weight: bold; font-size: 15px; }
</style>
</head>
<body>
  <div class="header">
    <div class="company">
      <h1>{{.Company.Name}}</h1>
      <div class="muted">{{.Company.Address}}</div>
      <div class="muted">{{.Company.Phone}} &middot; {{.Company.Email}}</div>
    </div>
    <div>
      <h2>Invoice {{.InvoiceNumber}}</h2>
      <div class="muted">Date: {{.InvoiceDate}}</div>
      <div class="muted">Sale: {{.Sale.SaleNumber}}</div>
      {{if .Sale.CustomerName}}<div>Customer: {{.Sale.CustomerName}}</div>{{end}}
    </div>
  </div>

  <table>
    <thead>
      <tr>
        <th>Item</th><th>SKU</th>
        <th class="num">Qty</th><th class="num">Unit Price</th>
        <th class="num">Discount</th><th class="num">Total</th>
      </tr>
    </thead>
    <tbody>
      {{range .Sale.Items}}
      <tr>
        <td>{{.Name}}</td><td>{{.SKU}}</td>
        <td class="num">{{.Quantity}}</td>
        <td class="num">{{money .UnitPrice}}</td>
        <td class="num">{{money .Discount}}</td>
        <td class="num">{{money .TotalPrice}}</td>
      </tr>
      {{end}}
      <tr class="total-row">
        <td colspan="5" class="num">Total</td>
        <td class="num">{{money .Sale.TotalAmount}}</td>
      </tr>
    </tbody>
  </table>

  <p class="muted">Payment method: {{.Sale.PaymentMethod}} &middot; Status: {{.Sale.PaymentStatus}}</p>
</body>
</html>`
