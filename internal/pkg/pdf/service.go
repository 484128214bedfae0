// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/pkg/money"
)

// CompanyInfo represents the store details printed on receipts
type CompanyInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ReceiptData represents the data passed to the receipt template
type ReceiptData struct {
	Order        *order.Order
	Company      CompanyInfo
	PaymentLabel string
}

// Service handles PDF generation
type Service struct {
	company  CompanyInfo
	template *template.Template
}

// NewService creates a new PDF service
func NewService(company CompanyInfo) *Service {
	tmpl := template.Must(template.New("receipt").Funcs(template.FuncMap{
		"brl": money.FormatBRL,
	}).Parse(receiptTemplate))

	return &Service{
		company:  company,
		template: tmpl,
	}
}

// GenerateReceipt renders a PDF receipt for a recorded order
func (s *Service) GenerateReceipt(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA5)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(htmlContent))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Encoding.Set("utf-8")

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderHTML executes the receipt template
func (s *Service) RenderHTML(o *order.Order) ([]byte, error) {
	data := ReceiptData{
		Order:        o,
		Company:      s.company,
		PaymentLabel: o.PaymentLabel(),
	}

	var buf bytes.Buffer
	if err := s.template.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Pedido {{.Order.OrderNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { border-bottom: 2px solid #eee; padding-bottom: 16px; margin-bottom: 24px; }
        .title { font-size: 24px; font-weight: bold; color: #15803d; }
        .section-title { font-size: 15px; font-weight: bold; margin: 16px 0 8px; color: #374151; }
        .items-table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .num { text-align: right; }
        .totals td { padding: 4px 8px; }
        .total-row { font-size: 17px; font-weight: bold; }
        .badge { display: inline-block; padding: 3px 6px; border-radius: 4px; font-size: 11px; font-weight: bold; }
        .badge-verified { background-color: #dcfce7; color: #166534; }
        .badge-asserted { background-color: #fef3c7; color: #92400e; }
        .footer { margin-top: 40px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="title">{{.Company.Name}}</div>
        {{if .Company.Phone}}<p>WhatsApp: {{.Company.Phone}}</p>{{end}}
        {{if .Company.Email}}<p>{{.Company.Email}}</p>{{end}}
        <p><strong>Pedido:</strong> {{.Order.OrderNumber}}</p>
        <p><strong>Data:</strong> {{.Order.PlacedAt.Format "02/01/2006 15:04"}}</p>
    </div>

    <div class="section-title">Cliente</div>
    <p><strong>{{.Order.CustomerName}}</strong></p>
    <p>{{.Order.CustomerAddress}}</p>
    <p>Telefone: {{.Order.CustomerPhone}}</p>
    {{if .Order.CustomerEmail}}<p>E-mail: {{.Order.CustomerEmail}}</p>{{end}}

    <div class="section-title">Itens</div>
    <table class="items-table">
        <thead>
            <tr>
                <th>Produto</th>
                <th class="num">Qtd</th>
                <th class="num">Preço</th>
                <th class="num">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Order.Items}}
            <tr>
                <td>{{.Name}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{brl .Price}}</td>
                <td class="num">{{brl .TotalPrice}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <table class="totals">
        <tr><td>Subtotal:</td><td class="num">{{brl .Order.SubtotalAmount}}</td></tr>
        <tr><td>Frete:</td><td class="num">{{brl .Order.ShippingAmount}}</td></tr>
        <tr class="total-row"><td>Total:</td><td class="num">{{brl .Order.TotalAmount}}</td></tr>
        {{if ne .Order.ChargedAmount .Order.TotalAmount}}
        <tr><td>Total cobrado:</td><td class="num">{{brl .Order.ChargedAmount}}</td></tr>
        {{end}}
        {{if gt .Order.Installments 1}}
        <tr><td>Parcelas:</td><td class="num">{{.Order.Installments}}x de {{brl .Order.InstallmentValue}}</td></tr>
        {{end}}
    </table>

    <div class="section-title">Pagamento</div>
    <p>
        {{.PaymentLabel}}
        {{if .Order.IsVerified}}<span class="badge badge-verified">confirmado</span>{{else}}<span class="badge badge-asserted">a conferir</span>{{end}}
    </p>

    <div class="footer">
        <p>Obrigado pela preferência!</p>
    </div>
</body>
</html>
`
