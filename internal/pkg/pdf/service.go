// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/domain/enrollment"
)

// Service handles PDF generation
type Service struct {
	company CompanyInfo
	tmpl    *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		company: CompanyInfo{
			Name:    cfg.App.CompanyName,
			Address: cfg.App.CompanyAddress,
			Email:   cfg.App.CompanyEmail,
			Website: cfg.App.CompanyWebsite,
		},
		tmpl: template.Must(template.New("receipt").Parse(receiptTemplate)),
	}
}

// GenerateReceipt renders the receipt of an enrollment as a PDF
func (s *Service) GenerateReceipt(e *enrollment.Enrollment) (*bytes.Buffer, error) {
	htmlContent, err := s.generateHTML(s.receiptData(e))
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

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

func (s *Service) receiptData(e *enrollment.Enrollment) ReceiptData {
	data := ReceiptData{
		ReceiptNumber: "RCP-" + e.TransactionRef,
		IssuedAt:      e.CreatedAt.Format("January 2, 2006"),
		Enrollment:    e,
		Company:       s.company,
		Total:         e.Amount.StringFixed(2),
	}
	for _, c := range e.Courses {
		line := ReceiptLine{Title: c.Title, Price: c.Price.StringFixed(2)}
		if line.Title == "" {
			line.Title = fmt.Sprintf("Course #%d", c.CourseID)
		}
		data.Lines = append(data.Lines, line)
	}
	return data
}

func (s *Service) generateHTML(data ReceiptData) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// ReceiptData represents the data passed to the receipt template
type ReceiptData struct {
	ReceiptNumber string
	IssuedAt      string
	Enrollment    *enrollment.Enrollment
	Company       CompanyInfo
	Lines         []ReceiptLine
	Total         string
}

// ReceiptLine is one course row on the receipt
type ReceiptLine struct {
	Title string
	Price string
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Email   string
	Website string
}

const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.ReceiptNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .title { font-size: 28px; font-weight: bold; color: #2563eb; margin-bottom: 10px; }
        .details td { padding: 5px 0; vertical-align: top; }
        .details .label { font-weight: bold; width: 170px; }
        .courses { width: 100%; border-collapse: collapse; margin: 30px 0; }
        .courses th, .courses td { border: 1px solid #ddd; padding: 12px 8px; text-align: left; }
        .courses th { background-color: #f8f9fa; }
        .courses .price-col { text-align: right; width: 120px; }
        .total-row td { font-size: 18px; font-weight: bold; border-top: 2px solid #333; }
        .footer { margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Company.Name}}</h1>
        {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
        <p>{{.Company.Email}}</p>
        <p>{{.Company.Website}}</p>
        <div class="title">RECEIPT</div>
    </div>

    <table class="details">
        <tr><td class="label">Receipt #:</td><td>{{.ReceiptNumber}}</td></tr>
        <tr><td class="label">Date:</td><td>{{.IssuedAt}}</td></tr>
        <tr><td class="label">Transaction reference:</td><td>{{.Enrollment.TransactionRef}}</td></tr>
        <tr><td class="label">Payment method:</td><td>{{.Enrollment.PaymentMethod}}</td></tr>
        <tr><td class="label">Billed to:</td><td>{{.Enrollment.FullName}} &lt;{{.Enrollment.Email}}&gt;</td></tr>
    </table>

    <table class="courses">
        <thead>
            <tr><th>Course</th><th class="price-col">Price</th></tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr><td>{{.Title}}</td><td class="price-col">{{.Price}}</td></tr>
            {{end}}
            <tr class="total-row"><td>Total ({{.Enrollment.Currency}})</td><td class="price-col">{{.Total}}</td></tr>
        </tbody>
    </table>

    <div class="footer">
        <p>Thank you for learning with us!</p>
        <p>Questions about this receipt? Contact us at {{.Company.Email}}</p>
    </div>
</body>
</html>
`
