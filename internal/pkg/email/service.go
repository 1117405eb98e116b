// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config    config.EmailConfig
	templates map[string]*template.Template
	client    *http.Client
	logger    logrus.FieldLogger
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.EmailConfig, logger logrus.FieldLogger) *EmailService {
	return &EmailService{
		config: cfg,
		templates: map[string]*template.Template{
			string(EmailTypeEnrollmentReceipt): template.Must(template.New("enrollment_receipt").Parse(enrollmentReceiptTemplate)),
		},
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.WithField("component", "email"),
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "log", "":
		s.logger.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email delivery disabled, logging message instead")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// SendEnrollmentReceipt sends the receipt for a confirmed checkout
func (s *EmailService) SendEnrollmentReceipt(ctx context.Context, data EnrollmentReceiptData) error {
	if data.UserEmail == "" {
		return fmt.Errorf("receipt recipient is required")
	}

	data.EmailTemplateData = GetBaseTemplateData(
		s.config.FromName,
		s.config.SiteURL,
		data.UserName,
		data.UserEmail,
	)
	if data.LearningURL == "" {
		data.LearningURL = s.config.SiteURL
	}

	htmlContent, err := s.renderTemplate(string(EmailTypeEnrollmentReceipt), data)
	if err != nil {
		return fmt.Errorf("failed to render enrollment receipt template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Your enrollment receipt - %s", data.TransactionRef),
		HTMLContent: htmlContent,
		Type:        EmailTypeEnrollmentReceipt,
		Data: map[string]interface{}{
			"transaction_ref": data.TransactionRef,
			"amount":          data.Amount,
		},
	}

	return s.SendEmail(ctx, email)
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

func (s *EmailService) fromAddress() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

const enrollmentReceiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}} receipt</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">You're enrolled!</h1>
        <p>Hello {{.UserName}},</p>
        <p>Thank you for your purchase. Your payment was received and your courses are ready.</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><td>Transaction</td><td><strong>{{.TransactionRef}}</strong></td></tr>
            <tr><td>Date</td><td>{{.EnrolledAt}}</td></tr>
            <tr><td>Payment method</td><td>{{.PaymentMethod}}</td></tr>
        </table>
        <h3>Courses</h3>
        <ul>
            {{range .Courses}}<li>{{.Title}}{{if .Price}} - {{.Price}}{{end}}</li>
            {{end}}
        </ul>
        <p><strong>Total: {{.Amount}} {{.Currency}}</strong></p>
        <p><a href="{{.LearningURL}}" style="color: #4f46e5;">Start learning</a></p>
        <hr>
        <p style="font-size: 12px; color: #666;">
            Questions? Visit <a href="{{.SupportURL}}">{{.SupportURL}}</a><br>
            &copy; {{.Year}} {{.SiteName}}. All rights reserved.
        </p>
    </div>
</body>
</html>`
