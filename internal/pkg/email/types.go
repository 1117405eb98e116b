// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeEnrollmentReceipt EmailType = "enrollment_receipt"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName   string `json:"site_name"`
	SiteURL    string `json:"site_url"`
	SupportURL string `json:"support_url"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Year       int    `json:"year"`
}

// EnrollmentReceiptData contains data for the enrollment receipt email
type EnrollmentReceiptData struct {
	EmailTemplateData
	TransactionRef string          `json:"transaction_ref"`
	PaymentMethod  string          `json:"payment_method"`
	Amount         string          `json:"amount"`
	Currency       string          `json:"currency"`
	EnrolledAt     string          `json:"enrolled_at"`
	LearningURL    string          `json:"learning_url"`
	Courses        []ReceiptCourse `json:"courses"`
}

// ReceiptCourse is one course line on a receipt
type ReceiptCourse struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:   siteName,
		SiteURL:    siteURL,
		SupportURL: siteURL + "/support",
		UserName:   userName,
		UserEmail:  userEmail,
		Year:       time.Now().Year(),
	}
}
