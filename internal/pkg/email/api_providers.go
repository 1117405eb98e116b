// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Resend API structures
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// sendResendEmail sends email using the Resend HTTP API
func (s *EmailService) sendResendEmail(ctx context.Context, email *Email) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("email API key not configured")
	}

	reqData := ResendEmailRequest{
		From:    s.fromAddress(),
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.config.ReplyTo,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("failed to marshal Resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create Resend request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("Resend API returned status %d", resp.StatusCode)
	}

	return nil
}
