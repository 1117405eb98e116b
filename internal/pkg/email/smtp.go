// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

// sendSMTPEmail sends email using SMTP (Gmail, Outlook, or self-hosted)
func (s *EmailService) sendSMTPEmail(email *Email) error {
	if s.config.SMTPHost == "" || s.config.SMTPUser == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}

	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPass, s.config.SMTPHost)
	msg := s.buildMessage(email)
	serverAddr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	if s.config.SMTPUseTLS {
		return s.sendSMTPWithTLS(serverAddr, auth, s.config.FromEmail, email.To, msg)
	}
	return smtp.SendMail(serverAddr, auth, s.config.FromEmail, email.To, msg)
}

// buildMessage renders headers and HTML body in RFC 5322 form
func (s *EmailService) buildMessage(email *Email) []byte {
	headers := map[string]string{
		"From":         s.fromAddress(),
		"To":           strings.Join(email.To, ", "),
		"Subject":      email.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}
	if s.config.ReplyTo != "" {
		headers["Reply-To"] = s.config.ReplyTo
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var msg bytes.Buffer
	for _, key := range keys {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", key, headers[key]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)
	return msg.Bytes()
}

// sendSMTPWithTLS sends email using explicit TLS connection
func (s *EmailService) sendSMTPWithTLS(serverAddr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
	}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to create TLS connection: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send DATA command: %w", err)
	}

	if _, err := writer.Write(msg); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write email content: %w", err)
	}

	return writer.Close()
}
