package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailConfig holds the SendGrid settings for admin reports.
type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// AdminEmail receives the reports.
	AdminEmail string
}

// Enabled reports whether every field needed to send is set.
func (c EmailConfig) Enabled() bool {
	return c.APIKey != "" && c.FromEmail != "" && c.AdminEmail != ""
}

// EmailService mails pass and broadcast reports to the admin.
type EmailService struct {
	client     *sendgrid.Client
	fromEmail  string
	fromName   string
	adminEmail string
}

func NewEmailService(cfg EmailConfig) *EmailService {
	return &EmailService{
		client:     sendgrid.NewSendClient(cfg.APIKey),
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		adminEmail: cfg.AdminEmail,
	}
}

// ReportPass implements PassReporter. Passes that sent nothing and failed
// nothing are not mailed.
func (s *EmailService) ReportPass(ctx context.Context, summary PassSummary) error {
	if summary.Sent == 0 && summary.Failed == 0 {
		return nil
	}
	subject, plain, htmlContent := passReport(summary)
	return s.send(ctx, subject, plain, htmlContent)
}

// ReportBroadcast mails the outcome of a broadcast.
func (s *EmailService) ReportBroadcast(ctx context.Context, result BroadcastResult) error {
	subject, plain, htmlContent := broadcastReport(result)
	return s.send(ctx, subject, plain, htmlContent)
}

func (s *EmailService) send(ctx context.Context, subject, plainContent, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("admin", s.adminEmail)
	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", s.adminEmail, response.StatusCode)
	}
	return nil
}

func passReport(summary PassSummary) (subject, plain, htmlContent string) {
	day := summary.Day.Format("02.01.2006")
	subject = fmt.Sprintf("Reminder pass %s: %d sent, %d failed", day, summary.Sent, summary.Failed)

	counts := fmt.Sprintf("users %d, sent %d, skipped %d, deleted %d, purged %d, failed %d",
		summary.Users, summary.Sent, summary.Skipped, summary.Deleted, summary.Purged, summary.Failed)

	var p, h strings.Builder
	fmt.Fprintf(&p, "Reminder pass %s for %s\n%s\n", summary.ID, day, counts)
	fmt.Fprintf(&h, "<p>Reminder pass <code>%s</code> for <strong>%s</strong></p><p>%s</p>", summary.ID, day, counts)
	if len(summary.Notifications) > 0 {
		h.WriteString("<ul>")
		for _, n := range summary.Notifications {
			fmt.Fprintf(&p, "- %s: %s (%d days)\n", n.UserID, n.Kind, n.DaysLeft)
			fmt.Fprintf(&h, "<li>%s: %s (%d days)</li>", html.EscapeString(n.UserID), n.Kind, n.DaysLeft)
		}
		h.WriteString("</ul>")
	}
	return subject, p.String(), h.String()
}

func broadcastReport(result BroadcastResult) (subject, plain, htmlContent string) {
	subject = fmt.Sprintf("Broadcast finished: %d delivered, %d failed", result.Success, result.Failed)
	plain = fmt.Sprintf("Broadcast %s\nDelivered: %d\nFailed: %d\n", result.ID, result.Success, result.Failed)
	htmlContent = fmt.Sprintf("<p>Broadcast <code>%s</code></p><p>Delivered: %d<br>Failed: %d</p>",
		result.ID, result.Success, result.Failed)
	if len(result.FailedUsers) > 0 {
		plain += "Failed users: " + strings.Join(result.FailedUsers, ", ") + "\n"
		htmlContent += "<p>Failed users: " + html.EscapeString(strings.Join(result.FailedUsers, ", ")) + "</p>"
	}
	return subject, plain, htmlContent
}
