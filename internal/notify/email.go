package notify

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Notifier announces events to users. Implementations are
// fire-and-forget: a failed notification is logged, never propagated,
// and never blocks the caller.
type Notifier interface {
	DocumentUploaded(fileName, description string)
}

type EmailNotifier struct {
	host       string
	port       int
	from       string
	password   string
	recipients []string
}

func NewEmailNotifier(host string, port int, from, password string, recipients []string) *EmailNotifier {
	return &EmailNotifier{
		host:       host,
		port:       port,
		from:       from,
		password:   password,
		recipients: recipients,
	}
}

func (n *EmailNotifier) DocumentUploaded(fileName, description string) {
	if len(n.recipients) == 0 {
		return
	}
	if description == "" {
		description = "No description provided"
	}

	subject := fmt.Sprintf("New Document: %s", fileName)
	body := fmt.Sprintf(
		"<h2>New Document Uploaded</h2>"+
			"<p>A new document <strong>%s</strong> has been uploaded.</p>"+
			"<p>Description: %s</p>",
		fileName, description,
	)

	go n.send(subject, body)
}

func (n *EmailNotifier) send(subject, body string) {
	msg := strings.Join([]string{
		"From: " + n.from,
		"To: " + strings.Join(n.recipients, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.from, n.password, n.host)
	if err := smtp.SendMail(addr, auth, n.from, n.recipients, []byte(msg)); err != nil {
		slog.Warn("email notification failed", "subject", subject, "error", err)
	}
}

// Noop discards all notifications, for deployments without SMTP.
type Noop struct{}

func (Noop) DocumentUploaded(string, string) {}
