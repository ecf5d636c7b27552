package mailer

import (
	"context"
	"fmt"
	"strings"

	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// StatusSent is reported once the SMTP server accepted the message
const StatusSent = "sent"

// Sender delivers prepared messages
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer emails clients when their invoice is ready
type Mailer struct {
	sender Sender
	from   string
	logger *zap.Logger
}

// New creates a mailer that sends through an SMTP server
func New(host string, port int, username, password, from string) *Mailer {
	return NewWithSender(gomail.NewDialer(host, port, username, password), from)
}

// NewWithSender creates a mailer on top of any sender
func NewWithSender(sender Sender, from string) *Mailer {
	return &Mailer{
		sender: sender,
		from:   from,
		logger: util.Named("mailer"),
	}
}

// NotifyExport sends the invoice email synchronously
func (m *Mailer) NotifyExport(ctx context.Context, n *models.ExportNotification) (string, error) {
	_, span := util.StartSpan(ctx, "Mailer.NotifyExport")
	defer span.End()

	if err := m.send(BuildInvoiceMessage(m.from, n)); err != nil {
		return "", fmt.Errorf("failed to send invoice email to %s: %w", n.Email, err)
	}

	m.logger.Info("Invoice email sent",
		zap.String("invoice_number", n.InvoiceNumber),
		zap.String("email", n.Email))
	return StatusSent, nil
}

// HandleExportCreated sends the email for an event read from the export topic
func (m *Mailer) HandleExportCreated(ctx context.Context, event *models.ExportCreatedEvent) error {
	_, err := m.NotifyExport(ctx, &models.ExportNotification{
		ExportID:      event.ExportID,
		InvoiceNumber: event.InvoiceNumber,
		ClientName:    event.ClientName,
		Email:         event.Email,
		PDFURL:        event.PDFURL,
	})
	return err
}

func (m *Mailer) send(msg *gomail.Message) error {
	return m.sender.DialAndSend(msg)
}

// BuildInvoiceMessage renders the invoice-ready email
func BuildInvoiceMessage(from string, n *models.ExportNotification) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Your invoice %s", n.InvoiceNumber))
	msg.SetBody("text/plain", invoiceText(n))
	msg.AddAlternative("text/html", invoiceHTML(n))
	return msg
}

func invoiceText(n *models.ExportNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", n.ClientName)
	fmt.Fprintf(&b, "Your invoice %s is ready.\n", n.InvoiceNumber)
	fmt.Fprintf(&b, "You can download it here: %s\n", n.PDFURL)
	return b.String()
}

func invoiceHTML(n *models.ExportNotification) string {
	return fmt.Sprintf(
		`<p>Hello %s,</p><p>Your invoice <strong>%s</strong> is ready.</p><p><a href="%s">Download the PDF</a></p>`,
		htmlEscape(n.ClientName), htmlEscape(n.InvoiceNumber), htmlEscape(n.PDFURL))
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
