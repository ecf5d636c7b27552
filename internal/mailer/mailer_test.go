package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"backoffice-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m...)
	return nil
}

func notification() *models.ExportNotification {
	return &models.ExportNotification{
		ExportID:      1,
		InvoiceNumber: "AFAK-INV-00001",
		ClientName:    "Bob <Shoes>",
		Email:         "bob@example.com",
		PDFURL:        "http://localhost:4000/invoices/AFAK-INV-00001.pdf",
	}
}

func TestNotifyExportSends(t *testing.T) {
	sender := &fakeSender{}
	m := NewWithSender(sender, "billing@example.com")

	status, err := m.NotifyExport(context.Background(), notification())
	require.NoError(t, err)
	assert.Equal(t, StatusSent, status)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"bob@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your invoice AFAK-INV-00001"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Hello Bob <Shoes>")
	assert.Contains(t, buf.String(), "Bob &lt;Shoes&gt;")
}

func TestNotifyExportFailure(t *testing.T) {
	m := NewWithSender(&fakeSender{err: errors.New("smtp down")}, "billing@example.com")

	_, err := m.NotifyExport(context.Background(), notification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestHandleExportCreated(t *testing.T) {
	sender := &fakeSender{}
	m := NewWithSender(sender, "billing@example.com")

	err := m.HandleExportCreated(context.Background(), &models.ExportCreatedEvent{
		InvoiceNumber: "AFAK-INV-00002",
		Email:         "alice@example.com",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent[0].GetHeader("To"))
}
