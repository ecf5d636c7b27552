package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"backoffice-service/internal/invoice"
	"backoffice-service/internal/service"

	"github.com/gin-gonic/gin"
)

const maxPDFBytes = 20 << 20

// byteArray accepts either a JSON array of byte values or a base64 string
type byteArray []byte

func (b *byteArray) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw []byte
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*b = raw
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

type savePDFRequest struct {
	InvoiceNumber string    `json:"invoiceNumber" binding:"required"`
	PDF           byteArray `json:"pdf"`
}

// createExport runs the full export flow and reports every stage reached
func (h *Handler) createExport(c *gin.Context) {
	var req service.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	outcome, err := h.exports.CreateExport(c.Request.Context(), &req)
	if err != nil {
		h.record(c, "create_export", err, "client="+req.ClientName)
		respondError(c, "Failed to create export", err)
		return
	}

	details := fmt.Sprintf("client=%s invoice=%s lines=%d failed_decrements=%d",
		req.ClientName, outcome.Export.InvoiceNumber, len(outcome.Export.Data), outcome.FailedDecrements())
	h.record(c, "create_export", nil, details)

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Export created",
		"exportId":      outcome.Export.ID,
		"invoiceNumber": outcome.Export.InvoiceNumber,
		"pdfUrl":        h.exports.PDFURL(outcome.Export.InvoiceNumber),
		"data":          outcome.Export.Data,
		"stages":        outcome.Stages,
		"decrements":    outcome.Decrements,
		"notification":  outcome.Notification,
	})
}

// savePDF stores a PDF sent as {invoiceNumber, pdf:[...]}
func (h *Handler) savePDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 4*maxPDFBytes)

	var req savePDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	h.storePDF(c, req.InvoiceNumber, req.PDF)
}

// uploadPDF stores a raw application/pdf body
func (h *Handler) uploadPDF(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPDFBytes))
	if err != nil {
		badRequest(c, "Failed to read PDF", err)
		return
	}

	h.storePDF(c, c.Param("invoice"), body)
}

func (h *Handler) storePDF(c *gin.Context, invoiceNumber string, pdf []byte) {
	_, err := h.exports.SavePDF(c.Request.Context(), invoiceNumber, pdf)
	h.record(c, "save_pdf", err, "invoice="+invoiceNumber)
	if err != nil {
		respondError(c, "Failed to save PDF", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "PDF saved",
		"url":     h.exports.PDFURL(invoiceNumber),
	})
}

// getInvoicePDF serves /invoices/<invoice>.pdf to staff
func (h *Handler) getInvoicePDF(c *gin.Context) {
	number, ok := pdfNumber(c)
	if !ok {
		return
	}

	path, err := h.exports.OpenPDF(number)
	if err != nil {
		respondError(c, "Invoice not found", err)
		return
	}
	servePDF(c, path)
}

// getSharedInvoicePDF serves /public/invoices/<invoice>.pdf?token= to a mailed client
func (h *Handler) getSharedInvoicePDF(c *gin.Context) {
	number, ok := pdfNumber(c)
	if !ok {
		return
	}

	path, err := h.exports.OpenSharedPDF(number, c.Query("token"))
	if err != nil {
		respondError(c, "Invoice not available", err)
		return
	}
	servePDF(c, path)
}

// pdfNumber extracts the invoice number from a "<invoice>.pdf" path segment
func pdfNumber(c *gin.Context) (string, bool) {
	file := c.Param("file")
	number := strings.TrimSuffix(file, ".pdf")
	if number == file || !invoice.ValidNumber(number) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Invoice not found",
		})
		return "", false
	}
	return number, true
}

func servePDF(c *gin.Context, path string) {
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
