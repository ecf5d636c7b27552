package api

import (
	"errors"
	"net/http"

	"backoffice-service/internal/backup"
	"backoffice-service/internal/invoice"
	"backoffice-service/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCompanyName),
		errors.Is(err, service.ErrInvalidModel),
		errors.Is(err, service.ErrInvalidClient),
		errors.Is(err, service.ErrInvalidExport),
		errors.Is(err, service.ErrInvalidLogin),
		errors.Is(err, invoice.ErrInvalidNumber),
		errors.Is(err, invoice.ErrEmptyPDF),
		errors.Is(err, backup.ErrInvalidType):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, invoice.ErrInvalidLink):
		return http.StatusForbidden

	case errors.Is(err, service.ErrCompanyNotFound),
		errors.Is(err, service.ErrModelNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, invoice.ErrPDFNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrCompanyExists),
		errors.Is(err, service.ErrClientExists),
		errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrClientHasExports),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrExportInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": message, "details": err} with the mapped status
func respondError(c *gin.Context, message string, err error) {
	body := gin.H{
		"error":   message,
		"details": err.Error(),
	}

	var stockErr *service.StockError
	if errors.As(err, &stockErr) {
		body["error"] = stockErr.Error()
		body["model"] = gin.H{
			"id":                 stockErr.ModelID,
			"table":              stockErr.Table,
			"name":               stockErr.Name,
			"available_quantity": stockErr.Available,
			"available_packages": stockErr.AvailablePkg,
		}
	}

	c.JSON(statusFor(err), body)
}

func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
