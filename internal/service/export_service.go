package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"backoffice-service/internal/invoice"
	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Stage is a step of the export flow
type Stage string

const (
	StageValidating        Stage = "validating"
	StageAllocatingInvoice Stage = "allocating-invoice"
	StagePersisting        Stage = "persisting"
	StageDecrementingStock Stage = "decrementing-stock"
	StageNotifying         Stage = "notifying"
	StageDone              Stage = "done"
)

// Notification outcomes
const (
	NotifySent    = "sent"
	NotifyQueued  = "queued"
	NotifySkipped = "skipped"
	NotifyFailed  = "failed"
)

const (
	exportLockTTL     = 30 * time.Second
	exportLockRetries = 3
	exportLockBackoff = 100 * time.Millisecond
)

// ExportLine is one requested line of an export
type ExportLine struct {
	ID       int64            `json:"id"`
	Table    string           `json:"table"`
	Quantity int              `json:"quantity"`
	Packages int              `json:"packages"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
}

// ExportRequest is the body of POST /api/exports
type ExportRequest struct {
	ClientName string       `json:"clientName"`
	Data       []ExportLine `json:"data"`
}

// DecrementResult is what happened to one line's stock update
type DecrementResult struct {
	Table    string `json:"table"`
	ModelID  int64  `json:"id"`
	Quantity int    `json:"quantity"`
	Packages int    `json:"packages"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the update was applied
func (r DecrementResult) OK() bool {
	return r.Error == ""
}

// ExportOutcome records every stage an export reached and what each side effect did
type ExportOutcome struct {
	Export          *models.Export    `json:"export,omitempty"`
	Stage           Stage             `json:"stage"`
	Stages          []Stage           `json:"stages"`
	Decrements      []DecrementResult `json:"decrements"`
	Notification    string            `json:"notification"`
	NotificationErr string            `json:"notification_error,omitempty"`
}

func (o *ExportOutcome) enter(stage Stage) {
	o.Stage = stage
	o.Stages = append(o.Stages, stage)
}

// FailedDecrements counts lines whose stock update did not apply
func (o *ExportOutcome) FailedDecrements() int {
	n := 0
	for _, d := range o.Decrements {
		if !d.OK() {
			n++
		}
	}
	return n
}

// ExportServiceConfig holds the export engine's collaborators. Locker and Notifier are optional.
type ExportServiceConfig struct {
	Clients  ClientRepository
	Stock    StockRepository
	Exports  ExportRepository
	Locker   Locker
	Notifier Notifier
	PDFs     *invoice.PDFStore
	Links    *invoice.LinkSigner
	BaseURL  string
}

// ExportService runs the export flow: validate, allocate invoice, persist, decrement, notify
type ExportService struct {
	clients  ClientRepository
	stock    StockRepository
	exports  ExportRepository
	locker   Locker
	notifier Notifier
	pdfs     *invoice.PDFStore
	links    *invoice.LinkSigner
	baseURL  string
	logger   *zap.Logger
}

// NewExportService creates a new export service
func NewExportService(cfg ExportServiceConfig) *ExportService {
	return &ExportService{
		clients:  cfg.Clients,
		stock:    cfg.Stock,
		exports:  cfg.Exports,
		locker:   cfg.Locker,
		notifier: cfg.Notifier,
		pdfs:     cfg.PDFs,
		links:    cfg.Links,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   util.Named("export"),
	}
}

type lineKey struct {
	table string
	id    int64
}

// CreateExport validates the request against live stock and, if every line fits, records
// the export under a fresh invoice number and decrements stock. A rejected export changes
// nothing. The outcome is returned even on error so callers can see the stage reached.
func (s *ExportService) CreateExport(ctx context.Context, req *ExportRequest) (*ExportOutcome, error) {
	ctx, span := util.StartSpan(ctx, "ExportService.CreateExport")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ExportLatency.Observe(time.Since(start).Seconds())
	}()

	outcome := &ExportOutcome{}
	outcome.enter(StageValidating)

	lines, err := normalizeLines(req)
	if err != nil {
		util.ExportsRejectedTotal.WithLabelValues("invalid_request").Inc()
		return outcome, err
	}

	client, err := s.clients.GetClientByName(ctx, strings.TrimSpace(req.ClientName))
	if err != nil {
		util.ExportsRejectedTotal.WithLabelValues("unknown_client").Inc()
		return outcome, clientError(req.ClientName, err)
	}

	release, err := s.lockTables(ctx, lines)
	if err != nil {
		util.ExportsRejectedTotal.WithLabelValues("locked").Inc()
		return outcome, err
	}
	defer release()

	items, err := s.validateStock(ctx, lines)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			util.ExportsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.ExportsRejectedTotal.WithLabelValues("invalid_items").Inc()
		}
		return outcome, err
	}

	outcome.enter(StageAllocatingInvoice)
	export := &models.Export{ClientID: client.ID, Data: items}
	err = s.exports.CreateExport(ctx, export, func(seq int64) string {
		outcome.enter(StagePersisting)
		return invoice.FormatNumber(seq)
	})
	if err != nil {
		util.ExportsRejectedTotal.WithLabelValues("db_error").Inc()
		return outcome, fmt.Errorf("failed to persist export: %w", err)
	}
	outcome.Export = export

	util.ExportsCreatedTotal.Inc()
	span.SetAttributes(attribute.String("invoice_number", export.InvoiceNumber))
	s.logger.Info("Export created",
		zap.Int64("export_id", export.ID),
		zap.String("invoice_number", export.InvoiceNumber),
		zap.String("client", client.Name))

	outcome.enter(StageDecrementingStock)
	outcome.Decrements = s.decrementStock(ctx, export.InvoiceNumber, lines)

	outcome.enter(StageNotifying)
	outcome.Notification, outcome.NotificationErr = s.notify(ctx, client, export)

	outcome.enter(StageDone)
	return outcome, nil
}

func normalizeLines(req *ExportRequest) ([]ExportLine, error) {
	if req == nil || strings.TrimSpace(req.ClientName) == "" {
		return nil, invalid(ErrInvalidExport, "client name is required")
	}
	if len(req.Data) == 0 {
		return nil, invalid(ErrInvalidExport, "no models selected")
	}

	lines := make([]ExportLine, len(req.Data))
	for i, line := range req.Data {
		table, err := NormalizeCompanyName(line.Table)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidExport, i+1, err)
		}
		if line.ID <= 0 {
			return nil, invalid(ErrInvalidExport, "line %d: model id is required", i+1)
		}
		if line.Quantity <= 0 {
			return nil, invalid(ErrInvalidExport, "line %d: quantity must be positive", i+1)
		}
		if line.Packages < 0 {
			return nil, invalid(ErrInvalidExport, "line %d: packages must not be negative", i+1)
		}
		if line.Discount != nil && (line.Discount.IsNegative() || line.Discount.GreaterThan(maxDiscount)) {
			return nil, invalid(ErrInvalidExport, "line %d: discount must be between 0 and 100", i+1)
		}
		line.Table = table
		lines[i] = line
	}
	return lines, nil
}

// lockTables takes the export lock of every company the request touches, in name order
func (s *ExportService) lockTables(ctx context.Context, lines []ExportLine) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	seen := make(map[string]bool)
	var tables []string
	for _, line := range lines {
		if !seen[line.Table] {
			seen[line.Table] = true
			tables = append(tables, line.Table)
		}
	}
	sort.Strings(tables)

	token := uuid.New().String()
	var held []string
	release := func() {
		for _, table := range held {
			if err := s.locker.ReleaseLock(context.Background(), exportLockKey(table), token); err != nil {
				s.logger.Warn("Failed to release export lock",
					zap.String("table", table),
					zap.Error(err))
			}
		}
	}

	for _, table := range tables {
		ok, err := s.acquire(ctx, exportLockKey(table), token)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to lock %s: %w", table, err)
		}
		if !ok {
			release()
			return nil, fmt.Errorf("%w: %s", ErrExportInProgress, table)
		}
		held = append(held, table)
	}
	return release, nil
}

func (s *ExportService) acquire(ctx context.Context, key, token string) (bool, error) {
	for attempt := 0; attempt < exportLockRetries; attempt++ {
		ok, err := s.locker.AcquireLock(ctx, key, token, exportLockTTL)
		if err != nil || ok {
			return ok, err
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(exportLockBackoff):
		}
	}
	return false, nil
}

func exportLockKey(table string) string {
	return "export:" + table
}

// validateStock reads every referenced model and builds the line snapshots. Repeated lines
// for the same model are checked against stock as one combined request.
func (s *ExportService) validateStock(ctx context.Context, lines []ExportLine) (models.LineItems, error) {
	live := make(map[lineKey]*models.Model)
	wantQty := make(map[lineKey]int)
	wantPkg := make(map[lineKey]int)

	for _, line := range lines {
		key := lineKey{line.Table, line.ID}
		if _, ok := live[key]; !ok {
			m, err := s.stock.GetModel(ctx, line.Table, line.ID)
			if err != nil {
				return nil, stockError(line.Table, line.ID, err)
			}
			live[key] = m
		}
		wantQty[key] += line.Quantity
		wantPkg[key] += line.Packages
	}

	for _, line := range lines {
		key := lineKey{line.Table, line.ID}
		m := live[key]
		if wantQty[key] > m.Quantity || wantPkg[key] > m.Packages {
			return nil, &StockError{
				Table:        line.Table,
				ModelID:      m.ID,
				Name:         m.Name,
				Requested:    wantQty[key],
				RequestedPkg: wantPkg[key],
				Available:    m.Quantity,
				AvailablePkg: m.Packages,
			}
		}
	}

	items := make(models.LineItems, 0, len(lines))
	for _, line := range lines {
		m := live[lineKey{line.Table, line.ID}]
		discount := m.Discount
		if line.Discount != nil {
			discount = *line.Discount
		}
		items = append(items, models.LineItem{
			ID:       m.ID,
			Table:    line.Table,
			Name:     m.Name,
			Price:    m.Price,
			Discount: discount,
			Quantity: line.Quantity,
			Packages: line.Packages,
			Pairs:    invoice.Pairs(line.Quantity, line.Packages),
		})
	}
	return items, nil
}

// decrementStock applies every line's update independently. A failed line is logged and
// reported; the others still apply and nothing is compensated.
func (s *ExportService) decrementStock(ctx context.Context, invoiceNumber string, lines []ExportLine) []DecrementResult {
	results := make([]DecrementResult, len(lines))

	var wg sync.WaitGroup
	for i, line := range lines {
		wg.Add(1)
		go func(i int, line ExportLine) {
			defer wg.Done()

			res := DecrementResult{
				Table:    line.Table,
				ModelID:  line.ID,
				Quantity: line.Quantity,
				Packages: line.Packages,
			}
			if err := s.stock.DecrementStock(ctx, line.Table, line.ID, line.Quantity, line.Packages); err != nil {
				res.Error = err.Error()
				util.StockDecrementFailures.Inc()
				s.logger.Error("Failed to decrement stock",
					zap.String("invoice_number", invoiceNumber),
					zap.String("table", line.Table),
					zap.Int64("model_id", line.ID),
					zap.Error(err))
			}
			results[i] = res
		}(i, line)
	}
	wg.Wait()

	return results
}

func (s *ExportService) notify(ctx context.Context, client *models.Client, export *models.Export) (string, string) {
	if !client.HasEmail() || s.notifier == nil {
		util.NotificationsTotal.WithLabelValues(NotifySkipped).Inc()
		return NotifySkipped, ""
	}

	status, err := s.sendNotification(ctx, client, export)
	if err != nil {
		util.NotificationsTotal.WithLabelValues(NotifyFailed).Inc()
		s.logger.Error("Failed to notify client",
			zap.String("invoice_number", export.InvoiceNumber),
			zap.String("email", *client.Email),
			zap.Error(err))
		return NotifyFailed, err.Error()
	}

	util.NotificationsTotal.WithLabelValues(status).Inc()
	return status, ""
}

func (s *ExportService) sendNotification(ctx context.Context, client *models.Client, export *models.Export) (string, error) {
	link, err := s.ClientPDFURL(export.InvoiceNumber)
	if err != nil {
		return "", err
	}
	return s.notifier.NotifyExport(ctx, &models.ExportNotification{
		ExportID:      export.ID,
		InvoiceNumber: export.InvoiceNumber,
		ClientName:    client.Name,
		Email:         *client.Email,
		PDFURL:        link,
	})
}

// PDFURL is the staff link to an invoice's PDF
func (s *ExportService) PDFURL(invoiceNumber string) string {
	return s.baseURL + "/invoices/" + invoiceNumber + ".pdf"
}

// ClientPDFURL is the link mailed to a client. With a link signer it carries a token and
// works without a staff session.
func (s *ExportService) ClientPDFURL(invoiceNumber string) (string, error) {
	if s.links == nil {
		return s.PDFURL(invoiceNumber), nil
	}

	token, err := s.links.Sign(invoiceNumber)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/public/invoices/" + invoiceNumber + ".pdf?token=" + url.QueryEscape(token), nil
}

// SavePDF stores caller-rendered invoice bytes verbatim
func (s *ExportService) SavePDF(ctx context.Context, invoiceNumber string, pdf []byte) (string, error) {
	_, span := util.StartSpan(ctx, "ExportService.SavePDF")
	defer span.End()

	path, err := s.pdfs.Save(invoiceNumber, pdf)
	if err != nil {
		return "", err
	}

	s.logger.Info("Invoice PDF saved",
		zap.String("invoice_number", invoiceNumber),
		zap.Int("bytes", len(pdf)))
	return path, nil
}

// OpenPDF returns the file path of a stored invoice PDF
func (s *ExportService) OpenPDF(invoiceNumber string) (string, error) {
	return s.pdfs.Open(invoiceNumber)
}

// OpenSharedPDF returns the file path of an invoice PDF for a signed client link
func (s *ExportService) OpenSharedPDF(invoiceNumber, token string) (string, error) {
	if s.links == nil {
		return "", invoice.ErrInvalidLink
	}
	if err := s.links.Verify(invoiceNumber, token); err != nil {
		return "", err
	}
	return s.pdfs.Open(invoiceNumber)
}
