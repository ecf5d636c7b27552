package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxDiscount = decimal.NewFromInt(100)

// ModelInput is the editable part of a model
type ModelInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Quantity int             `json:"quantity"`
	Packages int             `json:"packages"`
}

// Validate checks the ledger's value constraints
func (in *ModelInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return invalid(ErrInvalidModel, "name is required")
	case in.Price.IsNegative():
		return invalid(ErrInvalidModel, "price must not be negative")
	case in.Discount.IsNegative() || in.Discount.GreaterThan(maxDiscount):
		return invalid(ErrInvalidModel, "discount must be between 0 and 100")
	case in.Quantity < 0:
		return invalid(ErrInvalidModel, "quantity must not be negative")
	case in.Packages < 0:
		return invalid(ErrInvalidModel, "packages must not be negative")
	}
	return nil
}

// StockService manages the models in each company table
type StockService struct {
	repo   StockRepository
	logger *zap.Logger
}

// NewStockService creates a new stock service
func NewStockService(repo StockRepository) *StockService {
	return &StockService{
		repo:   repo,
		logger: util.Named("stock"),
	}
}

// ListModels lists a company's models; q filters by name substring
func (s *StockService) ListModels(ctx context.Context, company, q string) ([]models.Model, error) {
	ctx, span := util.StartSpan(ctx, "StockService.ListModels")
	defer span.End()

	table, err := NormalizeCompanyName(company)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListModels(ctx, table, strings.TrimSpace(q))
	if err != nil {
		return nil, stockError(table, 0, err)
	}
	return items, nil
}

func (s *StockService) GetModel(ctx context.Context, company string, id int64) (*models.Model, error) {
	table, err := NormalizeCompanyName(company)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.GetModel(ctx, table, id)
	if err != nil {
		return nil, stockError(table, id, err)
	}
	return m, nil
}

func (s *StockService) CreateModel(ctx context.Context, company string, in ModelInput) (*models.Model, error) {
	ctx, span := util.StartSpan(ctx, "StockService.CreateModel")
	defer span.End()

	table, err := NormalizeCompanyName(company)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m := &models.Model{
		Name:     in.Name,
		Price:    in.Price,
		Discount: in.Discount,
		Quantity: in.Quantity,
		Packages: in.Packages,
	}
	if err := s.repo.CreateModel(ctx, table, m); err != nil {
		return nil, stockError(table, 0, err)
	}

	s.logger.Info("Model created",
		zap.String("table", table),
		zap.Int64("model_id", m.ID))
	return m, nil
}

// UpdateModel overwrites a model. There is no version check; the last writer wins.
func (s *StockService) UpdateModel(ctx context.Context, company string, id int64, in ModelInput) (*models.Model, error) {
	ctx, span := util.StartSpan(ctx, "StockService.UpdateModel")
	defer span.End()

	table, err := NormalizeCompanyName(company)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m := &models.Model{
		ID:       id,
		Name:     in.Name,
		Price:    in.Price,
		Discount: in.Discount,
		Quantity: in.Quantity,
		Packages: in.Packages,
	}
	if err := s.repo.UpdateModel(ctx, table, m); err != nil {
		return nil, stockError(table, id, err)
	}
	return m, nil
}

func (s *StockService) DeleteModel(ctx context.Context, company string, id int64) error {
	table, err := NormalizeCompanyName(company)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteModel(ctx, table, id); err != nil {
		return stockError(table, id, err)
	}

	s.logger.Info("Model deleted",
		zap.String("table", table),
		zap.Int64("model_id", id))
	return nil
}

func stockError(table string, id int64, err error) error {
	switch {
	case errors.Is(err, store.ErrTableNotFound), errors.Is(err, store.ErrInvalidTable):
		return fmt.Errorf("%w: %s", ErrCompanyNotFound, table)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s/%d", ErrModelNotFound, table, id)
	default:
		return err
	}
}
