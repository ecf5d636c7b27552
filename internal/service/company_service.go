package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReservedTables are system tables that can never be a company
var ReservedTables = map[string]bool{
	"users":        true,
	"company_meta": true,
	"clients":      true,
	"exports":      true,
	"logs":         true,
	"backups":      true,
}

var companyIdent = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// NormalizeCompanyName maps a display name onto its physical table name:
// lowercase, whitespace runs become underscores. Names that are not a safe identifier
// or collide with a system table are rejected.
func NormalizeCompanyName(name string) (string, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	if normalized == "" {
		return "", invalid(ErrInvalidCompanyName, "name is required")
	}
	if !companyIdent.MatchString(normalized) {
		return "", invalid(ErrInvalidCompanyName, "%q may only contain letters, digits, spaces and underscores and must start with a letter", name)
	}
	if ReservedTables[normalized] {
		return "", invalid(ErrInvalidCompanyName, "%q is reserved", normalized)
	}
	return normalized, nil
}

// CompanyService maintains the company name to product table mapping
type CompanyService struct {
	repo   CompanyRepository
	logger *zap.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(repo CompanyRepository) *CompanyService {
	return &CompanyService{
		repo:   repo,
		logger: util.Named("company"),
	}
}

// CreateCompany creates the company's table and metadata row
func (s *CompanyService) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	ctx, span := util.StartSpan(ctx, "CompanyService.CreateCompany")
	defer span.End()

	table, err := NormalizeCompanyName(name)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("company", table))

	company, err := s.repo.CreateCompanyTable(ctx, table)
	if err != nil {
		return nil, companyError(table, err)
	}

	util.CompaniesChangedTotal.WithLabelValues("create").Inc()
	s.logger.Info("Company created", zap.String("table", table))
	return company, nil
}

// RenameCompany renames the table and its metadata row
func (s *CompanyService) RenameCompany(ctx context.Context, oldName, newName string) (*models.Company, error) {
	ctx, span := util.StartSpan(ctx, "CompanyService.RenameCompany")
	defer span.End()

	oldTable, err := NormalizeCompanyName(oldName)
	if err != nil {
		return nil, err
	}
	newTable, err := NormalizeCompanyName(newName)
	if err != nil {
		return nil, err
	}
	if oldTable == newTable {
		return nil, invalid(ErrInvalidCompanyName, "new name maps to the same table %q", newTable)
	}

	company, err := s.repo.RenameCompanyTable(ctx, oldTable, newTable)
	if err != nil {
		return nil, companyError(oldTable, err)
	}

	util.CompaniesChangedTotal.WithLabelValues("rename").Inc()
	s.logger.Info("Company renamed",
		zap.String("from", oldTable),
		zap.String("to", newTable))
	return company, nil
}

// DeleteCompany drops the table and its metadata row
func (s *CompanyService) DeleteCompany(ctx context.Context, name string) error {
	ctx, span := util.StartSpan(ctx, "CompanyService.DeleteCompany")
	defer span.End()

	table, err := NormalizeCompanyName(name)
	if err != nil {
		return err
	}

	if err := s.repo.DropCompanyTable(ctx, table); err != nil {
		return companyError(table, err)
	}

	util.CompaniesChangedTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Company deleted", zap.String("table", table))
	return nil
}

// ListCompanies lists physical company tables. Metadata supplies created_at; metadata rows
// whose table no longer exists are left out of the result.
func (s *CompanyService) ListCompanies(ctx context.Context) ([]models.Company, error) {
	ctx, span := util.StartSpan(ctx, "CompanyService.ListCompanies")
	defer span.End()

	tables, err := s.repo.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	meta, err := s.repo.ListCompanyMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list company metadata: %w", err)
	}

	byName := make(map[string]models.Company, len(meta))
	for _, m := range meta {
		byName[m.Name] = m
	}

	companies := make([]models.Company, 0, len(tables))
	for _, table := range tables {
		if ReservedTables[table] {
			continue
		}
		if m, ok := byName[table]; ok {
			companies = append(companies, m)
			delete(byName, table)
			continue
		}
		companies = append(companies, models.Company{Name: table})
	}

	for name := range byName {
		s.logger.Warn("Company metadata without table", zap.String("table", name))
	}

	return companies, nil
}

// ListCompaniesWithCounts is ListCompanies plus the number of models in each table
func (s *CompanyService) ListCompaniesWithCounts(ctx context.Context) ([]models.Company, error) {
	companies, err := s.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}

	for i := range companies {
		n, err := s.repo.CountModels(ctx, companies[i].Name)
		if err != nil {
			return nil, fmt.Errorf("failed to count models in %s: %w", companies[i].Name, err)
		}
		companies[i].ModelCount = &n
	}
	return companies, nil
}

func companyError(table string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrTableNotFound):
		return fmt.Errorf("%w: %s", ErrCompanyNotFound, table)
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrTableExists):
		return fmt.Errorf("%w: %s", ErrCompanyExists, table)
	case errors.Is(err, store.ErrInvalidTable):
		return fmt.Errorf("%w: %s", ErrInvalidCompanyName, table)
	default:
		return err
	}
}
