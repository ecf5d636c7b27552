package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"backoffice-service/internal/invoice"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

// ClientInput is the editable part of a client
type ClientInput struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// Validate trims the input and checks the email shape when one is given
func (in *ClientInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid(ErrInvalidClient, "name is required")
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			in.Email = nil
			return nil
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return invalid(ErrInvalidClient, "invalid email %q", email)
		}
		in.Email = &email
	}
	return nil
}

// ClientExport is one row of a client's export history
type ClientExport struct {
	models.Export
	Summary models.ExportSummary `json:"summary"`
}

// ClientService manages the client directory
type ClientService struct {
	repo   ClientRepository
	logger *zap.Logger
}

// NewClientService creates a new client service
func NewClientService(repo ClientRepository) *ClientService {
	return &ClientService{
		repo:   repo,
		logger: util.Named("client"),
	}
}

func (s *ClientService) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	ctx, span := util.StartSpan(ctx, "ClientService.CreateClient")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	client := &models.Client{Name: in.Name, Email: in.Email}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return nil, clientError(in.Name, err)
	}

	s.logger.Info("Client created",
		zap.Int64("client_id", client.ID),
		zap.String("name", client.Name))
	return client, nil
}

// SearchClients lists clients whose name contains q; an empty q lists all of them
func (s *ClientService) SearchClients(ctx context.Context, q string) ([]models.Client, error) {
	return s.repo.SearchClients(ctx, strings.TrimSpace(q))
}

func (s *ClientService) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	client, err := s.repo.GetClientByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, clientError(name, err)
	}
	return client, nil
}

func (s *ClientService) UpdateClient(ctx context.Context, id int64, in ClientInput) (*models.Client, error) {
	ctx, span := util.StartSpan(ctx, "ClientService.UpdateClient")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	client := &models.Client{ID: id, Name: in.Name, Email: in.Email}
	if err := s.repo.UpdateClient(ctx, client); err != nil {
		return nil, clientError(fmt.Sprint(id), err)
	}
	return client, nil
}

// DeleteClient removes a client. Clients referenced by an export cannot be deleted.
func (s *ClientService) DeleteClient(ctx context.Context, id int64) error {
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return clientError(fmt.Sprint(id), err)
	}
	s.logger.Info("Client deleted", zap.Int64("client_id", id))
	return nil
}

// ListClientExports returns a client's exports with their totals, newest first
func (s *ClientService) ListClientExports(ctx context.Context, id int64) ([]ClientExport, error) {
	ctx, span := util.StartSpan(ctx, "ClientService.ListClientExports")
	defer span.End()

	if _, err := s.repo.GetClientByID(ctx, id); err != nil {
		return nil, clientError(fmt.Sprint(id), err)
	}

	exports, err := s.repo.ListExportsByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	history := make([]ClientExport, 0, len(exports))
	for _, e := range exports {
		history = append(history, ClientExport{
			Export:  e,
			Summary: invoice.Summarize(e.Data),
		})
	}
	return history, nil
}

func clientError(ref string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrClientNotFound, ref)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrClientExists, ref)
	case errors.Is(err, store.ErrReferenced):
		return fmt.Errorf("%w: %s", ErrClientHasExports, ref)
	default:
		return err
	}
}
