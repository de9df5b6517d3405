package service

import (
	"context"

	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/model"
)

// RecipientStore is the persistence boundary for recipients
type RecipientStore interface {
	GetByID(ctx context.Context, id string) (*model.Recipient, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Recipient, error)
	List(ctx context.Context) ([]model.Recipient, error)
}

// RecipientService exposes read access to the recipient roster
type RecipientService struct {
	recipients RecipientStore
	log        *logger.Logger
}

// NewRecipientService creates a new RecipientService
func NewRecipientService(recipients RecipientStore, log *logger.Logger) *RecipientService {
	return &RecipientService{
		recipients: recipients,
		log:        log.WithComponent("recipient_service"),
	}
}

// List retrieves all recipients, newest first
func (s *RecipientService) List(ctx context.Context) ([]model.Recipient, error) {
	return s.recipients.List(ctx)
}
