package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dripmail/dripmail/internal/content"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/model"
	"github.com/google/uuid"
)

// TemplateStore is the persistence boundary TemplateService writes through
type TemplateStore interface {
	Create(ctx context.Context, tmpl *model.EmailTemplate) error
	GetByID(ctx context.Context, id string) (*model.EmailTemplate, error)
	List(ctx context.Context) ([]model.EmailTemplate, error)
	Update(ctx context.Context, tmpl *model.EmailTemplate) error
	Delete(ctx context.Context, id string) error
}

// TemplateService owns email template authoring and the lifecycle of the
// image artifacts a template's content references.
type TemplateService struct {
	templates TemplateStore
	pipeline  *content.Pipeline
	log       *logger.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templates TemplateStore, pipeline *content.Pipeline, log *logger.Logger) *TemplateService {
	return &TemplateService{
		templates: templates,
		pipeline:  pipeline,
		log:       log.WithComponent("template_service"),
	}
}

// Create extracts inline images out of the submitted content and persists
// the template with the public-URL rendition. Stored content never carries
// base64 image data.
func (s *TemplateService) Create(ctx context.Context, subject, title, htmlContent string) (*model.EmailTemplate, error) {
	res, err := s.pipeline.Extract(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	now := time.Now().UTC()
	tmpl := &model.EmailTemplate{
		ID:        uuid.New().String(),
		Subject:   subject,
		Title:     title,
		Content:   res.WithoutCID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	s.log.Info().Str("template_id", tmpl.ID).Int("images", len(res.Images)).Msg("template created")
	return tmpl, nil
}

// Update re-extracts images from the new content and reconciles artifacts:
// files referenced by the old content but not the new one are deleted,
// synchronously, before the overwrite. Files still referenced survive.
func (s *TemplateService) Update(ctx context.Context, id, subject, title, htmlContent string) (*model.EmailTemplate, error) {
	existing, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.pipeline.Extract(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	if existing.Content != res.WithoutCID {
		s.pipeline.RemoveStaleImages(existing.Content, res.WithoutCID)
	}

	existing.Subject = subject
	existing.Title = title
	existing.Content = res.WithoutCID
	existing.UpdatedAt = time.Now().UTC()

	if err := s.templates.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.log.Info().Str("template_id", id).Msg("template updated")
	return existing, nil
}

// Delete removes the template row and every image artifact its current
// content references
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	existing, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.pipeline.RemoveContentImages(existing.Content)

	if err := s.templates.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("template_id", id).Msg("template deleted")
	return nil
}

// GetByID retrieves a single template
func (s *TemplateService) GetByID(ctx context.Context, id string) (*model.EmailTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

// List retrieves all templates, newest first
func (s *TemplateService) List(ctx context.Context) ([]model.EmailTemplate, error) {
	return s.templates.List(ctx)
}
