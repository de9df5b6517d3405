package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dripmail/dripmail/internal/content"
	"github.com/dripmail/dripmail/internal/email"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/model"
	"github.com/google/uuid"
)

// ErrNoRecipients indicates a send or schedule request resolved to an empty
// recipient set
var ErrNoRecipients = errors.New("no recipients selected")

// ScheduleStore is the persistence boundary for scheduled sends
type ScheduleStore interface {
	Create(ctx context.Context, send *model.ScheduledSend) error
	GetByID(ctx context.Context, id string) (*model.ScheduledSend, error)
	List(ctx context.Context) ([]model.ScheduledSend, error)
	ListDue(ctx context.Context, now time.Time) ([]model.ScheduledSend, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// TemplateReader resolves templates referenced by scheduled sends
type TemplateReader interface {
	GetByID(ctx context.Context, id string) (*model.EmailTemplate, error)
}

// ContentPreparer turns stored template content into the attachment-based
// rendition used for sending
type ContentPreparer interface {
	PrepareForSend(htmlContent string) (string, []content.Image, error)
}

// SweepReport summarizes one sweep execution
type SweepReport struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// DispatchService owns scheduling and delivery of marketing emails: the
// immediate send path, future scheduling, and the periodic sweep over due
// unsent records.
type DispatchService struct {
	schedules  ScheduleStore
	templates  TemplateReader
	recipients RecipientStore
	preparer   ContentPreparer
	sender     email.Sender
	log        *logger.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(schedules ScheduleStore, templates TemplateReader, recipients RecipientStore, preparer ContentPreparer, sender email.Sender, log *logger.Logger) *DispatchService {
	return &DispatchService{
		schedules:  schedules,
		templates:  templates,
		recipients: recipients,
		preparer:   preparer,
		sender:     sender,
		log:        log.WithComponent("dispatch_service"),
	}
}

// Sweep selects every due unsent record and dispatches each independently.
// A delivery failure for one record is logged and the sweep moves on; the
// record stays unsent and is re-selected next sweep. That retry can
// duplicate a send whose failure happened after transport succeeded, the
// accepted at-least-once tradeoff.
func (s *DispatchService) Sweep(ctx context.Context) (SweepReport, error) {
	now := time.Now().UTC()
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to select due sends: %w", err)
	}

	report := SweepReport{Selected: len(due)}
	for _, send := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sent, err := s.dispatchOne(ctx, &send)
		switch {
		case err != nil:
			report.Failed++
			s.log.Error().Err(err).Str("send_id", send.ID).Msg("dispatch failed, record stays unsent")
		case !sent:
			report.Skipped++
		default:
			report.Sent++
		}
	}

	s.log.Info().
		Int("selected", report.Selected).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("sweep completed")
	return report, nil
}

// dispatchOne delivers a single due record and durably marks the outcome.
// It returns false with a nil error when a concurrent sweep already claimed
// the record.
func (s *DispatchService) dispatchOne(ctx context.Context, send *model.ScheduledSend) (bool, error) {
	tmpl, err := s.templates.GetByID(ctx, send.TemplateID)
	if err != nil {
		return false, fmt.Errorf("failed to load template %s: %w", send.TemplateID, err)
	}
	rec, err := s.recipients.GetByID(ctx, send.RecipientID)
	if err != nil {
		return false, fmt.Errorf("failed to load recipient %s: %w", send.RecipientID, err)
	}

	body, images, err := s.preparer.PrepareForSend(tmpl.Content)
	if err != nil {
		return false, fmt.Errorf("failed to prepare content: %w", err)
	}

	msg := email.Message{
		To:       []string{rec.Email},
		Subject:  tmpl.Subject,
		HTMLBody: body,
		Images:   images,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.DispatchOutcome(send.ID, rec.Email, false, err)
		return false, err
	}

	marked, err := s.schedules.MarkSent(ctx, send.ID, time.Now().UTC())
	if err != nil {
		// Delivered but not recorded: the record will be re-attempted
		return false, fmt.Errorf("delivered but failed to mark sent: %w", err)
	}
	if !marked {
		s.log.Warn().Str("send_id", send.ID).Msg("send already claimed by a concurrent sweep")
		return false, nil
	}

	s.log.DispatchOutcome(send.ID, rec.Email, true, nil)
	return true, nil
}

// SendNow delivers a template to the selected recipients immediately as one
// message, then records one sent association per recipient. Delivery happens
// before the rows are written, so a transport failure never leaves records
// claiming a send that did not happen.
func (s *DispatchService) SendNow(ctx context.Context, templateID string, recipientIDs []string) (int, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return 0, err
	}
	recs, err := s.recipients.ListByIDs(ctx, recipientIDs)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, ErrNoRecipients
	}

	body, images, err := s.preparer.PrepareForSend(tmpl.Content)
	if err != nil {
		return 0, err
	}

	addrs := make([]string, 0, len(recs))
	for _, rec := range recs {
		addrs = append(addrs, rec.Email)
	}

	msg := email.Message{
		To:       addrs,
		Subject:  tmpl.Subject,
		HTMLBody: body,
		Images:   images,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	created := 0
	for _, rec := range recs {
		sentAt := now
		send := &model.ScheduledSend{
			ID:            uuid.New().String(),
			RecipientID:   rec.ID,
			TemplateID:    tmpl.ID,
			ScheduledDate: &sentAt,
			Sent:          true,
			SentDate:      &sentAt,
			CreatedAt:     now,
		}
		if err := s.schedules.Create(ctx, send); err != nil {
			s.log.Error().Err(err).Str("recipient_id", rec.ID).Msg("delivered but failed to record send")
			continue
		}
		created++
	}
	return created, nil
}

// Schedule creates one pending association per recipient for a future sweep
// to pick up
func (s *DispatchService) Schedule(ctx context.Context, templateID string, recipientIDs []string, at time.Time) (int, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return 0, err
	}
	recs, err := s.recipients.ListByIDs(ctx, recipientIDs)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, ErrNoRecipients
	}

	now := time.Now().UTC()
	created := 0
	for _, rec := range recs {
		scheduledAt := at
		send := &model.ScheduledSend{
			ID:            uuid.New().String(),
			RecipientID:   rec.ID,
			TemplateID:    tmpl.ID,
			ScheduledDate: &scheduledAt,
			CreatedAt:     now,
		}
		if err := s.schedules.Create(ctx, send); err != nil {
			return created, fmt.Errorf("failed to schedule send for %s: %w", rec.ID, err)
		}
		created++
	}
	return created, nil
}

// Cancel deletes a pending association before a sweep selects it
func (s *DispatchService) Cancel(ctx context.Context, id string) error {
	return s.schedules.Delete(ctx, id)
}

// ListSends retrieves all associations, newest first
func (s *DispatchService) ListSends(ctx context.Context) ([]model.ScheduledSend, error) {
	return s.schedules.List(ctx)
}
