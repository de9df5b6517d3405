package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dripmail/dripmail/internal/database"
	"github.com/dripmail/dripmail/internal/model"
)

// ScheduleRepository handles scheduled send persistence
type ScheduleRepository struct {
	db *database.Postgres
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *database.Postgres) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new scheduled send
func (r *ScheduleRepository) Create(ctx context.Context, send *model.ScheduledSend) error {
	query := `
		INSERT INTO scheduled_sends (id, recipient_id, template_id, scheduled_date, sent, sent_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		send.ID,
		send.RecipientID,
		send.TemplateID,
		send.ScheduledDate,
		send.Sent,
		send.SentDate,
		send.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled send: %w", err)
	}
	return nil
}

// GetByID retrieves a scheduled send by ID
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*model.ScheduledSend, error) {
	query := `
		SELECT id, recipient_id, template_id, scheduled_date, sent, sent_date, created_at
		FROM scheduled_sends
		WHERE id = $1
	`
	return r.scanSend(r.db.QueryRowContext(ctx, query, id))
}

// List retrieves all scheduled sends, newest first
func (r *ScheduleRepository) List(ctx context.Context) ([]model.ScheduledSend, error) {
	query := `
		SELECT id, recipient_id, template_id, scheduled_date, sent, sent_date, created_at
		FROM scheduled_sends
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled sends: %w", err)
	}
	defer rows.Close()
	return r.collectSends(rows)
}

// ListDue retrieves unsent records whose scheduled date has passed.
// DUE is a selection predicate, not a persisted state.
func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]model.ScheduledSend, error) {
	query := `
		SELECT id, recipient_id, template_id, scheduled_date, sent, sent_date, created_at
		FROM scheduled_sends
		WHERE sent = false AND scheduled_date IS NOT NULL AND scheduled_date <= $1
		ORDER BY scheduled_date ASC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sends: %w", err)
	}
	defer rows.Close()
	return r.collectSends(rows)
}

// MarkSent flips a record to sent if and only if it is still unsent. The
// conditional update makes the select/mark step effectively atomic per
// record, so two concurrent sweeps cannot both claim the same send. It
// returns false when another sweep won the race.
func (r *ScheduleRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	query := `
		UPDATE scheduled_sends
		SET sent = true, sent_date = $1
		WHERE id = $2 AND sent = false
	`
	result, err := r.db.ExecContext(ctx, query, sentAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark send %s sent: %w", id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// Delete removes a scheduled send. Removing a pending record before a sweep
// selects it is the only supported cancellation mechanism.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_sends WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled send: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ScheduleRepository) collectSends(rows *sql.Rows) ([]model.ScheduledSend, error) {
	var sends []model.ScheduledSend
	for rows.Next() {
		var send model.ScheduledSend
		if err := rows.Scan(&send.ID, &send.RecipientID, &send.TemplateID, &send.ScheduledDate, &send.Sent, &send.SentDate, &send.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled send: %w", err)
		}
		sends = append(sends, send)
	}
	return sends, rows.Err()
}

// scanSend scans a single scheduled send row
func (r *ScheduleRepository) scanSend(row *sql.Row) (*model.ScheduledSend, error) {
	var send model.ScheduledSend
	err := row.Scan(
		&send.ID,
		&send.RecipientID,
		&send.TemplateID,
		&send.ScheduledDate,
		&send.Sent,
		&send.SentDate,
		&send.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduled send: %w", err)
	}
	return &send, nil
}
