package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dripmail/dripmail/internal/database"
	"github.com/dripmail/dripmail/internal/model"
	"github.com/lib/pq"
)

// RecipientRepository handles recipient persistence
type RecipientRepository struct {
	db *database.Postgres
}

// NewRecipientRepository creates a new RecipientRepository
func NewRecipientRepository(db *database.Postgres) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// Create inserts a new recipient
func (r *RecipientRepository) Create(ctx context.Context, rec *model.Recipient) error {
	query := `
		INSERT INTO recipients (id, email, first_name, last_name, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Email,
		rec.FirstName,
		rec.LastName,
		rec.IsAdmin,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	return nil
}

// GetByID retrieves a recipient by ID
func (r *RecipientRepository) GetByID(ctx context.Context, id string) (*model.Recipient, error) {
	query := `
		SELECT id, email, first_name, last_name, is_admin, created_at, updated_at
		FROM recipients
		WHERE id = $1
	`
	return r.scanRecipient(r.db.QueryRowContext(ctx, query, id))
}

// ListByIDs retrieves the recipients matching the given IDs
func (r *RecipientRepository) ListByIDs(ctx context.Context, ids []string) ([]model.Recipient, error) {
	query := `
		SELECT id, email, first_name, last_name, is_admin, created_at, updated_at
		FROM recipients
		WHERE id = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients by ids: %w", err)
	}
	defer rows.Close()
	return r.collectRecipients(rows)
}

// List retrieves all recipients, newest first
func (r *RecipientRepository) List(ctx context.Context) ([]model.Recipient, error) {
	query := `
		SELECT id, email, first_name, last_name, is_admin, created_at, updated_at
		FROM recipients
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()
	return r.collectRecipients(rows)
}

// Delete removes a recipient. Associated scheduled sends cascade at the
// database level.
func (r *RecipientRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recipients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RecipientRepository) collectRecipients(rows *sql.Rows) ([]model.Recipient, error) {
	var recipients []model.Recipient
	for rows.Next() {
		var rec model.Recipient
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.IsAdmin, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// scanRecipient scans a single recipient row
func (r *RecipientRepository) scanRecipient(row *sql.Row) (*model.Recipient, error) {
	var rec model.Recipient
	err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.FirstName,
		&rec.LastName,
		&rec.IsAdmin,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipient: %w", err)
	}
	return &rec, nil
}
