package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dripmail/dripmail/internal/database"
	"github.com/dripmail/dripmail/internal/model"
)

// TemplateRepository handles email template persistence
type TemplateRepository struct {
	db *database.Postgres
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *database.Postgres) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a new email template
func (r *TemplateRepository) Create(ctx context.Context, tmpl *model.EmailTemplate) error {
	query := `
		INSERT INTO email_templates (id, subject, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		tmpl.ID,
		tmpl.Subject,
		tmpl.Title,
		tmpl.Content,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.EmailTemplate, error) {
	query := `
		SELECT id, subject, title, content, created_at, updated_at
		FROM email_templates
		WHERE id = $1
	`
	return r.scanTemplate(r.db.QueryRowContext(ctx, query, id))
}

// List retrieves all templates, newest first
func (r *TemplateRepository) List(ctx context.Context) ([]model.EmailTemplate, error) {
	query := `
		SELECT id, subject, title, content, created_at, updated_at
		FROM email_templates
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.EmailTemplate
	for rows.Next() {
		var tmpl model.EmailTemplate
		if err := rows.Scan(&tmpl.ID, &tmpl.Subject, &tmpl.Title, &tmpl.Content, &tmpl.CreatedAt, &tmpl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

// Update persists changes to an existing template
func (r *TemplateRepository) Update(ctx context.Context, tmpl *model.EmailTemplate) error {
	query := `
		UPDATE email_templates
		SET subject = $1, title = $2, content = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		tmpl.Subject,
		tmpl.Title,
		tmpl.Content,
		tmpl.UpdatedAt,
		tmpl.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a template. Associated scheduled sends cascade at the
// database level.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanTemplate scans a single template row
func (r *TemplateRepository) scanTemplate(row *sql.Row) (*model.EmailTemplate, error) {
	var tmpl model.EmailTemplate
	err := row.Scan(
		&tmpl.ID,
		&tmpl.Subject,
		&tmpl.Title,
		&tmpl.Content,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}
	return &tmpl, nil
}
