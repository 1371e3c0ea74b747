package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

type assignmentRepository struct {
	BaseRepository
}

func NewAssignmentRepository(base BaseRepository) repository.AssignmentRepository {
	return &assignmentRepository{base}
}

func (r *assignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	query := `
		INSERT INTO training_assignments (
			id, company_id, title, description, status, start_date, end_date,
			days, sending_profile_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.CompanyID, a.Title, a.Description, a.Status, a.StartDate, a.EndDate,
		a.Days, a.SendingProfileID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	query := `SELECT * FROM training_assignments WHERE id = $1`
	var a model.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (r *assignmentRepository) List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Assignment, error) {
	query := `
		SELECT * FROM training_assignments
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var assignments []*model.Assignment
	err := r.db.SelectContext(ctx, &assignments, query, companyID, p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (r *assignmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus) error {
	query := `UPDATE training_assignments SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from []model.AssignmentStatus, to model.AssignmentStatus) error {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	query := `
		UPDATE training_assignments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	_, err := tx.ExecContext(ctx, query, to, time.Now(), id, pq.Array(states))
	if err != nil {
		return fmt.Errorf("failed to transition assignment status: %w", err)
	}
	return nil
}

func (r *assignmentRepository) ListShootable(ctx context.Context, now time.Time) ([]*model.Assignment, error) {
	query := `
		SELECT * FROM training_assignments
		WHERE status = ANY($1)
		AND start_date <= $2
		ORDER BY created_at
	`
	states := []string{string(model.AssignmentStatusActive), string(model.AssignmentStatusRunning)}
	var assignments []*model.Assignment
	err := r.db.SelectContext(ctx, &assignments, query, pq.Array(states), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list shootable assignments: %w", err)
	}
	return assignments, nil
}

// GetEnrollmentTemplate loads the enrollment email template configured for
// the assignment.
func (r *assignmentRepository) GetEnrollmentTemplate(ctx context.Context, assignmentID uuid.UUID) (*model.EmailTemplate, error) {
	query := `
		SELECT id, company_id, title, from_name, from_email, subject,
		       html_content, email_headers, created_at, updated_at
		FROM training_email_templates
		WHERE training_assign_id = $1 AND type = 'enrollment'
	`
	var t model.EmailTemplate
	if err := r.db.GetContext(ctx, &t, query, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get enrollment template: %w", err)
	}
	return &t, nil
}
