package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

type assignmentLogRepository struct {
	BaseRepository
}

func NewAssignmentLogRepository(base BaseRepository) repository.AssignmentLogRepository {
	return &assignmentLogRepository{base}
}

func (r *assignmentLogRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, logs []*model.AssignmentLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO assignment_logs (
			id, assignment_id, user_id, user_email, secret_key, status,
			email_content, placeholders, sender_meta, note, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (assignment_id, user_email) DO NOTHING
	`

	inserted := 0
	now := time.Now()
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if l.SecretKey == uuid.Nil {
			l.SecretKey = uuid.New()
		}
		l.CreatedAt = now
		l.UpdatedAt = now

		res, err := tx.ExecContext(ctx, query,
			l.ID, l.AssignmentID, l.UserID, l.UserEmail, l.SecretKey, l.Status,
			l.EmailContent, l.Placeholders, l.SenderMeta, l.Note, l.CreatedAt, l.UpdatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to create assignment log: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (r *assignmentLogRepository) ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.AssignmentLog, error) {
	query := `
		UPDATE assignment_logs SET claimed_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM assignment_logs
			WHERE status = $1
			AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, assignment_id, user_id, user_email, secret_key, status,
			email_content, placeholders, sender_meta, note, created_at, updated_at
	`
	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))

	var logs []*model.AssignmentLog
	err := r.db.SelectContext(ctx, &logs, query, model.EmailLogStatusPending, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending assignment logs: %w", err)
	}
	return logs, nil
}

func (r *assignmentLogRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EmailLogStatus, note string) error {
	query := `
		UPDATE assignment_logs SET status = $1, note = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, note, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update assignment log status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
