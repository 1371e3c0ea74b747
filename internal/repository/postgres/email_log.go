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

type emailLogRepository struct {
	BaseRepository
}

func NewEmailLogRepository(base BaseRepository) repository.EmailLogRepository {
	return &emailLogRepository{base}
}

// BulkCreateTx inserts one log per candidate. The (campaign_id, user_email)
// uniqueness constraint plus ON CONFLICT DO NOTHING makes materialization
// idempotent even when two shoot runs interleave.
func (r *emailLogRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, logs []*model.EmailLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO email_logs (
			id, campaign_id, user_id, user_email, secret_key, status,
			email_content, placeholders, sender_meta, note, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (campaign_id, user_email) DO NOTHING
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
			l.ID, l.CampaignID, l.UserID, l.UserEmail, l.SecretKey, l.Status,
			l.EmailContent, l.Placeholders, l.SenderMeta, l.Note, l.CreatedAt, l.UpdatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to create email log: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ClaimPending atomically claims up to limit pending logs. The locking read
// with SKIP LOCKED plus the claimed_at mark keeps two concurrent dispatch
// runs from double-sending a row; a stale claim is reclaimable after
// staleAfter so a crashed run does not strand its batch.
func (r *emailLogRepository) ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.EmailLog, error) {
	query := `
		UPDATE email_logs SET claimed_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM email_logs
			WHERE status = $1
			AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, campaign_id, user_id, user_email, secret_key, status,
			email_content, placeholders, sender_meta, note, created_at, updated_at
	`
	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))

	var logs []*model.EmailLog
	err := r.db.SelectContext(ctx, &logs, query, model.EmailLogStatusPending, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending email logs: %w", err)
	}
	return logs, nil
}

func (r *emailLogRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EmailLogStatus, note string) error {
	query := `
		UPDATE email_logs SET status = $1, note = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, note, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update email log status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *emailLogRepository) GetBySecret(ctx context.Context, secret uuid.UUID) (*model.EmailLog, error) {
	query := `SELECT * FROM email_logs WHERE secret_key = $1`
	var log model.EmailLog
	if err := r.db.GetContext(ctx, &log, query, secret); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get email log by secret: %w", err)
	}
	return &log, nil
}

func (r *emailLogRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID, p model.Pagination) ([]*model.EmailLog, error) {
	query := `
		SELECT * FROM email_logs
		WHERE campaign_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var logs []*model.EmailLog
	err := r.db.SelectContext(ctx, &logs, query, campaignID, p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, nil
}

// Release flips scheduled logs of an advance campaign to pending so the
// dispatch worker picks them up.
func (r *emailLogRepository) Release(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	query := `
		UPDATE email_logs SET status = $1, updated_at = $2
		WHERE campaign_id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		model.EmailLogStatusPending, time.Now(), campaignID, model.EmailLogStatusSchedule)
	if err != nil {
		return 0, fmt.Errorf("failed to release scheduled email logs: %w", err)
	}
	return res.RowsAffected()
}

// Cancel marks a single log cancelled; cancelled is terminal
func (r *emailLogRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE email_logs SET status = $1, updated_at = $2
		WHERE id = $3 AND status NOT IN ($4, $5)
	`
	res, err := r.db.ExecContext(ctx, query,
		model.EmailLogStatusCancelled, time.Now(), id,
		model.EmailLogStatusSent, model.EmailLogStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel email log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
