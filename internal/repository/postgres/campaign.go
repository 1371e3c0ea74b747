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

type campaignRepository struct {
	BaseRepository
}

func NewCampaignRepository(base BaseRepository) repository.CampaignRepository {
	return &campaignRepository{base}
}

func (r *campaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, company_id, title, type, language, description, status,
			start_date, end_date, start_time, end_time, time_zone, days,
			email_template_id, sending_profile_id, domain_id, landing_page_id,
			success_event_type, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20
		)
	`
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.CompanyID, c.Title, c.Type, c.Language, c.Description, c.Status,
		c.StartDate, c.EndDate, c.StartTime, c.EndTime, c.TimeZone, c.Days,
		c.EmailTemplateID, c.SendingProfileID, c.DomainID, c.LandingPageID,
		c.SuccessEventType, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT * FROM campaigns WHERE id = $1`
	var c model.Campaign
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}

// GetBySecret resolves the owning campaign from an email log tracking secret
func (r *campaignRepository) GetBySecret(ctx context.Context, secret uuid.UUID) (*model.Campaign, error) {
	query := `
		SELECT c.* FROM campaigns c
		JOIN email_logs l ON l.campaign_id = c.id
		WHERE l.secret_key = $1
	`
	var c model.Campaign
	if err := r.db.GetContext(ctx, &c, query, secret); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get campaign by secret: %w", err)
	}
	return &c, nil
}

func (r *campaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	query := `
		UPDATE campaigns SET
			title = $1, type = $2, language = $3, description = $4,
			start_date = $5, end_date = $6, start_time = $7, end_time = $8,
			time_zone = $9, days = $10, email_template_id = $11,
			sending_profile_id = $12, domain_id = $13, landing_page_id = $14,
			success_event_type = $15, updated_at = $16
		WHERE id = $17
	`
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		c.Title, c.Type, c.Language, c.Description,
		c.StartDate, c.EndDate, c.StartTime, c.EndTime,
		c.TimeZone, c.Days, c.EmailTemplateID,
		c.SendingProfileID, c.DomainID, c.LandingPageID,
		c.SuccessEventType, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return nil
}

// Delete removes the campaign with its audience rules, logs and events
func (r *campaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM track_events
			WHERE entity_id IN (SELECT id FROM email_logs WHERE campaign_id = $1)
		`, id); err != nil {
			return fmt.Errorf("failed to delete campaign events: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM email_logs WHERE campaign_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete email logs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_audience WHERE campaign_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete audience rules: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete campaign: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (r *campaignRepository) List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Campaign, error) {
	query := `
		SELECT * FROM campaigns
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var campaigns []*model.Campaign
	err := r.db.SelectContext(ctx, &campaigns, query, companyID, p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatusTx transitions status only when the current status is in the
// allowed set, so the lifecycle flip commits atomically with the bulk insert
// that triggered it.
func (r *campaignRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from []model.CampaignStatus, to model.CampaignStatus) error {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	query := `
		UPDATE campaigns SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	_, err := tx.ExecContext(ctx, query, to, time.Now(), id, pq.Array(states))
	if err != nil {
		return fmt.Errorf("failed to transition campaign status: %w", err)
	}
	return nil
}

// ListShootable returns campaigns whose schedule window contains now and
// whose status allows materialization. Weekday filtering happens in the
// service, against the campaign's own time zone.
func (r *campaignRepository) ListShootable(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	query := `
		SELECT * FROM campaigns
		WHERE status = ANY($1)
		AND start_date <= $2
		AND end_date >= $2
		ORDER BY created_at
	`
	states := []string{string(model.CampaignStatusActive), string(model.CampaignStatusRunning)}
	var campaigns []*model.Campaign
	err := r.db.SelectContext(ctx, &campaigns, query, pq.Array(states), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list shootable campaigns: %w", err)
	}
	return campaigns, nil
}

// CompleteExpired marks campaigns past their end date completed
func (r *campaignRepository) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE campaigns SET status = $1, updated_at = $2
		WHERE end_date < $3 AND status = ANY($4)
	`
	states := []string{string(model.CampaignStatusActive), string(model.CampaignStatusRunning)}
	res, err := r.db.ExecContext(ctx, query, model.CampaignStatusCompleted, time.Now(), now, pq.Array(states))
	if err != nil {
		return 0, fmt.Errorf("failed to complete expired campaigns: %w", err)
	}
	return res.RowsAffected()
}

// Restart clears all engagement events for the campaign's recipients, resets
// every email log to pending and returns the campaign to active, atomically.
func (r *campaignRepository) Restart(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM track_events
			WHERE entity_id IN (SELECT id FROM email_logs WHERE campaign_id = $1)
		`, id); err != nil {
			return fmt.Errorf("failed to delete campaign events: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE email_logs SET status = $1, note = '', claimed_at = NULL, updated_at = $2
			WHERE campaign_id = $3
		`, model.EmailLogStatusPending, time.Now(), id); err != nil {
			return fmt.Errorf("failed to reset email logs: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3
		`, model.CampaignStatusActive, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to reactivate campaign: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// ResetEvents deletes engagement events while leaving logs and status alone
func (r *campaignRepository) ResetEvents(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM track_events
		WHERE entity_id IN (SELECT id FROM email_logs WHERE campaign_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to reset campaign events: %w", err)
	}
	return nil
}
