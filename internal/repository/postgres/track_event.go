package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

type trackEventRepository struct {
	BaseRepository
}

func NewTrackEventRepository(base BaseRepository) repository.TrackEventRepository {
	return &trackEventRepository{base}
}

// Create appends an engagement event. Events are never updated.
func (r *trackEventRepository) Create(ctx context.Context, e *model.TrackEvent) error {
	if !e.Event.Valid() {
		return fmt.Errorf("invalid event type %q", e.Event)
	}

	query := `
		INSERT INTO track_events (
			id, entity_id, secret_key, event, useragent, useragent_raw, os,
			bot, ip, submitted_data, request_header, note, city, state,
			country, location, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17
		)
	`
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.EntityID, e.SecretKey, e.Event, e.UserAgent, e.UserAgentRaw, e.OS,
		e.Bot, e.IP, e.SubmittedData, e.RequestHeader, e.Note, e.City, e.State,
		e.Country, e.Location, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create track event: %w", err)
	}
	return nil
}

func (r *trackEventRepository) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*model.TrackEvent, error) {
	query := `
		SELECT * FROM track_events
		WHERE entity_id = $1
		ORDER BY created_at
	`
	var events []*model.TrackEvent
	if err := r.db.SelectContext(ctx, &events, query, entityID); err != nil {
		return nil, fmt.Errorf("failed to list track events: %w", err)
	}
	return events, nil
}

// CountByEvent aggregates the campaign funnel by event kind
func (r *trackEventRepository) CountByEvent(ctx context.Context, campaignID uuid.UUID) ([]model.EventCount, error) {
	query := `
		SELECT e.event, COUNT(*) AS count
		FROM track_events e
		JOIN email_logs l ON l.id = e.entity_id
		WHERE l.campaign_id = $1
		GROUP BY e.event
	`
	var counts []model.EventCount
	if err := r.db.SelectContext(ctx, &counts, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to count track events: %w", err)
	}
	return counts, nil
}

// BotSplit aggregates bot vs real traffic for a campaign
func (r *trackEventRepository) BotSplit(ctx context.Context, campaignID uuid.UUID) (*model.BotSplit, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE e.bot) AS bot,
			COUNT(*) FILTER (WHERE NOT e.bot) AS real
		FROM track_events e
		JOIN email_logs l ON l.id = e.entity_id
		WHERE l.campaign_id = $1
	`
	var split model.BotSplit
	if err := r.db.GetContext(ctx, &split, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to aggregate bot split: %w", err)
	}
	return &split, nil
}
