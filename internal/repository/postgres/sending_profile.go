package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

type sendingProfileRepository struct {
	BaseRepository
}

func NewSendingProfileRepository(base BaseRepository) repository.SendingProfileRepository {
	return &sendingProfileRepository{base}
}

func (r *sendingProfileRepository) Create(ctx context.Context, p *model.SendingProfile) error {
	query := `
		INSERT INTO sending_profiles (
			id, company_id, label, description, host, port, user_name,
			password, encryption, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.CompanyID, p.Label, p.Description, p.Host, p.Port, p.UserName,
		p.Password, p.Encryption, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sending profile: %w", err)
	}
	return nil
}

func (r *sendingProfileRepository) Get(ctx context.Context, id uuid.UUID) (*model.SendingProfile, error) {
	query := `SELECT * FROM sending_profiles WHERE id = $1 AND status != 'deleted'`
	var p model.SendingProfile
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get sending profile: %w", err)
	}
	return &p, nil
}

func (r *sendingProfileRepository) GetForCampaign(ctx context.Context, campaignID uuid.UUID) (*model.SendingProfile, error) {
	query := `
		SELECT p.* FROM sending_profiles p
		WHERE p.id = (SELECT sending_profile_id FROM campaigns WHERE id = $1)
	`
	var p model.SendingProfile
	if err := r.db.GetContext(ctx, &p, query, campaignID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get sending profile for campaign: %w", err)
	}
	return &p, nil
}

func (r *sendingProfileRepository) GetForAssignment(ctx context.Context, assignmentID uuid.UUID) (*model.SendingProfile, error) {
	query := `
		SELECT p.* FROM sending_profiles p
		WHERE p.id = (SELECT sending_profile_id FROM training_assignments WHERE id = $1)
	`
	var p model.SendingProfile
	if err := r.db.GetContext(ctx, &p, query, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get sending profile for assignment: %w", err)
	}
	return &p, nil
}

func (r *sendingProfileRepository) Update(ctx context.Context, p *model.SendingProfile) error {
	query := `
		UPDATE sending_profiles SET
			label = $1, description = $2, host = $3, port = $4,
			user_name = $5, password = $6, encryption = $7, updated_at = $8
		WHERE id = $9
	`
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		p.Label, p.Description, p.Host, p.Port,
		p.UserName, p.Password, p.Encryption, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sending profile: %w", err)
	}
	return nil
}

func (r *sendingProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sending_profiles SET status = 'deleted', updated_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sending profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *sendingProfileRepository) List(ctx context.Context, companyID uuid.UUID) ([]*model.SendingProfile, error) {
	query := `
		SELECT * FROM sending_profiles
		WHERE (company_id = $1 OR company_id IS NULL) AND status != 'deleted'
		ORDER BY created_at DESC
	`
	var profiles []*model.SendingProfile
	if err := r.db.SelectContext(ctx, &profiles, query, companyID); err != nil {
		return nil, fmt.Errorf("failed to list sending profiles: %w", err)
	}
	return profiles, nil
}
