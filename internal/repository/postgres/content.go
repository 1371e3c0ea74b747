package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

// Read-side repositories for campaign content references: message templates,
// landing-page domains and landing pages. Their CRUD lives outside this
// service; dispatch only needs lookups.

type emailTemplateRepository struct {
	BaseRepository
}

func NewEmailTemplateRepository(base BaseRepository) repository.EmailTemplateRepository {
	return &emailTemplateRepository{base}
}

func (r *emailTemplateRepository) Get(ctx context.Context, id uuid.UUID) (*model.EmailTemplate, error) {
	query := `
		SELECT id, company_id, title, from_name, from_email, subject,
		       html_content, email_headers, created_at, updated_at
		FROM email_templates WHERE id = $1
	`
	var t model.EmailTemplate
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get email template: %w", err)
	}
	return &t, nil
}

type domainRepository struct {
	BaseRepository
}

func NewDomainRepository(base BaseRepository) repository.DomainRepository {
	return &domainRepository{base}
}

func (r *domainRepository) Get(ctx context.Context, id uuid.UUID) (*model.Domain, error) {
	query := `SELECT * FROM domains WHERE id = $1`
	var d model.Domain
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return &d, nil
}

type landingPageRepository struct {
	BaseRepository
}

func NewLandingPageRepository(base BaseRepository) repository.LandingPageRepository {
	return &landingPageRepository{base}
}

func (r *landingPageRepository) Get(ctx context.Context, id uuid.UUID) (*model.LandingPage, error) {
	query := `SELECT * FROM landing_pages WHERE id = $1`
	var p model.LandingPage
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get landing page: %w", err)
	}
	return &p, nil
}
