package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
)

// Candidate is a resolved audience member ready for materialization
type Candidate struct {
	UserID    uuid.UUID `db:"user_id"`
	Email     string    `db:"user_email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
}

// All repository interfaces in one file
type (
	// CampaignRepository handles campaign persistence and lifecycle updates
	CampaignRepository interface {
		Create(ctx context.Context, campaign *model.Campaign) error
		Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
		GetBySecret(ctx context.Context, secret uuid.UUID) (*model.Campaign, error)
		Update(ctx context.Context, campaign *model.Campaign) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Campaign, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus) error
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from []model.CampaignStatus, to model.CampaignStatus) error
		ListShootable(ctx context.Context, now time.Time) ([]*model.Campaign, error)
		CompleteExpired(ctx context.Context, now time.Time) (int64, error)
		Restart(ctx context.Context, id uuid.UUID) error
		ResetEvents(ctx context.Context, id uuid.UUID) error
	}

	// AudienceRepository resolves audience rules into candidate recipients.
	// All queries are parameterized; exclusion lists and group ids are bound
	// as arrays, never interpolated.
	AudienceRepository interface {
		ListCampaignRules(ctx context.Context, campaignID uuid.UUID) ([]*model.AudienceRule, error)
		ListAssignmentRules(ctx context.Context, assignmentID uuid.UUID) ([]*model.AudienceRule, error)
		CampaignCandidatesAll(ctx context.Context, companyID, campaignID uuid.UUID, exclude []uuid.UUID) ([]Candidate, error)
		CampaignCandidatesGroups(ctx context.Context, campaignID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]Candidate, error)
		AssignmentCandidatesAll(ctx context.Context, companyID, assignmentID uuid.UUID, exclude []uuid.UUID) ([]Candidate, error)
		AssignmentCandidatesGroups(ctx context.Context, assignmentID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]Candidate, error)
	}

	// EmailLogRepository handles recipient delivery records
	EmailLogRepository interface {
		BeginTx(ctx context.Context) (*sqlx.Tx, error)
		BulkCreateTx(ctx context.Context, tx *sqlx.Tx, logs []*model.EmailLog) (int, error)
		ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.EmailLog, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.EmailLogStatus, note string) error
		GetBySecret(ctx context.Context, secret uuid.UUID) (*model.EmailLog, error)
		ListByCampaign(ctx context.Context, campaignID uuid.UUID, p model.Pagination) ([]*model.EmailLog, error)
		Release(ctx context.Context, campaignID uuid.UUID) (int64, error)
		Cancel(ctx context.Context, id uuid.UUID) error
	}

	// TrackEventRepository is append-only engagement event storage
	TrackEventRepository interface {
		Create(ctx context.Context, event *model.TrackEvent) error
		ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*model.TrackEvent, error)
		CountByEvent(ctx context.Context, campaignID uuid.UUID) ([]model.EventCount, error)
		BotSplit(ctx context.Context, campaignID uuid.UUID) (*model.BotSplit, error)
	}

	// SendingProfileRepository handles SMTP credential records
	SendingProfileRepository interface {
		Create(ctx context.Context, profile *model.SendingProfile) error
		Get(ctx context.Context, id uuid.UUID) (*model.SendingProfile, error)
		GetForCampaign(ctx context.Context, campaignID uuid.UUID) (*model.SendingProfile, error)
		GetForAssignment(ctx context.Context, assignmentID uuid.UUID) (*model.SendingProfile, error)
		Update(ctx context.Context, profile *model.SendingProfile) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, companyID uuid.UUID) ([]*model.SendingProfile, error)
	}

	// AssignmentRepository handles training assignments
	AssignmentRepository interface {
		Create(ctx context.Context, assignment *model.Assignment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
		List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Assignment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus) error
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from []model.AssignmentStatus, to model.AssignmentStatus) error
		ListShootable(ctx context.Context, now time.Time) ([]*model.Assignment, error)
		GetEnrollmentTemplate(ctx context.Context, assignmentID uuid.UUID) (*model.EmailTemplate, error)
	}

	// AssignmentLogRepository handles enrollment delivery records
	AssignmentLogRepository interface {
		BeginTx(ctx context.Context) (*sqlx.Tx, error)
		BulkCreateTx(ctx context.Context, tx *sqlx.Tx, logs []*model.AssignmentLog) (int, error)
		ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.AssignmentLog, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.EmailLogStatus, note string) error
	}

	// EmailTemplateRepository reads campaign message templates
	EmailTemplateRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.EmailTemplate, error)
	}

	// DomainRepository reads landing-page domains
	DomainRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Domain, error)
	}

	// LandingPageRepository reads landing pages
	LandingPageRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.LandingPage, error)
	}
)
