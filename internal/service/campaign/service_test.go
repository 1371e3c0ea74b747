package campaign

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	"github.com/phishsentinel/phishsentinel-api/internal/service/audience"
	apperrors "github.com/phishsentinel/phishsentinel-api/pkg/errors"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
)

var testMetrics = metrics.New("campaign_test")

type stubCampaignRepo struct {
	campaigns  map[uuid.UUID]*model.Campaign
	shootable  []*model.Campaign
	statusSet  model.CampaignStatus
	txStatus   model.CampaignStatus
	restarted  bool
	eventReset bool
	expired    int64
}

func (s *stubCampaignRepo) Create(ctx context.Context, c *model.Campaign) error { return nil }

func (s *stubCampaignRepo) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	return s.campaigns[id], nil
}

func (s *stubCampaignRepo) GetBySecret(ctx context.Context, secret uuid.UUID) (*model.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignRepo) Update(ctx context.Context, c *model.Campaign) error { return nil }
func (s *stubCampaignRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }

func (s *stubCampaignRepo) List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus) error {
	s.statusSet = status
	return nil
}

func (s *stubCampaignRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from []model.CampaignStatus, to model.CampaignStatus) error {
	s.txStatus = to
	return nil
}

func (s *stubCampaignRepo) ListShootable(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	return s.shootable, nil
}

func (s *stubCampaignRepo) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.expired, nil
}

func (s *stubCampaignRepo) Restart(ctx context.Context, id uuid.UUID) error {
	s.restarted = true
	return nil
}

func (s *stubCampaignRepo) ResetEvents(ctx context.Context, id uuid.UUID) error {
	s.eventReset = true
	return nil
}

type stubLogRepo struct {
	db       *sqlx.DB
	inserted int
	released int64
	bulk     []*model.EmailLog
}

func (s *stubLogRepo) BeginTx(ctx context.Context) (*sqlx.Tx, error) { return s.db.Beginx() }

func (s *stubLogRepo) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, logs []*model.EmailLog) (int, error) {
	s.bulk = logs
	s.inserted = len(logs)
	return len(logs), nil
}

func (s *stubLogRepo) ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.EmailLog, error) {
	return nil, nil
}

func (s *stubLogRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EmailLogStatus, note string) error {
	return nil
}

func (s *stubLogRepo) GetBySecret(ctx context.Context, secret uuid.UUID) (*model.EmailLog, error) {
	return nil, nil
}

func (s *stubLogRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID, p model.Pagination) ([]*model.EmailLog, error) {
	return nil, nil
}

func (s *stubLogRepo) Release(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	return s.released, nil
}

func (s *stubLogRepo) Cancel(ctx context.Context, id uuid.UUID) error { return nil }

type stubAudienceRepo struct {
	candidates []repository.Candidate
}

func (s *stubAudienceRepo) ListCampaignRules(ctx context.Context, campaignID uuid.UUID) ([]*model.AudienceRule, error) {
	return []*model.AudienceRule{{AudienceType: model.AudienceTypeAll}}, nil
}

func (s *stubAudienceRepo) ListAssignmentRules(ctx context.Context, assignmentID uuid.UUID) ([]*model.AudienceRule, error) {
	return nil, nil
}

func (s *stubAudienceRepo) CampaignCandidatesAll(ctx context.Context, companyID, campaignID uuid.UUID, exclude []uuid.UUID) ([]repository.Candidate, error) {
	return s.candidates, nil
}

func (s *stubAudienceRepo) CampaignCandidatesGroups(ctx context.Context, campaignID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]repository.Candidate, error) {
	return nil, nil
}

func (s *stubAudienceRepo) AssignmentCandidatesAll(ctx context.Context, companyID, assignmentID uuid.UUID, exclude []uuid.UUID) ([]repository.Candidate, error) {
	return nil, nil
}

func (s *stubAudienceRepo) AssignmentCandidatesGroups(ctx context.Context, assignmentID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]repository.Candidate, error) {
	return nil, nil
}

type stubTemplateRepo struct{}

func (s *stubTemplateRepo) Get(ctx context.Context, id uuid.UUID) (*model.EmailTemplate, error) {
	return &model.EmailTemplate{
		Title:       "Reset",
		FromName:    "IT",
		FromEmail:   "it@corp.test",
		Subject:     "Password expiry",
		HTMLContent: "<p>{{.FirstName}}</p>",
	}, nil
}

type stubDomainRepo struct{}

func (s *stubDomainRepo) Get(ctx context.Context, id uuid.UUID) (*model.Domain, error) {
	return &model.Domain{Title: "login.corp.test"}, nil
}

func activeCampaign() *model.Campaign {
	c := &model.Campaign{
		CompanyID:       uuid.New(),
		Title:           "Q3 Awareness",
		Type:            model.CampaignTypePhishing,
		Status:          model.CampaignStatusActive,
		StartDate:       time.Now().Add(-24 * time.Hour),
		EndDate:         time.Now().Add(24 * time.Hour),
		EmailTemplateID: uuid.New(),
		DomainID:        uuid.New(),
		LandingPageID:   uuid.New(),
	}
	c.ID = uuid.New()
	return c
}

func newTestService(t *testing.T, campaigns *stubCampaignRepo, logs *stubLogRepo, candidates []repository.Candidate) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logs.db = sqlx.NewDb(db, "sqlmock")

	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	resolver := audience.NewResolver(&stubAudienceRepo{candidates: candidates}, &stubTemplateRepo{}, &stubDomainRepo{}, log)

	return NewService(campaigns, logs, nil, nil, &stubTemplateRepo{}, resolver, nil, log, testMetrics), mock
}

func TestModifyStopRunning(t *testing.T) {
	c := activeCampaign()
	c.Status = model.CampaignStatusRunning
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	svc, _ := newTestService(t, repo, &stubLogRepo{}, nil)

	require.NoError(t, svc.Modify(context.Background(), c.ID, ActionStop))
	assert.Equal(t, model.CampaignStatusStopped, repo.statusSet)
}

func TestModifyRejectsCompleted(t *testing.T) {
	c := activeCampaign()
	c.Status = model.CampaignStatusCompleted
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	svc, _ := newTestService(t, repo, &stubLogRepo{}, nil)

	err := svc.Modify(context.Background(), c.ID, ActionStart)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestModifyRestart(t *testing.T) {
	c := activeCampaign()
	c.Status = model.CampaignStatusStopped
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	svc, _ := newTestService(t, repo, &stubLogRepo{}, nil)

	require.NoError(t, svc.Modify(context.Background(), c.ID, ActionRestart))
	assert.True(t, repo.restarted)
}

func TestShootMaterializesAndTransitions(t *testing.T) {
	c := activeCampaign()
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	logs := &stubLogRepo{}
	svc, mock := newTestService(t, repo, logs, []repository.Candidate{
		{UserID: uuid.New(), Email: "a@corp.test", FirstName: "Ada"},
		{UserID: uuid.New(), Email: "b@corp.test", FirstName: "Grace"},
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	n, err := svc.Shoot(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, model.CampaignStatusRunning, repo.txStatus)
	require.Len(t, logs.bulk, 2)
	assert.Equal(t, model.EmailLogStatusPending, logs.bulk[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShootZeroCandidatesLeavesDraft(t *testing.T) {
	c := activeCampaign()
	c.Status = model.CampaignStatusDraft
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	logs := &stubLogRepo{}
	svc, mock := newTestService(t, repo, logs, nil)

	n, err := svc.Shoot(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, repo.txStatus)
	assert.Empty(t, logs.bulk)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShootRejectsStopped(t *testing.T) {
	c := activeCampaign()
	c.Status = model.CampaignStatusStopped
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	svc, _ := newTestService(t, repo, &stubLogRepo{}, nil)

	_, err := svc.Shoot(context.Background(), c.ID)
	require.Error(t, err)
}

func TestShootDueSkipsWrongWeekday(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) // a Monday
	c := activeCampaign()
	c.Days = "friday"
	repo := &stubCampaignRepo{
		campaigns: map[uuid.UUID]*model.Campaign{c.ID: c},
		shootable: []*model.Campaign{c},
	}
	svc, _ := newTestService(t, repo, &stubLogRepo{}, nil)

	n, err := svc.ShootDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestShootDueMaterializesDue(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	c := activeCampaign()
	c.Days = "monday"
	repo := &stubCampaignRepo{
		campaigns: map[uuid.UUID]*model.Campaign{c.ID: c},
		shootable: []*model.Campaign{c},
	}
	logs := &stubLogRepo{}
	svc, mock := newTestService(t, repo, logs, []repository.Candidate{
		{UserID: uuid.New(), Email: "a@corp.test"},
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	n, err := svc.ShootDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRejectsPhishingType(t *testing.T) {
	c := activeCampaign()
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	svc, _ := newTestService(t, repo, &stubLogRepo{}, nil)

	_, err := svc.Release(context.Background(), c.ID)
	require.Error(t, err)
}

func TestReleaseAdvance(t *testing.T) {
	c := activeCampaign()
	c.Type = model.CampaignTypeAdvance
	repo := &stubCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{c.ID: c}}
	svc, _ := newTestService(t, repo, &stubLogRepo{released: 7}, nil)

	n, err := svc.Release(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
