package audience

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

type stubAudienceRepo struct {
	rules      []*model.AudienceRule
	all        []repository.Candidate
	groups     []repository.Candidate
	gotGroups  []uuid.UUID
	gotExclude []uuid.UUID
}

func (s *stubAudienceRepo) ListCampaignRules(ctx context.Context, campaignID uuid.UUID) ([]*model.AudienceRule, error) {
	return s.rules, nil
}

func (s *stubAudienceRepo) ListAssignmentRules(ctx context.Context, assignmentID uuid.UUID) ([]*model.AudienceRule, error) {
	return s.rules, nil
}

func (s *stubAudienceRepo) CampaignCandidatesAll(ctx context.Context, companyID, campaignID uuid.UUID, exclude []uuid.UUID) ([]repository.Candidate, error) {
	s.gotExclude = exclude
	return s.all, nil
}

func (s *stubAudienceRepo) CampaignCandidatesGroups(ctx context.Context, campaignID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]repository.Candidate, error) {
	s.gotGroups = groupIDs
	s.gotExclude = exclude
	return s.groups, nil
}

func (s *stubAudienceRepo) AssignmentCandidatesAll(ctx context.Context, companyID, assignmentID uuid.UUID, exclude []uuid.UUID) ([]repository.Candidate, error) {
	s.gotExclude = exclude
	return s.all, nil
}

func (s *stubAudienceRepo) AssignmentCandidatesGroups(ctx context.Context, assignmentID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]repository.Candidate, error) {
	s.gotGroups = groupIDs
	return s.groups, nil
}

type stubTemplateRepo struct{ tmpl *model.EmailTemplate }

func (s *stubTemplateRepo) Get(ctx context.Context, id uuid.UUID) (*model.EmailTemplate, error) {
	return s.tmpl, nil
}

type stubDomainRepo struct{ domain *model.Domain }

func (s *stubDomainRepo) Get(ctx context.Context, id uuid.UUID) (*model.Domain, error) {
	return s.domain, nil
}

func testCampaign(t model.CampaignType) *model.Campaign {
	c := &model.Campaign{
		CompanyID:       uuid.New(),
		Title:           "Quarterly Awareness",
		Type:            t,
		Status:          model.CampaignStatusActive,
		EmailTemplateID: uuid.New(),
		DomainID:        uuid.New(),
		LandingPageID:   uuid.New(),
	}
	c.ID = uuid.New()
	return c
}

func TestResolveCampaignAllRule(t *testing.T) {
	excluded := uuid.New()
	repo := &stubAudienceRepo{
		rules: []*model.AudienceRule{
			{AudienceType: model.AudienceTypeAll, ExcludeList: excluded.String()},
		},
		all: []repository.Candidate{{UserID: uuid.New(), Email: "a@corp.test"}},
	}
	r := NewResolver(repo, nil, nil, nil)

	got, err := r.ResolveCampaign(context.Background(), testCampaign(model.CampaignTypePhishing))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []uuid.UUID{excluded}, repo.gotExclude)
}

func TestResolveCampaignGroupRules(t *testing.T) {
	g1, g2 := uuid.New(), uuid.New()
	repo := &stubAudienceRepo{
		rules: []*model.AudienceRule{
			{AudienceType: model.AudienceTypeGroup, GroupID: &g1},
			{AudienceType: model.AudienceTypeDepartment, GroupID: &g2},
		},
		groups: []repository.Candidate{{UserID: uuid.New(), Email: "b@corp.test"}},
	}
	r := NewResolver(repo, nil, nil, nil)

	got, err := r.ResolveCampaign(context.Background(), testCampaign(model.CampaignTypePhishing))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []uuid.UUID{g1, g2}, repo.gotGroups)
}

func TestResolveCampaignNoRules(t *testing.T) {
	r := NewResolver(&stubAudienceRepo{}, nil, nil, nil)

	got, err := r.ResolveCampaign(context.Background(), testCampaign(model.CampaignTypePhishing))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildEmailLogs(t *testing.T) {
	campaign := testCampaign(model.CampaignTypePhishing)
	tmplRepo := &stubTemplateRepo{tmpl: &model.EmailTemplate{
		FromName:    "IT Support",
		FromEmail:   "it@corp.test",
		Subject:     "Password expiry",
		HTMLContent: "<p>Hi {{.FirstName}}</p>",
	}}
	domainRepo := &stubDomainRepo{domain: &model.Domain{Title: "login.corp.test"}}
	r := NewResolver(&stubAudienceRepo{}, tmplRepo, domainRepo, nil)

	logs, err := r.BuildEmailLogs(context.Background(), campaign, []repository.Candidate{
		{UserID: uuid.New(), Email: "a@corp.test", FirstName: "Ada", LastName: "Lovelace"},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	log := logs[0]
	assert.Equal(t, model.EmailLogStatusPending, log.Status)
	assert.Equal(t, "Ada", log.Placeholders.FirstName)
	assert.Equal(t, "IT Support", log.SenderMeta.FromName)
	assert.Contains(t, log.Placeholders.URL, "https://login.corp.test?pageid=")
	assert.Contains(t, log.Placeholders.URL, "secret_key=")
}

func TestBuildEmailLogsAdvanceSchedules(t *testing.T) {
	campaign := testCampaign(model.CampaignTypeAdvance)
	tmplRepo := &stubTemplateRepo{tmpl: &model.EmailTemplate{HTMLContent: "<p>x</p>"}}
	domainRepo := &stubDomainRepo{domain: &model.Domain{Title: "d.test"}}
	r := NewResolver(&stubAudienceRepo{}, tmplRepo, domainRepo, nil)

	logs, err := r.BuildEmailLogs(context.Background(), campaign, []repository.Candidate{
		{UserID: uuid.New(), Email: "a@corp.test"},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.EmailLogStatusSchedule, logs[0].Status)
}
