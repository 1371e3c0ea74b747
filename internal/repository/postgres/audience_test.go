package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateRows(emails ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"user_id", "user_email", "first_name", "last_name"})
	for _, email := range emails {
		rows.AddRow(uuid.New(), email, "First", "Last")
	}
	return rows
}

func TestAudienceListCampaignRules(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAudienceRepository(NewBaseRepository(db))

	campaignID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "audience_type", "audience_group_id",
		"exclude_list", "status", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), campaignID, "group", uuid.New(), "", "active", now, now).
		AddRow(uuid.New(), campaignID, "all", nil, uuid.New().String(), "active", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM campaign_audience")).
		WithArgs(campaignID).
		WillReturnRows(rows)

	rules, err := repo.ListCampaignRules(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.NotNil(t, rules[0].GroupID)
	assert.Nil(t, rules[1].GroupID)
	assert.Len(t, rules[1].ExcludedIDs(), 1)
}

func TestAudienceCampaignCandidatesAll(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAudienceRepository(NewBaseRepository(db))

	companyID := uuid.New()
	campaignID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WithArgs(companyID, sqlmock.AnyArg(), campaignID).
		WillReturnRows(candidateRows("alice@corp.test", "bob@corp.test"))

	candidates, err := repo.CampaignCandidatesAll(context.Background(), companyID, campaignID, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "alice@corp.test", candidates[0].Email)
}

func TestAudienceCampaignCandidatesGroups(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAudienceRepository(NewBaseRepository(db))

	campaignID := uuid.New()
	groupIDs := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(regexp.QuoteMeta("FROM groups_relationships gr")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), campaignID).
		WillReturnRows(candidateRows("carol@corp.test"))

	candidates, err := repo.CampaignCandidatesGroups(context.Background(), campaignID, groupIDs, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestAudienceAssignmentCandidatesAll(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAudienceRepository(NewBaseRepository(db))

	companyID := uuid.New()
	assignmentID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignment_logs l WHERE l.assignment_id")).
		WithArgs(companyID, sqlmock.AnyArg(), assignmentID).
		WillReturnRows(candidateRows())

	candidates, err := repo.AssignmentCandidatesAll(context.Background(), companyID, assignmentID, nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
