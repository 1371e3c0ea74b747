package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
)

func campaignColumns() []string {
	return []string{
		"id", "company_id", "title", "type", "language", "description", "status",
		"start_date", "end_date", "start_time", "end_time", "time_zone", "days",
		"email_template_id", "sending_profile_id", "domain_id", "landing_page_id",
		"success_event_type", "created_at", "updated_at",
	}
}

func campaignRow(id uuid.UUID, status model.CampaignStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(campaignColumns()).
		AddRow(id, uuid.New(), "Q3 awareness", "phishing", "en", "", string(status),
			now, now.Add(72*time.Hour), 9, 17, "UTC", "Mon,Tue,Wed,Thu,Fri",
			uuid.New(), uuid.New(), uuid.New(), uuid.New(), "click", now, now)
}

func TestCampaignCreateAssignsID(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO campaigns")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &model.Campaign{
		CompanyID: uuid.New(),
		Title:     "Q3 awareness",
		Type:      model.CampaignTypePhishing,
		Status:    model.CampaignStatusDraft,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignGetNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM campaigns WHERE id = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCampaignGetBySecret(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	id := uuid.New()
	secret := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("JOIN email_logs l ON l.campaign_id = c.id")).
		WithArgs(secret).
		WillReturnRows(campaignRow(id, model.CampaignStatusRunning))

	c, err := repo.GetBySecret(context.Background(), secret)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, model.CampaignStatusRunning, c.Status)
}

func TestCampaignUpdateStatusTxGuardsTransition(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET status")).
		WithArgs(model.CampaignStatusRunning, sqlmock.AnyArg(), id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	from := []model.CampaignStatus{model.CampaignStatusDraft, model.CampaignStatusActive}
	require.NoError(t, repo.UpdateStatusTx(context.Background(), tx, id, from, model.CampaignStatusRunning))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRestartClearsEventsAndLogs(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM track_events")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_logs SET status")).
		WithArgs(model.EmailLogStatusPending, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET status")).
		WithArgs(model.CampaignStatusActive, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Restart(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRestartUnknownCampaign(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM track_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_logs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Restart(context.Background(), id)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCampaignCompleteExpired(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCampaignRepository(NewBaseRepository(db))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET status")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.CompleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
