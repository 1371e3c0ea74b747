package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
)

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func emailLogColumns() []string {
	return []string{
		"id", "campaign_id", "user_id", "user_email", "secret_key", "status",
		"email_content", "placeholders", "sender_meta", "note", "created_at", "updated_at",
	}
}

func TestEmailLogClaimPending(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEmailLogRepository(NewBaseRepository(db))

	now := time.Now()
	logID := uuid.New()
	campaignID := uuid.New()
	secret := uuid.New()

	rows := sqlmock.NewRows(emailLogColumns()).
		AddRow(logID, campaignID, uuid.New(), "alice@corp.test", secret, "pending",
			"<html></html>", "{}", "{}", "", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE email_logs SET claimed_at = NOW()")).
		WithArgs(model.EmailLogStatusPending, "600 seconds", 12).
		WillReturnRows(rows)

	logs, err := repo.ClaimPending(context.Background(), 12, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, logID, logs[0].ID)
	assert.Equal(t, secret, logs[0].SecretKey)
	assert.Equal(t, model.EmailLogStatusPending, logs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailLogClaimPendingEmpty(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEmailLogRepository(NewBaseRepository(db))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE email_logs SET claimed_at = NOW()")).
		WillReturnRows(sqlmock.NewRows(emailLogColumns()))

	logs, err := repo.ClaimPending(context.Background(), 12, 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestEmailLogBulkCreateTxSkipsConflicts(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEmailLogRepository(NewBaseRepository(db))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO email_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO email_logs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	logs := []*model.EmailLog{
		{CampaignID: uuid.New(), UserEmail: "alice@corp.test", Status: model.EmailLogStatusPending},
		{CampaignID: uuid.New(), UserEmail: "bob@corp.test", Status: model.EmailLogStatusPending},
	}

	inserted, err := repo.BulkCreateTx(context.Background(), tx, logs)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NotEqual(t, uuid.Nil, logs[0].ID)
	assert.NotEqual(t, uuid.Nil, logs[0].SecretKey)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailLogUpdateStatusNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEmailLogRepository(NewBaseRepository(db))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_logs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), uuid.New(), model.EmailLogStatusSent, "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEmailLogGetBySecretNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEmailLogRepository(NewBaseRepository(db))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM email_logs WHERE secret_key = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySecret(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEmailLogRelease(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewEmailLogRepository(NewBaseRepository(db))

	campaignID := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_logs SET status")).
		WithArgs(model.EmailLogStatusPending, sqlmock.AnyArg(), campaignID, model.EmailLogStatusSchedule).
		WillReturnResult(sqlmock.NewResult(0, 7))

	released, err := repo.Release(context.Background(), campaignID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}
