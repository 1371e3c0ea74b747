package dispatch

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishsentinel/phishsentinel-api/internal/email"
	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/service/template"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
)

var testMetrics = metrics.New("dispatch_test")

type stubLogRepo struct {
	pending   []*model.EmailLog
	statuses  map[uuid.UUID]model.EmailLogStatus
	updateErr error
}

func (s *stubLogRepo) BeginTx(ctx context.Context) (*sqlx.Tx, error) { return nil, nil }

func (s *stubLogRepo) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, logs []*model.EmailLog) (int, error) {
	return 0, nil
}

func (s *stubLogRepo) ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.EmailLog, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubLogRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EmailLogStatus, note string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.statuses == nil {
		s.statuses = map[uuid.UUID]model.EmailLogStatus{}
	}
	s.statuses[id] = status
	return nil
}

func (s *stubLogRepo) GetBySecret(ctx context.Context, secret uuid.UUID) (*model.EmailLog, error) {
	return nil, nil
}

func (s *stubLogRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID, p model.Pagination) ([]*model.EmailLog, error) {
	return nil, nil
}

func (s *stubLogRepo) Release(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubLogRepo) Cancel(ctx context.Context, id uuid.UUID) error { return nil }

type stubProfileRepo struct {
	profile *model.SendingProfile
	err     error
}

func (s *stubProfileRepo) Create(ctx context.Context, p *model.SendingProfile) error { return nil }
func (s *stubProfileRepo) Get(ctx context.Context, id uuid.UUID) (*model.SendingProfile, error) {
	return s.profile, s.err
}
func (s *stubProfileRepo) GetForCampaign(ctx context.Context, id uuid.UUID) (*model.SendingProfile, error) {
	return s.profile, s.err
}
func (s *stubProfileRepo) GetForAssignment(ctx context.Context, id uuid.UUID) (*model.SendingProfile, error) {
	return s.profile, s.err
}
func (s *stubProfileRepo) Update(ctx context.Context, p *model.SendingProfile) error { return nil }
func (s *stubProfileRepo) Delete(ctx context.Context, id uuid.UUID) error            { return nil }
func (s *stubProfileRepo) List(ctx context.Context, companyID uuid.UUID) ([]*model.SendingProfile, error) {
	return nil, nil
}

type stubEventRepo struct {
	events []*model.TrackEvent
}

func (s *stubEventRepo) Create(ctx context.Context, e *model.TrackEvent) error {
	s.events = append(s.events, e)
	return nil
}

func (s *stubEventRepo) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*model.TrackEvent, error) {
	return nil, nil
}

func (s *stubEventRepo) CountByEvent(ctx context.Context, campaignID uuid.UUID) ([]model.EventCount, error) {
	return nil, nil
}

func (s *stubEventRepo) BotSplit(ctx context.Context, campaignID uuid.UUID) (*model.BotSplit, error) {
	return nil, nil
}

type fakeSender struct {
	sent []*email.Message
	fail bool
}

func (f *fakeSender) Send(profile *model.SendingProfile, msg *email.Message) error {
	if f.fail {
		return errors.New("connection refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func pendingLog() *model.EmailLog {
	l := &model.EmailLog{
		CampaignID:   uuid.New(),
		UserID:       uuid.New(),
		UserEmail:    "target@corp.test",
		SecretKey:    uuid.New(),
		Status:       model.EmailLogStatusPending,
		EmailContent: "<body><p>Hi {{.FirstName}}</p></body>",
		Placeholders: model.Placeholders{FirstName: "Ada", LastName: "Lovelace", URL: "https://l.test?secret_key="},
		SenderMeta:   model.SenderMeta{FromName: "IT", FromEmail: "it@corp.test", Subject: "Reset"},
	}
	l.ID = uuid.New()
	return l
}

func newTestWorker(logs *stubLogRepo, sender *fakeSender, events *stubEventRepo) *Worker {
	return NewWorker(
		logs,
		&stubProfileRepo{profile: &model.SendingProfile{Host: "smtp.test", Port: 587}},
		events,
		template.NewRenderer("https://track.test", "https://land.test/go"),
		sender,
		WorkerConfig{BatchSize: 12, PollInterval: time.Minute, ClaimStale: 10 * time.Minute},
		logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}),
		testMetrics,
	)
}

func TestRunOnceSendsBatch(t *testing.T) {
	log := pendingLog()
	logs := &stubLogRepo{pending: []*model.EmailLog{log}}
	sender := &fakeSender{}
	events := &stubEventRepo{}

	stats, err := newTestWorker(logs, sender, events).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, model.EmailLogStatusSent, logs.statuses[log.ID])

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "target@corp.test", msg.ToEmail)
	assert.Contains(t, msg.HTMLBody, "Hi Ada")
	assert.Contains(t, msg.HTMLBody, log.SecretKey.String())

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventSent, events.events[0].Event)
	assert.Equal(t, log.ID, events.events[0].EntityID)
}

func TestRunOnceRecordsFailure(t *testing.T) {
	log := pendingLog()
	logs := &stubLogRepo{pending: []*model.EmailLog{log}}
	events := &stubEventRepo{}

	stats, err := newTestWorker(logs, &fakeSender{fail: true}, events).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, model.EmailLogStatusSendFailed, logs.statuses[log.ID])

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventSendFailed, events.events[0].Event)
	assert.Contains(t, events.events[0].Note, "connection refused")
}

func TestRunOnceBookkeepingFailureIsNotSendFailed(t *testing.T) {
	log := pendingLog()
	logs := &stubLogRepo{
		pending:   []*model.EmailLog{log},
		updateErr: errors.New("connection reset"),
	}
	sender := &fakeSender{}
	events := &stubEventRepo{}

	stats, err := newTestWorker(logs, sender, events).RunOnce(context.Background())
	require.NoError(t, err)

	// The message was delivered; a failed status write must not record
	// the send as failed.
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 0, stats.Failed)
	require.Len(t, sender.sent, 1)
	assert.NotContains(t, logs.statuses, log.ID)

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventSent, events.events[0].Event)
}

func TestRunOnceHonorsBatchLimit(t *testing.T) {
	logs := &stubLogRepo{}
	for i := 0; i < 20; i++ {
		logs.pending = append(logs.pending, pendingLog())
	}
	sender := &fakeSender{}

	stats, err := newTestWorker(logs, sender, &stubEventRepo{}).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, stats.Attempted)
	assert.Len(t, sender.sent, 12)
}

func TestRunOnceEmptyBatch(t *testing.T) {
	stats, err := newTestWorker(&stubLogRepo{}, &fakeSender{}, &stubEventRepo{}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Attempted)
}
