// Package dispatch runs the batch sender that drains pending recipient
// logs, renders each message and delivers it over the campaign's sending
// profile.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phishsentinel/phishsentinel-api/internal/email"
	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	"github.com/phishsentinel/phishsentinel-api/internal/service/template"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
)

type WorkerConfig struct {
	BatchSize    int
	PollInterval time.Duration
	ClaimStale   time.Duration
}

// Stats summarizes one dispatch run.
type Stats struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Worker claims pending logs with a locking batch read, so concurrent
// runs never pick up the same row. A claim that is neither completed nor
// failed becomes reclaimable after ClaimStale.
type Worker struct {
	logRepo     repository.EmailLogRepository
	profileRepo repository.SendingProfileRepository
	eventRepo   repository.TrackEventRepository
	renderer    *template.Renderer
	sender      email.Sender
	config      WorkerConfig
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewWorker(
	logRepo repository.EmailLogRepository,
	profileRepo repository.SendingProfileRepository,
	eventRepo repository.TrackEventRepository,
	renderer *template.Renderer,
	sender email.Sender,
	config WorkerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Worker {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.ClaimStale <= 0 {
		panic("ClaimStale must be greater than 0")
	}

	return &Worker{
		logRepo:     logRepo,
		profileRepo: profileRepo,
		eventRepo:   eventRepo,
		renderer:    renderer,
		sender:      sender,
		config:      config,
		logger:      logger,
		metrics:     metrics,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.Info("Starting dispatch worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down dispatch worker")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error(err, "Dispatch run failed")
			}
		}
	}
}

// RunOnce claims and sends one batch. Per-recipient failures are recorded
// on the log and do not abort the batch.
func (w *Worker) RunOnce(ctx context.Context) (*Stats, error) {
	timer := prometheus.NewTimer(w.metrics.DispatchRunDuration)
	defer timer.ObserveDuration()

	logs, err := w.logRepo.ClaimPending(ctx, w.config.BatchSize, w.config.ClaimStale)
	if err != nil {
		w.metrics.DatabaseOperations.WithLabelValues("claim_pending", "error").Inc()
		return nil, fmt.Errorf("failed to claim pending logs: %w", err)
	}
	w.metrics.DatabaseOperations.WithLabelValues("claim_pending", "success").Inc()
	w.metrics.DispatchBatchSize.Observe(float64(len(logs)))

	stats := &Stats{Attempted: len(logs)}
	for _, log := range logs {
		if err := w.dispatch(ctx, log); err != nil {
			stats.Failed++
			w.metrics.EmailsFailed.Inc()
			w.logger.Error(err, "Failed to dispatch email",
				"log_id", log.ID.String(),
				"campaign_id", log.CampaignID.String())
			w.markFailed(ctx, log, err)
			continue
		}
		stats.Sent++
		w.metrics.EmailsSent.Inc()
	}

	return stats, nil
}

func (w *Worker) dispatch(ctx context.Context, log *model.EmailLog) error {
	profile, err := w.profileRepo.GetForCampaign(ctx, log.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to load sending profile: %w", err)
	}

	body := w.renderer.Render(log.EmailContent, log.Placeholders, log.SecretKey.String())

	msg := &email.Message{
		FromName:  log.SenderMeta.FromName,
		FromEmail: log.SenderMeta.FromEmail,
		ToName:    fmt.Sprintf("%s %s", log.Placeholders.FirstName, log.Placeholders.LastName),
		ToEmail:   log.UserEmail,
		Subject:   log.SenderMeta.Subject,
		HTMLBody:  body,
		Headers:   log.SenderMeta.Headers,
	}
	if err := w.sender.Send(profile, msg); err != nil {
		return err
	}

	w.markSent(ctx, log)
	return nil
}

// markSent records delivery bookkeeping. The SMTP server has already
// accepted the message at this point, so a failed status write must not
// flip the log to send_failed; the row stays claimed and the error is
// logged instead.
func (w *Worker) markSent(ctx context.Context, log *model.EmailLog) {
	if err := w.logRepo.UpdateStatus(ctx, log.ID, model.EmailLogStatusSent, ""); err != nil {
		w.logger.Error(err, "Failed to mark log sent after delivery",
			"log_id", log.ID.String())
	}
	w.recordEvent(ctx, log, model.EventSent, "")
}

func (w *Worker) markFailed(ctx context.Context, log *model.EmailLog, cause error) {
	if err := w.logRepo.UpdateStatus(ctx, log.ID, model.EmailLogStatusSendFailed, cause.Error()); err != nil {
		w.logger.Error(err, "Failed to mark log send_failed", "log_id", log.ID.String())
	}
	w.recordEvent(ctx, log, model.EventSendFailed, cause.Error())
}

func (w *Worker) recordEvent(ctx context.Context, log *model.EmailLog, event model.EventType, note string) {
	e := &model.TrackEvent{
		EntityID:  log.ID,
		SecretKey: log.SecretKey,
		Event:     event,
		Note:      note,
	}
	if err := w.eventRepo.Create(ctx, e); err != nil {
		w.logger.Error(err, "Failed to record dispatch event",
			"log_id", log.ID.String(), "event", string(event))
		return
	}
	w.metrics.TrackEventsRecorded.WithLabelValues(string(event)).Inc()
}
