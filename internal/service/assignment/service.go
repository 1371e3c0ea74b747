// Package assignment implements training assignment lifecycle, enrollment
// materialization and the enrollment notification sender.
package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/email"
	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	"github.com/phishsentinel/phishsentinel-api/internal/service/audience"
	apperrors "github.com/phishsentinel/phishsentinel-api/pkg/errors"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
)

type Config struct {
	BatchSize  int
	ClaimStale time.Duration
}

// SendStats summarizes one enrollment notification run.
type SendStats struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

type Service struct {
	assignmentRepo repository.AssignmentRepository
	logRepo        repository.AssignmentLogRepository
	eventRepo      repository.TrackEventRepository
	profileRepo    repository.SendingProfileRepository
	resolver       *audience.Resolver
	sender         email.Sender
	config         Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
}

func NewService(
	assignmentRepo repository.AssignmentRepository,
	logRepo repository.AssignmentLogRepository,
	eventRepo repository.TrackEventRepository,
	profileRepo repository.SendingProfileRepository,
	resolver *audience.Resolver,
	sender email.Sender,
	config Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if config.BatchSize <= 0 {
		config.BatchSize = 12
	}
	if config.ClaimStale <= 0 {
		config.ClaimStale = 10 * time.Minute
	}
	return &Service{
		assignmentRepo: assignmentRepo,
		logRepo:        logRepo,
		eventRepo:      eventRepo,
		profileRepo:    profileRepo,
		resolver:       resolver,
		sender:         sender,
		config:         config,
		logger:         logger,
		metrics:        metrics,
	}
}

func (s *Service) Create(ctx context.Context, assignment *model.Assignment) error {
	if assignment.Status == "" {
		assignment.Status = model.AssignmentStatusDraft
	}
	if !assignment.Status.Valid() {
		return apperrors.BadRequest(fmt.Sprintf("invalid status %q", assignment.Status), nil)
	}
	if assignment.Title == "" {
		return apperrors.BadRequest("title is required", nil)
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	assignment, err := s.assignmentRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("assignment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return assignment, nil
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Assignment, error) {
	assignments, err := s.assignmentRepo.List(ctx, companyID, p)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return assignments, nil
}

// Modify applies start/stop/resume to an assignment.
func (s *Service) Modify(ctx context.Context, id uuid.UUID, action string) error {
	var to model.AssignmentStatus
	switch action {
	case "start", "resume":
		to = model.AssignmentStatusActive
	case "stop":
		to = model.AssignmentStatusStopped
	default:
		return apperrors.BadRequest(fmt.Sprintf("unknown action %q", action), nil)
	}

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if assignment.Status == model.AssignmentStatusCompleted {
		return apperrors.BadRequest("assignment is completed", nil)
	}
	if err := s.assignmentRepo.UpdateStatus(ctx, id, to); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Shoot materializes enrollment logs for one assignment.
func (s *Service) Shoot(ctx context.Context, id uuid.UUID) (int, error) {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if assignment.Status != model.AssignmentStatusDraft && !assignment.Status.CanShoot() {
		return 0, apperrors.BadRequest(
			fmt.Sprintf("cannot shoot assignment in status %q", assignment.Status), nil)
	}
	return s.materialize(ctx, assignment)
}

// ShootDue materializes every started assignment whose enrollment template
// runs today. Returns logs inserted across assignments.
func (s *Service) ShootDue(ctx context.Context, now time.Time) (int, error) {
	assignments, err := s.assignmentRepo.ListShootable(ctx, now)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	total := 0
	for _, assignment := range assignments {
		if !assignment.Status.CanShoot() || !assignment.RunsOn(now.Weekday()) {
			continue
		}
		n, err := s.materialize(ctx, assignment)
		if err != nil {
			s.logger.Error(err, "Shoot failed for assignment", "assignment_id", assignment.ID.String())
			continue
		}
		total += n
	}
	return total, nil
}

// SendDue delivers one batch of pending enrollment notifications.
// Enrollment mail carries no tracking pixel or rewritten links; only the
// name placeholders are substituted.
func (s *Service) SendDue(ctx context.Context) (*SendStats, error) {
	logs, err := s.logRepo.ClaimPending(ctx, s.config.BatchSize, s.config.ClaimStale)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	stats := &SendStats{Attempted: len(logs)}
	for _, log := range logs {
		if err := s.send(ctx, log); err != nil {
			stats.Failed++
			s.metrics.EmailsFailed.Inc()
			s.logger.Error(err, "Failed to send enrollment email",
				"log_id", log.ID.String(), "assignment_id", log.AssignmentID.String())
			s.markFailed(ctx, log, err)
			continue
		}
		stats.Sent++
		s.metrics.EmailsSent.Inc()
	}
	return stats, nil
}

func (s *Service) send(ctx context.Context, log *model.AssignmentLog) error {
	profile, err := s.profileRepo.GetForAssignment(ctx, log.AssignmentID)
	if err != nil {
		return fmt.Errorf("failed to load sending profile: %w", err)
	}

	body := strings.ReplaceAll(log.EmailContent, "{{.FirstName}}", log.Placeholders.FirstName)
	body = strings.ReplaceAll(body, "{{.LastName}}", log.Placeholders.LastName)
	body = strings.ReplaceAll(body, "{{.URL}}", log.Placeholders.URL)

	msg := &email.Message{
		FromName:  log.SenderMeta.FromName,
		FromEmail: log.SenderMeta.FromEmail,
		ToName:    fmt.Sprintf("%s %s", log.Placeholders.FirstName, log.Placeholders.LastName),
		ToEmail:   log.UserEmail,
		Subject:   log.SenderMeta.Subject,
		HTMLBody:  body,
		Headers:   log.SenderMeta.Headers,
	}
	if err := s.sender.Send(profile, msg); err != nil {
		return err
	}

	s.markSent(ctx, log)
	return nil
}

// markSent records delivery bookkeeping. The message is already accepted
// by the SMTP server, so a failed status write is logged and the row
// stays claimed rather than being recorded as send_failed.
func (s *Service) markSent(ctx context.Context, log *model.AssignmentLog) {
	if err := s.logRepo.UpdateStatus(ctx, log.ID, model.EmailLogStatusSent, ""); err != nil {
		s.logger.Error(err, "Failed to mark log sent after delivery",
			"log_id", log.ID.String())
	}
	s.recordEvent(ctx, log, model.EventSent, "")
}

func (s *Service) markFailed(ctx context.Context, log *model.AssignmentLog, cause error) {
	if err := s.logRepo.UpdateStatus(ctx, log.ID, model.EmailLogStatusSendFailed, cause.Error()); err != nil {
		s.logger.Error(err, "Failed to mark log send_failed", "log_id", log.ID.String())
	}
	s.recordEvent(ctx, log, model.EventSendFailed, cause.Error())
}

func (s *Service) recordEvent(ctx context.Context, log *model.AssignmentLog, event model.EventType, note string) {
	e := &model.TrackEvent{
		EntityID:  log.ID,
		SecretKey: log.SecretKey,
		Event:     event,
		Note:      note,
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		s.logger.Error(err, "Failed to record enrollment event",
			"log_id", log.ID.String(), "event", string(event))
		return
	}
	s.metrics.TrackEventsRecorded.WithLabelValues(string(event)).Inc()
}

func (s *Service) materialize(ctx context.Context, assignment *model.Assignment) (int, error) {
	tmpl, err := s.assignmentRepo.GetEnrollmentTemplate(ctx, assignment.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.BadRequest("assignment has no enrollment template", err)
		}
		return 0, apperrors.Internal(err)
	}

	candidates, err := s.resolver.ResolveAssignment(ctx, assignment)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	logs := s.resolver.BuildAssignmentLogs(assignment, tmpl, candidates)

	// An empty audience enrolls nobody and the assignment stays put.
	if len(logs) == 0 {
		return 0, nil
	}

	tx, err := s.logRepo.BeginTx(ctx)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	defer tx.Rollback()

	inserted, err := s.logRepo.BulkCreateTx(ctx, tx, logs)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	if assignment.Status == model.AssignmentStatusDraft || assignment.Status == model.AssignmentStatusActive {
		from := []model.AssignmentStatus{model.AssignmentStatusDraft, model.AssignmentStatusActive}
		if err := s.assignmentRepo.UpdateStatusTx(ctx, tx, assignment.ID, from, model.AssignmentStatusRunning); err != nil {
			return 0, apperrors.Internal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Internal(err)
	}

	s.metrics.LogsMaterialized.WithLabelValues("assignment").Add(float64(inserted))
	return inserted, nil
}
