// Package campaign implements campaign lifecycle operations, audience
// materialization (shoot) and the external-builder launch orchestration.
package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/gophish"
	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	"github.com/phishsentinel/phishsentinel-api/internal/service/audience"
	apperrors "github.com/phishsentinel/phishsentinel-api/pkg/errors"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
)

// Action is an operator lifecycle command.
type Action string

// launchTargetCap bounds the audience shipped to the external builder in
// one group.
const launchTargetCap = 100000

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionResume  Action = "resume"
	ActionRestart Action = "restart"
	ActionReset   Action = "reset"
)

// Builder provisions campaign entities on the external campaign builder.
type Builder interface {
	CreateTemplate(ctx context.Context, t *gophish.Template) (*gophish.Template, error)
	CreateSMTP(ctx context.Context, s *gophish.SMTP) (*gophish.SMTP, error)
	CreateGroup(ctx context.Context, g *gophish.Group) (*gophish.Group, error)
	CreateCampaign(ctx context.Context, c *gophish.Campaign) (*gophish.Campaign, error)
}

// FunnelReport is the per-campaign engagement summary.
type FunnelReport struct {
	Counts []model.EventCount `json:"counts"`
	Bot    *model.BotSplit    `json:"bot_split"`
}

// LaunchResult carries the remote ids of builder-provisioned entities.
type LaunchResult struct {
	TemplateID int `json:"template_id"`
	SMTPID     int `json:"smtp_id"`
	GroupID    int `json:"group_id"`
	CampaignID int `json:"campaign_id"`
}

type Service struct {
	campaignRepo repository.CampaignRepository
	logRepo      repository.EmailLogRepository
	eventRepo    repository.TrackEventRepository
	profileRepo  repository.SendingProfileRepository
	templateRepo repository.EmailTemplateRepository
	resolver     *audience.Resolver
	builder      Builder
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	campaignRepo repository.CampaignRepository,
	logRepo repository.EmailLogRepository,
	eventRepo repository.TrackEventRepository,
	profileRepo repository.SendingProfileRepository,
	templateRepo repository.EmailTemplateRepository,
	resolver *audience.Resolver,
	builder Builder,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		campaignRepo: campaignRepo,
		logRepo:      logRepo,
		eventRepo:    eventRepo,
		profileRepo:  profileRepo,
		templateRepo: templateRepo,
		resolver:     resolver,
		builder:      builder,
		logger:       logger,
		metrics:      metrics,
	}
}

func (s *Service) Create(ctx context.Context, campaign *model.Campaign) error {
	if campaign.Status == "" {
		campaign.Status = model.CampaignStatusDraft
	}
	if err := campaign.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	campaign, err := s.campaignRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("campaign", err)
		}
		return nil, apperrors.Internal(err)
	}
	return campaign, nil
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, p model.Pagination) ([]*model.Campaign, error) {
	campaigns, err := s.campaignRepo.List(ctx, companyID, p)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return campaigns, nil
}

func (s *Service) Update(ctx context.Context, campaign *model.Campaign) error {
	if err := campaign.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Delete removes the campaign and cascades its logs, events and rules.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Modify applies an operator lifecycle action. Transitions are validated
// against the campaign state machine; completed campaigns reject every
// action except reset.
func (s *Service) Modify(ctx context.Context, id uuid.UUID, action Action) error {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	switch action {
	case ActionStart, ActionResume:
		if !campaign.Status.CanTransition(model.CampaignStatusActive) {
			return apperrors.BadRequest(
				fmt.Sprintf("cannot %s campaign in status %q", action, campaign.Status), nil)
		}
		if err := s.campaignRepo.UpdateStatus(ctx, id, model.CampaignStatusActive); err != nil {
			return apperrors.Internal(err)
		}
	case ActionStop:
		if !campaign.Status.CanTransition(model.CampaignStatusStopped) {
			return apperrors.BadRequest(
				fmt.Sprintf("cannot stop campaign in status %q", campaign.Status), nil)
		}
		if err := s.campaignRepo.UpdateStatus(ctx, id, model.CampaignStatusStopped); err != nil {
			return apperrors.Internal(err)
		}
	case ActionRestart:
		if err := s.campaignRepo.Restart(ctx, id); err != nil {
			return apperrors.Internal(err)
		}
	case ActionReset:
		if err := s.campaignRepo.ResetEvents(ctx, id); err != nil {
			return apperrors.Internal(err)
		}
	default:
		return apperrors.BadRequest(fmt.Sprintf("unknown action %q", action), nil)
	}
	return nil
}

// Shoot materializes recipient logs for a campaign on operator demand.
// Draft campaigns may shoot; the campaign moves to running in the same
// transaction as the insert.
func (s *Service) Shoot(ctx context.Context, id uuid.UUID) (int, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if campaign.Status != model.CampaignStatusDraft && !campaign.Status.CanShoot() {
		return 0, apperrors.BadRequest(
			fmt.Sprintf("cannot shoot campaign in status %q", campaign.Status), nil)
	}

	from := []model.CampaignStatus{model.CampaignStatusDraft, model.CampaignStatusActive}
	return s.materialize(ctx, campaign, from)
}

// ShootDue runs the scheduled shoot: expired campaigns complete, then
// every campaign inside its window whose weekday list includes today
// materializes. Returns the number of logs inserted across campaigns.
func (s *Service) ShootDue(ctx context.Context, now time.Time) (int, error) {
	completed, err := s.campaignRepo.CompleteExpired(ctx, now)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	if completed > 0 {
		s.metrics.CampaignsCompleted.Add(float64(completed))
		s.logger.Info("Auto-completed expired campaigns", "count", completed)
	}

	campaigns, err := s.campaignRepo.ListShootable(ctx, now)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	total := 0
	from := []model.CampaignStatus{model.CampaignStatusActive}
	for _, campaign := range campaigns {
		if !campaign.Status.CanShoot() || !campaign.RunsOn(now.Weekday()) {
			continue
		}
		n, err := s.materialize(ctx, campaign, from)
		if err != nil {
			s.logger.Error(err, "Shoot failed for campaign", "campaign_id", campaign.ID.String())
			continue
		}
		total += n
	}
	return total, nil
}

// Release flips an advance campaign's scheduled logs to pending so the
// dispatch worker picks them up.
func (s *Service) Release(ctx context.Context, id uuid.UUID) (int64, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if campaign.Type != model.CampaignTypeAdvance {
		return 0, apperrors.BadRequest("only advance campaigns hold scheduled logs", nil)
	}
	released, err := s.logRepo.Release(ctx, id)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return released, nil
}

// Logs lists the campaign's recipient logs.
func (s *Service) Logs(ctx context.Context, id uuid.UUID, p model.Pagination) ([]*model.EmailLog, error) {
	logs, err := s.logRepo.ListByCampaign(ctx, id, p)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return logs, nil
}

// Funnel aggregates engagement counts and the bot split for a campaign.
func (s *Service) Funnel(ctx context.Context, id uuid.UUID) (*FunnelReport, error) {
	counts, err := s.eventRepo.CountByEvent(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	split, err := s.eventRepo.BotSplit(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &FunnelReport{Counts: counts, Bot: split}, nil
}

// Launch provisions the campaign on the external builder: template,
// sending profile, recipient group, then the remote campaign itself.
// Builder failures surface as errors but leave local state untouched.
func (s *Service) Launch(ctx context.Context, id uuid.UUID) (*LaunchResult, error) {
	if s.builder == nil {
		return nil, apperrors.BadRequest("external builder is not configured", nil)
	}

	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.templateRepo.Get(ctx, campaign.EmailTemplateID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	profile, err := s.profileRepo.GetForCampaign(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	logs, err := s.logRepo.ListByCampaign(ctx, id, model.Pagination{PerPage: launchTargetCap})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	stamp := time.Now().UnixMilli()

	remoteTmpl, err := s.builder.CreateTemplate(ctx, &gophish.Template{
		Name:           fmt.Sprintf("%s-%d", tmpl.Title, stamp),
		Subject:        tmpl.Subject,
		HTML:           tmpl.HTMLContent,
		EnvelopeSender: tmpl.FromEmail,
	})
	if err != nil {
		return nil, apperrors.BadRequest("builder rejected template", err)
	}

	remoteSMTP, err := s.builder.CreateSMTP(ctx, &gophish.SMTP{
		Name:          fmt.Sprintf("%s-%d", campaign.Title, stamp),
		Username:      profile.UserName,
		Password:      profile.Password,
		Host:          profile.Host,
		InterfaceType: "SMTP",
		FromAddress:   tmpl.FromEmail,
	})
	if err != nil {
		return nil, apperrors.BadRequest("builder rejected sending profile", err)
	}

	targets := make([]gophish.Target, 0, len(logs))
	for _, log := range logs {
		targets = append(targets, gophish.Target{
			Email:     log.UserEmail,
			FirstName: log.Placeholders.FirstName,
			LastName:  log.Placeholders.LastName,
		})
	}
	remoteGroup, err := s.builder.CreateGroup(ctx, &gophish.Group{
		Name:    fmt.Sprintf("%s - %d", campaign.Title, stamp),
		Targets: targets,
	})
	if err != nil {
		return nil, apperrors.BadRequest("builder rejected recipient group", err)
	}

	remoteCampaign, err := s.builder.CreateCampaign(ctx, &gophish.Campaign{
		Name:       campaign.ID.String(),
		LaunchDate: campaign.StartDate,
		Template:   remoteTmpl,
		SMTP:       remoteSMTP,
		Groups:     []gophish.Group{{Name: remoteGroup.Name}},
	})
	if err != nil {
		return nil, apperrors.BadRequest("builder rejected campaign", err)
	}

	return &LaunchResult{
		TemplateID: remoteTmpl.ID,
		SMTPID:     remoteSMTP.ID,
		GroupID:    remoteGroup.ID,
		CampaignID: remoteCampaign.ID,
	}, nil
}

// materialize resolves the audience, bulk-inserts logs and flips the
// campaign toward running in one transaction. The unique constraint on
// (campaign_id, user_email) makes repeated runs idempotent.
func (s *Service) materialize(ctx context.Context, campaign *model.Campaign, from []model.CampaignStatus) (int, error) {
	candidates, err := s.resolver.ResolveCampaign(ctx, campaign)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	logs, err := s.resolver.BuildEmailLogs(ctx, campaign, candidates)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	// An empty audience materializes nothing and the campaign stays put.
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

	if statusIn(campaign.Status, from) && campaign.Status != model.CampaignStatusRunning {
		if err := s.campaignRepo.UpdateStatusTx(ctx, tx, campaign.ID, from, model.CampaignStatusRunning); err != nil {
			return 0, apperrors.Internal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Internal(err)
	}

	s.metrics.LogsMaterialized.WithLabelValues("campaign").Add(float64(inserted))
	return inserted, nil
}

func statusIn(status model.CampaignStatus, set []model.CampaignStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
