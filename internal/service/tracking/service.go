// Package tracking records recipient engagement events arriving on the
// public surfaces: the open pixel, the submitted-event endpoint and the
// hosted landing page.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/geoip"
	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	"github.com/phishsentinel/phishsentinel-api/internal/useragent"
	apperrors "github.com/phishsentinel/phishsentinel-api/pkg/errors"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/messaging"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
)

// EventsChannel is the broker channel engagement events fan out on.
const EventsChannel = "track-events"

// GeoLocator resolves an IP to a coarse location, best-effort.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (*geoip.Location, error)
}

// RequestMeta carries the request attributes stored on every event.
type RequestMeta struct {
	UserAgent     string
	IP            string
	RequestHeader string
}

// LandingPageView is the hosted-page payload served to recipients.
type LandingPageView struct {
	HTMLContent          string `json:"html_content"`
	CaptureSubmittedData bool   `json:"capture_submitted_data"`
	CapturePassword      bool   `json:"capture_password"`
	RedirectURL          string `json:"redirect_url"`
}

type Service struct {
	logRepo      repository.EmailLogRepository
	eventRepo    repository.TrackEventRepository
	campaignRepo repository.CampaignRepository
	pageRepo     repository.LandingPageRepository
	geo          GeoLocator
	broker       messaging.Broker
	reportJSURL  string
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	logRepo repository.EmailLogRepository,
	eventRepo repository.TrackEventRepository,
	campaignRepo repository.CampaignRepository,
	pageRepo repository.LandingPageRepository,
	geo GeoLocator,
	broker messaging.Broker,
	reportJSURL string,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		logRepo:      logRepo,
		eventRepo:    eventRepo,
		campaignRepo: campaignRepo,
		pageRepo:     pageRepo,
		geo:          geo,
		broker:       broker,
		reportJSURL:  reportJSURL,
		logger:       logger,
		metrics:      metrics,
	}
}

// RecordOpen writes an open event for the secret. An unknown secret is
// not an error: the caller serves the pixel either way, so scanners
// cannot probe for valid secrets.
func (s *Service) RecordOpen(ctx context.Context, secret uuid.UUID, meta RequestMeta) error {
	log, err := s.logRepo.GetBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperrors.Internal(err)
	}

	event := s.buildEvent(ctx, log, model.EventOpen, meta)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return apperrors.Internal(err)
	}
	s.recorded(ctx, event)
	return nil
}

// RecordSubmitted writes a recipient-reported event (click, captured,
// report). When the kind matches the campaign's success event type a
// derived success event is written first.
func (s *Service) RecordSubmitted(ctx context.Context, secret uuid.UUID, kind model.EventType, submittedData string, meta RequestMeta) error {
	if !kind.Submittable() {
		return apperrors.BadRequest(fmt.Sprintf("event type %q cannot be submitted", kind), nil)
	}

	log, err := s.logRepo.GetBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.BadRequest("tracking secret is not valid", nil)
		}
		return apperrors.Internal(err)
	}

	campaign, err := s.campaignRepo.GetBySecret(ctx, secret)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apperrors.Internal(err)
	}

	if campaign != nil && model.EventType(campaign.SuccessEventType) == kind {
		success := s.buildEvent(ctx, log, model.EventSuccess, meta)
		success.SubmittedData = submittedData
		if err := s.eventRepo.Create(ctx, success); err != nil {
			return apperrors.Internal(err)
		}
		s.recorded(ctx, success)
	}

	event := s.buildEvent(ctx, log, kind, meta)
	event.SubmittedData = submittedData
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return apperrors.Internal(err)
	}
	s.recorded(ctx, event)
	return nil
}

// LandingPage serves a hosted page with the report script injected
// before the closing body tag.
func (s *Service) LandingPage(ctx context.Context, id uuid.UUID) (*LandingPageView, error) {
	page, err := s.pageRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("landing page", err)
		}
		return nil, apperrors.Internal(err)
	}

	html := page.HTMLContent
	if s.reportJSURL != "" {
		script := fmt.Sprintf(`<script src="%s?v=%d"></script>`, s.reportJSURL, time.Now().UnixMilli())
		if strings.Contains(html, "</body>") {
			html = strings.Replace(html, "</body>", script+"</body>", 1)
		} else {
			html = html + script
		}
	}

	return &LandingPageView{
		HTMLContent:          html,
		CaptureSubmittedData: page.CaptureSubmittedData,
		CapturePassword:      page.CapturePassword,
		RedirectURL:          page.RedirectURL,
	}, nil
}

func (s *Service) buildEvent(ctx context.Context, log *model.EmailLog, kind model.EventType, meta RequestMeta) *model.TrackEvent {
	event := &model.TrackEvent{
		EntityID:      log.ID,
		SecretKey:     log.SecretKey,
		Event:         kind,
		UserAgentRaw:  meta.UserAgent,
		UserAgent:     useragent.Browser(meta.UserAgent),
		OS:            useragent.OS(meta.UserAgent),
		Bot:           useragent.IsBot(meta.UserAgent),
		IP:            meta.IP,
		RequestHeader: meta.RequestHeader,
	}

	if event.Bot {
		s.metrics.BotEventsFlagged.Inc()
	}

	if s.geo != nil && meta.IP != "" {
		loc, err := s.geo.Lookup(ctx, meta.IP)
		if err != nil {
			s.metrics.GeoLookupFailures.Inc()
			s.logger.Debug("Geo lookup failed", "ip", meta.IP)
		} else {
			event.City = loc.City
			event.State = loc.State
			event.Country = loc.Country
			event.Location = loc.Coordinates()
		}
	}
	return event
}

// recorded bumps metrics and fans the event out to the broker. Publishing
// is best-effort; a broker outage never fails the recording.
func (s *Service) recorded(ctx context.Context, event *model.TrackEvent) {
	s.metrics.TrackEventsRecorded.WithLabelValues(string(event.Event)).Inc()

	if s.broker == nil {
		return
	}
	msg := messaging.Message{Type: "track_event." + string(event.Event), Payload: event}
	if err := s.broker.Publish(ctx, EventsChannel, msg); err != nil {
		s.logger.Error(err, "Failed to publish track event", "event", string(event.Event))
	}
}
