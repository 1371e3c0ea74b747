package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/phishsentinel/phishsentinel-api/internal/config"
	"github.com/phishsentinel/phishsentinel-api/internal/email"
	"github.com/phishsentinel/phishsentinel-api/internal/geoip"
	"github.com/phishsentinel/phishsentinel-api/internal/gophish"
	assignmentHandler "github.com/phishsentinel/phishsentinel-api/internal/handler/assignment"
	campaignHandler "github.com/phishsentinel/phishsentinel-api/internal/handler/campaign"
	cronHandler "github.com/phishsentinel/phishsentinel-api/internal/handler/cron"
	healthHandler "github.com/phishsentinel/phishsentinel-api/internal/handler/health"
	profileHandler "github.com/phishsentinel/phishsentinel-api/internal/handler/sendingprofile"
	trackingHandler "github.com/phishsentinel/phishsentinel-api/internal/handler/tracking"
	"github.com/phishsentinel/phishsentinel-api/internal/middleware"
	"github.com/phishsentinel/phishsentinel-api/internal/repository/postgres"
	"github.com/phishsentinel/phishsentinel-api/internal/router"
	assignmentService "github.com/phishsentinel/phishsentinel-api/internal/service/assignment"
	audienceService "github.com/phishsentinel/phishsentinel-api/internal/service/audience"
	campaignService "github.com/phishsentinel/phishsentinel-api/internal/service/campaign"
	"github.com/phishsentinel/phishsentinel-api/internal/service/dispatch"
	profileService "github.com/phishsentinel/phishsentinel-api/internal/service/sendingprofile"
	"github.com/phishsentinel/phishsentinel-api/internal/service/template"
	trackingService "github.com/phishsentinel/phishsentinel-api/internal/service/tracking"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/messaging/redis"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
	"github.com/phishsentinel/phishsentinel-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	encryptor, err := security.NewAESEncryptor([]byte(cfg.Encryption.Key))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	appMetrics := metrics.New("phishsentinel")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	campaignRepo := postgres.NewCampaignRepository(baseRepo)
	audienceRepo := postgres.NewAudienceRepository(baseRepo)
	emailLogRepo := postgres.NewEmailLogRepository(baseRepo)
	trackEventRepo := postgres.NewTrackEventRepository(baseRepo)
	profileRepo := postgres.NewSendingProfileRepository(baseRepo)
	templateRepo := postgres.NewEmailTemplateRepository(baseRepo)
	domainRepo := postgres.NewDomainRepository(baseRepo)
	landingPageRepo := postgres.NewLandingPageRepository(baseRepo)
	assignmentRepo := postgres.NewAssignmentRepository(baseRepo)
	assignmentLogRepo := postgres.NewAssignmentLogRepository(baseRepo)

	// Outbound clients
	geoClient := geoip.NewClient(geoip.Config{
		BaseURL:  cfg.GeoIP.BaseURL,
		APIKey:   cfg.GeoIP.APIKey,
		Timeout:  cfg.GeoIP.Timeout,
		CacheTTL: cfg.GeoIP.CacheTTL,
	})
	gophishClient := gophish.NewClient(gophish.Config{
		BaseURL: cfg.Gophish.BaseURL,
		APIKey:  cfg.Gophish.APIKey,
	})
	sender := email.NewSender(encryptor, cfg.Dispatch.SendTimeout)
	renderer := template.NewRenderer(cfg.Tracking.TrackerBaseURL, cfg.Tracking.ClickURL)

	// Services
	resolver := audienceService.NewResolver(audienceRepo, templateRepo, domainRepo, appLogger)
	campaignSvc := campaignService.NewService(
		campaignRepo, emailLogRepo, trackEventRepo, profileRepo, templateRepo,
		resolver, gophishClient, appLogger, appMetrics,
	)
	assignmentSvc := assignmentService.NewService(
		assignmentRepo, assignmentLogRepo, trackEventRepo, profileRepo,
		resolver, sender, assignmentService.Config{
			BatchSize:  cfg.Dispatch.BatchSize,
			ClaimStale: cfg.Dispatch.ClaimStale,
		}, appLogger, appMetrics,
	)
	trackingSvc := trackingService.NewService(
		emailLogRepo, trackEventRepo, campaignRepo, landingPageRepo,
		geoClient, broker, cfg.Tracking.ReportJSURL, appLogger, appMetrics,
	)
	profileSvc := profileService.NewService(profileRepo, encryptor)

	dispatcher := dispatch.NewWorker(
		emailLogRepo, profileRepo, trackEventRepo, renderer, sender,
		dispatch.WorkerConfig{
			BatchSize:    cfg.Dispatch.BatchSize,
			PollInterval: cfg.Dispatch.Interval,
			ClaimStale:   cfg.Dispatch.ClaimStale,
		}, appLogger, appMetrics,
	)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	healthH := healthHandler.NewHandler(db)
	trackingH := trackingHandler.NewHandler(trackingSvc, appLogger)
	cronH := cronHandler.NewHandler(dispatcher, campaignSvc, assignmentSvc, cfg.Cron, appLogger)
	campaignH := campaignHandler.NewHandler(campaignSvc)
	assignmentH := assignmentHandler.NewHandler(assignmentSvc)
	profileH := profileHandler.NewHandler(profileSvc)

	r := router.NewRouter(
		authMiddleware,
		healthH,
		trackingH,
		cronH,
		campaignH,
		assignmentH,
		profileH,
		router.Config{
			RateLimitRPS:   100,
			RateLimitBurst: 200,
			CORSConfig:     middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
