package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/phishsentinel/phishsentinel-api/internal/config"
	"github.com/phishsentinel/phishsentinel-api/internal/email"
	"github.com/phishsentinel/phishsentinel-api/internal/repository/postgres"
	"github.com/phishsentinel/phishsentinel-api/internal/service/dispatch"
	"github.com/phishsentinel/phishsentinel-api/internal/service/template"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
	"github.com/phishsentinel/phishsentinel-api/pkg/metrics"
	"github.com/phishsentinel/phishsentinel-api/pkg/security"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}

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

	encryptor, err := security.NewAESEncryptor([]byte(cfg.Encryption.Key))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	baseRepo := postgres.NewBaseRepository(db)
	emailLogRepo := postgres.NewEmailLogRepository(baseRepo)
	trackEventRepo := postgres.NewTrackEventRepository(baseRepo)
	profileRepo := postgres.NewSendingProfileRepository(baseRepo)

	renderer := template.NewRenderer(cfg.Tracking.TrackerBaseURL, cfg.Tracking.ClickURL)
	sender := email.NewSender(encryptor, cfg.Dispatch.SendTimeout)

	worker := dispatch.NewWorker(
		emailLogRepo, profileRepo, trackEventRepo, renderer, sender,
		dispatch.WorkerConfig{
			BatchSize:    cfg.Dispatch.BatchSize,
			PollInterval: cfg.Dispatch.Interval,
			ClaimStale:   cfg.Dispatch.ClaimStale,
		}, appLogger, metrics.New("phishsentinel_worker"),
	)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker...")
	cancel()
}
