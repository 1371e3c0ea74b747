package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phishsentinel/phishsentinel-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORSConfig     middleware.CORSConfig
}

// Router mounts the public surface (tracking, hosted pages, cron) apart
// from the operator surface, which sits behind bearer auth.
type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	healthH   Handler
	trackingH Handler
	cronH     Handler
	campaignH Handler
	assignH   Handler
	profileH  Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	trackingH Handler,
	cronH Handler,
	campaignH Handler,
	assignH Handler,
	profileH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidations()

	engine := gin.New()

	r := &Router{
		engine:    engine,
		auth:      auth,
		healthH:   healthH,
		trackingH: trackingH,
		cronH:     cronH,
		campaignH: campaignH,
		assignH:   assignH,
		profileH:  profileH,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	if config.RateLimitRPS > 0 {
		rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/v1")

	r.healthH.RegisterRoutes(api)
	api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		prometheus.DefaultGatherer, promhttp.HandlerOpts{},
	)))

	// Recipient-facing routes stay unauthenticated: pixel opens, link
	// clicks and hosted pages carry only the per-recipient secret.
	r.trackingH.RegisterRoutes(api)

	// Scheduler routes authenticate with their own security keys.
	r.cronH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	{
		r.campaignH.RegisterRoutes(protected)
		r.assignH.RegisterRoutes(protected)
		r.profileH.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
