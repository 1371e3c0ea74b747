// Package cron exposes the scheduler-triggered endpoints. Each route is
// guarded by a shared security key carried as a query parameter.
package cron

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phishsentinel/phishsentinel-api/internal/config"
	assignmentService "github.com/phishsentinel/phishsentinel-api/internal/service/assignment"
	campaignService "github.com/phishsentinel/phishsentinel-api/internal/service/campaign"
	"github.com/phishsentinel/phishsentinel-api/internal/service/dispatch"
	"github.com/phishsentinel/phishsentinel-api/pkg/httputil"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
)

type Handler struct {
	dispatcher  *dispatch.Worker
	campaigns   *campaignService.Service
	assignments *assignmentService.Service
	keys        config.CronConfig
	logger      *logger.Logger
}

func NewHandler(
	dispatcher *dispatch.Worker,
	campaigns *campaignService.Service,
	assignments *assignmentService.Service,
	keys config.CronConfig,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		campaigns:   campaigns,
		assignments: assignments,
		keys:        keys,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cron := r.Group("/cron")
	{
		cron.GET("/email-send", h.guard(h.keys.EmailSendKey), h.EmailSend)
		cron.GET("/shoot-campaigns", h.guard(h.keys.CampaignKey), h.ShootCampaigns)
		cron.GET("/shoot-assignments", h.guard(h.keys.AssignmentKey), h.ShootAssignments)
		cron.GET("/assignment-emails", h.guard(h.keys.AssignmentKey), h.AssignmentEmails)
	}
}

// guard rejects requests whose security_key does not match the configured
// key for the route.
func (h *Handler) guard(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.Query("security_key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
				Message: "please enter a valid key",
				Error:   true,
			})
			return
		}
		c.Next()
	}
}

func (h *Handler) EmailSend(c *gin.Context) {
	stats, err := h.dispatcher.RunOnce(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, stats)
}

func (h *Handler) ShootCampaigns(c *gin.Context) {
	count, err := h.campaigns.ShootDue(c.Request.Context(), time.Now())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, fmt.Sprintf("user count is %d", count))
}

func (h *Handler) ShootAssignments(c *gin.Context) {
	count, err := h.assignments.ShootDue(c.Request.Context(), time.Now())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, fmt.Sprintf("user count is %d", count))
}

func (h *Handler) AssignmentEmails(c *gin.Context) {
	stats, err := h.assignments.SendDue(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, stats)
}
