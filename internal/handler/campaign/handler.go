package campaign

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	campaignService "github.com/phishsentinel/phishsentinel-api/internal/service/campaign"
	"github.com/phishsentinel/phishsentinel-api/pkg/httputil"
)

type Handler struct {
	service *campaignService.Service
}

func NewHandler(service *campaignService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	campaigns := r.Group("/campaigns")
	{
		campaigns.POST("", h.Create)
		campaigns.GET("", h.List)
		campaigns.GET("/:id", h.Get)
		campaigns.PUT("/:id", h.Update)
		campaigns.DELETE("/:id", h.Delete)
		campaigns.POST("/:id/actions", h.Modify)
		campaigns.POST("/:id/shoot", h.Shoot)
		campaigns.POST("/:id/release", h.Release)
		campaigns.POST("/:id/launch", h.Launch)
		campaigns.GET("/:id/logs", h.Logs)
		campaigns.GET("/:id/events", h.Funnel)
	}
}

type createCampaignRequest struct {
	CompanyID        string `json:"company_id" binding:"required,uuid"`
	Title            string `json:"title" binding:"required"`
	Type             string `json:"type" binding:"required,oneof=phishing advance"`
	Language         string `json:"language"`
	Description      string `json:"description"`
	StartDate        string `json:"start_date" binding:"required"`
	EndDate          string `json:"end_date" binding:"required"`
	StartTime        int    `json:"start_time"`
	EndTime          int    `json:"end_time"`
	TimeZone         string `json:"time_zone"`
	Days             string `json:"days" binding:"omitempty,weekdays"`
	EmailTemplateID  string `json:"email_template_id" binding:"required,uuid"`
	SendingProfileID string `json:"sending_profile_id" binding:"required,uuid"`
	DomainID         string `json:"domain_id" binding:"required,uuid"`
	LandingPageID    string `json:"landing_page_id" binding:"required,uuid"`
	SuccessEventType string `json:"success_event_type" binding:"omitempty,oneof=click captured"`
}

type modifyCampaignRequest struct {
	Action string `json:"action" binding:"required,oneof=start stop resume restart reset"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	campaign, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	if err := h.service.Create(c.Request.Context(), campaign); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, campaign)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	campaign, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, campaign)
}

func (h *Handler) List(c *gin.Context) {
	companyID, err := uuid.Parse(c.Query("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid company id", Error: true})
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	campaigns, err := h.service.List(c.Request.Context(), companyID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, campaigns)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	campaign, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}
	campaign.ID = id

	if err := h.service.Update(c.Request.Context(), campaign); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, campaign)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "campaign deleted")
}

func (h *Handler) Modify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	var req modifyCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	if err := h.service.Modify(c.Request.Context(), id, campaignService.Action(req.Action)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "campaign "+req.Action)
}

func (h *Handler) Shoot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	count, err := h.service.Shoot(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, gin.H{"materialized": count})
}

func (h *Handler) Release(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	count, err := h.service.Release(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, gin.H{"released": count})
}

func (h *Handler) Launch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	result, err := h.service.Launch(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, result)
}

func (h *Handler) Logs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	logs, err := h.service.Logs(c.Request.Context(), id, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, logs)
}

func (h *Handler) Funnel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid campaign id", Error: true})
		return
	}

	report, err := h.service.Funnel(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, report)
}

func (r *createCampaignRequest) toModel() (*model.Campaign, error) {
	startDate, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return nil, err
	}

	return &model.Campaign{
		CompanyID:        uuid.MustParse(r.CompanyID),
		Title:            r.Title,
		Type:             model.CampaignType(r.Type),
		Language:         r.Language,
		Description:      r.Description,
		StartDate:        startDate,
		EndDate:          endDate,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		TimeZone:         r.TimeZone,
		Days:             r.Days,
		EmailTemplateID:  uuid.MustParse(r.EmailTemplateID),
		SendingProfileID: uuid.MustParse(r.SendingProfileID),
		DomainID:         uuid.MustParse(r.DomainID),
		LandingPageID:    uuid.MustParse(r.LandingPageID),
		SuccessEventType: model.SuccessEventType(r.SuccessEventType),
	}, nil
}
