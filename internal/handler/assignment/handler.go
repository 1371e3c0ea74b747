package assignment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	assignmentService "github.com/phishsentinel/phishsentinel-api/internal/service/assignment"
	"github.com/phishsentinel/phishsentinel-api/pkg/httputil"
)

type Handler struct {
	service *assignmentService.Service
}

func NewHandler(service *assignmentService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	assignments := r.Group("/assignments")
	{
		assignments.POST("", h.Create)
		assignments.GET("", h.List)
		assignments.GET("/:id", h.Get)
		assignments.POST("/:id/actions", h.Modify)
		assignments.POST("/:id/shoot", h.Shoot)
	}
}

type createAssignmentRequest struct {
	CompanyID        string `json:"company_id" binding:"required,uuid"`
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	StartDate        string `json:"start_date" binding:"required"`
	EndDate          string `json:"end_date" binding:"required"`
	Days             string `json:"days" binding:"omitempty,weekdays"`
	SendingProfileID string `json:"sending_profile_id" binding:"required,uuid"`
}

type modifyAssignmentRequest struct {
	Action string `json:"action" binding:"required,oneof=start stop resume"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid start date", Error: true})
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid end date", Error: true})
		return
	}

	assignment := &model.Assignment{
		CompanyID:        uuid.MustParse(req.CompanyID),
		Title:            req.Title,
		Description:      req.Description,
		StartDate:        startDate,
		EndDate:          endDate,
		Days:             req.Days,
		SendingProfileID: uuid.MustParse(req.SendingProfileID),
	}

	if err := h.service.Create(c.Request.Context(), assignment); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, assignment)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid assignment id", Error: true})
		return
	}

	assignment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, assignment)
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

	assignments, err := h.service.List(c.Request.Context(), companyID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, assignments)
}

func (h *Handler) Modify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid assignment id", Error: true})
		return
	}

	var req modifyAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	if err := h.service.Modify(c.Request.Context(), id, req.Action); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "assignment "+req.Action)
}

func (h *Handler) Shoot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid assignment id", Error: true})
		return
	}

	count, err := h.service.Shoot(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, gin.H{"materialized": count})
}
