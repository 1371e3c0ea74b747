package sendingprofile

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	profileService "github.com/phishsentinel/phishsentinel-api/internal/service/sendingprofile"
	"github.com/phishsentinel/phishsentinel-api/pkg/httputil"
)

type Handler struct {
	service *profileService.Service
}

func NewHandler(service *profileService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	profiles := r.Group("/sending-profiles")
	{
		profiles.POST("", h.Create)
		profiles.GET("", h.List)
		profiles.GET("/:id", h.Get)
		profiles.PUT("/:id", h.Update)
		profiles.DELETE("/:id", h.Delete)
	}
}

type profileRequest struct {
	CompanyID   string `json:"company_id" binding:"omitempty,uuid"`
	Label       string `json:"label" binding:"required"`
	Description string `json:"description"`
	Host        string `json:"host" binding:"required"`
	Port        int    `json:"port" binding:"required,min=1,max=65535"`
	UserName    string `json:"user_name"`
	Password    string `json:"password"`
	Encryption  string `json:"encryption" binding:"required,oneof=none starttls ssl/tls"`
}

func (r *profileRequest) toModel() *model.SendingProfile {
	p := &model.SendingProfile{
		Label:       r.Label,
		Description: r.Description,
		Host:        r.Host,
		Port:        r.Port,
		UserName:    r.UserName,
		Password:    r.Password,
		Encryption:  model.SMTPEncryption(r.Encryption),
		Status:      "active",
	}
	if r.CompanyID != "" {
		id := uuid.MustParse(r.CompanyID)
		p.CompanyID = &id
	}
	return p
}

func (h *Handler) Create(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	profile := req.toModel()
	if err := h.service.Create(c.Request.Context(), profile); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, profile)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid profile id", Error: true})
		return
	}

	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, profile)
}

func (h *Handler) List(c *gin.Context) {
	companyID, err := uuid.Parse(c.Query("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid company id", Error: true})
		return
	}

	profiles, err := h.service.List(c.Request.Context(), companyID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, profiles)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid profile id", Error: true})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	profile := req.toModel()
	profile.ID = id
	if err := h.service.Update(c.Request.Context(), profile); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, profile)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid profile id", Error: true})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "sending profile deleted")
}
