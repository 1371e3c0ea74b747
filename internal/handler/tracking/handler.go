// Package tracking exposes the public engagement surfaces: the open
// pixel, the submitted-event endpoint and hosted landing pages.
package tracking

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	trackingService "github.com/phishsentinel/phishsentinel-api/internal/service/tracking"
	"github.com/phishsentinel/phishsentinel-api/pkg/httputil"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
)

// pixelPNG is a transparent 1x1 image returned on every open request.
var pixelPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAAAXNSR0IArs4c6QAAAA1JREFUGFdj+P+f4T8AB/0C/olRY/QAAAAASUVORK5CYII=")

type Handler struct {
	service *trackingService.Service
	logger  *logger.Logger
}

func NewHandler(service *trackingService.Service, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/track-events/open", h.TrackOpen)
	r.POST("/track-events", h.CreateEvent)
	r.GET("/pages/:id", h.GetLandingPage)
}

type createEventRequest struct {
	SecretKey     string          `json:"secret_key" binding:"required,uuid"`
	Type          string          `json:"type" binding:"required,oneof=click captured report"`
	SubmittedData json.RawMessage `json:"submitted_data"`
}

// TrackOpen records an open and serves the pixel. The pixel is returned
// even for unknown or malformed secrets.
func (h *Handler) TrackOpen(c *gin.Context) {
	if secret, err := uuid.Parse(c.Query("secret_key")); err == nil {
		meta := h.requestMeta(c)
		if err := h.service.RecordOpen(c.Request.Context(), secret, meta); err != nil {
			h.logger.Error(err, "Failed to record open event")
		}
	}
	c.Data(http.StatusOK, "image/png", pixelPNG)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: err.Error(), Error: true})
		return
	}

	secret, err := uuid.Parse(req.SecretKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid secret key", Error: true})
		return
	}

	err = h.service.RecordSubmitted(c.Request.Context(), secret,
		model.EventType(req.Type), string(req.SubmittedData), h.requestMeta(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "event recorded")
}

func (h *Handler) GetLandingPage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{Message: "invalid page id", Error: true})
		return
	}

	view, err := h.service.LandingPage(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, view)
}

func (h *Handler) requestMeta(c *gin.Context) trackingService.RequestMeta {
	headers, _ := json.Marshal(c.Request.Header)
	return trackingService.RequestMeta{
		UserAgent:     c.Request.UserAgent(),
		IP:            c.ClientIP(),
		RequestHeader: string(headers),
	}
}
