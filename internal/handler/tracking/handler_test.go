package tracking

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(nil, logger.NewLogger(nil))
	h.RegisterRoutes(r.Group("/v1"))
	return r
}

func TestTrackOpenServesPixelWithoutSecret(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/track-events/open", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pixelPNG, w.Body.Bytes())
}

func TestTrackOpenServesPixelOnMalformedSecret(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/track-events/open?secret_key=not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pixelPNG, w.Body.Bytes())
}

func TestCreateEventRejectsUnknownType(t *testing.T) {
	r := setupRouter()

	body := `{"secret_key":"8a4bb0bb-2b07-4806-a281-c0473bfca6f6","type":"open"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/track-events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEventRejectsMissingSecret(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/track-events", strings.NewReader(`{"type":"click"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPixelIsValidPNG(t *testing.T) {
	require.NotEmpty(t, pixelPNG)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, pixelPNG[:4])
}
