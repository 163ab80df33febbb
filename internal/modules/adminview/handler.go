package adminview

import (
	"net/http"

	"tourmarket/internal/pkg/response"
	"tourmarket/internal/realtime"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	hub     *realtime.Hub
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, hub *realtime.Hub, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, hub: hub, loggerf: loggerf}
}

func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/reservations", h.List)
	admin.GET("/stats", h.Stats)
	admin.GET("/feed", h.Feed)
}

// List godoc
// @Summary      Staff reservation list from the realtime mirror
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Param        status query string false "Filter by status"
// @Success      200 {array} Row
// @Router       /admin/reservations [get]
func (h *Handler) List(c *gin.Context) {
	rows := h.service.List(c.Query("status"))
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Stats())
}

// Feed upgrades to a websocket streaming reservation change events to the
// admin session.
func (h *Handler) Feed(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		h.loggerf("level=warn msg=admin feed upgrade failed err=%v", err)
	}
}
