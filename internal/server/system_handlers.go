package server

import (
	"net/http"

	"github.com/vibex365/luna-heart-guide-sub005/internal/api"
	"github.com/vibex365/luna-heart-guide-sub005/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// @Summary      Notification queue depth
// @Tags         system
// @Produce      json
// @Success      200 {object} gin.H
// @Router       /admin/notifications/queue [get]
func NotificationQueue(notifyService *notify.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"queued": notifyService.QueueLength(c.Request.Context())})
	}
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
