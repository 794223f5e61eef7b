package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck handles the health check endpoint.
// It returns a 200 OK status to indicate that the service is up and running.
func (h *Handler) HealthCheck(c *gin.Context) {
	h.logger.Debug("Health check request",
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()))
	c.String(http.StatusOK, "OK")
}
