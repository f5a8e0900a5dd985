package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/scribe/server/internal/logger"
)

const probeTimeout = 2 * time.Second

// Handler godoc
// @Summary Health check
// @Description Reports server health and the status of optional backing services
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func Handler(version string, checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := Response{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		}

		if len(checks) > 0 {
			resp.Dependencies = make(map[string]string, len(checks))
		}

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
			err := check.Probe(ctx)
			cancel()

			if err != nil {
				logger.Warn("health probe failed", "dependency", check.Name, "error", err)
				resp.Status = "degraded"
				resp.Dependencies[check.Name] = "unavailable"

				continue
			}

			resp.Dependencies[check.Name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, resp)
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
