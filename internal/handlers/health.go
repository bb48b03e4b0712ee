package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/purchase-optimizer/internal/optimizer"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string   `json:"status"`
	Solvers []string `json:"solvers"`
}

// HealthCheck reports the service as healthy while at least one solver is
// registered.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func HealthCheck(opt optimizer.Optimizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:  "ok",
			Solvers: opt.Solvers(),
		}
		if len(response.Solvers) == 0 {
			response.Status = "no solvers registered"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}
