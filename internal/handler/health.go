package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Criezzz/auctionBackend/internal/db"
	"github.com/Criezzz/auctionBackend/internal/fanout"
)

type HealthHandler struct {
	DB  *db.DB
	Bus *fanout.Bus
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "auction-backend"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if err := db.PingContext(c.Request.Context(), h.DB); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	out := gin.H{"status": "ready"}
	if h.Bus != nil {
		intake, dropped := h.Bus.Dropped()
		out["streams"] = gin.H{
			"subscriptions":  h.Bus.SubscriptionCount(),
			"dropped_intake": intake,
			"dropped_fanout": dropped,
		}
	}
	c.JSON(http.StatusOK, out)
}
