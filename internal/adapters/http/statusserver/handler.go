package statusserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akosarev/hostflux/internal/ports"
)

// Handler serves the agent's operational endpoints.
type Handler struct {
	src ports.StatsSource
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Status reports scheduler progress: last tick, tick/skip counts, points
// enqueued.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.src.Stats())
}
