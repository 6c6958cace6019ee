package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

// Handler translates HTTP requests into calls on the repofiles.Service.
type Handler struct {
	svc *repofiles.Service
	log *slog.Logger
}

// RegisterRoutes mounts the repofetch API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, svc *repofiles.Service, log *slog.Logger) {
	h := &Handler{svc: svc, log: log}

	r.GET("/health", h.Health)

	// Repository contents
	r.POST("/api/repos/files", h.Files)
	r.POST("/api/repos/bundle", h.Bundle)

	// Diagnostics
	r.GET("/api/repos/files/last", h.Last)
	r.GET("/api/repos/:owner/:repo/last", h.LastFor)
	r.GET("/api/fetches", h.RecentFetches)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
