package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

const (
	defaultFetchLimit = 50
	maxFetchLimit     = 500
)

// Last handles GET /api/repos/files/last: the most recent successful fetch.
func (h *Handler) Last(c *gin.Context) {
	res, err := h.svc.Last(c.Request.Context())
	h.writeCached(c, res, err)
}

// LastFor handles GET /api/repos/:owner/:repo/last.
func (h *Handler) LastFor(c *gin.Context) {
	id := repofiles.RepositoryIdentifier{Owner: c.Param("owner"), Repo: c.Param("repo")}
	res, err := h.svc.LastFor(c.Request.Context(), id)
	h.writeCached(c, res, err)
}

func (h *Handler) writeCached(c *gin.Context, res *repofiles.Result, err error) {
	if err != nil {
		h.log.Error("failed to read cached result", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to read cached result", "error": err.Error()})
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no fetch result cached"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// RecentFetches handles GET /api/fetches?limit=N: the fetch log, newest first.
func (h *Handler) RecentFetches(c *gin.Context) {
	limit := defaultFetchLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxFetchLimit {
			limit = parsed
		}
	}

	events, err := h.svc.RecentFetches(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to list fetches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list fetches", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
