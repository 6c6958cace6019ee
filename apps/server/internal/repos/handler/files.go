package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

type fetchRequest struct {
	URL string `json:"url"`
}

// Files handles POST /api/repos/files: returns every file of the repository
// as a flat [{path, content}] list.
func (h *Handler) Files(c *gin.Context) {
	res, ok := h.fetch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Files)
}

// Bundle handles POST /api/repos/bundle: the same fetch rendered as a single
// text document.
func (h *Handler) Bundle(c *gin.Context) {
	res, ok := h.fetch(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(repofiles.Bundle(res.Files)))
}

// fetch binds the request, runs the fetch and writes the error response on
// failure.
func (h *Handler) fetch(c *gin.Context) (*repofiles.Result, bool) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "URL is required", "error": err.Error()})
		return nil, false
	}
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "URL is required"})
		return nil, false
	}

	res, err := h.svc.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to fetch repository files", "url", req.URL, "error", err)
		}
		c.JSON(status, gin.H{"message": message, "error": err.Error()})
		return nil, false
	}
	return res, true
}

// errorStatus maps a fetch error to an HTTP status and a human message.
func errorStatus(err error) (int, string) {
	var (
		invalid  repofiles.InvalidURLError
		upstream repofiles.UpstreamError
		fetchErr repofiles.FetchError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "Invalid repository URL"
	case errors.As(err, &upstream) && upstream.NotFound():
		return http.StatusNotFound, "Repository or path not found"
	case errors.As(err, &upstream) && upstream.RateLimited():
		return http.StatusTooManyRequests, "Repository host rate limit exceeded"
	case errors.As(err, &upstream), errors.As(err, &fetchErr):
		return http.StatusBadGateway, "Failed to fetch repository files"
	default:
		return http.StatusInternalServerError, "Failed to fetch repository files"
	}
}
