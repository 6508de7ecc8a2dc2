package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alphogen/src/auth"
	"alphogen/src/core/job"
	"alphogen/src/log"
)

const signedURLTTL = time.Hour

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"ts": time.Now().UTC().Format(time.RFC3339),
	})
}

type createJobRequest struct {
	Prompt string `json:"prompt"`
}

// CreateJob accepts a submission and dispatches it to the provider. A
// 202 with provider "noop" means the provider was unavailable and the
// job stayed queued; submission itself never fails on that.
func (h *Handler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "validation", "malformed payload")
		return
	}

	p := principalFrom(c)
	userID := ""
	if user, ok := p.(auth.UserPrincipal); ok {
		userID = user.ID
	}

	result, err := h.jobs.Create(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	if !result.Dispatched {
		c.JSON(http.StatusAccepted, gin.H{
			"ok":       true,
			"status":   result.Job.Status,
			"provider": result.Provider,
			"job":      result.Job,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":              true,
		"status":          result.Job.Status,
		"provider":        result.Provider,
		"provider_job_id": result.ProviderJobID,
		"result":          result.Raw,
		"job":             result.Job,
	})
}

// GetJob returns one job. Rows owned by someone else read as not found
// so existence is never confirmed to unauthorized callers.
func (h *Handler) GetJob(c *gin.Context) {
	p := principalFrom(c)
	userID := ""
	if user, ok := p.(auth.UserPrincipal); ok {
		userID = user.ID
	}

	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"), userID, p.IsAdmin())
	if err != nil {
		sendServiceError(c, err)
		return
	}

	resp := gin.H{"ok": true, "job": j}
	if j.Status == job.StatusDone && j.ResultKey != nil {
		url, err := h.assets.SignedURL(c.Request.Context(), *j.ResultKey, signedURLTTL)
		if err != nil {
			log.Error(err, "failed to sign result url", "job_id", j.ID, "result_key", *j.ResultKey)
		} else {
			resp["result_url"] = url
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListJobs returns the caller's jobs, newest first
func (h *Handler) ListJobs(c *gin.Context) {
	p := principalFrom(c)
	userID := ""
	if user, ok := p.(auth.UserPrincipal); ok {
		userID = user.ID
	}

	jobs, err := h.jobs.List(c.Request.Context(), userID, p.IsAdmin())
	if err != nil {
		sendServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "jobs": jobs})
}

// Me reports the resolved user identity. The admin token is a machine
// capability with no user behind it, so it cannot be introspected here.
func (h *Handler) Me(c *gin.Context) {
	user, ok := principalFrom(c).(auth.UserPrincipal)
	if !ok {
		sendError(c, http.StatusUnauthorized, "unauthenticated", "user credential required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}
