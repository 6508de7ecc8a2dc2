package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"alphogen/src/auth"
	"alphogen/src/core/job"
)

const principalKey = "principal"

// Handler wires the edge routes to the orchestrator, reconciler, asset
// gateway, and credential validator.
type Handler struct {
	jobs          *job.Service
	reconciler    *job.Reconciler
	assets        job.AssetStore
	validator     *auth.Validator
	webhookSecret string
	deliveries    *snowflake.Node
}

func NewHandler(jobs *job.Service, reconciler *job.Reconciler, assets job.AssetStore, validator *auth.Validator, webhookSecret string) (*Handler, error) {
	// Delivery ids correlate webhook log lines across retries
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &Handler{
		jobs:          jobs,
		reconciler:    reconciler,
		assets:        assets,
		validator:     validator,
		webhookSecret: webhookSecret,
		deliveries:    node,
	}, nil
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/jobs", h.Authenticate, h.CreateJob)
	r.GET("/jobs", h.Authenticate, h.ListJobs)
	r.GET("/jobs/:id", h.Authenticate, h.GetJob)
	r.GET("/me", h.Authenticate, h.Me)

	// Wildcard instead of a named param so keys may contain slashes
	r.PUT("/assets/*key", h.Authenticate, h.PutAsset)
	r.GET("/assets/*key", h.GetAsset)

	r.POST("/webhooks/:name", h.Webhook)
}

// Authenticate resolves the Authorization header to a principal and
// stores it in the request context. Every request re-resolves its token.
func (h *Handler) Authenticate(c *gin.Context) {
	p, err := h.validator.Validate(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		sendError(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid credential")
		c.Abort()
		return
	}
	c.Set(principalKey, p)
	c.Next()
}

func principalFrom(c *gin.Context) auth.Principal {
	return c.MustGet(principalKey).(auth.Principal)
}

func sendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"ok":      false,
		"error":   code,
		"message": message,
	})
}

// sendServiceError maps core errors onto the HTTP taxonomy. No raw
// collaborator error crosses the boundary un-coded.
func sendServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, job.ErrNotFound):
		sendError(c, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, job.ErrEmptyPrompt):
		sendError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, job.ErrProvider):
		sendError(c, http.StatusInternalServerError, "provider_error", "provider call failed")
	case errors.Is(err, job.ErrStore):
		sendError(c, http.StatusInternalServerError, "store_error", "persistence operation failed")
	default:
		sendError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
