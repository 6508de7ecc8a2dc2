package http

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alphogen/src/core/job"
	"alphogen/src/log"
)

const webhookSecretHeader = "X-Webhook-Secret"

// Webhook receives provider-initiated status callbacks. Recognized but
// unactionable payloads are acknowledged with 200 so the provider does
// not retry indefinitely; 400/401 are reserved for malformed or
// unauthenticated callbacks.
func (h *Handler) Webhook(c *gin.Context) {
	if c.Param("name") != "runpod" {
		sendError(c, http.StatusNotFound, "not_found", "unknown webhook")
		return
	}

	// An empty configured secret accepts everything; relaxed mode for
	// local use, not a production default.
	if h.webhookSecret != "" {
		secret := c.GetHeader(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
			sendError(c, http.StatusUnauthorized, "unauthenticated", "invalid webhook secret")
			return
		}
	}

	var cb job.ProviderCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		sendError(c, http.StatusBadRequest, "validation", "malformed payload")
		return
	}
	if cb.ID == "" {
		sendError(c, http.StatusBadRequest, "validation", "missing provider job id")
		return
	}

	deliveryID := h.deliveries.Generate().String()
	log.Info("webhook callback received",
		"delivery_id", deliveryID, "provider_job_id", cb.ID, "provider_status", cb.Status)

	j, outcome, err := h.reconciler.Apply(c.Request.Context(), cb)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			sendError(c, http.StatusNotFound, "not_found", "no job for provider job id")
			return
		}
		log.Error(err, "webhook reconciliation failed", "delivery_id", deliveryID, "provider_job_id", cb.ID)
		sendServiceError(c, err)
		return
	}

	switch outcome {
	case job.OutcomeIgnored:
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "status not handled"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "job": j})
	}
}
