package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alphogen/src/core/job"
)

// PutAsset stores raw bytes under a key. Admin capability only; this is
// the machine-to-machine provisioning path. Non-admin callers get a 404
// so the route does not advertise itself.
func (h *Handler) PutAsset(c *gin.Context) {
	if !principalFrom(c).IsAdmin() {
		sendError(c, http.StatusNotFound, "not_found", "not found")
		return
	}

	key := assetKey(c)
	if key == "" {
		sendError(c, http.StatusBadRequest, "validation", "asset key is required")
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		sendError(c, http.StatusBadRequest, "validation", "failed to read request body")
		return
	}

	if err := h.assets.Put(c.Request.Context(), key, data, c.ContentType()); err != nil {
		sendError(c, http.StatusInternalServerError, "store_error", "failed to store asset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "key": key})
}

// GetAsset streams stored bytes with the inferred content type
func (h *Handler) GetAsset(c *gin.Context) {
	key := assetKey(c)
	if key == "" {
		sendError(c, http.StatusBadRequest, "validation", "asset key is required")
		return
	}

	data, contentType, err := h.assets.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, job.ErrAssetNotFound) {
			sendError(c, http.StatusNotFound, "not_found", "asset not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "store_error", "failed to read asset")
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

func assetKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
