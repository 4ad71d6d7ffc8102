package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List timezones
// @Tags         timezones
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "timezones"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/timezones [get]
// @Security     BearerAuth
func (h *Handler) listTimeZones(c *gin.Context) {
	zones, err := h.services.TimeZones.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load timezones", "timezones_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timezones": zones})
}
