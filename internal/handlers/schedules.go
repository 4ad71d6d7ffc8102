package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"power_schedule/internal/matrix"
	"power_schedule/internal/render"
	"power_schedule/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errInvalidID       = "invalid schedule id"
	errInvalidAt       = "invalid 'at' time; use RFC3339"
	errInvalidSpecial  = "invalid 'include_special'; use true or false"
	errListSchedules   = "failed to load schedules"
	errSaveSchedule    = "failed to save schedule"
	errRenderSchedule  = "failed to render schedule"
	errInvalidBodyPref = "invalid body: "
)

// ScheduleRequest is the payload of create and update.
type ScheduleRequest struct {
	// Schedule name, at most 50 characters, unique.
	Name string `json:"name" example:"Office"`
	// Timezone id from /api/v1/timezones.
	TimeZone int `json:"timezone" example:"1"`
	// Serialized 7x48 boolean matrix, Monday first. Empty means all off.
	Matrix string `json:"matrix" example:"[[false,true]]"`
	// Special schedules are hidden from listings by default.
	IsSpecial bool `json:"is_special" example:"false"`
}

func (r ScheduleRequest) input() service.ScheduleInput {
	return service.ScheduleInput{
		Name:      r.Name,
		TimeZone:  r.TimeZone,
		Matrix:    r.Matrix,
		IsSpecial: r.IsSpecial,
	}
}

// logAndJSONError logs err under logKey and answers {"error": userMsg}.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// scheduleError maps service errors to HTTP answers. Unknown errors are
// logged and reported as 500 with fallback.
func (h *Handler) scheduleError(c *gin.Context, err error, fallback, logKey string, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrUnknownTimeZone),
		errors.Is(err, matrix.ErrFormat),
		errors.Is(err, matrix.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, fallback, logKey, err, kv...)
	}
}

func scheduleID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID})
		return 0, false
	}
	return id, true
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List schedules
// @Description  Ordered by name. Special schedules are omitted unless include_special=true.
// @Tags         schedules
// @Produce      json
// @Param        include_special  query  bool  false  "Include special schedules"
// @Success      200  {object}  map[string]interface{}  "schedules"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	includeSpecial := false
	if qs := c.Query("include_special"); qs != "" {
		v, err := strconv.ParseBool(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidSpecial})
			return
		}
		includeSpecial = v
	}

	list, err := h.services.Schedules.List(c.Request.Context(), actorFrom(c), includeSpecial)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSchedules, "schedules_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": list})
}

// @Summary      Get schedule
// @Tags         schedules
// @Produce      json
// @Param        id   path      int  true  "Schedule id"
// @Success      200  {object}  models.Schedule
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [get]
// @Security     BearerAuth
func (h *Handler) getSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	s, err := h.services.Schedules.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.scheduleError(c, err, errListSchedules, "schedule_get_failed", "id", id)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Create schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        payload  body      ScheduleRequest  true  "Schedule"
// @Success      201      {object}  models.Schedule
// @Failure      400      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	actor := actorFrom(c)
	s, err := h.services.Schedules.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		h.scheduleError(c, err, errSaveSchedule, "schedule_create_failed", "user", actor.Username)
		return
	}
	if h.log != nil {
		h.log.Infow("schedule_created", "id", s.ID, "name", s.Name, "user", actor.Username)
	}
	c.JSON(http.StatusCreated, s)
}

// @Summary      Update schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id       path      int              true  "Schedule id"
// @Param        payload  body      ScheduleRequest  true  "Schedule"
// @Success      200      {object}  models.Schedule
// @Failure      400      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /api/v1/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	actor := actorFrom(c)
	s, err := h.services.Schedules.Update(c.Request.Context(), actor, id, req.input())
	if err != nil {
		h.scheduleError(c, err, errSaveSchedule, "schedule_update_failed", "id", id, "user", actor.Username)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Delete schedule
// @Tags         schedules
// @Param        id   path  int  true  "Schedule id"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	actor := actorFrom(c)
	if err := h.services.Schedules.Delete(c.Request.Context(), actor, id); err != nil {
		h.scheduleError(c, err, errSaveSchedule, "schedule_delete_failed", "id", id, "user", actor.Username)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Power state at a time
// @Description  Evaluates the schedule in its own timezone. Defaults to now.
// @Tags         schedules
// @Produce      json
// @Param        id   path      int     true   "Schedule id"
// @Param        at   query     string  false  "RFC3339 instant"  example(2025-03-03T08:15:00Z)
// @Success      200  {object}  service.PowerState
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id}/power [get]
// @Security     BearerAuth
func (h *Handler) powerState(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	at := time.Now()
	if qs := c.Query("at"); qs != "" {
		t, err := time.Parse(time.RFC3339, qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidAt})
			return
		}
		at = t
	}
	st, err := h.services.Power.StateAt(c.Request.Context(), id, at)
	if err != nil {
		h.scheduleError(c, err, errListSchedules, "schedule_power_failed", "id", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Schedule as PNG
// @Tags         schedules
// @Produce      png
// @Param        id   path  int  true  "Schedule id"
// @Success      200  {file}  binary
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id}/matrix.png [get]
// @Security     BearerAuth
func (h *Handler) matrixPNG(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	s, err := h.services.Schedules.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.scheduleError(c, err, errListSchedules, "schedule_get_failed", "id", id)
		return
	}
	m, err := matrix.Deserialize(s.Matrix)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRenderSchedule, "schedule_matrix_corrupt", err, "id", id)
		return
	}
	img, err := render.PNG(m, s.Name)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errRenderSchedule, "schedule_render_failed", err, "id", id)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
