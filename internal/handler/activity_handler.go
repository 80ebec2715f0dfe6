package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// ActivityHandler exposes the audit trail.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List activity logs visible to the caller
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ActivityLog
// @Router /logs [get]
func (h *ActivityHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	logs, err := h.service.List(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

// Get godoc
// @Summary Get a single activity log entry
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Log ID"
// @Success 200 {object} models.ActivityLog
// @Failure 404 {object} map[string]string
// @Router /logs/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid log id"))
		return
	}

	entry, err := h.service.Get(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// ListByUser godoc
// @Summary List activity logs for a user
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} models.ActivityLog
// @Failure 403 {object} map[string]string
// @Router /logs/user/{id} [get]
func (h *ActivityHandler) ListByUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	logs, err := h.service.ListByUser(c.Request.Context(), claims, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

// ListByIncident godoc
// @Summary List activity logs for an incident
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 200 {array} models.ActivityLog
// @Failure 403 {object} map[string]string
// @Router /logs/incidents/{id} [get]
func (h *ActivityHandler) ListByIncident(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	incidentID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident id"))
		return
	}

	logs, err := h.service.ListByIncident(c.Request.Context(), claims, incidentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}
