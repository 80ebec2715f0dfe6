package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// IncidentHandler wires HTTP endpoints to the incident service.
type IncidentHandler struct {
	service *service.IncidentService
}

// NewIncidentHandler creates a new handler.
func NewIncidentHandler(svc *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{service: svc}
}

// Create godoc
// @Summary Report an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} models.IncidentDetail
// @Failure 400 {object} map[string]string
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid incident payload"))
		return
	}

	incident, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, incident)
}

// List godoc
// @Summary List incidents visible to the caller
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.IncidentDetail
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	incidents, err := h.service.List(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, incidents)
}

// Get godoc
// @Summary Get an incident
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 200 {object} models.IncidentDetail
// @Failure 404 {object} map[string]string
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident id"))
		return
	}

	incident, err := h.service.Get(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, incident)
}

// Update godoc
// @Summary Update an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Param payload body service.UpdateIncidentRequest true "Update payload"
// @Success 200 {object} models.IncidentDetail
// @Router /incidents/{id} [put]
func (h *IncidentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident id"))
		return
	}

	var req service.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	incident, err := h.service.Update(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, incident)
}

// Delete godoc
// @Summary Delete an incident
// @Tags Incidents
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 204 "No Content"
// @Router /incidents/{id} [delete]
func (h *IncidentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CrimeTypes godoc
// @Summary List crime types
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CrimeType
// @Router /incidents/crime-types [get]
func (h *IncidentHandler) CrimeTypes(c *gin.Context) {
	types, err := h.service.CrimeTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types)
}

// Solutions godoc
// @Summary List prevention guidance for a crime type
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Crime type ID"
// @Success 200 {array} models.Solution
// @Router /incidents/crime-types/{id}/solutions [get]
func (h *IncidentHandler) Solutions(c *gin.Context) {
	id, ok := pathID(c, "ctid")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid crime type id"))
		return
	}

	solutions, err := h.service.Solutions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, solutions)
}
