package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/models"
	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// AwarenessHandler wires HTTP endpoints to the awareness service.
type AwarenessHandler struct {
	service *service.AwarenessService
}

// NewAwarenessHandler creates a new handler.
func NewAwarenessHandler(svc *service.AwarenessService) *AwarenessHandler {
	return &AwarenessHandler{service: svc}
}

// List godoc
// @Summary List awareness articles
// @Tags Awareness
// @Produce json
// @Success 200 {array} models.AwarenessResource
// @Router /awareness/resources [get]
func (h *AwarenessHandler) List(c *gin.Context) {
	resources, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources)
}

// Get godoc
// @Summary Get an awareness article
// @Tags Awareness
// @Produce json
// @Param id path int true "Resource ID"
// @Success 200 {object} models.AwarenessResource
// @Failure 404 {object} map[string]string
// @Router /awareness/resources/{id} [get]
func (h *AwarenessHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resource id"))
		return
	}

	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Create godoc
// @Summary Author an awareness article
// @Tags Awareness
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.AwarenessResourceRequest true "Article payload"
// @Success 201 {object} models.AwarenessResource
// @Router /awareness/resources [post]
func (h *AwarenessHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AwarenessResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resource payload"))
		return
	}

	res, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Update godoc
// @Summary Update an awareness article
// @Tags Awareness
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Param payload body models.AwarenessResourceRequest true "Article payload"
// @Success 200 {object} models.AwarenessResource
// @Failure 403 {object} map[string]string
// @Router /awareness/resources/{id} [put]
func (h *AwarenessHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resource id"))
		return
	}

	var req models.AwarenessResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resource payload"))
		return
	}

	res, err := h.service.Update(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Delete godoc
// @Summary Delete an awareness article
// @Tags Awareness
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string
// @Router /awareness/resources/{id} [delete]
func (h *AwarenessHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resource id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Flairs godoc
// @Summary List article flairs
// @Tags Awareness
// @Produce json
// @Success 200 {array} models.Flair
// @Router /awareness/flairs [get]
func (h *AwarenessHandler) Flairs(c *gin.Context) {
	flairs, err := h.service.Flairs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, flairs)
}
