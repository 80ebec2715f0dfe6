package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/models"
	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// EvidenceHandler wires HTTP endpoints to the evidence service.
type EvidenceHandler struct {
	service *service.EvidenceService
}

// NewEvidenceHandler creates a new handler.
func NewEvidenceHandler(svc *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{service: svc}
}

// ListByIncident godoc
// @Summary List evidence for an incident
// @Tags Evidence
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 200 {array} models.Evidence
// @Router /incidents/{id}/evidence [get]
func (h *EvidenceHandler) ListByIncident(c *gin.Context) {
	incidentID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident id"))
		return
	}

	evidence, err := h.service.ListByIncident(c.Request.Context(), incidentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, evidence)
}

// Create godoc
// @Summary Attach evidence to an incident
// @Description Accepts a multipart file upload or a JSON body with a file reference
// @Tags Evidence
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 201 {object} models.Evidence
// @Failure 400 {object} map[string]string
// @Router /incidents/{id}/evidence [post]
func (h *EvidenceHandler) Create(c *gin.Context) {
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

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		h.upload(c, claims, incidentID)
		return
	}

	var req service.CreateEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evidence payload"))
		return
	}

	ev, err := h.service.Create(c.Request.Context(), claims, incidentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, ev)
}

func (h *EvidenceHandler) upload(c *gin.Context, claims *models.JWTClaims, incidentID int64) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	description := c.PostForm("description")
	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	ev, err := h.service.Upload(c.Request.Context(), claims, incidentID, fileHeader.Filename, fileHeader.Size, file, description, tags)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, ev)
}

// Get godoc
// @Summary Get an evidence row
// @Tags Evidence
// @Produce json
// @Security BearerAuth
// @Param eid path int true "Evidence ID"
// @Success 200 {object} models.Evidence
// @Failure 404 {object} map[string]string
// @Router /evidence/{eid} [get]
func (h *EvidenceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "eid")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid evidence id"))
		return
	}

	ev, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, ev)
}

// Download godoc
// @Summary Download the stored evidence file
// @Tags Evidence
// @Produce application/octet-stream
// @Security BearerAuth
// @Param eid path int true "Evidence ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /evidence/{eid}/download [get]
func (h *EvidenceHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "eid")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid evidence id"))
		return
	}

	ev, file, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(ev.FilePath)))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// Update godoc
// @Summary Update evidence
// @Tags Evidence
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eid path int true "Evidence ID"
// @Param payload body models.EvidenceUpdateRequest true "Update payload"
// @Success 200 {object} models.Evidence
// @Failure 403 {object} map[string]string
// @Router /evidence/{eid} [put]
func (h *EvidenceHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "eid")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid evidence id"))
		return
	}

	var req models.EvidenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evidence payload"))
		return
	}

	ev, err := h.service.Update(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, ev)
}

// Delete godoc
// @Summary Delete evidence (admin)
// @Tags Evidence
// @Security BearerAuth
// @Param eid path int true "Evidence ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string
// @Router /evidence/{eid} [delete]
func (h *EvidenceHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "eid")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid evidence id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
