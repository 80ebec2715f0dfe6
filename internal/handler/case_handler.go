package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// CaseHandler wires HTTP endpoints to the assignment workflow.
type CaseHandler struct {
	service *service.CaseService
	reports *service.ReportService
}

// NewCaseHandler creates a new handler.
func NewCaseHandler(svc *service.CaseService, reports *service.ReportService) *CaseHandler {
	return &CaseHandler{service: svc, reports: reports}
}

// Assign godoc
// @Summary Assign an incident to an investigator
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Param userId path int true "Investigator user ID"
// @Param payload body service.AssignCaseRequest false "Assignment options"
// @Success 201 {object} models.IncidentAssignment
// @Failure 400 {object} map[string]string
// @Router /cases/{id}/assign/{userId} [post]
func (h *CaseHandler) Assign(c *gin.Context) {
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
	investigatorID, ok := pathID(c, "userId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid investigator id"))
		return
	}

	var req service.AssignCaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
			return
		}
	}

	assignment, err := h.service.Assign(c.Request.Context(), claims, incidentID, investigatorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// Reassign godoc
// @Summary Reassign a case to a different investigator
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Param userId path int true "Investigator user ID"
// @Param payload body service.AssignCaseRequest false "Assignment options"
// @Success 200 {object} models.IncidentAssignment
// @Failure 400 {object} map[string]string
// @Router /cases/{id}/reassign/{userId} [post]
func (h *CaseHandler) Reassign(c *gin.Context) {
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
	investigatorID, ok := pathID(c, "userId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid investigator id"))
		return
	}

	var req service.AssignCaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
			return
		}
	}

	assignment, err := h.service.Reassign(c.Request.Context(), claims, incidentID, investigatorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment)
}

// Update godoc
// @Summary Update a case
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Param payload body service.UpdateCaseRequest true "Case update payload"
// @Success 200 {object} service.CaseDetail
// @Router /cases/{id} [put]
func (h *CaseHandler) Update(c *gin.Context) {
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

	var req service.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid case payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), claims, incidentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail)
}

// Detail godoc
// @Summary Case detail with assignment
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 200 {object} service.CaseDetail
// @Router /cases/{id} [get]
func (h *CaseHandler) Detail(c *gin.Context) {
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

	detail, err := h.service.Detail(c.Request.Context(), claims, incidentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail)
}

// Assigned godoc
// @Summary List the caller's assigned cases
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param investigator_id query int false "Target investigator (admin only)"
// @Success 200 {array} models.AssignedCase
// @Router /cases/assigned [get]
func (h *CaseHandler) Assigned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var investigatorID int64
	if raw := c.Query("investigator_id"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &investigatorID); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid investigator id"))
			return
		}
	}

	cases, err := h.service.AssignedCases(c.Request.Context(), claims, investigatorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cases)
}

// Unassigned godoc
// @Summary List incidents awaiting assignment
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UnassignedCase
// @Router /cases/unassigned [get]
func (h *CaseHandler) Unassigned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cases, err := h.service.UnassignedCases(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cases)
}

// Report godoc
// @Summary Export a case report PDF
// @Tags Cases
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Incident ID"
// @Success 200 {file} binary
// @Router /cases/{id}/report [get]
func (h *CaseHandler) Report(c *gin.Context) {
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

	pdfBytes, filename, err := h.reports.CaseReport(c.Request.Context(), claims, incidentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// Export godoc
// @Summary Export the assigned case roster
// @Tags Cases
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param investigator_id query int false "Target investigator (admin only)"
// @Param format query string false "Export format: csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /cases/assigned/export [get]
func (h *CaseHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var investigatorID int64
	if raw := c.Query("investigator_id"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &investigatorID); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid investigator id"))
			return
		}
	}

	var (
		body        []byte
		filename    string
		contentType string
		err         error
	)
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		body, filename, err = h.reports.CaseRosterCSV(c.Request.Context(), claims, investigatorID)
		contentType = "text/csv"
	case "pdf":
		body, filename, err = h.reports.CaseRosterPDF(c.Request.Context(), claims, investigatorID)
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown export format"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}
