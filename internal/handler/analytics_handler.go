package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// AnalyticsHandler wires HTTP endpoints to the analytics service.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Summary godoc
// @Summary Role-scoped dashboard rollup
// @Description Admins get platform totals and trends, investigators their caseload, victims their own incidents
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} interface{}
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary)
}
