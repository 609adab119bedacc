package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/service"
	"github.com/gin-gonic/gin"
)

type ComplianceHandler struct {
	service *service.ComplianceService
}

func NewComplianceHandler(service *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: service}
}

func (h *ComplianceHandler) Report(c *gin.Context) {
	var input domain.ComplianceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	filter := domain.ItemFilter{LocationID: strings.TrimSpace(c.Query("location_id"))}
	report, err := h.service.Report(c.Request.Context(), filter, input)
	if err != nil {
		respondError(c, "failed to build compliance report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
