package handlers

import (
	"net/http"
	"strconv"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/service"
	"github.com/gin-gonic/gin"
)

type ConfigHandler struct {
	provider *service.ConfigProvider
}

func NewConfigHandler(provider *service.ConfigProvider) *ConfigHandler {
	return &ConfigHandler{provider: provider}
}

type activateConfigRequest struct {
	ShortLeadTimeFactor     float64 `json:"short_lead_time_factor" binding:"required"`
	MediumLeadTimeFactor    float64 `json:"medium_lead_time_factor" binding:"required"`
	LongLeadTimeFactor      float64 `json:"long_lead_time_factor" binding:"required"`
	ShortLeadTimeThreshold  int     `json:"short_lead_time_threshold"`
	MediumLeadTimeThreshold int     `json:"medium_lead_time_threshold"`
	ReplenishmentTimeFactor float64 `json:"replenishment_time_factor"`
	GreenZoneFactor         float64 `json:"green_zone_factor"`
	CreatedBy               string  `json:"created_by" binding:"required"`
}

func (r activateConfigRequest) toDomain() *domain.BufferFactorConfig {
	return &domain.BufferFactorConfig{
		ShortLeadTimeFactor:     r.ShortLeadTimeFactor,
		MediumLeadTimeFactor:    r.MediumLeadTimeFactor,
		LongLeadTimeFactor:      r.LongLeadTimeFactor,
		ShortLeadTimeThreshold:  r.ShortLeadTimeThreshold,
		MediumLeadTimeThreshold: r.MediumLeadTimeThreshold,
		ReplenishmentTimeFactor: r.ReplenishmentTimeFactor,
		GreenZoneFactor:         r.GreenZoneFactor,
		CreatedBy:               r.CreatedBy,
	}
}

func (h *ConfigHandler) GetActive(c *gin.Context) {
	cfg, err := h.provider.Active(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch active config", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	configs, err := h.provider.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "failed to fetch config history", err)
		return
	}
	if configs == nil {
		configs = make([]domain.BufferFactorConfig, 0)
	}
	c.JSON(http.StatusOK, configs)
}

func (h *ConfigHandler) Activate(c *gin.Context) {
	var req activateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	cfg := req.toDomain()
	if err := h.provider.Activate(c.Request.Context(), cfg); err != nil {
		respondError(c, "failed to activate config", err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}
