package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/pipeline"
	"github.com/andresuchdata/ddmrp/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	service *service.ReplenishmentService
}

func NewOrderHandler(service *service.ReplenishmentService) *OrderHandler {
	return &OrderHandler{service: service}
}

type editQuantityRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
}

type planAllRequest struct {
	LocationID string `json:"location_id"`
}

func (h *OrderHandler) Plan(c *gin.Context) {
	order, err := h.service.Plan(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		respondError(c, "failed to plan order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) PlanAll(c *gin.Context) {
	var req planAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	result, err := h.service.PlanAll(c.Request.Context(), domain.ItemFilter{LocationID: strings.TrimSpace(req.LocationID)})
	if err != nil {
		respondError(c, "failed to plan orders", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) List(c *gin.Context) {
	var status domain.OrderStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := domain.ParseOrderStatus(raw)
		if !ok {
			respondError(c, "invalid status", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, raw))
			return
		}
		status = parsed
	}

	orders, err := h.service.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, "failed to fetch orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to fetch order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) EditQuantity(c *gin.Context) {
	var req editQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.service.EditQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if err != nil {
		respondError(c, "failed to update order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Approve(c *gin.Context) {
	order, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to approve order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Reject(c *gin.Context) {
	order, err := h.service.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to reject order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "failed to fetch planning runs", err)
		return
	}
	if runs == nil {
		runs = make([]pipeline.RecomputeRun, 0)
	}
	c.JSON(http.StatusOK, runs)
}

func (h *OrderHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to fetch planning run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}
