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
)

type BufferHandler struct {
	service *service.BufferService
	reports *service.ReportService
}

// NewBufferHandler creates the buffer handler. reports may be nil, in which
// case export requests are ignored.
func NewBufferHandler(service *service.BufferService, reports *service.ReportService) *BufferHandler {
	return &BufferHandler{service: service, reports: reports}
}

type recomputeRequest struct {
	LocationID string `json:"location_id"`
	Export     bool   `json:"export"`
}

type recomputeResponse struct {
	*pipeline.BatchResult
	ReportKey string `json:"report_key,omitempty"`
}

func parseItemFilter(c *gin.Context) (domain.ItemFilter, error) {
	filter := domain.ItemFilter{LocationID: strings.TrimSpace(c.Query("location_id"))}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		p, ok := domain.ParsePriority(raw)
		if !ok {
			return filter, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, raw)
		}
		filter.Priority = p
	}
	return filter, nil
}

func (h *BufferHandler) GetBuffer(c *gin.Context) {
	ev, err := h.service.Evaluate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to evaluate buffer", err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *BufferHandler) ListBuffers(c *gin.Context) {
	filter, err := parseItemFilter(c)
	if err != nil {
		respondError(c, "invalid filter", err)
		return
	}

	evaluations, err := h.service.EvaluateAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "failed to evaluate buffers", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": evaluations,
		"total": len(evaluations),
	})
}

func (h *BufferHandler) Recompute(c *gin.Context) {
	var req recomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	filter := domain.ItemFilter{LocationID: strings.TrimSpace(req.LocationID)}
	result, err := h.service.RecomputeAll(ctx, filter)
	if err != nil {
		respondError(c, "failed to recompute buffers", err)
		return
	}

	resp := recomputeResponse{BatchResult: result}
	if req.Export && h.reports != nil {
		resp.ReportKey = h.reports.ExportAfterRecompute(ctx, filter, result.RunID)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BufferHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.PrioritySummary(c.Request.Context(), strings.TrimSpace(c.Query("location_id")))
	if err != nil {
		respondError(c, "failed to fetch summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *BufferHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "failed to fetch runs", err)
		return
	}
	if runs == nil {
		runs = make([]pipeline.RecomputeRun, 0)
	}
	c.JSON(http.StatusOK, runs)
}

func (h *BufferHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to fetch run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *BufferHandler) ListReports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}
	reports, err := h.reports.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
