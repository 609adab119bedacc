package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/ddmrp/internal/api/handlers"
	"github.com/andresuchdata/ddmrp/internal/api/middleware"
	"github.com/andresuchdata/ddmrp/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Config        *service.ConfigProvider
	Buffers       *service.BufferService
	Replenishment *service.ReplenishmentService
	Compliance    *service.ComplianceService
	Reports       *service.ReportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Buffers != nil {
			bufferHandler := handlers.NewBufferHandler(services.Buffers, services.Reports)
			bufferGroup := apiGroup.Group("/buffers")
			{
				bufferGroup.GET("", bufferHandler.ListBuffers)
				bufferGroup.GET("/summary", bufferHandler.GetSummary)
				bufferGroup.POST("/recompute", bufferHandler.Recompute)
				bufferGroup.GET("/runs", bufferHandler.ListRuns)
				bufferGroup.GET("/runs/:id", bufferHandler.GetRun)
				bufferGroup.GET("/reports", bufferHandler.ListReports)
				bufferGroup.GET("/:id", bufferHandler.GetBuffer)
			}
		}

		if services.Config != nil {
			configHandler := handlers.NewConfigHandler(services.Config)
			configGroup := apiGroup.Group("/config")
			{
				configGroup.GET("/active", configHandler.GetActive)
				configGroup.GET("/history", configHandler.History)
				configGroup.POST("", configHandler.Activate)
			}
		}

		if services.Replenishment != nil {
			orderHandler := handlers.NewOrderHandler(services.Replenishment)
			orderGroup := apiGroup.Group("/orders")
			{
				orderGroup.GET("", orderHandler.List)
				orderGroup.POST("/plan", orderHandler.PlanAll)
				orderGroup.GET("/runs", orderHandler.ListRuns)
				orderGroup.GET("/runs/:id", orderHandler.GetRun)
				orderGroup.POST("/plan/:itemId", orderHandler.Plan)
				orderGroup.GET("/:id", orderHandler.Get)
				orderGroup.PATCH("/:id", orderHandler.EditQuantity)
				orderGroup.POST("/:id/approve", orderHandler.Approve)
				orderGroup.POST("/:id/reject", orderHandler.Reject)
			}
		}

		if services.Compliance != nil {
			complianceHandler := handlers.NewComplianceHandler(services.Compliance)
			apiGroup.POST("/compliance/report", complianceHandler.Report)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
