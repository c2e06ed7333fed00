// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"fmt"
	"net/http"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/log"
	"time"

	"github.com/gin-gonic/gin"
)

var metricTypes = []string{"dashboard", "report", "stats", "roi"}

// MetricsHandler 提供匿名化的 Sara 运营指标。
type MetricsHandler struct {
	analytics service.AnalyticsService
}

// NewMetricsHandler 创建一个新的 MetricsHandler。
func NewMetricsHandler(analytics service.AnalyticsService) *MetricsHandler {
	return &MetricsHandler{analytics: analytics}
}

// Get 处理 GET /api/metrics?type=dashboard|report|stats|roi。
func (h *MetricsHandler) Get(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		methodNotAllowed(c, "Use GET para acessar métricas")
		return
	}

	ctx := c.Request.Context()
	typ := c.Query("type")
	var (
		data any
		err  error
	)
	switch typ {
	case "dashboard":
		data, err = h.analytics.Dashboard(ctx)
	case "report":
		data, err = h.analytics.Report(ctx)
	case "stats":
		data, err = h.stats(c)
	case "roi":
		var d service.Dashboard
		if d, err = h.analytics.Dashboard(ctx); err == nil {
			data = gin.H{"roi": d.ROI, "performance": d.Performance, "overview": d.Overview}
		}
	default:
		var d service.Dashboard
		if d, err = h.analytics.Dashboard(ctx); err == nil {
			data = d.Overview
		}
	}
	if err != nil {
		log.Errorf("Get metrics: 读取指标失败, type: %s, error: %v", typ, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Erro ao buscar métricas"})
		return
	}

	body := gin.H{
		"success":     true,
		"data":        data,
		"generatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if !isMetricType(typ) {
		body["availableTypes"] = metricTypes
	}
	c.JSON(http.StatusOK, body)
}

func (h *MetricsHandler) stats(c *gin.Context) (gin.H, error) {
	stats, err := h.analytics.Stats(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return gin.H{
		"totalSessions":  stats.TotalSessions,
		"totalMessages":  stats.TotalMessages,
		"avgLeadScore":   fmt.Sprintf("%.2f", stats.AvgLeadScore),
		"conversionRate": fmt.Sprintf("%.1f%%", stats.ConversionRate),
		"leadsByQuality": stats.LeadsByQuality,
		"outcomes":       stats.Outcomes,
		"lastUpdated":    stats.LastUpdated,
	}, nil
}

func isMetricType(typ string) bool {
	for _, t := range metricTypes {
		if t == typ {
			return true
		}
	}
	return false
}
