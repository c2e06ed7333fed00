// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SEOHandler 处理网站 SEO 分析请求。
type SEOHandler struct {
	seoService service.SEOService
}

// NewSEOHandler 创建一个新的 SEOHandler。
func NewSEOHandler(seoService service.SEOService) *SEOHandler {
	return &SEOHandler{seoService: seoService}
}

type seoRequest struct {
	URL string `json:"url"`
}

// Analyze 处理 POST /api/seo-analyzer。抓取失败时仍返回 200 和兜底报告。
func (h *SEOHandler) Analyze(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		methodNotAllowed(c, "Use POST para analisar um site")
		return
	}

	var req seoRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "URL obrigatória",
			"message": "Forneça a URL do site para análise",
		})
		return
	}

	log.Infof("Iniciando análise SEO de: %s", req.URL)
	report, err := h.seoService.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "URL inválida",
				"message": "Forneça uma URL válida (ex: https://exemplo.com)",
			})
			return
		}
		log.Errorf("Analyze: 分析失败, url: %s, error: %v", req.URL, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Erro interno do servidor",
			"message": "Não foi possível analisar o site no momento. Tente novamente em alguns minutos.",
		})
		return
	}

	timestamp := report.GeneratedAt.UTC().Format(time.RFC3339Nano)
	if !report.Success {
		c.JSON(http.StatusOK, gin.H{
			"success":   false,
			"url":       report.URL,
			"error":     report.Error,
			"analysis":  report.Analysis,
			"timestamp": timestamp,
		})
		return
	}

	body := gin.H{
		"success":   true,
		"url":       report.URL,
		"score":     report.Score,
		"analysis":  report.Analysis,
		"timestamp": timestamp,
	}
	if report.Snapshot != nil {
		body["technicalData"] = report.Snapshot.Summary()
	}
	if report.Provider != "" {
		body["provider"] = report.Provider
	}
	if report.ArchivedURL != "" {
		body["reportUrl"] = report.ArchivedURL
	}
	c.JSON(http.StatusOK, body)
}
