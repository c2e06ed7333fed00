package handler

import (
	"net/http"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/llm"

	"github.com/gin-gonic/gin"
)

// ModelStats 由 llm.Manager 实现。
type ModelStats interface {
	Stats() llm.Stats
}

// HealthHandler 报告知识库与模型供应方的加载情况。
type HealthHandler struct {
	kb     service.KnowledgeService
	models ModelStats
}

func NewHealthHandler(kb service.KnowledgeService, models ModelStats) *HealthHandler {
	return &HealthHandler{kb: kb, models: models}
}

// Get 处理 GET /api/health。
func (h *HealthHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"knowledge": h.kb.Stats(),
		"models":    h.models.Stats(),
	})
}
