// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"sara-smart-go/internal/middleware"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/log"
	"sara-smart-go/pkg/token"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListLeads 处理 GET /api/admin/leads?page=&size=&minScore=。
func (h *AdminHandler) ListLeads(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	minScore, _ := strconv.Atoi(c.DefaultQuery("minScore", "0"))

	leads, err := h.adminService.ListLeads(c.Request.Context(), page, size, minScore)
	if err != nil {
		log.Error("ListLeads: Failed to list leads", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取线索列表失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": leads})
}

// SearchSessions 处理 GET /api/admin/sessions/search?q=&size=。
func (h *AdminHandler) SearchSessions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "查询关键词不能为空", "data": nil})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.adminService.SearchSessions(c.Request.Context(), query, size)
	if err != nil {
		if errors.Is(err, service.ErrSearchDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "会话检索未启用", "data": nil})
			return
		}
		log.Errorf("SearchSessions: 检索失败, query: %s, error: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "会话检索失败", "data": nil})
		return
	}

	claims := c.MustGet(middleware.ClaimsKey).(*token.AdminClaims)
	log.Infof("Admin user '%s' searched sessions: %q, hits: %d", claims.Username, query, len(hits))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": hits})
}

// RecentSessions 处理 GET /api/admin/sessions?limit=。
func (h *AdminHandler) RecentSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.adminService.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		log.Error("RecentSessions: Failed to list sessions", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取会话列表失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": records})
}
