// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"sara-smart-go/internal/repository"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/log"
	"time"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理后台查看对话的 API 请求。
type ConversationHandler struct {
	adminService service.AdminService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(adminService service.AdminService) *ConversationHandler {
	return &ConversationHandler{adminService: adminService}
}

// GetConversation 处理 GET /api/admin/conversation/:sessionId。
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	sessionID := c.Param("sessionId")
	view, err := h.adminService.GetConversation(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "会话不存在", "data": nil})
			return
		}
		log.Errorf("GetConversation: 读取会话失败, session: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to retrieve conversation history", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": view})
}

// GetAllConversations 处理 GET /api/admin/conversations?start_date=&end_date=。
func (h *ConversationHandler) GetAllConversations(c *gin.Context) {
	var startTime, endTime *time.Time
	timeLayout := "2006-01-02"
	if startDateStr := c.Query("start_date"); startDateStr != "" {
		t, err := time.Parse(timeLayout, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid start_date format, use YYYY-MM-DD", "data": nil})
			return
		}
		startTime = &t
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		t, err := time.Parse(timeLayout, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid end_date format, use YYYY-MM-DD", "data": nil})
			return
		}
		// 包含当天
		t = t.Add(24*time.Hour - time.Second)
		endTime = &t
	}

	lines, err := h.adminService.GetAllConversations(c.Request.Context(), startTime, endTime)
	if err != nil {
		log.Error("GetAllConversations: Failed to list conversations", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取对话列表失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": lines})
}
