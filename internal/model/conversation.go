// Package model 包含了应用的数据模型定义。
package model

import "time"

// Role 是对话消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage 代表存储在 Redis 中的单条对话消息。
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatRequest 是一次对话轮次的输入，HTTP 与 WebSocket 共用。
type ChatRequest struct {
	Name        string        `json:"nome"`
	Email       string        `json:"email"`
	Message     string        `json:"mensagem"`
	ServiceType string        `json:"tipoServico,omitempty"`
	Phone       string        `json:"telefone,omitempty"`
	SessionID   string        `json:"sessionId,omitempty"`
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
}

// ChatResult 是一次对话轮次的完整输出。
type ChatResult struct {
	Response         string       `json:"response"`
	LeadScore        int          `json:"leadScore"`
	NextAction       NextAction   `json:"nextAction"`
	Methodology      Methodology  `json:"methodology"`
	Stage            Stage        `json:"conversationStage"`
	ExtractedData    LeadProfile  `json:"extractedData"`
	Intent           IntentResult `json:"intentAnalysis"`
	ModelUsed        string       `json:"modelUsed"`
	Cost             float64      `json:"cost"`
	Sentiment        string       `json:"sentiment"`
	SuggestedActions []string     `json:"suggested_actions"`
	ActiveAgent      string       `json:"activeAgent"`
	IsFallback       bool         `json:"isFallback"`
	SessionID        string       `json:"sessionId"`
}
