// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源，跨域由 CORS 中间件统一控制
		},
	}
)

// 单条 WebSocket 消息的大小上限
const maxFrameBytes = 64 * 1024

// AgentResponse 是 /api/agente 与 WebSocket 共用的响应结构。
type AgentResponse struct {
	Success     bool              `json:"success"`
	Response    string            `json:"resposta"`
	Stage       model.Stage       `json:"etapa"`
	LeadScore   int               `json:"leadScore"`
	NextAction  model.NextAction  `json:"proximaAcao"`
	ActiveAgent string            `json:"agenteAtivo"`
	Methodology model.Methodology `json:"metodologia"`
	SessionID   string            `json:"sessionId"`
	Timestamp   string            `json:"timestamp"`
	Data        AgentResponseData `json:"data"`
	Fallback    bool              `json:"fallback,omitempty"`
}

// AgentResponseData 是响应中附带的结构化数据。
type AgentResponseData struct {
	Response         string             `json:"response"`
	Sentiment        string             `json:"sentiment"`
	SuggestedActions []string           `json:"suggested_actions"`
	ExtractedData    model.LeadProfile  `json:"extractedData"`
	Intent           model.IntentResult `json:"intentAnalysis"`
	ModelUsed        string             `json:"modelUsed"`
}

// NewAgentResponse 把一轮对话结果转换为接口响应。
func NewAgentResponse(res model.ChatResult, now time.Time) AgentResponse {
	return AgentResponse{
		Success:     true,
		Response:    res.Response,
		Stage:       res.Stage,
		LeadScore:   res.LeadScore,
		NextAction:  res.NextAction,
		ActiveAgent: res.ActiveAgent,
		Methodology: res.Methodology,
		SessionID:   res.SessionID,
		Timestamp:   now.UTC().Format(time.RFC3339Nano),
		Data: AgentResponseData{
			Response:         res.Response,
			Sentiment:        res.Sentiment,
			SuggestedActions: res.SuggestedActions,
			ExtractedData:    res.ExtractedData,
			Intent:           res.Intent,
			ModelUsed:        res.ModelUsed,
		},
		Fallback: res.IsFallback,
	}
}

// ChatHandler 负责 Sara 的 HTTP 与 WebSocket 对话入口。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 处理 POST /api/agente。
func (h *ChatHandler) Chat(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		methodNotAllowed(c, "Use POST para enviar dados do formulário")
		return
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Dados obrigatórios ausentes",
			"message": "Nome, email e mensagem são obrigatórios",
		})
		return
	}
	if err := service.ValidateChatRequest(req); err != nil {
		writeValidationError(c, err)
		return
	}

	log.Infow("Processando lead", "nome", req.Name, "email", req.Email, "tipoServico", req.ServiceType)
	res := h.chatService.ProcessMessage(c.Request.Context(), req)
	c.JSON(http.StatusOK, NewAgentResponse(res, time.Now()))
}

// EndSessionRequest 是结束会话的请求体。
type EndSessionRequest struct {
	SessionID string `json:"sessionId"`
	Outcome   string `json:"outcome"`
}

// EndSession 处理 POST /api/agente/session/end。
func (h *ChatHandler) EndSession(c *gin.Context) {
	var req EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Dados obrigatórios ausentes",
			"message": "sessionId é obrigatório",
		})
		return
	}

	metrics, err := h.chatService.EndSession(c.Request.Context(), strings.TrimSpace(req.SessionID), model.ParseOutcome(req.Outcome))
	if err != nil {
		log.Errorf("EndSession: 归档会话失败, session: %s, error: %v", req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Erro ao encerrar sessão"})
		return
	}
	if metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Sessão não encontrada"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": metrics})
}

// Handle 处理 GET /api/agente/ws。每个文本帧都是一个与 HTTP 接口相同的 JSON 请求。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	log.Infof("WebSocket 连接已建立, remote: %s", c.ClientIP())
	ctx := c.Request.Context()

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply any
		var req model.ChatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			reply = gin.H{"success": false, "error": "Dados obrigatórios ausentes", "message": "Nome, email e mensagem são obrigatórios"}
		} else if err := service.ValidateChatRequest(req); err != nil {
			reply = validationBody(err)
		} else {
			reply = NewAgentResponse(h.chatService.ProcessMessage(ctx, req), time.Now())
		}

		if err := conn.WriteJSON(reply); err != nil {
			log.Warnf("向 WebSocket 写入响应失败: %v", err)
			return
		}
	}
}

func methodNotAllowed(c *gin.Context, message string) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Método não permitido", "message": message})
}

func writeValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, validationBody(err))
}

func validationBody(err error) gin.H {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return gin.H{"success": false, "error": ve.Title, "message": ve.Message}
	}
	return gin.H{"success": false, "error": "Requisição inválida", "message": err.Error()}
}
