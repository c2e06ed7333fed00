package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sara-smart-go/internal/config"
	"sara-smart-go/internal/middleware"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/repository"
	"sara-smart-go/internal/service"
	"sara-smart-go/pkg/hash"
	"sara-smart-go/pkg/llm"
	"sara-smart-go/pkg/token"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChatService struct {
	mu       sync.Mutex
	requests []model.ChatRequest
	result   model.ChatResult
	ended    map[string]model.Outcome
	endErr   error
}

func (f *fakeChatService) ProcessMessage(_ context.Context, req model.ChatRequest) model.ChatResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	res := f.result
	res.SessionID = req.Email
	return res
}

func (f *fakeChatService) EndSession(_ context.Context, sessionID string, outcome model.Outcome) (*model.SessionMetrics, error) {
	if f.endErr != nil {
		return nil, f.endErr
	}
	if _, ok := f.ended[sessionID]; !ok {
		return nil, nil
	}
	f.ended[sessionID] = outcome
	return &model.SessionMetrics{Outcome: outcome, MessageCount: 2}, nil
}

type fakeSEOService struct {
	report *model.SEOReport
	err    error
}

func (f *fakeSEOService) Analyze(_ context.Context, rawURL string) (*model.SEOReport, error) {
	if _, err := service.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return f.report, f.err
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func newChatRouter(chat *fakeChatService) *gin.Engine {
	r := gin.New()
	h := NewChatHandler(chat)
	r.Any("/api/agente", h.Chat)
	r.POST("/api/agente/session/end", h.EndSession)
	r.GET("/api/agente/ws", h.Handle)
	return r
}

func sampleResult() model.ChatResult {
	return model.ChatResult{
		Response:         "Oi Ana!",
		LeadScore:        2,
		NextAction:       model.ActionQualify,
		Methodology:      model.MethodologyBANT,
		Stage:            model.StageQualification,
		ModelUsed:        "templates",
		Sentiment:        "positive",
		SuggestedActions: []string{"Ver preços"},
		ActiveAgent:      "konrath",
	}
}

func TestChatEndpoint(t *testing.T) {
	chat := &fakeChatService{result: sampleResult()}
	r := newChatRouter(chat)

	w := doJSON(t, r, http.MethodPost, "/api/agente", map[string]any{
		"nome": "Ana", "email": "ana@x.com", "mensagem": "quanto custa?", "tipoServico": "landing",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Oi Ana!", body["resposta"])
	assert.Equal(t, "qualification", body["etapa"])
	assert.Equal(t, float64(2), body["leadScore"])
	assert.Equal(t, "qualificar", body["proximaAcao"])
	assert.Equal(t, "konrath", body["agenteAtivo"])
	assert.Equal(t, "bant", body["metodologia"])
	assert.Equal(t, "ana@x.com", body["sessionId"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotContains(t, body, "fallback")
	data := body["data"].(map[string]any)
	assert.Equal(t, "positive", data["sentiment"])
	assert.Equal(t, []any{"Ver preços"}, data["suggested_actions"])

	require.Len(t, chat.requests, 1)
	assert.Equal(t, "landing", chat.requests[0].ServiceType)
}

func TestChatEndpointFallbackFlag(t *testing.T) {
	res := service.IntelligentFallback("oi", "Ana")
	chat := &fakeChatService{result: res}
	w := doJSON(t, newChatRouter(chat), http.MethodPost, "/api/agente",
		map[string]string{"nome": "Ana", "email": "ana@x.com", "mensagem": "oi"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["fallback"])
	assert.Equal(t, "sara_fallback", body["agenteAtivo"])
	assert.Equal(t, "descobrir_necessidade", body["proximaAcao"])
}

func TestChatEndpointRejectsBadRequests(t *testing.T) {
	chat := &fakeChatService{result: sampleResult()}
	r := newChatRouter(chat)

	w := doJSON(t, r, http.MethodGet, "/api/agente", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Método não permitido", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/agente", map[string]string{"nome": "Ana", "mensagem": "oi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Dados obrigatórios ausentes", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/agente", map[string]string{"nome": "Ana", "email": "ana", "mensagem": "oi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email inválido", decode(t, w)["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/agente", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, chat.requests)
}

func TestEndSessionEndpoint(t *testing.T) {
	chat := &fakeChatService{ended: map[string]model.Outcome{"s1": ""}}
	r := newChatRouter(chat)

	w := doJSON(t, r, http.MethodPost, "/api/agente/session/end", map[string]string{"sessionId": "s1", "outcome": "converted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.OutcomeConverted, chat.ended["s1"])

	w = doJSON(t, r, http.MethodPost, "/api/agente/session/end", map[string]string{"sessionId": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/agente/session/end", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	chat.endErr = errors.New("kafka down")
	w = doJSON(t, r, http.MethodPost, "/api/agente/session/end", map[string]string{"sessionId": "s1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebSocketChat(t *testing.T) {
	chat := &fakeChatService{result: sampleResult()}
	srv := httptest.NewServer(newChatRouter(chat))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/agente/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"nome": "Ana", "email": "ana@x.com", "mensagem": "oi"}))
	var resp AgentResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Oi Ana!", resp.Response)
	assert.Equal(t, "konrath", resp.ActiveAgent)

	require.NoError(t, conn.WriteJSON(map[string]string{"nome": "Ana", "email": "errado", "mensagem": "oi"}))
	var bad map[string]any
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, false, bad["success"])
	assert.Equal(t, "Email inválido", bad["error"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "Dados obrigatórios ausentes", bad["error"])
}

func TestSEOEndpoint(t *testing.T) {
	report := &model.SEOReport{
		Success: true, URL: "https://x.com", Score: 85, Analysis: "ok", Provider: "gemini",
		Snapshot:    &model.SiteSnapshot{Title: "X", Images: []model.Image{{Src: "a"}}},
		ArchivedURL: "https://minio/x.json", GeneratedAt: time.Now(),
	}
	fake := &fakeSEOService{report: report}
	r := gin.New()
	r.Any("/api/seo-analyzer", NewSEOHandler(fake).Analyze)

	w := doJSON(t, r, http.MethodPost, "/api/seo-analyzer", map[string]string{"url": "https://x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(85), body["score"])
	assert.Equal(t, "https://minio/x.json", body["reportUrl"])
	tech := body["technicalData"].(map[string]any)
	assert.Equal(t, float64(1), tech["imagesCount"])

	w = doJSON(t, r, http.MethodGet, "/api/seo-analyzer", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/seo-analyzer", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL obrigatória", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/seo-analyzer", map[string]string{"url": "exemplo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL inválida", decode(t, w)["error"])

	fake.report = &model.SEOReport{Success: false, URL: "https://x.com", Error: "HTTP 503", Analysis: "fallback"}
	w = doJSON(t, r, http.MethodPost, "/api/seo-analyzer", map[string]string{"url": "https://x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "HTTP 503", body["error"])
	assert.NotContains(t, body, "score")

	fake.report, fake.err = nil, errors.New("boom")
	w = doJSON(t, r, http.MethodPost, "/api/seo-analyzer", map[string]string{"url": "https://x.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func newAnalytics(t *testing.T) service.AnalyticsService {
	t.Helper()
	records := repository.NewMemorySessionRecordRepository(10)
	stats := repository.NewMemoryStatsRepository()
	return service.NewAnalyticsService(service.NewSessionArchiver(records, nil, stats), records, stats, service.AnalyticsOptions{})
}

func TestMetricsEndpoint(t *testing.T) {
	analytics := newAnalytics(t)
	analytics.StartSession("s1", model.SessionMeta{})
	analytics.TrackInteraction("s1", service.Turn{UserMessage: "oi", Response: "olá", LeadScore: 3, Methodology: model.MethodologySPIN})
	_, err := analytics.EndSession(context.Background(), "s1", model.OutcomeConverted)
	require.NoError(t, err)

	r := gin.New()
	r.Any("/api/metrics", NewMetricsHandler(analytics).Get)

	w := doJSON(t, r, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"dashboard", "report", "stats", "roi"}, body["availableTypes"])
	assert.Equal(t, float64(1), body["data"].(map[string]any)["totalConversations"])

	w = doJSON(t, r, http.MethodGet, "/api/metrics?type=stats", nil)
	body = decode(t, w)
	assert.NotContains(t, body, "availableTypes")
	data := body["data"].(map[string]any)
	assert.Equal(t, "3.00", data["avgLeadScore"])
	assert.Equal(t, "100.0%", data["conversionRate"])

	w = doJSON(t, r, http.MethodGet, "/api/metrics?type=roi", nil)
	data = decode(t, w)["data"].(map[string]any)
	assert.Contains(t, data, "roi")
	assert.Contains(t, data, "performance")

	for _, typ := range []string{"dashboard", "report"} {
		w = doJSON(t, r, http.MethodGet, "/api/metrics?type="+typ, nil)
		assert.Equal(t, http.StatusOK, w.Code, typ)
	}

	w = doJSON(t, r, http.MethodPost, "/api/metrics", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type adminRouter struct {
	engine *gin.Engine
	jwt    *token.JWTManager
	convs  repository.ConversationRepository
	leads  repository.LeadRepository
}

func newAdminRouter(t *testing.T) *adminRouter {
	t.Helper()
	pw, err := hash.HashPassword("s3nha")
	require.NoError(t, err)
	a := &adminRouter{
		jwt:   token.NewJWTManager("secret", 1),
		convs: repository.NewMemoryConversationRepository(20),
		leads: repository.NewMemoryLeadRepository(),
	}
	svc := service.NewAdminService(config.AdminConfig{Username: "ronald", PasswordHash: pw}, a.jwt,
		a.leads, a.convs, repository.NewMemorySessionRecordRepository(10), nil)

	r := gin.New()
	r.POST("/api/admin/login", NewAuthHandler(svc).Login)
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(a.jwt), middleware.AdminAuthMiddleware())
	{
		admin.GET("/leads", NewAdminHandler(svc).ListLeads)
		admin.GET("/sessions", NewAdminHandler(svc).RecentSessions)
		admin.GET("/sessions/search", NewAdminHandler(svc).SearchSessions)
		admin.GET("/conversation/:sessionId", NewConversationHandler(svc).GetConversation)
		admin.GET("/conversations", NewConversationHandler(svc).GetAllConversations)
	}
	a.engine = r
	return a
}

func (a *adminRouter) login(t *testing.T) string {
	t.Helper()
	w := doJSON(t, a.engine, http.MethodPost, "/api/admin/login", map[string]string{"username": "ronald", "password": "s3nha"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	return data["accessToken"].(string)
}

func TestAdminLoginEndpoint(t *testing.T) {
	a := newAdminRouter(t)
	assert.NotEmpty(t, a.login(t))

	w := doJSON(t, a.engine, http.MethodPost, "/api/admin/login", map[string]string{"username": "ronald", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, a.engine, http.MethodPost, "/api/admin/login", map[string]string{"username": "ronald"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	a := newAdminRouter(t)
	w := doJSON(t, a.engine, http.MethodGet, "/api/admin/leads", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/leads", nil, "Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := a.jwt.GenerateToken("viewer", "VIEWER")
	require.NoError(t, err)
	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/leads", nil, "Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	a := newAdminRouter(t)
	ctx := context.Background()
	bearer := "Bearer " + a.login(t)

	lead := model.Lead{SessionID: "s1", Name: "Ana", LeadScore: 3}
	require.NoError(t, a.leads.Upsert(ctx, &lead))
	require.NoError(t, a.convs.AppendMessages(ctx, "s1", model.ChatMessage{Role: model.RoleUser, Content: "oi", Timestamp: time.Now()}))

	w := doJSON(t, a.engine, http.MethodGet, "/api/admin/leads?minScore=2", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["totalElements"])

	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/conversation/s1", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/conversation/missing", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/conversations?start_date=2000-01-01", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)
	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/conversations?end_date=ontem", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/sessions/search?q=loja", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/sessions/search", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, a.engine, http.MethodGet, "/api/admin/sessions", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusOK, w.Code)
}

type staticModels struct{}

func (staticModels) Stats() llm.Stats { return llm.Stats{TotalModels: 1, PrimaryModel: "openai"} }

func TestHealthEndpoint(t *testing.T) {
	r := gin.New()
	r.GET("/api/health", NewHealthHandler(service.NewKnowledgeService(t.TempDir()), staticModels{}).Get)
	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "openai", body["models"].(map[string]any)["primaryModel"])
}
