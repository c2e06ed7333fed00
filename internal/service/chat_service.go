// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"sara-smart-go/internal/intent"
	"sara-smart-go/internal/lead"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/prompt"
	"sara-smart-go/internal/repository"
	"sara-smart-go/pkg/log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// AgentSara 是未命中专家代理时的默认代理名。
	AgentSara = "sara"
	// AgentFallback 标记兜底回复。
	AgentFallback = "sara_fallback"
	// ModelFallback 标记未经过任何模型或模板流程的回复。
	ModelFallback = "fallback"
)

// ChatService 处理一轮对话。
type ChatService interface {
	// ProcessMessage 永远返回可展示的结果，内部错误会转为兜底回复。
	ProcessMessage(ctx context.Context, req model.ChatRequest) model.ChatResult
	EndSession(ctx context.Context, sessionID string, outcome model.Outcome) (*model.SessionMetrics, error)
}

type chatService struct {
	analyzer      intent.Analyzer
	composer      Composer
	kb            KnowledgeService
	conversations repository.ConversationRepository
	leads         repository.LeadRepository
	analytics     AnalyticsService
	locks         *keyedMutex
	newID         func() string
}

// NewChatService 创建一个新的 ChatService 实例，leads 和 analytics 可以为 nil。
func NewChatService(
	analyzer intent.Analyzer,
	composer Composer,
	kb KnowledgeService,
	conversations repository.ConversationRepository,
	leads repository.LeadRepository,
	analytics AnalyticsService,
) ChatService {
	return &chatService{
		analyzer:      analyzer,
		composer:      composer,
		kb:            kb,
		conversations: conversations,
		leads:         leads,
		analytics:     analytics,
		locks:         newKeyedMutex(),
		newID:         uuid.NewString,
	}
}

// ResolveSessionID 依次使用 sessionId、email、nome，都为空时生成新的 id。
func ResolveSessionID(req model.ChatRequest, newID func() string) string {
	for _, v := range []string{req.SessionID, req.Email, req.Name} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return newID()
}

func (s *chatService) ProcessMessage(ctx context.Context, req model.ChatRequest) (result model.ChatResult) {
	sessionID := ResolveSessionID(req, s.newID)
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("处理消息时发生 panic: session=%s, panic=%v", sessionID, r)
			result = IntelligentFallback(req.Message, req.Name)
			result.SessionID = sessionID
		}
	}()

	return s.process(ctx, sessionID, req)
}

func (s *chatService) process(ctx context.Context, sessionID string, req model.ChatRequest) model.ChatResult {
	message := strings.TrimSpace(req.Message)

	// 读取失败时以空资料/空历史继续，规则识别与模板回复照常工作
	profileLoaded := true
	profile, err := s.conversations.GetProfile(ctx, sessionID)
	if err != nil {
		log.Warnf("读取线索资料失败，按新会话处理: session=%s, err=%v", sessionID, err)
		profile, profileLoaded = model.LeadProfile{}, false
	}
	history, err := s.conversations.GetHistory(ctx, sessionID)
	if err != nil {
		log.Warnf("读取对话历史失败，按空历史处理: session=%s, err=%v", sessionID, err)
		history = nil
	}
	if len(history) == 0 && len(req.ChatHistory) > 0 {
		history = req.ChatHistory
	}

	requestFields := model.LeadProfile{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ServiceType: req.ServiceType,
	}
	profile = lead.UpdateProfile(profile, requestFields)
	profile = lead.UpdateProfile(profile, lead.Extract(message))

	intentResult := s.analyzer.Analyze(ctx, message, intent.Context{
		MessageCount: len(history),
		PriorScore:   profile.Score,
	})
	log.Infow("意图识别完成", "session", sessionID, "intent", intentResult.Intent,
		"methodology", intentResult.Methodology, "confidence", intentResult.Confidence, "source", intentResult.Source)

	in := ComposeInput{Message: message, History: history, Profile: profile, Intent: intentResult}
	activeAgent := AgentSara
	if p, ok := s.kb.CheckMaxPriority(message); ok {
		log.Infof("命中最高优先级规则: %s", p.Description)
		in.Priority = &p
	}
	if a, ok := s.kb.SelectSpecialist(message); ok {
		in.Agent = &a
		activeAgent = a.Agent
	}

	comp := s.composer.Compose(ctx, in)
	profile = lead.UpdateProfile(profile, comp.Reply.Extracted.Profile())

	stage := lead.ResolveStage(profile.Score, len(history))
	response := string(comp.Reply.Response)
	result := model.ChatResult{
		Response:         response,
		LeadScore:        profile.Score,
		NextAction:       lead.NextAction(profile.Score, string(comp.Reply.NextAction)),
		Methodology:      comp.Reply.AppliedMethodology(intentResult.Methodology),
		Stage:            stage,
		ExtractedData:    profile,
		Intent:           intentResult,
		ModelUsed:        comp.ModelUsed,
		Cost:             comp.Cost,
		Sentiment:        prompt.Sentiment(response),
		SuggestedActions: prompt.SuggestedActions(profile.Score),
		ActiveAgent:      activeAgent,
		SessionID:        sessionID,
	}

	s.persist(sessionID, message, result, requestFields, profileLoaded)
	return result
}

// persist 保存对话与线索并记录分析数据。请求可能已结束，因此使用独立的 context。
// 资料未能读出时不回写，避免用残缺资料覆盖已存的线索。
func (s *chatService) persist(sessionID, message string, result model.ChatResult, initial model.LeadProfile, saveProfile bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	if err := s.conversations.AppendMessages(ctx, sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: message, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: result.Response, Timestamp: now},
	); err != nil {
		log.Errorf("保存对话历史失败: session=%s, err=%v", sessionID, err)
	}
	if saveProfile {
		if err := s.conversations.SaveProfile(ctx, sessionID, result.ExtractedData); err != nil {
			log.Errorf("保存线索资料失败: session=%s, err=%v", sessionID, err)
		}
	}
	if s.leads != nil {
		record := model.LeadFromProfile(sessionID, result.ExtractedData, result.Stage, result.Intent.Intent)
		if err := s.leads.Upsert(ctx, &record); err != nil {
			log.Errorf("保存线索记录失败: session=%s, err=%v", sessionID, err)
		}
	}

	if s.analytics == nil {
		return
	}
	if !s.analytics.HasSession(sessionID) {
		s.analytics.StartSession(sessionID, model.SessionMeta{UserAgent: "web", Source: "chat_widget", Initial: initial})
	}
	s.analytics.TrackInteraction(sessionID, Turn{
		UserMessage: message,
		Response:    result.Response,
		Intent:      result.Intent.Intent,
		Methodology: result.Methodology,
		LeadScore:   result.LeadScore,
		Stage:       result.Stage,
		Extracted:   result.ExtractedData,
		Cost:        result.Cost,
	})
}

func (s *chatService) EndSession(ctx context.Context, sessionID string, outcome model.Outcome) (*model.SessionMetrics, error) {
	if s.analytics == nil {
		return nil, nil
	}
	return s.analytics.EndSession(ctx, sessionID, outcome)
}

// IntelligentFallback 只根据原始消息生成回复与分数，不依赖任何外部服务。
func IntelligentFallback(message, name string) model.ChatResult {
	reply := prompt.FallbackReply(message, name)
	return model.ChatResult{
		Response:         reply,
		LeadScore:        lead.FallbackScore(message),
		NextAction:       model.ActionDiscoverNeed,
		Methodology:      model.MethodologyFallback,
		Stage:            model.StageInitial,
		ModelUsed:        ModelFallback,
		Sentiment:        prompt.SentimentNeutral,
		SuggestedActions: append([]string(nil), prompt.FallbackActions...),
		ActiveAgent:      AgentFallback,
		IsFallback:       true,
	}
}

// keyedMutex 为每个会话提供一把锁，没有持有者时释放。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock 获取 key 对应的锁，返回解锁函数。
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
