// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"sara-smart-go/internal/config"
	"sara-smart-go/internal/model"
	"sara-smart-go/internal/repository"
	"sara-smart-go/pkg/hash"
	"sara-smart-go/pkg/log"
	"sara-smart-go/pkg/token"
	"sort"
	"time"
)

var (
	// ErrInvalidCredentials 表示管理员用户名或密码错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSearchDisabled 表示未启用 Elasticsearch。
	ErrSearchDisabled = errors.New("session search is disabled")
)

// LeadListResponse 定义了线索列表 API 的响应结构。
type LeadListResponse struct {
	Content       []model.LeadView `json:"content"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	Size          int              `json:"size"`
	Number        int              `json:"number"`
}

// LoginResult 是管理员登录成功后的返回值。
type LoginResult struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// ConversationView 是某个会话的完整对话与资料。
type ConversationView struct {
	SessionID string              `json:"sessionId"`
	Profile   model.LeadProfile   `json:"profile"`
	Messages  []model.ChatMessage `json:"messages"`
}

// ConversationLine 是跨会话对话列表中的一行。
type ConversationLine struct {
	SessionID string     `json:"sessionId"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
}

// SessionSearcher 在检索索引中查找已结束的会话。
type SessionSearcher interface {
	Search(ctx context.Context, query string, size int) ([]model.SessionSearchHit, error)
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	Login(username, password string) (*LoginResult, error)
	ListLeads(ctx context.Context, page, size, minScore int) (*LeadListResponse, error)
	SearchSessions(ctx context.Context, query string, size int) ([]model.SessionSearchHit, error)
	RecentSessions(ctx context.Context, limit int) ([]model.SessionRecord, error)
	GetConversation(ctx context.Context, sessionID string) (*ConversationView, error)
	GetAllConversations(ctx context.Context, startTime, endTime *time.Time) ([]ConversationLine, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	admin            config.AdminConfig
	jwtManager       *token.JWTManager
	leadRepo         repository.LeadRepository
	conversationRepo repository.ConversationRepository
	sessionRepo      repository.SessionRecordRepository
	searcher         SessionSearcher
}

// NewAdminService 创建一个新的 AdminService 实例，searcher 为 nil 时检索不可用。
func NewAdminService(
	admin config.AdminConfig,
	jwtManager *token.JWTManager,
	leadRepo repository.LeadRepository,
	conversationRepo repository.ConversationRepository,
	sessionRepo repository.SessionRecordRepository,
	searcher SessionSearcher,
) AdminService {
	return &adminService{
		admin:            admin,
		jwtManager:       jwtManager,
		leadRepo:         leadRepo,
		conversationRepo: conversationRepo,
		sessionRepo:      sessionRepo,
		searcher:         searcher,
	}
}

// Login 校验配置中的管理员账号并签发 token。
func (s *adminService) Login(username, password string) (*LoginResult, error) {
	if s.admin.Username == "" || s.admin.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if username != s.admin.Username || !hash.CheckPasswordHash(password, s.admin.PasswordHash) {
		log.Warnf("[AdminService] 管理员登录失败, username: %s", username)
		return nil, ErrInvalidCredentials
	}
	accessToken, err := s.jwtManager.GenerateToken(username, token.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &LoginResult{AccessToken: accessToken, ExpiresIn: int64(s.jwtManager.TTL().Seconds())}, nil
}

// ListLeads 以分页的形式返回线索列表，page 从 1 开始。
func (s *adminService) ListLeads(ctx context.Context, page, size, minScore int) (*LeadListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	leads, total, err := s.leadRepo.FindWithPagination(ctx, offset, size, minScore)
	if err != nil {
		return nil, err
	}

	views := make([]model.LeadView, 0, len(leads))
	for _, l := range leads {
		views = append(views, model.LeadView{
			SessionID:   l.SessionID,
			Name:        l.Name,
			Email:       l.Email,
			ProjectType: l.ProjectType,
			LeadScore:   l.LeadScore,
			Stage:       l.Stage,
			UpdatedAt:   model.LocalTime(l.UpdatedAt),
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = (int(total) + size - 1) / size
	}
	return &LeadListResponse{
		Content:       views,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

func (s *adminService) SearchSessions(ctx context.Context, query string, size int) ([]model.SessionSearchHit, error) {
	if s.searcher == nil {
		return nil, ErrSearchDisabled
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.searcher.Search(ctx, query, size)
}

func (s *adminService) RecentSessions(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.sessionRepo.ListRecent(ctx, limit)
}

// GetConversation 返回会话的对话历史与已收集的资料。
func (s *adminService) GetConversation(ctx context.Context, sessionID string) (*ConversationView, error) {
	history, err := s.conversationRepo.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	profile, err := s.conversationRepo.GetProfile(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(history) == 0 && profile == (model.LeadProfile{}) {
		return nil, repository.ErrSessionNotFound
	}
	return &ConversationView{SessionID: sessionID, Profile: profile, Messages: history}, nil
}

// GetAllConversations 汇总所有会话的消息，可按时间过滤，结果按时间排序。
func (s *adminService) GetAllConversations(ctx context.Context, startTime, endTime *time.Time) ([]ConversationLine, error) {
	ids, err := s.conversationRepo.ListSessionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	type stamped struct {
		at   time.Time
		line ConversationLine
	}
	var all []stamped
	for _, id := range ids {
		history, err := s.conversationRepo.GetHistory(ctx, id)
		if err != nil {
			log.Warnf("[AdminService] 读取会话失败, session: %s, error: %v", id, err)
			continue
		}
		for _, msg := range history {
			if startTime != nil && msg.Timestamp.Before(*startTime) {
				continue
			}
			if endTime != nil && msg.Timestamp.After(*endTime) {
				continue
			}
			all = append(all, stamped{at: msg.Timestamp, line: ConversationLine{
				SessionID: id,
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: msg.Timestamp.Format("2006-01-02T15:04:05"),
			}})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	lines := make([]ConversationLine, 0, len(all))
	for _, st := range all {
		lines = append(lines, st.line)
	}
	return lines, nil
}
