package repository

import (
	"context"
	"sara-smart-go/internal/model"
	"sort"
	"sync"
)

// memoryConversationRepository 在未启用 Redis 时使用，进程重启后数据丢失。
type memoryConversationRepository struct {
	mu       sync.Mutex
	limit    int
	history  map[string][]model.ChatMessage
	profiles map[string]model.LeadProfile
}

// NewMemoryConversationRepository 创建进程内实现。
func NewMemoryConversationRepository(limit int) ConversationRepository {
	if limit <= 0 {
		limit = 20
	}
	return &memoryConversationRepository{
		limit:    limit,
		history:  make(map[string][]model.ChatMessage),
		profiles: make(map[string]model.LeadProfile),
	}
}

func (r *memoryConversationRepository) GetHistory(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage{}, r.history[sessionID]...), nil
}

func (r *memoryConversationRepository) AppendMessages(_ context.Context, sessionID string, messages ...model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := append(r.history[sessionID], messages...)
	if len(h) > r.limit {
		h = append([]model.ChatMessage(nil), h[len(h)-r.limit:]...)
	}
	r.history[sessionID] = h
	return nil
}

func (r *memoryConversationRepository) GetProfile(_ context.Context, sessionID string) (model.LeadProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[sessionID], nil
}

func (r *memoryConversationRepository) SaveProfile(_ context.Context, sessionID string, profile model.LeadProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[sessionID] = profile
	return nil
}

func (r *memoryConversationRepository) ListSessionIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.history))
	for id := range r.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
