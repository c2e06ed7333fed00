package repository

import (
	"context"
	"sara-smart-go/internal/model"
	"sort"
	"sync"
	"time"
)

// memoryLeadRepository 在未启用 MySQL 时使用。
type memoryLeadRepository struct {
	mu     sync.Mutex
	nextID uint
	leads  map[string]model.Lead
}

// NewMemoryLeadRepository 创建进程内实现。
func NewMemoryLeadRepository() LeadRepository {
	return &memoryLeadRepository{leads: make(map[string]model.Lead)}
}

func (r *memoryLeadRepository) Upsert(_ context.Context, lead *model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cur, ok := r.leads[lead.SessionID]
	if !ok {
		r.nextID++
		cur = model.Lead{ID: r.nextID, SessionID: lead.SessionID, CreatedAt: now}
	}
	keep(&cur.Name, lead.Name)
	keep(&cur.Email, lead.Email)
	keep(&cur.Phone, lead.Phone)
	keep(&cur.ProjectType, lead.ProjectType)
	keep(&cur.Budget, lead.Budget)
	keep(&cur.Timeline, lead.Timeline)
	keep(&cur.Business, lead.Business)
	cur.LeadScore = lead.LeadScore
	cur.Stage = lead.Stage
	cur.LastIntent = lead.LastIntent
	cur.UpdatedAt = now
	r.leads[lead.SessionID] = cur
	*lead = cur
	return nil
}

func keep(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (r *memoryLeadRepository) FindBySessionID(_ context.Context, sessionID string) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[sessionID]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return &l, nil
}

func (r *memoryLeadRepository) FindWithPagination(_ context.Context, offset, limit, minScore int) ([]model.Lead, int64, error) {
	r.mu.Lock()
	matched := make([]model.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if l.LeadScore >= minScore {
			matched = append(matched, l)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LeadScore != matched[j].LeadScore {
			return matched[i].LeadScore > matched[j].LeadScore
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Lead{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}
