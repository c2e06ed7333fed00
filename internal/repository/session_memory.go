package repository

import (
	"context"
	"sara-smart-go/internal/model"
	"sync"
)

// memorySessionRecordRepository 只保留最近 limit 个会话，未启用 MySQL 时使用。
type memorySessionRecordRepository struct {
	mu      sync.Mutex
	limit   int
	records []model.SessionRecord
}

// NewMemorySessionRecordRepository 创建进程内实现，limit 小于等于 0 时保留 100 个。
func NewMemorySessionRecordRepository(limit int) SessionRecordRepository {
	if limit <= 0 {
		limit = 100
	}
	return &memorySessionRecordRepository{limit: limit}
}

func (r *memorySessionRecordRepository) Save(_ context.Context, record *model.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].SessionID == record.SessionID && r.records[i].StartedAt.Equal(record.StartedAt) {
			r.records[i] = *record
			return nil
		}
	}
	r.records = append(r.records, *record)
	if len(r.records) > r.limit {
		r.records = append([]model.SessionRecord(nil), r.records[len(r.records)-r.limit:]...)
	}
	return nil
}

func (r *memorySessionRecordRepository) ListRecent(_ context.Context, limit int) ([]model.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SessionRecord, 0, len(r.records))
	for i := len(r.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

func (r *memorySessionRecordRepository) FindBySessionID(_ context.Context, sessionID string) (*model.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].SessionID == sessionID {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, ErrSessionNotFound
}
