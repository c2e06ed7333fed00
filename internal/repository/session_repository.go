package repository

import (
	"context"
	"errors"
	"sara-smart-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionNotFound 表示没有该会话的归档记录。
var ErrSessionNotFound = errors.New("session record not found")

// SessionRecordRepository 持久化已结束的分析会话。
type SessionRecordRepository interface {
	Save(ctx context.Context, record *model.SessionRecord) error
	ListRecent(ctx context.Context, limit int) ([]model.SessionRecord, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.SessionRecord, error)
}

type sessionRecordRepository struct {
	db *gorm.DB
}

// NewSessionRecordRepository 创建 GORM 实现。
func NewSessionRecordRepository(db *gorm.DB) SessionRecordRepository {
	return &sessionRecordRepository{db: db}
}

// Save 以 (session_id, started_at) 为键写入，Kafka 重投同一会话时覆盖旧行。
func (r *sessionRecordRepository) Save(ctx context.Context, record *model.SessionRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "started_at"}},
		DoUpdates: clause.AssignmentColumns(sessionRecordUpdateColumns),
	}).Create(record).Error
}

var sessionRecordUpdateColumns = []string{
	"ended_at", "duration_minutes", "message_count", "lead_score", "lead_quality",
	"dominant_methodology", "total_cost", "outcome", "project_type", "has_email",
	"has_phone", "intents", "messages", "lead_data", "metadata",
}

// ListRecent 返回最近结束的 limit 个会话，越新越靠前。
func (r *sessionRecordRepository) ListRecent(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	var records []model.SessionRecord
	err := r.db.WithContext(ctx).Order("ended_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (r *sessionRecordRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	var record model.SessionRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("ended_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
