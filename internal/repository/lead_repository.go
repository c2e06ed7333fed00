// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"sara-smart-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLeadNotFound 表示会话尚无线索记录。
var ErrLeadNotFound = errors.New("lead not found")

// LeadRepository 定义了线索记录的持久化操作。
type LeadRepository interface {
	Upsert(ctx context.Context, lead *model.Lead) error
	FindBySessionID(ctx context.Context, sessionID string) (*model.Lead, error)
	FindWithPagination(ctx context.Context, offset, limit, minScore int) ([]model.Lead, int64, error)
}

// leadRepository 是 LeadRepository 接口的 GORM 实现。
type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository 创建一个新的 LeadRepository 实例。
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

// Upsert 以 session_id 为唯一键插入或更新线索，空字段不会覆盖已有值。
func (r *leadRepository) Upsert(ctx context.Context, lead *model.Lead) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":         gorm.Expr("COALESCE(NULLIF(?, ''), name)", lead.Name),
			"email":        gorm.Expr("COALESCE(NULLIF(?, ''), email)", lead.Email),
			"phone":        gorm.Expr("COALESCE(NULLIF(?, ''), phone)", lead.Phone),
			"project_type": gorm.Expr("COALESCE(NULLIF(?, ''), project_type)", lead.ProjectType),
			"budget":       gorm.Expr("COALESCE(NULLIF(?, ''), budget)", lead.Budget),
			"timeline":     gorm.Expr("COALESCE(NULLIF(?, ''), timeline)", lead.Timeline),
			"business":     gorm.Expr("COALESCE(NULLIF(?, ''), business)", lead.Business),
			"lead_score":   lead.LeadScore,
			"stage":        lead.Stage,
			"last_intent":  lead.LastIntent,
			"updated_at":   gorm.Expr("NOW()"),
		}),
	}).Create(lead).Error
}

// FindBySessionID 根据会话 ID 查找线索。
func (r *leadRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Lead, error) {
	var lead model.Lead
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// FindWithPagination 按分数和更新时间倒序分页查询，minScore 过滤低分线索。
func (r *leadRepository) FindWithPagination(ctx context.Context, offset, limit, minScore int) ([]model.Lead, int64, error) {
	var leads []model.Lead
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Lead{}).Where("lead_score >= ?", minScore)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("lead_score DESC").Order("updated_at DESC").Offset(offset).Limit(limit).Find(&leads).Error
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}
