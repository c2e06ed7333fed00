package model

import (
	"strings"
	"time"
)

// ProjectType 是工作室提供的项目类型。
type ProjectType string

const (
	ProjectLandingPage ProjectType = "landing-page"
	ProjectPortfolio   ProjectType = "portfolio"
	ProjectSiteBlog    ProjectType = "site-blog"
	ProjectEcommerce   ProjectType = "e-commerce"
)

// ParseProjectType 宽松地解析前端或 LLM 给出的项目类型，无法识别时返回空串。
func ParseProjectType(raw string) ProjectType {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "landing"):
		return ProjectLandingPage
	case strings.Contains(s, "portf"):
		return ProjectPortfolio
	case strings.Contains(s, "commerce"), strings.Contains(s, "loja virtual"), strings.Contains(s, "loja online"):
		return ProjectEcommerce
	case strings.Contains(s, "site"), strings.Contains(s, "blog"), strings.Contains(s, "institucional"):
		return ProjectSiteBlog
	}
	return ""
}

// LeadProfile 是某个会话中已经收集到的潜在客户信息。
// Score 由字段推导，任何写入方都不应单独修改它。
type LeadProfile struct {
	Name        string      `json:"nome,omitempty"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"telefone,omitempty"`
	ServiceType string      `json:"tipoServico,omitempty"`
	ProjectType ProjectType `json:"tipo_projeto,omitempty"`
	Budget      string      `json:"orcamento,omitempty"`
	Timeline    string      `json:"prazo,omitempty"`
	Business    string      `json:"negocio,omitempty"`
	Score       int         `json:"leadScore"`
}

// Lead 是持久化到 MySQL 的潜在客户记录，每个会话一行。
type Lead struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"sessionId"`
	Name        string    `gorm:"type:varchar(128)" json:"nome"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	Phone       string    `gorm:"type:varchar(32)" json:"telefone"`
	ProjectType string    `gorm:"type:varchar(32)" json:"tipoProjeto"`
	Budget      string    `gorm:"type:varchar(128)" json:"orcamento"`
	Timeline    string    `gorm:"type:varchar(128)" json:"prazo"`
	Business    string    `gorm:"type:varchar(255)" json:"negocio"`
	LeadScore   int       `gorm:"not null;default:0" json:"leadScore"`
	Stage       Stage     `gorm:"type:varchar(32)" json:"etapa"`
	LastIntent  Intent    `gorm:"type:varchar(64)" json:"ultimaIntencao"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Lead) TableName() string {
	return "leads"
}

// LeadFromProfile 把会话资料转换为数据库记录。
func LeadFromProfile(sessionID string, p LeadProfile, stage Stage, intent Intent) Lead {
	return Lead{
		SessionID:   sessionID,
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		ProjectType: string(p.ProjectType),
		Budget:      p.Budget,
		Timeline:    p.Timeline,
		Business:    p.Business,
		LeadScore:   p.Score,
		Stage:       stage,
		LastIntent:  intent,
	}
}

// LeadView 是管理后台列表使用的展示结构。
type LeadView struct {
	SessionID   string    `json:"sessionId"`
	Name        string    `json:"nome"`
	Email       string    `json:"email"`
	ProjectType string    `json:"tipoProjeto"`
	LeadScore   int       `json:"leadScore"`
	Stage       Stage     `json:"etapa"`
	UpdatedAt   LocalTime `json:"updatedAt"`
}
