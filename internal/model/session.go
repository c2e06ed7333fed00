package model

import (
	"strings"
	"time"
)

// Outcome 是会话结束时的结果。
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeNurturing Outcome = "nurturing"
	OutcomeLost      Outcome = "lost"
	OutcomeUnknown   Outcome = "unknown"
)

// ParseOutcome 无法识别时返回 OutcomeUnknown。
func ParseOutcome(raw string) Outcome {
	switch o := Outcome(strings.ToLower(strings.TrimSpace(raw))); o {
	case OutcomeConverted, OutcomeNurturing, OutcomeLost:
		return o
	}
	return OutcomeUnknown
}

// LeadQuality 是会话结束时按分数划分的线索质量。
type LeadQuality string

const (
	QualityHot  LeadQuality = "hot"
	QualityWarm LeadQuality = "warm"
	QualityCold LeadQuality = "cold"
)

// QualityForScore 按 BANT 分数划分线索质量。
func QualityForScore(score int) LeadQuality {
	switch {
	case score >= 3:
		return QualityHot
	case score >= 2:
		return QualityWarm
	}
	return QualityCold
}

// Interaction 是会话中被记录的一轮问答。
type Interaction struct {
	Timestamp    time.Time   `json:"timestamp"`
	UserMessage  string      `json:"user"`
	SaraResponse string      `json:"sara"`
	Intent       Intent      `json:"intent,omitempty"`
	Methodology  Methodology `json:"methodology,omitempty"`
	LeadScore    int         `json:"score"`
	Stage        Stage       `json:"stage,omitempty"`
	Cost         float64     `json:"cost"`
}

// SessionMetrics 在会话结束时计算一次。
type SessionMetrics struct {
	DurationMinutes     float64     `json:"duration"`
	MessageCount        int         `json:"messageCount"`
	LeadScore           int         `json:"leadScore"`
	LeadQuality         LeadQuality `json:"leadQuality"`
	DominantMethodology string      `json:"dominantMethodology"`
	TotalCost           float64     `json:"totalCost"`
	Outcome             Outcome     `json:"outcome"`
	IntentsDetected     []Intent    `json:"intentsDetected"`
	HasEmail            bool        `json:"hasEmail"`
	HasPhone            bool        `json:"hasPhone"`
	ProjectType         string      `json:"projectType"`
}

// SessionRecord 是已结束会话的归档记录，写入 MySQL 并索引到 Elasticsearch。
type SessionRecord struct {
	ID                  uint          `gorm:"primaryKey" json:"-"`
	SessionID           string        `gorm:"type:varchar(128);uniqueIndex:idx_session_start;not null" json:"id"`
	StartedAt           time.Time     `gorm:"uniqueIndex:idx_session_start;not null" json:"date"`
	EndedAt             time.Time     `json:"endedAt"`
	DurationMinutes     float64       `json:"duration"`
	MessageCount        int           `json:"messageCount"`
	LeadScore           int           `gorm:"index" json:"leadScore"`
	LeadQuality         LeadQuality   `gorm:"type:varchar(16)" json:"leadQuality"`
	DominantMethodology string        `gorm:"type:varchar(32)" json:"dominantMethodology"`
	TotalCost           float64       `json:"totalCost"`
	Outcome             Outcome       `gorm:"type:varchar(16);index" json:"outcome"`
	ProjectType         string        `gorm:"type:varchar(32)" json:"projectType"`
	HasEmail            bool          `json:"hasEmail"`
	HasPhone            bool          `json:"hasPhone"`
	Intents             []Intent      `gorm:"type:text;serializer:json" json:"intentsDetected"`
	Messages            []Interaction `gorm:"type:mediumtext;serializer:json" json:"messages"`
	LeadData            LeadProfile   `gorm:"type:text;serializer:json" json:"leadData"`
	Metadata            SessionMeta   `gorm:"type:text;serializer:json" json:"metadata"`
	CreatedAt           time.Time     `gorm:"autoCreateTime" json:"-"`
}

func (SessionRecord) TableName() string {
	return "analytics_conversations"
}

// Metrics 从归档记录还原会话指标。
func (r SessionRecord) Metrics() SessionMetrics {
	return SessionMetrics{
		DurationMinutes:     r.DurationMinutes,
		MessageCount:        r.MessageCount,
		LeadScore:           r.LeadScore,
		LeadQuality:         r.LeadQuality,
		DominantMethodology: r.DominantMethodology,
		TotalCost:           r.TotalCost,
		Outcome:             r.Outcome,
		IntentsDetected:     r.Intents,
		HasEmail:            r.HasEmail,
		HasPhone:            r.HasPhone,
		ProjectType:         r.ProjectType,
	}
}

// SessionMeta 是开启会话时附带的元数据。
type SessionMeta struct {
	UserAgent string      `json:"userAgent,omitempty"`
	Source    string      `json:"source,omitempty"`
	Initial   LeadProfile `json:"initialLeadData"`
}

// GlobalStats 是所有已结束会话的累计统计。
type GlobalStats struct {
	TotalSessions         int            `json:"totalSessions"`
	TotalMessages         int            `json:"totalMessages"`
	TotalCost             float64        `json:"totalCost"`
	AvgLeadScore          float64        `json:"avgLeadScore"`
	AvgMessagesPerSession float64        `json:"avgMessagesPerSession"`
	AvgDuration           float64        `json:"avgDuration"`
	ConversionRate        float64        `json:"conversionRate"`
	LeadsByQuality        map[string]int `json:"leadsByQuality"`
	Outcomes              map[string]int `json:"outcomes"`
	Methodologies         map[string]int `json:"methodologies"`
	ProjectTypes          map[string]int `json:"projectTypes"`
	LastUpdated           time.Time      `json:"lastUpdated"`
}

// NewGlobalStats 返回初始统计，与空数据时的仪表盘一致。
func NewGlobalStats() GlobalStats {
	return GlobalStats{
		LeadsByQuality: map[string]int{string(QualityHot): 0, string(QualityWarm): 0, string(QualityCold): 0},
		Outcomes: map[string]int{
			string(OutcomeConverted): 0, string(OutcomeNurturing): 0,
			string(OutcomeLost): 0, string(OutcomeUnknown): 0,
		},
		Methodologies: map[string]int{
			string(MethodologySPIN): 0, string(MethodologyBANT): 0,
			string(MethodologyValueFirst): 0, string(MethodologyDirect): 0,
		},
		ProjectTypes: map[string]int{},
		LastUpdated:  time.Now(),
	}
}
