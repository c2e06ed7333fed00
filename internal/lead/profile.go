// Package lead 维护潜在客户资料：合并新信息、计算 BANT 分数、判定会话阶段。
// 包内函数都是纯函数，不做任何 I/O。
package lead

import (
	"math"
	"sara-smart-go/internal/model"
	"strings"
)

// MaxScore 是 BANT 分数上限。
const MaxScore = 4

// Score 按 BANT 计算分数：预算、决策人（姓名+邮箱）、需求（项目类型或业务）、时间线各 1 分。
func Score(p model.LeadProfile) int {
	score := 0
	if p.Budget != "" {
		score++
	}
	if p.Name != "" && p.Email != "" {
		score++
	}
	if p.ProjectType != "" || p.Business != "" {
		score++
	}
	if p.Timeline != "" {
		score++
	}
	return clamp(score)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// UpdateProfile 把 update 中的非空字段覆盖到 profile 上并重算分数。
// 空值永远不会清除已有字段；同一 update 重复应用结果不变。
func UpdateProfile(profile, update model.LeadProfile) model.LeadProfile {
	merged := profile
	mergeString(&merged.Name, update.Name)
	mergeString(&merged.Email, update.Email)
	mergeString(&merged.Phone, update.Phone)
	mergeString(&merged.ServiceType, update.ServiceType)
	mergeString(&merged.Budget, update.Budget)
	mergeString(&merged.Timeline, update.Timeline)
	mergeString(&merged.Business, update.Business)
	if update.ProjectType != "" {
		merged.ProjectType = update.ProjectType
	}
	if merged.ProjectType == "" && merged.ServiceType != "" {
		merged.ProjectType = model.ParseProjectType(merged.ServiceType)
	}
	merged.Score = Score(merged)
	return merged
}

func mergeString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Classification 是线索冷热等级。
type Classification struct {
	Level  string           `json:"level"`
	Emoji  string           `json:"emoji"`
	Action model.NextAction `json:"action"`
}

// Classify 按分数给出冷热等级。
func Classify(score int) Classification {
	switch {
	case score >= 3:
		return Classification{Level: "QUENTE", Emoji: "🔥", Action: model.ActionClose}
	case score >= 2:
		return Classification{Level: "MORNO", Emoji: "🌡️", Action: model.ActionQualify}
	}
	return Classification{Level: "FRIO", Emoji: "❄️", Action: model.ActionNurture}
}

// Completeness 返回已填写字段的百分比（共 7 个字段）。
func Completeness(p model.LeadProfile) int {
	fields := []bool{
		p.Name != "",
		p.Email != "",
		p.Phone != "",
		p.ServiceType != "" || p.ProjectType != "",
		p.Budget != "",
		p.Timeline != "",
		p.Business != "",
	}
	n := 0
	for _, ok := range fields {
		if ok {
			n++
		}
	}
	return int(math.Round(float64(n) / float64(len(fields)) * 100))
}

// MissingFields 返回尚未收集的关键字段。
func MissingFields(p model.LeadProfile) []string {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "nome")
	}
	if p.Email == "" {
		missing = append(missing, "email")
	}
	if p.ProjectType == "" && p.ServiceType == "" {
		missing = append(missing, "tipo_servico")
	}
	if p.Budget == "" {
		missing = append(missing, "orcamento")
	}
	if p.Timeline == "" {
		missing = append(missing, "prazo")
	}
	return missing
}
