package model

import (
	"strconv"
	"strings"
	"time"
)

// SessionDocument 是写入 Elasticsearch 的会话文档，供后台全文检索。
type SessionDocument struct {
	SessionID   string    `json:"session_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ProjectType string    `json:"project_type"`
	Business    string    `json:"business"`
	LeadScore   int       `json:"lead_score"`
	LeadQuality string    `json:"lead_quality"`
	Outcome     string    `json:"outcome"`
	Intents     []string  `json:"intents"`
	Transcript  string    `json:"transcript"`
	StartedAt   time.Time `json:"started_at"`
}

// DocumentID 由会话 ID 与开始时间组成，同一访客的多次会话各占一篇文档，重投同一会话则覆盖。
func (d SessionDocument) DocumentID() string {
	return d.SessionID + "-" + strconv.FormatInt(d.StartedAt.UnixMilli(), 10)
}

// NewSessionDocument 把归档记录展开为检索文档。
func NewSessionDocument(r SessionRecord) SessionDocument {
	intents := make([]string, 0, len(r.Intents))
	for _, i := range r.Intents {
		intents = append(intents, string(i))
	}
	var transcript strings.Builder
	for _, m := range r.Messages {
		transcript.WriteString("Cliente: ")
		transcript.WriteString(m.UserMessage)
		transcript.WriteString("\nSara: ")
		transcript.WriteString(m.SaraResponse)
		transcript.WriteString("\n")
	}
	return SessionDocument{
		SessionID:   r.SessionID,
		Name:        r.LeadData.Name,
		Email:       r.LeadData.Email,
		ProjectType: r.ProjectType,
		Business:    r.LeadData.Business,
		LeadScore:   r.LeadScore,
		LeadQuality: string(r.LeadQuality),
		Outcome:     string(r.Outcome),
		Intents:     intents,
		Transcript:  transcript.String(),
		StartedAt:   r.StartedAt,
	}
}

// SessionSearchHit 是检索结果中的一条命中。
type SessionSearchHit struct {
	SessionDocument
	Score float64 `json:"score"`
}
