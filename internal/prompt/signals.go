package prompt

import (
	"regexp"
	"strings"
)

// Sentiment 取值
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
)

var (
	positiveRe = regexp.MustCompile(`😊|🚀|✨|💡|perfeito|ótimo|excelente|incrível`)
	neutralRe  = regexp.MustCompile(`me conta|poderia|gostaria`)
)

// Sentiment 粗略判断回复的情绪倾向，默认为 positive。
func Sentiment(reply string) string {
	lower := strings.ToLower(reply)
	switch {
	case positiveRe.MatchString(lower):
		return SentimentPositive
	case strings.Contains(lower, "?") || neutralRe.MatchString(lower):
		return SentimentNeutral
	}
	return SentimentPositive
}

// FallbackActions 是兜底回复附带的快捷操作。
var FallbackActions = []string{"Ver Serviços", "Falar com Sara"}

// SuggestedActions 按分数给前端推荐最多两个快捷操作。
func SuggestedActions(score int) []string {
	var actions []string
	switch {
	case score >= 3:
		actions = []string{"Solicitar Proposta", "Agendar Call", "Falar no WhatsApp"}
	case score >= 2:
		actions = []string{"Ver Portfólio", "Conhecer Serviços", "Tirar Dúvidas"}
	default:
		actions = []string{"Ver Exemplos", "Saber Mais", "Falar com Sara"}
	}
	return actions[:2]
}
