package lead

import (
	"regexp"
	"sara-smart-go/internal/model"
	"strings"
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`(?:\+?55[\s-]?)?\(?\d{2}\)?[\s-]?9?\d{4}[\s-]?\d{4}`)
	nameRe     = regexp.MustCompile(`(?i)(?:meu nome é|meu nome e|me chamo|aqui é o|aqui é a)\s+([\p{L}]+)`)
	currencyRe = regexp.MustCompile(`(?i)r\$\s?\d[\d.,]*(?:\s?mil)?`)
	amountRe   = regexp.MustCompile(`(?i)(?:uns |umas |até |ate )?\d[\d.,]*\s?(?:mil reais|reais|mil\b|k\b)`)
	durationRe = regexp.MustCompile(`(?i)\b\d+\s?(?:dias?|semanas?|m[eê]s(?:es)?)\b`)
	businessRe = regexp.MustCompile(`(?i)(loja de [\p{L}]+|restaurante|pizzaria|hamburgueria|lanchonete|padaria|confeitaria|` +
		`cl[ií]nica(?: de [\p{L}]+)?|consult[oó]rio|academia|barbearia|sal[aã]o de [\p{L}]+|pet ?shop|` +
		`escrit[oó]rio de [\p{L}]+|imobili[aá]ria|est[uú]dio de [\p{L}]+)`)
)

var timelineKeywords = []string{
	"urgente", "o quanto antes", "essa semana", "esta semana", "semana que vem", "próxima semana",
	"este mês", "esse mês", "mês que vem", "próximo mês", "fim do mês", "sem pressa",
}

var projectKeywords = []struct {
	keyword string
	project model.ProjectType
}{
	{"landing", model.ProjectLandingPage},
	{"página de vendas", model.ProjectLandingPage},
	{"portfólio", model.ProjectPortfolio},
	{"portfolio", model.ProjectPortfolio},
	{"e-commerce", model.ProjectEcommerce},
	{"ecommerce", model.ProjectEcommerce},
	{"loja virtual", model.ProjectEcommerce},
	{"loja online", model.ProjectEcommerce},
	{"vender online", model.ProjectEcommerce},
	{"blog", model.ProjectSiteBlog},
	{"site", model.ProjectSiteBlog},
}

// Extract 用规则从一条消息里抽取资料，抽不到的字段保持为空。
func Extract(message string) model.LeadProfile {
	var p model.LeadProfile
	if message = strings.TrimSpace(message); message == "" {
		return p
	}
	lower := strings.ToLower(message)

	p.Email = emailRe.FindString(message)
	// 先去掉邮箱，避免其中的数字被当作电话
	rest := emailRe.ReplaceAllString(message, " ")
	if m := phoneRe.FindString(rest); m != "" {
		p.Phone = digitsOnly(m)
	}
	if m := nameRe.FindStringSubmatch(message); len(m) == 2 {
		p.Name = capitalize(m[1])
	}
	p.Budget = extractBudget(rest)
	p.Timeline = extractTimeline(lower)
	for _, k := range projectKeywords {
		if strings.Contains(lower, k.keyword) {
			p.ProjectType = k.project
			break
		}
	}
	if m := businessRe.FindString(message); m != "" {
		p.Business = strings.ToLower(m)
	}
	return p
}

func extractBudget(s string) string {
	if m := currencyRe.FindString(s); m != "" {
		return strings.TrimSpace(m)
	}
	return strings.TrimSpace(amountRe.FindString(s))
}

func extractTimeline(lower string) string {
	if m := durationRe.FindString(lower); m != "" {
		return m
	}
	for _, k := range timelineKeywords {
		if strings.Contains(lower, k) {
			return k
		}
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return ""
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// FallbackScore 在所有 LLM 都不可用时直接根据原始文本估算分数。
func FallbackScore(message string) int {
	lower := strings.ToLower(message)
	score := 0
	groups := [][]string{
		{"quero", "preciso"},
		{"loja", "site", "landing"},
		{"roupas", "restaurante"},
		{"urgente", "rápido", "rapido"},
	}
	for _, words := range groups {
		for _, w := range words {
			if strings.Contains(lower, w) {
				score++
				break
			}
		}
	}
	return clamp(score)
}
