package prompt

import (
	"fmt"
	"sara-smart-go/internal/lead"
	"sara-smart-go/internal/model"
	"strings"
)

const (
	historyWindow   = 15
	contextHistory  = 5
	transcriptLimit = 10
	snippetRunes    = 100
)

// Strategy 是给 LLM 的策略提示。
type Strategy struct {
	Methodology   model.Methodology `json:"recommendedMethodology"`
	ShouldAsk     []string          `json:"shouldAsk"`
	ShouldAvoid   []string          `json:"shouldAvoid"`
	Opportunities []string          `json:"opportunities"`
}

// ContextInput 是构建会话上下文所需的全部输入。
type ContextInput struct {
	Profile model.LeadProfile
	History []model.ChatMessage
	Intent  *model.IntentResult
	// MaxPriority 是命中的最高优先级规则描述，未命中为空。
	MaxPriority string
}

// ConversationContext 是一轮对话的结构化上下文。
type ConversationContext struct {
	Stage          lead.StageInfo      `json:"stage"`
	Profile        model.LeadProfile   `json:"lead"`
	Classification lead.Classification `json:"classification"`
	Completeness   int                 `json:"completeness"`
	MissingFields  []string            `json:"missingFields"`
	Strategy       Strategy            `json:"strategy"`
	History        []model.ChatMessage `json:"history"`
	UserMessages   int                 `json:"userMessageCount"`
}

// BuildContext 计算阶段、线索画像和策略提示。
func BuildContext(in ContextInput) ConversationContext {
	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	userMessages := 0
	for _, m := range history {
		if m.Role == model.RoleUser {
			userMessages++
		}
	}

	stage := lead.Describe(lead.ResolveStage(in.Profile.Score, len(in.History)))
	return ConversationContext{
		Stage:          stage,
		Profile:        in.Profile,
		Classification: lead.Classify(in.Profile.Score),
		Completeness:   lead.Completeness(in.Profile),
		MissingFields:  lead.MissingFields(in.Profile),
		Strategy:       buildStrategy(in, stage.Name),
		History:        history,
		UserMessages:   userMessages,
	}
}

func buildStrategy(in ContextInput, stage model.Stage) Strategy {
	s := Strategy{Methodology: model.MethodologySPIN}
	if in.Intent != nil {
		if in.Intent.Methodology != "" {
			s.Methodology = in.Intent.Methodology
		}
		switch in.Intent.Intent {
		case model.IntentBudgetRequest:
			s.ShouldAsk = append(s.ShouldAsk, "tipo_servico", "prazo")
			s.Opportunities = append(s.Opportunities, "Lead quente - foque em BANT")
		case model.IntentObjection:
			s.ShouldAvoid = append(s.ShouldAvoid, "insistir_preco")
			s.Opportunities = append(s.Opportunities, "Demonstre valor ROI")
		}
	}

	p := in.Profile
	if p.Name == "" && len(in.History) >= 2 {
		s.ShouldAsk = append(s.ShouldAsk, "nome")
	}
	if p.Email == "" && p.Score >= 2 {
		s.ShouldAsk = append(s.ShouldAsk, "email")
	}
	if p.ServiceType == "" && p.ProjectType == "" {
		s.ShouldAsk = append(s.ShouldAsk, "tipo_servico")
	}

	switch stage {
	case model.StageClosing:
		s.Opportunities = append(s.Opportunities, "Lead pronto para fechar - solicite dados e agende")
	case model.StageNurturing:
		s.Opportunities = append(s.Opportunities, "Demonstre casos de sucesso")
	}
	if in.MaxPriority != "" {
		s.Opportunities = append(s.Opportunities, "Prioridade máxima: "+in.MaxPriority)
	}
	return s
}

// Format 把上下文渲染为提示词片段。
func (c ConversationContext) Format() string {
	var b strings.Builder
	b.WriteString("\n## CONTEXTO DA CONVERSA\n\n")
	fmt.Fprintf(&b, "**Estágio:** %s (%s)\n", c.Stage.Name, c.Stage.Description)
	fmt.Fprintf(&b, "**Prioridade:** %s\n\n", c.Stage.Priority)

	b.WriteString("**Perfil do Cliente:**\n")
	writeProfile(&b, c.Profile)
	fmt.Fprintf(&b, "- Lead Score: %d/4 %s\n", c.Profile.Score, c.Classification.Emoji)
	fmt.Fprintf(&b, "- Completude: %d%%\n\n", c.Completeness)

	if len(c.Strategy.ShouldAsk) > 0 {
		fmt.Fprintf(&b, "**Deve Perguntar:** %s\n", strings.Join(c.Strategy.ShouldAsk, ", "))
	}
	if len(c.Strategy.ShouldAvoid) > 0 {
		fmt.Fprintf(&b, "**Evitar:** %s\n", strings.Join(c.Strategy.ShouldAvoid, ", "))
	}
	if len(c.Strategy.Opportunities) > 0 {
		fmt.Fprintf(&b, "**Oportunidades:** %s\n", strings.Join(c.Strategy.Opportunities, "; "))
	}
	fmt.Fprintf(&b, "**Metodologia Recomendada:** %s\n\n", strings.ToUpper(string(c.Strategy.Methodology)))

	if len(c.History) > 0 {
		start := 0
		if len(c.History) > contextHistory {
			start = len(c.History) - contextHistory
		}
		fmt.Fprintf(&b, "**Histórico (últimas %d mensagens):**\n", len(c.History)-start)
		for i := start; i < len(c.History); i++ {
			m := c.History[i]
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, speaker(m.Role), truncate(m.Content, snippetRunes))
		}
	}
	return b.String()
}

// ClientSection 渲染已收集的客户信息和最近 10 条对话。
func ClientSection(p model.LeadProfile, history []model.ChatMessage) string {
	var b strings.Builder
	if p != (model.LeadProfile{}) {
		b.WriteString("\n## INFORMAÇÕES DO CLIENTE (coletadas na conversa)\n")
		writeProfile(&b, p)
		fmt.Fprintf(&b, "- Lead Score: %d/4\n", p.Score)
	}
	if len(history) > 0 {
		if len(history) > transcriptLimit {
			history = history[len(history)-transcriptLimit:]
		}
		b.WriteString("\n## HISTÓRICO DA CONVERSA (últimas mensagens)\n")
		for i, m := range history {
			fmt.Fprintf(&b, "%d. **%s:** %s\n", i+1, speaker(m.Role), m.Content)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeProfile(b *strings.Builder, p model.LeadProfile) {
	interest := p.ServiceType
	if interest == "" {
		interest = string(p.ProjectType)
	}
	rows := []struct{ label, value string }{
		{"Nome", p.Name},
		{"Email", p.Email},
		{"Telefone", p.Phone},
		{"Interesse", interest},
		{"Orçamento", p.Budget},
		{"Prazo", p.Timeline},
		{"Negócio", p.Business},
	}
	for _, r := range rows {
		if r.value != "" {
			fmt.Fprintf(b, "- %s: %s\n", r.label, r.value)
		}
	}
}

func speaker(role model.Role) string {
	if role == model.RoleUser {
		return "Cliente"
	}
	return "Sara"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
