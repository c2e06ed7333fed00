package prompt

import (
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/llm"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	raw := "Claro!\n```json\n{\"resposta\":\"Oi Ana! 😊\",\"dados_extraidos\":{\"nome\":\"Ana\",\"email\":null," +
		"\"tipo_projeto\":\"Landing Page\",\"orcamento\":1500,\"prazo\":\"null\"},\"lead_score\":2," +
		"\"proxima_acao\":\"qualificar\",\"metodologia_aplicada\":\"BANT\"}\n```"

	r := ParseReply(raw)
	assert.Equal(t, Text("Oi Ana! 😊"), r.Response)
	assert.Equal(t, 2, r.Score())
	assert.Equal(t, model.MethodologyBANT, r.AppliedMethodology(model.MethodologySPIN))

	p := r.Extracted.Profile()
	assert.Equal(t, "Ana", p.Name)
	assert.Empty(t, p.Email)
	assert.Equal(t, model.ProjectLandingPage, p.ProjectType)
	assert.Equal(t, "1500", p.Budget)
	assert.Empty(t, p.Timeline)
}

func TestParseReplyToleratesMistypedFields(t *testing.T) {
	for _, extracted := range []string{`[]`, `"nenhum"`, `42`} {
		raw := "```json\n{\"resposta\":\"Oi Ana! Como posso ajudar?\",\"dados_extraidos\":" + extracted +
			",\"lead_score\":1,\"metodologia_aplicada\":\"spin\"}\n```"
		r := ParseReply(raw)
		assert.Equal(t, Text("Oi Ana! Como posso ajudar?"), r.Response, extracted)
		assert.Equal(t, model.LeadProfile{}, r.Extracted.Profile(), extracted)
		assert.Equal(t, 1, r.Score(), extracted)
		assert.Equal(t, model.MethodologySPIN, r.AppliedMethodology(model.MethodologyBANT), extracted)
	}

	r := ParseReply(`{"resposta":"Claro!","dados_extraidos":{"nome":"Ana"},"metodologia_aplicada":["spin"]}`)
	assert.Equal(t, Text("Claro!"), r.Response)
	assert.Equal(t, "Ana", r.Extracted.Profile().Name)
}

func TestParseReplyFallsBackToRawText(t *testing.T) {
	r := ParseReply("Desculpe, não consegui montar o JSON.")
	assert.Equal(t, Text("Desculpe, não consegui montar o JSON."), r.Response)
	assert.Equal(t, model.LeadProfile{}, r.Extracted.Profile())
	assert.Equal(t, model.MethodologySPIN, r.AppliedMethodology(model.MethodologySPIN))

	r = ParseReply(`{"dados_extraidos":{"nome":"Ana"}}`)
	assert.Equal(t, model.LeadProfile{}, r.Extracted.Profile(), "缺少 resposta 时整段视为原文")
}

func TestBuildContextStrategy(t *testing.T) {
	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "Oi"},
		{Role: model.RoleAssistant, Content: strings.Repeat("a", 150)},
	}
	intent := model.IntentResult{Intent: model.IntentBudgetRequest, Methodology: model.MethodologyBANT}
	c := BuildContext(ContextInput{
		Profile:     model.LeadProfile{Budget: "R$ 900", Timeline: "urgente", Score: 2},
		History:     history,
		Intent:      &intent,
		MaxPriority: "Cliente pediu contato humano",
	})

	assert.Equal(t, model.StageQualification, c.Stage.Name)
	assert.Equal(t, []string{"tipo_servico", "prazo", "nome", "email", "tipo_servico"}, c.Strategy.ShouldAsk)
	assert.Equal(t, []string{"Lead quente - foque em BANT", "Prioridade máxima: Cliente pediu contato humano"}, c.Strategy.Opportunities)
	assert.Equal(t, 1, c.UserMessages)

	out := c.Format()
	assert.Contains(t, out, "## CONTEXTO DA CONVERSA")
	assert.Contains(t, out, "**Estágio:** qualification (Qualificação ativa)")
	assert.Contains(t, out, "- Lead Score: 2/4 🌡️")
	assert.Contains(t, out, "**Metodologia Recomendada:** BANT")
	assert.Contains(t, out, "2. Sara: "+strings.Repeat("a", 100)+"...")
}

func TestBuildContextObjectionAndNurturing(t *testing.T) {
	history := make([]model.ChatMessage, 8)
	for i := range history {
		history[i] = model.ChatMessage{Role: model.RoleUser, Content: "msg"}
	}
	intent := model.IntentResult{Intent: model.IntentObjection, Methodology: model.MethodologyValueFirst}
	c := BuildContext(ContextInput{Profile: model.LeadProfile{ProjectType: model.ProjectPortfolio, Score: 1}, History: history, Intent: &intent})

	assert.Equal(t, model.StageNurturing, c.Stage.Name)
	assert.Equal(t, []string{"insistir_preco"}, c.Strategy.ShouldAvoid)
	assert.Contains(t, c.Strategy.Opportunities, "Demonstre casos de sucesso")
	assert.Contains(t, c.Format(), "**Histórico (últimas 5 mensagens):**\n4. Cliente: msg")
}

func TestRelevantExamples(t *testing.T) {
	ids := func(exs []Example) []string {
		out := make([]string, 0, len(exs))
		for _, e := range exs {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []string{"saudacao_inicial", "interesse_vago", "lead_quente_orcamento"}, ids(RelevantExamples("hmm", 3)))
	assert.Equal(t, []string{"saudacao_inicial", "lead_quente_orcamento"}, ids(RelevantExamples("quanto custa?", 0)))
	assert.Len(t, RelevantExamples("quero integrar o whatsapp, quanto custa? achei caro", 0), 3)
}

func TestBuildMessages(t *testing.T) {
	in := Input{
		Message:      "Quanto custa um site?",
		Profile:      model.LeadProfile{Name: "Ana"},
		Context:      BuildContext(ContextInput{Profile: model.LeadProfile{Name: "Ana"}}),
		Persona:      Persona{},
		Knowledge:    "## SERVIÇOS RONALD DIGITAL\n- Landing Pages",
		NextQuestion: "Qual é o seu orçamento?",
	}
	msgs := BuildMessages(in)

	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Você é **Sara**")
	assert.Contains(t, msgs[0].Content, "## SERVIÇOS RONALD DIGITAL")
	assert.Contains(t, msgs[0].Content, "- Nome: Ana")
	assert.Contains(t, msgs[0].Content, "Formal: 30% | Casual: 70%")
	assert.Contains(t, msgs[0].Content, "**Próxima Pergunta Sugerida:** Qual é o seu orçamento?")
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, `"resposta"`)

	last := msgs[len(msgs)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Contains(t, last.Content, "Quanto custa um site?")
}

func TestTemplateReply(t *testing.T) {
	assert.Contains(t, TemplateReply(TemplateInput{Message: "quero uma loja de roupas", Name: "Bia"}), "Loja de roupas é um segmento incrível")
	assert.Contains(t, TemplateReply(TemplateInput{Message: "tenho um restaurante"}), "Que ótimo, Cliente!")
	assert.Contains(t, TemplateReply(TemplateInput{Message: "Quanto custa?"}), "R$ 1.200-2.500")
	assert.Contains(t, TemplateReply(TemplateInput{Message: "quem é você?"}), "Eu sou a Sara")
	assert.Equal(t, "Entendo!", TemplateReply(TemplateInput{Intent: model.IntentObjection, Message: "caro", ObjectionReply: "Entendo!"}))
	assert.True(t, strings.HasPrefix(TemplateReply(TemplateInput{Intent: model.IntentGreeting, Message: "oi", Greeting: "Bom dia! ☀️"}), "Bom dia! ☀️"))
	assert.Contains(t, TemplateReply(TemplateInput{Intent: model.IntentFarewell, Message: "tchau", Name: "Bia"}), "Bia")
	assert.Contains(t, TemplateReply(TemplateInput{Message: "hmm"}), "Que tipo de projeto")
}

func TestFallbackReply(t *testing.T) {
	assert.True(t, strings.HasPrefix(FallbackReply("qual o valor?", ""), "Oi Cliente! Nossos preços são:"))
	assert.Contains(t, FallbackReply("quero um site", "Ana"), "Posso te ajudar com isso sim")
	assert.Contains(t, FallbackReply("boa noite", "Ana"), "Sou a Sara")
	assert.Contains(t, FallbackReply("hmm", "Ana"), "Para te ajudar da melhor forma")
}

func TestSentimentAndActions(t *testing.T) {
	assert.Equal(t, SentimentPositive, Sentiment("Perfeito! 🚀"))
	assert.Equal(t, SentimentNeutral, Sentiment("Qual seu prazo?"))
	assert.Equal(t, SentimentNeutral, Sentiment("Me conta mais"))
	assert.Equal(t, SentimentPositive, Sentiment("Certo."))

	assert.Equal(t, []string{"Solicitar Proposta", "Agendar Call"}, SuggestedActions(4))
	assert.Equal(t, []string{"Ver Portfólio", "Conhecer Serviços"}, SuggestedActions(2))
	assert.Equal(t, []string{"Ver Exemplos", "Saber Mais"}, SuggestedActions(0))
}
