package service

import (
	"context"
	"errors"
	"sara-smart-go/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greetingIntent() model.IntentResult {
	return model.IntentResult{Intent: model.IntentGreeting, Methodology: model.MethodologyDirect, Confidence: 90}
}

func TestComposeTemplatesWithoutCompleter(t *testing.T) {
	c := NewComposer(nil, NewKnowledgeService(t.TempDir()))
	out := c.Compose(context.Background(), ComposeInput{
		Message: "Oi!",
		Profile: model.LeadProfile{Name: "Ana", Email: "ana@x.com", Score: 1},
		Intent:  greetingIntent(),
	})

	assert.False(t, out.FromLLM)
	assert.Equal(t, ModelTemplates, out.ModelUsed)
	assert.Zero(t, out.Cost)
	assert.Contains(t, string(out.Reply.Response), "Oi! Que bom te ver por aqui! 😊")
	assert.Contains(t, string(out.Reply.Response), "Sou a Sara")
	assert.Equal(t, "1", string(out.Reply.LeadScore))
	assert.Equal(t, "direta", string(out.Reply.Methodology))
}

func TestComposeWithLLM(t *testing.T) {
	completer := &fakeCompleter{
		provider: "openai",
		replies: []string{`{"resposta": "Legal! Qual o seu orçamento?",
			"dados_extraidos": {"tipo_projeto": "landing page", "negocio": "padaria"},
			"lead_score": 2, "proxima_acao": "qualificar", "metodologia_aplicada": "bant"}`},
	}
	c := NewComposer(completer, NewKnowledgeService(t.TempDir()))
	out := c.Compose(context.Background(), ComposeInput{
		Message:  "Quanto custa uma landing page?",
		Profile:  model.LeadProfile{Name: "Ana"},
		Intent:   model.IntentResult{Intent: model.IntentBudgetRequest, Methodology: model.MethodologyBANT},
		Priority: &PriorityMatch{Description: "Cliente pronto para comprar", Example: "Vamos fechar!"},
		Agent:    &AgentMatch{Agent: "konrath", Methodology: "bant", Persona: SalesPersona{Role: "Qualificador BANT"}},
	})

	require.True(t, out.FromLLM)
	assert.Equal(t, "openai", out.ModelUsed)
	assert.InDelta(t, 0.001, out.Cost, 1e-9)
	assert.Equal(t, "Legal! Qual o seu orçamento?", string(out.Reply.Response))
	assert.Equal(t, model.ProjectLandingPage, out.Reply.Extracted.Profile().ProjectType)
	assert.Equal(t, "qualificar", string(out.Reply.NextAction))

	require.Equal(t, 1, completer.callCount())
	system := completer.calls[0][0].Content
	assert.Contains(t, system, "## ESPECIALISTA ATIVO")
	assert.Contains(t, system, "- Metodologia: BANT")
	assert.Contains(t, system, "- Papel: Qualificador BANT")
	assert.Contains(t, system, `Prioridade máxima: Cliente pronto para comprar (exemplo: "Vamos fechar!")`)
	last := completer.calls[0][len(completer.calls[0])-1]
	assert.Contains(t, last.Content, "Quanto custa uma landing page?")
}

func TestComposeFallsBackToTemplates(t *testing.T) {
	cases := map[string]*fakeCompleter{
		"error": {err: errors.New("quota")},
		"empty": {replies: []string{"   "}},
	}
	for name, completer := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewComposer(completer, NewKnowledgeService(t.TempDir()))
			out := c.Compose(context.Background(), ComposeInput{Message: "oi", Intent: greetingIntent()})
			assert.Equal(t, 1, completer.callCount())
			assert.False(t, out.FromLLM)
			assert.Equal(t, ModelTemplates, out.ModelUsed)
			assert.NotEmpty(t, out.Reply.Response)
		})
	}
}

func TestComposeUsesObjectionReply(t *testing.T) {
	c := NewComposer(nil, NewKnowledgeService(t.TempDir()))
	out := c.Compose(context.Background(), ComposeInput{
		Message: "Achei caro demais",
		Intent:  model.IntentResult{Intent: model.IntentObjection, Methodology: model.MethodologyValueFirst},
	})
	assert.Contains(t, string(out.Reply.Response), "se trouxer 2 clientes novos")
}
