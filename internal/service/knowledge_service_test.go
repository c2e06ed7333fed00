package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestKnowledgeDefaults(t *testing.T) {
	kb := NewKnowledgeService(t.TempDir())

	stats := kb.Stats()
	assert.False(t, stats.MaestroLoaded)
	assert.False(t, stats.PersonalityLoaded)
	assert.Equal(t, 3, stats.PersonasLoaded)

	assert.Contains(t, kb.CompanyKnowledge(), "SERVIÇOS RONALD DIGITAL")
	assert.True(t, kb.OffersService("landing"))
	assert.True(t, kb.NotOffering("hardware"))
	assert.False(t, kb.NotOffering(""))

	m, ok := kb.SelectSpecialist("Quanto custa um site?")
	require.True(t, ok)
	assert.Equal(t, "konrath", m.Agent)
	assert.Equal(t, "bant", m.Methodology)
	assert.Equal(t, "Qualificador BANT", m.Persona.Role)

	m, ok = kb.SelectSpecialist("Não sei o que preciso")
	require.True(t, ok)
	assert.Equal(t, "rackham", m.Agent)

	_, ok = kb.SelectSpecialist("oi")
	assert.False(t, ok)
	_, ok = kb.CheckMaxPriority("quero comprar agora")
	assert.False(t, ok)

	assert.Contains(t, kb.ObjectionReply("achei caro"), "2 clientes")
	assert.Contains(t, kb.ObjectionReply("vou pensar"), "3 vagas")
	assert.Equal(t, "Oi! Que bom te ver por aqui! 😊", kb.Greeting(time.Now()))
	assert.NotEmpty(t, kb.SPINQuestions().Situation)
	assert.NotEmpty(t, kb.BANTQuestions().Budget)
	assert.Len(t, kb.ObjectionHandling(), 2)
}

func TestKnowledgeLoadsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "maestro.json", `{
  "conhecimento_empresa": {
    "servicos_oferecidos": ["Landing Pages", "Lojas virtuais"],
    "nao_oferecemos": ["Aplicativos nativos"],
    "diferenciais": ["Entrega rápida"]
  },
  "regras_de_prioridade": {
    "prioridade_maxima": {
      "gatilhos": ["quero fechar"],
      "acao": "fechar_venda",
      "descricao": "Cliente pronto para comprar",
      "exemplo_resposta": "Perfeito! Vamos fechar."
    }
  },
  "agentes_especialistas": {
    "konrath": {"gatilhos": ["orçamento"], "metodologia": "bant", "quando_usar": "pedido de preço"},
    "rackham": {"gatilhos": ["dúvida"], "metodologia": "spin", "quando_usar": "cliente indeciso"}
  }
}`)
	writeFile(t, dir, "sara_personality.json", `{
  "personalidade": {"core_traits": ["empática"], "tom_de_voz": {"formal": 20, "casual": 80}},
  "respostas_inteligentes": {"saudacoes": {"tarde": ["Boa tarde! Tudo bem?"]}},
  "estrategias_conversa": {"tratamento_objecoes": {
    "preco_alto": {"tecnica": "ROI", "resposta_modelo": "Vale cada centavo!"}
  }}
}`)
	writeFile(t, dir, "persona_rackham.json", `{
  "role": "Consultor",
  "methodology": "SPIN",
  "perguntas_spin": {"situacao": "Como funciona hoje?", "problema": "O que atrapalha?",
    "implicacao": "Quanto isso custa?", "necessidade_solucao": "E se resolvesse?"}
}`)

	kb := NewKnowledgeService(dir)
	kb.(*knowledgeService).pick = func(int) int { return 0 }

	stats := kb.Stats()
	assert.True(t, stats.MaestroLoaded)
	assert.True(t, stats.PersonalityLoaded)
	assert.Equal(t, 2, stats.ServicesCount)
	assert.True(t, stats.HasSmartResponses)

	assert.Contains(t, kb.CompanyKnowledge(), "- Lojas virtuais")
	assert.Contains(t, kb.CompanyKnowledge(), "## NÃO OFERECEMOS\n- Aplicativos nativos")
	assert.True(t, kb.NotOffering("aplicativos"))

	p, ok := kb.CheckMaxPriority("Quero FECHAR hoje")
	require.True(t, ok)
	assert.Equal(t, "fechar_venda", p.Action)
	assert.Equal(t, "Perfeito! Vamos fechar.", p.Example)

	m, ok := kb.SelectSpecialist("tenho uma dúvida sobre orçamento")
	require.True(t, ok)
	// 代理按名称排序，konrath 先于 rackham
	assert.Equal(t, "konrath", m.Agent)

	assert.Equal(t, "Como funciona hoje?", kb.SPINQuestions().Situation)
	assert.Equal(t, "Vale cada centavo!", kb.ObjectionReply("muito caro"))
	assert.Equal(t, "", kb.ObjectionReply("vou pensar"))

	afternoon := time.Date(2024, 1, 1, 15, 0, 0, 0, time.Local)
	assert.Equal(t, "Boa tarde! Tudo bem?", kb.Greeting(afternoon))
	night := time.Date(2024, 1, 1, 21, 0, 0, 0, time.Local)
	assert.Equal(t, "Oi! Que bom te ver por aqui! 😊", kb.Greeting(night))

	assert.Equal(t, 20, kb.Persona().Formal)
}

func TestKnowledgeReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	kb := NewKnowledgeService(dir)
	assert.False(t, kb.Stats().MaestroLoaded)

	writeFile(t, dir, "maestro.json", `{"conhecimento_empresa": {"servicos_oferecidos": ["Sites"]}}`)
	assert.Error(t, kb.Reload(), "missing personality files are still reported")
	assert.True(t, kb.Stats().MaestroLoaded)
	assert.Equal(t, 1, kb.Stats().ServicesCount)
}
