package prompt

import (
	"encoding/json"
	"regexp"
	"strings"
)

const maxExamples = 3

// Example 是一段示范对话。
type Example struct {
	ID        string
	Situation string
	User      string
	Answer    ExampleAnswer
	Reasoning string
}

// ExampleAnswer 是示范回复，序列化后与模型应返回的 JSON 结构一致。
type ExampleAnswer struct {
	Response    string            `json:"resposta"`
	Extracted   map[string]string `json:"dados_extraidos"`
	LeadScore   int               `json:"lead_score"`
	NextAction  string            `json:"proxima_acao"`
	Methodology string            `json:"metodologia_aplicada"`
}

// AssistantJSON 返回示范回复的 JSON 文本。
func (e Example) AssistantJSON() string {
	data, err := json.MarshalIndent(e.Answer, "", "  ")
	if err != nil {
		return e.Answer.Response
	}
	return string(data)
}

var examples = []Example{
	{
		ID:        "produto_nao_vendido",
		Situation: "Cliente pergunta sobre produto/serviço que não oferecemos",
		User:      "Vocês fazem computadores?",
		Answer: ExampleAnswer{
			Response: "Não, a gente não trabalha com hardware! Somos especializados em criar sites, landing pages e lojas online. 😊\n\n" +
				"Mas posso te ajudar se você precisa de um site para vender computadores! É esse o caso?",
			Extracted:   map[string]string{},
			LeadScore:   1,
			NextAction:  "descobrir_necessidade",
			Methodology: "direta",
		},
		Reasoning: "Respondeu diretamente 'não', explicou o que fazemos e redirecionou para a necessidade real",
	},
	{
		ID:        "interesse_vago",
		Situation: "Cliente demonstra interesse mas sem clareza sobre o que precisa",
		User:      "Quero um site para minha loja de roupas",
		Answer: ExampleAnswer{
			Response: "Que legal! Loja de roupas tem tudo para vender bem online! 👗✨\n\nPara te ajudar melhor, me conta:\n" +
				"• Você quer um catálogo para mostrar as peças ou vender diretamente online?\n" +
				"• Já tem as fotos dos produtos?\n• Qual seu prazo ideal?\n\nAh, e qual seu nome? 😊",
			Extracted:   map[string]string{"tipo_projeto": "e-commerce", "negocio": "loja de roupas"},
			LeadScore:   2,
			NextAction:  "qualificar",
			Methodology: "spin",
		},
		Reasoning: "Demonstrou entusiasmo, fez perguntas SPIN e pediu o nome de forma natural",
	},
	{
		ID:        "lead_quente_orcamento",
		Situation: "Cliente com necessidade clara pedindo preço e prazo",
		User:      "Preciso de um e-commerce urgente. Quanto custa e quanto tempo leva?",
		Answer: ExampleAnswer{
			Response: "Perfeito! Adoro projetos com foco! 🚀\n\n**E-commerce completo:**\n" +
				"💰 Investimento: R$ 1.200-2.500 (parcelamos em 3x)\n⏰ Prazo normal: 10-15 dias\n⚡ Urgente: 7 dias (+20%)\n\n" +
				"Para dar um valor exato: quantos produtos inicialmente e qual seu orçamento disponível?\n\n" +
				"Qual seu nome e email para eu enviar uma proposta detalhada?",
			Extracted:   map[string]string{"tipo_projeto": "e-commerce", "prazo": "urgente"},
			LeadScore:   3,
			NextAction:  "fechar",
			Methodology: "bant",
		},
		Reasoning: "Respondeu direto com preço e prazo e aplicou BANT naturalmente",
	},
	{
		ID:        "objecao_preco",
		Situation: "Cliente acha preço alto ou menciona concorrência mais barata",
		User:      "Achei caro. Vi por R$ 300 em outro lugar.",
		Answer: ExampleAnswer{
			Response: "Entendo sua preocupação com investimento! É super válido comparar. 💡\n\nA diferença está no que entregamos:\n" +
				"• Sites otimizados para CONVERSÃO (não só bonitos)\n• Suporte especializado por 6 meses\n• Parcelamento em 3x\n\n" +
				"Um cliente meu investiu R$ 800 em landing page e recuperou em 2 vendas.\n\n" +
				"Que tal uma call de 15min para eu te mostrar cases reais? Qual seu WhatsApp?",
			Extracted:   map[string]string{"orcamento": "300-800"},
			LeadScore:   2,
			NextAction:  "nutrir",
			Methodology: "value_first",
		},
		Reasoning: "Validou a objeção, demonstrou valor com caso de sucesso e propôs próximo passo",
	},
	{
		ID:        "duvida_tecnica",
		Situation: "Cliente pergunta sobre aspectos técnicos do serviço",
		User:      "O site vai ter integração com Instagram e WhatsApp?",
		Answer: ExampleAnswer{
			Response: "Com certeza! Essas integrações são essenciais hoje em dia! 📱\n\n**Integrações padrão:**\n" +
				"✅ Feed do Instagram\n✅ Botão WhatsApp flutuante\n✅ Links para redes sociais\n\n" +
				"Que tipo de integração você precisa especificamente? E para que tipo de negócio é o site?",
			Extracted:   map[string]string{},
			LeadScore:   2,
			NextAction:  "qualificar",
			Methodology: "spin",
		},
		Reasoning: "Respondeu de forma acessível e redirecionou para descoberta",
	},
	{
		ID:        "saudacao_inicial",
		Situation: "Primeira mensagem do cliente (cumprimento genérico)",
		User:      "Oi, boa tarde!",
		Answer: ExampleAnswer{
			Response: "Oi! Boa tarde! Que bom te ver por aqui! 😊\n\nSou a Sara, especialista em criar sites que realmente vendem!\n\n" +
				"Como posso te ajudar hoje? Você precisa de:\n• Site profissional?\n• Landing page para captar leads?\n" +
				"• E-commerce para vender online?\n• Portfólio para mostrar seus trabalhos?",
			Extracted:   map[string]string{},
			LeadScore:   0,
			NextAction:  "descobrir_necessidade",
			Methodology: "direta",
		},
		Reasoning: "Cumprimentou de volta, apresentou-se e ofereceu opções claras",
	},
	{
		ID:        "fornecendo_informacoes",
		Situation: "Cliente está respondendo perguntas da Sara (conversa em andamento)",
		User:      "Tenho uns R$ 1.500 disponíveis e preciso para daqui 2 semanas",
		Answer: ExampleAnswer{
			Response: "Perfeito! Com R$ 1.500 e 2 semanas, temos várias opções excelentes! 🎯\n\n**Recomendo:**\n" +
				"1. **E-commerce Inicial** (R$ 1.400)\n2. **Site Completo + Landing Page** (R$ 1.500)\n3. **Landing Page Premium** (R$ 900)\n\n" +
				"Qual seu nome e email? Vou preparar uma proposta detalhada com cronograma! 📋",
			Extracted:   map[string]string{"tipo_projeto": "e-commerce", "orcamento": "1500", "prazo": "2-semanas", "negocio": "loja de roupas"},
			LeadScore:   4,
			NextAction:  "fechar",
			Methodology: "bant",
		},
		Reasoning: "Usou contexto anterior, apresentou opções dentro do orçamento e pediu dados para fechar",
	},
}

var priceMentionRe = regexp.MustCompile(`r?\$?\s*\d{2,3}\s*(?:reais)?`)

// ExampleByID 按 id 查找示范对话。
func ExampleByID(id string) (Example, bool) {
	for _, ex := range examples {
		if ex.ID == id {
			return ex, true
		}
	}
	return Example{}, false
}

// RelevantExamples 挑选与当前消息相关的示范，最多 3 条；都不相关时返回默认的 3 条。
func RelevantExamples(message string, messageCount int) []Example {
	lower := strings.ToLower(message)
	var ids []string
	if messageCount == 0 {
		ids = append(ids, "saudacao_inicial")
	}
	if strings.Contains(lower, "caro") || strings.Contains(lower, "barato") || priceMentionRe.MatchString(lower) {
		ids = append(ids, "objecao_preco")
	}
	if containsAny(lower, "integra", "funciona", "whatsapp", "instagram") {
		ids = append(ids, "duvida_tecnica")
	}
	if (strings.Contains(lower, "quanto") && strings.Contains(lower, "custa")) || strings.Contains(lower, "preço") {
		ids = append(ids, "lead_quente_orcamento")
	}
	if containsAny(lower, "quero", "preciso") {
		ids = append(ids, "interesse_vago")
	}
	if len(ids) == 0 {
		ids = []string{"saudacao_inicial", "interesse_vago", "lead_quente_orcamento"}
	}
	if len(ids) > maxExamples {
		ids = ids[:maxExamples]
	}

	out := make([]Example, 0, len(ids))
	for _, id := range ids {
		if ex, ok := ExampleByID(id); ok {
			out = append(out, ex)
		}
	}
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
