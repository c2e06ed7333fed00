package service

import (
	"fmt"
	"sara-smart-go/internal/model"
	"strings"
)

func buildSEOPrompt(pageURL string, s model.SiteSnapshot) string {
	var headings strings.Builder
	for _, h := range s.Headings {
		fmt.Fprintf(&headings, "%s: %s\n", strings.ToUpper(h.Tag), h.Text)
	}

	return fmt.Sprintf(`Você é um Analista de SEO e Experiência Digital altamente qualificado. Analise o site e apresente um diagnóstico profissional, claro e persuasivo.

SITE ANALISADO: %s

DADOS TÉCNICOS COLETADOS:
- Tempo de carregamento: %dms
- HTTPS: %s
- Responsivo: %s
- Título: "%s"
- Meta Description: "%s"
- Headings encontrados: %d
- Imagens: %d
- Links internos: %d
- Erros: %d

ESTRUTURA DE HEADINGS:
%s
IMAGENS SEM ALT TEXT:
%d de %d

Retorne um relatório dividido em 5 seções:

## 📋 Resumo Geral
- Introdução sobre a análise
- Nota geral (0-100) baseada em SEO, velocidade e UX
- Tom profissional e motivador

## ⚡ Desempenho Técnico
- Velocidade, responsividade, HTTPS, erros
- Impacto no ranqueamento Google
- Explicação simples

## 🎯 SEO On-page
- Título, meta description, palavras-chave, headings
- Otimização para buscadores
- Sugestões práticas

## 🎨 Design e Experiência do Usuário
- Clareza visual, hierarquia, CTAs
- Melhorias para conversão
- Confiança do visitante

## 🏆 Autoridade e Credibilidade Online
- Presença digital, domínio, aparência profissional
- Transmissão de autoridade

FINALIZE com chamada para ação suave sobre implementar melhorias.

Use linguagem natural, emojis sutis, bullets visuais. Seja específico e prático, não genérico.
`,
		pageURL, s.LoadTimeMs, simNao(s.HasHTTPS), simNao(s.Responsive), s.Title, s.MetaDescription,
		len(s.Headings), len(s.Images), len(s.Links), len(s.Errors),
		headings.String(), s.ImagesWithoutAlt(), len(s.Images))
}

func simNao(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

// pick 按条件二选一，仅用于拼装报告文本。
func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

const seoClosingCTA = "💡 **Se quiser, posso te ajudar a implementar essas melhorias e deixar seu site 100% otimizado e moderno."

// FallbackAnalysis 在没有可用 LLM 时生成报告。snap 为 nil 表示网站无法访问。
func FallbackAnalysis(pageURL string, snap *model.SiteSnapshot) string {
	if snap == nil {
		return fmt.Sprintf(`## 📋 Resumo Geral

Analisei o site **%s** e identifiquei algumas oportunidades de melhoria importantes.

**Nota Geral: 60/100** ⚠️

Seu site tem potencial, mas precisa de otimizações para melhorar o desempenho nos buscadores e a experiência dos visitantes.

## ⚡ Desempenho Técnico

• **Acessibilidade:** Não foi possível acessar completamente o site
• **Recomendação:** Verificar se o site está online e acessível
• **Impacto:** Sites inacessíveis não são indexados pelo Google

## 🎯 SEO On-page

• **Análise limitada:** Não foi possível extrair dados completos
• **Sugestão:** Implementar título otimizado e meta description
• **Foco:** Usar palavras-chave relevantes para seu negócio

## 🎨 Design e Experiência do Usuário

• **Responsividade:** Verificar se funciona bem no celular
• **Velocidade:** Otimizar imagens e código para carregamento rápido
• **CTAs:** Incluir botões claros de ação

## 🏆 Autoridade e Credibilidade Online

• **Domínio:** Usar HTTPS para transmitir segurança
• **Conteúdo:** Manter informações atualizadas e relevantes
• **Contato:** Incluir formas claras de contato

---

%s**`, pageURL, seoClosingCTA)
	}

	s := *snap
	score := SEOScore(s)
	emoji := "🔥"
	if score < 70 {
		emoji = "⚠️"
	}
	if score < 50 {
		emoji = "🚨"
	}

	var verdict string
	switch {
	case score >= 80:
		verdict = "Parabéns! Seu site está bem otimizado, mas sempre há espaço para melhorias."
	case score >= 60:
		verdict = "Seu site tem uma base sólida, mas precisa de algumas otimizações importantes."
	default:
		verdict = "Seu site precisa de melhorias urgentes para competir no mercado digital."
	}

	speed := "🚨"
	if s.LoadTimeMs < 2000 {
		speed = "✅"
	} else if s.LoadTimeMs < 4000 {
		speed = "⚠️"
	}

	hasTitle := s.Title != model.MissingTitle
	hasDescription := s.MetaDescription != model.MissingDescription
	missingAlt := s.ImagesWithoutAlt()

	var b strings.Builder
	fmt.Fprintf(&b, "## 📋 Resumo Geral\n\nAnalisei completamente o site **%s** e preparei um diagnóstico detalhado para você.\n\n", pageURL)
	fmt.Fprintf(&b, "**Nota Geral: %d/100** %s\n\n%s\n\n", score, emoji, verdict)

	b.WriteString("## ⚡ Desempenho Técnico\n\n")
	fmt.Fprintf(&b, "• **Velocidade:** %dms %s\n", s.LoadTimeMs, speed)
	fmt.Fprintf(&b, "• **HTTPS:** %s\n", pick(s.HasHTTPS, "✅ Seguro", "🚨 Não seguro - Urgente!"))
	fmt.Fprintf(&b, "• **Responsivo:** %s\n", pick(s.Responsive, "✅ Mobile-friendly", "🚨 Não otimizado para celular"))
	fmt.Fprintf(&b, "• **Impacto:** %s\n\n", pick(!s.HasHTTPS || !s.Responsive,
		"Google penaliza sites sem HTTPS e não responsivos", "Boa base técnica para SEO"))

	b.WriteString("## 🎯 SEO On-page\n\n")
	fmt.Fprintf(&b, "• **Título:** %s - \"%s\"\n", pick(hasTitle, "✅ Presente", "🚨 Ausente"), s.Title)
	fmt.Fprintf(&b, "• **Meta Description:** %s\n", pick(hasDescription, "✅ Presente", "🚨 Ausente"))
	fmt.Fprintf(&b, "• **Estrutura H1:** %s\n", pick(s.CountHeadings("h1") == 1, "✅ Correta", "⚠️ Precisa ajustar"))
	fmt.Fprintf(&b, "• **Headings:** %d encontrados\n", len(s.Headings))
	fmt.Fprintf(&b, "• **Otimização:** %s\n\n", pick(hasTitle && hasDescription,
		"Base boa, refinar palavras-chave", "Implementar SEO básico urgente"))

	b.WriteString("## 🎨 Design e Experiência do Usuário\n\n")
	fmt.Fprintf(&b, "• **Imagens:** %d encontradas\n", len(s.Images))
	fmt.Fprintf(&b, "• **Alt Text:** %d/%d otimizadas\n", len(s.Images)-missingAlt, len(s.Images))
	fmt.Fprintf(&b, "• **Links Internos:** %d identificados\n", len(s.Links))
	fmt.Fprintf(&b, "• **Acessibilidade:** %s\n\n", pick(missingAlt == 0, "✅ Boa", "⚠️ Melhorar alt text das imagens"))

	b.WriteString("## 🏆 Autoridade e Credibilidade Online\n\n")
	fmt.Fprintf(&b, "• **Domínio:** %s\n", pick(s.HasHTTPS, "✅ Seguro e confiável", "🚨 Sem certificado SSL"))
	fmt.Fprintf(&b, "• **Estrutura:** %s\n", pick(len(s.Headings) > 3, "✅ Bem organizada", "⚠️ Melhorar hierarquia"))
	fmt.Fprintf(&b, "• **Profissionalismo:** %s\n\n", pick(score >= 70, "Transmite confiança", "Precisa melhorar aparência profissional"))

	b.WriteString("---\n\n")
	b.WriteString(seoClosingCTA)
	b.WriteString(" Com as correções certas, seu site pode subir significativamente no Google!**")
	return b.String()
}
