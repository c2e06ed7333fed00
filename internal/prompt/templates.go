package prompt

import (
	"fmt"
	"sara-smart-go/internal/model"
	"strings"
)

const priceTable = "🎯 **Landing Pages:** R$ 500-1.000\n" +
	"🎨 **Portfólios:** R$ 400-800\n" +
	"🛍️ **E-commerce:** R$ 1.200-2.500\n" +
	"🌐 **Sites Completos:** R$ 800-2.000\n"

// TemplateInput 是模板回复的输入。
type TemplateInput struct {
	Intent  model.Intent
	Message string
	Name    string
	// Greeting 是按时段生成的问候语，为空时使用默认问候。
	Greeting string
	// ObjectionReply 是知识库中对应异议的标准回复。
	ObjectionReply string
}

// TemplateReply 在没有可用 LLM 时按意图和关键词生成确定性的回复。
func TemplateReply(in TemplateInput) string {
	lower := strings.ToLower(strings.TrimSpace(in.Message))
	name := displayName(in.Name)

	switch {
	case in.Intent == model.IntentFarewell:
		return fmt.Sprintf("Foi um prazer conversar com você, %s! 😊\n\n"+
			"Quando quiser retomar, é só me chamar aqui. Até logo! 🚀", name)
	case in.Intent == model.IntentThanks:
		return fmt.Sprintf("Eu que agradeço, %s! 😊\n\nPosso te ajudar com mais alguma coisa?", name)
	case containsAny(lower, "quero", "preciso") && strings.Contains(lower, "loja") && strings.Contains(lower, "roupas"):
		return fmt.Sprintf("Perfeito, %s! Loja de roupas é um segmento incrível! 👗✨\n\n"+
			"Para lojas de moda online, recomendo um e-commerce completo com:\n\n"+
			"🛍️ **Funcionalidades Essenciais:**\n"+
			"• Catálogo organizado por categoria/marca\n"+
			"• Sistema de filtros (tamanho, cor, preço)\n"+
			"• Carrinho de compras otimizado\n"+
			"• Integração com redes sociais\n"+
			"• Área administrativa para controle de estoque\n\n"+
			"💰 **Investimento:** R$ 1.200-2.500\n"+
			"⏰ **Prazo:** 10-15 dias\n\n"+
			"Qual seu orçamento disponível para esse projeto?", name)
	case strings.Contains(lower, "restaurante"):
		return fmt.Sprintf("Que ótimo, %s! Restaurante é um segmento que vende muito online! 🍕\n\n"+
			"Para restaurantes, recomendo:\n"+
			"• Cardápio digital interativo\n"+
			"• Sistema de pedidos online\n"+
			"• Integração com delivery\n"+
			"• Área de reservas\n\n"+
			"💰 **Investimento:** R$ 800-1.800\n"+
			"⏰ **Prazo:** 7-12 dias\n\n"+
			"Qual seu orçamento disponível?", name)
	case containsAny(lower, "qual seu nome", "quem é você", "quem e voce"):
		return fmt.Sprintf("Oi %s! Eu sou a Sara! 😊\n\n"+
			"Sou especialista em marketing digital da Ronald Digital. "+
			"Meu trabalho é te ajudar a criar sites incríveis que realmente vendem!\n\n"+
			"Como posso te ajudar hoje?", name)
	case in.Intent == model.IntentObjection && in.ObjectionReply != "":
		return in.ObjectionReply
	case containsAny(lower, "preço", "preco", "valor", "custa"):
		return fmt.Sprintf("Ótima pergunta, %s! 💰 Nossos preços são super justos:\n\n%s\n"+
			"✨ **Parcelamos em até 3x sem juros!**\n\n"+
			"Que tipo de projeto você precisa?", name, priceTable)
	case containsAny(lower, "quero", "preciso", "site"):
		return fmt.Sprintf("Que ótimo, %s! Fico feliz em te ajudar! 🚀\n\n"+
			"Para criar a proposta perfeita, me conta:\n"+
			"• Que tipo de negócio você tem?\n"+
			"• Qual seu orçamento disponível?\n"+
			"• Para quando você precisa?\n\n"+
			"Com essas informações, posso criar algo incrível para você!", name)
	case in.Intent == model.IntentGreeting || containsAny(lower, "olá", "boa tarde"):
		greeting := in.Greeting
		if greeting == "" {
			greeting = fmt.Sprintf("Oi %s! Que bom te conhecer! 😊", name)
		}
		return greeting + "\n\nSou a Sara, especialista em criar sites que realmente vendem!\n\n" +
			"Como posso te ajudar hoje? Precisa de:\n• Site profissional?\n• Landing page?\n• E-commerce?"
	}
	return fmt.Sprintf("Oi %s! 😊\n\n"+
		"Para te ajudar da melhor forma, me conta:\n"+
		"• Que tipo de projeto você precisa?\n"+
		"• Para que tipo de negócio?\n\n"+
		"Assim posso criar a proposta perfeita para você! 🚀", name)
}

// FallbackReply 是处理流程出错时的兜底回复。
func FallbackReply(message, name string) string {
	lower := strings.ToLower(message)
	reply := fmt.Sprintf("Oi %s! ", displayName(name))

	switch {
	case containsAny(lower, "preço", "valor", "custa"):
		reply += "Nossos preços são:\n\n" +
			"🎯 Landing Pages: R$ 500-1.000\n" +
			"🎨 Portfólios: R$ 400-800\n" +
			"🛍️ E-commerce: R$ 1.200-2.500\n" +
			"🌐 Sites Completos: R$ 800-2.000\n\n" +
			"Parcelamos em até 3x sem juros! Que tipo de projeto você precisa?"
	case containsAny(lower, "site", "landing", "loja"):
		reply += "Legal! Posso te ajudar com isso sim! 🚀\n\n" +
			"Para criar a proposta perfeita, me conta:\n" +
			"• Que tipo de negócio você tem?\n" +
			"• Qual seu orçamento disponível?\n" +
			"• Para quando você precisa?\n\n" +
			"Com essas informações, vou te ajudar a escolher a melhor solução!"
	case containsAny(lower, "oi", "olá", "boa"):
		reply += "Que bom te ver por aqui! 😊\n\n" +
			"Sou a Sara, especialista em criar sites que realmente vendem!\n\n" +
			"Como posso te ajudar hoje? Precisa de:\n" +
			"• Site profissional?\n• Landing page?\n• E-commerce?\n• Portfólio?"
	default:
		reply += "Para te ajudar da melhor forma, me conta:\n" +
			"• Que tipo de projeto você precisa?\n" +
			"• Para que tipo de negócio?\n\n" +
			"Assim posso criar a proposta perfeita para você! 🚀"
	}
	return reply
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Cliente"
}
