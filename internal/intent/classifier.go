package intent

import "sara-smart-go/internal/model"

// Context 是意图识别时可用的会话上下文。
type Context struct {
	MessageCount int
	PriorScore   int
}

// 低于该阈值的规则结果会交给 LLM 复核。
const DefaultThreshold = 80

type rule struct {
	category   Category
	intent     model.Intent
	confidence int
	reason     string
}

// 顺序即优先级，先命中先返回。
var rules = []rule{
	{CategoryGreeting, model.IntentGreeting, 90, "Detectado cumprimento inicial"},
	{CategoryFarewell, model.IntentFarewell, 95, "Detectada despedida"},
	{CategoryThanks, model.IntentThanks, 90, "Detectado agradecimento"},
	{CategoryBudgetRequest, model.IntentBudgetRequest, 85, "Detectada pergunta sobre preço/prazo"},
	{CategoryObjection, model.IntentObjection, 80, "Detectada objeção ou preocupação"},
	{CategoryTechnical, model.IntentTechnicalDoubt, 75, "Detectada pergunta técnica"},
	{CategoryBusinessQuestion, model.IntentBusinessQuestion, 80, "Detectada pergunta sobre serviços"},
	{CategoryInterest, model.IntentExpressInterest, 70, "Detectado interesse em serviço"},
}

// MethodologyFor 返回意图对应的推荐方法论。
func MethodologyFor(i model.Intent) model.Methodology {
	switch i {
	case model.IntentBudgetRequest:
		return model.MethodologyBANT
	case model.IntentObjection:
		return model.MethodologyValueFirst
	case model.IntentExpressInterest, model.IntentProvidesInfo:
		return model.MethodologySPIN
	case model.IntentGreeting, model.IntentFarewell, model.IntentThanks,
		model.IntentTechnicalDoubt, model.IntentBusinessQuestion:
		return model.MethodologyDirect
	}
	return model.MethodologySPIN
}

// Classify 基于关键词规则识别意图，总能返回结果。
func Classify(message string, ctx Context) model.IntentResult {
	normalized := Normalize(message)
	for _, r := range rules {
		if Matches(r.category, normalized) {
			return model.IntentResult{
				Intent:      r.intent,
				Methodology: MethodologyFor(r.intent),
				Confidence:  r.confidence,
				Reason:      r.reason,
				Source:      model.SourceRules,
			}
		}
	}

	if ctx.MessageCount > 0 {
		return model.IntentResult{
			Intent:      model.IntentProvidesInfo,
			Methodology: model.MethodologySPIN,
			Confidence:  60,
			Reason:      "Cliente respondendo em conversa ativa",
			Source:      model.SourceRules,
		}
	}
	return model.IntentResult{
		Intent:      model.IntentExpressInterest,
		Methodology: model.MethodologySPIN,
		Confidence:  50,
		Reason:      "Intenção não clara, usando padrão",
		Source:      model.SourceRules,
	}
}
