package intent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/llm"
	"strings"
)

// ErrRefineFailed 表示 LLM 复核失败，调用方应回退到规则结果。
var ErrRefineFailed = errors.New("intent: llm refinement failed")

// Refiner 调用快速模型对意图做二次判断。
type Refiner struct {
	completer llm.Completer
}

// NewRefiner 创建一个 Refiner。
func NewRefiner(completer llm.Completer) *Refiner {
	return &Refiner{completer: completer}
}

type refinedPayload struct {
	Intent      string      `json:"intent"`
	Methodology string      `json:"methodology"`
	Confidence  *llm.Number `json:"confidence"`
	Reason      string      `json:"reason"`
}

// Refine 返回 LLM 判断的意图；任何传输、解析或字段校验失败都包装为 ErrRefineFailed。
func (r *Refiner) Refine(ctx context.Context, message string, ictx Context) (result model.IntentResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrRefineFailed, p)
		}
	}()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: buildRefinePrompt(message, ictx)},
		{Role: llm.RoleUser, Content: "Classifique a intenção"},
	}
	res, err := r.completer.Complete(ctx, messages, llm.CallOptions{Fast: true, Generation: &llm.GenerationParams{
		Temperature: llm.Float64(0.2),
		MaxTokens:   llm.Int(200),
	}})
	if err != nil {
		return model.IntentResult{}, fmt.Errorf("%w: %v", ErrRefineFailed, err)
	}

	var payload refinedPayload
	if err := llm.DecodeJSONObject(res.Content, &payload); err != nil {
		return model.IntentResult{}, fmt.Errorf("%w: %v", ErrRefineFailed, err)
	}
	return validate(payload)
}

func validate(p refinedPayload) (model.IntentResult, error) {
	in := model.Intent(strings.TrimSpace(p.Intent))
	if !in.Valid() {
		return model.IntentResult{}, fmt.Errorf("%w: unknown intent %q", ErrRefineFailed, p.Intent)
	}
	m := model.Methodology(strings.TrimSpace(p.Methodology))
	if !m.Valid() {
		return model.IntentResult{}, fmt.Errorf("%w: unknown methodology %q", ErrRefineFailed, p.Methodology)
	}
	if p.Confidence == nil {
		return model.IntentResult{}, fmt.Errorf("%w: confidence missing", ErrRefineFailed)
	}
	confidence := int(math.Round(float64(*p.Confidence)))
	if confidence < 1 || confidence > 100 {
		return model.IntentResult{}, fmt.Errorf("%w: confidence %v out of range", ErrRefineFailed, float64(*p.Confidence))
	}
	return model.IntentResult{
		Intent:      in,
		Methodology: m,
		Confidence:  confidence,
		Reason:      p.Reason,
		Source:      model.SourceLLM,
	}, nil
}

func buildRefinePrompt(message string, ictx Context) string {
	return fmt.Sprintf(`Você é um classificador de intenção para chatbot de vendas.

TIPOS DE INTENÇÃO:
1. pergunta_direta_negocio - Cliente pergunta se fazemos/vendemos algo específico
2. pedido_orcamento - Cliente quer saber preço, prazo, custo
3. expressa_interesse - Cliente diz que quer/precisa de algo
4. objecao - Cliente expressa preocupação (preço alto, precisa pensar, etc)
5. fornece_info - Cliente está respondendo pergunta nossa
6. saudacao - Cumprimento inicial (oi, bom dia, etc)
7. duvida_tecnica - Pergunta sobre funcionamento técnico
8. agradecimento - Cliente agradece
9. despedida - Cliente se despede

CONTEXTO:
- Mensagens trocadas: %d
- Lead score atual: %d/4

MENSAGEM DO CLIENTE:
%q

Responda APENAS com JSON válido:
{
  "intent": "tipo_da_intencao",
  "methodology": "direta|spin|bant|value_first",
  "confidence": 0-100,
  "reason": "explicação breve"
}`, ictx.MessageCount, ictx.PriorScore, message)
}
