package model

// Intent 是一条用户消息被识别出的意图，取值为固定集合。
type Intent string

const (
	IntentGreeting         Intent = "saudacao"
	IntentFarewell         Intent = "despedida"
	IntentThanks           Intent = "agradecimento"
	IntentBudgetRequest    Intent = "pedido_orcamento"
	IntentObjection        Intent = "objecao"
	IntentTechnicalDoubt   Intent = "duvida_tecnica"
	IntentBusinessQuestion Intent = "pergunta_direta_negocio"
	IntentExpressInterest  Intent = "expressa_interesse"
	IntentProvidesInfo     Intent = "fornece_info"
)

// AllIntents 按规则分类器的优先级排列。
var AllIntents = []Intent{
	IntentGreeting,
	IntentFarewell,
	IntentThanks,
	IntentBudgetRequest,
	IntentObjection,
	IntentTechnicalDoubt,
	IntentBusinessQuestion,
	IntentExpressInterest,
	IntentProvidesInfo,
}

// Valid 判断意图是否属于已知集合。
func (i Intent) Valid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// Methodology 是针对某个意图推荐使用的销售方法论。
type Methodology string

const (
	MethodologyDirect     Methodology = "direta"
	MethodologySPIN       Methodology = "spin"
	MethodologyBANT       Methodology = "bant"
	MethodologyValueFirst Methodology = "value_first"
	// MethodologyFallback 仅用于兜底回复，不会由分类器产生。
	MethodologyFallback Methodology = "fallback"
)

// Valid 只接受分类器可以产生的四种方法论。
func (m Methodology) Valid() bool {
	switch m {
	case MethodologyDirect, MethodologySPIN, MethodologyBANT, MethodologyValueFirst:
		return true
	}
	return false
}

// IntentSource 标记意图结果的来源。
type IntentSource string

const (
	SourceRules IntentSource = "rules"
	SourceLLM   IntentSource = "llm"
)

// IntentResult 是意图识别的输出。
type IntentResult struct {
	Intent      Intent       `json:"intent"`
	Methodology Methodology  `json:"methodology"`
	Confidence  int          `json:"confidence"`
	Reason      string       `json:"reason"`
	Source      IntentSource `json:"source"`
}
