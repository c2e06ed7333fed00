package intent

import (
	"context"
	"errors"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/llm"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	content string
	err     error
	calls   int
	lastOpt llm.CallOptions
}

func (s *stubCompleter) Complete(_ context.Context, _ []llm.Message, opts llm.CallOptions) (llm.Result, error) {
	s.calls++
	s.lastOpt = opts
	if s.err != nil {
		return llm.Result{}, s.err
	}
	return llm.Result{Content: s.content, Provider: "stub"}, nil
}

func TestHybridSkipsLLMWhenConfident(t *testing.T) {
	stub := &stubCompleter{content: `{"intent":"objecao","methodology":"value_first","confidence":99,"reason":"x"}`}
	a := NewAnalyzer(ModeHybrid, 80, NewRefiner(stub))

	got := a.Analyze(context.Background(), "Oi, bom dia!", Context{})
	assert.Equal(t, model.IntentGreeting, got.Intent)
	assert.Equal(t, 0, stub.calls)
}

func TestHybridRefinesLowConfidence(t *testing.T) {
	stub := &stubCompleter{content: "```json\n{\"intent\":\"pedido_orcamento\",\"methodology\":\"bant\",\"confidence\":88,\"reason\":\"quer preço\"}\n```"}
	a := NewAnalyzer(ModeHybrid, 80, NewRefiner(stub))

	got := a.Analyze(context.Background(), "Quero um site", Context{})
	assert.Equal(t, 1, stub.calls)
	assert.True(t, stub.lastOpt.Fast)
	assert.Equal(t, model.IntentBudgetRequest, got.Intent)
	assert.Equal(t, model.MethodologyBANT, got.Methodology)
	assert.Equal(t, 88, got.Confidence)
	assert.Equal(t, model.SourceLLM, got.Source)
}

func TestRefinerAcceptsLooseConfidence(t *testing.T) {
	for content, want := range map[string]int{
		`{"intent":"pedido_orcamento","methodology":"bant","confidence":85.5,"reason":"preço"}`: 86,
		`{"intent":"pedido_orcamento","methodology":"bant","confidence":"90"}`:                 90,
		`{"intent":"pedido_orcamento","methodology":"bant","confidence":72.0}`:                 72,
	} {
		got, err := NewRefiner(&stubCompleter{content: content}).Refine(context.Background(), "quanto custa?", Context{})
		require.NoError(t, err, content)
		assert.Equal(t, want, got.Confidence, content)
		assert.Equal(t, model.IntentBudgetRequest, got.Intent, content)
	}

	_, err := NewRefiner(&stubCompleter{content: `{"intent":"objecao","methodology":"spin","confidence":"alta"}`}).
		Refine(context.Background(), "x", Context{})
	assert.ErrorIs(t, err, ErrRefineFailed)
}

func TestHybridFallsBackToExactRuleResult(t *testing.T) {
	cases := map[string]*stubCompleter{
		"network error":       {err: errors.New("dial tcp: connection refused")},
		"not json":            {content: "não sei"},
		"unknown intent":      {content: `{"intent":"comprar","methodology":"spin","confidence":70}`},
		"unknown methodology": {content: `{"intent":"objecao","methodology":"aida","confidence":70}`},
		"missing confidence":  {content: `{"intent":"objecao","methodology":"spin"}`},
		"confidence too high": {content: `{"intent":"objecao","methodology":"spin","confidence":140}`},
	}
	for name, stub := range cases {
		t.Run(name, func(t *testing.T) {
			ictx := Context{MessageCount: 2, PriorScore: 1}
			want := Classify("Quero um site", ictx)
			got := NewAnalyzer(ModeHybrid, 80, NewRefiner(stub)).Analyze(context.Background(), "Quero um site", ictx)
			assert.Equal(t, want, got)
			assert.Equal(t, 1, stub.calls)
		})
	}
}

func TestRefinerWrapsErrors(t *testing.T) {
	_, err := NewRefiner(&stubCompleter{err: llm.ErrAllProvidersFailed}).Refine(context.Background(), "x", Context{})
	require.ErrorIs(t, err, ErrRefineFailed)
}

func TestModes(t *testing.T) {
	stub := &stubCompleter{content: `{"intent":"despedida","methodology":"direta","confidence":77,"reason":"tchau"}`}

	rulesOnly := NewAnalyzer(ModeRules, 80, NewRefiner(stub))
	assert.Equal(t, model.IntentExpressInterest, rulesOnly.Analyze(context.Background(), "quero", Context{}).Intent)
	assert.Equal(t, 0, stub.calls)

	llmAlways := NewAnalyzer(ModeLLM, 80, NewRefiner(stub))
	assert.Equal(t, model.IntentFarewell, llmAlways.Analyze(context.Background(), "Oi, bom dia!", Context{}).Intent)
	assert.Equal(t, 1, stub.calls)

	noRefiner := NewAnalyzer(ModeHybrid, 80, nil)
	assert.Equal(t, model.IntentExpressInterest, noRefiner.Analyze(context.Background(), "quero", Context{}).Intent)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeRules, ParseMode("RULES"))
	assert.Equal(t, ModeLLM, ParseMode("llm"))
	assert.Equal(t, ModeHybrid, ParseMode(""))
	assert.Equal(t, ModeHybrid, ParseMode("outro"))
}
