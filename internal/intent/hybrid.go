package intent

import (
	"context"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/log"
	"strings"
)

// Mode 决定 Analyzer 何时调用 LLM。
type Mode string

const (
	ModeRules  Mode = "rules"
	ModeLLM    Mode = "llm"
	ModeHybrid Mode = "hybrid"
)

// ParseMode 无法识别时使用 hybrid。
func ParseMode(raw string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeRules, ModeLLM:
		return m
	}
	return ModeHybrid
}

// Analyzer 编排规则分类与 LLM 复核。
type Analyzer interface {
	Analyze(ctx context.Context, message string, ictx Context) model.IntentResult
}

type refiner interface {
	Refine(ctx context.Context, message string, ictx Context) (model.IntentResult, error)
}

type analyzer struct {
	mode      Mode
	threshold int
	refiner   refiner
}

// NewAnalyzer 创建意图分析器。refiner 为 nil 时退化为纯规则模式。
func NewAnalyzer(mode Mode, threshold int, r *Refiner) Analyzer {
	a := &analyzer{mode: mode, threshold: threshold}
	if r != nil {
		a.refiner = r
	}
	if a.threshold <= 0 {
		a.threshold = DefaultThreshold
	}
	return a
}

// Analyze 先走规则；hybrid 模式下置信度达到阈值直接返回，否则请 LLM 复核。
// LLM 失败时原样返回规则结果，不做部分合并。
func (a *analyzer) Analyze(ctx context.Context, message string, ictx Context) model.IntentResult {
	ruleResult := Classify(message, ictx)
	if a.refiner == nil || a.mode == ModeRules {
		return ruleResult
	}
	if a.mode == ModeHybrid && ruleResult.Confidence >= a.threshold {
		log.Debugw("意图由规则确定", "intent", ruleResult.Intent, "confidence", ruleResult.Confidence)
		return ruleResult
	}

	refined, err := a.refiner.Refine(ctx, message, ictx)
	if err != nil {
		log.Warnf("LLM 意图复核失败，使用规则结果 %s: %v", ruleResult.Intent, err)
		return ruleResult
	}
	log.Debugw("意图由 LLM 复核", "intent", refined.Intent, "confidence", refined.Confidence, "ruleIntent", ruleResult.Intent)
	return refined
}
