// Package llm provides clients for Large Language Model providers and a manager
// that tries them in priority order.
package llm

import (
	"context"
	"errors"
)

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Provider 是单个模型供应方。Complete 返回完整的回复文本。
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

// CallOptions 控制一次经由 Manager 的调用。
type CallOptions struct {
	// Fast 使用轻量任务的供应方顺序。
	Fast bool
	// Preferred 非空时优先尝试该供应方。
	Preferred  string
	Generation *GenerationParams
}

// Result 是一次成功调用的结果。
type Result struct {
	Content  string  `json:"content"`
	Provider string  `json:"modelUsed"`
	Cost     float64 `json:"cost"`
}

// Completer 是业务层依赖的文本补全能力，Manager 实现了它。
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CallOptions) (Result, error)
}

var (
	// ErrNoProviders 表示没有配置任何可用的供应方。
	ErrNoProviders = errors.New("llm: no providers configured")
	// ErrAllProvidersFailed 表示所有供应方都调用失败。
	ErrAllProvidersFailed = errors.New("llm: all providers failed")
)

// Float64 / Int 便于构造 GenerationParams。
func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }
