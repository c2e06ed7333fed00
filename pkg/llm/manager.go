package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sara-smart-go/internal/config"
	"sara-smart-go/pkg/log"
	"strings"
	"time"
	"unicode/utf8"
)

// Registration 是注册到 Manager 的一个供应方及其计价信息。
type Registration struct {
	Provider      Provider
	PricePerToken float64
	// Modern 标记该供应方是否为新一代模型，仅用于统计。
	Modern bool
}

// Manager 按优先级依次尝试供应方，第一个成功的结果即返回。
// 遇到限流错误会先等待 rateLimitDelay 再换下一个，不做其他重试。
type Manager struct {
	regs           []Registration
	fastOrder      []string
	rateLimitDelay time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// ManagerOption 配置 Manager。
type ManagerOption func(*Manager)

// WithFastOrder 设置轻量任务的供应方顺序，未列出的供应方不参与快速模式。
func WithFastOrder(names ...string) ManagerOption {
	return func(m *Manager) { m.fastOrder = names }
}

// WithRateLimitDelay 设置限流后的等待时间。
func WithRateLimitDelay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.rateLimitDelay = d }
}

// WithSleeper 替换等待函数，测试中用来避免真实等待。
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) ManagerOption {
	return func(m *Manager) { m.sleep = fn }
}

// NewManager 以给定顺序创建 Manager，零个供应方也是合法配置。
func NewManager(regs []Registration, opts ...ManagerOption) *Manager {
	m := &Manager{
		regs:           regs,
		rateLimitDelay: 2 * time.Second,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerFromConfig 根据配置创建全部供应方，单个供应方创建失败只记录日志。
func NewManagerFromConfig(ctx context.Context, cfg config.LLMConfig) *Manager {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	regs := make([]Registration, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		var (
			p   Provider
			err error
		)
		switch strings.ToLower(pc.Kind) {
		case "openai":
			p = NewOpenAIProvider(pc, cfg.Generation)
		case "gemini":
			p, err = NewGeminiProvider(ctx, pc, cfg.Generation)
		case "http":
			p = NewHTTPProvider(pc, cfg.Generation, httpClient)
		default:
			err = fmt.Errorf("unknown provider kind %q", pc.Kind)
		}
		if err != nil {
			log.Warnf("初始化模型供应方 %s 失败: %v", pc.Name, err)
			continue
		}
		regs = append(regs, Registration{Provider: p, PricePerToken: pc.PricePerToken, Modern: pc.Modern})
		log.Infof("模型供应方 %s (%s) 初始化成功，优先级 %d", pc.Name, pc.Model, len(regs))
	}
	if len(regs) == 0 {
		log.Warnf("没有可用的模型供应方，Sara 将只使用规则与模板回复")
	}
	return NewManager(regs, WithFastOrder(cfg.FastOrder...), WithRateLimitDelay(cfg.RateLimitDelay))
}

// Complete 依次尝试供应方，返回第一个成功的结果。
func (m *Manager) Complete(ctx context.Context, messages []Message, opts CallOptions) (Result, error) {
	order := m.order(opts)
	if len(order) == 0 {
		return Result{}, ErrNoProviders
	}

	var lastErr error
	for _, reg := range order {
		name := reg.Provider.Name()
		content, err := reg.Provider.Complete(ctx, messages, opts.Generation)
		if err == nil {
			return Result{
				Content:  content,
				Provider: name,
				Cost:     EstimateCost(content, reg.PricePerToken),
			}, nil
		}
		lastErr = err
		log.Warnf("模型 %s 调用失败: %v", name, err)

		if ctx.Err() != nil {
			break
		}
		if IsRateLimited(err) && m.rateLimitDelay > 0 {
			if serr := m.sleep(ctx, m.rateLimitDelay); serr != nil {
				break
			}
		}
	}
	return Result{}, fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
}

// order 返回本次调用的尝试顺序。
func (m *Manager) order(opts CallOptions) []Registration {
	if opts.Preferred != "" {
		if pref, ok := m.find(opts.Preferred); ok {
			out := []Registration{pref}
			for _, r := range m.regs {
				if r.Provider.Name() != opts.Preferred {
					out = append(out, r)
				}
			}
			return out
		}
	}
	if opts.Fast && len(m.fastOrder) > 0 {
		out := make([]Registration, 0, len(m.fastOrder))
		for _, name := range m.fastOrder {
			if r, ok := m.find(name); ok {
				out = append(out, r)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return m.regs
}

func (m *Manager) find(name string) (Registration, bool) {
	for _, r := range m.regs {
		if r.Provider.Name() == name {
			return r, true
		}
	}
	return Registration{}, false
}

// IsRateLimited 按错误文本判断是否为限流。
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate") || strings.Contains(msg, "429")
}

// EstimateCost 以每 4 个字符约 1 个 token 粗略估算输出成本（美元）。
func EstimateCost(content string, pricePerToken float64) float64 {
	tokens := (utf8.RuneCountInString(content) + 3) / 4
	return float64(tokens) * pricePerToken
}

// Stats 描述当前可用的供应方。
type Stats struct {
	TotalModels     int      `json:"totalModels"`
	AvailableModels []string `json:"availableModels"`
	PrimaryModel    string   `json:"primaryModel"`
	HasModernModel  bool     `json:"hasModernModel"`
}

// Stats 返回供应方统计。
func (m *Manager) Stats() Stats {
	s := Stats{TotalModels: len(m.regs), AvailableModels: make([]string, 0, len(m.regs)), PrimaryModel: "none"}
	for i, r := range m.regs {
		if i == 0 {
			s.PrimaryModel = r.Provider.Name()
		}
		s.AvailableModels = append(s.AvailableModels, r.Provider.Name())
		if r.Modern {
			s.HasModernModel = true
		}
	}
	return s
}

// Ready 至少有一个供应方时为 true。
func (m *Manager) Ready() bool {
	return len(m.regs) > 0
}

// Close 关闭持有连接的供应方。
func (m *Manager) Close() error {
	for _, r := range m.regs {
		if c, ok := r.Provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warnf("关闭模型供应方 %s 失败: %v", r.Provider.Name(), err)
			}
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
