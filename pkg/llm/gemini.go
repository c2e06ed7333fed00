package llm

import (
	"context"
	"fmt"
	"sara-smart-go/internal/config"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiProvider 通过 Google Generative AI SDK 调用 Gemini。
type geminiProvider struct {
	name   string
	model  string
	gen    config.LLMGenerationConfig
	client *genai.Client
}

// NewGeminiProvider 创建 Gemini 供应方，客户端在进程生命周期内复用。
func NewGeminiProvider(ctx context.Context, cfg config.LLMProviderConfig, gen config.LLMGenerationConfig) (Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiProvider{name: cfg.Name, model: cfg.Model, gen: gen, client: client}, nil
}

func (p *geminiProvider) Name() string { return p.name }

// Complete 把 system 消息放入 SystemInstruction，其余消息作为对话历史，最后一条作为本轮输入。
func (p *geminiProvider) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	// GenerativeModel 带有可变配置，每次调用单独创建
	model := p.client.GenerativeModel(p.model)
	p.applyGeneration(model, gen)

	var system []string
	var history []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if len(history) == 0 {
		return "", fmt.Errorf("%s: no user message to send", p.name)
	}

	last := history[len(history)-1]
	cs := model.StartChat()
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%s: no response from model", p.name)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

func (p *geminiProvider) applyGeneration(model *genai.GenerativeModel, gen *GenerationParams) {
	if gen != nil {
		if gen.Temperature != nil {
			model.SetTemperature(float32(*gen.Temperature))
		}
		if gen.TopP != nil {
			model.SetTopP(float32(*gen.TopP))
		}
		if gen.MaxTokens != nil {
			model.SetMaxOutputTokens(int32(*gen.MaxTokens))
		}
		return
	}
	if p.gen.Temperature != 0 {
		model.SetTemperature(float32(p.gen.Temperature))
	}
	if p.gen.TopP != 0 {
		model.SetTopP(float32(p.gen.TopP))
	}
	if p.gen.MaxTokens != 0 {
		model.SetMaxOutputTokens(int32(p.gen.MaxTokens))
	}
}

// Close 释放底层 gRPC 连接。
func (p *geminiProvider) Close() error {
	return p.client.Close()
}
