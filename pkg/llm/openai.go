package llm

import (
	"context"
	"errors"
	"fmt"
	"sara-smart-go/internal/config"

	"github.com/sashabaranov/go-openai"
)

// openAIProvider 通过 go-openai 调用 OpenAI 以及任何 OpenAI 兼容接口（x.ai、Anthropic 兼容层等）。
type openAIProvider struct {
	name   string
	model  string
	gen    config.LLMGenerationConfig
	client *openai.Client
}

// NewOpenAIProvider 创建一个 OpenAI 兼容的供应方，BaseURL 为空时使用官方地址。
func NewOpenAIProvider(cfg config.LLMProviderConfig, gen config.LLMGenerationConfig) Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAIProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		gen:    gen,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: toOpenAIRole(m.Role), Content: m.Content})
	}
	applyOpenAIGeneration(&req, gen, p.gen)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s returned status %d: %w", p.name, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s chat completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIRole(role string) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

func applyOpenAIGeneration(req *openai.ChatCompletionRequest, gen *GenerationParams, defaults config.LLMGenerationConfig) {
	if gen != nil {
		if gen.Temperature != nil {
			req.Temperature = float32(*gen.Temperature)
		}
		if gen.TopP != nil {
			req.TopP = float32(*gen.TopP)
		}
		if gen.MaxTokens != nil {
			req.MaxTokens = *gen.MaxTokens
		}
		return
	}
	req.Temperature = float32(defaults.Temperature)
	req.TopP = float32(defaults.TopP)
	req.MaxTokens = defaults.MaxTokens
}
