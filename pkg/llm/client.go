package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sara-smart-go/internal/config"
	"strings"
)

// ChunkWriter 接收流式返回的分块。
type ChunkWriter interface {
	WriteChunk(chunk string) error
}

// httpProvider 直接调用 OpenAI 兼容的 /chat/completions 接口，并以 SSE 流式读取。
type httpProvider struct {
	cfg    config.LLMProviderConfig
	gen    config.LLMGenerationConfig
	client *http.Client
}

// NewHTTPProvider creates a provider that speaks the OpenAI-compatible wire format over net/http.
func NewHTTPProvider(cfg config.LLMProviderConfig, gen config.LLMGenerationConfig, client *http.Client) Provider {
	if client == nil {
		client = &http.Client{}
	}
	return &httpProvider{cfg: cfg, gen: gen, client: client}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *httpProvider) Name() string { return c.cfg.Name }

// Complete 以流式方式调用接口并拼接完整回复。
func (c *httpProvider) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	var sb strings.Builder
	if err := c.StreamChatMessages(ctx, messages, gen, builderWriter{&sb}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// StreamChatMessages 以 role-based 消息与可选生成参数调用聊天接口，并将流式分块写入 writer。
func (c *httpProvider) StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer ChunkWriter) error {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   true,
	}
	// 传参优先，否则从全局配置注入（若非零值）
	if gen != nil {
		reqBody.Temperature = gen.Temperature
		reqBody.TopP = gen.TopP
		reqBody.MaxTokens = gen.MaxTokens
	} else {
		if c.gen.Temperature != 0 {
			reqBody.Temperature = Float64(c.gen.Temperature)
		}
		if c.gen.TopP != 0 {
			reqBody.TopP = Float64(c.gen.TopP)
		}
		if c.gen.MaxTokens != 0 {
			reqBody.MaxTokens = Int(c.gen.MaxTokens)
		}
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read from stream: %w", err)
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			if data == "[DONE]" {
				return nil
			}

			var chunk chatResponse
			if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr == nil && len(chunk.Choices) > 0 {
				if werr := writer.WriteChunk(chunk.Choices[0].Delta.Content); werr != nil {
					return fmt.Errorf("failed to write chunk: %w", werr)
				}
			}
		}

		if err == io.EOF {
			return nil
		}
	}
}

type builderWriter struct{ sb *strings.Builder }

func (w builderWriter) WriteChunk(chunk string) error {
	w.sb.WriteString(chunk)
	return nil
}
