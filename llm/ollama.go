package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
)

// OllamaClient 调用本地 Ollama 服务：/api/chat 生成，/api/embed 向量化。
type OllamaClient struct {
	host           string
	model          string
	embeddingModel string
	temperature    float64
	http           *http.Client
	logger         *slog.Logger
}

// OllamaOption 配置 OllamaClient。
type OllamaOption func(*OllamaClient)

// WithOllamaTemperature 设置采样温度，默认 0.3。
func WithOllamaTemperature(t float64) OllamaOption {
	return func(c *OllamaClient) {
		c.temperature = t
	}
}

// WithOllamaEmbeddingModel 设置向量化模型，默认与生成模型相同。
func WithOllamaEmbeddingModel(model string) OllamaOption {
	return func(c *OllamaClient) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithOllamaTimeout 设置 HTTP 超时，默认 60s。
func WithOllamaTimeout(d time.Duration) OllamaOption {
	return func(c *OllamaClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithOllamaLogger 设置日志。
func WithOllamaLogger(logger *slog.Logger) OllamaOption {
	return func(c *OllamaClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewOllamaClient 创建客户端，host 例如 "http://localhost:11434"。
func NewOllamaClient(host, model string, opts ...OllamaOption) *OllamaClient {
	c := &OllamaClient{
		host:           strings.TrimRight(host, "/"),
		model:          model,
		embeddingModel: model,
		temperature:    0.3,
		http:           &http.Client{Timeout: 60 * time.Second},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// Generate 发送一次非流式对话，返回助手消息内容。
func (c *OllamaClient) Generate(ctx context.Context, messages []core.Message) (string, error) {
	req := ollamaChatRequest{Model: c.model, Stream: false}
	req.Options.Temperature = c.temperature
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	start := time.Now()
	var resp ollamaChatResponse
	if err := postJSON(ctx, c.http, c.host+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	c.logger.Debug("ollama chat", "model", c.model, "duration", time.Since(start))
	return resp.Message.Content, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed 批量向量化。
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	var resp ollamaEmbedResponse
	if err := postJSON(ctx, c.http, c.host+"/api/embed", nil, ollamaEmbedRequest{Model: c.embeddingModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, core.NewDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure,
			"embedding count mismatch")
	}
	return resp.Embeddings, nil
}

var (
	_ core.Generator = (*OllamaClient)(nil)
	_ core.Embedder  = (*OllamaClient)(nil)
)
