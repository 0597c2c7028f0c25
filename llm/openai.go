package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
)

// OpenAIClient 调用 OpenAI 兼容接口（OpenAI、DeepSeek、vLLM、LM Studio 等）。
type OpenAIClient struct {
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	temperature    float64
	http           *http.Client
}

// NewOpenAIClient 创建客户端，baseURL 例如 "https://api.openai.com/v1"。
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		model:          model,
		embeddingModel: model,
		temperature:    temperature,
		http:           &http.Client{Timeout: timeout},
	}
}

// SetEmbeddingModel 设置向量化模型。
func (c *OpenAIClient) SetEmbeddingModel(model string) {
	if model != "" {
		c.embeddingModel = model
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Generate 调用 /chat/completions，返回第一个 choice 的内容。
func (c *OpenAIClient) Generate(ctx context.Context, messages []core.Message) (string, error) {
	req := openAIChatRequest{Model: c.model, Temperature: c.temperature}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	var resp openAIChatResponse
	if err := postJSON(ctx, c.http, c.baseURL+"/chat/completions", c.headers(), req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", core.NewDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure, "no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed 调用 /embeddings，按 index 还原输入顺序。
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	var resp openAIEmbedResponse
	if err := postJSON(ctx, c.http, c.baseURL+"/embeddings", c.headers(), openAIEmbedRequest{Model: c.embeddingModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, core.NewDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure, "embedding count mismatch")
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, core.NewDomainError(core.ModuleLLM, core.ErrorCodeUpstreamFailure, "embedding index out of range")
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

var (
	_ core.Generator = (*OpenAIClient)(nil)
	_ core.Embedder  = (*OpenAIClient)(nil)
)
