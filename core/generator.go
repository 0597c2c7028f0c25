package core

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator 是文本生成能力（Ollama、OpenAI 兼容服务等）。
// 后端错误以 UPSTREAM_FAILURE 返回，调用方原样透传。
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Embedder 将文本编码为向量。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
