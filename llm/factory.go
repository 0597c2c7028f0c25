package llm

import (
	"fmt"
	"log/slog"

	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
)

// Backend 同时具备生成与向量化能力。
type Backend interface {
	core.Generator
	core.Embedder
}

// 后端类型
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// New 根据配置创建生成后端（工厂方法）。
func New(cfg config.GenerationConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Backend {
	case BackendOllama, "":
		return NewOllamaClient(cfg.Host, cfg.Model,
			WithOllamaTemperature(cfg.Temperature),
			WithOllamaEmbeddingModel(cfg.EmbeddingModel),
			WithOllamaTimeout(cfg.Timeout),
			WithOllamaLogger(logger),
		), nil
	case BackendOpenAI:
		c := NewOpenAIClient(cfg.Host, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.Timeout)
		c.SetEmbeddingModel(cfg.EmbeddingModel)
		return c, nil
	default:
		return nil, core.NewDomainError(core.ModuleLLM, core.ErrorCodeNotSupported,
			fmt.Sprintf("unsupported generation backend: %s", cfg.Backend))
	}
}
