// Package config 加载 churnkit 的运行配置：.env → YAML 文件 → 环境变量覆盖 → 校验。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/churnkit/core"
)

// Config 是 churnkit 的完整配置（支持 YAML）。
type Config struct {
	Env        string           `yaml:"env"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Scorer     ScorerConfig     `yaml:"scorer"`
	Explain    ExplainConfig    `yaml:"explain"`
	Feast      FeastConfig      `yaml:"feast"`
}

// GenerationConfig 生成后端配置。
type GenerationConfig struct {
	Backend        string        `yaml:"backend" validate:"oneof=ollama openai"`
	Host           string        `yaml:"host" validate:"required,url"`
	Model          string        `yaml:"model" validate:"required"`
	EmbeddingModel string        `yaml:"embedding_model"` // 为空时使用 Model
	APIKey         string        `yaml:"api_key" validate:"required_if=Backend openai"`
	Temperature    float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
}

// RetrievalConfig 检索增强配置。VectorStore 为空时关闭检索。
type RetrievalConfig struct {
	VectorStore    string `yaml:"vector_store" validate:"vectorstore"` // "" | memory:// | redis://host:6379/0
	Collection     string `yaml:"collection" validate:"required"`
	TopK           int    `yaml:"top_k" validate:"gte=1"`
	BackfillLimit  int    `yaml:"backfill_limit" validate:"gte=1"`
	DatabaseDriver string `yaml:"database_driver" validate:"oneof=postgres sqlite gorm"`
	DatabaseURL    string `yaml:"database_url"`
	Query          string `yaml:"query"` // 为空时使用默认的流失客户查询
	Embedding      string `yaml:"embedding" validate:"oneof=backend hash"`
	EmbeddingDim   int    `yaml:"embedding_dim" validate:"gte=8"`
	CacheSize      int    `yaml:"cache_size" validate:"gte=0"`
}

// Enabled 报告是否配置了检索路径。
func (r RetrievalConfig) Enabled() bool {
	return r.VectorStore != ""
}

// ScorerConfig 数值打分器配置。
type ScorerConfig struct {
	Type       string        `yaml:"type" validate:"oneof=none lr rpc expr"`
	Path       string        `yaml:"path" validate:"required_if=Type lr"`
	Endpoint   string        `yaml:"endpoint" validate:"required_if=Type rpc"`
	Expression string        `yaml:"expression" validate:"required_if=Type expr"`
	Features   []string      `yaml:"features"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	// Direct 为 true 时 predict 直接使用打分器的概率，不走生成后端。
	Direct bool `yaml:"direct"`
}

// ExplainConfig 解释配置。
type ExplainConfig struct {
	TopK        int `yaml:"top_k" validate:"gte=0"`
	Concurrency int `yaml:"concurrency" validate:"gte=1"`
}

// FeastConfig Feast 在线特征配置，Host 为空时不启用。
type FeastConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" validate:"gte=0,lte=65535"`
	Project  string   `yaml:"project"`
	Features []string `yaml:"features"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Env: "development",
		Generation: GenerationConfig{
			Backend:     "ollama",
			Host:        "http://localhost:11434",
			Model:       "llama3.1:8b",
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Collection:     "churn_knowledge",
			TopK:           4,
			BackfillLimit:  1000,
			DatabaseDriver: "postgres",
			Embedding:      "backend",
			EmbeddingDim:   256,
			CacheSize:      1024,
		},
		Scorer: ScorerConfig{
			Type: "none",
		},
		Explain: ExplainConfig{
			TopK:        8,
			Concurrency: 4,
		},
		Feast: FeastConfig{
			Port: 6565,
		},
	}
}

// Load 按顺序加载配置：.env（不存在则忽略）、YAML 文件（path 为空则跳过）、环境变量、校验。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Env = getEnv("CHURN_ENV", cfg.Env)
	cfg.Generation.Backend = getEnv("CHURN_GENERATION_BACKEND", cfg.Generation.Backend)
	cfg.Generation.Host = getEnv("OLLAMA_HOST", cfg.Generation.Host)
	cfg.Generation.Model = getEnv("OLLAMA_MODEL", cfg.Generation.Model)
	cfg.Generation.APIKey = getEnv("CHURN_API_KEY", cfg.Generation.APIKey)
	cfg.Retrieval.VectorStore = getEnv("VECTOR_DB_PATH", cfg.Retrieval.VectorStore)
	cfg.Retrieval.DatabaseURL = getEnv("DATABASE_URL", cfg.Retrieval.DatabaseURL)
	cfg.Retrieval.DatabaseDriver = getEnv("CHURN_DATABASE_DRIVER", cfg.Retrieval.DatabaseDriver)
	cfg.Scorer.Type = getEnv("CHURN_SCORER_TYPE", cfg.Scorer.Type)
	cfg.Scorer.Path = getEnv("CHURN_SCORER_PATH", cfg.Scorer.Path)
	cfg.Scorer.Endpoint = getEnv("CHURN_SCORER_ENDPOINT", cfg.Scorer.Endpoint)
	cfg.Feast.Host = getEnv("FEAST_HOST", cfg.Feast.Host)
	cfg.Feast.Project = getEnv("FEAST_PROJECT", cfg.Feast.Project)

	var err error
	if cfg.Retrieval.TopK, err = getEnvInt("TOP_K", cfg.Retrieval.TopK); err != nil {
		return err
	}
	if cfg.Feast.Port, err = getEnvInt("FEAST_PORT", cfg.Feast.Port); err != nil {
		return err
	}
	return nil
}

// Validate 校验配置。
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("vectorstore", validVectorStore); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "invalid config", err)
	}
	if c.Retrieval.Enabled() && c.Retrieval.DatabaseURL == "" {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			"retrieval.database_url is required when retrieval.vector_store is set")
	}
	return nil
}

func validVectorStore(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || v == "memory://" ||
		strings.HasPrefix(v, "redis://") || strings.HasPrefix(v, "rediss://")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%s must be an integer", key), err)
	}
	return n, nil
}
