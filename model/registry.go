package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
)

// ScorerBuilder 根据配置构建打分器。返回值应实现 core 中的某个打分能力接口。
type ScorerBuilder func(cfg config.ScorerConfig) (any, error)

var (
	builders   = make(map[string]ScorerBuilder)
	buildersMu sync.RWMutex
)

func init() {
	Register("lr", buildLR)
	Register("rpc", buildRPC)
	Register("expr", buildExpr)
}

// Register 注册一种打分器的构建逻辑，已存在的类型会被覆盖。
func Register(typeName string, builder ScorerBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typeName] = builder
}

// SupportedTypes 返回当前已注册的打分器类型（排序），用于错误提示。
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewScorer 根据配置构建打分器。Type 为空或 "none" 时返回 (nil, nil)。
func NewScorer(cfg config.ScorerConfig) (any, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}
	buildersMu.RLock()
	builder, ok := builders[cfg.Type]
	buildersMu.RUnlock()
	if !ok {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
			fmt.Sprintf("unsupported scorer type %q (supported: %v)", cfg.Type, SupportedTypes()))
	}
	scorer, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build scorer %s: %w", cfg.Type, err)
	}
	return scorer, nil
}

func buildLR(cfg config.ScorerConfig) (any, error) {
	m, err := LoadLRModel(cfg.Path)
	if err != nil {
		return nil, err
	}
	if len(cfg.Features) > 0 {
		m.Features = cfg.Features
	}
	return m, nil
}

func buildRPC(cfg config.ScorerConfig) (any, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	return NewRPCModel("rpc", cfg.Endpoint, cfg.Timeout), nil
}

func buildExpr(cfg config.ScorerConfig) (any, error) {
	return NewExprModel(cfg.Expression, cfg.Features)
}
