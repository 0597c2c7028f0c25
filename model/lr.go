package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rushteam/churnkit/core"
)

// LRModel 实现了逻辑回归 (Logistic Regression) 流失模型。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + sum(Weight_i * x_i)，z 即决策间隔
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))，P 为流失概率
//
// Features 给出向量下标与权重名的对应关系。
type LRModel struct {
	Bias     float64            // 偏置项 (Bias / Intercept)
	Features []string           // 特征顺序，与输入向量一一对应
	Weights  map[string]float64 // 特征权重 (Weights / Coefficients)
}

// LoadLRModel 从 JSON 文件加载模型：
//
//	{"bias": -1.2, "features": ["tenure", "monthly_charges"], "weights": {"tenure": -0.05, "monthly_charges": 0.03}}
//
// features 缺省时按权重名字典序排列。
func LoadLRModel(path string) (*LRModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Bias     float64            `json:"bias"`
		Features []string           `json:"features"`
		Weights  map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode lr model %s: %w", path, err)
	}
	if len(raw.Features) == 0 {
		for name := range raw.Weights {
			raw.Features = append(raw.Features, name)
		}
		sort.Strings(raw.Features)
	}
	return &LRModel{Bias: raw.Bias, Features: raw.Features, Weights: raw.Weights}, nil
}

func (m *LRModel) Name() string { return "lr" }

// FeatureNames 返回向量下标对应的特征名。
func (m *LRModel) FeatureNames() []string { return m.Features }

// DecisionMargin 返回 z = Bias + Σ w_i·x_i。
func (m *LRModel) DecisionMargin(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(m.Features) {
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("lr expects %d features, got %d", len(m.Features), len(x)))
	}
	score := m.Bias
	for i, name := range m.Features {
		score += m.Weights[name] * x[i]
	}
	return score, nil
}

// PositiveClassProbability 返回 sigmoid(z)。
func (m *LRModel) PositiveClassProbability(ctx context.Context, x []float64) (float64, error) {
	z, err := m.DecisionMargin(ctx, x)
	if err != nil {
		return 0, err
	}
	return sigmoid(z), nil
}

var (
	_ core.MarginScorer      = (*LRModel)(nil)
	_ core.ProbabilityScorer = (*LRModel)(nil)
	_ core.NamedScorer       = (*LRModel)(nil)
)
