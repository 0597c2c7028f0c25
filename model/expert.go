package model

import (
	"context"
	"math"

	"github.com/rushteam/churnkit/core"
)

// ScorerExpert 把 Adapter 包装为 core.ProbabilityExpert，供编排层走直接概率路径。
//
// 取值顺序：原生概率 → sigmoid(margin) → predict 的第一个元素。
// 没有任何能力时返回 UNAVAILABLE，而不是一个看似有效的概率。
// extraContext 对数值模型没有意义，被忽略。
type ScorerExpert struct {
	Adapter *Adapter
}

// NewScorerExpert 创建 ScorerExpert。
func NewScorerExpert(a *Adapter) *ScorerExpert {
	return &ScorerExpert{Adapter: a}
}

func (e *ScorerExpert) PredictProbability(ctx context.Context, fs core.FeatureSet, _ string) (float64, error) {
	x := fs.Values()
	if p, ok, err := e.Adapter.Probability(ctx, x); ok {
		return p, err
	}
	switch e.Adapter.Capability() {
	case CapabilityMargin:
		m, err := e.Adapter.ScoreMargin(ctx, x)
		if err != nil {
			return 0, err
		}
		return sigmoid(m), nil
	case CapabilityPredict:
		return e.Adapter.ScoreMargin(ctx, x)
	default:
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "scorer has no probability capability")
	}
}

// Align 按底层打分器的特征顺序重排具名特征，见 Adapter.Align。
func (e *ScorerExpert) Align(fs core.FeatureSet) (core.FeatureSet, error) {
	return e.Adapter.Align(fs)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

var _ core.ProbabilityExpert = (*ScorerExpert)(nil)
