package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/churnkit/core"
)

// Adapter 把任意打分器统一为 ScoreMargin(x) -> float64。
//
// 能力按优先级 margin → probability → predict → none 只解析一次，之后每次调用不再探测。
// none 时 ScoreMargin 返回 0.0 且不报错：构造时记录一条 warn 日志，每次降级调用计数。
// Adapter 自身无状态，可并发使用（并发安全取决于底层打分器）。
type Adapter struct {
	scorer     any
	capability Capability

	margin      core.MarginScorer
	probability core.ProbabilityScorer
	predict     core.PredictScorer

	logger   *slog.Logger
	degraded prometheus.Counter
}

// AdapterOption 配置 Adapter。
type AdapterOption func(*Adapter)

// WithLogger 设置日志，默认 slog.Default()。
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDegradedCounter 设置降级调用计数器（churn_scorer_degraded_total）。
func WithDegradedCounter(c prometheus.Counter) AdapterOption {
	return func(a *Adapter) {
		a.degraded = c
	}
}

// NewAdapter 解析 scorer 的打分能力并返回适配器。scorer 可以为 nil。
func NewAdapter(scorer any, opts ...AdapterOption) *Adapter {
	a := &Adapter{scorer: scorer, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	if s, ok := scorer.(core.MarginScorer); ok {
		a.margin = s
	}
	if s, ok := scorer.(core.ProbabilityScorer); ok {
		a.probability = s
	}
	if s, ok := scorer.(core.PredictScorer); ok {
		a.predict = s
	}

	switch {
	case a.margin != nil:
		a.capability = CapabilityMargin
	case a.probability != nil:
		a.capability = CapabilityProbability
	case a.predict != nil:
		a.capability = CapabilityPredict
	default:
		a.capability = CapabilityNone
		a.logger.Warn("scorer has no scoring capability, margins degrade to 0",
			"scorer", fmt.Sprintf("%T", scorer))
	}
	return a
}

// Capability 返回构造时解析出的能力。
func (a *Adapter) Capability() Capability {
	return a.capability
}

// ScoreMargin 返回 x 的决策间隔（或其替代量：概率、predict 的第一个元素）。
func (a *Adapter) ScoreMargin(ctx context.Context, x []float64) (float64, error) {
	switch a.capability {
	case CapabilityMargin:
		return a.margin.DecisionMargin(ctx, x)
	case CapabilityProbability:
		return a.probability.PositiveClassProbability(ctx, x)
	case CapabilityPredict:
		out, err := a.predict.Predict(ctx, x)
		if err != nil {
			return 0, err
		}
		if len(out) == 0 {
			return 0, core.NewMalformedOutput(core.ModuleModel, "predict returned an empty sequence", "[]")
		}
		return out[0], nil
	default:
		if a.degraded != nil {
			a.degraded.Inc()
		}
		return 0, nil
	}
}

// Align 把具名特征按打分器声明的特征顺序重排。
// 打分器没有声明特征名时原样返回；缺少或多出特征时返回 INVALID_INPUT。
func (a *Adapter) Align(fs core.FeatureSet) (core.FeatureSet, error) {
	named, ok := a.scorer.(core.NamedScorer)
	if !ok || len(named.FeatureNames()) == 0 {
		return fs, nil
	}
	names := named.FeatureNames()
	byName := fs.Map()
	out := make(core.FeatureSet, 0, len(names))
	for _, name := range names {
		v, ok := byName[name]
		if !ok {
			return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
				fmt.Sprintf("missing feature %q required by scorer", name))
		}
		out = append(out, core.Feature{Name: name, Value: v})
	}
	if len(fs) != len(out) {
		known := make(map[string]struct{}, len(names))
		for _, name := range names {
			known[name] = struct{}{}
		}
		for _, f := range fs {
			if _, ok := known[f.Name]; !ok {
				return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
					fmt.Sprintf("unexpected feature %q, scorer expects %v", f.Name, names))
			}
		}
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("scorer expects %d features, got %d", len(names), len(fs)))
	}
	return out, nil
}

// Probability 在打分器具备原生概率能力时返回 (p, true, err)，否则返回 (0, false, nil)。
// 同时实现 margin 与 probability 的打分器（如 LRModel）在这里走概率能力。
func (a *Adapter) Probability(ctx context.Context, x []float64) (float64, bool, error) {
	if a.probability == nil {
		return 0, false, nil
	}
	p, err := a.probability.PositiveClassProbability(ctx, x)
	return p, true, err
}
