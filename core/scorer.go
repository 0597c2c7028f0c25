package core

import "context"

// 打分能力接口。
//
// 一个训练好的模型对象只暴露其中一部分能力，打分适配器（model.Adapter）按优先级
// margin → probability → predict 选定其中一种，之后只使用这一种。
//
// 实现：
//   - model.LRModel 同时实现 MarginScorer 和 ProbabilityScorer
//   - model.ExprModel 实现 MarginScorer（CEL 表达式）
//   - model.RPCModel 实现 PredictScorer（远程模型服务）
//
// 所有实现必须可以并发调用（解释器会并发打分扰动后的向量）。

// MarginScorer 暴露决策边界距离（decision function）。
type MarginScorer interface {
	DecisionMargin(ctx context.Context, x []float64) (float64, error)
}

// ProbabilityScorer 暴露正类（流失）概率。
type ProbabilityScorer interface {
	PositiveClassProbability(ctx context.Context, x []float64) (float64, error)
}

// PredictScorer 暴露通用预测，返回值的第一个元素作为分数。
type PredictScorer interface {
	Predict(ctx context.Context, x []float64) ([]float64, error)
}

// ProbabilityExpert 是具有原生概率能力的流失专家。
// 编排层发现会话中存在 ProbabilityExpert 时直接调用，不经过 LLM。
type ProbabilityExpert interface {
	PredictProbability(ctx context.Context, fs FeatureSet, extraContext string) (float64, error)
}

// NamedScorer 声明打分向量每个下标对应的特征名。
// 调用方以具名特征调用时，必须先按这个顺序对齐再打分。
type NamedScorer interface {
	FeatureNames() []string
}
