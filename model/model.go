// Package model 提供流失打分器的几种实现，以及把它们统一为决策间隔（margin）的打分适配器。
//
// 打分器只需实现以下能力之一：
//   - core.MarginScorer：DecisionMargin，线性模型的原始分数
//   - core.ProbabilityScorer：PositiveClassProbability，正类（流失）概率
//   - core.PredictScorer：Predict，返回序列，取第一个元素
//
// 内置实现：LRModel（间隔 + 概率）、RPCModel（远程 predict）、ExprModel（CEL 表达式间隔）。
package model

// Capability 是适配器在构造时解析出的打分能力。
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityMargin
	CapabilityProbability
	CapabilityPredict
)

func (c Capability) String() string {
	switch c {
	case CapabilityMargin:
		return "margin"
	case CapabilityProbability:
		return "probability"
	case CapabilityPredict:
		return "predict"
	default:
		return "none"
	}
}
