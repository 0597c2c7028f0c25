// Package churnkit 是一个客户流失专家工具包（Churn Kit）。
//
// 设计要点：
// - Scorer-first: 有打分器时概率与解释都来自模型，生成后端只作为兜底
// - Session 懒加载: 生成后端、向量库与打分器在首次调用时构建，失败后下次调用重试
// - 结构化输出: LLM 回复中的 JSON 被宽松抽取并强制转换为概率与贡献列表
package churnkit

import (
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/expert"
	"github.com/rushteam/churnkit/feature"
)

// 轻量 facade：便于用户直接 import "churnkit" 使用核心抽象。
type Orchestrator = expert.Orchestrator
type Session = expert.Session
type Explanation = core.Explanation
type Contribution = core.Contribution
type Dict = feature.Dict

var (
	NewOrchestrator = expert.NewOrchestrator
	NewLazy         = expert.NewLazy
	Build           = expert.Build
)
