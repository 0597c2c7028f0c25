package expert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/explain"
	"github.com/rushteam/churnkit/extract"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/pkg/conv"
)

// DefaultBaseValue 是生成后端未给出 base_value 时的默认值。
const DefaultBaseValue = 0.5

// Orchestrator 是流失专家的统一入口。
//
// 预测：会话具备原生概率能力时直接调用；否则构造提示词交给生成后端，抽取 churn_proba。
// 两条路径的结果都截断到 [0, 1]。
// 解释：会话具备打分器时走局部敏感度解释，否则由生成后端给出解释并逐条校验贡献项。
type Orchestrator struct {
	lazy    *Lazy
	metrics *Metrics
	logger  *slog.Logger
}

// NewOrchestrator 创建编排器。
func NewOrchestrator(lazy *Lazy, opts ...Option) *Orchestrator {
	o := newOptions(opts)
	return &Orchestrator{lazy: lazy, metrics: o.metrics, logger: o.logger}
}

// PredictProbability 估计流失概率。dict 优先于 vector，两者都为 nil 时返回 INVALID_INPUT。
func (o *Orchestrator) PredictProbability(ctx context.Context, dict feature.Dict, vector []float64, extraContext string) (float64, error) {
	fs, err := feature.Normalize(dict, vector)
	if err != nil {
		return 0, err
	}
	sess, err := o.lazy.Get(ctx)
	if err != nil {
		return 0, err
	}

	if sess.Expert != nil {
		if a, ok := sess.Expert.(featureAligner); ok && dict != nil {
			if fs, err = a.Align(fs); err != nil {
				return 0, err
			}
		}
		p, err := sess.Expert.PredictProbability(ctx, fs, extraContext)
		if err != nil {
			return 0, err
		}
		o.metrics.Predictions.WithLabelValues("direct").Inc()
		o.logger.Debug("churn prediction", "session_id", sess.ID, "path", "direct", "proba", p)
		return core.Clamp01(p), nil
	}

	if sess.Generator == nil {
		return 0, core.NewDomainError(core.ModuleExpert, core.ErrorCodeUnavailable, "session has no generation backend")
	}
	featuresJSON, err := encodeFeatures(fs)
	if err != nil {
		return 0, err
	}
	retrieved, err := o.retrieve(ctx, sess, featuresJSON, extraContext)
	if err != nil {
		return 0, err
	}
	text, err := sess.Generator.Generate(ctx, probabilityMessages(featuresJSON, retrieved, extraContext))
	if err != nil {
		return 0, err
	}
	p, err := extract.ChurnProbability(text)
	if err != nil {
		o.metrics.ExtractionFailures.WithLabelValues("probability").Inc()
		o.logger.Warn("churn probability extraction failed", "session_id", sess.ID, "error", err)
		return 0, err
	}
	o.metrics.Predictions.WithLabelValues("llm").Inc()
	o.logger.Debug("churn prediction", "session_id", sess.ID, "path", "llm", "proba", p)
	return core.Clamp01(p), nil
}

// Explain 解释流失估计。会话有打分器时等价于 ExplainLocal，否则由生成后端解释。
func (o *Orchestrator) Explain(ctx context.Context, dict feature.Dict, vector []float64, topK int, extraContext string) (core.Explanation, error) {
	if topK < 0 {
		return core.Explanation{}, invalidTopK(topK)
	}
	fs, err := feature.Normalize(dict, vector)
	if err != nil {
		return core.Explanation{}, err
	}
	sess, err := o.lazy.Get(ctx)
	if err != nil {
		return core.Explanation{}, err
	}
	if sess.Scorer != nil {
		return o.explainLocal(ctx, sess, fs, dict != nil, topK)
	}
	return o.explainLLM(ctx, sess, fs, topK, extraContext)
}

// ExplainLocal 只使用局部敏感度解释，会话没有打分器时返回 UNAVAILABLE。
func (o *Orchestrator) ExplainLocal(ctx context.Context, dict feature.Dict, vector []float64, topK int) (core.Explanation, error) {
	if topK < 0 {
		return core.Explanation{}, invalidTopK(topK)
	}
	fs, err := feature.Normalize(dict, vector)
	if err != nil {
		return core.Explanation{}, err
	}
	sess, err := o.lazy.Get(ctx)
	if err != nil {
		return core.Explanation{}, err
	}
	if sess.Scorer == nil {
		return core.Explanation{}, core.NewDomainError(core.ModuleExpert, core.ErrorCodeUnavailable, "session has no scorer")
	}
	return o.explainLocal(ctx, sess, fs, dict != nil, topK)
}

// Context 返回与 text 相似的历史流失记录。topK 为 0 时使用会话默认值；未配置检索时返回空列表。
func (o *Orchestrator) Context(ctx context.Context, text string, topK int) ([]string, error) {
	sess, err := o.lazy.Get(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Context == nil {
		return []string{}, nil
	}
	if topK == 0 {
		topK = sess.TopK
	}
	return sess.Context.Query(ctx, text, topK)
}

// featureAligner 按打分器声明的特征顺序重排具名特征（model.Adapter、model.ScorerExpert）。
type featureAligner interface {
	Align(fs core.FeatureSet) (core.FeatureSet, error)
}

// explainLocal 对打分器做局部敏感度解释。named 表示特征来自 features_dict，需要先按名对齐；
// 向量输入按下标解释。
func (o *Orchestrator) explainLocal(ctx context.Context, sess *Session, fs core.FeatureSet, named bool, topK int) (core.Explanation, error) {
	if named {
		var err error
		if fs, err = sess.Scorer.Align(fs); err != nil {
			return core.Explanation{}, err
		}
	}
	exp, err := explain.Local(ctx, sess.Scorer, fs.Values(), fs.Names(), topK,
		explain.WithConcurrency(sess.ExplainConcurrency))
	if err != nil {
		return core.Explanation{}, err
	}
	o.metrics.Explanations.WithLabelValues("local").Inc()
	return exp, nil
}

func (o *Orchestrator) explainLLM(ctx context.Context, sess *Session, fs core.FeatureSet, topK int, extraContext string) (core.Explanation, error) {
	if sess.Generator == nil {
		return core.Explanation{}, core.NewDomainError(core.ModuleExpert, core.ErrorCodeUnavailable, "session has no generation backend")
	}
	featuresJSON, err := encodeFeatures(fs)
	if err != nil {
		return core.Explanation{}, err
	}
	retrieved, err := o.retrieve(ctx, sess, featuresJSON, extraContext)
	if err != nil {
		return core.Explanation{}, err
	}
	text, err := sess.Generator.Generate(ctx, explainMessages(featuresJSON, topK, retrieved, extraContext))
	if err != nil {
		return core.Explanation{}, err
	}

	obj, err := extract.JSON(text)
	if err == nil {
		var exp core.Explanation
		if exp, err = coerceExplanation(obj, topK, text); err == nil {
			o.metrics.Explanations.WithLabelValues("llm").Inc()
			return exp, nil
		}
	}
	o.metrics.ExtractionFailures.WithLabelValues("explanation").Inc()
	o.logger.Warn("churn explanation extraction failed", "session_id", sess.ID, "error", err)
	return core.Explanation{}, err
}

// retrieve 以 extraContext（为空时用特征 JSON）为查询文本检索历史记录。
func (o *Orchestrator) retrieve(ctx context.Context, sess *Session, featuresJSON, extraContext string) ([]string, error) {
	if sess.Context == nil {
		return nil, nil
	}
	query := extraContext
	if strings.TrimSpace(query) == "" {
		query = featuresJSON
	}
	return sess.Context.Query(ctx, query, sess.TopK)
}

func encodeFeatures(fs core.FeatureSet) (string, error) {
	data, err := feature.Dict(fs).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode features: %w", err)
	}
	return string(data), nil
}

func invalidTopK(topK int) error {
	return core.NewDomainError(core.ModuleExpert, core.ErrorCodeInvalidInput, fmt.Sprintf("top_k must be >= 0, got %d", topK))
}

// coerceExplanation 校验生成后端给出的解释对象。
//
// base_value 缺省为 0.5，非数值视为 MALFORMED_OUTPUT；contributions 不是数组时视为空；
// 先截断到 topK 再逐条校验，不合格的条目被丢弃。
func coerceExplanation(obj map[string]any, topK int, text string) (core.Explanation, error) {
	base := DefaultBaseValue
	if raw, ok := obj["base_value"]; ok {
		f, ok := conv.ParseFloat64(raw)
		if !ok {
			return core.Explanation{}, core.NewMalformedOutput(core.ModuleExpert, "base_value is not numeric", text)
		}
		base = f
	}

	list, _ := obj["contributions"].([]any)
	if len(list) > topK {
		list = list[:topK]
	}
	contributions := make([]core.Contribution, 0, len(list))
	for _, item := range list {
		if c, ok := coerceContribution(item); ok {
			contributions = append(contributions, c)
		}
	}

	var reason *string
	if r, ok := conv.ToString(obj["reason"]); ok {
		reason = &r
	}
	return core.Explanation{
		BaseValue:     base,
		Contributions: contributions,
		TopK:          topK,
		Reason:        reason,
	}, nil
}

func coerceContribution(item any) (core.Contribution, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return core.Contribution{}, false
	}
	name, ok := conv.ToString(m["feature"])
	if !ok {
		return core.Contribution{}, false
	}
	value, ok := optionalFloat(m["value"])
	if !ok {
		return core.Contribution{}, false
	}
	contribution, ok := optionalFloat(m["contribution"])
	if !ok {
		return core.Contribution{}, false
	}
	return core.Contribution{Feature: name, Value: value, Contribution: contribution}, true
}

// optionalFloat：nil → (nil, true)；可转为数值 → (&v, true)；否则 (nil, false)。
func optionalFloat(v any) (*float64, bool) {
	if v == nil {
		return nil, true
	}
	f, ok := conv.ParseFloat64(v)
	if !ok {
		return nil, false
	}
	return &f, true
}
