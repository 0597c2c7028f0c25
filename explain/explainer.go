// Package explain 实现局部敏感度解释：对每个特征做单侧有限差分，按影响大小排序。
//
// 这只是局部线性近似，结果受模型曲率与步长影响，不是 SHAP 一类的归因方法。
package explain

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/churnkit/core"
)

// DefaultStep 是有限差分的扰动步长。
const DefaultStep = 1e-3

// MarginScorer 是解释器需要的最小打分能力，*model.Adapter 实现此接口。
type MarginScorer interface {
	ScoreMargin(ctx context.Context, x []float64) (float64, error)
}

type options struct {
	step        float64
	concurrency int
}

// Option 配置 Local。
type Option func(*options)

// WithConcurrency 设置并发扰动打分的 goroutine 上限，n <= 1 时顺序执行。
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithStep 覆盖扰动步长，step <= 0 时忽略。
func WithStep(step float64) Option {
	return func(o *options) {
		if step > 0 {
			o.step = step
		}
	}
}

// Local 计算 vector 的局部敏感度解释。
//
//	base    = ScoreMargin(x)
//	delta_j = ScoreMargin(x + step·e_j) − base
//
// 按 |delta| 降序稳定排序（相同时保留原顺序），取前 topK 个；Value 为扰动前的特征值。
// topK >= len(vector) 返回全部，topK == 0 返回空列表（BaseValue 仍然填充）。
func Local(ctx context.Context, scorer MarginScorer, vector []float64, names []string, topK int, opts ...Option) (core.Explanation, error) {
	o := options{step: DefaultStep, concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if topK < 0 {
		return core.Explanation{}, core.NewDomainError(core.ModuleExplain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("top_k must be >= 0, got %d", topK))
	}
	if len(names) != len(vector) {
		return core.Explanation{}, core.NewDomainError(core.ModuleExplain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("got %d names for %d values", len(names), len(vector)))
	}

	base, err := scorer.ScoreMargin(ctx, vector)
	if err != nil {
		return core.Explanation{}, err
	}

	deltas := make([]float64, len(vector))
	g, gctx := errgroup.WithContext(ctx)
	if o.concurrency > 1 {
		g.SetLimit(o.concurrency)
	} else {
		g.SetLimit(1)
	}
	for j := range vector {
		j := j
		g.Go(func() error {
			x := make([]float64, len(vector))
			copy(x, vector)
			x[j] += o.step
			score, err := scorer.ScoreMargin(gctx, x)
			if err != nil {
				return err
			}
			deltas[j] = score - base
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Explanation{}, err
	}

	order := make([]int, len(vector))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(deltas[order[a]]) > math.Abs(deltas[order[b]])
	})
	if topK < len(order) {
		order = order[:topK]
	}

	contributions := make([]core.Contribution, 0, len(order))
	for _, j := range order {
		contributions = append(contributions, core.Contribution{
			Feature:      names[j],
			Value:        core.Float64(vector[j]),
			Contribution: core.Float64(deltas[j]),
		})
	}
	return core.Explanation{
		BaseValue:     base,
		Contributions: contributions,
		TopK:          topK,
	}, nil
}
