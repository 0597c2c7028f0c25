package model

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// ExprModel 用 CEL (Common Expression Language) 表达式计算决策间隔，适合规则化的打分卡。
//
// 表达式变量：
//   - f：特征名 → 值，例如 f.tenure、f["monthly_charges"]
//   - x：原始向量，例如 x[0]
//
// 示例：
//   - `0.03 * f.monthly_charges - 0.05 * f.tenure - 1.0`
//   - `x[0] + x[1]`
//
// 表达式在 NewExprModel 中编译一次，Program 线程安全，可并发求值。
type ExprModel struct {
	Expression string
	Features   []string
	prg        cel.Program
}

// NewExprModel 编译表达式。features 给出向量下标对应的特征名。
func NewExprModel(expression string, features []string) (*ExprModel, error) {
	env, err := cel.NewEnv(
		cel.Variable("f", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("x", cel.ListType(cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "compile expression", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &ExprModel{Expression: expression, Features: features, prg: prg}, nil
}

func (m *ExprModel) Name() string { return "expr" }

// FeatureNames 返回向量下标对应的特征名，只使用 x[i] 的表达式可以为空。
func (m *ExprModel) FeatureNames() []string { return m.Features }

// DecisionMargin 对向量求值。声明了特征名时向量长度必须一致；表达式结果必须是数值。
func (m *ExprModel) DecisionMargin(_ context.Context, x []float64) (float64, error) {
	if len(m.Features) > 0 && len(x) != len(m.Features) {
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("expr expects %d features, got %d", len(m.Features), len(x)))
	}
	f := make(map[string]float64, len(x))
	for i, v := range x {
		if i < len(m.Features) {
			f[m.Features[i]] = v
		}
	}

	out, _, err := m.prg.Eval(map[string]any{
		"f": f,
		"x": x,
	})
	if err != nil {
		return 0, fmt.Errorf("eval error: %w", err)
	}

	score, ok := conv.ToFloat64(out.Value())
	if !ok {
		return 0, fmt.Errorf("expression must return a number, got %T", out.Value())
	}
	return score, nil
}

var (
	_ core.MarginScorer = (*ExprModel)(nil)
	_ core.NamedScorer  = (*ExprModel)(nil)
)
