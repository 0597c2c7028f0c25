package model

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/churnkit/core"
)

func TestExprModel(t *testing.T) {
	tests := []struct {
		name string
		expr string
		x    []float64
		want float64
	}{
		{"named features", "0.5 * f.monthly_charges - f.tenure", []float64{2, 10}, 3},
		{"index access", "x[0] + x[1]", []float64{10, 0}, 10},
		{"conditional", `f.tenure < 6.0 ? 1.0 : -1.0`, []float64{2, 10}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewExprModel(tt.expr, []string{"tenure", "monthly_charges"})
			if err != nil {
				t.Fatalf("NewExprModel() error = %v", err)
			}
			got, err := m.DecisionMargin(context.Background(), tt.x)
			if err != nil {
				t.Fatalf("DecisionMargin() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("DecisionMargin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprModel_CompileError(t *testing.T) {
	if _, err := NewExprModel("f.tenure +", []string{"tenure"}); !core.IsInvalidInput(err) {
		t.Errorf("NewExprModel() error = %v, want INVALID_INPUT", err)
	}
}

func TestExprModel_LengthMismatch(t *testing.T) {
	m, err := NewExprModel("f.tenure", []string{"tenure", "monthly_charges"})
	if err != nil {
		t.Fatalf("NewExprModel() error = %v", err)
	}
	if _, err := m.DecisionMargin(context.Background(), []float64{2}); !core.IsInvalidInput(err) {
		t.Errorf("DecisionMargin() error = %v, want INVALID_INPUT", err)
	}

	// 只用 x 的表达式不声明特征名，任意长度都可以
	m, err = NewExprModel("x[0]", nil)
	if err != nil {
		t.Fatalf("NewExprModel() error = %v", err)
	}
	if got, err := m.DecisionMargin(context.Background(), []float64{3, 4, 5}); err != nil || got != 3 {
		t.Errorf("DecisionMargin() = %v, %v; want 3", got, err)
	}
}
