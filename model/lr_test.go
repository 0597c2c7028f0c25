package model

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/churnkit/core"
)

func TestLoadLRModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lr.json")
	data := `{"bias": -1, "weights": {"tenure": -0.5, "monthly_charges": 0.02}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadLRModel(path)
	if err != nil {
		t.Fatalf("LoadLRModel() error = %v", err)
	}
	// 缺省 features 按字典序：monthly_charges, tenure
	if len(m.Features) != 2 || m.Features[0] != "monthly_charges" || m.Features[1] != "tenure" {
		t.Fatalf("Features = %v", m.Features)
	}

	z, err := m.DecisionMargin(context.Background(), []float64{100, 2})
	if err != nil {
		t.Fatalf("DecisionMargin() error = %v", err)
	}
	if math.Abs(z-0) > 1e-12 {
		t.Errorf("DecisionMargin() = %v, want 0", z)
	}
	p, err := m.PositiveClassProbability(context.Background(), []float64{100, 2})
	if err != nil || math.Abs(p-0.5) > 1e-12 {
		t.Errorf("PositiveClassProbability() = %v, %v; want 0.5", p, err)
	}
}

func TestLRModel_LengthMismatch(t *testing.T) {
	m := &LRModel{Features: []string{"a"}, Weights: map[string]float64{"a": 1}}
	if _, err := m.DecisionMargin(context.Background(), []float64{1, 2}); !core.IsInvalidInput(err) {
		t.Errorf("DecisionMargin() error = %v, want INVALID_INPUT", err)
	}
}
