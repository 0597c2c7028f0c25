package expert

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/core"
)

func seedCustomers(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "churn.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, s := range []string{
		`CREATE TABLE customers (customer_id TEXT, contract TEXT, paymentmethod TEXT, monthlycharges REAL, churn TEXT)`,
		`INSERT INTO customers VALUES ('7590-VHVEG', 'Month-to-month', 'Electronic check', 29.85, 'Yes')`,
		`INSERT INTO customers VALUES ('5575-GNVDE', 'One year', 'Mailed check', 56.95, 'No')`,
	} {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path
}

func TestBuild(t *testing.T) {
	cfg := config.Default()
	cfg.Retrieval.VectorStore = "memory://"
	cfg.Retrieval.DatabaseDriver = "sqlite"
	cfg.Retrieval.DatabaseURL = seedCustomers(t)
	cfg.Retrieval.Embedding = "hash"
	cfg.Scorer = config.ScorerConfig{Type: "expr", Expression: "f.tenure * -0.5 + 1.0", Features: []string{"tenure"}, Direct: true}

	gen := &stubGenerator{text: `{"churn_proba": 0.9}`}
	opts := []Option{WithLogger(discardLogger()), WithBackend(gen)}
	lazy := NewLazy(Build(cfg, opts...), opts...)
	defer lazy.Close()
	o := NewOrchestrator(lazy, opts...)

	ctx := context.Background()
	docs, err := o.Context(ctx, "month-to-month", 0)
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if len(docs) != 1 || docs[0] != "Month-to-month Electronic check 29.85" {
		t.Errorf("Context() = %v", docs)
	}

	// direct: sigmoid(2 * -0.5 + 1) = 0.5
	p, err := o.PredictProbability(ctx, nil, []float64{2}, "")
	if err != nil {
		t.Fatalf("PredictProbability() error = %v", err)
	}
	if p != 0.5 {
		t.Errorf("PredictProbability() = %v, want 0.5", p)
	}
	if len(gen.messages) != 0 {
		t.Error("direct scorer should bypass the generator")
	}

	exp, err := o.Explain(ctx, nil, []float64{2}, 1, "")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if exp.BaseValue != 0 || len(exp.Contributions) != 1 {
		t.Errorf("Explain() = %+v", exp)
	}
}

func TestBuild_FailureIsRetried(t *testing.T) {
	cfg := config.Default()
	cfg.Scorer = config.ScorerConfig{Type: "lr", Path: filepath.Join(t.TempDir(), "missing.json")}

	opts := []Option{WithLogger(discardLogger()), WithBackend(&stubGenerator{})}
	lazy := NewLazy(Build(cfg, opts...), opts...)
	o := NewOrchestrator(lazy, opts...)

	if _, err := o.PredictProbability(context.Background(), nil, []float64{1}, ""); err == nil {
		t.Fatal("PredictProbability() expected init error")
	}
	if lazy.State() != StateUninitialized {
		t.Errorf("State() = %v, want UNINITIALIZED", lazy.State())
	}
}

func TestBuild_UnsupportedDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Retrieval.VectorStore = "memory://"
	cfg.Retrieval.DatabaseDriver = "mysql"
	cfg.Retrieval.DatabaseURL = "root@/churn"

	_, err := Build(cfg, WithLogger(discardLogger()), WithBackend(&stubGenerator{}))(context.Background())
	if !core.IsNotSupported(err) {
		t.Errorf("Build() error = %v, want NOT_SUPPORTED", err)
	}
}
