package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// keywordEmbedder 以关键词出现次数作为向量，便于构造确定的相似度。
type keywordEmbedder struct {
	keywords []string
	calls    int
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, len(e.keywords))
		for j, kw := range e.keywords {
			vec[j] = float64(strings.Count(strings.ToLower(text), kw))
		}
		out[i] = vec
	}
	return out, nil
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{keywords: []string{"month-to-month", "two year", "electronic check", "mailed check"}}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQL(context.Background(), "sqlite", filepath.Join(t.TempDir(), "churn.db"))
	if err != nil {
		t.Fatalf("OpenSQL() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE customers (customer_id TEXT, contract TEXT, paymentmethod TEXT, monthlycharges REAL, churn TEXT)`,
		`INSERT INTO customers VALUES ('7590-VHVEG', 'Month-to-month', 'Electronic check', 29.85, 'Yes')`,
		`INSERT INTO customers VALUES ('5575-GNVDE', 'One year', 'Mailed check', 56.95, 'No')`,
		`INSERT INTO customers VALUES ('3668-QPYBK', 'Month-to-month', 'Mailed check', 53.85, 'Yes')`,
		`INSERT INTO customers VALUES ('9237-HQITU', 'Two year', NULL, 70.7, 'Yes')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return db
}
