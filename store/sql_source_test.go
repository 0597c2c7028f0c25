package store

import (
	"context"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rushteam/churnkit/core"
)

func TestSQLSource_FetchRecords(t *testing.T) {
	db := openTestDB(t)
	src := NewSQLSource(db, "")

	records, err := src.FetchRecords(context.Background(), 1000)
	if err != nil {
		t.Fatalf("FetchRecords() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("FetchRecords() returned %d records, want 3 churned customers", len(records))
	}
	first := records[0]
	if first.ID != "7590-VHVEG" {
		t.Errorf("ID = %q", first.ID)
	}
	if got := first.Document(); got != "Month-to-month Electronic check 29.85" {
		t.Errorf("Document() = %q", got)
	}
	// NULL 字段不出现在文档中
	if got := records[2].Document(); got != "Two year 70.7" {
		t.Errorf("Document() with NULL = %q", got)
	}
}

func TestSQLSource_Limit(t *testing.T) {
	src := NewSQLSource(openTestDB(t), DefaultChurnQuery+";")
	records, err := src.FetchRecords(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("FetchRecords(limit=2) returned %d records", len(records))
	}
}

func TestSQLSource_LimitWrapsQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		limit int
		want  int
	}{
		{"own limit", DefaultChurnQuery + " LIMIT 3", 2, 2},
		{"own smaller limit", DefaultChurnQuery + " LIMIT 1", 2, 1},
		{"trailing comment", DefaultChurnQuery + " -- churned only", 2, 2},
		{"no limit", DefaultChurnQuery + " LIMIT 3;", 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := NewSQLSource(openTestDB(t), tt.query).FetchRecords(context.Background(), tt.limit)
			if err != nil {
				t.Fatalf("FetchRecords() error = %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("FetchRecords(limit=%d) returned %d records, want %d", tt.limit, len(records), tt.want)
			}
		})
	}
}

func TestSQLSource_Empty(t *testing.T) {
	src := NewSQLSource(openTestDB(t), `SELECT customer_id, contract FROM customers WHERE churn = 'Maybe'`)
	records, err := src.FetchRecords(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchRecords() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("FetchRecords() = %v, want empty", records)
	}
}

func TestSQLSource_QueryError(t *testing.T) {
	src := NewSQLSource(openTestDB(t), `SELECT * FROM missing_table`)
	if _, err := src.FetchRecords(context.Background(), 10); !core.IsUpstreamFailure(err) {
		t.Errorf("FetchRecords() error = %v, want UPSTREAM_FAILURE", err)
	}
}

func TestGormSource_FetchRecords(t *testing.T) {
	sqlDB := openTestDB(t)
	// 复用已有连接：Raw 查询不依赖方言
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}

	records, err := NewGormSource(db, "").FetchRecords(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchRecords() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "7590-VHVEG" {
		t.Errorf("FetchRecords() = %+v", records)
	}
}
