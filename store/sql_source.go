package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
)

// DefaultChurnQuery 选出已流失客户：第一列为 ID，其余列拼接为检索文档。
const DefaultChurnQuery = `SELECT customer_id, contract, paymentmethod, monthlycharges FROM customers WHERE churn = 'Yes'`

// SQLSource 基于 database/sql 的 core.RecordSource，驱动由调用方注册（postgres: lib/pq，sqlite: modernc）。
type SQLSource struct {
	db    *sql.DB
	query string
}

// NewSQLSource 创建数据源，query 为空时使用 DefaultChurnQuery。
func NewSQLSource(db *sql.DB, query string) *SQLSource {
	if query == "" {
		query = DefaultChurnQuery
	}
	return &SQLSource{db: db, query: query}
}

// OpenSQL 打开连接池并 Ping 确认可用。
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	pool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "ping "+driver, err)
	}
	return pool, nil
}

// FetchRecords 执行查询，limit > 0 时限制返回行数。
func (s *SQLSource) FetchRecords(ctx context.Context, limit int) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, withLimit(s.query, limit))
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "query records", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// withLimit 把查询包成子查询再限制行数，原查询自带 LIMIT 或以行注释结尾时依然合法。
func withLimit(query string, limit int) string {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	if limit <= 0 {
		return query
	}
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS q LIMIT %d", query, limit)
}

// scanRecords 把任意列的结果集转为 Record：第一列为 ID，其余列按列名保存为字段，NULL 记为空串。
func scanRecords(rows *sql.Rows) ([]core.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "read columns", err)
	}
	if len(cols) == 0 {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "query returned no columns")
	}

	records := make([]core.Record, 0)
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "scan record", err)
		}
		rec := core.Record{ID: values[0].String, Fields: make([]core.RecordField, 0, len(cols)-1)}
		for i := 1; i < len(cols); i++ {
			rec.Fields = append(rec.Fields, core.RecordField{Name: cols[i], Value: values[i].String})
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "iterate records", err)
	}
	return records, nil
}

var _ core.RecordSource = (*SQLSource)(nil)
