package store

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rushteam/churnkit/core"
)

// GormSource 基于 gorm 的 core.RecordSource，适合已经使用 gorm 管理连接的服务。
type GormSource struct {
	db    *gorm.DB
	query string
}

// NewGormSource 创建数据源，query 为空时使用 DefaultChurnQuery。
func NewGormSource(db *gorm.DB, query string) *GormSource {
	if query == "" {
		query = DefaultChurnQuery
	}
	return &GormSource{db: db, query: query}
}

// OpenGorm 使用 postgres 方言打开连接。
func OpenGorm(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "open gorm", err)
	}
	return db, nil
}

// FetchRecords 以原生 SQL 执行查询，结果按 SQLSource 相同的规则转为 Record。
func (s *GormSource) FetchRecords(ctx context.Context, limit int) ([]core.Record, error) {
	rows, err := s.db.WithContext(ctx).Raw(withLimit(s.query, limit)).Rows()
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "query records", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

var _ core.RecordSource = (*GormSource)(nil)
