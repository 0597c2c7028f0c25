package core

import (
	"context"
	"strings"
)

// EmbeddingIndex 是按记录 ID 索引的向量检索库（文档自带嵌入）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 文本进、文本出：嵌入由实现内部完成，调用方只看到文档
//
// 实现：
//   - store.MemoryIndex：内存实现，用于测试/开发/单进程部署
//   - store.RedisIndex：Redis 实现，多进程共享
type EmbeddingIndex interface {
	// Upsert 按 ID 写入（或覆盖）文档
	Upsert(ctx context.Context, ids []string, documents []string) error

	// Query 返回与 text 最相近的 topK 个文档（按相似度降序）
	Query(ctx context.Context, text string, topK int) ([]string, error)

	// IsEmpty 判断索引是否为空
	IsEmpty(ctx context.Context) (bool, error)
}

// RecordSource 是历史流失记录的关系型数据源（document of record）。
//
// 实现：
//   - store.SQLSource：database/sql（postgres 使用 lib/pq，测试使用 sqlite）
//   - store.GormSource：gorm
type RecordSource interface {
	// FetchRecords 读取至多 limit 条已流失客户记录
	FetchRecords(ctx context.Context, limit int) ([]Record, error)
}

// RecordField 是记录中的一个属性列。
type RecordField struct {
	Name  string
	Value string
}

// Record 是一条历史记录：ID + 有序属性列。
type Record struct {
	ID     string
	Fields []RecordField
}

// Document 将记录的属性值按顺序以空格拼接，作为嵌入文档。空值被跳过。
func (r Record) Document() string {
	parts := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		if v := strings.TrimSpace(f.Value); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
