// Package store 提供检索增强所需的存储实现：
//   - 向量索引：MemoryIndex（内存）、RedisIndex（Redis 哈希）
//   - 关系数据源：SQLSource（database/sql）、GormSource（gorm）
//
// 接口定义在 core 包（core.EmbeddingIndex、core.RecordSource）。
package store

import (
	"math"
	"sort"
)

// cosineSimilarity 计算余弦相似度，任一向量为零向量或维度不一致时返回 0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scoredDoc struct {
	id       string
	document string
	score    float64
}

// topDocuments 按相似度降序（相同分数保持输入顺序）取前 topK 个文档。
func topDocuments(docs []scoredDoc, topK int) []string {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].score > docs[j].score
	})
	if topK < len(docs) {
		docs = docs[:topK]
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.document
	}
	return out
}
