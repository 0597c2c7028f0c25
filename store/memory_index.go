package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rushteam/churnkit/core"
)

// MemoryIndex 是内存实现的 core.EmbeddingIndex，用于测试/开发/小规模部署。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失
//   - 余弦相似度
//   - 线程安全
//
// 文档在 Upsert 时通过 Embedder 向量化，Query 时对查询文本向量化后全量比较。
type MemoryIndex struct {
	mu       sync.RWMutex
	embedder core.Embedder
	ids      []string // 插入顺序，相同分数时决定先后
	entries  map[string]*indexEntry
}

type indexEntry struct {
	document string
	vector   []float64
}

// NewMemoryIndex 创建内存索引。
func NewMemoryIndex(embedder core.Embedder) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		entries:  make(map[string]*indexEntry),
	}
}

func (m *MemoryIndex) Name() string { return "memory" }

// Upsert 写入或覆盖文档。
func (m *MemoryIndex) Upsert(ctx context.Context, ids, documents []string) error {
	if len(ids) != len(documents) {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "ids and documents length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	vectors, err := m.embedder.Embed(ctx, documents)
	if err != nil {
		return err
	}
	if len(vectors) != len(ids) {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError,
			fmt.Sprintf("embedder returned %d vectors for %d documents", len(vectors), len(ids)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if _, ok := m.entries[id]; !ok {
			m.ids = append(m.ids, id)
		}
		m.entries[id] = &indexEntry{document: documents[i], vector: vectors[i]}
	}
	return nil
}

// Query 返回与 text 最相似的 topK 个文档，topK <= 0 或索引为空时返回空列表。
func (m *MemoryIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if topK <= 0 {
		return []string{}, nil
	}
	m.mu.RLock()
	empty := len(m.ids) == 0
	m.mu.RUnlock()
	if empty {
		return []string{}, nil
	}

	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "embedder returned no query vector")
	}
	query := vectors[0]

	m.mu.RLock()
	docs := make([]scoredDoc, 0, len(m.ids))
	for _, id := range m.ids {
		e := m.entries[id]
		docs = append(docs, scoredDoc{id: id, document: e.document, score: cosineSimilarity(query, e.vector)})
	}
	m.mu.RUnlock()

	return topDocuments(docs, topK), nil
}

// IsEmpty 报告索引中是否没有文档。
func (m *MemoryIndex) IsEmpty(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids) == 0, nil
}

// Len 返回文档数量。
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Reset 清空索引。
func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = nil
	m.entries = make(map[string]*indexEntry)
}

var _ core.EmbeddingIndex = (*MemoryIndex)(nil)
