package rag

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rushteam/churnkit/core"
)

// CachedEmbedder 在任意 Embedder 前加一层 LRU，避免重复向量化相同的查询文本。
type CachedEmbedder struct {
	inner core.Embedder
	cache *lru.Cache[string, []float64]
}

// NewCachedEmbedder 创建缓存，size 为缓存条目数。
func NewCachedEmbedder(inner core.Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("lru cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed 只对未命中的文本调用底层 Embedder，结果顺序与输入一致。
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, core.NewDomainError(core.ModuleRAG, core.ErrorCodeInternalError,
			fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts)))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(missTexts[j], vecs[j])
	}
	return out, nil
}

// Len 返回缓存条目数。
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

var _ core.Embedder = (*CachedEmbedder)(nil)
