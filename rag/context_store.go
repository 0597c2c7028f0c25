// Package rag 实现检索增强的上下文存储：索引为空时从关系库回填，然后按相似度检索历史流失记录。
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/churnkit/core"
)

// DefaultBackfillLimit 是单次回填读取的最大记录数。
const DefaultBackfillLimit = 1000

// ContextStore 在 EmbeddingIndex 之上提供“首次查询自动回填”的检索。
//
// 回填由互斥锁串行化，并在临界区内再次检查 IsEmpty：
// 并发的首次查询只会触发一次回填。索引之后再次变空时会重新回填。
type ContextStore struct {
	index  core.EmbeddingIndex
	source core.RecordSource
	limit  int

	mu        sync.Mutex
	backfills atomic.Int64

	logger  *slog.Logger
	counter prometheus.Counter
}

// Option 配置 ContextStore。
type Option func(*ContextStore)

// WithBackfillLimit 设置回填记录上限，默认 1000。
func WithBackfillLimit(n int) Option {
	return func(s *ContextStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger 设置日志。
func WithLogger(logger *slog.Logger) Option {
	return func(s *ContextStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackfillCounter 设置回填计数器（churn_rag_backfills_total）。
func WithBackfillCounter(c prometheus.Counter) Option {
	return func(s *ContextStore) {
		s.counter = c
	}
}

// NewContextStore 创建上下文存储。source 为 nil 时不回填。
func NewContextStore(index core.EmbeddingIndex, source core.RecordSource, opts ...Option) *ContextStore {
	s := &ContextStore{
		index:  index,
		source: source,
		limit:  DefaultBackfillLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query 返回与 text 最相似的 topK 条历史记录文档。
// 回填后索引仍为空（数据源无记录）时返回空列表；上游错误原样返回。
func (s *ContextStore) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if topK < 0 {
		return nil, core.NewDomainError(core.ModuleRAG, core.ErrorCodeInvalidInput,
			fmt.Sprintf("top_k must be >= 0, got %d", topK))
	}
	empty, err := s.index.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		if err := s.backfill(ctx); err != nil {
			return nil, err
		}
	}
	if topK == 0 {
		return []string{}, nil
	}
	docs, err := s.index.Query(ctx, text, topK)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []string{}
	}
	return docs, nil
}

// Backfills 返回已执行的回填次数。
func (s *ContextStore) Backfills() int64 {
	return s.backfills.Load()
}

func (s *ContextStore) backfill(ctx context.Context) error {
	if s.source == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	empty, err := s.index.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	start := time.Now()
	s.backfills.Add(1)
	if s.counter != nil {
		s.counter.Inc()
	}
	s.logger.Info("rag backfill started", "limit", s.limit)

	records, err := s.source.FetchRecords(ctx, s.limit)
	if err != nil {
		s.logger.Error("rag backfill failed", "error", err)
		return err
	}
	if len(records) == 0 {
		s.logger.Warn("rag backfill found no records")
		return nil
	}

	ids := make([]string, len(records))
	docs := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
		if ids[i] == "" {
			ids[i] = fmt.Sprintf("row-%d", i)
		}
		docs[i] = r.Document()
	}
	if err := s.index.Upsert(ctx, ids, docs); err != nil {
		s.logger.Error("rag backfill failed", "error", err)
		return err
	}
	s.logger.Info("rag backfill finished", "records", len(records), "duration", time.Since(start))
	return nil
}
